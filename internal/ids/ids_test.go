package ids

import "testing"

func TestNewDeviceIDRoundTripsThroughParse(t *testing.T) {
	id := NewDeviceID()
	parsed, err := ParseDeviceID(id.String())
	if err != nil {
		t.Fatalf("ParseDeviceID(%q): %v", id, err)
	}
	if parsed != id {
		t.Fatalf("got %q, want %q", parsed, id)
	}
}

func TestParseDeviceIDRejectsBadInput(t *testing.T) {
	cases := []string{
		"not-base64!!!",
		"AAAA",                   // decodes to fewer than 16 bytes
		"AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA", // decodes to more than 16 bytes
	}
	for _, c := range cases {
		if _, err := ParseDeviceID(c); err == nil {
			t.Fatalf("ParseDeviceID(%q): expected error, got nil", c)
		}
	}
}
