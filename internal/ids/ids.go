// Package ids provides the device-id helpers backed by google/uuid. Astarte
// device IDs are base64url-encoded (no padding) 128-bit UUIDs; this mirrors
// the original SDK's types::uuid helpers.
package ids

import (
	"encoding/base64"
	"fmt"

	"github.com/google/uuid"
)

// DeviceID is a validated, base64url-encoded 128-bit device identifier.
type DeviceID string

// NewDeviceID generates a fresh random device ID.
func NewDeviceID() DeviceID {
	return encodeDeviceID(uuid.New())
}

// ParseDeviceID validates a device-id string, rejecting anything that isn't
// a 16-byte value base64url-encoded without padding.
func ParseDeviceID(s string) (DeviceID, error) {
	raw, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return "", fmt.Errorf("invalid device id %q: %w", s, err)
	}
	if len(raw) != 16 {
		return "", fmt.Errorf("invalid device id %q: must decode to 16 bytes, got %d", s, len(raw))
	}
	return DeviceID(s), nil
}

func encodeDeviceID(u uuid.UUID) DeviceID {
	return DeviceID(base64.RawURLEncoding.EncodeToString(u[:]))
}

// String implements fmt.Stringer.
func (d DeviceID) String() string {
	return string(d)
}
