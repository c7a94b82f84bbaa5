package interfaces

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustParse(t *testing.T, js string, opts ParseOptions) *Interface {
	t.Helper()
	iface, err := ParseInterface([]byte(js), opts)
	require.NoError(t, err)
	return iface
}

func TestParseSimpleDeviceDatastream(t *testing.T) {
	js := `{
		"interface_name": "org.ex.DeviceDS",
		"version_major": 1,
		"version_minor": 0,
		"type": "datastream",
		"ownership": "device",
		"mappings": [{"endpoint": "/v", "type": "integer"}]
	}`
	iface := mustParse(t, js, ParseOptions{})
	assert.Equal(t, "org.ex.DeviceDS", iface.Name)
	assert.Equal(t, "org.ex.DeviceDS:1:0", iface.IntrospectionToken())
	assert.Equal(t, OwnershipDevice, iface.Ownership)
	assert.Equal(t, TypeDatastream, iface.Type)
	require.Len(t, iface.Mappings, 1)
}

func TestMajorMinorMustBePositive(t *testing.T) {
	js := `{
		"interface_name": "org.ex.Bad",
		"version_major": 0,
		"version_minor": 0,
		"type": "datastream",
		"ownership": "device",
		"mappings": [{"endpoint": "/v", "type": "integer"}]
	}`
	_, err := ParseInterface([]byte(js), ParseOptions{})
	assert.Error(t, err)
}

func TestRetentionInvalidValueRejected(t *testing.T) {
	js := `{
		"interface_name": "org.ex.Bad",
		"version_major": 1,
		"version_minor": 0,
		"type": "datastream",
		"ownership": "device",
		"mappings": [{"endpoint": "/v", "type": "integer", "retention": "use_ttl"}]
	}`
	_, err := ParseInterface([]byte(js), ParseOptions{})
	assert.Error(t, err)
}

func TestDatabaseRetentionTTLRules(t *testing.T) {
	base := `{
		"interface_name": "org.ex.TTL",
		"version_major": 1,
		"version_minor": 0,
		"type": "datastream",
		"ownership": "device",
		"mappings": [{"endpoint": "/v", "type": "integer",
			"database_retention_policy": "use_ttl"%s}]
	}`

	iface := mustParse(t, sprintfTTL(base, `, "database_retention_ttl": 60`), ParseOptions{})
	ttl, ok := iface.Mappings[0].DatabaseRetention.(UseTTLRetention)
	require.True(t, ok)
	assert.Equal(t, int64(60), int64(ttl.TTL.Seconds()))

	_, err := ParseInterface([]byte(sprintfTTL(base, `, "database_retention_ttl": 59`)), ParseOptions{})
	assert.Error(t, err)

	_, err = ParseInterface([]byte(sprintfTTL(base, "")), ParseOptions{})
	assert.Error(t, err)

	_, err = ParseInterface([]byte(sprintfTTL(base, `, "database_retention_ttl": -1`)), ParseOptions{})
	assert.Error(t, err)
}

func sprintfTTL(format, arg string) string {
	out := ""
	for i := 0; i < len(format); i++ {
		if format[i] == '%' && i+1 < len(format) && format[i+1] == 's' {
			out += arg
			i++
			continue
		}
		out += string(format[i])
	}
	return out
}

func TestEndpointOverlapRejected(t *testing.T) {
	js := `{
		"interface_name": "org.ex.Overlap",
		"version_major": 1,
		"version_minor": 0,
		"type": "datastream",
		"ownership": "device",
		"mappings": [
			{"endpoint": "/a/%{x}", "type": "integer"},
			{"endpoint": "/a/b", "type": "integer"}
		]
	}`
	_, err := ParseInterface([]byte(js), ParseOptions{})
	assert.Error(t, err)
}

func TestEndpointNonOverlapAccepted(t *testing.T) {
	js := `{
		"interface_name": "org.ex.NoOverlap",
		"version_major": 1,
		"version_minor": 0,
		"type": "datastream",
		"ownership": "device",
		"mappings": [
			{"endpoint": "/a/%{x}", "type": "integer"},
			{"endpoint": "/b/%{y}", "type": "integer"}
		]
	}`
	iface := mustParse(t, js, ParseOptions{})
	assert.Len(t, iface.Mappings, 2)
}

func TestStrictModeRejectsUnknownFields(t *testing.T) {
	js := `{
		"interface_name": "org.ex.Strict",
		"version_major": 1,
		"version_minor": 0,
		"type": "datastream",
		"ownership": "device",
		"ownArship": "server",
		"mappings": [{"endpoint": "/v", "type": "integer"}]
	}`
	_, err := ParseInterface([]byte(js), ParseOptions{Strict: true})
	assert.Error(t, err)

	_, err = ParseInterface([]byte(js), ParseOptions{Strict: false})
	assert.NoError(t, err)
}

func TestObjectAggregationRequiresSharedPrefix(t *testing.T) {
	js := `{
		"interface_name": "org.ex.Obj",
		"version_major": 1,
		"version_minor": 0,
		"type": "datastream",
		"ownership": "device",
		"aggregation": "object",
		"mappings": [
			{"endpoint": "/common/a", "type": "integer"},
			{"endpoint": "/common/b", "type": "integer"}
		]
	}`
	iface := mustParse(t, js, ParseOptions{})
	assert.Equal(t, AggregationObject, iface.Aggregation)
}

func TestObjectAggregationDivergingMetadataRejected(t *testing.T) {
	js := `{
		"interface_name": "org.ex.ObjBad",
		"version_major": 1,
		"version_minor": 0,
		"type": "datastream",
		"ownership": "device",
		"aggregation": "object",
		"mappings": [
			{"endpoint": "/common/a", "type": "integer", "reliability": "guaranteed"},
			{"endpoint": "/common/b", "type": "integer"}
		]
	}`
	_, err := ParseInterface([]byte(js), ParseOptions{})
	assert.Error(t, err)
}

func TestObjectAggregationOnlyWithDatastream(t *testing.T) {
	js := `{
		"interface_name": "org.ex.ObjProp",
		"version_major": 1,
		"version_minor": 0,
		"type": "properties",
		"ownership": "device",
		"aggregation": "object",
		"mappings": [{"endpoint": "/common/a", "type": "integer"}]
	}`
	_, err := ParseInterface([]byte(js), ParseOptions{})
	assert.Error(t, err)
}

func TestPropertiesToleratesDatastreamOnlyFieldsWhenNotStrict(t *testing.T) {
	js := `{
		"interface_name": "org.ex.Prop",
		"version_major": 1,
		"version_minor": 0,
		"type": "properties",
		"ownership": "device",
		"mappings": [{"endpoint": "/a", "type": "integer", "reliability": "guaranteed"}]
	}`
	iface := mustParse(t, js, ParseOptions{})
	assert.Equal(t, ReliabilityUnreliable, iface.Mappings[0].Reliability)

	_, err := ParseInterface([]byte(js), ParseOptions{Strict: true})
	assert.Error(t, err)
}

func TestStrictModeRejectsDiscardWithExpiry(t *testing.T) {
	js := `{
		"interface_name": "org.ex.DiscardExpiry",
		"version_major": 1,
		"version_minor": 0,
		"type": "datastream",
		"ownership": "device",
		"mappings": [{"endpoint": "/v", "type": "integer", "retention": "discard", "expiry": 60}]
	}`
	iface := mustParse(t, js, ParseOptions{})
	assert.Equal(t, DiscardRetention{}, iface.Mappings[0].Retention)

	_, err := ParseInterface([]byte(js), ParseOptions{Strict: true})
	assert.Error(t, err)
}

func TestStrictModeRejectsNoTTLWithTTL(t *testing.T) {
	js := `{
		"interface_name": "org.ex.NoTTLTTL",
		"version_major": 1,
		"version_minor": 0,
		"type": "datastream",
		"ownership": "device",
		"mappings": [{"endpoint": "/v", "type": "integer", "database_retention_policy": "no_ttl", "database_retention_ttl": 120}]
	}`
	iface := mustParse(t, js, ParseOptions{})
	assert.Equal(t, NoTTLRetention{}, iface.Mappings[0].DatabaseRetention)

	_, err := ParseInterface([]byte(js), ParseOptions{Strict: true})
	assert.Error(t, err)
}

func TestRoundTripMarshal(t *testing.T) {
	js := `{
		"interface_name": "org.ex.RoundTrip",
		"version_major": 1,
		"version_minor": 2,
		"type": "datastream",
		"ownership": "server",
		"mappings": [
			{"endpoint": "/a", "type": "double", "retention": "stored", "expiry": 30},
			{"endpoint": "/b", "type": "string"}
		]
	}`
	iface := mustParse(t, js, ParseOptions{})

	out, err := json.Marshal(iface)
	require.NoError(t, err)

	iface2, err := ParseInterface(out, ParseOptions{})
	require.NoError(t, err)

	assert.Equal(t, iface.Name, iface2.Name)
	assert.Equal(t, iface.VersionMajor, iface2.VersionMajor)
	assert.Equal(t, iface.VersionMinor, iface2.VersionMinor)
	assert.Equal(t, iface.Ownership, iface2.Ownership)
	require.Len(t, iface2.Mappings, len(iface.Mappings))
	for idx := range iface.Mappings {
		assert.Equal(t, iface.Mappings[idx].Endpoint.String(), iface2.Mappings[idx].Endpoint.String())
		assert.Equal(t, iface.Mappings[idx].Type, iface2.Mappings[idx].Type)
	}
}

func TestTooManyMappingsRejected(t *testing.T) {
	mappings := ""
	for i := 0; i < 3; i++ {
		if i > 0 {
			mappings += ","
		}
		mappings += `{"endpoint": "/m` + string(rune('a'+i)) + `", "type": "integer"}`
	}
	js := `{
		"interface_name": "org.ex.TooMany",
		"version_major": 1,
		"version_minor": 0,
		"type": "datastream",
		"ownership": "device",
		"mappings": [` + mappings + `]
	}`
	_, err := ParseInterface([]byte(js), ParseOptions{MaxMappings: 2})
	assert.Error(t, err)
}
