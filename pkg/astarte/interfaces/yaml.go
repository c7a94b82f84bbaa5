package interfaces

import (
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/astarte-platform/astarte-device-sdk-go/pkg/astarte/astarteerrors"
)

// Bundle is a YAML document grouping several interface definitions, for
// devices that ship their whole schema as one file alongside pkg/config's
// SDKConfig rather than one JSON file per interface.
type Bundle struct {
	Interfaces []interface{} `yaml:"interfaces"`
}

// LoadYAMLBundle decodes a Bundle and parses every entry with ParseInterface.
// YAML has no native equivalent of json.RawMessage, so each entry round-trips
// through the generic interface{} representation yaml.v3 produces and back
// out to JSON before being handed to the JSON-schema parser, keeping
// ParseInterface the single source of truth for validation.
func LoadYAMLBundle(data []byte, opts ParseOptions) ([]*Interface, error) {
	var bundle Bundle
	if err := yaml.Unmarshal(data, &bundle); err != nil {
		return nil, astarteerrors.Wrap(astarteerrors.KindSchema, fmt.Errorf("decoding interface bundle: %w", err))
	}

	ifaces := make([]*Interface, 0, len(bundle.Interfaces))
	for idx, raw := range bundle.Interfaces {
		normalized := normalizeYAML(raw)
		encoded, err := json.Marshal(normalized)
		if err != nil {
			return nil, astarteerrors.Wrap(astarteerrors.KindSchema, fmt.Errorf("re-encoding bundle entry %d: %w", idx, err))
		}
		iface, err := ParseInterface(encoded, opts)
		if err != nil {
			return nil, err
		}
		ifaces = append(ifaces, iface)
	}
	return ifaces, nil
}

// normalizeYAML rebuilds the map[string]interface{} and []interface{} shapes
// yaml.v3 produces, recursing into their elements. Every other value,
// including a map[interface{}]interface{}, is returned unchanged, and
// encoding/json then fails to marshal such a map.
func normalizeYAML(v interface{}) interface{} {
	switch vv := v.(type) {
	case map[string]interface{}:
		out := make(map[string]interface{}, len(vv))
		for k, val := range vv {
			out[k] = normalizeYAML(val)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(vv))
		for i, val := range vv {
			out[i] = normalizeYAML(val)
		}
		return out
	default:
		return v
	}
}
