package interfaces

import (
	"encoding/json"

	"github.com/astarte-platform/astarte-device-sdk-go/pkg/astarte/astarteerrors"
)

// knownInterfaceFields/knownMappingFields list every field accepted by the
// interfaceJSON/mappingJSON wire structs. encoding/json's Unmarshal has no
// DisallowUnknownFields option (only json.Decoder does, and only on the
// top-level value it is decoding), so strict mode is implemented with a
// decode-twice technique: decode into a map first to see what keys arrived,
// compare against the known set, then decode into the typed struct.
var knownInterfaceFields = map[string]struct{}{
	"interface_name": {}, "version_major": {}, "version_minor": {}, "type": {},
	"ownership": {}, "aggregation": {}, "description": {}, "doc": {}, "mappings": {},
}

var knownMappingFields = map[string]struct{}{
	"endpoint": {}, "type": {}, "reliability": {}, "explicit_timestamp": {},
	"retention": {}, "expiry": {}, "database_retention_policy": {}, "database_retention_ttl": {},
	"allow_unset": {}, "description": {}, "doc": {},
}

func checkUnknownFields(data []byte, known map[string]struct{}, context string) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return astarteerrors.Wrap(astarteerrors.KindSchema, err)
	}
	for key := range raw {
		if _, ok := known[key]; !ok {
			return astarteerrors.Newf(astarteerrors.KindSchema, "unknown field %q in %s", key, context)
		}
	}
	return nil
}
