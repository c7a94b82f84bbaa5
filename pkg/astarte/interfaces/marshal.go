package interfaces

import "encoding/json"

// MarshalJSON serializes the interface back to its wire representation.
// Fields left at their default value are elided, matching the "optional
// with default" fields documented in the original JSON schema.
func (i *Interface) MarshalJSON() ([]byte, error) {
	wire := interfaceJSON{
		InterfaceName: i.Name,
		VersionMajor:  i.VersionMajor,
		VersionMinor:  i.VersionMinor,
		InterfaceType: i.Type.String(),
		Ownership:     i.Ownership.String(),
		Description:   i.Description,
		Doc:           i.Doc,
	}
	if i.Aggregation == AggregationObject {
		wire.Aggregation = i.Aggregation.String()
	}

	wire.Mappings = make([]mappingJSON, len(i.Mappings))
	for idx, m := range i.Mappings {
		wire.Mappings[idx] = mappingToJSON(m)
	}

	return json.Marshal(wire)
}

func mappingToJSON(m Mapping) mappingJSON {
	mj := mappingJSON{
		Endpoint:    m.Endpoint.String(),
		MappingType: m.Type.String(),
		Description: m.Description,
		Doc:         m.Doc,
	}

	if m.Reliability != ReliabilityUnreliable {
		rel := m.Reliability.String()
		mj.Reliability = &rel
	}
	if m.ExplicitTimestamp {
		t := true
		mj.ExplicitTimestamp = &t
	}
	if m.AllowUnset {
		t := true
		mj.AllowUnset = &t
	}

	switch r := m.Retention.(type) {
	case VolatileRetention:
		s := "volatile"
		mj.Retention = &s
		if r.Expiry != nil {
			e := int64(r.Expiry.Seconds())
			mj.Expiry = &e
		}
	case StoredRetention:
		s := "stored"
		mj.Retention = &s
		if r.Expiry != nil {
			e := int64(r.Expiry.Seconds())
			mj.Expiry = &e
		}
	}

	if ttl, ok := m.DatabaseRetention.(UseTTLRetention); ok {
		s := "use_ttl"
		mj.DatabaseRetentionPolicy = &s
		t := int64(ttl.TTL.Seconds())
		mj.DatabaseRetentionTTL = &t
	}

	return mj
}
