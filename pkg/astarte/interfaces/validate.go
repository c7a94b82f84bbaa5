package interfaces

import (
	"encoding/json"
	"time"

	"github.com/astarte-platform/astarte-device-sdk-go/internal/log"
	"github.com/astarte-platform/astarte-device-sdk-go/pkg/astarte/astarteerrors"
	"github.com/astarte-platform/astarte-device-sdk-go/pkg/astarte/endpoint"
	"github.com/astarte-platform/astarte-device-sdk-go/pkg/astarte/types"
)

// ParseOptions controls decode-time behavior.
type ParseOptions struct {
	// Strict rejects unknown JSON fields and semantic conflicts (discard+
	// expiry, no_ttl+ttl, datastream+allow_unset, ...) instead of merely
	// logging and tolerating them.
	Strict bool
	// MaxMappings overrides MaxInterfaceMappings; zero means the default.
	MaxMappings int
}

// ParseInterface decodes and validates an interface from its JSON
// representation, implementing the six steps of spec.md §4.2.
func ParseInterface(data []byte, opts ParseOptions) (*Interface, error) {
	maxMappings := opts.MaxMappings
	if maxMappings == 0 {
		maxMappings = MaxInterfaceMappings
	}

	if opts.Strict {
		if err := checkUnknownFields(data, knownInterfaceFields, "interface"); err != nil {
			return nil, err
		}
	}

	var wire interfaceJSON
	if err := json.Unmarshal(data, &wire); err != nil {
		return nil, astarteerrors.Wrap(astarteerrors.KindSchema, err)
	}

	if opts.Strict {
		var rawTop struct {
			Mappings []json.RawMessage `json:"mappings"`
		}
		if err := json.Unmarshal(data, &rawTop); err == nil {
			for i, raw := range rawTop.Mappings {
				if i >= len(wire.Mappings) {
					break
				}
				if err := checkUnknownFields(raw, knownMappingFields, "mapping"); err != nil {
					return nil, err
				}
			}
		}
	}

	if wire.InterfaceName == "" {
		return nil, astarteerrors.Newf(astarteerrors.KindSchema, "interface_name is required")
	}
	if len(wire.InterfaceName) > MaxInterfaceNameLen {
		return nil, astarteerrors.Newf(astarteerrors.KindSchema,
			"interface_name %q exceeds %d characters", wire.InterfaceName, MaxInterfaceNameLen)
	}
	if wire.VersionMajor < 0 || wire.VersionMinor < 0 {
		return nil, astarteerrors.Newf(astarteerrors.KindSchema, "version numbers must be non-negative").WithInterface(wire.InterfaceName)
	}
	if wire.VersionMajor+wire.VersionMinor < 1 {
		return nil, astarteerrors.Newf(astarteerrors.KindSchema,
			"major + minor must be >= 1, got %d + %d", wire.VersionMajor, wire.VersionMinor).WithInterface(wire.InterfaceName)
	}
	if len(wire.Mappings) == 0 {
		return nil, astarteerrors.Newf(astarteerrors.KindMapping, "an interface must have at least one mapping").WithInterface(wire.InterfaceName)
	}
	if len(wire.Mappings) > maxMappings {
		return nil, astarteerrors.Newf(astarteerrors.KindMapping,
			"too many mappings %d, max is %d", len(wire.Mappings), maxMappings).WithInterface(wire.InterfaceName)
	}

	ifaceType, ok := parseInterfaceType(wire.InterfaceType)
	if !ok {
		return nil, astarteerrors.Newf(astarteerrors.KindSchema, "invalid type %q", wire.InterfaceType).WithInterface(wire.InterfaceName)
	}
	ownership, ok := parseOwnership(wire.Ownership)
	if !ok {
		return nil, astarteerrors.Newf(astarteerrors.KindSchema, "invalid ownership %q", wire.Ownership).WithInterface(wire.InterfaceName)
	}

	aggregation := AggregationIndividual
	if wire.Aggregation != "" {
		aggregation, ok = parseAggregation(wire.Aggregation)
		if !ok {
			return nil, astarteerrors.Newf(astarteerrors.KindSchema, "invalid aggregation %q", wire.Aggregation).WithInterface(wire.InterfaceName)
		}
	}
	if aggregation == AggregationObject && ifaceType != TypeDatastream {
		return nil, astarteerrors.Newf(astarteerrors.KindSchema, "aggregation object is only valid with type datastream").WithInterface(wire.InterfaceName)
	}

	vb := &astarteerrors.ValidationBuilder{}
	mappings := make([]Mapping, 0, len(wire.Mappings))
	for idx := range wire.Mappings {
		mj := &wire.Mappings[idx]
		mapping, err := buildMapping(mj, wire.InterfaceName, ifaceType, opts.Strict)
		if err != nil {
			vb.AddError(err)
			continue
		}
		mappings = append(mappings, mapping)
	}
	if vb.HasErrors() {
		return nil, vb.Build()
	}

	if aggregation == AggregationObject {
		if err := validateObjectMappings(mappings, wire.InterfaceName); err != nil {
			return nil, err
		}
	}

	if err := checkOverlaps(mappings); err != nil {
		return nil, err
	}

	return &Interface{
		Name:         wire.InterfaceName,
		VersionMajor: wire.VersionMajor,
		VersionMinor: wire.VersionMinor,
		Type:         ifaceType,
		Ownership:    ownership,
		Aggregation:  aggregation,
		Mappings:     mappings,
		Description:  wire.Description,
		Doc:          wire.Doc,
	}, nil
}

func parseInterfaceType(s string) (InterfaceType, bool) {
	switch s {
	case "datastream":
		return TypeDatastream, true
	case "properties":
		return TypeProperties, true
	default:
		return 0, false
	}
}

func parseOwnership(s string) (Ownership, bool) {
	switch s {
	case "device":
		return OwnershipDevice, true
	case "server":
		return OwnershipServer, true
	default:
		return 0, false
	}
}

func parseAggregation(s string) (Aggregation, bool) {
	switch s {
	case "individual":
		return AggregationIndividual, true
	case "object":
		return AggregationObject, true
	default:
		return 0, false
	}
}

func parseReliability(s string) (Reliability, bool) {
	switch s {
	case "unreliable":
		return ReliabilityUnreliable, true
	case "guaranteed":
		return ReliabilityGuaranteed, true
	case "unique":
		return ReliabilityUnique, true
	default:
		return 0, false
	}
}

func buildMapping(mj *mappingJSON, interfaceName string, ifaceType InterfaceType, strict bool) (Mapping, error) {
	ep, err := endpoint.Parse(mj.Endpoint)
	if err != nil {
		return Mapping{}, err
	}

	kind, ok := types.ParseKind(mj.MappingType)
	if !ok {
		return Mapping{}, astarteerrors.Newf(astarteerrors.KindSchema, "invalid mapping type %q", mj.MappingType).WithInterface(interfaceName).WithPath(mj.Endpoint)
	}

	reliability := ReliabilityUnreliable
	if mj.Reliability != nil {
		reliability, ok = parseReliability(*mj.Reliability)
		if !ok {
			return Mapping{}, astarteerrors.Newf(astarteerrors.KindSchema, "invalid reliability %q", *mj.Reliability).WithInterface(interfaceName).WithPath(mj.Endpoint)
		}
	}

	retention, err := resolveRetention(mj, interfaceName, strict)
	if err != nil {
		return Mapping{}, astarteerrors.Wrap(astarteerrors.KindSchema, err).WithInterface(interfaceName).WithPath(mj.Endpoint)
	}

	dbRetention, err := resolveDatabaseRetention(mj, interfaceName, strict)
	if err != nil {
		return Mapping{}, astarteerrors.Wrap(astarteerrors.KindSchema, err).WithInterface(interfaceName).WithPath(mj.Endpoint)
	}

	explicitTimestamp := mj.ExplicitTimestamp != nil && *mj.ExplicitTimestamp
	allowUnset := mj.AllowUnset != nil && *mj.AllowUnset

	logger := log.WithPath(interfaceName, mj.Endpoint)

	if ifaceType == TypeDatastream {
		if mj.AllowUnset != nil {
			if strict {
				return Mapping{}, astarteerrors.Newf(astarteerrors.KindSchema, "allow_unset is not valid on a datastream mapping").WithInterface(interfaceName).WithPath(mj.Endpoint)
			}
			logger.Warn("allow_unset set on a datastream mapping, ignoring")
			allowUnset = false
		}
	} else {
		// Properties: reliability, retention, explicit_timestamp and
		// database_retention_* must be absent/default.
		conflicts := []string{}
		if mj.Reliability != nil {
			conflicts = append(conflicts, "reliability")
		}
		if mj.Retention != nil {
			conflicts = append(conflicts, "retention")
		}
		if mj.ExplicitTimestamp != nil {
			conflicts = append(conflicts, "explicit_timestamp")
		}
		if mj.DatabaseRetentionPolicy != nil {
			conflicts = append(conflicts, "database_retention_policy")
		}
		if mj.DatabaseRetentionTTL != nil {
			conflicts = append(conflicts, "database_retention_ttl")
		}
		if len(conflicts) > 0 {
			if strict {
				return Mapping{}, astarteerrors.Newf(astarteerrors.KindSchema,
					"fields %v are not valid on a properties mapping", conflicts).WithInterface(interfaceName).WithPath(mj.Endpoint)
			}
			logger.Warnf("fields %v set on a properties mapping, ignoring", conflicts)
			reliability = ReliabilityUnreliable
			retention = DiscardRetention{}
			explicitTimestamp = false
			dbRetention = NoTTLRetention{}
		}
	}

	return Mapping{
		Endpoint:          ep,
		Type:              kind,
		Reliability:       reliability,
		ExplicitTimestamp: explicitTimestamp,
		Retention:         retention,
		DatabaseRetention: dbRetention,
		AllowUnset:        allowUnset,
		Description:       mj.Description,
		Doc:               mj.Doc,
	}, nil
}

// validateObjectMappings enforces spec.md §3's Object invariants: a common
// prefix of length >= 1, every endpoint having >= 2 levels, and identical
// mapping-level metadata across all mappings (divergences are errors, never
// merely tolerated).
func validateObjectMappings(mappings []Mapping, interfaceName string) error {
	for _, m := range mappings {
		if m.Endpoint.Len() < 2 {
			return astarteerrors.Newf(astarteerrors.KindMapping,
				"object endpoint must have at least 2 levels: %q", m.Endpoint.String()).WithInterface(interfaceName)
		}
	}

	first := mappings[0].Endpoint.Levels()
	prefixLen := commonPrefixLen(mappings)
	if prefixLen < 1 {
		return astarteerrors.Newf(astarteerrors.KindInterface,
			"object mappings must share a common prefix of length >= 1").WithInterface(interfaceName)
	}
	_ = first

	ref := mappings[0]
	for _, m := range mappings[1:] {
		if m.Reliability != ref.Reliability {
			return astarteerrors.Newf(astarteerrors.KindMapping,
				"object mappings must share the same reliability").WithInterface(interfaceName)
		}
		if !sameRetention(m.Retention, ref.Retention) {
			return astarteerrors.Newf(astarteerrors.KindMapping,
				"object mappings must share the same retention").WithInterface(interfaceName)
		}
		if m.ExplicitTimestamp != ref.ExplicitTimestamp {
			return astarteerrors.Newf(astarteerrors.KindMapping,
				"object mappings must share the same explicit_timestamp").WithInterface(interfaceName)
		}
	}

	return nil
}

func commonPrefixLen(mappings []Mapping) int {
	minLen := mappings[0].Endpoint.Len()
	for _, m := range mappings[1:] {
		if m.Endpoint.Len() < minLen {
			minLen = m.Endpoint.Len()
		}
	}
	// The leaf level (last one) differs per mapping by construction; the
	// shared prefix is everything before it, capped by the shortest mapping.
	maxPrefix := minLen - 1
	prefix := 0
	for lvl := 0; lvl < maxPrefix; lvl++ {
		lits := make(map[string]struct{})
		isParam := false
		for _, m := range mappings {
			l := m.Endpoint.Levels()[lvl]
			if l.Kind == endpoint.LevelParameter {
				isParam = true
			}
			lits[l.Value] = struct{}{}
		}
		if isParam {
			if len(lits) != 1 {
				break
			}
		} else if len(lits) != 1 {
			break
		}
		prefix++
	}
	return prefix
}

func sameRetention(a, b Retention) bool {
	switch av := a.(type) {
	case DiscardRetention:
		_, ok := b.(DiscardRetention)
		return ok
	case VolatileRetention:
		bv, ok := b.(VolatileRetention)
		return ok && durationEqual(av.Expiry, bv.Expiry)
	case StoredRetention:
		bv, ok := b.(StoredRetention)
		return ok && durationEqual(av.Expiry, bv.Expiry)
	default:
		return false
	}
}

func durationEqual(a, b *time.Duration) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

// checkOverlaps verifies pairwise endpoint non-overlap, per spec.md §4.1/§4.2
// step 5, reporting the first duplicate found.
func checkOverlaps(mappings []Mapping) error {
	for i := 0; i < len(mappings); i++ {
		for j := i + 1; j < len(mappings); j++ {
			if mappings[i].Endpoint.Overlaps(mappings[j].Endpoint) {
				return astarteerrors.Duplicated(mappings[j].Endpoint.String())
			}
		}
	}
	return nil
}
