// Package validate implements the publish-time validator (C6): the single
// choke point through which every outbound (or inbound) value passes before
// reaching the publication pipeline, generalized from the teacher's
// permission Checker (pkg/auth/checker.go) — here checking ownership and
// type invariants instead of user permissions.
package validate

import (
	"github.com/astarte-platform/astarte-device-sdk-go/pkg/astarte/astarteerrors"
	"github.com/astarte-platform/astarte-device-sdk-go/pkg/astarte/interfaces"
	"github.com/astarte-platform/astarte-device-sdk-go/pkg/astarte/registry"
	"github.com/astarte-platform/astarte-device-sdk-go/pkg/astarte/types"
)

// Operation identifies which direction data is flowing, used for the
// ownership check of spec.md §4.5 step 2.
type Operation int

const (
	// OperationSend is the device publishing data outbound.
	OperationSend Operation = iota
	// OperationReceive is the device accepting data from the server.
	OperationReceive
)

// Validated is the sum of the three outcomes Validate can produce.
type Validated interface {
	validated()
}

// ValidatedIndividual is a single-mapping publish/receive.
type ValidatedIndividual struct {
	Interface *interfaces.Interface
	Mapping   interfaces.Mapping
	Path      string
	Value     types.Value
}

func (ValidatedIndividual) validated() {}

// ValidatedObject is an Object-aggregation datastream publish: one value per
// leaf endpoint sharing the interface's common prefix, with a single
// timestamp applying to the whole object.
type ValidatedObject struct {
	Interface *interfaces.Interface
	Prefix    string
	Values    map[string]types.Value
}

func (ValidatedObject) validated() {}

// ValidatedUnset is a Properties unset.
type ValidatedUnset struct {
	Interface *interfaces.Interface
	Mapping   interfaces.Mapping
	Path      string
}

func (ValidatedUnset) validated() {}

// Unset is the sentinel value passed to Validate to request an unset rather
// than an ordinary publish of a value.
// It embeds a nil types.Value only to inherit the unexported marker method,
// which no type outside package types can declare; the method is never called.
type unsetSentinel struct{ types.Value }

func (unsetSentinel) Kind() types.Kind   { return -1 }
func (unsetSentinel) String() string     { return "<unset>" }

// Unset is the sentinel value signaling a property unset request.
var Unset types.Value = unsetSentinel{}

// Validate checks an individual (non-object) publish/receive against the
// registry, implementing steps 1-4 and 6 of spec.md §4.5. Object-aggregation
// publishes go through ValidateObject instead.
func Validate(reg *registry.Registry, op Operation, interfaceName string, path string, value types.Value) (Validated, error) {
	ref, err := reg.Resolve(interfaceName, path)
	if err != nil {
		return nil, err
	}

	if err := checkOwnership(ref.Interface, op); err != nil {
		return nil, err
	}

	if value == Unset {
		if ref.Interface.Type != interfaces.TypeProperties {
			return nil, astarteerrors.Newf(astarteerrors.KindValidation,
				"unset is only valid on a properties interface").WithInterface(interfaceName).WithPath(path)
		}
		return ValidatedUnset{Interface: ref.Interface, Mapping: ref.Mapping, Path: path}, nil
	}

	if ref.Interface.Aggregation == interfaces.AggregationObject {
		return nil, astarteerrors.Newf(astarteerrors.KindValidation,
			"interface %q is object-aggregated; use ValidateObject", interfaceName).WithInterface(interfaceName).WithPath(path)
	}

	if err := checkType(ref.Mapping, value); err != nil {
		return nil, astarteerrors.Wrap(astarteerrors.KindType, err).WithInterface(interfaceName).WithPath(path)
	}

	if err := checkFinite(value); err != nil {
		return nil, astarteerrors.Wrap(astarteerrors.KindValidation, err).WithInterface(interfaceName).WithPath(path)
	}

	if ref.Interface.Type == interfaces.TypeProperties && ref.Mapping.ExplicitTimestamp {
		return nil, astarteerrors.Newf(astarteerrors.KindValidation,
			"explicit_timestamp must not be set on a properties mapping").WithInterface(interfaceName).WithPath(path)
	}

	return ValidatedIndividual{Interface: ref.Interface, Mapping: ref.Mapping, Path: path, Value: value}, nil
}

// ValidateObject checks an Object-aggregation datastream publish: the
// payload's key set must equal exactly the interface's leaf-level endpoints
// under the common prefix.
func ValidateObject(reg *registry.Registry, op Operation, interfaceName string, prefix string, payload map[string]types.Value) (Validated, error) {
	iface, ok := reg.Get(interfaceName)
	if !ok {
		return nil, astarteerrors.NotFoundInterface(interfaceName)
	}
	if iface.Aggregation != interfaces.AggregationObject {
		return nil, astarteerrors.Newf(astarteerrors.KindValidation,
			"interface %q is not object-aggregated", interfaceName).WithInterface(interfaceName)
	}
	if err := checkOwnership(iface, op); err != nil {
		return nil, err
	}

	leaves := make(map[string]interfaces.Mapping, len(iface.Mappings))
	for _, m := range iface.Mappings {
		levels := m.Endpoint.Levels()
		leaf := levels[len(levels)-1].Value
		leaves[leaf] = m
	}

	if len(payload) != len(leaves) {
		return nil, astarteerrors.Newf(astarteerrors.KindValidation,
			"object payload has %d keys, interface %q expects %d", len(payload), interfaceName, len(leaves)).
			WithInterface(interfaceName).WithPath(prefix)
	}
	for leaf, value := range payload {
		mapping, ok := leaves[leaf]
		if !ok {
			return nil, astarteerrors.Newf(astarteerrors.KindValidation,
				"object payload has unexpected key %q", leaf).WithInterface(interfaceName).WithPath(prefix)
		}
		if err := checkType(mapping, value); err != nil {
			return nil, astarteerrors.Wrap(astarteerrors.KindType, err).WithInterface(interfaceName).WithPath(prefix)
		}
		if err := checkFinite(value); err != nil {
			return nil, astarteerrors.Wrap(astarteerrors.KindValidation, err).WithInterface(interfaceName).WithPath(prefix)
		}
	}

	return ValidatedObject{Interface: iface, Prefix: prefix, Values: payload}, nil
}

func checkOwnership(iface *interfaces.Interface, op Operation) error {
	switch op {
	case OperationSend:
		if !iface.Ownership.IsDevice() {
			return astarteerrors.OwnershipMismatch(iface.Name, "device may only publish on device-owned interfaces")
		}
	case OperationReceive:
		if !iface.Ownership.IsServer() {
			return astarteerrors.OwnershipMismatch(iface.Name, "device may only receive on server-owned interfaces")
		}
	}
	return nil
}

func checkType(mapping interfaces.Mapping, value types.Value) error {
	if value.Kind() != mapping.Type {
		return astarteerrors.Newf(astarteerrors.KindType,
			"value kind %v does not match mapping type %v", value.Kind(), mapping.Type)
	}
	return nil
}

func checkFinite(value types.Value) error {
	switch v := value.(type) {
	case types.Double:
		if !v.IsFinite() {
			return astarteerrors.Newf(astarteerrors.KindValidation, "double value %v is NaN or infinite", float64(v))
		}
	case types.DoubleArray:
		if !v.IsFinite() {
			return astarteerrors.Newf(astarteerrors.KindValidation, "double array contains NaN or infinite elements")
		}
	}
	return nil
}
