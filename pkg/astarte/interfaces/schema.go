// Package interfaces implements the Astarte interface/mapping schema (C3):
// JSON decoding, invariant validation, and the in-memory representation used
// by the rest of the SDK.
//
// The JSON wire structs mirror the original Rust SDK's InterfaceJson<T>/
// Mapping<T> split between wire and validated form: a mapping decodes into
// an unexported *JSON struct first, and is only promoted to the validated
// Mapping/Interface types by ParseInterface (via buildMapping) once every
// invariant holds.
package interfaces

import (
	"time"

	"github.com/astarte-platform/astarte-device-sdk-go/pkg/astarte/endpoint"
	"github.com/astarte-platform/astarte-device-sdk-go/pkg/astarte/types"
)

// MaxInterfaceMappings is the default cap on mappings per interface.
const MaxInterfaceMappings = 1024

// MaxInterfaceNameLen is the maximum length of an interface name.
const MaxInterfaceNameLen = 128

// Ownership identifies who is sending or receiving data on an interface.
type Ownership int

const (
	OwnershipDevice Ownership = iota
	OwnershipServer
)

func (o Ownership) String() string {
	if o == OwnershipServer {
		return "server"
	}
	return "device"
}

func (o Ownership) IsDevice() bool { return o == OwnershipDevice }
func (o Ownership) IsServer() bool { return o == OwnershipServer }

// InterfaceType distinguishes transient streams from retained state.
type InterfaceType int

const (
	TypeDatastream InterfaceType = iota
	TypeProperties
)

func (t InterfaceType) String() string {
	if t == TypeProperties {
		return "properties"
	}
	return "datastream"
}

// Aggregation controls whether mappings publish independently or as one object.
type Aggregation int

const (
	AggregationIndividual Aggregation = iota
	AggregationObject
)

func (a Aggregation) String() string {
	if a == AggregationObject {
		return "object"
	}
	return "individual"
}

// Reliability controls when a datastream publish is considered delivered.
type Reliability int

const (
	ReliabilityUnreliable Reliability = iota
	ReliabilityGuaranteed
	ReliabilityUnique
)

func (r Reliability) String() string {
	switch r {
	case ReliabilityGuaranteed:
		return "guaranteed"
	case ReliabilityUnique:
		return "unique"
	default:
		return "unreliable"
	}
}

func (r Reliability) IsUnreliable() bool { return r == ReliabilityUnreliable }

// Mapping is a single typed endpoint within an Interface.
type Mapping struct {
	Endpoint          endpoint.Endpoint
	Type              types.Kind
	Reliability       Reliability
	ExplicitTimestamp bool
	Retention         Retention
	DatabaseRetention DatabaseRetention
	AllowUnset        bool
	Description       string
	Doc               string
}

// Interface is the validated, in-memory form of an Astarte interface.
type Interface struct {
	Name         string
	VersionMajor int
	VersionMinor int
	Type         InterfaceType
	Ownership    Ownership
	Aggregation  Aggregation
	Mappings     []Mapping
	Description  string
	Doc          string
}

// Version returns the (major, minor) pair.
func (i *Interface) Version() (int, int) {
	return i.VersionMajor, i.VersionMinor
}

// IntrospectionToken returns the "name:major:minor" token used by the
// introspection string.
func (i *Interface) IntrospectionToken() string {
	return i.Name + ":" + itoa(i.VersionMajor) + ":" + itoa(i.VersionMinor)
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	pos := len(buf)
	for n > 0 {
		pos--
		buf[pos] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		pos--
		buf[pos] = '-'
	}
	return string(buf[pos:])
}

// wire structs — direct 1:1 mapping of the JSON schema of spec.md §6.

type mappingJSON struct {
	Endpoint                string  `json:"endpoint"`
	MappingType             string  `json:"type"`
	Reliability             *string `json:"reliability,omitempty"`
	ExplicitTimestamp       *bool   `json:"explicit_timestamp,omitempty"`
	Retention               *string `json:"retention,omitempty"`
	Expiry                  *int64  `json:"expiry,omitempty"`
	DatabaseRetentionPolicy *string `json:"database_retention_policy,omitempty"`
	DatabaseRetentionTTL    *int64  `json:"database_retention_ttl,omitempty"`
	AllowUnset              *bool   `json:"allow_unset,omitempty"`
	Description             string  `json:"description,omitempty"`
	Doc                     string  `json:"doc,omitempty"`
}

type interfaceJSON struct {
	InterfaceName string        `json:"interface_name"`
	VersionMajor  int           `json:"version_major"`
	VersionMinor  int           `json:"version_minor"`
	InterfaceType string        `json:"type"`
	Ownership     string        `json:"ownership"`
	Aggregation   string        `json:"aggregation,omitempty"`
	Description   string        `json:"description,omitempty"`
	Doc           string        `json:"doc,omitempty"`
	Mappings      []mappingJSON `json:"mappings"`
}

// expiryDuration converts a raw expiry field into the semantic "None means
// infinite" duration, rejecting negative values.
func expiryDuration(expiry *int64) (*time.Duration, error) {
	if expiry == nil || *expiry == 0 {
		return nil, nil
	}
	if *expiry < 0 {
		return nil, negativeExpiryError(*expiry)
	}
	d := time.Duration(*expiry) * time.Second
	return &d, nil
}
