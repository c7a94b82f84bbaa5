package interfaces

import (
	"time"

	"github.com/astarte-platform/astarte-device-sdk-go/pkg/astarte/astarteerrors"
	"github.com/astarte-platform/astarte-device-sdk-go/internal/log"
)

// Retention is the in-transit durability policy for a datastream mapping,
// modeled as a tagged union (rather than a struct with a discriminant field
// and an always-present expiry) so that "expiry is meaningless under
// Discard" is unrepresentable.
type Retention interface {
	String() string
	retention()
}

// DiscardRetention drops undeliverable data silently.
type DiscardRetention struct{}

func (DiscardRetention) String() string { return "discard" }
func (DiscardRetention) retention()     {}

// VolatileRetention buffers undeliverable data in memory until Expiry (nil = infinite).
type VolatileRetention struct {
	Expiry *time.Duration
}

func (VolatileRetention) String() string { return "volatile" }
func (VolatileRetention) retention()     {}

// StoredRetention buffers undeliverable data durably until Expiry (nil = infinite).
type StoredRetention struct {
	Expiry *time.Duration
}

func (StoredRetention) String() string { return "stored" }
func (StoredRetention) retention()     {}

// DatabaseRetention is the broker-side TTL policy, also a tagged union.
type DatabaseRetention interface {
	String() string
	databaseRetention()
}

// NoTTLRetention means the broker never expires the data.
type NoTTLRetention struct{}

func (NoTTLRetention) String() string { return "no_ttl" }
func (NoTTLRetention) databaseRetention() {}

// UseTTLRetention means the broker expires the data after TTL (>= 60s).
type UseTTLRetention struct {
	TTL time.Duration
}

func (UseTTLRetention) String() string     { return "use_ttl" }
func (UseTTLRetention) databaseRetention() {}

func negativeExpiryError(expiry int64) error {
	return astarteerrors.Newf(astarteerrors.KindSchema, "expiry cannot be negative: %d", expiry)
}

func discardWithExpiryError(expiry int64) error {
	return astarteerrors.Newf(astarteerrors.KindSchema, "discard retention with expiry %d set is a semantic conflict", expiry)
}

func noTTLWithTTLError(ttl int64) error {
	return astarteerrors.Newf(astarteerrors.KindSchema, "no_ttl database retention policy with ttl %d set is a semantic conflict", ttl)
}

func negativeDatabaseRetentionTTLError(ttl int64) error {
	return astarteerrors.Newf(astarteerrors.KindSchema, "database retention ttl cannot be negative: %d", ttl)
}

func databaseRetentionTTLTooLowError(ttl int64) error {
	return astarteerrors.Newf(astarteerrors.KindSchema, "database retention ttl must be >= 60s, got %d", ttl)
}

func missingDatabaseRetentionTTLError() error {
	return astarteerrors.Newf(astarteerrors.KindSchema, "database retention ttl is missing, but policy is use_ttl")
}

// resolveRetention converts the wire (retention, expiry) pair into the
// semantic Retention union. Discard with a positive expiry is a semantic
// conflict (spec §9): in strict mode it is rejected, otherwise it is logged
// and the expiry dropped, never silently accepted as meaningful.
func resolveRetention(m *mappingJSON, interfaceName string, strict bool) (Retention, error) {
	policy := "discard"
	if m.Retention != nil {
		policy = *m.Retention
	}

	switch policy {
	case "discard":
		if m.Expiry != nil && *m.Expiry > 0 {
			if strict {
				return nil, discardWithExpiryError(*m.Expiry)
			}
			log.WithPath(interfaceName, m.Endpoint).Warnf(
				"discard retention with expiry %d set, dropping expiry", *m.Expiry)
		}
		return DiscardRetention{}, nil
	case "volatile":
		expiry, err := expiryDuration(m.Expiry)
		if err != nil {
			return nil, err
		}
		return VolatileRetention{Expiry: expiry}, nil
	case "stored":
		expiry, err := expiryDuration(m.Expiry)
		if err != nil {
			return nil, err
		}
		return StoredRetention{Expiry: expiry}, nil
	default:
		return nil, astarteerrors.Newf(astarteerrors.KindSchema, "invalid retention value %q", policy)
	}
}

// resolveDatabaseRetention converts the wire (database_retention_policy,
// database_retention_ttl) pair into the semantic DatabaseRetention union.
// no_ttl with a ttl set is a semantic conflict (spec §9): in strict mode it
// is rejected, otherwise it is logged and the ttl dropped.
func resolveDatabaseRetention(m *mappingJSON, interfaceName string, strict bool) (DatabaseRetention, error) {
	policy := "no_ttl"
	if m.DatabaseRetentionPolicy != nil {
		policy = *m.DatabaseRetentionPolicy
	}

	switch policy {
	case "no_ttl":
		if m.DatabaseRetentionTTL != nil {
			if strict {
				return nil, noTTLWithTTLError(*m.DatabaseRetentionTTL)
			}
			log.WithPath(interfaceName, m.Endpoint).Warnf(
				"no_ttl database retention policy with ttl %d set, dropping ttl", *m.DatabaseRetentionTTL)
		}
		return NoTTLRetention{}, nil
	case "use_ttl":
		if m.DatabaseRetentionTTL == nil {
			return nil, missingDatabaseRetentionTTLError()
		}
		ttl := *m.DatabaseRetentionTTL
		if ttl < 0 {
			return nil, negativeDatabaseRetentionTTLError(ttl)
		}
		if ttl < 60 {
			return nil, databaseRetentionTTLTooLowError(ttl)
		}
		return UseTTLRetention{TTL: time.Duration(ttl) * time.Second}, nil
	default:
		return nil, astarteerrors.Newf(astarteerrors.KindSchema, "invalid database_retention_policy value %q", policy)
	}
}
