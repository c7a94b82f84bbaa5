// Package properties implements the property store abstraction (C5): the
// contract expected from the external persistence backend, plus an
// in-memory reference implementation used by default and by the unit tests
// outside properties/redisstore.
package properties

import (
	"context"

	"github.com/astarte-platform/astarte-device-sdk-go/pkg/astarte/interfaces"
	"github.com/astarte-platform/astarte-device-sdk-go/pkg/astarte/types"
)

// Key identifies a stored property by interface name and concrete path.
type Key struct {
	Interface string
	Path      string
}

// StoredProperty is a single persisted property row.
type StoredProperty struct {
	Key       Key
	Value     types.Value
	Major     int
	Ownership interfaces.Ownership
}

// PropertyStore is the contract expected from the external persistence
// backend. All operations are asynchronous and must be linearizable per
// key; at most one live value exists per (interface, path).
type PropertyStore interface {
	// Load returns the stored value iff its recorded major equals
	// expectedMajor; otherwise it returns (nil, false, nil) and schedules
	// deletion of the stale row.
	Load(ctx context.Context, key Key, expectedMajor int) (types.Value, bool, error)
	// Store upserts by key, overwriting value, major and ownership.
	Store(ctx context.Context, prop StoredProperty) error
	// Unset marks the value as unset; a subsequent Load returns (nil, false, nil).
	Unset(ctx context.Context, key Key) error
	// Delete hard-removes the row.
	Delete(ctx context.Context, key Key) error
	// DeviceProps enumerates every stored device-owned property.
	DeviceProps(ctx context.Context) ([]StoredProperty, error)
	// ServerProps enumerates every stored server-owned property.
	ServerProps(ctx context.Context) ([]StoredProperty, error)
}

// LoadChecked wraps Load with the stale-property auto-repair behavior
// documented in spec.md §4.4/§7 and supplemented from the original Rust SDK's
// try_load_prop: the stored row is deleted (not merely ignored) whenever its
// recorded major OR its recorded type no longer matches the live mapping,
// so a future Load never observes an orphaned row in a different shape than
// what the registry currently expects.
func LoadChecked(ctx context.Context, store PropertyStore, key Key, mapping interfaces.Mapping, major int) (types.Value, bool, error) {
	value, ok, err := store.Load(ctx, key, major)
	if err != nil || !ok {
		return nil, false, err
	}
	if value.Kind() != mapping.Type {
		if delErr := store.Delete(ctx, key); delErr != nil {
			return nil, false, delErr
		}
		return nil, false, nil
	}
	return value, true, nil
}
