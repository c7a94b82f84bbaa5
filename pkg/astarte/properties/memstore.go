package properties

import (
	"context"
	"sync"

	"github.com/astarte-platform/astarte-device-sdk-go/pkg/astarte/types"
)

// MemStore is the reference in-memory PropertyStore implementation. Keys are
// sharded across a fixed number of buckets, each behind its own mutex, so
// that concurrent operations on different keys never contend — matching the
// "externally synchronized per key" requirement of spec.md §5.
type MemStore struct {
	shards [memStoreShardCount]*memShard
}

const memStoreShardCount = 16

type memShard struct {
	mu    sync.Mutex
	props map[Key]StoredProperty
}

// NewMemStore returns an empty in-memory property store.
func NewMemStore() *MemStore {
	ms := &MemStore{}
	for i := range ms.shards {
		ms.shards[i] = &memShard{props: make(map[Key]StoredProperty)}
	}
	return ms
}

func (ms *MemStore) shardFor(key Key) *memShard {
	h := fnv32(key.Interface + "\x00" + key.Path)
	return ms.shards[h%memStoreShardCount]
}

func fnv32(s string) uint32 {
	const prime = 16777619
	var h uint32 = 2166136261
	for i := 0; i < len(s); i++ {
		h ^= uint32(s[i])
		h *= prime
	}
	return h
}

// Load returns the stored value iff its recorded major equals expectedMajor.
// A stale major schedules deletion of the row, as spec.md §4.4 requires.
func (ms *MemStore) Load(ctx context.Context, key Key, expectedMajor int) (types.Value, bool, error) {
	shard := ms.shardFor(key)
	shard.mu.Lock()
	prop, ok := shard.props[key]
	shard.mu.Unlock()

	if !ok {
		return nil, false, nil
	}
	if prop.Major != expectedMajor {
		return nil, false, ms.Delete(ctx, key)
	}
	return prop.Value, true, nil
}

// Store upserts the property by key.
func (ms *MemStore) Store(_ context.Context, prop StoredProperty) error {
	shard := ms.shardFor(prop.Key)
	shard.mu.Lock()
	shard.props[prop.Key] = prop
	shard.mu.Unlock()
	return nil
}

// Unset marks the value as unset. MemStore has no durable-until-acked
// distinction between device- and server-owned properties (see spec.md §9's
// acknowledgement-synchronous delete note), so Unset simply deletes the row.
func (ms *MemStore) Unset(ctx context.Context, key Key) error {
	return ms.Delete(ctx, key)
}

// Delete hard-removes the row.
func (ms *MemStore) Delete(_ context.Context, key Key) error {
	shard := ms.shardFor(key)
	shard.mu.Lock()
	delete(shard.props, key)
	shard.mu.Unlock()
	return nil
}

// DeviceProps enumerates every stored device-owned property.
func (ms *MemStore) DeviceProps(ctx context.Context) ([]StoredProperty, error) {
	return ms.propsByOwnership(ctx, true)
}

// ServerProps enumerates every stored server-owned property.
func (ms *MemStore) ServerProps(ctx context.Context) ([]StoredProperty, error) {
	return ms.propsByOwnership(ctx, false)
}

func (ms *MemStore) propsByOwnership(_ context.Context, device bool) ([]StoredProperty, error) {
	var out []StoredProperty
	for _, shard := range ms.shards {
		shard.mu.Lock()
		for _, prop := range shard.props {
			if prop.Ownership.IsDevice() == device {
				out = append(out, prop)
			}
		}
		shard.mu.Unlock()
	}
	return out, nil
}
