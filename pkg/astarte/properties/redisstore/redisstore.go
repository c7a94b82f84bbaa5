// Package redisstore implements a Redis-hash backed properties.PropertyStore,
// grounded on the teacher's ConfigDBClient/AppDBClient Redis idiom
// (pkg/newtron/device/sonic/configdb.go, appldb.go): one Redis hash per
// stored property, written with HSet, enumerated with the teacher's
// cursor-based SCAN helper (scanKeys) rather than the blocking KEYS command.
package redisstore

import (
	"context"
	"fmt"
	"strconv"

	"github.com/go-redis/redis/v8"

	"github.com/astarte-platform/astarte-device-sdk-go/pkg/astarte/interfaces"
	"github.com/astarte-platform/astarte-device-sdk-go/pkg/astarte/properties"
	"github.com/astarte-platform/astarte-device-sdk-go/pkg/astarte/types"
)

// Store is a Redis-hash backed properties.PropertyStore. Each stored
// property lives at key "<prefix>:<interface>:<path>" as a hash with fields
// "value", "kind", "major", "ownership".
type Store struct {
	client    *redis.Client
	keyPrefix string
}

// New wraps an existing Redis client. keyPrefix namespaces every key this
// store touches, so multiple devices or realms can share one Redis instance.
func New(client *redis.Client, keyPrefix string) *Store {
	return &Store{client: client, keyPrefix: keyPrefix}
}

func (s *Store) redisKey(key properties.Key) string {
	return fmt.Sprintf("%s:%s:%s", s.keyPrefix, key.Interface, key.Path)
}

// Load returns the stored value iff its recorded major equals expectedMajor.
func (s *Store) Load(ctx context.Context, key properties.Key, expectedMajor int) (types.Value, bool, error) {
	fields, err := s.client.HGetAll(ctx, s.redisKey(key)).Result()
	if err != nil {
		return nil, false, fmt.Errorf("redisstore: reading %s: %w", s.redisKey(key), err)
	}
	if len(fields) == 0 {
		return nil, false, nil
	}

	major, err := strconv.Atoi(fields["major"])
	if err != nil {
		return nil, false, fmt.Errorf("redisstore: corrupt major at %s: %w", s.redisKey(key), err)
	}
	if major != expectedMajor {
		return nil, false, s.Delete(ctx, key)
	}

	kind, ok := types.ParseKind(fields["kind"])
	if !ok {
		return nil, false, fmt.Errorf("redisstore: corrupt kind %q at %s", fields["kind"], s.redisKey(key))
	}
	value, err := decodeValue(kind, fields["value"])
	if err != nil {
		return nil, false, fmt.Errorf("redisstore: decoding value at %s: %w", s.redisKey(key), err)
	}
	return value, true, nil
}

// Store upserts the property as a Redis hash.
func (s *Store) Store(ctx context.Context, prop properties.StoredProperty) error {
	encoded, err := encodeValue(prop.Value)
	if err != nil {
		return fmt.Errorf("redisstore: encoding value: %w", err)
	}
	err = s.client.HSet(ctx, s.redisKey(prop.Key),
		"value", encoded,
		"kind", prop.Value.Kind().String(),
		"major", strconv.Itoa(prop.Major),
		"ownership", prop.Ownership.String(),
	).Err()
	if err != nil {
		return fmt.Errorf("redisstore: writing %s: %w", s.redisKey(prop.Key), err)
	}
	return nil
}

// Unset deletes the row; this store does not distinguish device- from
// server-owned durability (see spec.md §9's acknowledgement-synchronous
// delete note).
func (s *Store) Unset(ctx context.Context, key properties.Key) error {
	return s.Delete(ctx, key)
}

// Delete hard-removes the row.
func (s *Store) Delete(ctx context.Context, key properties.Key) error {
	if err := s.client.Del(ctx, s.redisKey(key)).Err(); err != nil {
		return fmt.Errorf("redisstore: deleting %s: %w", s.redisKey(key), err)
	}
	return nil
}

// DeviceProps enumerates every stored device-owned property.
func (s *Store) DeviceProps(ctx context.Context) ([]properties.StoredProperty, error) {
	return s.propsByOwnership(ctx, interfaces.OwnershipDevice)
}

// ServerProps enumerates every stored server-owned property.
func (s *Store) ServerProps(ctx context.Context) ([]properties.StoredProperty, error) {
	return s.propsByOwnership(ctx, interfaces.OwnershipServer)
}

func (s *Store) propsByOwnership(ctx context.Context, ownership interfaces.Ownership) ([]properties.StoredProperty, error) {
	keys, err := scanKeys(ctx, s.client, s.keyPrefix+":*", 100)
	if err != nil {
		return nil, fmt.Errorf("redisstore: scanning keys: %w", err)
	}

	pipe := s.client.Pipeline()
	cmds := make(map[string]*redis.StringStringMapCmd, len(keys))
	for _, k := range keys {
		cmds[k] = pipe.HGetAll(ctx, k)
	}
	if _, err := pipe.Exec(ctx); err != nil && err != redis.Nil {
		return nil, fmt.Errorf("redisstore: pipeline HGetAll: %w", err)
	}

	var out []properties.StoredProperty
	for k, cmd := range cmds {
		fields, err := cmd.Result()
		if err != nil || len(fields) == 0 {
			continue
		}
		own, ok := parseOwnership(fields["ownership"])
		if !ok || own != ownership {
			continue
		}
		major, err := strconv.Atoi(fields["major"])
		if err != nil {
			continue
		}
		kind, ok := types.ParseKind(fields["kind"])
		if !ok {
			continue
		}
		value, err := decodeValue(kind, fields["value"])
		if err != nil {
			continue
		}
		prop := properties.StoredProperty{
			Key:       keyFromRedisKey(k, s.keyPrefix),
			Value:     value,
			Major:     major,
			Ownership: own,
		}
		out = append(out, prop)
	}
	return out, nil
}

func parseOwnership(s string) (interfaces.Ownership, bool) {
	switch s {
	case "device":
		return interfaces.OwnershipDevice, true
	case "server":
		return interfaces.OwnershipServer, true
	default:
		return 0, false
	}
}

// keyFromRedisKey reverses redisKey: "<prefix>:<interface>:<path>". The path
// itself starts with '/' and never contains ':', so splitting on the first
// two colons after the prefix recovers the original components.
func keyFromRedisKey(redisKey, prefix string) properties.Key {
	rest := redisKey[len(prefix)+1:]
	for i := 0; i < len(rest); i++ {
		if rest[i] == ':' {
			return properties.Key{Interface: rest[:i], Path: rest[i+1:]}
		}
	}
	return properties.Key{Interface: rest}
}

// scanKeys iterates Redis keys matching pattern using cursor-based SCAN
// rather than the blocking O(N) KEYS command, exactly as the teacher's
// configdb.go does for CONFIG_DB enumeration.
func scanKeys(ctx context.Context, client *redis.Client, pattern string, countHint int64) ([]string, error) {
	var cursor uint64
	var keys []string
	for {
		batch, next, err := client.Scan(ctx, cursor, pattern, countHint).Result()
		if err != nil {
			return nil, err
		}
		keys = append(keys, batch...)
		cursor = next
		if cursor == 0 {
			break
		}
	}
	return keys, nil
}
