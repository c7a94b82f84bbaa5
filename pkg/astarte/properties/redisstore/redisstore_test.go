package redisstore

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/astarte-platform/astarte-device-sdk-go/pkg/astarte/interfaces"
	"github.com/astarte-platform/astarte-device-sdk-go/pkg/astarte/properties"
	"github.com/astarte-platform/astarte-device-sdk-go/pkg/astarte/types"
)

func newTestStore(t *testing.T) *Store {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return New(client, "astarte-test")
}

func TestStoreLoadRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	key := properties.Key{Interface: "org.ex.Prop", Path: "/a"}

	require.NoError(t, s.Store(ctx, properties.StoredProperty{
		Key:       key,
		Value:     types.Integer(42),
		Major:     1,
		Ownership: interfaces.OwnershipDevice,
	}))

	value, ok, err := s.Load(ctx, key, 1)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, types.Integer(42), value)
}

func TestStoreLoadMissing(t *testing.T) {
	s := newTestStore(t)
	_, ok, err := s.Load(context.Background(), properties.Key{Interface: "org.ex.Prop", Path: "/missing"}, 1)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStoreLoadWrongMajorDeletesAndMisses(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	key := properties.Key{Interface: "org.ex.Prop", Path: "/a"}

	require.NoError(t, s.Store(ctx, properties.StoredProperty{
		Key: key, Value: types.Integer(1), Major: 1, Ownership: interfaces.OwnershipDevice,
	}))

	_, ok, err := s.Load(ctx, key, 2)
	require.NoError(t, err)
	assert.False(t, ok)

	_, ok, err = s.Load(ctx, key, 1)
	require.NoError(t, err)
	assert.False(t, ok, "mismatched-major load should have deleted the row")
}

func TestStoreUnsetAndDelete(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	key := properties.Key{Interface: "org.ex.Prop", Path: "/a"}

	require.NoError(t, s.Store(ctx, properties.StoredProperty{
		Key: key, Value: types.String("x"), Major: 1, Ownership: interfaces.OwnershipDevice,
	}))
	require.NoError(t, s.Unset(ctx, key))

	_, ok, err := s.Load(ctx, key, 1)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStoreDeviceAndServerPropsEnumeration(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Store(ctx, properties.StoredProperty{
		Key: properties.Key{Interface: "org.ex.Prop", Path: "/device"}, Value: types.Integer(1),
		Major: 1, Ownership: interfaces.OwnershipDevice,
	}))
	require.NoError(t, s.Store(ctx, properties.StoredProperty{
		Key: properties.Key{Interface: "org.ex.Prop", Path: "/server"}, Value: types.Integer(2),
		Major: 1, Ownership: interfaces.OwnershipServer,
	}))

	deviceProps, err := s.DeviceProps(ctx)
	require.NoError(t, err)
	require.Len(t, deviceProps, 1)
	assert.Equal(t, "/device", deviceProps[0].Key.Path)

	serverProps, err := s.ServerProps(ctx)
	require.NoError(t, err)
	require.Len(t, serverProps, 1)
	assert.Equal(t, "/server", serverProps[0].Key.Path)
}

func TestStoreArrayValueRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	key := properties.Key{Interface: "org.ex.Prop", Path: "/arr"}

	require.NoError(t, s.Store(ctx, properties.StoredProperty{
		Key:       key,
		Value:     types.StringArray{"a", "b", "c"},
		Major:     3,
		Ownership: interfaces.OwnershipDevice,
	}))

	value, ok, err := s.Load(ctx, key, 3)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, types.StringArray{"a", "b", "c"}, value)
}
