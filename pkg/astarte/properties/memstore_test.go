package properties

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/astarte-platform/astarte-device-sdk-go/pkg/astarte/interfaces"
	"github.com/astarte-platform/astarte-device-sdk-go/pkg/astarte/types"
)

func TestStoreThenLoadMatchingMajor(t *testing.T) {
	ctx := context.Background()
	store := NewMemStore()
	key := Key{Interface: "org.ex.P", Path: "/a"}

	require.NoError(t, store.Store(ctx, StoredProperty{
		Key: key, Value: types.Integer(5), Major: 1, Ownership: interfaces.OwnershipDevice,
	}))

	value, ok, err := store.Load(ctx, key, 1)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, types.Integer(5), value)
}

func TestLoadStaleMajorDeletesRow(t *testing.T) {
	ctx := context.Background()
	store := NewMemStore()
	key := Key{Interface: "org.ex.P", Path: "/a"}

	require.NoError(t, store.Store(ctx, StoredProperty{
		Key: key, Value: types.Integer(5), Major: 1, Ownership: interfaces.OwnershipDevice,
	}))

	_, ok, err := store.Load(ctx, key, 2)
	require.NoError(t, err)
	assert.False(t, ok)

	_, ok, err = store.Load(ctx, key, 1)
	require.NoError(t, err)
	assert.False(t, ok, "stale row must have been deleted, not merely hidden")
}

func TestUnsetThenLoadReturnsAbsent(t *testing.T) {
	ctx := context.Background()
	store := NewMemStore()
	key := Key{Interface: "org.ex.P", Path: "/a"}

	require.NoError(t, store.Store(ctx, StoredProperty{
		Key: key, Value: types.Integer(5), Major: 1, Ownership: interfaces.OwnershipDevice,
	}))
	require.NoError(t, store.Unset(ctx, key))

	_, ok, err := store.Load(ctx, key, 1)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestDeviceAndServerPropsPartitioned(t *testing.T) {
	ctx := context.Background()
	store := NewMemStore()

	require.NoError(t, store.Store(ctx, StoredProperty{
		Key: Key{Interface: "org.ex.Dev", Path: "/a"}, Value: types.Integer(1),
		Major: 1, Ownership: interfaces.OwnershipDevice,
	}))
	require.NoError(t, store.Store(ctx, StoredProperty{
		Key: Key{Interface: "org.ex.Srv", Path: "/b"}, Value: types.Integer(2),
		Major: 1, Ownership: interfaces.OwnershipServer,
	}))

	devProps, err := store.DeviceProps(ctx)
	require.NoError(t, err)
	require.Len(t, devProps, 1)
	assert.Equal(t, "org.ex.Dev", devProps[0].Key.Interface)

	srvProps, err := store.ServerProps(ctx)
	require.NoError(t, err)
	require.Len(t, srvProps, 1)
	assert.Equal(t, "org.ex.Srv", srvProps[0].Key.Interface)
}

func TestLoadCheckedDeletesOnTypeMismatch(t *testing.T) {
	ctx := context.Background()
	store := NewMemStore()
	key := Key{Interface: "org.ex.P", Path: "/a"}

	require.NoError(t, store.Store(ctx, StoredProperty{
		Key: key, Value: types.String("stale"), Major: 1, Ownership: interfaces.OwnershipDevice,
	}))

	mapping := interfaces.Mapping{Type: types.KindInteger}
	_, ok, err := LoadChecked(ctx, store, key, mapping, 1)
	require.NoError(t, err)
	assert.False(t, ok)

	_, ok, err = store.Load(ctx, key, 1)
	require.NoError(t, err)
	assert.False(t, ok, "type-mismatched row must be deleted by LoadChecked")
}
