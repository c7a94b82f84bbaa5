package introspection

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/astarte-platform/astarte-device-sdk-go/pkg/astarte/interfaces"
	"github.com/astarte-platform/astarte-device-sdk-go/pkg/astarte/properties"
	"github.com/astarte-platform/astarte-device-sdk-go/pkg/astarte/registry"
	"github.com/astarte-platform/astarte-device-sdk-go/pkg/astarte/types"
)

type fakeSender struct {
	published   []string
	subscribed  [][]string
	unsubscribed []string
}

func (f *fakeSender) Publish(ctx context.Context, topic string, payload []byte, qos int) error {
	f.published = append(f.published, topic+"="+string(payload))
	return nil
}

func (f *fakeSender) Subscribe(ctx context.Context, topics []string) error {
	f.subscribed = append(f.subscribed, topics)
	return nil
}

func (f *fakeSender) Unsubscribe(ctx context.Context, topic string) error {
	f.unsubscribed = append(f.unsubscribed, topic)
	return nil
}

func parseIface(t *testing.T, js string) *interfaces.Interface {
	t.Helper()
	iface, err := interfaces.ParseInterface([]byte(js), interfaces.ParseOptions{})
	require.NoError(t, err)
	return iface
}

func TestSyncSubscribesServerOwnedOnAdd(t *testing.T) {
	reg := registry.New()
	sender := &fakeSender{}
	store := properties.NewMemStore()
	sync := New("realm", "device1", sender, store)

	iface := parseIface(t, `{
		"interface_name": "org.ex.Srv",
		"version_major": 1, "version_minor": 0,
		"type": "datastream", "ownership": "server",
		"mappings": [{"endpoint": "/v", "type": "integer"}]
	}`)
	_, err := reg.Add(iface)
	require.NoError(t, err)

	require.NoError(t, sync.OnMutation(context.Background(), reg))

	require.Len(t, sender.subscribed, 1)
	assert.Equal(t, []string{"realm/device1/org.ex.Srv/#"}, sender.subscribed[0])
	assert.NotEmpty(t, sender.published)
}

func TestSyncUnsubscribesServerOwnedOnRemove(t *testing.T) {
	reg := registry.New()
	sender := &fakeSender{}
	store := properties.NewMemStore()
	sync := New("realm", "device1", sender, store)

	iface := parseIface(t, `{
		"interface_name": "org.ex.Srv",
		"version_major": 1, "version_minor": 0,
		"type": "datastream", "ownership": "server",
		"mappings": [{"endpoint": "/v", "type": "integer"}]
	}`)
	_, err := reg.Add(iface)
	require.NoError(t, err)
	require.NoError(t, sync.OnMutation(context.Background(), reg))

	reg.Remove(iface.Name)
	require.NoError(t, sync.OnMutation(context.Background(), reg))

	require.Len(t, sender.unsubscribed, 1)
	assert.Equal(t, "realm/device1/org.ex.Srv/#", sender.unsubscribed[0])
}

func TestSyncReplaysDeviceProperties(t *testing.T) {
	reg := registry.New()
	sender := &fakeSender{}
	store := properties.NewMemStore()
	sync := New("realm", "device1", sender, store)

	require.NoError(t, store.Store(context.Background(), properties.StoredProperty{
		Key:       properties.Key{Interface: "org.ex.P", Path: "/a"},
		Value:     types.Integer(5),
		Major:     1,
		Ownership: interfaces.OwnershipDevice,
	}))

	require.NoError(t, sync.OnConnect(context.Background(), reg))

	found := false
	for _, p := range sender.published {
		if p == "realm/device1/org.ex.P/a={\"v\":5}" {
			found = true
		}
	}
	assert.True(t, found, "expected replayed property publish, got %v", sender.published)
}
