package publish

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/astarte-platform/astarte-device-sdk-go/pkg/astarte/endpoint"
	"github.com/astarte-platform/astarte-device-sdk-go/pkg/astarte/interfaces"
	"github.com/astarte-platform/astarte-device-sdk-go/pkg/astarte/properties"
	"github.com/astarte-platform/astarte-device-sdk-go/pkg/astarte/types"
	"github.com/astarte-platform/astarte-device-sdk-go/pkg/astarte/validate"
	"github.com/astarte-platform/astarte-device-sdk-go/pkg/transport"
)

type fakeConn struct{ status transport.Status }

func (f *fakeConn) Status() transport.Status { return f.status }

type fakeSender struct {
	mu    sync.Mutex
	sent  []string
	topic []string
}

func (f *fakeSender) Publish(ctx context.Context, topic string, payload []byte, qos int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, string(payload))
	f.topic = append(f.topic, topic)
	return nil
}

func (f *fakeSender) Subscribe(ctx context.Context, topics []string) error   { return nil }
func (f *fakeSender) Unsubscribe(ctx context.Context, topic string) error   { return nil }

func (f *fakeSender) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

func individualMapping(endpointPath string, kind types.Kind, reliability interfaces.Reliability, retention interfaces.Retention) (*interfaces.Interface, interfaces.Mapping) {
	ep, err := endpoint.Parse(endpointPath)
	if err != nil {
		panic(err)
	}
	mapping := interfaces.Mapping{
		Endpoint:    ep,
		Type:        kind,
		Reliability: reliability,
		Retention:   retention,
	}
	iface := &interfaces.Interface{
		Name:         "org.ex.Test",
		VersionMajor: 1,
		VersionMinor: 0,
		Type:         interfaces.TypeDatastream,
		Ownership:    interfaces.OwnershipDevice,
		Mappings:     []interfaces.Mapping{mapping},
	}
	return iface, mapping
}

func TestPublishIndividualConnectedSendsImmediately(t *testing.T) {
	iface, mapping := individualMapping("/v", types.KindInteger, interfaces.ReliabilityUnreliable, interfaces.DiscardRetention{})
	sender := &fakeSender{}
	conn := &fakeConn{status: transport.Connected}
	store := properties.NewMemStore()
	p := New("realm", "device1", sender, conn, store, nil, 0)

	err := p.PublishIndividual(context.Background(), validate.ValidatedIndividual{
		Interface: iface, Mapping: mapping, Path: "/v", Value: types.Integer(42),
	})
	require.NoError(t, err)

	require.Eventually(t, func() bool { return sender.count() == 1 }, time.Second, 5*time.Millisecond)
}

func TestPublishDiscardWhileDisconnectedDropsSilently(t *testing.T) {
	iface, mapping := individualMapping("/v", types.KindInteger, interfaces.ReliabilityUnreliable, interfaces.DiscardRetention{})
	sender := &fakeSender{}
	conn := &fakeConn{status: transport.Disconnected}
	store := properties.NewMemStore()
	p := New("realm", "device1", sender, conn, store, nil, 0)

	err := p.PublishIndividual(context.Background(), validate.ValidatedIndividual{
		Interface: iface, Mapping: mapping, Path: "/v", Value: types.Integer(42),
	})
	require.NoError(t, err)
	assert.Equal(t, 0, sender.count())
}

func TestPublishVolatileBuffersThenDrains(t *testing.T) {
	iface, mapping := individualMapping("/v", types.KindInteger, interfaces.ReliabilityUnreliable, interfaces.VolatileRetention{})
	sender := &fakeSender{}
	conn := &fakeConn{status: transport.Disconnected}
	store := properties.NewMemStore()
	p := New("realm", "device1", sender, conn, store, nil, 0)

	err := p.PublishIndividual(context.Background(), validate.ValidatedIndividual{
		Interface: iface, Mapping: mapping, Path: "/v", Value: types.Integer(42),
	})
	require.NoError(t, err)
	assert.Equal(t, 0, sender.count())

	conn.status = transport.Connected
	require.NoError(t, p.Drain(context.Background()))
	assert.Equal(t, 1, sender.count())
}

func TestPublishVolatileDropsOnceByteCapExceeded(t *testing.T) {
	iface, mapping := individualMapping("/v", types.KindString, interfaces.ReliabilityUnreliable, interfaces.VolatileRetention{})
	sender := &fakeSender{}
	conn := &fakeConn{status: transport.Disconnected}
	store := properties.NewMemStore()
	p := New("realm", "device1", sender, conn, store, nil, 16)

	send := func(s string) error {
		return p.PublishIndividual(context.Background(), validate.ValidatedIndividual{
			Interface: iface, Mapping: mapping, Path: "/v", Value: types.String(s),
		})
	}
	require.NoError(t, send("aaaaaaaa")) // payload {"v":"aaaaaaaa"} is 16 bytes, exactly at the cap
	require.NoError(t, send("b"))        // payload {"v":"b"} would exceed the cap, dropped

	conn.status = transport.Connected
	require.NoError(t, p.Drain(context.Background()))
	assert.Equal(t, 1, sender.count())
}

func TestPublishPropertyDedupSkipsEqualValue(t *testing.T) {
	iface, mapping := individualMapping("/a", types.KindInteger, interfaces.ReliabilityUnreliable, interfaces.DiscardRetention{})
	iface.Type = interfaces.TypeProperties
	sender := &fakeSender{}
	conn := &fakeConn{status: transport.Connected}
	store := properties.NewMemStore()
	p := New("realm", "device1", sender, conn, store, nil, 0)

	v := validate.ValidatedIndividual{Interface: iface, Mapping: mapping, Path: "/a", Value: types.Integer(5)}
	require.NoError(t, p.PublishProperty(context.Background(), v))
	require.NoError(t, p.PublishProperty(context.Background(), v))

	require.Eventually(t, func() bool { return sender.count() == 1 }, time.Second, 5*time.Millisecond)

	v2 := validate.ValidatedIndividual{Interface: iface, Mapping: mapping, Path: "/a", Value: types.Integer(7)}
	require.NoError(t, p.PublishProperty(context.Background(), v2))
	require.Eventually(t, func() bool { return sender.count() == 2 }, time.Second, 5*time.Millisecond)

	stored, ok, err := store.Load(context.Background(), properties.Key{Interface: iface.Name, Path: "/a"}, 1)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, types.Integer(7), stored)
}

func TestUnsetDeletesStoredRow(t *testing.T) {
	iface, mapping := individualMapping("/a", types.KindInteger, interfaces.ReliabilityUnreliable, interfaces.DiscardRetention{})
	iface.Type = interfaces.TypeProperties
	sender := &fakeSender{}
	conn := &fakeConn{status: transport.Connected}
	store := properties.NewMemStore()
	p := New("realm", "device1", sender, conn, store, nil, 0)

	key := properties.Key{Interface: iface.Name, Path: "/a"}
	require.NoError(t, store.Store(context.Background(), properties.StoredProperty{
		Key: key, Value: types.Integer(1), Major: 1, Ownership: interfaces.OwnershipDevice,
	}))

	err := p.Unset(context.Background(), validate.ValidatedUnset{Interface: iface, Mapping: mapping, Path: "/a"})
	require.NoError(t, err)

	_, ok, err := store.Load(context.Background(), key, 1)
	require.NoError(t, err)
	assert.False(t, ok)
}
