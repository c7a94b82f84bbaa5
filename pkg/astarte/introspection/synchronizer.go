// Package introspection implements the introspection synchronizer (C8):
// reacting to registry mutations and transport reconnects by diffing the
// interface set, rolling server-owned subscriptions forward, and announcing
// the canonical introspection string, generalized from the teacher's
// config-apply diffing in pkg/newtron/device/device.go (ApplyChanges
// computing what changed before touching the transport).
package introspection

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/astarte-platform/astarte-device-sdk-go/internal/log"
	"github.com/astarte-platform/astarte-device-sdk-go/pkg/astarte/astarteerrors"
	"github.com/astarte-platform/astarte-device-sdk-go/pkg/astarte/interfaces"
	"github.com/astarte-platform/astarte-device-sdk-go/pkg/astarte/properties"
	"github.com/astarte-platform/astarte-device-sdk-go/pkg/astarte/registry"
	"github.com/astarte-platform/astarte-device-sdk-go/pkg/transport"
)

// Synchronizer reacts to registry mutations and transport Connected
// transitions, serializing every diff→publish cycle behind a single lock so
// a concurrent add and remove are never interleaved on the wire.
type Synchronizer struct {
	realm    string
	deviceID string
	sender   transport.Sender
	store    properties.PropertyStore

	mu       sync.Mutex
	lastSent string
	known    map[string]interfaces.Ownership
}

// New builds a Synchronizer for one device's session.
func New(realm, deviceID string, sender transport.Sender, store properties.PropertyStore) *Synchronizer {
	return &Synchronizer{
		realm:    realm,
		deviceID: deviceID,
		sender:   sender,
		store:    store,
		known:    make(map[string]interfaces.Ownership),
	}
}

func (s *Synchronizer) introspectionTopic() string {
	return fmt.Sprintf("%s/%s", s.realm, s.deviceID)
}

func (s *Synchronizer) serverTopic(name string) string {
	return fmt.Sprintf("%s/%s/%s/#", s.realm, s.deviceID, name)
}

// OnMutation runs after any registry Add/Remove.
func (s *Synchronizer) OnMutation(ctx context.Context, reg *registry.Registry) error {
	return s.sync(ctx, reg)
}

// OnConnect runs once the transport reaches Connected, before queued
// publications are drained.
func (s *Synchronizer) OnConnect(ctx context.Context, reg *registry.Registry) error {
	return s.sync(ctx, reg)
}

// sync implements steps 1-4 of spec.md §4.7.
func (s *Synchronizer) sync(ctx context.Context, reg *registry.Registry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current := make(map[string]interfaces.Ownership)
	for _, name := range reg.Names() {
		iface, ok := reg.Get(name)
		if !ok {
			continue
		}
		current[name] = iface.Ownership
	}

	added, removed := diff(s.known, current)

	if len(removed) > 0 {
		if err := s.sender.Publish(ctx, s.introspectionTopic(), nil, 0); err != nil {
			return astarteerrors.Wrap(astarteerrors.KindTransport, err)
		}
		for _, name := range removed {
			if s.known[name] != interfaces.OwnershipServer {
				continue
			}
			if err := s.sender.Unsubscribe(ctx, s.serverTopic(name)); err != nil {
				return astarteerrors.Wrap(astarteerrors.KindTransport, err).WithInterface(name)
			}
			log.WithInterface(name).Info("unsubscribed removed server-owned interface")
		}
	}

	var subscribeTopics []string
	for _, name := range added {
		if current[name] != interfaces.OwnershipServer {
			continue
		}
		subscribeTopics = append(subscribeTopics, s.serverTopic(name))
	}
	if len(subscribeTopics) > 0 {
		if err := s.sender.Subscribe(ctx, subscribeTopics); err != nil {
			return astarteerrors.Wrap(astarteerrors.KindTransport, err)
		}
		log.WithFields(map[string]interface{}{"topics": subscribeTopics}).Info("subscribed added server-owned interfaces")
	}

	canonical := reg.Introspection()
	if err := s.sender.Publish(ctx, s.introspectionTopic(), []byte(canonical), 0); err != nil {
		return astarteerrors.Wrap(astarteerrors.KindTransport, err)
	}
	s.lastSent = canonical
	s.known = current

	return s.replayDeviceProperties(ctx, reg)
}

// replayDeviceProperties emits every stored device-owned value so the
// server can reconcile state after a (re)connect.
func (s *Synchronizer) replayDeviceProperties(ctx context.Context, reg *registry.Registry) error {
	props, err := s.store.DeviceProps(ctx)
	if err != nil {
		return astarteerrors.Wrap(astarteerrors.KindStore, err)
	}
	for _, prop := range props {
		topic := fmt.Sprintf("%s/%s/%s%s", s.realm, s.deviceID, prop.Key.Interface, prop.Key.Path)
		payload, err := json.Marshal(map[string]interface{}{"v": prop.Value})
		if err != nil {
			return astarteerrors.Wrap(astarteerrors.KindTransport, err).WithInterface(prop.Key.Interface).WithPath(prop.Key.Path)
		}
		if err := s.sender.Publish(ctx, topic, payload, 0); err != nil {
			return astarteerrors.Wrap(astarteerrors.KindTransport, err).WithInterface(prop.Key.Interface).WithPath(prop.Key.Path)
		}
	}
	return nil
}

// diff returns the interface names present in next but not prev (added) and
// present in prev but not next (removed), both sorted for deterministic
// ordering on the wire.
func diff(prev, next map[string]interfaces.Ownership) (added, removed []string) {
	for name := range next {
		if _, ok := prev[name]; !ok {
			added = append(added, name)
		}
	}
	for name := range prev {
		if _, ok := next[name]; !ok {
			removed = append(removed, name)
		}
	}
	sort.Strings(added)
	sort.Strings(removed)
	return added, removed
}
