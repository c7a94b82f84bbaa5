// Package device provides Device, the top-level orchestrator wiring the
// registry, property store, validator, publication pipeline and
// introspection synchronizer behind one ergonomic API — generalized from the
// teacher's Device (pkg/newtron/device/device.go): the same
// mutex-guarded-state-machine Connect/Disconnect/RequireConnected shape,
// here wrapping an MQTT-style transport instead of a Redis-backed SONiC
// switch session.
package device

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/cenkalti/backoff/v4"

	"github.com/astarte-platform/astarte-device-sdk-go/internal/log"
	"github.com/astarte-platform/astarte-device-sdk-go/pkg/astarte/astarteerrors"
	"github.com/astarte-platform/astarte-device-sdk-go/pkg/astarte/interfaces"
	"github.com/astarte-platform/astarte-device-sdk-go/pkg/astarte/introspection"
	"github.com/astarte-platform/astarte-device-sdk-go/pkg/astarte/properties"
	"github.com/astarte-platform/astarte-device-sdk-go/pkg/astarte/publish"
	"github.com/astarte-platform/astarte-device-sdk-go/pkg/astarte/registry"
	"github.com/astarte-platform/astarte-device-sdk-go/pkg/astarte/types"
	"github.com/astarte-platform/astarte-device-sdk-go/pkg/astarte/validate"
	"github.com/astarte-platform/astarte-device-sdk-go/pkg/config"
	"github.com/astarte-platform/astarte-device-sdk-go/pkg/transport"
)

// ConnStatus mirrors transport.Status with the Connecting state the
// orchestrator itself owns while a reconnect handshake is in flight.
type ConnStatus int32

const (
	Disconnected ConnStatus = iota
	Connecting
	Connected
)

func (s ConnStatus) String() string {
	switch s {
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	default:
		return "disconnected"
	}
}

// connAdapter lets publish.Pipeline and introspection.Synchronizer observe
// the orchestrator's own ConnStatus through the transport.Connection
// contract, so both subsystems re-check the single source of truth rather
// than caching their own copy.
type connAdapter struct {
	status *atomic.Int32
}

func (c connAdapter) Status() transport.Status {
	return transport.Status(c.status.Load())
}

// Device is the top-level handle an application holds: it owns the registry,
// the property store, the validator's dependencies, the publication
// pipeline and the introspection synchronizer, and exposes the ergonomic
// interface-management API.
type Device struct {
	Realm    string
	DeviceID string

	cfg       config.SDKConfig
	sender    transport.Sender
	transport transport.Connection

	reg   *registry.Registry
	store properties.PropertyStore
	pipe  *publish.Pipeline
	sync  *introspection.Synchronizer

	status atomic.Int32
	mu     sync.Mutex

	backoff backoff.BackOff
}

// New builds a Device. sender/transportConn are the caller's concrete
// transport (a real MQTT client, or transport.NewLoggingTransport() for a
// broker-less demo); store defaults to properties.NewMemStore() when nil.
func New(realm, deviceID string, sender transport.Sender, transportConn transport.Connection, store properties.PropertyStore, cfg config.SDKConfig) *Device {
	if store == nil {
		store = properties.NewMemStore()
	}

	reg := registry.New()
	sync := introspection.New(realm, deviceID, sender, store)

	d := &Device{
		Realm:     realm,
		DeviceID:  deviceID,
		cfg:       cfg,
		sender:    sender,
		transport: transportConn,
		reg:       reg,
		store:     store,
		sync:      sync,
	}
	d.status.Store(int32(Disconnected))
	d.pipe = publish.New(realm, deviceID, sender, connAdapter{status: &d.status}, store, nil, cfg.VolatileBufferBytes)

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = cfg.ReconnectBackoff
	d.backoff = b

	return d
}

// Status returns the current connection state, re-reading after any lock the
// caller already holds, per spec.md §5's "monotonic transitions, re-read
// after lock acquisition" rule.
func (d *Device) Status() ConnStatus {
	return ConnStatus(d.status.Load())
}

// Connect transitions Disconnected -> Connecting -> Connected, running the
// introspection synchronizer before draining anything queued while
// disconnected, exactly as spec.md §4.6's "on Connected, synchronizer runs
// before queued publications drain" mandates.
func (d *Device) Connect(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.Status() == Connected {
		return nil
	}
	d.status.Store(int32(Connecting))
	d.backoff.Reset()

	operation := func() error {
		if conn, ok := d.transport.(interface{ SetStatus(transport.Status) }); ok {
			conn.SetStatus(transport.Connected)
		}
		if d.transport.Status() != transport.Connected {
			return astarteerrors.Newf(astarteerrors.KindTransport, "transport did not reach Connected")
		}
		return nil
	}

	if err := backoff.Retry(operation, withContext(d.backoff, ctx)); err != nil {
		d.status.Store(int32(Disconnected))
		return astarteerrors.Wrap(astarteerrors.KindTransport, err)
	}

	d.status.Store(int32(Connected))
	log.WithFields(map[string]interface{}{"device_id": d.DeviceID}).Info("connected")

	if err := d.sync.OnConnect(ctx, d.reg); err != nil {
		return err
	}
	return d.pipe.Drain(ctx)
}

// Disconnect transitions back to Disconnected.
func (d *Device) Disconnect() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.Status() == Disconnected {
		return nil
	}
	if conn, ok := d.transport.(interface{ SetStatus(transport.Status) }); ok {
		conn.SetStatus(transport.Disconnected)
	}
	d.status.Store(int32(Disconnected))
	log.WithFields(map[string]interface{}{"device_id": d.DeviceID}).Info("disconnected")
	return nil
}

// IsConnected reports whether the device is currently Connected.
func (d *Device) IsConnected() bool {
	return d.Status() == Connected
}

// RequireConnected returns an error unless the device is Connected.
func (d *Device) RequireConnected() error {
	if !d.IsConnected() {
		return astarteerrors.Newf(astarteerrors.KindTransport, "device %q is not connected", d.DeviceID)
	}
	return nil
}

// AddInterface loads a single interface, applying the synchronizer if the
// registry actually changed.
func (d *Device) AddInterface(data []byte) (registry.AddResult, error) {
	iface, err := interfaces.ParseInterface(data, interfaces.ParseOptions{Strict: d.cfg.StrictSchema, MaxMappings: d.cfg.MaxMappings})
	if err != nil {
		return registry.Unchanged, err
	}
	result, err := d.reg.Add(iface)
	if err != nil {
		return result, err
	}
	if result != registry.Unchanged {
		if err := d.sync.OnMutation(context.Background(), d.reg); err != nil {
			return result, err
		}
	}
	return result, nil
}

// AddInterfaceFromJSON is an alias for AddInterface kept for parity with the
// original SDK's naming, where AddInterfaceFromFile reads a path first.
func (d *Device) AddInterfaceFromJSON(data []byte) (registry.AddResult, error) {
	return d.AddInterface(data)
}

// AddInterfaceFromFile loads and adds a single interface from a JSON file on
// disk, wrapping I/O errors with the file path per astarteerrors' Io
// enrichment helper.
func (d *Device) AddInterfaceFromFile(path string, readFile func(string) ([]byte, error)) (registry.AddResult, error) {
	data, err := readFile(path)
	if err != nil {
		return registry.Unchanged, astarteerrors.Wrap(astarteerrors.KindSchema, err).WithPath(path)
	}
	return d.AddInterface(data)
}

// ExtendInterfaces batch-adds every interface, returning the names that were
// actually added or replaced, mirroring the original SDK's extend_interfaces.
func (d *Device) ExtendInterfaces(datas [][]byte) ([]string, error) {
	parsed := make([]*interfaces.Interface, 0, len(datas))
	for _, data := range datas {
		iface, err := interfaces.ParseInterface(data, interfaces.ParseOptions{Strict: d.cfg.StrictSchema, MaxMappings: d.cfg.MaxMappings})
		if err != nil {
			return nil, err
		}
		parsed = append(parsed, iface)
	}
	changed, err := d.reg.ExtendInterfaces(parsed)
	if err != nil {
		return changed, err
	}
	if len(changed) > 0 {
		if err := d.sync.OnMutation(context.Background(), d.reg); err != nil {
			return changed, err
		}
	}
	return changed, nil
}

// RemoveInterface removes a single interface, reporting whether it was
// present, and runs the synchronizer if it was.
func (d *Device) RemoveInterface(name string) (bool, error) {
	removed := d.reg.Remove(name)
	if removed {
		if err := d.sync.OnMutation(context.Background(), d.reg); err != nil {
			return removed, err
		}
	}
	return removed, nil
}

// RemoveInterfaces removes several interfaces in one synchronizer pass,
// returning the names actually present and removed.
func (d *Device) RemoveInterfaces(names []string) ([]string, error) {
	var removed []string
	for _, name := range names {
		if d.reg.Remove(name) {
			removed = append(removed, name)
		}
	}
	if len(removed) > 0 {
		if err := d.sync.OnMutation(context.Background(), d.reg); err != nil {
			return removed, err
		}
	}
	return removed, nil
}

// GetInterface returns the loaded interface by name, if present.
func (d *Device) GetInterface(name string) (*interfaces.Interface, bool) {
	return d.reg.Get(name)
}

// SendIndividual validates and publishes a single-mapping datastream value,
// or a Properties value (via the dedup path) depending on the interface
// type.
func (d *Device) SendIndividual(ctx context.Context, interfaceName, path string, value types.Value) error {
	result, err := validate.Validate(d.reg, validate.OperationSend, interfaceName, path, value)
	if err != nil {
		return err
	}
	switch v := result.(type) {
	case validate.ValidatedIndividual:
		if v.Interface.Type == interfaces.TypeProperties {
			return d.pipe.PublishProperty(ctx, v)
		}
		return d.pipe.PublishIndividual(ctx, v)
	default:
		return astarteerrors.Newf(astarteerrors.KindValidation, "unexpected validation result %T for %s%s", result, interfaceName, path).
			WithInterface(interfaceName).WithPath(path)
	}
}

// SendObject validates and publishes an Object-aggregation datastream frame.
func (d *Device) SendObject(ctx context.Context, interfaceName, prefix string, payload map[string]types.Value) error {
	result, err := validate.ValidateObject(d.reg, validate.OperationSend, interfaceName, prefix, payload)
	if err != nil {
		return err
	}
	obj, ok := result.(validate.ValidatedObject)
	if !ok {
		return astarteerrors.Newf(astarteerrors.KindValidation, "unexpected validation result %T for %s", result, interfaceName).WithInterface(interfaceName)
	}
	return d.pipe.PublishObject(ctx, obj)
}

// Unset publishes a Properties unset.
func (d *Device) Unset(ctx context.Context, interfaceName, path string) error {
	result, err := validate.Validate(d.reg, validate.OperationSend, interfaceName, path, validate.Unset)
	if err != nil {
		return err
	}
	unset, ok := result.(validate.ValidatedUnset)
	if !ok {
		return astarteerrors.Newf(astarteerrors.KindValidation, "unexpected validation result %T for %s%s", result, interfaceName, path).
			WithInterface(interfaceName).WithPath(path)
	}
	return d.pipe.Unset(ctx, unset)
}

// Introspection returns the canonical introspection string currently loaded.
func (d *Device) Introspection() string {
	return d.reg.Introspection()
}

// InterfaceNames returns every loaded interface's name, for CLI/tooling
// listing purposes; order matches the registry's canonical sort.
func (d *Device) InterfaceNames() []string {
	return d.reg.Names()
}

func withContext(b backoff.BackOff, ctx context.Context) backoff.BackOff {
	return backoff.WithContext(b, ctx)
}
