// Package transport defines the contract between the SDK and a concrete
// MQTT client: Connection tracks broker connectivity, Sender carries
// publish/subscribe traffic. No concrete implementation ships here — wiring
// a real broker (TLS, credentials, reconnect handshake) is out of scope, the
// same boundary the teacher draws around pkg/newtron/device/sonic's Redis
// clients vs. the SSH tunnel that carries them.
package transport

import "context"

// Status is the lifecycle of a broker connection.
type Status int32

const (
	Disconnected Status = iota
	Connecting
	Connected
)

func (s Status) String() string {
	switch s {
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	default:
		return "disconnected"
	}
}

// Connection reports broker connectivity. Status transitions are observed by
// the publication pipeline and the introspection synchronizer.
type Connection interface {
	Status() Status
}

// Sender carries outbound publishes and inbound subscription management.
// Publish with qos > 0 (Guaranteed/Unique reliability) blocks until the
// broker acknowledges or ctx is cancelled.
type Sender interface {
	Publish(ctx context.Context, topic string, payload []byte, qos int) error
	Subscribe(ctx context.Context, topics []string) error
	Unsubscribe(ctx context.Context, topic string) error
}

// Transport is the full contract a concrete MQTT client satisfies.
type Transport interface {
	Connection
	Sender
}
