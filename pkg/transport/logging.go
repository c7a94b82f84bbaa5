package transport

import (
	"context"
	"sync/atomic"

	"github.com/astarte-platform/astarte-device-sdk-go/internal/log"
)

// LoggingTransport is a Transport fake that logs every operation instead of
// touching a broker, wired into cmd/astarte-device so the demo CLI is
// runnable without one.
type LoggingTransport struct {
	status atomic.Int32
}

// NewLoggingTransport returns a LoggingTransport starting Disconnected.
func NewLoggingTransport() *LoggingTransport {
	return &LoggingTransport{}
}

// Status returns the current simulated connection state.
func (t *LoggingTransport) Status() Status {
	return Status(t.status.Load())
}

// SetStatus forces the simulated connection state, used by the demo CLI to
// drive Connect/Disconnect without a real broker handshake.
func (t *LoggingTransport) SetStatus(s Status) {
	t.status.Store(int32(s))
}

// Publish logs the publish instead of sending it.
func (t *LoggingTransport) Publish(ctx context.Context, topic string, payload []byte, qos int) error {
	log.WithFields(map[string]interface{}{
		"topic": topic,
		"qos":   qos,
		"bytes": len(payload),
	}).Info("publish")
	return nil
}

// Subscribe logs the subscription instead of issuing it.
func (t *LoggingTransport) Subscribe(ctx context.Context, topics []string) error {
	log.WithFields(map[string]interface{}{"topics": topics}).Info("subscribe")
	return nil
}

// Unsubscribe logs the unsubscription instead of issuing it.
func (t *LoggingTransport) Unsubscribe(ctx context.Context, topic string) error {
	log.WithFields(map[string]interface{}{"topic": topic}).Info("unsubscribe")
	return nil
}
