package transport

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/senshub-protocol/senshub-go/pkg/trace"
)

// TCPConfig configures the framed TCP transport.
type TCPConfig struct {
	// Address is the hub's host:port.
	Address string

	// MaxMessageSize is the maximum frame size (default: 64KB).
	MaxMessageSize uint32

	// Backoff tunes the redial schedule during the service wait.
	// Zero values use the package defaults.
	Backoff BackoffConfig

	// Trace receives protocol capture events. Nil disables capture.
	Trace trace.Logger
}

// TCPTransport opens framed TCP connections to a hub. Open waits for the
// hub service to come up, redialing with exponential backoff until the
// context expires.
type TCPTransport struct {
	config TCPConfig
}

// NewTCP creates a TCP transport for the given hub address.
func NewTCP(config TCPConfig) (*TCPTransport, error) {
	if config.Address == "" {
		return nil, fmt.Errorf("address is required")
	}
	if config.MaxMessageSize == 0 {
		config.MaxMessageSize = DefaultMaxMessageSize
	}
	return &TCPTransport{config: config}, nil
}

// Open dials the hub, retrying until it answers or ctx expires.
// A hub that is down at first dial is not an error: the service wait
// covers hubs that start after their clients.
func (t *TCPTransport) Open(ctx context.Context, onReport IndicationHandler) (Handle, error) {
	backoff := NewBackoffWithConfig(t.config.Backoff)
	dialer := &net.Dialer{}

	var lastErr error
	for {
		conn, err := dialer.DialContext(ctx, "tcp", t.config.Address)
		if err == nil {
			return newConnHandle(conn, handleOptions{
				maxMessageSize: t.config.MaxMessageSize,
				handler:        onReport,
				tracer:         t.config.Trace,
			}), nil
		}
		lastErr = err

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %v", ErrServiceUnavailable, lastErr)
		case <-time.After(backoff.Next()):
		}
	}
}

// Close releases transport-wide resources. TCP handles own their
// connections, so there is nothing to release here.
func (t *TCPTransport) Close() error {
	return nil
}
