package transport

import (
	"context"
	"errors"
	"fmt"

	"github.com/senshub-protocol/senshub-go/pkg/wire"
)

// Transport errors.
var (
	// ErrServiceUnavailable indicates the hub service could not be reached
	// within the open deadline.
	ErrServiceUnavailable = errors.New("hub service unavailable")

	// ErrHandleClosed indicates the handle was closed, locally or by the hub.
	ErrHandleClosed = errors.New("handle closed")

	// ErrAckTimeout indicates the hub did not ack a command in time.
	ErrAckTimeout = errors.New("command ack timeout")
)

// AckError reports a non-success ack status from the hub.
type AckError struct {
	Status wire.Status
}

// Error returns the error message.
func (e *AckError) Error() string {
	return fmt.Sprintf("command rejected by hub: %s", e.Status)
}

// IndicationHandler receives the body of each unsolicited report frame,
// in arrival order, on the handle's reader goroutine. The body is an
// encoded wire.Report; decoding it is the receiver's concern. The handler
// must not block for long: it stalls ack delivery for the same handle.
type IndicationHandler func(h Handle, body []byte)

// Handle is one logical client connection to the hub.
// Implemented by connHandle.
type Handle interface {
	// Send transmits a command addressed to suid and blocks until the hub
	// acks it or ctx expires. A non-success ack surfaces as *AckError.
	Send(ctx context.Context, suid wire.SUID, kind wire.Kind, payload []byte) error

	// Close releases the connection. Safe to call more than once.
	Close() error
}

// Transport opens logical connections to a hub. Opening twice yields two
// independent handles with their own indication streams.
type Transport interface {
	// Open establishes a connection, blocking until the hub service is
	// reachable or ctx expires. onReport may be nil to drop indications.
	Open(ctx context.Context, onReport IndicationHandler) (Handle, error)

	// Close releases transport-wide resources. Open handles stay usable
	// only where the implementation says so; close handles first.
	Close() error
}

// Compile-time interface satisfaction checks.
var (
	_ Handle    = (*connHandle)(nil)
	_ Transport = (*TCPTransport)(nil)
	_ Transport = (*PipeTransport)(nil)
)
