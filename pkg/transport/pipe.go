package transport

import (
	"context"
	"net"

	"github.com/senshub-protocol/senshub-go/pkg/trace"
)

// PipeTransport serves in-process connections: every Open creates a
// net.Pipe pair, hands the server end to the acceptor, and wraps the
// client end in a Handle. Used by tests and by the simulator's
// self-checks; no network involved.
type PipeTransport struct {
	accept         func(conn net.Conn)
	maxMessageSize uint32
	tracer         trace.Logger
}

// PipeOption adjusts a PipeTransport.
type PipeOption func(*PipeTransport)

// WithPipeMaxMessageSize sets the maximum frame size for piped handles.
func WithPipeMaxMessageSize(size uint32) PipeOption {
	return func(p *PipeTransport) { p.maxMessageSize = size }
}

// WithPipeTrace enables protocol capture on piped handles.
func WithPipeTrace(tracer trace.Logger) PipeOption {
	return func(p *PipeTransport) { p.tracer = tracer }
}

// NewPipe creates a pipe transport. accept receives the server end of
// every opened connection, typically hubsim's ServeConn, and is invoked
// on its own goroutine.
func NewPipe(accept func(conn net.Conn), opts ...PipeOption) *PipeTransport {
	p := &PipeTransport{
		accept:         accept,
		maxMessageSize: DefaultMaxMessageSize,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Open creates a new in-process connection pair.
func (p *PipeTransport) Open(ctx context.Context, onReport IndicationHandler) (Handle, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	client, server := net.Pipe()
	go p.accept(server)

	return newConnHandle(client, handleOptions{
		maxMessageSize: p.maxMessageSize,
		handler:        onReport,
		tracer:         p.tracer,
	}), nil
}

// Close releases transport-wide resources. Piped handles own their
// connection pairs, so there is nothing to release here.
func (p *PipeTransport) Close() error {
	return nil
}
