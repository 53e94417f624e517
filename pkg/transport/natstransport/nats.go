package natstransport

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"

	"github.com/senshub-protocol/senshub-go/pkg/trace"
	"github.com/senshub-protocol/senshub-go/pkg/transport"
	"github.com/senshub-protocol/senshub-go/pkg/wire"
)

// DefaultSubjectPrefix namespaces the hub's NATS subjects.
const DefaultSubjectPrefix = "senshub"

// Config configures the NATS transport.
type Config struct {
	// URL is the NATS server URL (default: nats.DefaultURL).
	URL string

	// SubjectPrefix namespaces the hub subjects (default: "senshub").
	// Commands go to <prefix>.cmd.<clientID>; indications arrive on
	// <prefix>.ind.<clientID>.
	SubjectPrefix string

	// Name identifies the connection to the NATS server. Optional.
	Name string

	// Trace receives protocol capture events. Optional.
	Trace trace.Logger
}

// Transport opens hub connections over NATS. Each handle owns one NATS
// connection and a private indication subject.
type Transport struct {
	config Config
}

// New creates a NATS transport.
func New(config Config) (*Transport, error) {
	if config.URL == "" {
		config.URL = nats.DefaultURL
	}
	if config.SubjectPrefix == "" {
		config.SubjectPrefix = DefaultSubjectPrefix
	}
	return &Transport{config: config}, nil
}

// Open connects to the NATS server and subscribes to the handle's
// indication subject, blocking until the server answers or ctx expires.
func (t *Transport) Open(ctx context.Context, onReport transport.IndicationHandler) (transport.Handle, error) {
	opts := []nats.Option{
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2 * time.Second),
	}
	if t.config.Name != "" {
		opts = append(opts, nats.Name(t.config.Name))
	}
	if deadline, ok := ctx.Deadline(); ok {
		if timeout := time.Until(deadline); timeout > 0 {
			opts = append(opts, nats.Timeout(timeout))
		}
	}

	// Dial on a goroutine so ctx cancellation is honored while the
	// connect is in flight.
	type dialResult struct {
		conn *nats.Conn
		err  error
	}
	done := make(chan dialResult, 1)
	go func() {
		conn, err := nats.Connect(t.config.URL, opts...)
		done <- dialResult{conn: conn, err: err}
	}()

	select {
	case <-ctx.Done():
		go func() {
			if r := <-done; r.conn != nil {
				r.conn.Close()
			}
		}()
		return nil, fmt.Errorf("%w: %v", transport.ErrServiceUnavailable, ctx.Err())
	case r := <-done:
		if r.err != nil {
			return nil, fmt.Errorf("%w: %v", transport.ErrServiceUnavailable, r.err)
		}
		return newNATSHandle(r.conn, t.config, onReport)
	}
}

// Close releases transport-wide resources. NATS handles own their
// connections, so there is nothing to release here.
func (t *Transport) Close() error {
	return nil
}

// natsHandle is one hub connection over NATS. Command acks come back as
// request replies; reports arrive on the indication subscription.
type natsHandle struct {
	conn       *nats.Conn
	connID     string
	cmdSubject string
	sub        *nats.Subscription
	handler    transport.IndicationHandler
	tracer     trace.Logger

	mu      sync.Mutex
	nextCmd uint32

	closeCh   chan struct{}
	closeOnce sync.Once
	closeErr  error
}

func newNATSHandle(conn *nats.Conn, config Config, onReport transport.IndicationHandler) (*natsHandle, error) {
	h := &natsHandle{
		conn:    conn,
		connID:  uuid.New().String(),
		handler: onReport,
		tracer:  config.Trace,
		closeCh: make(chan struct{}),
	}
	h.cmdSubject = config.SubjectPrefix + ".cmd." + h.connID

	sub, err := conn.Subscribe(config.SubjectPrefix+".ind."+h.connID, h.onIndication)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to subscribe to indications: %w", err)
	}
	h.sub = sub

	return h, nil
}

// onIndication delivers one published report frame to the handler.
// NATS dispatches subscription callbacks sequentially, so arrival order
// is preserved.
func (h *natsHandle) onIndication(msg *nats.Msg) {
	frame, err := wire.DecodeFrame(msg.Data)
	if err != nil {
		h.traceError("decode frame", err)
		return
	}
	if frame.Type != wire.FrameReport {
		h.traceError("dispatch frame", fmt.Errorf("unexpected frame type %s", frame.Type))
		return
	}
	if h.handler != nil {
		h.handler(h, frame.Body)
	}
}

// Send transmits a command as a NATS request and blocks until the hub's
// ack reply or ctx expiry. A non-success ack surfaces as *AckError.
func (h *natsHandle) Send(ctx context.Context, suid wire.SUID, kind wire.Kind, payload []byte) error {
	select {
	case <-h.closeCh:
		return transport.ErrHandleClosed
	default:
	}

	h.mu.Lock()
	h.nextCmd++
	cmdID := h.nextCmd
	h.mu.Unlock()

	data, err := wire.EncodeRequestFrame(cmdID, &wire.Request{Suid: suid.Bytes(), Kind: kind, Payload: payload})
	if err != nil {
		return fmt.Errorf("failed to encode command: %w", err)
	}

	sentAt := time.Now()
	h.traceCommand(trace.DirectionOut, &trace.CommandEvent{
		CmdID: cmdID,
		Suid:  suid.String(),
		Kind:  kind,
	})

	msg, err := h.conn.RequestWithContext(ctx, h.cmdSubject, data)
	if err != nil {
		switch {
		case errors.Is(err, nats.ErrNoResponders):
			return fmt.Errorf("%w: no hub on %s", transport.ErrServiceUnavailable, h.cmdSubject)
		case errors.Is(err, context.DeadlineExceeded):
			return transport.ErrAckTimeout
		case errors.Is(err, context.Canceled):
			return ctx.Err()
		case errors.Is(err, nats.ErrConnectionClosed):
			return transport.ErrHandleClosed
		}
		return fmt.Errorf("failed to send command: %w", err)
	}

	frame, err := wire.DecodeFrame(msg.Data)
	if err != nil {
		return fmt.Errorf("failed to decode ack: %w", err)
	}
	if frame.Type != wire.FrameAck || frame.CmdID != cmdID {
		return fmt.Errorf("unexpected reply frame: type %s cmdId %d", frame.Type, frame.CmdID)
	}

	status := frame.Status
	rtt := time.Since(sentAt)
	h.traceCommand(trace.DirectionIn, &trace.CommandEvent{
		CmdID:  cmdID,
		Status: &status,
		RTT:    &rtt,
	})

	if !frame.Status.IsSuccess() {
		return &transport.AckError{Status: frame.Status}
	}
	return nil
}

// Close drains the indication subscription and closes the connection.
// Safe to call more than once.
func (h *natsHandle) Close() error {
	h.closeOnce.Do(func() {
		close(h.closeCh)
		if err := h.sub.Unsubscribe(); err != nil && !errors.Is(err, nats.ErrConnectionClosed) {
			h.closeErr = err
		}
		h.conn.Close()
	})
	return h.closeErr
}

func (h *natsHandle) traceCommand(dir trace.Direction, cmd *trace.CommandEvent) {
	if h.tracer == nil {
		return
	}
	h.tracer.Log(trace.Event{
		Timestamp:    time.Now(),
		ConnectionID: h.connID,
		Direction:    dir,
		Layer:        trace.LayerWire,
		Category:     trace.CategoryMessage,
		RemoteAddr:   h.conn.ConnectedUrl(),
		Command:      cmd,
	})
}

func (h *natsHandle) traceError(context string, err error) {
	if h.tracer == nil {
		return
	}
	h.tracer.Log(trace.Event{
		Timestamp:    time.Now(),
		ConnectionID: h.connID,
		Direction:    trace.DirectionIn,
		Layer:        trace.LayerTransport,
		Category:     trace.CategoryError,
		Error: &trace.ErrorEventData{
			Layer:   trace.LayerTransport,
			Message: err.Error(),
			Context: context,
		},
	})
}

// Compile-time interface satisfaction checks.
var (
	_ transport.Handle    = (*natsHandle)(nil)
	_ transport.Transport = (*Transport)(nil)
)
