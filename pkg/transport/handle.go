package transport

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/senshub-protocol/senshub-go/pkg/trace"
	"github.com/senshub-protocol/senshub-go/pkg/wire"
)

// handleOptions configures a connHandle.
type handleOptions struct {
	maxMessageSize uint32
	handler        IndicationHandler
	tracer         trace.Logger
}

// connHandle is a framed connection to the hub. Acks are correlated to
// in-flight commands by command ID; report frames go to the indication
// handler. One reader goroutine serves both.
type connHandle struct {
	conn   net.Conn
	framer *Framer
	connID string

	handler IndicationHandler
	tracer  trace.Logger

	mu      sync.Mutex
	pending map[uint32]pendingAck
	nextCmd uint32

	closeCh   chan struct{}
	closeOnce sync.Once
	closeErr  error
}

// pendingAck tracks one in-flight command.
type pendingAck struct {
	ch     chan wire.Status
	sentAt time.Time
}

// newConnHandle wraps an established connection and starts its reader.
func newConnHandle(conn net.Conn, opts handleOptions) *connHandle {
	h := &connHandle{
		conn:    conn,
		framer:  NewFramerWithMaxSize(conn, opts.maxMessageSize),
		connID:  uuid.New().String(),
		handler: opts.handler,
		tracer:  opts.tracer,
		pending: make(map[uint32]pendingAck),
		closeCh: make(chan struct{}),
	}
	if opts.tracer != nil {
		h.framer.SetTrace(opts.tracer, h.connID)
	}
	go h.readLoop()
	return h
}

// ConnectionID returns the handle's trace identifier.
func (h *connHandle) ConnectionID() string {
	return h.connID
}

// RemoteAddr returns the hub's network address.
func (h *connHandle) RemoteAddr() net.Addr {
	return h.conn.RemoteAddr()
}

// Send transmits a command and blocks until the hub acks it or ctx
// expires. A non-success ack surfaces as *AckError.
func (h *connHandle) Send(ctx context.Context, suid wire.SUID, kind wire.Kind, payload []byte) error {
	select {
	case <-h.closeCh:
		return ErrHandleClosed
	default:
	}

	req := &wire.Request{Suid: suid.Bytes(), Kind: kind, Payload: payload}

	h.mu.Lock()
	h.nextCmd++
	cmdID := h.nextCmd
	ackCh := make(chan wire.Status, 1)
	h.pending[cmdID] = pendingAck{ch: ackCh, sentAt: time.Now()}
	h.mu.Unlock()

	defer func() {
		h.mu.Lock()
		delete(h.pending, cmdID)
		h.mu.Unlock()
	}()

	data, err := wire.EncodeRequestFrame(cmdID, req)
	if err != nil {
		return fmt.Errorf("failed to encode command: %w", err)
	}
	if err := h.framer.WriteFrame(data); err != nil {
		return fmt.Errorf("failed to send command: %w", err)
	}

	h.traceCommand(trace.DirectionOut, &trace.CommandEvent{
		CmdID: cmdID,
		Suid:  suid.String(),
		Kind:  kind,
	})

	select {
	case status := <-ackCh:
		if !status.IsSuccess() {
			return &AckError{Status: status}
		}
		return nil
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return ErrAckTimeout
		}
		return ctx.Err()
	case <-h.closeCh:
		return ErrHandleClosed
	}
}

// Close closes the connection and unblocks in-flight sends.
// Safe to call more than once.
func (h *connHandle) Close() error {
	h.closeOnce.Do(func() {
		close(h.closeCh)
		h.closeErr = h.conn.Close()
	})
	return h.closeErr
}

// readLoop serves the connection until it closes: acks resolve pending
// commands, report bodies go to the indication handler in arrival order.
func (h *connHandle) readLoop() {
	defer h.Close()

	for {
		data, err := h.framer.ReadFrame()
		if err != nil {
			select {
			case <-h.closeCh:
				// Local close, nothing to report.
			default:
				h.traceError("read frame", err)
			}
			return
		}

		frame, err := wire.DecodeFrame(data)
		if err != nil {
			// Undecodable frames are dropped; the stream itself is intact.
			h.traceError("decode frame", err)
			continue
		}

		switch frame.Type {
		case wire.FrameAck:
			h.resolveAck(frame)
		case wire.FrameReport:
			if h.handler != nil {
				h.handler(h, frame.Body)
			}
		default:
			// Request frames never flow toward the client.
			h.traceError("dispatch frame", fmt.Errorf("unexpected frame type %s", frame.Type))
		}
	}
}

// resolveAck delivers an ack to its in-flight command, if still waiting.
func (h *connHandle) resolveAck(frame *wire.Frame) {
	h.mu.Lock()
	pa, ok := h.pending[frame.CmdID]
	h.mu.Unlock()

	if !ok {
		// The sender gave up already (timeout or close). Late acks are
		// dropped without ceremony.
		return
	}

	select {
	case pa.ch <- frame.Status:
	default:
	}

	status := frame.Status
	rtt := time.Since(pa.sentAt)
	h.traceCommand(trace.DirectionIn, &trace.CommandEvent{
		CmdID:  frame.CmdID,
		Status: &status,
		RTT:    &rtt,
	})
}

func (h *connHandle) traceCommand(dir trace.Direction, cmd *trace.CommandEvent) {
	if h.tracer == nil {
		return
	}
	h.tracer.Log(trace.Event{
		Timestamp:    time.Now(),
		ConnectionID: h.connID,
		Direction:    dir,
		Layer:        trace.LayerWire,
		Category:     trace.CategoryMessage,
		RemoteAddr:   h.conn.RemoteAddr().String(),
		Command:      cmd,
	})
}

func (h *connHandle) traceError(context string, err error) {
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
