package pending

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/senshub-protocol/senshub-go/pkg/trace"
	"github.com/senshub-protocol/senshub-go/pkg/wire"
)

// ErrTimeout is returned by Wait when no matching indication arrives
// within the timeout.
var ErrTimeout = errors.New("timed out waiting for indication")

// Token identifies one armed wait. It carries its own result channel,
// so a waiter never races a later arm for the slot's state.
type Token struct {
	seq  uint64
	suid wire.SUID
	kind wire.Kind
	ch   <-chan any
}

// Tracker is the single pending-request slot. Exactly one synchronous
// request may be armed at a time; Satisfy runs on the dispatcher
// goroutine and synchronizes with the waiter through the mutex and the
// token's buffered channel.
type Tracker struct {
	mu        sync.Mutex
	armed     bool
	delivered bool
	suid      wire.SUID
	kind      wire.Kind
	ch        chan any
	seq       uint64

	tracer trace.Logger
	connID string
}

// NewTracker creates an idle tracker.
func NewTracker() *Tracker {
	return &Tracker{}
}

// SetTrace enables protocol capture of slot state changes.
func (t *Tracker) SetTrace(tracer trace.Logger, connID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.tracer = tracer
	t.connID = connID
}

// Arm reserves the slot for a result indication matching (suid, kind).
// It panics if the slot is already armed: overlapping synchronous calls
// indicate caller misuse, which the client is responsible for
// preventing by serializing its operations.
func (t *Tracker) Arm(suid wire.SUID, kind wire.Kind) Token {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.armed {
		panic("pending: Arm called while a request is already armed (synchronous operations must not overlap)")
	}

	t.armed = true
	t.delivered = false
	t.suid = suid
	t.kind = kind
	// Buffered so a satisfy that beats the waiter still delivers.
	t.ch = make(chan any, 1)
	t.seq++

	t.traceState("idle", "armed", kind.String())

	return Token{seq: t.seq, suid: suid, kind: kind, ch: t.ch}
}

// Wait blocks until the token's result arrives or timeout elapses.
// It never disarms; the caller always does that, on every exit path.
func (t *Tracker) Wait(token Token, timeout time.Duration) (any, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case value := <-token.ch:
		return value, nil
	case <-timer.C:
		return nil, fmt.Errorf("%w: %s from %s", ErrTimeout, token.kind, token.suid)
	}
}

// Satisfy offers an inbound indication to the slot. If the slot is
// armed for exactly this (suid, kind) and has not yet been delivered,
// the value is deposited, the waiter is woken, and Satisfy reports
// true: the indication is consumed by the synchronous path. Any other
// outcome reports false and the caller forwards the indication as an
// asynchronous event.
func (t *Tracker) Satisfy(suid wire.SUID, kind wire.Kind, value any) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.armed || t.delivered || suid != t.suid || kind != t.kind {
		return false
	}

	t.delivered = true
	t.ch <- value

	t.traceState("armed", "delivered", kind.String())

	return true
}

// Disarm returns the slot to idle. It is idempotent, and a token from
// a previous arm cannot disarm a newer one.
func (t *Tracker) Disarm(token Token) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.armed || token.seq != t.seq {
		return
	}

	t.armed = false
	t.delivered = false

	t.traceState("armed", "idle", "")
}

// Armed reports whether a request is currently armed.
func (t *Tracker) Armed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.armed
}

// traceState is called with t.mu held.
func (t *Tracker) traceState(from, to, reason string) {
	if t.tracer == nil {
		return
	}
	t.tracer.Log(trace.Event{
		Timestamp:    time.Now(),
		ConnectionID: t.connID,
		Layer:        trace.LayerClient,
		Category:     trace.CategoryState,
		StateChange: &trace.StateChangeEvent{
			Entity:   trace.StateEntityPending,
			OldState: from,
			NewState: to,
			Reason:   reason,
		},
	})
}
