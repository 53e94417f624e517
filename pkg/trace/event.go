package trace

import (
	"time"

	"github.com/senshub-protocol/senshub-go/pkg/wire"
)

// Event represents a protocol trace event captured at any layer.
// CBOR encoding uses integer keys for compactness.
type Event struct {
	// Timestamp when the event occurred (nanosecond precision).
	Timestamp time.Time `cbor:"1,keyasint"`

	// ConnectionID uniquely identifies the hub connection (UUID).
	ConnectionID string `cbor:"2,keyasint"`

	// Direction indicates frame flow.
	Direction Direction `cbor:"3,keyasint"`

	// Layer where the event was captured.
	Layer Layer `cbor:"4,keyasint"`

	// Category classifies the event type.
	Category Category `cbor:"5,keyasint"`

	// RemoteAddr is the hub address (IP:port, or NATS subject).
	RemoteAddr string `cbor:"6,keyasint,omitempty"`

	// Type-specific payload (one of these will be set).
	Frame       *FrameEvent       `cbor:"7,keyasint,omitempty"`  // Transport layer
	Command     *CommandEvent     `cbor:"8,keyasint,omitempty"`  // Wire layer (request/ack)
	Report      *ReportEvent      `cbor:"9,keyasint,omitempty"`  // Wire layer (unsolicited)
	StateChange *StateChangeEvent `cbor:"10,keyasint,omitempty"` // Connection/pending state
	Error       *ErrorEventData   `cbor:"11,keyasint,omitempty"` // Errors at any layer
}

// Direction indicates the direction of frame flow.
type Direction uint8

const (
	// DirectionIn indicates an incoming frame.
	DirectionIn Direction = 0
	// DirectionOut indicates an outgoing frame.
	DirectionOut Direction = 1
)

// String returns the direction name.
func (d Direction) String() string {
	switch d {
	case DirectionIn:
		return "IN"
	case DirectionOut:
		return "OUT"
	default:
		return "UNKNOWN"
	}
}

// Layer indicates which protocol layer captured the event.
type Layer uint8

const (
	// LayerTransport is the framing layer (raw bytes).
	LayerTransport Layer = 0
	// LayerWire is the frame encoding layer (decoded CBOR).
	LayerWire Layer = 1
	// LayerClient is the request orchestration layer.
	LayerClient Layer = 2
)

// String returns the layer name.
func (l Layer) String() string {
	switch l {
	case LayerTransport:
		return "TRANSPORT"
	case LayerWire:
		return "WIRE"
	case LayerClient:
		return "CLIENT"
	default:
		return "UNKNOWN"
	}
}

// Category classifies the event type.
type Category uint8

const (
	// CategoryMessage indicates a protocol frame (request/ack/report).
	CategoryMessage Category = 0
	// CategoryState indicates a state change.
	CategoryState Category = 1
	// CategoryError indicates an error event.
	CategoryError Category = 2
)

// String returns the category name.
func (c Category) String() string {
	switch c {
	case CategoryMessage:
		return "MESSAGE"
	case CategoryState:
		return "STATE"
	case CategoryError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// FrameEvent captures raw frame data at the transport layer.
type FrameEvent struct {
	// Size is the frame size in bytes (including length prefix).
	Size int `cbor:"1,keyasint"`

	// Data is the raw frame bytes (may be truncated for large frames).
	Data []byte `cbor:"2,keyasint,omitempty"`

	// Truncated indicates if Data was truncated.
	Truncated bool `cbor:"3,keyasint,omitempty"`
}

// CommandEvent captures a decoded command exchange at the wire layer:
// an outgoing request or its incoming ack.
type CommandEvent struct {
	// CmdID correlates request/ack pairs.
	CmdID uint32 `cbor:"1,keyasint"`

	// Suid is the addressed sensor (formatted, requests only).
	Suid string `cbor:"2,keyasint,omitempty"`

	// Kind is the request payload schema (requests only).
	Kind wire.Kind `cbor:"3,keyasint,omitempty"`

	// Status is the hub's verdict (acks only).
	Status *wire.Status `cbor:"4,keyasint,omitempty"`

	// RTT is the duration from request send to ack receipt (acks only).
	// Stored as nanoseconds.
	RTT *time.Duration `cbor:"5,keyasint,omitempty"`
}

// ReportEvent captures a decoded unsolicited report at the wire layer.
type ReportEvent struct {
	// Suid is the reporting sensor (formatted).
	Suid string `cbor:"1,keyasint,omitempty"`

	// Kind is the report payload schema.
	Kind wire.Kind `cbor:"2,keyasint"`

	// Consumed indicates the report satisfied a pending synchronous wait
	// instead of being forwarded to the event callback.
	Consumed bool `cbor:"3,keyasint,omitempty"`
}

// StateChangeEvent captures connection and pending-slot lifecycle events.
type StateChangeEvent struct {
	// Entity being changed.
	Entity StateEntity `cbor:"1,keyasint"`

	// OldState is the previous state (may be empty).
	OldState string `cbor:"2,keyasint,omitempty"`

	// NewState is the new state.
	NewState string `cbor:"3,keyasint"`

	// Reason for the change (if available).
	Reason string `cbor:"4,keyasint,omitempty"`
}

// StateEntity indicates what entity changed state.
type StateEntity uint8

const (
	// StateEntityConnection indicates a hub connection state change.
	StateEntityConnection StateEntity = 0
	// StateEntityPending indicates a pending-slot state change.
	StateEntityPending StateEntity = 1
	// StateEntityClient indicates a client lifecycle change.
	StateEntityClient StateEntity = 2
)

// String returns the state entity name.
func (s StateEntity) String() string {
	switch s {
	case StateEntityConnection:
		return "CONNECTION"
	case StateEntityPending:
		return "PENDING"
	case StateEntityClient:
		return "CLIENT"
	default:
		return "UNKNOWN"
	}
}

// ErrorEventData captures errors at any layer.
type ErrorEventData struct {
	// Layer where the error occurred.
	Layer Layer `cbor:"1,keyasint"`

	// Message is the error message.
	Message string `cbor:"2,keyasint"`

	// Context describes what operation was being performed.
	Context string `cbor:"3,keyasint,omitempty"`
}
