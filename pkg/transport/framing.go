package transport

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/senshub-protocol/senshub-go/pkg/trace"
)

// Framing constants.
const (
	// LengthPrefixSize is the size of the length prefix in bytes.
	LengthPrefixSize = 4

	// DefaultMaxMessageSize is the default maximum frame size (64 KB).
	DefaultMaxMessageSize = 65536

	// MaxTraceFrameDataSize is the maximum frame data size to include in
	// trace events (4 KB). Larger frames are truncated in the trace to
	// avoid excessive memory usage.
	MaxTraceFrameDataSize = 4096
)

// Framing errors.
var (
	// ErrMessageTooLarge indicates the frame exceeds the maximum size.
	ErrMessageTooLarge = errors.New("message too large")

	// ErrMessageEmpty indicates an empty frame.
	ErrMessageEmpty = errors.New("message is empty")

	// ErrFrameTruncated indicates the frame was cut short mid-read.
	ErrFrameTruncated = errors.New("frame truncated")
)

// Framer reads and writes length-prefixed frames on a bidirectional
// stream. Writes are safe for concurrent use; reads are single-consumer
// (one reader goroutine per connection).
type Framer struct {
	r              io.Reader
	w              io.Writer
	maxMessageSize uint32
	writeMu        sync.Mutex
	lengthBuf      [LengthPrefixSize]byte

	// Trace support (optional)
	tracer trace.Logger
	connID string
}

// NewFramer creates a framer for bidirectional communication.
func NewFramer(rw io.ReadWriter) *Framer {
	return NewFramerWithMaxSize(rw, DefaultMaxMessageSize)
}

// NewFramerWithMaxSize creates a framer with a custom max frame size.
func NewFramerWithMaxSize(rw io.ReadWriter, maxSize uint32) *Framer {
	if maxSize == 0 {
		maxSize = DefaultMaxMessageSize
	}
	return &Framer{
		r:              rw,
		w:              rw,
		maxMessageSize: maxSize,
	}
}

// SetTrace configures protocol capture for this framer.
// Pass nil to disable capture.
func (f *Framer) SetTrace(tracer trace.Logger, connID string) {
	f.tracer = tracer
	f.connID = connID
}

// WriteFrame writes a length-prefixed frame.
// Thread-safe: can be called from multiple goroutines.
func (f *Framer) WriteFrame(data []byte) error {
	if len(data) == 0 {
		return ErrMessageEmpty
	}
	if uint32(len(data)) > f.maxMessageSize {
		return fmt.Errorf("%w: %d > %d", ErrMessageTooLarge, len(data), f.maxMessageSize)
	}

	f.writeMu.Lock()
	defer f.writeMu.Unlock()

	// Write length prefix (4 bytes, big-endian)
	var lengthBuf [LengthPrefixSize]byte
	binary.BigEndian.PutUint32(lengthBuf[:], uint32(len(data)))

	if _, err := f.w.Write(lengthBuf[:]); err != nil {
		return fmt.Errorf("failed to write length prefix: %w", err)
	}

	if _, err := f.w.Write(data); err != nil {
		return fmt.Errorf("failed to write payload: %w", err)
	}

	if f.tracer != nil {
		f.tracer.Log(f.makeFrameEvent(data, trace.DirectionOut))
	}

	return nil
}

// ReadFrame reads a length-prefixed frame.
// Returns the frame payload (without the length prefix).
func (f *Framer) ReadFrame() ([]byte, error) {
	// Read length prefix
	if _, err := io.ReadFull(f.r, f.lengthBuf[:]); err != nil {
		if err == io.EOF {
			return nil, err
		}
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, ErrFrameTruncated
		}
		return nil, fmt.Errorf("failed to read length prefix: %w", err)
	}

	length := binary.BigEndian.Uint32(f.lengthBuf[:])

	// Validate length
	if length == 0 {
		return nil, ErrMessageEmpty
	}
	if length > f.maxMessageSize {
		return nil, fmt.Errorf("%w: %d > %d", ErrMessageTooLarge, length, f.maxMessageSize)
	}

	// Read payload
	payload := make([]byte, length)
	if _, err := io.ReadFull(f.r, payload); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) || err == io.EOF {
			return nil, ErrFrameTruncated
		}
		return nil, fmt.Errorf("failed to read payload: %w", err)
	}

	if f.tracer != nil {
		f.tracer.Log(f.makeFrameEvent(payload, trace.DirectionIn))
	}

	return payload, nil
}

// makeFrameEvent creates a trace event for a frame.
func (f *Framer) makeFrameEvent(data []byte, direction trace.Direction) trace.Event {
	frameSize := LengthPrefixSize + len(data)
	frameData := data
	truncated := false

	if len(data) > MaxTraceFrameDataSize {
		frameData = data[:MaxTraceFrameDataSize]
		truncated = true
	}

	return trace.Event{
		Timestamp:    time.Now(),
		ConnectionID: f.connID,
		Direction:    direction,
		Layer:        trace.LayerTransport,
		Category:     trace.CategoryMessage,
		Frame: &trace.FrameEvent{
			Size:      frameSize,
			Data:      frameData,
			Truncated: truncated,
		},
	}
}

// FrameSize returns the total frame size including the length prefix.
func FrameSize(payloadSize int) int {
	return LengthPrefixSize + payloadSize
}
