package transport

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"sync"
	"testing"

	"github.com/senshub-protocol/senshub-go/pkg/trace"
)

// rwBuffer adapts a bytes.Buffer for framer construction.
type rwBuffer struct {
	bytes.Buffer
}

func TestFramerRoundTrip(t *testing.T) {
	tests := []struct {
		name    string
		payload []byte
	}{
		{
			name:    "small message",
			payload: []byte("hello"),
		},
		{
			name:    "medium message",
			payload: bytes.Repeat([]byte("x"), 1000),
		},
		{
			name:    "max size message",
			payload: bytes.Repeat([]byte("y"), DefaultMaxMessageSize),
		},
		{
			name:    "single byte",
			payload: []byte{0x42},
		},
		{
			name:    "binary data",
			payload: []byte{0x00, 0xFF, 0x7F, 0x80},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := &rwBuffer{}
			framer := NewFramer(buf)

			if err := framer.WriteFrame(tt.payload); err != nil {
				t.Fatalf("WriteFrame failed: %v", err)
			}

			expectedSize := LengthPrefixSize + len(tt.payload)
			if buf.Len() != expectedSize {
				t.Errorf("frame size = %d, want %d", buf.Len(), expectedSize)
			}

			got, err := framer.ReadFrame()
			if err != nil {
				t.Fatalf("ReadFrame failed: %v", err)
			}

			if !bytes.Equal(got, tt.payload) {
				t.Errorf("payload mismatch: got %d bytes, want %d bytes", len(got), len(tt.payload))
			}
		})
	}
}

func TestFramerEmptyMessage(t *testing.T) {
	framer := NewFramer(&rwBuffer{})

	err := framer.WriteFrame([]byte{})
	if !errors.Is(err, ErrMessageEmpty) {
		t.Errorf("expected ErrMessageEmpty, got %v", err)
	}

	err = framer.WriteFrame(nil)
	if !errors.Is(err, ErrMessageEmpty) {
		t.Errorf("expected ErrMessageEmpty for nil, got %v", err)
	}
}

func TestFramerMessageTooLarge(t *testing.T) {
	framer := NewFramerWithMaxSize(&rwBuffer{}, 100)

	err := framer.WriteFrame(bytes.Repeat([]byte("x"), 101))
	if !errors.Is(err, ErrMessageTooLarge) {
		t.Errorf("expected ErrMessageTooLarge, got %v", err)
	}
}

func TestFramerReadTooLarge(t *testing.T) {
	buf := &rwBuffer{}

	// Write a frame with length > max
	var lengthBuf [LengthPrefixSize]byte
	binary.BigEndian.PutUint32(lengthBuf[:], 1000)
	buf.Write(lengthBuf[:])
	buf.Write(bytes.Repeat([]byte("x"), 1000))

	// Try to read with smaller max size
	framer := NewFramerWithMaxSize(buf, 100)
	_, err := framer.ReadFrame()
	if !errors.Is(err, ErrMessageTooLarge) {
		t.Errorf("expected ErrMessageTooLarge, got %v", err)
	}
}

func TestFramerReadEmptyLength(t *testing.T) {
	buf := &rwBuffer{}

	// Write frame with length = 0
	var lengthBuf [LengthPrefixSize]byte
	buf.Write(lengthBuf[:])

	framer := NewFramer(buf)
	_, err := framer.ReadFrame()
	if !errors.Is(err, ErrMessageEmpty) {
		t.Errorf("expected ErrMessageEmpty, got %v", err)
	}
}

func TestFramerTruncatedLength(t *testing.T) {
	buf := &rwBuffer{}

	// Write only 2 bytes of length prefix
	buf.Write([]byte{0x00, 0x01})

	framer := NewFramer(buf)
	_, err := framer.ReadFrame()
	if !errors.Is(err, ErrFrameTruncated) {
		t.Errorf("expected ErrFrameTruncated, got %v", err)
	}
}

func TestFramerTruncatedPayload(t *testing.T) {
	buf := &rwBuffer{}

	// Write length prefix for 100 bytes but only 50 bytes of payload
	var lengthBuf [LengthPrefixSize]byte
	binary.BigEndian.PutUint32(lengthBuf[:], 100)
	buf.Write(lengthBuf[:])
	buf.Write(bytes.Repeat([]byte("x"), 50))

	framer := NewFramer(buf)
	_, err := framer.ReadFrame()
	if !errors.Is(err, ErrFrameTruncated) {
		t.Errorf("expected ErrFrameTruncated, got %v", err)
	}
}

func TestFramerEOF(t *testing.T) {
	framer := NewFramer(&rwBuffer{})

	_, err := framer.ReadFrame()
	if err != io.EOF {
		t.Errorf("expected io.EOF, got %v", err)
	}
}

func TestFramerMultipleFrames(t *testing.T) {
	buf := &rwBuffer{}
	framer := NewFramer(buf)

	messages := [][]byte{
		[]byte("first"),
		[]byte("second"),
		[]byte("third"),
	}

	for _, msg := range messages {
		if err := framer.WriteFrame(msg); err != nil {
			t.Fatalf("WriteFrame failed: %v", err)
		}
	}

	for i, want := range messages {
		got, err := framer.ReadFrame()
		if err != nil {
			t.Fatalf("ReadFrame %d failed: %v", i, err)
		}
		if !bytes.Equal(got, want) {
			t.Errorf("message %d mismatch: got %q, want %q", i, got, want)
		}
	}

	// Should get EOF after all messages
	_, err := framer.ReadFrame()
	if err != io.EOF {
		t.Errorf("expected EOF after all messages, got %v", err)
	}
}

func TestFrameSize(t *testing.T) {
	if got := FrameSize(100); got != 104 {
		t.Errorf("FrameSize(100) = %d, want 104", got)
	}
	if got := FrameSize(0); got != 4 {
		t.Errorf("FrameSize(0) = %d, want 4", got)
	}
}

// capturingTracer captures trace events for testing.
type capturingTracer struct {
	mu     sync.Mutex
	events []trace.Event
}

func (l *capturingTracer) Log(event trace.Event) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, event)
}

func (l *capturingTracer) Events() []trace.Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]trace.Event(nil), l.events...)
}

func TestFramerTracesWriteAndRead(t *testing.T) {
	buf := &rwBuffer{}
	tracer := &capturingTracer{}

	framer := NewFramer(buf)
	framer.SetTrace(tracer, "conn-123")

	payload := []byte("hello")
	if err := framer.WriteFrame(payload); err != nil {
		t.Fatalf("WriteFrame failed: %v", err)
	}
	if _, err := framer.ReadFrame(); err != nil {
		t.Fatalf("ReadFrame failed: %v", err)
	}

	events := tracer.Events()
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}

	out, in := events[0], events[1]
	if out.Direction != trace.DirectionOut {
		t.Errorf("first event Direction = %v, want DirectionOut", out.Direction)
	}
	if in.Direction != trace.DirectionIn {
		t.Errorf("second event Direction = %v, want DirectionIn", in.Direction)
	}
	for _, e := range events {
		if e.ConnectionID != "conn-123" {
			t.Errorf("ConnectionID = %q, want %q", e.ConnectionID, "conn-123")
		}
		if e.Layer != trace.LayerTransport {
			t.Errorf("Layer = %v, want LayerTransport", e.Layer)
		}
		if e.Frame == nil {
			t.Fatal("Frame is nil")
		}
		if e.Frame.Size != LengthPrefixSize+len(payload) {
			t.Errorf("Frame.Size = %d, want %d", e.Frame.Size, LengthPrefixSize+len(payload))
		}
		if !bytes.Equal(e.Frame.Data, payload) {
			t.Errorf("Frame.Data = %v, want %v", e.Frame.Data, payload)
		}
	}
}

func TestFramerTracesTruncatedData(t *testing.T) {
	buf := &rwBuffer{}
	tracer := &capturingTracer{}

	framer := NewFramer(buf)
	framer.SetTrace(tracer, "conn-trunc")

	// Create a payload larger than the truncation limit (4KB)
	largePayload := bytes.Repeat([]byte("x"), 5000)
	if err := framer.WriteFrame(largePayload); err != nil {
		t.Fatalf("WriteFrame failed: %v", err)
	}

	events := tracer.Events()
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}

	e := events[0]
	if e.Frame == nil {
		t.Fatal("Frame is nil")
	}
	// Size should reflect the full frame
	expectedSize := LengthPrefixSize + len(largePayload)
	if e.Frame.Size != expectedSize {
		t.Errorf("Frame.Size = %d, want %d", e.Frame.Size, expectedSize)
	}
	// Data should be truncated to MaxTraceFrameDataSize
	if len(e.Frame.Data) != MaxTraceFrameDataSize {
		t.Errorf("Frame.Data length = %d, want %d", len(e.Frame.Data), MaxTraceFrameDataSize)
	}
	if !e.Frame.Truncated {
		t.Error("Frame.Truncated = false, want true")
	}
}

func TestFramerNoTracerNoPanic(t *testing.T) {
	buf := &rwBuffer{}
	framer := NewFramer(buf)

	if err := framer.WriteFrame([]byte("hello")); err != nil {
		t.Fatalf("WriteFrame failed: %v", err)
	}
	if _, err := framer.ReadFrame(); err != nil {
		t.Fatalf("ReadFrame failed: %v", err)
	}

	// Explicitly set nil tracer should not panic either
	framer.SetTrace(nil, "conn-id")
	if err := framer.WriteFrame([]byte("world")); err != nil {
		t.Fatalf("WriteFrame with nil tracer failed: %v", err)
	}
}

func BenchmarkFrameWrite(b *testing.B) {
	buf := &rwBuffer{}
	framer := NewFramer(buf)
	payload := bytes.Repeat([]byte("x"), 1000)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		buf.Reset()
		framer.WriteFrame(payload)
	}
}
