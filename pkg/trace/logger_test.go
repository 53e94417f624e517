package trace

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/senshub-protocol/senshub-go/pkg/wire"
)

func TestNoopLoggerDiscards(t *testing.T) {
	// Must not panic, zero value usable.
	var logger NoopLogger
	logger.Log(Event{Timestamp: time.Now(), ConnectionID: "x"})
}

func TestMultiLoggerFansOut(t *testing.T) {
	var a, b countingLogger
	multi := NewMultiLogger(&a, &b)

	multi.Log(Event{Timestamp: time.Now(), ConnectionID: "conn"})
	multi.Log(Event{Timestamp: time.Now(), ConnectionID: "conn"})

	if a.count != 2 || b.count != 2 {
		t.Errorf("counts = %d, %d, want 2, 2", a.count, b.count)
	}
}

func TestMultiLoggerEmpty(t *testing.T) {
	multi := NewMultiLogger()
	multi.Log(Event{Timestamp: time.Now()}) // must not panic
}

type countingLogger struct {
	count int
}

func (c *countingLogger) Log(Event) { c.count++ }

func TestSlogAdapterWritesEvent(t *testing.T) {
	var buf bytes.Buffer
	handler := slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})
	adapter := NewSlogAdapter(slog.New(handler))

	status := wire.StatusSuccess
	adapter.Log(Event{
		Timestamp:    time.Now(),
		ConnectionID: "conn-slog",
		Direction:    DirectionIn,
		Layer:        LayerWire,
		Category:     CategoryMessage,
		Command:      &CommandEvent{CmdID: 3, Status: &status},
	})

	out := buf.String()
	if !strings.Contains(out, "conn-slog") {
		t.Errorf("output missing connection id: %s", out)
	}
	if !strings.Contains(out, "SUCCESS") {
		t.Errorf("output missing status: %s", out)
	}
	if !strings.Contains(out, "cmd_id=3") {
		t.Errorf("output missing cmd id: %s", out)
	}
}

func TestSlogAdapterReportEvent(t *testing.T) {
	var buf bytes.Buffer
	handler := slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})
	adapter := NewSlogAdapter(slog.New(handler))

	adapter.Log(Event{
		Timestamp:    time.Now(),
		ConnectionID: "conn-r",
		Direction:    DirectionIn,
		Layer:        LayerWire,
		Category:     CategoryMessage,
		Report:       &ReportEvent{Suid: "ab-cd", Kind: wire.KindSample, Consumed: true},
	})

	out := buf.String()
	if !strings.Contains(out, "SAMPLE") {
		t.Errorf("output missing kind: %s", out)
	}
	if !strings.Contains(out, "consumed=true") {
		t.Errorf("output missing consumed flag: %s", out)
	}
}
