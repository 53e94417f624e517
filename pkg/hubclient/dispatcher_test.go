package hubclient

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/senshub-protocol/senshub-go/pkg/model"
	"github.com/senshub-protocol/senshub-go/pkg/wire"
)

type receivedEvent struct {
	SensorType model.SensorType
	Event      any
}

// eventRecorder collects forwarded events.
type eventRecorder struct {
	mu     sync.Mutex
	events []receivedEvent
}

func (r *eventRecorder) callback(sensorType model.SensorType, event any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, receivedEvent{SensorType: sensorType, Event: event})
}

func (r *eventRecorder) all() []receivedEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]receivedEvent, len(r.events))
	copy(out, r.events)
	return out
}

// newDispatchClient builds an initialized client with an event recorder.
func newDispatchClient(t *testing.T) (*Client, *fakeTransport, *eventRecorder) {
	t.Helper()

	rec := &eventRecorder{}
	tr := newFakeTransport()
	c, err := New(Config{
		Transport:   tr,
		OnEvent:     rec.callback,
		RespTimeout: 100 * time.Millisecond,
		IndTimeout:  100 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if err := c.Init(context.Background()); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c, tr, rec
}

func (t *fakeTransport) primary() *fakeHandle {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.handles[0]
}

func TestDispatcherForwardsOncePerType(t *testing.T) {
	c, tr, rec := newDispatchClient(t)
	ctx := context.Background()

	// One physical sensor registered under two logical types.
	if _, err := c.Register(ctx, model.SensorTypeAccelerometer, accelSuid); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if _, err := c.Register(ctx, model.SensorTypeAccelCal, accelSuid); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	tr.primary().injectRecord(accelSuid, wire.KindSample, &wire.SampleEvent{
		Timestamp: 12345,
		Values:    []float32{0.1, 0.2, 9.8},
	})

	events := rec.all()
	if len(events) != 2 {
		t.Fatalf("callback invoked %d times, want 2", len(events))
	}
	if events[0].SensorType != model.SensorTypeAccelerometer || events[1].SensorType != model.SensorTypeAccelCal {
		t.Errorf("callback types = %v, %v", events[0].SensorType, events[1].SensorType)
	}

	sample, ok := events[0].Event.(*wire.SampleEvent)
	if !ok {
		t.Fatalf("event type = %T, want *wire.SampleEvent", events[0].Event)
	}
	if sample.Timestamp != 12345 || len(sample.Values) != 3 {
		t.Errorf("sample = %+v", sample)
	}
	if events[0].Event != events[1].Event {
		t.Error("both invocations should carry the same decoded record")
	}
}

func TestDispatcherDropsUnregistered(t *testing.T) {
	_, tr, rec := newDispatchClient(t)

	tr.primary().injectRecord(gyroSuid, wire.KindSample, &wire.SampleEvent{Timestamp: 1})

	if got := rec.all(); len(got) != 0 {
		t.Errorf("unregistered report reached the callback: %v", got)
	}
}

func TestDispatcherDropsUndecodable(t *testing.T) {
	c, tr, rec := newDispatchClient(t)
	ctx := context.Background()

	if _, err := c.Register(ctx, model.SensorTypeAccelerometer, accelSuid); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	// Garbage report envelope.
	tr.primary().deliver(tr.primary(), []byte{0xFF, 0x00, 0x01})
	// Valid envelope, garbage payload for its kind.
	tr.primary().inject(accelSuid, wire.KindSample, []byte{0xFF})

	if got := rec.all(); len(got) != 0 {
		t.Errorf("undecodable reports reached the callback: %v", got)
	}

	// The dispatcher must keep working after dropping garbage.
	tr.primary().injectRecord(accelSuid, wire.KindSample, &wire.SampleEvent{Timestamp: 2})
	if got := rec.all(); len(got) != 1 {
		t.Errorf("valid report after garbage forwarded %d times, want 1", len(got))
	}
}

func TestDispatcherConsumedNotForwarded(t *testing.T) {
	c, tr, rec := newDispatchClient(t)
	ctx := context.Background()

	// Register the SUID so a forward would be observable.
	if _, err := c.Register(ctx, model.SensorTypeAccelerometer, accelSuid); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	token := c.tracker.Arm(accelSuid, wire.KindSample)
	defer c.tracker.Disarm(token)

	tr.primary().injectRecord(accelSuid, wire.KindSample, &wire.SampleEvent{Timestamp: 7})

	value, err := c.tracker.Wait(token, time.Second)
	if err != nil {
		t.Fatalf("Wait failed: %v", err)
	}
	if value.(*wire.SampleEvent).Timestamp != 7 {
		t.Errorf("consumed sample = %+v", value)
	}
	if got := rec.all(); len(got) != 0 {
		t.Errorf("consumed report was also forwarded: %v", got)
	}

	// The next matching report, with the slot delivered, is forwarded.
	tr.primary().injectRecord(accelSuid, wire.KindSample, &wire.SampleEvent{Timestamp: 8})
	if got := rec.all(); len(got) != 1 {
		t.Errorf("follow-up report forwarded %d times, want 1", len(got))
	}
}

func TestDispatcherMismatchedKindNotConsumed(t *testing.T) {
	c, tr, rec := newDispatchClient(t)
	ctx := context.Background()

	if _, err := c.Register(ctx, model.SensorTypeAccelerometer, accelSuid); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	// Armed for an attribute result; a sample from the same SUID must
	// be forwarded, not consumed.
	token := c.tracker.Arm(accelSuid, wire.KindAttrResult)
	defer c.tracker.Disarm(token)

	tr.primary().injectRecord(accelSuid, wire.KindSample, &wire.SampleEvent{Timestamp: 9})

	if got := rec.all(); len(got) != 1 {
		t.Fatalf("mismatched report forwarded %d times, want 1", len(got))
	}
	if _, err := c.tracker.Wait(token, 20*time.Millisecond); err == nil {
		t.Error("mismatched report should not satisfy the pending wait")
	}
}
