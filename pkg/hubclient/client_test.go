package hubclient

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/senshub-protocol/senshub-go/pkg/model"
	"github.com/senshub-protocol/senshub-go/pkg/pending"
	"github.com/senshub-protocol/senshub-go/pkg/transport"
	"github.com/senshub-protocol/senshub-go/pkg/wire"
)

var (
	accelSuid = wire.SUID{Low: 0x1111, High: 0x2222}
	gyroSuid  = wire.SUID{Low: 0x3333, High: 0x4444}
)

type sentCommand struct {
	Suid    wire.SUID
	Kind    wire.Kind
	Payload []byte
}

// fakeTransport scripts the hub side of the protocol in-process. Its
// onSend hook runs synchronously inside Handle.Send and may inject
// indications back through the handle.
type fakeTransport struct {
	mu      sync.Mutex
	openErr error
	handles []*fakeHandle
	onSend  func(h *fakeHandle, suid wire.SUID, kind wire.Kind, payload []byte) error
}

// respondEmptyDiscover answers every discover command with an empty
// result, which keeps Init's calibration pass quick and quiet.
func respondEmptyDiscover(h *fakeHandle, suid wire.SUID, kind wire.Kind, payload []byte) error {
	if kind != wire.KindDiscover {
		return nil
	}
	req, err := wire.DecodeRecord(wire.KindDiscover, payload)
	if err != nil {
		return err
	}
	h.injectRecord(suid, wire.KindDiscoverResult, &wire.DiscoverResult{
		DataType: req.(*wire.DiscoverRequest).DataType,
	})
	return nil
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{onSend: respondEmptyDiscover}
}

func (t *fakeTransport) Open(ctx context.Context, onReport transport.IndicationHandler) (transport.Handle, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.openErr != nil {
		return nil, t.openErr
	}
	h := &fakeHandle{tr: t, deliver: onReport}
	t.handles = append(t.handles, h)
	return h, nil
}

func (t *fakeTransport) Close() error { return nil }

func (t *fakeTransport) sent() []sentCommand {
	t.mu.Lock()
	defer t.mu.Unlock()
	var all []sentCommand
	for _, h := range t.handles {
		all = append(all, h.commands...)
	}
	return all
}

type fakeHandle struct {
	tr      *fakeTransport
	deliver transport.IndicationHandler

	commands []sentCommand
	closes   int
}

func (h *fakeHandle) Send(ctx context.Context, suid wire.SUID, kind wire.Kind, payload []byte) error {
	h.tr.mu.Lock()
	h.commands = append(h.commands, sentCommand{Suid: suid, Kind: kind, Payload: payload})
	onSend := h.tr.onSend
	h.tr.mu.Unlock()

	if onSend != nil {
		return onSend(h, suid, kind, payload)
	}
	return nil
}

func (h *fakeHandle) Close() error {
	h.tr.mu.Lock()
	defer h.tr.mu.Unlock()
	h.closes++
	return nil
}

// inject delivers an encoded report to the client's dispatcher, the
// way the reader goroutine would.
func (h *fakeHandle) inject(suid wire.SUID, kind wire.Kind, payload []byte) {
	body, err := wire.Marshal(&wire.Report{Suid: suid.Bytes(), Kind: kind, Payload: payload})
	if err != nil {
		panic(err)
	}
	h.deliver(h, body)
}

// injectRecord marshals a typed record and delivers it.
func (h *fakeHandle) injectRecord(suid wire.SUID, kind wire.Kind, record any) {
	payload, err := wire.Marshal(record)
	if err != nil {
		panic(err)
	}
	h.inject(suid, kind, payload)
}

// newTestClient builds a client over a fake transport with short
// timeouts and runs Init.
func newTestClient(t *testing.T, tr *fakeTransport) *Client {
	t.Helper()

	c, err := New(Config{
		Transport:      tr,
		ServiceTimeout: 500 * time.Millisecond,
		RespTimeout:    100 * time.Millisecond,
		IndTimeout:     100 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if err := c.Init(context.Background()); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func TestNewRequiresTransport(t *testing.T) {
	if _, err := New(Config{}); err == nil {
		t.Error("New without a transport should fail")
	}
}

func TestInitLifecycle(t *testing.T) {
	tr := newFakeTransport()
	c := newTestClient(t, tr)

	if err := c.Init(context.Background()); !errors.Is(err, ErrAlreadyInit) {
		t.Errorf("second Init error = %v, want ErrAlreadyInit", err)
	}

	if err := c.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if err := c.Close(); err != nil {
		t.Fatalf("second Close failed: %v", err)
	}

	// A closed client can be initialized again.
	if err := c.Init(context.Background()); err != nil {
		t.Fatalf("re-Init failed: %v", err)
	}
}

func TestInitTransportUnavailable(t *testing.T) {
	tr := newFakeTransport()
	tr.openErr = transport.ErrServiceUnavailable

	c, err := New(Config{Transport: tr})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	if err := c.Init(context.Background()); !errors.Is(err, transport.ErrServiceUnavailable) {
		t.Errorf("Init error = %v, want ErrServiceUnavailable", err)
	}

	// Teardown after a failed Init must be safe.
	if err := c.Close(); err != nil {
		t.Errorf("Close after failed Init: %v", err)
	}
}

func TestOperationsRequireInit(t *testing.T) {
	c, err := New(Config{Transport: newFakeTransport()})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	if _, err := c.FindSensors(context.Background(), "accel"); !errors.Is(err, ErrNotInitialized) {
		t.Errorf("FindSensors error = %v, want ErrNotInitialized", err)
	}
	if _, err := c.Attributes(context.Background(), accelSuid); !errors.Is(err, ErrNotInitialized) {
		t.Errorf("Attributes error = %v, want ErrNotInitialized", err)
	}
}

func TestFindSensors(t *testing.T) {
	tr := newFakeTransport()
	tr.onSend = func(h *fakeHandle, suid wire.SUID, kind wire.Kind, payload []byte) error {
		if kind != wire.KindDiscover {
			return nil
		}
		req, err := wire.DecodeRecord(wire.KindDiscover, payload)
		if err != nil {
			t.Errorf("hub could not decode discover payload: %v", err)
			return err
		}
		res := &wire.DiscoverResult{DataType: req.(*wire.DiscoverRequest).DataType}
		if res.DataType == "accel" {
			res.Suids = [][]byte{accelSuid.Bytes(), gyroSuid.Bytes()}
		}
		h.injectRecord(suid, wire.KindDiscoverResult, res)
		return nil
	}
	c := newTestClient(t, tr)

	suids, err := c.FindSensors(context.Background(), "accel")
	if err != nil {
		t.Fatalf("FindSensors failed: %v", err)
	}
	if len(suids) != 2 || suids[0] != accelSuid || suids[1] != gyroSuid {
		t.Errorf("FindSensors = %v, want [%v %v]", suids, accelSuid, gyroSuid)
	}
}

func TestFindSensorsZeroMatchesIsSuccess(t *testing.T) {
	tr := newFakeTransport()
	c := newTestClient(t, tr)

	suids, err := c.FindSensors(context.Background(), "no_such_type")
	if err != nil {
		t.Fatalf("FindSensors failed: %v", err)
	}
	if len(suids) != 0 {
		t.Errorf("FindSensors = %v, want empty", suids)
	}
}

func TestFindSensorsTimeoutThenRecovers(t *testing.T) {
	tr := newFakeTransport()
	silent := true
	base := tr.onSend
	tr.onSend = func(h *fakeHandle, suid wire.SUID, kind wire.Kind, payload []byte) error {
		if silent {
			return nil
		}
		return base(h, suid, kind, payload)
	}
	c := newTestClient(t, tr)

	_, err := c.FindSensors(context.Background(), "accel")
	if !errors.Is(err, pending.ErrTimeout) {
		t.Fatalf("expected ErrTimeout, got %v", err)
	}

	// The slot must have been disarmed: the next call may arm again
	// and succeed.
	silent = false
	if _, err := c.FindSensors(context.Background(), "accel"); err != nil {
		t.Errorf("FindSensors after timeout failed: %v", err)
	}
}

func TestSendFailureStillDisarms(t *testing.T) {
	tr := newFakeTransport()
	sendErr := errors.New("send rejected")
	failing := true
	base := tr.onSend
	tr.onSend = func(h *fakeHandle, suid wire.SUID, kind wire.Kind, payload []byte) error {
		if failing && kind == wire.KindDiscover {
			return sendErr
		}
		return base(h, suid, kind, payload)
	}
	c := newTestClient(t, tr)

	_, err := c.FindSensors(context.Background(), "accel")
	if !errors.Is(err, sendErr) {
		t.Fatalf("expected send error, got %v", err)
	}

	failing = false
	if _, err := c.FindSensors(context.Background(), "accel"); err != nil {
		t.Errorf("FindSensors after send failure failed: %v", err)
	}
}

func TestAttributes(t *testing.T) {
	tr := newFakeTransport()
	base := tr.onSend
	tr.onSend = func(h *fakeHandle, suid wire.SUID, kind wire.Kind, payload []byte) error {
		if kind != wire.KindAttrQuery {
			return base(h, suid, kind, payload)
		}
		h.injectRecord(suid, wire.KindAttrResult, &wire.AttrResult{
			Vendor:        "senshub",
			Name:          "bmi160",
			Type:          "accel",
			MaxSampleRate: 400,
			StreamType:    uint8(model.StreamTypeContinuous),
		})
		return nil
	}
	c := newTestClient(t, tr)

	attrs, err := c.Attributes(context.Background(), accelSuid)
	if err != nil {
		t.Fatalf("Attributes failed: %v", err)
	}
	if attrs.Vendor != "senshub" || attrs.Name != "bmi160" {
		t.Errorf("attributes = %+v", attrs)
	}
	if attrs.MaxSampleRate != 400 {
		t.Errorf("MaxSampleRate = %v, want 400", attrs.MaxSampleRate)
	}
	if attrs.StreamType != model.StreamTypeContinuous {
		t.Errorf("StreamType = %v, want continuous", attrs.StreamType)
	}
}

func TestRegisterRejectsUnknownType(t *testing.T) {
	tr := newFakeTransport()
	c := newTestClient(t, tr)

	if _, err := c.Register(context.Background(), model.SensorTypeUnknown, accelSuid); err == nil {
		t.Error("registering the unknown type should fail")
	}
	if c.registry.Len() != 0 {
		t.Error("rejected registration mutated the registry")
	}
}

func TestRegisterAndConfigure(t *testing.T) {
	tr := newFakeTransport()
	c := newTestClient(t, tr)
	ctx := context.Background()

	already, err := c.Register(ctx, model.SensorTypeAccelerometer, accelSuid)
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if already {
		t.Error("first Register reported alreadyRegistered")
	}

	already, err = c.Register(ctx, model.SensorTypeAccelerometer, accelSuid)
	if err != nil {
		t.Fatalf("duplicate Register failed: %v", err)
	}
	if !already {
		t.Error("duplicate Register should report alreadyRegistered")
	}

	err = c.Configure(ctx, model.SensorRequest{
		SensorType:    model.SensorTypeAccelerometer,
		Enable:        true,
		SampleRateHz:  100,
		BatchPeriodUs: 20000,
	})
	if err != nil {
		t.Fatalf("Configure failed: %v", err)
	}

	var config sentCommand
	found := false
	for _, cmd := range tr.sent() {
		if cmd.Kind == wire.KindConfig {
			config, found = cmd, true
			break
		}
	}
	if !found {
		t.Fatal("Configure sent no config command")
	}
	if config.Suid != accelSuid {
		t.Errorf("config sent to %v, want %v", config.Suid, accelSuid)
	}

	record, err := wire.DecodeRecord(wire.KindConfig, config.Payload)
	if err != nil {
		t.Fatalf("decoding sent config: %v", err)
	}
	cmd := record.(*wire.ConfigCommand)
	if !cmd.Enable || cmd.SampleRateHz != 100 || cmd.BatchPeriodUs != 20000 {
		t.Errorf("config command = %+v", cmd)
	}
}

func TestConfigureUnregistered(t *testing.T) {
	tr := newFakeTransport()
	c := newTestClient(t, tr)
	before := len(tr.sent())

	err := c.Configure(context.Background(), model.SensorRequest{
		SensorType: model.SensorTypeGyroscope,
		Enable:     true,
	})
	if !errors.Is(err, ErrNotRegistered) {
		t.Fatalf("expected ErrNotRegistered, got %v", err)
	}
	if got := len(tr.sent()); got != before {
		t.Errorf("Configure on unregistered type sent %d commands", got-before)
	}
}

func TestConfigureInvalidRequest(t *testing.T) {
	tr := newFakeTransport()
	c := newTestClient(t, tr)
	before := len(tr.sent())

	err := c.Configure(context.Background(), model.SensorRequest{
		SensorType:   model.SensorTypeAccelerometer,
		Enable:       true,
		SampleRateHz: -5,
	})
	if err == nil {
		t.Fatal("negative sample rate should fail validation")
	}
	if got := len(tr.sent()); got != before {
		t.Errorf("invalid Configure sent %d commands", got-before)
	}
}

func TestInitCalibrationSetup(t *testing.T) {
	calSuid := wire.SUID{Low: 0xCA11, High: 0xB4A7}
	tr := newFakeTransport()
	base := tr.onSend
	tr.onSend = func(h *fakeHandle, suid wire.SUID, kind wire.Kind, payload []byte) error {
		if kind != wire.KindDiscover {
			return nil
		}
		req, err := wire.DecodeRecord(wire.KindDiscover, payload)
		if err != nil {
			return err
		}
		if req.(*wire.DiscoverRequest).DataType == model.SensorTypeAccelCal.DataType() {
			h.injectRecord(suid, wire.KindDiscoverResult, &wire.DiscoverResult{
				DataType: model.SensorTypeAccelCal.DataType(),
				Suids:    [][]byte{calSuid.Bytes()},
			})
			return nil
		}
		return base(h, suid, kind, payload)
	}
	c := newTestClient(t, tr)

	if !c.Registered(model.SensorTypeAccelCal) {
		t.Error("Init should have registered the discovered calibration sensor")
	}
	if c.Registered(model.SensorTypeGyroCal) {
		t.Error("undiscovered calibration type should not be registered")
	}

	var enabled bool
	for _, cmd := range tr.sent() {
		if cmd.Kind == wire.KindConfig && cmd.Suid == calSuid {
			record, err := wire.DecodeRecord(wire.KindConfig, cmd.Payload)
			if err != nil {
				t.Fatalf("decoding cal config: %v", err)
			}
			if record.(*wire.ConfigCommand).Enable {
				enabled = true
			}
		}
	}
	if !enabled {
		t.Error("Init should have enabled the calibration stream")
	}
}

func TestCalibrationFailureDoesNotFailInit(t *testing.T) {
	// Discover succeeds for gyro_cal but the enable send fails; Init
	// must still succeed and the other sensors stay unaffected.
	calSuid := wire.SUID{Low: 0x6CA1}
	tr := newFakeTransport()
	base := tr.onSend
	tr.onSend = func(h *fakeHandle, suid wire.SUID, kind wire.Kind, payload []byte) error {
		switch kind {
		case wire.KindDiscover:
			req, err := wire.DecodeRecord(wire.KindDiscover, payload)
			if err != nil {
				return err
			}
			if req.(*wire.DiscoverRequest).DataType == model.SensorTypeGyroCal.DataType() {
				h.injectRecord(suid, wire.KindDiscoverResult, &wire.DiscoverResult{
					DataType: model.SensorTypeGyroCal.DataType(),
					Suids:    [][]byte{calSuid.Bytes()},
				})
				return nil
			}
			return base(h, suid, kind, payload)
		case wire.KindConfig:
			return errors.New("hub rejected config")
		default:
			return nil
		}
	}

	c, err := New(Config{
		Transport:   tr,
		RespTimeout: 100 * time.Millisecond,
		IndTimeout:  100 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer c.Close()

	if err := c.Init(context.Background()); err != nil {
		t.Fatalf("Init should tolerate calibration failures: %v", err)
	}
	if !c.Registered(model.SensorTypeGyroCal) {
		t.Error("gyro_cal should still be registered despite the failed enable")
	}
}

func TestCloseReleasesHandles(t *testing.T) {
	tr := newFakeTransport()
	c := newTestClient(t, tr)

	if err := c.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	tr.mu.Lock()
	defer tr.mu.Unlock()
	for i, h := range tr.handles {
		if h.closes != 1 {
			t.Errorf("handle %d closed %d times, want 1", i, h.closes)
		}
	}
}
