package hubclient

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/senshub-protocol/senshub-go/pkg/metrics"
	"github.com/senshub-protocol/senshub-go/pkg/model"
	"github.com/senshub-protocol/senshub-go/pkg/pending"
	"github.com/senshub-protocol/senshub-go/pkg/registry"
	"github.com/senshub-protocol/senshub-go/pkg/trace"
	"github.com/senshub-protocol/senshub-go/pkg/transport"
	"github.com/senshub-protocol/senshub-go/pkg/wire"
)

// Client is the synchronous hub client.
type Client struct {
	mu sync.Mutex

	config Config
	id     string

	registry *registry.Registry
	tracker  *pending.Tracker
	primary  transport.Handle

	initialized bool
}

// New creates a client. The client holds no connection until Init.
func New(config Config) (*Client, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	c := &Client{
		config:  config,
		id:      uuid.New().String(),
		tracker: pending.NewTracker(),
	}
	c.registry = registry.New(c.openHandle)

	if config.Trace != nil {
		c.tracker.SetTrace(config.Trace, c.id)
	}

	return c, nil
}

// openHandle acquires a transport handle, bounded by the service
// timeout. Every handle delivers its indications to the dispatcher.
func (c *Client) openHandle(ctx context.Context) (transport.Handle, error) {
	openCtx, cancel := context.WithTimeout(ctx, c.config.ServiceTimeout)
	defer cancel()
	return c.config.Transport.Open(openCtx, c.handleIndication)
}

// Init acquires the primary transport handle, waiting up to the
// service timeout for the hub to come up, then performs best-effort
// calibration sensor setup. Handle acquisition failure is fatal to
// Init; an individual calibration sensor failing is logged and skipped.
func (c *Client) Init(ctx context.Context) error {
	c.mu.Lock()
	if c.initialized {
		c.mu.Unlock()
		return ErrAlreadyInit
	}
	c.mu.Unlock()

	h, err := c.openHandle(ctx)
	if err != nil {
		return fmt.Errorf("acquiring primary handle: %w", err)
	}

	c.mu.Lock()
	if c.initialized {
		// Lost a race with a concurrent Init.
		c.mu.Unlock()
		h.Close()
		return ErrAlreadyInit
	}
	c.primary = h
	c.initialized = true
	c.mu.Unlock()

	c.registry.SetPrimary(h)
	c.traceLifecycle("idle", "initialized")
	c.debugLog("client initialized", "clientID", c.id)

	c.setupCalibration(ctx)

	return nil
}

// setupCalibration discovers, registers, and enables the built-in
// calibration sensors. Each sensor is independent: a failure is logged
// and the rest still get set up.
func (c *Client) setupCalibration(ctx context.Context) {
	for _, calType := range model.CalibrationTypes() {
		suids, err := c.FindSensors(ctx, calType.DataType())
		if err != nil {
			c.debugLog("calibration discovery failed", "sensorType", calType.String(), "error", err)
			continue
		}
		if len(suids) == 0 {
			c.debugLog("no calibration sensor found", "sensorType", calType.String())
			continue
		}

		if _, err := c.Register(ctx, calType, suids[0]); err != nil {
			c.debugLog("calibration registration failed", "sensorType", calType.String(), "error", err)
			continue
		}

		// Calibration streams are on-change; enabling them needs no rate.
		err = c.Configure(ctx, model.SensorRequest{SensorType: calType, Enable: true})
		if err != nil {
			c.debugLog("calibration enable failed", "sensorType", calType.String(), "error", err)
		}
	}
}

// Close releases every transport handle the client opened and clears
// the registry. Safe after a failed or partial Init, and safe to call
// more than once.
func (c *Client) Close() error {
	c.mu.Lock()
	wasInitialized := c.initialized
	c.initialized = false
	c.primary = nil
	c.mu.Unlock()

	err := c.registry.Clear(true)
	c.config.Metrics.SetRegistrySize(0)

	if wasInitialized {
		c.traceLifecycle("initialized", "closed")
		c.debugLog("client closed", "clientID", c.id)
	}
	return err
}

// FindSensors asks the hub which sensors serve dataType. The command
// goes to the lookup service's well-known SUID; zero matches is a
// successful, empty result.
func (c *Client) FindSensors(ctx context.Context, dataType string) ([]wire.SUID, error) {
	h, err := c.primaryHandle()
	if err != nil {
		return nil, err
	}

	payload, err := wire.Marshal(&wire.DiscoverRequest{DataType: dataType})
	if err != nil {
		return nil, fmt.Errorf("encoding discover request: %w", err)
	}

	result, err := c.sendAndWait(ctx, h, wire.LookupSUID, wire.KindDiscover, payload, wire.KindDiscoverResult)
	if err != nil {
		return nil, err
	}

	res, ok := result.(*wire.DiscoverResult)
	if !ok {
		return nil, fmt.Errorf("unexpected discover result type %T", result)
	}

	suids := make([]wire.SUID, 0, len(res.Suids))
	for _, raw := range res.Suids {
		suid, err := wire.SUIDFromBytes(raw)
		if err != nil {
			return nil, fmt.Errorf("decoding discovered suid: %w", err)
		}
		suids = append(suids, suid)
	}
	return suids, nil
}

// Attributes queries a sensor's attribute set.
func (c *Client) Attributes(ctx context.Context, suid wire.SUID) (model.Attributes, error) {
	h, err := c.primaryHandle()
	if err != nil {
		return model.Attributes{}, err
	}

	result, err := c.sendAndWait(ctx, h, suid, wire.KindAttrQuery, nil, wire.KindAttrResult)
	if err != nil {
		return model.Attributes{}, err
	}

	res, ok := result.(*wire.AttrResult)
	if !ok {
		return model.Attributes{}, fmt.Errorf("unexpected attribute result type %T", result)
	}
	return model.AttributesFromWire(res), nil
}

// Register binds a logical sensor type to a SUID. Registering an
// existing pair reports alreadyRegistered without mutating anything.
func (c *Client) Register(ctx context.Context, sensorType model.SensorType, suid wire.SUID) (alreadyRegistered bool, err error) {
	if sensorType == model.SensorTypeUnknown {
		return false, fmt.Errorf("%w: cannot register the unknown type", registry.ErrUnknownSensorType)
	}

	already, err := c.registry.Register(ctx, sensorType, suid)
	if err != nil {
		return false, err
	}
	c.config.Metrics.SetRegistrySize(c.registry.Len())
	if !already {
		c.debugLog("sensor registered", "sensorType", sensorType.String(), "suid", suid.String())
	}
	return already, nil
}

// Configure requests a new operating point for a registered sensor.
// The command is fire-and-forget: it returns once the hub acknowledges
// the send, and the resulting configuration event arrives later like
// any other indication. An unregistered type fails before anything is
// sent.
func (c *Client) Configure(ctx context.Context, req model.SensorRequest) error {
	if err := req.Validate(); err != nil {
		return err
	}

	h, suid, ok := c.registry.HandleFor(req.SensorType)
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotRegistered, req.SensorType)
	}

	payload, err := wire.Marshal(req.ToWire())
	if err != nil {
		return fmt.Errorf("encoding config command: %w", err)
	}

	_, err = c.sendAndWait(ctx, h, suid, wire.KindConfig, payload, 0)
	return err
}

// Registered reports whether the logical type has a registry entry.
func (c *Client) Registered(sensorType model.SensorType) bool {
	return c.registry.IsRegistered(sensorType)
}

// Sensors returns a snapshot of all registry entries.
func (c *Client) Sensors() []registry.Entry {
	return c.registry.Entries()
}

// primaryHandle returns the handle opened by Init.
func (c *Client) primaryHandle() (transport.Handle, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.initialized || c.primary == nil {
		return nil, ErrNotInitialized
	}
	return c.primary, nil
}

// sendAndWait is the shared synchronous primitive. It arms the pending
// slot for (suid, awaitKind), sends the command with the ack timeout,
// and waits up to the indication timeout for the decoded result. An
// awaitKind of zero makes the call fire-and-forget: it returns right
// after the acknowledged send. The slot is disarmed on every exit
// path, send failures after arming included.
func (c *Client) sendAndWait(ctx context.Context, h transport.Handle, suid wire.SUID, kind wire.Kind, payload []byte, awaitKind wire.Kind) (any, error) {
	awaited := awaitKind != 0
	var token pending.Token
	if awaited {
		token = c.tracker.Arm(suid, awaitKind)
		defer c.tracker.Disarm(token)
	}

	c.config.Metrics.RecordCommand(kind)

	sendCtx, cancel := context.WithTimeout(ctx, c.config.RespTimeout)
	err := h.Send(sendCtx, suid, kind, payload)
	cancel()
	if err != nil {
		c.recordSendFailure(err)
		return nil, fmt.Errorf("sending %s command: %w", kind, err)
	}
	c.config.Metrics.RecordAck(wire.StatusSuccess)

	if !awaited {
		return nil, nil
	}

	value, err := c.tracker.Wait(token, c.config.IndTimeout)
	if err != nil {
		c.config.Metrics.RecordTimeout(metrics.StageIndication)
		return nil, err
	}
	return value, nil
}

// recordSendFailure attributes a failed send to the right metric.
func (c *Client) recordSendFailure(err error) {
	var ackErr *transport.AckError
	switch {
	case errors.As(err, &ackErr):
		c.config.Metrics.RecordAck(ackErr.Status)
	case errors.Is(err, transport.ErrAckTimeout):
		c.config.Metrics.RecordTimeout(metrics.StageAck)
	}
}

// debugLog writes to the configured logger, if any.
func (c *Client) debugLog(msg string, args ...any) {
	if c.config.Logger != nil {
		c.config.Logger.Debug(msg, args...)
	}
}

// traceLifecycle captures a client lifecycle transition.
func (c *Client) traceLifecycle(from, to string) {
	if c.config.Trace == nil {
		return
	}
	c.config.Trace.Log(trace.Event{
		Timestamp:    time.Now(),
		ConnectionID: c.id,
		Layer:        trace.LayerClient,
		Category:     trace.CategoryState,
		StateChange: &trace.StateChangeEvent{
			Entity:   trace.StateEntityClient,
			OldState: from,
			NewState: to,
		},
	})
}
