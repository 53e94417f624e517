package hubclient

import (
	"errors"
	"log/slog"
	"time"

	"github.com/senshub-protocol/senshub-go/pkg/metrics"
	"github.com/senshub-protocol/senshub-go/pkg/model"
	"github.com/senshub-protocol/senshub-go/pkg/trace"
	"github.com/senshub-protocol/senshub-go/pkg/transport"
)

// Default timeouts. ServiceTimeout bounds the wait for the hub service
// to come up, RespTimeout bounds the command acknowledgement, and
// IndTimeout bounds the wait for a result indication.
const (
	DefaultServiceTimeout = 5 * time.Second
	DefaultRespTimeout    = 1 * time.Second
	DefaultIndTimeout     = 2 * time.Second
)

// EventCallback receives asynchronous sensor events: samples, bias
// updates, and configuration changes for registered sensors. It runs on
// the transport's reader goroutine and must not block.
type EventCallback func(sensorType model.SensorType, event any)

// Config configures a hub client.
type Config struct {
	// Transport opens connections to the hub. Required. The caller
	// retains ownership: Close releases the handles the client opened,
	// not the transport itself.
	Transport transport.Transport

	// OnEvent receives forwarded sensor events. Optional.
	OnEvent EventCallback

	// ServiceTimeout bounds handle acquisition (default: 5s).
	ServiceTimeout time.Duration

	// RespTimeout bounds the command acknowledgement (default: 1s).
	RespTimeout time.Duration

	// IndTimeout bounds the result indication wait (default: 2s).
	IndTimeout time.Duration

	// Logger for debug output. Optional.
	Logger *slog.Logger

	// Trace receives protocol capture events. Optional.
	Trace trace.Logger

	// Metrics receives Prometheus instrumentation. Optional.
	Metrics *metrics.ClientMetrics
}

// Validate checks the configuration and fills in defaults.
func (c *Config) Validate() error {
	if c.Transport == nil {
		return errors.New("transport is required")
	}
	if c.ServiceTimeout <= 0 {
		c.ServiceTimeout = DefaultServiceTimeout
	}
	if c.RespTimeout <= 0 {
		c.RespTimeout = DefaultRespTimeout
	}
	if c.IndTimeout <= 0 {
		c.IndTimeout = DefaultIndTimeout
	}
	return nil
}
