package hubsim

import (
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/senshub-protocol/senshub-go/pkg/metrics"
	"github.com/senshub-protocol/senshub-go/pkg/trace"
	"github.com/senshub-protocol/senshub-go/pkg/transport"
	"github.com/senshub-protocol/senshub-go/pkg/wire"
)

// Config configures a simulated hub.
type Config struct {
	// MaxMessageSize is the maximum frame size (default: 64KB).
	MaxMessageSize uint32

	// Logger for debug output. Optional.
	Logger *slog.Logger

	// Trace receives protocol capture events. Optional.
	Trace trace.Logger

	// Metrics receives Prometheus instrumentation. Optional.
	Metrics *metrics.HubMetrics
}

// Hub hosts simulated sensors behind the hub protocol. Connections are
// served either from the TCP listener started by Start or directly
// through ServeConn.
type Hub struct {
	config Config

	mu       sync.RWMutex
	sensors  []*Sensor
	conns    map[*hubConn]struct{}
	listener net.Listener
	closed   bool

	wg sync.WaitGroup
}

// New creates a hub with an empty sensor roster.
func New(config Config) *Hub {
	if config.MaxMessageSize == 0 {
		config.MaxMessageSize = transport.DefaultMaxMessageSize
	}
	return &Hub{
		config: config,
		conns:  make(map[*hubConn]struct{}),
	}
}

// AddSensor adds a sensor to the roster and returns its SUID, assigning
// a random one if the sensor does not pin it. Sensors without a maximum
// rate get DefaultMaxRate.
func (h *Hub) AddSensor(s Sensor) wire.SUID {
	if s.Suid.IsZero() {
		s.Suid = RandomSUID()
	}
	if s.MaxRate <= 0 {
		s.MaxRate = DefaultMaxRate
	}

	h.mu.Lock()
	h.sensors = append(h.sensors, &s)
	h.mu.Unlock()

	return s.Suid
}

// Sensors returns a snapshot of the roster.
func (h *Hub) Sensors() []Sensor {
	h.mu.RLock()
	defer h.mu.RUnlock()

	out := make([]Sensor, 0, len(h.sensors))
	for _, s := range h.sensors {
		out = append(out, *s)
	}
	return out
}

// sensorBySuid returns the sensor with the given SUID, or nil.
func (h *Hub) sensorBySuid(suid wire.SUID) *Sensor {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, s := range h.sensors {
		if s.Suid == suid {
			return s
		}
	}
	return nil
}

// suidsFor returns the encoded SUIDs of the sensors with the given
// data type.
func (h *Hub) suidsFor(dataType string) [][]byte {
	h.mu.RLock()
	defer h.mu.RUnlock()

	var suids [][]byte
	for _, s := range h.sensors {
		if s.DataType == dataType {
			suids = append(suids, s.Suid.Bytes())
		}
	}
	return suids
}

// Start listens on the given TCP address and serves connections until
// Close. Use "127.0.0.1:0" to pick a free port.
func (h *Hub) Start(address string) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return fmt.Errorf("hub is closed")
	}
	if h.listener != nil {
		return fmt.Errorf("hub already started")
	}

	listener, err := net.Listen("tcp", address)
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}
	h.listener = listener

	h.wg.Add(1)
	go h.acceptLoop(listener)

	return nil
}

// Addr returns the listen address, or nil before Start.
func (h *Hub) Addr() net.Addr {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if h.listener == nil {
		return nil
	}
	return h.listener.Addr()
}

// Close stops the listener, drops all connections, and stops their
// sample streams. Safe to call more than once.
func (h *Hub) Close() error {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil
	}
	h.closed = true
	listener := h.listener
	conns := make([]*hubConn, 0, len(h.conns))
	for c := range h.conns {
		conns = append(conns, c)
	}
	h.mu.Unlock()

	if listener != nil {
		listener.Close()
	}
	for _, c := range conns {
		c.close()
	}

	h.wg.Wait()
	return nil
}

// ServeConn serves one framed connection until the peer disconnects or
// the hub closes. It may be called directly for in-process
// connections, typically as the acceptor of a transport.PipeTransport.
func (h *Hub) ServeConn(conn net.Conn) {
	c := newHubConn(h, conn)

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		conn.Close()
		return
	}
	h.conns[c] = struct{}{}
	h.mu.Unlock()

	h.config.Metrics.ConnOpened()
	h.traceConnState(c, "", "CONNECTED")

	c.serve()

	h.mu.Lock()
	delete(h.conns, c)
	h.mu.Unlock()

	h.config.Metrics.ConnClosed()
	h.traceConnState(c, "CONNECTED", "DISCONNECTED")
}

// acceptLoop accepts incoming connections until the listener closes.
func (h *Hub) acceptLoop(listener net.Listener) {
	defer h.wg.Done()

	for {
		conn, err := listener.Accept()
		if err != nil {
			if h.isClosed() {
				return
			}
			h.debugLog("accept failed", "error", err)
			continue
		}

		h.wg.Add(1)
		go func() {
			defer h.wg.Done()
			h.ServeConn(conn)
		}()
	}
}

func (h *Hub) isClosed() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.closed
}

// debugLog logs when a logger is configured.
func (h *Hub) debugLog(msg string, args ...any) {
	if h.config.Logger != nil {
		h.config.Logger.Debug(msg, args...)
	}
}

// traceConnState emits a connection state change event.
func (h *Hub) traceConnState(c *hubConn, from, to string) {
	if h.config.Trace == nil {
		return
	}

	remote := ""
	if addr := c.conn.RemoteAddr(); addr != nil {
		remote = addr.String()
	}

	h.config.Trace.Log(trace.Event{
		Timestamp:    time.Now(),
		ConnectionID: c.connID,
		Layer:        trace.LayerTransport,
		Category:     trace.CategoryState,
		RemoteAddr:   remote,
		StateChange: &trace.StateChangeEvent{
			Entity:   trace.StateEntityConnection,
			OldState: from,
			NewState: to,
		},
	})
}
