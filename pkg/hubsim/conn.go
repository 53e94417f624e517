package hubsim

import (
	"net"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/senshub-protocol/senshub-go/pkg/model"
	"github.com/senshub-protocol/senshub-go/pkg/transport"
	"github.com/senshub-protocol/senshub-go/pkg/wire"
)

// hubConn serves one client connection: it decodes request frames,
// answers with acks and result reports, and runs the connection's
// sample streams.
type hubConn struct {
	hub    *Hub
	conn   net.Conn
	framer *transport.Framer
	connID string

	mu      sync.Mutex
	streams map[wire.SUID]chan struct{} // per-sensor stop channels
	closed  bool

	streamWg sync.WaitGroup
}

func newHubConn(h *Hub, conn net.Conn) *hubConn {
	connID := uuid.New().String()

	framer := transport.NewFramerWithMaxSize(conn, h.config.MaxMessageSize)
	if h.config.Trace != nil {
		framer.SetTrace(h.config.Trace, connID)
	}

	return &hubConn{
		hub:     h,
		conn:    conn,
		framer:  framer,
		connID:  connID,
		streams: make(map[wire.SUID]chan struct{}),
	}
}

// serve reads frames until the connection drops, then stops the sample
// streams it started.
func (c *hubConn) serve() {
	defer func() {
		c.close()
		c.streamWg.Wait()
	}()

	for {
		data, err := c.framer.ReadFrame()
		if err != nil {
			return
		}

		frame, err := wire.DecodeFrame(data)
		if err != nil {
			c.hub.debugLog("dropping undecodable frame", "error", err)
			continue
		}
		if frame.Type != wire.FrameRequest {
			// The hub only consumes requests.
			continue
		}

		c.handleRequest(frame)
	}
}

// close drops the connection and stops all streams. Safe to call more
// than once.
func (c *hubConn) close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	for suid, stop := range c.streams {
		close(stop)
		delete(c.streams, suid)
	}
	c.mu.Unlock()

	c.conn.Close()
}

// handleRequest answers one command: an immediate ack with the verdict,
// then the result report where the kind has one.
func (c *hubConn) handleRequest(frame *wire.Frame) {
	req, err := wire.DecodeRequest(frame.Body)
	if err != nil {
		c.hub.debugLog("rejecting malformed request", "cmdId", frame.CmdID, "error", err)
		c.sendAck(frame.CmdID, wire.StatusBadRequest)
		return
	}

	c.hub.config.Metrics.RecordCommand(req.Kind)

	suid, err := wire.SUIDFromBytes(req.Suid)
	if err != nil {
		c.sendAck(frame.CmdID, wire.StatusBadRequest)
		return
	}

	switch req.Kind {
	case wire.KindDiscover:
		c.handleDiscover(frame.CmdID, suid, req.Payload)
	case wire.KindAttrQuery:
		c.handleAttrQuery(frame.CmdID, suid)
	case wire.KindConfig:
		c.handleConfig(frame.CmdID, suid, req.Payload)
	default:
		c.sendAck(frame.CmdID, wire.StatusUnsupported)
	}
}

// handleDiscover answers a discovery request addressed to the lookup
// service with the SUIDs matching the requested data type. An empty
// result is still a result.
func (c *hubConn) handleDiscover(cmdID uint32, suid wire.SUID, payload []byte) {
	if suid != wire.LookupSUID {
		c.sendAck(cmdID, wire.StatusUnknownSensor)
		return
	}

	var req wire.DiscoverRequest
	if err := wire.Unmarshal(payload, &req); err != nil {
		c.sendAck(cmdID, wire.StatusBadRequest)
		return
	}

	c.sendAck(cmdID, wire.StatusSuccess)
	c.sendReport(wire.LookupSUID, wire.KindDiscoverResult, &wire.DiscoverResult{
		DataType: req.DataType,
		Suids:    c.hub.suidsFor(req.DataType),
	})
}

// handleAttrQuery answers an attribute query with the sensor's record.
func (c *hubConn) handleAttrQuery(cmdID uint32, suid wire.SUID) {
	sensor := c.hub.sensorBySuid(suid)
	if sensor == nil {
		c.sendAck(cmdID, wire.StatusUnknownSensor)
		return
	}

	c.sendAck(cmdID, wire.StatusSuccess)
	c.sendReport(suid, wire.KindAttrResult, sensor.attrResult())
}

// handleConfig applies a configuration command: ack the verdict, report
// the applied operating point, and manage the sensor's sample stream.
func (c *hubConn) handleConfig(cmdID uint32, suid wire.SUID, payload []byte) {
	sensor := c.hub.sensorBySuid(suid)
	if sensor == nil {
		c.sendAck(cmdID, wire.StatusUnknownSensor)
		return
	}

	var cmd wire.ConfigCommand
	if err := wire.Unmarshal(payload, &cmd); err != nil {
		c.sendAck(cmdID, wire.StatusBadRequest)
		return
	}
	if cmd.Enable && cmd.SampleRateHz > sensor.MaxRate {
		c.sendAck(cmdID, wire.StatusBadRequest)
		return
	}

	c.sendAck(cmdID, wire.StatusSuccess)
	c.sendReport(suid, wire.KindConfigEvent, &wire.ConfigEvent{
		Enabled:       cmd.Enable,
		SampleRateHz:  cmd.SampleRateHz,
		BatchPeriodUs: cmd.BatchPeriodUs,
	})

	switch {
	case !cmd.Enable:
		c.stopStream(suid)
	case sensor.StreamType == model.StreamTypeContinuous && cmd.SampleRateHz > 0:
		c.startStream(sensor, cmd.SampleRateHz)
	default:
		// On-change and single-output sensors, and continuous sensors
		// enabled without a rate, report their current state once.
		c.stopStream(suid)
		c.emitReport(sensor, 0)
	}
}

// startStream starts or restarts the sensor's sample ticker.
func (c *hubConn) startStream(sensor *Sensor, rateHz float32) {
	interval := time.Duration(float64(time.Second) / float64(rateHz))
	if interval <= 0 {
		interval = time.Millisecond
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	if stop, ok := c.streams[sensor.Suid]; ok {
		close(stop)
	}
	stop := make(chan struct{})
	c.streams[sensor.Suid] = stop
	c.streamWg.Add(1)
	c.mu.Unlock()

	go c.runStream(sensor, interval, stop)
}

// stopStream stops the sensor's sample ticker if one is running.
func (c *hubConn) stopStream(suid wire.SUID) {
	c.mu.Lock()
	if stop, ok := c.streams[suid]; ok {
		close(stop)
		delete(c.streams, suid)
	}
	c.mu.Unlock()
}

// runStream emits reports at the configured interval until stopped.
func (c *hubConn) runStream(sensor *Sensor, interval time.Duration, stop chan struct{}) {
	defer c.streamWg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var seq uint64
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			c.emitReport(sensor, seq)
			seq++
		}
	}
}

// emitReport sends one sample or bias report for the sensor.
func (c *hubConn) emitReport(sensor *Sensor, seq uint64) {
	kind, rec := sensor.sampleReport(seq)
	c.sendReport(sensor.Suid, kind, rec)
	if kind == wire.KindSample {
		c.hub.config.Metrics.RecordSample()
	}
}

// sendAck writes an ack frame carrying the command verdict.
func (c *hubConn) sendAck(cmdID uint32, status wire.Status) {
	data, err := wire.EncodeAckFrame(cmdID, status)
	if err != nil {
		c.hub.debugLog("failed to encode ack", "cmdId", cmdID, "error", err)
		return
	}
	if err := c.framer.WriteFrame(data); err != nil {
		c.hub.debugLog("failed to send ack", "cmdId", cmdID, "error", err)
	}
}

// sendReport encodes rec and writes it as a report frame from suid.
func (c *hubConn) sendReport(suid wire.SUID, kind wire.Kind, rec any) {
	payload, err := wire.Marshal(rec)
	if err != nil {
		c.hub.debugLog("failed to encode report", "kind", kind, "error", err)
		return
	}

	data, err := wire.EncodeReportFrame(&wire.Report{
		Suid:    suid.Bytes(),
		Kind:    kind,
		Payload: payload,
	})
	if err != nil {
		c.hub.debugLog("failed to encode report frame", "kind", kind, "error", err)
		return
	}

	if err := c.framer.WriteFrame(data); err != nil {
		c.hub.debugLog("failed to send report", "kind", kind, "error", err)
	}
}
