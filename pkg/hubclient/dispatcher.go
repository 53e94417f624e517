package hubclient

import (
	"time"

	"github.com/senshub-protocol/senshub-go/pkg/metrics"
	"github.com/senshub-protocol/senshub-go/pkg/trace"
	"github.com/senshub-protocol/senshub-go/pkg/transport"
	"github.com/senshub-protocol/senshub-go/pkg/wire"
)

// handleIndication is the single entry point for inbound reports from
// every handle the client holds. It runs on the transport's reader
// goroutine. A report either satisfies the armed pending slot
// (consumed, not forwarded) or fans out to the event callback once per
// logical type registered for the reporting SUID. Reports from
// unregistered SUIDs are dropped without error: sensors may emit before
// their registration completes. Decode failures are counted and
// dropped, never fatal.
func (c *Client) handleIndication(h transport.Handle, body []byte) {
	rep, err := wire.DecodeReport(body)
	if err != nil {
		c.config.Metrics.RecordIndication(metrics.OutcomeDecodeError)
		c.traceDecodeError("report envelope", err)
		c.debugLog("dropping undecodable report", "error", err)
		return
	}

	suid, err := wire.SUIDFromBytes(rep.Suid)
	if err != nil {
		c.config.Metrics.RecordIndication(metrics.OutcomeDecodeError)
		c.traceDecodeError("report suid", err)
		c.debugLog("dropping report with bad suid", "error", err)
		return
	}

	record, err := wire.DecodeRecord(rep.Kind, rep.Payload)
	if err != nil {
		c.config.Metrics.RecordIndication(metrics.OutcomeDecodeError)
		c.traceDecodeError(rep.Kind.String()+" payload", err)
		c.debugLog("dropping undecodable payload", "kind", rep.Kind.String(), "suid", suid.String(), "error", err)
		return
	}

	if c.tracker.Satisfy(suid, rep.Kind, record) {
		c.config.Metrics.RecordIndication(metrics.OutcomeConsumed)
		c.traceReport(suid, rep.Kind, true)
		return
	}

	types := c.registry.TypesFor(suid)
	if len(types) == 0 {
		c.config.Metrics.RecordIndication(metrics.OutcomeDropped)
		return
	}

	c.config.Metrics.RecordIndication(metrics.OutcomeForwarded)
	c.traceReport(suid, rep.Kind, false)

	if c.config.OnEvent == nil {
		return
	}
	for _, sensorType := range types {
		c.config.OnEvent(sensorType, record)
	}
}

// traceReport captures a dispatched report.
func (c *Client) traceReport(suid wire.SUID, kind wire.Kind, consumed bool) {
	if c.config.Trace == nil {
		return
	}
	c.config.Trace.Log(trace.Event{
		Timestamp:    time.Now(),
		ConnectionID: c.id,
		Direction:    trace.DirectionIn,
		Layer:        trace.LayerClient,
		Category:     trace.CategoryMessage,
		Report: &trace.ReportEvent{
			Suid:     suid.String(),
			Kind:     kind,
			Consumed: consumed,
		},
	})
}

// traceDecodeError captures a dropped, undecodable indication.
func (c *Client) traceDecodeError(context string, err error) {
	if c.config.Trace == nil {
		return
	}
	c.config.Trace.Log(trace.Event{
		Timestamp:    time.Now(),
		ConnectionID: c.id,
		Direction:    trace.DirectionIn,
		Layer:        trace.LayerClient,
		Category:     trace.CategoryError,
		Error: &trace.ErrorEventData{
			Layer:   trace.LayerClient,
			Message: err.Error(),
			Context: context,
		},
	})
}
