// Package transport provides framed connections to a sensor hub.
//
// A Transport opens logical connections (Handles) to the hub. Each Handle
// carries commands from the client and delivers two kinds of traffic back:
// immediate per-command acks, correlated by command ID, and unsolicited
// report frames, delivered to the IndicationHandler on the reader goroutine.
//
// Handle.Send blocks until the hub acks the command or the context
// expires. Results of a command (attributes, discovery hits) arrive later
// as reports; correlating them is the caller's concern.
//
// Two implementations live here: TCPTransport dials a framed TCP
// connection and waits for the hub service to come up with exponential
// backoff, and PipeTransport serves in-process connections for tests.
// A NATS-backed implementation lives in the natstransport subpackage.
package transport
