// Package natstransport carries the hub protocol over NATS subjects:
// commands as request/reply exchanges where the reply is the ack frame,
// and reports as published indications on a per-client subject. A
// Bridge exposes a connection-oriented hub, typically hubsim, to NATS
// clients.
package natstransport
