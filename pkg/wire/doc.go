// Package wire defines the CBOR wire format types for the sensor-hub
// protocol.
//
// The protocol uses CBOR (RFC 8949) with integer keys for efficient
// encoding. On stream transports every message is carried in a
// length-prefixed frame.
//
// # Frame Types
//
// There are three frame shapes:
//   - Request: host to hub, a command addressed to one sensor
//   - Ack: hub to host, the transport-level acknowledgement of a request
//   - Report: hub to host, an unsolicited indication
//
// Requests carry a command ID for ack correlation; reports carry none.
// Everything the hub has to say beyond the immediate ack (discovery
// results, attribute values, configuration events, sensor samples)
// arrives as a report.
//
// # Envelope and Records
//
// A report body is an envelope {suid, kind, payload}. The payload is an
// opaque record whose schema is selected by the kind; DecodeRecord maps a
// (kind, payload) pair to its typed record.
//
// # CBOR Integer Keys
//
// All maps use integer keys for compactness. The key mappings are
// documented on each message type.
package wire
