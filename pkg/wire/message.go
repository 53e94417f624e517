package wire

import (
	"fmt"
)

// FrameType discriminates the three frame shapes on a hub connection.
type FrameType uint8

const (
	// FrameRequest carries a command from client to hub.
	FrameRequest FrameType = 1

	// FrameAck carries the hub's immediate verdict on a command.
	FrameAck FrameType = 2

	// FrameReport carries an unsolicited report from hub to client.
	FrameReport FrameType = 3
)

// String returns the frame type name.
func (t FrameType) String() string {
	switch t {
	case FrameRequest:
		return "request"
	case FrameAck:
		return "ack"
	case FrameReport:
		return "report"
	default:
		return "unknown"
	}
}

// IsValid returns true if the frame type is defined.
func (t FrameType) IsValid() bool {
	return t >= FrameRequest && t <= FrameReport
}

// Frame is the outermost envelope on a hub connection. Every frame is a
// CBOR map with integer keys.
//
// CBOR encoding:
//
//	{
//	  1: type,    // uint8: 1=request, 2=ack, 3=report
//	  2: cmdId,   // uint32: request/ack correlation, absent on reports
//	  3: status,  // uint8: ack verdict, absent otherwise
//	  4: body     // encoded Request or Report, absent on acks
//	}
type Frame struct {
	Type   FrameType `cbor:"1,keyasint"`
	CmdID  uint32    `cbor:"2,keyasint,omitempty"`
	Status Status    `cbor:"3,keyasint,omitempty"`
	Body   []byte    `cbor:"4,keyasint,omitempty"`
}

// Validate checks if the frame is well formed for its type.
func (f *Frame) Validate() error {
	if !f.Type.IsValid() {
		return fmt.Errorf("invalid frame type: %d", f.Type)
	}
	switch f.Type {
	case FrameRequest:
		if f.CmdID == 0 {
			return fmt.Errorf("request frame without cmdId")
		}
		if len(f.Body) == 0 {
			return fmt.Errorf("request frame without body")
		}
	case FrameAck:
		if f.CmdID == 0 {
			return fmt.Errorf("ack frame without cmdId")
		}
	case FrameReport:
		if len(f.Body) == 0 {
			return fmt.Errorf("report frame without body")
		}
	}
	return nil
}

// Request is the body of a request frame: a command addressed to one
// SUID. Discovery requests are addressed to LookupSUID.
//
// CBOR encoding:
//
//	{
//	  1: suid,     // 16-byte SUID
//	  2: kind,     // uint16: payload schema
//	  3: payload   // kind-specific record, absent if the kind has none
//	}
type Request struct {
	Suid    []byte `cbor:"1,keyasint"`
	Kind    Kind   `cbor:"2,keyasint"`
	Payload []byte `cbor:"3,keyasint,omitempty"`
}

// Validate checks if the request is well formed.
func (r *Request) Validate() error {
	if len(r.Suid) != SUIDSize {
		return fmt.Errorf("invalid SUID length: %d", len(r.Suid))
	}
	if !r.Kind.IsValid() {
		return fmt.Errorf("invalid kind: %d", r.Kind)
	}
	return nil
}

// Report is the body of a report frame: an unsolicited record from one
// SUID. Discovery results carry LookupSUID.
//
// CBOR encoding mirrors Request:
//
//	{
//	  1: suid,     // 16-byte SUID of the reporting sensor
//	  2: kind,     // uint16: payload schema
//	  3: payload   // kind-specific record
//	}
type Report struct {
	Suid    []byte `cbor:"1,keyasint"`
	Kind    Kind   `cbor:"2,keyasint"`
	Payload []byte `cbor:"3,keyasint,omitempty"`
}

// Validate checks if the report is well formed.
func (r *Report) Validate() error {
	if len(r.Suid) != SUIDSize {
		return fmt.Errorf("invalid SUID length: %d", len(r.Suid))
	}
	if !r.Kind.IsValid() {
		return fmt.Errorf("invalid kind: %d", r.Kind)
	}
	return nil
}

// MaxAttrStringLen is the longest attribute string the protocol carries.
// Longer values are truncated on decode.
const MaxAttrStringLen = 64

// ClampAttrString truncates s to MaxAttrStringLen bytes.
func ClampAttrString(s string) string {
	if len(s) <= MaxAttrStringLen {
		return s
	}
	return s[:MaxAttrStringLen]
}

// DiscoverRequest asks the lookup service which SUIDs support a data type.
//
// CBOR encoding:
//
//	{
//	  1: dataType  // string, e.g. "accel"
//	}
type DiscoverRequest struct {
	DataType string `cbor:"1,keyasint"`
}

// DiscoverResult reports the SUIDs found for a data type. An empty SUID
// list is a valid result: the hub knows the data type but has no sensor
// for it.
//
// CBOR encoding:
//
//	{
//	  1: dataType,  // string: echoes the request
//	  2: suids      // array of 16-byte SUIDs
//	}
type DiscoverResult struct {
	DataType string   `cbor:"1,keyasint"`
	Suids    [][]byte `cbor:"2,keyasint,omitempty"`
}

// AttrResult reports a sensor's attributes. String fields are clamped to
// MaxAttrStringLen on decode.
//
// CBOR encoding:
//
//	{
//	  1: vendor,         // string
//	  2: name,           // string
//	  3: type,           // string: data type, e.g. "accel"
//	  4: hwId,           // int64: hardware instance
//	  5: maxSampleRate,  // float32: Hz
//	  6: streamType,     // uint8
//	  7: passive         // bool: supports passive requests
//	}
type AttrResult struct {
	Vendor        string  `cbor:"1,keyasint,omitempty"`
	Name          string  `cbor:"2,keyasint,omitempty"`
	Type          string  `cbor:"3,keyasint,omitempty"`
	HwID          int64   `cbor:"4,keyasint,omitempty"`
	MaxSampleRate float32 `cbor:"5,keyasint,omitempty"`
	StreamType    uint8   `cbor:"6,keyasint,omitempty"`
	Passive       bool    `cbor:"7,keyasint,omitempty"`
}

// Clamp truncates the attribute strings to MaxAttrStringLen in place.
func (a *AttrResult) Clamp() {
	a.Vendor = ClampAttrString(a.Vendor)
	a.Name = ClampAttrString(a.Name)
	a.Type = ClampAttrString(a.Type)
}

// ConfigCommand sets a sensor's operating point.
//
// CBOR encoding:
//
//	{
//	  1: enable,         // bool: false disables the sensor
//	  2: passive,        // bool: piggyback on other clients' rates
//	  3: sampleRateHz,   // float32
//	  4: batchPeriodUs   // uint32: max report latency
//	}
type ConfigCommand struct {
	Enable        bool    `cbor:"1,keyasint"`
	Passive       bool    `cbor:"2,keyasint,omitempty"`
	SampleRateHz  float32 `cbor:"3,keyasint,omitempty"`
	BatchPeriodUs uint32  `cbor:"4,keyasint,omitempty"`
}

// ConfigEvent reports the operating point a sensor actually applied,
// which may differ from the commanded one.
//
// CBOR encoding:
//
//	{
//	  1: enabled,        // bool
//	  2: sampleRateHz,   // float32
//	  3: batchPeriodUs   // uint32
//	}
type ConfigEvent struct {
	Enabled       bool    `cbor:"1,keyasint"`
	SampleRateHz  float32 `cbor:"2,keyasint,omitempty"`
	BatchPeriodUs uint32  `cbor:"3,keyasint,omitempty"`
}

// SampleEvent reports one sensor sample.
//
// CBOR encoding:
//
//	{
//	  1: timestamp,  // uint64: nanoseconds, hub clock
//	  2: values      // array of float32, axis count per sensor type
//	}
type SampleEvent struct {
	Timestamp uint64    `cbor:"1,keyasint"`
	Values    []float32 `cbor:"2,keyasint,omitempty"`
}

// BiasEvent reports a calibration bias estimate for a three-axis sensor.
//
// CBOR encoding:
//
//	{
//	  1: timestamp,  // uint64: nanoseconds, hub clock
//	  2: bias,       // array of float32
//	  3: accuracy    // uint8: 0=unreliable .. 3=high
//	}
type BiasEvent struct {
	Timestamp uint64    `cbor:"1,keyasint"`
	Bias      []float32 `cbor:"2,keyasint,omitempty"`
	Accuracy  uint8     `cbor:"3,keyasint,omitempty"`
}
