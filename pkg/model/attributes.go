package model

import (
	"fmt"

	"github.com/senshub-protocol/senshub-go/pkg/wire"
)

// StreamType describes how a sensor produces reports.
type StreamType uint8

const (
	// StreamTypeUnknown is the zero value.
	StreamTypeUnknown StreamType = 0

	// StreamTypeContinuous sensors sample at the configured rate.
	StreamTypeContinuous StreamType = 1

	// StreamTypeOnChange sensors report when the value changes.
	StreamTypeOnChange StreamType = 2

	// StreamTypeSingleOutput sensors report once per request.
	StreamTypeSingleOutput StreamType = 3
)

// String returns the stream type name.
func (s StreamType) String() string {
	switch s {
	case StreamTypeContinuous:
		return "continuous"
	case StreamTypeOnChange:
		return "on-change"
	case StreamTypeSingleOutput:
		return "single-output"
	default:
		return "unknown"
	}
}

// StreamTypeFromString parses a stream type name as produced by String.
func StreamTypeFromString(s string) (StreamType, error) {
	switch s {
	case "continuous":
		return StreamTypeContinuous, nil
	case "on-change":
		return StreamTypeOnChange, nil
	case "single-output":
		return StreamTypeSingleOutput, nil
	default:
		return StreamTypeUnknown, fmt.Errorf("unknown stream type %q", s)
	}
}

// Attributes describes one sensor as reported by the hub. String fields
// are bounded by wire.MaxAttrStringLen.
type Attributes struct {
	Vendor        string
	Name          string
	Type          string
	HwID          int64
	MaxSampleRate float32
	StreamType    StreamType
	Passive       bool
}

// AttributesFromWire converts a decoded attribute record to its domain
// form. Strings are clamped again in case the record bypassed the codec.
func AttributesFromWire(rec *wire.AttrResult) Attributes {
	return Attributes{
		Vendor:        wire.ClampAttrString(rec.Vendor),
		Name:          wire.ClampAttrString(rec.Name),
		Type:          wire.ClampAttrString(rec.Type),
		HwID:          rec.HwID,
		MaxSampleRate: rec.MaxSampleRate,
		StreamType:    StreamType(rec.StreamType),
		Passive:       rec.Passive,
	}
}

// ToWire converts the attributes to their wire record.
func (a Attributes) ToWire() *wire.AttrResult {
	return &wire.AttrResult{
		Vendor:        wire.ClampAttrString(a.Vendor),
		Name:          wire.ClampAttrString(a.Name),
		Type:          wire.ClampAttrString(a.Type),
		HwID:          a.HwID,
		MaxSampleRate: a.MaxSampleRate,
		StreamType:    uint8(a.StreamType),
		Passive:       a.Passive,
	}
}

// SensorRequest is a client's desired operating point for one sensor
// type. Enable false turns the sensor off regardless of the other
// fields.
type SensorRequest struct {
	SensorType    SensorType
	Enable        bool
	Passive       bool
	SampleRateHz  float32
	BatchPeriodUs uint32
}

// Validate checks if the request is well formed.
func (r *SensorRequest) Validate() error {
	if !r.SensorType.IsValid() {
		return fmt.Errorf("invalid sensor type: %d", r.SensorType)
	}
	if r.SampleRateHz < 0 {
		return fmt.Errorf("negative sample rate: %f", r.SampleRateHz)
	}
	return nil
}

// ToWire converts the request to its wire command.
func (r *SensorRequest) ToWire() *wire.ConfigCommand {
	return &wire.ConfigCommand{
		Enable:        r.Enable,
		Passive:       r.Passive,
		SampleRateHz:  r.SampleRateHz,
		BatchPeriodUs: r.BatchPeriodUs,
	}
}
