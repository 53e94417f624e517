package wire

import (
	"bytes"
	"fmt"
	"io"

	"github.com/fxamacker/cbor/v2"
)

// encMode is the CBOR encoder mode for hub frames.
// Configured for deterministic encoding with integer keys.
var encMode cbor.EncMode

// decMode is the CBOR decoder mode for hub frames.
var decMode cbor.DecMode

func init() {
	var err error

	// Configure encoder for deterministic output
	encOpts := cbor.EncOptions{
		Sort:          cbor.SortCanonical, // Deterministic key ordering
		IndefLength:   cbor.IndefLengthForbidden,
		NilContainers: cbor.NilContainerAsNull,
		Time:          cbor.TimeUnix, // Unix timestamps
	}
	encMode, err = encOpts.EncMode()
	if err != nil {
		panic(fmt.Sprintf("failed to create CBOR encoder mode: %v", err))
	}

	// Configure decoder to be lenient for forward compatibility
	decOpts := cbor.DecOptions{
		DupMapKey:         cbor.DupMapKeyQuiet, // Ignore duplicate keys (last wins)
		IndefLength:       cbor.IndefLengthAllowed,
		ExtraReturnErrors: cbor.ExtraDecErrorNone,
	}
	decMode, err = decOpts.DecMode()
	if err != nil {
		panic(fmt.Sprintf("failed to create CBOR decoder mode: %v", err))
	}
}

// Marshal encodes a value to CBOR bytes.
func Marshal(v any) ([]byte, error) {
	return encMode.Marshal(v)
}

// Unmarshal decodes CBOR bytes into a value.
func Unmarshal(data []byte, v any) error {
	return decMode.Unmarshal(data, v)
}

// NewEncoder creates a new CBOR encoder that writes to w.
func NewEncoder(w io.Writer) *cbor.Encoder {
	return encMode.NewEncoder(w)
}

// NewDecoder creates a new CBOR decoder that reads from r.
func NewDecoder(r io.Reader) *cbor.Decoder {
	return decMode.NewDecoder(r)
}

// EncodeFrame encodes a frame to CBOR bytes.
func EncodeFrame(f *Frame) ([]byte, error) {
	if err := f.Validate(); err != nil {
		return nil, fmt.Errorf("invalid frame: %w", err)
	}
	return Marshal(f)
}

// DecodeFrame decodes CBOR bytes into a frame.
func DecodeFrame(data []byte) (*Frame, error) {
	var f Frame
	if err := Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to decode frame: %w", err)
	}
	if err := f.Validate(); err != nil {
		return nil, fmt.Errorf("invalid frame: %w", err)
	}
	return &f, nil
}

// EncodeRequestFrame builds and encodes a request frame around req.
func EncodeRequestFrame(cmdID uint32, req *Request) ([]byte, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("invalid request: %w", err)
	}
	body, err := Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}
	return EncodeFrame(&Frame{Type: FrameRequest, CmdID: cmdID, Body: body})
}

// EncodeAckFrame builds and encodes an ack frame for cmdID.
func EncodeAckFrame(cmdID uint32, status Status) ([]byte, error) {
	return EncodeFrame(&Frame{Type: FrameAck, CmdID: cmdID, Status: status})
}

// EncodeReportFrame builds and encodes a report frame around rep.
func EncodeReportFrame(rep *Report) ([]byte, error) {
	if err := rep.Validate(); err != nil {
		return nil, fmt.Errorf("invalid report: %w", err)
	}
	body, err := Marshal(rep)
	if err != nil {
		return nil, fmt.Errorf("failed to encode report: %w", err)
	}
	return EncodeFrame(&Frame{Type: FrameReport, Body: body})
}

// DecodeRequest decodes a request frame body.
func DecodeRequest(data []byte) (*Request, error) {
	var req Request
	if err := Unmarshal(data, &req); err != nil {
		return nil, fmt.Errorf("failed to decode request: %w", err)
	}
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("invalid request: %w", err)
	}
	return &req, nil
}

// DecodeReport decodes a report frame body.
func DecodeReport(data []byte) (*Report, error) {
	var rep Report
	if err := Unmarshal(data, &rep); err != nil {
		return nil, fmt.Errorf("failed to decode report: %w", err)
	}
	if err := rep.Validate(); err != nil {
		return nil, fmt.Errorf("invalid report: %w", err)
	}
	return &rep, nil
}

// Clone creates a deep copy of the CBOR data by re-encoding.
// Useful for copying records without shared references.
func Clone[T any](v T) (T, error) {
	var result T
	data, err := Marshal(v)
	if err != nil {
		return result, err
	}
	err = Unmarshal(data, &result)
	return result, err
}

// Equal compares two values by their CBOR encoding.
func Equal(a, b any) bool {
	dataA, errA := Marshal(a)
	dataB, errB := Marshal(b)
	if errA != nil || errB != nil {
		return false
	}
	return bytes.Equal(dataA, dataB)
}

// DecodeRecord decodes a kind-specific payload into its typed record.
// Attribute strings are clamped to MaxAttrStringLen. Kinds that carry no
// payload decode to nil.
func DecodeRecord(kind Kind, payload []byte) (any, error) {
	switch kind {
	case KindDiscover:
		var rec DiscoverRequest
		if err := Unmarshal(payload, &rec); err != nil {
			return nil, fmt.Errorf("failed to decode discover request: %w", err)
		}
		return &rec, nil
	case KindDiscoverResult:
		var rec DiscoverResult
		if err := Unmarshal(payload, &rec); err != nil {
			return nil, fmt.Errorf("failed to decode discover result: %w", err)
		}
		return &rec, nil
	case KindAttrQuery:
		// Attribute queries carry no payload.
		return nil, nil
	case KindAttrResult:
		var rec AttrResult
		if err := Unmarshal(payload, &rec); err != nil {
			return nil, fmt.Errorf("failed to decode attr result: %w", err)
		}
		rec.Clamp()
		return &rec, nil
	case KindConfig:
		var rec ConfigCommand
		if err := Unmarshal(payload, &rec); err != nil {
			return nil, fmt.Errorf("failed to decode config command: %w", err)
		}
		return &rec, nil
	case KindConfigEvent:
		var rec ConfigEvent
		if err := Unmarshal(payload, &rec); err != nil {
			return nil, fmt.Errorf("failed to decode config event: %w", err)
		}
		return &rec, nil
	case KindSample:
		var rec SampleEvent
		if err := Unmarshal(payload, &rec); err != nil {
			return nil, fmt.Errorf("failed to decode sample event: %w", err)
		}
		return &rec, nil
	case KindBias:
		var rec BiasEvent
		if err := Unmarshal(payload, &rec); err != nil {
			return nil, fmt.Errorf("failed to decode bias event: %w", err)
		}
		return &rec, nil
	default:
		return nil, fmt.Errorf("unknown kind: %d", kind)
	}
}
