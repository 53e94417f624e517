package hubsim

import (
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/senshub-protocol/senshub-go/pkg/model"
	"github.com/senshub-protocol/senshub-go/pkg/wire"
)

// DefaultMaxRate is the advertised maximum sample rate in Hz for
// sensors that do not specify one.
const DefaultMaxRate float32 = 100

// Sensor describes one simulated sensor hosted by the hub.
type Sensor struct {
	// Suid identifies the sensor. Zero means AddSensor assigns a
	// random one.
	Suid wire.SUID

	// DataType is the advertised data type, e.g. "accel".
	DataType string

	Vendor string
	Name   string
	HwID   int64

	// MaxRate is the maximum sample rate in Hz. Configuration commands
	// above it are rejected.
	MaxRate float32

	// StreamType determines when the sensor reports: continuous
	// sensors tick at the configured rate, the others report once on
	// enable.
	StreamType model.StreamType

	// Passive marks the sensor as supporting passive requests.
	Passive bool
}

// RandomSUID returns a sensor identifier derived from a random UUID.
func RandomSUID() wire.SUID {
	id := uuid.New()
	suid, _ := wire.SUIDFromBytes(id[:])
	return suid
}

// attrResult builds the sensor's attribute record, clamped to the wire
// limits.
func (s *Sensor) attrResult() *wire.AttrResult {
	rec := &wire.AttrResult{
		Vendor:        s.Vendor,
		Name:          s.Name,
		Type:          s.DataType,
		HwID:          s.HwID,
		MaxSampleRate: s.MaxRate,
		StreamType:    uint8(s.StreamType),
		Passive:       s.Passive,
	}
	rec.Clamp()
	return rec
}

// isCalibration reports whether the sensor emits bias estimates
// instead of samples.
func (s *Sensor) isCalibration() bool {
	return model.SensorTypeFromDataType(s.DataType).IsCalibration()
}

// axisCount returns the number of values per sample. Data types the
// model does not know get a single axis.
func (s *Sensor) axisCount() int {
	if n := model.SensorTypeFromDataType(s.DataType).AxisCount(); n > 0 {
		return n
	}
	return 1
}

// sampleValues synthesizes one sample: a sine per axis, phase shifted
// so the axes are distinguishable.
func (s *Sensor) sampleValues(seq uint64) []float32 {
	values := make([]float32, s.axisCount())
	phase := 2 * math.Pi * float64(seq%64) / 64
	for i := range values {
		values[i] = float32(math.Sin(phase + float64(i)*math.Pi/4))
	}
	return values
}

// sampleReport builds the sensor's periodic report: samples for
// physical sensors, bias estimates for calibration sensors.
func (s *Sensor) sampleReport(seq uint64) (wire.Kind, any) {
	now := uint64(time.Now().UnixNano())
	if s.isCalibration() {
		bias := s.sampleValues(seq)
		for i := range bias {
			bias[i] *= 0.01
		}
		return wire.KindBias, &wire.BiasEvent{Timestamp: now, Bias: bias, Accuracy: 3}
	}
	return wire.KindSample, &wire.SampleEvent{Timestamp: now, Values: s.sampleValues(seq)}
}
