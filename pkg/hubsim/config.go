package hubsim

import (
	"fmt"
	"os"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/senshub-protocol/senshub-go/pkg/model"
	"github.com/senshub-protocol/senshub-go/pkg/wire"
)

// SensorConfig is one roster entry in the simulator's YAML config.
type SensorConfig struct {
	DataType   string  `yaml:"data_type"`
	Vendor     string  `yaml:"vendor"`
	Name       string  `yaml:"name"`
	HwID       int64   `yaml:"hw_id"`
	MaxRate    float32 `yaml:"max_rate"`
	StreamType string  `yaml:"stream_type"`
	Passive    bool    `yaml:"passive"`

	// Suid pins the sensor identifier to a UUID. Empty assigns a
	// random one when the sensor is added.
	Suid string `yaml:"suid"`
}

// Roster is the simulator's YAML config: the list of hosted sensors.
type Roster struct {
	Sensors []SensorConfig `yaml:"sensors"`
}

// toSensor converts a roster entry, validating the enumerated fields.
func (sc *SensorConfig) toSensor() (Sensor, error) {
	if sc.DataType == "" {
		return Sensor{}, fmt.Errorf("data_type is required")
	}

	s := Sensor{
		DataType:   sc.DataType,
		Vendor:     sc.Vendor,
		Name:       sc.Name,
		HwID:       sc.HwID,
		MaxRate:    sc.MaxRate,
		Passive:    sc.Passive,
		StreamType: model.StreamTypeContinuous,
	}

	if sc.StreamType != "" {
		st, err := model.StreamTypeFromString(sc.StreamType)
		if err != nil {
			return Sensor{}, err
		}
		s.StreamType = st
	}

	if sc.Suid != "" {
		id, err := uuid.Parse(sc.Suid)
		if err != nil {
			return Sensor{}, fmt.Errorf("invalid suid: %w", err)
		}
		suid, err := wire.SUIDFromBytes(id[:])
		if err != nil {
			return Sensor{}, err
		}
		s.Suid = suid
	}

	return s, nil
}

// ParseRoster parses a YAML sensor roster.
func ParseRoster(data []byte) ([]Sensor, error) {
	var roster Roster
	if err := yaml.Unmarshal(data, &roster); err != nil {
		return nil, fmt.Errorf("parsing roster: %w", err)
	}

	sensors := make([]Sensor, 0, len(roster.Sensors))
	for i, sc := range roster.Sensors {
		s, err := sc.toSensor()
		if err != nil {
			return nil, fmt.Errorf("sensor %d: %w", i, err)
		}
		sensors = append(sensors, s)
	}
	return sensors, nil
}

// LoadRoster reads and parses a YAML sensor roster file.
func LoadRoster(path string) ([]Sensor, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading roster: %w", err)
	}
	return ParseRoster(data)
}
