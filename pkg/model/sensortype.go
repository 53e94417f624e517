// Package model defines the domain vocabulary shared by the hub client
// and the simulator: sensor types, stream types, attributes, and
// configuration requests. Wire encoding lives in pkg/wire; this package
// gives those records meaning.
package model

// SensorType is the logical kind of a sensor as the client sees it.
// Several SUIDs may serve the same sensor type, and calibration types
// share a physical sensor with their base type.
type SensorType uint8

const (
	// SensorTypeUnknown is the zero value. Never sent on the wire.
	SensorTypeUnknown SensorType = 0

	// SensorTypeAccelerometer measures acceleration on three axes.
	SensorTypeAccelerometer SensorType = 1

	// SensorTypeGyroscope measures angular velocity on three axes.
	SensorTypeGyroscope SensorType = 2

	// SensorTypeMagnetometer measures magnetic field on three axes.
	SensorTypeMagnetometer SensorType = 3

	// SensorTypePressure measures barometric pressure.
	SensorTypePressure SensorType = 4

	// SensorTypeLight measures ambient illuminance.
	SensorTypeLight SensorType = 5

	// SensorTypeProximity detects nearby objects.
	SensorTypeProximity SensorType = 6

	// SensorTypeAccelCal streams accelerometer calibration bias.
	SensorTypeAccelCal SensorType = 7

	// SensorTypeGyroCal streams gyroscope calibration bias.
	SensorTypeGyroCal SensorType = 8

	// SensorTypeMagCal streams magnetometer calibration bias.
	SensorTypeMagCal SensorType = 9
)

// String returns the sensor type name.
func (s SensorType) String() string {
	switch s {
	case SensorTypeAccelerometer:
		return "Accelerometer"
	case SensorTypeGyroscope:
		return "Gyroscope"
	case SensorTypeMagnetometer:
		return "Magnetometer"
	case SensorTypePressure:
		return "Pressure"
	case SensorTypeLight:
		return "Light"
	case SensorTypeProximity:
		return "Proximity"
	case SensorTypeAccelCal:
		return "AccelCal"
	case SensorTypeGyroCal:
		return "GyroCal"
	case SensorTypeMagCal:
		return "MagCal"
	default:
		return "Unknown"
	}
}

// IsValid returns true if the sensor type is defined.
func (s SensorType) IsValid() bool {
	return s >= SensorTypeAccelerometer && s <= SensorTypeMagCal
}

// IsCalibration returns true for the calibration stream types.
func (s SensorType) IsCalibration() bool {
	switch s {
	case SensorTypeAccelCal, SensorTypeGyroCal, SensorTypeMagCal:
		return true
	default:
		return false
	}
}

// DataType returns the wire-level data type string used in discovery.
func (s SensorType) DataType() string {
	switch s {
	case SensorTypeAccelerometer:
		return "accel"
	case SensorTypeGyroscope:
		return "gyro"
	case SensorTypeMagnetometer:
		return "mag"
	case SensorTypePressure:
		return "pressure"
	case SensorTypeLight:
		return "ambient_light"
	case SensorTypeProximity:
		return "proximity"
	case SensorTypeAccelCal:
		return "accel_cal"
	case SensorTypeGyroCal:
		return "gyro_cal"
	case SensorTypeMagCal:
		return "mag_cal"
	default:
		return ""
	}
}

// SensorTypeFromDataType maps a wire-level data type string back to its
// sensor type. Unknown strings map to SensorTypeUnknown.
func SensorTypeFromDataType(dataType string) SensorType {
	switch dataType {
	case "accel":
		return SensorTypeAccelerometer
	case "gyro":
		return SensorTypeGyroscope
	case "mag":
		return SensorTypeMagnetometer
	case "pressure":
		return SensorTypePressure
	case "ambient_light":
		return SensorTypeLight
	case "proximity":
		return SensorTypeProximity
	case "accel_cal":
		return SensorTypeAccelCal
	case "gyro_cal":
		return SensorTypeGyroCal
	case "mag_cal":
		return SensorTypeMagCal
	default:
		return SensorTypeUnknown
	}
}

// CalibrationTypes lists the calibration stream types, in the order the
// client sets them up during initialization.
func CalibrationTypes() []SensorType {
	return []SensorType{SensorTypeAccelCal, SensorTypeGyroCal, SensorTypeMagCal}
}

// AxisCount returns the number of values per sample for the sensor type.
func (s SensorType) AxisCount() int {
	switch s {
	case SensorTypeAccelerometer, SensorTypeGyroscope, SensorTypeMagnetometer,
		SensorTypeAccelCal, SensorTypeGyroCal, SensorTypeMagCal:
		return 3
	case SensorTypePressure, SensorTypeLight, SensorTypeProximity:
		return 1
	default:
		return 0
	}
}
