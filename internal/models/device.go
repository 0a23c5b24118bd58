package models

// DeviceMeta identifies the appliance. It is only reported by the modern
// status endpoint; on devices that never answer there it stays empty.
type DeviceMeta struct {
	FirmwareVersion string `json:"firmware_version,omitempty"`
	SerialNumber    string `json:"serial_number,omitempty"`
	Model           string `json:"model,omitempty"`
	Language        string `json:"language,omitempty"`
}

// HeatingCircuit is one independently controllable heating zone.
// Index is the device-assigned circuit number ("nr" on the wire), which is
// not necessarily the position within the reported sequence.
type HeatingCircuit struct {
	Index     int      `json:"index"`
	Name      string   `json:"name"`
	DayTemp   *float64 `json:"day_temp,omitempty"`   // °C
	NightTemp *float64 `json:"night_temp,omitempty"` // °C
	Mode      string   `json:"mode,omitempty"`
}

// TemperatureConstraints bounds the writable circuit set-points.
type TemperatureConstraints struct {
	Min  float64 `json:"min"`  // °C
	Max  float64 `json:"max"`  // °C
	Step float64 `json:"step"` // °C
}

// DefaultTemperatureConstraints applies until the device reports its own
// limits via the status endpoint.
func DefaultTemperatureConstraints() TemperatureConstraints {
	return TemperatureConstraints{Min: 15.0, Max: 30.0, Step: 0.5}
}

// Contains reports whether v is a valid set-point under the constraints.
func (c TemperatureConstraints) Contains(v float64) bool {
	return v >= c.Min && v <= c.Max
}

// TempPeriod selects the day or night set-point of a circuit.
type TempPeriod string

const (
	PeriodDay   TempPeriod = "day"
	PeriodNight TempPeriod = "night"
)

// Valid reports whether p is one of the two known periods.
func (p TempPeriod) Valid() bool {
	return p == PeriodDay || p == PeriodNight
}

// Heating program codes accepted by the appliance.
const (
	ProgramOff    = 0
	ProgramNormal = 1
	ProgramHeat   = 2
	ProgramLower  = 3
)

// ProgramNames maps program codes to their option names.
var ProgramNames = map[int]string{
	ProgramOff:    "off",
	ProgramNormal: "normal",
	ProgramHeat:   "heat",
	ProgramLower:  "lower",
}

// ProgramCodes is the reverse of ProgramNames.
var ProgramCodes = map[string]int{
	"off":    ProgramOff,
	"normal": ProgramNormal,
	"heat":   ProgramHeat,
	"lower":  ProgramLower,
}
