package models

// SensorRecord is one normalized telemetry value read from the appliance.
// Value holds a bool, float64, int or string depending on what the wire
// format provided; unparseable values are kept as raw strings.
type SensorRecord struct {
	Key   string `json:"key"`
	Value any    `json:"value"`
	Unit  string `json:"unit,omitempty"` // "" means no unit
}

// Snapshot is the complete result of one refresh cycle, keyed by sensor
// label. A snapshot is built once and then replaced wholesale; it is never
// mutated after publication, so readers may hold on to it safely.
type Snapshot map[string]SensorRecord

// Keys returns the sensor labels of the snapshot (unordered).
func (s Snapshot) Keys() []string {
	keys := make([]string, 0, len(s))
	for k := range s {
		keys = append(keys, k)
	}
	return keys
}
