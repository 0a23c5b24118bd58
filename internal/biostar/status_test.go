package biostar

import (
	"encoding/json"
	"testing"
)

func decodePayload(t *testing.T, raw string) *statusPayload {
	t.Helper()
	var p statusPayload
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	return &p
}

func TestParseStatus_ScalarMapping(t *testing.T) {
	t.Parallel()

	p := decodePayload(t, `{
		"temp": 55.2, "ext_temp": -3.5, "co2": 12.1, "fumes": 80.0,
		"fuel": 42.0, "cleaning_in": 18,
		"state": "BRENNT", "mode": 1, "name": "Biostar 15",
		"timestamp": "2026-08-30 12:00:00"
	}`)
	snap := parseStatus(p)

	checks := []struct {
		key   string
		value any
		unit  string
	}{
		{"_Température chaudière", 55.2, "°C"},
		{"_Température extérieure", -3.5, "°C"},
		{"_CO2", 12.1, "%"},
		{"_Fumées", 80.0, "%"},
		{"_Combustible", 42.0, "%"},
		{"_Nettoyage dans", 18.0, "h"},
		{"_État", "BRENNT", ""},
		{"_Mode", 1.0, ""},
		{"_Nom", "Biostar 15", ""},
		{"_Dernière mise à jour", "2026-08-30 12:00:00", ""},
	}
	for _, c := range checks {
		rec, ok := snap[c.key]
		if !ok {
			t.Errorf("missing record %q", c.key)
			continue
		}
		if rec.Value != c.value {
			t.Errorf("%q value: want %v, got %v", c.key, c.value, rec.Value)
		}
		if rec.Unit != c.unit {
			t.Errorf("%q unit: want %q, got %q", c.key, c.unit, rec.Unit)
		}
	}
	if len(snap) != len(checks) {
		t.Errorf("want %d records, got %d: %v", len(checks), len(snap), snap.Keys())
	}
}

func TestParseStatus_AbsentFieldsSkipped(t *testing.T) {
	t.Parallel()

	snap := parseStatus(decodePayload(t, `{"temp": 60.0}`))
	if len(snap) != 1 {
		t.Fatalf("want exactly 1 record, got %d: %v", len(snap), snap.Keys())
	}
}

func TestParseStatus_CircuitsAndMeta(t *testing.T) {
	t.Parallel()

	p := decodePayload(t, `{
		"meta": {"sw_version": "3.2d", "sn": 12345, "typ": "BS15", "language": "fr"},
		"heat_circ": [
			{"nr": 1, "name": "Main", "day_temp": 21.0, "night_temp": 16.0, "mode": "AUTO"},
			{"nr": 3, "day_temp": 19.5}
		],
		"water_circ": [{"name": "Boiler", "temp": 48.0, "mode": "ON"}]
	}`)
	snap := parseStatus(p)

	if v := snap["_Circuit Main - Temp jour"].Value; v != 21.0 {
		t.Errorf("day temp: want 21.0, got %v", v)
	}
	if v := snap["_Circuit Main - Temp nuit"].Value; v != 16.0 {
		t.Errorf("night temp: want 16.0, got %v", v)
	}
	if v := snap["_Circuit Main - Mode"].Value; v != "AUTO" {
		t.Errorf("mode: want AUTO, got %v", v)
	}
	// Unnamed circuit falls back to its positional index.
	if _, ok := snap["_Circuit 1 - Temp jour"]; !ok {
		t.Errorf("unnamed circuit label: missing _Circuit 1 records, keys: %v", snap.Keys())
	}
	if v := snap["_ECS Boiler - Temp"].Value; v != 48.0 {
		t.Errorf("water temp: want 48.0, got %v", v)
	}
	if v := snap["_Version firmware"].Value; v != "3.2d" {
		t.Errorf("firmware record: got %v", v)
	}

	meta := deviceMeta(p.Meta)
	if meta == nil {
		t.Fatal("deviceMeta returned nil")
	}
	if meta.SerialNumber != "12345" {
		t.Errorf("numeric serial must stringify, got %q", meta.SerialNumber)
	}
	if meta.Model != "BS15" || meta.FirmwareVersion != "3.2d" || meta.Language != "fr" {
		t.Errorf("meta fields wrong: %+v", meta)
	}

	circuits := heatingCircuits(p.HeatCirc)
	if len(circuits) != 2 {
		t.Fatalf("want 2 circuits, got %d", len(circuits))
	}
	if circuits[0].Index != 1 || circuits[0].Name != "Main" {
		t.Errorf("first circuit wrong: %+v", circuits[0])
	}
	// Device-assigned number survives even when it differs from position.
	if circuits[1].Index != 3 || circuits[1].Name != "1" {
		t.Errorf("second circuit wrong: %+v", circuits[1])
	}
	if circuits[1].NightTemp != nil {
		t.Errorf("absent night temp must stay nil, got %v", *circuits[1].NightTemp)
	}
}

func TestParseStatus_Errors(t *testing.T) {
	t.Parallel()

	snap := parseStatus(decodePayload(t, `{"error": ["E101", {"code": 7}]}`))

	if v := snap["_Erreurs actives"].Value; v != 2 {
		t.Errorf("active error count: want 2, got %v", v)
	}
	if v := snap["_Erreur 0"].Value; v != "E101" {
		t.Errorf("first error: want E101, got %v", v)
	}
	if _, ok := snap["_Erreur 1"]; !ok {
		t.Errorf("second error record missing, keys: %v", snap.Keys())
	}
}

func TestParseStatus_EmptyErrorArrayProducesNothing(t *testing.T) {
	t.Parallel()

	snap := parseStatus(decodePayload(t, `{"error": []}`))
	if len(snap) != 0 {
		t.Errorf("want empty snapshot, got %v", snap.Keys())
	}
}
