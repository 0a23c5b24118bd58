package biostar

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"guntamatic_bridge/internal/models"
)

// statusPayload mirrors the JSON emitted by /status.cgi. Scalar fields that
// may be absent use `any` so that presence can be told apart from a zero
// value; absent fields produce no sensor records at all.
type statusPayload struct {
	Temp       *float64 `json:"temp"`
	ExtTemp    *float64 `json:"ext_temp"`
	CO2        *float64 `json:"co2"`
	Fumes      *float64 `json:"fumes"`
	Fuel       *float64 `json:"fuel"`
	CleaningIn *float64 `json:"cleaning_in"`

	State     any `json:"state"`
	Mode      any `json:"mode"`
	Name      any `json:"name"`
	Timestamp any `json:"timestamp"`

	Meta            *statusMeta        `json:"meta"`
	HeatCirc        []statusHeatCirc   `json:"heat_circ"`
	WaterCirc       []statusWaterCirc  `json:"water_circ"`
	HeatConstraints *statusConstraints `json:"heat_constraints"`
	Errors          []any              `json:"error"`
}

type statusMeta struct {
	SWVersion any `json:"sw_version"`
	SN        any `json:"sn"`
	Typ       any `json:"typ"`
	Language  any `json:"language"`
}

type statusHeatCirc struct {
	Nr        *int     `json:"nr"`
	Name      string   `json:"name"`
	DayTemp   *float64 `json:"day_temp"`
	NightTemp *float64 `json:"night_temp"`
	Mode      any      `json:"mode"`
}

type statusWaterCirc struct {
	Name string   `json:"name"`
	Temp *float64 `json:"temp"`
	Mode any      `json:"mode"`
}

type statusConstraints struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
	Inc float64 `json:"inc"`
}

// jsonDecodable reports whether the body parses as JSON at all.
func jsonDecodable(body []byte) bool {
	return json.Valid(body)
}

// fetchStatus tries the modern status endpoint. This path is a soft
// negotiation: anything short of a 200 with decodable JSON means "not
// available" and never fails the refresh.
func (c *Client) fetchStatus(ctx context.Context) *statusPayload {
	status, body, err := c.get(ctx, statusPath, c.readParams(), defaultTimeout)
	if err != nil {
		c.log.Debugw("status_endpoint_unavailable", "err", err)
		return nil
	}
	if status != http.StatusOK {
		c.log.Debugw("status_endpoint_unavailable", "status", status)
		return nil
	}
	var payload statusPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		c.log.Debugw("status_endpoint_not_json", "err", err)
		return nil
	}
	c.log.Debugw("status_endpoint_ok")
	return &payload
}

// parseStatus flattens the status payload into normalized sensor records.
// Labels follow the device integration's fixed naming scheme.
func parseStatus(p *statusPayload) models.Snapshot {
	snap := models.Snapshot{}

	addFloat := func(key string, v *float64, unit string) {
		if v != nil {
			snap[key] = models.SensorRecord{Key: key, Value: *v, Unit: unit}
		}
	}
	addAny := func(key string, v any) {
		if v != nil {
			snap[key] = models.SensorRecord{Key: key, Value: v}
		}
	}

	addFloat("_Température chaudière", p.Temp, "°C")
	addFloat("_Température extérieure", p.ExtTemp, "°C")
	addFloat("_CO2", p.CO2, "%")
	addFloat("_Fumées", p.Fumes, "%")
	addFloat("_Combustible", p.Fuel, "%")
	addFloat("_Nettoyage dans", p.CleaningIn, "h")

	addAny("_État", p.State)
	addAny("_Mode", p.Mode)
	addAny("_Nom", p.Name)
	addAny("_Dernière mise à jour", p.Timestamp)

	if p.Meta != nil {
		addAny("_Version firmware", p.Meta.SWVersion)
		addAny("_Numéro de série", p.Meta.SN)
		addAny("_Modèle", p.Meta.Typ)
		addAny("_Langue", p.Meta.Language)
	}

	for i, circ := range p.HeatCirc {
		prefix := "_Circuit " + circuitLabel(circ.Name, i)
		addFloat(prefix+" - Temp jour", circ.DayTemp, "°C")
		addFloat(prefix+" - Temp nuit", circ.NightTemp, "°C")
		addAny(prefix+" - Mode", circ.Mode)
	}

	for i, circ := range p.WaterCirc {
		prefix := "_ECS " + circuitLabel(circ.Name, i)
		addFloat(prefix+" - Temp", circ.Temp, "°C")
		addAny(prefix+" - Mode", circ.Mode)
	}

	if len(p.Errors) > 0 {
		key := "_Erreurs actives"
		snap[key] = models.SensorRecord{Key: key, Value: len(p.Errors)}
		for i, e := range p.Errors {
			key := fmt.Sprintf("_Erreur %d", i)
			snap[key] = models.SensorRecord{Key: key, Value: fmt.Sprintf("%v", e)}
		}
	}

	return snap
}

// circuitLabel prefers the device-supplied name, falling back to the
// positional index for unnamed circuits.
func circuitLabel(name string, pos int) string {
	if name != "" {
		return name
	}
	return strconv.Itoa(pos)
}

// deviceMeta converts the meta sub-object, stringifying non-string values
// the device occasionally emits (numeric serials).
func deviceMeta(m *statusMeta) *models.DeviceMeta {
	if m == nil {
		return nil
	}
	return &models.DeviceMeta{
		FirmwareVersion: metaString(m.SWVersion),
		SerialNumber:    metaString(m.SN),
		Model:           metaString(m.Typ),
		Language:        metaString(m.Language),
	}
}

func metaString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return fmt.Sprintf("%v", t)
	}
}

// heatingCircuits converts the heat_circ array, preserving wire order.
func heatingCircuits(circs []statusHeatCirc) []models.HeatingCircuit {
	if circs == nil {
		return nil
	}
	out := make([]models.HeatingCircuit, 0, len(circs))
	for i, c := range circs {
		hc := models.HeatingCircuit{
			Name:      circuitLabel(c.Name, i),
			DayTemp:   c.DayTemp,
			NightTemp: c.NightTemp,
			Mode:      metaString(c.Mode),
		}
		if c.Nr != nil {
			hc.Index = *c.Nr
		}
		out = append(out, hc)
	}
	return out
}
