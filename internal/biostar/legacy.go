package biostar

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"golang.org/x/text/encoding/charmap"

	"guntamatic_bridge/internal/models"
)

// Locale-dependent tokens used by the legacy value stream. The device
// localizes these per its configured language; new locales are additive.
var (
	legacyTrueTokens  = map[string]struct{}{"AN": {}, "ON": {}, "MARCHE": {}}
	legacyFalseTokens = map[string]struct{}{"AUS": {}, "OFF": {}, "ARRÊT": {}}

	// Placeholder slots the device pads its DAQ table with.
	legacyExcludedKeys = map[string]struct{}{"reserved": {}, "réservé": {}, "reserviert": {}}
)

// fetchLegacy reads the paired legacy endpoints: the description stream
// first, then the value stream. Unlike the status probe, a failure here is a
// hard, typed error: legacy data may be the only source on older devices.
func (c *Client) fetchLegacy(ctx context.Context) (models.Snapshot, error) {
	desc, err := c.fetchLegacyLines(ctx, daqDescPath)
	if err != nil {
		return nil, err
	}
	values, err := c.fetchLegacyLines(ctx, daqDataPath)
	if err != nil {
		return nil, err
	}
	return parseLegacy(desc, values), nil
}

// fetchLegacyLines gets one legacy endpoint, decodes it from windows-1252
// and splits it into lines. The final line of each payload is a trailing
// artifact and is dropped before processing.
func (c *Client) fetchLegacyLines(ctx context.Context, path string) ([]string, error) {
	status, body, err := c.get(ctx, path, c.readParams(), defaultTimeout)
	if err != nil {
		return nil, &FetchError{Path: path, Err: err}
	}
	if status != http.StatusOK {
		return nil, &FetchError{Path: path, Status: status}
	}

	text, err := charmap.Windows1252.NewDecoder().String(string(body))
	if err != nil {
		return nil, &FetchError{Path: path, Err: err}
	}

	lines := strings.Split(text, "\n")
	return lines[:len(lines)-1], nil
}

// parseLegacy pairs description line i with value line i and coerces each
// pair into a typed sensor record. Extra lines on either side are ignored;
// malformed description lines skip their index without aborting the rest.
func parseLegacy(desc, values []string) models.Snapshot {
	snap := models.Snapshot{}

	n := len(desc)
	if len(values) < n {
		n = len(values)
	}

	for i := 0; i < n; i++ {
		parts := strings.Split(desc[i], ";")
		if len(parts) != 2 {
			continue
		}
		key := parts[0]
		if _, excluded := legacyExcludedKeys[strings.ToLower(key)]; excluded {
			continue
		}

		unit := strings.TrimSpace(parts[1])
		raw := strings.TrimSpace(values[i])
		snap[key] = models.SensorRecord{Key: key, Value: coerceLegacyValue(raw, unit), Unit: unit}
	}

	return snap
}

// coerceLegacyValue applies the legacy typing policy: boolean tokens first,
// then unit-driven numeric parsing, keeping the raw string whenever a parse
// fails. A single bad value never fails the whole parse.
func coerceLegacyValue(raw, unit string) any {
	if _, ok := legacyTrueTokens[raw]; ok {
		return true
	}
	if _, ok := legacyFalseTokens[raw]; ok {
		return false
	}

	switch unit {
	case "°C", "%":
		if f, err := strconv.ParseFloat(raw, 64); err == nil {
			return f
		}
	case "d", "h":
		// Counters arrive as decimals on some firmwares; truncate.
		if f, err := strconv.ParseFloat(raw, 64); err == nil {
			return int(f)
		}
	}
	return raw
}
