package biostar

import (
	"context"

	"guntamatic_bridge/internal/models"
)

// FetchResult is the outcome of one full refresh. Meta, Circuits and
// Constraints are nil when the status endpoint did not deliver them, so the
// caller can keep its previously cached values.
type FetchResult struct {
	Snapshot    models.Snapshot
	Meta        *models.DeviceMeta
	Circuits    []models.HeatingCircuit
	Constraints *models.TemperatureConstraints
}

// FetchData performs the two-generation negotiation: try the modern status
// endpoint (soft), always attempt the legacy pair, and merge without letting
// legacy entries clobber status-sourced keys. Legacy failure is fatal only
// when the status endpoint produced nothing either.
func (c *Client) FetchData(ctx context.Context) (*FetchResult, error) {
	res := &FetchResult{Snapshot: models.Snapshot{}}

	if payload := c.fetchStatus(ctx); payload != nil {
		res.Meta = deviceMeta(payload.Meta)
		res.Circuits = heatingCircuits(payload.HeatCirc)
		if payload.HeatConstraints != nil {
			res.Constraints = &models.TemperatureConstraints{
				Min:  payload.HeatConstraints.Min,
				Max:  payload.HeatConstraints.Max,
				Step: payload.HeatConstraints.Inc,
			}
		}
		res.Snapshot = parseStatus(payload)
	}

	legacy, err := c.fetchLegacy(ctx)
	if err != nil {
		if len(res.Snapshot) == 0 {
			return nil, err
		}
		c.log.Warnw("legacy_fetch_failed_status_available", "err", err)
	} else {
		for key, rec := range legacy {
			if _, exists := res.Snapshot[key]; !exists {
				res.Snapshot[key] = rec
			}
		}
	}

	c.log.Infow("device_data_fetched", "sensors", len(res.Snapshot))
	return res, nil
}
