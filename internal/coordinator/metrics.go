package coordinator

import "github.com/prometheus/client_golang/prometheus"

// Prometheus metrics for the refresh cycle and the write surface.
var (
	refreshFailure = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "biostar_refresh_failure",
			Help: "1 if the last device refresh failed, 0 if it succeeded",
		},
	)

	lastRefreshTimestamp = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "biostar_last_refresh_timestamp_seconds",
			Help: "Unix timestamp of the last successful device refresh",
		},
	)

	sensorCount = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "biostar_sensor_count",
			Help: "Number of sensor records in the most recent snapshot",
		},
	)

	writeCommands = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "biostar_write_commands_total",
			Help: "Write commands dispatched to the device by command and result",
		},
		[]string{"command", "result"},
	)
)

func init() {
	prometheus.MustRegister(
		refreshFailure,
		lastRefreshTimestamp,
		sensorCount,
		writeCommands,
	)
}
