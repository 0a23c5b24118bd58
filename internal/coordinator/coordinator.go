// Package coordinator owns the polling cadence against the device and the
// last-known-good cache consumed by the API layer. At most one refresh is in
// flight at a time; overlapping requests coalesce onto the running one.
package coordinator

import (
	"context"
	"strings"
	"sync"
	"time"

	"guntamatic_bridge/internal/biostar"
	"guntamatic_bridge/internal/logger"
	"guntamatic_bridge/internal/models"
)

const (
	// DefaultPollInterval is the periodic refresh cadence.
	DefaultPollInterval = time.Minute

	// refreshTimeout bounds one full refresh (both API generations).
	refreshTimeout = 15 * time.Second
)

// DeviceClient is what the coordinator needs from the device layer.
type DeviceClient interface {
	FetchData(ctx context.Context) (*biostar.FetchResult, error)
	HasWriteAccess() bool
	SetProgram(ctx context.Context, code int) error
	SetTemperature(ctx context.Context, circuit int, period models.TempPeriod, value float64) error
}

// refreshFlight tracks one in-flight refresh so concurrent callers can wait
// on its result instead of starting a second fetch sequence.
type refreshFlight struct {
	done chan struct{}
	err  error
}

// Coordinator caches the most recent snapshot, device metadata, circuit list
// and temperature constraints. All cached values are replaced wholesale on a
// successful refresh and survive failed ones unchanged.
type Coordinator struct {
	client DeviceClient
	log    *logger.Logger

	mu          sync.RWMutex
	snapshot    models.Snapshot
	meta        *models.DeviceMeta
	circuits    []models.HeatingCircuit
	constraints models.TemperatureConstraints
	lastErr     error
	lastUpdated time.Time

	flightMu sync.Mutex
	flight   *refreshFlight

	kick chan struct{}
}

// New builds a coordinator around the given device client. Constraints start
// at the device defaults until a status fetch reports real ones.
func New(client DeviceClient, log *logger.Logger) *Coordinator {
	return &Coordinator{
		client:      client,
		log:         log,
		snapshot:    models.Snapshot{},
		constraints: models.DefaultTemperatureConstraints(),
		kick:        make(chan struct{}, 1),
	}
}

// Refresh fetches fresh data from the device, replacing the cache on
// success. If a refresh is already running, the call waits for and returns
// that refresh's result.
func (c *Coordinator) Refresh(ctx context.Context) error {
	c.flightMu.Lock()
	if f := c.flight; f != nil {
		c.flightMu.Unlock()
		select {
		case <-f.done:
			return f.err
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	f := &refreshFlight{done: make(chan struct{})}
	c.flight = f
	c.flightMu.Unlock()

	f.err = c.doRefresh(ctx)

	c.flightMu.Lock()
	c.flight = nil
	c.flightMu.Unlock()
	close(f.done)
	return f.err
}

func (c *Coordinator) doRefresh(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, refreshTimeout)
	defer cancel()

	res, err := c.client.FetchData(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		c.lastErr = err
		refreshFailure.Set(1)
		c.log.Errorw("refresh_failed", "err", err)
		return err
	}

	c.snapshot = res.Snapshot
	if res.Meta != nil {
		c.meta = res.Meta
	}
	if res.Circuits != nil {
		c.circuits = res.Circuits
	}
	if res.Constraints != nil {
		c.constraints = *res.Constraints
	}
	c.lastErr = nil
	c.lastUpdated = time.Now()

	refreshFailure.Set(0)
	lastRefreshTimestamp.SetToCurrentTime()
	sensorCount.Set(float64(len(res.Snapshot)))
	return nil
}

// Run drives the periodic refresh loop until ctx is cancelled. Write
// operations nudge the loop through the kick channel for an immediate
// refresh.
func (c *Coordinator) Run(ctx context.Context, tick time.Duration) {
	if tick <= 0 {
		tick = DefaultPollInterval
	}
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			c.log.Infow("poll_loop_stopped")
			return
		case <-ticker.C:
		case <-c.kick:
		}
		// Failures are logged inside Refresh; the stale cache stays visible.
		_ = c.Refresh(ctx)
	}
}

// RequestRefresh schedules an immediate refresh. Requests arriving while one
// is already pending collapse into it.
func (c *Coordinator) RequestRefresh() {
	select {
	case c.kick <- struct{}{}:
	default:
	}
}

// SetProgram selects the heating program and, on success, schedules a
// follow-up refresh so the snapshot reflects the new state.
func (c *Coordinator) SetProgram(ctx context.Context, code int) error {
	if err := c.client.SetProgram(ctx, code); err != nil {
		writeCommands.WithLabelValues("set_program", "failure").Inc()
		return err
	}
	writeCommands.WithLabelValues("set_program", "success").Inc()
	c.RequestRefresh()
	return nil
}

// SetTemperature writes a circuit set-point and, on success, schedules a
// follow-up refresh.
func (c *Coordinator) SetTemperature(ctx context.Context, circuit int, period models.TempPeriod, value float64) error {
	if err := c.client.SetTemperature(ctx, circuit, period, value); err != nil {
		writeCommands.WithLabelValues("set_temperature", "failure").Inc()
		return err
	}
	writeCommands.WithLabelValues("set_temperature", "success").Inc()
	c.RequestRefresh()
	return nil
}

// HasWriteAccess reports whether write operations are configured.
func (c *Coordinator) HasWriteAccess() bool {
	return c.client.HasWriteAccess()
}

// Snapshot returns the most recent sensor snapshot. The returned map is
// immutable by convention; callers must not modify it.
func (c *Coordinator) Snapshot() models.Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snapshot
}

// DeviceMeta returns the cached device metadata, or nil if the modern
// endpoint never reported any.
func (c *Coordinator) DeviceMeta() *models.DeviceMeta {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.meta
}

// HeatingCircuits returns the cached circuit list in wire order.
func (c *Coordinator) HeatingCircuits() []models.HeatingCircuit {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.circuits
}

// TemperatureConstraints returns the cached set-point limits.
func (c *Coordinator) TemperatureConstraints() models.TemperatureConstraints {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.constraints
}

// LastError returns the failure of the most recent refresh, or nil if it
// succeeded.
func (c *Coordinator) LastError() error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastErr
}

// LastUpdated returns when the cache was last replaced by a successful
// refresh (zero if never).
func (c *Coordinator) LastUpdated() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastUpdated
}

// programScanOrder fixes the match order for program-name inference so a
// label containing several option names resolves deterministically.
var programScanOrder = []string{"off", "normal", "heat", "lower"}

// CurrentProgram infers the active heating program by scanning snapshot keys
// for a program-like label. Best effort only: the device is not known to
// expose an explicit current-program field, so labels that merely contain
// "prog" can misfire. Returns "" when nothing matches.
func (c *Coordinator) CurrentProgram() string {
	snap := c.Snapshot()
	for key, rec := range snap {
		if !strings.Contains(strings.ToLower(key), "prog") {
			continue
		}
		switch v := rec.Value.(type) {
		case int:
			if name, ok := models.ProgramNames[v]; ok {
				return name
			}
		case float64:
			if name, ok := models.ProgramNames[int(v)]; ok {
				return name
			}
		case string:
			lower := strings.ToLower(v)
			for _, name := range programScanOrder {
				if strings.Contains(lower, name) {
					return name
				}
			}
		}
	}
	return ""
}
