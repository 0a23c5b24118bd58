package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"time"

	"guntamatic_bridge/internal/models"

	"github.com/gin-gonic/gin"
)

// ---- Coordinator mock ----

type tempCall struct {
	circuit int
	period  models.TempPeriod
	value   float64
}

type mockCoordinator struct {
	refreshErr   error
	refreshCalls int

	snap        models.Snapshot
	meta        *models.DeviceMeta
	circuits    []models.HeatingCircuit
	constraints models.TemperatureConstraints
	program     string
	lastErr     error
	lastUpdated time.Time

	writeAccess   bool
	setProgramErr error
	setTempErr    error
	programCalls  []int
	tempCalls     []tempCall
}

func newMockCoordinator() *mockCoordinator {
	return &mockCoordinator{
		snap:        models.Snapshot{},
		constraints: models.DefaultTemperatureConstraints(),
	}
}

func (m *mockCoordinator) Refresh(ctx context.Context) error {
	m.refreshCalls++
	return m.refreshErr
}

func (m *mockCoordinator) Snapshot() models.Snapshot      { return m.snap }
func (m *mockCoordinator) DeviceMeta() *models.DeviceMeta { return m.meta }
func (m *mockCoordinator) HeatingCircuits() []models.HeatingCircuit {
	return m.circuits
}
func (m *mockCoordinator) TemperatureConstraints() models.TemperatureConstraints {
	return m.constraints
}
func (m *mockCoordinator) CurrentProgram() string { return m.program }
func (m *mockCoordinator) LastError() error       { return m.lastErr }
func (m *mockCoordinator) LastUpdated() time.Time { return m.lastUpdated }
func (m *mockCoordinator) HasWriteAccess() bool   { return m.writeAccess }

func (m *mockCoordinator) SetProgram(ctx context.Context, code int) error {
	m.programCalls = append(m.programCalls, code)
	return m.setProgramErr
}

func (m *mockCoordinator) SetTemperature(ctx context.Context, circuit int, period models.TempPeriod, value float64) error {
	m.tempCalls = append(m.tempCalls, tempCall{circuit: circuit, period: period, value: value})
	return m.setTempErr
}

// ---- Shared test helpers ----

func newTestRouter(mc *mockCoordinator, apiKey string) *gin.Engine {
	h := NewHandler(mc, nil, apiKey)
	gin.SetMode(gin.TestMode)
	return h.InitRoutes()
}

func doRequest(r *gin.Engine, method, path, apiKey, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if apiKey != "" {
		req.Header.Set(apiKeyHeader, apiKey)
	}
	r.ServeHTTP(w, req)
	return w
}
