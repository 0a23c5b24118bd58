package handlers

import (
	"errors"
	"net/http"

	"guntamatic_bridge/internal/biostar"
	"guntamatic_bridge/internal/models"

	"github.com/gin-gonic/gin"
)

// Common response/status constants to avoid magic strings and typos.
const (
	statusOK        = "ok"
	statusRefreshed = "refreshed"
	statusProgram   = "program_set"
	statusTemp      = "temperature_set"

	errRefresh         = "device refresh failed"
	errWriteDenied     = "write access not configured"
	errWriteFailed     = "device write failed"
	errInvalidBodyPref = "invalid body: "
)

// Centralized error logging and response.
func (h *Handler) logAndJSONError(c *gin.Context, httpCode int, userMsg, logKey string, err error, kv ...interface{}) {
	if h.log != nil && err != nil {
		fields := append([]interface{}{"err", err}, kv...)
		h.log.Errorw(logKey, fields...)
	}
	c.JSON(httpCode, gin.H{"error": userMsg})
}

// writeErrorStatus maps dispatcher errors onto HTTP codes: missing write key
// is a configuration problem of this bridge, everything else is the device.
func writeErrorStatus(err error) (int, string) {
	if errors.Is(err, biostar.ErrNoWriteAccess) {
		return http.StatusForbidden, errWriteDenied
	}
	return http.StatusBadGateway, errWriteFailed
}

// Request DTO for program selection. Either a named program or a raw code.
type programRequest struct {
	Program string `json:"program,omitempty"` // off | normal | heat | lower
	Code    *int   `json:"code,omitempty"`
}

// Request DTO for circuit set-points.
type temperatureRequest struct {
	Circuit int     `json:"circuit"`                   // device circuit number
	Period  string  `json:"period" binding:"required"` // day | night
	Value   float64 `json:"value" binding:"required"`  // °C
}

// SetProgramRequest documents the setProgram payload for Swagger.
type SetProgramRequest struct {
	// Named program. Allowed: off, normal, heat, lower
	Program string `json:"program,omitempty" example:"normal"`
	// Raw program code, used when program is empty
	Code *int `json:"code,omitempty" example:"1"`
}

// SetTemperatureRequest documents the setTemperature payload for Swagger.
type SetTemperatureRequest struct {
	// Device circuit number
	Circuit int `json:"circuit" example:"0"`
	// Set-point period. Allowed: day, night
	Period string `json:"period" example:"day"`
	// Temperature in Celsius, within the device constraints
	Value float64 `json:"value" example:"21.5"`
}

// @Summary      Health check
// @Tags         system
// @Produce      json
// @Success      200  {object}  map[string]string
// @Router       /health [get]
func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": statusOK,
	})
}

// @Summary      Current sensor snapshot
// @Description  Last successfully fetched snapshot; stale values survive failed refreshes
// @Tags         device
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Failure      401  {object}  map[string]string
// @Router       /api/v1/device/sensors [get]
// @Security     ApiKeyAuth
func (h *Handler) getSensors(c *gin.Context) {
	resp := gin.H{
		"sensors": h.coord.Snapshot(),
	}
	if t := h.coord.LastUpdated(); !t.IsZero() {
		resp["last_updated"] = t
	}
	if err := h.coord.LastError(); err != nil {
		resp["update_failed"] = err.Error()
	}
	c.JSON(http.StatusOK, resp)
}

// @Summary      Device identity
// @Tags         device
// @Produce      json
// @Success      200  {object}  models.DeviceMeta
// @Failure      404  {object}  map[string]string
// @Router       /api/v1/device/info [get]
// @Security     ApiKeyAuth
func (h *Handler) getDeviceInfo(c *gin.Context) {
	meta := h.coord.DeviceMeta()
	if meta == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "device metadata not reported yet"})
		return
	}
	c.JSON(http.StatusOK, meta)
}

// @Summary      Heating circuits
// @Tags         device
// @Produce      json
// @Success      200  {array}  models.HeatingCircuit
// @Router       /api/v1/device/circuits [get]
// @Security     ApiKeyAuth
func (h *Handler) getCircuits(c *gin.Context) {
	circuits := h.coord.HeatingCircuits()
	if circuits == nil {
		circuits = []models.HeatingCircuit{}
	}
	c.JSON(http.StatusOK, circuits)
}

// @Summary      Temperature constraints
// @Tags         device
// @Produce      json
// @Success      200  {object}  models.TemperatureConstraints
// @Router       /api/v1/device/constraints [get]
// @Security     ApiKeyAuth
func (h *Handler) getConstraints(c *gin.Context) {
	c.JSON(http.StatusOK, h.coord.TemperatureConstraints())
}

// @Summary      Current heating program (best effort)
// @Tags         device
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Router       /api/v1/device/program [get]
// @Security     ApiKeyAuth
func (h *Handler) getProgram(c *gin.Context) {
	resp := gin.H{"write_access": h.coord.HasWriteAccess()}
	if name := h.coord.CurrentProgram(); name != "" {
		resp["program"] = name
		resp["code"] = models.ProgramCodes[name]
	}
	c.JSON(http.StatusOK, resp)
}

// @Summary      Trigger an immediate refresh
// @Tags         device
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Failure      502  {object}  map[string]string
// @Router       /api/v1/device/refresh [post]
// @Security     ApiKeyAuth
func (h *Handler) triggerRefresh(c *gin.Context) {
	if err := h.coord.Refresh(c.Request.Context()); err != nil {
		h.logAndJSONError(c, http.StatusBadGateway, errRefresh, "manual_refresh_failed", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":  statusRefreshed,
		"sensors": len(h.coord.Snapshot()),
	})
}

// @Summary      Set heating program
// @Tags         device
// @Accept       json
// @Produce      json
// @Param        body  body   SetProgramRequest  true  "Program payload"
// @Success      200   {object}  map[string]interface{}
// @Failure      400   {object}  map[string]string
// @Failure      403   {object}  map[string]string
// @Failure      502   {object}  map[string]string
// @Router       /api/v1/device/program [post]
// @Security     ApiKeyAuth
func (h *Handler) setProgram(c *gin.Context) {
	var req programRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": errInvalidBodyPref + err.Error()})
		return
	}

	code, err := resolveProgramCode(req)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.coord.SetProgram(c.Request.Context(), code); err != nil {
		httpCode, msg := writeErrorStatus(err)
		h.logAndJSONError(c, httpCode, msg, "set_program_failed", err, "code", code)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":  statusProgram,
		"program": models.ProgramNames[code],
		"code":    code,
	})
}

func resolveProgramCode(req programRequest) (int, error) {
	if req.Program != "" {
		code, ok := models.ProgramCodes[req.Program]
		if !ok {
			return 0, errors.New("unknown program: " + req.Program)
		}
		return code, nil
	}
	if req.Code != nil {
		if _, ok := models.ProgramNames[*req.Code]; !ok {
			return 0, errors.New("program code out of range")
		}
		return *req.Code, nil
	}
	return 0, errors.New("program or code is required")
}

// @Summary      Set circuit day/night temperature
// @Tags         device
// @Accept       json
// @Produce      json
// @Param        body  body   SetTemperatureRequest  true  "Temperature payload"
// @Success      200   {object}  map[string]interface{}
// @Failure      400   {object}  map[string]string
// @Failure      403   {object}  map[string]string
// @Failure      502   {object}  map[string]string
// @Router       /api/v1/device/temperature [post]
// @Security     ApiKeyAuth
func (h *Handler) setTemperature(c *gin.Context) {
	var req temperatureRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": errInvalidBodyPref + err.Error()})
		return
	}

	period := models.TempPeriod(req.Period)
	if !period.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "period must be day or night"})
		return
	}
	if limits := h.coord.TemperatureConstraints(); !limits.Contains(req.Value) {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":       "temperature out of range",
			"constraints": limits,
		})
		return
	}

	if err := h.coord.SetTemperature(c.Request.Context(), req.Circuit, period, req.Value); err != nil {
		httpCode, msg := writeErrorStatus(err)
		h.logAndJSONError(c, httpCode, msg, "set_temperature_failed", err,
			"circuit", req.Circuit, "period", req.Period)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":  statusTemp,
		"circuit": req.Circuit,
		"period":  req.Period,
		"value":   req.Value,
	})
}
