package handlers

import (
	"context"
	"time"

	"guntamatic_bridge/internal/logger"
	"guntamatic_bridge/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "guntamatic_bridge/docs"
)

// Coordinator is the device-facing surface the HTTP layer consumes.
type Coordinator interface {
	Refresh(ctx context.Context) error
	Snapshot() models.Snapshot
	DeviceMeta() *models.DeviceMeta
	HeatingCircuits() []models.HeatingCircuit
	TemperatureConstraints() models.TemperatureConstraints
	CurrentProgram() string
	LastError() error
	LastUpdated() time.Time
	HasWriteAccess() bool
	SetProgram(ctx context.Context, code int) error
	SetTemperature(ctx context.Context, circuit int, period models.TempPeriod, value float64) error
}

// Handler wires the HTTP layer to the coordinator and logging.
type Handler struct {
	coord  Coordinator
	log    *logger.Logger
	apiKey string
}

// NewHandler constructs the HTTP handler. apiKey gates the /api/v1 group;
// empty means the API is open (trusted network deployments).
func NewHandler(coord Coordinator, log *logger.Logger, apiKey string) *Handler {
	return &Handler{coord: coord, log: log, apiKey: apiKey}
}

// InitRoutes builds and returns the Gin router with all routes registered.
func (h *Handler) InitRoutes() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), h.requestIDMiddleware)

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Operational endpoints
	router.GET("/health", h.health)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Live snapshot stream on the same port
	router.GET("/ws", h.wsConnect)

	h.registerAPIRoutes(router)

	return router
}

func (h *Handler) registerAPIRoutes(r *gin.Engine) {
	api := r.Group("/api/v1", h.apiKeyMiddleware)
	{
		device := api.Group("/device")
		{
			device.GET("/sensors", h.getSensors)
			device.GET("/info", h.getDeviceInfo)
			device.GET("/circuits", h.getCircuits)
			device.GET("/constraints", h.getConstraints)
			device.GET("/program", h.getProgram)
			device.POST("/refresh", h.triggerRefresh)
			device.POST("/program", h.setProgram)
			device.POST("/temperature", h.setTemperature)
		}
	}
}
