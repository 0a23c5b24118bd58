package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"guntamatic_bridge/internal/biostar"
	"guntamatic_bridge/internal/coordinator"
	"guntamatic_bridge/internal/handlers"
	"guntamatic_bridge/internal/logger"
	"guntamatic_bridge/internal/server"

	"github.com/spf13/viper"
)

const (
	defaultPort         = "8080"
	connectProbeTimeout = 15 * time.Second
	shutdownTimeout     = 10 * time.Second
)

// @title           Guntamatic Biostar Bridge API
// @version         1.0
// @description     Telemetry and control bridge for a Guntamatic Biostar heating appliance.
// @BasePath        /
// @securityDefinitions.apikey ApiKeyAuth
// @in header
// @name X-Api-Key
func main() {
	// load config.yml first so the log level is configurable
	if err := loadConfig(); err != nil {
		logger.Get(logger.InfoLevel).Fatalw("error reading config", "err", err)
	}
	log := logger.Get(viper.GetString("log.level"))

	host := viper.GetString("device.host")
	if host == "" {
		log.Fatalw("device.host is required in config")
	}

	client := biostar.New(
		host,
		viper.GetString("device.api_key"),
		viper.GetString("device.write_key"),
		log,
	)

	// Probe the device once at startup. Failure is reported but not fatal:
	// the appliance may simply be offline right now.
	probeCtx, probeCancel := context.WithTimeout(context.Background(), connectProbeTimeout)
	if !client.TestConnection(probeCtx) {
		log.Warnw("device_unreachable_at_startup", "host", host)
	}
	probeCancel()

	coord := coordinator.New(client, log)
	apiHandler := handlers.NewHandler(coord, log, viper.GetString("api_key"))

	// context for background goroutines
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Prime the cache before serving; a failed first refresh just means the
	// API starts with an empty snapshot.
	if err := coord.Refresh(ctx); err != nil {
		log.Warnw("initial_refresh_failed", "err", err)
	}

	go coord.Run(ctx, pollInterval())

	srv := &server.Server{}
	runHTTPServer(srv, viper.GetString("port"), apiHandler, log)

	waitForShutdown(cancel, srv, log)
}

func loadConfig() error {
	viper.AddConfigPath("configs") // configs/config.yml
	viper.SetConfigName("config")
	viper.SetDefault("log.level", logger.InfoLevel)
	return viper.ReadInConfig()
}

// pollInterval reads the refresh cadence from config, falling back to the
// coordinator default.
func pollInterval() time.Duration {
	if d := viper.GetDuration("poll_interval"); d > 0 {
		return d
	}
	return coordinator.DefaultPollInterval
}

// runHTTPServer runs the HTTP server in a separate goroutine.
func runHTTPServer(srv *server.Server, port string, handler *handlers.Handler, log *logger.Logger) {
	go func() {
		if port == "" {
			port = defaultPort
		}
		if err := srv.Run(port, handler.InitRoutes()); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalw("error starting server", "err", err)
		}
	}()
}

// waitForShutdown listens for termination signals and performs graceful shutdown.
func waitForShutdown(cancel context.CancelFunc, srv *server.Server, log *logger.Logger) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Infow("shutting down server...")

	// stop the poll loop
	cancel()

	// allow in-flight requests to complete
	ctx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalw("server forced to shutdown", "err", err)
	}
}
