package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/finn-wa/grocy-trolley-sub000/config"
	"github.com/finn-wa/grocy-trolley-sub000/internal/app"
	"github.com/finn-wa/grocy-trolley-sub000/internal/handlers"
	"github.com/finn-wa/grocy-trolley-sub000/internal/middleware"
	"github.com/finn-wa/grocy-trolley-sub000/internal/prompt"
	"github.com/finn-wa/grocy-trolley-sub000/internal/storage"
	"github.com/finn-wa/grocy-trolley-sub000/internal/store"
	"github.com/finn-wa/grocy-trolley-sub000/internal/telemetry"
)

func main() {
	cfg, err := config.Load("")
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger := initLogger(cfg.Logging)

	logger.Info().Msg("Starting grocy-trolley server")

	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("Invalid config")
	}

	ctx := context.Background()
	shutdownTelemetry, err := telemetry.Init(ctx, cfg.Telemetry)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize telemetry")
	}

	// The server never prompts; pending lookups make no choices.
	a := app.New(cfg, prompt.Always{Choice: -1}, *logger)
	planner := func(code store.Code) (handlers.Planner, error) {
		im, err := a.Importer(code)
		if err != nil {
			return nil, err
		}
		return im, nil
	}
	h := handlers.New(planner, a.Stores().List, a.CheckInventory, *logger)
	if dir := cfg.Import.ReportDir; dir != "" {
		reports, err := storage.NewLocalStorage(dir)
		if err != nil {
			logger.Fatal().Err(err).Msg("Failed to open report archive")
		}
		h.WithReports(reports)
	}

	if cfg.Logging.Level == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	setupMiddleware(router, logger)

	router.GET("/health", h.HealthCheck)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := router.Group("/api")
	api.Use(middleware.APIKeyMiddleware(cfg.Server.APIKey))
	api.Use(middleware.RateLimitMiddleware(cfg.Server.RequestsPerSecond, cfg.Server.Burst))
	{
		api.GET("/stores", h.ListStores)
		api.GET("/imports/:store/:source/pending", h.PendingImport)
		api.GET("/reports", h.ListReports)
		api.GET("/reports/:store/:source/:name", h.GetReport)
	}

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		logger.Info().Str("addr", addr).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("Server forced to shutdown")
	}
	if err := shutdownTelemetry(shutdownCtx); err != nil {
		logger.Warn().Err(err).Msg("Telemetry shutdown failed")
	}

	logger.Info().Msg("Server exited")
}

func initLogger(cfg config.LoggingConfig) *zerolog.Logger {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}

	var output io.Writer
	if cfg.Format == "json" {
		output = os.Stdout
	} else {
		output = zerolog.ConsoleWriter{Out: os.Stdout, NoColor: cfg.NoColor}
	}

	logger := zerolog.New(output).Level(level).With().Timestamp().Str("service", "grocy-trolley").Logger()
	return &logger
}

func setupMiddleware(router *gin.Engine, logger *zerolog.Logger) {
	router.Use(func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		latency := time.Since(start)

		logger.Info().
			Str("method", c.Request.Method).
			Str("path", path).
			Str("query", query).
			Int("status", c.Writer.Status()).
			Dur("latency", latency).
			Str("ip", c.ClientIP()).
			Msg("HTTP request")
	})
}
