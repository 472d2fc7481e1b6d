package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"velora/internal/api"
	"velora/internal/backend"
	"velora/internal/config"
	"velora/internal/domain"
	"velora/internal/events"
	"velora/internal/export"
	"velora/internal/logging"
	"velora/internal/metrics"
	"velora/internal/repository"
	"velora/internal/service"
	"velora/internal/wizard"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	cfg, logger, closer, err := loadConfigAndLogger()
	if err != nil {
		return err
	}
	if closer != nil {
		defer (func() { _ = closer.Close() })()
	}

	if !cfg.API.Enabled {
		logger.Warn().Msg("API is disabled in config, but starting API application. Check your config.")
	}

	backendLogger := logging.Component(&logger, "backend")
	backendClient := backend.New(cfg.Backend, &backendLogger)

	eventBus := newEventBus(&logger)

	states := initStateRepository(cfg, &logger)

	catalogLogger := logging.Component(&logger, "catalog")
	catalog := service.NewCatalogService(backendClient, 0, &catalogLogger)

	wizardLogger := logging.Component(&logger, "wizard")
	manager := wizard.NewManager(states, catalog, backendClient, eventBus, cfg.Booking, &wizardLogger)

	adminLogger := logging.Component(&logger, "admin")
	admin := service.NewAdminService(backendClient, eventBus, &adminLogger)

	var exporter api.BookingExporter
	if cfg.Exports.Path != "" {
		exportLogger := logging.Component(&logger, "export")
		exporter = export.NewExporter(cfg.Exports.Path, &exportLogger)
	}

	httpLogger := logging.Component(&logger, "http")
	httpServer := api.NewHTTPServer(cfg.API, cfg.Booking, manager, catalog, admin, exporter, &httpLogger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	startMetrics(ctx, cfg, &logger)

	return startServer(ctx, httpServer, cfg, &logger)
}

func loadConfigAndLogger() (*config.Config, zerolog.Logger, io.Closer, error) {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "configs/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, zerolog.Logger{}, nil, fmt.Errorf("load config: %w", err)
	}

	baseLogger, closer, err := logging.New(cfg.Logging, cfg.App)
	if err != nil {
		return nil, zerolog.Logger{}, nil, fmt.Errorf("init logger: %w", err)
	}
	logger := baseLogger.With().Str("component", "api-main").Logger()

	return cfg, logger, closer, nil
}

// newEventBus wires the in-process subscribers: every domain event is
// logged and counted.
func newEventBus(logger *zerolog.Logger) *events.EventBus {
	eventLogger := logging.Component(logger, "events")

	bus := events.NewEventBus()
	bus.Subscribe(events.EventBookingSubmitted, func(e *events.Event) error {
		eventLogger.Info().RawJSON("payload", e.Payload).Msg("booking submitted")
		return nil
	})
	bus.Subscribe(events.EventBookingStatusChanged, func(e *events.Event) error {
		eventLogger.Info().RawJSON("payload", e.Payload).Msg("booking status changed")
		return nil
	})
	return bus
}

// initStateRepository keeps wizard sessions in Redis when it is configured
// and reachable, with an in-memory fallback behind the failover wrapper.
// Without Redis the sessions live in process memory only.
func initStateRepository(cfg *config.Config, logger *zerolog.Logger) domain.StateRepository {
	ttl := cfg.Booking.SessionTTL()
	memory := repository.NewMemoryStateRepository(ttl)

	if cfg.Redis.Address == "" {
		logger.Info().Msg("redis is not configured, wizard sessions are in-memory")
		return memory
	}

	client := repository.NewRedisClient(cfg.Redis)
	if err := repository.Ping(context.Background(), client); err != nil {
		logger.Warn().Err(err).Msg("redis connection failed, wizard sessions are in-memory")
		return memory
	}

	logger.Info().Str("addr", cfg.Redis.Address).Msg("redis connected")
	failoverLogger := logging.Component(logger, "state-failover")
	return repository.NewFailoverStateRepository(
		repository.NewRedisStateRepository(client, ttl),
		memory,
		&failoverLogger,
	)
}

func startMetrics(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) {
	if !cfg.Monitoring.PrometheusEnabled {
		return
	}

	metrics.Register()
	port := cfg.Monitoring.PrometheusPort
	if port == 0 {
		port = 9090
	}
	go startMetricsServer(ctx, port, logger)
}

func startServer(ctx context.Context, httpServer *api.HTTPServer, cfg *config.Config, logger *zerolog.Logger) error {
	go func() {
		if !cfg.API.HTTP.Enabled {
			return
		}
		if err := httpServer.Start(); err != nil {
			logger.Error().Err(err).Msg("http server stopped")
		}
	}()

	logger.Info().Int("http_port", cfg.API.HTTP.Port).Msg("API server started")

	<-ctx.Done()
	logger.Info().Msg("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_ = httpServer.Shutdown(shutdownCtx)

	logger.Info().Msg("API server stopped")
	return nil
}

func startMetricsServer(ctx context.Context, port int, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error().Err(err).Msg("metrics server error")
	}
}
