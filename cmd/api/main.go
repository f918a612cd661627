package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"carebook/internal/api"
	"carebook/internal/billing"
	"carebook/internal/config"
	"carebook/internal/database"
	"carebook/internal/events"
	"carebook/internal/export"
	"carebook/internal/logging"
	"carebook/internal/metrics"
	"carebook/internal/repository"
	"carebook/internal/service"
	"carebook/internal/worker"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	yamlv2 "gopkg.in/yaml.v2"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	dumpConfig := flag.Bool("print-config", false, "print the effective config and exit")
	flag.Parse()

	cfg, logger, closer, err := loadConfigAndLogger()
	if err != nil {
		return err
	}
	if closer != nil {
		defer (func() { _ = closer.Close() })()
	}

	if *dumpConfig {
		out, err := yamlv2.Marshal(cfg)
		if err != nil {
			return fmt.Errorf("marshal config: %w", err)
		}
		fmt.Print(string(out))
		return nil
	}

	billing.ConfigureBookingFee(cfg.Billing.BookingFeePct)

	db, err := database.NewDB(cfg.Database.Path, &logger)
	if err != nil {
		logger.Error().Err(err).Str("db_path", cfg.Database.Path).Msg("init database")
		return err
	}
	defer db.Close()

	if !cfg.API.Enabled {
		logger.Warn().Msg("API is disabled in config, but starting API application. Check your config.")
	}

	redisClient := initRedis(cfg, &logger)
	if redisClient != nil {
		defer redisClient.Close()
	}
	cache := buildSummaryCache(cfg, redisClient, &logger)

	eventBus := events.NewEventBus()
	subscribeEventLog(eventBus, &logger)

	bookings := service.NewBookingService(db, cache, eventBus, cfg.Billing.MaxBookingDays, &logger)
	exporter := export.NewExporter(db, cfg.Exports.Path, &logger)
	httpServer := api.NewHTTPServer(cfg.API, bookings, exporter, &logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	metrics.Register()
	startMetrics(ctx, cfg, &logger)

	if cfg.Worker.Enabled {
		rolloverWorker := worker.NewRolloverWorker(
			db, eventBus, worker.RetryPolicy{},
			time.Duration(cfg.Worker.IntervalSeconds)*time.Second,
			cfg.Worker.BatchSize, &logger,
		)
		go rolloverWorker.Start(ctx)
	}

	return serveHTTP(ctx, httpServer, cfg, &logger)
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

func initRedis(cfg *config.Config, logger *zerolog.Logger) *redis.Client {
	if !cfg.Redis.Enabled || cfg.Redis.Address == "" {
		return nil
	}

	redisClient := repository.NewRedisClient(cfg.Redis)
	if err := repository.Ping(context.Background(), redisClient); err != nil {
		logger.Warn().Err(err).Msg("redis connection failed, continuing without redis")
		return nil
	}

	logger.Info().Str("addr", cfg.Redis.Address).Msg("redis connected")
	return redisClient
}

// buildSummaryCache picks the failover redis+memory pair when redis is
// up, otherwise plain memory.
func buildSummaryCache(cfg *config.Config, redisClient *redis.Client, logger *zerolog.Logger) repository.SummaryCache {
	ttl := time.Duration(cfg.Redis.CacheTTLs) * time.Second
	memory := repository.NewMemorySummaryCache(ttl)
	if redisClient == nil {
		return memory
	}
	primary := repository.NewRedisSummaryCache(redisClient, ttl)
	return repository.NewFailoverSummaryCache(primary, memory, logger)
}

// subscribeEventLog records the booking lifecycle in the service log.
func subscribeEventLog(bus *events.EventBus, logger *zerolog.Logger) {
	eventTypes := []string{
		events.EventBookingCreated,
		events.EventBookingAccepted,
		events.EventBookingDeclined,
		events.EventBookingCancelled,
		events.EventBookingCompleted,
		events.EventBookingExceptionsChanged,
		events.EventRolloverComputed,
		events.EventRolloverUnresolved,
	}
	for _, eventType := range eventTypes {
		bus.Subscribe(eventType, func(event *events.Event) error {
			logger.Info().
				Str("event_type", event.Type).
				RawJSON("payload", event.Payload).
				Msg("booking event")
			return nil
		})
	}
}

func startMetrics(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) {
	if !cfg.Metrics.PrometheusEnabled {
		return
	}

	port := cfg.Metrics.PrometheusPort
	if port == 0 {
		port = 9090
	}
	go startMetricsServer(ctx, port, logger)
}

func serveHTTP(ctx context.Context, httpServer *api.HTTPServer, cfg *config.Config, logger *zerolog.Logger) error {
	go func() {
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
