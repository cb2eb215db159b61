package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"github.com/angelmondragon/storefront-backend/api/routes"
	"github.com/angelmondragon/storefront-backend/internal/presence"
	"github.com/angelmondragon/storefront-backend/internal/promotions"
	"github.com/angelmondragon/storefront-backend/internal/zones"
	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/metrics"
	"github.com/angelmondragon/storefront-backend/pkg/migrate"
	"github.com/angelmondragon/storefront-backend/pkg/realtime"
	"github.com/angelmondragon/storefront-backend/pkg/redis"
)

const shutdownTimeout = 15 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		Format:      cfg.App.LogFormat,
		WarnStack:   cfg.App.LogWarnStack,
	})

	if err := run(cfg, logg); err != nil {
		logg.Error(context.Background(), "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logg *logger.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbClient, err := db.New(ctx, cfg.DB, cfg.FeatureFlags.UseSQLite, logg)
	if err != nil {
		return fmt.Errorf("bootstrap database: %w", err)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		return fmt.Errorf("run dev migrations: %w", err)
	}

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	if err != nil {
		return fmt.Errorf("bootstrap redis: %w", err)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	areaMode, err := zones.ParseAreaMode(cfg.Delivery.ZoneAreaMode)
	if err != nil {
		return err
	}
	zoneService, err := zones.NewService(zones.ServiceParams{
		Repo:       zones.NewRepository(dbClient.DB()),
		Cache:      zones.NewCache(redisClient, cfg.Delivery.ZoneCacheTTL, redis.IsNil),
		Resolver:   zones.NewResolver(areaMode),
		DefaultFee: cfg.Delivery.DefaultFee,
		Logger:     logg,
		Metrics:    metrics.NewZoneMetrics(registry),
	})
	if err != nil {
		return fmt.Errorf("create zone service: %w", err)
	}

	location, err := cfg.Promotions.Location()
	if err != nil {
		return err
	}
	promotionService, err := promotions.NewService(promotions.ServiceParams{
		Repo:     promotions.NewRepository(dbClient.DB()),
		Usage:    promotions.NewUsageReader(redisClient),
		Location: location,
		Logger:   logg,
		Metrics:  metrics.NewPromotionMetrics(registry),
	})
	if err != nil {
		return fmt.Errorf("create promotion service: %w", err)
	}

	factory, err := presenceFactory(cfg.Realtime)
	if err != nil {
		return err
	}
	tracker, err := presence.NewTracker(presence.Options{
		Factory:           factory,
		ReconcileInterval: cfg.Realtime.ReconcileInterval,
		Logger:            logg.Component("presence"),
		Metrics:           metrics.NewPresenceMetrics(registry),
	})
	if err != nil {
		return fmt.Errorf("create presence tracker: %w", err)
	}
	if cfg.Realtime.Enabled() {
		// Keeps the shared channel open so point lookups see live state.
		release, err := tracker.Acquire(ctx)
		if err != nil {
			return fmt.Errorf("open presence channel: %w", err)
		}
		defer release()
	} else {
		logg.Warn(ctx, "realtime url not configured, driver presence reports everyone offline")
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	id := os.Getenv("DYNO")
	if id == "" {
		id = "local"
	}
	logCtx := logg.WithFields(ctx, map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"instance": id,
	})
	logg.Info(logCtx, "starting api server")

	server := &http.Server{
		Addr:              addr,
		Handler:           routes.NewRouter(cfg, logg, registry, dbClient, redisClient, zoneService, promotionService, tracker),
		ReadHeaderTimeout: 10 * time.Second,
		// Presence streams end when the server context is cancelled.
		BaseContext: func(net.Listener) context.Context { return ctx },
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logg.Info(logCtx, "shutting down api server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		serverErr := server.Shutdown(shutdownCtx)
		if err := tracker.Shutdown(shutdownCtx); err != nil {
			logg.Error(logCtx, "presence tracker shutdown incomplete", err)
		}
		return serverErr
	})
	return g.Wait()
}

func presenceFactory(cfg config.RealtimeConfig) (presence.ChannelFactory, error) {
	if !cfg.Enabled() {
		return presence.ChannelFactoryFunc(func(context.Context, realtime.Handlers) (presence.Channel, error) {
			return nil, errors.New("realtime endpoint not configured")
		}), nil
	}
	client, err := realtime.NewClient(realtime.Config{
		URL:               cfg.URL,
		APIKey:            cfg.APIKey,
		HeartbeatInterval: cfg.HeartbeatInterval,
	})
	if err != nil {
		return nil, fmt.Errorf("create realtime client: %w", err)
	}
	return presence.RealtimeFactory(client, cfg.PresenceTopic), nil
}
