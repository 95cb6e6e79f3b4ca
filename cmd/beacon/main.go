package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/V4T54L/beacon/internal/adapter/api"
	"github.com/V4T54L/beacon/internal/adapter/api/handler"
	"github.com/V4T54L/beacon/internal/adapter/cache"
	"github.com/V4T54L/beacon/internal/adapter/events"
	"github.com/V4T54L/beacon/internal/adapter/host"
	"github.com/V4T54L/beacon/internal/adapter/metrics"
	"github.com/V4T54L/beacon/internal/adapter/network"
	"github.com/V4T54L/beacon/internal/domain"
	"github.com/V4T54L/beacon/internal/pkg/config"
	"github.com/V4T54L/beacon/internal/pkg/logger"
	"github.com/V4T54L/beacon/internal/usecase"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	appLogger := logger.New(cfg.LogLevel, os.Stdout)
	log := appLogger.Slog()
	slog.SetDefault(log)

	m := metrics.NewRuntimeMetrics(prometheus.DefaultRegisterer)

	// --- Graceful Shutdown Context ---
	ctx, stop := host.NotifyContext(context.Background())
	defer stop()

	// --- Redis (cache backend) ---
	var redisClient *redis.Client
	if cfg.CacheBackend == "redis" {
		redisOpts, err := redis.ParseURL(cfg.RedisAddr)
		if err != nil {
			log.Error("failed to parse redis url", "error", err)
			os.Exit(1)
		}
		redisClient = redis.NewClient(redisOpts)
		defer redisClient.Close()
		if err := redisClient.Ping(ctx).Err(); err != nil {
			log.Warn("could not reach redis, cache operations will fail until it recovers", "error", err)
		}
	}

	store, err := cache.New(*cfg, redisClient, log, m)
	if err != nil {
		log.Error("failed to initialize cache", "error", err)
		os.Exit(1)
	}

	bus := events.NewDispatcher(events.WithMetrics(m))

	// --- Network ---
	transport, err := network.NewTransport(cfg.Transport(), network.TransportOptions{
		MaxConnections: cfg.MaxConnections,
		KeepAlive:      cfg.KeepAlive,
		Compression:    cfg.Compression,
		Timeout:        cfg.Timeout,
	})
	if err != nil {
		log.Error("failed to initialize transport", "error", err)
		os.Exit(1)
	}
	manager := network.NewManager(transport, network.Options{
		Endpoint:      cfg.Endpoint(),
		Timeout:       cfg.Timeout,
		RetryAttempts: cfg.RetryAttempts,
		KeepAlive:     cfg.KeepAlive,
	}, log, bus, m)

	env := host.New(log, m)
	rt := usecase.NewRuntime(*cfg, usecase.RuntimeDeps{
		Logger:  appLogger,
		Host:    env,
		Network: manager,
		Cache:   store,
		Events:  bus,
	})

	// --- Admin Server ---
	var adminServer *http.Server
	if cfg.AdminAddr != "" {
		broker := handler.NewSSEBroker(ctx, log, 15*time.Second)
		broker.Forward(bus, domain.EventNetworkStatus)

		adminServer = &http.Server{
			Addr: cfg.AdminAddr,
			Handler: api.NewRouter(api.RouterDeps{
				Status:   handler.NewStatusHandler(manager, store, usecase.LastStatusKey, cfg.Version, cfg.Environment, log),
				Stream:   broker,
				Gatherer: prometheus.DefaultGatherer,
				Token:    cfg.AdminToken,
				Logger:   log,
			}),
			ReadHeaderTimeout: 5 * time.Second,
			// Streams end with the process context, not at Shutdown.
			BaseContext: func(net.Listener) context.Context { return ctx },
		}

		go func() {
			log.Info("starting admin server", "addr", adminServer.Addr)
			if err := adminServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error("admin server failed", "error", err)
				stop()
			}
		}()
	}

	// --- Lifecycle ---
	env.On(domain.SignalReady, func(any) error {
		return rt.Init(ctx)
	})
	if err := env.Ready(); err != nil {
		log.Error("ready handlers failed", "error", err)
	}
	if err := env.Loaded(); err != nil {
		log.Error("resource-loaded handlers failed", "error", err)
	}

	env.Go(ctx, "health-check", func(ctx context.Context) error {
		manager.StartHealthCheck(ctx, cfg.HealthCheckInterval)
		return nil
	})

	// --- Wait for shutdown signal ---
	<-ctx.Done()

	if err := env.Teardown(); err != nil {
		log.Error("teardown handlers failed", "error", err)
	}

	if adminServer != nil {
		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancelShutdown()
		if err := adminServer.Shutdown(shutdownCtx); err != nil {
			log.Error("admin server shutdown failed", "error", err)
		}
	}

	env.Wait()
	log.Info("shut down gracefully")
}
