package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/tablepick/topdish/internal/adapters/cache"
	"github.com/tablepick/topdish/internal/adapters/events"
	"github.com/tablepick/topdish/internal/adapters/http/api"
	"github.com/tablepick/topdish/internal/adapters/repository"
	app "github.com/tablepick/topdish/internal/app"
	"github.com/tablepick/topdish/internal/config"
	"github.com/tablepick/topdish/pkg/logger"
	"github.com/tablepick/topdish/pkg/metrics"
)

// HTTP server timeout constants.
const (
	readTimeout            = 10 * time.Second
	writeTimeout           = 10 * time.Second
	idleTimeout            = 60 * time.Second
	readHeaderTimeout      = 5 * time.Second
	shutdownTimeout        = 30 * time.Second
	serviceMetricsInterval = 5 * time.Second
)

func main() {
	// Disable default Go metrics collection to avoid duplicate metrics
	prometheus.Unregister(collectors.NewGoCollector())
	prometheus.Unregister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	// Initialize logging
	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		return
	}
	defer func() {
		_ = logger.Sync()
	}()

	log := logger.Get()

	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration (defaults -> optional file -> env)
	cfg, err := config.Load(ctx)
	if err != nil {
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		return
	}

	// Apply configured log level (fallback to info on invalid input)
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	opts := []app.Option{
		app.WithLogger(log.Named("app")),
		app.WithSlotCount(cfg.SlotCount),
		app.WithHalfLife(cfg.ScoreHalfLife),
		app.WithLockTimeout(cfg.LockTimeout),
		app.WithDedupeSize(cfg.DedupeSize),
		app.WithQueueCapacity(cfg.PublishQueueSize),
		app.WithDispatcherCount(cfg.DispatcherCount),
		app.WithCacheTTL(cfg.CacheTTL),
	}

	if cfg.StoreBackend == "sqlite" {
		store, err := repository.NewSQLiteStore(cfg.DBPath)
		if err != nil {
			os.Stderr.WriteString("failed to open database: " + err.Error() + "\n")
			return
		}
		opts = append(opts, app.WithStore(store))
	}

	if cfg.CacheBackend == "redis" {
		backend, err := cache.NewRedisBackend(ctx, cfg.RedisAddr)
		if err != nil {
			os.Stderr.WriteString("failed to connect to redis: " + err.Error() + "\n")
			return
		}
		opts = append(opts, app.WithCacheBackend(backend))
	}

	if cfg.AMQPURL != "" {
		publisher, err := events.NewAMQPPublisher(cfg.AMQPURL, cfg.AMQPExchange)
		if err != nil {
			os.Stderr.WriteString("failed to connect to broker: " + err.Error() + "\n")
			return
		}
		opts = append(opts, app.WithPublisher(publisher))
	}

	svc := app.New(opts...)
	if err := svc.Start(ctx); err != nil {
		os.Stderr.WriteString("failed to start service: " + err.Error() + "\n")
		return
	}
	defer svc.Stop()

	// Start service metrics updater
	go startServiceMetricsUpdater(ctx, svc)

	// HTTP mux and routes.
	mux := http.NewServeMux()

	apiServer := api.NewServer(svc, svc,
		api.WithSubmitRateLimit(cfg.SubmitRate, cfg.SubmitBurst),
		api.WithMaxLeaderboardLimit(cfg.MaxLeaderboardLimit),
	)
	apiServer.Register(mux)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	// Start the HTTP server
	go func() {
		log.Info(ctx, "starting HTTP server", logger.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			os.Stderr.WriteString("HTTP server failed: " + err.Error() + "\n")
			return
		}
	}()

	// Wait for shutdown signal
	<-ctx.Done()
	log.Info(ctx, "shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(ctx, "server shutdown failed", logger.Error(err))
	}

	log.Info(ctx, "server stopped")
}

// startServiceMetricsUpdater starts a background goroutine that refreshes
// gauge metrics derived from service state.
func startServiceMetricsUpdater(ctx context.Context, svc *app.Service) {
	ticker := time.NewTicker(serviceMetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			stats := svc.GetStats()
			if depth, ok := stats["publishQueueDepth"].(int); ok {
				metrics.UpdatePublishQueueDepth(depth)
			}
		}
	}
}
