package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/okian/wordgraph/internal/adapters/http/api"
	"github.com/okian/wordgraph/internal/adapters/render"
	"github.com/okian/wordgraph/internal/adapters/repository"
	"github.com/okian/wordgraph/internal/adapters/similarity"
	"github.com/okian/wordgraph/internal/app"
	"github.com/okian/wordgraph/internal/config"
	"github.com/okian/wordgraph/internal/domain/dedupe"
	"github.com/okian/wordgraph/pkg/logger"
	"github.com/okian/wordgraph/pkg/metrics"
)

// HTTP server timeout constants.
const (
	readTimeout               = 10 * time.Second
	writeTimeout              = 10 * time.Second
	idleTimeout               = 60 * time.Second
	readHeaderTimeout         = 5 * time.Second
	shutdownTimeout           = 30 * time.Second
	nanosecondsPerMillisecond = 1e6
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the engine behind the HTTP API and WebSocket stream",
		RunE: func(cmd *cobra.Command, _ []string) error {
			path, _ := cmd.Flags().GetString("config")
			return serve(cmd.Context(), path)
		},
	}
}

func serve(parent context.Context, configPath string) error {
	// We collect our own system metrics instead of the default Go collectors.
	prometheus.Unregister(collectors.NewGoCollector())
	prometheus.Unregister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	if err := logger.Init(); err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	defer func() { _ = logger.Sync() }()
	log := logger.Get()

	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig(ctx, configPath)
	if err != nil {
		return err
	}
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	broadcaster := render.NewBroadcaster(render.WithBroadcasterLogger(log.Named("ws")))
	eng, err := newEngine(cfg, log, broadcaster)
	if err != nil {
		return err
	}
	broadcaster.OnJoin(eng.Repaint)
	if err := eng.Start(ctx); err != nil {
		return fmt.Errorf("failed to start engine: %w", err)
	}

	mux := http.NewServeMux()
	api.NewServer(eng,
		api.WithMaxHistoryLimit(cfg.MaxHistoryLimit),
		api.WithStream(cfg.WSPath, broadcaster),
		api.WithLogger(log.Named("api")),
	).Register(ctx, mux)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info(gctx, "starting HTTP server", logger.String("addr", cfg.Addr), logger.String("ws", cfg.WSPath))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server failed: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		startSystemMetricsUpdater(gctx)
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info(context.Background(), "shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		err := srv.Shutdown(shutdownCtx)
		_ = broadcaster.Close()
		eng.Stop()
		if err != nil {
			return fmt.Errorf("server shutdown failed: %w", err)
		}
		return nil
	})

	err = g.Wait()
	log.Info(context.Background(), "server stopped")
	return err
}

func loadConfig(ctx context.Context, path string) (*config.Config, error) {
	if path == "" {
		path = os.Getenv(config.EnvFile)
	}
	cfg, err := config.LoadFile(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

// newEngine builds an engine from configuration, painting to r.
func newEngine(cfg *config.Config, log logger.Logger, r render.Renderer) (*app.Engine, error) {
	v, err := cfg.LayoutVariant()
	if err != nil {
		return nil, err
	}

	var client similarity.Client
	if cfg.SimilarityURL != "" {
		client = similarity.NewHTTPClient(cfg.SimilarityURL,
			similarity.WithTimeout(cfg.SimilarityTimeout()),
			similarity.WithBreaker(uint32(cfg.BreakerFailureThreshold), cfg.BreakerTimeout()),
			similarity.WithHTTPLogger(log.Named("similarity")),
		)
	} else {
		lo, hi := cfg.ScoringLatency()
		client = similarity.NewInMemoryClient(similarity.WithLatencyRange(lo, hi))
	}

	return app.New(
		app.WithVariant(v),
		app.WithViewport(cfg.ViewportWidth, cfg.ViewportHeight),
		app.WithTickInterval(cfg.TickInterval()),
		app.WithQueueSize(cfg.QueueSize),
		app.WithTransitions(cfg.NewWindow(), cfg.ExitDuration()),
		app.WithDragAlphaTarget(cfg.DragAlphaTarget),
		app.WithLogger(log.Named("engine")),
		app.WithRenderer(r),
		app.WithClient(client),
		app.WithDeduper(dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(cfg.DedupeSize))),
		app.WithHistory(repository.NewTreapStore(repository.WithMaxLimit(cfg.MaxHistoryLimit))),
	), nil
}

// startSystemMetricsUpdater updates system metrics until ctx is done.
func startSystemMetricsUpdater(ctx context.Context) {
	ticker := time.NewTicker(metrics.Global().RefreshInterval())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateSystemMetrics()
		}
	}
}

// updateSystemMetrics updates system-level metrics.
func updateSystemMetrics() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	metrics.UpdateSystemMemoryUsage(m.Alloc)
	metrics.UpdateSystemGoroutineCount(runtime.NumGoroutine())

	if m.NumGC > 0 {
		avgPauseMs := float64(m.PauseTotalNs) / float64(m.NumGC) / nanosecondsPerMillisecond
		metrics.RecordSystemGCPauseTime(avgPauseMs)
	}
}
