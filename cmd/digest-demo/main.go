// Command digest-demo runs the full summarization pipeline end to end
// against simulated providers: it seeds demo documents and jobs, starts
// the worker pool, logs periodic stats snapshots, and shuts down
// gracefully on SIGINT/SIGTERM.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/xraph/digest"
	"github.com/xraph/digest/api"
	"github.com/xraph/digest/cron"
	"github.com/xraph/digest/demo"
	"github.com/xraph/digest/engine"
	"github.com/xraph/digest/provider"
	"github.com/xraph/digest/provider/sim"
	"github.com/xraph/digest/ratelimit"
	"github.com/xraph/digest/store"
	"github.com/xraph/digest/store/memory"
	"github.com/xraph/digest/store/postgres"
	redisstore "github.com/xraph/digest/store/redis"
	"github.com/xraph/digest/store/sqlite"
	"github.com/xraph/digest/stream"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to YAML config")
	flag.Parse()

	if err := run(*configPath); err != nil {
		slog.Error("digest-demo failed", "error", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := LoadConfig(configPath)
	if err != nil {
		return err
	}

	logger := newLogger(cfg.Log)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}

	if err := st.Migrate(ctx); err != nil {
		return fmt.Errorf("migrate store: %w", err)
	}
	if err := st.Ping(ctx); err != nil {
		return fmt.Errorf("ping store: %w", err)
	}

	allowResubmission := true
	if cfg.Pipeline.AllowResubmission != nil {
		allowResubmission = *cfg.Pipeline.AllowResubmission
	}

	p, err := digest.New(
		digest.WithStore(st),
		digest.WithLogger(logger),
		digest.WithConcurrency(cfg.Pipeline.Concurrency),
		digest.WithPollInterval(cfg.Pipeline.PollInterval.Std()),
		digest.WithProcessTimeout(cfg.Pipeline.ProcessTimeout.Std()),
		digest.WithShutdownTimeout(cfg.Pipeline.ShutdownTimeout.Std()),
		digest.WithAllowResubmission(allowResubmission),
	)
	if err != nil {
		return fmt.Errorf("create pipeline: %w", err)
	}

	broker := stream.NewBroker(logger)

	engOpts := []engine.Option{engine.WithExtension(broker)}
	for _, l := range cfg.Limits {
		engOpts = append(engOpts, engine.WithRateLimit(ratelimit.Config{
			Provider:       l.Provider,
			MaxConcurrency: l.MaxConcurrency,
			RateLimit:      l.RateLimit,
			RateBurst:      l.RateBurst,
		}))
	}

	eng, err := engine.Build(p, engOpts...)
	if err != nil {
		return fmt.Errorf("build engine: %w", err)
	}

	simulator := sim.New(sim.Config{
		FailureRate: cfg.Sim.FailureRate,
		FatalRate:   cfg.Sim.FatalRate,
		SlowRate:    cfg.Sim.SlowRate,
		MinLatency:  cfg.Sim.MinLatency.Std(),
		MaxLatency:  cfg.Sim.MaxLatency.Std(),
		SlowFactor:  3,
		Seed:        cfg.Sim.Seed,
	})
	for _, d := range provider.DefaultDescriptors() {
		eng.RegisterProvider(d, simulator)
	}

	if err := eng.Start(ctx); err != nil {
		return fmt.Errorf("start engine: %w", err)
	}

	var sched *cron.Scheduler
	if cfg.Demo.CleanupAge > 0 {
		sched = cron.NewScheduler(cron.WithLogger(logger))
		maxAge := cfg.Demo.CleanupAge.Std()
		err = sched.Register("cleanup-old-jobs", cfg.Demo.CleanupSchedule, func(taskCtx context.Context) error {
			removed, cleanupErr := eng.Cleanup(taskCtx, maxAge)
			if cleanupErr != nil {
				return cleanupErr
			}
			if removed > 0 {
				logger.Info("old jobs cleaned up", slog.Int64("removed", removed))
			}
			return nil
		})
		if err != nil {
			return fmt.Errorf("register cleanup task: %w", err)
		}
		if err := sched.Start(ctx); err != nil {
			return fmt.Errorf("start cron scheduler: %w", err)
		}
	}

	var srv *http.Server
	if cfg.Server.Addr != "" {
		srv = &http.Server{
			Addr:              cfg.Server.Addr,
			Handler:           api.New(eng, api.WithLogger(logger), api.WithBroker(broker)).Handler(),
			ReadHeaderTimeout: 10 * time.Second,
		}
		go func() {
			logger.Info("http api listening", slog.String("addr", cfg.Server.Addr))
			if serveErr := srv.ListenAndServe(); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
				logger.Error("http api failed", "error", serveErr.Error())
			}
		}()
	}

	gen := demo.New(eng, nil, demo.WithLogger(logger))
	if _, err := gen.Generate(ctx, cfg.Demo.Jobs); err != nil {
		logger.Error("demo job generation failed", "error", err.Error())
	}

	logStats(ctx, eng, logger, cfg.Demo.StatsInterval.Std())

	// logStats returned: a shutdown signal arrived.
	logger.Info("shutting down")

	stopCtx, cancel := context.WithTimeout(context.Background(), cfg.Pipeline.ShutdownTimeout.Std())
	defer cancel()

	if srv != nil {
		if shutdownErr := srv.Shutdown(stopCtx); shutdownErr != nil {
			logger.Warn("http api shutdown failed", "error", shutdownErr.Error())
		}
	}

	if sched != nil {
		if stopErr := sched.Stop(stopCtx); stopErr != nil {
			logger.Warn("cron scheduler stop failed", "error", stopErr.Error())
		}
	}

	if err := eng.Stop(stopCtx); err != nil {
		return fmt.Errorf("stop engine: %w", err)
	}

	logger.Info("shutdown complete")
	return nil
}

// logStats logs a snapshot every interval until ctx is cancelled.
func logStats(ctx context.Context, eng *engine.Engine, logger *slog.Logger, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			snap, err := eng.Snapshot(ctx)
			if err != nil {
				logger.Warn("stats snapshot failed", "error", err.Error())
				continue
			}
			logger.Info("pipeline stats",
				slog.Int64("total_jobs", snap.TotalJobs),
				slog.Int64("pending", snap.PendingJobs),
				slog.Int64("processing", snap.ProcessingJobs),
				slog.Int64("completed", snap.CompletedJobs),
				slog.Int64("failed", snap.FailedJobs),
				slog.Int64("cancelled", snap.CancelledJobs),
				slog.Float64("total_cost", snap.TotalCost),
				slog.Duration("avg_processing_time", snap.AvgProcessingTime),
			)
		}
	}
}

// openStore builds the configured store backend.
func openStore(ctx context.Context, cfg *Config, logger *slog.Logger) (store.Store, error) {
	allow := true
	if cfg.Pipeline.AllowResubmission != nil {
		allow = *cfg.Pipeline.AllowResubmission
	}

	switch cfg.Store.Backend {
	case "memory":
		return memory.New(memory.WithAllowResubmission(allow)), nil
	case "sqlite":
		return sqlite.New(cfg.Store.Path,
			sqlite.WithLogger(logger),
			sqlite.WithAllowResubmission(allow),
		)
	case "postgres":
		return postgres.New(ctx, cfg.Store.DSN,
			postgres.WithLogger(logger),
			postgres.WithAllowResubmission(allow),
		)
	case "redis":
		client := goredis.NewClient(&goredis.Options{Addr: cfg.Store.Addr})
		return redisstore.New(client,
			redisstore.WithLogger(logger),
			redisstore.WithAllowResubmission(allow),
		), nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}
}

// newLogger builds the slog logger from config.
func newLogger(cfg LogConfig) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	if cfg.Format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}
