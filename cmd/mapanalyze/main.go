package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/udisondev/sc2pathlib/internal/analysis"
	"github.com/udisondev/sc2pathlib/internal/config"
	"github.com/udisondev/sc2pathlib/internal/db"
)

const AnalyzerConfigPath = "config/analyzer.yaml"

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		slog.Info("shutting down", "signal", sig)
		cancel()
	}()

	if err := run(ctx, os.Args[1:]); err != nil {
		slog.Error("fatal", "err", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	// Load config FIRST to determine log level
	cfgPath := AnalyzerConfigPath
	if p := os.Getenv("SC2PATH_CONFIG"); p != "" {
		cfgPath = p
	}
	cfg, err := config.LoadAnalyzer(cfgPath)
	if err != nil {
		return fmt.Errorf("loading analyzer config: %w", err)
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: parseLogLevel(cfg.LogLevel),
	})))

	paths := args
	if len(paths) == 0 {
		paths = cfg.Maps
	}
	if len(paths) == 0 {
		return fmt.Errorf("no map files given (pass paths or set maps in %s)", cfgPath)
	}
	slog.Info("sc2 map analyzer starting", "log_level", cfg.LogLevel, "maps", len(paths))

	var store analysis.Store
	if cfg.StoreSnapshots {
		version, err := db.RunMigrations(ctx, cfg.Database.DSN())
		if err != nil {
			return fmt.Errorf("running migrations: %w", err)
		}
		slog.Info("database migrations applied", "version", version)

		database, err := db.New(ctx, cfg.Database.DSN(), cfg.Database.MaxConns)
		if err != nil {
			return fmt.Errorf("connecting to database: %w", err)
		}
		defer database.Close()
		slog.Info("database connected")

		store = database.Snapshots()
	}

	cache := analysis.NewCache(analysisOptions(cfg), store)

	workers := cfg.Workers
	if workers == 0 {
		workers = runtime.NumCPU()
	}

	// Analyze all maps in parallel
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	reports := make([]Report, len(paths))
	for i, path := range paths {
		g.Go(func() error {
			r, err := analyzeFile(gctx, cache, cfg, path)
			if err != nil {
				return err
			}
			reports[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	for _, r := range reports {
		r.Log()
	}
	slog.Info("analysis complete", "maps", len(reports), "cached", cache.Len())
	return nil
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
