package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/playperu/mayorkiosk/internal/config"
	"github.com/playperu/mayorkiosk/internal/database"
	"github.com/playperu/mayorkiosk/internal/handler/health"
	"github.com/playperu/mayorkiosk/internal/kiosk"
	"github.com/playperu/mayorkiosk/internal/mayor"
	"github.com/playperu/mayorkiosk/internal/metrics"
	"github.com/playperu/mayorkiosk/internal/migrations"
	"github.com/playperu/mayorkiosk/internal/results"
	"github.com/playperu/mayorkiosk/internal/server"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, stdout io.Writer) error {
	cfg, err := config.Load(".env")
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := slog.New(slog.NewJSONHandler(stdout, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}))

	game, err := config.LoadGame(cfg.GameConfig)
	if err != nil {
		return fmt.Errorf("loading game config: %w", err)
	}
	engine := mayor.NewEngine(game.Catalog, game.Rules)
	logger.Info("game loaded",
		"challenges", len(game.Catalog.Challenges()),
		"budget", game.Rules.InitialBudget,
		"duration", game.Rules.Duration,
	)

	// --- SQLite ---
	db, err := database.Open(ctx, cfg.DBPath)
	if err != nil {
		return fmt.Errorf("connecting to sqlite: %w", err)
	}
	defer db.Close()

	if err := migrations.Run(db); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	logger.Info("connected to sqlite", "path", cfg.DBPath)

	checks := map[string]health.Checker{
		"sqlite": health.CheckerFunc(db.PingContext),
	}
	var store results.Store = results.NewSQLiteStore(db)

	// --- Redis (optional result mirror) ---
	if cfg.RedisURL != "" {
		rdb, err := openRedis(ctx, cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("connecting to redis: %w", err)
		}
		defer rdb.Close()
		logger.Info("connected to redis", "stream", cfg.ResultStream)

		store = results.NewRedisMirror(store, rdb, cfg.ResultStream, logger)
		checks["redis"] = health.CheckerFunc(func(ctx context.Context) error {
			return rdb.Ping(ctx).Err()
		})
	}

	// --- Kiosk ---
	m := metrics.New()
	broker := server.NewBroker(m)
	k := kiosk.New(engine, store, broker, logger, kiosk.Options{
		TickInterval: cfg.TickInterval,
		Metrics:      m,
	})
	defer k.Close()

	if cfg.AdminPasswordHash == "" {
		logger.Warn("ADMIN_PASSWORD_HASH not set, admin panel disabled")
	}

	// --- HTTP Server ---
	srv := server.New(cfg.HTTPAddr, server.Deps{
		Logger:            logger,
		Kiosk:             k,
		Broker:            broker,
		Results:           store,
		AdminSessions:     server.NewAdminSessions(db),
		AdminPasswordHash: cfg.AdminPasswordHash,
		Metrics:           m,
		Checks:            checks,
		SPADir:            cfg.SPADir,
	})

	// --- Run ---
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("starting http server", "addr", cfg.HTTPAddr)
		return srv.Run(gctx)
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down http server")
		return srv.Shutdown(context.Background())
	})

	return g.Wait()
}

func openRedis(ctx context.Context, rawURL string) (*redis.Client, error) {
	opt, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parsing redis url: %w", err)
	}
	rdb := redis.NewClient(opt)
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("pinging redis: %w", err)
	}
	return rdb, nil
}
