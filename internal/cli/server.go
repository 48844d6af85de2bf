package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"trivia-night/internal/app"
	"trivia-night/internal/config"
	"trivia-night/internal/infra/memory"
	pgstore "trivia-night/internal/infra/postgres"
	redisstore "trivia-night/internal/infra/redis"
	"trivia-night/internal/infra/sqlite"
	transport "trivia-night/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the gateway.
func NewStartCmd(g *globals) *cobra.Command {
	var port string
	cmd := &cobra.Command{
		Use:   "start",
		Short: "Serve the shared document store over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), g, port)
		},
	}
	cmd.Flags().StringVar(&port, "port", os.Getenv("PORT"), "port to listen on (default from config)")
	return cmd
}

func runServer(ctx context.Context, g *globals, portFlag string) error {
	cfg := g.cfg
	logger := g.logger

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg, logger); err != nil {
			return err
		}
	}

	store, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()
	logger.Info("store ready", "backend", cfg.Store.Backend)

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	gateway := transport.NewGateway(store, logger, config.DurationOr(cfg.Server.WatchInterval, app.DefaultPollInterval))
	server := &http.Server{
		Addr:        ":" + finalPort,
		Handler:     gateway.Routes(),
		ReadTimeout: 15 * time.Second,
		// No WriteTimeout: watch streams stay open for the whole game.
	}

	group, gctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		logger.Info("starting trivia gateway", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	})
	group.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	return group.Wait()
}

// openStore builds the configured backend. The returned func releases its connections.
func openStore(ctx context.Context, cfg config.Config) (app.Store, func(), error) {
	maxSize := cfg.Store.MaxDocumentSize
	switch cfg.Store.Backend {
	case config.BackendRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			client.Close()
			return nil, nil, fmt.Errorf("pinging redis: %w", err)
		}
		ttl := config.DurationOr(cfg.Redis.TTL, 0)
		return redisstore.NewDocumentStore(client, ttl, maxSize), func() { client.Close() }, nil
	case config.BackendPostgres:
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return nil, nil, fmt.Errorf("connecting to postgres: %w", err)
		}
		return pgstore.NewDocumentStore(pool, maxSize), pool.Close, nil
	case config.BackendSQLite:
		db, err := sqlite.Open(ctx, cfg.SQLite.Path)
		if err != nil {
			return nil, nil, err
		}
		store, err := sqlite.NewDocumentStore(ctx, db, maxSize)
		if err != nil {
			db.Close()
			return nil, nil, err
		}
		return store, func() { db.Close() }, nil
	default:
		return memory.NewDocumentStore(), func() {}, nil
	}
}
