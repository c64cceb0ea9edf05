package cli

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"certprep-study-service/internal/app"
	"certprep-study-service/internal/config"
	"certprep-study-service/internal/content"
	"certprep-study-service/internal/exam"
	"certprep-study-service/internal/infra/memory"
	pginfra "certprep-study-service/internal/infra/postgres"
	redisinfra "certprep-study-service/internal/infra/redis"
	sqliteinfra "certprep-study-service/internal/infra/sqlite"
	"certprep-study-service/internal/logger"
	transport "certprep-study-service/internal/transport/http"
	"certprep-study-service/internal/wronganswer"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the study server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

// backends holds the external connections the configuration asks for.
type backends struct {
	pool   *pgxpool.Pool
	redis  *redis.Client
	sqlite *sql.DB
}

func openBackends(ctx context.Context, cfg config.Config) (*backends, error) {
	b := &backends{}
	needPostgres := cfg.Content.Source == "postgres" || cfg.Storage.Backend == "postgres"
	if needPostgres {
		if cfg.Postgres.URL == "" {
			return nil, fmt.Errorf("postgres url not configured")
		}
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		b.pool = pool
	}
	if cfg.Redis.Addr != "" || cfg.Storage.Backend == "redis" {
		if cfg.Redis.Addr == "" {
			b.Close()
			return nil, fmt.Errorf("redis addr not configured")
		}
		b.redis = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	}
	if cfg.Storage.Backend == "sqlite" {
		db, err := sqliteinfra.Open(ctx, cfg.SQLite.DSN)
		if err != nil {
			b.Close()
			return nil, fmt.Errorf("open sqlite: %w", err)
		}
		b.sqlite = db
	}
	return b, nil
}

func (b *backends) Close() {
	if b.pool != nil {
		b.pool.Close()
	}
	if b.redis != nil {
		_ = b.redis.Close()
	}
	if b.sqlite != nil {
		_ = b.sqlite.Close()
	}
}

func loadContent(ctx context.Context, cfg config.Config, b *backends, log *zap.Logger) (*content.Store, error) {
	var loader content.Loader
	switch cfg.Content.Source {
	case "bundled":
		loader = content.Bundled()
	case "postgres":
		loader = pginfra.NewContentLoader(b.pool)
	default:
		return nil, fmt.Errorf("unknown content source %q", cfg.Content.Source)
	}
	return content.Load(ctx, loader, log)
}

func storageFactory(cfg config.Config, b *backends) (app.StorageFactory, error) {
	key := cfg.Storage.Key
	switch cfg.Storage.Backend {
	case "memory":
		profiles := memory.NewStorageFactory()
		return func(profileID string) wronganswer.Storage { return profiles.For(profileID) }, nil
	case "redis":
		ttl := config.TTLDuration(cfg.Redis.TTL, 0)
		return func(profileID string) wronganswer.Storage {
			return redisinfra.NewStorage(b.redis, key, profileID, ttl)
		}, nil
	case "postgres":
		return func(profileID string) wronganswer.Storage {
			return pginfra.NewStorage(b.pool, key, profileID)
		}, nil
	case "sqlite":
		return func(profileID string) wronganswer.Storage {
			return sqliteinfra.NewStorage(b.sqlite, key, profileID)
		}, nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}
}

// examTick keeps the clock at 1 Hz or faster.
func examTick(cfg config.Exam) time.Duration {
	tick := config.TTLDuration(cfg.Tick, time.Second)
	if tick <= 0 || tick > time.Second {
		return time.Second
	}
	return tick
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	log := logger.Get()
	defer func() { _ = logger.Sync() }()

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg); err != nil {
			return err
		}
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	b, err := openBackends(ctx, cfg)
	if err != nil {
		return err
	}
	defer b.Close()

	store, err := loadContent(ctx, cfg, b, log)
	if err != nil {
		return err
	}
	storage, err := storageFactory(cfg, b)
	if err != nil {
		return err
	}

	var sessions app.SessionRepository
	if b.redis != nil {
		sessions = redisinfra.NewSessionStore(b.redis, config.TTLDuration(cfg.Session.TTL, 10*time.Minute), log)
	} else {
		sessions = memory.NewSessionStore()
	}

	service := app.NewStudyService(sessions, store, storage, exam.PolicyFromConfig(cfg.Exam), log, exam.WithTick(examTick(cfg.Exam)))
	wsHandler := transport.NewWSHandler(service, log)

	server := &http.Server{
		Addr:              ":" + finalPort,
		Handler:           transport.NewRouter(store, service, wsHandler, cfg.Server.AllowedOrigins, log),
		ReadHeaderTimeout: 15 * time.Second,
	}

	go func() {
		log.Info("starting study service",
			zap.String("addr", server.Addr),
			zap.String("content", cfg.Content.Source),
			zap.String("storage", cfg.Storage.Backend),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("failed to start server", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Info("shutting down server")
	case <-ctx.Done():
		log.Info("context canceled, shutting down server")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
