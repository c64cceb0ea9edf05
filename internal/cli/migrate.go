package cli

import (
	"context"
	"database/sql"
	"fmt"

	"certprep-study-service/internal/config"
	"certprep-study-service/internal/content"
	"certprep-study-service/internal/domain"
	pginfra "certprep-study-service/internal/infra/postgres"
	pgmigrations "certprep-study-service/internal/infra/postgres/migrations"
	"certprep-study-service/internal/logger"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/spf13/cobra"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/migrate"
	"go.uber.org/zap"
)

// NewMigrateCmd applies database migrations and optionally seeds the bundled content.
func NewMigrateCmd(configPath *string) *cobra.Command {
	var seed bool
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrations(cmd.Context(), *configPath, seed)
		},
	}
	cmd.Flags().BoolVar(&seed, "seed", false, "copy the bundled question sets and theory posts into postgres")
	return cmd
}

func runMigrations(ctx context.Context, configPath string, seed bool) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()
	if err := runMigrationsWithConfig(ctx, cfg); err != nil {
		return err
	}
	if seed {
		return seedBundledContent(ctx, cfg)
	}
	return nil
}

func runMigrationsWithConfig(ctx context.Context, cfg config.Config) error {
	if cfg.Postgres.URL == "" {
		return fmt.Errorf("postgres url not configured")
	}

	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(cfg.Postgres.URL)))
	db := bun.NewDB(sqldb, pgdialect.New())
	defer db.Close()

	migrator := migrate.NewMigrator(db, pgmigrations.Migrations)

	if err := migrator.Init(ctx); err != nil {
		return err
	}

	group, err := migrator.Migrate(ctx)
	if err != nil {
		return err
	}
	logger.Get().Info("migrations applied", zap.Int64("group", group.ID), zap.Int("count", len(group.Migrations)))
	return nil
}

func seedBundledContent(ctx context.Context, cfg config.Config) error {
	log := logger.Get()
	store, err := content.Load(ctx, content.Bundled(), log)
	if err != nil {
		return err
	}
	var posts []domain.Post
	for _, subject := range domain.Subjects() {
		posts = append(posts, store.Posts(subject)...)
	}

	pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer pool.Close()

	sets := store.AllChapters()
	if err := pginfra.SeedContent(ctx, pool, sets, posts); err != nil {
		return err
	}
	log.Info("bundled content seeded", zap.Int("chapters", len(sets)), zap.Int("posts", len(posts)))
	return nil
}
