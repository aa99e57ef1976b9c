package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/auditai/insight-engine/internal/config"
	"github.com/auditai/insight-engine/internal/pkg/distlock"
	"github.com/auditai/insight-engine/internal/pkg/logger"
	"github.com/auditai/insight-engine/internal/repository/postgres"
	"github.com/auditai/insight-engine/migrations"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

const (
	lockKey      = "insight-engine:migrate"
	lockTTL      = 5 * time.Minute
	lockInterval = 2 * time.Second
)

func main() {
	var (
		configPath  string
		lockTimeout time.Duration
	)

	root := &cobra.Command{
		Use:           "migrate",
		Short:         "Manage the insight-engine database schema",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "config/config.yaml", "path to the YAML config file")

	up := &cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, db, err := connect(cmd.Context(), configPath)
			if err != nil {
				return err
			}
			defer db.Close()

			var rdb *redis.Client
			if cfg.Redis.URL != "" {
				opts, err := redis.ParseURL(cfg.Redis.URL)
				if err != nil {
					return fmt.Errorf("parse REDIS_URL: %w", err)
				}
				rdb = redis.NewClient(opts)
				defer rdb.Close()
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), lockTimeout)
			defer cancel()
			lock := distlock.NewLock(rdb, db, lockKey, lockTTL)
			return distlock.WithLock(ctx, lock, lockInterval, func(ctx context.Context) error {
				applied, err := postgres.Migrate(ctx, db, migrations.FS)
				for _, name := range applied {
					logger.Info("migrate: applied", "file", name)
				}
				if err != nil {
					return err
				}
				if len(applied) == 0 {
					logger.Info("migrate: schema is up to date")
				}
				return nil
			})
		},
	}
	up.Flags().DurationVar(&lockTimeout, "lock-timeout", 2*time.Minute, "how long to wait for another migrator to finish")

	status := &cobra.Command{
		Use:   "status",
		Short: "List migrations and when they were applied",
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, db, err := connect(cmd.Context(), configPath)
			if err != nil {
				return err
			}
			defer db.Close()

			states, err := postgres.MigrationStatus(cmd.Context(), db, migrations.FS)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, st := range states {
				applied := "pending"
				if st.AppliedAt != nil {
					applied = st.AppliedAt.UTC().Format(time.RFC3339)
				}
				fmt.Fprintf(out, "%-40s %s\n", st.Name, applied)
			}
			return nil
		},
	}

	root.AddCommand(up, status)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := root.ExecuteContext(ctx); err != nil {
		logger.Error("migrate: failed", "error", err)
		stop()
		os.Exit(1)
	}
}

func connect(ctx context.Context, configPath string) (*config.Config, *sql.DB, error) {
	cfg, err := config.LoadFromEnv(configPath)
	if err != nil {
		return nil, nil, err
	}
	logger.Configure(logger.Options{
		Level:       cfg.Log.Level,
		Format:      cfg.Log.Format,
		ServiceName: "insight-engine-migrate",
		RedactPII:   cfg.Log.ShouldRedactPII(),
	})
	if cfg.Database.URL == "" {
		return nil, nil, fmt.Errorf("DATABASE_URL is required")
	}
	db, err := postgres.Open(ctx, cfg.Database)
	if err != nil {
		return nil, nil, err
	}
	return cfg, db, nil
}
