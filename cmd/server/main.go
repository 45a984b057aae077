// cmd/server runs the back-office HTTP API and the live preview endpoint.
//
// Usage:
//
//	server [--port 8080] [--database-url sqlite:file:fieldops.db] [--rules rules.yaml] [--log-level info] [--dev]
//	server migrate [--atlas-dir migrations/postgres]
//
// Settings default to PORT, DATABASE_URL and the FIELDOPS_* environment
// variables. --database-url memory keeps records in memory.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/matthewbaird/fieldops/internal/config"
	"github.com/matthewbaird/fieldops/internal/logging"
	"github.com/matthewbaird/fieldops/internal/rules"
	"github.com/matthewbaird/fieldops/internal/server"
	"github.com/matthewbaird/fieldops/internal/store"
)

// memoryURL selects the in-memory store.
const memoryURL = "memory"

func newRootCmd() *cobra.Command {
	cfg := config.FromEnv()

	cmd := &cobra.Command{
		Use:          "server",
		Short:        "Serve the back-office API",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := newLogger(cfg)
			if err != nil {
				return err
			}
			defer logger.Sync()
			return serve(cmd.Context(), cfg, logger)
		},
	}

	pf := cmd.PersistentFlags()
	pf.StringVar(&cfg.DatabaseURL, "database-url", cfg.DatabaseURL, "postgres://, sqlite: or memory")
	pf.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "debug, info, warn or error")
	pf.BoolVar(&cfg.Dev, "dev", cfg.Dev, "human-readable development logging")

	f := cmd.Flags()
	f.IntVar(&cfg.Port, "port", cfg.Port, "listen port")
	f.StringVar(&cfg.RulesPath, "rules", cfg.RulesPath, "business rule document applied to writes")

	cmd.AddCommand(newMigrateCmd(&cfg))
	return cmd
}

func newMigrateCmd(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply the database schema",
		Long: `Applies the embedded schema for the database dialect. With --atlas-dir,
the Atlas migration directory is applied with the atlas CLI instead.`,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := newLogger(*cfg)
			if err != nil {
				return err
			}
			defer logger.Sync()
			return migrate(cmd.Context(), *cfg, logger)
		},
	}
	cmd.Flags().StringVar(&cfg.AtlasDir, "atlas-dir", cfg.AtlasDir, "Atlas migration directory")
	return cmd
}

func newLogger(cfg config.Config) (*zap.Logger, error) {
	logger, err := logging.New(logging.Config{Level: cfg.LogLevel, Development: cfg.Dev})
	if err != nil {
		return nil, fmt.Errorf("building logger: %w", err)
	}
	return logger, nil
}

func serve(ctx context.Context, cfg config.Config, logger *zap.Logger) error {
	var rs *rules.RuleSet
	if cfg.RulesPath != "" {
		var err error
		if rs, err = rules.Load(cfg.RulesPath); err != nil {
			return err
		}
		logger.Info("business rules loaded", zap.String("module", rs.Module), zap.Strings("entities", rs.EntityNames()))
	}

	var s store.Store
	if cfg.DatabaseURL == memoryURL {
		s = store.NewMemoryStore()
		logger.Warn("using in-memory store; records are lost on exit")
	} else {
		sqlStore, err := store.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer sqlStore.Close()
		if err := sqlStore.Migrate(ctx); err != nil {
			return err
		}
		logger.Info("database migrated", zap.String("dialect", sqlStore.Dialect()))
		s = sqlStore
	}

	return server.Run(ctx, server.Config{
		Port:   cfg.Port,
		Store:  s,
		Rules:  rs,
		Logger: logger,
	})
}

func migrate(ctx context.Context, cfg config.Config, logger *zap.Logger) error {
	if cfg.DatabaseURL == memoryURL {
		return fmt.Errorf("nothing to migrate for the in-memory store")
	}
	if cfg.AtlasDir != "" {
		res, err := store.MigrateAtlas(ctx, cfg.AtlasDir, cfg.DatabaseURL)
		if err != nil {
			return err
		}
		logger.Info("atlas migrations applied",
			zap.Int("applied", res.Applied),
			zap.String("current", res.Current),
			zap.String("target", res.Target))
		return nil
	}

	s, err := store.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer s.Close()
	if err := s.Migrate(ctx); err != nil {
		return err
	}
	logger.Info("database migrated", zap.String("dialect", s.Dialect()))
	return nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}
