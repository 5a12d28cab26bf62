package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/contentplan/backend/migrations"
	"github.com/contentplan/backend/pkg/config"
	"github.com/contentplan/backend/pkg/logger"
	"github.com/contentplan/backend/pkg/pg"
	"github.com/contentplan/backend/pkg/subscription/sqlitestore"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending schema migrations for STORE_DRIVER",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signalContext(cmd.Context())
		defer stop()
		return migrate(ctx)
	},
}

// migrate opens its own connection so it can run before the schema exists.
func migrate(ctx context.Context) error {
	if err := config.LoadEnv(envFiles...); err != nil {
		return err
	}
	var cfg appConfig
	if err := config.Load(&cfg); err != nil {
		return err
	}
	log := logger.New(logger.WithConfig(cfg.Log))

	switch cfg.StoreDriver {
	case driverPostgres:
		var pgCfg pg.Config
		if err := config.Load(&pgCfg); err != nil {
			return err
		}
		pool, err := pg.Connect(ctx, pgCfg, log)
		if err != nil {
			return err
		}
		defer pool.Close()
		return pg.Migrate(ctx, pool, migrations.Postgres(), log)

	case driverSQLite:
		var sqlCfg sqlitestore.Config
		if err := config.Load(&sqlCfg); err != nil {
			return err
		}
		db, err := sqlitestore.Open(ctx, sqlCfg)
		if err != nil {
			return err
		}
		defer db.Close()
		return sqlitestore.Migrate(ctx, db, log)

	default:
		return fmt.Errorf("unknown STORE_DRIVER %q", cfg.StoreDriver)
	}
}
