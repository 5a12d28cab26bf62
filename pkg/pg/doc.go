// Package pg opens pgx connection pools, checks their health and applies
// goose migrations from an fs.FS.
//
//	pool, err := pg.Connect(ctx, cfg, log)
//	if err != nil {
//		return err
//	}
//	defer pool.Close()
//	if err := pg.Migrate(ctx, pool, migrations.Postgres(), log); err != nil {
//		return err
//	}
package pg
