// Package pgstore stores subscription records and reads user profiles in
// Postgres through pgx.
//
// The schema lives in the top-level migrations package and is applied with
// pg.Migrate:
//
//	pool, err := pg.Connect(ctx, cfg, log)
//	if err != nil {
//		return err
//	}
//	if err := pg.Migrate(ctx, pool, migrations.Postgres(), log); err != nil {
//		return err
//	}
//	store := pgstore.New(pool)
//
// Store implements subscription.ReadWriter and subscription.Profiles, so a
// single value serves the gate, the syncer and the reconciler.
package pgstore
