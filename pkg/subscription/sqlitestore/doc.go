// Package sqlitestore stores subscription records and reads user profiles in
// a local SQLite database through the pure Go modernc driver. It suits
// development and single-node deployments.
//
//	db, err := sqlitestore.Open(ctx, cfg)
//	if err != nil {
//		return err
//	}
//	defer db.Close()
//	if err := sqlitestore.Migrate(ctx, db, log); err != nil {
//		return err
//	}
//	store := sqlitestore.New(db)
//
// Timestamps are stored as fixed-width UTC text so that range queries on
// updated_at compare correctly.
package sqlitestore
