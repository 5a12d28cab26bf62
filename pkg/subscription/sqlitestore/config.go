package sqlitestore

import "time"

// Config holds the SQLite database settings.
type Config struct {
	Path        string        `env:"SQLITE_PATH"         envDefault:"data/contentplan.db"`
	BusyTimeout time.Duration `env:"SQLITE_BUSY_TIMEOUT" envDefault:"5s"`
}
