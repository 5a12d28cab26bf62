package reconcile

import "time"

// Config holds reconciliation settings.
type Config struct {
	CronSecret      string        `env:"CRON_SECRET"`
	Window          time.Duration `env:"RECONCILE_WINDOW"           envDefault:"24h"`
	Schedule        string        `env:"RECONCILE_SCHEDULE"         envDefault:"daily@06:00"`
	Concurrency     int           `env:"RECONCILE_CONCURRENCY"      envDefault:"4"`
	DispatchTimeout time.Duration `env:"RECONCILE_DISPATCH_TIMEOUT" envDefault:"10s"`
	QueryTimeout    time.Duration `env:"RECONCILE_QUERY_TIMEOUT"    envDefault:"15s"`
	LedgerTTL       time.Duration `env:"RECONCILE_LEDGER_TTL"       envDefault:"168h"`
	AppURL          string        `env:"APP_URL"                    envDefault:"https://app.contentplan.app"`
	UpgradeURL      string        `env:"UPGRADE_URL"                envDefault:"https://app.contentplan.app/billing"`
}

const (
	DefaultWindow          = 24 * time.Hour
	DefaultConcurrency     = 4
	DefaultDispatchTimeout = 10 * time.Second
	DefaultQueryTimeout    = 15 * time.Second
)
