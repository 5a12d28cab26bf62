package pgstore

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/contentplan/backend/pkg/pg"
	"github.com/contentplan/backend/pkg/subscription"
)

// Querier is the subset of *pgxpool.Pool and pgx.Tx the store uses.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store persists subscription records and reads user profiles in Postgres.
// It implements subscription.ReadWriter and subscription.Profiles.
type Store struct {
	db Querier
}

// New creates a Store on top of a pool or transaction.
func New(db Querier) *Store {
	if db == nil {
		panic("pgstore: querier is required")
	}
	return &Store{db: db}
}

const recordColumns = `user_id, id, status, subscription_type, trial_start, trial_end,
	subscription_start, subscription_end, external_subscription_id, updated_at`

// FindByUserID implements subscription.Store.
func (s *Store) FindByUserID(ctx context.Context, userID uuid.UUID) (*subscription.Record, error) {
	query := `SELECT ` + recordColumns + ` FROM subscriptions WHERE user_id = $1`

	rec, err := scanRecord(s.db.QueryRow(ctx, query, userID))
	if err != nil {
		if pg.IsNotFoundError(err) {
			return nil, subscription.ErrRecordNotFound
		}
		return nil, fmt.Errorf("find subscription: %w", err)
	}
	return rec, nil
}

// FindUpdatedSince implements subscription.Store.
func (s *Store) FindUpdatedSince(ctx context.Context, status subscription.Status, typ subscription.Type, since time.Time) ([]subscription.Record, error) {
	query := `SELECT ` + recordColumns + `
		FROM subscriptions
		WHERE status = $1
			AND ($2::text = '' OR subscription_type = $2::text)
			AND updated_at >= $3
		ORDER BY updated_at`

	rows, err := s.db.Query(ctx, query, string(status), string(typ), since.UTC())
	if err != nil {
		return nil, fmt.Errorf("find updated subscriptions: %w", err)
	}
	defer rows.Close()

	out := make([]subscription.Record, 0)
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan subscription: %w", err)
		}
		out = append(out, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate subscriptions: %w", err)
	}
	return out, nil
}

const (
	onConflictUpdate = `ON CONFLICT (user_id) DO UPDATE SET
			id = EXCLUDED.id,
			status = EXCLUDED.status,
			subscription_type = EXCLUDED.subscription_type,
			trial_start = EXCLUDED.trial_start,
			trial_end = EXCLUDED.trial_end,
			subscription_start = EXCLUDED.subscription_start,
			subscription_end = EXCLUDED.subscription_end,
			external_subscription_id = EXCLUDED.external_subscription_id,
			updated_at = EXCLUDED.updated_at`
	onConflictKeep = `ON CONFLICT (user_id) DO NOTHING`
)

// Save implements subscription.Writer as an upsert keyed by user_id.
func (s *Store) Save(ctx context.Context, rec *subscription.Record) error {
	if _, err := s.insert(ctx, rec, onConflictUpdate); err != nil {
		return fmt.Errorf("save subscription: %w", err)
	}
	return nil
}

// Create implements subscription.Writer. An existing row is left untouched.
func (s *Store) Create(ctx context.Context, rec *subscription.Record) (bool, error) {
	n, err := s.insert(ctx, rec, onConflictKeep)
	if err != nil {
		return false, fmt.Errorf("create subscription: %w", err)
	}
	return n == 1, nil
}

func (s *Store) insert(ctx context.Context, rec *subscription.Record, onConflict string) (int64, error) {
	if rec == nil {
		return 0, subscription.ErrInvalidRecord
	}
	if rec.UserID == uuid.Nil {
		return 0, subscription.ErrMissingUserID
	}

	updatedAt := rec.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now()
	}

	query := `
		INSERT INTO subscriptions (` + recordColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		` + onConflict

	tag, err := s.db.Exec(ctx, query,
		rec.UserID,
		rec.ID,
		string(rec.Status),
		string(rec.Type),
		rec.TrialStart,
		rec.TrialEnd,
		rec.SubscriptionStart,
		rec.SubscriptionEnd,
		rec.ExternalSubscriptionID,
		updatedAt.UTC(),
	)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// FindProfile implements subscription.Profiles.
func (s *Store) FindProfile(ctx context.Context, userID uuid.UUID) (*subscription.Profile, error) {
	query := `
		SELECT user_id, email, name, fallback_status, fallback_type, fallback_trial_end
		FROM profiles
		WHERE user_id = $1
	`

	var (
		p             subscription.Profile
		status, typ   *string
		fallbackTrial *time.Time
	)
	err := s.db.QueryRow(ctx, query, userID).Scan(&p.UserID, &p.Email, &p.Name, &status, &typ, &fallbackTrial)
	if err != nil {
		if pg.IsNotFoundError(err) {
			return nil, subscription.ErrProfileNotFound
		}
		return nil, fmt.Errorf("find profile: %w", err)
	}

	if status != nil {
		p.Fallback.Status = subscription.Status(*status)
	}
	if typ != nil {
		p.Fallback.Type = subscription.Type(*typ)
	}
	p.Fallback.TrialEnd = utc(fallbackTrial)
	return &p, nil
}

// SaveProfile creates or replaces a profile row.
func (s *Store) SaveProfile(ctx context.Context, p subscription.Profile) error {
	if p.UserID == uuid.Nil {
		return subscription.ErrMissingUserID
	}

	query := `
		INSERT INTO profiles (user_id, email, name, fallback_status, fallback_type, fallback_trial_end)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (user_id) DO UPDATE SET
			email = EXCLUDED.email,
			name = EXCLUDED.name,
			fallback_status = EXCLUDED.fallback_status,
			fallback_type = EXCLUDED.fallback_type,
			fallback_trial_end = EXCLUDED.fallback_trial_end
	`

	_, err := s.db.Exec(ctx, query,
		p.UserID,
		p.Email,
		p.Name,
		nullString(string(p.Fallback.Status)),
		nullString(string(p.Fallback.Type)),
		p.Fallback.TrialEnd,
	)
	if err != nil {
		return fmt.Errorf("save profile: %w", err)
	}
	return nil
}

func scanRecord(row pgx.Row) (*subscription.Record, error) {
	var (
		rec         subscription.Record
		status, typ string
	)
	err := row.Scan(
		&rec.UserID,
		&rec.ID,
		&status,
		&typ,
		&rec.TrialStart,
		&rec.TrialEnd,
		&rec.SubscriptionStart,
		&rec.SubscriptionEnd,
		&rec.ExternalSubscriptionID,
		&rec.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	rec.Status = subscription.Status(status)
	rec.Type = subscription.Type(typ)
	rec.TrialStart = utc(rec.TrialStart)
	rec.TrialEnd = utc(rec.TrialEnd)
	rec.SubscriptionStart = utc(rec.SubscriptionStart)
	rec.SubscriptionEnd = utc(rec.SubscriptionEnd)
	rec.UpdatedAt = rec.UpdatedAt.UTC()
	return &rec, nil
}

func utc(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := t.UTC()
	return &v
}

func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
