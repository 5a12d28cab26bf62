package sqlitestore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/contentplan/backend/pkg/subscription"
)

// timeLayout is fixed-width UTC so that text comparison orders like time.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// Store persists subscription records and reads user profiles in SQLite.
// It implements subscription.ReadWriter and subscription.Profiles.
type Store struct {
	db *sql.DB
}

// New creates a Store. The schema must be applied with Migrate first.
func New(db *sql.DB) *Store {
	if db == nil {
		panic("sqlitestore: db is required")
	}
	return &Store{db: db}
}

const recordColumns = `user_id, id, status, subscription_type, trial_start, trial_end,
	subscription_start, subscription_end, external_subscription_id, updated_at`

// FindByUserID implements subscription.Store.
func (s *Store) FindByUserID(ctx context.Context, userID uuid.UUID) (*subscription.Record, error) {
	query := `SELECT ` + recordColumns + ` FROM subscriptions WHERE user_id = ?`

	rec, err := scanRecord(s.db.QueryRowContext(ctx, query, userID.String()))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
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
		WHERE status = ?
			AND (? = '' OR subscription_type = ?)
			AND updated_at >= ?
		ORDER BY updated_at`

	rows, err := s.db.QueryContext(ctx, query, string(status), string(typ), string(typ), formatTime(since))
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
			id = excluded.id,
			status = excluded.status,
			subscription_type = excluded.subscription_type,
			trial_start = excluded.trial_start,
			trial_end = excluded.trial_end,
			subscription_start = excluded.subscription_start,
			subscription_end = excluded.subscription_end,
			external_subscription_id = excluded.external_subscription_id,
			updated_at = excluded.updated_at`
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
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		` + onConflict

	res, err := s.db.ExecContext(ctx, query,
		rec.UserID.String(),
		rec.ID,
		string(rec.Status),
		string(rec.Type),
		formatNullTime(rec.TrialStart),
		formatNullTime(rec.TrialEnd),
		formatNullTime(rec.SubscriptionStart),
		formatNullTime(rec.SubscriptionEnd),
		rec.ExternalSubscriptionID,
		formatTime(updatedAt),
	)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// FindProfile implements subscription.Profiles.
func (s *Store) FindProfile(ctx context.Context, userID uuid.UUID) (*subscription.Profile, error) {
	query := `
		SELECT email, name, fallback_status, fallback_type, fallback_trial_end
		FROM profiles
		WHERE user_id = ?
	`

	p := subscription.Profile{UserID: userID}
	var status, typ, trial sql.NullString
	err := s.db.QueryRowContext(ctx, query, userID.String()).Scan(&p.Email, &p.Name, &status, &typ, &trial)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, subscription.ErrProfileNotFound
		}
		return nil, fmt.Errorf("find profile: %w", err)
	}

	p.Fallback.Status = subscription.Status(status.String)
	p.Fallback.Type = subscription.Type(typ.String)
	if p.Fallback.TrialEnd, err = parseNullTime(trial); err != nil {
		return nil, err
	}
	return &p, nil
}

// SaveProfile creates or replaces a profile row.
func (s *Store) SaveProfile(ctx context.Context, p subscription.Profile) error {
	if p.UserID == uuid.Nil {
		return subscription.ErrMissingUserID
	}

	query := `
		INSERT INTO profiles (user_id, email, name, fallback_status, fallback_type, fallback_trial_end)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id) DO UPDATE SET
			email = excluded.email,
			name = excluded.name,
			fallback_status = excluded.fallback_status,
			fallback_type = excluded.fallback_type,
			fallback_trial_end = excluded.fallback_trial_end
	`

	_, err := s.db.ExecContext(ctx, query,
		p.UserID.String(),
		p.Email,
		p.Name,
		nullString(string(p.Fallback.Status)),
		nullString(string(p.Fallback.Type)),
		formatNullTime(p.Fallback.TrialEnd),
	)
	if err != nil {
		return fmt.Errorf("save profile: %w", err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (*subscription.Record, error) {
	var (
		rec                                    subscription.Record
		userID, status, typ, updatedAt         string
		trialStart, trialEnd, subStart, subEnd sql.NullString
	)
	err := row.Scan(
		&userID,
		&rec.ID,
		&status,
		&typ,
		&trialStart,
		&trialEnd,
		&subStart,
		&subEnd,
		&rec.ExternalSubscriptionID,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	if rec.UserID, err = uuid.Parse(userID); err != nil {
		return nil, fmt.Errorf("invalid stored user id %q: %w", userID, err)
	}
	rec.Status = subscription.Status(status)
	rec.Type = subscription.Type(typ)

	if rec.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	for _, f := range []struct {
		dst **time.Time
		src sql.NullString
	}{
		{&rec.TrialStart, trialStart},
		{&rec.TrialEnd, trialEnd},
		{&rec.SubscriptionStart, subStart},
		{&rec.SubscriptionEnd, subEnd},
	} {
		if *f.dst, err = parseNullTime(f.src); err != nil {
			return nil, err
		}
	}
	return &rec, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func formatNullTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: formatTime(*t), Valid: true}
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}, errors.Join(ErrInvalidTimestamp, err)
	}
	return t, nil
}

func parseNullTime(s sql.NullString) (*time.Time, error) {
	if !s.Valid || s.String == "" {
		return nil, nil
	}
	t, err := parseTime(s.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
