package subscription_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/contentplan/backend/pkg/logger"
	"github.com/contentplan/backend/pkg/subscription"
)

type mockParser struct{ mock.Mock }

func (m *mockParser) ParseWebhook(ctx context.Context, payload []byte, signature string) (*subscription.Event, error) {
	args := m.Called(ctx, payload, signature)
	e, _ := args.Get(0).(*subscription.Event)
	return e, args.Error(1)
}

type failingWriter struct{ *subscription.MemoryStore }

func (failingWriter) Save(context.Context, *subscription.Record) error {
	return errors.New("disk full")
}

func (failingWriter) Create(context.Context, *subscription.Record) (bool, error) {
	return false, errors.New("disk full")
}

// lateWriter misses the record on the first lookup, as if a billing event
// committed it right after EnsureTrial looked.
type lateWriter struct {
	*subscription.MemoryStore
	missed bool
}

func (w *lateWriter) FindByUserID(ctx context.Context, id uuid.UUID) (*subscription.Record, error) {
	if !w.missed {
		w.missed = true
		return nil, subscription.ErrRecordNotFound
	}
	return w.MemoryStore.FindByUserID(ctx, id)
}

func newSyncer(store subscription.ReadWriter, clock *time.Time, opts ...subscription.SyncerOption) *subscription.Syncer {
	opts = append([]subscription.SyncerOption{
		subscription.WithSyncerClock(func() time.Time { return *clock }),
		subscription.WithSyncerLogger(logger.Noop()),
	}, opts...)
	return subscription.NewSyncer(store, opts...)
}

func TestSyncer_EnsureTrial(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := subscription.NewMemoryStore()
	clock := now
	s := newSyncer(store, &clock)
	id := uuid.New()

	rec, err := s.EnsureTrial(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, subscription.StatusFreeTrial, rec.Status)
	assert.Equal(t, subscription.TypeFree, rec.Type)
	assert.Equal(t, now.AddDate(0, 0, subscription.DefaultTrialDays), *rec.TrialEnd)
	assert.Empty(t, rec.ExternalSubscriptionID)

	clock = clock.Add(48 * time.Hour)
	again, err := s.EnsureTrial(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, rec.TrialEnd, again.TrialEnd, "existing trial must not be extended")

	_, err = s.EnsureTrial(ctx, uuid.Nil)
	assert.ErrorIs(t, err, subscription.ErrMissingUserID)
}

func TestSyncer_EnsureTrialSaveFailure(t *testing.T) {
	t.Parallel()
	clock := now
	s := newSyncer(failingWriter{subscription.NewMemoryStore()}, &clock)

	_, err := s.EnsureTrial(context.Background(), uuid.New())
	assert.ErrorIs(t, err, subscription.ErrFailedToSaveRecord)
}

func TestSyncer_EnsureTrialKeepsConcurrentUpgrade(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := subscription.NewMemoryStore()
	clock := now
	id := uuid.New()

	periodEnd := now.AddDate(0, 1, 0)
	require.NoError(t, newSyncer(store, &clock).Apply(ctx, subscription.Event{
		Type:                   subscription.EventStarted,
		UserID:                 id,
		ExternalSubscriptionID: "sub_01",
		SubscriptionType:       subscription.TypeMonthly,
		PeriodEnd:              &periodEnd,
	}))

	rec, err := newSyncer(&lateWriter{MemoryStore: store}, &clock).EnsureTrial(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, subscription.StatusPro, rec.Status)

	stored, err := store.FindByUserID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, subscription.StatusPro, stored.Status)
	assert.Equal(t, subscription.TypeMonthly, stored.Type)
}

func TestSyncer_Apply(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := subscription.NewMemoryStore()
	clock := now
	s := newSyncer(store, &clock)
	id := uuid.New()

	_, err := s.EnsureTrial(ctx, id)
	require.NoError(t, err)

	periodEnd := now.AddDate(0, 1, 0)
	started := subscription.Event{
		Type:                   subscription.EventStarted,
		UserID:                 id,
		ExternalSubscriptionID: "sub_01",
		SubscriptionType:       subscription.TypeMonthly,
		PeriodEnd:              &periodEnd,
	}

	clock = now.Add(time.Minute)
	require.NoError(t, s.Apply(ctx, started))
	rec, err := store.FindByUserID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, subscription.StatusPro, rec.Status)
	assert.Equal(t, subscription.TypeMonthly, rec.Type)
	assert.Equal(t, "sub_01", rec.ExternalSubscriptionID)
	assert.NotEmpty(t, rec.ID)
	assert.True(t, rec.HasPaidPeriod())
	assert.Equal(t, clock, rec.UpdatedAt)
	assert.NotNil(t, rec.TrialEnd, "trial history is kept")

	t.Run("redelivery does not touch UpdatedAt", func(t *testing.T) {
		clock = now.Add(2 * time.Minute)
		require.NoError(t, s.Apply(ctx, started))
		again, err := store.FindByUserID(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, now.Add(time.Minute), again.UpdatedAt)
	})

	t.Run("renewal moves to active", func(t *testing.T) {
		nextEnd := periodEnd.AddDate(0, 1, 0)
		clock = now.Add(3 * time.Minute)
		require.NoError(t, s.Apply(ctx, subscription.Event{
			Type:                   subscription.EventRenewed,
			UserID:                 id,
			ExternalSubscriptionID: "sub_01",
			PeriodEnd:              &nextEnd,
		}))
		rec, err := store.FindByUserID(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, subscription.StatusActive, rec.Status)
		assert.Equal(t, subscription.TypeMonthly, rec.Type)
		assert.Equal(t, nextEnd, *rec.SubscriptionEnd)
	})

	t.Run("late start event after renewal is ignored", func(t *testing.T) {
		clock = now.Add(4 * time.Minute)
		require.NoError(t, s.Apply(ctx, started))
		rec, err := store.FindByUserID(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, subscription.StatusActive, rec.Status)
		assert.Equal(t, now.Add(3*time.Minute), rec.UpdatedAt)
	})

	t.Run("scheduled cancellation needs an end", func(t *testing.T) {
		err := s.Apply(ctx, subscription.Event{Type: subscription.EventCancelScheduled, UserID: id})
		assert.ErrorIs(t, err, subscription.ErrInvalidWebhookPayload)
	})

	t.Run("scheduled cancellation", func(t *testing.T) {
		effective := now.AddDate(0, 0, 20)
		require.NoError(t, s.Apply(ctx, subscription.Event{
			Type:        subscription.EventCancelScheduled,
			UserID:      id,
			EffectiveAt: &effective,
		}))
		rec, err := store.FindByUserID(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, subscription.StatusCancelScheduled, rec.Status)
		assert.Equal(t, effective, *rec.SubscriptionEnd)
	})

	t.Run("cancellation drops to free", func(t *testing.T) {
		clock = now.Add(5 * time.Minute)
		require.NoError(t, s.Apply(ctx, subscription.Event{Type: subscription.EventCancelled, UserID: id}))
		rec, err := store.FindByUserID(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, subscription.StatusCancelled, rec.Status)
		assert.Equal(t, subscription.TypeFree, rec.Type)
		assert.Equal(t, clock, *rec.SubscriptionEnd)
		assert.Equal(t, "sub_01", rec.ExternalSubscriptionID)
	})
}

func TestSyncer_ApplyWithoutRecord(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := subscription.NewMemoryStore()
	clock := now
	id := uuid.New()

	require.NoError(t, newSyncer(store, &clock).Apply(ctx, subscription.Event{
		Type:             subscription.EventStarted,
		UserID:           id,
		SubscriptionType: subscription.TypeYearly,
	}))

	rec, err := store.FindByUserID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, subscription.StatusPro, rec.Status)
	assert.Equal(t, subscription.TypeYearly, rec.Type)
	assert.Equal(t, now, *rec.SubscriptionStart)
}

func TestSyncer_ApplyRejects(t *testing.T) {
	t.Parallel()
	clock := now
	s := newSyncer(subscription.NewMemoryStore(), &clock)

	err := s.Apply(context.Background(), subscription.Event{Type: subscription.EventStarted})
	assert.ErrorIs(t, err, subscription.ErrMissingUserID)

	err = s.Apply(context.Background(), subscription.Event{Type: "subscription_paused", UserID: uuid.New()})
	assert.ErrorIs(t, err, subscription.ErrUnknownEvent)
}

func TestSyncer_HandleWebhook(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("applies parsed event", func(t *testing.T) {
		t.Parallel()
		store := subscription.NewMemoryStore()
		clock := now
		id := uuid.New()
		parser := &mockParser{}
		parser.On("ParseWebhook", mock.Anything, []byte("{}"), "sig").
			Return(&subscription.Event{Type: subscription.EventStarted, UserID: id}, nil).Once()

		s := newSyncer(store, &clock, subscription.WithWebhookParser(parser))
		require.NoError(t, s.HandleWebhook(ctx, []byte("{}"), "sig"))

		rec, err := store.FindByUserID(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, subscription.StatusPro, rec.Status)
		parser.AssertExpectations(t)
	})

	t.Run("acknowledges untracked events", func(t *testing.T) {
		t.Parallel()
		clock := now
		parser := &mockParser{}
		parser.On("ParseWebhook", mock.Anything, mock.Anything, mock.Anything).Return(nil, subscription.ErrUnknownEvent)

		s := newSyncer(subscription.NewMemoryStore(), &clock, subscription.WithWebhookParser(parser))
		assert.NoError(t, s.HandleWebhook(ctx, []byte("{}"), "sig"))
	})

	t.Run("propagates verification failure", func(t *testing.T) {
		t.Parallel()
		clock := now
		parser := &mockParser{}
		parser.On("ParseWebhook", mock.Anything, mock.Anything, mock.Anything).Return(nil, subscription.ErrWebhookVerificationFailed)

		s := newSyncer(subscription.NewMemoryStore(), &clock, subscription.WithWebhookParser(parser))
		assert.ErrorIs(t, s.HandleWebhook(ctx, []byte("{}"), "bad"), subscription.ErrWebhookVerificationFailed)
	})

	t.Run("requires a parser", func(t *testing.T) {
		t.Parallel()
		clock := now
		assert.Error(t, newSyncer(subscription.NewMemoryStore(), &clock).HandleWebhook(ctx, nil, ""))
	})
}
