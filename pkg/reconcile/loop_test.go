package reconcile_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/contentplan/backend/pkg/logger"
	"github.com/contentplan/backend/pkg/reconcile"
	"github.com/contentplan/backend/pkg/schedule"
	"github.com/contentplan/backend/pkg/subscription"
)

func TestLoop_NotifiesEachChangeOnce(t *testing.T) {
	t.Parallel()
	store := subscription.NewMemoryStore()
	// updated during the first period, after the loop has started
	addUser(t, store, subscription.StatusPro, subscription.TypeMonthly, time.Now().Add(10*time.Millisecond), "loop@example.com")

	d := &mockDispatcher{}
	d.On("Send", mock.Anything, mock.Anything, "loop@example.com", mock.Anything).Return(nil)
	r := newReconciler(fixture{store: store}, d, reconcile.WithLedger(reconcile.NewMemoryLedger(0)))

	ctx, cancel := context.WithTimeout(context.Background(), 150*time.Millisecond)
	defer cancel()

	err := r.Loop(ctx, schedule.Every(20*time.Millisecond))
	assert.NoError(t, err)
	d.AssertNumberOfCalls(t, "Send", 1)
}

func TestLoop_StopsOnCancel(t *testing.T) {
	t.Parallel()
	d := &mockDispatcher{}
	r := newReconciler(fixture{store: subscription.NewMemoryStore()}, d)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Loop(ctx, schedule.Every(time.Hour)) }()
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("loop did not stop")
	}
}

type recordingStore struct {
	subscription.Store

	mu     sync.Mutex
	starts []time.Time
}

func (s *recordingStore) FindUpdatedSince(ctx context.Context, status subscription.Status, typ subscription.Type, since time.Time) ([]subscription.Record, error) {
	s.mu.Lock()
	s.starts = append(s.starts, since)
	s.mu.Unlock()
	return s.Store.FindUpdatedSince(ctx, status, typ, since)
}

func TestLoop_FirstWindowIsOnePeriod(t *testing.T) {
	t.Parallel()
	store := &recordingStore{Store: subscription.NewMemoryStore()}
	r := reconcile.NewReconciler(store, subscription.NewMemoryStore(), &mockDispatcher{}, reconcile.WithLogger(logger.Noop()))

	started := time.Now()
	ctx, cancel := context.WithTimeout(context.Background(), 80*time.Millisecond)
	defer cancel()
	require.NoError(t, r.Loop(ctx, schedule.Every(50*time.Millisecond)))

	store.mu.Lock()
	defer store.mu.Unlock()
	require.NotEmpty(t, store.starts)
	assert.False(t, store.starts[0].Before(started), "first window reaches back before the loop started")
}

// A restarted process without a ledger must not notify a change the
// previous process already covered.
func TestLoop_RestartDoesNotRenotify(t *testing.T) {
	t.Parallel()
	const period = 200 * time.Millisecond

	store := subscription.NewMemoryStore()
	d := &mockDispatcher{}
	d.On("Send", mock.Anything, mock.Anything, "restart@example.com", mock.Anything).Return(nil)

	started := time.Now()
	addUser(t, store, subscription.StatusPro, subscription.TypeMonthly, started.Add(period/2), "restart@example.com")

	for _, lifetime := range []time.Duration{period + period*3/10, period + period/2} {
		r := newReconciler(fixture{store: store}, d)
		ctx, cancel := context.WithTimeout(context.Background(), lifetime)
		err := r.Loop(ctx, schedule.Every(period))
		cancel()
		require.NoError(t, err)
	}

	d.AssertNumberOfCalls(t, "Send", 1)
}
