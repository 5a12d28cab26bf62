package subscription

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is an in-memory ReadWriter and Profiles implementation.
// Suitable for tests and local development.
type MemoryStore struct {
	mu       sync.RWMutex
	records  map[uuid.UUID]*Record
	profiles map[uuid.UUID]Profile
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records:  make(map[uuid.UUID]*Record),
		profiles: make(map[uuid.UUID]Profile),
	}
}

// FindByUserID implements Store.
func (s *MemoryStore) FindByUserID(_ context.Context, userID uuid.UUID) (*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.records[userID]
	if !ok {
		return nil, ErrRecordNotFound
	}
	return rec.Clone(), nil
}

// FindUpdatedSince implements Store. Results are ordered by UpdatedAt.
func (s *MemoryStore) FindUpdatedSince(_ context.Context, status Status, typ Type, since time.Time) ([]Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Record, 0)
	for _, rec := range s.records {
		if rec.Status != status {
			continue
		}
		if typ != "" && rec.Type != typ {
			continue
		}
		if rec.UpdatedAt.Before(since) {
			continue
		}
		out = append(out, *rec.Clone())
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].UpdatedAt.Before(out[j].UpdatedAt)
	})
	return out, nil
}

// Save implements Writer. The stored copy is detached from the argument.
func (s *MemoryStore) Save(_ context.Context, record *Record) error {
	if record == nil {
		return ErrInvalidRecord
	}
	if record.UserID == uuid.Nil {
		return ErrMissingUserID
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.records[record.UserID] = record.Clone()
	return nil
}

// Create implements Writer. It stores record only if the user has none.
func (s *MemoryStore) Create(_ context.Context, record *Record) (bool, error) {
	if record == nil {
		return false, ErrInvalidRecord
	}
	if record.UserID == uuid.Nil {
		return false, ErrMissingUserID
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.records[record.UserID]; ok {
		return false, nil
	}
	s.records[record.UserID] = record.Clone()
	return true, nil
}

// PutProfile stores or replaces a profile.
func (s *MemoryStore) PutProfile(p Profile) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.profiles[p.UserID] = p
}

// FindProfile implements Profiles.
func (s *MemoryStore) FindProfile(_ context.Context, userID uuid.UUID) (*Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.profiles[userID]
	if !ok {
		return nil, ErrProfileNotFound
	}
	return &p, nil
}
