package licence

import (
	"context"
	"sync"
	"time"
)

// MemoryStore keeps grants in memory with the same observable semantics
// as PostgresStore: append-only rows, newest-row-wins reads, clamped
// decay. It backs the unit suites and local experiments; it is not
// durable.
type MemoryStore struct {
	mu     sync.Mutex
	nextID int64
	grants []Grant

	// now is the store clock for assigned timestamps; tests override it.
	now func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{now: time.Now}
}

func (s *MemoryStore) LatestGrant(_ context.Context, userID string) (*Grant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var latest *Grant
	for i := range s.grants {
		g := &s.grants[i]
		if g.UserID != userID {
			continue
		}
		if latest == nil || g.ActivatedAt.After(latest.ActivatedAt) ||
			(g.ActivatedAt.Equal(latest.ActivatedAt) && g.ID > latest.ID) {
			latest = g
		}
	}
	if latest == nil {
		return nil, nil
	}
	out := *latest
	return &out, nil
}

func (s *MemoryStore) CreateGrant(_ context.Context, userID string, kind Kind, days int) (*Grant, error) {
	if err := ValidateGrant(userID, kind, days); err != nil {
		return nil, err
	}
	if kind != KindTimed {
		days = 0
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	now := s.now()
	g := Grant{
		ID:            s.nextID,
		UserID:        userID,
		Kind:          kind,
		DaysRemaining: days,
		ActivatedAt:   now,
		UpdatedAt:     now,
	}
	s.grants = append(s.grants, g)
	out := g
	return &out, nil
}

func (s *MemoryStore) DecrementAllTimed(_ context.Context, amount int) (int64, error) {
	if amount <= 0 {
		return 0, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var affected int64
	now := s.now()
	for i := range s.grants {
		g := &s.grants[i]
		if g.Kind != KindTimed || g.DaysRemaining <= 0 {
			continue
		}
		g.DaysRemaining -= amount
		if g.DaysRemaining < 0 {
			g.DaysRemaining = 0
		}
		g.UpdatedAt = now
		affected++
	}
	return affected, nil
}

func (s *MemoryStore) DecaySweep(_ context.Context, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var affected int64
	for i := range s.grants {
		g := &s.grants[i]
		if g.Kind != KindTimed || g.DaysRemaining <= 0 {
			continue
		}
		elapsed := int(now.Sub(g.UpdatedAt) / (24 * time.Hour))
		if elapsed < 1 {
			continue
		}
		g.DaysRemaining -= elapsed
		if g.DaysRemaining < 0 {
			g.DaysRemaining = 0
		}
		g.UpdatedAt = g.UpdatedAt.Add(time.Duration(elapsed) * 24 * time.Hour)
		affected++
	}
	return affected, nil
}
