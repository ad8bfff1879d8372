package licence

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// Service wires the store, the evaluator and grant validation together.
// It is the only path the boundary layer uses to read or change licence
// state.
type Service struct {
	store Store
}

func NewService(store Store) *Service { return &Service{store: store} }

// Status answers "is this user licensed, and for how long". A store
// failure surfaces as an error, never as a fabricated no-licence answer.
func (s *Service) Status(ctx context.Context, userID string) (Status, error) {
	if strings.TrimSpace(userID) == "" {
		userID = DefaultUserID
	}
	g, err := s.store.LatestGrant(ctx, userID)
	if err != nil {
		return Status{}, fmt.Errorf("latest grant for %q: %w", userID, err)
	}
	return Evaluate(g, time.Now()), nil
}

// Grant records a new licence grant. Existing grants are never mutated;
// the new row simply becomes the authoritative one, so two concurrent
// grants for the same user race only on activation time and the later
// one deterministically wins.
func (s *Service) Grant(ctx context.Context, userID string, kind Kind, days int) (*Grant, error) {
	if err := ValidateGrant(userID, kind, days); err != nil {
		return nil, err
	}
	g, err := s.store.CreateGrant(ctx, userID, kind, days)
	if err != nil {
		return nil, fmt.Errorf("create grant: %w", err)
	}
	log.Info().
		Str("user_id", g.UserID).
		Str("type", string(g.Kind)).
		Int("days", g.DaysRemaining).
		Msg("licence granted")
	return g, nil
}

// RunDecay applies one reconciling decay sweep at the given time and
// returns the number of grants decremented.
func (s *Service) RunDecay(ctx context.Context, now time.Time) (int64, error) {
	affected, err := s.store.DecaySweep(ctx, now)
	if err != nil {
		return 0, fmt.Errorf("decay sweep: %w", err)
	}
	return affected, nil
}
