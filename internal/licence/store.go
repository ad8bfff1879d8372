package licence

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Store is the single owner of durable grant state. Every reader and
// mutator of licence rows goes through it; nothing else touches storage.
type Store interface {
	// LatestGrant returns the most recently activated grant for userID,
	// or nil if the user has never been granted a licence. Ties on
	// activation time are broken by insertion order, newest first.
	LatestGrant(ctx context.Context, userID string) (*Grant, error)

	// CreateGrant validates and persists one new grant row with
	// store-assigned timestamps. Existing rows are never updated.
	CreateGrant(ctx context.Context, userID string, kind Kind, days int) (*Grant, error)

	// DecrementAllTimed subtracts amount from every timed grant that
	// still has days left, clamped at zero, as one bulk mutation. It
	// returns the number of rows touched.
	DecrementAllTimed(ctx context.Context, amount int) (int64, error)

	// DecaySweep applies elapsed-time decay: each timed grant with days
	// left loses floor((now - updated_at) / 24h) days, clamped at zero,
	// and updated_at advances by the whole days consumed. Rows less than
	// a day old are untouched. Returns the number of rows touched.
	DecaySweep(ctx context.Context, now time.Time) (int64, error)
}

// ValidateGrant checks a grant request before anything is written. days
// must be non-negative for timed grants and is ignored for other kinds.
func ValidateGrant(userID string, kind Kind, days int) error {
	if strings.TrimSpace(userID) == "" {
		return &ValidationError{Field: "userId", Reason: "must not be empty"}
	}
	if !kind.Known() {
		return &ValidationError{Field: "type", Reason: fmt.Sprintf("unknown licence type %q", kind)}
	}
	if kind == KindTimed && days < 0 {
		return &ValidationError{Field: "days", Reason: "must be >= 0 for timed grants"}
	}
	return nil
}
