package licence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// PostgresStore is the authoritative Store, backed by the licences table.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore { return &PostgresStore{db: db} }

const grantColumns = `id, user_id, type, days_remaining, activated_at, updated_at`

func (s *PostgresStore) LatestGrant(ctx context.Context, userID string) (*Grant, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+grantColumns+` FROM licences WHERE user_id = $1 ORDER BY activated_at DESC, id DESC LIMIT 1`,
		userID)

	var g Grant
	err := row.Scan(&g.ID, &g.UserID, &g.Kind, &g.DaysRemaining, &g.ActivatedAt, &g.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query latest grant: %w", err)
	}
	return &g, nil
}

func (s *PostgresStore) CreateGrant(ctx context.Context, userID string, kind Kind, days int) (*Grant, error) {
	if err := ValidateGrant(userID, kind, days); err != nil {
		return nil, err
	}
	if kind != KindTimed {
		days = 0
	}

	row := s.db.QueryRowContext(ctx,
		`INSERT INTO licences (user_id, type, days_remaining) VALUES ($1, $2, $3) RETURNING `+grantColumns,
		userID, string(kind), days)

	var g Grant
	if err := row.Scan(&g.ID, &g.UserID, &g.Kind, &g.DaysRemaining, &g.ActivatedAt, &g.UpdatedAt); err != nil {
		return nil, fmt.Errorf("insert grant: %w", err)
	}
	return &g, nil
}

func (s *PostgresStore) DecrementAllTimed(ctx context.Context, amount int) (int64, error) {
	if amount <= 0 {
		return 0, nil
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE licences
		    SET days_remaining = GREATEST(days_remaining - $1, 0),
		        updated_at = now()
		  WHERE type = $2 AND days_remaining > 0`,
		amount, string(KindTimed))
	if err != nil {
		return 0, fmt.Errorf("decrement timed grants: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("decrement timed grants: rows affected: %w", err)
	}
	return affected, nil
}

// decaySweepSQL reconciles each row by the wall-clock days elapsed since
// its last update, so missed runs catch up and repeated runs within the
// same day are no-ops. The row's update is a single atomic statement;
// readers see either the pre- or post-sweep value.
const decaySweepSQL = `
UPDATE licences
   SET days_remaining = GREATEST(days_remaining - FLOOR(EXTRACT(EPOCH FROM ($1::timestamptz - updated_at)) / 86400)::int, 0),
       updated_at = updated_at + FLOOR(EXTRACT(EPOCH FROM ($1::timestamptz - updated_at)) / 86400)::int * INTERVAL '1 day'
 WHERE type = $2
   AND days_remaining > 0
   AND $1::timestamptz - updated_at >= INTERVAL '1 day'`

func (s *PostgresStore) DecaySweep(ctx context.Context, now time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, decaySweepSQL, now, string(KindTimed))
	if err != nil {
		return 0, fmt.Errorf("decay sweep: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("decay sweep: rows affected: %w", err)
	}
	return affected, nil
}
