// Package usage tracks per-user consumption of the metered image-to-prompt
// feature and gates it behind subscription tiers.
package usage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Record is the stored usage state for one user.
type Record struct {
	UserID       string
	Email        string
	Subscription Plan
	Used         int
	ResetDate    time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// ErrNotFound is returned when a user has no usage record.
var ErrNotFound = errors.New("usage record not found")

// errNoChange is returned when a conditional update matched no row.
var errNoChange = errors.New("no row updated")

const recordColumns = `user_id, email, subscription, used, reset_date, created_at, updated_at`

// Repository handles usage_records persistence.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new Repository with the given connection pool.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// Get fetches the record for userID.
func (r *Repository) Get(ctx context.Context, userID string) (*Record, error) {
	rec, err := scanRecord(r.db.QueryRow(ctx,
		`SELECT `+recordColumns+` FROM usage_records WHERE user_id = $1`,
		userID,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get usage record: %w", err)
	}
	return rec, nil
}

// GetOrCreate returns the record for userID, inserting a free-plan record
// with the given reset date if none exists.
func (r *Repository) GetOrCreate(ctx context.Context, userID, email string, resetDate time.Time) (*Record, error) {
	rec, err := r.Get(ctx, userID)
	if !errors.Is(err, ErrNotFound) {
		return rec, err
	}

	_, err = r.db.Exec(ctx,
		`INSERT INTO usage_records (user_id, email, subscription, used, reset_date)
		 VALUES ($1, $2, $3, 0, $4)
		 ON CONFLICT (user_id) DO NOTHING`,
		userID, email, string(PlanFree), resetDate,
	)
	if err != nil {
		return nil, fmt.Errorf("create usage record: %w", err)
	}
	return r.Get(ctx, userID)
}

// ResetWindow zeroes the counter and moves reset_date to next, but only if
// reset_date still equals expected. It returns errNoChange when another
// request already rolled the window.
func (r *Repository) ResetWindow(ctx context.Context, userID string, expected, next time.Time) (*Record, error) {
	rec, err := scanRecord(r.db.QueryRow(ctx,
		`UPDATE usage_records
		 SET used = 0, reset_date = $3, updated_at = NOW()
		 WHERE user_id = $1 AND reset_date = $2
		 RETURNING `+recordColumns,
		userID, expected, next,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, errNoChange
	}
	if err != nil {
		return nil, fmt.Errorf("reset usage window: %w", err)
	}
	return rec, nil
}

// SetSubscription stores plan for userID, creating the record if needed.
// The usage counter and reset date of an existing record are left alone.
func (r *Repository) SetSubscription(ctx context.Context, userID string, plan Plan, resetDate time.Time) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO usage_records (user_id, subscription, used, reset_date)
		 VALUES ($1, $2, 0, $3)
		 ON CONFLICT (user_id) DO UPDATE
		 SET subscription = EXCLUDED.subscription, updated_at = NOW()`,
		userID, string(plan), resetDate,
	)
	if err != nil {
		return fmt.Errorf("set subscription: %w", err)
	}
	return nil
}

// Increment adds one use if the window is active at now and fewer than
// limit uses were consumed. It returns errNoChange otherwise.
func (r *Repository) Increment(ctx context.Context, userID string, limit int, now time.Time) (*Record, error) {
	rec, err := scanRecord(r.db.QueryRow(ctx,
		`UPDATE usage_records
		 SET used = used + 1, updated_at = NOW()
		 WHERE user_id = $1 AND used < $2 AND reset_date > $3
		 RETURNING `+recordColumns,
		userID, limit, now,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, errNoChange
	}
	if err != nil {
		return nil, fmt.Errorf("increment usage: %w", err)
	}
	return rec, nil
}

func scanRecord(row pgx.Row) (*Record, error) {
	rec := &Record{}
	var plan string
	err := row.Scan(&rec.UserID, &rec.Email, &plan, &rec.Used, &rec.ResetDate, &rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		return nil, err
	}
	rec.Subscription = Plan(plan)
	return rec, nil
}
