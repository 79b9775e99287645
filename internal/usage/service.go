package usage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/img2prompt/service/internal/apperr"
)

// ErrQuotaExceeded is returned by RecordUse when the window's uses are spent.
var ErrQuotaExceeded = errors.New("usage limit reached for the current period")

// Store is the persistence the Service needs. *Repository implements it.
type Store interface {
	Get(ctx context.Context, userID string) (*Record, error)
	GetOrCreate(ctx context.Context, userID, email string, resetDate time.Time) (*Record, error)
	ResetWindow(ctx context.Context, userID string, expected, next time.Time) (*Record, error)
	SetSubscription(ctx context.Context, userID string, plan Plan, resetDate time.Time) error
	Increment(ctx context.Context, userID string, limit int, now time.Time) (*Record, error)
}

// Status is what a caller learns about a user's quota.
// Invariant: RemainingUses >= 0 and CanUse == (RemainingUses > 0).
type Status struct {
	Subscription  Plan
	RemainingUses int
	CanUse        bool
	ResetDate     time.Time
}

// Service contains the quota rules for the metered feature.
type Service struct {
	store Store
	log   zerolog.Logger
	now   func() time.Time
}

// NewService creates a new usage Service.
func NewService(store Store, log zerolog.Logger) *Service {
	return &Service{store: store, log: log, now: time.Now}
}

// CanUserUseService returns the user's plan, remaining uses, and whether the
// feature may be invoked. A record is created on first call, and an expired
// window is reset before the result is computed.
func (s *Service) CanUserUseService(ctx context.Context, userID, email string) (*Status, error) {
	rec, err := s.current(ctx, userID, email)
	if err != nil {
		return nil, err
	}
	return statusOf(rec), nil
}

// UpdateUserSubscription stores plan for the user. Uses already consumed in
// the current window are kept.
func (s *Service) UpdateUserSubscription(ctx context.Context, userID, plan string) error {
	p, err := ParsePlan(plan)
	if err != nil {
		return err
	}
	if userID == "" {
		return &apperr.LookupError{Message: "user identity is required"}
	}
	if err := s.store.SetSubscription(ctx, userID, p, nextReset(s.now())); err != nil {
		return fmt.Errorf("update subscription: %w", err)
	}
	s.log.Info().Str("uid", userID).Str("plan", string(p)).Msg("subscription updated")
	return nil
}

// RecordUse consumes one use of the metered feature, returning the status
// after the use or ErrQuotaExceeded.
func (s *Service) RecordUse(ctx context.Context, userID, email string) (*Status, error) {
	rec, err := s.current(ctx, userID, email)
	if err != nil {
		return nil, err
	}

	updated, err := s.store.Increment(ctx, userID, rec.Subscription.Limit(), s.now())
	if errors.Is(err, errNoChange) {
		return nil, ErrQuotaExceeded
	}
	if err != nil {
		return nil, fmt.Errorf("record use: %w", err)
	}
	return statusOf(updated), nil
}

// current loads the record for userID, creating it if missing and rolling
// an expired window forward.
func (s *Service) current(ctx context.Context, userID, email string) (*Record, error) {
	if userID == "" {
		return nil, &apperr.LookupError{Message: "user identity is required"}
	}

	now := s.now()
	rec, err := s.store.GetOrCreate(ctx, userID, email, nextReset(now))
	if err != nil {
		return nil, &apperr.LookupError{Message: "resolve usage record", Err: err}
	}
	if now.Before(rec.ResetDate) {
		return rec, nil
	}

	next := advance(rec.ResetDate, now)
	reset, err := s.store.ResetWindow(ctx, userID, rec.ResetDate, next)
	switch {
	case err == nil:
		s.log.Debug().Str("uid", userID).Time("reset_date", next).Msg("usage window reset")
		return reset, nil
	case errors.Is(err, errNoChange):
		// Another request rolled the window first.
		rec, err = s.store.Get(ctx, userID)
		if err != nil {
			return nil, fmt.Errorf("reload usage record: %w", err)
		}
		return rec, nil
	default:
		return nil, err
	}
}

func statusOf(rec *Record) *Status {
	remaining := rec.Subscription.Limit() - rec.Used
	if remaining < 0 {
		remaining = 0
	}
	return &Status{
		Subscription:  rec.Subscription,
		RemainingUses: remaining,
		CanUse:        remaining > 0,
		ResetDate:     rec.ResetDate,
	}
}

// nextReset is the reset date for a window opened at now.
func nextReset(now time.Time) time.Time {
	return now.AddDate(0, 1, 0)
}

// advance rolls resetDate forward by whole months until it is after now.
func advance(resetDate, now time.Time) time.Time {
	next := resetDate
	for months := 1; !next.After(now); months++ {
		next = resetDate.AddDate(0, months, 0)
	}
	return next
}
