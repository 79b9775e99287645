package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	waits []time.Duration
}

func (r *recorder) sleep(_ context.Context, d time.Duration) error {
	r.waits = append(r.waits, d)
	return nil
}

func policy(r *recorder) Policy {
	return Policy{MaxAttempts: 3, BaseDelay: time.Second, Sleep: r.sleep}
}

func TestDo_SucceedsOnThirdAttempt(t *testing.T) {
	rec := &recorder{}
	calls := 0

	got, err := Do(context.Background(), policy(rec), func(context.Context) (string, error) {
		calls++
		if calls < 3 {
			return "", errors.New("transient")
		}
		return "ok", nil
	})

	require.NoError(t, err)
	assert.Equal(t, "ok", got)
	assert.Equal(t, 3, calls)
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, rec.waits)
}

func TestDo_ReturnsLastError(t *testing.T) {
	rec := &recorder{}
	calls := 0
	errs := []error{errors.New("first"), errors.New("second"), errors.New("third")}

	_, err := Do(context.Background(), policy(rec), func(context.Context) (int, error) {
		e := errs[calls]
		calls++
		return 0, e
	})

	assert.Equal(t, 3, calls)
	assert.Equal(t, errs[2], err)
	assert.Len(t, rec.waits, 2)
}

func TestDo_FirstAttemptSuccessDoesNotWait(t *testing.T) {
	rec := &recorder{}

	got, err := Do(context.Background(), policy(rec), func(context.Context) (int, error) { return 7, nil })

	require.NoError(t, err)
	assert.Equal(t, 7, got)
	assert.Empty(t, rec.waits)
}

func TestDo_ZeroAttempts(t *testing.T) {
	_, err := Do(context.Background(), Policy{}, func(context.Context) (int, error) { return 1, nil })
	assert.ErrorIs(t, err, ErrMaxRetries)
}

func TestDo_OnRetry(t *testing.T) {
	rec := &recorder{}
	p := policy(rec)
	var attempts []int
	p.OnRetry = func(attempt int, _ time.Duration, _ error) { attempts = append(attempts, attempt) }

	_, _ = Do(context.Background(), p, func(context.Context) (int, error) { return 0, errors.New("down") })

	assert.Equal(t, []int{1, 2}, attempts)
}

func TestDo_ContextCancelledDuringBackoff(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	boom := errors.New("boom")

	_, err := Do(ctx, Policy{MaxAttempts: 3, BaseDelay: time.Hour}, func(context.Context) (int, error) {
		return 0, boom
	})

	assert.ErrorIs(t, err, context.Canceled)
	assert.ErrorIs(t, err, boom)
}

func TestPolicy_Backoff(t *testing.T) {
	p := Policy{BaseDelay: time.Second}
	assert.Equal(t, time.Second, p.Backoff(0))
	assert.Equal(t, 2*time.Second, p.Backoff(1))
	assert.Equal(t, 4*time.Second, p.Backoff(2))
}
