package ratelimit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	cur, prev  int
	err        error
	increments []time.Time
}

func (s *fakeStore) WindowCounts(ctx context.Context, apiKeyID string, cur, prev time.Time) (int, int, error) {
	return s.cur, s.prev, s.err
}

func (s *fakeStore) Increment(ctx context.Context, apiKeyID string, windowStart time.Time) error {
	s.increments = append(s.increments, windowStart)
	return nil
}

func at(second int) func() time.Time {
	base := time.Date(2026, 8, 24, 12, 30, 0, 0, time.UTC)
	return func() time.Time { return base.Add(time.Duration(second) * time.Second) }
}

func TestCheckFreshKey(t *testing.T) {
	store := &fakeStore{}
	l := NewWindowLimiter(store).WithClock(at(0))

	d, err := l.Check(context.Background(), "key-1", 10)
	require.NoError(t, err)

	assert.True(t, d.Allowed)
	assert.Equal(t, 10, d.Limit)
	assert.Equal(t, 9, d.Remaining)
	assert.Equal(t, time.Minute, d.Reset)
	require.Len(t, store.increments, 1)
	assert.Equal(t, time.Date(2026, 8, 24, 12, 30, 0, 0, time.UTC), store.increments[0])
}

func TestCheckDeniesAtLimit(t *testing.T) {
	store := &fakeStore{cur: 10}
	l := NewWindowLimiter(store).WithClock(at(30))

	d, err := l.Check(context.Background(), "key-1", 10)
	require.NoError(t, err)

	assert.False(t, d.Allowed)
	assert.Equal(t, 0, d.Remaining)
	assert.Equal(t, 30*time.Second, d.RetryAfter)
	assert.Empty(t, store.increments, "denied requests are not counted")
}

func TestCheckInterpolatesPreviousWindow(t *testing.T) {
	// Halfway through the minute, half of the previous window still counts:
	// effective = 0 + 10*0.5 = 5 of a 10/min limit.
	store := &fakeStore{prev: 10}
	l := NewWindowLimiter(store).WithClock(at(30))

	d, err := l.Check(context.Background(), "key-1", 10)
	require.NoError(t, err)

	assert.True(t, d.Allowed)
	assert.Equal(t, 4, d.Remaining)
}

func TestCheckPreviousWindowFullWeightAtStart(t *testing.T) {
	// At second zero the previous window carries full weight, so a filled
	// previous minute denies immediately.
	store := &fakeStore{prev: 10}
	l := NewWindowLimiter(store).WithClock(at(0))

	d, err := l.Check(context.Background(), "key-1", 10)
	require.NoError(t, err)
	assert.False(t, d.Allowed)
}

func TestCheckPreviousWindowDecaysOut(t *testing.T) {
	// One second before rollover almost nothing of the previous window
	// remains: effective = 10 * (1/60) ~ 0.17.
	store := &fakeStore{prev: 10}
	l := NewWindowLimiter(store).WithClock(at(59))

	d, err := l.Check(context.Background(), "key-1", 10)
	require.NoError(t, err)
	assert.True(t, d.Allowed)
	assert.Equal(t, time.Second, d.Reset)
}

func TestCheckStoreError(t *testing.T) {
	store := &fakeStore{err: errors.New("connection refused")}
	l := NewWindowLimiter(store).WithClock(at(10))

	_, err := l.Check(context.Background(), "key-1", 10)
	assert.Error(t, err)
}

func TestCheckBurstThenSustained(t *testing.T) {
	// A key that filled the previous minute and kept going regains
	// admission gradually as the old window decays.
	store := &fakeStore{cur: 3, prev: 10}
	l := NewWindowLimiter(store)

	denied := l.WithClock(at(5))
	d, err := denied.Check(context.Background(), "key-1", 10)
	require.NoError(t, err)
	assert.False(t, d.Allowed, "at 5s effective is 3 + 9.17")

	allowed := l.WithClock(at(30))
	d, err = allowed.Check(context.Background(), "key-1", 10)
	require.NoError(t, err)
	assert.True(t, d.Allowed, "at 30s effective drops to 8")
	assert.Equal(t, 1, d.Remaining)
}
