package memstore

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"valeshop/internal/store"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time          { return c.now }
func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newFixture() (*Store, *fakeClock) {
	clock := &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	return NewWithClock(clock.Now), clock
}

func TestPutGetDelete(t *testing.T) {
	s, _ := newFixture()
	ctx := context.Background()

	_, err := s.Get(ctx, "missing")
	assert.ErrorIs(t, err, store.ErrNotFound)

	require.NoError(t, s.Put(ctx, "k", []byte("v"), 0))
	got, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), got)

	require.NoError(t, s.Delete(ctx, "k"))
	_, err = s.Get(ctx, "k")
	assert.ErrorIs(t, err, store.ErrNotFound)

	// Deleting an absent key is not an error.
	assert.NoError(t, s.Delete(ctx, "k"))
}

func TestTTLExpiry(t *testing.T) {
	s, clock := newFixture()
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, "k", []byte("v"), time.Hour))

	clock.Advance(59 * time.Minute)
	_, err := s.Get(ctx, "k")
	assert.NoError(t, err)

	clock.Advance(2 * time.Minute)
	_, err = s.Get(ctx, "k")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestPutResetsTTL(t *testing.T) {
	s, clock := newFixture()
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, "k", []byte("v1"), time.Hour))
	clock.Advance(50 * time.Minute)
	require.NoError(t, s.Put(ctx, "k", []byte("v2"), time.Hour))

	clock.Advance(50 * time.Minute)
	got, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v2"), got)
}

func TestListPagination(t *testing.T) {
	s, _ := newFixture()
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.NoError(t, s.Put(ctx, fmt.Sprintf("order:%02d", i), []byte("x"), 0))
	}
	require.NoError(t, s.Put(ctx, "token:aa", []byte("x"), 0))

	page, err := s.List(ctx, "order:", 2, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"order:00", "order:01"}, page.Keys)
	assert.True(t, page.HasMore)
	require.NotEmpty(t, page.NextCursor)

	page, err = s.List(ctx, "order:", 2, page.NextCursor)
	require.NoError(t, err)
	assert.Equal(t, []string{"order:02", "order:03"}, page.Keys)
	assert.True(t, page.HasMore)

	page, err = s.List(ctx, "order:", 2, page.NextCursor)
	require.NoError(t, err)
	assert.Equal(t, []string{"order:04"}, page.Keys)
	assert.False(t, page.HasMore)
}

func TestGetReapKeepsReplacedRecord(t *testing.T) {
	clock := &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	var s *Store
	var onNow func()
	s = NewWithClock(func() time.Time {
		if onNow != nil {
			fn := onNow
			onNow = nil
			fn()
		}
		return clock.Now()
	})
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, "k", []byte("old"), time.Minute))
	clock.Advance(2 * time.Minute)

	// Replace the record between Get's expiry check and its reap, the way
	// a concurrent Put would.
	onNow = func() {
		require.NoError(t, s.Put(ctx, "k", []byte("fresh"), 0))
	}
	_, err := s.Get(ctx, "k")
	assert.ErrorIs(t, err, store.ErrNotFound)

	// The reap must not have taken the replacement with it.
	got, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("fresh"), got)
}

func TestListSkipsExpired(t *testing.T) {
	s, clock := newFixture()
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, "order:a", []byte("x"), time.Minute))
	require.NoError(t, s.Put(ctx, "order:b", []byte("x"), time.Hour))

	clock.Advance(30 * time.Minute)
	page, err := s.List(ctx, "order:", 10, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"order:b"}, page.Keys)
}
