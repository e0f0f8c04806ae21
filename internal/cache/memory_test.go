package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct{ t time.Time }

func (f *fakeClock) now() time.Time { return f.t }
func (f *fakeClock) advance(d time.Duration) { f.t = f.t.Add(d) }

func newTestStore(t *testing.T, size int) (*MemoryStore, *fakeClock) {
	t.Helper()
	s, err := NewMemoryStore(size)
	require.NoError(t, err)
	clock := &fakeClock{t: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
	s.now = clock.now
	return s, clock
}

func TestMemoryStore_GetWithinTTL(t *testing.T) {
	ctx := context.Background()
	s, clock := newTestStore(t, 10)

	require.NoError(t, s.Set(ctx, "index", []byte("page"), 20*time.Second))
	clock.advance(19 * time.Second)

	got, ok, err := s.Get(ctx, "index")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []byte("page"), got)
}

func TestMemoryStore_ExpiresAfterTTL(t *testing.T) {
	ctx := context.Background()
	s, clock := newTestStore(t, 10)

	require.NoError(t, s.Set(ctx, "index", []byte("page"), 20*time.Second))
	clock.advance(20 * time.Second)

	_, ok, err := s.Get(ctx, "index")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Zero(t, s.Len())
}

func TestMemoryStore_SetCopiesValue(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t, 10)

	buf := []byte("first")
	require.NoError(t, s.Set(ctx, "k", buf, time.Minute))
	copy(buf, "XXXXX")

	got, _, _ := s.Get(ctx, "k")
	assert.Equal(t, "first", string(got))
}

func TestMemoryStore_Clear(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t, 10)

	require.NoError(t, s.Set(ctx, "a", []byte("1"), time.Minute))
	require.NoError(t, s.Set(ctx, "b", []byte("2"), time.Minute))
	require.NoError(t, s.Clear(ctx))

	assert.Zero(t, s.Len())
	_, ok, _ := s.Get(ctx, "a")
	assert.False(t, ok)
}

func TestMemoryStore_EvictsLeastRecentlyUsed(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t, 2)

	require.NoError(t, s.Set(ctx, "a", []byte("1"), time.Minute))
	require.NoError(t, s.Set(ctx, "b", []byte("2"), time.Minute))
	_, _, _ = s.Get(ctx, "a")
	require.NoError(t, s.Set(ctx, "c", []byte("3"), time.Minute))

	_, okA, _ := s.Get(ctx, "a")
	_, okB, _ := s.Get(ctx, "b")
	assert.True(t, okA)
	assert.False(t, okB)
}

func TestMemoryStore_PurgeExpired(t *testing.T) {
	ctx := context.Background()
	s, clock := newTestStore(t, 10)

	require.NoError(t, s.Set(ctx, "short", []byte("1"), time.Second))
	require.NoError(t, s.Set(ctx, "long", []byte("2"), time.Hour))
	clock.advance(time.Minute)

	assert.Equal(t, 1, s.PurgeExpired())
	assert.Equal(t, 1, s.Len())
}
