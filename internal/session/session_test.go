package session

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dealscout/internal/dialogue"
	"dealscout/internal/model"
)

func sampleState() *dialogue.State {
	state := dialogue.NewState()
	state.Step = model.StepBudget
	state.Preferences.Location = &model.Location{City: "Austin", State: "TX"}
	state.Preferences.PropertyTypes = []model.PropertyType{model.TypeRental}
	state.Preferences.MarkCompleted(model.StepGreeting)
	state.Preferences.MarkCompleted(model.StepLocation)
	return state
}

func assertStateEqual(t *testing.T, want, got *dialogue.State) {
	t.Helper()
	require.NotNil(t, got)
	assert.Equal(t, want.Step, got.Step)
	assert.Equal(t, want.Preferences.Location, got.Preferences.Location)
	assert.Equal(t, want.Preferences.PropertyTypes, got.Preferences.PropertyTypes)
	assert.Equal(t, want.Preferences.CompletedSteps, got.Preferences.CompletedSteps)
}

func TestMemoryStoreRoundTrip(t *testing.T) {
	store := NewMemoryStore(60)
	defer store.Close()
	ctx := context.Background()

	want := sampleState()
	require.NoError(t, store.Put(ctx, "sess-1", want))

	got, err := store.Get(ctx, "sess-1")
	require.NoError(t, err)
	assertStateEqual(t, want, got)

	// The stored copy must be isolated from later caller mutations.
	want.Preferences.Location.City = "Denver"
	got, err = store.Get(ctx, "sess-1")
	require.NoError(t, err)
	assert.Equal(t, "Austin", got.Preferences.Location.City)
}

func TestMemoryStoreMissingSession(t *testing.T) {
	store := NewMemoryStore(60)
	defer store.Close()

	_, err := store.Get(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStoreDelete(t *testing.T) {
	store := NewMemoryStore(60)
	defer store.Close()
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "sess-1", sampleState()))
	require.NoError(t, store.Delete(ctx, "sess-1"))

	_, err := store.Get(ctx, "sess-1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStoreExpiry(t *testing.T) {
	store := &MemoryStore{
		entries: make(map[string]memoryEntry),
		ttl:     20 * time.Millisecond,
		stop:    make(chan struct{}),
	}
	defer store.Close()
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "sess-1", sampleState()))
	time.Sleep(40 * time.Millisecond)

	_, err := store.Get(ctx, "sess-1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func newTestRedisStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	store := &RedisStore{
		client: redis.NewClient(&redis.Options{Addr: mr.Addr()}),
		ttl:    30 * time.Minute,
	}
	t.Cleanup(func() { store.Close() })
	return store, mr
}

func TestRedisStoreRoundTrip(t *testing.T) {
	store, _ := newTestRedisStore(t)
	ctx := context.Background()

	want := sampleState()
	require.NoError(t, store.Put(ctx, "sess-1", want))

	got, err := store.Get(ctx, "sess-1")
	require.NoError(t, err)
	assertStateEqual(t, want, got)
}

func TestRedisStoreMissingSession(t *testing.T) {
	store, _ := newTestRedisStore(t)

	_, err := store.Get(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRedisStoreDelete(t *testing.T) {
	store, _ := newTestRedisStore(t)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "sess-1", sampleState()))
	require.NoError(t, store.Delete(ctx, "sess-1"))

	_, err := store.Get(ctx, "sess-1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRedisStoreExpiry(t *testing.T) {
	store, mr := newTestRedisStore(t)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "sess-1", sampleState()))
	mr.FastForward(time.Hour)

	_, err := store.Get(ctx, "sess-1")
	assert.ErrorIs(t, err, ErrNotFound)
}
