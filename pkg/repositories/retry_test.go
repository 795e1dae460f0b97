package repositories

import (
	"context"
	"fmt"
	"testing"
	"time"

	gametypes "github.com/cbodonnell/skirmish/pkg/game/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// flakySessionStore fails a configurable number of calls before delegating
// to an in-memory store.
type flakySessionStore struct {
	*InMemorySessionStore
	failures int
	calls    int
}

func (s *flakySessionStore) Get(ctx context.Context, id string) (*gametypes.Session, error) {
	s.calls++
	if s.calls <= s.failures {
		return nil, fmt.Errorf("connection reset")
	}
	return s.InMemorySessionStore.Get(ctx, id)
}

func newRetryingStore(inner SessionStore) *RetryingSessionStore {
	return NewRetryingSessionStore(NewRetryingSessionStoreOptions{
		Inner:   inner,
		Backoff: time.Millisecond,
	})
}

func TestRetryingSessionStore_RetriesInfrastructureFailures(t *testing.T) {
	ctx := context.Background()
	inner := &flakySessionStore{InMemorySessionStore: NewInMemorySessionStore(), failures: 2}
	require.NoError(t, inner.Create(ctx, storedSession("s1", "match", "alice")))

	store := newRetryingStore(inner)

	session, err := store.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "match", session.Name)
	assert.Equal(t, 3, inner.calls)
}

func TestRetryingSessionStore_GivesUpAfterAttempts(t *testing.T) {
	ctx := context.Background()
	inner := &flakySessionStore{InMemorySessionStore: NewInMemorySessionStore(), failures: 100}

	store := newRetryingStore(inner)

	_, err := store.Get(ctx, "s1")
	assert.Error(t, err)
	assert.Equal(t, DefaultRetryAttempts, inner.calls)
}

func TestRetryingSessionStore_TypedErrorsAreNotRetried(t *testing.T) {
	ctx := context.Background()
	inner := &flakySessionStore{InMemorySessionStore: NewInMemorySessionStore()}

	store := newRetryingStore(inner)

	_, err := store.Get(ctx, "missing")
	assert.True(t, IsNotFound(err))
	assert.Equal(t, 1, inner.calls)

	require.NoError(t, store.Create(ctx, storedSession("s1", "match", "alice")))
	err = store.Create(ctx, storedSession("s2", "match", "bob"))
	assert.True(t, IsNameExists(err))
}

func TestRetryingSessionStore_CancelledContextStopsRetrying(t *testing.T) {
	inner := &flakySessionStore{InMemorySessionStore: NewInMemorySessionStore(), failures: 100}
	store := NewRetryingSessionStore(NewRetryingSessionStoreOptions{
		Inner:   inner,
		Backoff: time.Minute,
	})

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	_, err := store.Get(ctx, "s1")
	assert.ErrorIs(t, err, context.Canceled)
	assert.Less(t, time.Since(start), time.Second)
}
