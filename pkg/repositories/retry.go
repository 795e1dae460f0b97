package repositories

import (
	"context"
	"time"

	gametypes "github.com/cbodonnell/skirmish/pkg/game/types"
	"github.com/cbodonnell/skirmish/pkg/log"
)

const (
	// DefaultRetryAttempts is the total number of tries per store call.
	DefaultRetryAttempts = 3
	// DefaultRetryBackoff is the wait before the first retry. It doubles
	// on each subsequent retry.
	DefaultRetryBackoff = 100 * time.Millisecond
	// DefaultCallTimeout bounds each individual attempt.
	DefaultCallTimeout = 5 * time.Second
)

// RetryingSessionStore wraps a SessionStore with a bounded retry and
// per-call timeout policy. Typed outcomes (ErrNotFound, ErrNameExists) are
// returned immediately; only infrastructure failures are retried.
type RetryingSessionStore struct {
	inner    SessionStore
	attempts int
	backoff  time.Duration
	timeout  time.Duration
}

type NewRetryingSessionStoreOptions struct {
	Inner    SessionStore
	Attempts int
	Backoff  time.Duration
	Timeout  time.Duration
}

func NewRetryingSessionStore(opts NewRetryingSessionStoreOptions) *RetryingSessionStore {
	if opts.Attempts == 0 {
		opts.Attempts = DefaultRetryAttempts
	}
	if opts.Backoff == 0 {
		opts.Backoff = DefaultRetryBackoff
	}
	if opts.Timeout == 0 {
		opts.Timeout = DefaultCallTimeout
	}
	return &RetryingSessionStore{
		inner:    opts.Inner,
		attempts: opts.Attempts,
		backoff:  opts.Backoff,
		timeout:  opts.Timeout,
	}
}

func retryable(err error) bool {
	if err == nil {
		return false
	}
	if IsNotFound(err) || IsNameExists(err) {
		return false
	}
	return true
}

func (s *RetryingSessionStore) retry(ctx context.Context, op string, call func(ctx context.Context) error) error {
	backoff := s.backoff
	var err error
	for attempt := 1; attempt <= s.attempts; attempt++ {
		callCtx, cancel := context.WithTimeout(ctx, s.timeout)
		err = call(callCtx)
		cancel()
		if !retryable(err) {
			return err
		}
		if attempt < s.attempts {
			log.Warn("Store %s failed (attempt %d/%d), retrying in %s: %v", op, attempt, s.attempts, backoff, err)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
			backoff *= 2
		}
	}
	return err
}

func (s *RetryingSessionStore) Close(ctx context.Context) error {
	return s.inner.Close(ctx)
}

func (s *RetryingSessionStore) Get(ctx context.Context, id string) (*gametypes.Session, error) {
	var session *gametypes.Session
	err := s.retry(ctx, "get", func(ctx context.Context) error {
		var err error
		session, err = s.inner.Get(ctx, id)
		return err
	})
	return session, err
}

func (s *RetryingSessionStore) GetByName(ctx context.Context, name string) (*gametypes.Session, error) {
	var session *gametypes.Session
	err := s.retry(ctx, "get by name", func(ctx context.Context) error {
		var err error
		session, err = s.inner.GetByName(ctx, name)
		return err
	})
	return session, err
}

func (s *RetryingSessionStore) Create(ctx context.Context, session *gametypes.Session) error {
	return s.retry(ctx, "create", func(ctx context.Context) error {
		return s.inner.Create(ctx, session)
	})
}

func (s *RetryingSessionStore) Save(ctx context.Context, session *gametypes.Session) error {
	return s.retry(ctx, "save", func(ctx context.Context) error {
		return s.inner.Save(ctx, session)
	})
}

func (s *RetryingSessionStore) Delete(ctx context.Context, id string) error {
	return s.retry(ctx, "delete", func(ctx context.Context) error {
		return s.inner.Delete(ctx, id)
	})
}

func (s *RetryingSessionStore) FindByMemberID(ctx context.Context, playerID string) (*gametypes.Session, error) {
	var session *gametypes.Session
	err := s.retry(ctx, "find by member", func(ctx context.Context) error {
		var err error
		session, err = s.inner.FindByMemberID(ctx, playerID)
		return err
	})
	return session, err
}

func (s *RetryingSessionStore) List(ctx context.Context) ([]*gametypes.Session, error) {
	var sessions []*gametypes.Session
	err := s.retry(ctx, "list", func(ctx context.Context) error {
		var err error
		sessions, err = s.inner.List(ctx)
		return err
	})
	return sessions, err
}
