package repositories

import (
	"context"

	gametypes "github.com/cbodonnell/skirmish/pkg/game/types"
)

// SessionStore is durable keyed storage for session records. Implementations
// provide no multi-document transactions; the game core serializes writes
// per session, so last-save-wins semantics are acceptable here.
type SessionStore interface {
	Close(ctx context.Context) error
	// Get returns the session with the given id, or ErrNotFound.
	Get(ctx context.Context, id string) (*gametypes.Session, error)
	// GetByName returns the session with the given name, or ErrNotFound.
	GetByName(ctx context.Context, name string) (*gametypes.Session, error)
	// Create stores a new session. Fails with ErrNameExists if the name is taken.
	Create(ctx context.Context, session *gametypes.Session) error
	// Save overwrites the stored session with the given snapshot.
	Save(ctx context.Context, session *gametypes.Session) error
	// Delete removes the session. Deleting a missing session returns ErrNotFound.
	Delete(ctx context.Context, id string) error
	// FindByMemberID returns the session the player is a member of, or ErrNotFound.
	FindByMemberID(ctx context.Context, playerID string) (*gametypes.Session, error)
	// List returns all stored sessions.
	List(ctx context.Context) ([]*gametypes.Session, error)
}
