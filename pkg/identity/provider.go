package identity

import "context"

// Provider answers questions about player accounts. Implementations may be
// slow or fail; callers treat errors as dependency failures.
type Provider interface {
	// IsValidPlayer reports whether the id belongs to a known player.
	IsValidPlayer(ctx context.Context, playerID string) (bool, error)
	// LookupIDByUsername resolves a username to a player id. The empty
	// string means no such player exists.
	LookupIDByUsername(ctx context.Context, username string) (string, error)
	// VerifyToken verifies a bearer token and returns the player id it
	// belongs to.
	VerifyToken(ctx context.Context, token string) (string, error)
}
