package identity

import (
	"context"
	"fmt"

	firebase "firebase.google.com/go"
	"firebase.google.com/go/auth"
	"google.golang.org/api/option"
)

var _ Provider = &FirebaseProvider{}

type FirebaseProvider struct {
	// app is the Firebase app
	app *firebase.App
	// auth is the Firebase Auth client
	auth *auth.Client
}

// NewFirebaseProvider creates a new FirebaseProvider
func NewFirebaseProvider(ctx context.Context, projectID string, apiKey string) (*FirebaseProvider, error) {
	opt := option.WithAPIKey(apiKey)
	cfg := &firebase.Config{
		ProjectID: projectID,
	}
	app, err := firebase.NewApp(ctx, cfg, opt)
	if err != nil {
		return nil, fmt.Errorf("error initializing app: %v", err)
	}

	authClient, err := app.Auth(ctx)
	if err != nil {
		return nil, fmt.Errorf("error getting Auth client: %v", err)
	}

	return &FirebaseProvider{
		app:  app,
		auth: authClient,
	}, nil
}

// IsValidPlayer checks that the id maps to a Firebase user record.
func (p *FirebaseProvider) IsValidPlayer(ctx context.Context, playerID string) (bool, error) {
	if _, err := p.auth.GetUser(ctx, playerID); err != nil {
		if auth.IsUserNotFound(err) {
			return false, nil
		}
		return false, fmt.Errorf("error getting user: %v", err)
	}
	return true, nil
}

// VerifyToken verifies a Firebase ID token and returns the user id.
func (p *FirebaseProvider) VerifyToken(ctx context.Context, token string) (string, error) {
	verified, err := p.auth.VerifyIDToken(ctx, token)
	if err != nil {
		return "", fmt.Errorf("error verifying ID token: %v", err)
	}
	return verified.UID, nil
}

// LookupIDByUsername resolves a username, stored as the Firebase display
// email's local part by the account service, to a player id.
func (p *FirebaseProvider) LookupIDByUsername(ctx context.Context, username string) (string, error) {
	user, err := p.auth.GetUserByEmail(ctx, username)
	if err != nil {
		if auth.IsUserNotFound(err) {
			return "", nil
		}
		return "", fmt.Errorf("error getting user by email: %v", err)
	}
	return user.UID, nil
}
