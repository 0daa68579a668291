package identity

import (
	"context"
	"fmt"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/auth"
)

type idTokenVerifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (*auth.Token, error)
}

type FirebaseVerifier struct {
	client idTokenVerifier
}

func NewFirebaseVerifier(ctx context.Context, app *firebase.App) (*FirebaseVerifier, error) {
	client, err := app.Auth(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to init firebase auth client: %w", err)
	}
	return &FirebaseVerifier{client: client}, nil
}

func (v *FirebaseVerifier) Verify(ctx context.Context, raw string) (*Principal, error) {
	token, err := v.client.VerifyIDToken(ctx, raw)
	if err != nil {
		if auth.IsIDTokenExpired(err) {
			return nil, fmt.Errorf("%w: %v", ErrTokenExpired, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}

	p := &Principal{
		UID:    token.UID,
		Claims: token.Claims,
	}
	if email, ok := token.Claims["email"].(string); ok {
		p.Email = email
	}
	if verified, ok := token.Claims["email_verified"].(bool); ok {
		p.EmailVerified = verified
	}
	if name, ok := token.Claims["name"].(string); ok {
		p.Name = name
	}
	if picture, ok := token.Claims["picture"].(string); ok {
		p.Picture = picture
	}
	return p, nil
}
