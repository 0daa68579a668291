package identity

import (
	"context"
	"crypto/rsa"
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
	"github.com/xenn00/ruready-server/internal/utils"
)

// JWTVerifier validates self-issued RS256 tokens. Used for auth.mode=jwt.
type JWTVerifier struct {
	publicKey *rsa.PublicKey
}

func NewJWTVerifier(publicKey *rsa.PublicKey) *JWTVerifier {
	return &JWTVerifier{publicKey: publicKey}
}

func (v *JWTVerifier) Verify(_ context.Context, raw string) (*Principal, error) {
	if v.publicKey == nil {
		return nil, fmt.Errorf("%w: no public key configured", ErrTokenInvalid)
	}

	claims, err := utils.ParseAndVerifySign(raw, v.publicKey)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("%w: %v", ErrTokenExpired, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}

	return &Principal{
		UID:           claims.Subject,
		Email:         claims.Email,
		EmailVerified: claims.EmailVerified,
		Name:          claims.Name,
		Claims: map[string]any{
			"sub":   claims.Subject,
			"email": claims.Email,
			"jti":   claims.ID,
		},
	}, nil
}
