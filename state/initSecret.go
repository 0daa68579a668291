package state

import (
	"crypto/rsa"
	"fmt"
	"os"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog/log"
)

type JwtSecret struct {
	Private *rsa.PrivateKey
	Public  *rsa.PublicKey
}

// InitSecret loads the RSA pair used in jwt auth mode. The private key is
// optional; without it the server can verify tokens but not mint dev tokens.
func InitSecret(privatePath, publicPath string) (*JwtSecret, error) {
	pubKeyBytes, err := os.ReadFile(publicPath)
	if err != nil {
		return nil, err
	}

	pubKey, err := jwt.ParseRSAPublicKeyFromPEM(pubKeyBytes)
	if err != nil {
		return nil, fmt.Errorf("invalid public key: %w", err)
	}

	secret := &JwtSecret{Public: pubKey}

	privKeyBytes, err := os.ReadFile(privatePath)
	switch {
	case os.IsNotExist(err):
		log.Warn().Str("path", privatePath).Msg("JWT private key not found, token minting disabled")
	case err != nil:
		return nil, err
	default:
		privKey, err := jwt.ParseRSAPrivateKeyFromPEM(privKeyBytes)
		if err != nil {
			return nil, fmt.Errorf("invalid private key: %w", err)
		}
		secret.Private = privKey
	}

	log.Info().Msg("JWT secret initialized successfully")
	return secret, nil
}
