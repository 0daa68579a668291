package websocket

import (
	"errors"
	"net/http"
	"strings"

	"github.com/xenn00/ruready-server/internal/identity"
)

type AuthError struct {
	Message string
}

func (e *AuthError) Error() string {
	return e.Message
}

// authenticate resolves the connecting user before the upgrade so failures
// still get a plain HTTP status.
func authenticate(r *http.Request, verifier identity.TokenVerifier) (*identity.Principal, error) {
	token := getTokenFromRequest(r)
	if token == "" {
		return nil, &AuthError{Message: "Unauthorized: No token provided"}
	}

	principal, err := verifier.Verify(r.Context(), token)
	if err != nil {
		if errors.Is(err, identity.ErrTokenExpired) {
			// the handshake cannot refresh, client must re-auth and reconnect
			return nil, &AuthError{Message: "Token expired"}
		}
		return nil, &AuthError{Message: "Invalid token"}
	}
	return principal, nil
}

func getTokenFromRequest(r *http.Request) string {
	// Option 1: Authorization header
	authHeader := r.Header.Get("Authorization")
	if authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) == 2 && strings.ToLower(parts[0]) == "bearer" {
			return strings.TrimSpace(parts[1])
		}
	}

	// Option 2: Query parameter
	if token := r.URL.Query().Get("token"); token != "" {
		return token
	}

	// Option 3: Cookie
	cookie, err := r.Cookie("access_token")
	if err == nil && cookie.Value != "" {
		return cookie.Value
	}

	return ""
}
