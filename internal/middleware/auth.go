package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"
	app_error "github.com/xenn00/ruready-server/internal/errors"
	"github.com/xenn00/ruready-server/internal/identity"
)

type principalKey string

const PrincipalKey principalKey = "principal"

// BearerAuth verifies "Authorization: Bearer <token>" and stores the
// resulting principal in the request context.
func BearerAuth(verifier identity.TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if !strings.HasPrefix(authHeader, "Bearer ") {
				writeAppError(w, app_error.NewAppError(http.StatusUnauthorized, "Unauthorized: No token provided", "auth"))
				return
			}

			tokenStr := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
			if tokenStr == "" {
				writeAppError(w, app_error.NewAppError(http.StatusUnauthorized, "Unauthorized: Invalid token format", "auth"))
				return
			}

			principal, err := verifier.Verify(r.Context(), tokenStr)
			if err != nil {
				log.Warn().Err(err).Str("request_id", r.Header.Get("X-Request-ID")).Msg("token verification failed")
				if errors.Is(err, identity.ErrTokenExpired) {
					writeAppError(w, app_error.NewAppError(http.StatusUnauthorized, "Token expired", "auth"))
					return
				}
				writeAppError(w, app_error.NewAppError(http.StatusUnauthorized, "Invalid token", "auth"))
				return
			}

			ctx := WithPrincipal(r.Context(), principal)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func WithPrincipal(ctx context.Context, p *identity.Principal) context.Context {
	return context.WithValue(ctx, PrincipalKey, p)
}

func PrincipalFrom(ctx context.Context) (*identity.Principal, bool) {
	p, ok := ctx.Value(PrincipalKey).(*identity.Principal)
	return p, ok && p != nil
}

func writeAppError(w http.ResponseWriter, appErr *app_error.AppError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(appErr.Code)
	_ = appErr.JSON(w)
}
