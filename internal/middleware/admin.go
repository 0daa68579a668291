package middleware

import (
	"context"
	"net/http"

	"github.com/rs/zerolog/log"
	app_error "github.com/xenn00/ruready-server/internal/errors"
)

type AdminChecker interface {
	IsAdmin(ctx context.Context, uid string) (bool, *app_error.AppError)
}

// RequireAdmin must run after BearerAuth.
func RequireAdmin(users AdminChecker) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, ok := PrincipalFrom(r.Context())
			if !ok {
				writeAppError(w, app_error.NewAppError(http.StatusUnauthorized, "Not authenticated", "auth"))
				return
			}

			isAdmin, err := users.IsAdmin(r.Context(), principal.UID)
			if err != nil {
				log.Error().Str("uid", principal.UID).Str("error", err.Message).Msg("admin lookup failed")
				writeAppError(w, app_error.NewAppError(http.StatusInternalServerError, "Server error during admin check", "auth"))
				return
			}
			if !isAdmin {
				writeAppError(w, app_error.NewAppError(http.StatusForbidden, "Forbidden: Admin access required", "auth"))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
