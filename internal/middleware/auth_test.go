package middleware

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	app_error "github.com/xenn00/ruready-server/internal/errors"
	"github.com/xenn00/ruready-server/internal/identity"
	"github.com/xenn00/ruready-server/internal/utils"
)

func newTestVerifier(t *testing.T) (*rsa.PrivateKey, identity.TokenVerifier) {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	return key, identity.NewJWTVerifier(&key.PublicKey)
}

func protected(t *testing.T, verifier identity.TokenVerifier) (http.Handler, *string) {
	t.Helper()
	var seen string
	h := BearerAuth(verifier)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, ok := PrincipalFrom(r.Context())
		require.True(t, ok)
		seen = p.UID
		w.WriteHeader(http.StatusNoContent)
	}))
	return h, &seen
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestBearerAuth_Rejections(t *testing.T) {
	key, verifier := newTestVerifier(t)
	expired, err := utils.IssueToken("uid-1", "", "", -time.Minute, key)
	require.NoError(t, err)

	tests := []struct {
		name    string
		header  string
		message string
	}{
		{"no header", "", "Unauthorized: No token provided"},
		{"basic scheme", "Basic abc", "Unauthorized: No token provided"},
		{"blank token", "Bearer    ", "Unauthorized: Invalid token format"},
		{"garbage token", "Bearer nope", "Invalid token"},
		{"expired token", "Bearer " + expired, "Token expired"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, seen := protected(t, verifier)
			req := httptest.NewRequest(http.MethodGet, "/api/calls/active", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()

			h.ServeHTTP(rec, req)

			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			body := decodeError(t, rec)
			assert.Equal(t, false, body["success"])
			assert.Equal(t, tt.message, body["error"])
			assert.Empty(t, *seen)
		})
	}
}

func TestBearerAuth_ValidToken(t *testing.T) {
	key, verifier := newTestVerifier(t)
	token, err := utils.IssueToken("uid-42", "x@example.com", "", time.Hour, key)
	require.NoError(t, err)

	h, seen := protected(t, verifier)
	req := httptest.NewRequest(http.MethodGet, "/api/calls/active", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()

	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "uid-42", *seen)
}

type fakeAdminChecker struct {
	admins map[string]bool
	err    *app_error.AppError
}

func (f fakeAdminChecker) IsAdmin(_ context.Context, uid string) (bool, *app_error.AppError) {
	return f.admins[uid], f.err
}

func TestRequireAdmin(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	tests := []struct {
		name      string
		principal *identity.Principal
		checker   fakeAdminChecker
		want      int
	}{
		{"no principal", nil, fakeAdminChecker{}, http.StatusUnauthorized},
		{"not admin", &identity.Principal{UID: "u1"}, fakeAdminChecker{admins: map[string]bool{}}, http.StatusForbidden},
		{"admin", &identity.Principal{UID: "u1"}, fakeAdminChecker{admins: map[string]bool{"u1": true}}, http.StatusOK},
		{"lookup failure", &identity.Principal{UID: "u1"}, fakeAdminChecker{err: app_error.NewAppError(500, "db down", "db")}, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/admin/ws/stats", nil)
			if tt.principal != nil {
				req = req.WithContext(WithPrincipal(req.Context(), tt.principal))
			}
			rec := httptest.NewRecorder()

			RequireAdmin(tt.checker)(next).ServeHTTP(rec, req)

			assert.Equal(t, tt.want, rec.Code)
		})
	}
}
