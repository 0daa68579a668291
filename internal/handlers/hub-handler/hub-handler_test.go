package hub_handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	jsoniter "github.com/json-iterator/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xenn00/ruready-server/internal/handlers"
	"github.com/xenn00/ruready-server/internal/websocket"
	"github.com/xenn00/ruready-server/internal/worker"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type fakeHub struct {
	conns        map[string][]websocket.UserConnection
	disconnected []string
}

func (f *fakeHub) GetHubStats() websocket.HubStats {
	return websocket.HubStats{TotalUsers: len(f.conns), TotalClients: 3}
}

func (f *fakeHub) GetUserConnections(userID string) []websocket.UserConnection {
	return f.conns[userID]
}

func (f *fakeHub) DisconnectUser(userID string) int {
	f.disconnected = append(f.disconnected, userID)
	n := len(f.conns[userID])
	delete(f.conns, userID)
	return n
}

type fakeDLQ struct {
	stats *worker.DLQStats
	err   error
}

func (f fakeDLQ) GetDLQStats(context.Context) (*worker.DLQStats, error) {
	return f.stats, f.err
}

func newRouter(h *HubHandler) http.Handler {
	r := chi.NewRouter()
	r.Get("/health", handlers.WrapHandler(h.Health))
	r.Get("/admin/ws/stats", handlers.WrapHandler(h.HandleGetHubStats))
	r.Get("/admin/ws/users/{userId}", handlers.WrapHandler(h.HandleGetUserConnections))
	r.Post("/admin/ws/users/{userId}/disconnect", handlers.WrapHandler(h.HandleDisconnectUser))
	r.Get("/admin/dlq/stats", handlers.WrapHandler(h.HandleGetDLQStats))
	return r
}

func get(t *testing.T, h http.Handler, method, target string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(method, target, nil))

	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return rec, out
}

func TestHealth(t *testing.T) {
	start := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	h := NewHubHandler(&fakeHub{}, fakeDLQ{}, "production")
	h.StartedAt = start
	h.Now = func() time.Time { return start.Add(90 * time.Second) }

	rec, out := get(t, newRouter(h), http.MethodGet, "/health")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Equal(t, "OK", out["status"])
	assert.Equal(t, "2024-05-01T12:01:30Z", out["timestamp"])
	assert.Equal(t, float64(90), out["uptime"])
	assert.Equal(t, "production", out["env"])
}

func TestHubStats(t *testing.T) {
	hub := &fakeHub{conns: map[string][]websocket.UserConnection{"alice": {{ClientID: "c1"}}}}
	rec, out := get(t, newRouter(NewHubHandler(hub, fakeDLQ{}, "test")), http.MethodGet, "/admin/ws/stats")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, out["success"])
	assert.NotNil(t, out["data"])
}

func TestUserConnectionsAndDisconnect(t *testing.T) {
	hub := &fakeHub{conns: map[string][]websocket.UserConnection{
		"alice": {{ClientID: "c1", IP: "10.0.0.1"}, {ClientID: "c2", IP: "10.0.0.2"}},
	}}
	r := newRouter(NewHubHandler(hub, fakeDLQ{}, "test"))

	rec, out := get(t, r, http.MethodGet, "/admin/ws/users/alice")
	require.Equal(t, http.StatusOK, rec.Code)
	data := out["data"].(map[string]any)
	assert.Equal(t, true, data["online"])
	assert.Equal(t, float64(2), data["count"])

	rec, out = get(t, r, http.MethodPost, "/admin/ws/users/alice/disconnect")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(2), out["data"].(map[string]any)["closed"])
	assert.Equal(t, []string{"alice"}, hub.disconnected)

	_, out = get(t, r, http.MethodGet, "/admin/ws/users/alice")
	data = out["data"].(map[string]any)
	assert.Equal(t, false, data["online"])
	assert.Equal(t, float64(0), data["count"])
}

func TestDLQStats(t *testing.T) {
	stats := &worker.DLQStats{Pending: 2, Dead: 5, ByStatus: map[string]int64{"pending": 4, "permanently_failed": 1}}
	rec, out := get(t, newRouter(NewHubHandler(&fakeHub{}, fakeDLQ{stats: stats}, "test")), http.MethodGet, "/admin/dlq/stats")

	require.Equal(t, http.StatusOK, rec.Code)
	data := out["data"].(map[string]any)
	assert.Equal(t, float64(2), data["pending"])
	assert.Equal(t, float64(5), data["dead"])

	rec, out = get(t, newRouter(NewHubHandler(&fakeHub{}, fakeDLQ{err: errors.New("mongo down")}, "test")), http.MethodGet, "/admin/dlq/stats")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Failed to load DLQ stats", out["error"])
}
