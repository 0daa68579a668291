package hub_handler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
	app_error "github.com/xenn00/ruready-server/internal/errors"
	"github.com/xenn00/ruready-server/internal/handlers"
	"github.com/xenn00/ruready-server/internal/websocket"
	"github.com/xenn00/ruready-server/internal/worker"
)

// Hub is the slice of the websocket hub the admin surface needs.
type Hub interface {
	GetHubStats() websocket.HubStats
	GetUserConnections(userID string) []websocket.UserConnection
	DisconnectUser(userID string) int
}

type DLQStatsProvider interface {
	GetDLQStats(ctx context.Context) (*worker.DLQStats, error)
}

type HubHandler struct {
	Hub       Hub
	DLQ       DLQStatsProvider
	Env       string
	StartedAt time.Time
	Now       func() time.Time
}

func NewHubHandler(hub Hub, dlq DLQStatsProvider, env string) *HubHandler {
	return &HubHandler{
		Hub:       hub,
		DLQ:       dlq,
		Env:       env,
		StartedAt: time.Now(),
		Now:       time.Now,
	}
}

type HealthResponse struct {
	Status    string  `json:"status"`
	Timestamp string  `json:"timestamp"`
	Uptime    float64 `json:"uptime"`
	Env       string  `json:"env"`
}

// Health is unauthenticated and never touches dependencies.
func (h *HubHandler) Health(w http.ResponseWriter, r *http.Request) *app_error.AppError {
	now := h.Now()
	handlers.WriteJSON(w, http.StatusOK, HealthResponse{
		Status:    "OK",
		Timestamp: now.UTC().Format(time.RFC3339Nano),
		Uptime:    now.Sub(h.StartedAt).Seconds(),
		Env:       h.Env,
	})
	return nil
}

func (h *HubHandler) HandleGetHubStats(w http.ResponseWriter, r *http.Request) *app_error.AppError {
	handlers.WriteJSON(w, http.StatusOK, handlers.CreateResponse("", h.Hub.GetHubStats(), handlers.RequestID(r)))
	return nil
}

func (h *HubHandler) HandleGetUserConnections(w http.ResponseWriter, r *http.Request) *app_error.AppError {
	userID := chi.URLParam(r, "userId")
	conns := h.Hub.GetUserConnections(userID)

	resp := map[string]any{
		"userId":      userID,
		"online":      len(conns) > 0,
		"count":       len(conns),
		"connections": conns,
	}
	handlers.WriteJSON(w, http.StatusOK, handlers.CreateResponse("", resp, handlers.RequestID(r)))
	return nil
}

func (h *HubHandler) HandleDisconnectUser(w http.ResponseWriter, r *http.Request) *app_error.AppError {
	userID := chi.URLParam(r, "userId")
	closed := h.Hub.DisconnectUser(userID)

	log.Info().Str("user_id", userID).Int("closed", closed).Str("request_id", handlers.RequestID(r)).Msg("admin disconnected user")

	resp := map[string]any{
		"userId": userID,
		"closed": closed,
	}
	handlers.WriteJSON(w, http.StatusOK, handlers.CreateResponse("user disconnected", resp, handlers.RequestID(r)))
	return nil
}

func (h *HubHandler) HandleGetDLQStats(w http.ResponseWriter, r *http.Request) *app_error.AppError {
	stats, err := h.DLQ.GetDLQStats(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("failed to load dlq stats")
		return app_error.NewAppError(http.StatusInternalServerError, "Failed to load DLQ stats", "dlq")
	}

	handlers.WriteJSON(w, http.StatusOK, handlers.CreateResponse("", *stats, handlers.RequestID(r)))
	return nil
}
