package websocket

import (
	"errors"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
	app_error "github.com/xenn00/ruready-server/internal/errors"
	"github.com/xenn00/ruready-server/internal/identity"
)

type Config struct {
	MaxConnections   int
	ConnectionsPerIP int
	AllowedOrigins   []string
}

func DefaultConfig() Config {
	return Config{
		MaxConnections:   10000,
		ConnectionsPerIP: 20,
	}
}

type WebSocketHandler struct {
	hub      *Hub
	verifier identity.TokenVerifier
	config   Config
	upgrader websocket.Upgrader

	ipMu    sync.Mutex
	ipConns map[string]int
}

func NewWebSocketHandler(hub *Hub, verifier identity.TokenVerifier, config Config) *WebSocketHandler {
	h := &WebSocketHandler{
		hub:      hub,
		verifier: verifier,
		config:   config,
		ipConns:  make(map[string]int),
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     h.checkOrigin,
	}
	return h
}

func writeError(w http.ResponseWriter, appErr *app_error.AppError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(appErr.Code)
	_ = appErr.JSON(w)
}

func (h *WebSocketHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	principal, err := authenticate(r, h.verifier)
	if err != nil {
		var authErr *AuthError
		msg := "Invalid token"
		if errors.As(err, &authErr) {
			msg = authErr.Message
		}
		log.Warn().Err(err).Str("request_id", r.Header.Get("X-Request-ID")).Msg("ws: authentication failed")
		writeError(w, app_error.NewAppError(http.StatusUnauthorized, msg, "auth"))
		return
	}

	if h.config.MaxConnections > 0 && h.hub.ConnectionCount() >= h.config.MaxConnections {
		log.Warn().Int("max", h.config.MaxConnections).Msg("ws: connection limit reached")
		writeError(w, app_error.NewAppError(http.StatusServiceUnavailable, "Server is at capacity, try again later", "ws"))
		return
	}

	ip := getClientIP(r)
	if !h.acquireIP(ip) {
		log.Warn().Str("ip", ip).Msg("ws: too many connections from ip")
		writeError(w, app_error.NewAppError(http.StatusTooManyRequests, "Too many connections", "ws"))
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error
		h.releaseIP(ip)
		log.Error().Err(err).Msg("ws: upgrade failed")
		return
	}

	client := NewClient(h.hub, conn, principal.UID, ip)
	client.onClose = func() { h.releaseIP(ip) }

	h.hub.Register(client)
	client.Start()
}
