package websocket

import (
	"context"
	"sync"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/rs/zerolog/log"
	"github.com/xenn00/ruready-server/internal/dtos/ws_dto"
	"github.com/xenn00/ruready-server/internal/observability/metrics"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const (
	hookTimeout       = 5 * time.Second
	inactiveThreshold = 2 * pongWait
)

// EventHandler receives every inbound frame of a client, in order.
type EventHandler interface {
	HandleEvent(ctx context.Context, c *Client, env ws_dto.Envelope)
}

// Hooks let other packages follow connection lifecycle without the hub
// importing them.
type Hooks struct {
	OnConnect    func(ctx context.Context, c *Client)
	OnDisconnect func(ctx context.Context, c *Client)
	OnActivity   func(ctx context.Context, c *Client)
}

type Hub struct {
	// userID -> connections
	userClients map[string]map[*Client]struct{}
	mu          sync.RWMutex

	handler EventHandler
	hooks   Hooks

	ctx    context.Context
	cancel context.CancelFunc

	stats   HubStats
	statsMu sync.Mutex

	cleanupTicker *time.Ticker
}

type HubStats struct {
	TotalUsers        int       `json:"totalUsers"`
	TotalClients      int       `json:"totalClients"`
	TotalConnections  int64     `json:"totalConnections"`
	MessagesSent      int64     `json:"messagesSent"`
	SlowConsumerDrops int64     `json:"slowConsumerDrops"`
	StartedAt         time.Time `json:"startedAt"`
}

type UserConnection struct {
	ClientID string    `json:"clientId"`
	IP       string    `json:"ip"`
	LastSeen time.Time `json:"lastSeen"`
}

func NewHub() *Hub {
	ctx, cancel := context.WithCancel(context.Background())
	hub := &Hub{
		userClients:   make(map[string]map[*Client]struct{}),
		ctx:           ctx,
		cancel:        cancel,
		stats:         HubStats{StartedAt: time.Now()},
		cleanupTicker: time.NewTicker(time.Minute),
	}

	go hub.cleanupRoutine()

	return hub
}

func (h *Hub) SetHandler(handler EventHandler) {
	h.handler = handler
}

func (h *Hub) SetHooks(hooks Hooks) {
	h.hooks = hooks
}

func (h *Hub) hookCtx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(h.ctx), hookTimeout)
}

// Register tracks the client and fires OnConnect. Pumps are started by the caller.
func (h *Hub) Register(client *Client) {
	h.mu.Lock()
	if h.userClients[client.UserID] == nil {
		h.userClients[client.UserID] = make(map[*Client]struct{})
	}
	h.userClients[client.UserID][client] = struct{}{}
	conns := len(h.userClients[client.UserID])
	h.mu.Unlock()

	h.updateStats(func(stats *HubStats) {
		stats.TotalConnections++
	})
	metrics.WSConnections.Inc()

	if h.hooks.OnConnect != nil {
		ctx, cancel := h.hookCtx()
		h.hooks.OnConnect(ctx, client)
		cancel()
	}

	log.Info().Str("clientID", client.ID).Str("userID", client.UserID).Int("userConnections", conns).Msg("ws: client registered")
}

// Unregister is idempotent. OnDisconnect fires once per registered client.
func (h *Hub) Unregister(client *Client) {
	h.mu.Lock()
	clients, ok := h.userClients[client.UserID]
	if ok {
		_, ok = clients[client]
		delete(clients, client)
		if len(clients) == 0 {
			delete(h.userClients, client.UserID)
		}
	}
	h.mu.Unlock()

	if !ok {
		return
	}
	metrics.WSConnections.Dec()

	if h.hooks.OnDisconnect != nil {
		ctx, cancel := h.hookCtx()
		h.hooks.OnDisconnect(ctx, client)
		cancel()
	}

	log.Info().Str("clientID", client.ID).Str("userID", client.UserID).Msg("ws: client unregistered")
}

func (h *Hub) activity(c *Client) {
	if h.hooks.OnActivity == nil {
		return
	}
	ctx, cancel := h.hookCtx()
	defer cancel()
	h.hooks.OnActivity(ctx, c)
}

func (h *Hub) dispatch(c *Client, data []byte) {
	var env ws_dto.Envelope
	if err := json.Unmarshal(data, &env); err != nil || env.Event == "" {
		c.emitError(ws_dto.EventError, "Invalid message format")
		return
	}
	if h.handler == nil {
		return
	}
	h.handler.HandleEvent(c.ctx, c, env)
}

func encodeFrame(event string, data any) ([]byte, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return json.Marshal(ws_dto.Envelope{Event: event, Data: raw})
}

// deliver never blocks. A client whose buffer is full is disconnected.
func (h *Hub) deliver(c *Client, frame []byte) bool {
	if !c.IsClientActive() {
		return false
	}
	select {
	case c.Send <- frame:
		return true
	case <-c.ctx.Done():
		return false
	default:
		log.Warn().Str("clientID", c.ID).Str("userID", c.UserID).Msg("ws: slow consumer, dropping client")
		h.updateStats(func(stats *HubStats) {
			stats.SlowConsumerDrops++
		})
		go c.Close()
		return false
	}
}

func (h *Hub) snapshot(userID string) []*Client {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if userID != "" {
		out := make([]*Client, 0, len(h.userClients[userID]))
		for c := range h.userClients[userID] {
			out = append(out, c)
		}
		return out
	}

	var out []*Client
	for _, clients := range h.userClients {
		for c := range clients {
			out = append(out, c)
		}
	}
	return out
}

func (h *Hub) sendFrame(targets []*Client, frame []byte) int {
	sent := 0
	for _, c := range targets {
		if h.deliver(c, frame) {
			sent++
		}
	}
	if sent > 0 {
		h.updateStats(func(stats *HubStats) {
			stats.MessagesSent += int64(sent)
		})
	}
	return sent
}

// SendToUser writes a pre-encoded frame to every local connection of userID.
func (h *Hub) SendToUser(userID string, frame []byte) int {
	return h.sendFrame(h.snapshot(userID), frame)
}

func (h *Hub) SendToAll(frame []byte) int {
	return h.sendFrame(h.snapshot(""), frame)
}

// EmitToUser and Broadcast make the hub a local-only emitter.
func (h *Hub) EmitToUser(_ context.Context, userID, event string, data any) {
	frame, err := encodeFrame(event, data)
	if err != nil {
		log.Error().Err(err).Str("event", event).Msg("ws: failed to encode frame")
		return
	}
	h.SendToUser(userID, frame)
}

func (h *Hub) Broadcast(_ context.Context, event string, data any) {
	frame, err := encodeFrame(event, data)
	if err != nil {
		log.Error().Err(err).Str("event", event).Msg("ws: failed to encode frame")
		return
	}
	h.SendToAll(frame)
}

func (h *Hub) IsUserOnline(userID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.userClients[userID]) > 0
}

func (h *Hub) ConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	n := 0
	for _, clients := range h.userClients {
		n += len(clients)
	}
	return n
}

func (h *Hub) GetUserConnections(userID string) []UserConnection {
	clients := h.snapshot(userID)
	out := make([]UserConnection, 0, len(clients))
	for _, c := range clients {
		out = append(out, UserConnection{ClientID: c.ID, IP: c.IP, LastSeen: c.GetLastSeen()})
	}
	return out
}

// DisconnectUser closes every local connection of userID.
func (h *Hub) DisconnectUser(userID string) int {
	clients := h.snapshot(userID)
	for _, c := range clients {
		c.Close()
	}
	return len(clients)
}

func (h *Hub) GetHubStats() HubStats {
	h.mu.RLock()
	users := len(h.userClients)
	clients := 0
	for _, cs := range h.userClients {
		clients += len(cs)
	}
	h.mu.RUnlock()

	h.statsMu.Lock()
	defer h.statsMu.Unlock()
	stats := h.stats
	stats.TotalUsers = users
	stats.TotalClients = clients
	return stats
}

func (h *Hub) updateStats(fn func(*HubStats)) {
	h.statsMu.Lock()
	fn(&h.stats)
	h.statsMu.Unlock()
}

func (h *Hub) cleanupRoutine() {
	defer h.cleanupTicker.Stop()

	for {
		select {
		case <-h.ctx.Done():
			return
		case <-h.cleanupTicker.C:
			h.performCleanup(time.Now())
		}
	}
}

func (h *Hub) performCleanup(now time.Time) int {
	var toRemove []*Client
	for _, c := range h.snapshot("") {
		if !c.IsClientActive() || now.Sub(c.GetLastSeen()) > inactiveThreshold {
			toRemove = append(toRemove, c)
		}
	}

	for _, c := range toRemove {
		log.Info().Str("clientID", c.ID).Str("userID", c.UserID).Msg("ws: cleaning up inactive client")
		c.Close()
	}

	log.Debug().Int("cleaned", len(toRemove)).Msg("ws: cleanup routine completed")
	return len(toRemove)
}

// Close gracefully shuts down the hub
func (h *Hub) Close() {
	log.Info().Msg("ws: shutting down hub")

	clients := h.snapshot("")
	for _, c := range clients {
		c.Close()
	}
	h.cancel()

	log.Info().Int("clients", len(clients)).Msg("ws: hub shutdown completed")
}
