package websocket

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xenn00/ruready-server/internal/dtos/call_dto"
	"github.com/xenn00/ruready-server/internal/dtos/message_dto"
	"github.com/xenn00/ruready-server/internal/dtos/ws_dto"
	app_error "github.com/xenn00/ruready-server/internal/errors"
	"github.com/xenn00/ruready-server/internal/identity"
)

type tokenVerifier map[string]string

func (v tokenVerifier) Verify(_ context.Context, raw string) (*identity.Principal, error) {
	if raw == "expired" {
		return nil, identity.ErrTokenExpired
	}
	uid, ok := v[raw]
	if !ok {
		return nil, identity.ErrTokenInvalid
	}
	return &identity.Principal{UID: uid}, nil
}

type fakeMessages struct {
	mu   sync.Mutex
	sent []message_dto.SendMessageRequest
}

func (f *fakeMessages) SendMessage(_ context.Context, req message_dto.SendMessageRequest) (*message_dto.MessageResponse, *app_error.AppError) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if strings.TrimSpace(req.Text) == "" {
		return nil, app_error.NewAppError(http.StatusBadRequest, "Message text is required and cannot be empty", "text")
	}
	f.sent = append(f.sent, req)
	return &message_dto.MessageResponse{
		ID:             "65f000000000000000000001",
		ConversationID: req.ConversationID,
		SenderID:       req.SenderID,
		ReceiverID:     req.ReceiverID,
		Text:           req.Text,
		Timestamp:      time.Now(),
	}, nil
}

func (f *fakeMessages) MarkAsRead(_ context.Context, req message_dto.MarkReadRequest) (*message_dto.MarkReadResponse, *app_error.AppError) {
	return &message_dto.MarkReadResponse{ConversationID: req.ConversationID, Count: 2}, nil
}

type fakeRelay struct {
	mu      sync.Mutex
	relayed []string
}

func (f *fakeRelay) RelayMedia(_ context.Context, uid, callID string, _ call_dto.MediaStateRequest) *app_error.AppError {
	f.mu.Lock()
	defer f.mu.Unlock()
	if callID == "call_unknown" {
		return app_error.NewAppError(http.StatusNotFound, "Call not found", "callId")
	}
	f.relayed = append(f.relayed, uid+":"+callID)
	return nil
}

type wsFixture struct {
	hub      *Hub
	server   *httptest.Server
	messages *fakeMessages
	relay    *fakeRelay
	url      string
}

func newWSFixture(t *testing.T, cfg Config) *wsFixture {
	t.Helper()
	hub := newTestHub(t)
	f := &wsFixture{hub: hub, messages: &fakeMessages{}, relay: &fakeRelay{}}
	hub.SetHandler(NewDispatcher(f.messages, f.relay, nil, hub))

	verifier := tokenVerifier{"tok-alice": "alice", "tok-bob": "bob"}
	f.server = httptest.NewServer(NewWebSocketHandler(hub, verifier, cfg))
	t.Cleanup(f.server.Close)
	f.url = "ws" + strings.TrimPrefix(f.server.URL, "http")
	return f
}

func (f *wsFixture) dial(t *testing.T, token string) *websocket.Conn {
	t.Helper()
	conn, resp, err := websocket.DefaultDialer.Dial(f.url+"?token="+token, nil)
	require.NoError(t, err)
	_ = resp.Body.Close()
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func send(t *testing.T, conn *websocket.Conn, event string, data any) {
	t.Helper()
	frame, err := encodeFrame(event, data)
	require.NoError(t, err)
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, frame))
}

func receive(t *testing.T, conn *websocket.Conn) ws_dto.Envelope {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	var env ws_dto.Envelope
	require.NoError(t, json.Unmarshal(data, &env))
	return env
}

func TestWebSocketHandler_RejectsBadTokens(t *testing.T) {
	f := newWSFixture(t, DefaultConfig())

	cases := map[string]string{
		"":        "Unauthorized: No token provided",
		"garbage": "Invalid token",
		"expired": "Token expired",
	}
	for token, message := range cases {
		_, resp, err := websocket.DefaultDialer.Dial(f.url+"?token="+token, nil)
		require.Error(t, err)
		require.NotNil(t, resp)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

		var body struct {
			Success bool   `json:"success"`
			Error   string `json:"error"`
		}
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		_ = resp.Body.Close()
		assert.False(t, body.Success)
		assert.Equal(t, message, body.Error)
	}
}

func TestWebSocketHandler_AcceptsHeaderAndCookie(t *testing.T) {
	f := newWSFixture(t, DefaultConfig())

	header := http.Header{"Authorization": {"Bearer tok-alice"}}
	conn, resp, err := websocket.DefaultDialer.Dial(f.url, header)
	require.NoError(t, err)
	_ = resp.Body.Close()
	defer conn.Close()

	cookie := http.Header{"Cookie": {"access_token=tok-bob"}}
	conn2, resp, err := websocket.DefaultDialer.Dial(f.url, cookie)
	require.NoError(t, err)
	_ = resp.Body.Close()
	defer conn2.Close()

	require.Eventually(t, func() bool {
		return f.hub.IsUserOnline("alice") && f.hub.IsUserOnline("bob")
	}, time.Second, 10*time.Millisecond)
}

func TestWebSocketHandler_PerIPLimit(t *testing.T) {
	f := newWSFixture(t, Config{ConnectionsPerIP: 1})
	conn := f.dial(t, "tok-alice")

	_, resp, err := websocket.DefaultDialer.Dial(f.url+"?token=tok-alice", nil)
	require.Error(t, err)
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	_ = resp.Body.Close()

	// the slot frees up once the first connection goes away
	_ = conn.Close()
	require.Eventually(t, func() bool { return !f.hub.IsUserOnline("alice") }, 2*time.Second, 10*time.Millisecond)
	f.dial(t, "tok-alice")
}

func TestWebSocketHandler_MaxConnections(t *testing.T) {
	f := newWSFixture(t, Config{MaxConnections: 1})
	f.dial(t, "tok-alice")
	require.Eventually(t, func() bool { return f.hub.ConnectionCount() == 1 }, time.Second, 10*time.Millisecond)

	_, resp, err := websocket.DefaultDialer.Dial(f.url+"?token=tok-bob", nil)
	require.Error(t, err)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	_ = resp.Body.Close()
}

func TestDispatcher_MessageFlow(t *testing.T) {
	f := newWSFixture(t, DefaultConfig())
	alice := f.dial(t, "tok-alice")
	bob := f.dial(t, "tok-bob")
	require.Eventually(t, func() bool {
		return f.hub.IsUserOnline("alice") && f.hub.IsUserOnline("bob")
	}, time.Second, 10*time.Millisecond)

	send(t, alice, ws_dto.EventMessageSend, map[string]string{
		"receiverId":     "bob",
		"conversationId": "alice_bob",
		"text":           "hello",
	})

	sent := receive(t, alice)
	assert.Equal(t, ws_dto.EventMessageSent, sent.Event)

	got := receive(t, bob)
	require.Equal(t, ws_dto.EventMessageReceive, got.Event)
	var msg message_dto.MessageResponse
	require.NoError(t, json.Unmarshal(got.Data, &msg))
	assert.Equal(t, "alice", msg.SenderID)
	assert.Equal(t, "hello", msg.Text)

	send(t, alice, ws_dto.EventMessageSend, map[string]string{"senderId": "mallory", "receiverId": "bob", "conversationId": "alice_bob", "text": "x"})
	assert.Equal(t, ws_dto.EventMessageError, receive(t, alice).Event)

	send(t, alice, ws_dto.EventMessageSend, map[string]string{"receiverId": "bob", "conversationId": "alice_bob", "text": "  "})
	failed := receive(t, alice)
	assert.Equal(t, ws_dto.EventMessageError, failed.Event)
	assert.JSONEq(t, `{"error":"Message text is required and cannot be empty"}`, string(failed.Data))
}

func TestDispatcher_TypingReadAndMedia(t *testing.T) {
	f := newWSFixture(t, DefaultConfig())
	alice := f.dial(t, "tok-alice")
	bob := f.dial(t, "tok-bob")
	require.Eventually(t, func() bool {
		return f.hub.IsUserOnline("alice") && f.hub.IsUserOnline("bob")
	}, time.Second, 10*time.Millisecond)

	send(t, alice, ws_dto.EventTypingStart, map[string]string{"receiverId": "bob", "conversationId": "alice_bob"})
	typing := receive(t, bob)
	assert.Equal(t, ws_dto.EventTypingIndicator, typing.Event)
	assert.JSONEq(t, `{"userId":"alice","conversationId":"alice_bob","typing":true}`, string(typing.Data))

	send(t, bob, ws_dto.EventMessagesRead, map[string]string{"conversationId": "alice_bob"})
	read := receive(t, bob)
	assert.Equal(t, ws_dto.EventMessagesReadSuccess, read.Event)
	assert.JSONEq(t, `{"conversationId":"alice_bob","count":2}`, string(read.Data))

	send(t, alice, ws_dto.EventCallMedia, map[string]any{"callId": "call_unknown", "muted": true})
	assert.Equal(t, ws_dto.EventCallError, receive(t, alice).Event)

	send(t, alice, "mystery", nil)
	assert.Equal(t, ws_dto.EventError, receive(t, alice).Event)

	send(t, alice, ws_dto.EventUserJoin, map[string]string{"userId": "alice"})
	joined := receive(t, alice)
	assert.Equal(t, ws_dto.EventUserJoined, joined.Event)
}
