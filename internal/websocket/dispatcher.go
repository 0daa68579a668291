package websocket

import (
	"context"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"
	"github.com/xenn00/ruready-server/internal/dtos/call_dto"
	"github.com/xenn00/ruready-server/internal/dtos/message_dto"
	"github.com/xenn00/ruready-server/internal/dtos/user_dto"
	"github.com/xenn00/ruready-server/internal/dtos/ws_dto"
	app_error "github.com/xenn00/ruready-server/internal/errors"
	"github.com/xenn00/ruready-server/internal/observability/metrics"
	"github.com/xenn00/ruready-server/internal/utils/types"
)

type MessageSender interface {
	SendMessage(ctx context.Context, req message_dto.SendMessageRequest) (*message_dto.MessageResponse, *app_error.AppError)
	MarkAsRead(ctx context.Context, req message_dto.MarkReadRequest) (*message_dto.MarkReadResponse, *app_error.AppError)
}

type MediaRelay interface {
	RelayMedia(ctx context.Context, uid, callID string, req call_dto.MediaStateRequest) *app_error.AppError
}

type PresenceReader interface {
	Get(ctx context.Context, uid string) (*user_dto.PresenceResponse, *app_error.AppError)
}

// Dispatcher routes inbound client events. The sender is always the
// authenticated connection owner, ids in the payload are only cross-checked.
type Dispatcher struct {
	Messages MessageSender
	Calls    MediaRelay
	Presence PresenceReader
	Emitter  types.Emitter
	validate *validator.Validate
}

func NewDispatcher(messages MessageSender, calls MediaRelay, presence PresenceReader, emitter types.Emitter) *Dispatcher {
	if emitter == nil {
		emitter = types.NoopEmitter{}
	}
	return &Dispatcher{
		Messages: messages,
		Calls:    calls,
		Presence: presence,
		Emitter:  emitter,
		validate: validator.New(),
	}
}

func (d *Dispatcher) HandleEvent(ctx context.Context, c *Client, env ws_dto.Envelope) {
	switch env.Event {
	case ws_dto.EventUserJoin:
		d.userJoin(ctx, c, env)
	case ws_dto.EventMessageSend:
		d.messageSend(ctx, c, env)
	case ws_dto.EventTypingStart, ws_dto.EventTypingStop:
		d.typing(ctx, c, env)
	case ws_dto.EventMessagesRead:
		d.messagesRead(ctx, c, env)
	case ws_dto.EventCallMedia:
		d.callMedia(ctx, c, env)
	default:
		c.emitError(ws_dto.EventError, "Unknown event: "+env.Event)
	}
}

func decodeData(env ws_dto.Envelope, dst any) bool {
	if len(env.Data) == 0 {
		return false
	}
	return json.Unmarshal(env.Data, dst) == nil
}

// userJoin acknowledges the session. Presence itself follows the connection.
func (d *Dispatcher) userJoin(ctx context.Context, c *Client, env ws_dto.Envelope) {
	var req struct {
		UserID string `json:"userId"`
	}
	decodeData(env, &req)
	if req.UserID != "" && req.UserID != c.UserID {
		c.emitError(ws_dto.EventError, "userId does not match the authenticated user")
		return
	}

	ack := ws_dto.PresenceEvent{UserID: c.UserID, Online: true, LastSeen: c.GetLastSeen().UnixMilli()}
	if d.Presence != nil {
		if p, appErr := d.Presence.Get(ctx, c.UserID); appErr == nil {
			ack.Online = p.Online
			ack.LastSeen = p.LastSeen.UnixMilli()
		}
	}
	c.Emit(ws_dto.EventUserJoined, ack)
}

func (d *Dispatcher) messageSend(ctx context.Context, c *Client, env ws_dto.Envelope) {
	var req message_dto.SendMessageRequest
	if !decodeData(env, &req) {
		c.emitError(ws_dto.EventMessageError, "Invalid message payload")
		return
	}
	if req.SenderID != "" && req.SenderID != c.UserID {
		c.emitError(ws_dto.EventMessageError, "senderId does not match the authenticated user")
		return
	}
	req.SenderID = c.UserID

	msg, appErr := d.Messages.SendMessage(ctx, req)
	if appErr != nil {
		log.Warn().Str("uid", c.UserID).Int("status", appErr.Code).Msg(appErr.Message)
		c.emitError(ws_dto.EventMessageError, appErr.Message)
		return
	}
	metrics.MessagesSentTotal.WithLabelValues("ws").Inc()

	c.Emit(ws_dto.EventMessageSent, msg)
	d.Emitter.EmitToUser(ctx, msg.ReceiverID, ws_dto.EventMessageReceive, msg)
}

func (d *Dispatcher) typing(ctx context.Context, c *Client, env ws_dto.Envelope) {
	var req message_dto.TypingRequest
	if !decodeData(env, &req) || d.validate.Struct(req) != nil {
		c.emitError(ws_dto.EventError, "receiverId is required")
		return
	}
	if req.ReceiverID == c.UserID {
		return
	}

	d.Emitter.EmitToUser(ctx, req.ReceiverID, ws_dto.EventTypingIndicator, message_dto.TypingEvent{
		UserID:         c.UserID,
		ConversationID: req.ConversationID,
		Typing:         env.Event == ws_dto.EventTypingStart,
	})
}

func (d *Dispatcher) messagesRead(ctx context.Context, c *Client, env ws_dto.Envelope) {
	var req message_dto.MarkReadRequest
	if !decodeData(env, &req) {
		c.emitError(ws_dto.EventMessagesReadError, "Invalid payload")
		return
	}
	if req.UserID != "" && req.UserID != c.UserID {
		c.emitError(ws_dto.EventMessagesReadError, "userId does not match the authenticated user")
		return
	}
	req.UserID = c.UserID
	req.ConversationID = strings.TrimSpace(req.ConversationID)

	resp, appErr := d.Messages.MarkAsRead(ctx, req)
	if appErr != nil {
		c.emitError(ws_dto.EventMessagesReadError, appErr.Message)
		return
	}
	c.Emit(ws_dto.EventMessagesReadSuccess, resp)
}

func (d *Dispatcher) callMedia(ctx context.Context, c *Client, env ws_dto.Envelope) {
	var req ws_dto.CallMediaInbound
	if !decodeData(env, &req) || d.validate.Struct(req) != nil {
		c.emitError(ws_dto.EventCallError, "callId is required")
		return
	}

	if appErr := d.Calls.RelayMedia(ctx, c.UserID, req.CallID, call_dto.MediaStateRequest{
		Muted:          req.Muted,
		CameraOn:       req.CameraOn,
		CameraSwitched: req.CameraSwitched,
	}); appErr != nil {
		c.emitError(ws_dto.EventCallError, appErr.Message)
	}
}
