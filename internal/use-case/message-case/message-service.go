package message_service

import (
	"context"
	"net/http"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog/log"
	"github.com/xenn00/ruready-server/internal/dtos/message_dto"
	"github.com/xenn00/ruready-server/internal/entity"
	app_error "github.com/xenn00/ruready-server/internal/errors"
	message_repo "github.com/xenn00/ruready-server/internal/repo/message"
	"github.com/xenn00/ruready-server/state"
	"go.mongodb.org/mongo-driver/v2/bson"
)

const (
	MaxMessageLength = 5000
	defaultPageSize  = 20
	maxPageSize      = 100
)

type MessageService struct {
	MessageRepo message_repo.MessageRepoContract
	Now         func() time.Time
}

func NewMessageService(appState *state.AppState) MessageServiceContract {
	return &MessageService{
		MessageRepo: message_repo.NewMessageRepo(appState),
		Now:         time.Now,
	}
}

// ConversationID is the canonical id of the one-to-one thread between a and b.
func ConversationID(a, b string) string {
	pair := []string{a, b}
	sort.Strings(pair)
	return pair[0] + "_" + pair[1]
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

func (s *MessageService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *MessageService) SendMessage(ctx context.Context, req message_dto.SendMessageRequest) (*message_dto.MessageResponse, *app_error.AppError) {
	if req.SenderID == "" || req.ReceiverID == "" || req.ConversationID == "" {
		return nil, app_error.NewAppError(http.StatusBadRequest, "senderId, receiverId, and conversationId are required", "conversationId")
	}

	text := strings.TrimSpace(req.Text)
	if text == "" {
		return nil, app_error.NewAppError(http.StatusBadRequest, "Message text is required and cannot be empty", "text")
	}
	if utf8.RuneCountInString(text) > MaxMessageLength {
		return nil, app_error.NewAppError(http.StatusBadRequest, "Message is too long (max 5000 characters)", "text")
	}

	participants := []string{req.SenderID, req.ReceiverID}
	conv, appErr := s.MessageRepo.FindConversation(ctx, req.ConversationID)
	switch {
	case appErr == nil:
		if !contains(conv.Participants, req.SenderID) || !contains(conv.Participants, req.ReceiverID) {
			return nil, app_error.NewAppError(http.StatusForbidden, "Not a participant of this conversation", "conversationId")
		}
		participants = conv.Participants
	case app_error.Is(appErr, http.StatusNotFound):
		// first message opens the thread, only under the pair's canonical id
		if req.ConversationID != ConversationID(req.SenderID, req.ReceiverID) {
			return nil, app_error.NewAppError(http.StatusBadRequest, "conversationId does not match the participants", "conversationId")
		}
	default:
		return nil, app_error.NewAppError(http.StatusInternalServerError, "Failed to save message", "conversationId")
	}

	now := s.now()
	msg, appErr := s.MessageRepo.CreateMessage(ctx, &entity.Message{
		ConversationID: req.ConversationID,
		SenderID:       req.SenderID,
		ReceiverID:     req.ReceiverID,
		Text:           text,
		Read:           false,
		Timestamp:      now,
	})
	if appErr != nil {
		return nil, appErr
	}

	if appErr := s.MessageRepo.UpsertConversation(ctx, req.ConversationID, participants, text, now); appErr != nil {
		return nil, appErr
	}

	log.Info().
		Str("message_id", msg.ID.Hex()).
		Str("conversation_id", msg.ConversationID).
		Str("sender_id", msg.SenderID).
		Str("receiver_id", msg.ReceiverID).
		Msg("message saved")

	resp := message_dto.ToMessageResponse(msg)
	return &resp, nil
}

func (s *MessageService) MarkAsRead(ctx context.Context, req message_dto.MarkReadRequest) (*message_dto.MarkReadResponse, *app_error.AppError) {
	if req.ConversationID == "" || req.UserID == "" {
		return nil, app_error.NewAppError(http.StatusBadRequest, "conversationId and userId are required", "conversationId")
	}

	count, appErr := s.MessageRepo.MarkAsRead(ctx, req.ConversationID, req.UserID)
	if appErr != nil {
		return nil, appErr
	}

	if count > 0 {
		log.Info().Int64("count", count).Str("conversation_id", req.ConversationID).Str("uid", req.UserID).Msg("messages marked as read")
	}
	return &message_dto.MarkReadResponse{ConversationID: req.ConversationID, Count: count}, nil
}

// CanAccess lets uid into a stored conversation they belong to, or into a
// not-yet-created canonical thread that names them.
func (s *MessageService) CanAccess(ctx context.Context, uid, conversationID string) *app_error.AppError {
	conv, appErr := s.MessageRepo.FindConversation(ctx, conversationID)
	if appErr == nil {
		if contains(conv.Participants, uid) {
			return nil
		}
		return app_error.NewAppError(http.StatusForbidden, "Not a participant of this conversation", "conversationId")
	}
	if !app_error.Is(appErr, http.StatusNotFound) {
		return appErr
	}

	if a, b, ok := strings.Cut(conversationID, "_"); ok && (a == uid || b == uid) && ConversationID(a, b) == conversationID {
		return nil
	}
	return app_error.NewAppError(http.StatusForbidden, "Not a participant of this conversation", "conversationId")
}

func (s *MessageService) ListMessages(ctx context.Context, uid, conversationID string, query message_dto.ListMessagesQuery) ([]message_dto.MessageResponse, *app_error.AppError) {
	if appErr := s.CanAccess(ctx, uid, conversationID); appErr != nil {
		return nil, appErr
	}

	limit := query.Limit
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}

	var before *bson.ObjectID
	if query.BeforeID != "" {
		id, err := bson.ObjectIDFromHex(query.BeforeID)
		if err != nil {
			return nil, app_error.NewAppError(http.StatusBadRequest, "invalid before_id cursor", "before_id")
		}
		before = &id
	}

	msgs, appErr := s.MessageRepo.ListMessages(ctx, conversationID, limit, before)
	if appErr != nil {
		return nil, appErr
	}

	out := make([]message_dto.MessageResponse, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, message_dto.ToMessageResponse(m))
	}
	return out, nil
}
