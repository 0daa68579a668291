package message_handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/xenn00/ruready-server/internal/dtos/message_dto"
	"github.com/xenn00/ruready-server/internal/dtos/ws_dto"
	app_error "github.com/xenn00/ruready-server/internal/errors"
	"github.com/xenn00/ruready-server/internal/handlers"
	"github.com/xenn00/ruready-server/internal/middleware"
	"github.com/xenn00/ruready-server/internal/observability/metrics"
	message_service "github.com/xenn00/ruready-server/internal/use-case/message-case"
	"github.com/xenn00/ruready-server/internal/utils/types"
)

type MessageHandler struct {
	Service message_service.MessageServiceContract
	Emitter types.Emitter
}

func NewMessageHandler(service message_service.MessageServiceContract, emitter types.Emitter) *MessageHandler {
	if emitter == nil {
		emitter = types.NoopEmitter{}
	}
	return &MessageHandler{
		Service: service,
		Emitter: emitter,
	}
}

func currentUID(r *http.Request) (string, *app_error.AppError) {
	principal, ok := middleware.PrincipalFrom(r.Context())
	if !ok || principal.UID == "" {
		return "", app_error.NewAppError(http.StatusUnauthorized, "Not authenticated", "auth")
	}
	return principal.UID, nil
}

// SendMessage stores the message and pushes it to the receiver's open
// connections, mirroring the realtime path.
func (h *MessageHandler) SendMessage(w http.ResponseWriter, r *http.Request) *app_error.AppError {
	uid, appErr := currentUID(r)
	if appErr != nil {
		return appErr
	}

	var req message_dto.SendMessageRequest
	if appErr := handlers.DecodeJSON(w, r, &req); appErr != nil {
		return appErr
	}

	if req.SenderID == "" {
		req.SenderID = uid
	}
	if req.SenderID != uid {
		return app_error.NewAppError(http.StatusForbidden, "senderId does not match the authenticated user", "senderId")
	}

	resp, appErr := h.Service.SendMessage(r.Context(), req)
	if appErr != nil {
		return appErr
	}
	metrics.MessagesSentTotal.WithLabelValues("http").Inc()

	h.Emitter.EmitToUser(r.Context(), resp.ReceiverID, ws_dto.EventMessageReceive, resp)

	handlers.WriteJSON(w, http.StatusCreated, handlers.CreateResponse("message sent", *resp, handlers.RequestID(r)))
	return nil
}

func (h *MessageHandler) MarkAsRead(w http.ResponseWriter, r *http.Request) *app_error.AppError {
	uid, appErr := currentUID(r)
	if appErr != nil {
		return appErr
	}

	conversationID := chi.URLParam(r, "conversationId")
	if appErr := h.Service.CanAccess(r.Context(), uid, conversationID); appErr != nil {
		return appErr
	}

	resp, appErr := h.Service.MarkAsRead(r.Context(), message_dto.MarkReadRequest{ConversationID: conversationID, UserID: uid})
	if appErr != nil {
		return appErr
	}

	handlers.WriteJSON(w, http.StatusOK, handlers.CreateResponse("messages marked as read", *resp, handlers.RequestID(r)))
	return nil
}

func (h *MessageHandler) ListMessages(w http.ResponseWriter, r *http.Request) *app_error.AppError {
	uid, appErr := currentUID(r)
	if appErr != nil {
		return appErr
	}

	query := message_dto.ListMessagesQuery{BeforeID: r.URL.Query().Get("before_id")}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil {
			return app_error.NewAppError(http.StatusBadRequest, "limit must be a number", "limit")
		}
		query.Limit = limit
	}
	if appErr := handlers.ValidateStruct(query); appErr != nil {
		return appErr
	}

	msgs, appErr := h.Service.ListMessages(r.Context(), uid, chi.URLParam(r, "conversationId"), query)
	if appErr != nil {
		return appErr
	}

	handlers.WriteJSON(w, http.StatusOK, handlers.CreateResponse("", msgs, handlers.RequestID(r)))
	return nil
}
