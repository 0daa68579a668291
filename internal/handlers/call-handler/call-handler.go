package call_handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/xenn00/ruready-server/internal/dtos/call_dto"
	app_error "github.com/xenn00/ruready-server/internal/errors"
	"github.com/xenn00/ruready-server/internal/handlers"
	"github.com/xenn00/ruready-server/internal/middleware"
	"github.com/xenn00/ruready-server/internal/rtc"
	call_service "github.com/xenn00/ruready-server/internal/use-case/call-case"
)

type CallHandler struct {
	Service call_service.CallServiceContract
	Tokens  rtc.TokenServiceContract
}

func NewCallHandler(service call_service.CallServiceContract, tokens rtc.TokenServiceContract) *CallHandler {
	return &CallHandler{
		Service: service,
		Tokens:  tokens,
	}
}

func currentUID(r *http.Request) (string, *app_error.AppError) {
	principal, ok := middleware.PrincipalFrom(r.Context())
	if !ok || principal.UID == "" {
		return "", app_error.NewAppError(http.StatusUnauthorized, "Not authenticated", "auth")
	}
	return principal.UID, nil
}

func (h *CallHandler) Initiate(w http.ResponseWriter, r *http.Request) *app_error.AppError {
	uid, appErr := currentUID(r)
	if appErr != nil {
		return appErr
	}

	var req call_dto.InitiateCallRequest
	if appErr := handlers.DecodeJSON(w, r, &req); appErr != nil {
		return appErr
	}

	resp, appErr := h.Service.Initiate(r.Context(), uid, req)
	if appErr != nil {
		return appErr
	}

	handlers.WriteJSON(w, http.StatusCreated, handlers.CreateResponse("call started", *resp, handlers.RequestID(r)))
	return nil
}

func (h *CallHandler) Active(w http.ResponseWriter, r *http.Request) *app_error.AppError {
	uid, appErr := currentUID(r)
	if appErr != nil {
		return appErr
	}

	resp, appErr := h.Service.Active(r.Context(), uid)
	if appErr != nil {
		return appErr
	}

	handlers.WriteJSON(w, http.StatusOK, handlers.CreateResponse("", *resp, handlers.RequestID(r)))
	return nil
}

func (h *CallHandler) Accept(w http.ResponseWriter, r *http.Request) *app_error.AppError {
	uid, appErr := currentUID(r)
	if appErr != nil {
		return appErr
	}

	resp, appErr := h.Service.Accept(r.Context(), uid, chi.URLParam(r, "callId"))
	if appErr != nil {
		return appErr
	}

	handlers.WriteJSON(w, http.StatusOK, handlers.CreateResponse("call accepted", *resp, handlers.RequestID(r)))
	return nil
}

// End accepts an empty body, which means "completed".
func (h *CallHandler) End(w http.ResponseWriter, r *http.Request) *app_error.AppError {
	uid, appErr := currentUID(r)
	if appErr != nil {
		return appErr
	}

	var req call_dto.EndCallRequest
	if r.ContentLength > 0 {
		if appErr := handlers.DecodeJSON(w, r, &req); appErr != nil {
			return appErr
		}
	}

	resp, appErr := h.Service.End(r.Context(), uid, chi.URLParam(r, "callId"), req)
	if appErr != nil {
		return appErr
	}

	handlers.WriteJSON(w, http.StatusOK, handlers.CreateResponse("call ended", *resp, handlers.RequestID(r)))
	return nil
}

func (h *CallHandler) Media(w http.ResponseWriter, r *http.Request) *app_error.AppError {
	uid, appErr := currentUID(r)
	if appErr != nil {
		return appErr
	}

	var req call_dto.MediaStateRequest
	if appErr := handlers.DecodeJSON(w, r, &req); appErr != nil {
		return appErr
	}

	if appErr := h.Service.RelayMedia(r.Context(), uid, chi.URLParam(r, "callId"), req); appErr != nil {
		return appErr
	}

	handlers.WriteJSON(w, http.StatusOK, handlers.CreateResponse("media state relayed", req, handlers.RequestID(r)))
	return nil
}

func (h *CallHandler) Logs(w http.ResponseWriter, r *http.Request) *app_error.AppError {
	uid, appErr := currentUID(r)
	if appErr != nil {
		return appErr
	}

	query := call_dto.CallLogsQuery{Before: r.URL.Query().Get("before")}
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

	resp, appErr := h.Service.History(r.Context(), uid, query)
	if appErr != nil {
		return appErr
	}

	handlers.WriteJSON(w, http.StatusOK, handlers.CreateResponse("", *resp, handlers.RequestID(r)))
	return nil
}
