package user_handler

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/xenn00/ruready-server/internal/dtos/user_dto"
	"github.com/xenn00/ruready-server/internal/entity"
	app_error "github.com/xenn00/ruready-server/internal/errors"
	"github.com/xenn00/ruready-server/internal/handlers"
	"github.com/xenn00/ruready-server/internal/identity"
	"github.com/xenn00/ruready-server/internal/middleware"
	"github.com/xenn00/ruready-server/internal/presence"
	user_repo "github.com/xenn00/ruready-server/internal/repo/user"
)

type UserHandler struct {
	Repo     user_repo.UserRepoContract
	Presence presence.ServiceContract
}

func NewUserHandler(repo user_repo.UserRepoContract, presence presence.ServiceContract) *UserHandler {
	return &UserHandler{
		Repo:     repo,
		Presence: presence,
	}
}

func currentPrincipal(r *http.Request) (*identity.Principal, *app_error.AppError) {
	principal, ok := middleware.PrincipalFrom(r.Context())
	if !ok || principal.UID == "" {
		return nil, app_error.NewAppError(http.StatusUnauthorized, "Not authenticated", "auth")
	}
	return principal, nil
}

// UpsertMe runs on every sign-in. Body fields win over token claims.
func (h *UserHandler) UpsertMe(w http.ResponseWriter, r *http.Request) *app_error.AppError {
	principal, appErr := currentPrincipal(r)
	if appErr != nil {
		return appErr
	}

	var req user_dto.UpsertProfileRequest
	if r.ContentLength > 0 {
		if appErr := handlers.DecodeJSON(w, r, &req); appErr != nil {
			return appErr
		}
	}

	profile := entity.User{
		ID:          principal.UID,
		Email:       principal.Email,
		DisplayName: strings.TrimSpace(req.DisplayName),
		PhotoURL:    req.PhotoURL,
	}
	if profile.DisplayName == "" {
		profile.DisplayName = principal.Name
	}
	if profile.PhotoURL == "" {
		profile.PhotoURL = principal.Picture
	}

	user, appErr := h.Repo.UpsertProfile(r.Context(), profile)
	if appErr != nil {
		return appErr
	}
	h.Presence.Touch(r.Context(), principal.UID)

	handlers.WriteJSON(w, http.StatusOK, handlers.CreateResponse("profile saved", user_dto.ToUserResponse(user), handlers.RequestID(r)))
	return nil
}

func (h *UserHandler) SetPushToken(w http.ResponseWriter, r *http.Request) *app_error.AppError {
	principal, appErr := currentPrincipal(r)
	if appErr != nil {
		return appErr
	}

	var req user_dto.PushTokenRequest
	if appErr := handlers.DecodeJSON(w, r, &req); appErr != nil {
		return appErr
	}
	if req.Platform == "" {
		req.Platform = "web"
	}

	if appErr := h.Repo.SetPushToken(r.Context(), principal.UID, req.Token, req.Platform); appErr != nil {
		return appErr
	}

	handlers.WriteJSON(w, http.StatusOK, handlers.CreateResponse("push token saved", map[string]string{"platform": req.Platform}, handlers.RequestID(r)))
	return nil
}

func (h *UserHandler) GetPresence(w http.ResponseWriter, r *http.Request) *app_error.AppError {
	if _, appErr := currentPrincipal(r); appErr != nil {
		return appErr
	}

	resp, appErr := h.Presence.Get(r.Context(), chi.URLParam(r, "userId"))
	if appErr != nil {
		return appErr
	}

	handlers.WriteJSON(w, http.StatusOK, handlers.CreateResponse("", *resp, handlers.RequestID(r)))
	return nil
}
