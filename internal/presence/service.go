package presence

import (
	"context"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/xenn00/ruready-server/internal/dtos/user_dto"
	"github.com/xenn00/ruready-server/internal/dtos/ws_dto"
	app_error "github.com/xenn00/ruready-server/internal/errors"
	user_repo "github.com/xenn00/ruready-server/internal/repo/user"
	"github.com/xenn00/ruready-server/internal/utils/types"
)

type ServiceContract interface {
	Connected(ctx context.Context, uid string) *Status
	Disconnected(ctx context.Context, uid string)
	Touch(ctx context.Context, uid string)
	Get(ctx context.Context, uid string) (*user_dto.PresenceResponse, *app_error.AppError)
}

type Service struct {
	store   *Store
	users   user_repo.UserRepoContract
	emitter types.Emitter
	now     func() time.Time
}

func NewService(store *Store, users user_repo.UserRepoContract, emitter types.Emitter) *Service {
	if emitter == nil {
		emitter = types.NoopEmitter{}
	}
	return &Service{
		store:   store,
		users:   users,
		emitter: emitter,
		now:     time.Now,
	}
}

// Connected registers one more connection for uid and announces the user
// when it is their first.
func (s *Service) Connected(ctx context.Context, uid string) *Status {
	at := s.now()
	became, err := s.store.Connect(ctx, uid, at)
	if err != nil {
		log.Error().Err(err).Str("uid", uid).Msg("failed to record connect")
		return &Status{UserID: uid, Online: true, LastSeen: at}
	}

	if became {
		s.mirror(ctx, uid, true, at)
		s.emitter.Broadcast(ctx, ws_dto.EventUserOnline, ws_dto.PresenceEvent{UserID: uid, Online: true, LastSeen: at.UnixMilli()})
	}

	st, err := s.store.Get(ctx, uid)
	if err != nil {
		return &Status{UserID: uid, Online: true, LastSeen: at}
	}
	return st
}

func (s *Service) Disconnected(ctx context.Context, uid string) {
	at := s.now()
	became, err := s.store.Disconnect(ctx, uid, at)
	if err != nil {
		log.Error().Err(err).Str("uid", uid).Msg("failed to record disconnect")
		return
	}

	if became {
		s.mirror(ctx, uid, false, at)
		s.emitter.Broadcast(ctx, ws_dto.EventUserOffline, ws_dto.PresenceEvent{UserID: uid, Online: false, LastSeen: at.UnixMilli()})
	}
}

func (s *Service) Touch(ctx context.Context, uid string) {
	if err := s.store.Touch(ctx, uid, s.now()); err != nil {
		log.Warn().Err(err).Str("uid", uid).Msg("failed to refresh presence")
	}
}

func (s *Service) Get(ctx context.Context, uid string) (*user_dto.PresenceResponse, *app_error.AppError) {
	st, err := s.store.Get(ctx, uid)
	if err != nil {
		log.Error().Err(err).Str("uid", uid).Msg("failed to read presence")
		return nil, app_error.NewAppError(http.StatusInternalServerError, "Failed to fetch presence", "redis")
	}

	resp := &user_dto.PresenceResponse{UserID: uid, Online: st.Online, LastSeen: st.LastSeen}
	if st.LastSeen.IsZero() && s.users != nil {
		user, appErr := s.users.FindByID(ctx, uid)
		if appErr != nil {
			return nil, appErr
		}
		resp.LastSeen = user.LastSeen
	}
	return resp, nil
}

// mirror keeps the users table in step for consumers that read it directly.
// Failures are logged only.
func (s *Service) mirror(ctx context.Context, uid string, online bool, at time.Time) {
	if s.users == nil {
		return
	}
	if appErr := s.users.SetPresence(ctx, uid, online, at); appErr != nil {
		log.Warn().Str("uid", uid).Str("error", appErr.Message).Msg("failed to mirror presence into users table")
	}
}
