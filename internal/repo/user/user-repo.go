package user_repo

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/xenn00/ruready-server/internal/entity"
	app_error "github.com/xenn00/ruready-server/internal/errors"
	"github.com/xenn00/ruready-server/internal/utils"
	"github.com/xenn00/ruready-server/state"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const profileCacheTTL = 5 * time.Minute

type UserRepo struct {
	AppState *state.AppState
}

func NewUserRepo(appState *state.AppState) UserRepoContract {
	return &UserRepo{
		AppState: appState,
	}
}

func profileCacheKey(uid string) string {
	return "user:profile:" + uid
}

func (r *UserRepo) invalidate(ctx context.Context, uid string) {
	if r.AppState.Redis == nil {
		return
	}
	if err := utils.DeleteCacheData(ctx, r.AppState.Redis, profileCacheKey(uid)); err != nil {
		log.Warn().Err(err).Str("uid", uid).Msg("failed to invalidate profile cache")
	}
}

// UpsertProfile creates the row on first sign-in and refreshes the profile
// snapshot on later ones. Push token, admin flag and presence are untouched.
func (r *UserRepo) UpsertProfile(ctx context.Context, model entity.User) (*entity.User, *app_error.AppError) {
	if model.LastSeen.IsZero() {
		model.LastSeen = time.Now()
	}

	err := r.AppState.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"display_name", "email", "photo_url", "updated_at"}),
	}).Create(&model).Error
	if err != nil {
		log.Error().Err(err).Str("uid", model.ID).Msg("failed to upsert user profile")
		return nil, app_error.NewAppError(http.StatusInternalServerError, "unexpected error occur when trying to save user", "db-upsert")
	}
	r.invalidate(ctx, model.ID)

	return r.FindByID(ctx, model.ID)
}

func (r *UserRepo) FindByID(ctx context.Context, uid string) (*entity.User, *app_error.AppError) {
	if r.AppState.Redis != nil {
		cached, cacheErr := utils.GetCacheData[entity.User](ctx, r.AppState.Redis, profileCacheKey(uid))
		if cacheErr == nil && cached != nil {
			return cached, nil
		}
	}

	var user entity.User
	if err := r.AppState.DB.WithContext(ctx).Where("id = ?", uid).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, app_error.NewAppError(http.StatusNotFound, "User not found", "user-id")
		}
		log.Error().Err(err).Str("uid", uid).Msg("failed to fetch user")
		return nil, app_error.NewAppError(http.StatusInternalServerError, "unexpected error occur when fetch user", "db-error")
	}

	if r.AppState.Redis != nil {
		if err := utils.SetCacheData(ctx, r.AppState.Redis, profileCacheKey(uid), &user, profileCacheTTL); err != nil {
			log.Warn().Err(err).Str("uid", uid).Msg("failed to cache user profile")
		}
	}

	return &user, nil
}

func (r *UserRepo) FindManyByIDs(ctx context.Context, uids []string) ([]entity.User, *app_error.AppError) {
	var users []entity.User
	if len(uids) == 0 {
		return users, nil
	}

	if err := r.AppState.DB.WithContext(ctx).Where("id IN ?", uids).Find(&users).Error; err != nil {
		log.Error().Err(err).Msg("failed to fetch users")
		return nil, app_error.NewAppError(http.StatusInternalServerError, "unexpected error occur when fetch users", "db-error")
	}
	return users, nil
}

func (r *UserRepo) SetPushToken(ctx context.Context, uid, token, platform string) *app_error.AppError {
	now := time.Now()
	res := r.AppState.DB.WithContext(ctx).Model(&entity.User{}).Where("id = ?", uid).Updates(map[string]any{
		"push_token":            token,
		"push_platform":         platform,
		"push_token_updated_at": now,
	})
	if res.Error != nil {
		log.Error().Err(res.Error).Str("uid", uid).Msg("failed to save push token")
		return app_error.NewAppError(http.StatusInternalServerError, "unexpected error occur when saving push token", "db-update")
	}
	if res.RowsAffected == 0 {
		return app_error.NewAppError(http.StatusNotFound, "User not found", "user-id")
	}
	r.invalidate(ctx, uid)

	return nil
}

func (r *UserRepo) SetPresence(ctx context.Context, uid string, online bool, lastSeen time.Time) *app_error.AppError {
	res := r.AppState.DB.WithContext(ctx).Model(&entity.User{}).Where("id = ?", uid).Updates(map[string]any{
		"online":    online,
		"last_seen": lastSeen,
	})
	if res.Error != nil {
		log.Error().Err(res.Error).Str("uid", uid).Msg("failed to mirror presence")
		return app_error.NewAppError(http.StatusInternalServerError, "unexpected error occur when updating presence", "db-update")
	}
	r.invalidate(ctx, uid)

	return nil
}

func (r *UserRepo) IsAdmin(ctx context.Context, uid string) (bool, *app_error.AppError) {
	var user entity.User
	err := r.AppState.DB.WithContext(ctx).Select("id", "is_admin").Where("id = ?", uid).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		log.Error().Err(err).Str("uid", uid).Msg("failed to check admin flag")
		return false, app_error.NewAppError(http.StatusInternalServerError, "unexpected error occur when fetch user", "db-error")
	}
	return user.IsAdmin, nil
}
