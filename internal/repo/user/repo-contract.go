package user_repo

import (
	"context"
	"time"

	"github.com/xenn00/ruready-server/internal/entity"
	app_error "github.com/xenn00/ruready-server/internal/errors"
)

type UserRepoContract interface {
	UpsertProfile(ctx context.Context, model entity.User) (*entity.User, *app_error.AppError)
	FindByID(ctx context.Context, uid string) (*entity.User, *app_error.AppError)
	FindManyByIDs(ctx context.Context, uids []string) ([]entity.User, *app_error.AppError)
	SetPushToken(ctx context.Context, uid, token, platform string) *app_error.AppError
	SetPresence(ctx context.Context, uid string, online bool, lastSeen time.Time) *app_error.AppError
	IsAdmin(ctx context.Context, uid string) (bool, *app_error.AppError)
}
