package call_repo

import (
	"context"
	"time"

	"github.com/xenn00/ruready-server/internal/entity"
	app_error "github.com/xenn00/ruready-server/internal/errors"
	"go.mongodb.org/mongo-driver/v2/bson"
)

type CallRepoContract interface {
	CreateCall(ctx context.Context, call *entity.Call) *app_error.AppError
	CreateLog(ctx context.Context, log *entity.CallLog) *app_error.AppError
	FindCall(ctx context.Context, callID string) (*entity.Call, *app_error.AppError)
	FindActiveForUser(ctx context.Context, uid string) (*entity.Call, *app_error.AppError)
	// MarkAnswered returns (nil, nil) when the call is not ringing for receiverID.
	MarkAnswered(ctx context.Context, callID, receiverID string, at time.Time) (*entity.Call, *app_error.AppError)
	MarkEnded(ctx context.Context, callID string, at time.Time) (*entity.Call, *app_error.AppError)
	// MarkEndedIfRinging returns (nil, nil) when the call was answered or ended meanwhile.
	MarkEndedIfRinging(ctx context.Context, callID string, at time.Time) (*entity.Call, *app_error.AppError)
	UpdateLogAnswered(ctx context.Context, callID string, at time.Time) *app_error.AppError
	UpdateLogEnded(ctx context.Context, callID, status string, at time.Time, duration int64) *app_error.AppError
	ListLogs(ctx context.Context, uid string, limit int, before *bson.ObjectID) ([]*entity.CallLog, *app_error.AppError)
}

type ActiveCallGuardContract interface {
	Acquire(ctx context.Context, callID string, ttl time.Duration, uids ...string) (bool, *app_error.AppError)
	Release(ctx context.Context, callID string, uids ...string) *app_error.AppError
	Current(ctx context.Context, uid string) (string, *app_error.AppError)
}
