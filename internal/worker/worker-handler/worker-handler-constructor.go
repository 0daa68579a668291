package worker_handler

import (
	"context"
	"fmt"

	jsoniter "github.com/json-iterator/go"
	app_error "github.com/xenn00/ruready-server/internal/errors"
	"github.com/xenn00/ruready-server/internal/notify"
	"github.com/xenn00/ruready-server/internal/queue"
	user_repo "github.com/xenn00/ruready-server/internal/repo/user"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// CallTimeouter ends calls nobody answered in time.
type CallTimeouter interface {
	Timeout(ctx context.Context, callID string) *app_error.AppError
}

type WorkerHandler struct {
	Calls    CallTimeouter
	Users    user_repo.UserRepoContract
	Notifier notify.Notifier
	Mailer   notify.Mailer
}

func NewWorkerHandler(calls CallTimeouter, users user_repo.UserRepoContract, notifier notify.Notifier, mailer notify.Mailer) *WorkerHandler {
	if notifier == nil {
		notifier = notify.NoopNotifier{}
	}
	if mailer == nil {
		mailer = notify.NoopMailer{}
	}
	return &WorkerHandler{
		Calls:    calls,
		Users:    users,
		Notifier: notifier,
		Mailer:   mailer,
	}
}

func (wh *WorkerHandler) Handle(ctx context.Context, job queue.Job) error {
	switch job.Type {
	case queue.JobPushCallNotification:
		return wh.HandlePushCallNotification(ctx, job.Payload)
	case queue.JobCallRingTimeout:
		return wh.HandleRingTimeout(ctx, job.Payload)
	case queue.JobMissedCallEmail:
		return wh.HandleMissedCallEmail(ctx, job.Payload)
	default:
		return fmt.Errorf("%w: unknown job type: %s", queue.ErrNoRetry, job.Type)
	}
}

func decode(raw []byte, dst any) error {
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("%w: invalid payload: %v", queue.ErrNoRetry, err)
	}
	return nil
}

// appErrToJob turns repo failures into job errors. Client-side failures
// cannot improve on retry.
func appErrToJob(appErr *app_error.AppError) error {
	if appErr == nil {
		return nil
	}
	if appErr.Code < 500 {
		return fmt.Errorf("%w: %s", queue.ErrNoRetry, appErr.Message)
	}
	return appErr
}
