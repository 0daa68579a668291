package worker_handler

import (
	"context"
	"net/http"

	"github.com/rs/zerolog/log"
	app_error "github.com/xenn00/ruready-server/internal/errors"
	"github.com/xenn00/ruready-server/internal/notify"
	"github.com/xenn00/ruready-server/internal/queue"
)

func (wh *WorkerHandler) HandleMissedCallEmail(ctx context.Context, raw []byte) error {
	var payload queue.MissedCallPayload
	if err := decode(raw, &payload); err != nil {
		return err
	}

	receiver, appErr := wh.Users.FindByID(ctx, payload.ReceiverID)
	if app_error.Is(appErr, http.StatusNotFound) {
		return nil
	}
	if appErr != nil {
		return appErrToJob(appErr)
	}
	if receiver.Email == "" {
		log.Debug().Str("call_id", payload.CallID).Msg("missed call email skipped, receiver has no email")
		return nil
	}

	if err := wh.Mailer.SendMissedCall(ctx, notify.MissedCallMail{
		To:         receiver.Email,
		CallerName: payload.CallerName,
		CallType:   payload.CallType,
		At:         payload.At,
	}); err != nil {
		return err
	}

	log.Info().Str("call_id", payload.CallID).Str("receiver_id", payload.ReceiverID).Msg("missed call email sent")
	return nil
}
