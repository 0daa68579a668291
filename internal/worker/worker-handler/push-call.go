package worker_handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"
	app_error "github.com/xenn00/ruready-server/internal/errors"
	"github.com/xenn00/ruready-server/internal/notify"
	"github.com/xenn00/ruready-server/internal/observability/metrics"
	"github.com/xenn00/ruready-server/internal/queue"
)

// HandlePushCallNotification wakes the receiver's device. Missing or
// rejected tokens are logged and dropped, the call itself is never affected.
func (wh *WorkerHandler) HandlePushCallNotification(ctx context.Context, raw []byte) error {
	var payload queue.PushCallPayload
	if err := decode(raw, &payload); err != nil {
		return err
	}

	receiver, appErr := wh.Users.FindByID(ctx, payload.ReceiverID)
	if app_error.Is(appErr, http.StatusNotFound) {
		log.Warn().Str("call_id", payload.CallID).Str("receiver_id", payload.ReceiverID).Msg("push skipped, receiver not found")
		metrics.PushNotificationsTotal.WithLabelValues("skipped").Inc()
		return nil
	}
	if appErr != nil {
		return appErrToJob(appErr)
	}

	if receiver.PushToken == "" {
		log.Info().Str("call_id", payload.CallID).Str("receiver_id", payload.ReceiverID).Msg("push skipped, receiver has no push token")
		metrics.PushNotificationsTotal.WithLabelValues("skipped").Inc()
		return nil
	}

	err := wh.Notifier.NotifyIncomingCall(ctx, notify.CallNotification{
		Token:       receiver.PushToken,
		CallerName:  payload.CallerName,
		ChannelName: payload.ChannelName,
		CallType:    payload.CallType,
	})
	switch {
	case err == nil:
		metrics.PushNotificationsTotal.WithLabelValues("sent").Inc()
		log.Info().Str("call_id", payload.CallID).Str("receiver_id", payload.ReceiverID).Msg("incoming call push sent")
		return nil
	case errors.Is(err, notify.ErrPermanent):
		metrics.PushNotificationsTotal.WithLabelValues("rejected").Inc()
		log.Warn().Err(err).Str("call_id", payload.CallID).Str("receiver_id", payload.ReceiverID).Msg("push token rejected, not retrying")
		return nil
	default:
		metrics.PushNotificationsTotal.WithLabelValues("failed").Inc()
		log.Error().Err(err).Str("call_id", payload.CallID).Str("receiver_id", payload.ReceiverID).Msg("incoming call push failed")
		return err
	}
}
