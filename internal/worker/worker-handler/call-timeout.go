package worker_handler

import (
	"context"

	"github.com/xenn00/ruready-server/internal/queue"
)

func (wh *WorkerHandler) HandleRingTimeout(ctx context.Context, raw []byte) error {
	var payload queue.RingTimeoutPayload
	if err := decode(raw, &payload); err != nil {
		return err
	}
	return appErrToJob(wh.Calls.Timeout(ctx, payload.CallID))
}
