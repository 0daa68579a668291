package call_service

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/xenn00/ruready-server/config"
	"github.com/xenn00/ruready-server/internal/dtos/call_dto"
	"github.com/xenn00/ruready-server/internal/dtos/ws_dto"
	"github.com/xenn00/ruready-server/internal/entity"
	app_error "github.com/xenn00/ruready-server/internal/errors"
	"github.com/xenn00/ruready-server/internal/observability/metrics"
	"github.com/xenn00/ruready-server/internal/queue"
	call_repo "github.com/xenn00/ruready-server/internal/repo/call"
	user_repo "github.com/xenn00/ruready-server/internal/repo/user"
	"github.com/xenn00/ruready-server/internal/utils/types"
	"github.com/xenn00/ruready-server/state"
	"go.mongodb.org/mongo-driver/v2/bson"
)

const (
	defaultHistoryLimit = 20
	defaultMaxDuration  = 4 * time.Hour
)

type CallService struct {
	CallRepo    call_repo.CallRepoContract
	Guard       call_repo.ActiveCallGuardContract
	UserRepo    user_repo.UserRepoContract
	Producer    queue.Producer
	Emitter     types.Emitter
	RingTimeout time.Duration
	MaxDuration time.Duration
	Now         func() time.Time
}

func NewCallService(appState *state.AppState, emitter types.Emitter) CallServiceContract {
	svc := &CallService{
		CallRepo:    call_repo.NewCallRepo(appState),
		Guard:       call_repo.NewActiveCallGuard(appState.Redis),
		UserRepo:    user_repo.NewUserRepo(appState),
		Producer:    queue.NewProducer(appState.Redis),
		Emitter:     emitter,
		MaxDuration: defaultMaxDuration,
		Now:         time.Now,
	}
	if config.Conf != nil {
		svc.RingTimeout = config.Conf.CALL.RingTimeout
		if config.Conf.CALL.MaxDuration > 0 {
			svc.MaxDuration = config.Conf.CALL.MaxDuration
		}
	}
	return svc
}

func (s *CallService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *CallService) emitter() types.Emitter {
	if s.Emitter == nil {
		return types.NoopEmitter{}
	}
	return s.Emitter
}

// snapshot falls back to a bare uid when the profile row is missing.
func (s *CallService) snapshot(ctx context.Context, uid string, mustExist bool) (entity.Profile, *app_error.AppError) {
	user, err := s.UserRepo.FindByID(ctx, uid)
	if err != nil {
		if !mustExist && app_error.Is(err, http.StatusNotFound) {
			return entity.Profile{UID: uid}, nil
		}
		return entity.Profile{}, err
	}
	return entity.Profile{UID: user.ID, DisplayName: user.DisplayName, PhotoURL: user.PhotoURL}, nil
}

func (s *CallService) Initiate(ctx context.Context, callerID string, req call_dto.InitiateCallRequest) (*call_dto.CallResponse, *app_error.AppError) {
	callType := entity.CallType(req.Type)
	if callType != entity.CallTypeAudio && callType != entity.CallTypeVideo {
		return nil, app_error.NewAppError(http.StatusBadRequest, "type must be one of: audio video", "type")
	}
	if req.ReceiverID == "" {
		return nil, app_error.NewAppError(http.StatusBadRequest, "receiverId is required", "receiverId")
	}
	if req.ReceiverID == callerID {
		return nil, app_error.NewAppError(http.StatusBadRequest, "You cannot call yourself", "receiverId")
	}

	receiver, err := s.snapshot(ctx, req.ReceiverID, true)
	if err != nil {
		return nil, err
	}
	caller, err := s.snapshot(ctx, callerID, false)
	if err != nil {
		return nil, err
	}

	callID := "call_" + uuid.NewString()
	acquired, err := s.Guard.Acquire(ctx, callID, s.MaxDuration, callerID, req.ReceiverID)
	if err != nil {
		return nil, err
	}
	if !acquired {
		return nil, app_error.NewAppError(http.StatusConflict, "participant already in an active call", "receiverId")
	}

	now := s.now()
	logID := bson.NewObjectID()
	call := &entity.Call{
		ID:           callID,
		Type:         callType,
		Active:       true,
		PickedUp:     false,
		CallerID:     callerID,
		ReceiverID:   req.ReceiverID,
		Participants: []string{callerID, req.ReceiverID},
		Channel:      callID,
		Caller:       caller,
		Receiver:     receiver,
		LogID:        logID.Hex(),
		StartedAt:    now,
	}
	if err := s.CallRepo.CreateCall(ctx, call); err != nil {
		s.release(ctx, call)
		return nil, err
	}

	callLog := &entity.CallLog{
		ID:            logID,
		CallID:        callID,
		CallerID:      callerID,
		ReceiverID:    req.ReceiverID,
		Participants:  call.Participants,
		Type:          callType,
		Status:        entity.CallLogOngoing,
		StartTime:     now,
		CallerName:    caller.DisplayName,
		ReceiverName:  receiver.DisplayName,
		CallerPhoto:   caller.PhotoURL,
		ReceiverPhoto: receiver.PhotoURL,
	}
	if err := s.CallRepo.CreateLog(ctx, callLog); err != nil {
		// compensate so the pair is not locked by a call nobody can see in history
		if _, endErr := s.CallRepo.MarkEnded(ctx, callID, now); endErr != nil {
			log.Error().Str("call_id", callID).Str("error", endErr.Message).Msg("failed to roll back call after log insert failure")
		}
		s.release(ctx, call)
		return nil, err
	}

	resp := call_dto.ToCallResponse(call)
	s.emitter().EmitToUser(ctx, call.ReceiverID, ws_dto.EventCallIncoming, resp)
	s.emitter().EmitToUser(ctx, call.CallerID, ws_dto.EventCallRinging, resp)

	s.enqueue(ctx, queue.NewJob(queue.JobPushCallNotification, queue.PushCallPayload{
		CallID:      callID,
		ReceiverID:  call.ReceiverID,
		CallerName:  caller.DisplayName,
		ChannelName: call.Channel,
		CallType:    string(callType),
	}, queue.WithPriority(queue.PriorityHigh), queue.WithTTL(time.Minute+s.RingTimeout)))

	if s.RingTimeout > 0 {
		s.enqueue(ctx, queue.NewJob(queue.JobCallRingTimeout, queue.RingTimeoutPayload{CallID: callID},
			queue.WithDelay(s.RingTimeout), queue.WithPriority(queue.PriorityHigh)))
	}

	metrics.CallsStartedTotal.WithLabelValues(string(callType)).Inc()
	log.Info().Str("call_id", callID).Str("caller_id", callerID).Str("receiver_id", call.ReceiverID).Str("type", string(callType)).Msg("call initiated")

	return &resp, nil
}

func (s *CallService) Active(ctx context.Context, uid string) (*call_dto.CallResponse, *app_error.AppError) {
	call, err := s.CallRepo.FindActiveForUser(ctx, uid)
	if err != nil {
		return nil, err
	}
	resp := call_dto.ToCallResponse(call)
	return &resp, nil
}

func (s *CallService) Accept(ctx context.Context, uid, callID string) (*call_dto.CallResponse, *app_error.AppError) {
	now := s.now()
	call, err := s.CallRepo.MarkAnswered(ctx, callID, uid, now)
	if err != nil {
		return nil, err
	}

	if call == nil {
		existing, err := s.CallRepo.FindCall(ctx, callID)
		if err != nil {
			return nil, err
		}
		if existing.ReceiverID != uid {
			return nil, app_error.NewAppError(http.StatusForbidden, "Only the receiver can accept this call", "callId")
		}
		return nil, app_error.NewAppError(http.StatusConflict, "Call is no longer ringing", "callId")
	}

	if err := s.CallRepo.UpdateLogAnswered(ctx, callID, now); err != nil {
		log.Error().Str("call_id", callID).Str("error", err.Message).Msg("call answered but log not updated")
	}

	resp := call_dto.ToCallResponse(call)
	s.emitter().EmitToUser(ctx, call.CallerID, ws_dto.EventCallAccepted, resp)
	s.emitter().EmitToUser(ctx, call.ReceiverID, ws_dto.EventCallAccepted, resp)

	log.Info().Str("call_id", callID).Str("uid", uid).Msg("call accepted")
	return &resp, nil
}

func normalizeEndStatus(status string) (string, bool) {
	switch status {
	case "":
		return entity.CallLogCompleted, true
	case entity.CallLogCompleted, entity.CallLogRejected, entity.CallLogCancelled:
		return status, true
	default:
		return "", false
	}
}

// End is allowed any number of times. Each call rewrites the status, so the
// log reflects the last request, but the duration and log end time stay
// pinned to the first end.
func (s *CallService) End(ctx context.Context, uid, callID string, req call_dto.EndCallRequest) (*call_dto.EndCallResponse, *app_error.AppError) {
	status, ok := normalizeEndStatus(req.Status)
	if !ok {
		return nil, app_error.NewAppError(http.StatusBadRequest, "status must be one of: completed rejected cancelled", "status")
	}

	existing, err := s.CallRepo.FindCall(ctx, callID)
	if err != nil {
		return nil, err
	}
	if !existing.HasParticipant(uid) {
		return nil, app_error.NewAppError(http.StatusForbidden, "You are not a participant of this call", "callId")
	}

	call, err := s.CallRepo.MarkEnded(ctx, callID, s.now())
	if err != nil {
		return nil, err
	}
	if !existing.Active && existing.EndedAt != nil {
		call.EndedAt = existing.EndedAt
	}

	return s.finish(ctx, call, existing.Active, status, uid)
}

func (s *CallService) Timeout(ctx context.Context, callID string) *app_error.AppError {
	call, err := s.CallRepo.MarkEndedIfRinging(ctx, callID, s.now())
	if err != nil {
		return err
	}
	if call == nil {
		return nil
	}

	log.Info().Str("call_id", callID).Msg("call not answered in time")
	_, err = s.finish(ctx, call, true, entity.CallLogMissed, "")
	return err
}

// finish runs the shared tail of every end path once the call record is
// already inactive.
func (s *CallService) finish(ctx context.Context, call *entity.Call, wasActive bool, status, endedBy string) (*call_dto.EndCallResponse, *app_error.AppError) {
	endedAt := s.now()
	if call.EndedAt != nil {
		endedAt = *call.EndedAt
	}

	var duration int64
	if call.AnsweredAt != nil {
		duration = int64(endedAt.Sub(*call.AnsweredAt).Seconds())
		if duration < 0 {
			duration = 0
		}
	}

	s.release(ctx, call)
	if err := s.CallRepo.UpdateLogEnded(ctx, call.ID, status, endedAt, duration); err != nil {
		return nil, err
	}

	resp := call_dto.EndCallResponse{CallID: call.ID, Status: status, Duration: duration}
	event := struct {
		call_dto.EndCallResponse
		EndedBy string `json:"endedBy,omitempty"`
	}{resp, endedBy}
	s.emitter().EmitToUser(ctx, call.CallerID, ws_dto.EventCallEnded, event)
	s.emitter().EmitToUser(ctx, call.ReceiverID, ws_dto.EventCallEnded, event)

	if wasActive && !call.PickedUp && (status == entity.CallLogMissed || status == entity.CallLogCancelled) {
		s.enqueue(ctx, queue.NewJob(queue.JobMissedCallEmail, queue.MissedCallPayload{
			CallID:     call.ID,
			ReceiverID: call.ReceiverID,
			CallerName: call.Caller.DisplayName,
			CallType:   string(call.Type),
			At:         call.StartedAt,
		}, queue.WithPriority(queue.PriorityLow)))
	}

	metrics.CallsEndedTotal.WithLabelValues(status).Inc()
	log.Info().Str("call_id", call.ID).Str("status", status).Int64("duration", duration).Str("ended_by", endedBy).Msg("call ended")
	return &resp, nil
}

func (s *CallService) RelayMedia(ctx context.Context, uid, callID string, req call_dto.MediaStateRequest) *app_error.AppError {
	call, err := s.CallRepo.FindCall(ctx, callID)
	if err != nil {
		return err
	}
	if !call.HasParticipant(uid) {
		return app_error.NewAppError(http.StatusForbidden, "You are not a participant of this call", "callId")
	}
	if !call.Active {
		return app_error.NewAppError(http.StatusConflict, "Call has ended", "callId")
	}

	s.emitter().EmitToUser(ctx, call.Peer(uid), ws_dto.EventCallMedia, call_dto.MediaStateEvent{
		CallID:            callID,
		From:              uid,
		MediaStateRequest: req,
	})
	return nil
}

func (s *CallService) History(ctx context.Context, uid string, query call_dto.CallLogsQuery) (*call_dto.CallLogsResponse, *app_error.AppError) {
	limit := query.Limit
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	if limit > 100 {
		limit = 100
	}

	var before *bson.ObjectID
	if query.Before != "" {
		id, err := bson.ObjectIDFromHex(query.Before)
		if err != nil {
			return nil, app_error.NewAppError(http.StatusBadRequest, "invalid before cursor", "before")
		}
		before = &id
	}

	logs, err := s.CallRepo.ListLogs(ctx, uid, limit, before)
	if err != nil {
		return nil, err
	}

	resp := &call_dto.CallLogsResponse{Logs: make([]call_dto.CallLogResponse, 0, len(logs))}
	for _, l := range logs {
		resp.Logs = append(resp.Logs, call_dto.ToCallLogResponse(l))
	}
	if len(logs) == limit {
		resp.NextCursor = logs[len(logs)-1].ID.Hex()
	}
	return resp, nil
}

func (s *CallService) release(ctx context.Context, call *entity.Call) {
	if err := s.Guard.Release(ctx, call.ID, call.CallerID, call.ReceiverID); err != nil {
		log.Error().Str("call_id", call.ID).Str("error", err.Message).Msg("failed to release active call guard")
	}
}

// enqueue failures never fail the request; the call itself already exists.
func (s *CallService) enqueue(ctx context.Context, job queue.Job) {
	if s.Producer == nil {
		return
	}
	if err := s.Producer.Enqueue(ctx, job); err != nil {
		log.Error().Err(err).Str("job_type", job.Type).Str("job_id", job.ID).Msg("failed to enqueue job")
	}
}
