package call_service

import (
	"context"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/xenn00/ruready-server/internal/entity"
	app_error "github.com/xenn00/ruready-server/internal/errors"
	"github.com/xenn00/ruready-server/internal/queue"
	"go.mongodb.org/mongo-driver/v2/bson"
)

type fakeCallRepo struct {
	mu         sync.Mutex
	calls      map[string]*entity.Call
	logs       map[string]*entity.CallLog
	failLogIns bool
	// onLogAnswered runs before the answer reaches the log, outside the lock.
	onLogAnswered func()
}

func newFakeCallRepo() *fakeCallRepo {
	return &fakeCallRepo{calls: map[string]*entity.Call{}, logs: map[string]*entity.CallLog{}}
}

func copyCall(c *entity.Call) *entity.Call {
	cp := *c
	return &cp
}

func (f *fakeCallRepo) CreateCall(_ context.Context, call *entity.Call) *app_error.AppError {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[call.ID] = copyCall(call)
	return nil
}

func (f *fakeCallRepo) CreateLog(_ context.Context, l *entity.CallLog) *app_error.AppError {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failLogIns {
		return app_error.NewAppError(http.StatusInternalServerError, "Failed to start call", "mongo")
	}
	if l.ID.IsZero() {
		l.ID = bson.NewObjectID()
	}
	cp := *l
	f.logs[l.CallID] = &cp
	return nil
}

func (f *fakeCallRepo) FindCall(_ context.Context, callID string) (*entity.Call, *app_error.AppError) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.calls[callID]
	if !ok {
		return nil, app_error.NewAppError(http.StatusNotFound, "Call not found", "callId")
	}
	return copyCall(c), nil
}

func (f *fakeCallRepo) FindActiveForUser(_ context.Context, uid string) (*entity.Call, *app_error.AppError) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.calls {
		if c.Active && c.HasParticipant(uid) {
			return copyCall(c), nil
		}
	}
	return nil, app_error.NewAppError(http.StatusNotFound, "No active call", "call")
}

func (f *fakeCallRepo) MarkAnswered(_ context.Context, callID, receiverID string, at time.Time) (*entity.Call, *app_error.AppError) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.calls[callID]
	if !ok || !c.Active || c.PickedUp || c.ReceiverID != receiverID {
		return nil, nil
	}
	c.PickedUp = true
	c.AnsweredAt = &at
	return copyCall(c), nil
}

func (f *fakeCallRepo) MarkEnded(_ context.Context, callID string, at time.Time) (*entity.Call, *app_error.AppError) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.calls[callID]
	if !ok {
		return nil, app_error.NewAppError(http.StatusNotFound, "Call not found", "callId")
	}
	c.Active = false
	c.EndedAt = &at
	return copyCall(c), nil
}

func (f *fakeCallRepo) MarkEndedIfRinging(_ context.Context, callID string, at time.Time) (*entity.Call, *app_error.AppError) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.calls[callID]
	if !ok || !c.Active || c.PickedUp {
		return nil, nil
	}
	c.Active = false
	c.EndedAt = &at
	return copyCall(c), nil
}

func (f *fakeCallRepo) UpdateLogAnswered(_ context.Context, callID string, at time.Time) *app_error.AppError {
	if hook := f.onLogAnswered; hook != nil {
		f.onLogAnswered = nil
		hook()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if l, ok := f.logs[callID]; ok && l.Status == entity.CallLogOngoing {
		l.Status = entity.CallLogAnswered
		l.AnsweredAt = &at
	}
	return nil
}

func (f *fakeCallRepo) UpdateLogEnded(_ context.Context, callID, status string, at time.Time, duration int64) *app_error.AppError {
	f.mu.Lock()
	defer f.mu.Unlock()
	if l, ok := f.logs[callID]; ok {
		l.Status = status
		l.EndTime = &at
		l.Duration = duration
	}
	return nil
}

func (f *fakeCallRepo) ListLogs(_ context.Context, uid string, limit int, before *bson.ObjectID) ([]*entity.CallLog, *app_error.AppError) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*entity.CallLog
	for _, l := range f.logs {
		if l.CallerID != uid && l.ReceiverID != uid {
			continue
		}
		if before != nil && l.ID.Hex() >= before.Hex() {
			continue
		}
		cp := *l
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID.Hex() > out[j].ID.Hex() })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeCallRepo) log(callID string) entity.CallLog {
	f.mu.Lock()
	defer f.mu.Unlock()
	return *f.logs[callID]
}

type fakeUsers struct {
	users map[string]entity.User
}

func (f *fakeUsers) UpsertProfile(context.Context, entity.User) (*entity.User, *app_error.AppError) {
	return nil, nil
}

func (f *fakeUsers) FindByID(_ context.Context, uid string) (*entity.User, *app_error.AppError) {
	u, ok := f.users[uid]
	if !ok {
		return nil, app_error.NewAppError(http.StatusNotFound, "User not found", "user-id")
	}
	return &u, nil
}

func (f *fakeUsers) FindManyByIDs(context.Context, []string) ([]entity.User, *app_error.AppError) {
	return nil, nil
}

func (f *fakeUsers) SetPushToken(context.Context, string, string, string) *app_error.AppError {
	return nil
}

func (f *fakeUsers) SetPresence(context.Context, string, bool, time.Time) *app_error.AppError {
	return nil
}

func (f *fakeUsers) IsAdmin(context.Context, string) (bool, *app_error.AppError) {
	return false, nil
}

type fakeProducer struct {
	mu   sync.Mutex
	jobs []queue.Job
}

func (f *fakeProducer) Enqueue(_ context.Context, job queue.Job) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.jobs = append(f.jobs, job)
	return nil
}

func (f *fakeProducer) types() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.jobs))
	for _, j := range f.jobs {
		out = append(out, j.Type)
	}
	return out
}

type emittedEvent struct {
	uid   string
	event string
	data  any
}

type fakeEmitter struct {
	mu     sync.Mutex
	events []emittedEvent
}

func (f *fakeEmitter) EmitToUser(_ context.Context, uid, event string, data any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, emittedEvent{uid, event, data})
}

func (f *fakeEmitter) Broadcast(_ context.Context, event string, data any) {
	f.EmitToUser(context.Background(), "*", event, data)
}

func (f *fakeEmitter) eventsFor(uid string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, e := range f.events {
		if e.uid == uid {
			out = append(out, e.event)
		}
	}
	return out
}
