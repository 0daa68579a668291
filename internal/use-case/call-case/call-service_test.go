package call_service

import (
	"context"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xenn00/ruready-server/internal/dtos/call_dto"
	"github.com/xenn00/ruready-server/internal/dtos/ws_dto"
	"github.com/xenn00/ruready-server/internal/entity"
	"github.com/xenn00/ruready-server/internal/queue"
	call_repo "github.com/xenn00/ruready-server/internal/repo/call"
)

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type harness struct {
	svc      *CallService
	repo     *fakeCallRepo
	guard    call_repo.ActiveCallGuardContract
	producer *fakeProducer
	emitter  *fakeEmitter
	clock    *clock
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	h := &harness{
		repo:     newFakeCallRepo(),
		guard:    call_repo.NewActiveCallGuard(rdb),
		producer: &fakeProducer{},
		emitter:  &fakeEmitter{},
		clock:    &clock{t: time.Date(2025, 6, 1, 20, 0, 0, 0, time.UTC)},
	}
	h.svc = &CallService{
		CallRepo: h.repo,
		Guard:    h.guard,
		UserRepo: &fakeUsers{users: map[string]entity.User{
			"alice": {ID: "alice", DisplayName: "Alice", PhotoURL: "https://img/alice.png", Email: "alice@example.com"},
			"bob":   {ID: "bob", DisplayName: "Bob", Email: "bob@example.com"},
			"carol": {ID: "carol", DisplayName: "Carol"},
		}},
		Producer:    h.producer,
		Emitter:     h.emitter,
		RingTimeout: 45 * time.Second,
		MaxDuration: time.Hour,
		Now:         h.clock.Now,
	}
	return h
}

func (h *harness) start(t *testing.T, caller, receiver string) *call_dto.CallResponse {
	t.Helper()
	resp, appErr := h.svc.Initiate(context.Background(), caller, call_dto.InitiateCallRequest{ReceiverID: receiver, Type: "video"})
	require.Nil(t, appErr)
	return resp
}

func TestInitiate_CreatesRingingCall(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	resp := h.start(t, "alice", "bob")

	assert.Contains(t, resp.CallID, "call_")
	assert.Equal(t, resp.CallID, resp.Channel)
	assert.Equal(t, string(entity.CallStateRinging), resp.State)
	assert.Equal(t, "Alice", resp.Caller.DisplayName)
	assert.Equal(t, "Bob", resp.Receiver.DisplayName)

	l := h.repo.log(resp.CallID)
	assert.Equal(t, entity.CallLogOngoing, l.Status)
	assert.Equal(t, "Alice", l.CallerName)

	assert.Equal(t, []string{ws_dto.EventCallIncoming}, h.emitter.eventsFor("bob"))
	assert.Equal(t, []string{ws_dto.EventCallRinging}, h.emitter.eventsFor("alice"))
	assert.Equal(t, []string{queue.JobPushCallNotification, queue.JobCallRingTimeout}, h.producer.types())

	current, appErr := h.guard.Current(ctx, "bob")
	require.Nil(t, appErr)
	assert.Equal(t, resp.CallID, current)

	active, appErr := h.svc.Active(ctx, "bob")
	require.Nil(t, appErr)
	assert.Equal(t, resp.CallID, active.CallID)
}

func TestInitiate_Validation(t *testing.T) {
	h := newHarness(t)

	tests := []struct {
		name string
		req  call_dto.InitiateCallRequest
		code int
	}{
		{"bad type", call_dto.InitiateCallRequest{ReceiverID: "bob", Type: "hologram"}, http.StatusBadRequest},
		{"self call", call_dto.InitiateCallRequest{ReceiverID: "alice", Type: "audio"}, http.StatusBadRequest},
		{"missing receiver", call_dto.InitiateCallRequest{Type: "audio"}, http.StatusBadRequest},
		{"unknown receiver", call_dto.InitiateCallRequest{ReceiverID: "zed", Type: "audio"}, http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, appErr := h.svc.Initiate(context.Background(), "alice", tt.req)
			require.NotNil(t, appErr)
			assert.Equal(t, tt.code, appErr.Code)
		})
	}
	assert.Empty(t, h.repo.calls)
}

func TestInitiate_BusyParticipantConflict(t *testing.T) {
	h := newHarness(t)
	h.start(t, "alice", "bob")

	_, appErr := h.svc.Initiate(context.Background(), "carol", call_dto.InitiateCallRequest{ReceiverID: "bob", Type: "audio"})
	require.NotNil(t, appErr)
	assert.Equal(t, http.StatusConflict, appErr.Code)
	assert.Len(t, h.repo.calls, 1)

	current, _ := h.guard.Current(context.Background(), "carol")
	assert.Empty(t, current, "failed acquire must not lock the caller")
}

func TestInitiate_ConcurrentSingleWinner(t *testing.T) {
	h := newHarness(t)

	var wg sync.WaitGroup
	results := make(chan int, 2)
	for _, caller := range []string{"alice", "carol"} {
		wg.Add(1)
		go func(caller string) {
			defer wg.Done()
			_, appErr := h.svc.Initiate(context.Background(), caller, call_dto.InitiateCallRequest{ReceiverID: "bob", Type: "audio"})
			if appErr != nil {
				results <- appErr.Code
				return
			}
			results <- http.StatusOK
		}(caller)
	}
	wg.Wait()
	close(results)

	var codes []int
	for c := range results {
		codes = append(codes, c)
	}
	assert.ElementsMatch(t, []int{http.StatusOK, http.StatusConflict}, codes)
}

func TestInitiate_LogFailureCompensates(t *testing.T) {
	h := newHarness(t)
	h.repo.failLogIns = true

	_, appErr := h.svc.Initiate(context.Background(), "alice", call_dto.InitiateCallRequest{ReceiverID: "bob", Type: "audio"})
	require.NotNil(t, appErr)
	assert.Equal(t, http.StatusInternalServerError, appErr.Code)

	for _, c := range h.repo.calls {
		assert.False(t, c.Active)
	}
	current, _ := h.guard.Current(context.Background(), "alice")
	assert.Empty(t, current)
	assert.Empty(t, h.producer.types())
}

func TestAccept(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	call := h.start(t, "alice", "bob")

	_, appErr := h.svc.Accept(ctx, "alice", call.CallID)
	require.NotNil(t, appErr)
	assert.Equal(t, http.StatusForbidden, appErr.Code)

	resp, appErr := h.svc.Accept(ctx, "bob", call.CallID)
	require.Nil(t, appErr)
	assert.True(t, resp.PickedUp)
	assert.Equal(t, string(entity.CallStateActive), resp.State)
	assert.Equal(t, entity.CallLogAnswered, h.repo.log(call.CallID).Status)
	assert.Contains(t, h.emitter.eventsFor("alice"), ws_dto.EventCallAccepted)
	assert.Contains(t, h.emitter.eventsFor("bob"), ws_dto.EventCallAccepted)

	_, appErr = h.svc.Accept(ctx, "bob", call.CallID)
	require.NotNil(t, appErr)
	assert.Equal(t, http.StatusConflict, appErr.Code)

	_, appErr = h.svc.Accept(ctx, "bob", "call_missing")
	require.NotNil(t, appErr)
	assert.Equal(t, http.StatusNotFound, appErr.Code)
}

func TestEnd_ComputesDurationFromAnswer(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	call := h.start(t, "alice", "bob")

	h.clock.Advance(10 * time.Second)
	_, appErr := h.svc.Accept(ctx, "bob", call.CallID)
	require.Nil(t, appErr)

	h.clock.Advance(95 * time.Second)
	resp, appErr := h.svc.End(ctx, "alice", call.CallID, call_dto.EndCallRequest{})
	require.Nil(t, appErr)
	assert.Equal(t, entity.CallLogCompleted, resp.Status)
	assert.Equal(t, int64(95), resp.Duration)

	l := h.repo.log(call.CallID)
	assert.Equal(t, entity.CallLogCompleted, l.Status)
	assert.Equal(t, int64(95), l.Duration)
	require.NotNil(t, l.EndTime)

	current, _ := h.guard.Current(ctx, "alice")
	assert.Empty(t, current)
	assert.NotContains(t, h.producer.types(), queue.JobMissedCallEmail)
	assert.Contains(t, h.emitter.eventsFor("bob"), ws_dto.EventCallEnded)

	_, appErr = h.svc.Active(ctx, "alice")
	require.NotNil(t, appErr)
	assert.Equal(t, http.StatusNotFound, appErr.Code)
}

func TestEnd_TwiceLastWriteWins(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	call := h.start(t, "alice", "bob")

	_, appErr := h.svc.End(ctx, "alice", call.CallID, call_dto.EndCallRequest{Status: entity.CallLogCancelled})
	require.Nil(t, appErr)

	h.clock.Advance(time.Second)
	resp, appErr := h.svc.End(ctx, "bob", call.CallID, call_dto.EndCallRequest{Status: entity.CallLogRejected})
	require.Nil(t, appErr)
	assert.Equal(t, entity.CallLogRejected, resp.Status)

	l := h.repo.log(call.CallID)
	assert.Equal(t, entity.CallLogRejected, l.Status)
	assert.Equal(t, int64(0), l.Duration)

	missed := 0
	for _, typ := range h.producer.types() {
		if typ == queue.JobMissedCallEmail {
			missed++
		}
	}
	assert.Equal(t, 1, missed, "missed-call email is only scheduled by the first end")
}

func TestEnd_RepeatKeepsFirstDuration(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	call := h.start(t, "alice", "bob")

	_, appErr := h.svc.Accept(ctx, "bob", call.CallID)
	require.Nil(t, appErr)

	h.clock.Advance(60 * time.Second)
	firstEnd := h.clock.Now()
	resp, appErr := h.svc.End(ctx, "alice", call.CallID, call_dto.EndCallRequest{})
	require.Nil(t, appErr)
	assert.Equal(t, int64(60), resp.Duration)

	h.clock.Advance(2 * time.Hour)
	resp, appErr = h.svc.End(ctx, "bob", call.CallID, call_dto.EndCallRequest{Status: entity.CallLogRejected})
	require.Nil(t, appErr)
	assert.Equal(t, entity.CallLogRejected, resp.Status)
	assert.Equal(t, int64(60), resp.Duration)

	l := h.repo.log(call.CallID)
	assert.Equal(t, entity.CallLogRejected, l.Status)
	assert.Equal(t, int64(60), l.Duration)
	require.NotNil(t, l.EndTime)
	assert.True(t, firstEnd.Equal(*l.EndTime))
}

func TestAccept_EndBeforeLogAnsweredKeepsEndedStatus(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	call := h.start(t, "alice", "bob")

	h.repo.onLogAnswered = func() {
		_, appErr := h.svc.End(ctx, "alice", call.CallID, call_dto.EndCallRequest{})
		require.Nil(t, appErr)
	}

	_, appErr := h.svc.Accept(ctx, "bob", call.CallID)
	require.Nil(t, appErr)

	l := h.repo.log(call.CallID)
	assert.Equal(t, entity.CallLogCompleted, l.Status)
	assert.Nil(t, l.AnsweredAt)
	require.NotNil(t, l.EndTime)
}

func TestEnd_Rejections(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	call := h.start(t, "alice", "bob")

	_, appErr := h.svc.End(ctx, "carol", call.CallID, call_dto.EndCallRequest{})
	require.NotNil(t, appErr)
	assert.Equal(t, http.StatusForbidden, appErr.Code)

	_, appErr = h.svc.End(ctx, "alice", call.CallID, call_dto.EndCallRequest{Status: "missed"})
	require.NotNil(t, appErr)
	assert.Equal(t, http.StatusBadRequest, appErr.Code)

	_, appErr = h.svc.End(ctx, "alice", "call_missing", call_dto.EndCallRequest{})
	require.NotNil(t, appErr)
	assert.Equal(t, http.StatusNotFound, appErr.Code)
}

func TestEnd_RejectedDoesNotSendMissedEmail(t *testing.T) {
	h := newHarness(t)
	call := h.start(t, "alice", "bob")

	_, appErr := h.svc.End(context.Background(), "bob", call.CallID, call_dto.EndCallRequest{Status: entity.CallLogRejected})
	require.Nil(t, appErr)
	assert.NotContains(t, h.producer.types(), queue.JobMissedCallEmail)
}

func TestTimeout(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	ringing := h.start(t, "alice", "bob")
	require.Nil(t, h.svc.Timeout(ctx, ringing.CallID))
	assert.Equal(t, entity.CallLogMissed, h.repo.log(ringing.CallID).Status)
	assert.Contains(t, h.producer.types(), queue.JobMissedCallEmail)

	answered := h.start(t, "alice", "bob")
	_, appErr := h.svc.Accept(ctx, "bob", answered.CallID)
	require.Nil(t, appErr)
	require.Nil(t, h.svc.Timeout(ctx, answered.CallID))
	assert.Equal(t, entity.CallLogAnswered, h.repo.log(answered.CallID).Status)

	require.Nil(t, h.svc.Timeout(ctx, "call_missing"))
}

func TestRelayMedia(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	call := h.start(t, "alice", "bob")
	muted := true

	require.Nil(t, h.svc.RelayMedia(ctx, "alice", call.CallID, call_dto.MediaStateRequest{Muted: &muted}))
	assert.Contains(t, h.emitter.eventsFor("bob"), ws_dto.EventCallMedia)
	assert.NotContains(t, h.emitter.eventsFor("alice"), ws_dto.EventCallMedia)

	appErr := h.svc.RelayMedia(ctx, "carol", call.CallID, call_dto.MediaStateRequest{})
	require.NotNil(t, appErr)
	assert.Equal(t, http.StatusForbidden, appErr.Code)

	_, appErr = h.svc.End(ctx, "alice", call.CallID, call_dto.EndCallRequest{})
	require.Nil(t, appErr)
	appErr = h.svc.RelayMedia(ctx, "alice", call.CallID, call_dto.MediaStateRequest{})
	require.NotNil(t, appErr)
	assert.Equal(t, http.StatusConflict, appErr.Code)
}

func TestHistory_Pagination(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		call := h.start(t, "alice", "bob")
		_, appErr := h.svc.End(ctx, "alice", call.CallID, call_dto.EndCallRequest{})
		require.Nil(t, appErr)
	}

	page, appErr := h.svc.History(ctx, "bob", call_dto.CallLogsQuery{Limit: 2})
	require.Nil(t, appErr)
	require.Len(t, page.Logs, 2)
	require.NotEmpty(t, page.NextCursor)

	rest, appErr := h.svc.History(ctx, "bob", call_dto.CallLogsQuery{Limit: 2, Before: page.NextCursor})
	require.Nil(t, appErr)
	assert.Len(t, rest.Logs, 1)
	assert.Empty(t, rest.NextCursor)

	_, appErr = h.svc.History(ctx, "bob", call_dto.CallLogsQuery{Before: "zzz"})
	require.NotNil(t, appErr)
	assert.Equal(t, http.StatusBadRequest, appErr.Code)
}
