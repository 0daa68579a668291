package queue

import (
	stdjson "encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const (
	JobPushCallNotification = "push_call_notification"
	JobCallRingTimeout      = "call_ring_timeout"
	JobMissedCallEmail      = "missed_call_email"
)

const (
	PriorityLow    = 0
	PriorityNormal = 5
	PriorityHigh   = 9

	DefaultMaxRetry = 3
	DefaultJobTTL   = 24 * time.Hour
)

type Job struct {
	ID        string             `json:"id"`
	Type      string             `json:"type"`
	Payload   stdjson.RawMessage `json:"payload"`
	Priority  int                `json:"priority"`
	Retry     int                `json:"retry"`
	MaxRetry  int                `json:"max_retry"`
	ErrorMsg  string             `json:"error_msg,omitempty"`
	CreatedAt int64              `json:"created_at"`
	RunAt     int64              `json:"run_at"`
	ExpireAt  int64              `json:"expired_at"`
}

type JobOption func(*Job)

func WithPriority(p int) JobOption {
	return func(j *Job) { j.Priority = p }
}

func WithMaxRetry(n int) JobOption {
	return func(j *Job) { j.MaxRetry = n }
}

// WithDelay schedules the first attempt d from now.
func WithDelay(d time.Duration) JobOption {
	return func(j *Job) { j.RunAt = time.Now().Add(d).Unix() }
}

func WithTTL(d time.Duration) JobOption {
	return func(j *Job) { j.ExpireAt = time.Unix(j.CreatedAt, 0).Add(d).Unix() }
}

func NewJob(jobType string, payload any, opts ...JobOption) Job {
	now := time.Now().Unix()
	job := Job{
		ID:        uuid.NewString(),
		Type:      jobType,
		Payload:   MustMarshal(payload),
		Priority:  PriorityNormal,
		MaxRetry:  DefaultMaxRetry,
		CreatedAt: now,
		RunAt:     now,
		ExpireAt:  now + int64(DefaultJobTTL.Seconds()),
	}
	for _, opt := range opts {
		opt(&job)
	}
	return job
}

func MustMarshal(payload any) stdjson.RawMessage {
	b, err := json.Marshal(payload)
	if err != nil {
		return nil
	}

	return b
}

// Score orders jobs by run time first and priority second. Both parts are
// integers well inside float64 precision.
func Score(runAt int64, priority int) float64 {
	if priority < PriorityLow {
		priority = PriorityLow
	}
	if priority > PriorityHigh {
		priority = PriorityHigh
	}
	return float64(runAt*10 + int64(PriorityHigh-priority))
}

// DueScore is the highest score that may run at now.
func DueScore(now int64) float64 {
	return float64(now*10 + PriorityHigh)
}

// ErrNoRetry marks a job failure that retrying in place cannot fix. The job
// goes straight to the dead letter queue.
var ErrNoRetry = errors.New("job cannot be retried")
