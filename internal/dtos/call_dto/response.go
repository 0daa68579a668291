package call_dto

import (
	"time"

	"github.com/xenn00/ruready-server/internal/entity"
)

type CallResponse struct {
	CallID     string         `json:"callId"`
	Type       string         `json:"type"`
	State      string         `json:"state"`
	Active     bool           `json:"active"`
	PickedUp   bool           `json:"pickedUp"`
	Channel    string         `json:"channel"`
	Caller     entity.Profile `json:"caller"`
	Receiver   entity.Profile `json:"receiver"`
	StartedAt  time.Time      `json:"startedAt"`
	AnsweredAt *time.Time     `json:"answeredAt,omitempty"`
	EndedAt    *time.Time     `json:"endedAt,omitempty"`
}

type EndCallResponse struct {
	CallID   string `json:"callId"`
	Status   string `json:"status"`
	Duration int64  `json:"duration"`
}

type CallLogResponse struct {
	ID            string     `json:"id"`
	CallID        string     `json:"callId"`
	CallerID      string     `json:"callerId"`
	ReceiverID    string     `json:"receiverId"`
	Type          string     `json:"type"`
	Status        string     `json:"status"`
	StartTime     time.Time  `json:"startTime"`
	EndTime       *time.Time `json:"endTime"`
	Duration      int64      `json:"duration"`
	CallerName    string     `json:"callerName"`
	ReceiverName  string     `json:"receiverName"`
	CallerPhoto   string     `json:"callerPhoto"`
	ReceiverPhoto string     `json:"receiverPhoto"`
}

type CallLogsResponse struct {
	Logs       []CallLogResponse `json:"logs"`
	NextCursor string            `json:"nextCursor,omitempty"`
}

type MediaStateEvent struct {
	CallID string `json:"callId"`
	From   string `json:"from"`
	MediaStateRequest
}

func ToCallResponse(c *entity.Call) CallResponse {
	return CallResponse{
		CallID:     c.ID,
		Type:       string(c.Type),
		State:      string(c.State()),
		Active:     c.Active,
		PickedUp:   c.PickedUp,
		Channel:    c.Channel,
		Caller:     c.Caller,
		Receiver:   c.Receiver,
		StartedAt:  c.StartedAt,
		AnsweredAt: c.AnsweredAt,
		EndedAt:    c.EndedAt,
	}
}

func ToCallLogResponse(l *entity.CallLog) CallLogResponse {
	return CallLogResponse{
		ID:            l.ID.Hex(),
		CallID:        l.CallID,
		CallerID:      l.CallerID,
		ReceiverID:    l.ReceiverID,
		Type:          string(l.Type),
		Status:        l.Status,
		StartTime:     l.StartTime,
		EndTime:       l.EndTime,
		Duration:      l.Duration,
		CallerName:    l.CallerName,
		ReceiverName:  l.ReceiverName,
		CallerPhoto:   l.CallerPhoto,
		ReceiverPhoto: l.ReceiverPhoto,
	}
}
