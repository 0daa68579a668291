package entity

import (
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

type CallType string

const (
	CallTypeAudio CallType = "audio"
	CallTypeVideo CallType = "video"
)

type CallState string

const (
	CallStateRinging CallState = "ringing"
	CallStateActive  CallState = "active"
	CallStateEnded   CallState = "ended"
)

const (
	CallLogOngoing   = "ongoing"
	CallLogAnswered  = "answered"
	CallLogCompleted = "completed"
	CallLogRejected  = "rejected"
	CallLogCancelled = "cancelled"
	CallLogMissed    = "missed"
)

// Profile is the denormalized participant snapshot stored on the call so
// clients can render the ringing screen without another lookup.
type Profile struct {
	UID         string `bson:"uid" json:"uid"`
	DisplayName string `bson:"display_name" json:"displayName"`
	PhotoURL    string `bson:"photo_url" json:"photoURL"`
}

type Call struct {
	ID           string     `bson:"_id"`
	Type         CallType   `bson:"type"`
	Active       bool       `bson:"active"`
	PickedUp     bool       `bson:"picked_up"`
	CallerID     string     `bson:"caller_id"`
	ReceiverID   string     `bson:"receiver_id"`
	Participants []string   `bson:"participants"`
	Channel      string     `bson:"channel"`
	Caller       Profile    `bson:"caller"`
	Receiver     Profile    `bson:"receiver"`
	LogID        string     `bson:"log_id"`
	StartedAt    time.Time  `bson:"started_at"`
	AnsweredAt   *time.Time `bson:"answered_at,omitempty"`
	EndedAt      *time.Time `bson:"ended_at,omitempty"`
}

// State derives the lifecycle position from the two flags.
func (c *Call) State() CallState {
	switch {
	case !c.Active:
		return CallStateEnded
	case c.PickedUp:
		return CallStateActive
	default:
		return CallStateRinging
	}
}

func (c *Call) HasParticipant(uid string) bool {
	return uid != "" && (c.CallerID == uid || c.ReceiverID == uid)
}

// Peer returns the other participant.
func (c *Call) Peer(uid string) string {
	if c.CallerID == uid {
		return c.ReceiverID
	}
	return c.CallerID
}

type CallLog struct {
	ID            bson.ObjectID `bson:"_id,omitempty"`
	CallID        string        `bson:"call_id"`
	CallerID      string        `bson:"caller_id"`
	ReceiverID    string        `bson:"receiver_id"`
	Participants  []string      `bson:"participants"`
	Type          CallType      `bson:"type"`
	Status        string        `bson:"status"`
	StartTime     time.Time     `bson:"start_time"`
	AnsweredAt    *time.Time    `bson:"answered_at,omitempty"`
	EndTime       *time.Time    `bson:"end_time"`
	Duration      int64         `bson:"duration"`
	CallerName    string        `bson:"caller_name"`
	ReceiverName  string        `bson:"receiver_name"`
	CallerPhoto   string        `bson:"caller_photo"`
	ReceiverPhoto string        `bson:"receiver_photo"`
}
