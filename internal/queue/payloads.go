package queue

import "time"

type PushCallPayload struct {
	CallID      string `json:"callId"`
	ReceiverID  string `json:"receiverId"`
	CallerName  string `json:"callerName"`
	ChannelName string `json:"channelName"`
	CallType    string `json:"callType"`
}

type RingTimeoutPayload struct {
	CallID string `json:"callId"`
}

type MissedCallPayload struct {
	CallID     string    `json:"callId"`
	ReceiverID string    `json:"receiverId"`
	CallerName string    `json:"callerName"`
	CallType   string    `json:"callType"`
	At         time.Time `json:"at"`
}
