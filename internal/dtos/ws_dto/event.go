package ws_dto

import "encoding/json"

const (
	EventUserJoin    = "user:join"
	EventUserJoined  = "user:joined"
	EventUserOnline  = "user:online"
	EventUserOffline = "user:offline"

	EventMessageSend    = "message:send"
	EventMessageSent    = "message:sent"
	EventMessageReceive = "message:receive"
	EventMessageError   = "message:error"

	EventTypingStart     = "typing:start"
	EventTypingStop      = "typing:stop"
	EventTypingIndicator = "typing:indicator"

	EventMessagesRead        = "messages:read"
	EventMessagesReadSuccess = "messages:read:success"
	EventMessagesReadError   = "messages:read:error"

	EventCallIncoming = "call:incoming"
	EventCallRinging  = "call:ringing"
	EventCallAccepted = "call:accepted"
	EventCallEnded    = "call:ended"
	EventCallMedia    = "call:media"
	EventCallError    = "call:error"

	EventError = "error"
)

// Envelope is the frame format in both directions.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

type PresenceEvent struct {
	UserID   string `json:"userId"`
	Online   bool   `json:"online"`
	LastSeen int64  `json:"lastSeen"`
}

type ErrorEvent struct {
	Error string `json:"error"`
}

type CallMediaInbound struct {
	CallID         string `json:"callId" validate:"required"`
	Muted          *bool  `json:"muted,omitempty"`
	CameraOn       *bool  `json:"cameraOn,omitempty"`
	CameraSwitched bool   `json:"cameraSwitched,omitempty"`
}
