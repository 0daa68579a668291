package call_dto

type InitiateCallRequest struct {
	ReceiverID string `json:"receiverId" validate:"required,max=128"`
	Type       string `json:"type" validate:"required,oneof=audio video"`
}

type EndCallRequest struct {
	Status string `json:"status" validate:"omitempty,oneof=completed rejected cancelled"`
}

// MediaStateRequest is relayed to the peer as-is. Nil fields are unchanged.
type MediaStateRequest struct {
	Muted          *bool `json:"muted,omitempty"`
	CameraOn       *bool `json:"cameraOn,omitempty"`
	CameraSwitched bool  `json:"cameraSwitched,omitempty"`
}

type CallLogsQuery struct {
	Limit  int    `json:"limit" validate:"omitempty,min=1,max=100"`
	Before string `json:"before" validate:"omitempty,len=24,hexadecimal"`
}
