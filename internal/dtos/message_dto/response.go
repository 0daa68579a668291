package message_dto

import (
	"time"

	"github.com/xenn00/ruready-server/internal/entity"
)

type MessageResponse struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversationId"`
	SenderID       string    `json:"senderId"`
	ReceiverID     string    `json:"receiverId"`
	Text           string    `json:"text"`
	Read           bool      `json:"read"`
	Timestamp      time.Time `json:"timestamp"`
}

type MarkReadResponse struct {
	ConversationID string `json:"conversationId"`
	Count          int64  `json:"count"`
}

type TypingEvent struct {
	UserID         string `json:"userId"`
	ConversationID string `json:"conversationId,omitempty"`
	Typing         bool   `json:"typing"`
}

func ToMessageResponse(m *entity.Message) MessageResponse {
	return MessageResponse{
		ID:             m.ID.Hex(),
		ConversationID: m.ConversationID,
		SenderID:       m.SenderID,
		ReceiverID:     m.ReceiverID,
		Text:           m.Text,
		Read:           m.Read,
		Timestamp:      m.Timestamp,
	}
}
