package message_dto

type SendMessageRequest struct {
	SenderID       string `json:"senderId" validate:"max=128"`
	ReceiverID     string `json:"receiverId" validate:"max=128"`
	ConversationID string `json:"conversationId" validate:"max=257"`
	Text           string `json:"text"`
}

type MarkReadRequest struct {
	ConversationID string `json:"conversationId" validate:"max=257"`
	UserID         string `json:"userId" validate:"max=128"`
}

type ListMessagesQuery struct {
	Limit    int    `json:"limit" validate:"omitempty,min=1,max=100"`
	BeforeID string `json:"before_id" validate:"omitempty,len=24,hexadecimal"`
}

type TypingRequest struct {
	ConversationID string `json:"conversationId"`
	ReceiverID     string `json:"receiverId" validate:"required,max=128"`
}
