package entity

import (
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

type Message struct {
	ID             bson.ObjectID `bson:"_id,omitempty"`
	ConversationID string        `bson:"conversation_id"`
	SenderID       string        `bson:"sender_id"`
	ReceiverID     string        `bson:"receiver_id"`
	Text           string        `bson:"text"`
	Read           bool          `bson:"read"`
	Timestamp      time.Time     `bson:"timestamp"`
}

type Conversation struct {
	ID              string    `bson:"_id"`
	Participants    []string  `bson:"participants"`
	LastMessage     string    `bson:"last_message"`
	LastMessageTime time.Time `bson:"last_message_time"`
	CreatedAt       time.Time `bson:"created_at"`
	UpdatedAt       time.Time `bson:"updated_at"`
}
