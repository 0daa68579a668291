package message_repo

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/xenn00/ruready-server/internal/entity"
	app_error "github.com/xenn00/ruready-server/internal/errors"
	"github.com/xenn00/ruready-server/state"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

const (
	MessagesCollection      = "messages"
	ConversationsCollection = "conversations"
)

type MessageRepo struct {
	AppState *state.AppState
}

func NewMessageRepo(appState *state.AppState) MessageRepoContract {
	return &MessageRepo{
		AppState: appState,
	}
}

func (r *MessageRepo) messages() *mongo.Collection {
	return r.AppState.MongoDB.Collection(MessagesCollection)
}

func (r *MessageRepo) conversations() *mongo.Collection {
	return r.AppState.MongoDB.Collection(ConversationsCollection)
}

func (r *MessageRepo) CreateMessage(ctx context.Context, msg *entity.Message) (*entity.Message, *app_error.AppError) {
	if msg.ID.IsZero() {
		msg.ID = bson.NewObjectID()
	}

	if _, err := r.messages().InsertOne(ctx, msg); err != nil {
		log.Error().Err(err).Str("conversation_id", msg.ConversationID).Msg("failed to insert message")
		return nil, app_error.NewAppError(http.StatusInternalServerError, "Failed to save message", "mongo")
	}
	return msg, nil
}

func (r *MessageRepo) UpsertConversation(ctx context.Context, conversationID string, participants []string, lastMessage string, at time.Time) *app_error.AppError {
	update := bson.M{
		"$set": bson.M{
			"last_message":      lastMessage,
			"last_message_time": at,
			"updated_at":        at,
		},
		"$setOnInsert": bson.M{
			"participants": participants,
			"created_at":   at,
		},
	}

	_, err := r.conversations().UpdateOne(ctx, bson.M{"_id": conversationID}, update, options.UpdateOne().SetUpsert(true))
	if err != nil {
		log.Error().Err(err).Str("conversation_id", conversationID).Msg("failed to update conversation")
		return app_error.NewAppError(http.StatusInternalServerError, "Failed to save message", "mongo")
	}
	return nil
}

func (r *MessageRepo) FindConversation(ctx context.Context, conversationID string) (*entity.Conversation, *app_error.AppError) {
	var conv entity.Conversation
	if err := r.conversations().FindOne(ctx, bson.M{"_id": conversationID}).Decode(&conv); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, app_error.NewAppError(http.StatusNotFound, "conversation not found", "conversationId")
		}
		log.Error().Err(err).Str("conversation_id", conversationID).Msg("failed to fetch conversation")
		return nil, app_error.NewAppError(http.StatusInternalServerError, "failed to fetch conversation", "mongo")
	}
	return &conv, nil
}

// MarkAsRead flips every unread message addressed to userID. Running it
// again immediately reports 0.
func (r *MessageRepo) MarkAsRead(ctx context.Context, conversationID, userID string) (int64, *app_error.AppError) {
	filter := bson.M{
		"conversation_id": conversationID,
		"receiver_id":     userID,
		"read":            false,
	}

	res, err := r.messages().UpdateMany(ctx, filter, bson.M{"$set": bson.M{"read": true}})
	if err != nil {
		log.Error().Err(err).Str("conversation_id", conversationID).Msg("failed to mark messages as read")
		return 0, app_error.NewAppError(http.StatusInternalServerError, "Failed to mark messages as read", "mongo")
	}
	return res.ModifiedCount, nil
}

func (r *MessageRepo) ListMessages(ctx context.Context, conversationID string, limit int, beforeID *bson.ObjectID) ([]*entity.Message, *app_error.AppError) {
	filter := bson.M{"conversation_id": conversationID}
	if beforeID != nil {
		filter["_id"] = bson.M{"$lt": *beforeID}
	}

	// newest first so the limit keeps the latest page
	cur, err := r.messages().Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "_id", Value: -1}}).SetLimit(int64(limit)))
	if err != nil {
		log.Error().Err(err).Str("conversation_id", conversationID).Msg("failed to fetch messages")
		return nil, app_error.NewAppError(http.StatusInternalServerError, "Failed to fetch messages", "mongo")
	}
	defer cur.Close(ctx)

	messages := make([]*entity.Message, 0, limit)
	if err := cur.All(ctx, &messages); err != nil {
		log.Error().Err(err).Str("conversation_id", conversationID).Msg("failed to decode messages")
		return nil, app_error.NewAppError(http.StatusInternalServerError, "Failed to fetch messages", "mongo")
	}

	// reverse messages to be in ascending order (oldest to newest)
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}

	return messages, nil
}

// EnsureIndexes is run by the migrate command.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	_, err := db.Collection(MessagesCollection).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "conversation_id", Value: 1}, {Key: "_id", Value: -1}}},
		{Keys: bson.D{{Key: "conversation_id", Value: 1}, {Key: "receiver_id", Value: 1}, {Key: "read", Value: 1}}},
	})
	if err != nil {
		return err
	}

	_, err = db.Collection(ConversationsCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "participants", Value: 1}, {Key: "last_message_time", Value: -1}},
	})
	return err
}
