package message_repo

import (
	"context"
	"time"

	"github.com/xenn00/ruready-server/internal/entity"
	app_error "github.com/xenn00/ruready-server/internal/errors"
	"go.mongodb.org/mongo-driver/v2/bson"
)

type MessageRepoContract interface {
	CreateMessage(ctx context.Context, msg *entity.Message) (*entity.Message, *app_error.AppError)
	UpsertConversation(ctx context.Context, conversationID string, participants []string, lastMessage string, at time.Time) *app_error.AppError
	FindConversation(ctx context.Context, conversationID string) (*entity.Conversation, *app_error.AppError)
	MarkAsRead(ctx context.Context, conversationID, userID string) (int64, *app_error.AppError)
	ListMessages(ctx context.Context, conversationID string, limit int, beforeID *bson.ObjectID) ([]*entity.Message, *app_error.AppError)
}
