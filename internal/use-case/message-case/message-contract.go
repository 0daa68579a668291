package message_service

import (
	"context"

	"github.com/xenn00/ruready-server/internal/dtos/message_dto"
	app_error "github.com/xenn00/ruready-server/internal/errors"
)

type MessageServiceContract interface {
	SendMessage(ctx context.Context, req message_dto.SendMessageRequest) (*message_dto.MessageResponse, *app_error.AppError)
	MarkAsRead(ctx context.Context, req message_dto.MarkReadRequest) (*message_dto.MarkReadResponse, *app_error.AppError)
	ListMessages(ctx context.Context, uid, conversationID string, query message_dto.ListMessagesQuery) ([]message_dto.MessageResponse, *app_error.AppError)
	CanAccess(ctx context.Context, uid, conversationID string) *app_error.AppError
}
