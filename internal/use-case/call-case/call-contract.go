package call_service

import (
	"context"

	"github.com/xenn00/ruready-server/internal/dtos/call_dto"
	app_error "github.com/xenn00/ruready-server/internal/errors"
)

type CallServiceContract interface {
	Initiate(ctx context.Context, callerID string, req call_dto.InitiateCallRequest) (*call_dto.CallResponse, *app_error.AppError)
	Active(ctx context.Context, uid string) (*call_dto.CallResponse, *app_error.AppError)
	Accept(ctx context.Context, uid, callID string) (*call_dto.CallResponse, *app_error.AppError)
	End(ctx context.Context, uid, callID string, req call_dto.EndCallRequest) (*call_dto.EndCallResponse, *app_error.AppError)
	Timeout(ctx context.Context, callID string) *app_error.AppError
	RelayMedia(ctx context.Context, uid, callID string, req call_dto.MediaStateRequest) *app_error.AppError
	History(ctx context.Context, uid string, query call_dto.CallLogsQuery) (*call_dto.CallLogsResponse, *app_error.AppError)
}
