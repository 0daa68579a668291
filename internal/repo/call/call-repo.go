package call_repo

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
	CallsCollection    = "calls"
	CallLogsCollection = "call_logs"
)

type CallRepo struct {
	AppState *state.AppState
}

func NewCallRepo(appState *state.AppState) CallRepoContract {
	return &CallRepo{
		AppState: appState,
	}
}

func (r *CallRepo) calls() *mongo.Collection {
	return r.AppState.MongoDB.Collection(CallsCollection)
}

func (r *CallRepo) logs() *mongo.Collection {
	return r.AppState.MongoDB.Collection(CallLogsCollection)
}

func (r *CallRepo) CreateCall(ctx context.Context, call *entity.Call) *app_error.AppError {
	if _, err := r.calls().InsertOne(ctx, call); err != nil {
		log.Error().Err(err).Str("call_id", call.ID).Msg("failed to insert call")
		return app_error.NewAppError(http.StatusInternalServerError, "Failed to start call", "mongo")
	}
	return nil
}

func (r *CallRepo) CreateLog(ctx context.Context, callLog *entity.CallLog) *app_error.AppError {
	if callLog.ID.IsZero() {
		callLog.ID = bson.NewObjectID()
	}
	if _, err := r.logs().InsertOne(ctx, callLog); err != nil {
		log.Error().Err(err).Str("call_id", callLog.CallID).Msg("failed to insert call log")
		return app_error.NewAppError(http.StatusInternalServerError, "Failed to start call", "mongo")
	}
	return nil
}

func (r *CallRepo) FindCall(ctx context.Context, callID string) (*entity.Call, *app_error.AppError) {
	var call entity.Call
	if err := r.calls().FindOne(ctx, bson.M{"_id": callID}).Decode(&call); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, app_error.NewAppError(http.StatusNotFound, "Call not found", "callId")
		}
		log.Error().Err(err).Str("call_id", callID).Msg("failed to fetch call")
		return nil, app_error.NewAppError(http.StatusInternalServerError, "Failed to fetch call", "mongo")
	}
	return &call, nil
}

func (r *CallRepo) FindActiveForUser(ctx context.Context, uid string) (*entity.Call, *app_error.AppError) {
	var call entity.Call
	filter := bson.M{"participants": uid, "active": true}
	opts := options.FindOne().SetSort(bson.D{{Key: "started_at", Value: -1}})

	if err := r.calls().FindOne(ctx, filter, opts).Decode(&call); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, app_error.NewAppError(http.StatusNotFound, "No active call", "call")
		}
		log.Error().Err(err).Str("uid", uid).Msg("failed to fetch active call")
		return nil, app_error.NewAppError(http.StatusInternalServerError, "Failed to fetch call", "mongo")
	}
	return &call, nil
}

func (r *CallRepo) MarkAnswered(ctx context.Context, callID, receiverID string, at time.Time) (*entity.Call, *app_error.AppError) {
	filter := bson.M{
		"_id":         callID,
		"active":      true,
		"picked_up":   false,
		"receiver_id": receiverID,
	}
	update := bson.M{"$set": bson.M{"picked_up": true, "answered_at": at}}

	var call entity.Call
	err := r.calls().FindOneAndUpdate(ctx, filter, update, options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&call)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		log.Error().Err(err).Str("call_id", callID).Msg("failed to answer call")
		return nil, app_error.NewAppError(http.StatusInternalServerError, "Failed to accept call", "mongo")
	}
	return &call, nil
}

// MarkEnded always writes, so a repeated end moves ended_at forward.
func (r *CallRepo) MarkEnded(ctx context.Context, callID string, at time.Time) (*entity.Call, *app_error.AppError) {
	update := bson.M{"$set": bson.M{"active": false, "ended_at": at}}

	var call entity.Call
	err := r.calls().FindOneAndUpdate(ctx, bson.M{"_id": callID}, update, options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&call)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, app_error.NewAppError(http.StatusNotFound, "Call not found", "callId")
		}
		log.Error().Err(err).Str("call_id", callID).Msg("failed to end call")
		return nil, app_error.NewAppError(http.StatusInternalServerError, "Failed to end call", "mongo")
	}
	return &call, nil
}

func (r *CallRepo) MarkEndedIfRinging(ctx context.Context, callID string, at time.Time) (*entity.Call, *app_error.AppError) {
	filter := bson.M{"_id": callID, "active": true, "picked_up": false}
	update := bson.M{"$set": bson.M{"active": false, "ended_at": at}}

	var call entity.Call
	err := r.calls().FindOneAndUpdate(ctx, filter, update, options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&call)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		log.Error().Err(err).Str("call_id", callID).Msg("failed to expire ringing call")
		return nil, app_error.NewAppError(http.StatusInternalServerError, "Failed to end call", "mongo")
	}
	return &call, nil
}

func (r *CallRepo) UpdateLogAnswered(ctx context.Context, callID string, at time.Time) *app_error.AppError {
	// an end that raced ahead of the answer already owns the log
	filter := bson.M{"call_id": callID, "status": entity.CallLogOngoing}
	update := bson.M{"$set": bson.M{"status": entity.CallLogAnswered, "answered_at": at}}
	if _, err := r.logs().UpdateOne(ctx, filter, update); err != nil {
		log.Error().Err(err).Str("call_id", callID).Msg("failed to update call log on answer")
		return app_error.NewAppError(http.StatusInternalServerError, "Failed to update call log", "mongo")
	}
	return nil
}

func (r *CallRepo) UpdateLogEnded(ctx context.Context, callID, status string, at time.Time, duration int64) *app_error.AppError {
	update := bson.M{"$set": bson.M{"status": status, "end_time": at, "duration": duration}}
	if _, err := r.logs().UpdateOne(ctx, bson.M{"call_id": callID}, update); err != nil {
		log.Error().Err(err).Str("call_id", callID).Msg("failed to update call log on end")
		return app_error.NewAppError(http.StatusInternalServerError, "Failed to update call log", "mongo")
	}
	return nil
}

func (r *CallRepo) ListLogs(ctx context.Context, uid string, limit int, before *bson.ObjectID) ([]*entity.CallLog, *app_error.AppError) {
	filter := bson.M{"participants": uid}
	if before != nil {
		filter["_id"] = bson.M{"$lt": *before}
	}

	cur, err := r.logs().Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "_id", Value: -1}}).SetLimit(int64(limit)))
	if err != nil {
		log.Error().Err(err).Str("uid", uid).Msg("failed to fetch call logs")
		return nil, app_error.NewAppError(http.StatusInternalServerError, "Failed to fetch call logs", "mongo")
	}
	defer cur.Close(ctx)

	logs := make([]*entity.CallLog, 0, limit)
	if err := cur.All(ctx, &logs); err != nil {
		log.Error().Err(err).Str("uid", uid).Msg("failed to decode call logs")
		return nil, app_error.NewAppError(http.StatusInternalServerError, "Failed to fetch call logs", "mongo")
	}
	return logs, nil
}

// EnsureIndexes is run by the migrate command.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	_, err := db.Collection(CallsCollection).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "participants", Value: 1}, {Key: "active", Value: 1}, {Key: "started_at", Value: -1}}},
	})
	if err != nil {
		return err
	}

	_, err = db.Collection(CallLogsCollection).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "call_id", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "participants", Value: 1}, {Key: "_id", Value: -1}}},
	})
	return err
}
