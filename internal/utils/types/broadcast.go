package types

import (
	"context"
	"encoding/json"
)

// Emitter delivers realtime events to connected users on any instance.
// Delivery is best-effort, offline users simply miss the event.
type Emitter interface {
	EmitToUser(ctx context.Context, uid, event string, data any)
	Broadcast(ctx context.Context, event string, data any)
}

// BroadcastEvent is the frame exchanged between instances over pub/sub.
// An empty Target means every connected user.
type BroadcastEvent struct {
	Origin string          `json:"origin"`
	Target string          `json:"target,omitempty"`
	Event  string          `json:"event"`
	Data   json.RawMessage `json:"data"`
}

type NoopEmitter struct{}

func (NoopEmitter) EmitToUser(context.Context, string, string, any) {}

func (NoopEmitter) Broadcast(context.Context, string, any) {}
