package websocket

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"github.com/xenn00/ruready-server/internal/dtos/ws_dto"
	"github.com/xenn00/ruready-server/internal/utils/types"
)

const EventsChannel = "rt:events"

// Bus fans events out to every instance over Redis pub/sub. Each instance
// delivers to its own connections directly and ignores its own echoes.
// Without Redis it degrades to local delivery.
type Bus struct {
	rdb     *redis.Client
	hub     *Hub
	origin  string
	channel string
}

func NewBus(rdb *redis.Client, hub *Hub) *Bus {
	return &Bus{
		rdb:     rdb,
		hub:     hub,
		origin:  uuid.NewString(),
		channel: EventsChannel,
	}
}

func (b *Bus) EmitToUser(ctx context.Context, userID, event string, data any) {
	b.emit(ctx, userID, event, data)
}

func (b *Bus) Broadcast(ctx context.Context, event string, data any) {
	b.emit(ctx, "", event, data)
}

func (b *Bus) emit(ctx context.Context, target, event string, data any) {
	raw, err := json.Marshal(data)
	if err != nil {
		log.Error().Err(err).Str("event", event).Msg("bus: failed to encode payload")
		return
	}

	msg := types.BroadcastEvent{Origin: b.origin, Target: target, Event: event, Data: raw}
	b.deliverLocal(msg)

	if b.rdb == nil {
		return
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		log.Error().Err(err).Str("event", event).Msg("bus: failed to encode event")
		return
	}
	if err := b.rdb.Publish(context.WithoutCancel(ctx), b.channel, payload).Err(); err != nil {
		log.Error().Err(err).Str("event", event).Str("target", target).Msg("bus: publish failed")
	}
}

func (b *Bus) deliverLocal(msg types.BroadcastEvent) {
	frame, err := json.Marshal(ws_dto.Envelope{Event: msg.Event, Data: msg.Data})
	if err != nil {
		return
	}
	if msg.Target == "" {
		b.hub.SendToAll(frame)
		return
	}
	b.hub.SendToUser(msg.Target, frame)
}

// Start subscribes and blocks until Redis confirms the subscription, then
// relays remote events in the background until ctx ends.
func (b *Bus) Start(ctx context.Context) error {
	if b.rdb == nil {
		return nil
	}

	sub := b.rdb.Subscribe(ctx, b.channel)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return fmt.Errorf("bus: subscribe %s: %w", b.channel, err)
	}

	go func() {
		defer sub.Close()
		ch := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case m, ok := <-ch:
				if !ok {
					return
				}
				b.handleRemote(m.Payload)
			}
		}
	}()

	log.Info().Str("channel", b.channel).Str("origin", b.origin).Msg("bus: subscribed")
	return nil
}

func (b *Bus) handleRemote(payload string) {
	var msg types.BroadcastEvent
	if err := json.Unmarshal([]byte(payload), &msg); err != nil {
		log.Warn().Err(err).Msg("bus: invalid event payload")
		return
	}
	if msg.Origin == b.origin {
		return
	}
	if msg.Event == "" {
		log.Warn().Msg("bus: event without name")
		return
	}
	b.deliverLocal(msg)
}
