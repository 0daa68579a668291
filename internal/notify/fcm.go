package notify

import (
	"context"
	"fmt"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
)

type messageSender interface {
	Send(ctx context.Context, message *messaging.Message) (string, error)
}

// FCMNotifier sends a data-only high priority message so the client's
// service worker can render the ringing UI itself.
type FCMNotifier struct {
	client messageSender
}

func NewFCMNotifier(ctx context.Context, app *firebase.App) (*FCMNotifier, error) {
	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to init firebase messaging client: %w", err)
	}
	return &FCMNotifier{client: client}, nil
}

func buildCallMessage(n CallNotification) *messaging.Message {
	data := map[string]string{
		"type":        "incoming_call",
		"callerName":  n.CallerName,
		"channelName": n.ChannelName,
		"callType":    n.CallType,
	}
	return &messaging.Message{
		Token: n.Token,
		Data:  data,
		Android: &messaging.AndroidConfig{
			Priority: "high",
		},
		Webpush: &messaging.WebpushConfig{
			Headers: map[string]string{"Urgency": "high", "TTL": "45"},
		},
		APNS: &messaging.APNSConfig{
			Headers: map[string]string{"apns-priority": "10"},
		},
	}
}

func (n *FCMNotifier) NotifyIncomingCall(ctx context.Context, payload CallNotification) error {
	if _, err := n.client.Send(ctx, buildCallMessage(payload)); err != nil {
		if messaging.IsUnregistered(err) || messaging.IsInvalidArgument(err) {
			return fmt.Errorf("%w: %v", ErrPermanent, err)
		}
		return fmt.Errorf("fcm send: %w", err)
	}
	return nil
}
