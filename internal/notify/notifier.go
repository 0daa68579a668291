// Package notify delivers out-of-band notifications: incoming-call pushes
// and missed-call emails.
package notify

import (
	"context"
	"errors"
)

// ErrPermanent marks failures a retry cannot fix, such as a push token the
// provider no longer recognizes.
var ErrPermanent = errors.New("permanent notification failure")

type CallNotification struct {
	Token       string `json:"token"`
	CallerName  string `json:"callerName"`
	ChannelName string `json:"channelName"`
	CallType    string `json:"callType"`
}

type Notifier interface {
	NotifyIncomingCall(ctx context.Context, n CallNotification) error
}

type NoopNotifier struct{}

func (NoopNotifier) NotifyIncomingCall(context.Context, CallNotification) error {
	return nil
}
