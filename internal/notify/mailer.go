package notify

import (
	"context"
	"fmt"
	"time"

	"gopkg.in/gomail.v2"
)

type MissedCallMail struct {
	To         string
	CallerName string
	CallType   string
	At         time.Time
}

type Mailer interface {
	SendMissedCall(ctx context.Context, m MissedCallMail) error
}

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

type GomailMailer struct {
	conf   SMTPConfig
	dialer *gomail.Dialer
}

func NewGomailMailer(conf SMTPConfig) *GomailMailer {
	return &GomailMailer{
		conf:   conf,
		dialer: gomail.NewDialer(conf.Host, conf.Port, conf.Username, conf.Password),
	}
}

func missedCallMessage(from string, m MissedCallMail) *gomail.Message {
	msg := gomail.NewMessage()
	msg.SetHeader("From", from)
	msg.SetHeader("To", m.To)
	msg.SetHeader("Subject", fmt.Sprintf("Missed %s call from %s", m.CallType, m.CallerName))
	msg.SetBody("text/plain", fmt.Sprintf(
		"Hi,\n\nYou missed a %s call from %s at %s.\n\nOpen the app to call back.",
		m.CallType, m.CallerName, m.At.UTC().Format(time.RFC1123),
	))
	return msg
}

func (g *GomailMailer) SendMissedCall(_ context.Context, m MissedCallMail) error {
	if err := g.dialer.DialAndSend(missedCallMessage(g.conf.From, m)); err != nil {
		return fmt.Errorf("failed to send missed call email: %w", err)
	}
	return nil
}

type NoopMailer struct{}

func (NoopMailer) SendMissedCall(context.Context, MissedCallMail) error {
	return nil
}
