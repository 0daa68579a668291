// Package rtc issues media-session tokens for the external RTC provider.
package rtc

import (
	"errors"
	"fmt"
	"strings"

	rtctokenbuilder "github.com/AgoraIO-Community/go-tokenbuilder/rtctokenbuilder2"
	"github.com/rs/zerolog/log"
)

var ErrTokenGeneration = errors.New("failed to generate rtc token")

const DefaultTokenTTL uint32 = 3600

type TokenServiceContract interface {
	BuildRTCToken(channel string, uid uint32) (string, error)
}

type TokenService struct {
	appID          string
	appCertificate string
	ttl            uint32
}

func NewTokenService(appID, appCertificate string, ttlSeconds uint32) (*TokenService, error) {
	appID = strings.TrimSpace(appID)
	appCertificate = strings.TrimSpace(appCertificate)
	if appID == "" || appCertificate == "" {
		return nil, fmt.Errorf("rtc app id and certificate are required")
	}
	if ttlSeconds == 0 {
		ttlSeconds = DefaultTokenTTL
	}
	return &TokenService{appID: appID, appCertificate: appCertificate, ttl: ttlSeconds}, nil
}

// BuildRTCToken grants publisher privileges on channel for the configured TTL.
func (s *TokenService) BuildRTCToken(channel string, uid uint32) (string, error) {
	channel = strings.TrimSpace(channel)
	if channel == "" || uid == 0 {
		return "", ErrTokenGeneration
	}

	token, err := rtctokenbuilder.BuildTokenWithUid(s.appID, s.appCertificate, channel, uid, rtctokenbuilder.RolePublisher, s.ttl, s.ttl)
	if err != nil {
		log.Error().Err(err).Str("channel", channel).Uint32("uid", uid).Msg("rtc token builder failed")
		return "", ErrTokenGeneration
	}
	return token, nil
}
