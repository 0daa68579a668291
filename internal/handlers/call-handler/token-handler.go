package call_handler

import (
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/xenn00/ruready-server/internal/dtos/token_dto"
	app_error "github.com/xenn00/ruready-server/internal/errors"
	"github.com/xenn00/ruready-server/internal/handlers"
	"github.com/xenn00/ruready-server/internal/observability/metrics"
)

const maxChannelNameBytes = 64

func parseChannelName(v any) (string, *app_error.AppError) {
	s, ok := v.(string)
	s = strings.TrimSpace(s)
	if !ok || s == "" {
		return "", app_error.NewAppError(http.StatusBadRequest, "channelName is required and cannot be empty", "channelName")
	}
	if len(s) > maxChannelNameBytes {
		return "", app_error.NewAppError(http.StatusBadRequest, "channelName must be at most 64 bytes", "channelName")
	}
	return s, nil
}

// parseUID accepts a JSON number or a numeric string holding an integer in
// [1, 4294967295].
func parseUID(v any) (uint32, *app_error.AppError) {
	invalid := app_error.NewAppError(http.StatusBadRequest, "uid is required and must be a valid number", "uid")

	var n float64
	switch t := v.(type) {
	case float64:
		n = t
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 0, invalid
		}
		n = f
	default:
		return 0, invalid
	}

	if math.IsNaN(n) || math.IsInf(n, 0) || n != math.Trunc(n) {
		return 0, invalid
	}
	if n < 1 || n > math.MaxUint32 {
		return 0, app_error.NewAppError(http.StatusBadRequest, "uid must be between 1 and 4294967295", "uid")
	}
	return uint32(n), nil
}

func (h *CallHandler) GenerateToken(w http.ResponseWriter, r *http.Request) *app_error.AppError {
	var req token_dto.TokenRequest
	if appErr := handlers.DecodeJSON(w, r, &req); appErr != nil {
		return appErr
	}

	channel, appErr := parseChannelName(req.ChannelName)
	if appErr != nil {
		metrics.RTCTokensIssuedTotal.WithLabelValues("rejected").Inc()
		return appErr
	}
	uid, appErr := parseUID(req.UID)
	if appErr != nil {
		metrics.RTCTokensIssuedTotal.WithLabelValues("rejected").Inc()
		return appErr
	}

	token, err := h.Tokens.BuildRTCToken(channel, uid)
	if err != nil {
		metrics.RTCTokensIssuedTotal.WithLabelValues("error").Inc()
		log.Error().Err(err).Str("channel", channel).Uint32("uid", uid).Msg("failed to generate rtc token")
		return app_error.NewAppError(http.StatusInternalServerError, "Failed to generate Agora token", "token")
	}

	metrics.RTCTokensIssuedTotal.WithLabelValues("issued").Inc()
	handlers.WriteJSON(w, http.StatusOK, handlers.CreateResponse("", token_dto.TokenResponse{Token: token}, handlers.RequestID(r)))
	return nil
}
