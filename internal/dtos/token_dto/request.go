package token_dto

// TokenRequest keeps both fields loosely typed: uid may arrive as a JSON
// number or a numeric string, and a non-string channel must still produce the
// channel error rather than a decode error.
type TokenRequest struct {
	ChannelName any `json:"channelName"`
	UID         any `json:"uid"`
}

type TokenResponse struct {
	Token string `json:"token"`
}
