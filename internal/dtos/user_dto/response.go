package user_dto

import (
	"time"

	"github.com/xenn00/ruready-server/internal/entity"
)

type UserResponse struct {
	ID          string    `json:"id"`
	DisplayName string    `json:"displayName"`
	Email       string    `json:"email"`
	PhotoURL    string    `json:"photoURL"`
	Online      bool      `json:"online"`
	LastSeen    time.Time `json:"lastSeen"`
	CreatedAt   time.Time `json:"createdAt"`
}

type PresenceResponse struct {
	UserID   string    `json:"userId"`
	Online   bool      `json:"online"`
	LastSeen time.Time `json:"lastSeen"`
}

func ToUserResponse(u *entity.User) UserResponse {
	return UserResponse{
		ID:          u.ID,
		DisplayName: u.DisplayName,
		Email:       u.Email,
		PhotoURL:    u.PhotoURL,
		Online:      u.Online,
		LastSeen:    u.LastSeen,
		CreatedAt:   u.CreatedAt,
	}
}
