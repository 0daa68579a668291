package entity

import (
	"time"
)

// User mirrors the identity-provider account plus app-side state. ID is the
// provider uid.
type User struct {
	ID                 string     `gorm:"primaryKey;size:128"`
	DisplayName        string     `gorm:"size:255"`
	Email              string     `gorm:"index;size:320"`
	PhotoURL           string     `gorm:"size:2048"`
	PushToken          string     `gorm:"size:4096"`
	PushPlatform       string     `gorm:"size:32"`
	PushTokenUpdatedAt *time.Time
	Online             bool      `gorm:"not null;default:false;index"`
	LastSeen           time.Time `gorm:"index"`
	IsAdmin            bool      `gorm:"not null;default:false"`
	CreatedAt          time.Time `gorm:"autoCreateTime"`
	UpdatedAt          time.Time `gorm:"autoUpdateTime"`
}

func (u *User) DisplayNameOr(fallback string) string {
	if u == nil || u.DisplayName == "" {
		return fallback
	}
	return u.DisplayName
}
