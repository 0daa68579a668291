package user_dto

type UpsertProfileRequest struct {
	DisplayName string `json:"displayName" validate:"omitempty,max=255"`
	PhotoURL    string `json:"photoURL" validate:"omitempty,url,max=2048"`
}

type PushTokenRequest struct {
	Token    string `json:"token" validate:"required,max=4096"`
	Platform string `json:"platform" validate:"omitempty,oneof=web android ios"`
}
