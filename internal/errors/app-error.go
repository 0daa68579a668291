package app_error

import (
	"encoding/json"
	"net/http"
)

// AppError is the client-facing failure returned by handlers, services and
// repos. Message must never carry internal details.
type AppError struct {
	Code    int    `json:"-"`
	Message string `json:"error"`
	Field   string `json:"field,omitempty"`
}

func (e AppError) Error() string {
	return e.Message
}

func (e AppError) JSON(w http.ResponseWriter) error {
	return json.NewEncoder(w).Encode(struct {
		Success bool `json:"success"`
		AppError
	}{false, e})
}

func NewAppError(code int, msg, field string) *AppError {
	return &AppError{
		Code:    code,
		Message: msg,
		Field:   field,
	}
}

func Is(err *AppError, code int) bool {
	return err != nil && err.Code == code
}
