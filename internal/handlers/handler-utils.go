package handlers

import (
	"errors"
	"io"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	jsoniter "github.com/json-iterator/go"
	"github.com/rs/zerolog/log"
	"github.com/xenn00/ruready-server/config"
	"github.com/xenn00/ruready-server/internal/dtos"
	app_error "github.com/xenn00/ruready-server/internal/errors"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
	return v
}

func WriteJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Error().Err(err).Msg("failed to encode response body")
	}
}

type HandlerFunc func(w http.ResponseWriter, r *http.Request) *app_error.AppError

func WrapHandler(fn HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := fn(w, r); err != nil {
			reqId := RequestID(r)
			evt := log.Warn()
			if err.Code >= http.StatusInternalServerError {
				evt = log.Error()
			}
			evt.Int("status", err.Code).
				Str("request_id", reqId).
				Str("path", r.URL.Path).
				Str("field", err.Field).
				Msg(err.Message)

			WriteJSON(w, err.Code, dtos.ErrorResponse{
				Success:   false,
				Error:     err.Message,
				Field:     err.Field,
				RequestID: reqId,
			})
		}
	}
}

func CreateResponse[T any](message string, data T, requestId string) dtos.Response[T] {
	return dtos.Response[T]{
		Success:   true,
		Message:   message,
		Data:      data,
		RequestID: requestId,
	}
}

func RequestID(r *http.Request) string {
	return r.Header.Get("X-Request-ID")
}

func bodyLimit() int64 {
	if config.Conf != nil && config.Conf.App.BodyLimitBytes > 0 {
		return config.Conf.App.BodyLimitBytes
	}
	return 10 << 20
}

// DecodeJSON reads a size-limited body into dst and runs struct validation.
// Validation failures surface the first offending field.
func DecodeJSON(w http.ResponseWriter, r *http.Request, dst any) *app_error.AppError {
	if r.Body == nil {
		return app_error.NewAppError(http.StatusBadRequest, "Request body is required", "body")
	}
	r.Body = http.MaxBytesReader(w, r.Body, bodyLimit())

	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case errors.As(err, &maxErr):
			return app_error.NewAppError(http.StatusRequestEntityTooLarge, "Request body too large", "body")
		case errors.Is(err, io.EOF):
			return app_error.NewAppError(http.StatusBadRequest, "Request body is required", "body")
		default:
			return app_error.NewAppError(http.StatusBadRequest, "Invalid request body", "body")
		}
	}

	return ValidateStruct(dst)
}

func ValidateStruct(dst any) *app_error.AppError {
	if err := validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return app_error.NewAppError(http.StatusBadRequest, validationMessage(fe), jsonFieldName(fe))
		}
		return app_error.NewAppError(http.StatusBadRequest, "Invalid request body", "body")
	}
	return nil
}

func jsonFieldName(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		ns = ns[i+1:]
	}
	return ns
}

func validationMessage(fe validator.FieldError) string {
	unit := " characters"
	switch fe.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Float32, reflect.Float64:
		unit = ""
	}

	switch fe.Tag() {
	case "required":
		return fe.Field() + " is required"
	case "oneof":
		return fe.Field() + " must be one of: " + fe.Param()
	case "max":
		return fe.Field() + " must be at most " + fe.Param() + unit
	case "min":
		return fe.Field() + " must be at least " + fe.Param() + unit
	default:
		return fe.Field() + " is invalid"
	}
}
