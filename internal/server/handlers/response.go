package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/iudanet/authd/internal/fail"
	"github.com/iudanet/authd/pkg/api"
)

// InternalErrorMessage is shown instead of the message of any error that is
// not a *fail.Failure
const InternalErrorMessage = "An internal server error has occurred"

// maxBodyBytes - ограничение размера тела запроса
const maxBodyBytes = 1 << 20

// Global validator instance (reused across all handlers).
// Fields are reported by their JSON names
var validate = func() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}()

// sendJSON отправляет JSON ответ
func sendJSON(logger *slog.Logger, w http.ResponseWriter, data any, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Error("failed to encode response", slog.Any("error", err))
	}
}

// WriteError maps err to a response. A *fail.Failure is sent with its own
// status and message, anything else is logged and hidden behind a 500.
func WriteError(logger *slog.Logger, w http.ResponseWriter, r *http.Request, err error) {
	if f, ok := fail.As(err); ok {
		if f.Status >= http.StatusInternalServerError {
			logger.ErrorContext(r.Context(), "request failed", slog.Any("error", err))
		}
		sendJSON(logger, w, api.ErrorResponse{Message: f.Message}, f.Status)
		return
	}

	logger.ErrorContext(r.Context(), "internal error",
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.Any("error", err))
	sendJSON(logger, w, api.ErrorResponse{Message: InternalErrorMessage}, http.StatusInternalServerError)
}

// decode читает JSON тело запроса в dst и проверяет его теги validate.
// Ошибки разбора и проверки возвращаются как fail с кодом 400
func decode(w http.ResponseWriter, r *http.Request, dst any) error {
	return decodeBody(w, r, dst, true)
}

// decodeOptional как decode, но пустое тело оставляет dst нулевым
func decodeOptional(w http.ResponseWriter, r *http.Request, dst any) error {
	return decodeBody(w, r, dst, false)
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any, required bool) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			if !required {
				return nil
			}
			return fail.New("A request body is required")
		}
		var syntaxErr *json.SyntaxError
		var typeErr *json.UnmarshalTypeError
		var maxErr *http.MaxBytesError
		switch {
		case errors.As(err, &syntaxErr):
			return fail.Newf("Invalid JSON at position %d", syntaxErr.Offset)
		case errors.As(err, &typeErr):
			return fail.Newf("Invalid value for field %s", typeErr.Field)
		case errors.As(err, &maxErr):
			return &fail.Failure{Message: "Request body is too large", Status: http.StatusRequestEntityTooLarge}
		default:
			return fail.New("Invalid request body")
		}
	}

	return validateRequest(dst)
}

// validateRequest validates a request struct using go-playground/validator.
// The first failed field is reported.
func validateRequest(req any) error {
	err := validate.Struct(req)
	if err == nil {
		return nil
	}

	var ve validator.ValidationErrors
	if errors.As(err, &ve) && len(ve) > 0 {
		return fail.New(formatValidationError(ve[0]))
	}
	return fmt.Errorf("validation failed: %w", err)
}

// formatValidationError converts a validator FieldError to a user-friendly message
func formatValidationError(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "gte":
		return fmt.Sprintf("%s must be greater than or equal to %s", fe.Field(), fe.Param())
	default:
		return fmt.Sprintf("%s failed validation: %s", fe.Field(), fe.Tag())
	}
}
