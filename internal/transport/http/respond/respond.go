package respond

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/corray333/backend-labs/serviceorder/internal/service/apperrors"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
)

// CodeBadRequest is the error code of bodies that are not valid JSON.
const CodeBadRequest = "bad_request"

var validate = validator.New(validator.WithRequiredStructEnabled())

type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// JSON writes v with status.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Error writing response body", "error", err)
	}
}

// StatusOf returns the HTTP status for a service error kind.
func StatusOf(kind apperrors.Kind) int {
	switch kind {
	case apperrors.KindValidation, apperrors.KindOwnershipMismatch:
		return http.StatusUnprocessableEntity
	case apperrors.KindNotFound:
		return http.StatusNotFound
	case apperrors.KindInvalidOperation:
		return http.StatusBadRequest
	case apperrors.KindInvalidTransition, apperrors.KindConcurrencyConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// Error writes err as {"error":{"code","message"}}. Untyped errors are logged and hidden.
func Error(w http.ResponseWriter, r *http.Request, err error) {
	var typed *apperrors.Error
	if !errors.As(err, &typed) {
		slog.Error("Unhandled error",
			"method", r.Method,
			"path", r.URL.Path,
			"request_id", middleware.GetReqID(r.Context()),
			"error", err,
		)
		JSON(w, http.StatusInternalServerError, errorBody{Error: errorDetail{
			Code:    string(apperrors.KindUnknown),
			Message: "internal server error",
		}})

		return
	}

	status := StatusOf(typed.Kind)
	if status >= http.StatusInternalServerError {
		slog.Error("Request failed", "path", r.URL.Path, "error", err)
	}

	message := typed.Message
	if typed.Kind == apperrors.KindConcurrencyConflict && message == "" {
		message = "the order is being modified by another request"
	}

	JSON(w, status, errorBody{Error: errorDetail{Code: string(typed.Kind), Message: message}})
}

// BadRequest reports a body that could not be decoded.
func BadRequest(w http.ResponseWriter, err error) {
	JSON(w, http.StatusBadRequest, errorBody{Error: errorDetail{
		Code:    CodeBadRequest,
		Message: err.Error(),
	}})
}

// Decode reads a JSON body into dst and runs its validate tags.
// It writes the error response itself and reports whether the handler may continue.
func Decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		BadRequest(w, fmt.Errorf("invalid request body: %w", err))

		return false
	}

	if err := Validate(dst); err != nil {
		Error(w, r, err)

		return false
	}

	return true
}

// Validate runs the struct's validate tags and returns a Validation error naming the fields.
func Validate(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return apperrors.Validation("%s", err.Error())
	}

	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		msgs = append(msgs, fmt.Sprintf("%s failed on %s", fe.Namespace(), fe.Tag()))
	}

	return apperrors.Validation("%s", strings.Join(msgs, "; "))
}

// PathID parses the {id} URL parameter.
func PathID(r *http.Request) (int64, error) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, apperrors.Validation("id %q must be a positive integer", raw)
	}

	return id, nil
}

// Int64List parses a comma separated query parameter.
func Int64List(r *http.Request, name string) ([]int64, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, nil
	}

	parts := strings.Split(raw, ",")
	out := make([]int64, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		v, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, apperrors.Validation("%s must be a comma separated list of integers", name)
		}
		out = append(out, v)
	}

	return out, nil
}
