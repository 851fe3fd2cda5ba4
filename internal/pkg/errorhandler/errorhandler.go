package errorhandler

import (
	"context"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/questboard/questboard-api/internal/pkg/apperror"
	"github.com/questboard/questboard-api/internal/pkg/response"
)

type requestIDKey struct{}

// WithRequestID stores the request id for error logs.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// StatusFor maps an error kind to its HTTP status.
func StatusFor(kind apperror.Kind) int {
	switch kind {
	case apperror.KindForbidden:
		return http.StatusForbidden
	case apperror.KindNotFound:
		return http.StatusNotFound
	case apperror.KindInvalidState, apperror.KindInsufficientFunds:
		return http.StatusConflict
	case apperror.KindInvalidInput:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// Handle writes err as a JSON error keeping its kind as error.code.
// UNKNOWN errors are logged with their cause and hidden from the client.
func Handle(ctx context.Context, w http.ResponseWriter, err error) {
	kind := apperror.KindOf(err)
	status := StatusFor(kind)

	if kind == apperror.KindUnknown {
		log.Error().
			Str("request_id", getRequestID(ctx)).
			Str("error_code", string(kind)).
			Int("status_code", status).
			Err(err).
			Msg("Request error")
		response.Error(w, status, string(kind), "An unexpected error occurred")
		return
	}

	log.Debug().
		Str("request_id", getRequestID(ctx)).
		Str("error_code", string(kind)).
		Int("status_code", status).
		Str("error_message", apperror.MessageOf(err)).
		Msg("Request rejected")

	response.Error(w, status, string(kind), apperror.MessageOf(err))
}

// LogValidationError logs validation errors with details
func LogValidationError(ctx context.Context, fieldErrors map[string]string) {
	log.Warn().
		Str("request_id", getRequestID(ctx)).
		Interface("validation_errors", fieldErrors).
		Msg("Validation error")
}

func getRequestID(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey{}).(string); ok && id != "" {
		return id
	}
	return "unknown"
}
