package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"myretail/internal/middleware"
	"myretail/internal/model"

	"github.com/rs/zerolog"
)

// writeJSON writes a JSON response with the given status code.
// Headers are already sent when encoding fails, so the failure is only logged.
func writeJSON(w http.ResponseWriter, status int, data interface{}, logger zerolog.Logger) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Error().Err(err).Int("status", status).Msg("failed to encode response")
	}
}

// writeError writes an error response with the given status code, code and message.
func writeError(w http.ResponseWriter, r *http.Request, status int, code, message string, logger zerolog.Logger) {
	event := logger.Warn()
	if status >= http.StatusInternalServerError {
		event = logger.Error()
	}
	event.Str("code", code).Str("error", message).Int("status", status).Msg("handler error")

	writeJSON(w, status, model.ErrorResponse{
		Error:         code,
		Message:       message,
		CorrelationID: middleware.RequestIDFromContext(r.Context()),
	}, logger)
}

// writeServiceError classifies err and writes the matching error response.
// Only the domain message is exposed; the underlying cause is logged.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error, logger zerolog.Logger) {
	var de *model.DomainError
	if !errors.As(err, &de) {
		logger.Error().Err(err).Msg("unclassified service error")
		writeError(w, r, http.StatusInternalServerError, model.ErrCodeInternalError, "internal server error", logger)
		return
	}

	if de.Err != nil {
		logger.Debug().Err(de.Err).Str("code", de.Code).Msg("service error cause")
	}
	writeError(w, r, statusFor(de.Code), de.Code, de.Message, logger)
}

// statusFor maps a domain error code to an HTTP status.
func statusFor(code string) int {
	switch code {
	case model.ErrCodeProductNotFound:
		return http.StatusNotFound
	case model.ErrCodeInvalidUpdateRequest, model.ErrCodeInvalidJSON, model.ErrCodeInvalidProductID:
		return http.StatusBadRequest
	case model.ErrCodeCatalogParse, model.ErrCodeCatalogTransport:
		return http.StatusBadGateway
	case model.ErrCodeStoreUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
