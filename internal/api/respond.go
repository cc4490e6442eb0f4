// Package api holds the JSON response envelope shared by all HTTP handlers.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/jaehoon-ko/wonfolio/internal/domain"
	"github.com/rs/zerolog"
)

// Envelope wraps every response body.
type Envelope struct {
	Data     interface{} `json:"data"`
	Metadata Metadata    `json:"metadata"`
}

// Metadata carries response bookkeeping.
type Metadata struct {
	Timestamp string `json:"timestamp"`
	Error     string `json:"error,omitempty"`
}

// WriteJSON writes data inside the standard envelope.
func WriteJSON(w http.ResponseWriter, log zerolog.Logger, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	env := Envelope{
		Data:     data,
		Metadata: Metadata{Timestamp: time.Now().UTC().Format(time.RFC3339)},
	}
	if err := json.NewEncoder(w).Encode(env); err != nil {
		log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

// WriteError maps domain error types to HTTP status codes and writes the
// error envelope.
func WriteError(w http.ResponseWriter, log zerolog.Logger, err error) {
	status := http.StatusInternalServerError

	var verr *domain.ValidationError
	var nferr *domain.NotFoundError
	var eferr *domain.ExternalFetchError
	switch {
	case errors.As(err, &verr):
		status = http.StatusBadRequest
	case errors.As(err, &nferr):
		status = http.StatusNotFound
	case errors.As(err, &eferr):
		status = http.StatusBadGateway
	default:
		log.Error().Err(err).Msg("Request failed")
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	env := Envelope{
		Metadata: Metadata{
			Timestamp: time.Now().UTC().Format(time.RFC3339),
			Error:     err.Error(),
		},
	}
	if encErr := json.NewEncoder(w).Encode(env); encErr != nil {
		log.Error().Err(encErr).Msg("Failed to encode error response")
	}
}
