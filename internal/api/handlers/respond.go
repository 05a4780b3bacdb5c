package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	apperrors "github.com/bybo/bybo-be/internal/errors"
	"github.com/rs/zerolog/log"
)

// maxJSONBody bounds request bodies decoded as JSON.
const maxJSONBody = 1 << 20

// errorResponse is the body of every non-2xx JSON response.
type errorResponse struct {
	Code    apperrors.Code `json:"code"`
	Message string         `json:"message"`
	Details any            `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("Failed to encode response")
	}
}

// writeError renders domain errors with their code and hides everything else behind a 500.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var domainErr *apperrors.Error
	if errors.As(err, &domainErr) && domainErr.Code != apperrors.CodeInternal {
		writeJSON(w, domainErr.HTTPStatus(), errorResponse{
			Code:    domainErr.Code,
			Message: domainErr.Message,
			Details: domainErr.Details,
		})
		return
	}

	log.Error().Err(err).Str("method", r.Method).Str("path", r.URL.Path).Msg("Request failed")
	writeJSON(w, http.StatusInternalServerError, errorResponse{
		Code:    apperrors.CodeInternal,
		Message: "internal server error",
	})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return apperrors.Validation("Invalid request body")
	}
	return nil
}
