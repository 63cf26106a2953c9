// internal/controller/respond.go
package controller

import (
	"encoding/json"
	"errors"
	"net/http"

	appErrors "github.com/unclebandit/mailtrail-backend/internal/errors"
)

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

// writeError maps the error taxonomy onto HTTP statuses: validation -> 400,
// not-found -> 404, transport -> 502, anything else -> 500.
func writeError(w http.ResponseWriter, err error) {
	var validationErr *appErrors.ValidationError
	var campaignErr *appErrors.ErrCampaignNotFound
	var templateErr *appErrors.ErrTemplateNotFound
	var credentialErr *appErrors.ErrCredentialNotFound
	var transportErr *appErrors.TransportError

	status := http.StatusInternalServerError
	switch {
	case errors.As(err, &validationErr):
		status = http.StatusBadRequest
	case errors.As(err, &campaignErr), errors.As(err, &templateErr), errors.As(err, &credentialErr):
		status = http.StatusNotFound
	case errors.As(err, &transportErr):
		status = http.StatusBadGateway
	}

	writeJSON(w, status, map[string]string{"error": err.Error()})
}
