package coachflow

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/apper-apps/coachflow-optimal/pkg/store"
)

// ErrorResponse is the body of every error reply. Fields is set for validation
// failures only.
type ErrorResponse struct {
	Error  string             `json:"error"`
	Fields []store.FieldError `json:"fields,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		_ = json.NewEncoder(w).Encode(payload)
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, ErrorResponse{Error: message})
}

// respondStoreError maps the store error taxonomy to HTTP statuses:
//
//	store.ErrReadOnly        503 Service Unavailable
//	*store.NotFoundError     404 Not Found
//	*store.ValidationError   422 Unprocessable Entity, with per-field errors
//	*store.TransportError    502 Bad Gateway
//	anything else            500 Internal Server Error
func (a *App) respondStoreError(w http.ResponseWriter, r *http.Request, err error) {
	var ve *store.ValidationError
	switch {
	case errors.Is(err, store.ErrReadOnly):
		respondError(w, http.StatusServiceUnavailable, err.Error())
	case store.IsNotFound(err):
		respondError(w, http.StatusNotFound, err.Error())
	case errors.As(err, &ve):
		respondJSON(w, http.StatusUnprocessableEntity, ErrorResponse{Error: ve.Error(), Fields: ve.Fields})
	case store.IsTransport(err):
		a.log.Error().Err(err).Str("path", r.URL.Path).Msg("store unavailable")
		respondError(w, http.StatusBadGateway, "record store unavailable")
	default:
		a.log.Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
		respondError(w, http.StatusInternalServerError, err.Error())
	}
}

// decode reads a JSON request body into v. It reports false after writing a 400
// reply when the body is malformed.
func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request payload")
		return false
	}
	return true
}

// pathID parses the mux variable name with parse. It reports false after writing
// a 400 reply when the value is not a valid id.
func pathID[I any](w http.ResponseWriter, r *http.Request, name, label string, parse func(string) (I, error)) (I, bool) {
	id, err := parse(mux.Vars(r)[name])
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid "+label+" ID")
		return id, false
	}
	return id, true
}
