package coachflow

import (
	"net/http"
	"time"
)

// ReadOnlyState is the body of the read-only admin endpoints.
type ReadOnlyState struct {
	ReadOnly bool `json:"read_only"`
}

func (a *App) handleHealth(w http.ResponseWriter, r *http.Request) {
	response := map[string]any{
		"status":    "healthy",
		"store":     a.config.Store,
		"read_only": a.IsReadOnly(),
		"time":      time.Now().Unix(),
	}
	respondJSON(w, http.StatusOK, response)
}

func (a *App) handleGetReadOnly(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, ReadOnlyState{ReadOnly: a.IsReadOnly()})
}

// handleSetReadOnly switches maintenance mode. Writes fail with 503 while it is
// on; reads are unaffected.
func (a *App) handleSetReadOnly(w http.ResponseWriter, r *http.Request) {
	var req ReadOnlyState
	if !decode(w, r, &req) {
		return
	}
	a.SetReadOnly(req.ReadOnly)
	respondJSON(w, http.StatusOK, ReadOnlyState{ReadOnly: a.IsReadOnly()})
}
