package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/playperu/reflexduel/internal/duel"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func readJSON(r *http.Request, v any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeDomainError maps the engine's error taxonomy onto HTTP statuses in one
// place. Claim race losses never reach here; they are a normal result, not
// an error.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, duel.ErrNotFound):
		writeError(w, http.StatusNotFound, "session not found")
	case errors.Is(err, duel.ErrPermission):
		writeError(w, http.StatusForbidden, "caller lacks the required role")
	case errors.Is(err, duel.ErrSelfJoin):
		writeError(w, http.StatusUnprocessableEntity, "cannot join your own session")
	case errors.Is(err, duel.ErrInvalidState):
		writeError(w, http.StatusConflict, "session is not in a state that allows this")
	case errors.Is(err, duel.ErrPrecondition):
		writeError(w, http.StatusConflict, "precondition not met")
	case errors.Is(err, duel.ErrConflict):
		writeError(w, http.StatusConflict, "join code conflict, retry")
	default:
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
