package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/playperu/reflexduel/internal/duel"
)

type ClaimRequest struct {
	Round int `json:"round"`
}

// handleStartSession blocks through the countdown; the response arrives once
// the session is actually playing (or the start turned out to be stale).
func handleStartSession(svc *duel.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		err := svc.StartSession(r.Context(), chi.URLParam(r, "sessionID"), participantFrom(r).ID)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func handleClaim(svc *duel.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req ClaimRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if req.Round < 1 {
			writeError(w, http.StatusBadRequest, "round must be positive")
			return
		}

		result, err := svc.SubmitClaim(r.Context(), chi.URLParam(r, "sessionID"), participantFrom(r).ID, req.Round)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		// Accepted=false is a 200: losing the race presents as "opponent
		// scored", not as an error.
		writeJSON(w, http.StatusOK, result)
	}
}

func handleLeave(svc *duel.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		err := svc.LeaveSession(r.Context(), chi.URLParam(r, "sessionID"), participantFrom(r).ID)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func handleRematch(svc *duel.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		err := svc.RequestRematch(r.Context(), chi.URLParam(r, "sessionID"), participantFrom(r).ID)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
