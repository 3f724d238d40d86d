package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/playperu/reflexduel/internal/duel"
)

type CreateSessionRequest struct {
	MaxRounds int `json:"maxRounds,omitempty"`
}

type JoinSessionRequest struct {
	JoinCode string `json:"joinCode"`
}

func handleCreateSession(svc *duel.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreateSessionRequest
		if r.ContentLength > 0 {
			if err := readJSON(r, &req); err != nil {
				writeError(w, http.StatusBadRequest, "invalid request body")
				return
			}
		}

		sess, err := svc.CreateSession(r.Context(), participantFrom(r).ID, req.MaxRounds)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, sess)
	}
}

func handleJoinSession(svc *duel.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req JoinSessionRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if req.JoinCode == "" {
			writeError(w, http.StatusBadRequest, "joinCode is required")
			return
		}

		sess, err := svc.JoinSession(r.Context(), req.JoinCode, participantFrom(r).ID)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, sess)
	}
}

// handleGetSession is the poll-on-reconnect read: a client that missed push
// deliveries re-derives state from the authoritative row.
func handleGetSession(svc *duel.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, err := svc.GetSession(r.Context(), chi.URLParam(r, "sessionID"))
		if err != nil {
			writeDomainError(w, err)
			return
		}
		if !sess.IsParticipant(participantFrom(r).ID) {
			writeError(w, http.StatusForbidden, "not a participant of this session")
			return
		}
		writeJSON(w, http.StatusOK, sess)
	}
}
