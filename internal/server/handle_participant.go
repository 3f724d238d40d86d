package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/playperu/reflexduel/internal/duel"
)

type RegisterRequest struct {
	DisplayName string `json:"displayName"`
	AvatarRef   string `json:"avatarRef"`
}

type RegisterResponse struct {
	Participant duel.Participant `json:"participant"`
	Token       string           `json:"token"`
}

func handleRegister(ident IdentityStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req RegisterRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		req.DisplayName = strings.TrimSpace(req.DisplayName)
		if req.DisplayName == "" {
			writeError(w, http.StatusBadRequest, "displayName is required")
			return
		}

		p, token, err := ident.CreateParticipant(r.Context(), req.DisplayName, req.AvatarRef)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		writeJSON(w, http.StatusCreated, RegisterResponse{Participant: p, Token: token})
	}
}

func handleGetParticipant(ident IdentityStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, err := ident.GetParticipant(r.Context(), chi.URLParam(r, "id"))
		if errors.Is(err, duel.ErrNotFound) {
			writeError(w, http.StatusNotFound, "participant not found")
			return
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		writeJSON(w, http.StatusOK, p)
	}
}
