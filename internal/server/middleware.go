package server

import (
	"context"
	"net/http"
	"strings"

	"github.com/playperu/reflexduel/internal/duel"
)

// IdentityStore resolves and registers participant identities.
type IdentityStore interface {
	CreateParticipant(ctx context.Context, displayName, avatarRef string) (duel.Participant, string, error)
	GetParticipant(ctx context.Context, id string) (duel.Participant, error)
	ParticipantByToken(ctx context.Context, token string) (duel.Participant, error)
}

type ctxKey int

const ctxKeyParticipant ctxKey = iota

// authMiddleware resolves the caller from a Bearer token, or from a ?token=
// query parameter for EventSource/WebSocket clients.
func authMiddleware(ident IdentityStore) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, found := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !found || token == "" {
				token = r.URL.Query().Get("token")
			}
			if token == "" {
				writeError(w, http.StatusUnauthorized, "missing participant token")
				return
			}

			p, err := ident.ParticipantByToken(r.Context(), token)
			if err != nil {
				writeError(w, http.StatusUnauthorized, "invalid participant token")
				return
			}

			ctx := context.WithValue(r.Context(), ctxKeyParticipant, p)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func participantFrom(r *http.Request) duel.Participant {
	return r.Context().Value(ctxKeyParticipant).(duel.Participant)
}
