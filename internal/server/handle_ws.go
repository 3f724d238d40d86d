package server

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/playperu/reflexduel/internal/duel"
)

// handleWS is the websocket variant of the event stream for clients that
// prefer a bidirectional-capable transport. Same contract as SSE: full
// session records, at-least-once.
func handleWS(logger *slog.Logger, svc *duel.Service, br duel.Bridge) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionID := chi.URLParam(r, "sessionID")

		sess, err := svc.GetSession(r.Context(), sessionID)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		if !sess.IsParticipant(participantFrom(r).ID) {
			writeError(w, http.StatusForbidden, "not a participant of this session")
			return
		}

		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			InsecureSkipVerify: true,
		})
		if err != nil {
			logger.Error("websocket accept failed", "error", err)
			return
		}
		defer conn.CloseNow()

		events, unsubscribe := br.Subscribe(sessionID)
		defer unsubscribe()

		// Snapshot first so the client starts from current state.
		if err := wsjson.Write(r.Context(), conn, sess); err != nil {
			return
		}

		for {
			select {
			case <-r.Context().Done():
				return
			case s, open := <-events:
				if !open {
					return
				}
				if err := wsjson.Write(r.Context(), conn, s); err != nil {
					logger.Debug("websocket write failed", "error", err)
					return
				}
			}
		}
	}
}
