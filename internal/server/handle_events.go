package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/playperu/reflexduel/internal/duel"
)

// handleEvents streams committed session mutations over SSE. Each event
// carries the full session record, so a client reconciles with a single
// freshest-round-wins comparison. Missed events are recovered by polling
// GET /api/sessions/{id}, not by replay.
func handleEvents(svc *duel.Service, br duel.Bridge) http.HandlerFunc {
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

		flusher, ok := w.(http.Flusher)
		if !ok {
			writeError(w, http.StatusInternalServerError, "streaming not supported")
			return
		}

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.Header().Set("X-Accel-Buffering", "no")
		flusher.Flush()

		events, unsubscribe := br.Subscribe(sessionID)
		defer unsubscribe()

		ping := time.NewTicker(30 * time.Second)
		defer ping.Stop()

		for {
			select {
			case <-r.Context().Done():
				return
			case s, open := <-events:
				if !open {
					return
				}
				data, err := json.Marshal(s)
				if err != nil {
					continue
				}
				fmt.Fprintf(w, "event: session\ndata: %s\n\n", data)
				flusher.Flush()
			case <-ping.C:
				fmt.Fprintf(w, ": ping\n\n")
				flusher.Flush()
			}
		}
	}
}
