package server

import (
	"log/slog"
	"os"

	"github.com/go-chi/chi/v5"
	"github.com/swaggest/swgui/v5emb"
)

func addRoutes(r chi.Router, logger *slog.Logger, deps Deps) {
	r.Get("/openapi.json", handleOpenAPI())
	r.Mount("/docs", v5emb.New("ReflexDuel API", "/openapi.json", "/docs"))
	r.Get("/healthz", handleHealth(logger, deps.DB, deps.Redis))

	r.Post("/api/participants", handleRegister(deps.Identity))
	r.Get("/api/participants/{id}", handleGetParticipant(deps.Identity))

	// Session routes: caller resolved from bearer token (or ?token= for the
	// streaming endpoints, which browsers cannot set headers on).
	r.Route("/api/sessions", func(r chi.Router) {
		r.Use(authMiddleware(deps.Identity))
		r.Post("/", handleCreateSession(deps.Service))
		r.Post("/join", handleJoinSession(deps.Service))

		r.Route("/{sessionID}", func(r chi.Router) {
			r.Get("/", handleGetSession(deps.Service))
			r.Post("/start", handleStartSession(deps.Service))
			r.Post("/claim", handleClaim(deps.Service))
			r.Post("/leave", handleLeave(deps.Service))
			r.Post("/rematch", handleRematch(deps.Service))
			r.Get("/events", handleEvents(deps.Service, deps.Bridge))
			r.Get("/ws", handleWS(logger, deps.Service, deps.Bridge))
		})
	})

	if deps.SPADir != "" {
		if info, err := os.Stat(deps.SPADir); err == nil && info.IsDir() {
			logger.Info("serving SPA", "dir", deps.SPADir)
			r.NotFound(handleSPA(deps.SPADir))
		}
	}
}
