package server

import (
	"encoding/json"
	"net/http"

	openapi "github.com/swaggest/openapi-go"
	"github.com/swaggest/openapi-go/openapi3"

	"github.com/playperu/reflexduel/internal/duel"
)

// ErrorResponse is returned for all error responses.
type ErrorResponse struct {
	Error string `json:"error"`
}

func newOpenAPISpec() *openapi3.Spec {
	r := openapi3.NewReflector()
	r.Spec.Info.Title = "ReflexDuel API"
	r.Spec.Info.Version = "0.1.0"
	r.Spec.Info.WithDescription("Backend API for the ReflexDuel two-player reaction game.")

	// GET /healthz
	getHealthz, _ := r.NewOperationContext(http.MethodGet, "/healthz")
	getHealthz.SetSummary("Health check")
	getHealthz.SetDescription("Returns the health status of backend dependencies.")
	getHealthz.AddRespStructure(nil, openapi.WithHTTPStatus(http.StatusOK))
	getHealthz.AddRespStructure(nil, openapi.WithHTTPStatus(http.StatusServiceUnavailable))
	_ = r.AddOperation(getHealthz)

	// POST /api/participants
	postParticipant, _ := r.NewOperationContext(http.MethodPost, "/api/participants")
	postParticipant.SetSummary("Register participant")
	postParticipant.SetDescription("Registers a display identity and returns its bearer token.")
	postParticipant.AddReqStructure(RegisterRequest{})
	postParticipant.AddRespStructure(RegisterResponse{}, openapi.WithHTTPStatus(http.StatusCreated))
	postParticipant.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusBadRequest))
	_ = r.AddOperation(postParticipant)

	// GET /api/participants/{id}
	getParticipant, _ := r.NewOperationContext(http.MethodGet, "/api/participants/{id}")
	getParticipant.SetSummary("Look up participant")
	getParticipant.SetDescription("Resolves a participant id to its display identity.")
	getParticipant.AddRespStructure(duel.Participant{}, openapi.WithHTTPStatus(http.StatusOK))
	getParticipant.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	_ = r.AddOperation(getParticipant)

	// POST /api/sessions
	postSession, _ := r.NewOperationContext(http.MethodPost, "/api/sessions")
	postSession.SetSummary("Create session")
	postSession.SetDescription("Opens a waiting room and returns it with a shareable join code. Requires Bearer token.")
	postSession.AddReqStructure(CreateSessionRequest{})
	postSession.AddRespStructure(duel.Session{}, openapi.WithHTTPStatus(http.StatusCreated))
	postSession.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusConflict))
	postSession.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusUnauthorized))
	_ = r.AddOperation(postSession)

	// POST /api/sessions/join
	postJoin, _ := r.NewOperationContext(http.MethodPost, "/api/sessions/join")
	postJoin.SetSummary("Join session")
	postJoin.SetDescription("Joins the waiting session matching the join code as guest. Requires Bearer token.")
	postJoin.AddReqStructure(JoinSessionRequest{})
	postJoin.AddRespStructure(duel.Session{}, openapi.WithHTTPStatus(http.StatusOK))
	postJoin.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	postJoin.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusConflict))
	postJoin.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusUnprocessableEntity))
	_ = r.AddOperation(postJoin)

	// GET /api/sessions/{sessionID}
	getSession, _ := r.NewOperationContext(http.MethodGet, "/api/sessions/{sessionID}")
	getSession.SetSummary("Get session")
	getSession.SetDescription("Returns the authoritative session record; used to re-derive state after missed events.")
	getSession.AddRespStructure(duel.Session{}, openapi.WithHTTPStatus(http.StatusOK))
	getSession.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	getSession.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusForbidden))
	_ = r.AddOperation(getSession)

	// POST /api/sessions/{sessionID}/start
	postStart, _ := r.NewOperationContext(http.MethodPost, "/api/sessions/{sessionID}/start")
	postStart.SetSummary("Start session")
	postStart.SetDescription("Host starts the duel. Responds after the countdown, once playing. Requires Bearer token.")
	postStart.AddRespStructure(nil, openapi.WithHTTPStatus(http.StatusNoContent))
	postStart.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusForbidden))
	postStart.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusConflict))
	_ = r.AddOperation(postStart)

	// POST /api/sessions/{sessionID}/claim
	postClaim, _ := r.NewOperationContext(http.MethodPost, "/api/sessions/{sessionID}/claim")
	postClaim.SetSummary("Submit claim")
	postClaim.SetDescription("Claims the active target for a round. A lost race returns accepted=false, not an error.")
	postClaim.AddReqStructure(ClaimRequest{})
	postClaim.AddRespStructure(duel.ClaimResult{}, openapi.WithHTTPStatus(http.StatusOK))
	postClaim.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusForbidden))
	postClaim.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	_ = r.AddOperation(postClaim)

	// POST /api/sessions/{sessionID}/leave
	postLeave, _ := r.NewOperationContext(http.MethodPost, "/api/sessions/{sessionID}/leave")
	postLeave.SetSummary("Leave session")
	postLeave.SetDescription("Host departure deletes the session; guest departure clears the guest slot.")
	postLeave.AddRespStructure(nil, openapi.WithHTTPStatus(http.StatusNoContent))
	postLeave.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	_ = r.AddOperation(postLeave)

	// POST /api/sessions/{sessionID}/rematch
	postRematch, _ := r.NewOperationContext(http.MethodPost, "/api/sessions/{sessionID}/rematch")
	postRematch.SetSummary("Request rematch")
	postRematch.SetDescription("Host resets a finished session back to waiting with scores zeroed.")
	postRematch.AddRespStructure(nil, openapi.WithHTTPStatus(http.StatusNoContent))
	postRematch.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusForbidden))
	postRematch.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusConflict))
	_ = r.AddOperation(postRematch)

	// GET /api/sessions/{sessionID}/events
	getEvents, _ := r.NewOperationContext(http.MethodGet, "/api/sessions/{sessionID}/events")
	getEvents.SetSummary("SSE event stream")
	getEvents.SetDescription("Server-Sent Events stream of full session records. Pass token as query parameter.")
	getEvents.AddRespStructure(nil, openapi.WithHTTPStatus(http.StatusOK),
		openapi.WithContentType("text/event-stream"))
	_ = r.AddOperation(getEvents)

	// GET /api/sessions/{sessionID}/ws
	getWS, _ := r.NewOperationContext(http.MethodGet, "/api/sessions/{sessionID}/ws")
	getWS.SetSummary("WebSocket event stream")
	getWS.SetDescription("Upgrades to a WebSocket delivering full session records. Pass token as query parameter.")
	getWS.AddRespStructure(nil, openapi.WithHTTPStatus(http.StatusSwitchingProtocols),
		openapi.WithContentType("text/plain"))
	_ = r.AddOperation(getWS)

	return r.Spec
}

func handleOpenAPI() http.HandlerFunc {
	spec := newOpenAPISpec()
	data, _ := json.MarshalIndent(spec, "", "  ")

	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(data)
	}
}
