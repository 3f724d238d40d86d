package server

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/playperu/reflexduel/internal/bridge"
	"github.com/playperu/reflexduel/internal/database"
	"github.com/playperu/reflexduel/internal/duel"
	"github.com/playperu/reflexduel/internal/migrations"
	"github.com/playperu/reflexduel/internal/store"
)

func setupRouter(t *testing.T) chi.Router {
	t.Helper()

	db, err := database.Open(context.Background(), ":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	// One connection: each new connection to :memory: sees its own database.
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	if err := migrations.Run(db); err != nil {
		t.Fatalf("migrations: %v", err)
	}

	st := store.New(db)
	br := bridge.NewLocal()
	logger := slog.New(slog.DiscardHandler)

	svc := duel.NewService(st, br, st, logger, 100)
	svc.CountdownStep = 0
	svc.SpawnDelay = func() time.Duration { return 0 }

	r := chi.NewRouter()
	addRoutes(r, logger, Deps{
		Service:  svc,
		Identity: st,
		Bridge:   br,
		DB:       db,
	})
	return r
}

func doJSON(t *testing.T, r http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encoding body: %v", err)
		}
	}

	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(w.Body).Decode(&v); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	return v
}

func registerParticipant(t *testing.T, r http.Handler, name string) (duel.Participant, string) {
	t.Helper()
	w := doJSON(t, r, http.MethodPost, "/api/participants", "", RegisterRequest{DisplayName: name})
	if w.Code != http.StatusCreated {
		t.Fatalf("register %s: expected 201, got %d: %s", name, w.Code, w.Body)
	}
	resp := decode[RegisterResponse](t, w)
	return resp.Participant, resp.Token
}

func TestHealth(t *testing.T) {
	r := setupRouter(t)

	w := doJSON(t, r, http.MethodGet, "/healthz", "", nil)
	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d: %s", w.Code, w.Body)
	}
}

func TestRegisterValidation(t *testing.T) {
	r := setupRouter(t)

	w := doJSON(t, r, http.MethodPost, "/api/participants", "", RegisterRequest{DisplayName: "   "})
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for blank name, got %d", w.Code)
	}
}

func TestGetParticipant(t *testing.T) {
	r := setupRouter(t)
	p, _ := registerParticipant(t, r, "Ada")

	w := doJSON(t, r, http.MethodGet, "/api/participants/"+p.ID, "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	got := decode[duel.Participant](t, w)
	if got.DisplayName != "Ada" {
		t.Errorf("expected Ada, got %q", got.DisplayName)
	}

	w = doJSON(t, r, http.MethodGet, "/api/participants/missing", "", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", w.Code)
	}
}

func TestSessionRoutesRequireToken(t *testing.T) {
	r := setupRouter(t)

	if w := doJSON(t, r, http.MethodPost, "/api/sessions", "", nil); w.Code != http.StatusUnauthorized {
		t.Errorf("missing token: expected 401, got %d", w.Code)
	}
	if w := doJSON(t, r, http.MethodPost, "/api/sessions", "bogus", nil); w.Code != http.StatusUnauthorized {
		t.Errorf("bad token: expected 401, got %d", w.Code)
	}
}

func TestCreateAndJoinSession(t *testing.T) {
	r := setupRouter(t)
	_, hostToken := registerParticipant(t, r, "Ada")
	_, guestToken := registerParticipant(t, r, "Grace")
	_, thirdToken := registerParticipant(t, r, "Edsger")

	w := doJSON(t, r, http.MethodPost, "/api/sessions", hostToken, CreateSessionRequest{MaxRounds: 3})
	if w.Code != http.StatusCreated {
		t.Fatalf("create: expected 201, got %d: %s", w.Code, w.Body)
	}
	sess := decode[duel.Session](t, w)
	if sess.JoinCode == "" {
		t.Fatal("expected a join code")
	}

	w = doJSON(t, r, http.MethodPost, "/api/sessions/join", hostToken, JoinSessionRequest{JoinCode: sess.JoinCode})
	if w.Code != http.StatusUnprocessableEntity {
		t.Errorf("self join: expected 422, got %d", w.Code)
	}

	w = doJSON(t, r, http.MethodPost, "/api/sessions/join", guestToken, JoinSessionRequest{JoinCode: "XXXXXX"})
	if w.Code != http.StatusNotFound {
		t.Errorf("unknown code: expected 404, got %d", w.Code)
	}

	w = doJSON(t, r, http.MethodPost, "/api/sessions/join", guestToken, JoinSessionRequest{JoinCode: sess.JoinCode})
	if w.Code != http.StatusOK {
		t.Fatalf("join: expected 200, got %d: %s", w.Code, w.Body)
	}

	w = doJSON(t, r, http.MethodPost, "/api/sessions/join", thirdToken, JoinSessionRequest{JoinCode: sess.JoinCode})
	if w.Code != http.StatusConflict {
		t.Errorf("slot taken: expected 409, got %d", w.Code)
	}
}

func TestGetSessionForbiddenForOutsiders(t *testing.T) {
	r := setupRouter(t)
	_, hostToken := registerParticipant(t, r, "Ada")
	_, outsiderToken := registerParticipant(t, r, "Edsger")

	w := doJSON(t, r, http.MethodPost, "/api/sessions", hostToken, nil)
	sess := decode[duel.Session](t, w)

	if w := doJSON(t, r, http.MethodGet, "/api/sessions/"+sess.ID, hostToken, nil); w.Code != http.StatusOK {
		t.Errorf("host read: expected 200, got %d", w.Code)
	}
	if w := doJSON(t, r, http.MethodGet, "/api/sessions/"+sess.ID, outsiderToken, nil); w.Code != http.StatusForbidden {
		t.Errorf("outsider read: expected 403, got %d", w.Code)
	}
}

func TestPlayRoundTrip(t *testing.T) {
	r := setupRouter(t)
	_, hostToken := registerParticipant(t, r, "Ada")
	_, guestToken := registerParticipant(t, r, "Grace")

	w := doJSON(t, r, http.MethodPost, "/api/sessions", hostToken, CreateSessionRequest{MaxRounds: 3})
	sess := decode[duel.Session](t, w)

	base := "/api/sessions/" + sess.ID

	// Start before anyone joined.
	if w := doJSON(t, r, http.MethodPost, base+"/start", hostToken, nil); w.Code != http.StatusConflict {
		t.Errorf("premature start: expected 409, got %d", w.Code)
	}

	doJSON(t, r, http.MethodPost, "/api/sessions/join", guestToken, JoinSessionRequest{JoinCode: sess.JoinCode})

	// Only the host may start.
	if w := doJSON(t, r, http.MethodPost, base+"/start", guestToken, nil); w.Code != http.StatusForbidden {
		t.Errorf("guest start: expected 403, got %d", w.Code)
	}
	if w := doJSON(t, r, http.MethodPost, base+"/start", hostToken, nil); w.Code != http.StatusNoContent {
		t.Fatalf("start: expected 204, got %d: %s", w.Code, w.Body)
	}

	live := waitForTarget(t, r, base, hostToken)

	if w := doJSON(t, r, http.MethodPost, base+"/claim", hostToken, ClaimRequest{Round: 0}); w.Code != http.StatusBadRequest {
		t.Errorf("zero round: expected 400, got %d", w.Code)
	}

	w = doJSON(t, r, http.MethodPost, base+"/claim", guestToken, ClaimRequest{Round: live.Round})
	if w.Code != http.StatusOK {
		t.Fatalf("claim: expected 200, got %d: %s", w.Code, w.Body)
	}
	result := decode[duel.ClaimResult](t, w)
	if !result.Accepted {
		t.Error("expected claim accepted")
	}
	if result.Session.GuestScore != 1 {
		t.Errorf("expected guest score 1, got %d", result.Session.GuestScore)
	}

	// The loser of the race gets a 200 with Accepted=false, never an error.
	w = doJSON(t, r, http.MethodPost, base+"/claim", hostToken, ClaimRequest{Round: live.Round})
	if w.Code != http.StatusOK {
		t.Fatalf("late claim: expected 200, got %d: %s", w.Code, w.Body)
	}
	if decode[duel.ClaimResult](t, w).Accepted {
		t.Error("expected late claim rejected")
	}
}

func TestLeaveAndRematch(t *testing.T) {
	r := setupRouter(t)
	_, hostToken := registerParticipant(t, r, "Ada")
	_, guestToken := registerParticipant(t, r, "Grace")

	w := doJSON(t, r, http.MethodPost, "/api/sessions", hostToken, CreateSessionRequest{MaxRounds: 3})
	sess := decode[duel.Session](t, w)
	base := "/api/sessions/" + sess.ID

	doJSON(t, r, http.MethodPost, "/api/sessions/join", guestToken, JoinSessionRequest{JoinCode: sess.JoinCode})

	if w := doJSON(t, r, http.MethodPost, base+"/rematch", hostToken, nil); w.Code != http.StatusConflict {
		t.Errorf("rematch before finish: expected 409, got %d", w.Code)
	}

	if w := doJSON(t, r, http.MethodPost, base+"/leave", guestToken, nil); w.Code != http.StatusNoContent {
		t.Fatalf("guest leave: expected 204, got %d", w.Code)
	}
	w = doJSON(t, r, http.MethodGet, base, hostToken, nil)
	if got := decode[duel.Session](t, w); got.GuestID != nil {
		t.Errorf("expected guest slot freed, got %v", got.GuestID)
	}

	if w := doJSON(t, r, http.MethodPost, base+"/leave", hostToken, nil); w.Code != http.StatusNoContent {
		t.Fatalf("host leave: expected 204, got %d", w.Code)
	}
	if w := doJSON(t, r, http.MethodGet, base, hostToken, nil); w.Code != http.StatusNotFound {
		t.Errorf("expected 404 after host left, got %d", w.Code)
	}
}

func TestOpenAPIDocument(t *testing.T) {
	r := setupRouter(t)

	w := doJSON(t, r, http.MethodGet, "/openapi.json", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var doc map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &doc); err != nil {
		t.Fatalf("invalid openapi json: %v", err)
	}
	if _, ok := doc["paths"]; !ok {
		t.Error("expected a paths object in the document")
	}
}

func waitForTarget(t *testing.T, r http.Handler, base, token string) duel.Session {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		w := doJSON(t, r, http.MethodGet, base, token, nil)
		if w.Code != http.StatusOK {
			t.Fatalf("get session: %d: %s", w.Code, w.Body)
		}
		sess := decode[duel.Session](t, w)
		if sess.Target != nil {
			return sess
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("no target spawned within deadline")
	return duel.Session{}
}
