package httpapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"

	"lunamatch/internal/config"
	"lunamatch/internal/dispatcher"
	"lunamatch/internal/logging"
	"lunamatch/internal/match"
)

func testRegistry(t *testing.T) *match.Registry {
	t.Helper()
	cfg := &config.Config{TickHz: 20, MaxClients: 8, IdleKickSec: 300, TimeSyncTicks: 20, DegradedTickThreshold: 3}
	return match.NewRegistry(cfg, nil, logging.NewTestLogger(), func(string) dispatcher.Transport {
		return nil
	})
}

func newTestHandlers(t *testing.T, registry *match.Registry) *HandlerSet {
	t.Helper()
	return NewHandlerSet(Options{
		Logger:     logging.NewTestLogger(),
		Registry:   registry,
		AdminToken: "s3cret",
		TimeSource: func() time.Time { return time.Date(2026, 7, 30, 12, 0, 0, 0, time.UTC) },
	})
}

func TestLivenessHandlerReturnsAlive(t *testing.T) {
	h := newTestHandlers(t, testRegistry(t))
	rr := httptest.NewRecorder()
	h.LivenessHandler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/livez", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	var resp struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Status != "alive" {
		t.Fatalf("expected alive, got %q", resp.Status)
	}
}

func TestReadinessHandlerReportsUnavailableWithoutRegistry(t *testing.T) {
	h := newTestHandlers(t, nil)
	rr := httptest.NewRecorder()
	h.ReadinessHandler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rr.Code)
	}
}

func TestCreateAndListMatchesRoundTrip(t *testing.T) {
	registry := testRegistry(t)
	h := newTestHandlers(t, registry)

	body, _ := json.Marshal(match.Setup{ServerName: "Mun Base", GameMode: "career"})
	rr := httptest.NewRecorder()
	h.CreateMatchHandler().ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/matches", bytes.NewReader(body)))
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rr.Code, rr.Body.String())
	}
	var created struct {
		MatchID string `json:"match_id"`
	}
	if err := json.NewDecoder(rr.Body).Decode(&created); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if created.MatchID == "" {
		t.Fatalf("expected a match id")
	}

	rr = httptest.NewRecorder()
	h.ListMatchesHandler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/matches?mode=career", nil))
	var listed struct {
		Servers []struct {
			MatchID string      `json:"match_id"`
			Label   match.Label `json:"label"`
		} `json:"servers"`
	}
	if err := json.NewDecoder(rr.Body).Decode(&listed); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(listed.Servers) != 1 || listed.Servers[0].Label.ServerName != "Mun Base" {
		t.Fatalf("expected the created match in the filtered list, got %#v", listed.Servers)
	}

	rr = httptest.NewRecorder()
	h.ListMatchesHandler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/matches?mode=sandbox", nil))
	json.NewDecoder(rr.Body).Decode(&listed)
	if len(listed.Servers) != 0 {
		t.Fatalf("expected no matches for an unmatched mode filter")
	}
}

func TestMatchCapacityHandlerRequiresAuthorization(t *testing.T) {
	registry := testRegistry(t)
	h := newTestHandlers(t, registry)
	matchID, err := registry.Create(match.Setup{ServerName: "Duna Relay"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	router := mux.NewRouter()
	h.Register(router)

	body, _ := json.Marshal(map[string]int{"max_players": 4})
	req := httptest.NewRequest(http.MethodPost, "/admin/matches/"+matchID+"/capacity", bytes.NewReader(body))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without a token, got %d", rr.Code)
	}

	req = httptest.NewRequest(http.MethodPost, "/admin/matches/"+matchID+"/capacity", bytes.NewReader(body))
	req.Header.Set("Authorization", "Bearer s3cret")
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 with a valid token, got %d: %s", rr.Code, rr.Body.String())
	}
}

func TestMetricsHandlerServesPrometheusText(t *testing.T) {
	registry := testRegistry(t)
	h := newTestHandlers(t, registry)
	registry.Create(match.Setup{ServerName: "Ike Station"})

	router := mux.NewRouter()
	h.Register(router)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if !bytes.Contains(rr.Body.Bytes(), []byte("lunamatch_matches 1")) {
		t.Fatalf("expected lunamatch_matches gauge to report one match, got:\n%s", rr.Body.String())
	}
}
