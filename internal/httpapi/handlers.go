// Package httpapi exposes the match engine's external HTTP surface (§6):
// liveness/readiness probes, Prometheus metrics, the discovery RPC
// (list_matches/create_match), and an admin capacity endpoint. It is a thin
// wrapper over internal/match.Registry -- every handler here only ever
// invokes the Registry's lifecycle hooks, never Match State directly.
package httpapi

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"lunamatch/internal/logging"
	"lunamatch/internal/match"
)

// RateLimiter gates how frequently sensitive operations may be invoked.
// golang.org/x/time/rate.Limiter satisfies this directly.
type RateLimiter interface {
	Allow() bool
}

// Options configures the HandlerSet.
type Options struct {
	Logger      *logging.Logger
	Registry    *match.Registry
	AdminToken  string
	RateLimiter RateLimiter
	TimeSource  func() time.Time
	StartedAt   time.Time
}

// HandlerSet bundles the match engine's operational HTTP handlers.
type HandlerSet struct {
	logger      *logging.Logger
	registry    *match.Registry
	adminToken  string
	rateLimiter RateLimiter
	now         func() time.Time
	startedAt   time.Time
	metrics     *prometheus.Registry
}

// NewHandlerSet constructs a HandlerSet using the provided options.
func NewHandlerSet(opts Options) *HandlerSet {
	logger := opts.Logger
	if logger == nil {
		logger = logging.L()
	}
	now := opts.TimeSource
	if now == nil {
		now = time.Now
	}
	startedAt := opts.StartedAt
	if startedAt.IsZero() {
		startedAt = now()
	}
	h := &HandlerSet{
		logger:      logger,
		registry:    opts.Registry,
		adminToken:  strings.TrimSpace(opts.AdminToken),
		rateLimiter: opts.RateLimiter,
		now:         now,
		startedAt:   startedAt,
		metrics:     prometheus.NewRegistry(),
	}
	h.registerCollectors()
	return h
}

// registerCollectors wires GaugeFuncs that read the Registry lazily at
// scrape time, so /metrics never drifts from live match state.
func (h *HandlerSet) registerCollectors() {
	h.metrics.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "lunamatch_uptime_seconds",
		Help: "Process uptime in seconds.",
	}, func() float64 { return h.now().Sub(h.startedAt).Seconds() }))

	h.metrics.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "lunamatch_matches",
		Help: "Currently active match instances.",
	}, func() float64 { return float64(len(h.registry.List(match.Filters{}))) }))

	h.metrics.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "lunamatch_players",
		Help: "Currently connected players across all matches.",
	}, func() float64 {
		total := 0
		for _, label := range h.registry.List(match.Filters{}) {
			total += label.Players
		}
		return float64(total)
	}))
}

// Register attaches all handlers to the provided mux.Router.
func (h *HandlerSet) Register(router *mux.Router) {
	if router == nil {
		return
	}
	router.HandleFunc("/livez", h.LivenessHandler()).Methods(http.MethodGet)
	router.HandleFunc("/readyz", h.ReadinessHandler()).Methods(http.MethodGet)
	router.Handle("/metrics", promhttp.HandlerFor(h.metrics, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	router.HandleFunc("/matches", h.ListMatchesHandler()).Methods(http.MethodGet)
	router.HandleFunc("/matches", h.CreateMatchHandler()).Methods(http.MethodPost)
	router.HandleFunc("/admin/matches/{match_id}/capacity", h.MatchCapacityHandler()).Methods(http.MethodPost)
}

// LivenessHandler reports that the HTTP server is reachable.
func (h *HandlerSet) LivenessHandler() http.HandlerFunc {
	type response struct {
		Status    string `json:"status"`
		Timestamp string `json:"timestamp"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, response{
			Status:    "alive",
			Timestamp: h.now().UTC().Format(time.RFC3339Nano),
		})
	}
}

// ReadinessHandler reports whether the process can host matches.
func (h *HandlerSet) ReadinessHandler() http.HandlerFunc {
	type response struct {
		Status        string  `json:"status"`
		Message       string  `json:"message,omitempty"`
		UptimeSeconds float64 `json:"uptime_seconds"`
		Matches       int     `json:"matches"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		status := http.StatusOK
		resp := response{Status: "ok", UptimeSeconds: h.now().Sub(h.startedAt).Seconds()}
		if h.registry == nil {
			status = http.StatusServiceUnavailable
			resp.Status = "error"
			resp.Message = "match registry not configured"
		} else {
			resp.Matches = len(h.registry.List(match.Filters{}))
		}
		writeJSON(w, status, resp)
	}
}

// ListMatchesHandler serves the discovery RPC's list_matches (§6):
// `list_matches(filters: {search?, mode?, warp?}) -> {servers: [...]}`.
func (h *HandlerSet) ListMatchesHandler() http.HandlerFunc {
	type server struct {
		MatchID string      `json:"match_id"`
		Label   match.Label `json:"label"`
	}
	type response struct {
		Servers []server `json:"servers"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		if h.registry == nil {
			http.Error(w, "match registry unavailable", http.StatusServiceUnavailable)
			return
		}
		query := r.URL.Query()
		filters := match.Filters{
			Search: strings.TrimSpace(query.Get("search")),
			Mode:   strings.TrimSpace(query.Get("mode")),
			Warp:   strings.TrimSpace(query.Get("warp")),
		}
		labels := h.registry.List(filters)
		resp := response{Servers: make([]server, 0, len(labels))}
		for _, label := range labels {
			resp.Servers = append(resp.Servers, server{MatchID: label.MatchID, Label: label})
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

// CreateMatchHandler serves the discovery RPC's create_match (§6):
// `create_match(setup) -> {match_id}`.
func (h *HandlerSet) CreateMatchHandler() http.HandlerFunc {
	type response struct {
		MatchID string `json:"match_id"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		reqLogger := h.logger.With(logging.String("handler", "create_match"), logging.String("remote_addr", r.RemoteAddr))
		if h.registry == nil {
			http.Error(w, "match registry unavailable", http.StatusServiceUnavailable)
			return
		}
		if h.rateLimiter != nil && !h.rateLimiter.Allow() {
			reqLogger.Warn("create_match denied: rate limit exceeded")
			http.Error(w, "too many requests", http.StatusTooManyRequests)
			return
		}
		var setup match.Setup
		if err := json.NewDecoder(r.Body).Decode(&setup); err != nil {
			reqLogger.Warn("create_match denied: invalid payload", logging.Error(err))
			http.Error(w, "invalid request payload", http.StatusBadRequest)
			return
		}
		matchID, err := h.registry.Create(setup)
		if err != nil {
			reqLogger.Error("create_match failed", logging.Error(err))
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		reqLogger.Info("match created", logging.String("match_id", matchID))
		writeJSON(w, http.StatusCreated, response{MatchID: matchID})
	}
}

// MatchCapacityHandler authorises and applies runtime capacity adjustments
// for one match, reusing the teacher's bearer-token admin pattern.
func (h *HandlerSet) MatchCapacityHandler() http.HandlerFunc {
	type request struct {
		MinPlayers *int `json:"min_players"`
		MaxPlayers *int `json:"max_players"`
	}
	type response struct {
		Status  string `json:"status"`
		MatchID string `json:"match_id"`
		Message string `json:"message,omitempty"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		logger := h.logger.With(logging.String("handler", "match_capacity"), logging.String("remote_addr", r.RemoteAddr))
		if h.registry == nil {
			http.Error(w, "match management unavailable", http.StatusServiceUnavailable)
			return
		}
		if h.adminToken == "" {
			logger.Warn("capacity adjustment denied: admin auth disabled")
			http.Error(w, "admin authentication not configured", http.StatusForbidden)
			return
		}
		if !h.authorise(r) {
			logger.Warn("capacity adjustment denied: unauthorized request")
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		matchID := mux.Vars(r)["match_id"]
		runner, ok := h.registry.Get(matchID)
		if !ok {
			http.Error(w, "unknown match", http.StatusNotFound)
			return
		}
		var req request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			logger.Warn("capacity adjustment denied: invalid payload", logging.Error(err))
			http.Error(w, "invalid request payload", http.StatusBadRequest)
			return
		}
		current := runner.SessionSnapshot()
		minPlayers := current.Capacity.MinPlayers
		maxPlayers := current.Capacity.MaxPlayers
		if req.MinPlayers != nil {
			minPlayers = *req.MinPlayers
		}
		if req.MaxPlayers != nil {
			maxPlayers = *req.MaxPlayers
		}
		if _, err := runner.AdjustCapacity(minPlayers, maxPlayers); err != nil {
			logger.Warn("capacity adjustment denied: invalid configuration", logging.Error(err))
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		logger.Info("match capacity adjusted", logging.Int("min_players", minPlayers), logging.Int("max_players", maxPlayers))
		writeJSON(w, http.StatusOK, response{Status: "ok", MatchID: matchID})
	}
}

func (h *HandlerSet) authorise(r *http.Request) bool {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	var token string
	if len(header) > 7 && strings.EqualFold(header[:7], "Bearer ") {
		token = strings.TrimSpace(header[7:])
	} else if header != "" {
		token = header
	}
	if token == "" {
		token = strings.TrimSpace(r.Header.Get("X-Admin-Token"))
	}
	if token == "" {
		token = strings.TrimSpace(r.URL.Query().Get("token"))
	}
	if token == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(token), []byte(h.adminToken)) == 1
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	if status != http.StatusOK {
		w.WriteHeader(status)
	}
	_ = json.NewEncoder(w).Encode(payload)
}
