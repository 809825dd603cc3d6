// Command lunamatchd is the match engine process entrypoint: it loads
// configuration, wires the Storage Adapter and Match Registry, and serves
// the websocket join path alongside the discovery/operational HTTP surface
// (§1, §6).
package main

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"lunamatch/internal/config"
	"lunamatch/internal/dispatcher"
	"lunamatch/internal/httpapi"
	"lunamatch/internal/logging"
	"lunamatch/internal/match"
	"lunamatch/internal/storage"
	"lunamatch/internal/transport"
)

// Always allow localhost for dev convenience, grounded on the teacher's
// buildOriginChecker.
var localHosts = map[string]struct{}{
	"127.0.0.1": {},
	"localhost": {},
	"::1":       {},
}

func buildOriginChecker(logger *logging.Logger, allowlist []string) func(*http.Request) bool {
	if logger == nil {
		logger = logging.L()
	}
	allowed := make(map[string]struct{}, len(allowlist))
	for _, origin := range allowlist {
		u, err := url.Parse(origin)
		if err != nil || u.Scheme == "" || u.Host == "" {
			logger.Warn("ignoring invalid allowed origin", logging.String("origin", origin), logging.Error(err))
			continue
		}
		allowed[strings.ToLower(u.Scheme+"://"+u.Host)] = struct{}{}
	}
	return func(r *http.Request) bool {
		originHeader := r.Header.Get("Origin")
		if originHeader == "" {
			return false
		}
		originURL, err := url.Parse(originHeader)
		if err != nil || originURL.Host == "" {
			logger.Warn("rejecting request with invalid origin", logging.String("origin", originHeader), logging.Error(err))
			return false
		}
		if _, ok := localHosts[originURL.Hostname()]; ok {
			return true
		}
		if _, ok := allowed[strings.ToLower(originURL.Scheme+"://"+originURL.Host)]; ok {
			return true
		}
		logger.Warn("rejecting request from disallowed origin", logging.String("origin", originHeader))
		return false
	}
}

// hubSet tracks one transport.Hub per live match, so the websocket upgrade
// path can find the right Hub for an incoming connection's match_id without
// reaching through the Dispatcher's narrower Transport interface.
type hubSet struct {
	registry *match.Registry
	logger   *logging.Logger

	mu   sync.RWMutex
	hubs map[string]*transport.Hub
}

// transportFactory builds the Hub a new match's Dispatcher sends through,
// and starts the goroutine that drains its inbox/disconnects into the
// match's Lifecycle Runner.
func (hs *hubSet) transportFactory(matchID string) dispatcher.Transport {
	hub := transport.NewHub(256, hs.logger)

	hs.mu.Lock()
	if hs.hubs == nil {
		hs.hubs = make(map[string]*transport.Hub)
	}
	hs.hubs[matchID] = hub
	hs.mu.Unlock()

	go func() {
		for {
			select {
			case in, ok := <-hub.Inbox():
				if !ok {
					return
				}
				runner, ok := hs.registry.Get(matchID)
				if !ok {
					continue
				}
				runner.Router.Route(in.SessionID, in.Envelope)
			case sessionID, ok := <-hub.Disconnected():
				if !ok {
					return
				}
				if runner, ok := hs.registry.Get(matchID); ok {
					runner.Leave(sessionID)
				}
			}
		}
	}()
	return hub
}

func (hs *hubSet) hubFor(matchID string) (*transport.Hub, bool) {
	hs.mu.RLock()
	defer hs.mu.RUnlock()
	hub, ok := hs.hubs[matchID]
	return hub, ok
}

func main() {
	startedAt := time.Now()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.New(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize structured logger: %v\n", err)
		os.Exit(1)
	}
	logging.ReplaceGlobals(logger)
	defer func() { _ = logger.Sync() }()

	store, err := storage.Open(cfg.StorageDSN, logger)
	if err != nil {
		logger.Fatal("failed to open storage adapter", logging.Error(err))
	}
	defer func() { _ = store.Close() }()

	hubs := &hubSet{logger: logger}
	registry := match.NewRegistry(cfg, store, logger, hubs.transportFactory)
	hubs.registry = registry

	sweepCtx, sweepCancel := context.WithCancel(context.Background())
	defer sweepCancel()
	go func() {
		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				registry.Sweep()
			case <-sweepCtx.Done():
				return
			}
		}
	}()

	handlers := httpapi.NewHandlerSet(httpapi.Options{
		Logger:     logger,
		Registry:   registry,
		AdminToken: cfg.AdminToken,
		StartedAt:  startedAt,
	})

	router := mux.NewRouter()
	handlers.Register(router)
	router.HandleFunc("/ws", serveWS(registry, hubs, cfg, logger)).Methods(http.MethodGet)

	handler := logging.HTTPTraceMiddleware(logger)(router)
	server := &http.Server{Addr: cfg.Address, Handler: handler}

	go func() {
		logger.Info("lunamatchd listening", logging.String("address", cfg.Address))
		var serveErr error
		if cfg.TLSCertPath != "" {
			serveErr = server.ListenAndServeTLS(cfg.TLSCertPath, cfg.TLSKeyPath)
		} else {
			serveErr = server.ListenAndServe()
		}
		if serveErr != nil && serveErr != http.ErrServerClosed {
			logger.Fatal("lunamatchd server terminated", logging.Error(serveErr))
		}
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)
	<-shutdown
	logger.Info("lunamatchd shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Warn("graceful shutdown failed", logging.Error(err))
	}
}

// serveWS upgrades an incoming connection, binds it to the requested
// match's Hub, and joins it into that match's Lifecycle Runner, grounded on
// the teacher's serveWS capacity/keepalive handshake.
func serveWS(registry *match.Registry, hubs *hubSet, cfg *config.Config, logger *logging.Logger) http.HandlerFunc {
	upgrader := websocket.Upgrader{CheckOrigin: buildOriginChecker(logger, cfg.AllowedOrigins)}

	return func(w http.ResponseWriter, r *http.Request) {
		reqLogger := logger.With(logging.String("remote_addr", r.RemoteAddr))
		query := r.URL.Query()
		matchID := strings.TrimSpace(query.Get("match_id"))
		sessionID := strings.TrimSpace(query.Get("session_id"))
		userID := strings.TrimSpace(query.Get("user_id"))
		username := strings.TrimSpace(query.Get("username"))
		password := query.Get("password")
		var mods []string
		if raw := strings.TrimSpace(query.Get("mods")); raw != "" {
			mods = strings.Split(raw, ",")
		}
		if matchID == "" || sessionID == "" || userID == "" {
			http.Error(w, "match_id, session_id, and user_id are required", http.StatusBadRequest)
			return
		}

		runner, ok := registry.Get(matchID)
		if !ok {
			http.Error(w, "unknown match", http.StatusNotFound)
			return
		}
		if result := runner.JoinAttempt(userID, password, mods); result.Outcome != 0 {
			reqLogger.Warn("rejecting join attempt", logging.String("user_id", userID), logging.String("reason", result.Reason))
			http.Error(w, "join rejected: "+result.Reason, http.StatusForbidden)
			return
		}

		hub, ok := hubs.hubFor(matchID)
		if !ok {
			http.Error(w, "match transport unavailable", http.StatusServiceUnavailable)
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			reqLogger.Error("websocket upgrade failed", logging.Error(err))
			return
		}
		if cfg.MaxPayloadBytes > 0 {
			conn.SetReadLimit(cfg.MaxPayloadBytes)
		}

		hub.Register(sessionID, conn)
		runner.Join(sessionID, userID, username)
		reqLogger.Info("session joined match", logging.String("match_id", matchID), logging.String("session_id", sessionID))
	}
}

