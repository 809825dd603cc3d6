package match

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"lunamatch/internal/config"
	"lunamatch/internal/dispatcher"
	"lunamatch/internal/logging"
)

// Filters narrows list_matches results (§6: "list_matches(filters)").
type Filters struct {
	Search string
	Mode   string
	Warp   string
}

func (f Filters) matches(label Label) bool {
	if f.Mode != "" && !strings.EqualFold(f.Mode, label.Mode) {
		return false
	}
	if f.Warp != "" && !strings.EqualFold(f.Warp, label.Warp) {
		return false
	}
	if f.Search != "" {
		needle := strings.ToLower(f.Search)
		haystack := strings.ToLower(label.ServerName + " " + label.Description)
		if !strings.Contains(haystack, needle) {
			return false
		}
	}
	return true
}

// TransportFactory builds the per-match Transport the Registry binds a new
// Runner's Dispatcher to. cmd/lunamatchd supplies one backed by
// internal/transport.Hub; tests supply an in-memory fake.
type TransportFactory func(matchID string) dispatcher.Transport

// Registry owns every live match instance in this process (§1: the
// discovery/create-match RPCs are "thin wrappers ... that invoke the core's
// lifecycle hooks" -- this is that invocation point).
type Registry struct {
	mu        sync.RWMutex
	matches   map[string]*Runner
	cancels   map[string]context.CancelFunc
	cfg       *config.Config
	store     Store
	logger    *logging.Logger
	transport TransportFactory
}

// NewRegistry constructs an empty match Registry. cfgTemplate supplies the
// defaults every created match inherits (tick rate, timeouts, rate limits);
// per-match capacity is overridden from the create_match setup.
func NewRegistry(cfgTemplate *config.Config, store Store, logger *logging.Logger, transport TransportFactory) *Registry {
	return &Registry{
		matches:   make(map[string]*Runner),
		cancels:   make(map[string]context.CancelFunc),
		cfg:       cfgTemplate,
		store:     store,
		logger:    logger,
		transport: transport,
	}
}

// Create instantiates and starts a new match (§6: "create_match(setup) ->
// {match_id}"), returning the generated identifier.
func (reg *Registry) Create(setup Setup) (string, error) {
	if reg == nil {
		return "", fmt.Errorf("registry is nil")
	}
	matchID := uuid.NewString()

	cfgCopy := *reg.cfg
	if setup.MaxPlayers > 0 {
		cfgCopy.MaxClients = setup.MaxPlayers
	}

	var transport dispatcher.Transport
	if reg.transport != nil {
		transport = reg.transport(matchID)
	}

	runner, err := New(&cfgCopy, matchID, transport, reg.store, reg.logger)
	if err != nil {
		return "", err
	}
	setup.MaxPlayers = cfgCopy.MaxClients
	runner.ApplyServerSetup(setup)
	runner.PublishModControlManifest()

	ctx, cancel := context.WithCancel(context.Background())
	runner.Start(ctx)

	reg.mu.Lock()
	reg.matches[matchID] = runner
	reg.cancels[matchID] = cancel
	reg.mu.Unlock()

	if reg.logger != nil {
		reg.logger.Info("registry: match created", logging.String("match_id", matchID), logging.String("server_name", setup.ServerName))
	}
	return matchID, nil
}

// Get returns the Runner for a match id, for the websocket upgrade path to
// bind an incoming connection to the right match.
func (reg *Registry) Get(matchID string) (*Runner, bool) {
	if reg == nil {
		return nil, false
	}
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	r, ok := reg.matches[matchID]
	return r, ok
}

// List serves list_matches, applying the optional filters to each match's
// public Label (§6).
func (reg *Registry) List(filters Filters) []Label {
	if reg == nil {
		return nil
	}
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	labels := make([]Label, 0, len(reg.matches))
	ids := make([]string, 0, len(reg.matches))
	for id := range reg.matches {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		label := reg.matches[id].Label()
		if filters.matches(label) {
			labels = append(labels, label)
		}
	}
	return labels
}

// Remove stops and evicts a terminated match (§4.3 Terminate).
func (reg *Registry) Remove(matchID string) {
	if reg == nil {
		return
	}
	reg.mu.Lock()
	defer reg.mu.Unlock()
	if cancel, ok := reg.cancels[matchID]; ok {
		cancel()
	}
	if runner, ok := reg.matches[matchID]; ok {
		runner.Stop()
	}
	delete(reg.matches, matchID)
	delete(reg.cancels, matchID)
}

// Sweep stops and evicts every match that has been empty past MaxEmptySec
// (§3: "destroyed when the tick returns a terminal marker", grounded on
// MaxEmptySec's grace window).
func (reg *Registry) Sweep() {
	if reg == nil || reg.cfg == nil || reg.cfg.MaxEmptySec <= 0 {
		return
	}
	threshold := reg.cfg.MaxEmptySec
	reg.mu.RLock()
	var expired []string
	for id, runner := range reg.matches {
		if runner.Empty() && int(runner.EmptySince().Seconds()) >= threshold {
			expired = append(expired, id)
		}
	}
	reg.mu.RUnlock()
	for _, id := range expired {
		if reg.logger != nil {
			reg.logger.Info("registry: reaping empty match", logging.String("match_id", id))
		}
		reg.Remove(id)
	}
}
