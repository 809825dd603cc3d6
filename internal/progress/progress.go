// Package progress implements the Share-Progress and Scenario half of
// Chat & Progress (§4.8): additive science/funds/reputation reconciliation
// atop the Match State's ScenarioState, and an opaque per-module relay that
// the server never interprets.
package progress

import (
	"lunamatch/internal/protocol"
	"lunamatch/internal/world"
)

// ApplyShareProgress applies an additive delta to the match's shared
// counters and returns the new absolute totals for broadcast (§4.8: "the
// server applies the deltas atomically and broadcasts the absolute new
// values").
func ApplyShareProgress(scenario *world.ScenarioState, scienceDelta, fundsDelta, reputationDelta float64) (science, funds, reputation float64, result protocol.Result) {
	if scenario == nil {
		return 0, 0, 0, protocol.Of(protocol.Fatal, "scenario_missing")
	}
	science, funds, reputation = scenario.ApplyDelta(scienceDelta, fundsDelta, reputationDelta)
	return science, funds, reputation, protocol.Ok()
}

// RelayScenario stores an opaque per-module blob without interpreting its
// contents (§4.8: "the server relays them ... and does not interpret their
// contents"); the router is responsible for broadcast-except-sender.
func RelayScenario(scenario *world.ScenarioState, module string, data []byte) protocol.Result {
	if scenario == nil {
		return protocol.Of(protocol.Fatal, "scenario_missing")
	}
	if module == "" {
		return protocol.Of(protocol.Protocol, "missing_module")
	}
	scenario.SetModule(module, data)
	return protocol.Ok()
}
