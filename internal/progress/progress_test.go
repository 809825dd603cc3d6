package progress

import (
	"testing"

	"lunamatch/internal/world"
)

func TestApplyShareProgressIsAdditive(t *testing.T) {
	scenario := world.NewScenarioState()
	science, funds, reputation, result := ApplyShareProgress(scenario, 10, -500, 2)
	if result.Outcome != 0 {
		t.Fatalf("expected OK, got %v", result.Outcome)
	}
	if science != 10 || funds != -500 || reputation != 2 {
		t.Fatalf("unexpected totals after first delta: %v %v %v", science, funds, reputation)
	}
	science, funds, reputation, _ = ApplyShareProgress(scenario, 5, -100, -1)
	if science != 15 || funds != -600 || reputation != 1 {
		t.Fatalf("unexpected totals after second delta: %v %v %v", science, funds, reputation)
	}
}

func TestRelayScenarioStoresOpaqueBlob(t *testing.T) {
	scenario := world.NewScenarioState()
	result := RelayScenario(scenario, "contracts", []byte("opaque"))
	if result.Outcome != 0 {
		t.Fatalf("expected OK, got %v", result.Outcome)
	}
}

func TestRelayScenarioRejectsMissingModule(t *testing.T) {
	scenario := world.NewScenarioState()
	result := RelayScenario(scenario, "", []byte("x"))
	if result.Outcome != 1 { // protocol.Protocol
		t.Fatalf("expected Protocol outcome for missing module, got %v", result.Outcome)
	}
}
