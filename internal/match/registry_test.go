package match

import (
	"testing"

	"lunamatch/internal/dispatcher"
)

func fakeTransportFactory(string) dispatcher.Transport {
	return newFakeTransport()
}

func TestRegistryCreateAssignsIDAndStartsMatch(t *testing.T) {
	reg := NewRegistry(testConfig(), nil, nil, fakeTransportFactory)
	matchID, err := reg.Create(Setup{ServerName: "Alpha Station", GameMode: "science"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if matchID == "" {
		t.Fatalf("expected a non-empty match id")
	}
	runner, ok := reg.Get(matchID)
	if !ok {
		t.Fatalf("expected created match to be retrievable")
	}
	if runner.setup.ServerName != "Alpha Station" {
		t.Fatalf("expected setup to be recorded on the runner")
	}
	if meta := runner.SessionSnapshot().Metadata; meta.ServerName != "Alpha Station" || meta.GameMode != "science" {
		t.Fatalf("expected the session snapshot to mirror the setup metadata, got %+v", meta)
	}
	reg.Remove(matchID)
}

func TestRegistryListAppliesFilters(t *testing.T) {
	reg := NewRegistry(testConfig(), nil, nil, fakeTransportFactory)
	id1, _ := reg.Create(Setup{ServerName: "Science Outpost", GameMode: "science"})
	_, _ = reg.Create(Setup{ServerName: "Sandbox Playground", GameMode: "sandbox"})

	results := reg.List(Filters{Mode: "science"})
	if len(results) != 1 {
		t.Fatalf("expected exactly one science-mode match, got %d", len(results))
	}
	if results[0].ServerName != "Science Outpost" {
		t.Fatalf("expected the science outpost label, got %q", results[0].ServerName)
	}

	results = reg.List(Filters{Search: "sandbox"})
	if len(results) != 1 || results[0].Mode != "sandbox" {
		t.Fatalf("expected the sandbox match via search filter, got %#v", results)
	}

	all := reg.List(Filters{})
	if len(all) != 2 {
		t.Fatalf("expected both matches with no filter, got %d", len(all))
	}

	reg.Remove(id1)
	if len(reg.List(Filters{})) != 1 {
		t.Fatalf("expected one match remaining after removal")
	}
}

func TestRegistryGetUnknownMatch(t *testing.T) {
	reg := NewRegistry(testConfig(), nil, nil, fakeTransportFactory)
	if _, ok := reg.Get("does-not-exist"); ok {
		t.Fatalf("expected unknown match id to miss")
	}
}
