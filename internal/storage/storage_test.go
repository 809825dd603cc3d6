package storage

import (
	"testing"
)

type fixture struct {
	Name  string `json:"name"`
	Value int    `json:"value"`
}

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open("file::memory:?cache=shared", nil)
	if err != nil {
		t.Fatalf("unexpected error opening store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestPutGetRoundTrip(t *testing.T) {
	s := openTestStore(t)
	if err := s.Put("bans", "user1", fixture{Name: "cheater", Value: 1}); err != nil {
		t.Fatalf("unexpected put error: %v", err)
	}
	var got fixture
	found, err := s.Get("bans", "user1", &got)
	if err != nil {
		t.Fatalf("unexpected get error: %v", err)
	}
	if !found {
		t.Fatalf("expected entry to be found")
	}
	if got.Name != "cheater" || got.Value != 1 {
		t.Fatalf("unexpected round-trip value: %#v", got)
	}
}

func TestGetMissingKeyReturnsNotFound(t *testing.T) {
	s := openTestStore(t)
	var got fixture
	found, err := s.Get("bans", "nobody", &got)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if found {
		t.Fatalf("expected missing key to report not found")
	}
}

func TestPutOverwritesExistingKey(t *testing.T) {
	s := openTestStore(t)
	s.Put("crafts", "k1", fixture{Name: "v1"})
	s.Put("crafts", "k1", fixture{Name: "v2"})
	var got fixture
	s.Get("crafts", "k1", &got)
	if got.Name != "v2" {
		t.Fatalf("expected overwrite to stick, got %q", got.Name)
	}
}

func TestDeleteRemovesKey(t *testing.T) {
	s := openTestStore(t)
	s.Put("crafts", "k1", fixture{Name: "v1"})
	if err := s.Delete("crafts", "k1"); err != nil {
		t.Fatalf("unexpected delete error: %v", err)
	}
	_, found, err := getTuple(s, "crafts", "k1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if found {
		t.Fatalf("expected key deleted")
	}
}

func getTuple(s *Store, collection, key string) (fixture, bool, error) {
	var f fixture
	found, err := s.Get(collection, key, &f)
	return f, found, err
}

func TestListOrdersByUpdateTime(t *testing.T) {
	s := openTestStore(t)
	s.Put("screenshots", "a", fixture{Name: "a"})
	s.Put("screenshots", "b", fixture{Name: "b"})
	s.Put("screenshots", "c", fixture{Name: "c"})

	keys, err := s.List("screenshots")
	if err != nil {
		t.Fatalf("unexpected list error: %v", err)
	}
	if len(keys) != 3 || keys[0] != "a" || keys[2] != "c" {
		t.Fatalf("expected FIFO order a,b,c, got %#v", keys)
	}
}
