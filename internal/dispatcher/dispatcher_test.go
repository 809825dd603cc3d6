package dispatcher

import (
	"testing"

	"lunamatch/internal/codec"
)

type fakeTransport struct {
	sent     map[string][][]byte
	sessions []string
	closed   map[string]string
}

func newFakeTransport(sessions ...string) *fakeTransport {
	return &fakeTransport{sent: make(map[string][][]byte), sessions: sessions, closed: make(map[string]string)}
}

func (f *fakeTransport) Send(sessionID string, opcode codec.Opcode, raw []byte) {
	f.sent[sessionID] = append(f.sent[sessionID], raw)
}

func (f *fakeTransport) Sessions() []string { return f.sessions }

func (f *fakeTransport) Close(sessionID string, reason string) { f.closed[sessionID] = reason }

func TestBroadcastReachesEverySession(t *testing.T) {
	ft := newFakeTransport("a", "b", "c")
	d := New(ft, nil)
	d.Broadcast(codec.Chat, codec.ChatPayload{Message: "hi"})
	for _, s := range []string{"a", "b", "c"} {
		if len(ft.sent[s]) != 1 {
			t.Fatalf("expected session %s to receive the broadcast", s)
		}
	}
}

func TestBroadcastExceptExcludesSender(t *testing.T) {
	ft := newFakeTransport("a", "b")
	d := New(ft, nil)
	d.BroadcastExcept(codec.Chat, codec.ChatPayload{Message: "hi"}, "a")
	if len(ft.sent["a"]) != 0 {
		t.Fatalf("expected sender excluded from broadcast_except")
	}
	if len(ft.sent["b"]) != 1 {
		t.Fatalf("expected other session to receive broadcast_except")
	}
}

func TestUnicastTargetsOnlyListedSessions(t *testing.T) {
	ft := newFakeTransport("a", "b", "c")
	d := New(ft, nil)
	d.Unicast(codec.Chat, codec.ChatPayload{Message: "hi"}, []string{"b"})
	if len(ft.sent["a"]) != 0 || len(ft.sent["c"]) != 0 {
		t.Fatalf("expected unicast to reach only the targeted session")
	}
	if len(ft.sent["b"]) != 1 {
		t.Fatalf("expected targeted session to receive the unicast")
	}
}

func TestEnqueueOrderPreservedPerRecipient(t *testing.T) {
	ft := newFakeTransport("a")
	d := New(ft, nil)
	d.Broadcast(codec.Chat, codec.ChatPayload{Message: "first"})
	d.Broadcast(codec.Chat, codec.ChatPayload{Message: "second"})
	if len(ft.sent["a"]) != 2 {
		t.Fatalf("expected 2 messages queued for session a")
	}
	first, _ := codec.Encode(codec.Chat, codec.ChatPayload{Message: "first"})
	second, _ := codec.Encode(codec.Chat, codec.ChatPayload{Message: "second"})
	if string(ft.sent["a"][0]) != string(first) || string(ft.sent["a"][1]) != string(second) {
		t.Fatalf("expected messages delivered in enqueue order, got %q then %q", ft.sent["a"][0], ft.sent["a"][1])
	}
}

func TestLabelUpdateStoresLatest(t *testing.T) {
	ft := newFakeTransport()
	d := New(ft, nil)
	if d.Label() != nil {
		t.Fatalf("expected no label before first update")
	}
	d.LabelUpdate(map[string]string{"server_name": "test"})
	if d.Label() == nil {
		t.Fatalf("expected label to be set after update")
	}
}

func TestKickDelegatesToTransport(t *testing.T) {
	ft := newFakeTransport("a")
	d := New(ft, nil)
	d.Kick("a", "idle")
	if ft.closed["a"] != "idle" {
		t.Fatalf("expected transport.Close called with reason, got %q", ft.closed["a"])
	}
}
