package chat

import "testing"

func TestSendRejectsEmptyMessage(t *testing.T) {
	r := NewRelay()
	result := r.Send("A", "")
	if result.Outcome != 1 { // protocol.Protocol
		t.Fatalf("expected Protocol outcome for empty message, got %v", result.Outcome)
	}
}

func TestSendRateLimitsBurst(t *testing.T) {
	r := NewRelay()
	first := r.Send("A", "hello")
	if first.Outcome != 0 {
		t.Fatalf("expected first message accepted, got %v", first.Outcome)
	}
	second := r.Send("A", "spam")
	if second.Outcome != 3 { // protocol.RateLimited
		t.Fatalf("expected second immediate message rate limited, got %v", second.Outcome)
	}
}

func TestSendIsPerSender(t *testing.T) {
	r := NewRelay()
	r.Send("A", "hello")
	second := r.Send("B", "hi")
	if second.Outcome != 0 {
		t.Fatalf("expected independent rate limit per sender, got %v", second.Outcome)
	}
}
