// Package chat implements the Chat half of Chat & Progress (§4.8/§6 opcode
// 2): a per-user rate-limited relay with no server-side interpretation of
// message contents.
package chat

import (
	"time"

	"golang.org/x/time/rate"

	"lunamatch/internal/protocol"
)

// MinInterval is the minimum spacing between two chat messages from the
// same sender (§9 Design Notes: rate-limit table; chat's own bound is not
// enumerated in one spot in spec.md but is required by §4.2/§7's
// rate-limit error class).
const MinInterval = time.Second

// Relay enforces the per-sender chat rate limit.
type Relay struct {
	limiters map[string]*rate.Limiter
}

// NewRelay constructs an empty Relay.
func NewRelay() *Relay {
	return &Relay{limiters: make(map[string]*rate.Limiter)}
}

func (r *Relay) limiter(sender string) *rate.Limiter {
	l, ok := r.limiters[sender]
	if !ok {
		l = rate.NewLimiter(rate.Every(MinInterval), 1)
		r.limiters[sender] = l
	}
	return l
}

// Send validates a chat message's rate limit; the router is responsible
// for broadcast_except(sender) on success (§4.2).
func (r *Relay) Send(sender, message string) protocol.Result {
	if message == "" {
		return protocol.Of(protocol.Protocol, "empty_message")
	}
	if !r.limiter(sender).Allow() {
		return protocol.Of(protocol.RateLimited, "chat_rate_limit")
	}
	return protocol.Ok()
}

// Forget drops rate-limit state for a departed session.
func (r *Relay) Forget(sender string) {
	delete(r.limiters, sender)
}
