// Package protocol declares the behavioral failure taxonomy shared by every
// handler in the match engine. Handlers never return a raw error; they
// classify what happened so the router and dispatcher can react uniformly
// (log level, whether to notify the sender, whether to disconnect).
package protocol

// Outcome classifies the result of handling one inbound message.
type Outcome int

const (
	// OK means the message was applied normally.
	OK Outcome = iota
	// Protocol means the opcode or payload was malformed.
	Protocol
	// Authorization means the sender is not permitted to perform the action.
	Authorization
	// RateLimited means the action arrived under its minimum interval.
	RateLimited
	// NotFound means the message referenced a vessel, lock, or asset that no
	// longer exists (tombstone semantics apply; never an error to the caller).
	NotFound
	// Conflict means a lock (or similarly exclusive resource) is held by
	// someone else and the request did not carry force.
	Conflict
	// Quota means an asset upload exceeded a per-user or global cap even
	// after FIFO eviction of older items.
	Quota
	// Persistence means the storage adapter failed; in-memory state is kept
	// and the operation may be retried on a later tick boundary.
	Persistence
	// Fatal means the handler panicked; the tick recovers and continues.
	Fatal
)

// String renders the outcome for logging.
func (o Outcome) String() string {
	switch o {
	case OK:
		return "ok"
	case Protocol:
		return "protocol"
	case Authorization:
		return "authorization"
	case RateLimited:
		return "rate_limited"
	case NotFound:
		return "not_found"
	case Conflict:
		return "conflict"
	case Quota:
		return "quota"
	case Persistence:
		return "persistence"
	case Fatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// Result is the standard return shape for a handler: what happened, an
// optional reason for advisories/denials, and optional structured details
// (e.g. the current lock holder on Conflict).
type Result struct {
	Outcome Outcome
	Reason  string
	Details map[string]any
}

// Ok builds a successful result.
func Ok() Result { return Result{Outcome: OK} }

// Of builds a result carrying a reason.
func Of(outcome Outcome, reason string) Result {
	return Result{Outcome: outcome, Reason: reason}
}

// WithDetails attaches structured detail fields to a result.
func (r Result) WithDetails(details map[string]any) Result {
	r.Details = details
	return r
}

// Advisory reports whether the outcome should be surfaced to the sender as
// a one-line unicast advisory (per spec §7: only for user-initiated ops).
func (r Result) Advisory() bool {
	switch r.Outcome {
	case RateLimited, Quota, Conflict:
		return true
	default:
		return false
	}
}
