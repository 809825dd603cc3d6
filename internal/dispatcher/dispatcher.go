// Package dispatcher implements the Dispatcher (§4.2): the five outbound
// operations every handler uses to talk back to clients, plus the ordering
// guarantee that messages enqueued within one tick reach any single
// recipient in enqueue order.
package dispatcher

import (
	"sync"

	"lunamatch/internal/codec"
	"lunamatch/internal/logging"
)

// Transport is the minimum surface the Dispatcher needs from the live
// connection layer. internal/transport's gorilla/websocket implementation
// satisfies this; tests use an in-memory fake.
type Transport interface {
	// Send enqueues one frame for delivery to a session's write pump. It
	// must preserve call order per session (§4.2's ordering guarantee).
	Send(sessionID string, opcode codec.Opcode, raw []byte)
	// Sessions returns every currently connected session id.
	Sessions() []string
	// Close requests the transport close a session after pending writes
	// drain (§4.2 kick).
	Close(sessionID string, reason string)
}

// Dispatcher is bound to one match and its Transport.
type Dispatcher struct {
	mu        sync.Mutex
	transport Transport
	logger    *logging.Logger
	label     []byte
}

// New constructs a Dispatcher over the given transport.
func New(transport Transport, logger *logging.Logger) *Dispatcher {
	return &Dispatcher{transport: transport, logger: logger}
}

func (d *Dispatcher) encode(opcode codec.Opcode, payload any) []byte {
	raw, err := codec.Encode(opcode, payload)
	if err != nil {
		if d.logger != nil {
			d.logger.Error("dispatcher: encode failed", logging.Error(err), logging.String("opcode", opcode.String()))
		}
		return nil
	}
	return raw
}

// Broadcast sends to every present session (§4.2).
func (d *Dispatcher) Broadcast(opcode codec.Opcode, payload any) {
	raw := d.encode(opcode, payload)
	if raw == nil || d.transport == nil {
		return
	}
	for _, session := range d.transport.Sessions() {
		d.transport.Send(session, opcode, raw)
	}
}

// BroadcastExcept sends to every present session other than the given
// sender (§4.2).
func (d *Dispatcher) BroadcastExcept(opcode codec.Opcode, payload any, sender string) {
	raw := d.encode(opcode, payload)
	if raw == nil || d.transport == nil {
		return
	}
	for _, session := range d.transport.Sessions() {
		if session == sender {
			continue
		}
		d.transport.Send(session, opcode, raw)
	}
}

// Unicast sends to a targeted list of sessions (§4.2).
func (d *Dispatcher) Unicast(opcode codec.Opcode, payload any, sessions []string) {
	raw := d.encode(opcode, payload)
	if raw == nil || d.transport == nil {
		return
	}
	for _, session := range sessions {
		d.transport.Send(session, opcode, raw)
	}
}

// LabelUpdate updates the discovery summary (§4.2). The dispatcher keeps
// the last-encoded label so the httpapi discovery RPC can serve it without
// round-tripping through the match's tick thread.
func (d *Dispatcher) LabelUpdate(label any) {
	raw := d.encode(codec.Settings, label)
	if raw == nil {
		return
	}
	d.mu.Lock()
	d.label = raw
	d.mu.Unlock()
}

// Label returns the last published label, or nil if none has been set yet.
func (d *Dispatcher) Label() []byte {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.label
}

// Kick requests the transport close a session after delivery of anything
// already enqueued (§4.2).
func (d *Dispatcher) Kick(sessionID string, reason string) {
	if d.transport == nil {
		return
	}
	d.transport.Close(sessionID, reason)
}
