// Package transport adapts gorilla/websocket connections to the
// dispatcher.Transport interface: one read pump and one write pump per
// session, so Send() only ever enqueues onto a channel and never blocks on
// network I/O from the tick thread.
package transport

import (
	"encoding/binary"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"lunamatch/internal/codec"
	"lunamatch/internal/logging"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingInterval   = (pongWait * 9) / 10
	maxMessageSize = 1 << 20
	sendBuffer     = 64
)

// Inbound is one decoded frame delivered from a session's read pump to the
// Lifecycle Runner's per-tick inbox.
type Inbound struct {
	SessionID string
	Envelope  codec.Envelope
}

// Hub owns the live session set for one match and implements
// dispatcher.Transport.
type Hub struct {
	mu       sync.RWMutex
	sessions map[string]*session
	inbox    chan Inbound
	gone     chan string
	logger   *logging.Logger

	writeWait    time.Duration
	pongWait     time.Duration
	pingInterval time.Duration
}

type session struct {
	conn *websocket.Conn
	send chan []byte
	done chan struct{}
}

// NewHub constructs an empty Hub. inboxSize bounds the per-match inbound
// queue the Lifecycle Runner drains each tick.
func NewHub(inboxSize int, logger *logging.Logger) *Hub {
	if inboxSize <= 0 {
		inboxSize = 256
	}
	return &Hub{
		sessions:     make(map[string]*session),
		inbox:        make(chan Inbound, inboxSize),
		gone:         make(chan string, inboxSize),
		logger:       logger,
		writeWait:    writeWait,
		pongWait:     pongWait,
		pingInterval: pingInterval,
	}
}

// Inbox returns the channel the Lifecycle Runner drains each tick (§4.3
// loop's "drain in FIFO").
func (h *Hub) Inbox() <-chan Inbound {
	return h.inbox
}

// Disconnected reports session ids as their connection tears down, so the
// caller can run the Lifecycle Runner's Leave path without polling.
func (h *Hub) Disconnected() <-chan string {
	return h.gone
}

// Register adopts a live connection under a session id and starts its
// read/write pumps. The caller owns the connection's lifetime from here.
func (h *Hub) Register(sessionID string, conn *websocket.Conn) {
	s := &session{conn: conn, send: make(chan []byte, sendBuffer), done: make(chan struct{})}
	h.mu.Lock()
	h.sessions[sessionID] = s
	h.mu.Unlock()

	go h.writePump(sessionID, s)
	go h.readPump(sessionID, s)
}

func (h *Hub) readPump(sessionID string, s *session) {
	defer h.unregister(sessionID, s)

	s.conn.SetReadLimit(maxMessageSize)
	s.conn.SetReadDeadline(time.Now().Add(h.pongWait))
	s.conn.SetPongHandler(func(string) error {
		s.conn.SetReadDeadline(time.Now().Add(h.pongWait))
		return nil
	})

	for {
		_, raw, err := s.conn.ReadMessage()
		if err != nil {
			return
		}
		if len(raw) < 2 {
			continue
		}
		opcode := binary.BigEndian.Uint16(raw[:2])
		env, err := codec.Decode(opcode, raw[2:])
		if err != nil {
			if h.logger != nil {
				h.logger.Debug("transport: dropping malformed frame", logging.String("session", sessionID), logging.Error(err))
			}
			continue
		}
		select {
		case h.inbox <- Inbound{SessionID: sessionID, Envelope: env}:
		default:
			if h.logger != nil {
				h.logger.Warn("transport: inbox full, dropping frame", logging.String("session", sessionID))
			}
		}
	}
}

func (h *Hub) writePump(sessionID string, s *session) {
	ticker := time.NewTicker(h.pingInterval)
	defer ticker.Stop()
	defer h.unregister(sessionID, s)

	for {
		select {
		case raw, ok := <-s.send:
			s.conn.SetWriteDeadline(time.Now().Add(h.writeWait))
			if !ok {
				s.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := s.conn.WriteMessage(websocket.BinaryMessage, raw); err != nil {
				return
			}
		case <-ticker.C:
			s.conn.SetWriteDeadline(time.Now().Add(h.writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-s.done:
			return
		}
	}
}

func (h *Hub) unregister(sessionID string, s *session) {
	h.mu.Lock()
	current, ok := h.sessions[sessionID]
	if ok && current == s {
		delete(h.sessions, sessionID)
	}
	h.mu.Unlock()
	select {
	case <-s.done:
	default:
		close(s.done)
	}
	s.conn.Close()
	if ok && current == s {
		select {
		case h.gone <- sessionID:
		default:
			if h.logger != nil {
				h.logger.Warn("transport: disconnect queue full, dropping notice", logging.String("session", sessionID))
			}
		}
	}
}

// frame prefixes a payload with its big-endian uint16 opcode (§6 wire frame).
func frame(opcode codec.Opcode, payload []byte) []byte {
	out := make([]byte, 2+len(payload))
	binary.BigEndian.PutUint16(out[:2], uint16(opcode))
	copy(out[2:], payload)
	return out
}

// Send implements dispatcher.Transport.
func (h *Hub) Send(sessionID string, opcode codec.Opcode, raw []byte) {
	h.mu.RLock()
	s, ok := h.sessions[sessionID]
	h.mu.RUnlock()
	if !ok {
		return
	}
	select {
	case s.send <- frame(opcode, raw):
	default:
		if h.logger != nil {
			h.logger.Warn("transport: send buffer full, dropping frame", logging.String("session", sessionID))
		}
	}
}

// Sessions implements dispatcher.Transport.
func (h *Hub) Sessions() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	ids := make([]string, 0, len(h.sessions))
	for id := range h.sessions {
		ids = append(ids, id)
	}
	return ids
}

// Close implements dispatcher.Transport.
func (h *Hub) Close(sessionID string, reason string) {
	h.mu.RLock()
	s, ok := h.sessions[sessionID]
	h.mu.RUnlock()
	if !ok {
		return
	}
	if h.logger != nil {
		h.logger.Info("transport: kicking session", logging.String("session", sessionID), logging.String("reason", reason))
	}
	close(s.send)
}
