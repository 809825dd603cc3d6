package codec

import (
	"encoding/json"
	"fmt"
)

// Envelope is the decoded wire frame: an opcode plus its raw JSON payload
// (§6: "(opcode: uint16, payload: bytes)... UTF-8 JSON unless marked
// opaque").
type Envelope struct {
	Opcode  Opcode
	Payload json.RawMessage
}

// Decode parses a raw frame into an Envelope. It never panics on malformed
// input — callers are expected to log and drop per §4.1/§7's Protocol
// error class.
func Decode(opcode uint16, raw []byte) (Envelope, error) {
	if len(raw) == 0 {
		return Envelope{Opcode: Opcode(opcode)}, nil
	}
	var payload json.RawMessage
	if err := json.Unmarshal(raw, &payload); err != nil {
		return Envelope{}, fmt.Errorf("codec: malformed payload for opcode %d: %w", opcode, err)
	}
	return Envelope{Opcode: Opcode(opcode), Payload: payload}, nil
}

// Encode serializes a typed payload back into a raw frame for the
// Dispatcher.
func Encode(opcode Opcode, payload any) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("codec: failed to encode opcode %d: %w", opcode, err)
	}
	return raw, nil
}

// DecodeAs unmarshals the envelope's payload into the given destination
// type. Returns a Protocol-class error on malformed JSON.
func (e Envelope) DecodeAs(dst any) error {
	if len(e.Payload) == 0 {
		return nil
	}
	if err := json.Unmarshal(e.Payload, dst); err != nil {
		return fmt.Errorf("codec: malformed %s payload: %w", e.Opcode, err)
	}
	return nil
}
