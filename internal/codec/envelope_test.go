package codec

import "testing"

func TestDecodeRejectsMalformedPayload(t *testing.T) {
	if _, err := Decode(uint16(Chat), []byte(`{not json`)); err == nil {
		t.Fatalf("expected malformed JSON to produce a decode error")
	}
}

func TestDecodeAndDecodeAsRoundTrip(t *testing.T) {
	raw, err := Encode(Chat, ChatPayload{Message: "hello", Channel: "global"})
	if err != nil {
		t.Fatalf("unexpected encode error: %v", err)
	}
	env, err := Decode(uint16(Chat), raw)
	if err != nil {
		t.Fatalf("unexpected decode error: %v", err)
	}
	var payload ChatPayload
	if err := env.DecodeAs(&payload); err != nil {
		t.Fatalf("unexpected DecodeAs error: %v", err)
	}
	if payload.Message != "hello" || payload.Channel != "global" {
		t.Fatalf("round trip mismatch: %#v", payload)
	}
}

func TestDecodeAsMalformedReturnsProtocolStyleError(t *testing.T) {
	env := Envelope{Opcode: VesselUpdate, Payload: []byte(`{"vessel_id": 5}`)}
	var payload VesselUpdatePayload
	if err := env.DecodeAs(&payload); err == nil {
		t.Fatalf("expected type-mismatched payload to fail to decode")
	}
}

func TestOpcodeStringMnemonics(t *testing.T) {
	cases := map[Opcode]string{
		Handshake:    "HANDSHAKE",
		VesselUpdate: "VESSEL_UPDATE",
		AdminCommand: "ADMIN_COMMAND",
		Opcode(9999): "UNKNOWN",
	}
	for op, want := range cases {
		if got := op.String(); got != want {
			t.Fatalf("opcode %d: expected %q, got %q", op, want, got)
		}
	}
}

func TestDecodeEmptyPayload(t *testing.T) {
	env, err := Decode(uint16(Handshake), nil)
	if err != nil {
		t.Fatalf("unexpected error decoding empty payload: %v", err)
	}
	if len(env.Payload) != 0 {
		t.Fatalf("expected empty payload to remain empty")
	}
}
