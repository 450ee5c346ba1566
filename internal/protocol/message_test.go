package protocol

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	streamID := "stream-1"
	msg := NewMessage(TypeTranscriptFinal, TranscriptPayload{
		Text:       "I went to the park yesterday",
		IsFinal:    true,
		Confidence: 0.92,
	})
	msg.StreamID = &streamID
	msg.Sequence = 7

	encoded, err := Encode(msg)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	decoded, err := Decode(encoded)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}

	if decoded.Type != msg.Type {
		t.Errorf("Type = %q, want %q", decoded.Type, msg.Type)
	}
	if decoded.Timestamp != msg.Timestamp {
		t.Errorf("Timestamp = %d, want %d", decoded.Timestamp, msg.Timestamp)
	}
	if decoded.Sequence != 7 {
		t.Errorf("Sequence = %d, want 7", decoded.Sequence)
	}
	if decoded.StreamID == nil || *decoded.StreamID != streamID {
		t.Errorf("StreamID = %v, want %q", decoded.StreamID, streamID)
	}
	if !bytes.Equal(decoded.Data, msg.Data) {
		t.Errorf("Data = %s, want %s", decoded.Data, msg.Data)
	}

	// A second encode of the decoded message must produce identical bytes.
	reencoded, err := Encode(decoded)
	if err != nil {
		t.Fatalf("re-Encode failed: %v", err)
	}
	if !bytes.Equal(encoded, reencoded) {
		t.Errorf("re-encoded bytes differ:\n got %s\nwant %s", reencoded, encoded)
	}
}

func TestEncodeAllKnownTypes(t *testing.T) {
	for kind := range knownTypes {
		msg := NewMessage(kind, nil)
		encoded, err := Encode(msg)
		if err != nil {
			t.Errorf("Encode(%s) failed: %v", kind, err)
			continue
		}
		decoded, err := Decode(encoded)
		if err != nil {
			t.Errorf("Decode(%s) failed: %v", kind, err)
			continue
		}
		if decoded.Type != kind {
			t.Errorf("round trip changed type: %q -> %q", kind, decoded.Type)
		}
	}
}

func TestDecodeRejectsMalformed(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"invalid JSON", `{"type": "cancel"`},
		{"not an object", `"cancel"`},
		{"missing type", `{"data": {}}`},
		{"empty type", `{"type": ""}`},
		{"unknown type", `{"type": "warp_drive"}`},
		{"wrong type field kind", `{"type": 42}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, err := Decode([]byte(tt.raw))
			if err == nil {
				t.Fatalf("Decode(%s) succeeded, want error", tt.raw)
			}
			var decodeErr *DecodeError
			if !errors.As(err, &decodeErr) {
				t.Errorf("error type = %T, want *DecodeError", err)
			}
			if msg.Type != "" || msg.Data != nil {
				t.Errorf("Decode returned partial message on error: %+v", msg)
			}
		})
	}
}

func TestDecodeDefaults(t *testing.T) {
	msg, err := Decode([]byte(`{"type": "cancel"}`))
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if msg.Timestamp == 0 {
		t.Error("Timestamp not defaulted")
	}
	if string(msg.Data) != "{}" {
		t.Errorf("Data = %s, want {}", msg.Data)
	}
	if msg.StreamID != nil {
		t.Errorf("StreamID = %v, want nil", msg.StreamID)
	}
}

func TestNewMessageNilPayload(t *testing.T) {
	msg := NewMessage(TypeHeartbeat, nil)
	if string(msg.Data) != "{}" {
		t.Errorf("Data = %s, want {}", msg.Data)
	}
	if msg.Timestamp == 0 {
		t.Error("Timestamp not set")
	}
}

func TestDecodePayload(t *testing.T) {
	raw := []byte(`{"type": "config", "data": {"sample_rate": 8000, "language": "vi-VN"}}`)
	msg, err := Decode(raw)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}

	var p ConfigPayload
	if err := DecodePayload(msg, &p); err != nil {
		t.Fatalf("DecodePayload failed: %v", err)
	}
	if p.SampleRate != 8000 {
		t.Errorf("SampleRate = %d, want 8000", p.SampleRate)
	}
	if p.Language != "vi-VN" {
		t.Errorf("Language = %q, want vi-VN", p.Language)
	}
}

func TestDecodePayloadMismatch(t *testing.T) {
	msg := StreamMessage{Type: TypeConfig, Data: json.RawMessage(`{"sample_rate": "not a number"}`)}
	var p ConfigPayload
	if err := DecodePayload(msg, &p); err == nil {
		t.Fatal("DecodePayload succeeded on mismatched payload, want error")
	}
}
