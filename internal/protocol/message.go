package protocol

import (
	"encoding/json"
	"fmt"
	"time"
)

// MessageType defines the kind of a stream message
type MessageType string

// Client to server message types
const (
	TypeStartListening MessageType = "start_listening"
	TypeStopListening  MessageType = "stop_listening"
	TypeCancel         MessageType = "cancel"
	TypeConfig         MessageType = "config"
	// TypeAudioChunk names the inbound binary audio frame. The frame itself is
	// sent out-of-band as a websocket binary message and never appears inside a
	// JSON envelope.
	TypeAudioChunk MessageType = "audio_chunk"
)

// Server to client message types
const (
	TypeTranscriptPartial MessageType = "transcript_partial"
	TypeTranscriptFinal   MessageType = "transcript_final"

	TypeThinkingStart  MessageType = "thinking_start"
	TypeThinkingPause  MessageType = "thinking_pause"
	TypeThinkingResume MessageType = "thinking_resume"
	TypeThinkingStop   MessageType = "thinking_stop"

	TypeResponseText     MessageType = "response_text"
	TypeResponseComplete MessageType = "response_complete"

	TypeAudioStart       MessageType = "audio_start"
	TypeAudioChunkOut    MessageType = "audio_chunk_out"
	TypeAudioEnd         MessageType = "audio_end"
	TypeAudioInterrupted MessageType = "audio_interrupted"

	TypeAnalysisErrors   MessageType = "analysis_errors"
	TypeAnalysisScores   MessageType = "analysis_scores"
	TypeAnalysisConcepts MessageType = "analysis_concepts"

	TypeConnected    MessageType = "connected"
	TypeDisconnected MessageType = "disconnected"
	TypeError        MessageType = "error"
	TypeHeartbeat    MessageType = "heartbeat"
)

// knownTypes is the closed set of wire strings. Decode rejects anything else.
var knownTypes = map[MessageType]bool{
	TypeStartListening:    true,
	TypeStopListening:     true,
	TypeCancel:            true,
	TypeConfig:            true,
	TypeAudioChunk:        true,
	TypeTranscriptPartial: true,
	TypeTranscriptFinal:   true,
	TypeThinkingStart:     true,
	TypeThinkingPause:     true,
	TypeThinkingResume:    true,
	TypeThinkingStop:      true,
	TypeResponseText:      true,
	TypeResponseComplete:  true,
	TypeAudioStart:        true,
	TypeAudioChunkOut:     true,
	TypeAudioEnd:          true,
	TypeAudioInterrupted:  true,
	TypeAnalysisErrors:    true,
	TypeAnalysisScores:    true,
	TypeAnalysisConcepts:  true,
	TypeConnected:         true,
	TypeDisconnected:      true,
	TypeError:             true,
	TypeHeartbeat:         true,
}

// IsKnown reports whether t is one of the enumerated message types.
func (t MessageType) IsKnown() bool {
	return knownTypes[t]
}

// StreamMessage is the wire envelope exchanged as websocket text frames.
// Timestamp is unix milliseconds. StreamID is null when the message is not
// bound to a specific stream. Sequence is assigned by the sole socket writer
// and is strictly increasing per connection.
type StreamMessage struct {
	Type      MessageType     `json:"type"`
	Data      json.RawMessage `json:"data"`
	Timestamp int64           `json:"timestamp"`
	StreamID  *string         `json:"stream_id"`
	Sequence  uint64          `json:"sequence"`
}

// DecodeError reports a malformed inbound frame. Decoding never yields a
// partial message: on error the returned message is the zero value.
type DecodeError struct {
	Reason string
	Err    error
}

func (e *DecodeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("decode: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("decode: %s", e.Reason)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// NewMessage builds an envelope for the given type and payload. The payload
// must be JSON-marshalable; payload structs in this package always are.
// Timestamp defaults to send-time when the caller does not set one afterward.
func NewMessage(t MessageType, payload interface{}) StreamMessage {
	data := json.RawMessage("{}")
	if payload != nil {
		if b, err := json.Marshal(payload); err == nil {
			data = b
		}
	}
	return StreamMessage{
		Type:      t,
		Data:      data,
		Timestamp: time.Now().UnixMilli(),
	}
}

// Encode serializes the envelope. Every constructible StreamMessage encodes
// successfully; a nil Data is written as an empty object.
func Encode(msg StreamMessage) ([]byte, error) {
	if len(msg.Data) == 0 {
		msg.Data = json.RawMessage("{}")
	}
	b, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("encode %s message: %w", msg.Type, err)
	}
	return b, nil
}

// Decode parses an inbound text frame into an envelope. Malformed JSON or an
// unknown type value is a DecodeError, never a silently ignored frame.
func Decode(raw []byte) (StreamMessage, error) {
	var msg StreamMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		return StreamMessage{}, &DecodeError{Reason: "invalid JSON", Err: err}
	}
	if msg.Type == "" {
		return StreamMessage{}, &DecodeError{Reason: "missing type field"}
	}
	if !msg.Type.IsKnown() {
		return StreamMessage{}, &DecodeError{Reason: fmt.Sprintf("unknown type %q", msg.Type)}
	}
	if msg.Timestamp == 0 {
		msg.Timestamp = time.Now().UnixMilli()
	}
	if len(msg.Data) == 0 {
		msg.Data = json.RawMessage("{}")
	}
	return msg, nil
}

// DecodePayload unmarshals the kind-specific payload into out.
func DecodePayload(msg StreamMessage, out interface{}) error {
	if err := json.Unmarshal(msg.Data, out); err != nil {
		return &DecodeError{Reason: fmt.Sprintf("invalid %s payload", msg.Type), Err: err}
	}
	return nil
}
