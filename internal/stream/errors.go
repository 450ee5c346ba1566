package stream

import (
	"errors"
	"fmt"
)

// Session-level failures. All of these are recovered locally: the session
// emits one error message for the failing stage and returns to listening.
// Only socket closure tears a session down.

// ErrReasoningTimeout marks a reasoning call that exceeded the configured
// max thinking duration. Surfaced identically to an explicit cancel.
var ErrReasoningTimeout = errors.New("reasoning timed out")

// TranscriptionError wraps a backend failure mid-utterance. The utterance is
// dropped but the boundary still triggers so the session does not get stuck.
type TranscriptionError struct {
	Err error
}

func (e *TranscriptionError) Error() string {
	return fmt.Sprintf("transcription: %v", e.Err)
}

func (e *TranscriptionError) Unwrap() error { return e.Err }

// ReasoningError wraps a failed reasoning call.
type ReasoningError struct {
	Err error
}

func (e *ReasoningError) Error() string {
	return fmt.Sprintf("reasoning: %v", e.Err)
}

func (e *ReasoningError) Unwrap() error { return e.Err }

// SynthesisError wraps a failed synthesis stream. Chunks already sent to the
// client are not retracted.
type SynthesisError struct {
	Err error
}

func (e *SynthesisError) Error() string {
	return fmt.Sprintf("synthesis: %v", e.Err)
}

func (e *SynthesisError) Unwrap() error { return e.Err }

// ProtocolViolation marks a semantically invalid control message, e.g. a
// cancel with nothing active. Logged, otherwise a no-op.
type ProtocolViolation struct {
	Reason string
}

func (e *ProtocolViolation) Error() string {
	return fmt.Sprintf("protocol violation: %s", e.Reason)
}
