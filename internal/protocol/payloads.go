package protocol

// Kind-specific payloads carried in StreamMessage.Data. The protocol layer
// only guarantees structural well-formedness; semantic checks live in the
// orchestrator.

// ConfigPayload updates audio settings for the session.
type ConfigPayload struct {
	SampleRate int    `json:"sample_rate,omitempty"`
	Encoding   string `json:"encoding,omitempty"`
	Language   string `json:"language,omitempty"`
}

// StartListeningPayload opens a listening turn.
type StartListeningPayload struct {
	SampleRate int    `json:"sample_rate,omitempty"`
	Encoding   string `json:"encoding,omitempty"`
	Language   string `json:"language,omitempty"`
}

// TranscriptPayload carries a partial or final transcription result.
type TranscriptPayload struct {
	Text       string  `json:"text"`
	IsFinal    bool    `json:"is_final"`
	Confidence float64 `json:"confidence"`
}

// ThinkingPayload accompanies thinking lifecycle events. Reason is set on
// thinking_stop: "completed", "cancelled", "timeout", "topic_change" or
// "barge_in".
type ThinkingPayload struct {
	Transcript string `json:"transcript,omitempty"`
	Reason     string `json:"reason,omitempty"`
}

// ResponseTextPayload carries the reasoned response text.
type ResponseTextPayload struct {
	Text string `json:"text"`
}

// ResponseCompletePayload closes the response text stream for a turn.
type ResponseCompletePayload struct {
	Text       string `json:"text"`
	DurationMs int64  `json:"duration_ms"`
}

// AudioStartPayload announces an outbound synthesized audio stream.
type AudioStartPayload struct {
	SampleRate int    `json:"sample_rate"`
	Format     string `json:"format"`
}

// AudioEndPayload closes an outbound audio stream.
type AudioEndPayload struct {
	ChunkCount int `json:"chunk_count"`
}

// AudioInterruptedPayload reports a cancelled audio stream. The client must
// discard any chunks already buffered locally.
type AudioInterruptedPayload struct {
	Reason string `json:"reason"`
}

// AnalysisErrorsPayload lists grammar or usage issues found in the learner's
// utterance. Supplementary, never blocks the conversation.
type AnalysisErrorsPayload struct {
	Errors []LanguageIssue `json:"errors"`
}

// LanguageIssue is a single flagged span in the transcript.
type LanguageIssue struct {
	Span       string `json:"span"`
	Kind       string `json:"kind"`
	Suggestion string `json:"suggestion,omitempty"`
}

// AnalysisScoresPayload carries per-dimension scores for the utterance.
type AnalysisScoresPayload struct {
	Scores map[string]float64 `json:"scores"`
}

// AnalysisConceptsPayload suggests related concepts for the learner.
type AnalysisConceptsPayload struct {
	Concepts []string `json:"concepts"`
}

// ConnectedPayload is the first message of every connection, sequence 0.
type ConnectedPayload struct {
	SessionID string `json:"session_id"`
}

// DisconnectedPayload is emitted best-effort on explicit close.
type DisconnectedPayload struct {
	Reason string `json:"reason,omitempty"`
}

// ErrorPayload names the failing stage: "protocol", "transcription",
// "reasoning" or "synthesis".
type ErrorPayload struct {
	Stage   string `json:"stage"`
	Message string `json:"message"`
}

// HeartbeatPayload keeps idle connections warm.
type HeartbeatPayload struct {
	ServerTime int64 `json:"server_time"`
}
