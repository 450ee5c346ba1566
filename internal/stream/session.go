package stream

import (
	"time"

	"github.com/InfinityZero3000/LexiLingo-sub001/domain/repositories"
)

// StreamStatus is the orchestrator's top-level state machine:
// idle -> listening -> thinking -> speaking -> listening (loop), with
// interrupted reachable from thinking/speaking and closed from anywhere.
type StreamStatus string

const (
	StatusIdle        StreamStatus = "idle"
	StatusListening   StreamStatus = "listening"
	StatusThinking    StreamStatus = "thinking"
	StatusSpeaking    StreamStatus = "speaking"
	StatusInterrupted StreamStatus = "interrupted"
	StatusClosed      StreamStatus = "closed"
)

// ListeningState is the per-turn transcript accumulation.
type ListeningState struct {
	// Fragments are the final transcripts accumulated for the current turn.
	Fragments []string
	// BestConfidence is the highest final-result confidence seen this turn.
	BestConfidence float64
	StartedAt      time.Time
}

// ThinkingTask is the handle of the single in-flight reasoning call.
type ThinkingTask struct {
	Gen        uint64
	Transcript string
	StartedAt  time.Time
	cancel     func()
}

// Cancel requests cooperative cancellation of the reasoning call.
func (t *ThinkingTask) Cancel() {
	if t != nil && t.cancel != nil {
		t.cancel()
	}
}

// SpeakingTask is the handle of the single in-flight synthesis stream.
type SpeakingTask struct {
	Gen        uint64
	Text       string
	StartedAt  time.Time
	ChunkCount int
	cancel     func()
}

// Cancel requests cooperative cancellation of the synthesis stream.
func (t *SpeakingTask) Cancel() {
	if t != nil && t.cancel != nil {
		t.cancel()
	}
}

// Session is the per-connection state, owned exclusively by the orchestrator
// goroutine. The stage sub-states make illegal combinations unrepresentable:
// at most one of Thinking/Speaking is non-nil at any instant.
type Session struct {
	ID     string
	UserID string
	Status StreamStatus

	Audio repositories.AudioConfig

	Listening ListeningState
	Thinking  *ThinkingTask
	Speaking  *SpeakingTask

	seq     uint64
	seqUsed bool
	gen     uint64
}

// NewSession creates a session in idle state. The outbound sequence counter
// starts at 0 and is never reused across reconnects; a new connection gets a
// new Session.
func NewSession(id, userID string, audio repositories.AudioConfig) *Session {
	return &Session{
		ID:     id,
		UserID: userID,
		Status: StatusIdle,
		Audio:  audio,
	}
}

// NextSeq returns the next outbound sequence number, starting at 0.
func (s *Session) NextSeq() uint64 {
	if !s.seqUsed {
		s.seqUsed = true
		return 0
	}
	s.seq++
	return s.seq
}

// NextGen advances the task generation. Results tagged with an older
// generation are stale and discarded on arrival.
func (s *Session) NextGen() uint64 {
	s.gen++
	return s.gen
}

// Gen returns the current task generation.
func (s *Session) Gen() uint64 { return s.gen }

// ActiveTask reports which of the exclusive tasks is running, if any.
func (s *Session) ActiveTask() (thinking, speaking bool) {
	return s.Thinking != nil, s.Speaking != nil
}

// BeginTurn resets the per-turn transcript accumulation.
func (s *Session) BeginTurn() {
	s.Listening = ListeningState{StartedAt: time.Now()}
}

// AccumulateFinal folds a final transcript result into the current turn.
func (s *Session) AccumulateFinal(res TranscriptResult) {
	s.Listening.Fragments = append(s.Listening.Fragments, res.Text)
	if res.Confidence > s.Listening.BestConfidence {
		s.Listening.BestConfidence = res.Confidence
	}
}
