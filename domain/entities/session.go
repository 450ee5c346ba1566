package entities

import (
	"errors"
	"time"
)

// SessionRecord is the persisted history of one conversation session. The
// live per-connection state lives in internal/stream; this record only
// accumulates finished turns.
type SessionRecord struct {
	ID         string          `json:"id" bson:"_id,omitempty"`
	UserID     string          `json:"user_id" bson:"user_id"`
	Language   string          `json:"language" bson:"language"`
	StartedAt  time.Time       `json:"started_at" bson:"started_at"`
	EndedAt    *time.Time      `json:"ended_at,omitempty" bson:"ended_at,omitempty"`
	LastTurnAt *time.Time      `json:"last_turn_at,omitempty" bson:"last_turn_at,omitempty"`
	Turns      []Turn          `json:"turns" bson:"turns"`
	Metadata   SessionMetadata `json:"metadata" bson:"metadata"`
}

// Turn is one completed listening-thinking-speaking cycle.
type Turn struct {
	Timestamp    time.Time    `json:"timestamp" bson:"timestamp"`
	Transcript   string       `json:"transcript" bson:"transcript"`
	Confidence   float64      `json:"confidence" bson:"confidence"`
	Response     string       `json:"response" bson:"response"`
	ThinkingMs   int64        `json:"thinking_ms" bson:"thinking_ms"`
	SpeakingMs   int64        `json:"speaking_ms" bson:"speaking_ms"`
	Interrupted  bool         `json:"interrupted" bson:"interrupted"`
	TurnMetadata TurnMetadata `json:"metadata" bson:"metadata"`
}

// TurnMetadata carries supplementary analysis attached after the fact.
type TurnMetadata struct {
	IssueCount int                `json:"issue_count,omitempty" bson:"issue_count,omitempty"`
	Scores     map[string]float64 `json:"scores,omitempty" bson:"scores,omitempty"`
}

// SessionMetadata holds session-level settings.
type SessionMetadata struct {
	SampleRate int    `json:"sample_rate" bson:"sample_rate"`
	Encoding   string `json:"encoding" bson:"encoding"`
	ClientInfo string `json:"client_info,omitempty" bson:"client_info,omitempty"`
}

// NewSessionRecord creates a record for a freshly connected session.
func NewSessionRecord(id, userID, language string) *SessionRecord {
	return &SessionRecord{
		ID:        id,
		UserID:    userID,
		Language:  language,
		StartedAt: time.Now(),
		Turns:     make([]Turn, 0),
	}
}

// AddTurn appends a finished turn and advances the activity timestamps.
func (s *SessionRecord) AddTurn(turn Turn) {
	if turn.Timestamp.IsZero() {
		turn.Timestamp = time.Now()
	}
	s.Turns = append(s.Turns, turn)
	s.LastTurnAt = &turn.Timestamp
}

// End marks the session closed.
func (s *SessionRecord) End() {
	now := time.Now()
	s.EndedAt = &now
}

// Validate validates the record before persistence.
func (s *SessionRecord) Validate() error {
	if s.ID == "" {
		return errors.New("session id is required")
	}
	if s.UserID == "" {
		return errors.New("user_id is required")
	}
	return nil
}
