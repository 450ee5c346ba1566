package repositories

import "context"

// Reasoner abstracts the external reasoning engine that turns a transcript
// into a tutor response. The call is opaque and cancellable; the caller bounds
// it with a context deadline.
type Reasoner interface {
	Invoke(ctx context.Context, transcript string, sc SessionContext) (ReasonerResult, error)
}

// SessionContext is the conversational context handed to the reasoner.
type SessionContext struct {
	SessionID string
	UserID    string
	Language  string
	History   []Exchange
}

// Exchange is one prior user/tutor turn.
type Exchange struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Role defines the sender of an exchange.
type Role string

const (
	UserRole   Role = "user"
	TutorRole  Role = "tutor"
	SystemRole Role = "system"
)

// ReasonerResult is the reasoner's answer plus opaque metadata (token counts,
// detected intent and the like) passed through to analysis.
type ReasonerResult struct {
	ResponseText string
	Metadata     map[string]interface{}
}
