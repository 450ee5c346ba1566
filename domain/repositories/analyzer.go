package repositories

import "context"

// Analysis is the supplementary language feedback for one learner utterance.
type Analysis struct {
	Issues   []Issue
	Scores   map[string]float64
	Concepts []string
}

// Issue is a flagged span in the learner's utterance.
type Issue struct {
	Span       string
	Kind       string
	Suggestion string
}

// Analyzer produces non-blocking language analysis for a finished utterance.
// It runs after the response is already on its way; failures are logged and
// dropped, never surfaced to the conversation.
type Analyzer interface {
	Analyze(ctx context.Context, transcript string, sc SessionContext) (Analysis, error)
}
