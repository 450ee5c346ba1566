package llm

import (
	"context"
	"fmt"

	"github.com/InfinityZero3000/LexiLingo-sub001/domain/repositories"
)

// MockReasoner is a development stand-in for the reasoning engine.
type MockReasoner struct{}

// NewMockReasoner creates the stand-in reasoner.
func NewMockReasoner() *MockReasoner {
	return &MockReasoner{}
}

var _ repositories.Reasoner = (*MockReasoner)(nil)

// Invoke implements repositories.Reasoner.
func (m *MockReasoner) Invoke(ctx context.Context, transcript string, sc repositories.SessionContext) (repositories.ReasonerResult, error) {
	return repositories.ReasonerResult{
		ResponseText: fmt.Sprintf("That's great! You said: %q. Tell me more about it.", transcript),
		Metadata:     map[string]interface{}{"model": "mock"},
	}, nil
}

// MockAnalyzer is a development stand-in for the language analyzer.
type MockAnalyzer struct{}

// NewMockAnalyzer creates the stand-in analyzer.
func NewMockAnalyzer() *MockAnalyzer {
	return &MockAnalyzer{}
}

var _ repositories.Analyzer = (*MockAnalyzer)(nil)

// Analyze implements repositories.Analyzer.
func (m *MockAnalyzer) Analyze(ctx context.Context, transcript string, sc repositories.SessionContext) (repositories.Analysis, error) {
	return repositories.Analysis{
		Scores:   map[string]float64{"grammar": 0.8, "vocabulary": 0.7, "fluency": 0.75},
		Concepts: []string{"daily routines", "hobbies"},
	}, nil
}
