package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/InfinityZero3000/LexiLingo-sub001/domain/repositories"
)

const analyzerPrompt = `Analyze the following learner utterance for a
spoken-language tutoring app. Respond with JSON only, shaped as
{"errors":[{"span":"...","kind":"...","suggestion":"..."}],
"scores":{"grammar":0.0,"vocabulary":0.0,"fluency":0.0},
"concepts":["..."]}.
Utterance: %q`

// GeminiAnalyzer implements repositories.Analyzer with a second, cheaper pass
// over the learner's utterance. It shares the reasoner's client.
type GeminiAnalyzer struct {
	client *genai.Client
	logger *zap.Logger
	model  string
}

var _ repositories.Analyzer = (*GeminiAnalyzer)(nil)

// NewGeminiAnalyzer builds an analyzer over an existing reasoner's client.
func NewGeminiAnalyzer(reasoner *GeminiReasoner, logger *zap.Logger) *GeminiAnalyzer {
	return &GeminiAnalyzer{
		client: reasoner.client,
		logger: logger,
		model:  reasoner.model,
	}
}

type analyzerResponse struct {
	Errors []struct {
		Span       string `json:"span"`
		Kind       string `json:"kind"`
		Suggestion string `json:"suggestion"`
	} `json:"errors"`
	Scores   map[string]float64 `json:"scores"`
	Concepts []string           `json:"concepts"`
}

// Analyze runs the supplementary language analysis. Failures are returned to
// the orchestrator, which logs and drops them.
func (g *GeminiAnalyzer) Analyze(ctx context.Context, transcript string, sc repositories.SessionContext) (repositories.Analysis, error) {
	prompt := fmt.Sprintf(analyzerPrompt, transcript)
	contents := []*genai.Content{genai.NewContentFromText(prompt, genai.RoleUser)}

	response, err := g.client.Models.GenerateContent(ctx, g.model, contents, &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
	})
	if err != nil {
		return repositories.Analysis{}, fmt.Errorf("analysis call: %w", err)
	}
	if len(response.Candidates) == 0 || response.Candidates[0].Content == nil {
		return repositories.Analysis{}, fmt.Errorf("no analysis generated")
	}

	var raw strings.Builder
	for _, part := range response.Candidates[0].Content.Parts {
		raw.WriteString(part.Text)
	}

	var parsed analyzerResponse
	if err := json.Unmarshal([]byte(raw.String()), &parsed); err != nil {
		return repositories.Analysis{}, fmt.Errorf("unparseable analysis: %w", err)
	}

	analysis := repositories.Analysis{
		Scores:   parsed.Scores,
		Concepts: parsed.Concepts,
	}
	for _, e := range parsed.Errors {
		analysis.Issues = append(analysis.Issues, repositories.Issue{
			Span:       e.Span,
			Kind:       e.Kind,
			Suggestion: e.Suggestion,
		})
	}

	g.logger.Debug("analysis completed",
		zap.String("sessionID", sc.SessionID),
		zap.Int("issues", len(analysis.Issues)))
	return analysis, nil
}
