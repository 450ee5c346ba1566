package llm

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/InfinityZero3000/LexiLingo-sub001/domain/repositories"
)

const (
	defaultModel       = "gemini-2.0-flash"
	defaultTemperature = 0.7
	defaultTopP        = 0.95
	defaultMaxTokens   = 512
)

const tutorSystemPrompt = `You are a friendly spoken-language tutor. The user
is practicing conversation; reply naturally in the language they are learning,
keep answers short enough to speak aloud, and gently model correct usage
without lecturing.`

// GeminiReasoner implements repositories.Reasoner using Google's Gemini API.
type GeminiReasoner struct {
	client      *genai.Client
	logger      *zap.Logger
	model       string
	temperature float32
	topP        float32
	maxTokens   int32
}

var _ repositories.Reasoner = (*GeminiReasoner)(nil)

// NewGeminiReasoner creates a Gemini-backed reasoner. GEMINI_API_KEY is
// required.
func NewGeminiReasoner(ctx context.Context, logger *zap.Logger) (*GeminiReasoner, error) {
	apiKey := os.Getenv("GEMINI_API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY environment variable is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	model := os.Getenv("GEMINI_MODEL")
	if model == "" {
		model = defaultModel
	}

	return &GeminiReasoner{
		client:      client,
		logger:      logger,
		model:       model,
		temperature: defaultTemperature,
		topP:        defaultTopP,
		maxTokens:   defaultMaxTokens,
	}, nil
}

// Invoke sends the transcript plus conversation history to the model and
// returns the tutor's reply. The caller bounds the call with its context.
func (g *GeminiReasoner) Invoke(ctx context.Context, transcript string, sc repositories.SessionContext) (repositories.ReasonerResult, error) {
	var contents []*genai.Content
	contents = append(contents, genai.NewContentFromText(tutorSystemPrompt, genai.RoleUser))
	for _, ex := range sc.History {
		var role genai.Role = genai.RoleUser
		if ex.Role == repositories.TutorRole {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(ex.Content, role))
	}
	contents = append(contents, genai.NewContentFromText(transcript, genai.RoleUser))

	config := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(g.temperature),
		TopP:            genai.Ptr(g.topP),
		MaxOutputTokens: g.maxTokens,
	}

	response, err := g.client.Models.GenerateContent(ctx, g.model, contents, config)
	if err != nil {
		return repositories.ReasonerResult{}, fmt.Errorf("generate content: %w", err)
	}
	if len(response.Candidates) == 0 || response.Candidates[0].Content == nil {
		return repositories.ReasonerResult{}, fmt.Errorf("no content generated")
	}

	var text string
	for _, part := range response.Candidates[0].Content.Parts {
		text += part.Text
	}
	if text == "" {
		return repositories.ReasonerResult{}, fmt.Errorf("empty response")
	}

	metadata := map[string]interface{}{"model": g.model}
	if response.UsageMetadata != nil {
		metadata["total_tokens"] = response.UsageMetadata.TotalTokenCount
	}

	g.logger.Debug("reasoner responded",
		zap.String("sessionID", sc.SessionID),
		zap.Int("chars", len(text)))

	return repositories.ReasonerResult{
		ResponseText: text,
		Metadata:     metadata,
	}, nil
}
