package stt

import (
	"context"

	"go.uber.org/zap"

	"github.com/InfinityZero3000/LexiLingo-sub001/domain/repositories"
)

// MockRecognizer is a development stand-in used when no Google credentials
// are configured. It answers with a fixed phrase sized to the audio length.
type MockRecognizer struct {
	logger *zap.Logger
}

// NewMockRecognizer creates the stand-in recognizer.
func NewMockRecognizer(logger *zap.Logger) *MockRecognizer {
	return &MockRecognizer{logger: logger}
}

var _ repositories.Recognizer = (*MockRecognizer)(nil)

// Recognize implements repositories.Recognizer.
func (m *MockRecognizer) Recognize(ctx context.Context, pcm []byte, config repositories.AudioConfig) (repositories.Recognition, error) {
	if len(pcm) == 0 {
		return repositories.Recognition{}, nil
	}
	m.logger.Debug("mock recognition", zap.Int("bytes", len(pcm)))
	return repositories.Recognition{
		Text:       "I want to practice English",
		Confidence: 0.9,
	}, nil
}
