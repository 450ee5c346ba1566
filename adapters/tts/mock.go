package tts

import (
	"context"

	"go.uber.org/zap"

	"github.com/InfinityZero3000/LexiLingo-sub001/domain/repositories"
)

// MockSpeechBackend is a development stand-in that emits silence shaped like
// real synthesis output.
type MockSpeechBackend struct {
	logger *zap.Logger
}

// NewMockSpeechBackend creates the stand-in backend.
func NewMockSpeechBackend(logger *zap.Logger) *MockSpeechBackend {
	return &MockSpeechBackend{logger: logger}
}

var _ repositories.SpeechBackend = (*MockSpeechBackend)(nil)

// Speak implements repositories.SpeechBackend. It emits a short run of
// silent PCM chunks proportional to the text length.
func (m *MockSpeechBackend) Speak(ctx context.Context, text string) (<-chan []byte, error) {
	out := make(chan []byte, 4)
	go func() {
		defer close(out)
		chunks := len(text)/16 + 1
		for i := 0; i < chunks; i++ {
			select {
			case out <- make([]byte, 1024):
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}
