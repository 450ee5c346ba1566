package stream

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/InfinityZero3000/LexiLingo-sub001/domain/repositories"
)

// SynthesizerConfig tunes outbound audio chunking.
type SynthesizerConfig struct {
	SampleRate int
	Format     string
	// ChunkSize caps the size of a single outbound chunk in bytes.
	ChunkSize int
}

// DefaultSynthesizerConfig returns the shipped synthesis settings.
func DefaultSynthesizerConfig() SynthesizerConfig {
	return SynthesizerConfig{
		SampleRate: 24000,
		Format:     "pcm_24000",
		ChunkSize:  4096,
	}
}

// Synthesizer turns response text into a lazy, finite, non-restartable
// sequence of audio chunks. Text is split at sentence and clause boundaries
// so the first chunk of audio leaves as early as possible. Cancelling the
// context stops the stream at the next yield point; no buffered chunk is
// flushed after that.
type Synthesizer struct {
	backend repositories.SpeechBackend
	cfg     SynthesizerConfig
	logger  *zap.Logger
}

// NewSynthesizer creates a synthesizer over the given backend.
func NewSynthesizer(backend repositories.SpeechBackend, cfg SynthesizerConfig, logger *zap.Logger) *Synthesizer {
	return &Synthesizer{
		backend: backend,
		cfg:     cfg,
		logger:  logger,
	}
}

// Synthesize starts the stream for text. Backend failures abort the sequence
// with a terminal AudioEvent carrying a SynthesisError; audio already emitted
// is not retracted.
func (s *Synthesizer) Synthesize(ctx context.Context, text string) <-chan AudioEvent {
	events := make(chan AudioEvent, 8)

	go func() {
		defer close(events)

		seq := 0
		for _, segment := range SplitClauses(text) {
			if err := s.speakSegment(ctx, segment, &seq, events); err != nil {
				if ctx.Err() != nil {
					// Cancelled mid-stream: stop silently, the orchestrator
					// already decided the interruption.
					return
				}
				select {
				case events <- AudioEvent{Err: &SynthesisError{Err: err}}:
				case <-ctx.Done():
				}
				return
			}
			if ctx.Err() != nil {
				return
			}
		}
	}()

	return events
}

func (s *Synthesizer) speakSegment(ctx context.Context, segment string, seq *int, events chan<- AudioEvent) error {
	audio, err := s.backend.Speak(ctx, segment)
	if err != nil {
		return err
	}

	for data := range audio {
		for len(data) > 0 {
			n := len(data)
			if n > s.cfg.ChunkSize {
				n = s.cfg.ChunkSize
			}
			chunk := AudioChunk{
				PCM:        data[:n],
				SampleRate: s.cfg.SampleRate,
				Sequence:   *seq,
				Direction:  DirectionOut,
			}
			data = data[n:]
			*seq++

			select {
			case events <- chunk.asEvent():
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
	return nil
}

func (c AudioChunk) asEvent() AudioEvent {
	return AudioEvent{Chunk: c}
}

// SplitClauses breaks response text into sentence- or clause-granular
// segments for low time-to-first-audio. Empty segments are dropped.
func SplitClauses(text string) []string {
	var segments []string
	var b strings.Builder

	flush := func() {
		s := strings.TrimSpace(b.String())
		if s != "" {
			segments = append(segments, s)
		}
		b.Reset()
	}

	for _, r := range text {
		b.WriteRune(r)
		switch r {
		case '.', '!', '?', ';', ':', '\n':
			flush()
		case ',':
			// Only split on commas once the clause is long enough to be worth
			// a round trip to the backend.
			if b.Len() >= 48 {
				flush()
			}
		}
	}
	flush()

	return segments
}
