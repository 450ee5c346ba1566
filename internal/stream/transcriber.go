package stream

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/InfinityZero3000/LexiLingo-sub001/domain/repositories"
)

// TranscriberConfig tunes voice-activity detection and partial cadence.
type TranscriberConfig struct {
	// SilenceBoundary is the trailing silence after speech that closes an
	// utterance and produces a final result.
	SilenceBoundary time.Duration
	// PartialInterval is how much voiced audio accumulates between best-effort
	// partial results.
	PartialInterval time.Duration
	// SpeechThreshold is the normalized RMS level above which a chunk counts
	// as speech.
	SpeechThreshold float64
	Audio           repositories.AudioConfig
}

// DefaultTranscriberConfig returns the tunables the server ships with. Exact
// values are configuration, not contract.
func DefaultTranscriberConfig() TranscriberConfig {
	return TranscriberConfig{
		SilenceBoundary: 700 * time.Millisecond,
		PartialInterval: 1200 * time.Millisecond,
		SpeechThreshold: 0.015,
		Audio: repositories.AudioConfig{
			SampleRate: 16000,
			Encoding:   "LINEAR16",
			Language:   "en-US",
		},
	}
}

// Transcriber consumes raw audio chunks, performs voice-activity detection
// and emits partial and final transcript results through a Recognizer
// backend. Not safe for concurrent use; the orchestrator owns one per session
// and feeds it from a single goroutine.
type Transcriber struct {
	rec    repositories.Recognizer
	cfg    TranscriberConfig
	logger *zap.Logger

	buf          []byte
	voiced       bool
	silence      time.Duration
	sincePartial time.Duration
}

// NewTranscriber creates a transcriber over the given recognition backend.
func NewTranscriber(rec repositories.Recognizer, cfg TranscriberConfig, logger *zap.Logger) *Transcriber {
	return &Transcriber{
		rec:    rec,
		cfg:    cfg,
		logger: logger,
	}
}

// SpeechDetected reports whether the chunk carries voice activity. The
// orchestrator uses it for barge-in detection while speaking.
func (t *Transcriber) SpeechDetected(chunk AudioChunk) bool {
	return chunk.RMS() >= t.cfg.SpeechThreshold
}

// Feed ingests one inbound chunk and returns zero or more transcript results.
// A trailing-silence boundary after speech yields a final result; shorter
// pauses yield at most best-effort partials. A backend failure surfaces a
// TranscriptionError with the utterance dropped, but the boundary still
// closes so the session keeps listening.
func (t *Transcriber) Feed(ctx context.Context, chunk AudioChunk) ([]TranscriptResult, error) {
	dur := chunk.Duration()
	speech := t.SpeechDetected(chunk)

	if speech {
		t.voiced = true
		t.silence = 0
		t.sincePartial += dur
		t.buf = append(t.buf, chunk.PCM...)
	} else {
		if !t.voiced {
			// Leading silence carries nothing worth buffering.
			return nil, nil
		}
		t.silence += dur
		t.buf = append(t.buf, chunk.PCM...)
	}

	if t.voiced && t.silence >= t.cfg.SilenceBoundary {
		final, err := t.finishUtterance(ctx)
		if err != nil {
			return nil, err
		}
		return []TranscriptResult{final}, nil
	}

	if speech && t.sincePartial >= t.cfg.PartialInterval {
		t.sincePartial = 0
		partial, err := t.recognize(ctx, false)
		if err != nil {
			// Partials are best-effort: log and keep the utterance going.
			t.logger.Warn("partial recognition failed", zap.Error(err))
			return nil, nil
		}
		if partial.Text == "" {
			return nil, nil
		}
		return []TranscriptResult{partial}, nil
	}

	return nil, nil
}

// Flush forces the current utterance closed and returns its final result.
// Used when the client sends stop_listening before the silence boundary.
func (t *Transcriber) Flush(ctx context.Context) (TranscriptResult, error) {
	if !t.voiced {
		t.reset()
		return TranscriptResult{IsFinal: true, Timestamp: time.Now()}, nil
	}
	return t.finishUtterance(ctx)
}

func (t *Transcriber) finishUtterance(ctx context.Context) (TranscriptResult, error) {
	final, err := t.recognize(ctx, true)
	t.reset()
	if err != nil {
		return TranscriptResult{}, &TranscriptionError{Err: err}
	}
	return final, nil
}

func (t *Transcriber) recognize(ctx context.Context, final bool) (TranscriptResult, error) {
	res, err := t.rec.Recognize(ctx, t.buf, t.cfg.Audio)
	if err != nil {
		return TranscriptResult{}, err
	}
	return TranscriptResult{
		Text:       res.Text,
		IsFinal:    final,
		Confidence: res.Confidence,
		Timestamp:  time.Now(),
	}, nil
}

func (t *Transcriber) reset() {
	t.buf = nil
	t.voiced = false
	t.silence = 0
	t.sincePartial = 0
}
