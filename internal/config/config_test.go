package config

import (
	"testing"
	"time"

	"go.uber.org/zap"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load(zap.NewNop())

	if cfg.Port != "8080" {
		t.Errorf("Port = %q, want 8080", cfg.Port)
	}
	if cfg.Stream.Transcriber.SilenceBoundary != 700*time.Millisecond {
		t.Errorf("SilenceBoundary = %v", cfg.Stream.Transcriber.SilenceBoundary)
	}
	if cfg.Stream.Buffer.MergeWindow != 2*time.Second {
		t.Errorf("MergeWindow = %v", cfg.Stream.Buffer.MergeWindow)
	}
	if cfg.Stream.Buffer.MaxThinking != 30*time.Second {
		t.Errorf("MaxThinking = %v", cfg.Stream.Buffer.MaxThinking)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("STREAM_SILENCE_BOUNDARY_MS", "500")
	t.Setenv("STREAM_MERGE_WINDOW_MS", "3000")
	t.Setenv("STREAM_LANGUAGE", "vi-VN")
	t.Setenv("AUDIO_IN_SAMPLE_RATE", "8000")
	t.Setenv("STREAM_SPEECH_THRESHOLD", "0.05")

	cfg := Load(zap.NewNop())

	if cfg.Port != "9090" {
		t.Errorf("Port = %q", cfg.Port)
	}
	if cfg.Stream.Transcriber.SilenceBoundary != 500*time.Millisecond {
		t.Errorf("SilenceBoundary = %v", cfg.Stream.Transcriber.SilenceBoundary)
	}
	if cfg.Stream.Buffer.MergeWindow != 3*time.Second {
		t.Errorf("MergeWindow = %v", cfg.Stream.Buffer.MergeWindow)
	}
	if cfg.Stream.Transcriber.Audio.Language != "vi-VN" {
		t.Errorf("Language = %q", cfg.Stream.Transcriber.Audio.Language)
	}
	if cfg.Stream.Transcriber.Audio.SampleRate != 8000 {
		t.Errorf("SampleRate = %d", cfg.Stream.Transcriber.Audio.SampleRate)
	}
	if cfg.Stream.Transcriber.SpeechThreshold != 0.05 {
		t.Errorf("SpeechThreshold = %v", cfg.Stream.Transcriber.SpeechThreshold)
	}
}

func TestLoadIgnoresMalformedValues(t *testing.T) {
	t.Setenv("STREAM_SILENCE_BOUNDARY_MS", "soon")
	t.Setenv("STREAM_MAX_THINKING_MS", "-5")
	t.Setenv("AUDIO_IN_SAMPLE_RATE", "zero")

	cfg := Load(zap.NewNop())

	if cfg.Stream.Transcriber.SilenceBoundary != 700*time.Millisecond {
		t.Errorf("SilenceBoundary = %v, want default kept", cfg.Stream.Transcriber.SilenceBoundary)
	}
	if cfg.Stream.Buffer.MaxThinking != 30*time.Second {
		t.Errorf("MaxThinking = %v, want default kept", cfg.Stream.Buffer.MaxThinking)
	}
	if cfg.Stream.Transcriber.Audio.SampleRate != 16000 {
		t.Errorf("SampleRate = %d, want default kept", cfg.Stream.Transcriber.Audio.SampleRate)
	}
}
