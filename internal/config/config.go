package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/InfinityZero3000/LexiLingo-sub001/internal/stream"
)

// Config holds everything the server reads from the environment. Stream
// settings start from the shipped defaults and are overridden per variable.
type Config struct {
	Port   string
	Stream stream.Config
}

// Load reads .env when present, then the environment. Missing variables keep
// their defaults; malformed numeric values are logged and skipped.
func Load(logger *zap.Logger) Config {
	if err := godotenv.Load(); err != nil {
		logger.Debug("no .env file loaded", zap.Error(err))
	}

	cfg := Config{
		Port:   "8080",
		Stream: stream.DefaultConfig(),
	}

	if port := os.Getenv("PORT"); port != "" {
		cfg.Port = port
	}

	loadMillis(logger, "STREAM_SILENCE_BOUNDARY_MS", &cfg.Stream.Transcriber.SilenceBoundary)
	loadMillis(logger, "STREAM_PARTIAL_INTERVAL_MS", &cfg.Stream.Transcriber.PartialInterval)
	loadMillis(logger, "STREAM_MERGE_WINDOW_MS", &cfg.Stream.Buffer.MergeWindow)
	loadMillis(logger, "STREAM_MAX_THINKING_MS", &cfg.Stream.Buffer.MaxThinking)
	loadMillis(logger, "STREAM_HEARTBEAT_MS", &cfg.Stream.Heartbeat)

	loadInt(logger, "AUDIO_IN_SAMPLE_RATE", &cfg.Stream.Transcriber.Audio.SampleRate)
	loadInt(logger, "AUDIO_OUT_SAMPLE_RATE", &cfg.Stream.Synth.SampleRate)
	loadInt(logger, "AUDIO_OUT_CHUNK_SIZE", &cfg.Stream.Synth.ChunkSize)

	if lang := os.Getenv("STREAM_LANGUAGE"); lang != "" {
		cfg.Stream.Transcriber.Audio.Language = lang
	}

	if threshold := os.Getenv("STREAM_SPEECH_THRESHOLD"); threshold != "" {
		if f, err := strconv.ParseFloat(threshold, 64); err == nil && f > 0 {
			cfg.Stream.Transcriber.SpeechThreshold = f
		} else {
			logger.Warn("ignoring malformed STREAM_SPEECH_THRESHOLD",
				zap.String("value", threshold))
		}
	}

	return cfg
}

func loadMillis(logger *zap.Logger, key string, dst *time.Duration) {
	raw := os.Getenv(key)
	if raw == "" {
		return
	}
	ms, err := strconv.Atoi(raw)
	if err != nil || ms <= 0 {
		logger.Warn("ignoring malformed duration", zap.String("key", key), zap.String("value", raw))
		return
	}
	*dst = time.Duration(ms) * time.Millisecond
}

func loadInt(logger *zap.Logger, key string, dst *int) {
	raw := os.Getenv(key)
	if raw == "" {
		return
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		logger.Warn("ignoring malformed integer", zap.String("key", key), zap.String("value", raw))
		return
	}
	*dst = n
}
