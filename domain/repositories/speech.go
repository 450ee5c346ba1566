package repositories

import "context"

// AudioConfig describes the PCM format of an audio stream.
type AudioConfig struct {
	SampleRate int    `json:"sample_rate"`
	Encoding   string `json:"encoding"`
	Language   string `json:"language"`
}

// Recognition is one speech recognition outcome for a span of audio.
type Recognition struct {
	Text       string
	Confidence float64
}

// Recognizer abstracts the speech recognition backend behind the streaming
// transcriber. The backend runs through a resource-managed model layer and may
// reject a call under memory pressure; that surfaces as an ordinary error.
type Recognizer interface {
	Recognize(ctx context.Context, pcm []byte, config AudioConfig) (Recognition, error)
}

// SpeechBackend abstracts the synthesis backend. Speak returns a channel of
// raw audio byte chunks; the channel closes when synthesis of the given text
// is exhausted or the context is cancelled.
type SpeechBackend interface {
	Speak(ctx context.Context, text string) (<-chan []byte, error)
}
