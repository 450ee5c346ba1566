package stream

import (
	"encoding/binary"
	"math"
	"time"
)

// Direction marks which way an audio chunk is travelling.
type Direction string

const (
	DirectionIn  Direction = "in"
	DirectionOut Direction = "out"
)

// AudioChunk is an immutable span of raw PCM16LE audio. Ownership transfers
// from producer to the socket writer on emit; nobody mutates PCM after
// construction.
type AudioChunk struct {
	PCM        []byte
	SampleRate int
	Sequence   int
	Direction  Direction
}

// Duration returns the play time of the chunk.
func (c AudioChunk) Duration() time.Duration {
	if c.SampleRate <= 0 || len(c.PCM) < 2 {
		return 0
	}
	samples := len(c.PCM) / 2
	return time.Duration(samples) * time.Second / time.Duration(c.SampleRate)
}

// RMS computes the root-mean-square energy of the chunk, normalized to 0..1.
func (c AudioChunk) RMS() float64 {
	n := len(c.PCM) / 2
	if n == 0 {
		return 0
	}
	var sum float64
	for i := 0; i < n; i++ {
		s := int16(binary.LittleEndian.Uint16(c.PCM[2*i:]))
		f := float64(s) / math.MaxInt16
		sum += f * f
	}
	return math.Sqrt(sum / float64(n))
}

// TranscriptResult is one transcription outcome. Non-final results are
// transient and may be revised by a later partial or the final result for the
// same utterance.
type TranscriptResult struct {
	Text       string
	IsFinal    bool
	Confidence float64
	Timestamp  time.Time
}

// AudioEvent is one item of a synthesis stream: either a chunk or a terminal
// error. The channel closes after the terminal event.
type AudioEvent struct {
	Chunk AudioChunk
	Err   error
}
