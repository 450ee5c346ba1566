package stream

import (
	"context"
	"encoding/binary"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/InfinityZero3000/LexiLingo-sub001/domain/repositories"
)

// fakeRecognizer returns a scripted result and records what it was fed.
type fakeRecognizer struct {
	text  string
	conf  float64
	err   error
	calls int
	fed   []int // bytes per call
}

func (f *fakeRecognizer) Recognize(ctx context.Context, pcm []byte, cfg repositories.AudioConfig) (repositories.Recognition, error) {
	f.calls++
	f.fed = append(f.fed, len(pcm))
	if f.err != nil {
		return repositories.Recognition{}, f.err
	}
	return repositories.Recognition{Text: f.text, Confidence: f.conf}, nil
}

// pcmChunk builds dur of constant-amplitude 16kHz PCM16LE.
func pcmChunk(amplitude int16, dur time.Duration) AudioChunk {
	samples := int(dur.Seconds() * 16000)
	pcm := make([]byte, samples*2)
	for i := 0; i < samples; i++ {
		binary.LittleEndian.PutUint16(pcm[2*i:], uint16(amplitude))
	}
	return AudioChunk{PCM: pcm, SampleRate: 16000, Direction: DirectionIn}
}

func voiced(dur time.Duration) AudioChunk { return pcmChunk(8000, dur) }
func silent(dur time.Duration) AudioChunk { return pcmChunk(0, dur) }

func newTestTranscriber(rec repositories.Recognizer) *Transcriber {
	cfg := DefaultTranscriberConfig()
	return NewTranscriber(rec, cfg, zap.NewNop())
}

func TestSpeechDetected(t *testing.T) {
	tr := newTestTranscriber(&fakeRecognizer{})

	if !tr.SpeechDetected(voiced(100 * time.Millisecond)) {
		t.Error("voiced chunk not detected as speech")
	}
	if tr.SpeechDetected(silent(100 * time.Millisecond)) {
		t.Error("silent chunk detected as speech")
	}
}

func TestLeadingSilenceIsDropped(t *testing.T) {
	rec := &fakeRecognizer{text: "hello"}
	tr := newTestTranscriber(rec)
	ctx := context.Background()

	for i := 0; i < 20; i++ {
		results, err := tr.Feed(ctx, silent(100*time.Millisecond))
		if err != nil {
			t.Fatalf("Feed failed: %v", err)
		}
		if len(results) != 0 {
			t.Fatalf("leading silence produced %d results", len(results))
		}
	}
	if rec.calls != 0 {
		t.Errorf("recognizer called %d times on pure silence", rec.calls)
	}
}

func TestSilenceBoundaryProducesFinal(t *testing.T) {
	rec := &fakeRecognizer{text: "I like coffee", conf: 0.88}
	tr := newTestTranscriber(rec)
	ctx := context.Background()

	// Half a second of speech, then enough trailing silence to close the
	// utterance.
	for i := 0; i < 5; i++ {
		if _, err := tr.Feed(ctx, voiced(100*time.Millisecond)); err != nil {
			t.Fatalf("Feed failed: %v", err)
		}
	}

	var finalRes *TranscriptResult
	for i := 0; i < 7; i++ {
		results, err := tr.Feed(ctx, silent(100*time.Millisecond))
		if err != nil {
			t.Fatalf("Feed failed: %v", err)
		}
		for i := range results {
			if results[i].IsFinal {
				finalRes = &results[i]
			}
		}
	}

	if finalRes == nil {
		t.Fatal("no final result after silence boundary")
	}
	if finalRes.Text != "I like coffee" {
		t.Errorf("Text = %q", finalRes.Text)
	}
	if finalRes.Confidence != 0.88 {
		t.Errorf("Confidence = %v", finalRes.Confidence)
	}

	// The utterance is closed; more silence is leading silence again.
	results, err := tr.Feed(ctx, silent(time.Second))
	if err != nil {
		t.Fatalf("Feed after boundary failed: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("post-boundary silence produced %d results", len(results))
	}
}

func TestPartialCadence(t *testing.T) {
	rec := &fakeRecognizer{text: "partial so far", conf: 0.5}
	tr := newTestTranscriber(rec)
	ctx := context.Background()

	var partials int
	// 2.4s of continuous speech at the default 1.2s partial interval.
	for i := 0; i < 24; i++ {
		results, err := tr.Feed(ctx, voiced(100*time.Millisecond))
		if err != nil {
			t.Fatalf("Feed failed: %v", err)
		}
		for _, res := range results {
			if res.IsFinal {
				t.Fatal("final result without a silence boundary")
			}
			partials++
		}
	}

	if partials != 2 {
		t.Errorf("partials = %d, want 2", partials)
	}
}

func TestBackendFailureClosesUtterance(t *testing.T) {
	backendErr := errors.New("backend unavailable")
	rec := &fakeRecognizer{err: backendErr}
	tr := newTestTranscriber(rec)
	ctx := context.Background()

	if _, err := tr.Feed(ctx, voiced(500*time.Millisecond)); err != nil {
		t.Fatalf("Feed failed: %v", err)
	}

	_, err := tr.Feed(ctx, silent(800*time.Millisecond))
	if err == nil {
		t.Fatal("backend failure not surfaced")
	}
	var te *TranscriptionError
	if !errors.As(err, &te) {
		t.Fatalf("error type = %T, want *TranscriptionError", err)
	}
	if !errors.Is(err, backendErr) {
		t.Error("wrapped cause lost")
	}

	// The boundary still reset the transcriber; the next utterance works.
	rec.err = nil
	rec.text = "second try"
	if _, err := tr.Feed(ctx, voiced(500*time.Millisecond)); err != nil {
		t.Fatalf("Feed after failure: %v", err)
	}
	results, err := tr.Feed(ctx, silent(800*time.Millisecond))
	if err != nil {
		t.Fatalf("Feed after failure: %v", err)
	}
	if len(results) != 1 || !results[0].IsFinal || results[0].Text != "second try" {
		t.Errorf("recovery result = %+v", results)
	}
}

func TestPartialFailureIsSwallowed(t *testing.T) {
	rec := &fakeRecognizer{err: errors.New("flaky")}
	tr := newTestTranscriber(rec)
	ctx := context.Background()

	// Enough speech to trigger a partial attempt; the failure must not
	// surface.
	for i := 0; i < 13; i++ {
		results, err := tr.Feed(ctx, voiced(100*time.Millisecond))
		if err != nil {
			t.Fatalf("partial failure surfaced: %v", err)
		}
		if len(results) != 0 {
			t.Errorf("failed partial produced results: %+v", results)
		}
	}
}

func TestFlushWithoutVoiceIsEmptyFinal(t *testing.T) {
	rec := &fakeRecognizer{text: "should not be called"}
	tr := newTestTranscriber(rec)

	res, err := tr.Flush(context.Background())
	if err != nil {
		t.Fatalf("Flush failed: %v", err)
	}
	if !res.IsFinal || res.Text != "" {
		t.Errorf("Flush result = %+v, want empty final", res)
	}
	if rec.calls != 0 {
		t.Errorf("recognizer called %d times for an empty flush", rec.calls)
	}
}

func TestFlushClosesOpenUtterance(t *testing.T) {
	rec := &fakeRecognizer{text: "cut short", conf: 0.7}
	tr := newTestTranscriber(rec)
	ctx := context.Background()

	if _, err := tr.Feed(ctx, voiced(300*time.Millisecond)); err != nil {
		t.Fatalf("Feed failed: %v", err)
	}

	res, err := tr.Flush(ctx)
	if err != nil {
		t.Fatalf("Flush failed: %v", err)
	}
	if !res.IsFinal || res.Text != "cut short" {
		t.Errorf("Flush result = %+v", res)
	}
}
