package stream

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"go.uber.org/zap"
)

// fakeSpeechBackend replays fixed audio for every segment.
type fakeSpeechBackend struct {
	perSegment []byte
	err        error
	segments   []string
}

func (f *fakeSpeechBackend) Speak(ctx context.Context, text string) (<-chan []byte, error) {
	f.segments = append(f.segments, text)
	if f.err != nil {
		return nil, f.err
	}
	out := make(chan []byte, 1)
	go func() {
		defer close(out)
		select {
		case out <- f.perSegment:
		case <-ctx.Done():
		}
	}()
	return out, nil
}

// endlessSpeechBackend streams paced audio until the context is cancelled.
type endlessSpeechBackend struct{}

func (endlessSpeechBackend) Speak(ctx context.Context, text string) (<-chan []byte, error) {
	out := make(chan []byte)
	go func() {
		defer close(out)
		ticker := time.NewTicker(5 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				select {
				case out <- make([]byte, 1024):
				case <-ctx.Done():
					return
				}
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

func TestSplitClauses(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{
			name: "sentences",
			text: "Hello there. How are you today? I am fine!",
			want: []string{"Hello there.", "How are you today?", "I am fine!"},
		},
		{
			name: "no terminal punctuation",
			text: "just a fragment",
			want: []string{"just a fragment"},
		},
		{
			name: "short comma stays",
			text: "Yes, of course.",
			want: []string{"Yes, of course."},
		},
		{
			name: "long comma clause splits",
			text: "When I was walking through the park this morning I saw a dog, and it ran straight at me.",
			want: []string{
				"When I was walking through the park this morning I saw a dog,",
				"and it ran straight at me.",
			},
		},
		{
			name: "newlines and colons",
			text: "Here is the plan:\nfirst we practice",
			want: []string{"Here is the plan:", "first we practice"},
		},
		{
			name: "empty",
			text: "   ",
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SplitClauses(tt.text)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("SplitClauses(%q) = %q, want %q", tt.text, got, tt.want)
			}
		})
	}
}

func TestSynthesizeChunking(t *testing.T) {
	backend := &fakeSpeechBackend{perSegment: make([]byte, 10000)}
	s := NewSynthesizer(backend, SynthesizerConfig{SampleRate: 24000, Format: "pcm_24000", ChunkSize: 4096}, zap.NewNop())

	events := s.Synthesize(context.Background(), "One sentence.")

	var sizes []int
	var seqs []int
	for ev := range events {
		if ev.Err != nil {
			t.Fatalf("unexpected error event: %v", ev.Err)
		}
		sizes = append(sizes, len(ev.Chunk.PCM))
		seqs = append(seqs, ev.Chunk.Sequence)
		if ev.Chunk.Direction != DirectionOut {
			t.Errorf("Direction = %s, want out", ev.Chunk.Direction)
		}
		if ev.Chunk.SampleRate != 24000 {
			t.Errorf("SampleRate = %d, want 24000", ev.Chunk.SampleRate)
		}
	}

	if !reflect.DeepEqual(sizes, []int{4096, 4096, 1808}) {
		t.Errorf("chunk sizes = %v", sizes)
	}
	if !reflect.DeepEqual(seqs, []int{0, 1, 2}) {
		t.Errorf("chunk sequences = %v", seqs)
	}
}

func TestSynthesizeSegmentsSequentially(t *testing.T) {
	backend := &fakeSpeechBackend{perSegment: make([]byte, 100)}
	s := NewSynthesizer(backend, DefaultSynthesizerConfig(), zap.NewNop())

	events := s.Synthesize(context.Background(), "First. Second. Third.")
	for range events {
	}

	want := []string{"First.", "Second.", "Third."}
	if !reflect.DeepEqual(backend.segments, want) {
		t.Errorf("segments = %q, want %q", backend.segments, want)
	}
}

func TestSynthesizeBackendError(t *testing.T) {
	backendErr := errors.New("voice service down")
	backend := &fakeSpeechBackend{err: backendErr}
	s := NewSynthesizer(backend, DefaultSynthesizerConfig(), zap.NewNop())

	events := s.Synthesize(context.Background(), "Doomed sentence.")

	var sawErr error
	var chunks int
	for ev := range events {
		if ev.Err != nil {
			sawErr = ev.Err
			continue
		}
		chunks++
	}

	if sawErr == nil {
		t.Fatal("no terminal error event")
	}
	var se *SynthesisError
	if !errors.As(sawErr, &se) {
		t.Errorf("error type = %T, want *SynthesisError", sawErr)
	}
	if !errors.Is(sawErr, backendErr) {
		t.Error("wrapped cause lost")
	}
	if chunks != 0 {
		t.Errorf("chunks = %d, want 0", chunks)
	}
}

func TestSynthesizeStopsOnCancel(t *testing.T) {
	s := NewSynthesizer(endlessSpeechBackend{}, DefaultSynthesizerConfig(), zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	events := s.Synthesize(ctx, "This would never end.")

	// Read a few chunks, then cancel mid-stream.
	for i := 0; i < 3; i++ {
		ev, ok := <-events
		if !ok || ev.Err != nil {
			t.Fatalf("stream failed early: ok=%v err=%v", ok, ev.Err)
		}
	}
	cancel()

	// The stream must terminate without an error event; buffered chunks may
	// still drain first.
	deadline := time.After(2 * time.Second)
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return
			}
			if ev.Err != nil {
				t.Fatalf("cancellation surfaced as error event: %v", ev.Err)
			}
		case <-deadline:
			t.Fatal("stream did not terminate after cancel")
		}
	}
}
