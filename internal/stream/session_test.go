package stream

import (
	"testing"

	"github.com/InfinityZero3000/LexiLingo-sub001/domain/repositories"
)

func TestNextSeqStartsAtZero(t *testing.T) {
	s := NewSession("s1", "u1", repositories.AudioConfig{})

	for want := uint64(0); want < 5; want++ {
		if got := s.NextSeq(); got != want {
			t.Fatalf("NextSeq = %d, want %d", got, want)
		}
	}
}

func TestNextGenAdvances(t *testing.T) {
	s := NewSession("s1", "u1", repositories.AudioConfig{})

	if s.Gen() != 0 {
		t.Errorf("initial Gen = %d, want 0", s.Gen())
	}
	if got := s.NextGen(); got != 1 {
		t.Errorf("NextGen = %d, want 1", got)
	}
	if got := s.NextGen(); got != 2 {
		t.Errorf("NextGen = %d, want 2", got)
	}
	if s.Gen() != 2 {
		t.Errorf("Gen = %d, want 2", s.Gen())
	}
}

func TestAccumulateFinalKeepsBestConfidence(t *testing.T) {
	s := NewSession("s1", "u1", repositories.AudioConfig{})
	s.BeginTurn()

	s.AccumulateFinal(TranscriptResult{Text: "first", Confidence: 0.6})
	s.AccumulateFinal(TranscriptResult{Text: "second", Confidence: 0.9})
	s.AccumulateFinal(TranscriptResult{Text: "third", Confidence: 0.4})

	if len(s.Listening.Fragments) != 3 {
		t.Errorf("Fragments = %d, want 3", len(s.Listening.Fragments))
	}
	if s.Listening.BestConfidence != 0.9 {
		t.Errorf("BestConfidence = %v, want 0.9", s.Listening.BestConfidence)
	}

	s.BeginTurn()
	if len(s.Listening.Fragments) != 0 || s.Listening.BestConfidence != 0 {
		t.Error("BeginTurn did not reset listening state")
	}
}

func TestActiveTask(t *testing.T) {
	s := NewSession("s1", "u1", repositories.AudioConfig{})

	thinking, speaking := s.ActiveTask()
	if thinking || speaking {
		t.Error("fresh session reports an active task")
	}

	s.Thinking = &ThinkingTask{Gen: 1}
	thinking, speaking = s.ActiveTask()
	if !thinking || speaking {
		t.Errorf("ActiveTask = (%v, %v), want (true, false)", thinking, speaking)
	}
}

func TestNilTaskCancelIsSafe(t *testing.T) {
	var thinking *ThinkingTask
	var speaking *SpeakingTask

	// Must not panic.
	thinking.Cancel()
	speaking.Cancel()

	cancelled := false
	task := &ThinkingTask{cancel: func() { cancelled = true }}
	task.Cancel()
	if !cancelled {
		t.Error("Cancel did not invoke the cancel func")
	}
}
