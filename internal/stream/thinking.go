package stream

import (
	"strings"
	"time"

	"go.uber.org/zap"
)

// ThinkingState is the lifecycle of the in-flight reasoning task.
// idle -> thinking -> {paused <-> thinking} -> {done | cancelled} -> idle.
type ThinkingState string

const (
	ThinkingIdle      ThinkingState = "idle"
	ThinkingActive    ThinkingState = "thinking"
	ThinkingPaused    ThinkingState = "paused"
	ThinkingDone      ThinkingState = "done"
	ThinkingCancelled ThinkingState = "cancelled"
)

// ThinkingAction is the buffer's verdict on an incoming transcript fragment
// relative to any in-flight reasoning task.
type ThinkingAction string

const (
	ActionNone     ThinkingAction = "none"
	ActionStart    ThinkingAction = "start"
	ActionContinue ThinkingAction = "continue"
	ActionPause    ThinkingAction = "pause"
	ActionResume   ThinkingAction = "resume"
	ActionCancel   ThinkingAction = "cancel"
)

// Cancel reasons.
const (
	ReasonTimeout     = "timeout"
	ReasonTopicChange = "topic_change"
	ReasonBargeIn     = "barge_in"
	ReasonCancelled   = "cancelled"
	ReasonCompleted   = "completed"
	ReasonError       = "error"
)

// Verdict is one Evaluate outcome. Restart marks a cancel that should be
// followed immediately by a start with the new input (topic change).
type Verdict struct {
	Action  ThinkingAction
	Restart bool
	Reason  string
}

// ThinkingBufferConfig holds the timing thresholds. Both are tunable; the
// defaults are a starting point, not a contract.
type ThinkingBufferConfig struct {
	// MergeWindow decides whether a new final transcript continues the prior
	// utterance's intent rather than starting a new one.
	MergeWindow time.Duration
	// MaxThinking bounds a reasoning task before it is cancelled with a
	// timeout outcome.
	MaxThinking time.Duration
}

// DefaultThinkingBufferConfig returns the shipped thresholds.
func DefaultThinkingBufferConfig() ThinkingBufferConfig {
	return ThinkingBufferConfig{
		MergeWindow: 2 * time.Second,
		MaxThinking: 30 * time.Second,
	}
}

// ThinkingBuffer gate-keeps when reasoning starts, merges and cancels. It is
// pure decision logic over timing and content signals; the orchestrator acts
// on its verdicts. Not safe for concurrent use.
type ThinkingBuffer struct {
	cfg    ThinkingBufferConfig
	logger *zap.Logger
	now    func() time.Time

	state       ThinkingState
	pending     []string
	lastFinalAt time.Time
	startedAt   time.Time
}

// NewThinkingBuffer creates an idle buffer.
func NewThinkingBuffer(cfg ThinkingBufferConfig, logger *zap.Logger) *ThinkingBuffer {
	return &ThinkingBuffer{
		cfg:    cfg,
		logger: logger,
		now:    time.Now,
		state:  ThinkingIdle,
	}
}

// State returns the current lifecycle state.
func (b *ThinkingBuffer) State() ThinkingState { return b.state }

// Pending returns the merged transcript accumulated for the current task.
func (b *ThinkingBuffer) Pending() string {
	return strings.Join(b.pending, " ")
}

// Evaluate decides what an incoming transcript fragment means for the
// in-flight task. It mutates pending input and the paused sub-state; the
// thinking/idle transitions themselves belong to the orchestrator via
// MarkStarted/MarkDone/MarkCancelled.
func (b *ThinkingBuffer) Evaluate(res TranscriptResult) Verdict {
	now := b.now()

	if !res.IsFinal {
		// The user is speaking again. While a task is in flight it reserves
		// its place until the merge window decides continue vs start-new.
		if b.state == ThinkingActive {
			b.state = ThinkingPaused
			return Verdict{Action: ActionPause}
		}
		return Verdict{Action: ActionNone}
	}

	if strings.TrimSpace(res.Text) == "" {
		return Verdict{Action: ActionNone}
	}

	switch b.state {
	case ThinkingIdle:
		b.pending = []string{res.Text}
		b.lastFinalAt = now
		return Verdict{Action: ActionStart}

	case ThinkingActive, ThinkingPaused:
		withinWindow := now.Sub(b.lastFinalAt) <= b.cfg.MergeWindow
		b.lastFinalAt = now
		if withinWindow {
			b.pending = append(b.pending, res.Text)
			if b.state == ThinkingPaused {
				b.state = ThinkingActive
			}
			return Verdict{Action: ActionContinue}
		}
		// A clearly unrelated utterance: drop the old task, start over.
		b.pending = []string{res.Text}
		return Verdict{Action: ActionCancel, Restart: true, Reason: ReasonTopicChange}

	default:
		b.logger.Warn("transcript arrived in terminal thinking state",
			zap.String("state", string(b.state)))
		return Verdict{Action: ActionNone}
	}
}

// MarkStarted records that the orchestrator launched the reasoning task.
func (b *ThinkingBuffer) MarkStarted() {
	b.state = ThinkingActive
	b.startedAt = b.now()
}

// Resume moves a paused task back to thinking, used when the merge window
// passes without a final transcript. Reports whether a resume happened.
func (b *ThinkingBuffer) Resume() bool {
	if b.state != ThinkingPaused {
		return false
	}
	b.state = ThinkingActive
	return true
}

// MarkDone settles the task and returns the buffer to idle.
func (b *ThinkingBuffer) MarkDone() {
	b.state = ThinkingDone
	b.settle()
}

// MarkCancelled settles a cancelled task. Pending input survives when the
// cancel is part of a restart; the caller re-reads it via Pending.
func (b *ThinkingBuffer) MarkCancelled() {
	b.state = ThinkingCancelled
	b.state = ThinkingIdle
}

// Expired reports whether the in-flight task outlived MaxThinking.
func (b *ThinkingBuffer) Expired() bool {
	if b.state != ThinkingActive && b.state != ThinkingPaused {
		return false
	}
	return b.now().Sub(b.startedAt) > b.cfg.MaxThinking
}

// Deadline returns when the in-flight task times out.
func (b *ThinkingBuffer) Deadline() time.Time {
	return b.startedAt.Add(b.cfg.MaxThinking)
}

func (b *ThinkingBuffer) settle() {
	b.state = ThinkingIdle
	b.pending = nil
}
