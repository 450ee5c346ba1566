package stream

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/InfinityZero3000/LexiLingo-sub001/domain/entities"
	"github.com/InfinityZero3000/LexiLingo-sub001/domain/repositories"
	"github.com/InfinityZero3000/LexiLingo-sub001/internal/protocol"
)

// Frame is one outbound websocket frame, already serialized. Text frames
// carry a JSON StreamMessage, binary frames raw audio.
type Frame struct {
	Binary  bool
	Payload []byte
}

// Inbound is one frame received from the socket, routed by the transport:
// text frames to the control channel, binary frames to the audio channel.
type Inbound struct {
	Payload []byte
}

// Config collects the orchestrator tunables.
type Config struct {
	Transcriber TranscriberConfig
	Buffer      ThinkingBufferConfig
	Synth       SynthesizerConfig
	Heartbeat   time.Duration
	// PersistTimeout bounds best-effort history writes.
	PersistTimeout time.Duration
}

// DefaultConfig returns the shipped orchestrator settings.
func DefaultConfig() Config {
	return Config{
		Transcriber:    DefaultTranscriberConfig(),
		Buffer:         DefaultThinkingBufferConfig(),
		Synth:          DefaultSynthesizerConfig(),
		Heartbeat:      30 * time.Second,
		PersistTimeout: 5 * time.Second,
	}
}

type thinkOutcome struct {
	gen       uint64
	result    repositories.ReasonerResult
	err       error
	startedAt time.Time
}

type analysisOutcome struct {
	analysis repositories.Analysis
	err      error
}

// Orchestrator owns one session end to end: it wires transcription, the
// thinking buffer, reasoning and synthesis into a single control loop and is
// the sole writer to the socket. All session state is confined to the Run
// goroutine; the transport only touches the channels.
type Orchestrator struct {
	session     *Session
	transcriber *Transcriber
	buffer      *ThinkingBuffer
	synth       *Synthesizer
	reasoner    repositories.Reasoner
	analyzer    repositories.Analyzer
	store       repositories.SessionRepository
	record      *entities.SessionRecord
	logger      *zap.Logger
	cfg         Config

	ctrl    chan Inbound
	audioIn chan Inbound
	out     chan Frame

	thinkCh    chan thinkOutcome
	analysisCh chan analysisOutcome
	synthCh    <-chan AudioEvent

	runCtx      context.Context
	resumeTimer *time.Timer
	history     []repositories.Exchange
	thinkBegan  time.Time
	speakBegan  time.Time
	turn        entities.Turn
}

// Deps are the orchestrator's collaborators. Analyzer and Store may be nil;
// both are supplementary and never block the conversation.
type Deps struct {
	Recognizer repositories.Recognizer
	Speech     repositories.SpeechBackend
	Reasoner   repositories.Reasoner
	Analyzer   repositories.Analyzer
	Store      repositories.SessionRepository
}

// NewOrchestrator builds the per-session controller. The session starts idle;
// Run emits the connected event with sequence 0 as its first action.
func NewOrchestrator(session *Session, deps Deps, cfg Config, logger *zap.Logger) *Orchestrator {
	return &Orchestrator{
		session:     session,
		transcriber: NewTranscriber(deps.Recognizer, cfg.Transcriber, logger),
		buffer:      NewThinkingBuffer(cfg.Buffer, logger),
		synth:       NewSynthesizer(deps.Speech, cfg.Synth, logger),
		reasoner:    deps.Reasoner,
		analyzer:    deps.Analyzer,
		store:       deps.Store,
		record:      entities.NewSessionRecord(session.ID, session.UserID, cfg.Transcriber.Audio.Language),
		logger:      logger.With(zap.String("sessionID", session.ID)),
		cfg:         cfg,
		ctrl:        make(chan Inbound, 16),
		audioIn:     make(chan Inbound, 64),
		out:         make(chan Frame, 256),
		thinkCh:     make(chan thinkOutcome, 1),
		analysisCh:  make(chan analysisOutcome, 1),
	}
}

// Control is where the transport delivers inbound text frames. Closing it
// tears the session down.
func (o *Orchestrator) Control() chan<- Inbound { return o.ctrl }

// AudioIn is where the transport delivers inbound binary audio frames.
func (o *Orchestrator) AudioIn() chan<- Inbound { return o.audioIn }

// Outbound is the ordered stream of frames for the socket writer. It closes
// when the session is torn down.
func (o *Orchestrator) Outbound() <-chan Frame { return o.out }

// Session exposes the session for the transport's bookkeeping.
func (o *Orchestrator) Session() *Session { return o.session }

// Run drives the session until the context is cancelled or the transport
// closes the control channel. It must be called exactly once.
func (o *Orchestrator) Run(ctx context.Context) {
	o.runCtx = ctx
	defer o.teardown()

	o.emit(protocol.TypeConnected, protocol.ConnectedPayload{SessionID: o.session.ID})
	o.session.BeginTurn()

	heartbeat := time.NewTicker(o.cfg.Heartbeat)
	defer heartbeat.Stop()

	for {
		// Control messages take priority over any queued audio processing.
		select {
		case in, ok := <-o.ctrl:
			if !ok {
				return
			}
			o.handleControl(ctx, in)
			continue
		default:
		}

		select {
		case <-ctx.Done():
			return

		case in, ok := <-o.ctrl:
			if !ok {
				return
			}
			o.handleControl(ctx, in)

		case in, ok := <-o.audioIn:
			if !ok {
				return
			}
			o.handleAudio(ctx, in)

		case outcome := <-o.thinkCh:
			o.handleThinkOutcome(ctx, outcome)

		case ev, ok := <-o.synthCh:
			o.handleSynthEvent(ctx, ev, ok)

		case outcome := <-o.analysisCh:
			o.handleAnalysis(outcome)

		case <-o.resumeC():
			o.resumeTimer = nil
			if o.buffer.Resume() {
				o.emit(protocol.TypeThinkingResume, protocol.ThinkingPayload{})
			}

		case <-heartbeat.C:
			o.emit(protocol.TypeHeartbeat, protocol.HeartbeatPayload{ServerTime: time.Now().UnixMilli()})
		}
	}
}

func (o *Orchestrator) resumeC() <-chan time.Time {
	if o.resumeTimer == nil {
		return nil
	}
	return o.resumeTimer.C
}

// handleControl decodes and dispatches one inbound text frame. Malformed
// frames answer with an error message and change no state.
func (o *Orchestrator) handleControl(ctx context.Context, in Inbound) {
	msg, err := protocol.Decode(in.Payload)
	if err != nil {
		o.logger.Warn("inbound frame rejected", zap.Error(err))
		o.emitError("protocol", err.Error())
		return
	}

	switch msg.Type {
	case protocol.TypeStartListening:
		o.handleStartListening(msg)
	case protocol.TypeStopListening:
		o.handleStopListening(ctx)
	case protocol.TypeCancel:
		o.handleCancel()
	case protocol.TypeConfig:
		o.handleConfig(msg)
	default:
		// A known kind that clients have no business sending.
		v := &ProtocolViolation{Reason: "unexpected client message type " + string(msg.Type)}
		o.logger.Warn("ignoring control message", zap.Error(v))
	}
}

func (o *Orchestrator) handleStartListening(msg protocol.StreamMessage) {
	var p protocol.StartListeningPayload
	if err := protocol.DecodePayload(msg, &p); err != nil {
		o.emitError("protocol", err.Error())
		return
	}
	o.applyAudioConfig(p.SampleRate, p.Encoding, p.Language)

	if o.session.Status == StatusIdle {
		o.session.Status = StatusListening
		o.session.BeginTurn()
	}
}

func (o *Orchestrator) handleStopListening(ctx context.Context) {
	final, err := o.transcriber.Flush(ctx)
	if err != nil {
		o.failTranscription(err)
		return
	}
	if strings.TrimSpace(final.Text) == "" {
		return
	}
	o.processFinal(ctx, final)
}

func (o *Orchestrator) handleCancel() {
	switch {
	case o.session.Thinking != nil:
		// Surfaced the same way as a reasoning timeout: thinking_stop with
		// the reason, then the error.
		o.interruptThinking(ReasonCancelled)
		o.emitError("reasoning", "cancelled by client")
		o.toListening()
	case o.session.Speaking != nil:
		o.interruptSpeaking(ReasonCancelled)
	default:
		v := &ProtocolViolation{Reason: "cancel received with nothing active"}
		o.logger.Warn("ignoring cancel", zap.Error(v))
	}
}

func (o *Orchestrator) handleConfig(msg protocol.StreamMessage) {
	var p protocol.ConfigPayload
	if err := protocol.DecodePayload(msg, &p); err != nil {
		o.emitError("protocol", err.Error())
		return
	}
	o.applyAudioConfig(p.SampleRate, p.Encoding, p.Language)
}

func (o *Orchestrator) applyAudioConfig(sampleRate int, encoding, language string) {
	if sampleRate > 0 {
		o.session.Audio.SampleRate = sampleRate
		o.transcriber.cfg.Audio.SampleRate = sampleRate
	}
	if encoding != "" {
		o.session.Audio.Encoding = encoding
		o.transcriber.cfg.Audio.Encoding = encoding
	}
	if language != "" {
		o.session.Audio.Language = language
		o.transcriber.cfg.Audio.Language = language
	}
}

// handleAudio feeds one inbound binary frame through barge-in detection and
// the transcriber. The feed loop keeps running while thinking or speaking is
// active; that is what makes barge-in observable at all.
func (o *Orchestrator) handleAudio(ctx context.Context, in Inbound) {
	chunk := AudioChunk{
		PCM:        in.Payload,
		SampleRate: o.session.Audio.SampleRate,
		Direction:  DirectionIn,
	}

	if o.session.Speaking != nil && o.transcriber.SpeechDetected(chunk) {
		o.interruptSpeaking(ReasonBargeIn)
	}

	results, err := o.transcriber.Feed(ctx, chunk)
	if err != nil {
		o.failTranscription(err)
		return
	}

	for _, res := range results {
		if res.IsFinal {
			o.processFinal(ctx, res)
			continue
		}
		o.emit(protocol.TypeTranscriptPartial, protocol.TranscriptPayload{
			Text:       res.Text,
			IsFinal:    false,
			Confidence: res.Confidence,
		})
		if verdict := o.buffer.Evaluate(res); verdict.Action == ActionPause {
			o.emit(protocol.TypeThinkingPause, protocol.ThinkingPayload{})
			o.armResumeTimer()
		}
	}
}

// processFinal routes a final transcript through the thinking buffer and acts
// on the verdict.
func (o *Orchestrator) processFinal(ctx context.Context, res TranscriptResult) {
	o.emit(protocol.TypeTranscriptFinal, protocol.TranscriptPayload{
		Text:       res.Text,
		IsFinal:    true,
		Confidence: res.Confidence,
	})
	o.session.AccumulateFinal(res)
	o.stopResumeTimer()

	verdict := o.buffer.Evaluate(res)
	switch verdict.Action {
	case ActionStart:
		o.startThinking(ctx)

	case ActionContinue:
		// The fragment extends the pending input. The in-flight call has
		// already consumed its transcript, so it is cancelled and restarted
		// with the merged input; the session stays in thinking.
		o.restartThinking(ctx)

	case ActionCancel:
		o.interruptThinking(verdict.Reason)
		if verdict.Restart {
			o.startThinking(ctx)
		} else {
			o.toListening()
		}

	case ActionNone:
		// Empty transcript or terminal state; nothing to do.
	}
}

// startThinking launches the reasoning task for the buffer's pending input.
// The single-active-task invariant holds structurally: the session holds one
// task handle, and any running speaking task is interrupted first.
func (o *Orchestrator) startThinking(ctx context.Context) {
	if o.session.Speaking != nil {
		// Starting thinking implicitly cancels speaking; the interruption
		// event goes out before thinking_start.
		o.interruptSpeaking(ReasonCancelled)
	}
	transcript := o.buffer.Pending()
	o.session.Status = StatusThinking
	o.thinkBegan = time.Now()
	o.buffer.MarkStarted()
	o.emit(protocol.TypeThinkingStart, protocol.ThinkingPayload{Transcript: transcript})
	o.launchReasoner(ctx, transcript)
}

// restartThinking replaces the in-flight call with one over the merged input
// without re-announcing thinking_start.
func (o *Orchestrator) restartThinking(ctx context.Context) {
	if o.session.Thinking != nil {
		o.session.Thinking.Cancel()
		o.session.Thinking = nil
	}
	o.buffer.MarkStarted()
	o.launchReasoner(ctx, o.buffer.Pending())
}

func (o *Orchestrator) launchReasoner(ctx context.Context, transcript string) {
	gen := o.session.NextGen()
	tctx, cancel := context.WithTimeout(ctx, o.cfg.Buffer.MaxThinking)
	o.session.Thinking = &ThinkingTask{
		Gen:        gen,
		Transcript: transcript,
		StartedAt:  time.Now(),
		cancel:     cancel,
	}

	sc := repositories.SessionContext{
		SessionID: o.session.ID,
		UserID:    o.session.UserID,
		Language:  o.session.Audio.Language,
		History:   o.history,
	}

	go func() {
		started := time.Now()
		result, err := o.reasoner.Invoke(tctx, transcript, sc)
		// Read the context state before the deferred-style cancel below makes
		// Err() unconditionally non-nil.
		ctxErr := tctx.Err()
		cancel()
		if err == nil && ctxErr != nil {
			// The call raced its own cancellation; treat the late result as
			// superseded rather than delivering it.
			err = ctxErr
		}
		select {
		case o.thinkCh <- thinkOutcome{gen: gen, result: result, err: err, startedAt: started}:
		case <-ctx.Done():
		}
	}()
}

// interruptThinking cancels the in-flight reasoning task and announces the
// stop. The thinking counterpart of interruptSpeaking: both pass through the
// interrupted status before the caller settles the next state.
func (o *Orchestrator) interruptThinking(reason string) {
	if o.session.Thinking == nil {
		return
	}
	o.cancelThinking(reason)
	o.session.Status = StatusInterrupted
	o.emit(protocol.TypeThinkingStop, protocol.ThinkingPayload{Reason: reason})
}

// cancelThinking drops the in-flight task without emitting events; callers
// decide what the client sees.
func (o *Orchestrator) cancelThinking(reason string) {
	if o.session.Thinking == nil {
		return
	}
	o.logger.Debug("cancelling thinking task",
		zap.Uint64("gen", o.session.Thinking.Gen),
		zap.String("reason", reason))
	o.session.Thinking.Cancel()
	o.session.Thinking = nil
	o.buffer.MarkCancelled()
	o.stopResumeTimer()
}

func (o *Orchestrator) handleThinkOutcome(ctx context.Context, outcome thinkOutcome) {
	task := o.session.Thinking
	if task == nil || task.Gen != outcome.gen {
		o.logger.Debug("discarding stale reasoning outcome", zap.Uint64("gen", outcome.gen))
		return
	}
	o.session.Thinking = nil

	if outcome.err != nil {
		reason := ReasonError
		stage := "reasoning"
		msg := outcome.err.Error()
		if errors.Is(outcome.err, context.DeadlineExceeded) || errors.Is(outcome.err, ErrReasoningTimeout) {
			reason = ReasonTimeout
			msg = ErrReasoningTimeout.Error()
		}
		o.buffer.MarkCancelled()
		o.emit(protocol.TypeThinkingStop, protocol.ThinkingPayload{Reason: reason})
		o.emitError(stage, msg)
		o.toListening()
		return
	}

	transcript := task.Transcript
	o.buffer.MarkDone()

	o.emit(protocol.TypeResponseText, protocol.ResponseTextPayload{Text: outcome.result.ResponseText})
	o.emit(protocol.TypeResponseComplete, protocol.ResponseCompletePayload{
		Text:       outcome.result.ResponseText,
		DurationMs: time.Since(outcome.startedAt).Milliseconds(),
	})

	o.turn = entities.Turn{
		Timestamp:  o.session.Listening.StartedAt,
		Transcript: transcript,
		Confidence: o.session.Listening.BestConfidence,
		Response:   outcome.result.ResponseText,
		ThinkingMs: time.Since(o.thinkBegan).Milliseconds(),
	}
	o.history = append(o.history,
		repositories.Exchange{Role: repositories.UserRole, Content: transcript},
		repositories.Exchange{Role: repositories.TutorRole, Content: outcome.result.ResponseText},
	)

	o.launchAnalysis(ctx, transcript)
	o.startSpeaking(ctx, outcome.result.ResponseText)
}

func (o *Orchestrator) startSpeaking(ctx context.Context, text string) {
	o.session.Status = StatusSpeaking
	o.speakBegan = time.Now()
	o.emit(protocol.TypeAudioStart, protocol.AudioStartPayload{
		SampleRate: o.cfg.Synth.SampleRate,
		Format:     o.cfg.Synth.Format,
	})

	sctx, cancel := context.WithCancel(ctx)
	o.session.Speaking = &SpeakingTask{
		Gen:       o.session.NextGen(),
		Text:      text,
		StartedAt: time.Now(),
		cancel:    cancel,
	}
	o.synthCh = o.synth.Synthesize(sctx, text)
}

func (o *Orchestrator) handleSynthEvent(ctx context.Context, ev AudioEvent, ok bool) {
	task := o.session.Speaking
	if task == nil {
		// The stream was detached on interruption; drain silently.
		return
	}

	if !ok {
		// Synthesis exhausted.
		o.synthCh = nil
		o.session.Speaking = nil
		o.emit(protocol.TypeAudioEnd, protocol.AudioEndPayload{ChunkCount: task.ChunkCount})
		o.turn.SpeakingMs = time.Since(o.speakBegan).Milliseconds()
		o.finishTurn()
		o.toListening()
		return
	}

	if ev.Err != nil {
		o.synthCh = nil
		o.session.Speaking = nil
		task.Cancel()
		o.emit(protocol.TypeAudioInterrupted, protocol.AudioInterruptedPayload{Reason: ReasonError})
		o.emitError("synthesis", ev.Err.Error())
		o.turn.Interrupted = true
		o.finishTurn()
		o.toListening()
		return
	}

	task.ChunkCount++
	o.emitAudio(ev.Chunk)
}

// interruptSpeaking cancels the active synthesis stream. audio_interrupted is
// emitted before anything the next turn produces, and the detached stream can
// never emit another chunk because the loop stops reading it and the producer
// observes cancellation at its next yield point.
func (o *Orchestrator) interruptSpeaking(reason string) {
	task := o.session.Speaking
	if task == nil {
		return
	}
	task.Cancel()
	o.session.Speaking = nil
	o.synthCh = nil

	o.session.Status = StatusInterrupted
	o.emit(protocol.TypeAudioInterrupted, protocol.AudioInterruptedPayload{Reason: reason})

	o.turn.Interrupted = true
	o.turn.SpeakingMs = time.Since(o.speakBegan).Milliseconds()
	o.finishTurn()
	o.toListening()
}

func (o *Orchestrator) launchAnalysis(ctx context.Context, transcript string) {
	if o.analyzer == nil {
		return
	}
	sc := repositories.SessionContext{
		SessionID: o.session.ID,
		UserID:    o.session.UserID,
		Language:  o.session.Audio.Language,
	}
	go func() {
		analysis, err := o.analyzer.Analyze(ctx, transcript, sc)
		select {
		case o.analysisCh <- analysisOutcome{analysis: analysis, err: err}:
		case <-ctx.Done():
		}
	}()
}

func (o *Orchestrator) handleAnalysis(outcome analysisOutcome) {
	if outcome.err != nil {
		// Supplementary: dropped, never surfaced to the conversation.
		o.logger.Warn("analysis failed", zap.Error(outcome.err))
		return
	}
	a := outcome.analysis
	if len(a.Issues) > 0 {
		issues := make([]protocol.LanguageIssue, 0, len(a.Issues))
		for _, issue := range a.Issues {
			issues = append(issues, protocol.LanguageIssue{
				Span:       issue.Span,
				Kind:       issue.Kind,
				Suggestion: issue.Suggestion,
			})
		}
		o.emit(protocol.TypeAnalysisErrors, protocol.AnalysisErrorsPayload{Errors: issues})
	}
	if len(a.Scores) > 0 {
		o.emit(protocol.TypeAnalysisScores, protocol.AnalysisScoresPayload{Scores: a.Scores})
	}
	if len(a.Concepts) > 0 {
		o.emit(protocol.TypeAnalysisConcepts, protocol.AnalysisConceptsPayload{Concepts: a.Concepts})
	}
}

func (o *Orchestrator) failTranscription(err error) {
	o.logger.Error("transcription failed", zap.Error(err))
	o.emitError("transcription", err.Error())
	o.toListening()
}

func (o *Orchestrator) toListening() {
	o.session.Status = StatusListening
	o.session.BeginTurn()
}

func (o *Orchestrator) armResumeTimer() {
	o.stopResumeTimer()
	o.resumeTimer = time.NewTimer(o.cfg.Buffer.MergeWindow)
}

func (o *Orchestrator) stopResumeTimer() {
	if o.resumeTimer != nil {
		o.resumeTimer.Stop()
		o.resumeTimer = nil
	}
}

// finishTurn records the turn locally and persists it without blocking the
// control loop.
func (o *Orchestrator) finishTurn() {
	if o.turn.Transcript == "" && o.turn.Response == "" {
		return
	}
	turn := o.turn
	o.record.AddTurn(turn)
	o.turn = entities.Turn{}

	if o.store == nil {
		return
	}
	sessionID := o.session.ID
	go func() {
		pctx, cancel := context.WithTimeout(context.Background(), o.cfg.PersistTimeout)
		defer cancel()
		if err := o.store.AppendTurn(pctx, sessionID, turn); err != nil {
			o.logger.Warn("failed to persist turn", zap.Error(err))
		}
	}()
}

// teardown cancels everything and closes the outbound stream. Runs exactly
// once, from Run's defer.
func (o *Orchestrator) teardown() {
	o.session.Thinking.Cancel()
	o.session.Speaking.Cancel()
	o.session.Thinking = nil
	o.session.Speaking = nil
	o.synthCh = nil
	o.stopResumeTimer()
	o.session.Status = StatusClosed
	o.record.End()

	if o.store != nil {
		record := o.record
		logger := o.logger
		timeout := o.cfg.PersistTimeout
		go func() {
			pctx, cancel := context.WithTimeout(context.Background(), timeout)
			defer cancel()
			if err := o.store.Create(pctx, record); err != nil {
				logger.Debug("session record not persisted", zap.Error(err))
			}
		}()
	}

	// Best-effort farewell; the socket may already be gone.
	msg := protocol.NewMessage(protocol.TypeDisconnected, protocol.DisconnectedPayload{Reason: "session closed"})
	msg.Sequence = o.session.NextSeq()
	if b, err := protocol.Encode(msg); err == nil {
		select {
		case o.out <- Frame{Payload: b}:
		default:
		}
	}
	close(o.out)
}

// emit serializes and queues one ordered outbound message, stamping the
// session's sequence number. Only the Run goroutine calls it. Event frames
// are never dropped: a full queue suspends the control loop until the writer
// drains or the session is cancelled. Binary audio is the only best-effort
// traffic; see emitAudio.
func (o *Orchestrator) emit(t protocol.MessageType, payload interface{}) {
	msg := protocol.NewMessage(t, payload)
	msg.Sequence = o.session.NextSeq()
	b, err := protocol.Encode(msg)
	if err != nil {
		o.logger.Error("failed to encode outbound message", zap.String("type", string(t)), zap.Error(err))
		return
	}
	select {
	case o.out <- Frame{Payload: b}:
	case <-o.sessionDone():
		o.logger.Warn("session cancelled before message delivered", zap.String("type", string(t)))
	}
}

func (o *Orchestrator) sessionDone() <-chan struct{} {
	if o.runCtx == nil {
		return nil
	}
	return o.runCtx.Done()
}

func (o *Orchestrator) emitAudio(chunk AudioChunk) {
	select {
	case o.out <- Frame{Binary: true, Payload: chunk.PCM}:
	default:
		o.logger.Warn("outbound queue full, dropping audio chunk")
	}
}

func (o *Orchestrator) emitError(stage, message string) {
	o.emit(protocol.TypeError, protocol.ErrorPayload{Stage: stage, Message: message})
}
