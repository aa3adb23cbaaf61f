package usecase

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"voicewidget/internal/domain"
	"voicewidget/internal/ports"
	"voicewidget/internal/wakeword"
)

const (
	defaultCooldown        = time.Second
	defaultDispatchTimeout = 15 * time.Second
)

// Config controls session timing and gating.
type Config struct {
	Cooldown        time.Duration
	DispatchTimeout time.Duration
	WakeWords       wakeword.Set
}

// scheduleFunc runs fn after d and returns a function that cancels it.
type scheduleFunc func(d time.Duration, fn func()) (cancel func() bool)

func afterFunc(d time.Duration, fn func()) func() bool {
	return time.AfterFunc(d, fn).Stop
}

// VoiceSession drives one capture attempt at a time through the voice command
// lifecycle and owns the recognizer for as long as it is alive.
type VoiceSession struct {
	id         string
	recognizer ports.Recognizer
	runner     commandRunner
	events     ports.EventSink
	cfg        Config
	schedule   scheduleFunc

	mu             sync.Mutex
	alive          bool
	supported      bool
	hostBusy       bool
	capturing      bool
	state          domain.SessionState
	reason         domain.SessionStateReason
	transcript     string
	response       string
	attempt        uint64
	cooldownSeq    uint64
	cancelCooldown func() bool

	inflight sync.WaitGroup
}

func NewVoiceSession(
	recognizer ports.Recognizer,
	dispatcher ports.CommandDispatcher,
	speaker ports.Speaker,
	events ports.EventSink,
	cfg Config,
) *VoiceSession {
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = defaultCooldown
	}
	if cfg.DispatchTimeout <= 0 {
		cfg.DispatchTimeout = defaultDispatchTimeout
	}
	if len(cfg.WakeWords.Phrases()) == 0 {
		cfg.WakeWords = wakeword.Default()
	}
	if events == nil {
		events = discardSink{}
	}

	supported := recognizer != nil && recognizer.Available()
	reason := domain.SessionReasonMounted
	if !supported {
		reason = domain.SessionReasonUnsupported
	}

	return &VoiceSession{
		id:         uuid.NewString(),
		recognizer: recognizer,
		runner:     newCommandRunner(dispatcher, speaker),
		events:     events,
		cfg:        cfg,
		schedule:   afterFunc,
		alive:      true,
		supported:  supported,
		state:      domain.SessionStateIdle,
		reason:     reason,
	}
}

// ID identifies this widget instance's session in logs and status payloads.
func (s *VoiceSession) ID() string {
	return s.id
}

// Start begins a capture attempt. It is a no-op while busy, unsupported, or torn down.
func (s *VoiceSession) Start(ctx context.Context) {
	s.mu.Lock()
	if !s.canStartLocked() {
		s.mu.Unlock()
		return
	}
	s.stopCooldownLocked()
	s.attempt++
	attempt := s.attempt
	s.transcript = ""
	s.response = ""
	s.capturing = false
	status := s.transitionLocked(domain.SessionStateStarting, domain.SessionReasonStarting)
	s.mu.Unlock()

	s.events.SessionStatusChanged(status)

	if err := s.recognizer.Start(ctx, &attemptListener{session: s, attempt: attempt}); err != nil {
		logger.Warn("failed to start capture", s.logAttrs(slog.String("error", err.Error()))...)

		s.mu.Lock()
		if s.isStaleLocked(attempt) || s.state != domain.SessionStateStarting {
			s.mu.Unlock()
			return
		}
		status := s.failLocked(domain.SessionReasonStartFailed)
		s.mu.Unlock()
		s.events.SessionStatusChanged(status)
	}
}

// Stop halts capture and returns to Idle. Safe from any state.
func (s *VoiceSession) Stop() {
	s.mu.Lock()
	if !s.alive || s.state == domain.SessionStateIdle {
		s.mu.Unlock()
		return
	}
	s.stopCooldownLocked()
	s.attempt++
	s.capturing = false
	status := s.transitionLocked(domain.SessionStateIdle, domain.SessionReasonReady)
	s.mu.Unlock()

	s.events.SessionStatusChanged(status)
	if err := s.recognizer.Stop(); err != nil {
		logger.Debug("stop capture", s.logAttrs(slog.String("error", err.Error()))...)
	}
}

// Toggle starts capture when idle and stops it otherwise.
func (s *VoiceSession) Toggle(ctx context.Context) {
	s.mu.Lock()
	busy := s.hostBusy
	state := s.state
	s.mu.Unlock()

	if busy {
		return
	}
	switch state {
	case domain.SessionStateStarting, domain.SessionStateListening:
		s.Stop()
	default:
		s.Start(ctx)
	}
}

// Teardown releases the recognizer and silences every later callback.
func (s *VoiceSession) Teardown() {
	s.mu.Lock()
	if !s.alive {
		s.mu.Unlock()
		return
	}
	s.alive = false
	s.stopCooldownLocked()
	s.attempt++
	s.mu.Unlock()

	if s.recognizer == nil {
		return
	}
	if err := s.recognizer.Stop(); err != nil {
		logger.Debug("stop capture on teardown", s.logAttrs(slog.String("error", err.Error()))...)
	}
}

// SetHostBusy records the host's external processing flag.
func (s *VoiceSession) SetHostBusy(busy bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hostBusy = busy
}

// Status returns the current snapshot.
func (s *VoiceSession) Status() domain.Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.statusLocked()
}

// OnStart, OnResult, OnError and OnEnd deliver capability events for the
// current capture attempt.
func (s *VoiceSession) OnStart() { s.onStart(s.currentAttempt()) }

func (s *VoiceSession) OnResult(result domain.RecognitionResult) {
	s.onResult(s.currentAttempt(), result)
}

func (s *VoiceSession) OnError(code domain.CaptureErrorCode) {
	s.onError(s.currentAttempt(), code)
}

func (s *VoiceSession) OnEnd() { s.onEnd(s.currentAttempt()) }

func (s *VoiceSession) onStart(attempt uint64) {
	s.mu.Lock()
	if s.isStaleLocked(attempt) || s.state != domain.SessionStateStarting {
		s.mu.Unlock()
		return
	}
	s.capturing = true
	status := s.transitionLocked(domain.SessionStateListening, domain.SessionReasonListening)
	s.mu.Unlock()

	s.events.SessionStatusChanged(status)
	s.events.VoiceStateChanged(domain.VoiceStateChange{Listening: true, Transcript: ""})
}

func (s *VoiceSession) onResult(attempt uint64, result domain.RecognitionResult) {
	if !result.Final {
		return
	}

	s.mu.Lock()
	if s.isStaleLocked(attempt) || s.state != domain.SessionStateListening {
		s.mu.Unlock()
		return
	}

	command := strings.TrimSpace(result.Transcript)
	s.transcript = command

	if _, ok := s.cfg.WakeWords.Match(command); !ok {
		status := s.transitionLocked(domain.SessionStateIdle, domain.SessionReasonWakeWordRequired)
		s.mu.Unlock()
		s.events.SessionStatusChanged(status)
		return
	}

	status := s.transitionLocked(domain.SessionStateProcessing, domain.SessionReasonProcessing)
	s.inflight.Add(1)
	s.mu.Unlock()

	s.events.SessionStatusChanged(status)
	s.events.CommandForwarded(command)
	go s.dispatch(attempt, command)
}

func (s *VoiceSession) onError(attempt uint64, code domain.CaptureErrorCode) {
	s.mu.Lock()
	if s.isStaleLocked(attempt) {
		s.mu.Unlock()
		return
	}
	if s.state != domain.SessionStateStarting && s.state != domain.SessionStateListening {
		state := s.state
		s.mu.Unlock()
		logger.Debug("ignoring capture error outside capture",
			s.logAttrs(slog.String("code", string(code)), slog.String("state", string(state)))...)
		return
	}
	s.capturing = false
	status := s.failLocked(captureErrorReason(code))
	s.mu.Unlock()

	logger.Info("capture error", s.logAttrs(slog.String("code", string(code)))...)
	s.events.SessionStatusChanged(status)
}

func (s *VoiceSession) onEnd(attempt uint64) {
	s.mu.Lock()
	if s.isStaleLocked(attempt) {
		s.mu.Unlock()
		return
	}
	s.capturing = false
	switch s.state {
	case domain.SessionStateError, domain.SessionStateProcessing:
	default:
		s.scheduleResetLocked()
	}
	status := s.statusLocked()
	s.mu.Unlock()

	s.events.SessionStatusChanged(status)
}

func (s *VoiceSession) dispatch(attempt uint64, command string) {
	defer s.inflight.Done()

	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.DispatchTimeout)
	defer cancel()

	result, err := s.runner.Dispatch(ctx, command)

	s.mu.Lock()
	if !s.alive {
		s.mu.Unlock()
		logger.Debug("dropping command result after teardown", s.logAttrs()...)
		return
	}
	current := attempt == s.attempt && s.state == domain.SessionStateProcessing

	if err != nil {
		logger.Warn("command dispatch failed", s.logAttrs(slog.String("error", err.Error()))...)
		if !current {
			s.mu.Unlock()
			return
		}
		status := s.transitionLocked(domain.SessionStateProcessing, domain.SessionReasonDispatchFailed)
		s.scheduleResetLocked()
		s.mu.Unlock()
		s.events.SessionStatusChanged(status)
		return
	}

	s.response = result.ResponseText
	if current {
		s.transitionLocked(domain.SessionStateProcessing, domain.SessionReasonResponseReady)
		s.scheduleResetLocked()
	}
	status := s.statusLocked()
	s.mu.Unlock()

	s.events.CommandResponded(result)
	s.events.SessionStatusChanged(status)
	s.runner.Speak(context.Background(), result.ResponseText)
}

func (s *VoiceSession) resetAfterCooldown(seq uint64) {
	s.mu.Lock()
	if !s.alive || seq != s.cooldownSeq {
		s.mu.Unlock()
		return
	}
	s.cancelCooldown = nil
	s.capturing = false
	status := s.transitionLocked(domain.SessionStateIdle, domain.SessionReasonReady)
	s.mu.Unlock()

	s.events.SessionStatusChanged(status)
}

func (s *VoiceSession) canStartLocked() bool {
	if !s.alive || !s.supported || s.hostBusy {
		return false
	}
	return s.state == domain.SessionStateIdle || s.state == domain.SessionStateError
}

func (s *VoiceSession) isStaleLocked(attempt uint64) bool {
	return !s.alive || attempt != s.attempt
}

func (s *VoiceSession) currentAttempt() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.attempt
}

func (s *VoiceSession) failLocked(reason domain.SessionStateReason) domain.Status {
	status := s.transitionLocked(domain.SessionStateError, reason)
	s.scheduleResetLocked()
	return status
}

func (s *VoiceSession) scheduleResetLocked() {
	s.stopCooldownLocked()
	s.cooldownSeq++
	seq := s.cooldownSeq
	s.cancelCooldown = s.schedule(s.cfg.Cooldown, func() { s.resetAfterCooldown(seq) })
}

func (s *VoiceSession) stopCooldownLocked() {
	s.cooldownSeq++
	if s.cancelCooldown != nil {
		s.cancelCooldown()
		s.cancelCooldown = nil
	}
}

func (s *VoiceSession) transitionLocked(state domain.SessionState, reason domain.SessionStateReason) domain.Status {
	if s.state != state {
		logger.Debug("session transition", s.logAttrs(
			slog.String("from", string(s.state)),
			slog.String("to", string(state)),
			slog.String("reason", string(reason)),
		)...)
	}
	s.state = state
	s.reason = reason
	return s.statusLocked()
}

func (s *VoiceSession) statusLocked() domain.Status {
	return domain.Status{
		SessionID:  s.id,
		State:      s.state,
		Reason:     s.reason,
		Message:    StatusMessage(s.reason),
		Transcript: s.transcript,
		Response:   s.response,
		Listening:  s.capturing,
		Supported:  s.supported,
	}
}

func (s *VoiceSession) logAttrs(attrs ...any) []any {
	return append([]any{slog.String("session_id", s.id)}, attrs...)
}

// wait blocks until in-flight dispatches have finished.
func (s *VoiceSession) wait() {
	s.inflight.Wait()
}

type attemptListener struct {
	session *VoiceSession
	attempt uint64
}

func (l *attemptListener) OnStart() { l.session.onStart(l.attempt) }

func (l *attemptListener) OnResult(result domain.RecognitionResult) {
	l.session.onResult(l.attempt, result)
}

func (l *attemptListener) OnError(code domain.CaptureErrorCode) {
	l.session.onError(l.attempt, code)
}

func (l *attemptListener) OnEnd() { l.session.onEnd(l.attempt) }

type discardSink struct{}

func (discardSink) SessionStatusChanged(domain.Status)          {}
func (discardSink) VoiceStateChanged(domain.VoiceStateChange) {}
func (discardSink) CommandForwarded(string)                   {}
func (discardSink) CommandResponded(domain.CommandResult)     {}
