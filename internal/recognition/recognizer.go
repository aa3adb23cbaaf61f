package recognition

import (
	"context"
	"errors"
	"log/slog"
	"os/exec"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"voicewidget/internal/audio"
	"voicewidget/internal/domain"
	"voicewidget/internal/ports"
)

var (
	ErrCaptureActive = errors.New("a capture is already running")
	ErrUnavailable   = errors.New("speech recognition is not available")
)

const defaultSilenceTimeout = 8 * time.Second

// Config controls one-shot capture behavior.
type Config struct {
	Audio              ports.AudioConfig
	Streaming          ports.StreamingConfig
	ChunkSize          int
	SilenceTimeout     time.Duration
	RecorderCommand    string
	ProviderConfigured bool
}

// Recognizer captures a single utterance per Start and reports it through a
// ports.RecognitionListener, the way a browser speech recognizer does in
// non-continuous mode.
type Recognizer struct {
	capture  ports.AudioCapture
	provider ports.TranscriptionProvider
	cfg      Config
	lookPath func(string) (string, error)

	mu      sync.Mutex
	current *captureRun
}

type captureRun struct {
	stopOnce sync.Once
	stopped  chan struct{}
}

func (r *captureRun) halt() {
	r.stopOnce.Do(func() { close(r.stopped) })
}

func (r *captureRun) isHalted() bool {
	select {
	case <-r.stopped:
		return true
	default:
		return false
	}
}

func NewRecognizer(capture ports.AudioCapture, provider ports.TranscriptionProvider, cfg Config) *Recognizer {
	if cfg.SilenceTimeout <= 0 {
		cfg.SilenceTimeout = defaultSilenceTimeout
	}
	if cfg.ChunkSize < 256 {
		cfg.ChunkSize = 4096
	}
	if cfg.RecorderCommand == "" {
		cfg.RecorderCommand = "ffmpeg"
	}
	cfg.Streaming.InterimResults = false
	return &Recognizer{
		capture:  capture,
		provider: provider,
		cfg:      cfg,
		lookPath: exec.LookPath,
	}
}

// Available reports whether a transcription provider is configured and the
// recorder binary can be found.
func (r *Recognizer) Available() bool {
	if !r.cfg.ProviderConfigured || r.capture == nil || r.provider == nil {
		return false
	}
	if strings.TrimSpace(r.cfg.RecorderCommand) == "" {
		return false
	}
	_, err := r.lookPath(r.cfg.RecorderCommand)
	return err == nil
}

// Start launches a capture. Every outcome is reported through listener and
// OnEnd is always the final callback.
func (r *Recognizer) Start(ctx context.Context, listener ports.RecognitionListener) error {
	if !r.Available() {
		return ErrUnavailable
	}

	r.mu.Lock()
	if r.current != nil {
		r.mu.Unlock()
		return ErrCaptureActive
	}
	run := &captureRun{stopped: make(chan struct{})}
	r.current = run
	r.mu.Unlock()

	go r.run(ctx, run, listener)
	return nil
}

// Stop halts the running capture, if any. The listener still receives OnEnd.
func (r *Recognizer) Stop() error {
	r.mu.Lock()
	run := r.current
	r.mu.Unlock()

	if run != nil {
		run.halt()
	}
	return nil
}

func (r *Recognizer) run(parent context.Context, run *captureRun, listener ports.RecognitionListener) {
	ctx, span := tracer.Start(parent, "capture utterance")
	ctx, cancel := context.WithCancel(ctx)

	outcome := "stopped"
	defer func() {
		cancel()
		span.SetAttributes(attribute.String("capture.outcome", outcome))
		span.End()

		r.mu.Lock()
		if r.current == run {
			r.current = nil
		}
		r.mu.Unlock()

		listener.OnEnd()
	}()

	fail := func(code domain.CaptureErrorCode, err error) {
		outcome = string(code)
		if err != nil {
			span.RecordError(err)
			logger.Info("capture failed", slog.String("code", string(code)), slog.String("error", err.Error()))
		}
		if !run.isHalted() {
			listener.OnError(code)
		}
	}

	stream, err := r.provider.StartStreaming(ctx, r.cfg.Streaming)
	if err != nil {
		fail(domain.CaptureErrorNetwork, err)
		return
	}
	defer func() { _ = stream.Close() }()

	mic, err := r.capture.Start(ctx, r.cfg.Audio)
	if err != nil {
		fail(classifyCaptureError(err), err)
		return
	}
	defer func() { _ = mic.Stop() }()

	if run.isHalted() {
		return
	}
	listener.OnStart()

	result, code, err := r.collect(ctx, run, mic, stream)
	switch {
	case result != "":
		outcome = "result"
		span.SetAttributes(attribute.Int("capture.transcript_length", len(result)))
		listener.OnResult(domain.RecognitionResult{Transcript: result, Final: true})
	case code != "":
		fail(code, err)
	}
}

// collect waits for one complete utterance. It returns the transcript, or a
// capture error code, or neither when the capture was halted.
func (r *Recognizer) collect(
	ctx context.Context,
	run *captureRun,
	mic ports.AudioSession,
	stream ports.StreamingSession,
) (string, domain.CaptureErrorCode, error) {
	pumpDone := make(chan error, 1)
	go func() { pumpDone <- pumpAudio(mic, stream, r.cfg.ChunkSize) }()

	silence := time.NewTimer(r.cfg.SilenceTimeout)
	defer silence.Stop()

	halt := func() {
		_ = mic.Stop()
		_ = stream.CloseSend()
	}

	var heard utterance
	events := stream.Events()
	pump := pumpDone
	for {
		select {
		case <-run.stopped:
			halt()
			return "", "", nil
		case <-ctx.Done():
			halt()
			return "", "", nil
		case <-silence.C:
			halt()
			if text := heard.Text(); text != "" {
				return text, "", nil
			}
			return "", domain.CaptureErrorNoSpeech, errors.New("no speech before silence timeout")
		case err := <-pump:
			pump = nil
			if err != nil {
				halt()
				if errors.Is(err, errStreamSend) {
					return "", domain.CaptureErrorNetwork, err
				}
				return "", domain.CaptureErrorAudioCapture, err
			}
			_ = stream.CloseSend()
		case event, ok := <-events:
			if !ok {
				streamErr := stream.Wait()
				if text := heard.Text(); text != "" {
					return text, "", nil
				}
				if streamErr != nil {
					return "", domain.CaptureErrorNetwork, streamErr
				}
				return "", domain.CaptureErrorNoSpeech, nil
			}
			heard.Add(event)
			if heard.Complete() {
				halt()
				return heard.Text(), "", nil
			}
		}
	}
}

func classifyCaptureError(err error) domain.CaptureErrorCode {
	if errors.Is(err, audio.ErrAccessDenied) {
		return domain.CaptureErrorNotAllowed
	}
	return domain.CaptureErrorAudioCapture
}
