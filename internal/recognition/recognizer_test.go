package recognition

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"voicewidget/internal/audio"
	"voicewidget/internal/domain"
	"voicewidget/internal/ports"
)

func TestAvailableRequiresProviderAndRecorder(t *testing.T) {
	t.Parallel()

	r := newTestRecognizer(&fakeCapture{}, &fakeProvider{}, Config{ProviderConfigured: false})
	if r.Available() {
		t.Fatalf("expected unavailable without provider key")
	}

	r = newTestRecognizer(&fakeCapture{}, &fakeProvider{}, Config{ProviderConfigured: true})
	r.lookPath = func(string) (string, error) { return "", errors.New("not found") }
	if r.Available() {
		t.Fatalf("expected unavailable without recorder binary")
	}
	if err := r.Start(context.Background(), newRecordingListener()); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}

func TestStartDeliversFinalUtterance(t *testing.T) {
	t.Parallel()

	stream := newFakeStream()
	r := newTestRecognizer(&fakeCapture{}, &fakeProvider{stream: stream}, Config{ProviderConfigured: true})
	listener := newRecordingListener()

	if err := r.Start(context.Background(), listener); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	listener.waitFor(t, "start")

	stream.events <- domain.TranscriptEvent{Kind: domain.TranscriptKindFinal, Text: "Jarvis turn on"}
	stream.events <- domain.TranscriptEvent{Kind: domain.TranscriptKindFinal, Text: "the lights", IsSpeechFinal: true}

	listener.waitEnded(t)
	want := []string{"start", "result:Jarvis turn on the lights", "end"}
	assertCalls(t, listener.snapshot(), want)
	if !stream.sendClosed() {
		t.Fatalf("expected audio stream to be closed")
	}
}

func TestSilenceWithoutSpeechReportsNoSpeech(t *testing.T) {
	t.Parallel()

	r := newTestRecognizer(&fakeCapture{}, &fakeProvider{stream: newFakeStream()}, Config{
		ProviderConfigured: true,
		SilenceTimeout:     20 * time.Millisecond,
	})
	listener := newRecordingListener()

	if err := r.Start(context.Background(), listener); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	listener.waitEnded(t)
	assertCalls(t, listener.snapshot(), []string{"start", "error:no-speech", "end"})
}

func TestSilenceAfterPartialSpeechDeliversIt(t *testing.T) {
	t.Parallel()

	stream := newFakeStream()
	r := newTestRecognizer(&fakeCapture{}, &fakeProvider{stream: stream}, Config{
		ProviderConfigured: true,
		SilenceTimeout:     50 * time.Millisecond,
	})
	listener := newRecordingListener()

	if err := r.Start(context.Background(), listener); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	listener.waitFor(t, "start")
	stream.events <- domain.TranscriptEvent{Kind: domain.TranscriptKindFinal, Text: "hey jarvis"}

	listener.waitEnded(t)
	assertCalls(t, listener.snapshot(), []string{"start", "result:hey jarvis", "end"})
}

func TestStopEndsWithoutError(t *testing.T) {
	t.Parallel()

	r := newTestRecognizer(&fakeCapture{}, &fakeProvider{stream: newFakeStream()}, Config{ProviderConfigured: true})
	listener := newRecordingListener()

	if err := r.Start(context.Background(), listener); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	listener.waitFor(t, "start")

	if err := r.Start(context.Background(), newRecordingListener()); !errors.Is(err, ErrCaptureActive) {
		t.Fatalf("expected ErrCaptureActive, got %v", err)
	}

	if err := r.Stop(); err != nil {
		t.Fatalf("stop failed: %v", err)
	}
	listener.waitEnded(t)
	assertCalls(t, listener.snapshot(), []string{"start", "end"})

	if err := r.Stop(); err != nil {
		t.Fatalf("stop when idle should be a no-op: %v", err)
	}
}

func TestCanStartAgainAfterEnd(t *testing.T) {
	t.Parallel()

	provider := &fakeProvider{stream: newFakeStream()}
	r := newTestRecognizer(&fakeCapture{}, provider, Config{ProviderConfigured: true})

	first := newRecordingListener()
	if err := r.Start(context.Background(), first); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	first.waitFor(t, "start")
	_ = r.Stop()
	first.waitEnded(t)

	provider.setStream(newFakeStream())
	second := newRecordingListener()
	if err := r.Start(context.Background(), second); err != nil {
		t.Fatalf("restart failed: %v", err)
	}
	second.waitFor(t, "start")
	_ = r.Stop()
	second.waitEnded(t)
}

func TestCaptureFailuresAreCoded(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name     string
		capture  *fakeCapture
		provider *fakeProvider
		want     string
	}{
		{
			name:     "access denied",
			capture:  &fakeCapture{err: fmt.Errorf("%w: Permission denied", audio.ErrAccessDenied)},
			provider: &fakeProvider{stream: newFakeStream()},
			want:     "error:not-allowed",
		},
		{
			name:     "device failure",
			capture:  &fakeCapture{err: errors.New("no such device")},
			provider: &fakeProvider{stream: newFakeStream()},
			want:     "error:audio-capture",
		},
		{
			name:     "provider unreachable",
			capture:  &fakeCapture{},
			provider: &fakeProvider{err: errors.New("dial failed")},
			want:     "error:network",
		},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			r := newTestRecognizer(tc.capture, tc.provider, Config{ProviderConfigured: true})
			listener := newRecordingListener()
			if err := r.Start(context.Background(), listener); err != nil {
				t.Fatalf("start failed: %v", err)
			}
			listener.waitEnded(t)
			assertCalls(t, listener.snapshot(), []string{tc.want, "end"})
		})
	}
}

func TestStreamFailureReportsNetworkError(t *testing.T) {
	t.Parallel()

	stream := newFakeStream()
	stream.waitErr = errors.New("socket reset")
	r := newTestRecognizer(&fakeCapture{}, &fakeProvider{stream: stream}, Config{ProviderConfigured: true})
	listener := newRecordingListener()

	if err := r.Start(context.Background(), listener); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	listener.waitFor(t, "start")
	close(stream.events)

	listener.waitEnded(t)
	assertCalls(t, listener.snapshot(), []string{"start", "error:network", "end"})
}

func TestNewRecognizerForcesFinalOnlyResults(t *testing.T) {
	t.Parallel()

	r := NewRecognizer(&fakeCapture{}, &fakeProvider{}, Config{Streaming: ports.StreamingConfig{InterimResults: true}})
	if r.cfg.Streaming.InterimResults {
		t.Fatalf("expected interim results disabled")
	}
	if r.cfg.SilenceTimeout != defaultSilenceTimeout || r.cfg.ChunkSize != 4096 || r.cfg.RecorderCommand != "ffmpeg" {
		t.Fatalf("unexpected defaults: %#v", r.cfg)
	}
}

func newTestRecognizer(capture ports.AudioCapture, provider ports.TranscriptionProvider, cfg Config) *Recognizer {
	r := NewRecognizer(capture, provider, cfg)
	r.lookPath = func(name string) (string, error) { return "/usr/bin/" + name, nil }
	return r
}

func assertCalls(t *testing.T, got []string, want []string) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("unexpected callbacks: got %v want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("unexpected callbacks: got %v want %v", got, want)
		}
	}
}

type recordingListener struct {
	mu     sync.Mutex
	calls  []string
	notify chan struct{}
	ended  chan struct{}
}

func newRecordingListener() *recordingListener {
	return &recordingListener{notify: make(chan struct{}, 16), ended: make(chan struct{})}
}

func (l *recordingListener) record(call string) {
	l.mu.Lock()
	l.calls = append(l.calls, call)
	l.mu.Unlock()
	select {
	case l.notify <- struct{}{}:
	default:
	}
}

func (l *recordingListener) OnStart() { l.record("start") }
func (l *recordingListener) OnResult(result domain.RecognitionResult) {
	l.record("result:" + result.Transcript)
}
func (l *recordingListener) OnError(code domain.CaptureErrorCode) { l.record("error:" + string(code)) }
func (l *recordingListener) OnEnd() {
	l.record("end")
	close(l.ended)
}

func (l *recordingListener) snapshot() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.calls...)
}

func (l *recordingListener) waitFor(t *testing.T, call string) {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		for _, got := range l.snapshot() {
			if got == call {
				return
			}
		}
		select {
		case <-l.notify:
		case <-deadline:
			t.Fatalf("timed out waiting for %q, got %v", call, l.snapshot())
		}
	}
}

func (l *recordingListener) waitEnded(t *testing.T) {
	t.Helper()
	select {
	case <-l.ended:
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for end, got %v", l.snapshot())
	}
}

type fakeCapture struct {
	err error
}

func (c *fakeCapture) Start(_ context.Context, _ ports.AudioConfig) (ports.AudioSession, error) {
	if c.err != nil {
		return nil, c.err
	}
	return &fakeMic{stopped: make(chan struct{})}, nil
}

type fakeMic struct {
	once    sync.Once
	stopped chan struct{}
}

func (m *fakeMic) Read(p []byte) (int, error) {
	<-m.stopped
	return 0, io.EOF
}

func (m *fakeMic) Close() error { return m.Stop() }

func (m *fakeMic) Stop() error {
	m.once.Do(func() { close(m.stopped) })
	return nil
}

type fakeProvider struct {
	mu     sync.Mutex
	stream *fakeStream
	err    error
}

func (p *fakeProvider) setStream(stream *fakeStream) {
	p.mu.Lock()
	p.stream = stream
	p.mu.Unlock()
}

func (p *fakeProvider) StartStreaming(_ context.Context, _ ports.StreamingConfig) (ports.StreamingSession, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return nil, p.err
	}
	return p.stream, nil
}

type fakeStream struct {
	events  chan domain.TranscriptEvent
	waitErr error

	mu        sync.Mutex
	closeOnce sync.Once
	closed    bool
	chunks    int
}

func newFakeStream() *fakeStream {
	return &fakeStream{events: make(chan domain.TranscriptEvent, 8)}
}

func (s *fakeStream) SendAudio(_ []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.chunks++
	return nil
}

func (s *fakeStream) CloseSend() error {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.closed = true
		s.mu.Unlock()
	})
	return nil
}

func (s *fakeStream) sendClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *fakeStream) Events() <-chan domain.TranscriptEvent { return s.events }
func (s *fakeStream) Wait() error                           { return s.waitErr }
func (s *fakeStream) Close() error                          { return nil }
