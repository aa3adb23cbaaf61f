package ports

import (
	"context"
	"io"

	"voicewidget/internal/domain"
)

// AudioConfig describes how the microphone should be captured.
type AudioConfig struct {
	SampleRate  int
	Channels    int
	InputFormat string
	InputDevice string
}

// AudioSession is a live capture session.
type AudioSession interface {
	io.ReadCloser
	Stop() error
}

// AudioCapture creates microphone capture sessions.
type AudioCapture interface {
	Start(ctx context.Context, cfg AudioConfig) (AudioSession, error)
}

// StreamingConfig describes provider-agnostic streaming settings.
type StreamingConfig struct {
	SampleRate     int
	Channels       int
	Encoding       string
	InterimResults bool
	Keywords       []string
}

// StreamingSession is an active provider websocket session.
type StreamingSession interface {
	SendAudio(chunk []byte) error
	CloseSend() error
	Events() <-chan domain.TranscriptEvent
	Wait() error
	Close() error
}

// TranscriptionProvider starts streaming transcription sessions.
type TranscriptionProvider interface {
	StartStreaming(ctx context.Context, cfg StreamingConfig) (StreamingSession, error)
}

// RecognitionListener receives capture lifecycle callbacks in emission order.
type RecognitionListener interface {
	OnStart()
	OnResult(result domain.RecognitionResult)
	OnError(code domain.CaptureErrorCode)
	OnEnd()
}

// Recognizer is the speech capture capability a session drives.
type Recognizer interface {
	Available() bool
	Start(ctx context.Context, listener RecognitionListener) error
	Stop() error
}

// CommandDispatcher forwards a recognized command to the command endpoint.
type CommandDispatcher interface {
	Dispatch(ctx context.Context, command string) (domain.CommandResult, error)
}

// Speaker produces audible output. Presence is feature-detected.
type Speaker interface {
	Available() bool
	Speak(ctx context.Context, text string) error
}

// TextTransformer rewrites text before it is spoken.
type TextTransformer interface {
	Apply(text string) (string, error)
}

// EventSink emits widget state to the host UI.
type EventSink interface {
	SessionStatusChanged(status domain.Status)
	VoiceStateChanged(change domain.VoiceStateChange)
	CommandForwarded(command string)
	CommandResponded(result domain.CommandResult)
}
