package bootstrap

import (
	"fmt"

	"github.com/spf13/afero"

	"voicewidget/internal/audio"
	"voicewidget/internal/config"
	"voicewidget/internal/dispatch"
	"voicewidget/internal/ports"
	"voicewidget/internal/providers/deepgram"
	"voicewidget/internal/recognition"
	"voicewidget/internal/rules"
	"voicewidget/internal/speech"
	"voicewidget/internal/usecase"
	"voicewidget/internal/wakeword"
)

// Services is the assembled runtime graph for one widget instance.
type Services struct {
	Session    *usecase.VoiceSession
	Recognizer *recognition.Recognizer
	Speaker    *speech.CommandSpeaker
	Dispatcher *dispatch.Client
	Config     config.Config
}

// Build loads configuration and wires a session that reports to events.
func Build(events ports.EventSink) (Services, error) {
	cfg, err := config.Load()
	if err != nil {
		return Services{}, err
	}
	return BuildWith(cfg, afero.NewOsFs(), events)
}

// BuildWith wires a session from an already loaded configuration.
func BuildWith(cfg config.Config, fsys afero.Fs, events ports.EventSink) (Services, error) {
	pronunciation, err := rules.Load(fsys, cfg.Speech.RulesPath, cfg.Speech.IterationLimit)
	if err != nil {
		return Services{}, err
	}

	dispatcher, err := dispatch.NewClient(dispatch.Config{
		BaseURL:        cfg.Command.BaseURL,
		Acknowledgment: cfg.Command.DefaultAck,
	})
	if err != nil {
		return Services{}, fmt.Errorf("configure command endpoint: %w", err)
	}

	wakeWords := wakeword.Default()
	recognizer := newRecognizer(cfg, wakeWords)
	speaker := newSpeaker(cfg, pronunciation)

	session := usecase.NewVoiceSession(recognizer, dispatcher, speaker, events, usecase.Config{
		Cooldown:        cfg.Session.Cooldown,
		DispatchTimeout: cfg.Session.DispatchTimeout,
		WakeWords:       wakeWords,
	})

	return Services{
		Session:    session,
		Recognizer: recognizer,
		Speaker:    speaker,
		Dispatcher: dispatcher,
		Config:     cfg,
	}, nil
}

// Capabilities are the device-facing parts a host can check without building a
// session.
type Capabilities struct {
	Recognizer *recognition.Recognizer
	Speaker    *speech.CommandSpeaker
}

// NewCapabilities builds the recognizer and speaker only. Pronunciation rules
// are not loaded, so a broken rules file does not affect feature detection.
func NewCapabilities(cfg config.Config) Capabilities {
	return Capabilities{
		Recognizer: newRecognizer(cfg, wakeword.Default()),
		Speaker:    newSpeaker(cfg, nil),
	}
}

func newRecognizer(cfg config.Config, wakeWords wakeword.Set) *recognition.Recognizer {
	provider := deepgram.NewProvider(deepgram.Config{
		APIKey:      cfg.Deepgram.APIKey,
		APIBaseURL:  cfg.Deepgram.APIBaseURL,
		Model:       cfg.Deepgram.Model,
		Language:    cfg.Deepgram.Language,
		SmartFormat: cfg.Deepgram.SmartFormat,
	})
	capture := audio.NewFFMPEGCapture(cfg.Audio.RecorderCommand)

	return recognition.NewRecognizer(capture, provider, recognition.Config{
		Audio: ports.AudioConfig{
			SampleRate:  cfg.Audio.SampleRate,
			Channels:    cfg.Audio.Channels,
			InputFormat: cfg.Audio.InputFormat,
			InputDevice: cfg.Audio.InputDevice,
		},
		Streaming: ports.StreamingConfig{
			SampleRate: cfg.Audio.SampleRate,
			Channels:   cfg.Audio.Channels,
			Encoding:   "linear16",
			Keywords:   wakeWords.Phrases(),
		},
		ChunkSize:          cfg.Session.ChunkSize,
		SilenceTimeout:     cfg.Session.SilenceTimeout,
		RecorderCommand:    capture.Command(),
		ProviderConfigured: provider.Configured(),
	})
}

func newSpeaker(cfg config.Config, transformer ports.TextTransformer) *speech.CommandSpeaker {
	return speech.NewCommandSpeaker(speech.Config{
		Enabled: cfg.Speech.Enabled,
		Command: cfg.Speech.Command,
	}, transformer)
}
