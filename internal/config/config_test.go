package config

import (
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/afero"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	for _, env := range bindings {
		t.Setenv(env, "")
	}

	cfg, err := LoadFrom(afero.NewMemMapFs())
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	if cfg.Deepgram.APIKey != "" || cfg.Deepgram.Model != "nova-2" || cfg.Deepgram.Language != "en-US" || !cfg.Deepgram.SmartFormat {
		t.Fatalf("unexpected deepgram defaults: %#v", cfg.Deepgram)
	}
	if cfg.Audio.RecorderCommand != "ffmpeg" || cfg.Audio.SampleRate != 16000 || cfg.Audio.Channels != 1 {
		t.Fatalf("unexpected audio defaults: %#v", cfg.Audio)
	}
	if cfg.Session.Cooldown != time.Second || cfg.Session.SilenceTimeout != 8*time.Second || cfg.Session.DispatchTimeout != 15*time.Second {
		t.Fatalf("unexpected session defaults: %#v", cfg.Session)
	}
	if cfg.Command.BaseURL != "http://localhost:8080" || cfg.Command.DefaultAck != "Command processed!" {
		t.Fatalf("unexpected command defaults: %#v", cfg.Command)
	}
	if !cfg.Speech.Enabled || cfg.Speech.RulesPath != "" || cfg.Speech.IterationLimit != 30 {
		t.Fatalf("unexpected speech defaults: %#v", cfg.Speech)
	}
	if cfg.Server.Port != "8080" || cfg.Server.AllowedOrigin != "*" || cfg.Server.LogLevel != slog.LevelInfo {
		t.Fatalf("unexpected server defaults: %#v", cfg.Server)
	}
}

func TestLoadRespectsOverrides(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("DEEPGRAM_API_KEY", " test-key ")
	t.Setenv("DEEPGRAM_MODEL", "nova-3")
	t.Setenv("DEEPGRAM_SMART_FORMAT", "off")
	t.Setenv("VOICEWIDGET_AUDIO_INPUT_DEVICE", "alsa_input.usb")
	t.Setenv("VOICEWIDGET_COOLDOWN_MS", "250")
	t.Setenv("VOICEWIDGET_API_URL", "https://api.example.com")
	t.Setenv("VOICEWIDGET_SPEECH_ENABLED", "no")
	t.Setenv("VOICEWIDGET_SPEECH_COMMAND", "espeak -s 150")
	t.Setenv("VOICEWIDGET_PRONUNCIATION_RULES", "/tmp/custom.rules")
	t.Setenv("PORT", "9090")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := LoadFrom(afero.NewMemMapFs())
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	if cfg.Deepgram.APIKey != "test-key" || cfg.Deepgram.Model != "nova-3" || cfg.Deepgram.SmartFormat {
		t.Fatalf("unexpected deepgram config: %#v", cfg.Deepgram)
	}
	if cfg.Audio.InputDevice != "alsa_input.usb" {
		t.Fatalf("unexpected input device %q", cfg.Audio.InputDevice)
	}
	if cfg.Session.Cooldown != 250*time.Millisecond {
		t.Fatalf("unexpected cooldown %v", cfg.Session.Cooldown)
	}
	if cfg.Command.BaseURL != "https://api.example.com" {
		t.Fatalf("unexpected base url %q", cfg.Command.BaseURL)
	}
	if cfg.Speech.Enabled || cfg.Speech.Command != "espeak -s 150" || cfg.Speech.RulesPath != "/tmp/custom.rules" {
		t.Fatalf("unexpected speech config: %#v", cfg.Speech)
	}
	if cfg.Server.Port != "9090" || cfg.Server.LogLevel != slog.LevelDebug {
		t.Fatalf("unexpected server config: %#v", cfg.Server)
	}
}

func TestLoadFallsBackOnInvalidNumbers(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("VOICEWIDGET_SAMPLE_RATE", "fast")
	t.Setenv("VOICEWIDGET_CHANNELS", "-2")
	t.Setenv("VOICEWIDGET_AUDIO_CHUNK_SIZE", "12")
	t.Setenv("VOICEWIDGET_DISPATCH_TIMEOUT_MS", "0")
	t.Setenv("VOICEWIDGET_RULE_ITERATION_LIMIT", "x")
	t.Setenv("LOG_LEVEL", "loud")

	cfg, err := LoadFrom(afero.NewMemMapFs())
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.Audio.SampleRate != 16000 || cfg.Audio.Channels != 1 {
		t.Fatalf("unexpected audio config: %#v", cfg.Audio)
	}
	if cfg.Session.ChunkSize != 4096 || cfg.Session.DispatchTimeout != 15*time.Second {
		t.Fatalf("unexpected session config: %#v", cfg.Session)
	}
	if cfg.Speech.IterationLimit != 30 || cfg.Server.LogLevel != slog.LevelInfo {
		t.Fatalf("unexpected fallbacks: %#v %#v", cfg.Speech, cfg.Server)
	}
}

func TestLoadFindsUserRulesFile(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("VOICEWIDGET_PRONUNCIATION_RULES", "")

	fsys := afero.NewMemMapFs()
	rules := filepath.Join(home, ".config", "voicewidget", "pronunciation.rules")
	if err := afero.WriteFile(fsys, rules, []byte("api => A P I\n"), 0o600); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	cfg, err := LoadFrom(fsys)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.Speech.RulesPath != rules {
		t.Fatalf("expected user rules file, got %q", cfg.Speech.RulesPath)
	}
}
