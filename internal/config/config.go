package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/afero"
	"github.com/spf13/viper"
)

// Config stores runtime configuration for both front ends and the command
// endpoint.
type Config struct {
	Deepgram DeepgramConfig
	Audio    AudioConfig
	Session  SessionConfig
	Command  CommandConfig
	Speech   SpeechConfig
	Server   ServerConfig
}

type DeepgramConfig struct {
	APIKey      string
	APIBaseURL  string
	Model       string
	Language    string
	SmartFormat bool
}

type AudioConfig struct {
	RecorderCommand string
	InputFormat     string
	InputDevice     string
	SampleRate      int
	Channels        int
}

type SessionConfig struct {
	ChunkSize       int
	Cooldown        time.Duration
	SilenceTimeout  time.Duration
	DispatchTimeout time.Duration
}

type CommandConfig struct {
	BaseURL    string
	DefaultAck string
}

type SpeechConfig struct {
	Enabled        bool
	Command        string
	RulesPath      string
	IterationLimit int
}

type ServerConfig struct {
	Port          string
	AllowedOrigin string
	LogLevel      slog.Level
}

var bindings = map[string]string{
	"deepgram.api_key":            "DEEPGRAM_API_KEY",
	"deepgram.api_base":           "DEEPGRAM_API_BASE",
	"deepgram.model":              "DEEPGRAM_MODEL",
	"deepgram.language":           "DEEPGRAM_LANGUAGE",
	"deepgram.smart_format":       "DEEPGRAM_SMART_FORMAT",
	"audio.recorder_command":      "VOICEWIDGET_FFMPEG_COMMAND",
	"audio.input_format":          "VOICEWIDGET_AUDIO_INPUT_FORMAT",
	"audio.input_device":          "VOICEWIDGET_AUDIO_INPUT_DEVICE",
	"audio.sample_rate":           "VOICEWIDGET_SAMPLE_RATE",
	"audio.channels":              "VOICEWIDGET_CHANNELS",
	"session.chunk_size":          "VOICEWIDGET_AUDIO_CHUNK_SIZE",
	"session.cooldown_ms":         "VOICEWIDGET_COOLDOWN_MS",
	"session.silence_timeout_ms":  "VOICEWIDGET_SILENCE_TIMEOUT_MS",
	"session.dispatch_timeout_ms": "VOICEWIDGET_DISPATCH_TIMEOUT_MS",
	"command.base_url":            "VOICEWIDGET_API_URL",
	"command.default_ack":         "VOICEWIDGET_DEFAULT_ACK",
	"speech.enabled":              "VOICEWIDGET_SPEECH_ENABLED",
	"speech.command":              "VOICEWIDGET_SPEECH_COMMAND",
	"speech.rules_file":           "VOICEWIDGET_PRONUNCIATION_RULES",
	"speech.rule_iteration_limit": "VOICEWIDGET_RULE_ITERATION_LIMIT",
	"server.port":                 "PORT",
	"server.allowed_origin":       "VOICEWIDGET_ALLOWED_ORIGIN",
	"server.log_level":            "LOG_LEVEL",
}

var defaults = map[string]any{
	"deepgram.api_base":           "https://api.deepgram.com/v1",
	"deepgram.model":              "nova-2",
	"deepgram.language":           "en-US",
	"deepgram.smart_format":       true,
	"audio.recorder_command":      "ffmpeg",
	"audio.input_format":          "pulse",
	"audio.input_device":          "default",
	"audio.sample_rate":           16000,
	"audio.channels":              1,
	"session.chunk_size":          4096,
	"session.cooldown_ms":         1000,
	"session.silence_timeout_ms":  8000,
	"session.dispatch_timeout_ms": 15000,
	"command.base_url":            "http://localhost:8080",
	"command.default_ack":         "Command processed!",
	"speech.enabled":              true,
	"speech.rule_iteration_limit": 30,
	"server.port":                 "8080",
	"server.allowed_origin":       "*",
	"server.log_level":            "info",
}

// Load resolves configuration from the environment and defaults.
func Load() (Config, error) {
	return LoadFrom(afero.NewOsFs())
}

// LoadFrom is Load with the filesystem used to find the default pronunciation
// rules file.
func LoadFrom(fsys afero.Fs) (Config, error) {
	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	for key, env := range bindings {
		if err := v.BindEnv(key, env); err != nil {
			return Config{}, err
		}
	}

	cfg := Config{
		Deepgram: DeepgramConfig{
			APIKey:      str(v, "deepgram.api_key"),
			APIBaseURL:  str(v, "deepgram.api_base"),
			Model:       str(v, "deepgram.model"),
			Language:    str(v, "deepgram.language"),
			SmartFormat: boolean(v, "deepgram.smart_format"),
		},
		Audio: AudioConfig{
			RecorderCommand: str(v, "audio.recorder_command"),
			InputFormat:     str(v, "audio.input_format"),
			InputDevice:     str(v, "audio.input_device"),
			SampleRate:      positive(v, "audio.sample_rate"),
			Channels:        positive(v, "audio.channels"),
		},
		Session: SessionConfig{
			ChunkSize:       positive(v, "session.chunk_size"),
			Cooldown:        millis(v, "session.cooldown_ms"),
			SilenceTimeout:  millis(v, "session.silence_timeout_ms"),
			DispatchTimeout: millis(v, "session.dispatch_timeout_ms"),
		},
		Command: CommandConfig{
			BaseURL:    str(v, "command.base_url"),
			DefaultAck: str(v, "command.default_ack"),
		},
		Speech: SpeechConfig{
			Enabled:        boolean(v, "speech.enabled"),
			Command:        str(v, "speech.command"),
			RulesPath:      str(v, "speech.rules_file"),
			IterationLimit: positive(v, "speech.rule_iteration_limit"),
		},
		Server: ServerConfig{
			Port:          str(v, "server.port"),
			AllowedOrigin: str(v, "server.allowed_origin"),
			LogLevel:      level(str(v, "server.log_level")),
		},
	}

	if cfg.Session.ChunkSize < 256 {
		cfg.Session.ChunkSize = defaults["session.chunk_size"].(int)
	}
	if cfg.Speech.RulesPath == "" {
		cfg.Speech.RulesPath = defaultRulesPath(fsys)
	}
	return cfg, nil
}

// defaultRulesPath returns the per-user rules file when it exists.
func defaultRulesPath(fsys afero.Fs) string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	candidate := filepath.Join(home, ".config", "voicewidget", "pronunciation.rules")
	if ok, err := afero.Exists(fsys, candidate); err == nil && ok {
		return candidate
	}
	return ""
}

func str(v *viper.Viper, key string) string {
	value := strings.TrimSpace(v.GetString(key))
	if value == "" {
		if fallback, ok := defaults[key].(string); ok {
			return fallback
		}
	}
	return value
}

// positive parses an integer setting, falling back to the default when the
// value is malformed or not positive.
func positive(v *viper.Viper, key string) int {
	fallback, _ := defaults[key].(int)
	parsed, err := strconv.Atoi(strings.TrimSpace(v.GetString(key)))
	if err != nil || parsed <= 0 {
		return fallback
	}
	return parsed
}

func millis(v *viper.Viper, key string) time.Duration {
	return time.Duration(positive(v, key)) * time.Millisecond
}

func boolean(v *viper.Viper, key string) bool {
	fallback, _ := defaults[key].(bool)
	switch strings.ToLower(strings.TrimSpace(v.GetString(key))) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

func level(value string) slog.Level {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(value)); err != nil {
		return slog.LevelInfo
	}
	return lvl
}
