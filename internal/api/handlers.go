package api

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"voicewidget/internal/wakeword"
)

const (
	Version            = "1.0.0"
	DefaultServiceName = "Jarvis Voice API"

	unknownCommand = "Unknown command"
	maxBodyBytes   = 64 << 10
)

var features = []string{"voice_recognition", "text_to_speech", "ai_responses"}

// Handlers serve the command endpoint.
type Handlers struct {
	cfg       Config
	responder *Responder
	wakeWords wakeword.Set
	now       func() time.Time
}

type voiceRequest struct {
	Message   string `json:"message"`
	AgentType string `json:"agent_type,omitempty"`
}

type voiceResponse struct {
	Response  string `json:"response"`
	Processed bool   `json:"processed"`
	Echo      string `json:"echo,omitempty"`
}

type queryResponse struct {
	Response  string `json:"response"`
	AgentUsed string `json:"agent_used"`
	Timestamp string `json:"timestamp"`
}

type processResponse struct {
	OriginalMessage  string  `json:"original_message"`
	ProcessedMessage string  `json:"processed_message"`
	Response         string  `json:"response"`
	VoiceReady       bool    `json:"voice_ready"`
	Timestamp        float64 `json:"timestamp"`
}

func NewHandlers(cfg Config) *Handlers {
	return &Handlers{
		cfg:       cfg.withDefaults(),
		responder: NewResponder(),
		wakeWords: wakeword.New("jarvis", "hey jarvis", "ok jarvis"),
		now:       time.Now,
	}
}

func (h *Handlers) HandleRoot(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"message":  h.cfg.ServiceName + " is running!",
		"status":   "active",
		"features": features,
		"version":  Version,
	})
}

func (h *Handlers) HandleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "healthy",
		"service":   h.cfg.ServiceName,
		"timestamp": h.timestamp(),
	})
}

// HandleVoice answers the widget. An unreadable body is treated as the
// message "Unknown command" rather than rejected.
func (h *Handlers) HandleVoice(w http.ResponseWriter, r *http.Request) {
	var req voiceRequest
	if err := decodeBody(r, &req); err != nil {
		req.Message = unknownCommand
	}

	reply := h.reply(req.Message)
	writeJSON(w, http.StatusOK, voiceResponse{Response: reply, Processed: true, Echo: req.Message})
}

func (h *Handlers) HandleVoiceProcess(w http.ResponseWriter, r *http.Request) {
	var req voiceRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	processed := h.wakeWords.StripLeading(req.Message)
	writeJSON(w, http.StatusOK, processResponse{
		OriginalMessage:  req.Message,
		ProcessedMessage: processed,
		Response:         h.reply(processed),
		VoiceReady:       true,
		Timestamp:        h.timestamp(),
	})
}

func (h *Handlers) HandleVoiceStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"voice_enabled": true,
		"tts_available": h.cfg.SpeechAvailable,
		"stt_available": h.cfg.RecognitionAvailable,
		"wake_word":     "jarvis",
		"status":        "ready",
	})
}

func (h *Handlers) HandleQuery(w http.ResponseWriter, r *http.Request) {
	var req voiceRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		writeError(w, http.StatusBadRequest, "message is required")
		return
	}

	agent := strings.TrimSpace(req.AgentType)
	if agent == "" {
		agent = "voice_assistant"
	}
	writeJSON(w, http.StatusOK, queryResponse{
		Response:  h.reply(req.Message),
		AgentUsed: agent,
		Timestamp: h.now().UTC().Format(time.RFC3339),
	})
}

func (h *Handlers) reply(message string) string {
	text, keyword := h.responder.Reply(message)
	metricCommands.WithLabelValues(keyword).Inc()
	return text
}

func (h *Handlers) timestamp() float64 {
	return float64(h.now().UnixMilli()) / 1000
}

func decodeBody(r *http.Request, dst any) error {
	if r.Body == nil {
		return errors.New("empty body")
	}
	decoder := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := decoder.Decode(dst); err != nil {
		return err
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger.Warn("failed to write response", slog.String("error", err.Error()))
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
