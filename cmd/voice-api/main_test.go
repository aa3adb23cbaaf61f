package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"voicewidget/internal/config"
)

func TestHandlerServesStatusWithBrokenRulesFile(t *testing.T) {
	t.Parallel()

	rulesPath := filepath.Join(t.TempDir(), "pronunciation.rules")
	if err := os.WriteFile(rulesPath, []byte("not a valid rule\n"), 0o600); err != nil {
		t.Fatalf("write rules: %v", err)
	}

	cfg := config.Config{}
	cfg.Speech.RulesPath = rulesPath
	cfg.Command.BaseURL = "localhost"

	rec := httptest.NewRecorder()
	newHandler(cfg).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/voice/status", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status code %d", rec.Code)
	}

	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["stt_available"] != false || body["tts_available"] != false {
		t.Fatalf("expected no local capabilities, got %v", body)
	}
}
