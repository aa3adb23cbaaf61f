package api

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const requestIDHeader = "X-Request-ID"

// Config describes the command endpoint.
type Config struct {
	ServiceName          string
	AllowedOrigin        string
	SpeechAvailable      bool
	RecognitionAvailable bool
}

func (c Config) withDefaults() Config {
	if strings.TrimSpace(c.ServiceName) == "" {
		c.ServiceName = DefaultServiceName
	}
	if strings.TrimSpace(c.AllowedOrigin) == "" {
		c.AllowedOrigin = "*"
	}
	return c
}

// NewRouter wires every route behind CORS, request IDs, metrics and tracing.
func NewRouter(h *Handlers) http.Handler {
	mux := http.NewServeMux()

	route := func(pattern string, handler http.HandlerFunc) {
		mux.Handle(pattern, instrument(pattern, handler))
	}
	route("GET /{$}", h.HandleRoot)
	route("GET /health", h.HandleHealth)
	route("POST /api/voice", h.HandleVoice)
	route("POST /voice/process", h.HandleVoiceProcess)
	route("GET /voice/status", h.HandleVoiceStatus)
	route("POST /query", h.HandleQuery)
	mux.Handle("GET /metrics", promhttp.Handler())

	return otelhttp.NewHandler(withRequestID(withCORS(h.cfg.AllowedOrigin, mux)), "voicewidget.api")
}

// NewHandler is NewRouter over fresh handlers.
func NewHandler(cfg Config) http.Handler {
	return NewRouter(NewHandlers(cfg))
}

func withCORS(origin string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := w.Header()
		header.Set("Access-Control-Allow-Origin", origin)
		header.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		header.Set("Access-Control-Allow-Headers", "Content-Type, "+requestIDHeader)
		if origin != "*" {
			header.Add("Vary", "Origin")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get(requestIDHeader))
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)
		next.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func instrument(route string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		started := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		elapsed := time.Since(started)
		metricRequests.WithLabelValues(route, strconv.Itoa(rec.status)).Inc()
		metricRequestSeconds.WithLabelValues(route).Observe(elapsed.Seconds())
		logger.Debug("request served",
			slog.String("route", route),
			slog.Int("status", rec.status),
			slog.String("request_id", w.Header().Get(requestIDHeader)),
			slog.Duration("elapsed", elapsed),
		)
	})
}
