package deepgram

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"voicewidget/internal/domain"
	"voicewidget/internal/ports"
)

const (
	DefaultAPIBaseURL = "https://api.deepgram.com/v1"
	DefaultModel      = "nova-2"

	defaultEndpointingMS = 300
	handshakeTimeout     = 10 * time.Second
	closeStreamMessage   = `{"type":"CloseStream"}`
)

var (
	ErrNotConfigured = errors.New("DEEPGRAM_API_KEY is not configured")
	errSendClosed    = errors.New("audio stream is already closed")
)

// Config controls Deepgram websocket settings.
type Config struct {
	APIKey        string
	APIBaseURL    string
	Model         string
	Language      string
	SmartFormat   bool
	EndpointingMS int
}

// Provider opens Deepgram live transcription sockets, one per utterance.
type Provider struct {
	cfg    Config
	dialer *websocket.Dialer
}

func NewProvider(cfg Config) *Provider {
	if strings.TrimSpace(cfg.APIBaseURL) == "" {
		cfg.APIBaseURL = DefaultAPIBaseURL
	}
	if strings.TrimSpace(cfg.Model) == "" {
		cfg.Model = DefaultModel
	}
	if cfg.EndpointingMS <= 0 {
		cfg.EndpointingMS = defaultEndpointingMS
	}
	return &Provider{
		cfg: cfg,
		dialer: &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: handshakeTimeout,
		},
	}
}

// Configured reports whether an API key is present.
func (p *Provider) Configured() bool {
	return strings.TrimSpace(p.cfg.APIKey) != ""
}

func (p *Provider) StartStreaming(ctx context.Context, cfg ports.StreamingConfig) (ports.StreamingSession, error) {
	if !p.Configured() {
		return nil, ErrNotConfigured
	}

	listenURL, err := buildListenURL(p.cfg, cfg)
	if err != nil {
		return nil, err
	}

	headers := http.Header{}
	headers.Set("Authorization", "Token "+p.cfg.APIKey)

	conn, resp, err := p.dialer.DialContext(ctx, listenURL, headers)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("deepgram rejected the stream (%s): %w", resp.Status, err)
		}
		return nil, fmt.Errorf("failed to connect to deepgram: %w", err)
	}

	session := newLiveSession(conn)
	go func() {
		select {
		case <-ctx.Done():
			_ = session.Close()
		case <-session.done:
		}
	}()
	return session, nil
}

type liveSession struct {
	conn *websocket.Conn

	events   chan domain.TranscriptEvent
	audio    chan []byte
	sendDone chan struct{}
	closing  chan struct{}
	readDone chan struct{}
	done     chan struct{}

	wg sync.WaitGroup

	errMu sync.Mutex
	err   error

	closeSendOnce sync.Once
	closeOnce     sync.Once
}

func newLiveSession(conn *websocket.Conn) *liveSession {
	s := &liveSession{
		conn:     conn,
		events:   make(chan domain.TranscriptEvent, 64),
		audio:    make(chan []byte, 32),
		sendDone: make(chan struct{}),
		closing:  make(chan struct{}),
		readDone: make(chan struct{}),
		done:     make(chan struct{}),
	}

	s.wg.Add(2)
	go s.readLoop()
	go s.writeLoop()
	go func() {
		s.wg.Wait()
		close(s.events)
		close(s.done)
		_ = conn.Close()
	}()
	return s
}

func (s *liveSession) SendAudio(chunk []byte) error {
	if len(chunk) == 0 {
		return nil
	}

	select {
	case <-s.sendDone:
		return errSendClosed
	default:
	}

	select {
	case s.audio <- append([]byte(nil), chunk...):
		return nil
	case <-s.sendDone:
		if err := s.waitErr(); err != nil {
			return err
		}
		return errSendClosed
	}
}

// CloseSend asks Deepgram to flush pending results and end the stream.
func (s *liveSession) CloseSend() error {
	s.closeSendOnce.Do(func() { close(s.sendDone) })
	return nil
}

func (s *liveSession) Events() <-chan domain.TranscriptEvent {
	return s.events
}

func (s *liveSession) Wait() error {
	<-s.done
	return s.waitErr()
}

func (s *liveSession) Close() error {
	s.closeOnce.Do(func() {
		close(s.closing)
		_ = s.CloseSend()
		_ = s.conn.Close()
	})
	<-s.done
	return s.waitErr()
}

func (s *liveSession) waitErr() error {
	s.errMu.Lock()
	defer s.errMu.Unlock()
	return s.err
}

func (s *liveSession) setErr(err error) {
	if err == nil {
		return
	}
	if websocket.IsCloseError(err,
		websocket.CloseNormalClosure,
		websocket.CloseGoingAway,
		websocket.CloseNoStatusReceived,
	) {
		return
	}

	s.errMu.Lock()
	defer s.errMu.Unlock()
	if s.err == nil {
		s.err = err
	}
}

func (s *liveSession) writeLoop() {
	defer s.wg.Done()

	for {
		select {
		case chunk := <-s.audio:
			if !s.write(websocket.BinaryMessage, chunk) {
				return
			}
		case <-s.sendDone:
			s.flush()
			return
		}
	}
}

// flush writes chunks queued before CloseSend, then the close-stream message.
func (s *liveSession) flush() {
	for {
		select {
		case chunk := <-s.audio:
			if !s.write(websocket.BinaryMessage, chunk) {
				return
			}
		default:
			s.write(websocket.TextMessage, []byte(closeStreamMessage))
			return
		}
	}
}

func (s *liveSession) write(messageType int, payload []byte) bool {
	if s.finished() {
		return false
	}
	if err := s.conn.WriteMessage(messageType, payload); err != nil {
		if !s.finished() {
			s.setErr(fmt.Errorf("failed to send audio: %w", err))
		}
		_ = s.CloseSend()
		return false
	}
	return true
}

// finished reports whether the socket is shutting down or the provider already
// ended the stream.
func (s *liveSession) finished() bool {
	select {
	case <-s.closing:
		return true
	case <-s.readDone:
		return true
	default:
		return false
	}
}

func (s *liveSession) readLoop() {
	defer s.wg.Done()
	defer func() {
		close(s.readDone)
		_ = s.CloseSend()
	}()

	for {
		_, payload, err := s.conn.ReadMessage()
		if err != nil {
			select {
			case <-s.closing:
			default:
				s.setErr(fmt.Errorf("failed to read provider event: %w", err))
			}
			return
		}

		var message listenMessage
		if err := json.Unmarshal(payload, &message); err != nil {
			continue
		}

		if strings.EqualFold(message.Type, "Error") {
			detail := strings.TrimSpace(message.Description)
			if detail == "" {
				detail = strings.TrimSpace(message.Message)
			}
			if detail == "" {
				detail = "deepgram returned an unknown error"
			}
			s.setErr(errors.New(detail))
			return
		}

		if event, ok := message.event(); ok {
			select {
			case s.events <- event:
			case <-s.closing:
				return
			}
		}
	}
}

type alternative struct {
	Transcript string `json:"transcript"`
}

type listenMessage struct {
	Type        string `json:"type"`
	Message     string `json:"message"`
	Description string `json:"description"`
	IsFinal     bool   `json:"is_final"`
	SpeechFinal bool   `json:"speech_final"`

	Channel struct {
		Alternatives []alternative `json:"alternatives"`
	} `json:"channel"`

	Results struct {
		Channels []struct {
			Alternatives []alternative `json:"alternatives"`
		} `json:"channels"`
	} `json:"results"`
}

func (m listenMessage) transcript() string {
	if len(m.Channel.Alternatives) > 0 {
		if text := strings.TrimSpace(m.Channel.Alternatives[0].Transcript); text != "" {
			return text
		}
	}
	if len(m.Results.Channels) > 0 && len(m.Results.Channels[0].Alternatives) > 0 {
		return strings.TrimSpace(m.Results.Channels[0].Alternatives[0].Transcript)
	}
	return ""
}

// event converts a results message. Empty final results still matter since
// they carry speech_final.
func (m listenMessage) event() (domain.TranscriptEvent, bool) {
	text := m.transcript()
	final := m.IsFinal || m.SpeechFinal
	if text == "" && !m.SpeechFinal {
		return domain.TranscriptEvent{}, false
	}

	event := domain.TranscriptEvent{Text: text, IsSpeechFinal: m.SpeechFinal, Kind: domain.TranscriptKindPartial}
	if final {
		event.Kind = domain.TranscriptKindFinal
	}
	return event, true
}

func buildListenURL(providerCfg Config, streamCfg ports.StreamingConfig) (string, error) {
	base := strings.TrimSpace(providerCfg.APIBaseURL)
	if base == "" {
		base = DefaultAPIBaseURL
	}

	switch {
	case strings.HasPrefix(base, "https://"):
		base = "wss://" + strings.TrimPrefix(base, "https://")
	case strings.HasPrefix(base, "http://"):
		base = "ws://" + strings.TrimPrefix(base, "http://")
	}
	base = strings.TrimRight(base, "/")

	listenURL, err := url.Parse(base + "/listen")
	if err != nil {
		return "", fmt.Errorf("invalid deepgram API base URL: %w", err)
	}

	if streamCfg.Encoding == "" {
		streamCfg.Encoding = "linear16"
	}
	if streamCfg.SampleRate <= 0 {
		streamCfg.SampleRate = 16000
	}
	if streamCfg.Channels <= 0 {
		streamCfg.Channels = 1
	}
	model := providerCfg.Model
	if model == "" {
		model = DefaultModel
	}

	query := listenURL.Query()
	query.Set("model", model)
	query.Set("encoding", streamCfg.Encoding)
	query.Set("sample_rate", strconv.Itoa(streamCfg.SampleRate))
	query.Set("channels", strconv.Itoa(streamCfg.Channels))
	query.Set("interim_results", strconv.FormatBool(streamCfg.InterimResults))
	query.Set("smart_format", strconv.FormatBool(providerCfg.SmartFormat))
	if providerCfg.EndpointingMS > 0 {
		query.Set("endpointing", strconv.Itoa(providerCfg.EndpointingMS))
	}
	if providerCfg.Language != "" {
		query.Set("language", providerCfg.Language)
	}
	for _, keyword := range streamCfg.Keywords {
		if keyword = strings.TrimSpace(keyword); keyword != "" {
			query.Add("keywords", keyword)
		}
	}
	listenURL.RawQuery = query.Encode()
	return listenURL.String(), nil
}
