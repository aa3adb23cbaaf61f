package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"voicewidget/internal/domain"
)

const (
	DefaultBaseURL        = "http://localhost:8080"
	DefaultAcknowledgment = "Command processed!"

	voicePath    = "/api/voice"
	maxErrorBody = 512
)

// Config points the client at a command endpoint.
type Config struct {
	BaseURL        string
	Acknowledgment string
}

// Client forwards recognized commands to the command endpoint.
type Client struct {
	endpoint string
	ack      string
	http     *http.Client
}

type voiceRequest struct {
	Message string `json:"message"`
}

type voiceResponse struct {
	Response string `json:"response"`
}

func NewClient(cfg Config) (*Client, error) {
	base := strings.TrimSpace(cfg.BaseURL)
	if base == "" {
		base = DefaultBaseURL
	}
	parsed, err := url.Parse(strings.TrimRight(base, "/"))
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("invalid command endpoint base url %q", cfg.BaseURL)
	}
	ack := strings.TrimSpace(cfg.Acknowledgment)
	if ack == "" {
		ack = DefaultAcknowledgment
	}

	return &Client{
		endpoint: parsed.String() + voicePath,
		ack:      ack,
		http: &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport,
			otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
				return "POST " + r.URL.Path
			}),
		)},
	}, nil
}

// Endpoint is the full URL commands are posted to.
func (c *Client) Endpoint() string {
	return c.endpoint
}

// Dispatch posts {"message": command}. A non-2xx status or an unreadable body
// is an error; an empty reply becomes the default acknowledgment.
func (c *Client) Dispatch(ctx context.Context, command string) (domain.CommandResult, error) {
	ctx, span := tracer.Start(ctx, "dispatch voice command")
	defer span.End()
	span.SetAttributes(
		attribute.String("request.url", c.endpoint),
		attribute.Int("request.command_length", len(command)),
	)

	result, err := c.post(ctx, command, span.SetAttributes)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return domain.CommandResult{}, err
	}
	return result, nil
}

func (c *Client) post(ctx context.Context, command string, annotate func(...attribute.KeyValue)) (domain.CommandResult, error) {
	payload, err := json.Marshal(voiceRequest{Message: command})
	if err != nil {
		return domain.CommandResult{}, fmt.Errorf("encode command: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return domain.CommandResult{}, fmt.Errorf("build command request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return domain.CommandResult{}, fmt.Errorf("send command: %w", err)
	}
	defer resp.Body.Close()
	annotate(attribute.Int("response.status_code", resp.StatusCode))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return domain.CommandResult{}, fmt.Errorf("command endpoint returned %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}

	var decoded voiceResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return domain.CommandResult{}, fmt.Errorf("decode command response: %w", err)
	}

	text := strings.TrimSpace(decoded.Response)
	if text == "" {
		text = c.ack
	}
	return domain.CommandResult{ResponseText: text}, nil
}
