package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
)

// Endpoint is a path suffix on the analysis backend.
type Endpoint string

const (
	EndpointReport             Endpoint = "/api/v1/pib-chat/report"
	EndpointGeneralInformation Endpoint = "/api/v1/pib-chat/general_information"
)

// DefaultBaseURL is used when no base URL is configured.
const DefaultBaseURL = "http://localhost:8000"

// UnreachableMessage is returned when no response was received at all.
const UnreachableMessage = "No fue posible contactar el backend."

// ParseEndpoint maps a short name ("report", "general_information") to an Endpoint.
// An empty name selects the report endpoint.
func ParseEndpoint(name string) (Endpoint, error) {
	switch name {
	case "", "report":
		return EndpointReport, nil
	case "general_information":
		return EndpointGeneralInformation, nil
	default:
		return "", fmt.Errorf("unknown endpoint %q", name)
	}
}

// Outcome is either a successful payload or a failure message.
type Outcome struct {
	OK    bool   `json:"ok"`
	Data  string `json:"data,omitempty"`
	Error string `json:"error,omitempty"`
}

func Success(data string) Outcome    { return Outcome{OK: true, Data: data} }
func Failure(message string) Outcome { return Outcome{OK: false, Error: message} }

// Text returns the payload or the failure message.
func (o Outcome) Text() string {
	if o.OK {
		return o.Data
	}
	return o.Error
}

// Asker is the contract callers depend on.
type Asker interface {
	SubmitQuestion(ctx context.Context, question string, endpoint Endpoint) Outcome
}

// Client posts questions to the analysis backend. It holds no mutable state
// and is safe for concurrent use.
type Client struct {
	baseURL string
	http    *http.Client
	log     *slog.Logger
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the transport. The default is http.DefaultClient.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithLogger sets the logger used for debug diagnostics.
func WithLogger(log *slog.Logger) Option {
	return func(c *Client) { c.log = log }
}

// NewClient builds a client against baseURL.
func NewClient(baseURL string, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    http.DefaultClient,
		log:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the configured base URL.
func (c *Client) BaseURL() string { return c.baseURL }

type questionRequest struct {
	Question string `json:"question"`
}

// SubmitQuestion sends one question and folds every result into an Outcome.
// It never retries and sets no deadline of its own; ctx governs cancellation.
func (c *Client) SubmitQuestion(ctx context.Context, question string, endpoint Endpoint) Outcome {
	if endpoint == "" {
		endpoint = EndpointReport
	}
	url := c.baseURL + string(endpoint)

	body, err := json.Marshal(questionRequest{Question: question})
	if err != nil {
		return Failure(UnreachableMessage)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		c.log.Debug("failed to build backend request", "url", url, "err", err)
		return Failure(UnreachableMessage)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Debug("backend unreachable", "url", url, "err", err)
		return Failure(UnreachableMessage)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		c.log.Debug("failed to read backend response", "url", url, "status", resp.StatusCode, "err", err)
		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			return Failure(fmt.Sprintf("HTTP %d", resp.StatusCode))
		}
		return Failure(UnreachableMessage)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Failure(c.errorMessage(resp.StatusCode, raw))
	}
	return c.successPayload(raw)
}

// errorMessage prefers the JSON detail field, then the raw body, then the status.
func (c *Client) errorMessage(status int, raw []byte) string {
	var errBody struct {
		Detail any `json:"detail"`
	}
	if err := json.Unmarshal(raw, &errBody); err != nil {
		c.log.Debug("error body is not JSON", "status", status, "err", err)
	} else if detail := detailText(errBody.Detail); detail != "" {
		return detail
	}
	if text := string(raw); text != "" {
		return text
	}
	return fmt.Sprintf("HTTP %d", status)
}

// detailText renders a truthy detail value. Non-string details (FastAPI
// validation errors are arrays) are re-encoded as JSON.
func detailText(v any) string {
	switch d := v.(type) {
	case nil:
		return ""
	case string:
		return d
	case bool:
		if !d {
			return ""
		}
	case float64:
		if d == 0 {
			return ""
		}
	}
	b, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(b)
}

func (c *Client) successPayload(raw []byte) Outcome {
	var data any
	if err := json.Unmarshal(raw, &data); err != nil {
		c.log.Debug("success body is not JSON", "err", err)
		return Failure(UnreachableMessage)
	}
	if obj, ok := data.(map[string]any); ok {
		if text, ok := obj["response"].(string); ok {
			return Success(text)
		}
	}
	b, err := json.Marshal(data)
	if err != nil {
		return Failure(UnreachableMessage)
	}
	return Success(string(b))
}
