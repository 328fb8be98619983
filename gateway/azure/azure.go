// Package azure calls an Azure OpenAI chat completions deployment.
package azure

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/loopwork-ai/docagent/agent"
	"github.com/loopwork-ai/docagent/internal"
)

// DefaultAPIVersion is used when no api-version is configured.
const DefaultAPIVersion = "2023-05-15"

// maxResponseSize bounds how much of a response body is read.
const maxResponseSize = 10 * 1024 * 1024

// APIError is the error object returned by the endpoint.
type APIError struct {
	StatusCode int    `json:"-"`
	Code       string `json:"code,omitempty"`
	Type       string `json:"type,omitempty"`
	Message    string `json:"message"`
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("azure openai: %s (%s, status %d)", e.Message, e.Code, e.StatusCode)
	}
	return fmt.Sprintf("azure openai: %s (status %d)", e.Message, e.StatusCode)
}

// Model is an agent.Model backed by a chat completions deployment.
type Model struct {
	endpoint   string
	deployment string
	apiVersion string
	timeout    time.Duration
	client     *http.Client
	logger     *slog.Logger
}

var _ agent.Model = (*Model)(nil)

// Option configures a Model
type Option func(*Model)

// WithAPIVersion sets the api-version query parameter.
func WithAPIVersion(version string) Option {
	return func(m *Model) {
		if version != "" {
			m.apiVersion = version
		}
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(m *Model) {
		m.timeout = timeout
	}
}

// WithHTTPClient replaces the HTTP client. The api-key header is still added.
func WithHTTPClient(client *http.Client) Option {
	return func(m *Model) {
		m.client = client
	}
}

// WithLogger sets the logger for the model
func WithLogger(logger *slog.Logger) Option {
	return func(m *Model) {
		m.logger = logger
	}
}

// New returns a model for deployment at endpoint, authenticated with apiKey.
func New(endpoint, deployment, apiKey string, opts ...Option) (*Model, error) {
	if endpoint == "" {
		return nil, fmt.Errorf("azure openai endpoint is required")
	}
	if deployment == "" {
		return nil, fmt.Errorf("azure openai deployment is required")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("azure openai api key is required")
	}

	m := &Model{
		endpoint:   strings.TrimRight(endpoint, "/"),
		deployment: deployment,
		apiVersion: DefaultAPIVersion,
		timeout:    60 * time.Second,
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(m)
	}

	headers := http.Header{}
	headers.Set("api-key", apiKey)
	if m.client == nil {
		m.client = internal.NewHTTPClient(internal.HTTPClientConfig{
			Timeout: m.timeout,
			Headers: headers,
			Logger:  m.logger,
		})
	} else {
		client := *m.client
		client.Transport = &internal.HeaderTransport{Base: m.client.Transport, Headers: headers}
		m.client = &client
	}
	return m, nil
}

// URL returns the chat completions URL for the deployment.
func (m *Model) URL() string {
	return fmt.Sprintf("%s/openai/deployments/%s/chat/completions?api-version=%s",
		m.endpoint, url.PathEscape(m.deployment), url.QueryEscape(m.apiVersion))
}

// Complete sends the conversation and returns the first choice.
func (m *Model) Complete(ctx context.Context, messages []agent.Message, tools []agent.FunctionTool) (*agent.Completion, error) {
	body, err := json.Marshal(newChatRequest(messages, tools))
	if err != nil {
		return nil, fmt.Errorf("error encoding chat request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.URL(), bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	m.logger.Debug("calling model", "deployment", m.deployment, "messages", len(messages), "tools", len(tools))
	resp, err := m.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error calling model: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("error reading model response: %w", err)
	}

	var parsed chatResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		if resp.StatusCode >= 400 {
			return nil, &APIError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(data))}
		}
		return nil, fmt.Errorf("error decoding model response: %w", err)
	}
	if parsed.Error != nil {
		parsed.Error.StatusCode = resp.StatusCode
		return nil, parsed.Error
	}
	if resp.StatusCode >= 400 {
		return nil, &APIError{StatusCode: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
	}
	return parsed.completion()
}
