// Package openai calls an OpenAI-compatible chat completions endpoint
// through the official SDK.
package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	openai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"

	"github.com/loopwork-ai/docagent/agent"
	"github.com/loopwork-ai/docagent/internal"
)

// DefaultModel is used when no model name is configured.
const DefaultModel = "gpt-4o-mini"

// Model is an agent.Model backed by the OpenAI SDK.
type Model struct {
	client  openai.Client
	name    string
	baseURL string
	timeout time.Duration
	http    *http.Client
	logger  *slog.Logger
}

var _ agent.Model = (*Model)(nil)

// Option configures a Model
type Option func(*Model)

// WithModel sets the model name.
func WithModel(name string) Option {
	return func(m *Model) {
		if name != "" {
			m.name = name
		}
	}
}

// WithBaseURL points the client at another OpenAI-compatible endpoint.
func WithBaseURL(url string) Option {
	return func(m *Model) {
		m.baseURL = url
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(m *Model) {
		m.timeout = timeout
	}
}

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(m *Model) {
		m.http = client
	}
}

// WithLogger sets the logger for the model
func WithLogger(logger *slog.Logger) Option {
	return func(m *Model) {
		m.logger = logger
	}
}

// New returns a model authenticated with apiKey.
func New(apiKey string, opts ...Option) (*Model, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("openai api key is required")
	}

	m := &Model{
		name:    DefaultModel,
		timeout: 60 * time.Second,
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.http == nil {
		m.http = internal.NewHTTPClient(internal.HTTPClientConfig{
			Timeout: m.timeout,
			Logger:  m.logger,
		})
	}

	clientOpts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithHTTPClient(m.http),
		option.WithMaxRetries(0),
	}
	if m.baseURL != "" {
		clientOpts = append(clientOpts, option.WithBaseURL(m.baseURL))
	}
	m.client = openai.NewClient(clientOpts...)
	return m, nil
}

// Complete sends the conversation and returns the first choice.
func (m *Model) Complete(ctx context.Context, messages []agent.Message, tools []agent.FunctionTool) (*agent.Completion, error) {
	params, err := m.buildChatRequest(messages, tools)
	if err != nil {
		return nil, err
	}

	m.logger.Debug("calling model", "model", m.name, "messages", len(messages), "tools", len(tools))
	completion, err := m.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("error calling model: %w", err)
	}
	if len(completion.Choices) == 0 {
		return nil, agent.ErrNoChoices
	}

	choice := completion.Choices[0]
	if !choice.JSON.Message.Valid() {
		return nil, agent.ErrNoMessage
	}
	message := agent.Message{
		Role:    agent.RoleAssistant,
		Content: choice.Message.Content,
	}
	for _, call := range choice.Message.ToolCalls {
		message.ToolCalls = append(message.ToolCalls, agent.ToolCall{
			ID:        call.ID,
			Name:      call.Function.Name,
			Arguments: call.Function.Arguments,
		})
	}
	return &agent.Completion{Message: message, FinishReason: choice.FinishReason}, nil
}

func (m *Model) buildChatRequest(messages []agent.Message, tools []agent.FunctionTool) (openai.ChatCompletionNewParams, error) {
	params := openai.ChatCompletionNewParams{
		Model:    shared.ChatModel(m.name),
		Messages: convertMessages(messages),
	}
	if len(tools) == 0 {
		return params, nil
	}

	converted, err := convertTools(tools)
	if err != nil {
		return params, err
	}
	params.Tools = converted
	params.ToolChoice = openai.ChatCompletionToolChoiceOptionUnionParam{
		OfAuto: openai.String("auto"),
	}
	return params, nil
}

func convertMessages(messages []agent.Message) []openai.ChatCompletionMessageParamUnion {
	result := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages))
	for _, msg := range messages {
		switch msg.Role {
		case agent.RoleSystem:
			result = append(result, openai.ChatCompletionMessageParamUnion{
				OfSystem: &openai.ChatCompletionSystemMessageParam{
					Content: openai.ChatCompletionSystemMessageParamContentUnion{
						OfString: openai.String(msg.Content),
					},
				},
			})
		case agent.RoleAssistant:
			assistant := &openai.ChatCompletionAssistantMessageParam{}
			if msg.Content != "" {
				assistant.Content = openai.ChatCompletionAssistantMessageParamContentUnion{
					OfString: openai.String(msg.Content),
				}
			}
			for _, call := range msg.ToolCalls {
				assistant.ToolCalls = append(assistant.ToolCalls, openai.ChatCompletionMessageToolCallParam{
					ID: call.ID,
					Function: openai.ChatCompletionMessageToolCallFunctionParam{
						Name:      call.Name,
						Arguments: call.Arguments,
					},
				})
			}
			result = append(result, openai.ChatCompletionMessageParamUnion{OfAssistant: assistant})
		case agent.RoleTool:
			result = append(result, openai.ChatCompletionMessageParamUnion{
				OfTool: &openai.ChatCompletionToolMessageParam{
					Content: openai.ChatCompletionToolMessageParamContentUnion{
						OfString: openai.String(msg.Content),
					},
					ToolCallID: msg.ToolCallID,
				},
			})
		default:
			result = append(result, openai.ChatCompletionMessageParamUnion{
				OfUser: &openai.ChatCompletionUserMessageParam{
					Content: openai.ChatCompletionUserMessageParamContentUnion{
						OfString: openai.String(msg.Content),
					},
				},
			})
		}
	}
	return result
}

func convertTools(tools []agent.FunctionTool) ([]openai.ChatCompletionToolParam, error) {
	result := make([]openai.ChatCompletionToolParam, 0, len(tools))
	for _, tool := range tools {
		var parameters shared.FunctionParameters
		if err := json.Unmarshal(tool.Function.Parameters, &parameters); err != nil {
			return nil, fmt.Errorf("error decoding parameters for %s: %w", tool.Function.Name, err)
		}
		result = append(result, openai.ChatCompletionToolParam{
			Function: openai.FunctionDefinitionParam{
				Name:        tool.Function.Name,
				Description: openai.String(tool.Function.Description),
				Parameters:  parameters,
			},
		})
	}
	return result, nil
}
