package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	"github.com/google/uuid"

	"github.com/loopwork-ai/docagent/mcp"
)

// DefaultMaxTurns bounds the number of model calls in one session.
const DefaultMaxTurns = 5

// toolErrorText stands in for a tool result that has no text.
const toolErrorText = "Error"

// State is the terminal state of a session.
type State int

const (
	StateAnswered State = iota
	StateExhausted
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateAnswered:
		return "answered"
	case StateExhausted:
		return "exhausted"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Result describes how a session ended.
type Result struct {
	SessionID  string
	State      State
	Answer     string
	Turns      int
	Transcript []Message
	// Err is set when State is StateFailed.
	Err error
}

// Loop runs the bounded tool-calling conversation between a model and a
// tool server.
type Loop struct {
	client   *mcp.Client
	model    Model
	maxTurns int
	logger   *slog.Logger
	reporter Reporter
}

// LoopOption configures a Loop
type LoopOption func(*Loop)

// WithMaxTurns sets the turn ceiling.
func WithMaxTurns(n int) LoopOption {
	return func(l *Loop) {
		if n > 0 {
			l.maxTurns = n
		}
	}
}

// WithLogger sets the logger for the loop
func WithLogger(logger *slog.Logger) LoopOption {
	return func(l *Loop) {
		l.logger = logger
	}
}

// WithReporter sets where progress events go.
func WithReporter(r Reporter) LoopOption {
	return func(l *Loop) {
		l.reporter = r
	}
}

// NewLoop creates a loop that answers questions with model, executing tool
// calls through client.
func NewLoop(client *mcp.Client, model Model, opts ...LoopOption) *Loop {
	l := &Loop{
		client:   client,
		model:    model,
		maxTurns: DefaultMaxTurns,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		reporter: NopReporter{},
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Run answers question. The returned error covers bootstrap failures only;
// model failures end the session in StateFailed.
func (l *Loop) Run(ctx context.Context, question string) (*Result, error) {
	result := &Result{SessionID: uuid.NewString()}
	logger := l.logger.With("session", result.SessionID)

	if _, err := l.client.Initialize(ctx); err != nil {
		return nil, fmt.Errorf("error initializing tool server: %w", err)
	}
	tools, err := l.client.ListTools(ctx)
	if err != nil {
		return nil, fmt.Errorf("error listing tools: %w", err)
	}
	functions, err := FunctionTools(tools)
	if err != nil {
		return nil, err
	}
	logger.Debug("tools discovered", "count", len(functions))

	transcript, err := NewTranscript(UserMessage(question))
	if err != nil {
		return nil, err
	}

	finish := func(state State) (*Result, error) {
		result.State = state
		result.Transcript = transcript.Messages()
		logger.Debug("session finished", "state", state.String(), "turns", result.Turns)
		return result, nil
	}

	for turn := 0; turn < l.maxTurns; turn++ {
		l.reporter.Stage(fmt.Sprintf("Turn %d", turn))
		result.Turns = turn + 1

		completion, err := l.model.Complete(ctx, transcript.Messages(), functions)
		if err != nil {
			logger.Error("model call failed", "turn", turn, "error", err)
			l.reporter.Failure(err)
			result.Err = err
			return finish(StateFailed)
		}

		message := completion.Message
		message.Role = RoleAssistant
		if completion.FinishReason != FinishToolCalls {
			if err := transcript.Append(message); err != nil {
				return nil, err
			}
			result.Answer = message.Content
			l.reporter.Answer(message.Content)
			return finish(StateAnswered)
		}

		if err := transcript.Append(message); err != nil {
			return nil, err
		}
		l.reporter.Note(fmt.Sprintf("Model requested %d tool call(s)", len(message.ToolCalls)))

		for _, call := range message.ToolCalls {
			l.reporter.ToolCall(call)
			output := l.callTool(ctx, logger, call)
			l.reporter.ToolOutput(call, output)
			if err := transcript.Append(ToolMessage(call.ID, output)); err != nil {
				return nil, err
			}
		}
	}

	return finish(StateExhausted)
}

// callTool executes call and returns the text fed back to the model.
func (l *Loop) callTool(ctx context.Context, logger *slog.Logger, call ToolCall) string {
	arguments := toolArguments(call.Arguments)
	if arguments == nil {
		logger.Warn("malformed tool arguments", "tool", call.Name, "arguments", call.Arguments)
		arguments = json.RawMessage(`{}`)
	}

	response, err := l.client.CallTool(ctx, call.Name, arguments)
	if err != nil {
		logger.Warn("tool call failed", "tool", call.Name, "error", err)
		return toolErrorText
	}
	text, ok := response.FirstText()
	if !ok {
		return toolErrorText
	}
	return text
}

// toolArguments returns raw if it is a JSON object, otherwise nil.
func toolArguments(raw string) json.RawMessage {
	trimmed := bytes.TrimSpace([]byte(raw))
	if len(trimmed) == 0 || trimmed[0] != '{' || !json.Valid(trimmed) {
		return nil
	}
	return json.RawMessage(trimmed)
}
