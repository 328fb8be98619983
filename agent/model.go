package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/loopwork-ai/docagent/mcp"
)

// ErrNoChoices is returned by a model whose response carries no choices.
var ErrNoChoices = errors.New("model response has no choices")

// ErrNoMessage is returned when the first choice carries no message.
var ErrNoMessage = errors.New("model response choice has no message")

// Finish reasons reported by the model.
const (
	FinishToolCalls = "tool_calls"
	FinishStop      = "stop"
)

// Completion is one assistant turn.
type Completion struct {
	Message      Message
	FinishReason string
}

// Model produces the next assistant message for a conversation.
// tools may be empty, in which case the model must answer directly.
type Model interface {
	Complete(ctx context.Context, messages []Message, tools []FunctionTool) (*Completion, error)
}

// FunctionTool is a tool in the model's function-calling format.
type FunctionTool struct {
	Type     string             `json:"type"`
	Function FunctionDefinition `json:"function"`
}

// FunctionDefinition describes a callable function.
type FunctionDefinition struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Parameters  json.RawMessage `json:"parameters"`
}

// FunctionTools translates tool descriptors into function schemas. The
// input schema is carried over unchanged as the function parameters.
func FunctionTools(tools []mcp.Tool) ([]FunctionTool, error) {
	out := make([]FunctionTool, 0, len(tools))
	for _, tool := range tools {
		params, err := json.Marshal(tool.InputSchema)
		if err != nil {
			return nil, fmt.Errorf("error encoding schema for %s: %w", tool.Name, err)
		}
		out = append(out, FunctionTool{
			Type: "function",
			Function: FunctionDefinition{
				Name:        tool.Name,
				Description: tool.Description,
				Parameters:  params,
			},
		})
	}
	return out, nil
}

// Composer is implemented by models that can answer from retrieved documents
// without a prompt round trip.
type Composer interface {
	Compose(question string, documents []string) string
}
