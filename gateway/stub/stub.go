// Package stub provides a deterministic model used when no credential is
// configured. It searches once with findByKeyword and answers with the result.
package stub

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/loopwork-ai/docagent/agent"
)

// KeywordTool is the only tool the stub calls.
const KeywordTool = "findByKeyword"

// Model is a deterministic agent.Model.
type Model struct {
	// NewID generates tool-call ids.
	NewID func() string
}

var (
	_ agent.Model    = (*Model)(nil)
	_ agent.Composer = (*Model)(nil)
)

func New() *Model {
	return &Model{NewID: func() string { return "call_" + uuid.NewString() }}
}

// Complete requests one findByKeyword call with the user's question, then
// answers with the tool output once it is in the transcript.
func (m *Model) Complete(_ context.Context, messages []agent.Message, tools []agent.FunctionTool) (*agent.Completion, error) {
	question := lastUserMessage(messages)

	if output, ok := toolOutput(messages); ok {
		return &agent.Completion{
			Message:      agent.Message{Role: agent.RoleAssistant, Content: output},
			FinishReason: agent.FinishStop,
		}, nil
	}

	if !offers(tools, KeywordTool) {
		return &agent.Completion{
			Message:      agent.Message{Role: agent.RoleAssistant, Content: fmt.Sprintf("[Simulated Answer for '%s']", question)},
			FinishReason: agent.FinishStop,
		}, nil
	}

	arguments, err := json.Marshal(map[string]string{"text": question})
	if err != nil {
		return nil, err
	}
	return &agent.Completion{
		Message: agent.Message{
			Role: agent.RoleAssistant,
			ToolCalls: []agent.ToolCall{{
				ID:        m.NewID(),
				Name:      KeywordTool,
				Arguments: string(arguments),
			}},
		},
		FinishReason: agent.FinishToolCalls,
	}, nil
}

// Compose writes the simulated answer for retrieved documents.
func (m *Model) Compose(question string, documents []string) string {
	return fmt.Sprintf("I found these documents relevant:\n%s\n\nBased on them, the answer is: [Simulated Answer for '%s']",
		strings.Join(documents, "\n"), question)
}

func lastUserMessage(messages []agent.Message) string {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == agent.RoleUser {
			return messages[i].Content
		}
	}
	return ""
}

// toolOutput returns the content of the last tool message, if any.
func toolOutput(messages []agent.Message) (string, bool) {
	for i := len(messages) - 1; i >= 0; i-- {
		switch messages[i].Role {
		case agent.RoleTool:
			return messages[i].Content, true
		case agent.RoleUser:
			return "", false
		}
	}
	return "", false
}

func offers(tools []agent.FunctionTool, name string) bool {
	for _, tool := range tools {
		if tool.Function.Name == name {
			return true
		}
	}
	return false
}
