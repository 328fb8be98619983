package azure

import (
	"github.com/loopwork-ai/docagent/agent"
)

type chatRequest struct {
	Messages   []wireMessage        `json:"messages"`
	Tools      []agent.FunctionTool `json:"tools,omitempty"`
	ToolChoice string               `json:"tool_choice,omitempty"`
}

type wireMessage struct {
	Role       string         `json:"role"`
	Content    *string        `json:"content"`
	ToolCalls  []wireToolCall `json:"tool_calls,omitempty"`
	ToolCallID string         `json:"tool_call_id,omitempty"`
}

type wireToolCall struct {
	ID       string       `json:"id"`
	Type     string       `json:"type"`
	Function wireFunction `json:"function"`
}

type wireFunction struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

type chatResponse struct {
	Choices []struct {
		Message      *wireMessage `json:"message"`
		FinishReason string       `json:"finish_reason"`
	} `json:"choices"`
	Error *APIError `json:"error"`
}

// newChatRequest builds the request body. tool_choice is only sent with tools.
func newChatRequest(messages []agent.Message, tools []agent.FunctionTool) chatRequest {
	req := chatRequest{Messages: make([]wireMessage, 0, len(messages))}
	for _, m := range messages {
		req.Messages = append(req.Messages, toWire(m))
	}
	if len(tools) > 0 {
		req.Tools = tools
		req.ToolChoice = "auto"
	}
	return req
}

func toWire(m agent.Message) wireMessage {
	w := wireMessage{
		Role:       string(m.Role),
		ToolCallID: m.ToolCallID,
	}
	// An assistant message that only calls tools carries null content.
	if m.Content != "" || len(m.ToolCalls) == 0 {
		content := m.Content
		w.Content = &content
	}
	for _, call := range m.ToolCalls {
		w.ToolCalls = append(w.ToolCalls, wireToolCall{
			ID:   call.ID,
			Type: "function",
			Function: wireFunction{
				Name:      call.Name,
				Arguments: call.Arguments,
			},
		})
	}
	return w
}

func (r chatResponse) completion() (*agent.Completion, error) {
	if len(r.Choices) == 0 {
		return nil, agent.ErrNoChoices
	}
	choice := r.Choices[0]
	if choice.Message == nil {
		return nil, agent.ErrNoMessage
	}

	message := agent.Message{Role: agent.RoleAssistant}
	if choice.Message.Content != nil {
		message.Content = *choice.Message.Content
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
