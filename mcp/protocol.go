package mcp

import (
	"encoding/json"

	"github.com/google/jsonschema-go/jsonschema"
)

// Version is the Model Context Protocol version
const Version = "2024-11-05"

// Method names
const (
	MethodInitialize  = "initialize"
	MethodInitialized = "notifications/initialized"
	MethodToolsList   = "tools/list"
	MethodToolsCall   = "tools/call"
	MethodPing        = "ping"
)

// Role represents the sender or recipient of messages and data in a conversation
type Role string

const (
	// RoleUser represents the user
	RoleUser Role = "user"

	// RoleAssistant represents the assistant
	RoleAssistant Role = "assistant"
)

// Content types
type (
	// Annotations represents optional annotations for objects
	Annotations struct {
		// Describes who the intended customer of this object or data is
		Audience []Role `json:"audience,omitempty"`
		// Describes how important this data is for operating the server (0-1)
		Priority *float64 `json:"priority,omitempty"`
	}

	// Content represents the base content type
	Content struct {
		Type        string       `json:"type"`
		Text        string       `json:"text,omitempty"`
		Data        string       `json:"data,omitempty"`
		MimeType    string       `json:"mimeType,omitempty"`
		Annotations *Annotations `json:"annotations,omitempty"`
	}
)

// NewTextContent creates a text content item. Annotations are attached only
// when an audience or priority is given.
func NewTextContent(text string, audience []Role, priority *float64) Content {
	c := Content{
		Type: "text",
		Text: text,
	}
	if len(audience) > 0 || priority != nil {
		c.Annotations = &Annotations{
			Audience: audience,
			Priority: priority,
		}
	}
	return c
}

// Initialize
type (
	// ToolsCapability advertises tool support
	ToolsCapability struct {
		ListChanged bool `json:"listChanged"`
	}

	// ServerCapabilities represents the server's supported capabilities
	ServerCapabilities struct {
		Experimental map[string]interface{} `json:"experimental,omitempty"`
		Tools        *ToolsCapability       `json:"tools,omitempty"`
	}

	// Implementation names a client or server and its version
	Implementation struct {
		Name    string `json:"name"`
		Version string `json:"version"`
	}

	// InitializeRequest represents a request to initialize the server
	InitializeRequest struct {
		ProtocolVersion string                 `json:"protocolVersion"`
		Capabilities    map[string]interface{} `json:"capabilities"`
		ClientInfo      Implementation         `json:"clientInfo"`
	}

	// InitializeResponse represents the server's response to an initialize request
	InitializeResponse struct {
		ProtocolVersion string             `json:"protocolVersion"`
		Capabilities    ServerCapabilities `json:"capabilities"`
		ServerInfo      Implementation     `json:"serverInfo"`
		Instructions    string             `json:"instructions,omitempty"`
	}
)

// Tools
type (
	// Tool represents a single tool in the tools/list response
	Tool struct {
		Name        string             `json:"name"`
		Description string             `json:"description,omitempty"`
		InputSchema *jsonschema.Schema `json:"inputSchema"`
	}

	// ToolsListResponse represents the response for the tools/list method
	ToolsListResponse struct {
		Tools []Tool `json:"tools"`
	}

	// ToolCallRequest represents a request to call a specific tool
	ToolCallRequest struct {
		Name      string          `json:"name"`
		Arguments json.RawMessage `json:"arguments,omitempty"`
	}

	// ToolCallResponse represents the response from a tool call
	ToolCallResponse struct {
		Content []Content `json:"content"`
		IsError bool      `json:"isError,omitempty"`
	}
)

// FirstText returns the text of the first content item.
func (r *ToolCallResponse) FirstText() (string, bool) {
	if r == nil || len(r.Content) == 0 || r.Content[0].Type != "text" {
		return "", false
	}
	return r.Content[0].Text, true
}

// PingResponse represents the response for ping
type PingResponse struct{}
