package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/google/jsonschema-go/jsonschema"

	"github.com/loopwork-ai/docagent/docstore"
	"github.com/loopwork-ai/docagent/jsonrpc"
)

// Tool names exposed by the server.
const (
	ToolFindByKeyword    = "findByKeyword"
	ToolFindBySimilarity = "findBySimilarity"
	ToolFindByRelations  = "findByRelations"
)

type toolEntry struct {
	tool     Tool
	kind     docstore.Kind
	resolved *jsonschema.Resolved
}

// Server represents an MCP server that processes JSON-RPC requests
// against a document backend. It holds no per-session state.
type Server struct {
	info    Implementation
	backend docstore.Backend
	logger  *slog.Logger

	tools     []toolEntry
	byName    map[string]*toolEntry
	toolsList json.RawMessage
}

var _ jsonrpc.Handler = (*Server)(nil)

// ServerOption configures a Server
type ServerOption func(*Server) error

// WithServerInfo sets the name and version reported by initialize.
func WithServerInfo(name, version string) ServerOption {
	return func(s *Server) error {
		s.info = Implementation{Name: name, Version: version}
		return nil
	}
}

// WithLogger sets the logger for the server
func WithLogger(logger *slog.Logger) ServerOption {
	return func(s *Server) error {
		s.logger = logger
		return nil
	}
}

// WithBackend sets the document backend
func WithBackend(backend docstore.Backend) ServerOption {
	return func(s *Server) error {
		if backend == nil {
			return fmt.Errorf("backend cannot be nil")
		}
		s.backend = backend
		return nil
	}
}

// NewServer creates a new MCP server instance
func NewServer(opts ...ServerOption) (*Server, error) {
	s := &Server{
		info:    Implementation{Name: "docstore", Version: "1.0"},
		backend: docstore.NewMockStore(),
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}

	if err := s.registerTools(); err != nil {
		return nil, err
	}
	return s, nil
}

// textInputSchema describes the single required string argument every tool takes.
func textInputSchema() *jsonschema.Schema {
	return &jsonschema.Schema{
		Type: "object",
		Properties: map[string]*jsonschema.Schema{
			"text": {Type: "string"},
		},
		Required: []string{"text"},
	}
}

func (s *Server) registerTools() error {
	defs := []struct {
		name, description string
		kind              docstore.Kind
	}{
		{ToolFindByKeyword, "Search for documents by keyword.", docstore.KindKeyword},
		{ToolFindBySimilarity, "Search for documents by semantic similarity.", docstore.KindSimilarity},
		{ToolFindByRelations, "Search for documents by graph relations.", docstore.KindRelations},
	}

	s.tools = make([]toolEntry, 0, len(defs))
	for _, d := range defs {
		schema := textInputSchema()
		resolved, err := schema.Resolve(nil)
		if err != nil {
			return fmt.Errorf("error resolving schema for %s: %w", d.name, err)
		}
		s.tools = append(s.tools, toolEntry{
			tool:     Tool{Name: d.name, Description: d.description, InputSchema: schema},
			kind:     d.kind,
			resolved: resolved,
		})
	}

	s.byName = make(map[string]*toolEntry, len(s.tools))
	tools := make([]Tool, len(s.tools))
	for i := range s.tools {
		s.byName[s.tools[i].tool.Name] = &s.tools[i]
		tools[i] = s.tools[i].tool
	}

	// Encoded once so every tools/list answer is byte-identical.
	data, err := json.Marshal(ToolsListResponse{Tools: tools})
	if err != nil {
		return fmt.Errorf("error encoding tool list: %w", err)
	}
	s.toolsList = data
	return nil
}

// Handle processes a single JSON-RPC request and returns a response,
// or nil when the request is a notification. notifications/initialized is
// never answered, even when it carries an id.
func (s *Server) Handle(ctx context.Context, request jsonrpc.Request) *jsonrpc.Response {
	if request.IsNotification() || request.Method == MethodInitialized {
		s.logger.Debug("notification", "method", request.Method)
		return nil
	}

	id := *request.ID
	var response jsonrpc.Response
	switch request.Method {
	case MethodInitialize:
		response = s.handleInitialize(id)
	case MethodToolsList:
		response = jsonrpc.Response{Version: jsonrpc.Version, Result: s.toolsList, ID: id}
	case MethodToolsCall:
		response = s.handleToolsCall(ctx, id, request.Params)
	case MethodPing:
		response = jsonrpc.NewResponse(id, PingResponse{}, nil)
	default:
		response = jsonrpc.NewErrorResponse(id, jsonrpc.NewErrorf(jsonrpc.ErrMethodNotFound, "Method not found: %s", request.Method))
	}

	if response.Error != nil {
		s.logger.Debug("request failed", "method", request.Method, "id", id.String(), "code", int(response.Error.Code), "message", response.Error.Message)
	}
	return &response
}

func (s *Server) handleInitialize(id jsonrpc.ID) jsonrpc.Response {
	return jsonrpc.NewResponse(id, InitializeResponse{
		ProtocolVersion: Version,
		Capabilities: ServerCapabilities{
			Tools: &ToolsCapability{},
		},
		ServerInfo: s.info,
	}, nil)
}

func (s *Server) handleToolsCall(ctx context.Context, id jsonrpc.ID, params json.RawMessage) jsonrpc.Response {
	invalid := func(data interface{}) jsonrpc.Response {
		return jsonrpc.NewErrorResponse(id, jsonrpc.NewError(jsonrpc.ErrInvalidParams, data))
	}

	trimmed := bytes.TrimSpace(params)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return invalid("params are required")
	}

	var call ToolCallRequest
	if err := json.Unmarshal(trimmed, &call); err != nil {
		return invalid(err.Error())
	}
	if strings.TrimSpace(call.Name) == "" {
		return invalid("name is required")
	}

	entry, ok := s.byName[call.Name]
	if !ok {
		return jsonrpc.NewErrorResponse(id, jsonrpc.NewError(jsonrpc.ErrMethodNotFound, nil))
	}

	if arguments := bytes.TrimSpace(call.Arguments); len(arguments) == 0 || bytes.Equal(arguments, []byte("null")) {
		return invalid("arguments are required")
	}
	var args map[string]interface{}
	if err := json.Unmarshal(call.Arguments, &args); err != nil {
		return invalid(err.Error())
	}
	if err := entry.resolved.Validate(args); err != nil {
		return invalid(err.Error())
	}
	text, _ := args["text"].(string)

	s.logger.Debug("calling tool", "tool", call.Name, "text", text)
	snippets, err := docstore.Find(ctx, s.backend, entry.kind, text)
	if err != nil {
		s.logger.Warn("backend query failed", "tool", call.Name, "error", err)
		return jsonrpc.NewResponse(id, ToolCallResponse{
			Content: []Content{NewTextContent(err.Error(), nil, nil)},
			IsError: true,
		}, nil)
	}

	return jsonrpc.NewResponse(id, ToolCallResponse{
		Content: []Content{NewTextContent(strings.Join(snippets, "\n"), nil, nil)},
	}, nil)
}

// Tools returns the fixed tool descriptors.
func (s *Server) Tools() []Tool {
	tools := make([]Tool, len(s.tools))
	for i := range s.tools {
		tools[i] = s.tools[i].tool
	}
	return tools
}
