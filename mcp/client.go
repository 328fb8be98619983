package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/loopwork-ai/docagent/jsonrpc"
)

// ErrClosed is returned by a connection that has been closed.
var ErrClosed = errors.New("mcp: connection closed")

// Conn carries JSON-RPC requests to a tool server.
// Call returns a nil response for notifications.
type Conn interface {
	Call(ctx context.Context, request jsonrpc.Request) (*jsonrpc.Response, error)
	Close() error
}

type handlerConn struct {
	handler jsonrpc.Handler
}

// NewInProcessConn returns a Conn that hands requests straight to handler.
func NewInProcessConn(handler jsonrpc.Handler) Conn {
	return &handlerConn{handler: handler}
}

func (c *handlerConn) Call(ctx context.Context, request jsonrpc.Request) (*jsonrpc.Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if rpcErr := request.Validate(); rpcErr != nil {
		return nil, rpcErr
	}
	response := c.handler.Handle(ctx, request)
	if request.IsNotification() {
		return nil, nil
	}
	if response == nil {
		return nil, fmt.Errorf("no response to %s", request.Method)
	}
	return response, nil
}

func (c *handlerConn) Close() error { return nil }

// Client speaks the tool-server protocol over a Conn. A Client belongs to one
// session: it draws request IDs from its own allocator.
type Client struct {
	conn   Conn
	ids    *jsonrpc.IDAllocator
	info   Implementation
	logger *slog.Logger
}

// ClientOption configures a Client
type ClientOption func(*Client)

// WithClientInfo sets the clientInfo sent with initialize.
func WithClientInfo(name, version string) ClientOption {
	return func(c *Client) {
		c.info = Implementation{Name: name, Version: version}
	}
}

// WithIDAllocator sets the allocator request IDs are drawn from.
func WithIDAllocator(ids *jsonrpc.IDAllocator) ClientOption {
	return func(c *Client) {
		c.ids = ids
	}
}

// WithClientLogger sets the client logger.
func WithClientLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

func NewClient(conn Conn, opts ...ClientOption) *Client {
	c := &Client{
		conn:   conn,
		ids:    jsonrpc.NewIDAllocator(1),
		info:   Implementation{Name: "docagent", Version: "dev"},
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Call sends method with params under a freshly allocated ID.
func (c *Client) Call(ctx context.Context, method string, params interface{}) (*jsonrpc.Response, error) {
	raw, err := jsonrpc.MarshalParams(params)
	if err != nil {
		return nil, fmt.Errorf("error encoding %s params: %w", method, err)
	}
	id := c.ids.Next()
	c.logger.Debug("request", "method", method, "id", id.String())

	response, err := c.conn.Call(ctx, jsonrpc.NewRequest(method, raw, id))
	if err != nil {
		return nil, err
	}
	if !response.ID.Equal(id) {
		return nil, fmt.Errorf("response id %s does not match request id %s", response.ID, id)
	}
	return response, nil
}

// Notify sends a notification.
func (c *Client) Notify(ctx context.Context, method string, params interface{}) error {
	raw, err := jsonrpc.MarshalParams(params)
	if err != nil {
		return fmt.Errorf("error encoding %s params: %w", method, err)
	}
	_, err = c.conn.Call(ctx, jsonrpc.NewNotification(method, raw))
	return err
}

// Initialize performs the initialize handshake followed by the initialized notification.
func (c *Client) Initialize(ctx context.Context) (*InitializeResponse, error) {
	response, err := c.Call(ctx, MethodInitialize, InitializeRequest{
		ProtocolVersion: Version,
		Capabilities:    map[string]interface{}{},
		ClientInfo:      c.info,
	})
	if err != nil {
		return nil, err
	}
	var result InitializeResponse
	if err := response.Decode(&result); err != nil {
		return nil, fmt.Errorf("initialize: %w", err)
	}
	if err := c.Notify(ctx, MethodInitialized, nil); err != nil {
		return nil, fmt.Errorf("%s: %w", MethodInitialized, err)
	}
	return &result, nil
}

// ListTools returns the server's tool descriptors.
func (c *Client) ListTools(ctx context.Context) ([]Tool, error) {
	response, err := c.Call(ctx, MethodToolsList, nil)
	if err != nil {
		return nil, err
	}
	var result ToolsListResponse
	if err := response.Decode(&result); err != nil {
		return nil, fmt.Errorf("tools/list: %w", err)
	}
	return result.Tools, nil
}

// CallTool invokes a tool. JSON-RPC errors are returned as *jsonrpc.Error.
func (c *Client) CallTool(ctx context.Context, name string, arguments json.RawMessage) (*ToolCallResponse, error) {
	response, err := c.Call(ctx, MethodToolsCall, ToolCallRequest{Name: name, Arguments: arguments})
	if err != nil {
		return nil, err
	}
	var result ToolCallResponse
	if err := response.Decode(&result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Ping checks that the server is alive.
func (c *Client) Ping(ctx context.Context) error {
	response, err := c.Call(ctx, MethodPing, nil)
	if err != nil {
		return err
	}
	return response.Decode(nil)
}

func (c *Client) Close() error {
	return c.conn.Close()
}
