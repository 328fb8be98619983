package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loopwork-ai/docagent/jsonrpc"
)

func newTestServer(t *testing.T, opts ...ServerOption) *Server {
	t.Helper()
	server, err := NewServer(opts...)
	require.NoError(t, err)
	return server
}

func decodeRequest(t *testing.T, line string) jsonrpc.Request {
	t.Helper()
	var request jsonrpc.Request
	require.NoError(t, json.Unmarshal([]byte(line), &request))
	return request
}

func handleLine(t *testing.T, server *Server, line string) *jsonrpc.Response {
	t.Helper()
	return server.Handle(context.Background(), decodeRequest(t, line))
}

func TestServer_Initialize(t *testing.T) {
	server := newTestServer(t)

	response := handleLine(t, server, `{"jsonrpc":"2.0","method":"initialize","params":{},"id":1}`)
	require.NotNil(t, response)
	require.Nil(t, response.Error)

	var result InitializeResponse
	require.NoError(t, response.Decode(&result))
	assert.Equal(t, Version, result.ProtocolVersion)
	assert.Equal(t, "docstore", result.ServerInfo.Name)
	assert.Equal(t, "1.0", result.ServerInfo.Version)
	require.NotNil(t, result.Capabilities.Tools)
	assert.False(t, result.Capabilities.Tools.ListChanged)
}

func TestServer_EchoesID(t *testing.T) {
	server := newTestServer(t)

	for _, raw := range []string{`7`, `7.0`, `1e3`, `"abc"`, `""`, `true`, `{"n":1}`, `[1]`} {
		t.Run(raw, func(t *testing.T) {
			response := handleLine(t, server, `{"jsonrpc":"2.0","method":"ping","id":`+raw+`}`)
			require.NotNil(t, response)

			data, err := json.Marshal(response)
			require.NoError(t, err)
			assert.Equal(t, `{"jsonrpc":"2.0","result":{},"id":`+raw+`}`, string(data))
		})
	}
}

func TestServer_Notifications(t *testing.T) {
	server := newTestServer(t)

	for _, line := range []string{
		`{"jsonrpc":"2.0","method":"notifications/initialized"}`,
		`{"jsonrpc":"2.0","method":"tools/call","params":{"name":"findByKeyword","arguments":{"text":"x"}}}`,
		`{"jsonrpc":"2.0","method":"no/such/method"}`,
		`{"jsonrpc":"2.0","method":"ping","id":null}`,
		`{"jsonrpc":"2.0","method":"notifications/initialized","id":9}`,
		`{"jsonrpc":"2.0","method":"notifications/initialized","id":"init"}`,
	} {
		assert.Nil(t, handleLine(t, server, line), line)
	}
}

func TestServer_ToolsList(t *testing.T) {
	server := newTestServer(t)

	first := handleLine(t, server, `{"jsonrpc":"2.0","method":"tools/list","id":1}`)
	second := handleLine(t, server, `{"jsonrpc":"2.0","method":"tools/list","id":1}`)
	require.NotNil(t, first)
	require.NotNil(t, second)

	firstData, err := json.Marshal(first)
	require.NoError(t, err)
	secondData, err := json.Marshal(second)
	require.NoError(t, err)
	assert.Equal(t, string(firstData), string(secondData))

	var result ToolsListResponse
	require.NoError(t, first.Decode(&result))
	require.Len(t, result.Tools, 3)

	names := []string{}
	for _, tool := range result.Tools {
		names = append(names, tool.Name)
		require.NotNil(t, tool.InputSchema)
		assert.Equal(t, "object", tool.InputSchema.Type)
		assert.Equal(t, []string{"text"}, tool.InputSchema.Required)
		require.Contains(t, tool.InputSchema.Properties, "text")
		assert.Equal(t, "string", tool.InputSchema.Properties["text"].Type)
	}
	assert.Equal(t, []string{ToolFindByKeyword, ToolFindBySimilarity, ToolFindByRelations}, names)
	assert.Equal(t, "Search for documents by keyword.", result.Tools[0].Description)
}

func TestServer_ToolsCall(t *testing.T) {
	server := newTestServer(t)

	tests := []struct {
		name     string
		line     string
		wantText string
		wantCode jsonrpc.ErrorCode
	}{
		{
			name:     "keyword",
			line:     `{"jsonrpc":"2.0","method":"tools/call","params":{"name":"findByKeyword","arguments":{"text":"Who is connected to X?"}},"id":1}`,
			wantText: "Keyword result for 'Who is connected to X?': Document A\nKeyword result for 'Who is connected to X?': Document B",
		},
		{
			name:     "similarity",
			line:     `{"jsonrpc":"2.0","method":"tools/call","params":{"name":"findBySimilarity","arguments":{"text":"cats"}},"id":2}`,
			wantText: "Similarity result for 'cats': Document C\nSimilarity result for 'cats': Document D",
		},
		{
			name:     "relations",
			line:     `{"jsonrpc":"2.0","method":"tools/call","params":{"name":"findByRelations","arguments":{"text":"X"}},"id":3}`,
			wantText: "Relation result for 'X': Document E\nRelation result for 'X': Document F",
		},
		{
			name:     "empty text is allowed",
			line:     `{"jsonrpc":"2.0","method":"tools/call","params":{"name":"findByKeyword","arguments":{"text":""}},"id":4}`,
			wantText: "Keyword result for '': Document A\nKeyword result for '': Document B",
		},
		{
			name:     "unknown tool",
			line:     `{"jsonrpc":"2.0","method":"tools/call","params":{"name":"findByMagic","arguments":{"text":"x"}},"id":5}`,
			wantCode: jsonrpc.ErrMethodNotFound,
		},
		{
			name:     "missing params",
			line:     `{"jsonrpc":"2.0","method":"tools/call","id":6}`,
			wantCode: jsonrpc.ErrInvalidParams,
		},
		{
			name:     "missing name",
			line:     `{"jsonrpc":"2.0","method":"tools/call","params":{"arguments":{"text":"x"}},"id":7}`,
			wantCode: jsonrpc.ErrInvalidParams,
		},
		{
			name:     "missing arguments",
			line:     `{"jsonrpc":"2.0","method":"tools/call","params":{"name":"findByKeyword"},"id":8}`,
			wantCode: jsonrpc.ErrInvalidParams,
		},
		{
			name:     "null arguments",
			line:     `{"jsonrpc":"2.0","method":"tools/call","params":{"name":"findByKeyword","arguments":null},"id":11}`,
			wantCode: jsonrpc.ErrInvalidParams,
		},
		{
			name:     "missing text",
			line:     `{"jsonrpc":"2.0","method":"tools/call","params":{"name":"findByKeyword","arguments":{}},"id":9}`,
			wantCode: jsonrpc.ErrInvalidParams,
		},
		{
			name:     "text is not a string",
			line:     `{"jsonrpc":"2.0","method":"tools/call","params":{"name":"findByKeyword","arguments":{"text":42}},"id":10}`,
			wantCode: jsonrpc.ErrInvalidParams,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			response := handleLine(t, server, tt.line)
			require.NotNil(t, response)

			if tt.wantCode != 0 {
				require.NotNil(t, response.Error)
				assert.Equal(t, tt.wantCode, response.Error.Code)
				assert.Nil(t, response.Result)
				return
			}

			require.Nil(t, response.Error)
			var result ToolCallResponse
			require.NoError(t, response.Decode(&result))
			require.Len(t, result.Content, 1)
			assert.Equal(t, "text", result.Content[0].Type)
			assert.Equal(t, tt.wantText, result.Content[0].Text)
			assert.False(t, result.IsError)
		})
	}
}

func TestServer_UnknownMethod(t *testing.T) {
	server := newTestServer(t)

	response := handleLine(t, server, `{"jsonrpc":"2.0","method":"resources/list","id":"r1"}`)
	require.NotNil(t, response)
	require.NotNil(t, response.Error)
	assert.Equal(t, jsonrpc.ErrMethodNotFound, response.Error.Code)
	assert.Equal(t, "Method not found: resources/list", response.Error.Message)

	data, err := json.Marshal(response)
	require.NoError(t, err)
	assert.Equal(t, `{"jsonrpc":"2.0","error":{"code":-32601,"message":"Method not found: resources/list"},"id":"r1"}`, string(data))
}

type failingBackend struct{}

func (failingBackend) FindByKeyword(context.Context, string) ([]string, error) {
	return nil, errors.New("index offline")
}

func (failingBackend) FindBySimilarity(context.Context, string) ([]string, error) {
	return nil, errors.New("index offline")
}

func (failingBackend) FindByRelations(context.Context, string) ([]string, error) {
	return nil, errors.New("index offline")
}

func TestServer_BackendError(t *testing.T) {
	server := newTestServer(t, WithBackend(failingBackend{}))

	response := handleLine(t, server, `{"jsonrpc":"2.0","method":"tools/call","params":{"name":"findByRelations","arguments":{"text":"X"}},"id":1}`)
	require.NotNil(t, response)
	require.Nil(t, response.Error)

	var result ToolCallResponse
	require.NoError(t, response.Decode(&result))
	assert.True(t, result.IsError)
	text, ok := result.FirstText()
	require.True(t, ok)
	assert.Contains(t, text, "index offline")
}

func TestServer_Options(t *testing.T) {
	_, err := NewServer(WithBackend(nil))
	assert.Error(t, err)

	server := newTestServer(t, WithServerInfo("docs", "2.1"))
	response := handleLine(t, server, `{"jsonrpc":"2.0","method":"initialize","id":1}`)
	var result InitializeResponse
	require.NoError(t, response.Decode(&result))
	assert.Equal(t, Implementation{Name: "docs", Version: "2.1"}, result.ServerInfo)
	assert.Len(t, server.Tools(), 3)
}
