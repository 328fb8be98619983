package mcp

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loopwork-ai/docagent/jsonrpc"
)

type mockHandler struct {
	handleFunc func(jsonrpc.Request) *jsonrpc.Response
	requests   []jsonrpc.Request
}

func (m *mockHandler) Handle(_ context.Context, request jsonrpc.Request) *jsonrpc.Response {
	m.requests = append(m.requests, request)
	return m.handleFunc(request)
}

func echoHandler() *mockHandler {
	return &mockHandler{
		handleFunc: func(request jsonrpc.Request) *jsonrpc.Response {
			if request.IsNotification() {
				return nil
			}
			response := jsonrpc.NewResponse(*request.ID, "success", nil)
			return &response
		},
	}
}

func TestTransport_Run(t *testing.T) {
	tests := []struct {
		name        string
		input       string
		expectedOut string
		expectedLog string
		handled     int
		raw         bool
	}{
		{
			name:        "successful request",
			input:       `{"jsonrpc": "2.0", "method": "tools/list", "id": 1}`,
			expectedOut: `{"jsonrpc":"2.0","result":"success","id":1}` + "\n",
			handled:     1,
		},
		{
			name: "malformed line is skipped",
			input: `{"jsonrpc": "2.0" method: invalid}
{"jsonrpc": "2.0", "method": "ping", "id": "a"}`,
			expectedOut: `{"jsonrpc":"2.0","result":"success","id":"a"}` + "\n",
			expectedLog: "malformed request",
			handled:     1,
		},
		{
			name:        "boolean id is echoed",
			input:       `{"jsonrpc": "2.0", "method": "ping", "id": true}`,
			expectedOut: `{"jsonrpc":"2.0","result":"success","id":true}` + "\n",
			handled:     1,
		},
		{
			name:        "object id is echoed",
			input:       `{"jsonrpc": "2.0", "method": "ping", "id": {"n":1}}`,
			expectedOut: `{"jsonrpc":"2.0","result":"success","id":{"n":1}}` + "\n",
			handled:     1,
		},
		{
			name: "notification produces no output",
			input: `{"jsonrpc": "2.0", "method": "notifications/initialized"}
{"jsonrpc": "2.0", "method": "ping", "id": 2}`,
			expectedOut: `{"jsonrpc":"2.0","result":"success","id":2}` + "\n",
			handled:     2,
		},
		{
			name: "wrong version with id is skipped",
			input: `{"jsonrpc": "1.0", "method": "ping", "id": 3}
{"jsonrpc": "2.0", "method": "ping", "id": 4}`,
			expectedOut: `{"jsonrpc":"2.0","result":"success","id":4}` + "\n",
			expectedLog: "invalid request",
			handled:     1,
		},
		{
			name:        "missing version",
			input:       `{"method": "ping", "id": 3}`,
			expectedLog: "invalid request",
		},
		{
			name:        "wrong version without id",
			input:       `{"jsonrpc": "1.0", "method": "ping"}`,
			expectedLog: "invalid request",
		},
		{
			name:        "carriage return line ending",
			input:       "{\"jsonrpc\": \"2.0\", \"method\": \"ping\", \"id\": 5}\r\n",
			expectedOut: `{"jsonrpc":"2.0","result":"success","id":5}` + "\n",
			handled:     1,
		},
		{
			name:        "last line without newline",
			input:       `{"jsonrpc": "2.0", "method": "ping", "id": 6}`,
			expectedOut: `{"jsonrpc":"2.0","result":"success","id":6}` + "\n",
			handled:     1,
			raw:         true,
		},
		{
			name: "blank lines",
			input: `

{"jsonrpc": "2.0", "method": "ping", "id": 4}`,
			expectedOut: `{"jsonrpc":"2.0","result":"success","id":4}` + "\n",
			handled:     1,
		},
		{
			name:  "empty input",
			input: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := echoHandler()

			input := tt.input
			if !tt.raw && input != "" && !strings.HasSuffix(input, "\n") {
				input += "\n"
			}

			var out, logs bytes.Buffer
			logger := slog.New(slog.NewTextHandler(&logs, nil))
			transport := NewStdioTransport(strings.NewReader(input), &out, logger)

			err := transport.Run(context.Background(), handler)
			require.NoError(t, err)

			assert.Equal(t, tt.expectedOut, out.String())
			assert.Len(t, handler.requests, tt.handled)
			if tt.expectedLog != "" {
				assert.Contains(t, logs.String(), tt.expectedLog)
			}
		})
	}
}

func TestTransport_OverLongLine(t *testing.T) {
	input := strings.Repeat("x", 2*maxLineSize) + "\n" +
		`{"jsonrpc":"2.0","method":"ping","id":1}` + "\n"

	var out, logs bytes.Buffer
	transport := NewStdioTransport(strings.NewReader(input), &out, slog.New(slog.NewTextHandler(&logs, nil)))
	handler := echoHandler()
	require.NoError(t, transport.Run(context.Background(), handler))

	assert.Equal(t, `{"jsonrpc":"2.0","result":"success","id":1}`+"\n", out.String())
	assert.Len(t, handler.requests, 1)
	assert.Contains(t, logs.String(), "line exceeds maximum size")
}

func TestTransport_LineAtSizeLimit(t *testing.T) {
	request := `{"jsonrpc":"2.0","method":"ping","id":1}`

	var out bytes.Buffer
	transport := NewStdioTransport(strings.NewReader(request+"\n"+request+"x\n"), &out, nil)
	transport.maxLineSize = len(request)
	handler := echoHandler()
	require.NoError(t, transport.Run(context.Background(), handler))

	assert.Equal(t, `{"jsonrpc":"2.0","result":"success","id":1}`+"\n", out.String())
	assert.Len(t, handler.requests, 1)
}

func TestTransport_ContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var out bytes.Buffer
	transport := NewStdioTransport(strings.NewReader(`{"jsonrpc":"2.0","method":"ping","id":1}`+"\n"), &out, nil)
	err := transport.Run(ctx, echoHandler())
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, out.String())
}

func TestTransport_Session(t *testing.T) {
	server, err := NewServer()
	require.NoError(t, err)

	input := strings.Join([]string{
		`{"jsonrpc":"2.0","method":"initialize","params":{"protocolVersion":"2024-11-05","capabilities":{},"clientInfo":{"name":"test","version":"1"}},"id":1}`,
		`{"jsonrpc":"2.0","method":"notifications/initialized"}`,
		`{"jsonrpc":"2.0","method":"notifications/initialized","id":9}`,
		`not json at all`,
		`{"jsonrpc":"2.0","method":"tools/call","params":{"name":"findBySimilarity","arguments":{"text":"cats"}},"id":2}`,
		`{"jsonrpc":"2.0","method":"bogus","id":3}`,
	}, "\n") + "\n"

	var out, logs bytes.Buffer
	transport := NewStdioTransport(strings.NewReader(input), &out, slog.New(slog.NewTextHandler(&logs, nil)))
	require.NoError(t, transport.Run(context.Background(), server))

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[0], `"id":1`)
	assert.Contains(t, lines[0], `"protocolVersion":"2024-11-05"`)
	assert.Equal(t, `{"jsonrpc":"2.0","result":{"content":[{"type":"text","text":"Similarity result for 'cats': Document C\nSimilarity result for 'cats': Document D"}]},"id":2}`, lines[1])
	assert.Equal(t, `{"jsonrpc":"2.0","error":{"code":-32601,"message":"Method not found: bogus"},"id":3}`, lines[2])
	assert.Contains(t, logs.String(), "malformed request")
}
