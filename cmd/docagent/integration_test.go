package main

import (
	"bufio"
	"encoding/json"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildBinary(t *testing.T) string {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	binaryPath := filepath.Join(t.TempDir(), "docagent")
	buildCmd := exec.Command("go", "build", "-o", binaryPath, ".")
	out, err := buildCmd.CombinedOutput()
	require.NoError(t, err, "Failed to build docagent binary: %s", out)
	return binaryPath
}

func TestIntegration_Serve(t *testing.T) {
	binaryPath := buildBinary(t)

	cmd := exec.Command(binaryPath, "serve")
	stdin, err := cmd.StdinPipe()
	require.NoError(t, err)
	stdout, err := cmd.StdoutPipe()
	require.NoError(t, err)
	require.NoError(t, cmd.Start())

	defer func() {
		stdin.Close()
		_ = cmd.Wait()
	}()

	scanner := bufio.NewScanner(stdout)
	send := func(line string) {
		_, err := stdin.Write([]byte(line + "\n"))
		require.NoError(t, err)
	}

	send(`{"jsonrpc":"2.0","id":1,"method":"initialize","params":{"protocolVersion":"2024-11-05","capabilities":{},"clientInfo":{"name":"docagent-test","version":"dev"}}}`)
	require.True(t, scanner.Scan(), "Expected initialize response")
	assert.Contains(t, scanner.Text(), `"protocolVersion":"2024-11-05"`)

	// Neither produces a line.
	send(`{"jsonrpc":"2.0","method":"notifications/initialized"}`)
	send(`this is not json`)

	send(`{"jsonrpc":"2.0","id":"abc","method":"tools/call","params":{"name":"findBySimilarity","arguments":{"text":"cats"}}}`)
	require.True(t, scanner.Scan(), "Expected tools/call response")

	var response struct {
		JSONRPC string `json:"jsonrpc"`
		Result  struct {
			Content []struct {
				Type string `json:"type"`
				Text string `json:"text"`
			} `json:"content"`
		} `json:"result"`
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(scanner.Bytes(), &response), "Failed to parse JSON response")

	assert.Equal(t, "2.0", response.JSONRPC)
	assert.Equal(t, "abc", response.ID)
	require.Len(t, response.Result.Content, 1)
	assert.Equal(t, "text", response.Result.Content[0].Type)
	assert.Equal(t, "Similarity result for 'cats': Document C\nSimilarity result for 'cats': Document D", response.Result.Content[0].Text)

	send(`{"jsonrpc":"2.0","id":7,"method":"nope"}`)
	require.True(t, scanner.Scan(), "Expected error response")
	assert.Equal(t, `{"jsonrpc":"2.0","error":{"code":-32601,"message":"Method not found: nope"},"id":7}`, scanner.Text())
}

func TestIntegration_AskWithServerSubprocess(t *testing.T) {
	binaryPath := buildBinary(t)

	cmd := exec.Command(binaryPath, "ask", "--provider", "stub", "--server-cmd", binaryPath+" serve", "Who is connected to X?")
	out, err := cmd.CombinedOutput()
	require.NoError(t, err, "%s", out)

	assert.Contains(t, string(out), "Keyword result for 'Who is connected to X?': Document A")
}
