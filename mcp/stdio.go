package mcp

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"sync"

	"github.com/loopwork-ai/docagent/jsonrpc"
)

// StdioConn talks to a tool server over a newline-delimited stream pair.
// Calls are serialized; lines that are not the awaited response are skipped.
type StdioConn struct {
	mu     sync.Mutex
	in     *bufio.Reader
	out    io.Writer
	closer func() error
	logger *slog.Logger
	closed bool
}

var _ Conn = (*StdioConn)(nil)

// NewStdioConn returns a Conn that writes requests to w and reads responses from r.
// The connection owns both: closing it, or cancelling a pending call, closes
// w and r when they implement io.Closer.
func NewStdioConn(r io.Reader, w io.Writer, logger *slog.Logger) *StdioConn {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &StdioConn{
		in:     bufio.NewReaderSize(r, 64*1024),
		out:    w,
		closer: closeStreams(r, w),
		logger: logger,
	}
}

func closeStreams(r io.Reader, w io.Writer) func() error {
	return func() error {
		var errs []error
		if c, ok := w.(io.Closer); ok {
			errs = append(errs, c.Close())
		}
		if c, ok := r.(io.Closer); ok {
			errs = append(errs, c.Close())
		}
		return errors.Join(errs...)
	}
}

// SpawnStdioServer starts command (split on whitespace) and connects to its
// stdin and stdout. Closing the connection closes stdin and waits for exit.
func SpawnStdioServer(ctx context.Context, command string, logger *slog.Logger) (*StdioConn, error) {
	parts := strings.Fields(command)
	if len(parts) == 0 {
		return nil, fmt.Errorf("stdio server requires a command")
	}

	cmd := exec.CommandContext(ctx, parts[0], parts[1:]...)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, err
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, err
	}
	cmd.Stderr = os.Stderr
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("error starting %s: %w", parts[0], err)
	}

	conn := NewStdioConn(stdout, stdin, logger)
	conn.closer = func() error {
		_ = stdin.Close()
		return cmd.Wait()
	}
	return conn, nil
}

func (c *StdioConn) Call(ctx context.Context, request jsonrpc.Request) (*jsonrpc.Response, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil, ErrClosed
	}

	payload, err := json.Marshal(request)
	if err != nil {
		return nil, err
	}
	if _, err := c.out.Write(append(payload, '\n')); err != nil {
		return nil, fmt.Errorf("error writing request: %w", err)
	}
	if request.IsNotification() {
		return nil, nil
	}

	type readResult struct {
		response *jsonrpc.Response
		err      error
	}
	done := make(chan readResult, 1)
	go func() {
		response, err := c.readResponse(*request.ID)
		done <- readResult{response: response, err: err}
	}()

	select {
	case <-ctx.Done():
		c.closed = true
		if c.closer != nil {
			_ = c.closer()
		}
		return nil, ctx.Err()
	case r := <-done:
		return r.response, r.err
	}
}

func (c *StdioConn) readResponse(id jsonrpc.ID) (*jsonrpc.Response, error) {
	for {
		line, err := c.in.ReadBytes('\n')
		if len(strings.TrimSpace(string(line))) > 0 {
			var response jsonrpc.Response
			if uerr := json.Unmarshal(line, &response); uerr != nil {
				c.logger.Warn("malformed response", "error", uerr)
			} else if response.ID.Equal(id) {
				return &response, nil
			} else {
				c.logger.Warn("unexpected response id", "got", response.ID.String(), "want", id.String())
			}
		}
		if err != nil {
			if err == io.EOF {
				return nil, ErrClosed
			}
			return nil, err
		}
	}
}

func (c *StdioConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	if c.closer != nil {
		return c.closer()
	}
	return nil
}
