package mcp

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/loopwork-ai/docagent/jsonrpc"
)

const maxLineSize = 1024 * 1024

// Transport handles newline-delimited JSON-RPC between a reader/writer pair
// and a handler.
type Transport struct {
	reader      *bufio.Reader
	writer      *json.Encoder
	bufOut      *bufio.Writer
	logger      *slog.Logger
	maxLineSize int
}

// NewStdioTransport creates a new stdio transport.
// Diagnostics about malformed input are written to logger.
func NewStdioTransport(in io.Reader, out io.Writer, logger *slog.Logger) *Transport {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	bufOut := bufio.NewWriter(out)
	return &Transport{
		reader:      bufio.NewReaderSize(in, 64*1024),
		writer:      json.NewEncoder(bufOut),
		bufOut:      bufOut,
		logger:      logger,
		maxLineSize: maxLineSize,
	}
}

// Run reads requests until the input is exhausted or ctx is done.
// Malformed, invalid and over-long lines are logged and skipped; they never
// produce a response.
func (t *Transport) Run(ctx context.Context, handler jsonrpc.Handler) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
			line, tooLong, err := t.readLine()
			if err != nil && !errors.Is(err, io.EOF) {
				return fmt.Errorf("read error: %w", err)
			}
			eof := err != nil

			switch {
			case tooLong:
				t.logger.Warn("malformed request", "error", "line exceeds maximum size", "limit", t.maxLineSize)
			case len(bytes.TrimSpace(line)) > 0:
				t.handleLine(ctx, handler, line)
			}

			if eof {
				return nil
			}
		}
	}
}

// readLine returns the next line without its terminator. A line longer than
// maxLineSize is consumed up to its newline and reported as tooLong.
func (t *Transport) readLine() (line []byte, tooLong bool, err error) {
	for {
		chunk, err := t.reader.ReadSlice('\n')
		if !tooLong {
			if len(line)+len(chunk) > t.maxLineSize+1 {
				tooLong = true
				line = nil
			} else {
				line = append(line, chunk...)
			}
		}
		if errors.Is(err, bufio.ErrBufferFull) {
			continue
		}
		return bytes.TrimRight(line, "\r\n"), tooLong, err
	}
}

func (t *Transport) handleLine(ctx context.Context, handler jsonrpc.Handler, line []byte) {
	var request jsonrpc.Request
	if err := json.Unmarshal(line, &request); err != nil {
		t.logger.Warn("malformed request", "error", err, "line", truncate(string(line), 200))
		return
	}

	if rpcErr := request.Validate(); rpcErr != nil {
		t.logger.Warn("invalid request", "error", rpcErr.Message, "id", idString(request.ID))
		return
	}

	response := handler.Handle(ctx, request)
	if response == nil {
		return
	}
	t.write(*response)
}

func (t *Transport) write(response jsonrpc.Response) {
	if err := t.writer.Encode(response); err != nil {
		t.logger.Error("error encoding response", "error", err)
	}
	if err := t.bufOut.Flush(); err != nil {
		t.logger.Error("error flushing response", "error", err)
	}
}

func idString(id *jsonrpc.ID) string {
	if id == nil {
		return "nil"
	}
	return id.String()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
