package jsonrpc

import (
	"bytes"
	"encoding/json"
)

// Version is the only protocol version this package speaks.
const Version = "2.0"

// Request represents a JSON-RPC request object.
// A request without an ID is a notification and is never answered.
type Request struct {
	Version string          `json:"jsonrpc"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
	ID      *ID             `json:"id,omitempty"`
}

// NewRequest creates a new Request object
func NewRequest(method string, params json.RawMessage, id ID) Request {
	return Request{
		Version: Version,
		Method:  method,
		Params:  params,
		ID:      &id,
	}
}

// NewNotification creates a request that expects no response.
func NewNotification(method string, params json.RawMessage) Request {
	return Request{
		Version: Version,
		Method:  method,
		Params:  params,
	}
}

// IsNotification reports whether the request carries no ID.
func (r Request) IsNotification() bool {
	return r.ID == nil || r.ID.IsNil()
}

// Validate checks the request envelope.
func (r Request) Validate() *Error {
	if r.Version != Version {
		return NewErrorf(ErrInvalidRequest, "Invalid Request: jsonrpc must be %q", Version)
	}
	if r.Method == "" {
		return NewErrorf(ErrInvalidRequest, "Invalid Request: method is required")
	}
	params := bytes.TrimSpace(r.Params)
	if len(params) > 0 && params[0] != '{' && !bytes.Equal(params, []byte("null")) {
		return NewErrorf(ErrInvalidRequest, "Invalid Request: params must be an object")
	}
	return nil
}

// MarshalParams encodes v for use as request params.
func MarshalParams(v interface{}) (json.RawMessage, error) {
	if v == nil {
		return nil, nil
	}
	return json.Marshal(v)
}
