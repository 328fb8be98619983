package jsonrpc

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// Response represents a JSON-RPC response object.
// Exactly one of Result and Error is set.
type Response struct {
	Version string          `json:"jsonrpc"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *Error          `json:"error,omitempty"`
	ID      ID              `json:"id"`
}

// NewResponse creates a new Response object.
// If result cannot be encoded the response carries an internal error instead.
func NewResponse(id ID, result interface{}, err *Error) Response {
	resp := Response{
		Version: Version,
		ID:      id,
	}
	if err != nil {
		resp.Error = err
		return resp
	}

	data, merr := json.Marshal(result)
	if merr != nil {
		resp.Error = NewError(ErrInternal, merr.Error())
		return resp
	}
	resp.Result = data
	return resp
}

// NewErrorResponse creates a response carrying err.
func NewErrorResponse(id ID, err *Error) Response {
	return NewResponse(id, nil, err)
}

// Decode unmarshals the result into v, or returns the response error.
func (r Response) Decode(v interface{}) error {
	if r.Error != nil {
		return r.Error
	}
	if v == nil {
		return nil
	}
	return json.Unmarshal(r.Result, v)
}

var _ json.Marshaler = Response{}

// MarshalJSON writes jsonrpc, then result or error, then id.
func (r Response) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(`{"jsonrpc":`)
	version, err := json.Marshal(Version)
	if err != nil {
		return nil, err
	}
	buf.Write(version)

	if r.Error != nil {
		errData, err := json.Marshal(r.Error)
		if err != nil {
			return nil, err
		}
		buf.WriteString(`,"error":`)
		buf.Write(errData)
	} else {
		buf.WriteString(`,"result":`)
		if len(r.Result) == 0 {
			buf.WriteString("null")
		} else {
			var compact bytes.Buffer
			if err := json.Compact(&compact, r.Result); err != nil {
				return nil, fmt.Errorf("invalid result: %w", err)
			}
			buf.Write(compact.Bytes())
		}
	}

	idData, err := r.ID.MarshalJSON()
	if err != nil {
		return nil, err
	}
	buf.WriteString(`,"id":`)
	buf.Write(idData)
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

var _ json.Unmarshaler = &Response{}

// UnmarshalJSON decodes a response, rejecting envelopes that carry both or
// neither of result and error.
func (r *Response) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}

	var version string
	if raw, ok := fields["jsonrpc"]; ok {
		if err := json.Unmarshal(raw, &version); err != nil {
			return fmt.Errorf("jsonrpc: %w", err)
		}
	}
	if version != Version {
		return fmt.Errorf("unsupported jsonrpc version %q", version)
	}

	result, hasResult := fields["result"]
	rawErr, hasError := fields["error"]
	switch {
	case hasResult && hasError:
		return errors.New("response has both result and error")
	case !hasResult && !hasError:
		return errors.New("response has neither result nor error")
	}

	out := Response{Version: version}
	if hasError {
		var rpcErr Error
		if err := json.Unmarshal(rawErr, &rpcErr); err != nil {
			return fmt.Errorf("error: %w", err)
		}
		out.Error = &rpcErr
	} else {
		out.Result = append(json.RawMessage(nil), result...)
	}

	if rawID, ok := fields["id"]; ok && !bytes.Equal(bytes.TrimSpace(rawID), []byte("null")) {
		if err := out.ID.UnmarshalJSON(rawID); err != nil {
			return err
		}
	}

	*r = out
	return nil
}
