package jsonrpc

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// ID represents a JSON-RPC ID. IDs created in Go are strings or numbers;
// decoded IDs may be any non-null JSON value.
//
// An ID keeps the exact bytes it was decoded from, so a response built from a
// request echoes the identifier verbatim: 7, 7.0 and "7" are three different IDs.
type ID struct {
	raw json.RawMessage
}

// NewID creates a JSON-RPC ID from a string or number
func NewID(id interface{}) (ID, error) {
	switch v := id.(type) {
	case ID:
		return v, nil
	case string:
		raw, err := json.Marshal(v)
		if err != nil {
			return ID{}, err
		}
		return ID{raw: raw}, nil
	case int:
		return ID{raw: json.RawMessage(strconv.Itoa(v))}, nil
	case int32, int64, uint, uint32, uint64, float32, float64, json.Number:
		raw, err := json.Marshal(v)
		if err != nil {
			return ID{}, err
		}
		return ID{raw: raw}, nil
	case nil:
		return ID{}, fmt.Errorf("id cannot be null")
	default:
		return ID{}, fmt.Errorf("id must be string or number, got %T", id)
	}
}

// IntID returns an ID for n. It never fails.
func IntID(n int) ID {
	return ID{raw: json.RawMessage(strconv.Itoa(n))}
}

// Raw returns the encoded identifier.
func (id ID) Raw() json.RawMessage {
	return id.raw
}

// Value returns the identifier as a string, int, or float64.
func (id ID) Value() interface{} {
	if id.IsNil() {
		return nil
	}
	if id.raw[0] == '"' {
		var s string
		if err := json.Unmarshal(id.raw, &s); err == nil {
			return s
		}
		return nil
	}
	if n, err := strconv.Atoi(string(id.raw)); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(string(id.raw), 64); err == nil {
		return f
	}
	return nil
}

func (id ID) IsNil() bool {
	return len(id.raw) == 0
}

// Equal reports whether both IDs have identical encodings.
func (id ID) Equal(other ID) bool {
	return bytes.Equal(id.raw, other.raw)
}

var _ fmt.GoStringer = ID{}

// GoString implements fmt.GoStringer
func (id ID) GoString() string {
	if id.IsNil() {
		return "nil"
	}
	return string(id.raw)
}

func (id ID) String() string {
	return id.GoString()
}

var _ json.Marshaler = ID{}

func (id ID) MarshalJSON() ([]byte, error) {
	if id.IsNil() {
		return []byte("null"), nil
	}
	return id.raw, nil
}

var _ json.Unmarshaler = &ID{}

// UnmarshalJSON implements json.Unmarshaler
func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return fmt.Errorf("id cannot be empty")
	}

	if bytes.Equal(data, []byte("null")) {
		return fmt.Errorf("id cannot be null")
	}
	if !json.Valid(data) {
		return fmt.Errorf("id is not valid JSON: %s", data)
	}

	id.raw = append(json.RawMessage(nil), data...)
	return nil
}
