package service

import (
	"encoding/json"

	"connectrpc.com/connect"
)

// Codec marshals plain Go message structs as JSON. It replaces connect's
// protobuf-backed "json" codec on every handler and client in this package.
type Codec struct{}

var _ connect.Codec = Codec{}

func (Codec) Name() string { return "json" }

func (Codec) Marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

func (Codec) Unmarshal(data []byte, v any) error {
	if len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, v)
}
