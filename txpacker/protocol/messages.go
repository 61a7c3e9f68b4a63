package protocol

import (
	"encoding/json"
	"fmt"
)

// Request asks for a bundle by name.
type Request struct {
	Name string `json:"name"`
}

// ErrorMessage reports why a request failed.
type ErrorMessage struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error codes.
const (
	CodeNotFound   = "not_found"
	CodeBadRequest = "bad_request"
	CodeInternal   = "internal"
)

func (e ErrorMessage) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// CatalogEntry summarizes one served bundle.
type CatalogEntry struct {
	Name       string `json:"name"`
	PackUUID   string `json:"pack_uuid,omitempty"`
	Size       int64  `json:"size"`
	ChunkCount int    `json:"chunk_count"`
	Sealed     bool   `json:"sealed,omitempty"`
	Publisher  string `json:"publisher,omitempty"`
}

type Catalog struct {
	Entries []CatalogEntry `json:"entries"`
}

// NewFrame marshals v as the JSON payload of a frame.
func NewFrame(t MessageType, v any) (Frame, error) {
	if v == nil {
		return Frame{Type: t}, nil
	}
	payload, err := json.Marshal(v)
	if err != nil {
		return Frame{}, err
	}
	return Frame{Type: t, Payload: payload}, nil
}

// Decode unmarshals the frame payload into v after checking its type.
func (f Frame) Decode(want MessageType, v any) error {
	if f.Type != want {
		return fmt.Errorf("%w: got %s, want %s", ErrInvalidType, f.Type, want)
	}
	if err := json.Unmarshal(f.Payload, v); err != nil {
		return fmt.Errorf("protocol: decode %s: %w", f.Type, err)
	}
	return nil
}
