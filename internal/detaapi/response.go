package detaapi

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrEmptyBody is returned when a successful response carries no payload.
var ErrEmptyBody = errors.New("detaapi: response body is empty")

// ErrorEnvelope is the body the Base API returns alongside 4xx/5xx statuses.
type ErrorEnvelope struct {
	Errors []string `json:"errors"`
}

// FirstError extracts the first server-reported message from an error body.
// It returns an empty string when the body is not an error envelope or the
// list is empty.
func FirstError(body []byte) string {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return ""
	}
	var envelope ErrorEnvelope
	if err := json.Unmarshal(trimmed, &envelope); err != nil {
		return ""
	}
	for _, msg := range envelope.Errors {
		if msg = strings.TrimSpace(msg); msg != "" {
			return msg
		}
	}
	return ""
}

// Decode unmarshals a success body into out. Empty bodies and a bare JSON
// null yield ErrEmptyBody so callers never proceed with zero values.
func Decode(body []byte, out any) error {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return ErrEmptyBody
	}
	if err := json.Unmarshal(trimmed, out); err != nil {
		return fmt.Errorf("detaapi: decode response: %w", err)
	}
	return nil
}

// EncodeError renders an error envelope, used by the sandbox server.
func EncodeError(messages ...string) []byte {
	if messages == nil {
		messages = []string{}
	}
	data, _ := json.Marshal(ErrorEnvelope{Errors: messages})
	return data
}
