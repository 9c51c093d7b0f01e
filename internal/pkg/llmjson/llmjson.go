// Package llmjson decodes JSON objects out of free-form model output.
package llmjson

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrNoObject means neither the raw text nor any embedded {...} span decoded.
var ErrNoObject = errors.New("no json object in model output")

// Decode tries the whole text first, then the widest span running from the
// first '{' to the last '}'. The caller decides what to substitute on failure.
func Decode(raw string, v any) error {
	text := strings.TrimSpace(raw)
	if text == "" {
		return ErrNoObject
	}
	if err := json.Unmarshal([]byte(text), v); err == nil {
		return nil
	}

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return ErrNoObject
	}
	if err := json.Unmarshal([]byte(text[start:end+1]), v); err != nil {
		return fmt.Errorf("%w: %v", ErrNoObject, err)
	}
	return nil
}
