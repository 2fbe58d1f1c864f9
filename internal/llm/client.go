// Package llm provides the text-generation backends used by generation tasks,
// the LLM scorer and the doctor command.
package llm

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
)

var (
	ErrInvalidJSON   = errors.New("llm: invalid JSON from model")
	ErrEmptyResponse = errors.New("llm: empty response from model")
)

// Client generates text from a prompt.
type Client interface {
	Name() string
	Generate(ctx context.Context, prompt string) (string, error)
	GenerateJSON(ctx context.Context, prompt string) (json.RawMessage, error)
}

// ExtractJSON returns the outermost JSON object or array embedded in text.
// Models wrapped in a CLI often surround the payload with prose or fences.
func ExtractJSON(text string) (json.RawMessage, error) {
	text = strings.TrimSpace(text)
	if json.Valid([]byte(text)) {
		return json.RawMessage(text), nil
	}
	for _, pair := range [][2]string{{"{", "}"}, {"[", "]"}} {
		start := strings.Index(text, pair[0])
		end := strings.LastIndex(text, pair[1])
		if start < 0 || end <= start {
			continue
		}
		candidate := text[start : end+1]
		if json.Valid([]byte(candidate)) {
			return json.RawMessage(candidate), nil
		}
	}
	return nil, ErrInvalidJSON
}
