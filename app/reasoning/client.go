package reasoning

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrEmptyResponse = errors.New("reasoning model returned an empty response")
	ErrNotConfigured = errors.New("reasoning model client is not configured")
)

// Request is a single structured prompt.
type Request struct {
	System      string
	User        string
	Temperature float64
	MaxTokens   int
}

// Client sends a structured prompt to a reasoning model and returns its raw
// text answer.
type Client interface {
	Complete(ctx context.Context, req Request) (string, error)
	Name() string
}

// DecodeJSON unmarshals a model answer into v. Markdown code fences and any
// prose around the outermost JSON object are ignored.
func DecodeJSON(answer string, v any) error {
	payload := ExtractJSON(answer)
	if payload == "" {
		return fmt.Errorf("no JSON object in model response")
	}
	if err := json.Unmarshal([]byte(payload), v); err != nil {
		return fmt.Errorf("failed to decode model response: %w", err)
	}
	return nil
}

// ExtractJSON returns the outermost {...} span of answer, or "" if none.
func ExtractJSON(answer string) string {
	answer = strings.TrimSpace(answer)
	answer = strings.TrimPrefix(answer, "```json")
	answer = strings.TrimPrefix(answer, "```")
	answer = strings.TrimSuffix(answer, "```")

	start := strings.Index(answer, "{")
	end := strings.LastIndex(answer, "}")
	if start < 0 || end < start {
		return ""
	}
	return answer[start : end+1]
}
