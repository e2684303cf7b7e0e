package llm

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/pavelanni/tutor/internal/model"
)

const (
	jsonFence = "```json"
	fence     = "```"
)

// StripFences returns the content of a markdown code block if raw contains
// one. A json-tagged fence takes precedence; the block ends at the last
// closing fence. Text without fences is returned trimmed.
func StripFences(raw string) string {
	text := strings.TrimSpace(raw)

	open, openLen := strings.Index(text, jsonFence), len(jsonFence)
	if open < 0 {
		open, openLen = strings.Index(text, fence), len(fence)
	}
	if open < 0 {
		return text
	}

	start := open + openLen
	end := strings.LastIndex(text, fence)
	if end < start {
		// Unterminated block: keep everything after the opening marker.
		end = len(text)
	}
	return strings.TrimSpace(text[start:end])
}

// ExtractJSON strips optional code fences from raw and decodes the result
// into v. Decode failures are reported as model.ErrMalformedGeneration.
func ExtractJSON(raw string, v any) error {
	body := StripFences(raw)
	if err := json.Unmarshal([]byte(body), v); err != nil {
		return fmt.Errorf("%w: %v (raw: %s)", model.ErrMalformedGeneration, err, truncate(raw, 500))
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
