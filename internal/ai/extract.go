// Package ai provides the generative-service client and defensive parsing
// of its free-form output.
package ai

import (
	"encoding/json"
	"log/slog"
	"strings"
)

// Shape tags the JSON value kind an extraction expects.
type Shape int

const (
	ShapeArray Shape = iota
	ShapeObject
)

func (s Shape) delimiters() (open, close byte) {
	if s == ShapeArray {
		return '[', ']'
	}
	return '{', '}'
}

// Extract locates a JSON value of the expected shape inside free-form model
// output and decodes it into T. It returns false on any failure and never
// returns an error: malformed model output is an expected condition.
//
// Strategy: if the trimmed text already starts with the expected opening
// delimiter, try a direct parse. Otherwise (or if that parse fails), take
// the span from the first opening delimiter to the last matching closing
// delimiter and try that. This tolerates output wrapped in prose or code
// fences at the cost of being best effort: prose containing balanced
// delimiters can select the wrong span.
func Extract[T any](text string, shape Shape) (T, bool) {
	var zero T

	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return zero, false
	}

	open, closing := shape.delimiters()

	if trimmed[0] == open {
		var out T
		if err := json.Unmarshal([]byte(trimmed), &out); err == nil {
			return out, true
		}
	}

	start := strings.IndexByte(trimmed, open)
	end := strings.LastIndexByte(trimmed, closing)
	if start == -1 || end <= start {
		return zero, false
	}

	var out T
	if err := json.Unmarshal([]byte(trimmed[start:end+1]), &out); err != nil {
		slog.Debug("JSON extraction failed",
			"error", err.Error(),
			"textPreview", truncate(trimmed, 100))
		return zero, false
	}
	return out, true
}

// truncate truncates a string to maxLen characters.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
