package utils

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// ParseModelJSON extracts and parses JSON from generative model output,
// which is not schema-guaranteed. Handled shapes:
// - pure JSON
// - JSON wrapped in markdown code fences (```json ... ```)
// - JSON embedded in surrounding prose
// - JSON with trailing commas, unquoted keys or control characters
func ParseModelJSON(input string, target interface{}) error {
	if input == "" {
		return fmt.Errorf("empty input")
	}

	// Direct parse first, the common case
	if err := json.Unmarshal([]byte(input), target); err == nil {
		return nil
	}

	if extracted := extractFromFence(input); extracted != "" {
		if err := json.Unmarshal([]byte(extracted), target); err == nil {
			return nil
		}
	}

	if extracted := extractEmbeddedJSON(input); extracted != "" {
		if err := json.Unmarshal([]byte(extracted), target); err == nil {
			return nil
		}
		// The embedded fragment may itself carry fixable defects
		if err := json.Unmarshal([]byte(repairJSON(extracted)), target); err == nil {
			return nil
		}
	}

	if err := json.Unmarshal([]byte(repairJSON(input)), target); err == nil {
		return nil
	}

	return fmt.Errorf("no parseable JSON in model output: %s", Truncate(input, 100))
}

var (
	fencedJSONPattern = regexp.MustCompile("(?s)```json\\s*(.+?)\\s*```")
	fencedAnyPattern  = regexp.MustCompile("(?s)```\\s*(.+?)\\s*```")
)

// extractFromFence pulls the body out of a markdown code fence
func extractFromFence(input string) string {
	if m := fencedJSONPattern.FindStringSubmatch(input); len(m) > 1 {
		return strings.TrimSpace(m[1])
	}
	if m := fencedAnyPattern.FindStringSubmatch(input); len(m) > 1 {
		body := strings.TrimSpace(m[1])
		if strings.HasPrefix(body, "{") || strings.HasPrefix(body, "[") {
			return body
		}
	}
	return ""
}

// extractEmbeddedJSON finds the first balanced JSON object or array
// inside surrounding prose.
func extractEmbeddedJSON(input string) string {
	if start := strings.Index(input, "{"); start >= 0 {
		if body := balancedSlice(input[start:], '{', '}'); body != "" {
			return body
		}
	}
	if start := strings.Index(input, "["); start >= 0 {
		if body := balancedSlice(input[start:], '[', ']'); body != "" {
			return body
		}
	}
	return ""
}

// balancedSlice returns the prefix of input spanning one balanced
// open/close pair, tracking string literals and escapes.
func balancedSlice(input string, open, close rune) string {
	depth := 0
	inString := false
	escape := false
	start := 0

	for i, ch := range input {
		if escape {
			escape = false
			continue
		}
		if ch == '\\' {
			escape = true
			continue
		}
		if ch == '"' {
			inString = !inString
			continue
		}
		if inString {
			continue
		}

		if ch == open {
			if depth == 0 {
				start = i
			}
			depth++
		} else if ch == close {
			depth--
			if depth == 0 {
				return input[start : i+1]
			}
		}
	}
	return ""
}

var (
	trailingCommaPattern = regexp.MustCompile(`,\s*([}\]])`)
	unquotedKeyPattern   = regexp.MustCompile(`([{,]\s*)(\w+)(\s*:)`)
	controlCharPattern   = regexp.MustCompile(`[\x00-\x08\x0B\x0C\x0E-\x1F]`)
)

// repairJSON fixes the defects generative models most often produce:
// trailing commas, unquoted object keys, a BOM and stray control
// characters.
func repairJSON(input string) string {
	s := strings.TrimSpace(input)
	s = strings.TrimPrefix(s, "\uFEFF")
	s = trailingCommaPattern.ReplaceAllString(s, "$1")
	s = unquotedKeyPattern.ReplaceAllString(s, `$1"$2"$3`)
	s = controlCharPattern.ReplaceAllString(s, "")
	return s
}

// Truncate shortens a string for log and error messages
func Truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
