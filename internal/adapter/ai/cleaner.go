// Package ai adapts the chat-completion provider into the typed analysis
// operations the pipeline needs: CV parsing and compatibility scoring.
package ai

import (
	"encoding/json"
	"regexp"
	"strings"
)

var trailingCommaRe = regexp.MustCompile(`,(\s*[}\]])`)

// CleanJSONResponse strips markdown fences and surrounding prose from a model
// response and returns the JSON object it carries. Models routinely wrap
// strict-JSON output in ```json blocks or prepend commentary.
func CleanJSONResponse(response string) string {
	response = strings.TrimSpace(response)
	response = strings.TrimPrefix(response, "```json")
	response = strings.TrimPrefix(response, "```")
	response = strings.TrimSuffix(response, "```")
	response = strings.TrimSpace(response)

	response = extractJSONObject(response)

	if json.Valid([]byte(response)) {
		return response
	}
	// Last resort: trailing commas are the most common decode breaker.
	return trailingCommaRe.ReplaceAllString(response, "$1")
}

// extractJSONObject returns the first balanced {...} object in s, or s
// unchanged when none is found.
func extractJSONObject(s string) string {
	start := strings.Index(s, "{")
	if start == -1 {
		return s
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1]
			}
		}
	}
	return s
}
