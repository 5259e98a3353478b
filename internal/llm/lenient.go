package llm

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ExtractJSONObject recovers a JSON object from a possibly noisy model
// response: prose around the payload and fenced code blocks are tolerated.
// Recovery order: a ```json fence, any ``` fence, then the outermost braces.
// The candidate substring must still parse strictly.
func ExtractJSONObject(raw string) ([]byte, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return nil, fmt.Errorf("empty response")
	}

	if idx := strings.Index(s, "```json"); idx >= 0 {
		s = fenceInterior(s, idx+len("```json"))
	} else if idx := strings.Index(s, "```"); idx >= 0 {
		s = fenceInterior(s, idx+len("```"))
	}

	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end <= start {
		return nil, fmt.Errorf("no JSON object found in response")
	}
	candidate := s[start : end+1]

	var probe map[string]any
	if err := json.Unmarshal([]byte(candidate), &probe); err != nil {
		return nil, fmt.Errorf("parse recovered JSON: %w", err)
	}
	return []byte(candidate), nil
}

func fenceInterior(s string, from int) string {
	rest := s[from:]
	if end := strings.Index(rest, "```"); end >= 0 {
		rest = rest[:end]
	}
	return strings.TrimSpace(rest)
}
