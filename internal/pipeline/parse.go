package pipeline

import (
	"bytes"
	"encoding/json"
)

// parseWithFallback decodes raw as a single JSON value of type T. When raw
// is not valid JSON for T, fallback is returned with ok=false.
func parseWithFallback[T any](raw string, fallback T) (v T, ok bool) {
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return fallback, false
	}
	return v, true
}

// renderJSON serializes v for prompt substitution without HTML escaping.
// Map keys come out sorted, so equal inputs render identically.
func renderJSON(v any, indent bool) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if indent {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(v); err != nil {
		return "", err
	}
	return string(bytes.TrimRight(buf.Bytes(), "\n")), nil
}

// preview shortens raw provider output for log lines.
func preview(s string) string {
	const maxRunes = 200
	r := []rune(s)
	if len(r) <= maxRunes {
		return s
	}
	return string(r[:maxRunes]) + "..."
}
