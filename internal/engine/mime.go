package engine

import (
	"encoding/json"
	"strings"
)

// SniffMIME applies the best-effort MIME heuristics from C8 to a returned
// chunk: JSON/HTML/XML/CSV/YAML detection in that priority order, falling
// back to text/plain.
func SniffMIME(data []byte) string {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "" {
		return "text/plain"
	}

	if (strings.HasPrefix(trimmed, "{") || strings.HasPrefix(trimmed, "[")) && json.Valid([]byte(trimmed)) {
		return "application/json"
	}

	if strings.HasPrefix(trimmed, "<") {
		lower := strings.ToLower(trimmed)
		if strings.HasPrefix(lower, "<!doctype html") || strings.HasPrefix(lower, "<html") {
			return "text/html"
		}
		if strings.Contains(trimmed, "</") {
			return "application/xml"
		}
	}

	firstLine := trimmed
	if idx := strings.IndexByte(trimmed, '\n'); idx >= 0 {
		firstLine = trimmed[:idx]
	}

	if countCommaFields(firstLine) >= 3 {
		return "text/csv"
	}

	if looksLikeYAML(trimmed) {
		return "application/yaml"
	}

	return "text/plain"
}

func countCommaFields(line string) int {
	return strings.Count(line, ",") + 1
}

// looksLikeYAML checks whether any line starts with "-" or "word:" and no
// line contains a semicolon (a cheap signal that it's not, e.g., a CSS or
// shell snippet).
func looksLikeYAML(s string) bool {
	if strings.Contains(s, ";") {
		return false
	}

	for _, line := range strings.Split(s, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, "-") {
			return true
		}

		if idx := strings.IndexByte(line, ':'); idx > 0 {
			key := line[:idx]
			if isBareWord(key) {
				return true
			}
		}
	}

	return false
}

func isBareWord(s string) bool {
	if s == "" {
		return false
	}

	for _, r := range s {
		if !(r == '_' || r == '-' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')) {
			return false
		}
	}

	return true
}

// CountLines returns the number of LF-delimited segments in data; the
// trailing segment counts even without a terminating newline. Empty input
// yields 0.
func CountLines(data []byte) int {
	if len(data) == 0 {
		return 0
	}

	return strings.Count(string(data), "\n") + 1
}
