package util

import "strings"

// ExtractJSONObject locates the first top-level JSON object embedded in raw
// model output. Models frequently wrap structured answers in prose or
// markdown code fences; callers get the bare object text or "" when no
// balanced object is present.
func ExtractJSONObject(raw string) string {
	return extractBalanced(stripFences(raw), '{', '}')
}

// ExtractJSONArray locates the first top-level JSON array embedded in raw
// model output, tolerating prose and code fences around it.
func ExtractJSONArray(raw string) string {
	return extractBalanced(stripFences(raw), '[', ']')
}

// stripFences removes a surrounding markdown code fence (``` or ```json)
// when present, leaving the inner text untouched otherwise.
func stripFences(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	trimmed = strings.TrimPrefix(trimmed, "```")
	if idx := strings.Index(trimmed, "\n"); idx >= 0 {
		trimmed = trimmed[idx+1:] // drop the language tag line
	}
	if idx := strings.LastIndex(trimmed, "```"); idx >= 0 {
		trimmed = trimmed[:idx]
	}
	return strings.TrimSpace(trimmed)
}

// extractBalanced scans for the first balanced open..close run, respecting
// JSON string literals and escape sequences so braces inside strings do not
// terminate the scan early.
func extractBalanced(s string, open, close byte) string {
	start := strings.IndexByte(s, open)
	if start < 0 {
		return ""
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
		case open:
			depth++
		case close:
			depth--
			if depth == 0 {
				return s[start : i+1]
			}
		}
	}

	return ""
}
