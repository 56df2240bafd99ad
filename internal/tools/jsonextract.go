package tools

// ExtractJSONObject returns the first balanced top-level {...} block in
// text, honoring string literals and escapes. Generative models wrap JSON
// in prose and code fences more often than not; this pulls the object out
// regardless of wrapping. The second return is false when no complete
// object exists.
//
// This is a heuristic, kept as its own function so the fallback behavior of
// its callers stays independently testable.
func ExtractJSONObject(text string) (string, bool) {
	start := -1
	depth := 0
	inString := false
	escaped := false

	for i := 0; i < len(text); i++ {
		c := text[i]

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
			if depth > 0 {
				inString = true
			}
		case '{':
			if depth == 0 {
				start = i
			}
			depth++
		case '}':
			if depth > 0 {
				depth--
				if depth == 0 {
					return text[start : i+1], true
				}
			}
		}
	}
	return "", false
}
