package chunker

import "strings"

// StripFrontMatter removes a leading YAML front-matter block: a line of
// "---" at the very start of the document through the next "---" line.
// Text without front matter is returned unchanged, including documents
// whose opening delimiter is never closed.
func StripFrontMatter(text string) string {
	rest, ok := strings.CutPrefix(text, "---")
	if !ok {
		return text
	}
	// The opening delimiter must be a whole line.
	nl := strings.IndexByte(rest, '\n')
	if nl < 0 || strings.TrimSpace(rest[:nl]) != "" {
		return text
	}
	rest = rest[nl+1:]

	for off := 0; ; {
		i := strings.Index(rest[off:], "---")
		if i < 0 {
			return text
		}
		i += off
		lineStart := i == 0 || rest[i-1] == '\n'
		lineEnd := strings.IndexByte(rest[i:], '\n')
		if lineStart {
			var line string
			if lineEnd < 0 {
				line = rest[i:]
			} else {
				line = rest[i : i+lineEnd]
			}
			if strings.TrimSpace(line) == "---" {
				if lineEnd < 0 {
					return ""
				}
				return rest[i+lineEnd+1:]
			}
		}
		off = i + 3
	}
}
