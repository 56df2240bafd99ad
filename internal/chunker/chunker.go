// Package chunker splits raw note text into overlapping, boundary-aware
// segments for embedding.
//
// Chunk is a pure function: same input, same output, no state. Boundaries
// are chosen so that no chunk starts or ends in the middle of a word, and
// consecutive chunks share an overlap region so that context near a split
// point is retrievable from either side.
package chunker

import "strings"

// DefaultChunkSize is the target chunk length in bytes.
const DefaultChunkSize = 1000

// DefaultOverlap is the number of bytes shared between consecutive chunks.
const DefaultOverlap = 200

// Option configures Chunk.
type Option func(*settings)

type settings struct {
	chunkSize int
	overlap   int
}

// WithChunkSize sets the target chunk length. Values <= 0 are ignored.
func WithChunkSize(size int) Option {
	return func(s *settings) {
		if size > 0 {
			s.chunkSize = size
		}
	}
}

// WithOverlap sets the overlap between consecutive chunks.
// Negative values are ignored.
func WithOverlap(overlap int) Option {
	return func(s *settings) {
		if overlap >= 0 {
			s.overlap = overlap
		}
	}
}

func buildSettings(opts []Option) settings {
	s := settings{chunkSize: DefaultChunkSize, overlap: DefaultOverlap}
	for _, opt := range opts {
		opt(&s)
	}
	// An overlap at or beyond the chunk size would stall the scan.
	if s.overlap >= s.chunkSize {
		s.overlap = s.chunkSize / 4
	}
	return s
}

// Chunk splits text into trimmed, non-empty segments of roughly chunkSize
// bytes with the configured overlap. Leading front matter is stripped first.
//
// Split points are searched backward from the window end in priority order:
// a sentence terminator ('.' followed by whitespace) at or after the window
// midpoint, then a newline at or after the midpoint, then the nearest
// preceding whitespace anywhere in the window. A window containing no
// whitespace at all extends forward to the next whitespace rather than
// cutting a word.
func Chunk(text string, opts ...Option) []string {
	s := buildSettings(opts)
	text = StripFrontMatter(text)

	if strings.TrimSpace(text) == "" {
		return nil
	}
	if len(text) <= s.chunkSize {
		return []string{strings.TrimSpace(text)}
	}

	var chunks []string
	start := 0
	for {
		if len(text)-start <= s.chunkSize {
			appendTrimmed(&chunks, text[start:])
			return chunks
		}

		end := start + s.chunkSize
		split := findSplit(text, start, end)
		if split < 0 {
			// No whitespace anywhere in the window: accept a longer
			// chunk up to the next whitespace beyond it.
			next := indexWhitespaceFrom(text, end)
			if next < 0 {
				appendTrimmed(&chunks, text[start:])
				return chunks
			}
			split = next
		}

		appendTrimmed(&chunks, text[start:split])

		next := snapStart(text, start, split, s.overlap)
		if next <= start {
			next = split
		}
		start = next
	}
}

// findSplit returns the split point for the window [start, end), or -1 when
// the window contains no usable whitespace boundary.
func findSplit(text string, start, end int) int {
	mid := start + (end-start)/2

	// (a) sentence terminator followed by whitespace, at or after the midpoint
	for i := end - 1; i >= mid; i-- {
		if text[i] == '.' && i+1 < len(text) && isWhitespace(text[i+1]) {
			return i + 1
		}
	}

	// (b) newline at or after the midpoint
	for i := end - 1; i >= mid; i-- {
		if text[i] == '\n' {
			return i
		}
	}

	// (c) nearest preceding whitespace, anywhere in the window
	for i := end - 1; i > start; i-- {
		if isWhitespace(text[i]) {
			return i
		}
	}
	return -1
}

// snapStart computes the next window start: split minus the overlap, snapped
// backward to a word boundary so no chunk begins mid-word. When backward
// snapping would cross the current window's start, it snaps forward instead.
func snapStart(text string, start, split, overlap int) int {
	next := split - overlap
	if next < start {
		next = start
	}

	for i := next; i >= start; i-- {
		if isWhitespace(text[i]) {
			return i + 1
		}
	}

	// No boundary between start and the naive overlap point; move forward
	// to the next word boundary after it.
	if i := indexWhitespaceFrom(text, next); i >= 0 {
		return i + 1
	}
	return split
}

func indexWhitespaceFrom(text string, from int) int {
	for i := from; i < len(text); i++ {
		if isWhitespace(text[i]) {
			return i
		}
	}
	return -1
}

func appendTrimmed(chunks *[]string, segment string) {
	if trimmed := strings.TrimSpace(segment); trimmed != "" {
		*chunks = append(*chunks, trimmed)
	}
}

func isWhitespace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r'
}
