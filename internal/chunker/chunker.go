// Package chunker splits extracted document text into overlapping,
// bounded-length chunks suitable for embedding and retrieval.
package chunker

import (
	"strings"
	"unicode"

	"github.com/hyperjump/kotae/internal/models"
)

const (
	// DefaultSize is the default chunk window in characters.
	DefaultSize = 800
	// DefaultOverlap is the default number of characters shared between
	// consecutive chunks.
	DefaultOverlap = 150
)

// Chunker splits text into character windows of approximately Size with
// Overlap characters shared between consecutive windows. Window edges move
// to a word boundary when one is available within a small slack budget, so
// words are not cut mid-way. Split is a pure function of its inputs.
type Chunker struct {
	size    int
	overlap int
}

// New creates a chunker with the given window size and overlap (in characters).
// Non-positive size falls back to DefaultSize; overlap is clamped to [0, size).
func New(size, overlap int) *Chunker {
	if size <= 0 {
		size = DefaultSize
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= size {
		overlap = size - 1
	}
	return &Chunker{size: size, overlap: overlap}
}

// Split divides text into ordered chunks. Returns nil for empty or
// whitespace-only text (blank input is the caller's error to surface).
// For non-empty text the result is non-empty, chunks appear in document
// order, and their concatenation covers the full input.
func (c *Chunker) Split(text string) []models.Chunk {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	runes := []rune(text)
	// Word-boundary slack: window edges may move this far to avoid
	// splitting a word.
	slack := c.size / 4

	var chunks []models.Chunk
	start := 0
	index := 0
	for start < len(runes) {
		end := start + c.size
		if end >= len(runes) {
			end = len(runes)
		} else {
			end = boundaryBefore(runes, end, slack)
		}
		chunks = append(chunks, models.Chunk{
			Text:  string(runes[start:end]),
			Index: index,
		})
		index++
		if end >= len(runes) {
			break
		}
		start = nextStart(runes, start, end, c.overlap, slack)
	}
	return chunks
}

// boundaryBefore returns the end of the last word boundary at or before pos,
// searching back at most slack runes. When no boundary is found within the
// budget, pos is returned unchanged and the word is split.
func boundaryBefore(runes []rune, pos, slack int) int {
	for i := pos; i > pos-slack && i > 0; i-- {
		if unicode.IsSpace(runes[i-1]) {
			return i
		}
	}
	return pos
}

// nextStart returns where the next window begins: overlap runes before end,
// moved forward to the start of a word within the slack budget. The result
// is always after start and never past end, so coverage is preserved and
// the loop makes progress.
func nextStart(runes []rune, start, end, overlap, slack int) int {
	next := end - overlap
	if next <= start {
		return end
	}
	for moved := 0; next < end && moved < slack; moved++ {
		if unicode.IsSpace(runes[next-1]) {
			break
		}
		next++
	}
	return next
}
