package domain

import (
	"strings"
)

const (
	// MinSectionLength is the rune count below which paragraphs are merged with a neighbour.
	MinSectionLength = 80
	// MaxSectionLength is the rune count above which a paragraph is split at sentence boundaries.
	MaxSectionLength = 1000
	// SectionOverlap is how many trailing runes of a split section are repeated at the start of the next.
	SectionOverlap = 100
)

// SectionSplitter breaks document text into index-sized sections.
type SectionSplitter interface {
	Split(text string) []string
}

type paragraphSplitter struct {
	maxLength int
	overlap   int
}

// NewSectionSplitter returns the default paragraph-based splitter.
func NewSectionSplitter() SectionSplitter {
	return &paragraphSplitter{maxLength: MaxSectionLength, overlap: SectionOverlap}
}

// Split cuts text on blank lines, merges short paragraphs into their
// neighbours and splits long ones at sentence boundaries with overlap.
func (s *paragraphSplitter) Split(text string) []string {
	normalized := strings.ReplaceAll(text, "\r\n", "\n")
	normalized = strings.ReplaceAll(normalized, "\r", "\n")

	var paragraphs []string
	for _, part := range strings.Split(normalized, "\n\n") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			paragraphs = append(paragraphs, trimmed)
		}
	}
	if len(paragraphs) == 0 {
		return nil
	}

	merged := mergeShortParagraphs(paragraphs)
	merged = mergeAdjacentShortParagraphs(merged)
	return splitLongParagraphs(merged, s.maxLength, s.overlap)
}
