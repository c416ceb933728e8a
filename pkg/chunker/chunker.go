// Package chunker splits extracted document text into page- or segment-sized
// chunks suitable for storage as distinct retrievable items.
//
// Text extraction itself (PDF parsing and the like) happens upstream; this
// package only operates on plain text.
package chunker

import "strings"

// DefaultSegmentSize is the target maximum chunk length in bytes.
const DefaultSegmentSize = 1200

// Result contains the outcome of splitting a document.
type Result struct {
	// Pages is the number of pages detected in the source text.
	Pages int

	// Segments holds the chunk contents in document order.
	Segments []string
}

// Split splits document text into chunks of at most maxLen bytes.
//
// Pages are delimited by form-feed characters (the convention used by text
// extractors for page breaks); text without form feeds counts as one page.
// Within a page, paragraphs are packed greedily into segments, and a single
// paragraph longer than maxLen is hard-split.
//
// A maxLen of 0 selects DefaultSegmentSize.
func Split(text string, maxLen int) *Result {
	if maxLen <= 0 {
		maxLen = DefaultSegmentSize
	}

	result := &Result{}
	for _, page := range strings.Split(text, "\f") {
		page = strings.TrimSpace(page)
		if page == "" {
			continue
		}
		result.Pages++
		result.Segments = append(result.Segments, splitPage(page, maxLen)...)
	}

	return result
}

// splitPage packs a page's paragraphs into segments of at most maxLen bytes.
func splitPage(page string, maxLen int) []string {
	var segments []string
	var current strings.Builder

	flush := func() {
		if current.Len() > 0 {
			segments = append(segments, current.String())
			current.Reset()
		}
	}

	for _, paragraph := range strings.Split(page, "\n\n") {
		paragraph = strings.TrimSpace(paragraph)
		if paragraph == "" {
			continue
		}

		if len(paragraph) > maxLen {
			flush()
			segments = append(segments, hardSplit(paragraph, maxLen)...)
			continue
		}

		if current.Len() > 0 && current.Len()+len(paragraph)+2 > maxLen {
			flush()
		}
		if current.Len() > 0 {
			current.WriteString("\n\n")
		}
		current.WriteString(paragraph)
	}
	flush()

	return segments
}

// hardSplit cuts an oversized paragraph into maxLen-sized pieces, preferring
// to break at a space near the boundary.
func hardSplit(paragraph string, maxLen int) []string {
	var pieces []string
	for len(paragraph) > maxLen {
		cut := maxLen
		if idx := strings.LastIndex(paragraph[:maxLen], " "); idx > maxLen/2 {
			cut = idx
		}
		pieces = append(pieces, strings.TrimSpace(paragraph[:cut]))
		paragraph = strings.TrimSpace(paragraph[cut:])
	}
	if paragraph != "" {
		pieces = append(pieces, paragraph)
	}
	return pieces
}
