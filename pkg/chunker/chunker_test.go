package chunker_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/memchat/memchat-go/pkg/chunker"
)

func TestSplit_SinglePage(t *testing.T) {
	result := chunker.Split("Just one short paragraph.", 0)

	assert.Equal(t, 1, result.Pages)
	require.Len(t, result.Segments, 1)
	assert.Equal(t, "Just one short paragraph.", result.Segments[0])
}

func TestSplit_FormFeedPages(t *testing.T) {
	text := "page one text\fpage two text\fpage three text"

	result := chunker.Split(text, 0)

	assert.Equal(t, 3, result.Pages)
	require.Len(t, result.Segments, 3)
	assert.Equal(t, "page one text", result.Segments[0])
	assert.Equal(t, "page three text", result.Segments[2])
}

func TestSplit_EmptyPagesSkipped(t *testing.T) {
	result := chunker.Split("content\f\f  \fmore content", 0)

	assert.Equal(t, 2, result.Pages)
	assert.Len(t, result.Segments, 2)
}

func TestSplit_PacksParagraphs(t *testing.T) {
	text := "first paragraph\n\nsecond paragraph\n\nthird paragraph"

	result := chunker.Split(text, 100)

	// All three fit into one segment, joined by blank lines
	require.Len(t, result.Segments, 1)
	assert.Equal(t, "first paragraph\n\nsecond paragraph\n\nthird paragraph", result.Segments[0])
}

func TestSplit_StartsNewSegmentWhenFull(t *testing.T) {
	para := strings.Repeat("word ", 10) // 50 bytes
	text := strings.TrimSpace(para) + "\n\n" + strings.TrimSpace(para)

	result := chunker.Split(text, 60)

	assert.Len(t, result.Segments, 2)
}

func TestSplit_HardSplitsOversizedParagraph(t *testing.T) {
	paragraph := strings.TrimSpace(strings.Repeat("lorem ipsum dolor ", 100))

	result := chunker.Split(paragraph, 200)

	require.Greater(t, len(result.Segments), 1)
	for _, segment := range result.Segments {
		assert.LessOrEqual(t, len(segment), 200)
		assert.NotEmpty(t, segment)
	}

	// Breaks land at spaces, so no words get cut in half
	rejoined := strings.Join(result.Segments, " ")
	assert.Equal(t, paragraph, rejoined)
}

func TestSplit_EmptyInput(t *testing.T) {
	result := chunker.Split("", 0)

	assert.Zero(t, result.Pages)
	assert.Empty(t, result.Segments)
}

func TestSplit_ZeroMaxLenUsesDefault(t *testing.T) {
	text := strings.Repeat("a", chunker.DefaultSegmentSize/2)

	result := chunker.Split(text, 0)

	require.Len(t, result.Segments, 1)
	assert.Equal(t, text, result.Segments[0])
}
