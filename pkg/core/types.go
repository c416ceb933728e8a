package core

import "time"

// MemoryRecord represents a single memory belonging to a user namespace.
//
// Records are immutable once written; only backend-maintained access
// metadata changes afterward.
//
// Example:
//
//	record := &core.MemoryRecord{
//	    ID:      1234567890,
//	    UserID:  "user_001",
//	    Content: "User prefers dark roast coffee",
//	}
type MemoryRecord struct {
	// ID is the unique identifier of the record.
	ID int64 `json:"id"`

	// UserID identifies the user namespace that owns this record.
	UserID string `json:"user_id"`

	// Content is the text content of the record.
	Content string `json:"content"`

	// Embedding is the vector embedding for similarity search.
	// Omitted from JSON to reduce payload size.
	Embedding []float64 `json:"-"`

	// CreatedAt is when the record was written.
	CreatedAt time.Time `json:"created_at"`

	// AccessCount is the number of times the record was returned by a query.
	AccessCount int `json:"access_count"`

	// Score is the relevance score from query operations (0.0-1.0).
	// Higher scores indicate better matches.
	Score float64 `json:"score,omitempty"`
}

// DocumentChunk represents a page- or segment-sized unit of text extracted
// from an uploaded reference document.
//
// Chunks are produced in bulk at upload time and never mutated afterward.
type DocumentChunk struct {
	// DocumentID identifies the source document.
	DocumentID string `json:"document_id"`

	// UserID identifies the user namespace that owns this chunk.
	UserID string `json:"user_id"`

	// Sequence is the page or segment number within the document.
	Sequence int `json:"sequence"`

	// Content is the text content of the chunk.
	Content string `json:"content"`

	// Embedding is the vector embedding for similarity search.
	// Nil when embeddings were not requested at upload time.
	Embedding []float64 `json:"-"`

	// CreatedAt is when the chunk was stored.
	CreatedAt time.Time `json:"created_at"`
}
