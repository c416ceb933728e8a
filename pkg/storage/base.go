// Package storage provides interfaces and types for memory persistence backends.
//
// It defines the Backend interface that all persistence implementations must
// satisfy, along with the record and chunk types stored in a user namespace.
package storage

import (
	"context"
	"time"
)

// MemoryRecord represents a single memory stored in a backend.
//
// This type is defined in the storage package to avoid circular dependencies
// with the core package. It mirrors the core.MemoryRecord structure.
type MemoryRecord struct {
	// ID is the unique identifier of the record.
	ID int64

	// UserID identifies the user namespace that owns this record.
	UserID string

	// Content is the text content of the record.
	Content string

	// Embedding is the vector embedding for similarity search.
	// Nil when the record was stored without embeddings.
	Embedding []float64

	// CreatedAt is when the record was written.
	CreatedAt time.Time

	// AccessCount is the number of times the record was returned by a query.
	AccessCount int

	// Score is the relevance score assigned during query operations.
	Score float64
}

// DocumentChunk represents a page- or segment-sized unit of text extracted
// from an uploaded reference document.
//
// Chunks are produced in bulk at upload time and never mutated afterward.
type DocumentChunk struct {
	// DocumentID identifies the source document.
	DocumentID string

	// UserID identifies the user namespace that owns this chunk.
	UserID string

	// Sequence is the page or segment number within the document.
	Sequence int

	// Content is the text content of the chunk.
	Content string

	// Embedding is the vector embedding for similarity search.
	// Nil when the chunk was stored without embeddings.
	Embedding []float64

	// CreatedAt is when the chunk was stored.
	CreatedAt time.Time
}

// QueryOptions contains options for query operations.
type QueryOptions struct {
	// UserID scopes the query to a single user namespace. Required.
	UserID string

	// Query is the original query text. Backends use it for lexical
	// scoring when either side of the comparison has no embedding.
	Query string

	// Limit sets the maximum number of results to return.
	Limit int

	// MinScore sets the minimum relevance score for results.
	MinScore float64
}

// ListOptions contains options for listing records.
type ListOptions struct {
	// UserID scopes the listing to a single user namespace. Required.
	UserID string

	// Limit sets the maximum number of results to return.
	Limit int

	// Offset sets the number of results to skip (for pagination).
	Offset int
}

// Backend defines the interface for memory persistence backends.
//
// All implementations (SQLite, PostgreSQL, MySQL, in-memory) must satisfy
// this interface. Every operation is scoped to a user namespace through the
// UserID carried by the record, chunk, or options; no call may read or write
// across user IDs.
type Backend interface {
	// Name returns the backend provider name ("sqlite", "postgres", ...).
	Name() string

	// InsertRecord appends a memory record to its user namespace.
	// The namespace is created implicitly on first write.
	InsertRecord(ctx context.Context, record *MemoryRecord) error

	// QueryRecords returns records from the namespace ordered by relevance.
	//
	// Parameters:
	//   - ctx: Context for cancellation and timeout
	//   - embedding: Query embedding vector (nil for lexical-only search)
	//   - opts: Query options (UserID, Query, Limit, MinScore)
	//
	// Results are sorted by score (highest first); ties are broken by
	// recency (most recent first). An unknown user yields an empty slice.
	QueryRecords(ctx context.Context, embedding []float64, opts *QueryOptions) ([]*MemoryRecord, error)

	// ListRecords returns the namespace's records, newest first.
	// An unknown user yields an empty slice, not an error.
	ListRecords(ctx context.Context, opts *ListOptions) ([]*MemoryRecord, error)

	// InsertChunks bulk-inserts document chunks into their namespace.
	//
	// All-or-nothing is NOT guaranteed: the backend may fail mid-batch.
	// The returned count is the authoritative number of chunks stored.
	InsertChunks(ctx context.Context, chunks []*DocumentChunk) (int, error)

	// Ping verifies backend connectivity.
	Ping(ctx context.Context) error

	// Close closes the backend and releases resources.
	Close() error
}
