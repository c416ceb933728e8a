// Package memstore provides the ephemeral in-memory implementation of the
// storage.Backend interface.
//
// It is the fallback backend selected when no storage path or connection
// string is configured. Nothing survives a process restart and no durability
// guarantee is offered; it exists so the service can run on platforms with
// ephemeral filesystems and for tests.
package memstore

import (
	"context"
	"sync"

	"github.com/memchat/memchat-go/pkg/storage"
)

// Client implements storage.Backend with per-user in-memory slices.
type Client struct {
	// mu protects the namespace maps.
	mu sync.RWMutex

	// records holds memory records keyed by user ID.
	records map[string][]*storage.MemoryRecord

	// chunks holds document chunks keyed by user ID.
	chunks map[string][]*storage.DocumentChunk
}

// NewClient creates a new in-memory backend.
func NewClient() *Client {
	return &Client{
		records: make(map[string][]*storage.MemoryRecord),
		chunks:  make(map[string][]*storage.DocumentChunk),
	}
}

// Name returns the backend provider name.
func (c *Client) Name() string {
	return "memory"
}

// InsertRecord appends a record to its user namespace.
// The namespace is created implicitly on first write.
func (c *Client) InsertRecord(ctx context.Context, record *storage.MemoryRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	stored := *record
	c.records[record.UserID] = append(c.records[record.UserID], &stored)
	return nil
}

// QueryRecords scores the namespace's records against the query and returns
// the top matches, ties broken by recency.
func (c *Client) QueryRecords(ctx context.Context, embedding []float64, opts *storage.QueryOptions) ([]*storage.MemoryRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	var scored []*storage.MemoryRecord
	for _, rec := range c.records[opts.UserID] {
		copied := *rec
		copied.Score = storage.ScoreRecord(&copied, embedding, opts.Query)
		scored = append(scored, &copied)
	}

	results := storage.RankRecords(scored, opts.MinScore, opts.Limit)

	// Bump access counts on the stored records for the returned matches.
	returned := make(map[int64]struct{}, len(results))
	for _, rec := range results {
		returned[rec.ID] = struct{}{}
	}
	for _, rec := range c.records[opts.UserID] {
		if _, ok := returned[rec.ID]; ok {
			rec.AccessCount++
		}
	}
	for _, rec := range results {
		rec.AccessCount++
	}

	return results, nil
}

// ListRecords returns the namespace's records, newest first.
func (c *Client) ListRecords(ctx context.Context, opts *storage.ListOptions) ([]*storage.MemoryRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	stored := c.records[opts.UserID]
	copies := make([]*storage.MemoryRecord, 0, len(stored))
	for _, rec := range stored {
		copied := *rec
		copied.Score = 0
		copies = append(copies, &copied)
	}

	// RankRecords with uniform scores orders purely by recency.
	results := storage.RankRecords(copies, 0, 0)

	if opts.Offset > 0 {
		if opts.Offset >= len(results) {
			return nil, nil
		}
		results = results[opts.Offset:]
	}
	if opts.Limit > 0 && len(results) > opts.Limit {
		results = results[:opts.Limit]
	}

	return results, nil
}

// InsertChunks appends document chunks to their user namespace.
func (c *Client) InsertChunks(ctx context.Context, chunks []*storage.DocumentChunk) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	for _, chunk := range chunks {
		stored := *chunk
		c.chunks[chunk.UserID] = append(c.chunks[chunk.UserID], &stored)
	}

	return len(chunks), nil
}

// Ping always succeeds for the in-memory backend.
func (c *Client) Ping(ctx context.Context) error {
	return ctx.Err()
}

// Close releases the stored namespaces.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.records = make(map[string][]*storage.MemoryRecord)
	c.chunks = make(map[string][]*storage.DocumentChunk)
	return nil
}
