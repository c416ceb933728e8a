// Package postgres provides the relational + vector implementation of the
// storage.Backend interface, backed by PostgreSQL with the pgvector
// extension.
//
// Embeddings live in pgvector columns and similarity search runs inside the
// database using the cosine distance operator. Records stored without
// embeddings are still searchable through the lexical fallback path.
package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/memchat/memchat-go/pkg/storage"
)

// Client is a PostgreSQL + pgvector backend.
type Client struct {
	db         *sql.DB
	dimensions int
}

// Config contains PostgreSQL configuration.
type Config struct {
	// ConnString is the PostgreSQL connection string (DATABASE_URL form).
	ConnString string

	// Dimensions is the embedding vector dimension for the pgvector columns.
	Dimensions int
}

// NewClient creates a new PostgreSQL backend.
func NewClient(cfg *Config) (*Client, error) {
	db, err := sql.Open("postgres", cfg.ConnString)
	if err != nil {
		return nil, fmt.Errorf("NewPostgresClient: %w", err)
	}

	// Test connection
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("NewPostgresClient: %w", err)
	}

	dimensions := cfg.Dimensions
	if dimensions == 0 {
		dimensions = 1536
	}

	client := &Client{
		db:         db,
		dimensions: dimensions,
	}

	// Initialize pgvector extension and table structure
	if err := client.initTables(context.Background()); err != nil {
		return nil, err
	}

	return client, nil
}

// initTables initializes the database tables.
func (c *Client) initTables(ctx context.Context) error {
	// Enable pgvector extension
	if _, err := c.db.ExecContext(ctx, "CREATE EXTENSION IF NOT EXISTS vector"); err != nil {
		return fmt.Errorf("initTables: create extension: %w", err)
	}

	recordsQuery := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS memories (
			id BIGINT PRIMARY KEY,
			user_id VARCHAR(255) NOT NULL,
			content TEXT NOT NULL,
			embedding vector(%d),
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			access_count INTEGER NOT NULL DEFAULT 0
		)
	`, c.dimensions)
	if _, err := c.db.ExecContext(ctx, recordsQuery); err != nil {
		return fmt.Errorf("initTables: create table: %w", err)
	}

	chunksQuery := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS document_chunks (
			document_id VARCHAR(64) NOT NULL,
			user_id VARCHAR(255) NOT NULL,
			sequence INTEGER NOT NULL,
			content TEXT NOT NULL,
			embedding vector(%d),
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (document_id, sequence)
		)
	`, c.dimensions)
	if _, err := c.db.ExecContext(ctx, chunksQuery); err != nil {
		return fmt.Errorf("initTables: create table: %w", err)
	}

	for _, indexQuery := range []string{
		"CREATE INDEX IF NOT EXISTS idx_memories_user ON memories(user_id)",
		"CREATE INDEX IF NOT EXISTS idx_chunks_user ON document_chunks(user_id)",
	} {
		if _, err := c.db.ExecContext(ctx, indexQuery); err != nil {
			return fmt.Errorf("initTables: create index: %w", err)
		}
	}

	return nil
}

// Name returns the backend provider name.
func (c *Client) Name() string {
	return "postgres"
}

// InsertRecord inserts a memory record.
func (c *Client) InsertRecord(ctx context.Context, record *storage.MemoryRecord) error {
	query := `
		INSERT INTO memories (id, user_id, content, embedding, created_at, access_count)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := c.db.ExecContext(ctx, query,
		record.ID,
		record.UserID,
		record.Content,
		vectorParam(record.Embedding),
		record.CreatedAt,
		record.AccessCount,
	)
	if err != nil {
		return fmt.Errorf("InsertRecord: %w", err)
	}

	return nil
}

// QueryRecords performs relevance search over the user's namespace.
//
// When a query embedding is provided, pgvector's cosine distance operator
// ranks records inside the database; ties are broken by recency. Without an
// embedding, the namespace is loaded and scored lexically in memory, which
// also covers records that were stored without embeddings.
func (c *Client) QueryRecords(ctx context.Context, embedding []float64, opts *storage.QueryOptions) ([]*storage.MemoryRecord, error) {
	if len(embedding) > 0 {
		return c.vectorQuery(ctx, embedding, opts)
	}
	return c.lexicalQuery(ctx, opts)
}

// vectorQuery ranks records by cosine similarity using pgvector.
func (c *Client) vectorQuery(ctx context.Context, embedding []float64, opts *storage.QueryOptions) ([]*storage.MemoryRecord, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = 10
	}

	// <=> is pgvector's cosine distance; similarity = 1 - distance.
	query := `
		SELECT id, user_id, content, created_at, access_count,
		       1 - (embedding <=> $1) AS score
		FROM memories
		WHERE user_id = $2 AND embedding IS NOT NULL
		  AND 1 - (embedding <=> $1) >= $3
		ORDER BY score DESC, created_at DESC, id DESC
		LIMIT $4
	`
	rows, err := c.db.QueryContext(ctx, query,
		vectorToString(embedding), opts.UserID, opts.MinScore, limit)
	if err != nil {
		return nil, fmt.Errorf("QueryRecords: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var records []*storage.MemoryRecord
	for rows.Next() {
		var record storage.MemoryRecord
		err := rows.Scan(
			&record.ID,
			&record.UserID,
			&record.Content,
			&record.CreatedAt,
			&record.AccessCount,
			&record.Score,
		)
		if err != nil {
			return nil, fmt.Errorf("QueryRecords: %w", err)
		}
		records = append(records, &record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("QueryRecords: %w", err)
	}

	if err := c.bumpAccessCounts(ctx, records); err != nil {
		return nil, err
	}

	return records, nil
}

// lexicalQuery loads the namespace and scores records by token overlap.
func (c *Client) lexicalQuery(ctx context.Context, opts *storage.QueryOptions) ([]*storage.MemoryRecord, error) {
	query := `
		SELECT id, user_id, content, created_at, access_count
		FROM memories
		WHERE user_id = $1
	`
	rows, err := c.db.QueryContext(ctx, query, opts.UserID)
	if err != nil {
		return nil, fmt.Errorf("QueryRecords: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var records []*storage.MemoryRecord
	for rows.Next() {
		var record storage.MemoryRecord
		err := rows.Scan(
			&record.ID,
			&record.UserID,
			&record.Content,
			&record.CreatedAt,
			&record.AccessCount,
		)
		if err != nil {
			return nil, fmt.Errorf("QueryRecords: %w", err)
		}
		record.Score = storage.LexicalScore(opts.Query, record.Content)
		records = append(records, &record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("QueryRecords: %w", err)
	}

	records = storage.RankRecords(records, opts.MinScore, opts.Limit)

	if err := c.bumpAccessCounts(ctx, records); err != nil {
		return nil, err
	}

	return records, nil
}

// bumpAccessCounts increments the access count of the returned records.
func (c *Client) bumpAccessCounts(ctx context.Context, records []*storage.MemoryRecord) error {
	if len(records) == 0 {
		return nil
	}

	ids := make([]int64, len(records))
	for i, rec := range records {
		ids[i] = rec.ID
		rec.AccessCount++
	}

	query := "UPDATE memories SET access_count = access_count + 1 WHERE id = ANY($1)"
	if _, err := c.db.ExecContext(ctx, query, int64Array(ids)); err != nil {
		return fmt.Errorf("QueryRecords: %w", err)
	}

	return nil
}

// ListRecords retrieves the user's records, newest first.
func (c *Client) ListRecords(ctx context.Context, opts *storage.ListOptions) ([]*storage.MemoryRecord, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = 100
	}

	query := `
		SELECT id, user_id, content, created_at, access_count
		FROM memories
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3
	`
	rows, err := c.db.QueryContext(ctx, query, opts.UserID, limit, opts.Offset)
	if err != nil {
		return nil, fmt.Errorf("ListRecords: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var records []*storage.MemoryRecord
	for rows.Next() {
		var record storage.MemoryRecord
		err := rows.Scan(
			&record.ID,
			&record.UserID,
			&record.Content,
			&record.CreatedAt,
			&record.AccessCount,
		)
		if err != nil {
			return nil, fmt.Errorf("ListRecords: %w", err)
		}
		records = append(records, &record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ListRecords: %w", err)
	}

	return records, nil
}

// InsertChunks bulk-inserts document chunks.
//
// Chunks are inserted one statement at a time; on failure the count of
// chunks already stored is returned together with the error.
func (c *Client) InsertChunks(ctx context.Context, chunks []*storage.DocumentChunk) (int, error) {
	query := `
		INSERT INTO document_chunks (document_id, user_id, sequence, content, embedding, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	stmt, err := c.db.PrepareContext(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("InsertChunks: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	stored := 0
	for _, chunk := range chunks {
		_, err := stmt.ExecContext(ctx,
			chunk.DocumentID,
			chunk.UserID,
			chunk.Sequence,
			chunk.Content,
			vectorParam(chunk.Embedding),
			chunk.CreatedAt,
		)
		if err != nil {
			return stored, fmt.Errorf("InsertChunks: %w", err)
		}
		stored++
	}

	return stored, nil
}

// Ping verifies the database connection.
func (c *Client) Ping(ctx context.Context) error {
	if err := c.db.PingContext(ctx); err != nil {
		return fmt.Errorf("Ping: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (c *Client) Close() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}
