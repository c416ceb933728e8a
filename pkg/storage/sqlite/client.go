// Package sqlite provides the local single-file implementation of the
// storage.Backend interface.
//
// SQLite is the durable default for single-host deployments. Vectors are
// stored as JSON strings in TEXT fields and similarity is calculated in
// memory after loading the namespace's records. The database is opened in
// WAL mode with synchronous=FULL so every committed write reaches disk.
//
// Concurrent writers to the same database file (e.g. two processes sharing a
// mounted volume) are arbitrated by SQLite's own file locking; the busy
// timeout makes a second writer wait rather than fail immediately.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/mattn/go-sqlite3"

	"github.com/memchat/memchat-go/pkg/storage"
)

// Client implements storage.Backend using a single SQLite database file.
type Client struct {
	// db is the SQLite database connection.
	db *sql.DB

	// path is the database file path.
	path string
}

// Config contains configuration for creating a SQLite backend.
type Config struct {
	// DBPath is the path to the SQLite database file.
	DBPath string
}

// NewClient creates a new SQLite backend.
//
// Parameters:
//   - cfg: Configuration containing the database file path
//
// Returns:
//   - *Client: The SQLite backend instance
//   - error: Error if database connection or table creation fails
func NewClient(cfg *Config) (*Client, error) {
	// Create parent directory if it doesn't exist
	dbDir := filepath.Dir(cfg.DBPath)
	if dbDir != "" && dbDir != "." {
		if err := os.MkdirAll(dbDir, 0755); err != nil {
			return nil, fmt.Errorf("NewSQLiteClient: failed to create directory: %w", err)
		}
	}

	dsn := cfg.DBPath + "?_foreign_keys=1&_journal_mode=WAL&_synchronous=FULL&_busy_timeout=5000"
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("NewSQLiteClient: %w", err)
	}

	// Test connection
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("NewSQLiteClient: %w", err)
	}

	client := &Client{
		db:   db,
		path: cfg.DBPath,
	}

	// Initialize table structure
	if err := client.initTables(context.Background()); err != nil {
		return nil, err
	}

	return client, nil
}

// initTables initializes the database table structure.
//
// SQLite stores vectors as JSON strings in TEXT fields.
func (c *Client) initTables(ctx context.Context) error {
	recordsQuery := `
		CREATE TABLE IF NOT EXISTS memories (
			id INTEGER PRIMARY KEY,
			user_id TEXT NOT NULL,
			content TEXT NOT NULL,
			embedding TEXT,
			created_at DATETIME NOT NULL,
			access_count INTEGER NOT NULL DEFAULT 0
		)
	`
	if _, err := c.db.ExecContext(ctx, recordsQuery); err != nil {
		return fmt.Errorf("initTables: %w", err)
	}

	chunksQuery := `
		CREATE TABLE IF NOT EXISTS document_chunks (
			document_id TEXT NOT NULL,
			user_id TEXT NOT NULL,
			sequence INTEGER NOT NULL,
			content TEXT NOT NULL,
			embedding TEXT,
			created_at DATETIME NOT NULL,
			PRIMARY KEY (document_id, sequence)
		)
	`
	if _, err := c.db.ExecContext(ctx, chunksQuery); err != nil {
		return fmt.Errorf("initTables: %w", err)
	}

	for _, indexQuery := range []string{
		"CREATE INDEX IF NOT EXISTS idx_memories_user ON memories(user_id)",
		"CREATE INDEX IF NOT EXISTS idx_chunks_user ON document_chunks(user_id)",
	} {
		if _, err := c.db.ExecContext(ctx, indexQuery); err != nil {
			return fmt.Errorf("initTables: %w", err)
		}
	}

	return nil
}

// Name returns the backend provider name.
func (c *Client) Name() string {
	return "sqlite"
}

// InsertRecord inserts a memory record into the SQLite database.
func (c *Client) InsertRecord(ctx context.Context, record *storage.MemoryRecord) error {
	embeddingJSON, err := marshalEmbedding(record.Embedding)
	if err != nil {
		return fmt.Errorf("InsertRecord: %w", err)
	}

	query := `
		INSERT INTO memories (id, user_id, content, embedding, created_at, access_count)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	_, err = c.db.ExecContext(ctx, query,
		record.ID,
		record.UserID,
		record.Content,
		embeddingJSON,
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
// SQLite has no native vector operations, so all namespace records are
// loaded and scored in memory: cosine similarity when both the query and the
// record carry embeddings, lexical token overlap otherwise.
func (c *Client) QueryRecords(ctx context.Context, embedding []float64, opts *storage.QueryOptions) ([]*storage.MemoryRecord, error) {
	query := `
		SELECT id, user_id, content, embedding, created_at, access_count
		FROM memories
		WHERE user_id = ?
		ORDER BY id
	`
	rows, err := c.db.QueryContext(ctx, query, opts.UserID)
	if err != nil {
		return nil, fmt.Errorf("QueryRecords: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var records []*storage.MemoryRecord
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("QueryRecords: %w", err)
		}
		record.Score = storage.ScoreRecord(record, embedding, opts.Query)
		records = append(records, record)
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

	placeholders := make([]string, len(records))
	args := make([]interface{}, len(records))
	for i, rec := range records {
		placeholders[i] = "?"
		args[i] = rec.ID
		rec.AccessCount++
	}

	query := fmt.Sprintf(
		"UPDATE memories SET access_count = access_count + 1 WHERE id IN (%s)",
		strings.Join(placeholders, ", "),
	)
	if _, err := c.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("QueryRecords: %w", err)
	}

	return nil
}

// ListRecords retrieves the user's records, newest first.
func (c *Client) ListRecords(ctx context.Context, opts *storage.ListOptions) ([]*storage.MemoryRecord, error) {
	query := `
		SELECT id, user_id, content, embedding, created_at, access_count
		FROM memories
		WHERE user_id = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ? OFFSET ?
	`
	limit := opts.Limit
	if limit <= 0 {
		limit = -1 // SQLite: no limit
	}

	rows, err := c.db.QueryContext(ctx, query, opts.UserID, limit, opts.Offset)
	if err != nil {
		return nil, fmt.Errorf("ListRecords: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var records []*storage.MemoryRecord
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("ListRecords: %w", err)
		}
		records = append(records, record)
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
		VALUES (?, ?, ?, ?, ?, ?)
	`
	stmt, err := c.db.PrepareContext(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("InsertChunks: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	stored := 0
	for _, chunk := range chunks {
		embeddingJSON, err := marshalEmbedding(chunk.Embedding)
		if err != nil {
			return stored, fmt.Errorf("InsertChunks: %w", err)
		}

		_, err = stmt.ExecContext(ctx,
			chunk.DocumentID,
			chunk.UserID,
			chunk.Sequence,
			chunk.Content,
			embeddingJSON,
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

// marshalEmbedding serializes an embedding as a JSON string, or NULL when nil.
func marshalEmbedding(embedding []float64) (sql.NullString, error) {
	if embedding == nil {
		return sql.NullString{}, nil
	}
	data, err := json.Marshal(embedding)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(data), Valid: true}, nil
}

// scanRecord scans a memory record from a database row.
func scanRecord(rows *sql.Rows) (*storage.MemoryRecord, error) {
	var record storage.MemoryRecord
	var embeddingStr sql.NullString

	err := rows.Scan(
		&record.ID,
		&record.UserID,
		&record.Content,
		&embeddingStr,
		&record.CreatedAt,
		&record.AccessCount,
	)
	if err != nil {
		return nil, err
	}

	if embeddingStr.Valid {
		if err := json.Unmarshal([]byte(embeddingStr.String), &record.Embedding); err != nil {
			return nil, fmt.Errorf("parse embedding: %w", err)
		}
	}

	return &record, nil
}
