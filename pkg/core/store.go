package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"

	"github.com/memchat/memchat-go/pkg/embedder"
	openaiEmbedder "github.com/memchat/memchat-go/pkg/embedder/openai"
	"github.com/memchat/memchat-go/pkg/storage"
	"github.com/memchat/memchat-go/pkg/storage/memstore"
	mysqlStore "github.com/memchat/memchat-go/pkg/storage/mysql"
	postgresStore "github.com/memchat/memchat-go/pkg/storage/postgres"
	sqliteStore "github.com/memchat/memchat-go/pkg/storage/sqlite"
)

// DefaultUserID is the namespace used when a request carries no user id.
const DefaultUserID = "default_user"

// Store is the memory store adapter.
//
// It resolves user identifiers to isolated, durable memory namespaces over
// exactly one persistence backend, selected at construction from the
// configuration. The store is safe for concurrent use; writes from different
// users never conflict, and concurrent writes to the same user are governed
// by the backend's native concurrency control.
//
// Example usage:
//
//	config, _ := core.LoadConfigFromEnv()
//	store, _ := core.NewStore(config)
//	defer store.Close()
//
//	ns := store.Namespace("user_001")
//	record, _ := ns.AddMemory(ctx, "User prefers dark roast coffee")
type Store struct {
	// config contains the adapter configuration.
	config *Config

	// backend is the persistence backend for all namespaces.
	backend storage.Backend

	// embedder generates vectors for records and chunks.
	// Nil when embeddings are disabled; search then scores lexically.
	embedder embedder.Provider

	// node generates unique record IDs.
	node *snowflake.Node
}

// StoreOption configures optional Store dependencies.
//
// Options exist so tests can inject a backend or embedder without going
// through environment-driven resolution.
type StoreOption func(*storeOptions)

type storeOptions struct {
	backend     storage.Backend
	embedder    embedder.Provider
	embedderSet bool
}

// WithBackend injects an already-constructed backend, bypassing ResolveBackend.
func WithBackend(backend storage.Backend) StoreOption {
	return func(opts *storeOptions) {
		opts.backend = backend
	}
}

// WithEmbedder injects an embedding provider. Passing nil disables
// embeddings regardless of configuration.
func WithEmbedder(provider embedder.Provider) StoreOption {
	return func(opts *storeOptions) {
		opts.embedder = provider
		opts.embedderSet = true
	}
}

// NewStore creates a new memory store adapter.
//
// The configuration is validated first: a selected backend missing its
// mandatory prerequisite fails here, at startup, never at first request.
//
// Parameters:
//   - cfg: Configuration containing store, LLM, and embedding settings
//   - opts: Optional dependency overrides (used by tests)
//
// Returns a new Store instance, or an error if initialization fails.
func NewStore(cfg *Config, opts ...StoreOption) (*Store, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	options := &storeOptions{}
	for _, opt := range opts {
		opt(options)
	}

	backend := options.backend
	if backend == nil {
		var err error
		backend, err = ResolveBackend(&cfg.Store)
		if err != nil {
			return nil, err
		}
	}

	provider := options.embedder
	if !options.embedderSet && cfg.Embedder.Enabled {
		var err error
		provider, err = openaiEmbedder.NewClient(&openaiEmbedder.Config{
			APIKey:     cfg.Embedder.APIKey,
			Model:      cfg.Embedder.Model,
			BaseURL:    cfg.Embedder.BaseURL,
			Dimensions: cfg.Embedder.Dimensions,
		})
		if err != nil {
			return nil, NewStoreError("NewStore", err)
		}
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		return nil, NewStoreError("NewStore", err)
	}

	return &Store{
		config:   cfg,
		backend:  backend,
		embedder: provider,
		node:     node,
	}, nil
}

// ResolveBackend selects and constructs exactly one persistence backend
// from the configuration.
//
// Selection is deliberate and visible: an unreachable backend is reported
// as ErrBackendUnavailable, never silently replaced by the ephemeral
// fallback, since changing durability guarantees behind the caller's back
// is worse than failing.
func ResolveBackend(cfg *StoreConfig) (storage.Backend, error) {
	switch cfg.Provider {
	case "sqlite":
		client, err := sqliteStore.NewClient(&sqliteStore.Config{DBPath: cfg.Path})
		if err != nil {
			return nil, NewStoreError("ResolveBackend", fmt.Errorf("%w: %v", ErrBackendUnavailable, err))
		}
		return client, nil
	case "postgres":
		client, err := postgresStore.NewClient(&postgresStore.Config{ConnString: cfg.ConnString})
		if err != nil {
			return nil, NewStoreError("ResolveBackend", fmt.Errorf("%w: %v", ErrBackendUnavailable, err))
		}
		return client, nil
	case "mysql":
		client, err := mysqlStore.NewClient(&mysqlStore.Config{DSN: cfg.DSN})
		if err != nil {
			return nil, NewStoreError("ResolveBackend", fmt.Errorf("%w: %v", ErrBackendUnavailable, err))
		}
		return client, nil
	case "memory":
		return memstore.NewClient(), nil
	default:
		return nil, NewStoreError("ResolveBackend", ErrInvalidConfig)
	}
}

// Namespace returns a handle scoped to the given user id.
//
// The handle is cheap: no external resources are allocated until the first
// write. An empty user id maps to DefaultUserID.
func (s *Store) Namespace(userID string) *Namespace {
	if userID == "" {
		userID = DefaultUserID
	}
	return &Namespace{store: s, userID: userID}
}

// BackendName returns the active backend's provider name.
func (s *Store) BackendName() string {
	return s.backend.Name()
}

// Ping verifies backend connectivity within the configured timeout.
func (s *Store) Ping(ctx context.Context) error {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	if err := s.backend.Ping(ctx); err != nil {
		return NewStoreError("Ping", classify(err))
	}
	return nil
}

// Close closes the store and releases all resources.
func (s *Store) Close() error {
	var errs []error

	if s.backend != nil {
		if err := s.backend.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if s.embedder != nil {
		if err := s.embedder.Close(); err != nil {
			errs = append(errs, err)
		}
	}

	if len(errs) > 0 {
		return errs[0]
	}
	return nil
}

// bound derives a context bounded by the configured request timeout.
func (s *Store) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.config.RequestTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.config.RequestTimeout)
}

// classify maps context expiry onto the adapter's timeout error so callers
// can distinguish a bounded call that ran out of time from a backend fault.
func classify(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrTimeout
	}
	return err
}

// Namespace is a reference to one user's isolated memory namespace.
//
// All operations are scoped to the namespace's user id; no call can read or
// write another user's records. The namespace is created implicitly in the
// backend on first write.
type Namespace struct {
	store  *Store
	userID string
}

// UserID returns the user id this namespace is scoped to.
func (n *Namespace) UserID() string {
	return n.userID
}

// AddMemory appends a memory record to the namespace.
//
// Durability depends on the active backend: the sqlite file store commits
// to disk before returning, the ephemeral backend offers none.
//
// Parameters:
//   - ctx: Context for cancellation
//   - content: Record content (text string)
//
// Returns the stored record, or an error if the operation fails.
func (n *Namespace) AddMemory(ctx context.Context, content string) (*MemoryRecord, error) {
	if strings.TrimSpace(content) == "" {
		return nil, NewStoreError("AddMemory", ErrInvalidInput)
	}

	ctx, cancel := n.store.bound(ctx)
	defer cancel()

	var embedding []float64
	if n.store.embedder != nil {
		var err error
		embedding, err = n.store.embedder.Embed(ctx, content)
		if err != nil {
			return nil, NewStoreError("AddMemory", classify(err))
		}
	}

	record := &MemoryRecord{
		ID:        n.store.node.Generate().Int64(),
		UserID:    n.userID,
		Content:   content,
		Embedding: embedding,
		CreatedAt: time.Now().UTC(),
	}

	if err := n.store.backend.InsertRecord(ctx, toStorageRecord(record)); err != nil {
		return nil, NewStoreError("AddMemory", classify(err))
	}

	return record, nil
}

// QueryMemories returns up to topK records relevant to the query.
//
// Relevance is backend-defined: vector similarity when embeddings are
// available on both sides, lexical overlap otherwise. Ties are broken by
// recency (most recent first). A record containing the verbatim query text
// ranks among the top results.
//
// An unknown user yields an empty result, not an error.
func (n *Namespace) QueryMemories(ctx context.Context, query string, topK int) ([]*MemoryRecord, error) {
	if topK <= 0 {
		topK = 10
	}

	ctx, cancel := n.store.bound(ctx)
	defer cancel()

	var queryEmbedding []float64
	if n.store.embedder != nil && query != "" {
		var err error
		queryEmbedding, err = n.store.embedder.Embed(ctx, query)
		if err != nil {
			return nil, NewStoreError("QueryMemories", classify(err))
		}
	}

	records, err := n.store.backend.QueryRecords(ctx, queryEmbedding, &storage.QueryOptions{
		UserID: n.userID,
		Query:  query,
		Limit:  topK,
	})
	if err != nil {
		return nil, NewStoreError("QueryMemories", classify(err))
	}

	return fromStorageRecords(records), nil
}

// ListMemories returns the namespace's records, newest first.
//
// An unknown user yields an empty result, not an error.
func (n *Namespace) ListMemories(ctx context.Context, limit int) ([]*MemoryRecord, error) {
	ctx, cancel := n.store.bound(ctx)
	defer cancel()

	records, err := n.store.backend.ListRecords(ctx, &storage.ListOptions{
		UserID: n.userID,
		Limit:  limit,
	})
	if err != nil {
		return nil, NewStoreError("ListMemories", classify(err))
	}

	return fromStorageRecords(records), nil
}

// ChunkOption configures AddDocumentChunks.
type ChunkOption func(*chunkOptions)

type chunkOptions struct {
	embed bool
}

// WithChunkEmbeddings enables embedding generation for the inserted chunks.
// It has no effect when the store carries no embedder.
func WithChunkEmbeddings(embed bool) ChunkOption {
	return func(opts *chunkOptions) {
		opts.embed = embed
	}
}

// AddDocumentChunks bulk-inserts document chunks into the namespace.
//
// All-or-nothing is NOT guaranteed: the backend may fail mid-batch, and the
// returned count is the authoritative number of chunks actually stored.
//
// Parameters:
//   - ctx: Context for cancellation
//   - chunks: Chunks carrying document id, sequence, and content
//   - opts: Optional parameters (WithChunkEmbeddings)
//
// Returns the number of chunks stored and any error.
func (n *Namespace) AddDocumentChunks(ctx context.Context, chunks []*DocumentChunk, opts ...ChunkOption) (int, error) {
	if len(chunks) == 0 {
		return 0, nil
	}

	options := &chunkOptions{}
	for _, opt := range opts {
		opt(options)
	}

	ctx, cancel := n.store.bound(ctx)
	defer cancel()

	now := time.Now().UTC()
	storageChunks := make([]*storage.DocumentChunk, len(chunks))
	for i, chunk := range chunks {
		if strings.TrimSpace(chunk.Content) == "" {
			return 0, NewStoreError("AddDocumentChunks", ErrInvalidInput)
		}
		chunk.UserID = n.userID
		chunk.CreatedAt = now
		storageChunks[i] = toStorageChunk(chunk)
	}

	if options.embed && n.store.embedder != nil {
		texts := make([]string, len(chunks))
		for i, chunk := range chunks {
			texts[i] = chunk.Content
		}

		embeddings, err := n.store.embedder.EmbedBatch(ctx, texts)
		if err != nil {
			return 0, NewStoreError("AddDocumentChunks", classify(err))
		}
		for i, embedding := range embeddings {
			chunks[i].Embedding = embedding
			storageChunks[i].Embedding = embedding
		}
	}

	stored, err := n.store.backend.InsertChunks(ctx, storageChunks)
	if err != nil {
		return stored, NewStoreError("AddDocumentChunks", classify(err))
	}

	return stored, nil
}
