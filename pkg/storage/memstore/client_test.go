package memstore_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/memchat/memchat-go/pkg/storage"
	"github.com/memchat/memchat-go/pkg/storage/memstore"
)

func TestMemstore_InsertAndList(t *testing.T) {
	store := memstore.NewClient()
	ctx := context.Background()

	base := time.Now().UTC()
	for i := 0; i < 3; i++ {
		record := &storage.MemoryRecord{
			ID:        int64(i + 1),
			UserID:    "test_user",
			Content:   "memory",
			CreatedAt: base.Add(time.Duration(i) * time.Second),
		}
		require.NoError(t, store.InsertRecord(ctx, record))
	}

	results, err := store.ListRecords(ctx, &storage.ListOptions{UserID: "test_user", Limit: 2})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, int64(3), results[0].ID) // newest first
	assert.Equal(t, int64(2), results[1].ID)
}

func TestMemstore_UnknownUserEmpty(t *testing.T) {
	store := memstore.NewClient()
	ctx := context.Background()

	results, err := store.ListRecords(ctx, &storage.ListOptions{UserID: "nobody", Limit: 10})
	assert.NoError(t, err)
	assert.Empty(t, results)

	queried, err := store.QueryRecords(ctx, nil, &storage.QueryOptions{UserID: "nobody", Query: "x", Limit: 10})
	assert.NoError(t, err)
	assert.Empty(t, queried)
}

func TestMemstore_UserIsolation(t *testing.T) {
	store := memstore.NewClient()
	ctx := context.Background()

	require.NoError(t, store.InsertRecord(ctx, &storage.MemoryRecord{
		ID: 1, UserID: "alice", Content: "alice secret", CreatedAt: time.Now().UTC(),
	}))
	require.NoError(t, store.InsertRecord(ctx, &storage.MemoryRecord{
		ID: 2, UserID: "bob", Content: "bob note", CreatedAt: time.Now().UTC(),
	}))

	results, err := store.QueryRecords(ctx, nil, &storage.QueryOptions{
		UserID: "bob", Query: "alice secret", Limit: 10,
	})
	require.NoError(t, err)
	for _, rec := range results {
		assert.Equal(t, "bob", rec.UserID)
	}
}

func TestMemstore_VerbatimRecall(t *testing.T) {
	store := memstore.NewClient()
	ctx := context.Background()

	contents := []string{"likes hiking", "owns a cat named Miso", "works night shifts"}
	for i, content := range contents {
		require.NoError(t, store.InsertRecord(ctx, &storage.MemoryRecord{
			ID: int64(i + 1), UserID: "u", Content: content, CreatedAt: time.Now().UTC(),
		}))
	}

	results, err := store.QueryRecords(ctx, nil, &storage.QueryOptions{
		UserID: "u", Query: "owns a cat named Miso", Limit: 3,
	})
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Equal(t, "owns a cat named Miso", results[0].Content)
}

func TestMemstore_QueryBumpsAccessCount(t *testing.T) {
	store := memstore.NewClient()
	ctx := context.Background()

	require.NoError(t, store.InsertRecord(ctx, &storage.MemoryRecord{
		ID: 1, UserID: "u", Content: "coffee", CreatedAt: time.Now().UTC(),
	}))

	results, err := store.QueryRecords(ctx, nil, &storage.QueryOptions{UserID: "u", Query: "coffee", Limit: 1})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, 1, results[0].AccessCount)

	listed, err := store.ListRecords(ctx, &storage.ListOptions{UserID: "u", Limit: 1})
	require.NoError(t, err)
	assert.Equal(t, 1, listed[0].AccessCount)
}

func TestMemstore_InsertChunks(t *testing.T) {
	store := memstore.NewClient()
	ctx := context.Background()

	chunks := []*storage.DocumentChunk{
		{DocumentID: "doc-1", UserID: "u", Sequence: 1, Content: "one"},
		{DocumentID: "doc-1", UserID: "u", Sequence: 2, Content: "two"},
	}

	stored, err := store.InsertChunks(ctx, chunks)
	assert.NoError(t, err)
	assert.Equal(t, 2, stored)
}

func TestMemstore_CancelledContext(t *testing.T) {
	store := memstore.NewClient()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := store.InsertRecord(ctx, &storage.MemoryRecord{ID: 1, UserID: "u", Content: "x"})
	assert.Error(t, err)
}

func TestMemstore_CloseClears(t *testing.T) {
	store := memstore.NewClient()
	ctx := context.Background()

	require.NoError(t, store.InsertRecord(ctx, &storage.MemoryRecord{
		ID: 1, UserID: "u", Content: "x", CreatedAt: time.Now().UTC(),
	}))
	require.NoError(t, store.Close())

	results, err := store.ListRecords(ctx, &storage.ListOptions{UserID: "u", Limit: 10})
	require.NoError(t, err)
	assert.Empty(t, results)
}
