package storage_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/memchat/memchat-go/pkg/storage"
)

func TestCosineSimilarity(t *testing.T) {
	a := []float64{1, 0, 0}
	b := []float64{1, 0, 0}
	c := []float64{0, 1, 0}

	assert.InDelta(t, 1.0, storage.CosineSimilarity(a, b), 1e-9)
	assert.InDelta(t, 0.0, storage.CosineSimilarity(a, c), 1e-9)

	// Mismatched lengths and zero vectors score 0
	assert.Equal(t, 0.0, storage.CosineSimilarity(a, []float64{1, 0}))
	assert.Equal(t, 0.0, storage.CosineSimilarity(a, []float64{0, 0, 0}))
	assert.Equal(t, 0.0, storage.CosineSimilarity(nil, nil))
}

func TestLexicalScore(t *testing.T) {
	// Exact match scores 1.0 regardless of case and punctuation
	assert.Equal(t, 1.0, storage.LexicalScore("I like coffee", "i like coffee!"))

	// Partial overlap scores the matched fraction
	assert.InDelta(t, 0.5, storage.LexicalScore("coffee beans", "fresh coffee daily"), 1e-9)

	// No overlap and empty query score 0
	assert.Equal(t, 0.0, storage.LexicalScore("tea", "fresh coffee daily"))
	assert.Equal(t, 0.0, storage.LexicalScore("", "anything"))
}

func TestScoreRecord_PrefersVectorWhenAvailable(t *testing.T) {
	record := &storage.MemoryRecord{
		Content:   "completely unrelated words",
		Embedding: []float64{1, 0},
	}

	// Both sides have embeddings: cosine wins even though lexical would be 0
	score := storage.ScoreRecord(record, []float64{1, 0}, "no overlap here")
	assert.InDelta(t, 1.0, score, 1e-9)

	// Record without embedding falls back to lexical
	record.Embedding = nil
	assert.Equal(t, 0.0, storage.ScoreRecord(record, []float64{1, 0}, "no overlap here"))
}

func TestRankRecords_TiesBrokenByRecency(t *testing.T) {
	now := time.Now()
	records := []*storage.MemoryRecord{
		{ID: 1, Score: 0.5, CreatedAt: now.Add(-2 * time.Hour)},
		{ID: 2, Score: 0.5, CreatedAt: now.Add(-1 * time.Hour)},
		{ID: 3, Score: 0.9, CreatedAt: now.Add(-3 * time.Hour)},
	}

	ranked := storage.RankRecords(records, 0, 0)
	assert.Equal(t, int64(3), ranked[0].ID) // highest score first
	assert.Equal(t, int64(2), ranked[1].ID) // tie: most recent first
	assert.Equal(t, int64(1), ranked[2].ID)
}

func TestRankRecords_LimitAndMinScore(t *testing.T) {
	now := time.Now()
	records := []*storage.MemoryRecord{
		{ID: 1, Score: 0.9, CreatedAt: now},
		{ID: 2, Score: 0.6, CreatedAt: now},
		{ID: 3, Score: 0.2, CreatedAt: now},
	}

	ranked := storage.RankRecords(records, 0.5, 1)
	assert.Len(t, ranked, 1)
	assert.Equal(t, int64(1), ranked[0].ID)
}

func TestRankRecords_EqualTimestampsFallBackToID(t *testing.T) {
	now := time.Now()
	records := []*storage.MemoryRecord{
		{ID: 10, Score: 0.5, CreatedAt: now},
		{ID: 20, Score: 0.5, CreatedAt: now},
	}

	ranked := storage.RankRecords(records, 0, 0)
	assert.Equal(t, int64(20), ranked[0].ID)
}
