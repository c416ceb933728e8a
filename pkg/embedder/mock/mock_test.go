package mock_test

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/memchat/memchat-go/pkg/embedder/mock"
)

func TestEmbed_Deterministic(t *testing.T) {
	embedder := mock.New(64)
	ctx := context.Background()

	a, err := embedder.Embed(ctx, "User lives in Lisbon")
	require.NoError(t, err)
	b, err := embedder.Embed(ctx, "User lives in Lisbon")
	require.NoError(t, err)

	assert.Equal(t, a, b)
}

func TestEmbed_DistinctTextsDiffer(t *testing.T) {
	embedder := mock.New(64)
	ctx := context.Background()

	a, err := embedder.Embed(ctx, "coffee")
	require.NoError(t, err)
	b, err := embedder.Embed(ctx, "tea")
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
}

func TestEmbed_UnitNorm(t *testing.T) {
	embedder := mock.New(32)

	vec, err := embedder.Embed(context.Background(), "anything")
	require.NoError(t, err)
	require.Len(t, vec, 32)

	var norm float64
	for _, v := range vec {
		assert.GreaterOrEqual(t, v, 0.0)
		norm += v * v
	}
	assert.InDelta(t, 1.0, math.Sqrt(norm), 1e-9)
}

func TestEmbedBatch(t *testing.T) {
	embedder := mock.New(16)

	vecs, err := embedder.EmbedBatch(context.Background(), []string{"a", "b", "c"})
	require.NoError(t, err)
	require.Len(t, vecs, 3)
	for _, vec := range vecs {
		assert.Len(t, vec, 16)
	}
}

func TestEmbed_CancelledContext(t *testing.T) {
	embedder := mock.New(16)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := embedder.Embed(ctx, "x")
	assert.Error(t, err)
}

func TestDimensions_Default(t *testing.T) {
	assert.Equal(t, 64, mock.New(0).Dimensions())
}
