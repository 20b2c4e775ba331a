package embed_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kruthik-JP/guard-rail-NER/internal/embed"
	"github.com/Kruthik-JP/guard-rail-NER/internal/testutil"
)

func TestOpenAIEmbedderEmbed(t *testing.T) {
	server := testutil.NewEmbeddingsServer(8)
	t.Cleanup(server.Close)

	e := embed.NewOpenAIEmbedder("test-key", "text-embedding-3-small", server.URL+"/v1")

	vectors, err := e.Embed(context.Background(), []string{"alpha", "beta"})
	require.NoError(t, err)
	require.Len(t, vectors, 2)
	assert.Len(t, vectors[0], 8)
	// The mock server returns distinct one-hot vectors per input index.
	assert.InDelta(t, 0.0, embed.Cosine(vectors[0], vectors[1]), 1e-9)
}

func TestOpenAIEmbedderEmptyInput(t *testing.T) {
	e := embed.NewOpenAIEmbedder("test-key", "", "http://127.0.0.1:0")

	vectors, err := e.Embed(context.Background(), nil)
	require.NoError(t, err)
	assert.Nil(t, vectors)
}

func TestOpenAIEmbedderUpstreamError(t *testing.T) {
	e := embed.NewOpenAIEmbedder("test-key", "", "http://127.0.0.1:0/v1")

	_, err := e.Embed(context.Background(), []string{"alpha"})
	require.Error(t, err)
	assert.ErrorIs(t, err, embed.ErrEmbeddingFailure)
}

func TestOpenAIEmbedderDimensions(t *testing.T) {
	assert.Equal(t, 1536, embed.NewOpenAIEmbedder("k", "", "").Dimensions())
	assert.Equal(t, 3072, embed.NewOpenAIEmbedder("k", "text-embedding-3-large", "").Dimensions())
	assert.Equal(t, 1536, embed.NewOpenAIEmbedder("k", "custom-model", "").Dimensions())
}
