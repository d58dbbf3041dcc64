package knowledge

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRetriever_ProjectsPayloadAndScore(t *testing.T) {
	embedder := &stubEmbedder{dims: 8}
	index := NewMemoryVectorIndex()
	ctx := context.Background()

	texts := []string{
		"the checkout page has a place order button",
		"shipping options are configured separately",
	}
	vectors, err := embedder.EmbedBatch(ctx, texts)
	require.NoError(t, err)

	points := []IndexedPoint{
		NewChunkPoint(Chunk{Text: texts[0], Source: "checkout.md", FileType: DocTypeMarkdown, ChunkIndex: 0, TotalChunks: 2}, vectors[0]),
		NewChunkPoint(Chunk{Text: texts[1], Source: "checkout.md", FileType: DocTypeMarkdown, ChunkIndex: 1, TotalChunks: 2}, vectors[1]),
	}
	_, err = index.Upsert(ctx, points)
	require.NoError(t, err)

	retriever := NewRetriever(embedder, index)
	passages, err := retriever.Retrieve(ctx, "place order button", 1, 0.0)
	require.NoError(t, err)
	require.Len(t, passages, 1)

	// 与查询文本重合度最高的分块排在首位
	assert.Equal(t, texts[0], passages[0].Text)
	assert.Equal(t, "checkout.md", passages[0].Source)
	assert.Equal(t, "md", passages[0].FileType)
	assert.Equal(t, 0, passages[0].ChunkIndex)
	assert.Equal(t, 2, passages[0].TotalChunks)
	assert.Greater(t, passages[0].Score, 0.0)
}

func TestRetriever_EmptyIndexReturnsNoPassages(t *testing.T) {
	retriever := NewRetriever(&stubEmbedder{dims: 8}, NewMemoryVectorIndex())

	passages, err := retriever.Retrieve(context.Background(), "anything", 5, 0.5)
	require.NoError(t, err)
	assert.Empty(t, passages)
}

func TestRetriever_ThresholdFiltersWeakMatches(t *testing.T) {
	embedder := &stubEmbedder{dims: 8}
	index := NewMemoryVectorIndex()
	ctx := context.Background()

	vector, err := embedder.EmbedOne(ctx, "completely unrelated text about databases")
	require.NoError(t, err)
	_, err = index.Upsert(ctx, []IndexedPoint{
		NewChunkPoint(Chunk{Text: "unrelated", Source: "db.md", FileType: DocTypeMarkdown, TotalChunks: 1}, vector),
	})
	require.NoError(t, err)

	retriever := NewRetriever(embedder, index)

	// 阈值设满分，弱相关命中被过滤
	passages, err := retriever.Retrieve(ctx, "place order button", 5, 0.9999)
	require.NoError(t, err)
	assert.Empty(t, passages)
}

func TestSourcesUsed_DeduplicatesPreservingOrder(t *testing.T) {
	passages := []RetrievedPassage{
		{Source: "checkout.md"},
		{Source: "shipping.md"},
		{Source: "checkout.md"},
		{Source: ""},
		{Source: "payment.md"},
	}

	sources := SourcesUsed(passages)
	assert.Equal(t, []string{"checkout.md", "shipping.md", "payment.md"}, sources)
}

func TestSourcesUsed_EmptyInput(t *testing.T) {
	assert.Empty(t, SourcesUsed(nil))
	assert.Empty(t, SourcesUsed([]RetrievedPassage{}))
}
