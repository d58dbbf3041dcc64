package services

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/qaagent/backend-go/internal/errors"
	"github.com/qaagent/backend-go/internal/knowledge"
)

type fakeEmbedder struct {
	dims int
}

func (f *fakeEmbedder) EmbedOne(ctx context.Context, text string) ([]float32, error) {
	vectors, err := f.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

func (f *fakeEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		vector := make([]float32, f.dims)
		var norm float64
		for _, r := range text {
			vector[int(r)%f.dims]++
		}
		for _, v := range vector {
			norm += float64(v) * float64(v)
		}
		if norm > 0 {
			inv := float32(1 / math.Sqrt(norm))
			for j := range vector {
				vector[j] *= inv
			}
		}
		out[i] = vector
	}
	return out, nil
}

func (f *fakeEmbedder) Dimensions() int { return f.dims }
func (f *fakeEmbedder) Ready() bool     { return true }

func newServiceUnderTest() (*KnowledgeService, knowledge.VectorIndex) {
	index := knowledge.NewMemoryVectorIndex()
	service := NewKnowledgeService(
		knowledge.NewProcessor(200, 20),
		&fakeEmbedder{dims: 8},
		index,
		nil,
	)
	return service, index
}

func TestKnowledgeService_IngestStatusResetLifecycle(t *testing.T) {
	service, _ := newServiceUnderTest()
	ctx := context.Background()

	// 空库状态
	status, err := service.Status(ctx)
	require.NoError(t, err)
	assert.False(t, status.IsBuilt)
	assert.False(t, status.CollectionExists)
	assert.Equal(t, int64(0), status.TotalChunks)

	result, err := service.IngestDocuments(ctx, []knowledge.Document{
		{
			Content:  []byte("# Checkout\n\nThe checkout page has a Place Order button."),
			Filename: "checkout.md",
			FileType: knowledge.DocTypeMarkdown,
		},
		{
			Content:  []byte("Shipping options include standard and express delivery."),
			Filename: "shipping.txt",
			FileType: knowledge.DocTypeText,
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, result.DocumentCount)
	assert.Greater(t, result.ChunksCreated, 0)

	status, err = service.Status(ctx)
	require.NoError(t, err)
	assert.True(t, status.IsBuilt)
	assert.True(t, status.CollectionExists)
	assert.Equal(t, int64(result.ChunksCreated), status.TotalChunks)

	require.NoError(t, service.Reset(ctx))

	status, err = service.Status(ctx)
	require.NoError(t, err)
	assert.False(t, status.IsBuilt)
	assert.False(t, status.CollectionExists)
}

func TestKnowledgeService_UnsupportedTypeAbortsBatch(t *testing.T) {
	service, index := newServiceUnderTest()
	ctx := context.Background()

	_, err := service.IngestDocuments(ctx, []knowledge.Document{
		{Content: []byte("fine"), Filename: "a.txt", FileType: knowledge.DocTypeText},
		{Content: []byte("broken"), Filename: "b.docx", FileType: knowledge.DocumentType("docx")},
	})
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeUnsupportedType))

	// 整批失败，不留下部分写入
	stats, err := index.Stats(ctx)
	require.NoError(t, err)
	assert.False(t, stats.Exists)
}

func TestKnowledgeService_IngestEmptyBatch(t *testing.T) {
	service, _ := newServiceUnderTest()

	result, err := service.IngestDocuments(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 0, result.DocumentCount)
	assert.Equal(t, 0, result.ChunksCreated)
}
