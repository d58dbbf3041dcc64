package knowledge

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/qaagent/backend-go/internal/errors"
)

func TestL2Normalize(t *testing.T) {
	vector := l2Normalize([]float32{3, 4})

	assert.InDelta(t, 0.6, float64(vector[0]), 1e-6)
	assert.InDelta(t, 0.8, float64(vector[1]), 1e-6)

	var norm float64
	for _, v := range vector {
		norm += float64(v) * float64(v)
	}
	assert.InDelta(t, 1.0, math.Sqrt(norm), 1e-6)
}

func TestL2Normalize_ZeroVector(t *testing.T) {
	vector := l2Normalize([]float32{0, 0, 0})
	assert.Equal(t, []float32{0, 0, 0}, vector)
}

func TestNewOpenAIEmbedder_MissingKey(t *testing.T) {
	_, err := NewOpenAIEmbedder("", "text-embedding-3-small", 1536)
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeEmbedding))
}

func TestNewOpenAIEmbedder_DimensionMismatch(t *testing.T) {
	// 配置维度与模型输出维度不一致是致命配置错误
	_, err := NewOpenAIEmbedder("sk-test", "text-embedding-3-small", 384)
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeEmbedding))
}

func TestNewOpenAIEmbedder_KnownModelDimensions(t *testing.T) {
	e, err := NewOpenAIEmbedder("sk-test", "text-embedding-3-large", 0)
	require.NoError(t, err)
	assert.Equal(t, 3072, e.Dimensions())
	assert.True(t, e.Ready())
}

// stubEmbedder 基于字符统计的确定性向量，测试检索编排用
type stubEmbedder struct {
	dims int
}

func (s *stubEmbedder) EmbedOne(ctx context.Context, text string) ([]float32, error) {
	vectors, err := s.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

func (s *stubEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		vector := make([]float32, s.dims)
		for _, r := range text {
			vector[int(r)%s.dims]++
		}
		out[i] = l2Normalize(vector)
	}
	return out, nil
}

func (s *stubEmbedder) Dimensions() int { return s.dims }
func (s *stubEmbedder) Ready() bool     { return true }

func TestStubEmbedder_BatchMatchesSingle(t *testing.T) {
	// 单条与批量向量化结果一致（EmbedOne委托EmbedBatch的约定）
	e := &stubEmbedder{dims: 8}
	ctx := context.Background()

	single, err := e.EmbedOne(ctx, "place order button")
	require.NoError(t, err)

	batch, err := e.EmbedBatch(ctx, []string{"place order button"})
	require.NoError(t, err)

	assert.Equal(t, batch[0], single)
}
