package knowledge

import (
	"context"
	"fmt"
	"math"
	"strings"
	"sync"

	openai "github.com/sashabaranov/go-openai"

	apperrors "github.com/qaagent/backend-go/internal/errors"
)

// Embedder 定义文本向量化接口
type Embedder interface {
	// EmbedOne 对单条文本向量化
	EmbedOne(ctx context.Context, text string) ([]float32, error)
	// EmbedBatch 按输入顺序对多条文本向量化，结果与输入等长同序
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
	Ready() bool
}

var embeddingDimensions = map[string]int{
	"text-embedding-3-large": 3072,
	"text-embedding-3-small": 1536,
	"text-embedding-ada-002": 1536,
}

// OpenAIEmbedder 使用OpenAI Embedding API，输出L2归一化向量
type OpenAIEmbedder struct {
	client     *openai.Client
	model      string
	dimensions int
	limiter    sync.Mutex
}

// NewOpenAIEmbedder 创建OpenAI嵌入向量生成器。
// 配置维度与模型实际输出维度不一致属于致命配置错误，在启动时报出
func NewOpenAIEmbedder(apiKey, model string, dimension int) (*OpenAIEmbedder, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, apperrors.NewEmbeddingError("embedding provider not configured: missing api key", nil)
	}
	if model == "" {
		model = "text-embedding-3-small"
	}

	dims, known := embeddingDimensions[model]
	if !known {
		dims = dimension
	}
	if dimension > 0 && dims != dimension {
		return nil, apperrors.NewEmbeddingError(
			fmt.Sprintf("configured dimension %d does not match model %s output dimension %d", dimension, model, dims), nil)
	}

	return &OpenAIEmbedder{
		client:     openai.NewClient(apiKey),
		model:      model,
		dimensions: dims,
	}, nil
}

// EmbedOne 委托给EmbedBatch，保证单条与批量结果一致
func (e *OpenAIEmbedder) EmbedOne(ctx context.Context, text string) ([]float32, error) {
	vectors, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

func (e *OpenAIEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	if e.client == nil {
		return nil, apperrors.NewEmbeddingError("openai client not initialized", nil)
	}

	e.limiter.Lock()
	defer e.limiter.Unlock()

	resp, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Model: openai.EmbeddingModel(e.model),
		Input: texts,
	})
	if err != nil {
		return nil, apperrors.NewEmbeddingError("create embeddings failed", err)
	}
	if len(resp.Data) != len(texts) {
		return nil, apperrors.NewEmbeddingError(
			fmt.Sprintf("embedding response size mismatch: want %d got %d", len(texts), len(resp.Data)), nil)
	}

	vectors := make([][]float32, len(texts))
	for _, item := range resp.Data {
		if item.Index < 0 || item.Index >= len(vectors) {
			return nil, apperrors.NewEmbeddingError(fmt.Sprintf("embedding response index %d out of range", item.Index), nil)
		}
		if len(item.Embedding) != e.dimensions {
			return nil, apperrors.NewEmbeddingError(
				fmt.Sprintf("embedding dimension mismatch: want %d got %d", e.dimensions, len(item.Embedding)), nil)
		}
		vector := make([]float32, len(item.Embedding))
		copy(vector, item.Embedding)
		vectors[item.Index] = l2Normalize(vector)
	}

	return vectors, nil
}

func (e *OpenAIEmbedder) Dimensions() int {
	return e.dimensions
}

func (e *OpenAIEmbedder) Ready() bool {
	return e.client != nil
}

// l2Normalize 原地归一化为单位向量；零向量原样返回
func l2Normalize(vector []float32) []float32 {
	var sum float64
	for _, v := range vector {
		sum += float64(v) * float64(v)
	}
	if sum == 0 {
		return vector
	}
	norm := math.Sqrt(sum)
	for i := range vector {
		vector[i] = float32(float64(vector[i]) / norm)
	}
	return vector
}
