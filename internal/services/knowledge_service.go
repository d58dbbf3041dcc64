package services

import (
	"context"

	"go.uber.org/zap"

	"github.com/qaagent/backend-go/internal/knowledge"
	"github.com/qaagent/backend-go/internal/logger"
	"github.com/qaagent/backend-go/internal/metrics"
)

// IngestResult 一次入库请求的结果
type IngestResult struct {
	DocumentCount int `json:"document_count"`
	ChunksCreated int `json:"chunks_created"`
}

// KnowledgeBaseStatus 知识库状态，总是实时查询索引得出
type KnowledgeBaseStatus struct {
	IsBuilt          bool  `json:"is_built"`
	TotalChunks      int64 `json:"total_chunks"`
	CollectionExists bool  `json:"collection_exists"`
}

// KnowledgeService 文档入库与知识库生命周期管理
type KnowledgeService struct {
	processor *knowledge.Processor
	embedder  knowledge.Embedder
	index     knowledge.VectorIndex
	metrics   *metrics.Collector
	logger    *zap.Logger
}

// NewKnowledgeService 创建知识库服务
func NewKnowledgeService(processor *knowledge.Processor, embedder knowledge.Embedder, index knowledge.VectorIndex, collector *metrics.Collector) *KnowledgeService {
	return &KnowledgeService{
		processor: processor,
		embedder:  embedder,
		index:     index,
		metrics:   collector,
		logger:    logger.GetLogger(),
	}
}

// IngestDocuments 处理并入库一批文档：逐文档提取分块 → 全批向量化 →
// 确保集合存在 → 单次全量写入。任一环节失败整个请求失败，不落盘部分结果
func (s *KnowledgeService) IngestDocuments(ctx context.Context, docs []knowledge.Document) (*IngestResult, error) {
	chunks, err := s.processor.ProcessMultiple(docs)
	if err != nil {
		return nil, err
	}
	if len(chunks) == 0 {
		return &IngestResult{DocumentCount: len(docs)}, nil
	}

	texts := make([]string, len(chunks))
	for i, chunk := range chunks {
		texts[i] = chunk.Text
	}

	vectors, err := s.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, err
	}

	points := make([]knowledge.IndexedPoint, len(chunks))
	for i, chunk := range chunks {
		points[i] = knowledge.NewChunkPoint(chunk, vectors[i])
	}

	if err := s.index.EnsureCollection(ctx); err != nil {
		return nil, err
	}

	count, err := s.index.Upsert(ctx, points)
	if err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.DocumentsIngested(len(docs))
		s.metrics.ChunksIndexed(count)
	}
	s.logger.Info("documents ingested",
		zap.Int("documents", len(docs)),
		zap.Int("chunks", count))

	return &IngestResult{
		DocumentCount: len(docs),
		ChunksCreated: count,
	}, nil
}

// Status 实时查询索引得到知识库状态
func (s *KnowledgeService) Status(ctx context.Context) (*KnowledgeBaseStatus, error) {
	stats, err := s.index.Stats(ctx)
	if err != nil {
		return nil, err
	}

	return &KnowledgeBaseStatus{
		IsBuilt:          stats.Exists && stats.PointsCount > 0,
		TotalChunks:      stats.PointsCount,
		CollectionExists: stats.Exists,
	}, nil
}

// Reset 清空知识库
func (s *KnowledgeService) Reset(ctx context.Context) error {
	if err := s.index.Drop(ctx); err != nil {
		return err
	}
	s.logger.Info("knowledge base reset")
	return nil
}

// Ready 依赖是否可用，健康检查用
func (s *KnowledgeService) Ready() bool {
	return s.embedder.Ready() && s.index.Ready()
}
