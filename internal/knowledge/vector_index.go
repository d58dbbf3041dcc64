package knowledge

import (
	"context"

	"github.com/google/uuid"
)

// PointPayload 索引点携带的来源负载
type PointPayload struct {
	Text        string `json:"text"`
	Source      string `json:"source"`
	FileType    string `json:"file_type"`
	ChunkIndex  int    `json:"chunk_index"`
	TotalChunks int    `json:"total_chunks"`
}

// IndexedPoint 持久化的(向量, 负载)对
type IndexedPoint struct {
	ID      string
	Vector  []float32
	Payload PointPayload
}

// ScoredPoint 检索命中的点及其相似度
type ScoredPoint struct {
	Payload PointPayload
	Score   float64
}

// CollectionStats 集合状态，仅用于状态上报
type CollectionStats struct {
	Exists       bool  `json:"exists"`
	PointsCount  int64 `json:"points_count"`
	VectorsCount int64 `json:"vectors_count"`
}

// VectorIndex 向量索引抽象。
// 同一文档重复入库会产生新的点而不是覆盖，去重由调用方负责（可整体重置集合）
type VectorIndex interface {
	// EnsureCollection 幂等地创建集合；已存在时不做任何修改
	EnsureCollection(ctx context.Context) error
	// Upsert 全量写入，部分失败也按整体失败上报
	Upsert(ctx context.Context, points []IndexedPoint) (int, error)
	// Search 返回最多limit个相似度>=scoreThreshold的点，按相似度降序；
	// 集合不存在或无命中时返回空切片而不是错误
	Search(ctx context.Context, vector []float32, limit int, scoreThreshold float64) ([]ScoredPoint, error)
	Stats(ctx context.Context) (CollectionStats, error)
	// Drop 删除集合；对后续EnsureCollection幂等
	Drop(ctx context.Context) error
	Ready() bool
}

// NewPointID 为新写入的点生成唯一标识
func NewPointID() string {
	return uuid.NewString()
}

// NewChunkPoint 从分块和向量构建索引点
func NewChunkPoint(chunk Chunk, vector []float32) IndexedPoint {
	return IndexedPoint{
		ID:     NewPointID(),
		Vector: vector,
		Payload: PointPayload{
			Text:        chunk.Text,
			Source:      chunk.Source,
			FileType:    string(chunk.FileType),
			ChunkIndex:  chunk.ChunkIndex,
			TotalChunks: chunk.TotalChunks,
		},
	}
}
