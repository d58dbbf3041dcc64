package knowledge

import (
	"context"
	"math"
	"sort"
	"sync"
)

// memoryVectorIndex 进程内向量索引，精确余弦扫描。
// 用于本地开发和测试，不做持久化
type memoryVectorIndex struct {
	mu      sync.RWMutex
	created bool
	points  []IndexedPoint
}

// NewMemoryVectorIndex 创建内存向量索引
func NewMemoryVectorIndex() VectorIndex {
	return &memoryVectorIndex{}
}

func (s *memoryVectorIndex) EnsureCollection(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.created = true
	return nil
}

func (s *memoryVectorIndex) Upsert(ctx context.Context, points []IndexedPoint) (int, error) {
	if len(points) == 0 {
		return 0, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.created = true
	s.points = append(s.points, points...)
	return len(points), nil
}

func (s *memoryVectorIndex) Search(ctx context.Context, vector []float32, limit int, scoreThreshold float64) ([]ScoredPoint, error) {
	if len(vector) == 0 {
		return nil, nil
	}
	if limit <= 0 {
		limit = 10
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.created {
		return []ScoredPoint{}, nil
	}

	matches := make([]ScoredPoint, 0, len(s.points))
	for _, point := range s.points {
		score := cosineSimilarity(vector, point.Vector)
		if score < scoreThreshold {
			continue
		}
		matches = append(matches, ScoredPoint{Payload: point.Payload, Score: score})
	}

	// 相似度降序，单次调用内排序稳定
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})

	if len(matches) > limit {
		matches = matches[:limit]
	}
	return matches, nil
}

func (s *memoryVectorIndex) Stats(ctx context.Context) (CollectionStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.created {
		return CollectionStats{Exists: false}, nil
	}
	count := int64(len(s.points))
	return CollectionStats{Exists: true, PointsCount: count, VectorsCount: count}, nil
}

func (s *memoryVectorIndex) Drop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.created = false
	s.points = nil
	return nil
}

func (s *memoryVectorIndex) Ready() bool {
	return true
}

// cosineSimilarity 向量在入库时已归一化，点积即余弦相似度；
// 为健壮起见仍按完整公式计算
func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
