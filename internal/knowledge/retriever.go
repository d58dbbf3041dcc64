package knowledge

import (
	"context"

	"go.uber.org/zap"

	"github.com/qaagent/backend-go/internal/logger"
)

// RetrievedPassage 检索命中的文档片段，带来源归属和相似度
type RetrievedPassage struct {
	Text        string  `json:"text"`
	Source      string  `json:"source"`
	FileType    string  `json:"file_type"`
	ChunkIndex  int     `json:"chunk_index"`
	TotalChunks int     `json:"total_chunks"`
	Score       float64 `json:"score"`
}

// Retriever 检索编排器：查询向量化 → 相似度搜索 → 结果投影。
// 不做缓存，每次调用都重新向量化并搜索
type Retriever struct {
	embedder Embedder
	index    VectorIndex
	logger   *zap.Logger
}

// NewRetriever 创建检索编排器
func NewRetriever(embedder Embedder, index VectorIndex) *Retriever {
	return &Retriever{
		embedder: embedder,
		index:    index,
		logger:   logger.GetLogger(),
	}
}

// Retrieve 检索与查询最相似的片段，按相似度降序
func (r *Retriever) Retrieve(ctx context.Context, query string, k int, scoreThreshold float64) ([]RetrievedPassage, error) {
	vector, err := r.embedder.EmbedOne(ctx, query)
	if err != nil {
		return nil, err
	}

	matches, err := r.index.Search(ctx, vector, k, scoreThreshold)
	if err != nil {
		return nil, err
	}

	passages := make([]RetrievedPassage, 0, len(matches))
	for _, match := range matches {
		passages = append(passages, RetrievedPassage{
			Text:        match.Payload.Text,
			Source:      match.Payload.Source,
			FileType:    match.Payload.FileType,
			ChunkIndex:  match.Payload.ChunkIndex,
			TotalChunks: match.Payload.TotalChunks,
			Score:       match.Score,
		})
	}

	r.logger.Info("retrieval finished",
		zap.Int("requested", k),
		zap.Float64("score_threshold", scoreThreshold),
		zap.Int("matches", len(passages)))

	return passages, nil
}

// SourcesUsed 返回片段涉及的去重来源文件名，保持首次出现顺序；
// 下游用它构建接地校验的白名单
func SourcesUsed(passages []RetrievedPassage) []string {
	seen := make(map[string]bool, len(passages))
	sources := make([]string, 0, len(passages))
	for _, passage := range passages {
		if passage.Source == "" || seen[passage.Source] {
			continue
		}
		seen[passage.Source] = true
		sources = append(sources, passage.Source)
	}
	return sources
}
