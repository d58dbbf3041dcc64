package knowledge

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/milvus-io/milvus-sdk-go/v2/client"
	"github.com/milvus-io/milvus-sdk-go/v2/entity"

	apperrors "github.com/qaagent/backend-go/internal/errors"
	"github.com/qaagent/backend-go/internal/logger"
)

// MilvusOptions Milvus客户端配置
type MilvusOptions struct {
	Address    string
	Username   string
	Password   string
	Collection string
	VectorSize int
	Database   string
	UseTLS     bool
	Timeout    time.Duration
}

type milvusVectorIndex struct {
	milvusClient client.Client
	collection   string
	vectorSize   int
}

// NewMilvusVectorIndex 创建Milvus向量索引
func NewMilvusVectorIndex(opts MilvusOptions) (VectorIndex, error) {
	if opts.Address == "" {
		opts.Address = "localhost:19530"
	}
	if opts.Collection == "" {
		opts.Collection = "qa_agent_knowledge_base"
	}
	if opts.VectorSize == 0 {
		opts.VectorSize = 1536
	}
	if opts.Database == "" {
		opts.Database = "default"
	}

	timeout := opts.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	milvusClient, err := client.NewClient(ctx, client.Config{
		Address:       opts.Address,
		DBName:        opts.Database,
		Username:      opts.Username,
		Password:      opts.Password,
		EnableTLSAuth: opts.UseTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create milvus client: %w", err)
	}

	return &milvusVectorIndex{
		milvusClient: milvusClient,
		collection:   opts.Collection,
		vectorSize:   opts.VectorSize,
	}, nil
}

func (s *milvusVectorIndex) EnsureCollection(ctx context.Context) error {
	hasCollection, err := s.milvusClient.HasCollection(ctx, s.collection)
	if err != nil {
		return apperrors.NewIndexWriteError("failed to check collection", err)
	}
	if hasCollection {
		return nil
	}

	schema := &entity.Schema{
		CollectionName: s.collection,
		Description:    "QA agent knowledge base vectors",
		Fields: []*entity.Field{
			{
				Name:       "id",
				DataType:   entity.FieldTypeVarChar,
				PrimaryKey: true,
				AutoID:     false,
				TypeParams: map[string]string{"max_length": "64"},
			},
			{
				Name:       "text",
				DataType:   entity.FieldTypeVarChar,
				TypeParams: map[string]string{"max_length": "65535"},
			},
			{
				Name:       "source",
				DataType:   entity.FieldTypeVarChar,
				TypeParams: map[string]string{"max_length": "512"},
			},
			{
				Name:       "file_type",
				DataType:   entity.FieldTypeVarChar,
				TypeParams: map[string]string{"max_length": "16"},
			},
			{
				Name:     "chunk_index",
				DataType: entity.FieldTypeInt64,
			},
			{
				Name:     "total_chunks",
				DataType: entity.FieldTypeInt64,
			},
			{
				Name:       "vector",
				DataType:   entity.FieldTypeFloatVector,
				TypeParams: map[string]string{"dim": fmt.Sprintf("%d", s.vectorSize)},
			},
		},
	}

	if err := s.milvusClient.CreateCollection(ctx, schema, entity.DefaultShardNumber); err != nil {
		return apperrors.NewIndexWriteError("failed to create collection", err)
	}

	// 余弦距离索引，HNSW失败时回退IVF_FLAT
	var index entity.Index
	var indexErr error
	index, indexErr = entity.NewIndexHNSW(entity.COSINE, 8, 64)
	if indexErr != nil {
		index, indexErr = entity.NewIndexIvfFlat(entity.COSINE, 128)
		if indexErr != nil {
			return apperrors.NewIndexWriteError("failed to create index", indexErr)
		}
	}
	if err := s.milvusClient.CreateIndex(ctx, s.collection, "vector", index, false); err != nil {
		// 索引创建失败不影响使用，只记录警告
		logger.Warn(fmt.Sprintf("failed to create index for collection %s: %v", s.collection, err))
	}

	if err := s.milvusClient.LoadCollection(ctx, s.collection, false); err != nil {
		logger.Warn(fmt.Sprintf("failed to load collection %s: %v", s.collection, err))
	}

	return nil
}

func (s *milvusVectorIndex) Upsert(ctx context.Context, points []IndexedPoint) (int, error) {
	if len(points) == 0 {
		return 0, nil
	}

	if err := s.EnsureCollection(ctx); err != nil {
		return 0, err
	}

	ids := make([]string, 0, len(points))
	texts := make([]string, 0, len(points))
	sources := make([]string, 0, len(points))
	fileTypes := make([]string, 0, len(points))
	chunkIndexes := make([]int64, 0, len(points))
	totalChunks := make([]int64, 0, len(points))
	vectors := make([][]float32, 0, len(points))

	for _, point := range points {
		if len(point.Vector) != s.vectorSize {
			return 0, apperrors.NewIndexWriteError(
				fmt.Sprintf("vector size mismatch: want %d got %d", s.vectorSize, len(point.Vector)), nil)
		}
		ids = append(ids, point.ID)
		texts = append(texts, point.Payload.Text)
		sources = append(sources, point.Payload.Source)
		fileTypes = append(fileTypes, point.Payload.FileType)
		chunkIndexes = append(chunkIndexes, int64(point.Payload.ChunkIndex))
		totalChunks = append(totalChunks, int64(point.Payload.TotalChunks))
		vectors = append(vectors, point.Vector)
	}

	_, err := s.milvusClient.Insert(ctx, s.collection, "",
		entity.NewColumnVarChar("id", ids),
		entity.NewColumnVarChar("text", texts),
		entity.NewColumnVarChar("source", sources),
		entity.NewColumnVarChar("file_type", fileTypes),
		entity.NewColumnInt64("chunk_index", chunkIndexes),
		entity.NewColumnInt64("total_chunks", totalChunks),
		entity.NewColumnFloatVector("vector", s.vectorSize, vectors),
	)
	if err != nil {
		return 0, apperrors.NewIndexWriteError("milvus insert failed", err)
	}

	if err := s.milvusClient.Flush(ctx, s.collection, false); err != nil {
		logger.Warn(fmt.Sprintf("failed to flush collection %s: %v", s.collection, err))
	}

	return len(points), nil
}

func (s *milvusVectorIndex) Search(ctx context.Context, vector []float32, limit int, scoreThreshold float64) ([]ScoredPoint, error) {
	if len(vector) == 0 {
		return nil, nil
	}
	if limit <= 0 {
		limit = 10
	}

	hasCollection, err := s.milvusClient.HasCollection(ctx, s.collection)
	if err != nil {
		return nil, apperrors.NewIndexQueryError("failed to check collection", err)
	}
	if !hasCollection {
		return []ScoredPoint{}, nil
	}

	sp, _ := entity.NewIndexHNSWSearchParam(64)
	searchResults, err := s.milvusClient.Search(
		ctx,
		s.collection,
		[]string{},
		"",
		[]string{"text", "source", "file_type", "chunk_index", "total_chunks"},
		[]entity.Vector{entity.FloatVector(vector)},
		"vector",
		entity.COSINE,
		limit,
		sp,
	)
	if err != nil {
		return nil, apperrors.NewIndexQueryError("milvus search failed", err)
	}

	if len(searchResults) == 0 {
		return []ScoredPoint{}, nil
	}
	result := searchResults[0]
	if result.Err != nil {
		return nil, apperrors.NewIndexQueryError("milvus search error", result.Err)
	}
	if result.ResultCount == 0 {
		return []ScoredPoint{}, nil
	}

	texts := varCharColumn(result.Fields, "text")
	sources := varCharColumn(result.Fields, "source")
	fileTypes := varCharColumn(result.Fields, "file_type")
	chunkIndexes := int64Column(result.Fields, "chunk_index")
	totals := int64Column(result.Fields, "total_chunks")

	matches := make([]ScoredPoint, 0, result.ResultCount)
	for i := 0; i < result.ResultCount; i++ {
		score := float64(0)
		if i < len(result.Scores) {
			score = float64(result.Scores[i])
		}
		// 阈值过滤在客户端完成
		if score < scoreThreshold {
			continue
		}

		payload := PointPayload{}
		if i < len(texts) {
			payload.Text = texts[i]
		}
		if i < len(sources) {
			payload.Source = sources[i]
		}
		if i < len(fileTypes) {
			payload.FileType = fileTypes[i]
		}
		if i < len(chunkIndexes) {
			payload.ChunkIndex = int(chunkIndexes[i])
		}
		if i < len(totals) {
			payload.TotalChunks = int(totals[i])
		}

		matches = append(matches, ScoredPoint{Payload: payload, Score: score})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})

	return matches, nil
}

func (s *milvusVectorIndex) Stats(ctx context.Context) (CollectionStats, error) {
	hasCollection, err := s.milvusClient.HasCollection(ctx, s.collection)
	if err != nil {
		return CollectionStats{}, apperrors.NewIndexQueryError("failed to check collection", err)
	}
	if !hasCollection {
		return CollectionStats{Exists: false}, nil
	}

	stats, err := s.milvusClient.GetCollectionStatistics(ctx, s.collection)
	if err != nil {
		return CollectionStats{}, apperrors.NewIndexQueryError("milvus collection statistics failed", err)
	}

	var count int64
	if raw, ok := stats["row_count"]; ok {
		count, _ = strconv.ParseInt(raw, 10, 64)
	}

	return CollectionStats{Exists: true, PointsCount: count, VectorsCount: count}, nil
}

func (s *milvusVectorIndex) Drop(ctx context.Context) error {
	hasCollection, err := s.milvusClient.HasCollection(ctx, s.collection)
	if err != nil {
		return apperrors.NewIndexWriteError("failed to check collection", err)
	}
	if !hasCollection {
		return nil
	}
	if err := s.milvusClient.DropCollection(ctx, s.collection); err != nil {
		return apperrors.NewIndexWriteError("milvus drop collection failed", err)
	}
	return nil
}

func (s *milvusVectorIndex) Ready() bool {
	if s.milvusClient == nil {
		return false
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, err := s.milvusClient.ListCollections(ctx)
	return err == nil
}

func varCharColumn(fields []entity.Column, name string) []string {
	for _, field := range fields {
		if field.Name() != name {
			continue
		}
		if col, ok := field.(*entity.ColumnVarChar); ok {
			return col.Data()
		}
	}
	return nil
}

func int64Column(fields []entity.Column, name string) []int64 {
	for _, field := range fields {
		if field.Name() != name {
			continue
		}
		if col, ok := field.(*entity.ColumnInt64); ok {
			return col.Data()
		}
	}
	return nil
}
