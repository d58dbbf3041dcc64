package knowledge

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	apperrors "github.com/qaagent/backend-go/internal/errors"
)

// QdrantOptions Qdrant客户端配置
type QdrantOptions struct {
	Endpoint   string
	APIKey     string
	Collection string
	VectorSize int
	Distance   string
	UseTLS     bool
	Timeout    time.Duration
}

type qdrantVectorIndex struct {
	client     *http.Client
	endpoint   string
	apiKey     string
	collection string
	vectorSize int
	distance   string
}

// NewQdrantVectorIndex 创建Qdrant向量索引
func NewQdrantVectorIndex(opts QdrantOptions) (VectorIndex, error) {
	if opts.Endpoint == "" {
		scheme := "http"
		if opts.UseTLS {
			scheme = "https"
		}
		opts.Endpoint = fmt.Sprintf("%s://localhost:6333", scheme)
	}

	if !strings.HasPrefix(opts.Endpoint, "http") {
		scheme := "http"
		if opts.UseTLS {
			scheme = "https"
		}
		opts.Endpoint = fmt.Sprintf("%s://%s", scheme, opts.Endpoint)
	}

	if opts.Collection == "" {
		opts.Collection = "qa_agent_knowledge_base"
	}
	if opts.VectorSize == 0 {
		opts.VectorSize = 1536
	}
	if opts.Distance == "" {
		opts.Distance = "Cosine"
	}

	timeout := opts.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}

	return &qdrantVectorIndex{
		client: &http.Client{
			Timeout: timeout,
		},
		endpoint:   strings.TrimSuffix(opts.Endpoint, "/"),
		apiKey:     opts.APIKey,
		collection: opts.Collection,
		vectorSize: opts.VectorSize,
		distance:   formatDistance(opts.Distance),
	}, nil
}

func formatDistance(value string) string {
	switch strings.ToLower(value) {
	case "dot", "dotproduct":
		return "Dot"
	case "euclid", "l2":
		return "Euclid"
	default:
		return "Cosine"
	}
}

func (s *qdrantVectorIndex) EnsureCollection(ctx context.Context) error {
	resp, err := s.doRequest(ctx, http.MethodGet, fmt.Sprintf("/collections/%s", s.collection), nil)
	if err == nil && resp.StatusCode == http.StatusOK {
		resp.Body.Close()
		return nil
	}
	if resp != nil {
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
	}

	body := map[string]interface{}{
		"vectors": map[string]interface{}{
			"size":     s.vectorSize,
			"distance": s.distance,
		},
	}
	resp, err = s.doRequest(ctx, http.MethodPut, fmt.Sprintf("/collections/%s", s.collection), body)
	if err != nil {
		return apperrors.NewIndexWriteError("create collection failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return apperrors.NewIndexWriteError(fmt.Sprintf("create collection %s failed: %s", s.collection, resp.Status), nil)
	}

	return nil
}

func (s *qdrantVectorIndex) Upsert(ctx context.Context, points []IndexedPoint) (int, error) {
	if len(points) == 0 {
		return 0, nil
	}

	if err := s.EnsureCollection(ctx); err != nil {
		return 0, err
	}

	body := make([]map[string]interface{}, 0, len(points))
	for _, point := range points {
		if len(point.Vector) != s.vectorSize {
			return 0, apperrors.NewIndexWriteError(
				fmt.Sprintf("vector size mismatch: want %d got %d", s.vectorSize, len(point.Vector)), nil)
		}
		body = append(body, map[string]interface{}{
			"id":     point.ID,
			"vector": point.Vector,
			"payload": map[string]interface{}{
				"text":         point.Payload.Text,
				"source":       point.Payload.Source,
				"file_type":    point.Payload.FileType,
				"chunk_index":  point.Payload.ChunkIndex,
				"total_chunks": point.Payload.TotalChunks,
			},
		})
	}

	payload := map[string]interface{}{"points": body}
	resp, err := s.doRequest(ctx, http.MethodPut, fmt.Sprintf("/collections/%s/points?wait=true", s.collection), payload)
	if err != nil {
		return 0, apperrors.NewIndexWriteError("qdrant upsert failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(resp.Body)
		return 0, apperrors.NewIndexWriteError(fmt.Sprintf("qdrant upsert failed: %s %s", resp.Status, string(raw)), nil)
	}

	return len(points), nil
}

func (s *qdrantVectorIndex) Search(ctx context.Context, vector []float32, limit int, scoreThreshold float64) ([]ScoredPoint, error) {
	if len(vector) == 0 {
		return nil, nil
	}
	if limit <= 0 {
		limit = 10
	}

	body := map[string]interface{}{
		"vector":          vector,
		"limit":           limit,
		"with_payload":    true,
		"with_vectors":    false,
		"score_threshold": scoreThreshold,
	}

	resp, err := s.doRequest(ctx, http.MethodPost, fmt.Sprintf("/collections/%s/points/search", s.collection), body)
	if err != nil {
		return nil, apperrors.NewIndexQueryError("qdrant search failed", err)
	}
	defer resp.Body.Close()

	// 集合不存在视为空结果而不是错误
	if resp.StatusCode == http.StatusNotFound {
		io.Copy(io.Discard, resp.Body)
		return []ScoredPoint{}, nil
	}
	if resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(resp.Body)
		return nil, apperrors.NewIndexQueryError(fmt.Sprintf("qdrant search failed: %s %s", resp.Status, string(raw)), nil)
	}

	var searchResp struct {
		Result []struct {
			Score   float64                `json:"score"`
			Payload map[string]interface{} `json:"payload"`
		} `json:"result"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&searchResp); err != nil {
		return nil, apperrors.NewIndexQueryError("decode qdrant search response failed", err)
	}

	results := make([]ScoredPoint, 0, len(searchResp.Result))
	for _, item := range searchResp.Result {
		results = append(results, ScoredPoint{
			Payload: payloadFromMap(item.Payload),
			Score:   item.Score,
		})
	}

	return results, nil
}

func (s *qdrantVectorIndex) Stats(ctx context.Context) (CollectionStats, error) {
	resp, err := s.doRequest(ctx, http.MethodGet, fmt.Sprintf("/collections/%s", s.collection), nil)
	if err != nil {
		return CollectionStats{}, apperrors.NewIndexQueryError("qdrant collection info failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		io.Copy(io.Discard, resp.Body)
		return CollectionStats{Exists: false}, nil
	}
	if resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(resp.Body)
		return CollectionStats{}, apperrors.NewIndexQueryError(fmt.Sprintf("qdrant collection info failed: %s %s", resp.Status, string(raw)), nil)
	}

	var infoResp struct {
		Result struct {
			PointsCount  int64 `json:"points_count"`
			VectorsCount int64 `json:"vectors_count"`
		} `json:"result"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&infoResp); err != nil {
		return CollectionStats{}, apperrors.NewIndexQueryError("decode qdrant collection info failed", err)
	}

	return CollectionStats{
		Exists:       true,
		PointsCount:  infoResp.Result.PointsCount,
		VectorsCount: infoResp.Result.VectorsCount,
	}, nil
}

func (s *qdrantVectorIndex) Drop(ctx context.Context) error {
	resp, err := s.doRequest(ctx, http.MethodDelete, fmt.Sprintf("/collections/%s", s.collection), nil)
	if err != nil {
		return apperrors.NewIndexWriteError("qdrant drop collection failed", err)
	}
	defer resp.Body.Close()

	// 已不存在同样视为删除成功
	if resp.StatusCode >= 300 && resp.StatusCode != http.StatusNotFound {
		raw, _ := io.ReadAll(resp.Body)
		return apperrors.NewIndexWriteError(fmt.Sprintf("qdrant drop collection failed: %s %s", resp.Status, string(raw)), nil)
	}

	return nil
}

func (s *qdrantVectorIndex) Ready() bool {
	return s.client != nil
}

func payloadFromMap(payload map[string]interface{}) PointPayload {
	out := PointPayload{}
	if val, ok := payload["text"].(string); ok {
		out.Text = val
	}
	if val, ok := payload["source"].(string); ok {
		out.Source = val
	}
	if val, ok := payload["file_type"].(string); ok {
		out.FileType = val
	}
	out.ChunkIndex = int(parsePayloadInt(payload["chunk_index"]))
	out.TotalChunks = int(parsePayloadInt(payload["total_chunks"]))
	return out
}

func parsePayloadInt(val interface{}) int64 {
	switch v := val.(type) {
	case float64:
		return int64(v)
	case int:
		return int64(v)
	case int64:
		return v
	case json.Number:
		out, _ := v.Int64()
		return out
	case string:
		var out int64
		fmt.Sscanf(v, "%d", &out)
		return out
	default:
		return 0
	}
}

func (s *qdrantVectorIndex) doRequest(ctx context.Context, method, path string, body interface{}) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, s.endpoint+path, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if s.apiKey != "" {
		req.Header.Set("api-key", s.apiKey)
	}

	return s.client.Do(req)
}
