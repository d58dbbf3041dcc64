package knowledge

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/qaagent/backend-go/internal/errors"
)

// fakeQdrant 模拟Qdrant REST接口的最小实现
type fakeQdrant struct {
	mu            sync.Mutex
	collection    string
	exists        bool
	points        []map[string]interface{}
	createCalls   int
	searchResults []map[string]interface{}
}

func (f *fakeQdrant) handler() http.Handler {
	mux := http.NewServeMux()
	collectionPath := "/collections/" + f.collection

	mux.HandleFunc(collectionPath, func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		switch r.Method {
		case http.MethodGet:
			if !f.exists {
				w.WriteHeader(http.StatusNotFound)
				return
			}
			json.NewEncoder(w).Encode(map[string]interface{}{
				"result": map[string]interface{}{
					"points_count":  len(f.points),
					"vectors_count": len(f.points),
				},
			})
		case http.MethodPut:
			f.exists = true
			f.createCalls++
			json.NewEncoder(w).Encode(map[string]interface{}{"result": true})
		case http.MethodDelete:
			if !f.exists {
				w.WriteHeader(http.StatusNotFound)
				return
			}
			f.exists = false
			f.points = nil
			json.NewEncoder(w).Encode(map[string]interface{}{"result": true})
		}
	})

	mux.HandleFunc(collectionPath+"/points", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		var body struct {
			Points []map[string]interface{} `json:"points"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		f.points = append(f.points, body.Points...)
		json.NewEncoder(w).Encode(map[string]interface{}{"result": map[string]interface{}{"status": "acknowledged"}})
	})

	mux.HandleFunc(collectionPath+"/points/search", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		if !f.exists {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		json.NewEncoder(w).Encode(map[string]interface{}{"result": f.searchResults})
	})

	return mux
}

func newQdrantUnderTest(t *testing.T, fake *fakeQdrant) VectorIndex {
	t.Helper()
	server := httptest.NewServer(fake.handler())
	t.Cleanup(server.Close)

	idx, err := NewQdrantVectorIndex(QdrantOptions{
		Endpoint:   server.URL,
		Collection: fake.collection,
		VectorSize: 3,
	})
	require.NoError(t, err)
	return idx
}

func TestQdrant_EnsureCollectionIdempotent(t *testing.T) {
	fake := &fakeQdrant{collection: "qa_test"}
	idx := newQdrantUnderTest(t, fake)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, idx.EnsureCollection(ctx))
	}

	// 集合只创建一次，后续调用是no-op
	assert.Equal(t, 1, fake.createCalls)
}

func TestQdrant_UpsertReturnsCount(t *testing.T) {
	fake := &fakeQdrant{collection: "qa_test"}
	idx := newQdrantUnderTest(t, fake)
	ctx := context.Background()

	points := []IndexedPoint{
		NewChunkPoint(Chunk{Text: "a", Source: "a.md", FileType: DocTypeMarkdown, ChunkIndex: 0, TotalChunks: 2}, []float32{1, 0, 0}),
		NewChunkPoint(Chunk{Text: "b", Source: "a.md", FileType: DocTypeMarkdown, ChunkIndex: 1, TotalChunks: 2}, []float32{0, 1, 0}),
	}

	count, err := idx.Upsert(ctx, points)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
	assert.Len(t, fake.points, 2)

	payload := fake.points[0]["payload"].(map[string]interface{})
	assert.Equal(t, "a.md", payload["source"])
	assert.Equal(t, "md", payload["file_type"])
	assert.Equal(t, float64(0), payload["chunk_index"])
	assert.Equal(t, float64(2), payload["total_chunks"])
}

func TestQdrant_UpsertVectorSizeMismatch(t *testing.T) {
	fake := &fakeQdrant{collection: "qa_test"}
	idx := newQdrantUnderTest(t, fake)

	_, err := idx.Upsert(context.Background(), []IndexedPoint{
		{ID: NewPointID(), Vector: []float32{1, 0}, Payload: PointPayload{Text: "x"}},
	})
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeIndexWrite))
}

func TestQdrant_SearchMissingCollectionReturnsEmpty(t *testing.T) {
	fake := &fakeQdrant{collection: "qa_test"}
	idx := newQdrantUnderTest(t, fake)

	results, err := idx.Search(context.Background(), []float32{1, 0, 0}, 5, 0.5)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestQdrant_SearchParsesPayload(t *testing.T) {
	fake := &fakeQdrant{
		collection: "qa_test",
		exists:     true,
		searchResults: []map[string]interface{}{
			{
				"score": 0.91,
				"payload": map[string]interface{}{
					"text":         "the checkout page has a place order button",
					"source":       "spec.md",
					"file_type":    "md",
					"chunk_index":  0,
					"total_chunks": 1,
				},
			},
			{
				"score": 0.62,
				"payload": map[string]interface{}{
					"text":         "shipping options",
					"source":       "shipping.md",
					"file_type":    "md",
					"chunk_index":  3,
					"total_chunks": 7,
				},
			},
		},
	}
	idx := newQdrantUnderTest(t, fake)

	results, err := idx.Search(context.Background(), []float32{1, 0, 0}, 5, 0.5)
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, "spec.md", results[0].Payload.Source)
	assert.Equal(t, 0.91, results[0].Score)
	assert.Equal(t, 3, results[1].Payload.ChunkIndex)
	assert.Equal(t, 7, results[1].Payload.TotalChunks)
}

func TestQdrant_StatsAndDrop(t *testing.T) {
	fake := &fakeQdrant{collection: "qa_test"}
	idx := newQdrantUnderTest(t, fake)
	ctx := context.Background()

	stats, err := idx.Stats(ctx)
	require.NoError(t, err)
	assert.False(t, stats.Exists)
	assert.Equal(t, int64(0), stats.PointsCount)

	_, err = idx.Upsert(ctx, []IndexedPoint{
		NewChunkPoint(Chunk{Text: "a", Source: "a.md", FileType: DocTypeMarkdown, TotalChunks: 1}, []float32{1, 0, 0}),
	})
	require.NoError(t, err)

	stats, err = idx.Stats(ctx)
	require.NoError(t, err)
	assert.True(t, stats.Exists)
	assert.Equal(t, int64(1), stats.PointsCount)

	// Drop幂等：删除一次后再删返回404也视为成功
	require.NoError(t, idx.Drop(ctx))
	require.NoError(t, idx.Drop(ctx))

	stats, err = idx.Stats(ctx)
	require.NoError(t, err)
	assert.False(t, stats.Exists)
}

func TestQdrant_EndpointNormalization(t *testing.T) {
	idx, err := NewQdrantVectorIndex(QdrantOptions{Endpoint: "qdrant.internal:6333"})
	require.NoError(t, err)

	q := idx.(*qdrantVectorIndex)
	assert.Equal(t, "http://qdrant.internal:6333", q.endpoint)
	assert.Equal(t, "Cosine", q.distance)
	assert.Equal(t, "qa_agent_knowledge_base", q.collection)
}
