package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	require.NoError(t, LoadConfig())
	require.NotNil(t, AppConfig)

	assert.Equal(t, "8000", AppConfig.Server.Port)
	assert.Equal(t, 1000, AppConfig.Knowledge.ChunkSize)
	assert.Equal(t, 200, AppConfig.Knowledge.ChunkOverlap)
	assert.Equal(t, 8, AppConfig.Knowledge.Retrieval.TopK)
	assert.Equal(t, 0.5, AppConfig.Knowledge.Retrieval.ScoreThreshold)
	assert.Equal(t, "qa_agent_knowledge_base", AppConfig.Knowledge.VectorStore.Collection)
	assert.Equal(t, 1536, AppConfig.Knowledge.VectorStore.Dimension)
	assert.False(t, AppConfig.Generation.RejectUngrounded)
}

func TestLoadConfig_EnvOverride(t *testing.T) {
	t.Setenv("QDRANT_URL", "http://qdrant.internal:6333")
	t.Setenv("OPENAI_MODEL", "gpt-4o")

	require.NoError(t, LoadConfig())

	assert.Equal(t, "http://qdrant.internal:6333", AppConfig.Knowledge.VectorStore.Qdrant.Endpoint)
	assert.Equal(t, "qdrant", AppConfig.Knowledge.VectorStore.Provider)
	assert.Equal(t, "gpt-4o", AppConfig.OpenAI.Model)
}

func TestGetAppConfig_LazyLoad(t *testing.T) {
	AppConfig = nil
	cfg := GetAppConfig()
	require.NotNil(t, cfg)
	assert.Equal(t, "qdrant", cfg.Knowledge.VectorStore.Provider)
}
