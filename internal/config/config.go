package config

import (
	"os"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server     ServerConfig
	OpenAI     OpenAIConfig
	Knowledge  KnowledgeConfig
	Generation GenerationConfig
}

type ServerConfig struct {
	Port string
	Env  string
}

type OpenAIConfig struct {
	APIKey         string
	Model          string
	EmbeddingModel string
	MaxTokens      int
	Temperature    float64
	Timeout        time.Duration
}

type KnowledgeConfig struct {
	ChunkSize    int
	ChunkOverlap int
	Retrieval    RetrievalConfig
	VectorStore  VectorStoreConfig
}

type RetrievalConfig struct {
	TopK           int
	ScoreThreshold float64
}

type VectorStoreConfig struct {
	Provider   string // qdrant | milvus | memory
	Dimension  int
	Collection string
	Qdrant     QdrantConfig
	Milvus     MilvusConfig
}

type QdrantConfig struct {
	Endpoint string
	APIKey   string
	UseTLS   bool
	Timeout  time.Duration
}

type MilvusConfig struct {
	Address  string
	Username string
	Password string
	Database string
	TLS      bool
	Timeout  time.Duration
}

type GenerationConfig struct {
	// RejectUngrounded 为true时直接丢弃引用未检索来源的测试用例，
	// 为false时将其引用改写为第一个可用来源并记录警告
	RejectUngrounded bool
}

var AppConfig *Config

// LoadConfig 加载配置（默认值 + 环境变量覆盖）
func LoadConfig() error {
	// 设置默认值
	viper.SetDefault("server.port", "8000")
	viper.SetDefault("server.env", "development")

	// OpenAI配置默认值
	viper.SetDefault("openai.model", "gpt-4o-mini")
	viper.SetDefault("openai.embedding_model", "text-embedding-3-small")
	viper.SetDefault("openai.max_tokens", 2048)
	viper.SetDefault("openai.temperature", 0.2)
	viper.SetDefault("openai.timeout", "60s")

	// 知识库配置默认值
	viper.SetDefault("knowledge.chunk_size", 1000)
	viper.SetDefault("knowledge.chunk_overlap", 200)
	viper.SetDefault("knowledge.retrieval.top_k", 8)
	viper.SetDefault("knowledge.retrieval.score_threshold", 0.5)
	viper.SetDefault("knowledge.vector_store.provider", "qdrant")
	viper.SetDefault("knowledge.vector_store.dimension", 1536)
	viper.SetDefault("knowledge.vector_store.collection", "qa_agent_knowledge_base")
	viper.SetDefault("knowledge.vector_store.qdrant.endpoint", "http://localhost:6333")
	viper.SetDefault("knowledge.vector_store.qdrant.use_tls", false)
	viper.SetDefault("knowledge.vector_store.qdrant.timeout", "10s")
	viper.SetDefault("knowledge.vector_store.milvus.address", "localhost:19530")
	viper.SetDefault("knowledge.vector_store.milvus.database", "default")
	viper.SetDefault("knowledge.vector_store.milvus.tls", false)
	viper.SetDefault("knowledge.vector_store.milvus.timeout", "10s")

	// 生成配置默认值
	viper.SetDefault("generation.reject_ungrounded", false)

	// 读取环境变量
	viper.SetEnvPrefix("QAAGENT")
	viper.AutomaticEnv()

	// 常用环境变量直接读取
	if port := os.Getenv("PORT"); port != "" {
		viper.Set("server.port", port)
	}
	if apiKey := os.Getenv("OPENAI_API_KEY"); apiKey != "" {
		viper.Set("openai.api_key", apiKey)
	}
	if model := os.Getenv("OPENAI_MODEL"); model != "" {
		viper.Set("openai.model", model)
	}
	if url := os.Getenv("QDRANT_URL"); url != "" {
		viper.Set("knowledge.vector_store.qdrant.endpoint", url)
		viper.Set("knowledge.vector_store.provider", "qdrant")
	}
	if apiKey := os.Getenv("QDRANT_API_KEY"); apiKey != "" {
		viper.Set("knowledge.vector_store.qdrant.api_key", apiKey)
	}
	if addr := os.Getenv("MILVUS_ADDRESS"); addr != "" {
		viper.Set("knowledge.vector_store.milvus.address", addr)
		viper.Set("knowledge.vector_store.provider", "milvus")
	}

	AppConfig = &Config{
		Server: ServerConfig{
			Port: viper.GetString("server.port"),
			Env:  viper.GetString("server.env"),
		},
		OpenAI: OpenAIConfig{
			APIKey:         viper.GetString("openai.api_key"),
			Model:          viper.GetString("openai.model"),
			EmbeddingModel: viper.GetString("openai.embedding_model"),
			MaxTokens:      viper.GetInt("openai.max_tokens"),
			Temperature:    viper.GetFloat64("openai.temperature"),
			Timeout:        viper.GetDuration("openai.timeout"),
		},
		Knowledge: KnowledgeConfig{
			ChunkSize:    viper.GetInt("knowledge.chunk_size"),
			ChunkOverlap: viper.GetInt("knowledge.chunk_overlap"),
			Retrieval: RetrievalConfig{
				TopK:           viper.GetInt("knowledge.retrieval.top_k"),
				ScoreThreshold: viper.GetFloat64("knowledge.retrieval.score_threshold"),
			},
			VectorStore: VectorStoreConfig{
				Provider:   viper.GetString("knowledge.vector_store.provider"),
				Dimension:  viper.GetInt("knowledge.vector_store.dimension"),
				Collection: viper.GetString("knowledge.vector_store.collection"),
				Qdrant: QdrantConfig{
					Endpoint: viper.GetString("knowledge.vector_store.qdrant.endpoint"),
					APIKey:   viper.GetString("knowledge.vector_store.qdrant.api_key"),
					UseTLS:   viper.GetBool("knowledge.vector_store.qdrant.use_tls"),
					Timeout:  viper.GetDuration("knowledge.vector_store.qdrant.timeout"),
				},
				Milvus: MilvusConfig{
					Address:  viper.GetString("knowledge.vector_store.milvus.address"),
					Username: viper.GetString("knowledge.vector_store.milvus.username"),
					Password: viper.GetString("knowledge.vector_store.milvus.password"),
					Database: viper.GetString("knowledge.vector_store.milvus.database"),
					TLS:      viper.GetBool("knowledge.vector_store.milvus.tls"),
					Timeout:  viper.GetDuration("knowledge.vector_store.milvus.timeout"),
				},
			},
		},
		Generation: GenerationConfig{
			RejectUngrounded: viper.GetBool("generation.reject_ungrounded"),
		},
	}

	return nil
}

// GetAppConfig 获取全局配置（未加载时返回默认配置）
func GetAppConfig() *Config {
	if AppConfig == nil {
		_ = LoadConfig()
	}
	return AppConfig
}
