package bootstrap

import (
	"fmt"
	"log"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/qaagent/backend-go/app/controllers"
	"github.com/qaagent/backend-go/internal/config"
	"github.com/qaagent/backend-go/internal/knowledge"
	"github.com/qaagent/backend-go/internal/llm"
	"github.com/qaagent/backend-go/internal/logger"
	"github.com/qaagent/backend-go/internal/metrics"
	"github.com/qaagent/backend-go/internal/qa"
	"github.com/qaagent/backend-go/internal/services"
)

// App encapsulates lifecycle resources that need to be cleaned up on shutdown.
type App struct {
	cleanupTasks []func() error
}

// Init bootstraps configuration, logger and the service graph required by the
// Beego application. All dependencies are wired here once; controllers read
// them through controllers.SetDeps.
func Init() (*App, error) {
	// Load environment variables from .env if present (non-fatal if missing).
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	// Initialize structured logger.
	if err := logger.InitLogger(); err != nil {
		return nil, err
	}

	// Load dynamic configuration.
	if err := config.LoadConfig(); err != nil {
		return nil, err
	}
	cfg := config.AppConfig

	app := &App{}

	embedder, err := knowledge.NewOpenAIEmbedder(
		cfg.OpenAI.APIKey,
		cfg.OpenAI.EmbeddingModel,
		cfg.Knowledge.VectorStore.Dimension,
	)
	if err != nil {
		return nil, err
	}

	index, err := buildVectorIndex(cfg)
	if err != nil {
		return nil, err
	}

	llmClient, err := llm.NewOpenAIClient(llm.OpenAIClientOptions{
		APIKey: cfg.OpenAI.APIKey,
		Model:  cfg.OpenAI.Model,
	})
	if err != nil {
		return nil, err
	}

	collector := metrics.NewCollector()
	retriever := knowledge.NewRetriever(embedder, index)
	processor := knowledge.NewProcessor(cfg.Knowledge.ChunkSize, cfg.Knowledge.ChunkOverlap)

	knowledgeService := services.NewKnowledgeService(processor, embedder, index, collector)

	testCaseGenerator := qa.NewTestCaseGenerator(retriever, llmClient, collector, qa.GeneratorOptions{
		TopK:             cfg.Knowledge.Retrieval.TopK,
		ScoreThreshold:   cfg.Knowledge.Retrieval.ScoreThreshold,
		RejectUngrounded: cfg.Generation.RejectUngrounded,
	})
	scriptGenerator := qa.NewScriptGenerator(retriever, llmClient, collector, qa.ScriptGeneratorOptions{
		ScoreThreshold: cfg.Knowledge.Retrieval.ScoreThreshold,
	})

	controllers.SetDeps(controllers.Deps{
		Knowledge: knowledgeService,
		TestCases: testCaseGenerator,
		Scripts:   scriptGenerator,
		Embedder:  embedder,
		Index:     index,
		LLM:       llmClient,
	})

	logger.Info("application bootstrapped",
		zap.String("vector_store", cfg.Knowledge.VectorStore.Provider),
		zap.String("collection", cfg.Knowledge.VectorStore.Collection),
		zap.String("embedding_model", cfg.OpenAI.EmbeddingModel),
		zap.String("model", cfg.OpenAI.Model))

	return app, nil
}

// buildVectorIndex 按配置选择向量索引实现
func buildVectorIndex(cfg *config.Config) (knowledge.VectorIndex, error) {
	store := cfg.Knowledge.VectorStore
	switch store.Provider {
	case "qdrant", "":
		return knowledge.NewQdrantVectorIndex(knowledge.QdrantOptions{
			Endpoint:   store.Qdrant.Endpoint,
			APIKey:     store.Qdrant.APIKey,
			Collection: store.Collection,
			VectorSize: store.Dimension,
			UseTLS:     store.Qdrant.UseTLS,
			Timeout:    store.Qdrant.Timeout,
		})
	case "milvus":
		return knowledge.NewMilvusVectorIndex(knowledge.MilvusOptions{
			Address:    store.Milvus.Address,
			Username:   store.Milvus.Username,
			Password:   store.Milvus.Password,
			Collection: store.Collection,
			VectorSize: store.Dimension,
			Database:   store.Milvus.Database,
			UseTLS:     store.Milvus.TLS,
			Timeout:    store.Milvus.Timeout,
		})
	case "memory":
		return knowledge.NewMemoryVectorIndex(), nil
	default:
		return nil, fmt.Errorf("unknown vector store provider: %s", store.Provider)
	}
}

// Shutdown flushes/logs and closes resources gracefully.
func (a *App) Shutdown() {
	for i := len(a.cleanupTasks) - 1; i >= 0; i-- {
		if err := a.cleanupTasks[i](); err != nil {
			log.Printf("Cleanup error: %v\n", err)
		}
	}

	logger.Sync()
}
