package controllers

import "net/http"

// RootController 根路径信息
type RootController struct {
	BaseController
}

func (c *RootController) Index() {
	c.JSON(http.StatusOK, map[string]interface{}{
		"message": "Autonomous QA Agent API",
		"version": "1.0.0",
		"status":  "running",
	})
}

// HealthController 健康检查
type HealthController struct {
	BaseController
}

// Health 上报各依赖组件的可用性
func (c *HealthController) Health() {
	embedderReady := deps.Embedder != nil && deps.Embedder.Ready()
	indexReady := deps.Index != nil && deps.Index.Ready()
	llmReady := deps.LLM != nil && deps.LLM.Ready()

	status := "healthy"
	if !embedderReady || !indexReady || !llmReady {
		status = "degraded"
	}

	c.JSON(http.StatusOK, map[string]interface{}{
		"status":                 status,
		"vector_store_connected": indexReady,
		"llm_available":          llmReady,
		"embedding_model_loaded": embedderReady,
	})
}
