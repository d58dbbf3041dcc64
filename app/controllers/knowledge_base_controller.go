package controllers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/qaagent/backend-go/internal/logger"
)

// KnowledgeBaseController 知识库状态与生命周期
type KnowledgeBaseController struct {
	BaseController
}

// Status 实时查询向量索引返回知识库状态
func (c *KnowledgeBaseController) Status() {
	status, err := deps.Knowledge.Status(c.Ctx.Request.Context())
	if err != nil {
		logger.Error("knowledge base status failed", zap.Error(err))
		c.JSONAppError(err)
		return
	}

	c.JSON(http.StatusOK, status)
}

// Reset 清空知识库
func (c *KnowledgeBaseController) Reset() {
	if err := deps.Knowledge.Reset(c.Ctx.Request.Context()); err != nil {
		logger.Error("knowledge base reset failed", zap.Error(err))
		c.JSONAppError(err)
		return
	}

	c.JSON(http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Knowledge base reset successfully",
	})
}
