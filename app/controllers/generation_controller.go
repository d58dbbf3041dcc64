package controllers

import (
	"encoding/json"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/qaagent/backend-go/internal/logger"
	"github.com/qaagent/backend-go/internal/qa"
)

// GenerationController 测试用例与脚本生成
type GenerationController struct {
	BaseController
}

type generateTestCasesRequest struct {
	Query string `json:"query"`
}

// GenerateTestCases 基于知识库检索生成测试用例
func (c *GenerationController) GenerateTestCases() {
	var req generateTestCasesRequest
	if err := json.Unmarshal(c.Ctx.Input.RequestBody, &req); err != nil {
		c.JSONError(http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		c.JSONError(http.StatusBadRequest, "query is required")
		return
	}

	result, err := deps.TestCases.Generate(c.Ctx.Request.Context(), req.Query)
	if err != nil {
		logger.Error("test case generation failed", zap.Error(err), zap.String("query", req.Query))
		c.JSONAppError(err)
		return
	}

	c.JSON(http.StatusOK, map[string]interface{}{
		"success":         true,
		"test_cases":      result.TestCases,
		"total_generated": result.TotalGenerated,
		"sources_used":    result.SourcesUsed,
	})
}

type generateScriptRequest struct {
	TestCase    qa.TestCase `json:"test_case"`
	HTMLContent string      `json:"html_content"`
}

// GenerateScript 为测试用例生成Selenium脚本。
// 页面HTML随请求传入，不依赖上传时的暂存
func (c *GenerationController) GenerateScript() {
	var req generateScriptRequest
	if err := json.Unmarshal(c.Ctx.Input.RequestBody, &req); err != nil {
		c.JSONError(http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.HTMLContent) == "" {
		c.JSONError(http.StatusBadRequest, "html_content is required")
		return
	}
	if strings.TrimSpace(req.TestCase.TestID) == "" {
		req.TestCase.Normalize(0)
	}

	result, err := deps.Scripts.Generate(c.Ctx.Request.Context(), req.TestCase, req.HTMLContent)
	if err != nil {
		logger.Error("script generation failed", zap.Error(err), zap.String("test_id", req.TestCase.TestID))
		c.JSONAppError(err)
		return
	}

	c.JSON(http.StatusOK, map[string]interface{}{
		"success":      true,
		"script":       result.Script,
		"test_case_id": result.TestCaseID,
		"language":     result.Language,
	})
}
