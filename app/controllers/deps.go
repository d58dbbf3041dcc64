package controllers

import (
	"github.com/qaagent/backend-go/internal/knowledge"
	"github.com/qaagent/backend-go/internal/llm"
	"github.com/qaagent/backend-go/internal/qa"
	"github.com/qaagent/backend-go/internal/services"
)

// Deps 控制器依赖集合。
// beego每个请求都会实例化新的controller，依赖在启动时装配一次，
// 控制器在Prepare里取用
type Deps struct {
	Knowledge *services.KnowledgeService
	TestCases *qa.TestCaseGenerator
	Scripts   *qa.ScriptGenerator
	Embedder  knowledge.Embedder
	Index     knowledge.VectorIndex
	LLM       llm.Client
}

var deps Deps

// SetDeps 装配控制器依赖，启动时调用一次
func SetDeps(d Deps) {
	deps = d
}
