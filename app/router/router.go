package router

import (
	"github.com/beego/beego/v2/server/web"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/qaagent/backend-go/app/controllers"
)

// Init registers all routes. Must be called after config is loaded.
func Init() {
	web.Router("/", &controllers.RootController{}, "get:Index")
	web.Router("/health", &controllers.HealthController{}, "get:Health")

	documentController := &controllers.DocumentController{}
	web.Router("/api/upload-documents", documentController, "post:UploadDocuments")
	web.Router("/api/upload-html", documentController, "post:UploadHTML")

	knowledgeBaseController := &controllers.KnowledgeBaseController{}
	web.Router("/api/knowledge-base/status", knowledgeBaseController, "get:Status")
	web.Router("/api/knowledge-base/reset", knowledgeBaseController, "delete:Reset")

	generationController := &controllers.GenerationController{}
	web.Router("/api/generate-test-cases", generationController, "post:GenerateTestCases")
	web.Router("/api/generate-script", generationController, "post:GenerateScript")

	// Prometheus抓取端点
	web.Handler("/metrics", promhttp.Handler())
}
