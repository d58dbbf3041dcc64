package qa

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	apperrors "github.com/qaagent/backend-go/internal/errors"
	"github.com/qaagent/backend-go/internal/knowledge"
	"github.com/qaagent/backend-go/internal/llm"
	"github.com/qaagent/backend-go/internal/logger"
	"github.com/qaagent/backend-go/internal/metrics"
)

const testCaseSystemPrompt = `You are an expert QA Engineer specializing in test case design.

Your responsibilities:
1. Analyze provided documentation carefully
2. Generate comprehensive, realistic test cases
3. Base ALL test cases strictly on the provided documentation
4. Include positive, negative, and edge case scenarios
5. Provide clear, actionable test steps
6. Specify expected results precisely
7. Reference source documents for traceability

CRITICAL RULES:
- NEVER invent features not mentioned in the documentation
- NEVER add functionality that doesn't exist
- ALWAYS cite the source document for each test case
- If information is unclear, state limitations rather than guess
- Focus on testable, verifiable scenarios

Output Format: Valid JSON array only, no markdown, no explanations.`

// GeneratorOptions 测试用例生成器配置
type GeneratorOptions struct {
	TopK             int
	ScoreThreshold   float64
	MaxResults       int
	RejectUngrounded bool
}

// GenerateResult 一次测试用例生成的产物
type GenerateResult struct {
	TestCases      []TestCase      `json:"test_cases"`
	TotalGenerated int             `json:"total_generated"`
	SourcesUsed    []string        `json:"sources_used"`
	Report         GroundingReport `json:"grounding_report"`
	ParseMode      ParseMode       `json:"-"`
}

// TestCaseGenerator 基于知识库检索生成测试用例
type TestCaseGenerator struct {
	retriever *knowledge.Retriever
	client    llm.Client
	validator *GroundingValidator
	metrics   *metrics.Collector
	opts      GeneratorOptions
	logger    *zap.Logger
}

// NewTestCaseGenerator 创建测试用例生成器
func NewTestCaseGenerator(retriever *knowledge.Retriever, client llm.Client, collector *metrics.Collector, opts GeneratorOptions) *TestCaseGenerator {
	if opts.TopK <= 0 {
		opts.TopK = 8
	}
	if opts.ScoreThreshold == 0 {
		opts.ScoreThreshold = 0.5
	}
	if opts.MaxResults <= 0 {
		opts.MaxResults = 10
	}
	return &TestCaseGenerator{
		retriever: retriever,
		client:    client,
		validator: NewGroundingValidator(opts.RejectUngrounded),
		metrics:   collector,
		opts:      opts,
		logger:    logger.GetLogger(),
	}
}

// Generate 检索 → 提示词构建 → 补全 → 解析 → 接地校验。
// 知识库无命中或全部用例被剔除时返回显式失败，不会静默返回空结果
func (g *TestCaseGenerator) Generate(ctx context.Context, query string) (*GenerateResult, error) {
	g.logger.Info("generating test cases", zap.String("query", query))

	passages, err := g.retriever.Retrieve(ctx, query, g.opts.TopK, g.opts.ScoreThreshold)
	if err != nil {
		g.recordOutcome("test_cases", "error")
		return nil, err
	}
	if len(passages) == 0 {
		g.recordOutcome("test_cases", "no_context")
		return nil, apperrors.NewGenerationError(
			"no relevant documentation found, build the knowledge base first", nil)
	}

	sources := knowledge.SourcesUsed(passages)
	g.logger.Info("retrieved context for generation",
		zap.Int("passages", len(passages)),
		zap.Int("sources", len(sources)))

	response, err := g.client.Complete(ctx, llm.CompletionRequest{
		System:      testCaseSystemPrompt,
		Prompt:      g.buildPrompt(query, passages),
		Temperature: 0.2,
		MaxTokens:   2048,
	})
	if err != nil {
		g.recordOutcome("test_cases", "error")
		return nil, err
	}

	parsed, err := ParseTestCases(response)
	g.recordParse(parsed.Mode)
	if err != nil {
		g.recordOutcome("test_cases", "parse_failed")
		return nil, err
	}

	validated, report := g.validator.Validate(parsed.TestCases, sources)
	if g.metrics != nil {
		g.metrics.TestCasesValidated(report.Survived, report.Dropped)
	}
	if len(validated) == 0 {
		g.recordOutcome("test_cases", "all_dropped")
		return nil, apperrors.NewGenerationError(
			fmt.Sprintf("no test cases survived validation (%d generated, %d dropped)",
				report.Generated, report.Dropped), nil)
	}

	g.recordOutcome("test_cases", "success")
	g.logger.Info("test case generation finished",
		zap.Int("generated", report.Generated),
		zap.Int("survived", report.Survived),
		zap.Int("corrected", report.Corrected),
		zap.Int("dropped", report.Dropped))

	return &GenerateResult{
		TestCases:      validated,
		TotalGenerated: len(validated),
		SourcesUsed:    sources,
		Report:         report,
		ParseMode:      parsed.Mode,
	}, nil
}

// buildPrompt 组装带检索上下文的用户提示词，文档间用分隔符隔开
func (g *TestCaseGenerator) buildPrompt(query string, passages []knowledge.RetrievedPassage) string {
	docs := make([]string, 0, len(passages))
	for i, passage := range passages {
		docs = append(docs, fmt.Sprintf("[Document %d]\n%s", i+1, passage.Text))
	}
	contextText := strings.Join(docs, "\n\n---DOCUMENT---\n\n")

	return fmt.Sprintf(`Based on the provided documentation, generate comprehensive test cases for the following request:

"%s"

Requirements:
- Generate %d test cases (or fewer if not applicable)
- Include both positive and negative test scenarios
- Each test case must reference the source document
- Include specific test steps
- Provide clear expected results
- Only include features/functionality explicitly mentioned in the documentation
- DO NOT hallucinate or invent features not in the documentation

========= DOCUMENTATION =========
%s
========= END =========

Return ONLY a valid JSON array of test cases with this exact structure:
[
  {
    "test_id": "TC-001",
    "feature": "Feature name",
    "test_scenario": "Detailed scenario description",
    "test_type": "positive/negative/edge-case",
    "preconditions": "Any prerequisites",
    "test_steps": ["Step 1", "Step 2", "Step 3"],
    "expected_result": "What should happen",
    "grounded_in": "source_document.md",
    "priority": "High/Medium/Low"
  }
]

IMPORTANT: Return ONLY the JSON array, no markdown formatting, no explanations.`,
		query, g.opts.MaxResults, contextText)
}

func (g *TestCaseGenerator) recordOutcome(kind, outcome string) {
	if g.metrics != nil {
		g.metrics.GenerationFinished(kind, outcome)
	}
}

func (g *TestCaseGenerator) recordParse(mode ParseMode) {
	if g.metrics != nil {
		g.metrics.ParseOutcome(string(mode))
	}
}
