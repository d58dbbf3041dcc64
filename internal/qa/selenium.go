package qa

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	apperrors "github.com/qaagent/backend-go/internal/errors"
	"github.com/qaagent/backend-go/internal/knowledge"
	"github.com/qaagent/backend-go/internal/llm"
	"github.com/qaagent/backend-go/internal/logger"
	"github.com/qaagent/backend-go/internal/metrics"
)

const seleniumSystemPrompt = `You are a senior automation engineer (10+ years experience).
Generate a production-grade Python Selenium script.

NON-NEGOTIABLE RULES:
1. Use ONLY element selectors provided in html_elements. NEVER invent selectors.
2. Forbidden selectors: generic XPaths (//button, //*). Do NOT use them.
3. Always use WebDriverWait (no time.sleep).
4. Use webdriver-manager for Chrome.
5. Every script MUST include at least one assertion validating the expected result.
6. If a required selector is missing, include:
   # ERROR: Selector missing in html_elements
7. Load checkout page using:
   driver.get("file://" + os.path.abspath("checkout.html"))
8. Output ONLY Python code (no markdown).`

// missingSelectorsScript 元素清单为空时的占位脚本，生成流程在此短路
const missingSelectorsScript = "# ERROR: html_elements is empty or missing.\n" +
	"# A Selenium script cannot be generated without selectors.\n"

var seleniumImports = []string{
	"from selenium import webdriver",
	"from selenium.webdriver.common.by import By",
	"from selenium.webdriver.support.ui import WebDriverWait",
	"from selenium.webdriver.support import expected_conditions as EC",
}

const seleniumImportsBlock = `from selenium import webdriver
from selenium.webdriver.common.by import By
from selenium.webdriver.support.ui import WebDriverWait
from selenium.webdriver.support import expected_conditions as EC
from selenium.webdriver.chrome.service import Service
from webdriver_manager.chrome import ChromeDriverManager
import os
import time

`

var (
	pythonFencePattern = regexp.MustCompile("(?m)^```python\\s*")
	bareFencePattern   = regexp.MustCompile("(?m)^```\\s*$")
)

// ElementInfo 页面元素及其定位提示
type ElementInfo struct {
	Tag            string `json:"tag"`
	Type           string `json:"type,omitempty"`
	ID             string `json:"id"`
	Name           string `json:"name"`
	Class          string `json:"class,omitempty"`
	Text           string `json:"text,omitempty"`
	Value          string `json:"value,omitempty"`
	Placeholder    string `json:"placeholder,omitempty"`
	OnClick        string `json:"onclick,omitempty"`
	Action         string `json:"action,omitempty"`
	Method         string `json:"method,omitempty"`
	SelectorByID   string `json:"selector_by_id,omitempty"`
	SelectorByName string `json:"selector_by_name,omitempty"`
	SelectorByText string `json:"selector_by_text,omitempty"`
}

// ElementInventory 目标页面的可交互元素清单
type ElementInventory struct {
	Buttons           []ElementInfo `json:"buttons"`
	Inputs            []ElementInfo `json:"inputs"`
	Selects           []ElementInfo `json:"selects"`
	Forms             []ElementInfo `json:"forms"`
	RadioButtons      []ElementInfo `json:"radio_buttons"`
	Textareas         []ElementInfo `json:"textareas"`
	AllIDs            []string      `json:"all_ids"`
	ClickableElements []ElementInfo `json:"clickable_elements"`
}

// Empty 清单中没有任何可定位元素
func (inv *ElementInventory) Empty() bool {
	return len(inv.Buttons) == 0 &&
		len(inv.Inputs) == 0 &&
		len(inv.Selects) == 0 &&
		len(inv.Forms) == 0 &&
		len(inv.RadioButtons) == 0 &&
		len(inv.Textareas) == 0 &&
		len(inv.ClickableElements) == 0
}

// AnalyzeHTML 解析页面HTML并提取可交互元素清单
func AnalyzeHTML(htmlContent string) (*ElementInventory, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlContent))
	if err != nil {
		return nil, apperrors.NewExtractionError("html parsing failed", err)
	}

	inv := &ElementInventory{
		Buttons:           []ElementInfo{},
		Inputs:            []ElementInfo{},
		Selects:           []ElementInfo{},
		Forms:             []ElementInfo{},
		RadioButtons:      []ElementInfo{},
		Textareas:         []ElementInfo{},
		AllIDs:            []string{},
		ClickableElements: []ElementInfo{},
	}

	doc.Find("button").Each(func(_ int, sel *goquery.Selection) {
		info := ElementInfo{
			Tag:     "button",
			ID:      sel.AttrOr("id", ""),
			Name:    sel.AttrOr("name", ""),
			Class:   sel.AttrOr("class", ""),
			OnClick: sel.AttrOr("onclick", ""),
			Text:    strings.TrimSpace(sel.Text()),
			Type:    sel.AttrOr("type", "button"),
		}
		if info.ID != "" {
			info.SelectorByID = fmt.Sprintf("By.ID, '%s'", info.ID)
			inv.AllIDs = append(inv.AllIDs, info.ID)
		}
		if info.Text != "" {
			info.SelectorByText = fmt.Sprintf("By.XPATH, \"//button[text()='%s']\"", info.Text)
		}
		inv.Buttons = append(inv.Buttons, info)
	})

	doc.Find("input").Each(func(_ int, sel *goquery.Selection) {
		info := ElementInfo{
			Tag:         "input",
			Type:        sel.AttrOr("type", "text"),
			ID:          sel.AttrOr("id", ""),
			Name:        sel.AttrOr("name", ""),
			Placeholder: sel.AttrOr("placeholder", ""),
			Class:       sel.AttrOr("class", ""),
			Value:       sel.AttrOr("value", ""),
		}
		if info.ID != "" {
			info.SelectorByID = fmt.Sprintf("By.ID, '%s'", info.ID)
			inv.AllIDs = append(inv.AllIDs, info.ID)
		}
		if info.Name != "" {
			info.SelectorByName = fmt.Sprintf("By.NAME, '%s'", info.Name)
		}
		if info.Type == "radio" {
			inv.RadioButtons = append(inv.RadioButtons, info)
		} else {
			inv.Inputs = append(inv.Inputs, info)
		}
	})

	doc.Find("textarea").Each(func(_ int, sel *goquery.Selection) {
		info := ElementInfo{
			Tag:         "textarea",
			ID:          sel.AttrOr("id", ""),
			Name:        sel.AttrOr("name", ""),
			Class:       sel.AttrOr("class", ""),
			Placeholder: sel.AttrOr("placeholder", ""),
		}
		if info.ID != "" {
			info.SelectorByID = fmt.Sprintf("By.ID, '%s'", info.ID)
			inv.AllIDs = append(inv.AllIDs, info.ID)
		}
		if info.Name != "" {
			info.SelectorByName = fmt.Sprintf("By.NAME, '%s'", info.Name)
		}
		inv.Textareas = append(inv.Textareas, info)
	})

	doc.Find("select").Each(func(_ int, sel *goquery.Selection) {
		info := ElementInfo{
			Tag:   "select",
			ID:    sel.AttrOr("id", ""),
			Name:  sel.AttrOr("name", ""),
			Class: sel.AttrOr("class", ""),
		}
		if info.ID != "" {
			info.SelectorByID = fmt.Sprintf("By.ID, '%s'", info.ID)
			inv.AllIDs = append(inv.AllIDs, info.ID)
		}
		if info.Name != "" {
			info.SelectorByName = fmt.Sprintf("By.NAME, '%s'", info.Name)
		}
		inv.Selects = append(inv.Selects, info)
	})

	doc.Find("form").Each(func(_ int, sel *goquery.Selection) {
		info := ElementInfo{
			Tag:    "form",
			ID:     sel.AttrOr("id", ""),
			Name:   sel.AttrOr("name", ""),
			Action: sel.AttrOr("action", ""),
			Method: sel.AttrOr("method", ""),
		}
		if info.ID != "" {
			info.SelectorByID = fmt.Sprintf("By.ID, '%s'", info.ID)
		}
		inv.Forms = append(inv.Forms, info)
	})

	doc.Find("[onclick]").Each(func(_ int, sel *goquery.Selection) {
		inv.ClickableElements = append(inv.ClickableElements, ElementInfo{
			Tag:     goquery.NodeName(sel),
			ID:      sel.AttrOr("id", ""),
			Text:    strings.TrimSpace(sel.Text()),
			OnClick: sel.AttrOr("onclick", ""),
		})
	})

	return inv, nil
}

// ScriptResult 脚本生成产物
type ScriptResult struct {
	Script     string `json:"script"`
	TestCaseID string `json:"test_case_id"`
	Language   string `json:"language"`
}

// ScriptGeneratorOptions 脚本生成器配置
type ScriptGeneratorOptions struct {
	TopK           int
	ScoreThreshold float64
}

// ScriptGenerator 把测试用例转换为Selenium Python脚本。
// 页面HTML由调用方随请求传入
type ScriptGenerator struct {
	retriever *knowledge.Retriever
	client    llm.Client
	metrics   *metrics.Collector
	opts      ScriptGeneratorOptions
	logger    *zap.Logger
}

// NewScriptGenerator 创建脚本生成器
func NewScriptGenerator(retriever *knowledge.Retriever, client llm.Client, collector *metrics.Collector, opts ScriptGeneratorOptions) *ScriptGenerator {
	if opts.TopK <= 0 {
		opts.TopK = 5
	}
	if opts.ScoreThreshold == 0 {
		opts.ScoreThreshold = 0.5
	}
	return &ScriptGenerator{
		retriever: retriever,
		client:    client,
		metrics:   collector,
		opts:      opts,
		logger:    logger.GetLogger(),
	}
}

// Generate 为测试用例生成Selenium脚本。
// 元素清单为空时直接返回占位失败脚本，不调用模型
func (g *ScriptGenerator) Generate(ctx context.Context, tc TestCase, htmlContent string) (*ScriptResult, error) {
	g.logger.Info("generating selenium script", zap.String("test_id", tc.TestID))

	inventory, err := AnalyzeHTML(htmlContent)
	if err != nil {
		g.recordOutcome("error")
		return nil, err
	}

	if inventory.Empty() {
		g.logger.Warn("element inventory is empty, skipping generation",
			zap.String("test_id", tc.TestID))
		g.recordOutcome("no_selectors")
		return &ScriptResult{
			Script:     missingSelectorsScript,
			TestCaseID: tc.TestID,
			Language:   "python",
		}, nil
	}

	// 检索失败不阻断脚本生成，上下文降级为空
	query := fmt.Sprintf("%s %s", tc.Feature, tc.TestScenario)
	passages, err := g.retriever.Retrieve(ctx, query, g.opts.TopK, g.opts.ScoreThreshold)
	if err != nil {
		g.logger.Warn("context retrieval failed, generating without context", zap.Error(err))
		passages = nil
	}

	prompt, err := g.buildPrompt(tc, inventory, passages)
	if err != nil {
		g.recordOutcome("error")
		return nil, err
	}

	raw, err := g.client.Complete(ctx, llm.CompletionRequest{
		System:      seleniumSystemPrompt,
		Prompt:      prompt,
		Temperature: 0.1,
		MaxTokens:   3072,
	})
	if err != nil {
		g.recordOutcome("error")
		return nil, err
	}

	g.recordOutcome("success")
	return &ScriptResult{
		Script:     CleanScript(raw),
		TestCaseID: tc.TestID,
		Language:   "python",
	}, nil
}

func (g *ScriptGenerator) buildPrompt(tc TestCase, inventory *ElementInventory, passages []knowledge.RetrievedPassage) (string, error) {
	elementsJSON, err := json.MarshalIndent(inventory, "", "  ")
	if err != nil {
		return "", apperrors.NewGenerationError("encode element inventory failed", err)
	}

	steps := make([]string, 0, len(tc.TestSteps))
	for _, step := range tc.TestSteps {
		steps = append(steps, "- "+step)
	}

	contextText := "No context"
	if len(passages) > 0 {
		contextText = passages[0].Text
	}

	return fmt.Sprintf(`Generate Selenium script for the following test case:

=== TEST CASE ===
Test ID: %s
Feature: %s
Scenario: %s
Type: %s
Preconditions: %s
Steps:
%s
Expected Result:
%s

=== HTML ELEMENTS ===
%s

=== CONTEXT (Documentation) ===
%s

Output:
- ONLY Python code
- No markdown
- No comments outside the Python script`,
		tc.TestID, tc.Feature, tc.TestScenario, tc.TestType, tc.Preconditions,
		strings.Join(steps, "\n"), tc.ExpectedResult, string(elementsJSON), contextText), nil
}

// CleanScript 去掉markdown围栏并确保selenium导入存在
func CleanScript(script string) string {
	script = pythonFencePattern.ReplaceAllString(script, "")
	script = bareFencePattern.ReplaceAllString(script, "")
	script = strings.TrimSpace(script)

	for _, imp := range seleniumImports {
		if strings.Contains(script, imp) {
			return script
		}
	}

	return seleniumImportsBlock + script
}

func (g *ScriptGenerator) recordOutcome(outcome string) {
	if g.metrics != nil {
		g.metrics.GenerationFinished("script", outcome)
	}
}
