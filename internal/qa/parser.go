package qa

import (
	"encoding/json"
	"regexp"
	"strings"

	"go.uber.org/zap"

	apperrors "github.com/qaagent/backend-go/internal/errors"
	"github.com/qaagent/backend-go/internal/logger"
)

// ParseMode 解析结果的获得方式
type ParseMode string

const (
	// ParseStrict 去围栏后整体解码成功
	ParseStrict ParseMode = "strict"
	// ParseRecovered 整体解码失败，从正文中提取JSON数组片段后解码成功
	ParseRecovered ParseMode = "recovered"
	// ParseFailed 两个阶段都失败
	ParseFailed ParseMode = "failed"
)

var (
	fenceOpenPattern  = regexp.MustCompile("^```(?:json)?\\s*")
	fenceClosePattern = regexp.MustCompile("\\s*```$")
	jsonArrayPattern  = regexp.MustCompile(`\[\s*\{[\s\S]*?\}\s*\]`)
)

// ParseResult 解析结果及其获得方式
type ParseResult struct {
	TestCases []TestCase
	Mode      ParseMode
}

// ParseTestCases 两阶段解析模型输出。
// 先去掉可选的markdown代码围栏整体解码；失败则搜索正文中第一个
// JSON数组形状的片段重试。两次都失败返回ParseError，绝不静默返回部分结果。
// 单个对象字段级解码失败只丢弃该对象并告警，批次整体存活
func ParseTestCases(raw string) (ParseResult, error) {
	log := logger.GetLogger()

	cleaned := stripFence(raw)

	if cases, ok := decodeArray(cleaned, log); ok {
		return ParseResult{TestCases: cases, Mode: ParseStrict}, nil
	}

	if fragment := jsonArrayPattern.FindString(raw); fragment != "" {
		if cases, ok := decodeArray(fragment, log); ok {
			log.Warn("strict parse failed, recovered json array from response body",
				zap.Int("fragment_chars", len(fragment)))
			return ParseResult{TestCases: cases, Mode: ParseRecovered}, nil
		}
	}

	preview := raw
	if len(preview) > 200 {
		preview = preview[:200]
	}
	log.Error("test case parsing failed", zap.String("response_preview", preview))

	return ParseResult{Mode: ParseFailed},
		apperrors.NewParseError("model response is not a valid test case array", nil)
}

// decodeArray 宽松解码：先按原始JSON对象切分，再逐个解码，
// 坏对象丢弃而不是让整批失败
func decodeArray(text string, log *zap.Logger) ([]TestCase, bool) {
	var rawItems []json.RawMessage
	if err := json.Unmarshal([]byte(text), &rawItems); err != nil {
		return nil, false
	}

	cases := make([]TestCase, 0, len(rawItems))
	for i, item := range rawItems {
		var tc TestCase
		if err := json.Unmarshal(item, &tc); err != nil {
			log.Warn("dropping malformed test case object",
				zap.Int("index", i),
				zap.Error(err))
			continue
		}
		cases = append(cases, tc)
	}

	return cases, true
}

func stripFence(raw string) string {
	cleaned := strings.TrimSpace(raw)
	if strings.HasPrefix(cleaned, "```") {
		cleaned = fenceOpenPattern.ReplaceAllString(cleaned, "")
		cleaned = fenceClosePattern.ReplaceAllString(cleaned, "")
	}
	return strings.TrimSpace(cleaned)
}
