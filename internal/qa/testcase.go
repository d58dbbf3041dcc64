package qa

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// MultipleSourcesSentinel 测试用例同时引用多个来源时的约定值
const MultipleSourcesSentinel = "Multiple sources"

// TestCase 生成的结构化测试用例
type TestCase struct {
	TestID         string   `json:"test_id" validate:"required"`
	Feature        string   `json:"feature" validate:"required"`
	TestScenario   string   `json:"test_scenario" validate:"required"`
	TestType       string   `json:"test_type" validate:"required,oneof=positive negative edge-case"`
	Preconditions  string   `json:"preconditions,omitempty"`
	TestSteps      []string `json:"test_steps" validate:"required,min=1,dive,required"`
	ExpectedResult string   `json:"expected_result" validate:"required"`
	GroundedIn     string   `json:"grounded_in" validate:"required"`
	Priority       string   `json:"priority" validate:"omitempty,oneof=High Medium Low"`
}

var testCaseValidator = validator.New()

// Normalize 补齐缺省字段：test_id按序号生成TC-00N占位，priority缺省Medium。
// index从0计数，生成的编号从1起
func (tc *TestCase) Normalize(index int) {
	if strings.TrimSpace(tc.TestID) == "" {
		tc.TestID = fmt.Sprintf("TC-%03d", index+1)
	}
	if strings.TrimSpace(tc.Priority) == "" {
		tc.Priority = "Medium"
	}
	tc.TestType = strings.ToLower(strings.TrimSpace(tc.TestType))
}

// Validate 结构校验，字段缺失或枚举越界时返回错误
func (tc *TestCase) Validate() error {
	return testCaseValidator.Struct(tc)
}

// GroundedInSources 判断grounded_in是否命中来源白名单（大小写不敏感的包含匹配），
// 或等于多来源约定值
func (tc *TestCase) GroundedInSources(sources []string) bool {
	if tc.GroundedIn == MultipleSourcesSentinel {
		return true
	}
	grounded := strings.ToLower(tc.GroundedIn)
	for _, source := range sources {
		if source == "" {
			continue
		}
		if strings.Contains(grounded, strings.ToLower(source)) {
			return true
		}
	}
	return false
}
