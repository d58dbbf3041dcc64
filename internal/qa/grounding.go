package qa

import (
	"go.uber.org/zap"

	"github.com/qaagent/backend-go/internal/logger"
)

// GroundingReport 接地校验各阶段的数量统计
type GroundingReport struct {
	Generated int `json:"generated"`
	Survived  int `json:"survived"`
	Corrected int `json:"corrected"`
	Dropped   int `json:"dropped"`
}

// GroundingValidator 校验测试用例的来源归属。
// 未接地的用例按rejectUngrounded决定处置：
// false（默认）改写为白名单首个来源并告警，true直接剔除
type GroundingValidator struct {
	rejectUngrounded bool
	logger           *zap.Logger
}

// NewGroundingValidator 创建接地校验器
func NewGroundingValidator(rejectUngrounded bool) *GroundingValidator {
	return &GroundingValidator{
		rejectUngrounded: rejectUngrounded,
		logger:           logger.GetLogger(),
	}
}

// Validate 逐条校验：补齐缺省字段 → 结构校验 → 来源归属检查。
// 结构非法的用例一律剔除；来源归属失败按配置纠正或剔除
func (v *GroundingValidator) Validate(cases []TestCase, sources []string) ([]TestCase, GroundingReport) {
	report := GroundingReport{Generated: len(cases)}
	validated := make([]TestCase, 0, len(cases))

	for i := range cases {
		tc := cases[i]
		tc.Normalize(i)

		if err := tc.Validate(); err != nil {
			v.logger.Warn("dropping structurally invalid test case",
				zap.String("test_id", tc.TestID),
				zap.Error(err))
			report.Dropped++
			continue
		}

		if tc.GroundedInSources(sources) {
			validated = append(validated, tc)
			continue
		}

		if v.rejectUngrounded || len(sources) == 0 {
			v.logger.Warn("dropping ungrounded test case",
				zap.String("test_id", tc.TestID),
				zap.String("grounded_in", tc.GroundedIn))
			report.Dropped++
			continue
		}

		v.logger.Warn("test case references unknown source, correcting",
			zap.String("test_id", tc.TestID),
			zap.String("grounded_in", tc.GroundedIn),
			zap.String("corrected_to", sources[0]))
		tc.GroundedIn = sources[0]
		report.Corrected++
		validated = append(validated, tc)
	}

	report.Survived = len(validated)
	return validated, report
}
