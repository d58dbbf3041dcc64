package qa

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/qaagent/backend-go/internal/errors"
)

const validArrayJSON = `[
  {
    "test_id": "TC-001",
    "feature": "Checkout",
    "test_scenario": "Place an order with valid data",
    "test_type": "positive",
    "preconditions": "Cart has one item",
    "test_steps": ["Open checkout", "Click Place Order"],
    "expected_result": "Order confirmation shown",
    "grounded_in": "checkout.md",
    "priority": "High"
  },
  {
    "feature": "Checkout",
    "test_scenario": "Submit with empty cart",
    "test_type": "negative",
    "test_steps": ["Open checkout with empty cart", "Click Place Order"],
    "expected_result": "Error message shown",
    "grounded_in": "checkout.md"
  }
]`

func TestParseTestCases_Strict(t *testing.T) {
	result, err := ParseTestCases(validArrayJSON)
	require.NoError(t, err)

	assert.Equal(t, ParseStrict, result.Mode)
	require.Len(t, result.TestCases, 2)
	assert.Equal(t, "TC-001", result.TestCases[0].TestID)
	assert.Equal(t, []string{"Open checkout", "Click Place Order"}, result.TestCases[0].TestSteps)
}

func TestParseTestCases_StripsMarkdownFence(t *testing.T) {
	fenced := "```json\n" + validArrayJSON + "\n```"

	result, err := ParseTestCases(fenced)
	require.NoError(t, err)
	assert.Equal(t, ParseStrict, result.Mode)
	assert.Len(t, result.TestCases, 2)
}

func TestParseTestCases_RecoversArrayFromProse(t *testing.T) {
	// 模型在数组前后夹带解释文字时走恢复路径
	noisy := "Here are the test cases you asked for:\n\n" + validArrayJSON + "\n\nLet me know if you need more."

	result, err := ParseTestCases(noisy)
	require.NoError(t, err)
	assert.Equal(t, ParseRecovered, result.Mode)
	assert.Len(t, result.TestCases, 2)
}

func TestParseTestCases_FailedReturnsParseError(t *testing.T) {
	result, err := ParseTestCases("I could not generate any test cases for this request.")
	require.Error(t, err)

	assert.Equal(t, ParseFailed, result.Mode)
	assert.Empty(t, result.TestCases)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeParse))
}

func TestParseTestCases_DropsMalformedObjects(t *testing.T) {
	// 第二个对象的test_steps类型错误，单独丢弃，批次存活
	mixed := `[
  {"test_id": "TC-001", "feature": "F", "test_scenario": "S", "test_type": "positive",
   "test_steps": ["s1"], "expected_result": "R", "grounded_in": "a.md"},
  {"test_id": "TC-002", "feature": "F", "test_scenario": "S", "test_type": "positive",
   "test_steps": "not-an-array", "expected_result": "R", "grounded_in": "a.md"}
]`

	result, err := ParseTestCases(mixed)
	require.NoError(t, err)
	assert.Equal(t, ParseStrict, result.Mode)
	require.Len(t, result.TestCases, 1)
	assert.Equal(t, "TC-001", result.TestCases[0].TestID)
}

func TestParseTestCases_EmptyArray(t *testing.T) {
	result, err := ParseTestCases("[]")
	require.NoError(t, err)
	assert.Equal(t, ParseStrict, result.Mode)
	assert.Empty(t, result.TestCases)
}
