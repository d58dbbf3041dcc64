package errors

import (
	"errors"
	"fmt"
)

// ErrorCode 错误码类型
type ErrorCode string

// 预定义错误码
const (
	// 文档处理错误
	ErrCodeUnsupportedType ErrorCode = "UNSUPPORTED_TYPE"
	ErrCodeExtraction      ErrorCode = "EXTRACTION_ERROR"

	// 向量化与索引错误
	ErrCodeEmbedding  ErrorCode = "EMBEDDING_ERROR"
	ErrCodeIndexWrite ErrorCode = "INDEX_WRITE_ERROR"
	ErrCodeIndexQuery ErrorCode = "INDEX_QUERY_ERROR"

	// 生成与解析错误
	ErrCodeGeneration ErrorCode = "GENERATION_ERROR"
	ErrCodeParse      ErrorCode = "PARSE_ERROR"

	// 通用错误
	ErrCodeInternal     ErrorCode = "INTERNAL_ERROR"
	ErrCodeInvalidInput ErrorCode = "INVALID_INPUT"
)

// ErrorType 错误类别
type ErrorType int

const (
	ErrorTypeSystem ErrorType = iota
	ErrorTypeBusiness
	ErrorTypeValidation
	ErrorTypeExternal
)

// AppError 应用错误结构体
type AppError struct {
	Code    ErrorCode `json:"code"`
	Type    ErrorType `json:"-"`
	Message string    `json:"message"`
	Err     error     `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Is 支持errors.Is按错误码比较
func (e *AppError) Is(target error) bool {
	var appErr *AppError
	if errors.As(target, &appErr) {
		return e.Code == appErr.Code
	}
	return false
}

// New 创建应用错误
func New(code ErrorCode, errType ErrorType, message string) *AppError {
	return &AppError{Code: code, Type: errType, Message: message}
}

// Wrap 包装底层错误
func Wrap(code ErrorCode, errType ErrorType, message string, err error) *AppError {
	return &AppError{Code: code, Type: errType, Message: message, Err: err}
}

// NewUnsupportedType 不在支持枚举内的文档类型
func NewUnsupportedType(fileType string) *AppError {
	return New(ErrCodeUnsupportedType, ErrorTypeValidation, fmt.Sprintf("unsupported file type: %s", fileType))
}

// NewExtractionError 文档内容提取失败
func NewExtractionError(message string, err error) *AppError {
	return Wrap(ErrCodeExtraction, ErrorTypeBusiness, message, err)
}

// NewEmbeddingError 向量化失败（模型不可用或维度不匹配）
func NewEmbeddingError(message string, err error) *AppError {
	return Wrap(ErrCodeEmbedding, ErrorTypeExternal, message, err)
}

// NewIndexWriteError 向量索引写入失败
func NewIndexWriteError(message string, err error) *AppError {
	return Wrap(ErrCodeIndexWrite, ErrorTypeExternal, message, err)
}

// NewIndexQueryError 向量索引查询失败
func NewIndexQueryError(message string, err error) *AppError {
	return Wrap(ErrCodeIndexQuery, ErrorTypeExternal, message, err)
}

// NewGenerationError 模型调用失败或生成流程无法继续
func NewGenerationError(message string, err error) *AppError {
	return Wrap(ErrCodeGeneration, ErrorTypeExternal, message, err)
}

// NewParseError 生成结果无法恢复为结构化数据
func NewParseError(message string, err error) *AppError {
	return Wrap(ErrCodeParse, ErrorTypeBusiness, message, err)
}

// IsCode 检查错误链上是否存在指定错误码
func IsCode(err error, code ErrorCode) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}
