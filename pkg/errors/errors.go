// Package errors 提供统一的错误定义
package errors

import (
	"fmt"
	"net/http"
)

// ErrorCode 错误码类型
type ErrorCode string

// 预定义错误码
const (
	// 通用错误 (1xxx)
	CodeSuccess            ErrorCode = "0"
	CodeUnknown            ErrorCode = "1000"
	CodeInvalidParam       ErrorCode = "1001"
	CodeUnauthorized       ErrorCode = "1002"
	CodeForbidden          ErrorCode = "1003"
	CodeNotFound           ErrorCode = "1004"
	CodeConflict           ErrorCode = "1005"
	CodeTooManyRequests    ErrorCode = "1006"
	CodeInternalError      ErrorCode = "1007"
	CodeServiceUnavailable ErrorCode = "1008"

	// 配置错误 (2xxx)：快速失败，不重试
	CodeUnconfiguredModel ErrorCode = "2001"
	CodeMissingCredential ErrorCode = "2002"
	CodeUnknownAction     ErrorCode = "2003"
	CodeMissingTemplate   ErrorCode = "2004"

	// 资源错误 (3xxx)
	CodeProjectNotFound ErrorCode = "3001"
	CodeChapterNotFound ErrorCode = "3002"
	CodeSummaryNotFound ErrorCode = "3003"
	CodeJobNotFound     ErrorCode = "3004"

	// 业务错误 (4xxx)
	CodeGenerationFailed  ErrorCode = "4001"
	CodeValidationFailed  ErrorCode = "4002"
	CodeStageBlocked      ErrorCode = "4003"
	CodeFallbackExhausted ErrorCode = "4004"
	CodeRetrievalFailed   ErrorCode = "4005"
	CodeMemoryWriteFailed ErrorCode = "4006"
	CodeEmbeddingFailed   ErrorCode = "4007"
	CodeBatchInFlight     ErrorCode = "4008"

	// 外部服务错误 (5xxx)
	CodeDatabaseError    ErrorCode = "5001"
	CodeCacheError       ErrorCode = "5002"
	CodeVectorDBError    ErrorCode = "5003"
	CodeLLMProviderError ErrorCode = "5004"
)

// AppError 应用错误
type AppError struct {
	Code       ErrorCode `json:"code"`
	Message    string    `json:"message"`
	Detail     string    `json:"detail,omitempty"`
	HTTPStatus int       `json:"-"`
	Err        error     `json:"-"`
}

// Error 实现 error 接口
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap 返回底层错误
func (e *AppError) Unwrap() error {
	return e.Err
}

// WithDetail 返回带详细信息的副本；预定义错误是共享单例，不可原地修改
func (e *AppError) WithDetail(detail string) *AppError {
	clone := *e
	clone.Detail = detail
	return &clone
}

// WithError 返回带底层错误的副本
func (e *AppError) WithError(err error) *AppError {
	clone := *e
	clone.Err = err
	return &clone
}

// New 创建新的应用错误
func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: codeToHTTPStatus(code),
	}
}

// Wrap 包装错误
func Wrap(err error, code ErrorCode, message string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: codeToHTTPStatus(code),
		Err:        err,
	}
}

// codeToHTTPStatus 错误码转 HTTP 状态码
func codeToHTTPStatus(code ErrorCode) int {
	switch code {
	case CodeSuccess:
		return http.StatusOK
	case CodeInvalidParam, CodeValidationFailed, CodeStageBlocked:
		return http.StatusBadRequest
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeForbidden:
		return http.StatusForbidden
	case CodeNotFound, CodeProjectNotFound, CodeChapterNotFound, CodeSummaryNotFound, CodeJobNotFound:
		return http.StatusNotFound
	case CodeConflict, CodeBatchInFlight:
		return http.StatusConflict
	case CodeTooManyRequests:
		return http.StatusTooManyRequests
	case CodeUnconfiguredModel, CodeMissingCredential, CodeUnknownAction, CodeMissingTemplate:
		return http.StatusUnprocessableEntity
	case CodeServiceUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// 预定义错误
var (
	ErrInvalidParam       = New(CodeInvalidParam, "invalid parameter")
	ErrUnauthorized       = New(CodeUnauthorized, "unauthorized")
	ErrForbidden          = New(CodeForbidden, "forbidden")
	ErrNotFound           = New(CodeNotFound, "resource not found")
	ErrConflict           = New(CodeConflict, "resource conflict")
	ErrTooManyRequests    = New(CodeTooManyRequests, "too many requests")
	ErrInternalError      = New(CodeInternalError, "internal server error")
	ErrServiceUnavailable = New(CodeServiceUnavailable, "service unavailable")

	ErrProjectNotFound = New(CodeProjectNotFound, "project not found")
	ErrChapterNotFound = New(CodeChapterNotFound, "chapter not found")
	ErrJobNotFound     = New(CodeJobNotFound, "generation job not found")

	ErrUnconfiguredModel = New(CodeUnconfiguredModel, "model not configured")
	ErrMissingCredential = New(CodeMissingCredential, "model requires credential")
	ErrMissingTemplate   = New(CodeMissingTemplate, "prompt template not found")

	ErrGenerationFailed = New(CodeGenerationFailed, "generation failed")
	ErrValidationFailed = New(CodeValidationFailed, "validation failed")
	ErrStageBlocked     = New(CodeStageBlocked, "stage transition blocked")
	ErrBatchInFlight    = New(CodeBatchInFlight, "a generation batch is already running")
)

// IsAppError 检查是否为 AppError
func IsAppError(err error) bool {
	_, ok := err.(*AppError)
	return ok
}

// AsAppError 将错误转换为 AppError
func AsAppError(err error) *AppError {
	if appErr, ok := err.(*AppError); ok {
		return appErr
	}
	return Wrap(err, CodeUnknown, "unknown error")
}
