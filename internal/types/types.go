// Package types defines the configuration and application error types shared by cv-editor packages.
package types

import "errors"

// Config 应用配置
type Config struct {
	OpenAIAPIKey  string `json:"openai_api_key"`
	OpenAIBaseURL string `json:"openai_base_url"` // OpenAI 兼容 API 的 Base URL
	OpenAIModel   string `json:"openai_model"`

	// 背景采样渲染器："auto"、"poppler" 或 "vector"
	Rasterizer   string `json:"rasterizer"`
	PdftoppmPath string `json:"pdftoppm_path"` // 为空时从 PATH 查找

	// 替换文本的默认适配策略
	AllowScaling    bool `json:"allow_scaling"`
	AllowWrapping   bool `json:"allow_wrapping"`
	AllowTruncation bool `json:"allow_truncation"`

	HistoryDir         string `json:"history_dir"`          // 版本历史目录
	HistoryMaxVersions int    `json:"history_max_versions"` // 每个文档保留的版本数
	SuggestCachePath   string `json:"suggest_cache_path"`   // AI 建议缓存文件，为空时不持久化
	ErrorsDir          string `json:"errors_dir"`           // 失败记录目录

	LogFile  string `json:"log_file"`
	LogLevel string `json:"log_level"` // debug, info, warn, error
}

// ErrorCode 错误代码枚举
type ErrorCode string

const (
	ErrFileNotFound ErrorCode = "FILE_NOT_FOUND"
	ErrInvalidInput ErrorCode = "INVALID_INPUT"
	ErrAPICall      ErrorCode = "API_CALL_ERROR"
	ErrConfig       ErrorCode = "CONFIG_ERROR"
	ErrInternal     ErrorCode = "INTERNAL_ERROR"
	ErrHistory      ErrorCode = "HISTORY_ERROR"
	ErrSuggest      ErrorCode = "SUGGEST_FAILED"
	ErrCache        ErrorCode = "CACHE_ERROR"
)

// AppError 应用错误
type AppError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Details string    `json:"details,omitempty"`
	Cause   error     `json:"-"`
}

// Error implements the error interface for AppError
func (e *AppError) Error() string {
	msg := e.Message
	if e.Details != "" {
		msg += ": " + e.Details
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap returns the underlying cause of the error
func (e *AppError) Unwrap() error {
	return e.Cause
}

// NewAppError creates a new AppError with the given code, message, and optional cause
func NewAppError(code ErrorCode, message string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// NewAppErrorWithDetails creates a new AppError with details
func NewAppErrorWithDetails(code ErrorCode, message, details string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Details: details,
		Cause:   cause,
	}
}

// HasCode reports whether err wraps an AppError with the given code.
func HasCode(err error, code ErrorCode) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Code == code
}
