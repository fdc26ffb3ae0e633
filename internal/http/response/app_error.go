package response

import "fmt"

// AppError 接口层错误：HTTP 状态码 + 文案键 + 原始原因
type AppError struct {
	Code int
	Key  string
	Err  error
}

// NewAppError 创建接口层错误
func NewAppError(code int, key string, err error) *AppError {
	if code < 400 || code > 599 {
		code = CodeInternal
	}
	return &AppError{Code: code, Key: key, Err: err}
}

func (e *AppError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%d %s", e.Code, e.Key)
	}
	return fmt.Sprintf("%d %s: %v", e.Code, e.Key, e.Err)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Name 机器可读的错误名
func (e *AppError) Name() string {
	return ErrorName(e.Code)
}

// Server 是否为服务端错误
func (e *AppError) Server() bool {
	return e.Code >= CodeInternal
}
