package response

import "net/http"

// 错误码与 HTTP 状态码保持一致
const (
	CodeBadRequest      = http.StatusBadRequest
	CodeUnauthorized    = http.StatusUnauthorized
	CodeForbidden       = http.StatusForbidden
	CodeNotFound        = http.StatusNotFound
	CodeConflict        = http.StatusConflict
	CodeTooManyRequests = http.StatusTooManyRequests
	CodeInternal        = http.StatusInternalServerError
	CodeUnavailable     = http.StatusServiceUnavailable
	CodeGatewayTimeout  = http.StatusGatewayTimeout
)

// ErrorName 错误码对应的机器可读名称
func ErrorName(code int) string {
	switch code {
	case CodeBadRequest:
		return "validation_error"
	case CodeUnauthorized:
		return "unauthorized"
	case CodeForbidden:
		return "forbidden"
	case CodeNotFound:
		return "not_found"
	case CodeConflict:
		return "conflict"
	case CodeTooManyRequests:
		return "rate_limited"
	case CodeUnavailable:
		return "unavailable"
	case CodeGatewayTimeout:
		return "timeout"
	default:
		return "internal_error"
	}
}
