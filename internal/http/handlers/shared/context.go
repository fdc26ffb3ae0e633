package shared

import (
	"strconv"
	"strings"

	"github.com/bazaar-next/internal/http/response"

	"github.com/gin-gonic/gin"
)

// 鉴权中间件写入的上下文键
const (
	ContextAdminID      = "admin_id"
	ContextAdminName    = "username"
	ContextOrderTokenID = "order_token_order_id"
)

// GetContextUintWithKeys 从上下文读取 uint 值并统一处理错误响应。
func GetContextUintWithKeys(c *gin.Context, key, invalidKey, typeInvalidKey string) (uint, bool) {
	value, exists := c.Get(key)
	if !exists {
		RespondError(c, response.CodeUnauthorized, "error.unauthorized", nil)
		return 0, false
	}

	switch v := value.(type) {
	case uint:
		return v, true
	case int:
		if v < 0 {
			RespondError(c, response.CodeBadRequest, invalidKey, nil)
			return 0, false
		}
		return uint(v), true
	case float64:
		if v < 0 {
			RespondError(c, response.CodeBadRequest, invalidKey, nil)
			return 0, false
		}
		return uint(v), true
	default:
		RespondError(c, response.CodeInternal, typeInvalidKey, nil)
		return 0, false
	}
}

// ParseUintParam 解析路径参数，失败时返回 400。
func ParseUintParam(c *gin.Context, name, invalidKey string) (uint, bool) {
	raw := strings.TrimSpace(c.Param(name))
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		RespondError(c, response.CodeBadRequest, invalidKey, nil)
		return 0, false
	}
	return uint(id), true
}

// IsAdmin 当前请求是否携带有效管理员令牌
func IsAdmin(c *gin.Context) bool {
	value, ok := c.Get(ContextAdminID)
	if !ok {
		return false
	}
	id, ok := value.(uint)
	return ok && id > 0
}

// CanAccessOrder 管理员或持有该订单令牌的请求可访问订单
func CanAccessOrder(c *gin.Context, orderID uint) bool {
	if IsAdmin(c) {
		return true
	}
	value, ok := c.Get(ContextOrderTokenID)
	if !ok {
		return false
	}
	tokenOrderID, ok := value.(uint)
	return ok && tokenOrderID != 0 && tokenOrderID == orderID
}
