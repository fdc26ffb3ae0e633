package public

import (
	handlershared "github.com/bazaar-next/internal/http/handlers/shared"
	"github.com/bazaar-next/internal/http/response"

	"github.com/gin-gonic/gin"
)

func respondError(c *gin.Context, code int, key string, err error) {
	handlershared.RespondError(c, code, key, err)
}

func parseOrderID(c *gin.Context) (uint, bool) {
	return handlershared.ParseUintParam(c, "id", "error.order_id_invalid")
}

// requireOrderAccess 订单令牌或管理员令牌校验，失败时已写入 403
func requireOrderAccess(c *gin.Context, orderID uint) bool {
	if handlershared.CanAccessOrder(c, orderID) {
		return true
	}
	respondError(c, response.CodeForbidden, "error.order_token_invalid", nil)
	return false
}
