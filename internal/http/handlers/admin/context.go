package admin

import (
	handlershared "github.com/bazaar-next/internal/http/handlers/shared"

	"github.com/gin-gonic/gin"
)

func getAdminID(c *gin.Context) (uint, bool) {
	return handlershared.GetContextUintWithKeys(c, handlershared.ContextAdminID, "error.admin_id_invalid", "error.admin_id_type_invalid")
}

func parseIDParam(c *gin.Context, invalidKey string) (uint, bool) {
	return handlershared.ParseUintParam(c, "id", invalidKey)
}
