package public

import (
	handlershared "github.com/bazaar-next/internal/http/handlers/shared"
	"github.com/bazaar-next/internal/http/response"

	"github.com/gin-gonic/gin"
)

// GetPointsBalance 按手机号查询积分余额
func (h *Handler) GetPointsBalance(c *gin.Context) {
	balance, err := h.PointsService.Balance(c.Query("country_code"), c.Query("mobile"))
	if err != nil {
		respondWithMappedError(c, err, pointsErrorRules, response.CodeInternal, "error.internal")
		return
	}
	response.Success(c, balance)
}

// GetPointsHistory 积分流水
func (h *Handler) GetPointsHistory(c *gin.Context) {
	page, pageSize := handlershared.ParsePagination(c)
	entries, total, err := h.PointsService.History(c.Query("country_code"), c.Query("mobile"), page, pageSize)
	if err != nil {
		respondWithMappedError(c, err, pointsErrorRules, response.CodeInternal, "error.internal")
		return
	}
	response.SuccessWithPage(c, entries, response.NewPagination(page, pageSize, total))
}
