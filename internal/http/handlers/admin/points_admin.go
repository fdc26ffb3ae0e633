package admin

import (
	"errors"

	handlershared "github.com/bazaar-next/internal/http/handlers/shared"
	"github.com/bazaar-next/internal/http/response"
	"github.com/bazaar-next/internal/service"

	"github.com/gin-gonic/gin"
)

// AppendPointsRequest 人工追加积分流水
type AppendPointsRequest struct {
	CountryCode string `json:"country_code"`
	Mobile      string `json:"mobile" binding:"required"`
	OrderID     *uint  `json:"order_id"`
	Points      int64  `json:"points" binding:"required"`
	Status      int    `json:"status" binding:"required"`
	Note        string `json:"note"`
}

// AdminAppendPoints 追加积分流水
func (h *Handler) AdminAppendPoints(c *gin.Context) {
	var req AppendPointsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	entry, err := h.PointsService.Append(service.AppendInput{
		CountryCode: req.CountryCode,
		Mobile:      req.Mobile,
		OrderID:     req.OrderID,
		Points:      req.Points,
		Status:      req.Status,
		Note:        req.Note,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrMobileRequired):
			respondError(c, response.CodeBadRequest, "error.mobile_invalid", nil)
		case errors.Is(err, service.ErrPointsEntryInvalid):
			respondError(c, response.CodeBadRequest, "error.points_entry_invalid", nil)
		case errors.Is(err, service.ErrPointsInsufficient):
			respondError(c, response.CodeBadRequest, "error.points_insufficient", nil)
		default:
			respondError(c, response.CodeInternal, "error.points_write_failed", err)
		}
		return
	}
	adminID := c.GetUint(handlershared.ContextAdminID)
	requestLog(c).Infow("admin_points_appended", "admin_id", adminID, "mobile", entry.Mobile, "redeem_points", entry.RedeemPoints, "status", entry.Status)
	response.Created(c, entry)
}
