package public

import (
	"github.com/bazaar-next/internal/http/response"
	"github.com/bazaar-next/internal/models"

	"github.com/gin-gonic/gin"
)

// CouponCodeRequest 优惠券码请求
type CouponCodeRequest struct {
	Code string `json:"code" binding:"required"`
}

// CouponView 对外暴露的优惠券信息
type CouponView struct {
	CouponID         uint         `json:"coupon_id"`
	CouponCode       string       `json:"coupon_code"`
	Discount         models.Money `json:"discount"`
	NumberOfTime     int          `json:"numberoftime"`
	NumberOfTimeUsed int          `json:"numberoftimeused"`
	Status           int          `json:"status"`
}

func newCouponView(coupon *models.Coupon) CouponView {
	return CouponView{
		CouponID:         coupon.CouponID,
		CouponCode:       coupon.CouponCode,
		Discount:         coupon.Discount,
		NumberOfTime:     coupon.NumberOfTime,
		NumberOfTimeUsed: coupon.NumberOfTimeUsed,
		Status:           coupon.Status,
	}
}

// ValidateCoupon 校验优惠券
func (h *Handler) ValidateCoupon(c *gin.Context) {
	var req CouponCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	coupon, err := h.CouponService.Validate(req.Code)
	if err != nil {
		respondWithMappedError(c, err, couponErrorRules, response.CodeInternal, "error.internal")
		return
	}
	response.Success(c, newCouponView(coupon))
}
