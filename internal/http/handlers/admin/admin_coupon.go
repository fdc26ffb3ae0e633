package admin

import (
	"errors"
	"strconv"
	"strings"
	"time"

	handlershared "github.com/bazaar-next/internal/http/handlers/shared"
	"github.com/bazaar-next/internal/http/response"
	"github.com/bazaar-next/internal/repository"
	"github.com/bazaar-next/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// CouponRequest 创建/更新优惠券请求
type CouponRequest struct {
	Code         string          `json:"coupon_code" binding:"required"`
	Discount     decimal.Decimal `json:"discount"`
	NumberOfTime int             `json:"numberoftime"`
	ExpireDate   string          `json:"expire_date"`
	Status       *int            `json:"status"`
}

func (req CouponRequest) toInput() (service.CouponInput, error) {
	expireDate, err := parseTimeNullable(req.ExpireDate)
	if err != nil {
		return service.CouponInput{}, err
	}
	return service.CouponInput{
		Code:         req.Code,
		Discount:     req.Discount,
		NumberOfTime: req.NumberOfTime,
		ExpireDate:   expireDate,
		Status:       req.Status,
	}, nil
}

// UseCouponRequest 手工登记优惠券使用，优先按 ID
type UseCouponRequest struct {
	CouponID uint   `json:"coupon_id"`
	Code     string `json:"code"`
}

func respondCouponError(c *gin.Context, err error, fallbackKey string) {
	switch {
	case errors.Is(err, service.ErrCouponInvalid):
		respondError(c, response.CodeBadRequest, "error.coupon_invalid", nil)
	case errors.Is(err, service.ErrCouponExhausted):
		respondError(c, response.CodeConflict, "error.coupon_exhausted", nil)
	case errors.Is(err, service.ErrCouponExpired):
		respondError(c, response.CodeBadRequest, "error.coupon_expired", nil)
	case errors.Is(err, service.ErrCouponInactive):
		respondError(c, response.CodeBadRequest, "error.coupon_inactive", nil)
	case errors.Is(err, service.ErrCouponCodeExists):
		respondError(c, response.CodeConflict, "error.coupon_code_exists", nil)
	case errors.Is(err, service.ErrCouponNotFound):
		respondError(c, response.CodeNotFound, "error.coupon_not_found", nil)
	default:
		respondError(c, response.CodeInternal, fallbackKey, err)
	}
}

// CreateCoupon 创建优惠券
func (h *Handler) CreateCoupon(c *gin.Context) {
	var req CouponRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	input, err := req.toInput()
	if err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	coupon, err := h.CouponService.Create(input)
	if err != nil {
		respondCouponError(c, err, "error.coupon_create_failed")
		return
	}
	response.Created(c, coupon)
}

// UpdateCoupon 更新优惠券
func (h *Handler) UpdateCoupon(c *gin.Context) {
	id, ok := parseIDParam(c, "error.bad_request")
	if !ok {
		return
	}
	var req CouponRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	input, err := req.toInput()
	if err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	coupon, err := h.CouponService.Update(id, input)
	if err != nil {
		respondCouponError(c, err, "error.coupon_update_failed")
		return
	}
	response.Success(c, coupon)
}

// DeleteCoupon 删除优惠券
func (h *Handler) DeleteCoupon(c *gin.Context) {
	id, ok := parseIDParam(c, "error.bad_request")
	if !ok {
		return
	}
	if err := h.CouponService.Delete(id); err != nil {
		respondCouponError(c, err, "error.coupon_delete_failed")
		return
	}
	response.Success(c, nil)
}

// AdminUseCoupon 手工登记一次优惠券使用；下单时的使用已在订单事务中占用
func (h *Handler) AdminUseCoupon(c *gin.Context) {
	var req UseCouponRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	couponID := req.CouponID
	if couponID == 0 {
		if strings.TrimSpace(req.Code) == "" {
			respondError(c, response.CodeBadRequest, "error.bad_request", nil)
			return
		}
		coupon, err := h.CouponService.Validate(req.Code)
		if err != nil {
			respondCouponError(c, err, "error.coupon_update_failed")
			return
		}
		couponID = coupon.CouponID
	}
	coupon, err := h.CouponService.MarkUsed(couponID)
	if err != nil {
		respondCouponError(c, err, "error.coupon_update_failed")
		return
	}
	response.Success(c, coupon)
}

// GetCoupon 优惠券详情
func (h *Handler) GetCoupon(c *gin.Context) {
	id, ok := parseIDParam(c, "error.bad_request")
	if !ok {
		return
	}
	coupon, err := h.CouponService.Get(id)
	if err != nil {
		respondCouponError(c, err, "error.coupon_fetch_failed")
		return
	}
	response.Success(c, coupon)
}

// GetAdminCoupons 获取优惠券列表
func (h *Handler) GetAdminCoupons(c *gin.Context) {
	page, pageSize := handlershared.ParsePagination(c)
	filter := repository.CouponListFilter{
		Page:     page,
		PageSize: pageSize,
		Code:     strings.TrimSpace(c.Query("code")),
	}
	if raw := strings.TrimSpace(c.Query("status")); raw != "" {
		status, err := strconv.Atoi(raw)
		if err != nil {
			respondError(c, response.CodeBadRequest, "error.bad_request", err)
			return
		}
		filter.Status = &status
	}

	coupons, total, err := h.CouponService.List(filter)
	if err != nil {
		respondError(c, response.CodeInternal, "error.coupon_fetch_failed", err)
		return
	}
	response.SuccessWithPage(c, coupons, response.NewPagination(page, pageSize, total))
}

// parseTimeNullable 支持 RFC3339 与 YYYY-MM-DD（按当天结束计）
func parseTimeNullable(raw string) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	if parsed, err := time.Parse(time.RFC3339, raw); err == nil {
		return &parsed, nil
	}
	parsed, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return nil, err
	}
	endOfDay := parsed.Add(24*time.Hour - time.Second)
	return &endOfDay, nil
}
