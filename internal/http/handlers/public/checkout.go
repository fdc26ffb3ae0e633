package public

import (
	"github.com/bazaar-next/internal/checkout"
	"github.com/bazaar-next/internal/http/response"
	"github.com/bazaar-next/internal/i18n"
	"github.com/bazaar-next/internal/service"

	"github.com/gin-gonic/gin"
)

// StartCheckoutRequest 开启结账请求
type StartCheckoutRequest struct {
	CartSessionID string `json:"cart_session_id" binding:"required"`
}

// SelectCityRequest 选择城市请求
type SelectCityRequest struct {
	City string `json:"city" binding:"required"`
}

// PlaceOrderRequest 确认下单请求
type PlaceOrderRequest struct {
	PaymentMethod string `json:"payment_method"`
}

// CaptchaAnswerRequest 验证码答案
type CaptchaAnswerRequest struct {
	Answer string `json:"answer" binding:"required"`
}

// CheckoutCouponRequest 应用优惠券请求
type CheckoutCouponRequest struct {
	Code string `json:"code" binding:"required"`
}

// RedeemRequest 积分抵扣开关
type RedeemRequest struct {
	Enabled bool `json:"enabled"`
}

// respondCheckout 结账接口统一响应：失败时附带会话视图，优先使用会话上的本地化提示
func respondCheckout(c *gin.Context, view *service.CheckoutView, err error) {
	if err == nil {
		response.Success(c, view)
		return
	}
	if view != nil && view.Error != "" {
		code := response.CodeBadRequest
		if rule, ok := matchMappedError(err, checkoutErrorRules); ok {
			code = rule.code
		}
		response.ErrorWithData(c, code, view.Error, view)
		return
	}
	var data interface{}
	if view != nil {
		data = view
	}
	respondWithMappedErrorData(c, err, data, checkoutErrorRules, response.CodeInternal, "error.internal")
}

// StartCheckout 为购物车会话开启结账
func (h *Handler) StartCheckout(c *gin.Context) {
	var req StartCheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	view, err := h.CheckoutService.Start(c.Request.Context(), req.CartSessionID, i18n.ResolveLocale(c))
	if err != nil {
		respondCheckout(c, nil, err)
		return
	}
	response.Created(c, view)
}

// GetCheckout 获取结账会话
func (h *Handler) GetCheckout(c *gin.Context) {
	view, err := h.CheckoutService.Get(c.Request.Context(), c.Param("id"))
	respondCheckout(c, view, err)
}

// SubmitCheckoutDelivery 提交收货信息
func (h *Handler) SubmitCheckoutDelivery(c *gin.Context) {
	var form checkout.Form
	if err := c.ShouldBindJSON(&form); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	view, err := h.CheckoutService.SubmitDelivery(c.Request.Context(), c.Param("id"), form)
	respondCheckout(c, view, err)
}

// SelectCheckoutCity 修改城市
func (h *Handler) SelectCheckoutCity(c *gin.Context) {
	var req SelectCityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	view, err := h.CheckoutService.SelectCity(c.Request.Context(), c.Param("id"), req.City)
	respondCheckout(c, view, err)
}

// PlaceCheckoutOrder 确认支付方式并获取验证码
func (h *Handler) PlaceCheckoutOrder(c *gin.Context) {
	var req PlaceOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	view, err := h.CheckoutService.PlaceOrder(c.Request.Context(), c.Param("id"), req.PaymentMethod)
	respondCheckout(c, view, err)
}

// AnswerCheckoutCaptcha 提交验证码答案，答对即下单
func (h *Handler) AnswerCheckoutCaptcha(c *gin.Context) {
	var req CaptchaAnswerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	view, err := h.CheckoutService.AnswerCaptcha(c.Request.Context(), c.Param("id"), req.Answer)
	if err == nil && view != nil && view.Order != nil {
		response.Created(c, view)
		return
	}
	respondCheckout(c, view, err)
}

// CheckoutBack 返回收货信息步骤
func (h *Handler) CheckoutBack(c *gin.Context) {
	view, err := h.CheckoutService.Back(c.Request.Context(), c.Param("id"))
	respondCheckout(c, view, err)
}

// ApplyCheckoutCoupon 应用优惠券
func (h *Handler) ApplyCheckoutCoupon(c *gin.Context) {
	var req CheckoutCouponRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	view, err := h.CheckoutService.ApplyCoupon(c.Request.Context(), c.Param("id"), req.Code)
	respondCheckout(c, view, err)
}

// RemoveCheckoutCoupon 移除优惠券
func (h *Handler) RemoveCheckoutCoupon(c *gin.Context) {
	view, err := h.CheckoutService.RemoveCoupon(c.Request.Context(), c.Param("id"))
	respondCheckout(c, view, err)
}

// ToggleCheckoutRedeem 开启或撤销积分抵扣
func (h *Handler) ToggleCheckoutRedeem(c *gin.Context) {
	var req RedeemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	view, err := h.CheckoutService.ToggleRedeem(c.Request.Context(), c.Param("id"), req.Enabled)
	respondCheckout(c, view, err)
}
