package public

import (
	"github.com/bazaar-next/internal/cart"
	"github.com/bazaar-next/internal/http/response"
	"github.com/bazaar-next/internal/service"

	"github.com/gin-gonic/gin"
)

// CreateCartSession 分配新的购物车会话 ID
func (h *Handler) CreateCartSession(c *gin.Context) {
	sessionID := service.NewCartSessionID()
	state, err := h.CartService.Get(c.Request.Context(), sessionID)
	if err != nil {
		respondWithMappedError(c, err, cartErrorRules, response.CodeInternal, "error.internal")
		return
	}
	response.Created(c, gin.H{
		"session_id": sessionID,
		"cart":       state,
	})
}

// GetCart 获取会话购物车
func (h *Handler) GetCart(c *gin.Context) {
	state, err := h.CartService.Get(c.Request.Context(), c.Param("session"))
	if err != nil {
		respondWithMappedError(c, err, cartErrorRules, response.CodeInternal, "error.internal")
		return
	}
	response.Success(c, state)
}

// DispatchCartAction 执行购物车动作
func (h *Handler) DispatchCartAction(c *gin.Context) {
	var action cart.Action
	if err := c.ShouldBindJSON(&action); err != nil {
		respondError(c, response.CodeBadRequest, "error.cart_action_invalid", err)
		return
	}
	state, err := h.CartService.Dispatch(c.Request.Context(), c.Param("session"), action)
	if err != nil {
		respondWithMappedError(c, err, cartErrorRules, response.CodeInternal, "error.internal")
		return
	}
	response.Success(c, state)
}

// QuoteCart 无状态计算金额
func (h *Handler) QuoteCart(c *gin.Context) {
	var req service.QuoteInput
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	quote, err := h.CartService.Quote(req)
	if err != nil {
		respondWithMappedError(c, err, cartErrorRules, response.CodeInternal, "error.internal")
		return
	}
	response.Success(c, quote)
}
