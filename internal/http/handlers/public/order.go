package public

import (
	"strings"

	handlershared "github.com/bazaar-next/internal/http/handlers/shared"
	"github.com/bazaar-next/internal/http/response"
	"github.com/bazaar-next/internal/i18n"
	"github.com/bazaar-next/internal/repository"
	"github.com/bazaar-next/internal/service"

	"github.com/gin-gonic/gin"
)

// CreateGuestOrder 直接提交订单（不经过结账会话），执行完整下单编排
func (h *Handler) CreateGuestOrder(c *gin.Context) {
	var req service.SubmitInput
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	if strings.TrimSpace(req.Locale) == "" {
		req.Locale = i18n.ResolveLocale(c)
	}
	result, err := h.SubmissionService.Submit(c.Request.Context(), req)
	if err != nil {
		respondWithMappedError(c, err, orderSubmitErrorRules, response.CodeInternal, "error.order_create_failed")
		return
	}
	if result.Replayed {
		response.Success(c, result)
		return
	}
	response.Created(c, result)
}

// GetOrder 订单详情（订单令牌或管理员）
func (h *Handler) GetOrder(c *gin.Context) {
	orderID, ok := parseOrderID(c)
	if !ok {
		return
	}
	if !requireOrderAccess(c, orderID) {
		return
	}
	order, err := h.OrderService.Get(orderID)
	if err != nil {
		respondWithMappedError(c, err, orderReadErrorRules, response.CodeInternal, "error.order_fetch_failed")
		return
	}
	response.Success(c, order)
}

// LookupOrderContact 按手机号返回最近一次下单的联系信息，未带匹配邮箱时为脱敏结果
func (h *Handler) LookupOrderContact(c *gin.Context) {
	contact, err := h.OrderService.Lookup(c.Query("country_code"), c.Query("mobile"), c.Query("email"))
	if err != nil {
		respondWithMappedError(c, err, orderReadErrorRules, response.CodeInternal, "error.order_fetch_failed")
		return
	}
	response.Success(c, contact)
}

// GetOrderSubmission 订单后续步骤执行报告
func (h *Handler) GetOrderSubmission(c *gin.Context) {
	orderID, ok := parseOrderID(c)
	if !ok {
		return
	}
	if !requireOrderAccess(c, orderID) {
		return
	}
	report, err := h.SubmissionService.Report(orderID)
	if err != nil {
		respondWithMappedError(c, err, orderReadErrorRules, response.CodeInternal, "error.order_fetch_failed")
		return
	}
	response.Success(c, report)
}

// AddOrderItems 向已下单订单追加商品
func (h *Handler) AddOrderItems(c *gin.Context) {
	var req service.AddItemsInput
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	if !requireOrderAccess(c, req.OrderID) {
		return
	}
	result, err := h.OrderService.AddItems(c.Request.Context(), req)
	if err != nil {
		respondWithMappedError(c, err, addItemsErrorRules, response.CodeInternal, "error.order_update_failed")
		return
	}
	response.Success(c, result)
}

// ListOrderItems 订单项列表；非管理员必须指定自己的订单
func (h *Handler) ListOrderItems(c *gin.Context) {
	orderID := uint(0)
	if raw := handlershared.QueryIntPtr(c, "order_id", "orderId"); raw != nil && *raw > 0 {
		orderID = uint(*raw)
	}
	if orderID == 0 && !handlershared.IsAdmin(c) {
		respondError(c, response.CodeBadRequest, "error.order_id_invalid", nil)
		return
	}
	if orderID != 0 && !requireOrderAccess(c, orderID) {
		return
	}
	page, pageSize := handlershared.ParsePagination(c)
	items, total, err := h.OrderService.ListItems(repository.OrderItemListFilter{
		Page:       page,
		PageSize:   pageSize,
		OrderID:    orderID,
		ItemStatus: handlershared.QueryIntPtr(c, "item_status"),
	})
	if err != nil {
		respondWithMappedError(c, err, orderReadErrorRules, response.CodeInternal, "error.order_fetch_failed")
		return
	}
	response.SuccessWithPage(c, items, response.NewPagination(page, pageSize, total))
}

// GetOrderItem 订单项详情
func (h *Handler) GetOrderItem(c *gin.Context) {
	itemID, ok := handlershared.ParseUintParam(c, "id", "error.order_item_invalid")
	if !ok {
		return
	}
	item, err := h.OrderService.GetItem(itemID)
	if err != nil {
		respondWithMappedError(c, err, orderReadErrorRules, response.CodeInternal, "error.order_fetch_failed")
		return
	}
	if !requireOrderAccess(c, item.OrderID) {
		return
	}
	response.Success(c, item)
}
