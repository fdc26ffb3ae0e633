package admin

import (
	"errors"
	"strings"

	handlershared "github.com/bazaar-next/internal/http/handlers/shared"
	"github.com/bazaar-next/internal/http/response"
	"github.com/bazaar-next/internal/service"

	"github.com/gin-gonic/gin"
)

// AdminListOrders 管理端订单列表
func (h *Handler) AdminListOrders(c *gin.Context) {
	page, pageSize := handlershared.ParsePagination(c)
	startDate, ok := handlershared.QueryDate(c, "start_date", false)
	if !ok {
		respondError(c, response.CodeBadRequest, "error.bad_request", nil)
		return
	}
	endDate, ok := handlershared.QueryDate(c, "end_date", true)
	if !ok {
		respondError(c, response.CodeBadRequest, "error.bad_request", nil)
		return
	}

	orders, total, err := h.OrderService.List(service.OrderListInput{
		Page:          page,
		PageSize:      pageSize,
		SortBy:        strings.TrimSpace(c.Query("sort")),
		SortDesc:      !strings.EqualFold(strings.TrimSpace(c.Query("order")), "asc"),
		Status:        handlershared.QueryIntPtr(c, "status", "order_status"),
		PaymentStatus: handlershared.QueryIntPtr(c, "payment_status"),
		Search:        c.Query("search"),
		StartDate:     startDate,
		EndDate:       endDate,
	})
	if err != nil {
		respondOrderError(c, err, "error.order_fetch_failed")
		return
	}
	response.SuccessWithPage(c, orders, response.NewPagination(page, pageSize, total))
}

// AdminUpdateOrder 更新订单，状态变化会触发顾客通知
func (h *Handler) AdminUpdateOrder(c *gin.Context) {
	id, ok := parseIDParam(c, "error.order_id_invalid")
	if !ok {
		return
	}
	var req service.OrderUpdateInput
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	order, err := h.OrderService.Update(c.Request.Context(), id, req)
	if err != nil {
		respondOrderError(c, err, "error.order_update_failed")
		return
	}
	response.Success(c, order)
}

// AdminDeleteOrder 删除订单及其订单项
func (h *Handler) AdminDeleteOrder(c *gin.Context) {
	id, ok := parseIDParam(c, "error.order_id_invalid")
	if !ok {
		return
	}
	if err := h.OrderService.Delete(c.Request.Context(), id); err != nil {
		respondOrderError(c, err, "error.order_delete_failed")
		return
	}
	response.Success(c, nil)
}

// AdminReconcileOrder 立即重跑失败的下单后续步骤
func (h *Handler) AdminReconcileOrder(c *gin.Context) {
	id, ok := parseIDParam(c, "error.order_id_invalid")
	if !ok {
		return
	}
	report, err := h.SubmissionService.ReconcileOrder(c.Request.Context(), id)
	if err != nil {
		respondOrderError(c, err, "error.order_update_failed")
		return
	}
	response.Success(c, report)
}

// AdminCreateOrderItem 直接写入订单项
func (h *Handler) AdminCreateOrderItem(c *gin.Context) {
	var req service.OrderItemInput
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	item, err := h.OrderService.CreateItem(req)
	if err != nil {
		respondOrderError(c, err, "error.order_update_failed")
		return
	}
	response.Created(c, item)
}

// AdminUpdateOrderItem 更新订单项（物流单号、状态、支付标记等）
func (h *Handler) AdminUpdateOrderItem(c *gin.Context) {
	id, ok := parseIDParam(c, "error.bad_request")
	if !ok {
		return
	}
	var req service.OrderItemUpdateInput
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	item, err := h.OrderService.UpdateItem(id, req)
	if err != nil {
		respondOrderError(c, err, "error.order_update_failed")
		return
	}
	response.Success(c, item)
}

// AdminDeleteOrderItem 删除订单项
func (h *Handler) AdminDeleteOrderItem(c *gin.Context) {
	id, ok := parseIDParam(c, "error.bad_request")
	if !ok {
		return
	}
	if err := h.OrderService.DeleteItem(id); err != nil {
		respondOrderError(c, err, "error.order_update_failed")
		return
	}
	response.Success(c, nil)
}

// AdminListRawOrders 下单意图审计记录
func (h *Handler) AdminListRawOrders(c *gin.Context) {
	page, pageSize := handlershared.ParsePagination(c)
	startDate, ok := handlershared.QueryDate(c, "start_date", false)
	if !ok {
		respondError(c, response.CodeBadRequest, "error.bad_request", nil)
		return
	}
	endDate, ok := handlershared.QueryDate(c, "end_date", true)
	if !ok {
		respondError(c, response.CodeBadRequest, "error.bad_request", nil)
		return
	}
	input := service.RawOrderListInput{
		Page:              page,
		PageSize:          pageSize,
		MobileCountryCode: c.Query("country_code"),
		Mobile:            c.Query("mobile"),
		StartDate:         startDate,
		EndDate:           endDate,
	}
	if orderID := handlershared.QueryIntPtr(c, "order_id"); orderID != nil && *orderID > 0 {
		input.OrderID = uint(*orderID)
	}
	records, total, err := h.RawOrderService.List(input)
	if err != nil {
		respondError(c, response.CodeInternal, "error.order_fetch_failed", err)
		return
	}
	response.SuccessWithPage(c, records, response.NewPagination(page, pageSize, total))
}

// AdminGetStats 订单统计
func (h *Handler) AdminGetStats(c *gin.Context) {
	from, ok := handlershared.QueryDate(c, "from", false)
	if !ok {
		respondError(c, response.CodeBadRequest, "error.bad_request", nil)
		return
	}
	to, ok := handlershared.QueryDate(c, "to", true)
	if !ok {
		respondError(c, response.CodeBadRequest, "error.bad_request", nil)
		return
	}
	stats, err := h.StatsService.Get(c.Request.Context(), service.StatsQueryInput{
		Range:        strings.TrimSpace(c.Query("range")),
		From:         from,
		To:           to,
		Timezone:     strings.TrimSpace(c.Query("tz")),
		Locale:       c.Query("lang"),
		ForceRefresh: c.Query("refresh") == "1" || c.Query("refresh") == "true",
	})
	if err != nil {
		if errors.Is(err, service.ErrStatsRangeInvalid) {
			respondError(c, response.CodeBadRequest, "error.bad_request", nil)
			return
		}
		respondError(c, response.CodeInternal, "error.stats_failed", err)
		return
	}
	response.Success(c, stats)
}

// AdminRetrySubmissionStep 立即重试单个下单后续步骤
func (h *Handler) AdminRetrySubmissionStep(c *gin.Context) {
	id, ok := parseIDParam(c, "error.order_id_invalid")
	if !ok {
		return
	}
	step := strings.TrimSpace(c.Param("step"))
	if err := h.SubmissionService.RetryStep(c.Request.Context(), id, step); err != nil {
		if errors.Is(err, service.ErrSubmissionStepUnknown) {
			respondError(c, response.CodeBadRequest, "error.bad_request", nil)
			return
		}
		respondOrderError(c, err, "error.order_update_failed")
		return
	}
	report, err := h.SubmissionService.Report(id)
	if err != nil {
		respondOrderError(c, err, "error.order_fetch_failed")
		return
	}
	response.Success(c, report)
}
