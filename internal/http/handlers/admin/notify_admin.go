package admin

import (
	"strings"

	"github.com/bazaar-next/internal/constants"
	"github.com/bazaar-next/internal/http/response"
	"github.com/bazaar-next/internal/i18n"
	"github.com/bazaar-next/internal/service"

	"github.com/gin-gonic/gin"
)

// SendOrderEmailRequest 手动发送订单确认邮件
type SendOrderEmailRequest struct {
	OrderData     service.OrderEmailData `json:"orderData" binding:"required"`
	CustomerEmail string                 `json:"customerEmail" binding:"required"`
}

// AdminSendOrderEmail 发送订单确认邮件
func (h *Handler) AdminSendOrderEmail(c *gin.Context) {
	var req SendOrderEmailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	if req.OrderData.Locale == "" {
		req.OrderData.Locale = i18n.ResolveLocale(c)
	}
	if err := h.EmailService.SendOrderConfirmation(c.Request.Context(), req.CustomerEmail, req.OrderData); err != nil {
		respondNotifyError(c, err)
		return
	}
	response.Success(c, gin.H{"sent": true})
}

// WhatsAppOrderData 订单确认消息参数
type WhatsAppOrderData struct {
	CustomerName string `json:"customer_name"`
	OrderNo      string `json:"order_no"`
	Total        string `json:"total"`
}

// WhatsAppSendRequest 发送 WhatsApp 消息
type WhatsAppSendRequest struct {
	Type         string             `json:"type" binding:"required"`
	CountryCode  string             `json:"country_code"`
	To           string             `json:"to" binding:"required"`
	Message      string             `json:"message"`
	TemplateName string             `json:"template_name"`
	Language     string             `json:"language"`
	Params       []string           `json:"params"`
	OrderData    *WhatsAppOrderData `json:"orderData"`
}

// AdminSendWhatsApp 按类型发送 WhatsApp 消息
func (h *Handler) AdminSendWhatsApp(c *gin.Context) {
	var req WhatsAppSendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	to := h.WhatsAppService.Recipient(req.CountryCode, req.To)
	if to == "" {
		respondError(c, response.CodeBadRequest, "error.whatsapp_recipient_invalid", nil)
		return
	}

	ctx := c.Request.Context()
	var (
		result *service.WhatsAppSendResult
		err    error
	)
	switch strings.TrimSpace(req.Type) {
	case constants.WhatsAppMessageOrderConfirmation:
		if req.OrderData == nil {
			respondError(c, response.CodeBadRequest, "error.bad_request", nil)
			return
		}
		result, err = h.WhatsAppService.SendOrderConfirmation(ctx, to, service.OrderWhatsAppData{
			CustomerName: req.OrderData.CustomerName,
			OrderNo:      req.OrderData.OrderNo,
			Total:        req.OrderData.Total,
			Locale:       i18n.ResolveLocale(c),
		})
	case constants.WhatsAppMessageText:
		result, err = h.WhatsAppService.SendText(ctx, to, req.Message)
	case constants.WhatsAppMessageTemplate:
		result, err = h.WhatsAppService.SendTemplate(ctx, to, req.TemplateName, req.Language, req.Params)
	default:
		err = service.ErrWhatsAppTypeInvalid
	}
	if err != nil {
		respondNotifyError(c, err)
		return
	}
	requestLog(c).Infow("admin_whatsapp_sent", "type", req.Type, "to", result.To, "message_id", result.MessageID)
	response.Success(c, result)
}

// AdminWhatsAppStatus WhatsApp 配置状态
func (h *Handler) AdminWhatsAppStatus(c *gin.Context) {
	response.Success(c, h.WhatsAppService.Status())
}
