package admin

import (
	"errors"

	handlershared "github.com/bazaar-next/internal/http/handlers/shared"
	"github.com/bazaar-next/internal/http/response"
	"github.com/bazaar-next/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func requestLog(c *gin.Context) *zap.SugaredLogger {
	return handlershared.RequestLog(c)
}

func respondError(c *gin.Context, code int, key string, err error) {
	handlershared.RespondError(c, code, key, err)
}

// respondOrderError 订单类错误的统一映射
func respondOrderError(c *gin.Context, err error, fallbackKey string) {
	switch {
	case errors.Is(err, service.ErrOrderNotFound):
		respondError(c, response.CodeNotFound, "error.order_not_found", nil)
	case errors.Is(err, service.ErrOrderItemNotFound):
		respondError(c, response.CodeNotFound, "error.order_item_not_found", nil)
	case errors.Is(err, service.ErrSubmissionNotFound):
		respondError(c, response.CodeNotFound, "error.not_found", nil)
	case errors.Is(err, service.ErrOrderStatusInvalid):
		respondError(c, response.CodeBadRequest, "error.order_status_invalid", nil)
	case errors.Is(err, service.ErrInvalidOrderItem):
		respondError(c, response.CodeBadRequest, "error.order_item_invalid", nil)
	case errors.Is(err, service.ErrInvalidEmail):
		respondError(c, response.CodeBadRequest, "error.email_invalid", nil)
	case errors.Is(err, service.ErrMobileRequired):
		respondError(c, response.CodeBadRequest, "error.mobile_invalid", nil)
	default:
		respondError(c, response.CodeInternal, fallbackKey, err)
	}
}

// respondNotifyError 邮件与 WhatsApp 发送错误映射
func respondNotifyError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidEmail), errors.Is(err, service.ErrEmailRecipientRejected):
		respondError(c, response.CodeBadRequest, "error.email_invalid", nil)
	case errors.Is(err, service.ErrEmailServiceDisabled):
		respondError(c, response.CodeUnavailable, "error.email_disabled", nil)
	case errors.Is(err, service.ErrEmailServiceNotConfigured):
		respondError(c, response.CodeUnavailable, "error.email_not_configured", nil)
	case errors.Is(err, service.ErrEmailTimeout):
		respondError(c, response.CodeGatewayTimeout, "error.email_timeout", err)
	case errors.Is(err, service.ErrWhatsAppDisabled):
		respondError(c, response.CodeUnavailable, "error.whatsapp_disabled", nil)
	case errors.Is(err, service.ErrWhatsAppNotConfigured):
		respondError(c, response.CodeUnavailable, "error.whatsapp_not_configured", nil)
	case errors.Is(err, service.ErrWhatsAppTypeInvalid):
		respondError(c, response.CodeBadRequest, "error.whatsapp_type_invalid", nil)
	case errors.Is(err, service.ErrWhatsAppRecipientInvalid):
		respondError(c, response.CodeBadRequest, "error.whatsapp_recipient_invalid", nil)
	case errors.Is(err, service.ErrWhatsAppSendFailed):
		respondError(c, response.CodeInternal, "error.whatsapp_send_failed", err)
	default:
		respondError(c, response.CodeInternal, "error.email_send_failed", err)
	}
}
