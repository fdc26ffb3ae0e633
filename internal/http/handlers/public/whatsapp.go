package public

import (
	"net/http"

	"github.com/bazaar-next/internal/http/response"
	"github.com/bazaar-next/internal/service"

	"github.com/gin-gonic/gin"
)

// VerifyWhatsAppWebhook Meta 订阅校验，成功时原样返回 challenge
func (h *Handler) VerifyWhatsAppWebhook(c *gin.Context) {
	challenge, err := h.WhatsAppService.VerifyWebhook(
		c.Query("hub.mode"),
		c.Query("hub.verify_token"),
		c.Query("hub.challenge"),
	)
	if err != nil {
		respondWithMappedError(c, err, whatsappErrorRules, response.CodeForbidden, "error.webhook_verify_failed")
		return
	}
	c.String(http.StatusOK, challenge)
}

// ReceiveWhatsAppWebhook 记录入站消息与投递状态
func (h *Handler) ReceiveWhatsAppWebhook(c *gin.Context) {
	var event service.WebhookEvent
	if err := c.ShouldBindJSON(&event); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	handled := h.WhatsAppService.HandleWebhook(event)
	response.Success(c, gin.H{"received": handled})
}
