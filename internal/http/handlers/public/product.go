package public

import (
	"io"
	"strconv"
	"time"

	"github.com/bazaar-next/internal/constants"
	handlershared "github.com/bazaar-next/internal/http/handlers/shared"
	"github.com/bazaar-next/internal/http/response"
	"github.com/bazaar-next/internal/i18n"

	"github.com/gin-gonic/gin"
)

const defaultHeartbeatInterval = 25 * time.Second

// GetTopSellers 热销商品
func (h *Handler) GetTopSellers(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))
	products, err := h.ProductService.TopSellers(c.Request.Context(), limit, i18n.ResolveLocale(c))
	if err != nil {
		respondError(c, response.CodeInternal, "error.product_fetch_failed", err)
		return
	}
	response.Success(c, products)
}

// StreamProductUpdates 商品变更 SSE 推送
func (h *Handler) StreamProductUpdates(c *gin.Context) {
	hub := h.ProductService.Hub()
	if hub == nil {
		respondError(c, response.CodeUnavailable, "error.internal", nil)
		return
	}
	client := hub.Register()
	defer hub.Unregister(client)

	interval := time.Duration(h.Config.Broadcast.HeartbeatSeconds) * time.Second
	if interval <= 0 {
		interval = defaultHeartbeatInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.SSEvent("connected", gin.H{"client_id": client.ID, "instance_id": hub.InstanceID()})
	c.Writer.Flush()
	handlershared.RequestLog(c).Infow("product_stream_connected", "client_id", client.ID)

	ctx := c.Request.Context()
	c.Stream(func(w io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case evt, ok := <-client.Events():
			if !ok {
				return false
			}
			c.SSEvent(evt.Type, evt)
			return true
		case now := <-ticker.C:
			c.SSEvent(constants.ProductEventHeartbeat, gin.H{"at": now.UTC()})
			return true
		}
	})
	handlershared.RequestLog(c).Infow("product_stream_disconnected", "client_id", client.ID)
}
