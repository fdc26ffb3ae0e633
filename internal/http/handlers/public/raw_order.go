package public

import (
	"github.com/bazaar-next/internal/http/response"
	"github.com/bazaar-next/internal/service"

	"github.com/gin-gonic/gin"
)

// CreateRawOrder 记录下单意图
func (h *Handler) CreateRawOrder(c *gin.Context) {
	var req service.RawOrderInput
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	record, err := h.RawOrderService.Create(req)
	if err != nil {
		respondWithMappedError(c, err, orderSubmitErrorRules, response.CodeInternal, "error.order_create_failed")
		return
	}
	response.Created(c, record)
}
