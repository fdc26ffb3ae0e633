package admin

import (
	"github.com/bazaar-next/internal/http/response"
	"github.com/bazaar-next/internal/service"

	"github.com/gin-gonic/gin"
)

// AdminInvalidateProducts 清除商品缓存并推送变更
func (h *Handler) AdminInvalidateProducts(c *gin.Context) {
	var req service.ProductUpdateInput
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, response.CodeBadRequest, "error.bad_request", err)
			return
		}
	}
	delivered := h.ProductService.Invalidate(c.Request.Context(), req)
	response.Success(c, gin.H{"delivered": delivered})
}
