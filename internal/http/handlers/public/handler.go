package public

import "github.com/bazaar-next/internal/provider"

// Handler 前台/公开接口处理器入口
// 说明：该处理器用于购物车、结账、订单令牌访问与公开查询接口。
type Handler struct {
	*provider.Container
}

// New 创建前台处理器
func New(c *provider.Container) *Handler {
	return &Handler{Container: c}
}
