package admin

import "github.com/bazaar-next/internal/provider"

// Handler 后台管理接口处理器入口
// 说明：订单维护、优惠券、积分、通知与统计等需要管理员令牌的接口。
type Handler struct {
	*provider.Container
}

// New 创建后台处理器
func New(c *provider.Container) *Handler {
	return &Handler{Container: c}
}
