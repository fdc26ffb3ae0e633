package constants

// 订单状态常量（持久化编码）
const (
	OrderStatusPending    = 0
	OrderStatusPlaced     = 1
	OrderStatusDispatched = 2
	OrderStatusOnTheWay   = 3
	OrderStatusCompleted  = 4
	OrderStatusCancelled  = 5
)

// 支付方式常量
const (
	PaymentTypeCash = 1
	PaymentTypeCard = 2
)

// 支付方式名称
const (
	PaymentMethodCash = "cash"
	PaymentMethodCard = "card"
)

// 支付状态常量
const (
	PaymentStatusPending = 0
	PaymentStatusSuccess = 1
	PaymentStatusFailed  = 2
)

// 积分流水状态常量
const (
	PointsStatusSpent  = 1
	PointsStatusEarned = 2
)

// 优惠券状态常量
const (
	CouponStatusInactive = 0
	CouponStatusActive   = 1
)

// 订单项状态常量
const (
	OrderItemStatusPending   = 0
	OrderItemStatusConfirmed = 1
	OrderItemStatusShipped   = 2
	OrderItemStatusCancelled = 3
)

// 下单步骤名称
const (
	SubmissionStepCreateOrder  = "create_order"
	SubmissionStepRawOrder     = "raw_order"
	SubmissionStepEmail        = "email"
	SubmissionStepWhatsApp     = "whatsapp"
	SubmissionStepOrderItems   = "order_items"
	SubmissionStepPointsSpent  = "points_spent"
	SubmissionStepPointsEarned = "points_earned"
	SubmissionStepCouponUse    = "coupon_use"
)

// 下单步骤状态
const (
	SubmissionStatusPending   = "pending"
	SubmissionStatusCompleted = "completed"
	SubmissionStatusFailed    = "failed"
	SubmissionStatusSkipped   = "skipped"
)

// 商品重量单位
const (
	WeightUnitKg   = "kg"
	WeightUnitGram = "g"
)

// 商品变更事件类型
const (
	ProductEventUpdated     = "product_updated"
	ProductEventDeleted     = "product_deleted"
	ProductEventInvalidated = "cache_invalidated"
	ProductEventHeartbeat   = "heartbeat"
)

// WhatsApp 消息类型
const (
	WhatsAppMessageOrderConfirmation = "order_confirmation"
	WhatsAppMessageText              = "text"
	WhatsAppMessageTemplate          = "template"
)

// 异步任务常量
const (
	QueueDefault           = "default"
	QueueCritical          = "critical"
	TaskSubmissionStep     = "submission:step"
	TaskSubmissionRecheck  = "submission:reconcile"
	TaskOrderStatusMessage = "order:status_message"
)

// 缓存键常量
const (
	CacheKeyTopSellers     = "products:top_sellers"
	CacheKeyCartSession    = "cart:session"
	CacheKeyCheckoutSess   = "checkout:session"
	CacheKeyCaptchaAnswer  = "captcha:answer"
	CacheKeyProductChannel = "products:updates"
)

// 默认货币
const DefaultCurrency = "AED"
