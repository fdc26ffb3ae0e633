package service

import "errors"

// 通用错误
var (
	ErrNotFound           = errors.New("resource not found")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrTokenSecretMissing = errors.New("token secret missing")
	ErrMobileRequired     = errors.New("mobile is required")
)

// 订单相关错误
var (
	ErrOrderNotFound         = errors.New("order not found")
	ErrOrderItemNotFound     = errors.New("order item not found")
	ErrInvalidOrderItem      = errors.New("invalid order item")
	ErrOrderItemsRequired    = errors.New("order items required")
	ErrOrderStatusInvalid    = errors.New("invalid order status")
	ErrOrderCreateFailed     = errors.New("order create failed")
	ErrOrderCreateTimeout    = errors.New("order create timed out")
	ErrOrderUpdateFailed     = errors.New("order update failed")
	ErrOrderFetchFailed      = errors.New("order fetch failed")
	ErrOrderTokenInvalid     = errors.New("order token invalid")
	ErrSubmissionNotFound    = errors.New("order submission not found")
	ErrSubmissionStepUnknown = errors.New("unknown submission step")
)

// 优惠券与积分错误
var (
	ErrCouponNotFound     = errors.New("coupon not found")
	ErrCouponInactive     = errors.New("coupon inactive")
	ErrCouponExpired      = errors.New("coupon expired")
	ErrCouponExhausted    = errors.New("coupon usage limit reached")
	ErrCouponCodeExists   = errors.New("coupon code already exists")
	ErrCouponInvalid      = errors.New("invalid coupon")
	ErrPointsInsufficient = errors.New("insufficient points")
	ErrPointsEntryInvalid = errors.New("invalid points entry")
)

// 结账与购物车错误
var (
	ErrCheckoutSessionNotFound = errors.New("checkout session not found")
	ErrCartSessionInvalid      = errors.New("cart session id invalid")
)

// 通知相关错误
var (
	ErrEmailServiceDisabled      = errors.New("email service disabled")
	ErrEmailServiceNotConfigured = errors.New("email service not configured")
	ErrInvalidEmail              = errors.New("invalid email address")
	ErrEmailRecipientRejected    = errors.New("email recipient rejected")
	ErrEmailTimeout              = errors.New("email send timed out")
	ErrWhatsAppDisabled          = errors.New("whatsapp service disabled")
	ErrWhatsAppNotConfigured     = errors.New("whatsapp service not configured")
	ErrWhatsAppSendFailed        = errors.New("whatsapp send failed")
	ErrWhatsAppTypeInvalid       = errors.New("unsupported whatsapp message type")
	ErrWhatsAppRecipientInvalid  = errors.New("whatsapp recipient invalid")
	ErrWebhookVerifyFailed       = errors.New("webhook verification failed")
)

// 商品与统计错误
var (
	ErrProductFetchFailed = errors.New("product fetch failed")
	ErrStatsFailed        = errors.New("stats query failed")
	ErrStatsRangeInvalid  = errors.New("stats range invalid")
)

// isNotificationDisabled 通知渠道关闭或未配置，视为跳过而非失败
func isNotificationDisabled(err error) bool {
	return errors.Is(err, ErrEmailServiceDisabled) ||
		errors.Is(err, ErrEmailServiceNotConfigured) ||
		errors.Is(err, ErrWhatsAppDisabled) ||
		errors.Is(err, ErrWhatsAppNotConfigured)
}
