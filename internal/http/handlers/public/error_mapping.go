package public

import (
	"errors"

	"github.com/bazaar-next/internal/cart"
	"github.com/bazaar-next/internal/checkout"
	handlershared "github.com/bazaar-next/internal/http/handlers/shared"
	"github.com/bazaar-next/internal/http/response"
	"github.com/bazaar-next/internal/i18n"
	"github.com/bazaar-next/internal/service"

	"github.com/gin-gonic/gin"
)

// mappedHandlerError 定义业务错误到接口错误响应的映射关系。
type mappedHandlerError struct {
	target error
	code   int
	key    string
}

func respondWithMappedError(c *gin.Context, err error, rules []mappedHandlerError, fallbackCode int, fallbackKey string) {
	respondWithMappedErrorData(c, err, nil, rules, fallbackCode, fallbackKey)
}

// respondWithMappedErrorData 命中规则时附带 data 返回（例如结账会话视图）
func respondWithMappedErrorData(c *gin.Context, err error, data interface{}, rules []mappedHandlerError, fallbackCode int, fallbackKey string) {
	if rule, ok := matchMappedError(err, rules); ok {
		response.ErrorWithData(c, rule.code, i18n.T(i18n.ResolveLocale(c), rule.key), data)
		return
	}
	handlershared.RequestLog(c).Errorw("handler_error", "code", fallbackCode, "error", err)
	response.ErrorWithData(c, fallbackCode, i18n.T(i18n.ResolveLocale(c), fallbackKey), data)
}

func matchMappedError(err error, rules []mappedHandlerError) (mappedHandlerError, bool) {
	for _, rule := range rules {
		if errors.Is(err, rule.target) {
			return rule, true
		}
	}
	return mappedHandlerError{}, false
}

func concatMappedHandlerErrors(groups ...[]mappedHandlerError) []mappedHandlerError {
	total := 0
	for _, group := range groups {
		total += len(group)
	}
	result := make([]mappedHandlerError, 0, total)
	for _, group := range groups {
		result = append(result, group...)
	}
	return result
}

var couponErrorRules = []mappedHandlerError{
	{target: service.ErrCouponNotFound, code: response.CodeNotFound, key: "error.coupon_not_found"},
	{target: service.ErrCouponInactive, code: response.CodeBadRequest, key: "error.coupon_inactive"},
	{target: service.ErrCouponExpired, code: response.CodeBadRequest, key: "error.coupon_expired"},
	{target: service.ErrCouponExhausted, code: response.CodeBadRequest, key: "error.coupon_exhausted"},
	{target: service.ErrCouponInvalid, code: response.CodeBadRequest, key: "error.bad_request"},
}

var pointsErrorRules = []mappedHandlerError{
	{target: service.ErrMobileRequired, code: response.CodeBadRequest, key: "error.mobile_invalid"},
	{target: service.ErrPointsInsufficient, code: response.CodeBadRequest, key: "error.points_insufficient"},
	{target: service.ErrPointsEntryInvalid, code: response.CodeBadRequest, key: "error.points_entry_invalid"},
}

var cartErrorRules = []mappedHandlerError{
	{target: service.ErrCartSessionInvalid, code: response.CodeBadRequest, key: "error.cart_action_invalid"},
	{target: cart.ErrUnknownAction, code: response.CodeBadRequest, key: "error.cart_action_invalid"},
	{target: cart.ErrItemRequired, code: response.CodeBadRequest, key: "error.order_item_invalid"},
	{target: service.ErrInvalidOrderItem, code: response.CodeBadRequest, key: "error.order_item_invalid"},
}

var checkoutErrorRules = concatMappedHandlerErrors(
	[]mappedHandlerError{
		{target: service.ErrCheckoutSessionNotFound, code: response.CodeNotFound, key: "error.checkout_session_not_found"},
		{target: checkout.ErrStepInvalid, code: response.CodeBadRequest, key: "error.checkout_step_invalid"},
		{target: checkout.ErrFieldRequired, code: response.CodeBadRequest, key: "error.field_required"},
		{target: checkout.ErrEmailInvalid, code: response.CodeBadRequest, key: "error.email_invalid"},
		{target: checkout.ErrMobileInvalid, code: response.CodeBadRequest, key: "error.mobile_invalid"},
		{target: checkout.ErrCityRestricted, code: response.CodeBadRequest, key: "error.city_restricted"},
		{target: checkout.ErrPaymentMethodRequired, code: response.CodeBadRequest, key: "error.payment_method_required"},
		{target: checkout.ErrCaptchaRequired, code: response.CodeBadRequest, key: "error.captcha_required"},
		{target: checkout.ErrNoPoints, code: response.CodeBadRequest, key: "error.points_unavailable"},
		{target: checkout.ErrCartEmpty, code: response.CodeBadRequest, key: "error.cart_empty"},
		{target: service.ErrOrderCreateTimeout, code: response.CodeGatewayTimeout, key: "error.order_create_timeout"},
	},
	couponErrorRules,
	pointsErrorRules,
	cartErrorRules,
)

var orderSubmitErrorRules = concatMappedHandlerErrors(
	[]mappedHandlerError{
		{target: service.ErrOrderItemsRequired, code: response.CodeBadRequest, key: "error.order_items_required"},
		{target: service.ErrInvalidOrderItem, code: response.CodeBadRequest, key: "error.order_item_invalid"},
		{target: service.ErrOrderCreateTimeout, code: response.CodeGatewayTimeout, key: "error.order_create_timeout"},
	},
	couponErrorRules,
	pointsErrorRules,
)

var orderReadErrorRules = []mappedHandlerError{
	{target: service.ErrOrderNotFound, code: response.CodeNotFound, key: "error.order_not_found"},
	{target: service.ErrOrderItemNotFound, code: response.CodeNotFound, key: "error.order_item_not_found"},
	{target: service.ErrSubmissionNotFound, code: response.CodeNotFound, key: "error.order_not_found"},
	{target: service.ErrMobileRequired, code: response.CodeBadRequest, key: "error.mobile_invalid"},
}

var addItemsErrorRules = concatMappedHandlerErrors(
	orderReadErrorRules,
	[]mappedHandlerError{
		{target: service.ErrOrderItemsRequired, code: response.CodeBadRequest, key: "error.order_items_required"},
		{target: service.ErrInvalidOrderItem, code: response.CodeBadRequest, key: "error.order_item_invalid"},
		{target: service.ErrOrderStatusInvalid, code: response.CodeBadRequest, key: "error.order_status_invalid"},
	},
)

var whatsappErrorRules = []mappedHandlerError{
	{target: service.ErrWebhookVerifyFailed, code: response.CodeForbidden, key: "error.webhook_verify_failed"},
	{target: service.ErrWhatsAppNotConfigured, code: response.CodeUnavailable, key: "error.whatsapp_not_configured"},
	{target: service.ErrWhatsAppDisabled, code: response.CodeUnavailable, key: "error.whatsapp_disabled"},
}
