package i18n

var messages = map[string]map[string]string{
	LocaleEN: {
		"error.bad_request":                "Invalid request",
		"error.unauthorized":               "Unauthorized",
		"error.forbidden":                  "Forbidden",
		"error.not_found":                  "Resource not found",
		"error.internal":                   "Internal server error",
		"error.rate_limited":               "Too many requests, please retry in %d seconds",
		"error.login_too_many":             "Too many login attempts, please retry in %d seconds",
		"error.rate_limit_unavailable":     "Rate limiter unavailable",
		"error.auth_header_missing":        "Authorization header missing",
		"error.auth_header_invalid":        "Authorization header invalid",
		"error.jwt_secret_missing":         "Token secret not configured",
		"error.token_invalid":              "Token invalid or expired",
		"error.login_invalid":              "Invalid username or password",
		"error.order_not_found":            "Order not found",
		"error.order_id_invalid":           "Invalid order id",
		"error.order_create_failed":        "Failed to create order",
		"error.order_update_failed":        "Failed to update order",
		"error.order_delete_failed":        "Failed to delete order",
		"error.order_fetch_failed":         "Failed to load orders",
		"error.order_items_required":       "At least one item is required",
		"error.order_item_invalid":         "Invalid order item",
		"error.order_item_not_found":       "Order item not found",
		"error.order_status_invalid":       "Invalid order status",
		"error.order_token_invalid":        "Order token invalid",
		"error.order_create_timeout":       "Order creation timed out",
		"error.field_required":             "Please fill in: %s",
		"error.email_invalid":              "Invalid email address",
		"error.mobile_invalid":             "Invalid mobile number",
		"error.city_restricted":            "Some items in your cart can only be delivered to %s",
		"error.payment_method_required":    "Please select a payment method",
		"error.captcha_invalid":            "Incorrect answer, please try again",
		"error.captcha_required":           "Please solve the captcha",
		"error.checkout_step_invalid":      "This action is not available at the current checkout step",
		"error.checkout_session_not_found": "Checkout session expired",
		"error.cart_empty":                 "Your cart is empty",
		"error.cart_action_invalid":        "Invalid cart action",
		"error.coupon_not_found":           "Coupon not found",
		"error.coupon_inactive":            "Coupon is not active",
		"error.coupon_expired":             "Coupon has expired",
		"error.coupon_exhausted":           "Coupon usage limit reached",
		"error.coupon_code_exists":         "Coupon code already exists",
		"error.points_insufficient":        "Not enough points",
		"error.points_entry_invalid":       "Invalid points entry",
		"error.points_unavailable":         "No points available to redeem",
		"error.email_disabled":             "Email service disabled",
		"error.email_not_configured":       "Email service not configured",
		"error.email_send_failed":          "Failed to send email",
		"error.email_timeout":              "Email sending timed out",
		"error.whatsapp_disabled":          "WhatsApp service disabled",
		"error.whatsapp_not_configured":    "WhatsApp service not configured",
		"error.whatsapp_send_failed":       "Failed to send WhatsApp message",
		"error.whatsapp_type_invalid":      "Unsupported WhatsApp message type",
		"error.webhook_verify_failed":      "Webhook verification failed",
		"error.admin_id_invalid":           "Invalid admin id",
		"error.admin_id_type_invalid":      "Invalid admin id type",
		"error.login_failed":               "Login failed",
		"error.coupon_invalid":             "Invalid coupon",
		"error.coupon_create_failed":       "Failed to create coupon",
		"error.coupon_update_failed":       "Failed to update coupon",
		"error.coupon_delete_failed":       "Failed to delete coupon",
		"error.coupon_fetch_failed":        "Failed to load coupons",
		"error.points_write_failed":        "Failed to record points",
		"error.whatsapp_recipient_invalid": "Invalid WhatsApp recipient",
		"error.stats_failed":               "Failed to load statistics",
		"error.product_fetch_failed":       "Failed to load products",
		"email.order.subject":              "Order %s confirmed",
		"email.order.greeting":             "Hi %s, thank you for your order!",
		"email.order.items":                "Items",
		"email.order.subtotal":             "Subtotal",
		"email.order.shipping":             "Shipping",
		"email.order.overweight":           "Overweight fee",
		"email.order.coupon":               "Coupon discount",
		"email.order.redeemed":             "Points redeemed",
		"email.order.total":                "Total",
		"email.order.address":              "Delivery address",
		"email.order.payment":              "Payment method",
		"email.order.points_earned":        "You earned %d points with this order",
		"email.order.footer":               "Questions? Reply to this email or call %s.",
		"email.order_status.subject":       "Order %s status updated: %s",
		"email.order_status.body":          "Your order %s is now %s.\nOrder total: %s AED\n\nThank you for shopping with us.",
		"order.status.0":                   "Pending",
		"order.status.1":                   "Placed",
		"order.status.2":                   "Dispatched",
		"order.status.3":                   "On the way",
		"order.status.4":                   "Completed",
		"order.status.5":                   "Cancelled",
		"order.payment.1":                  "Cash on delivery",
		"order.payment.2":                  "Card",
		"whatsapp.order.text":              "Hi %s, your order %s is confirmed. Total: %s AED. Thank you for shopping with us!",
		"whatsapp.order.status":            "Hi %s, your order %s is now: %s.",
	},
	LocaleAR: {
		"error.bad_request":                "طلب غير صالح",
		"error.unauthorized":               "غير مصرح",
		"error.forbidden":                  "ممنوع",
		"error.not_found":                  "المورد غير موجود",
		"error.internal":                   "خطأ داخلي في الخادم",
		"error.rate_limited":               "طلبات كثيرة جدًا، يرجى المحاولة بعد %d ثانية",
		"error.order_not_found":            "الطلب غير موجود",
		"error.order_create_failed":        "تعذر إنشاء الطلب",
		"error.field_required":             "يرجى تعبئة: %s",
		"error.email_invalid":              "البريد الإلكتروني غير صالح",
		"error.city_restricted":            "بعض المنتجات في سلتك متاحة للتوصيل إلى %s فقط",
		"error.payment_method_required":    "يرجى اختيار طريقة الدفع",
		"error.captcha_invalid":            "إجابة خاطئة، يرجى المحاولة مرة أخرى",
		"error.checkout_session_not_found": "انتهت صلاحية جلسة الدفع",
		"error.cart_empty":                 "سلتك فارغة",
		"error.coupon_not_found":           "القسيمة غير موجودة",
		"error.coupon_expired":             "انتهت صلاحية القسيمة",
		"error.coupon_exhausted":           "تم استخدام القسيمة بالحد الأقصى",
		"error.points_insufficient":        "النقاط غير كافية",
		"email.order.subject":              "تم تأكيد الطلب %s",
		"email.order.greeting":             "مرحبًا %s، شكرًا لطلبك!",
		"email.order.total":                "الإجمالي",
		"email.order_status.subject":       "تحديث حالة الطلب %s: %s",
		"order.status.0":                   "قيد الانتظار",
		"order.status.1":                   "تم الطلب",
		"order.status.2":                   "تم الشحن",
		"order.status.3":                   "في الطريق",
		"order.status.4":                   "مكتمل",
		"order.status.5":                   "ملغي",
		"whatsapp.order.text":              "مرحبًا %s، تم تأكيد طلبك %s. الإجمالي: %s درهم. شكرًا لتسوقك معنا!",
	},
}
