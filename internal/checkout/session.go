// Package checkout 结账流程状态机：填写收货信息、确认支付、算术验证码
package checkout

import (
	"time"

	"github.com/shopspring/decimal"
)

// Step 结账步骤
type Step int

// 结账步骤
const (
	StepDelivery Step = iota // 填写收货信息
	StepReview               // 确认订单与支付方式
	StepCaptcha              // 算术验证
	StepPlaced               // 已下单
)

// String 步骤名称
func (s Step) String() string {
	switch s {
	case StepDelivery:
		return "delivery"
	case StepReview:
		return "review"
	case StepCaptcha:
		return "captcha"
	case StepPlaced:
		return "placed"
	default:
		return "unknown"
	}
}

// Form 收货与支付表单
type Form struct {
	Name                string `json:"name" validate:"required"`
	Email               string `json:"email" validate:"required,email"`
	MobileCountryCode   string `json:"mobile_country_code"`
	Mobile              string `json:"mobile" validate:"required,min=6"`
	WhatsappCountryCode string `json:"whatsapp_country_code"`
	Whatsapp            string `json:"whatsapp"`
	City                string `json:"city" validate:"required"`
	Area                string `json:"area"`
	Address             string `json:"address" validate:"required"`
	PaymentMethod       string `json:"payment_method" validate:"omitempty,oneof=cash card"`
	GroundFloorPickup   bool   `json:"ground_floor_pickup"`
	AutoSave            bool   `json:"auto_save"`
}

// AppliedCoupon 已应用的优惠券（仅存在于结账会话）
type AppliedCoupon struct {
	CouponID         uint            `json:"coupon_id"`
	Discount         decimal.Decimal `json:"discount"` // 百分比
	CouponCode       string          `json:"coupon_code"`
	NumberOfTime     int             `json:"numberoftime"`
	NumberOfTimeUsed int             `json:"numberoftimeused"`
	ExpireDate       *time.Time      `json:"expire_date,omitempty"`
	Status           int             `json:"status"`
}

// Challenge 算术验证码题目，答案保存在验证码存储中
type Challenge struct {
	ID   string `json:"captcha_id"`
	Num1 int    `json:"num1"`
	Num2 int    `json:"num2"`
}

// Redemption 积分抵扣状态
type Redemption struct {
	Balance      int64           `json:"balance"`
	BalanceValue decimal.Decimal `json:"balance_value"`
	Enabled      bool            `json:"enabled"`
	Points       int64           `json:"points"`
	Value        decimal.Decimal `json:"value"`
}

// Session 结账会话
type Session struct {
	ID            string         `json:"id"`
	CartSessionID string         `json:"cart_session_id"`
	Step          Step           `json:"step"`
	Form          Form           `json:"form"`
	Coupon        *AppliedCoupon `json:"coupon,omitempty"`
	Redemption    Redemption     `json:"redemption"`
	Captcha       *Challenge     `json:"captcha,omitempty"`
	ErrorKey      string         `json:"error_key,omitempty"`
	ErrorArg      string         `json:"error_arg,omitempty"`
	ErrorUntil    *time.Time     `json:"error_until,omitempty"`
	ClientRef     string         `json:"client_ref,omitempty"`
	OrderID       uint           `json:"order_id,omitempty"`
	OrderNo       string         `json:"order_no,omitempty"`
	Locale        string         `json:"locale,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
}

// NewSession 创建处于收货信息步骤的会话
func NewSession(id, cartSessionID string, now time.Time) *Session {
	return &Session{
		ID:            id,
		CartSessionID: cartSessionID,
		Step:          StepDelivery,
		Redemption:    Redemption{BalanceValue: decimal.Zero, Value: decimal.Zero},
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// CouponPercent 当前优惠券百分比
func (s *Session) CouponPercent() decimal.Decimal {
	if s == nil || s.Coupon == nil {
		return decimal.Zero
	}
	return s.Coupon.Discount
}

func (s *Session) setError(key, arg string, until *time.Time) {
	s.ErrorKey = key
	s.ErrorArg = arg
	s.ErrorUntil = until
}

func (s *Session) clearError() {
	s.ErrorKey = ""
	s.ErrorArg = ""
	s.ErrorUntil = nil
}
