package checkout

import (
	"errors"
	"math/rand/v2"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/bazaar-next/internal/cart"
	"github.com/bazaar-next/internal/pricing"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/mojocn/base64Captcha"
	"github.com/shopspring/decimal"
)

const (
	defaultRestrictedCity = "Dubai"
	defaultErrorDisplay   = 5 * time.Second
)

// Options 状态机参数
type Options struct {
	RestrictedCity string
	ErrorDisplay   time.Duration
	Now            func() time.Time
	Digit          func() int // 生成 1-9 的个位数
}

// Machine 结账状态机
// 会话数据由调用方持有并持久化，Machine 本身无状态
type Machine struct {
	policy         pricing.Policy
	captcha        base64Captcha.Store
	validate       *validator.Validate
	restrictedCity string
	errorDisplay   time.Duration
	now            func() time.Time
	digit          func() int
}

// NewMachine 创建状态机
func NewMachine(policy pricing.Policy, captchaStore base64Captcha.Store, opts Options) *Machine {
	m := &Machine{
		policy:         policy,
		captcha:        captchaStore,
		validate:       newValidator(),
		restrictedCity: strings.TrimSpace(opts.RestrictedCity),
		errorDisplay:   opts.ErrorDisplay,
		now:            opts.Now,
		digit:          opts.Digit,
	}
	if m.restrictedCity == "" {
		m.restrictedCity = defaultRestrictedCity
	}
	if m.errorDisplay <= 0 {
		m.errorDisplay = defaultErrorDisplay
	}
	if m.now == nil {
		m.now = time.Now
	}
	if m.digit == nil {
		m.digit = func() int { return rand.IntN(10) }
	}
	return m
}

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		tag := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if tag == "" {
			return f.Name
		}
		return tag
	})
	return v
}

// Policy 定价策略
func (m *Machine) Policy() pricing.Policy {
	return m.policy
}

// RestrictedCity 限定城市
func (m *Machine) RestrictedCity() string {
	return m.restrictedCity
}

func (m *Machine) isRestrictedCity(city string) bool {
	return strings.EqualFold(strings.TrimSpace(city), m.restrictedCity)
}

// SubmitDelivery 校验收货信息并进入确认步骤
func (m *Machine) SubmitDelivery(s *Session, form Form, state cart.State) error {
	if s.Step != StepDelivery {
		return ErrStepInvalid
	}
	if len(state.Items) == 0 {
		return ErrCartEmpty
	}
	form = trimForm(form)
	s.Form = mergeForm(s.Form, form)
	if err := m.validateForm(s.Form); err != nil {
		s.setError(errorKey(err), fieldOf(err), nil)
		return err
	}
	if state.HasRegionRestricted() {
		if !m.isRestrictedCity(s.Form.City) {
			until := m.now().Add(m.errorDisplay)
			s.setError("error.city_restricted", m.restrictedCity, &until)
			return ErrCityRestricted
		}
		if s.Form.Area == "" {
			err := &FieldError{Field: "area"}
			s.setError(errorKey(err), "area", nil)
			return err
		}
	}
	s.clearError()
	s.Step = StepReview
	s.touch(m.now())
	return nil
}

// SelectCity 选择城市，购物车含限定城市商品时拒绝其他城市并保留原值
func (m *Machine) SelectCity(s *Session, city string, state cart.State) error {
	city = strings.TrimSpace(city)
	if state.HasRegionRestricted() && !m.isRestrictedCity(city) {
		until := m.now().Add(m.errorDisplay)
		s.setError("error.city_restricted", m.restrictedCity, &until)
		return ErrCityRestricted
	}
	s.Form.City = city
	s.clearError()
	s.touch(m.now())
	return nil
}

// PlaceOrder 选择支付方式后生成算术验证码
func (m *Machine) PlaceOrder(s *Session, paymentMethod string) (*Challenge, error) {
	if s.Step != StepReview {
		return nil, ErrStepInvalid
	}
	if method := strings.ToLower(strings.TrimSpace(paymentMethod)); method != "" {
		s.Form.PaymentMethod = method
	}
	if err := m.validate.Var(s.Form.PaymentMethod, "required,oneof=cash card"); err != nil {
		s.setError("error.payment_method_required", "", nil)
		return nil, ErrPaymentMethodRequired
	}
	challenge, err := m.newChallenge()
	if err != nil {
		return nil, err
	}
	s.Captcha = challenge
	s.Step = StepCaptcha
	s.clearError()
	s.touch(m.now())
	return challenge, nil
}

// AnswerCaptcha 校验答案；答错时重新出题并停留在验证码步骤
func (m *Machine) AnswerCaptcha(s *Session, answer string) (bool, error) {
	if s.Step != StepCaptcha {
		return false, ErrStepInvalid
	}
	if s.Captcha == nil {
		return false, ErrCaptchaRequired
	}
	if m.captcha.Verify(s.Captcha.ID, strings.TrimSpace(answer), true) {
		s.clearError()
		s.touch(m.now())
		return true, nil
	}
	challenge, err := m.newChallenge()
	if err != nil {
		return false, err
	}
	s.Captcha = challenge
	s.setError("error.captcha_invalid", "", nil)
	s.touch(m.now())
	return false, nil
}

// Back 返回上一步，表单保留
func (m *Machine) Back(s *Session) error {
	switch s.Step {
	case StepCaptcha:
		s.Captcha = nil
		s.Step = StepReview
	case StepReview:
		s.Step = StepDelivery
	case StepDelivery:
	default:
		return ErrStepInvalid
	}
	s.clearError()
	s.touch(m.now())
	return nil
}

// MarkPlaced 下单成功后进入终态，清理验证码、优惠券与积分抵扣
func (m *Machine) MarkPlaced(s *Session, clientRef string, orderID uint, orderNo string) {
	s.ClientRef = clientRef
	s.OrderID = orderID
	s.OrderNo = orderNo
	s.Step = StepPlaced
	s.Captcha = nil
	s.Coupon = nil
	s.Redemption = Redemption{BalanceValue: decimal.Zero, Value: decimal.Zero}
	s.clearError()
	s.touch(m.now())
}

// ApplyCoupon 记录已校验通过的优惠券
func (m *Machine) ApplyCoupon(s *Session, coupon AppliedCoupon) error {
	if s.Step == StepPlaced {
		return ErrStepInvalid
	}
	s.Coupon = &coupon
	s.touch(m.now())
	return nil
}

// RemoveCoupon 移除优惠券
func (m *Machine) RemoveCoupon(s *Session) {
	s.Coupon = nil
	s.touch(m.now())
}

// SetPointsBalance 写入积分余额
func (m *Machine) SetPointsBalance(s *Session, points int64) {
	if points < 0 {
		points = 0
	}
	s.Redemption.Balance = points
	s.Redemption.BalanceValue = m.policy.RewardValue(points)
	s.touch(m.now())
}

// ToggleRedeem 开关积分抵扣，返回需要同步到购物车的动作
// 抵扣积分不超过小计可抵扣的上限
func (m *Machine) ToggleRedeem(s *Session, enable bool, state cart.State) (*cart.Action, error) {
	if s.Step == StepPlaced {
		return nil, ErrStepInvalid
	}
	r := &s.Redemption
	if !enable {
		if !r.Enabled {
			return nil, nil
		}
		action := &cart.Action{Type: cart.ActionUndoRedeemPoints, Points: r.Points, Value: r.Value}
		r.Enabled = false
		r.Points = 0
		r.Value = decimal.Zero
		s.touch(m.now())
		return action, nil
	}
	if r.Enabled {
		return nil, nil
	}
	if r.Balance <= 0 {
		return nil, ErrNoPoints
	}
	points := r.Balance
	if m.policy.PointValue.Sign() > 0 {
		maxPoints := state.Subtotal.Div(m.policy.PointValue).Floor().IntPart()
		if points > maxPoints {
			points = maxPoints
		}
	}
	if points <= 0 {
		return nil, ErrNoPoints
	}
	r.Enabled = true
	r.Points = points
	r.Value = m.policy.RewardValue(points)
	s.touch(m.now())
	return &cart.Action{Type: cart.ActionRedeemPoints, Points: r.Points, Value: r.Value}, nil
}

// SyncRedemption 以购物车中实际生效的抵扣积分为准；购物车已撤销抵扣时关闭会话中的抵扣
// 返回会话是否被修改
func (m *Machine) SyncRedemption(s *Session, state cart.State) bool {
	r := &s.Redemption
	if !r.Enabled || r.Points == state.RedeemedPoints {
		return false
	}
	if state.RedeemedPoints <= 0 {
		r.Enabled = false
		r.Points = 0
		r.Value = decimal.Zero
	} else {
		r.Points = state.RedeemedPoints
		r.Value = state.Discount
	}
	s.touch(m.now())
	return true
}

// Summary 结账金额汇总
type Summary struct {
	Totals         pricing.Totals  `json:"totals"`
	CouponPercent  decimal.Decimal `json:"coupon_percent"`
	CouponDiscount decimal.Decimal `json:"coupon_discount"`
	RedeemPoints   int64           `json:"redeem_points"`
	RedeemValue    decimal.Decimal `json:"redeem_value"`
	Payable        decimal.Decimal `json:"payable"`
	EarnPoints     int64           `json:"earn_points"`
}

// Summary 用统一定价策略计算应付金额
func (m *Machine) Summary(s *Session, state cart.State) Summary {
	groundFloor := state.GroundFloorPickup || s.Form.GroundFloorPickup
	totals := m.policy.Calculate(state.Lines(), state.Discount, groundFloor)
	percent := s.CouponPercent()
	return Summary{
		Totals:         totals,
		CouponPercent:  percent,
		CouponDiscount: m.policy.CouponDiscount(totals.Subtotal, percent),
		RedeemPoints:   state.RedeemedPoints,
		RedeemValue:    state.Discount,
		Payable:        m.policy.Payable(totals, percent),
		EarnPoints:     m.policy.EarnedPoints(totals.Subtotal, state.Discount),
	}
}

func (m *Machine) newChallenge() (*Challenge, error) {
	c := &Challenge{ID: uuid.NewString(), Num1: m.digit(), Num2: m.digit()}
	if err := m.captcha.Set(c.ID, strconv.Itoa(c.Num1+c.Num2)); err != nil {
		return nil, err
	}
	return c, nil
}

func (m *Machine) validateForm(form Form) error {
	err := m.validate.Struct(form)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err
	}
	first := verrs[0]
	switch {
	case first.Field() == "email" && first.Tag() == "email":
		return ErrEmailInvalid
	case first.Field() == "mobile" && first.Tag() == "min":
		return ErrMobileInvalid
	case first.Field() == "payment_method":
		return ErrPaymentMethodRequired
	default:
		return &FieldError{Field: first.Field()}
	}
}

func (s *Session) touch(now time.Time) {
	s.UpdatedAt = now
}

func trimForm(f Form) Form {
	f.Name = strings.TrimSpace(f.Name)
	f.Email = strings.TrimSpace(f.Email)
	f.MobileCountryCode = strings.TrimSpace(f.MobileCountryCode)
	f.Mobile = strings.TrimSpace(f.Mobile)
	f.WhatsappCountryCode = strings.TrimSpace(f.WhatsappCountryCode)
	f.Whatsapp = strings.TrimSpace(f.Whatsapp)
	f.City = strings.TrimSpace(f.City)
	f.Area = strings.TrimSpace(f.Area)
	f.Address = strings.TrimSpace(f.Address)
	f.PaymentMethod = strings.ToLower(strings.TrimSpace(f.PaymentMethod))
	return f
}

// mergeForm 新提交覆盖旧值，支付方式未提交时保留
func mergeForm(prev, next Form) Form {
	if next.PaymentMethod == "" {
		next.PaymentMethod = prev.PaymentMethod
	}
	return next
}

func errorKey(err error) string {
	switch {
	case errors.Is(err, ErrEmailInvalid):
		return "error.email_invalid"
	case errors.Is(err, ErrMobileInvalid):
		return "error.mobile_invalid"
	case errors.Is(err, ErrPaymentMethodRequired):
		return "error.payment_method_required"
	case errors.Is(err, ErrFieldRequired):
		return "error.field_required"
	default:
		return "error.bad_request"
	}
}

func fieldOf(err error) string {
	var fe *FieldError
	if errors.As(err, &fe) {
		return fe.Field
	}
	return ""
}
