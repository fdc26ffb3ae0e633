package service

import (
	"context"
	"errors"
	"time"

	"github.com/bazaar-next/internal/cache"
	"github.com/bazaar-next/internal/cart"
	"github.com/bazaar-next/internal/checkout"
	"github.com/bazaar-next/internal/i18n"
	"github.com/bazaar-next/internal/logger"
	"github.com/bazaar-next/internal/models"
	"github.com/bazaar-next/internal/repository"

	"github.com/google/uuid"
)

// CheckoutService 结账会话：状态机 + 购物车 + 优惠券 + 积分 + 下单编排
type CheckoutService struct {
	machine     *checkout.Machine
	sessions    *cache.SessionStore
	carts       *CartService
	coupons     *CouponService
	points      *PointsService
	rawRepo     repository.RawOrderRepository
	submissions *SubmissionService
	now         func() time.Time
}

// NewCheckoutService 创建结账服务
func NewCheckoutService(
	machine *checkout.Machine,
	sessions *cache.SessionStore,
	carts *CartService,
	coupons *CouponService,
	points *PointsService,
	rawRepo repository.RawOrderRepository,
	submissions *SubmissionService,
) *CheckoutService {
	return &CheckoutService{
		machine:     machine,
		sessions:    sessions,
		carts:       carts,
		coupons:     coupons,
		points:      points,
		rawRepo:     rawRepo,
		submissions: submissions,
		now:         time.Now,
	}
}

// CheckoutView 结账会话视图
type CheckoutView struct {
	Session *checkout.Session `json:"session"`
	Step    string            `json:"step"`
	Cart    cart.State        `json:"cart"`
	Summary checkout.Summary  `json:"summary"`
	Error   string            `json:"error,omitempty"`
	Order   *SubmissionResult `json:"order,omitempty"`
}

func (s *CheckoutService) view(session *checkout.Session, state cart.State) *CheckoutView {
	v := &CheckoutView{
		Session: session,
		Step:    session.Step.String(),
		Cart:    state,
		Summary: s.machine.Summary(session, state),
	}
	if session.ErrorKey != "" {
		if session.ErrorUntil == nil || s.now().Before(*session.ErrorUntil) {
			if session.ErrorArg != "" {
				v.Error = i18n.Sprintf(session.Locale, session.ErrorKey, session.ErrorArg)
			} else {
				v.Error = i18n.T(session.Locale, session.ErrorKey)
			}
		}
	}
	return v
}

func (s *CheckoutService) load(ctx context.Context, id string) (*checkout.Session, cart.State, error) {
	var session checkout.Session
	found, err := s.sessions.Load(ctx, id, &session)
	if err != nil {
		return nil, cart.State{}, err
	}
	if !found {
		return nil, cart.State{}, ErrCheckoutSessionNotFound
	}
	state, err := s.carts.Get(ctx, session.CartSessionID)
	if err != nil {
		return nil, cart.State{}, err
	}
	s.machine.SyncRedemption(&session, state)
	return &session, state, nil
}

func (s *CheckoutService) persist(ctx context.Context, session *checkout.Session, state cart.State, opErr error) (*CheckoutView, error) {
	if err := s.sessions.Save(ctx, session.ID, session); err != nil {
		return nil, err
	}
	return s.view(session, state), opErr
}

// Start 为购物车会话开启结账
func (s *CheckoutService) Start(ctx context.Context, cartSessionID, locale string) (*CheckoutView, error) {
	state, err := s.carts.Get(ctx, cartSessionID)
	if err != nil {
		return nil, err
	}
	session := checkout.NewSession(uuid.NewString(), cartSessionID, s.now())
	session.Locale = i18n.Normalize(locale)
	return s.persist(ctx, session, state, nil)
}

// Get 读取结账会话
func (s *CheckoutService) Get(ctx context.Context, id string) (*CheckoutView, error) {
	session, state, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.view(session, state), nil
}

// SubmitDelivery 提交收货信息；通过后写入下单意图记录并查询积分余额
func (s *CheckoutService) SubmitDelivery(ctx context.Context, id string, form checkout.Form) (*CheckoutView, error) {
	session, state, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.machine.SubmitDelivery(session, form, state); err != nil {
		return s.persist(ctx, session, state, err)
	}

	if session.Form.GroundFloorPickup != state.GroundFloorPickup {
		next, err := s.carts.Dispatch(ctx, session.CartSessionID, cart.Action{
			Type:    cart.ActionSetGroundFloorPickup,
			Enabled: session.Form.GroundFloorPickup,
		})
		if err != nil {
			return nil, err
		}
		state = next
	}
	s.recordRawOrder(session, state)

	if s.points != nil {
		balance, err := s.points.Balance(session.Form.MobileCountryCode, session.Form.Mobile)
		if err != nil {
			logger.Warnw("checkout_points_balance_failed", "session_id", session.ID, "error", err)
		} else {
			s.machine.SetPointsBalance(session, balance.Points)
		}
	}
	return s.persist(ctx, session, state, nil)
}

// recordRawOrder 写入下单意图审计，失败只记录日志
func (s *CheckoutService) recordRawOrder(session *checkout.Session, state cart.State) {
	if s.rawRepo == nil {
		return
	}
	summary := s.machine.Summary(session, state)
	record := &models.RawOrder{
		SessionID: session.ID,
		UserName:  session.Form.Name,
		Email:     session.Form.Email,
		Mobile:    s.normalizeMobile(session.Form.MobileCountryCode, session.Form.Mobile),
		Whatsapp:  s.normalizeMobile(session.Form.WhatsappCountryCode, session.Form.Whatsapp),
		City:      session.Form.City,
		Area:      session.Form.Area,
		Address:   session.Form.Address,
		Items:     cartSnapshots(state.Items),
		Subtotal:  models.NewMoneyFromDecimal(summary.Totals.Subtotal),
		Total:     models.NewMoneyFromDecimal(summary.Payable),
	}
	if err := s.rawRepo.Create(record); err != nil {
		logger.Warnw("checkout_raw_order_failed", "session_id", session.ID, "error", err)
	}
}

func (s *CheckoutService) normalizeMobile(countryCode, number string) string {
	if s.points != nil {
		return s.points.Normalize(countryCode, number)
	}
	return NormalizeMobile(countryCode, number, "")
}

func cartSnapshots(items []cart.Item) models.LineSnapshots {
	lines := make(models.LineSnapshots, 0, len(items))
	for _, item := range items {
		lines = append(lines, models.LineSnapshot{
			ProductID: item.ID,
			Name:      item.Name,
			Price:     models.NewMoneyFromDecimal(item.Price),
			Quantity:  item.Quantity,
			Weight:    item.Weight,
			Unit:      item.Unit,
			DubaiOnly: item.RegionRestricted(),
		})
	}
	return lines
}

// SelectCity 选择城市
func (s *CheckoutService) SelectCity(ctx context.Context, id, city string) (*CheckoutView, error) {
	session, state, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.persist(ctx, session, state, s.machine.SelectCity(session, city, state))
}

// PlaceOrder 确认支付方式并生成验证码
func (s *CheckoutService) PlaceOrder(ctx context.Context, id, paymentMethod string) (*CheckoutView, error) {
	session, state, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if len(state.Items) == 0 {
		return s.view(session, state), checkout.ErrCartEmpty
	}
	_, err = s.machine.PlaceOrder(session, paymentMethod)
	return s.persist(ctx, session, state, err)
}

// AnswerCaptcha 校验验证码；答对后创建订单并清空购物车
func (s *CheckoutService) AnswerCaptcha(ctx context.Context, id, answer string) (*CheckoutView, error) {
	session, state, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	ok, err := s.machine.AnswerCaptcha(session, answer)
	if err != nil || !ok {
		return s.persist(ctx, session, state, err)
	}

	if session.ClientRef == "" {
		session.ClientRef = NewClientRef(s.submissions.opts.NumberPrefix, s.now())
	}
	result, err := s.submissions.Submit(ctx, s.submitInput(session, state))
	if err != nil {
		// 创建失败回到确认步骤，保留 client_ref 以便重试时幂等
		session.Captcha = nil
		session.Step = checkout.StepReview
		session.ErrorKey = submitErrorKey(err)
		session.ErrorArg = ""
		session.ErrorUntil = nil
		view, saveErr := s.persist(ctx, session, state, err)
		if saveErr != nil {
			return nil, saveErr
		}
		return view, err
	}

	s.machine.MarkPlaced(session, result.ClientRef, result.OrderID, result.OrderNo)
	if err := s.carts.Clear(ctx, session.CartSessionID); err != nil {
		logger.Warnw("checkout_cart_clear_failed", "session_id", session.ID, "error", err)
	}
	cleared, err := s.carts.Get(ctx, session.CartSessionID)
	if err != nil {
		cleared = cart.Empty()
	}
	view, err := s.persist(ctx, session, cleared, nil)
	if err != nil {
		return nil, err
	}
	view.Order = result
	return view, nil
}

func submitErrorKey(err error) string {
	switch {
	case errors.Is(err, ErrOrderCreateTimeout):
		return "error.order_create_timeout"
	case errors.Is(err, ErrCouponExhausted):
		return "error.coupon_exhausted"
	case errors.Is(err, ErrCouponExpired):
		return "error.coupon_expired"
	case errors.Is(err, ErrCouponInactive):
		return "error.coupon_inactive"
	case errors.Is(err, ErrCouponNotFound):
		return "error.coupon_not_found"
	case errors.Is(err, ErrPointsInsufficient):
		return "error.points_insufficient"
	default:
		return "error.order_create_failed"
	}
}

func (s *CheckoutService) submitInput(session *checkout.Session, state cart.State) SubmitInput {
	form := session.Form
	input := SubmitInput{
		ClientRef:           session.ClientRef,
		CheckoutSessionID:   session.ID,
		Name:                form.Name,
		Email:               form.Email,
		MobileCountryCode:   form.MobileCountryCode,
		Mobile:              form.Mobile,
		WhatsappCountryCode: form.WhatsappCountryCode,
		Whatsapp:            form.Whatsapp,
		City:                form.City,
		Area:                form.Area,
		Address:             form.Address,
		PaymentMethod:       form.PaymentMethod,
		GroundFloorPickup:   state.GroundFloorPickup || form.GroundFloorPickup,
		Locale:              session.Locale,
	}
	for _, item := range state.Items {
		input.Items = append(input.Items, SubmitItem{
			ID:        item.ID,
			Name:      item.Name,
			Price:     item.Price,
			Quantity:  item.Quantity,
			Weight:    item.Weight,
			WeightKg:  true,
			Unit:      item.Unit,
			DubaiOnly: item.RegionRestricted(),
		})
	}
	if session.Coupon != nil {
		input.CouponCode = session.Coupon.CouponCode
	}
	// 抵扣积分取购物车实际生效值，与展示的抵扣金额一致
	if session.Redemption.Enabled {
		input.RedeemPoints = state.RedeemedPoints
	}
	return input
}

// Back 返回上一步
func (s *CheckoutService) Back(ctx context.Context, id string) (*CheckoutView, error) {
	session, state, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.persist(ctx, session, state, s.machine.Back(session))
}

// ApplyCoupon 校验并应用优惠券
func (s *CheckoutService) ApplyCoupon(ctx context.Context, id, code string) (*CheckoutView, error) {
	session, state, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	coupon, err := s.coupons.Validate(code)
	if err != nil {
		return s.view(session, state), err
	}
	applied := checkout.AppliedCoupon{
		CouponID:         coupon.CouponID,
		Discount:         coupon.Discount.Decimal,
		CouponCode:       coupon.CouponCode,
		NumberOfTime:     coupon.NumberOfTime,
		NumberOfTimeUsed: coupon.NumberOfTimeUsed,
		ExpireDate:       coupon.ExpireDate,
		Status:           coupon.Status,
	}
	return s.persist(ctx, session, state, s.machine.ApplyCoupon(session, applied))
}

// RemoveCoupon 移除优惠券
func (s *CheckoutService) RemoveCoupon(ctx context.Context, id string) (*CheckoutView, error) {
	session, state, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	s.machine.RemoveCoupon(session)
	return s.persist(ctx, session, state, nil)
}

// ToggleRedeem 开关积分抵扣并同步到购物车
func (s *CheckoutService) ToggleRedeem(ctx context.Context, id string, enable bool) (*CheckoutView, error) {
	session, state, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	action, err := s.machine.ToggleRedeem(session, enable, state)
	if err != nil {
		return s.view(session, state), err
	}
	if action != nil {
		next, err := s.carts.Dispatch(ctx, session.CartSessionID, *action)
		if err != nil {
			return nil, err
		}
		state = next
	}
	return s.persist(ctx, session, state, nil)
}
