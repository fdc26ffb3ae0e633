package service

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/bazaar-next/internal/constants"
	"github.com/bazaar-next/internal/logger"
	"github.com/bazaar-next/internal/metrics"
	"github.com/bazaar-next/internal/models"
	"github.com/bazaar-next/internal/pricing"
	"github.com/bazaar-next/internal/queue"
	"github.com/bazaar-next/internal/repository"

	"github.com/shopspring/decimal"
	"go.uber.org/multierr"
	"gorm.io/gorm"
)

const (
	defaultOrderCreateTimeout   = 10 * time.Second
	defaultSubmissionAttempts   = 5
	defaultSubmissionRetryBase  = 30 * time.Second
	maxSubmissionRetryDelay     = 30 * time.Minute
	defaultReconcileGrace       = 2 * time.Minute
	defaultReconcileBatchSize   = 50
	defaultOrderNumberPrefix    = "BZ"
	clientRefRandomDigitsLength = 6
)

// 下单后续步骤的执行顺序
var submissionStepOrder = []string{
	constants.SubmissionStepCreateOrder,
	constants.SubmissionStepRawOrder,
	constants.SubmissionStepEmail,
	constants.SubmissionStepWhatsApp,
	constants.SubmissionStepOrderItems,
	constants.SubmissionStepPointsSpent,
	constants.SubmissionStepPointsEarned,
	constants.SubmissionStepCouponUse,
}

// SubmissionOptions 下单编排参数
type SubmissionOptions struct {
	CreateTimeout  time.Duration
	MaxAttempts    int
	RetryBase      time.Duration
	ReconcileGrace time.Duration
	ReconcileBatch int
	NumberPrefix   string
	DefaultCountry string
}

// SubmissionService 下单编排：创建订单后按顺序执行尽力而为的后续步骤
type SubmissionService struct {
	policy     pricing.Policy
	orderRepo  repository.GuestOrderRepository
	itemRepo   repository.OrderItemRepository
	rawRepo    repository.RawOrderRepository
	pointsRepo repository.PointsRepository
	couponRepo repository.CouponRepository
	subRepo    repository.SubmissionRepository
	email      *EmailService
	whatsapp   *WhatsAppService
	tokens     *OrderTokenService
	queue      *queue.Client
	metrics    *metrics.Metrics
	opts       SubmissionOptions
	now        func() time.Time
}

// SubmissionDeps 下单编排依赖
type SubmissionDeps struct {
	Policy     pricing.Policy
	OrderRepo  repository.GuestOrderRepository
	ItemRepo   repository.OrderItemRepository
	RawRepo    repository.RawOrderRepository
	PointsRepo repository.PointsRepository
	CouponRepo repository.CouponRepository
	SubRepo    repository.SubmissionRepository
	Email      *EmailService
	WhatsApp   *WhatsAppService
	Tokens     *OrderTokenService
	Queue      *queue.Client
	Metrics    *metrics.Metrics
}

// NewSubmissionService 创建下单编排服务
func NewSubmissionService(deps SubmissionDeps, opts SubmissionOptions) *SubmissionService {
	if opts.CreateTimeout <= 0 {
		opts.CreateTimeout = defaultOrderCreateTimeout
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = defaultSubmissionAttempts
	}
	if opts.RetryBase <= 0 {
		opts.RetryBase = defaultSubmissionRetryBase
	}
	if opts.ReconcileGrace <= 0 {
		opts.ReconcileGrace = defaultReconcileGrace
	}
	if opts.ReconcileBatch <= 0 {
		opts.ReconcileBatch = defaultReconcileBatchSize
	}
	if strings.TrimSpace(opts.NumberPrefix) == "" {
		opts.NumberPrefix = defaultOrderNumberPrefix
	}
	return &SubmissionService{
		policy:     deps.Policy,
		orderRepo:  deps.OrderRepo,
		itemRepo:   deps.ItemRepo,
		rawRepo:    deps.RawRepo,
		pointsRepo: deps.PointsRepo,
		couponRepo: deps.CouponRepo,
		subRepo:    deps.SubRepo,
		email:      deps.Email,
		whatsapp:   deps.WhatsApp,
		tokens:     deps.Tokens,
		queue:      deps.Queue,
		metrics:    deps.Metrics,
		opts:       opts,
		now:        time.Now,
	}
}

// SubmitItem 下单商品行
type SubmitItem struct {
	ID        uint            `json:"id" binding:"required"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Quantity  int             `json:"quantity" binding:"required,min=1"`
	Weight    float64         `json:"weight"`
	Unit      string          `json:"unit"`
	DubaiOnly bool            `json:"dubai_only"`
	// WeightKg 为 true 时 Weight 已是千克（来自购物车状态），不再换算
	WeightKg  bool            `json:"-"`
}

func (i SubmitItem) weightKg() float64 {
	if i.WeightKg {
		return i.Weight
	}
	return pricing.NormalizeWeight(i.Weight)
}

// SubmitInput 下单输入
type SubmitInput struct {
	ClientRef           string       `json:"client_ref"`
	CheckoutSessionID   string       `json:"-"`
	Name                string       `json:"name" binding:"required"`
	Email               string       `json:"email"`
	MobileCountryCode   string       `json:"mobile_country_code"`
	Mobile              string       `json:"mobile" binding:"required"`
	WhatsappCountryCode string       `json:"whatsapp_country_code"`
	Whatsapp            string       `json:"whatsapp"`
	City                string       `json:"city"`
	Area                string       `json:"area"`
	Address             string       `json:"address"`
	PaymentMethod       string       `json:"payment_method"`
	GroundFloorPickup   bool         `json:"ground_floor_pickup"`
	Items               []SubmitItem `json:"items" binding:"required,min=1,dive"`
	CouponCode          string       `json:"coupon_code"`
	RedeemPoints        int64        `json:"redeem_points"`
	Locale              string       `json:"locale"`
}

// StepReport 单个步骤的执行情况
type StepReport struct {
	Step        string     `json:"step"`
	Status      string     `json:"status"`
	Attempts    int        `json:"attempts"`
	LastError   string     `json:"last_error,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// SubmissionReport 订单的步骤报告
type SubmissionReport struct {
	OrderID   uint         `json:"order_id"`
	ClientRef string       `json:"client_ref"`
	Complete  bool         `json:"complete"`
	Steps     []StepReport `json:"steps"`
}

// SubmissionResult 下单结果
type SubmissionResult struct {
	OrderID        uint         `json:"order_id"`
	OrderNo        string       `json:"order_no"`
	ClientRef      string       `json:"client_ref"`
	Token          string       `json:"order_token"`
	TokenExpiresAt time.Time    `json:"order_token_expires_at"`
	Subtotal       models.Money `json:"subtotal"`
	Shipping       models.Money `json:"shipping"`
	OverWeightFee  models.Money `json:"over_weight_fee"`
	CouponDiscount models.Money `json:"coupon_discount"`
	RedeemValue    models.Money `json:"redeem_value"`
	Total          models.Money `json:"total"`
	EarnPoints     int64        `json:"earn_points"`
	Steps          []StepReport `json:"steps"`
	Warnings       []string     `json:"warnings,omitempty"`
	Replayed       bool         `json:"replayed,omitempty"`
}

// NewClientRef 生成客户端下单标识：前缀 + 时间戳 + 6 位随机数
func NewClientRef(prefix string, now time.Time) string {
	if strings.TrimSpace(prefix) == "" {
		prefix = defaultOrderNumberPrefix
	}
	return fmt.Sprintf("%s%d%0*d", prefix, now.UnixMilli(), clientRefRandomDigitsLength, rand.IntN(1000000))
}

// FormatOrderNo 订单号展示格式
func FormatOrderNo(prefix string, orderID uint) string {
	return fmt.Sprintf("%s-%06d", prefix, orderID)
}

// submissionPlan 下单前计算的金额与快照
type submissionPlan struct {
	lines        models.LineSnapshots
	totals       pricing.Totals
	coupon       *models.Coupon
	couponPct    decimal.Decimal
	couponAmount decimal.Decimal
	redeemPoints int64
	redeemValue  decimal.Decimal
	payable      decimal.Decimal
	earnPoints   int64
	mobile       string
	whatsapp     string
	paymentType  int
}

func (s *SubmissionService) plan(input SubmitInput) (*submissionPlan, error) {
	if len(input.Items) == 0 {
		return nil, ErrOrderItemsRequired
	}
	mobile := NormalizeMobile(input.MobileCountryCode, input.Mobile, s.opts.DefaultCountry)
	if mobile == "" {
		return nil, ErrMobileRequired
	}
	p := &submissionPlan{mobile: mobile, paymentType: constants.PaymentTypeCash}
	if strings.EqualFold(strings.TrimSpace(input.PaymentMethod), constants.PaymentMethodCard) {
		p.paymentType = constants.PaymentTypeCard
	}
	p.whatsapp = NormalizeMobile(input.WhatsappCountryCode, input.Whatsapp, s.opts.DefaultCountry)
	if p.whatsapp == "" {
		p.whatsapp = mobile
	}

	lines := make([]pricing.Line, 0, len(input.Items))
	for _, item := range input.Items {
		if item.ID == 0 || item.Quantity <= 0 || item.Price.Sign() < 0 {
			return nil, ErrInvalidOrderItem
		}
		weight := item.weightKg()
		lines = append(lines, pricing.Line{Price: item.Price, Quantity: item.Quantity, Weight: weight})
		p.lines = append(p.lines, models.LineSnapshot{
			ProductID: item.ID,
			Name:      strings.TrimSpace(item.Name),
			Price:     models.NewMoneyFromDecimal(item.Price),
			Quantity:  item.Quantity,
			Weight:    weight,
			Unit:      item.Unit,
			DubaiOnly: item.DubaiOnly,
		})
	}

	// 积分抵扣不超过小计
	subtotal := s.policy.Calculate(lines, decimal.Zero, input.GroundFloorPickup).Subtotal
	p.redeemPoints = input.RedeemPoints
	if p.redeemPoints < 0 {
		return nil, ErrPointsEntryInvalid
	}
	if s.policy.PointValue.Sign() > 0 {
		maxPoints := subtotal.Div(s.policy.PointValue).Floor().IntPart()
		if p.redeemPoints > maxPoints {
			p.redeemPoints = maxPoints
		}
	}
	p.redeemValue = s.policy.RewardValue(p.redeemPoints)
	p.totals = s.policy.Calculate(lines, p.redeemValue, input.GroundFloorPickup)

	p.couponPct = decimal.Zero
	if code := strings.TrimSpace(input.CouponCode); code != "" {
		coupon, err := s.couponRepo.GetByCode(code)
		if err != nil {
			return nil, err
		}
		if coupon == nil {
			return nil, ErrCouponNotFound
		}
		if err := checkCoupon(coupon, s.now()); err != nil {
			return nil, err
		}
		p.coupon = coupon
		p.couponPct = coupon.Discount.Decimal
	}
	p.couponAmount = s.policy.CouponDiscount(p.totals.Subtotal, p.couponPct)
	p.payable = s.policy.Payable(p.totals, p.couponPct)
	p.earnPoints = s.policy.EarnedPoints(p.totals.Subtotal, p.redeemValue)
	return p, nil
}

// Submit 创建订单并执行后续步骤；相同 client_ref 重复提交返回已有订单
func (s *SubmissionService) Submit(ctx context.Context, input SubmitInput) (*SubmissionResult, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	clientRef := strings.TrimSpace(input.ClientRef)
	if clientRef == "" {
		clientRef = NewClientRef(s.opts.NumberPrefix, s.now())
	}
	existing, err := s.orderRepo.GetByClientRef(clientRef)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrOrderFetchFailed, err)
	}
	if existing != nil {
		result, err := s.resultFor(existing)
		if err != nil {
			return nil, err
		}
		result.Replayed = true
		return result, nil
	}

	plan, err := s.plan(input)
	if err != nil {
		return nil, err
	}
	order, submission, err := s.createOrder(ctx, clientRef, input, plan)
	if err != nil {
		return nil, err
	}

	runErr := s.runSteps(ctx, order, submission, false)
	result, err := s.resultFor(order)
	if err != nil {
		return nil, err
	}
	for _, stepErr := range multierr.Errors(runErr) {
		result.Warnings = append(result.Warnings, stepErr.Error())
	}
	return result, nil
}

// createOrder 在单个事务内写入订单、预占优惠券、扣减积分并登记步骤
func (s *SubmissionService) createOrder(ctx context.Context, clientRef string, input SubmitInput, plan *submissionPlan) (*models.GuestOrder, *models.OrderSubmission, error) {
	createCtx, cancel := context.WithTimeout(ctx, s.opts.CreateTimeout)
	defer cancel()

	var (
		order      *models.GuestOrder
		submission *models.OrderSubmission
	)
	err := repository.WithRetry(createCtx, repository.DefaultRetryPolicy, "order_create", func(ctx context.Context) error {
		return models.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			order = s.buildOrder(clientRef, input, plan)
			if err := s.orderRepo.WithTx(tx).Create(order); err != nil {
				return err
			}
			order.OrderNo = FormatOrderNo(s.opts.NumberPrefix, order.OrderID)
			if err := s.orderRepo.WithTx(tx).Update(order.OrderID, map[string]interface{}{"order_no": order.OrderNo}); err != nil {
				return err
			}

			if plan.coupon != nil {
				ok, err := s.couponRepo.WithTx(tx).ReserveUse(plan.coupon.CouponID, s.now())
				if err != nil {
					return err
				}
				if !ok {
					return ErrCouponExhausted
				}
			}
			if plan.redeemPoints > 0 {
				pointsRepo := s.pointsRepo.WithTx(tx)
				balance, err := pointsRepo.Balance(plan.mobile)
				if err != nil {
					return err
				}
				if balance < plan.redeemPoints {
					return ErrPointsInsufficient
				}
				orderID := order.OrderID
				if err := pointsRepo.Create(&models.PointsLedger{
					Mobile:       plan.mobile,
					OrderID:      &orderID,
					RedeemPoints: plan.redeemPoints,
					Status:       constants.PointsStatusSpent,
					Note:         "redeemed on " + order.OrderNo,
				}); err != nil {
					return err
				}
			}

			var steps []models.OrderSubmissionStep
			submission, steps = s.buildSubmission(order, input, plan)
			if err := s.subRepo.WithTx(tx).Create(submission, steps); err != nil {
				return err
			}
			submission.Steps = steps
			return nil
		})
	})
	if err != nil {
		if errors.Is(createCtx.Err(), context.DeadlineExceeded) {
			logger.FromContext(ctx).Errorw("order_create_timeout", "client_ref", clientRef, "timeout", s.opts.CreateTimeout.String())
			return nil, nil, ErrOrderCreateTimeout
		}
		if errors.Is(err, ErrCouponExhausted) || errors.Is(err, ErrPointsInsufficient) {
			return nil, nil, err
		}
		logger.FromContext(ctx).Errorw("order_create_failed", "client_ref", clientRef, "error", err)
		return nil, nil, fmt.Errorf("%w: %v", ErrOrderCreateFailed, err)
	}
	s.metrics.ObserveStep(constants.SubmissionStepCreateOrder, constants.SubmissionStatusCompleted, 0)
	logger.FromContext(ctx).Infow("order_created",
		"order_id", order.OrderID,
		"order_no", order.OrderNo,
		"client_ref", clientRef,
		"total", order.Total.String(),
	)
	return order, submission, nil
}

func (s *SubmissionService) buildOrder(clientRef string, input SubmitInput, plan *submissionPlan) *models.GuestOrder {
	order := &models.GuestOrder{
		ClientRef:         clientRef,
		UserName:          strings.TrimSpace(input.Name),
		Email:             strings.TrimSpace(input.Email),
		Mobile:            plan.mobile,
		Whatsapp:          plan.whatsapp,
		City:              strings.TrimSpace(input.City),
		Area:              strings.TrimSpace(input.Area),
		Address:           strings.TrimSpace(input.Address),
		Amount:            models.NewMoneyFromDecimal(plan.totals.Subtotal),
		ShippingCharges:   models.NewMoneyFromDecimal(plan.totals.Shipping),
		DeliveryCharges:   models.NewMoneyFromDecimal(plan.totals.OverWeightFee),
		Discount:          models.NewMoneyFromDecimal(plan.couponAmount),
		ServiceFee:        models.ZeroMoney(),
		RedeemAmount:      models.NewMoneyFromDecimal(plan.redeemValue),
		RedeemPoints:      plan.redeemPoints,
		Total:             models.NewMoneyFromDecimal(plan.payable),
		TotalWeight:       pricing.RoundWeight(plan.totals.TotalWeight),
		CouponPercent:     models.NewMoneyFromDecimal(plan.couponPct),
		GroundFloorPickup: input.GroundFloorPickup,
		PaymentType:       plan.paymentType,
		PaymentStatus:     constants.PaymentStatusPending,
		Status:            constants.OrderStatusPlaced,
		Locale:            input.Locale,
	}
	if plan.coupon != nil {
		order.CouponCode = plan.coupon.CouponCode
	}
	return order
}

func (s *SubmissionService) buildSubmission(order *models.GuestOrder, input SubmitInput, plan *submissionPlan) (*models.OrderSubmission, []models.OrderSubmissionStep) {
	payload := models.SubmissionPayload{
		Items:          plan.lines,
		CustomerEmail:  order.Email,
		Whatsapp:       plan.whatsapp,
		Locale:         input.Locale,
		CouponCode:     order.CouponCode,
		CouponPercent:  models.NewMoneyFromDecimal(plan.couponPct),
		RedeemPoints:   plan.redeemPoints,
		RedeemValue:    models.NewMoneyFromDecimal(plan.redeemValue),
		EarnPoints:     plan.earnPoints,
		PaymentMethod:  strings.ToLower(strings.TrimSpace(input.PaymentMethod)),
		GroundFloor:    input.GroundFloorPickup,
		CheckoutSessID: input.CheckoutSessionID,
	}
	if plan.coupon != nil {
		payload.CouponID = plan.coupon.CouponID
	}

	now := s.now()
	steps := make([]models.OrderSubmissionStep, 0, len(submissionStepOrder))
	for i, name := range submissionStepOrder {
		step := models.OrderSubmissionStep{Step: name, Seq: i + 2, Status: constants.SubmissionStatusPending}
		switch name {
		case constants.SubmissionStepCreateOrder:
			step.Status = constants.SubmissionStatusCompleted
		case constants.SubmissionStepPointsSpent:
			step.Status = constants.SubmissionStatusSkipped
			if plan.redeemPoints > 0 {
				step.Status = constants.SubmissionStatusCompleted
			}
		case constants.SubmissionStepCouponUse:
			step.Status = constants.SubmissionStatusSkipped
			if plan.coupon != nil {
				step.Status = constants.SubmissionStatusCompleted
			}
		case constants.SubmissionStepPointsEarned:
			if plan.earnPoints <= 0 {
				step.Status = constants.SubmissionStatusSkipped
			}
		}
		if step.Status == constants.SubmissionStatusCompleted {
			step.Attempts = 1
			step.CompletedAt = &now
		}
		steps = append(steps, step)
	}
	return &models.OrderSubmission{
		OrderID:   order.OrderID,
		ClientRef: order.ClientRef,
		Payload:   payload,
	}, steps
}

func stepRunnable(step models.OrderSubmissionStep) bool {
	return step.Status == constants.SubmissionStatusPending || step.Status == constants.SubmissionStatusFailed
}

// runSteps 按顺序执行未完成的步骤，失败的步骤推送重试任务
// force 为 true 时忽略尝试次数上限
func (s *SubmissionService) runSteps(ctx context.Context, order *models.GuestOrder, submission *models.OrderSubmission, force bool) error {
	var errs error
	for i := range submission.Steps {
		step := &submission.Steps[i]
		if !stepRunnable(*step) {
			continue
		}
		if !force && step.Attempts >= s.opts.MaxAttempts {
			continue
		}
		if err := s.runStep(ctx, order, submission, step); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("%s: %w", step.Step, err))
			s.scheduleRetry(order.OrderID, step)
		}
	}
	return errs
}

// runStep 执行单个步骤并持久化结果
func (s *SubmissionService) runStep(ctx context.Context, order *models.GuestOrder, submission *models.OrderSubmission, step *models.OrderSubmissionStep) error {
	started := s.now()
	err := s.executeStep(ctx, order, submission, step.Step)

	step.Attempts++
	updates := map[string]interface{}{"attempts": step.Attempts}
	switch {
	case err == nil:
		completed := s.now()
		step.Status = constants.SubmissionStatusCompleted
		step.LastError = ""
		step.CompletedAt = &completed
		updates["completed_at"] = completed
	case isNotificationDisabled(err):
		step.Status = constants.SubmissionStatusSkipped
		step.LastError = err.Error()
		err = nil
	default:
		step.Status = constants.SubmissionStatusFailed
		step.LastError = truncateError(err.Error())
		logger.FromContext(ctx).Warnw("order_submission_step_failed",
			"order_id", order.OrderID,
			"step", step.Step,
			"attempts", step.Attempts,
			"error", err,
		)
	}
	updates["status"] = step.Status
	updates["last_error"] = step.LastError
	s.metrics.ObserveStep(step.Step, step.Status, s.now().Sub(started))

	if step.ID != 0 {
		if updateErr := s.subRepo.UpdateStep(step.ID, updates); updateErr != nil {
			logger.FromContext(ctx).Errorw("order_submission_step_update_failed", "order_id", order.OrderID, "step", step.Step, "error", updateErr)
		}
	}
	return err
}

func truncateError(msg string) string {
	const limit = 1000
	if len(msg) > limit {
		return msg[:limit]
	}
	return msg
}

func (s *SubmissionService) executeStep(ctx context.Context, order *models.GuestOrder, submission *models.OrderSubmission, step string) error {
	payload := submission.Payload
	switch step {
	case constants.SubmissionStepRawOrder:
		orderID := order.OrderID
		return s.rawRepo.Create(&models.RawOrder{
			OrderID:   &orderID,
			ClientRef: order.ClientRef,
			SessionID: payload.CheckoutSessID,
			UserName:  order.UserName,
			Email:     order.Email,
			Mobile:    order.Mobile,
			Whatsapp:  order.Whatsapp,
			City:      order.City,
			Area:      order.Area,
			Address:   order.Address,
			Items:     payload.Items,
			Subtotal:  order.Amount,
			Total:     order.Total,
		})
	case constants.SubmissionStepEmail:
		if strings.TrimSpace(payload.CustomerEmail) == "" {
			return ErrEmailServiceNotConfigured
		}
		if s.email == nil {
			return ErrEmailServiceDisabled
		}
		return s.email.SendOrderConfirmation(ctx, payload.CustomerEmail, BuildOrderEmailData(order, payload.Items, payload.EarnPoints))
	case constants.SubmissionStepWhatsApp:
		if s.whatsapp == nil {
			return ErrWhatsAppDisabled
		}
		to := payload.Whatsapp
		if to == "" {
			to = order.Mobile
		}
		_, err := s.whatsapp.SendOrderConfirmation(ctx, to, OrderWhatsAppData{
			CustomerName: order.UserName,
			OrderNo:      order.OrderNo,
			Total:        order.Total.String(),
			Locale:       payload.Locale,
		})
		return err
	case constants.SubmissionStepOrderItems:
		items := make([]models.OrderItem, 0, len(payload.Items))
		for i, line := range payload.Items {
			items = append(items, models.OrderItem{
				OrderID:   order.OrderID,
				LineNo:    i + 1,
				ProductID: line.ProductID,
				Name:      line.Name,
				Price:     line.Price,
				Quantity:  line.Quantity,
				Total:     models.NewMoneyFromDecimal(line.Price.Decimal.Mul(decimal.NewFromInt(int64(line.Quantity)))),
				Weight:    line.Weight,
			})
		}
		_, err := s.itemRepo.CreateIgnoreExisting(items)
		return err
	case constants.SubmissionStepPointsSpent:
		return s.appendOrderPoints(order, payload.RedeemPoints, constants.PointsStatusSpent, "redeemed on "+order.OrderNo)
	case constants.SubmissionStepPointsEarned:
		return s.appendOrderPoints(order, -payload.EarnPoints, constants.PointsStatusEarned, "earned on "+order.OrderNo)
	case constants.SubmissionStepCouponUse:
		if payload.CouponID == 0 {
			return nil
		}
		ok, err := s.couponRepo.ReserveUse(payload.CouponID, s.now())
		if err != nil {
			return err
		}
		if !ok {
			return ErrCouponExhausted
		}
		return nil
	default:
		return fmt.Errorf("%w: %s", ErrSubmissionStepUnknown, step)
	}
}

// appendOrderPoints 同一订单同一状态只记一次
func (s *SubmissionService) appendOrderPoints(order *models.GuestOrder, points int64, status int, note string) error {
	if points == 0 {
		return nil
	}
	exists, err := s.pointsRepo.ExistsForOrder(order.OrderID, status)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	orderID := order.OrderID
	return s.pointsRepo.Create(&models.PointsLedger{
		Mobile:       order.Mobile,
		OrderID:      &orderID,
		RedeemPoints: points,
		Status:       status,
		Note:         note,
	})
}

// retryDelay 指数退避
func (s *SubmissionService) retryDelay(attempts int) time.Duration {
	if attempts < 1 {
		attempts = 1
	}
	delay := s.opts.RetryBase
	for i := 1; i < attempts; i++ {
		delay *= 2
		if delay >= maxSubmissionRetryDelay {
			return maxSubmissionRetryDelay
		}
	}
	return delay
}

func (s *SubmissionService) scheduleRetry(orderID uint, step *models.OrderSubmissionStep) {
	remaining := s.opts.MaxAttempts - step.Attempts
	if remaining <= 0 || !s.queue.Enabled() {
		return
	}
	err := s.queue.EnqueueSubmissionStep(queue.SubmissionStepPayload{OrderID: orderID, Step: step.Step}, s.retryDelay(step.Attempts), remaining-1)
	if err != nil {
		logger.Warnw("order_submission_retry_enqueue_failed", "order_id", orderID, "step", step.Step, "error", err)
	}
}

func (s *SubmissionService) loadSubmission(orderID uint) (*models.GuestOrder, *models.OrderSubmission, error) {
	order, err := s.orderRepo.GetByID(orderID)
	if err != nil {
		return nil, nil, err
	}
	if order == nil {
		return nil, nil, ErrOrderNotFound
	}
	submission, err := s.subRepo.GetByOrderID(orderID)
	if err != nil {
		return nil, nil, err
	}
	if submission == nil {
		return nil, nil, ErrSubmissionNotFound
	}
	return order, submission, nil
}

// RetryStep 重试单个步骤，供队列任务调用；已完成或超过次数时直接返回
func (s *SubmissionService) RetryStep(ctx context.Context, orderID uint, stepName string) error {
	order, submission, err := s.loadSubmission(orderID)
	if err != nil {
		return err
	}
	for i := range submission.Steps {
		step := &submission.Steps[i]
		if step.Step != stepName {
			continue
		}
		if !stepRunnable(*step) {
			return nil
		}
		if step.Attempts >= s.opts.MaxAttempts {
			logger.FromContext(ctx).Warnw("order_submission_step_exhausted", "order_id", orderID, "step", stepName, "attempts", step.Attempts)
			return nil
		}
		return s.runStep(ctx, order, submission, step)
	}
	return fmt.Errorf("%w: %s", ErrSubmissionStepUnknown, stepName)
}

// Reconcile 扫描超过宽限期仍未完成的步骤，入队重试或直接执行，返回处理数
func (s *SubmissionService) Reconcile(ctx context.Context) (int, error) {
	before := s.now().Add(-s.opts.ReconcileGrace)
	steps, err := s.subRepo.ListRetryable(before, s.opts.MaxAttempts, s.opts.ReconcileBatch)
	if err != nil {
		return 0, err
	}
	handled := 0
	var errs error
	for _, step := range steps {
		if ctx.Err() != nil {
			break
		}
		if s.queue.Enabled() {
			remaining := s.opts.MaxAttempts - step.Attempts - 1
			if err := s.queue.EnqueueSubmissionStep(queue.SubmissionStepPayload{OrderID: step.OrderID, Step: step.Step}, 0, remaining); err != nil {
				errs = multierr.Append(errs, err)
				continue
			}
		} else if err := s.RetryStep(ctx, step.OrderID, step.Step); err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		handled++
	}
	if handled > 0 {
		logger.Infow("order_submission_reconciled", "steps", handled)
	}
	return handled, errs
}

// ReconcileOrder 立即执行订单所有未完成的步骤（管理员操作，不受次数上限限制）
func (s *SubmissionService) ReconcileOrder(ctx context.Context, orderID uint) (*SubmissionReport, error) {
	order, submission, err := s.loadSubmission(orderID)
	if err != nil {
		return nil, err
	}
	if runErr := s.runSteps(ctx, order, submission, true); runErr != nil {
		logger.FromContext(ctx).Warnw("order_submission_reconcile_partial", "order_id", orderID, "error", runErr)
	}
	return buildReport(submission), nil
}

// Report 返回订单步骤报告
func (s *SubmissionService) Report(orderID uint) (*SubmissionReport, error) {
	_, submission, err := s.loadSubmission(orderID)
	if err != nil {
		return nil, err
	}
	return buildReport(submission), nil
}

func buildReport(submission *models.OrderSubmission) *SubmissionReport {
	report := &SubmissionReport{OrderID: submission.OrderID, ClientRef: submission.ClientRef, Complete: true}
	for _, step := range submission.Steps {
		report.Steps = append(report.Steps, StepReport{
			Step:        step.Step,
			Status:      step.Status,
			Attempts:    step.Attempts,
			LastError:   step.LastError,
			CompletedAt: step.CompletedAt,
		})
		if stepRunnable(step) {
			report.Complete = false
		}
	}
	return report
}

func (s *SubmissionService) resultFor(order *models.GuestOrder) (*SubmissionResult, error) {
	result := &SubmissionResult{
		OrderID:        order.OrderID,
		OrderNo:        order.OrderNo,
		ClientRef:      order.ClientRef,
		Subtotal:       order.Amount,
		Shipping:       order.ShippingCharges,
		OverWeightFee:  order.DeliveryCharges,
		CouponDiscount: order.Discount,
		RedeemValue:    order.RedeemAmount,
		Total:          order.Total,
	}
	if s.tokens != nil {
		token, expiresAt, err := s.tokens.Issue(order.OrderID)
		if err != nil {
			return nil, err
		}
		result.Token = token
		result.TokenExpiresAt = expiresAt
	}
	submission, err := s.subRepo.GetByOrderID(order.OrderID)
	if err != nil {
		return nil, err
	}
	if submission != nil {
		result.EarnPoints = submission.Payload.EarnPoints
		result.Steps = buildReport(submission).Steps
	}
	return result, nil
}
