package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bazaar-next/internal/constants"
	"github.com/bazaar-next/internal/logger"
	"github.com/bazaar-next/internal/models"
	"github.com/bazaar-next/internal/pricing"
	"github.com/bazaar-next/internal/queue"
	"github.com/bazaar-next/internal/repository"

	"github.com/shopspring/decimal"
	"go.uber.org/multierr"
	"gorm.io/gorm"
)

// OrderDeps 订单服务依赖
type OrderDeps struct {
	Policy         pricing.Policy
	OrderRepo      repository.GuestOrderRepository
	ItemRepo       repository.OrderItemRepository
	PointsRepo     repository.PointsRepository
	SubRepo        repository.SubmissionRepository
	Email          *EmailService
	WhatsApp       *WhatsAppService
	Queue          *queue.Client
	DefaultCountry string
}

// OrderService 订单服务：后台维护、加购、状态通知
type OrderService struct {
	policy         pricing.Policy
	orderRepo      repository.GuestOrderRepository
	itemRepo       repository.OrderItemRepository
	pointsRepo     repository.PointsRepository
	subRepo        repository.SubmissionRepository
	email          *EmailService
	whatsapp       *WhatsAppService
	queueClient    *queue.Client
	defaultCountry string
	now            func() time.Time
}

// NewOrderService 创建订单服务
func NewOrderService(deps OrderDeps) *OrderService {
	return &OrderService{
		policy:         deps.Policy,
		orderRepo:      deps.OrderRepo,
		itemRepo:       deps.ItemRepo,
		pointsRepo:     deps.PointsRepo,
		subRepo:        deps.SubRepo,
		email:          deps.Email,
		whatsapp:       deps.WhatsApp,
		queueClient:    deps.Queue,
		defaultCountry: deps.DefaultCountry,
		now:            time.Now,
	}
}

// ValidOrderStatus 判断状态码是否合法
func ValidOrderStatus(status int) bool {
	return status >= constants.OrderStatusPending && status <= constants.OrderStatusCancelled
}

// OrderUpdateInput 后台更新订单输入，nil 字段不修改
type OrderUpdateInput struct {
	Status        *int             `json:"status"`
	PaymentStatus *int             `json:"payment_status"`
	AwbID         *string          `json:"awb_id"`
	ServiceFee    *decimal.Decimal `json:"service_fee"`
	UserName      *string          `json:"user_name"`
	Email         *string          `json:"email"`
	Mobile        *string          `json:"mobile"`
	Whatsapp      *string          `json:"whatsapp"`
	City          *string          `json:"city"`
	Area          *string          `json:"area"`
	Address       *string          `json:"address"`
}

// Update 后台更新订单；状态变化时通知顾客
func (s *OrderService) Update(ctx context.Context, id uint, input OrderUpdateInput) (*models.GuestOrder, error) {
	order, err := s.orderRepo.GetByID(id)
	if err != nil {
		return nil, ErrOrderFetchFailed
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}

	updates := map[string]interface{}{}
	statusChanged := false
	if input.Status != nil {
		if !ValidOrderStatus(*input.Status) {
			return nil, ErrOrderStatusInvalid
		}
		if *input.Status != order.Status {
			updates["status"] = *input.Status
			statusChanged = true
		}
	}
	if input.PaymentStatus != nil {
		switch *input.PaymentStatus {
		case constants.PaymentStatusPending, constants.PaymentStatusSuccess, constants.PaymentStatusFailed:
			updates["payment_status"] = *input.PaymentStatus
		default:
			return nil, ErrOrderStatusInvalid
		}
	}
	setString := func(column string, value *string) {
		if value != nil {
			updates[column] = strings.TrimSpace(*value)
		}
	}
	setString("awb_id", input.AwbID)
	setString("user_name", input.UserName)
	setString("email", input.Email)
	setString("city", input.City)
	setString("area", input.Area)
	setString("address", input.Address)
	if input.Mobile != nil {
		mobile := NormalizeMobile("", *input.Mobile, s.defaultCountry)
		if mobile == "" {
			return nil, ErrMobileRequired
		}
		updates["mobile"] = mobile
	}
	if input.Whatsapp != nil {
		updates["whatsapp"] = NormalizeMobile("", *input.Whatsapp, s.defaultCountry)
	}
	if input.ServiceFee != nil {
		if input.ServiceFee.Sign() < 0 {
			return nil, ErrOrderUpdateFailed
		}
		order.ServiceFee = models.NewMoneyFromDecimal(*input.ServiceFee)
		updates["service_fee"] = order.ServiceFee
		updates["total"] = models.NewMoneyFromDecimal(orderTotal(order))
	}
	if len(updates) == 0 {
		return order, nil
	}
	updates["updated_at"] = s.now()

	err = repository.WithRetry(ctx, repository.DefaultRetryPolicy, "order_update", func(context.Context) error {
		return s.orderRepo.Update(id, updates)
	})
	if err != nil {
		logger.Errorw("order_update_failed", "order_id", id, "error", err)
		return nil, ErrOrderUpdateFailed
	}
	updated, err := s.orderRepo.GetByIDWithItems(id)
	if err != nil || updated == nil {
		return nil, ErrOrderFetchFailed
	}
	if statusChanged {
		s.notifyStatusChange(ctx, updated)
	}
	return updated, nil
}

// notifyStatusChange 队列可用时入队，否则直接发送；失败只记录日志
func (s *OrderService) notifyStatusChange(ctx context.Context, order *models.GuestOrder) {
	if s.queueClient.Enabled() {
		skipped, err := enqueueOrderStatusMessageIfEligible(s.queueClient, order, order.Status)
		if err != nil {
			logger.Warnw("order_enqueue_status_message_failed", "order_id", order.OrderID, "status", order.Status, "error", err)
		} else if skipped {
			logger.Debugw("order_status_message_skipped", "order_id", order.OrderID, "status", order.Status)
		}
		return
	}
	if err := s.SendStatusMessage(ctx, order.OrderID, order.Status); err != nil {
		logger.Warnw("order_status_message_failed", "order_id", order.OrderID, "status", order.Status, "error", err)
	}
}

// orderTotal 应付总额 = 小计 + 运费 + 超重费 + 服务费 - 优惠券 - 积分抵扣
func orderTotal(order *models.GuestOrder) decimal.Decimal {
	total := order.Amount.Decimal.
		Add(order.ShippingCharges.Decimal).
		Add(order.DeliveryCharges.Decimal).
		Add(order.ServiceFee.Decimal).
		Sub(order.Discount.Decimal).
		Sub(order.RedeemAmount.Decimal)
	if total.Sign() < 0 {
		return decimal.Zero
	}
	return total.Round(2)
}

// Delete 删除订单及其订单项与提交记录
func (s *OrderService) Delete(ctx context.Context, id uint) error {
	order, err := s.orderRepo.GetByID(id)
	if err != nil {
		return ErrOrderFetchFailed
	}
	if order == nil {
		return ErrOrderNotFound
	}
	err = repository.WithRetry(ctx, repository.DefaultRetryPolicy, "order_delete", func(ctx context.Context) error {
		return models.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if err := s.itemRepo.WithTx(tx).DeleteByOrder(id); err != nil {
				return err
			}
			if s.subRepo != nil {
				if err := s.subRepo.WithTx(tx).DeleteByOrder(id); err != nil {
					return err
				}
			}
			return s.orderRepo.WithTx(tx).Delete(id)
		})
	})
	if err != nil {
		logger.Errorw("order_delete_failed", "order_id", id, "error", err)
		return ErrOrderUpdateFailed
	}
	return nil
}

// AddItemLine 加购商品行
type AddItemLine struct {
	ID       uint            `json:"id" binding:"required"`
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
	Quantity int             `json:"quantity" binding:"required,min=1"`
	Weight   float64         `json:"weight"`
}

// AddItemsInput 加购输入
type AddItemsInput struct {
	OrderID uint          `json:"orderId" binding:"required"`
	Items   []AddItemLine `json:"items" binding:"required,min=1,dive"`
}

// AddItemsResult 加购结果
type AddItemsResult struct {
	Order       *models.GuestOrder `json:"order"`
	AddedAmount models.Money       `json:"added_amount"`
	EarnPoints  int64              `json:"earn_points"`
}

// AddItems 向已有订单追加商品：同一事务内重算金额、写入订单项并记录获得积分
func (s *OrderService) AddItems(ctx context.Context, input AddItemsInput) (*AddItemsResult, error) {
	if input.OrderID == 0 {
		return nil, ErrOrderNotFound
	}
	if len(input.Items) == 0 {
		return nil, ErrOrderItemsRequired
	}
	added := decimal.Zero
	addedWeight := 0.0
	for _, item := range input.Items {
		if item.ID == 0 || item.Quantity <= 0 || item.Price.Sign() < 0 {
			return nil, ErrInvalidOrderItem
		}
		qty := decimal.NewFromInt(int64(item.Quantity))
		added = added.Add(item.Price.Mul(qty))
		addedWeight += pricing.NormalizeWeight(item.Weight) * float64(item.Quantity)
	}
	added = added.Round(2)
	earn := s.policy.RewardPoints(added)

	var result *AddItemsResult
	err := repository.WithRetry(ctx, repository.DefaultRetryPolicy, "order_add_items", func(ctx context.Context) error {
		return models.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			orderRepo := s.orderRepo.WithTx(tx)
			itemRepo := s.itemRepo.WithTx(tx)

			order, err := orderRepo.GetByIDForUpdate(input.OrderID)
			if err != nil {
				return err
			}
			if order == nil {
				return ErrOrderNotFound
			}
			if order.Status == constants.OrderStatusCancelled {
				return ErrOrderStatusInvalid
			}

			amount := order.Amount.Decimal.Add(added).Round(2)
			weight := pricing.RoundWeight(order.TotalWeight + addedWeight)
			charges := s.policy.Charges(amount, weight, order.GroundFloorPickup)
			order.Amount = models.NewMoneyFromDecimal(amount)
			order.TotalWeight = weight
			order.ShippingCharges = models.NewMoneyFromDecimal(charges.Shipping)
			order.DeliveryCharges = models.NewMoneyFromDecimal(charges.OverWeightFee)
			order.Discount = models.NewMoneyFromDecimal(s.policy.CouponDiscount(amount, order.CouponPercent.Decimal))
			order.Total = models.NewMoneyFromDecimal(orderTotal(order))

			if err := orderRepo.Update(order.OrderID, map[string]interface{}{
				"amount":           order.Amount,
				"total_weight":     order.TotalWeight,
				"shipping_charges": order.ShippingCharges,
				"delivery_charges": order.DeliveryCharges,
				"discount":         order.Discount,
				"total":            order.Total,
				"updated_at":       s.now(),
			}); err != nil {
				return err
			}

			maxLine, err := itemRepo.MaxLineNo(order.OrderID)
			if err != nil {
				return err
			}
			for i, line := range input.Items {
				qty := decimal.NewFromInt(int64(line.Quantity))
				item := &models.OrderItem{
					OrderID:   order.OrderID,
					LineNo:    maxLine + i + 1,
					ProductID: line.ID,
					Name:      strings.TrimSpace(line.Name),
					Price:     models.NewMoneyFromDecimal(line.Price),
					Quantity:  line.Quantity,
					Total:     models.NewMoneyFromDecimal(line.Price.Mul(qty)),
					Weight:    pricing.NormalizeWeight(line.Weight),
				}
				if err := itemRepo.Create(item); err != nil {
					return err
				}
			}

			if earn > 0 && s.pointsRepo != nil {
				orderID := order.OrderID
				if err := s.pointsRepo.WithTx(tx).Create(&models.PointsLedger{
					Mobile:       order.Mobile,
					OrderID:      &orderID,
					RedeemPoints: -earn,
					Status:       constants.PointsStatusEarned,
					Note:         "added items on " + order.OrderNo,
				}); err != nil {
					return err
				}
			}
			result = &AddItemsResult{
				Order:       order,
				AddedAmount: models.NewMoneyFromDecimal(added),
				EarnPoints:  earn,
			}
			return nil
		})
	})
	if err != nil {
		if errors.Is(err, ErrOrderNotFound) || errors.Is(err, ErrOrderStatusInvalid) {
			return nil, err
		}
		logger.Errorw("order_add_items_failed", "order_id", input.OrderID, "error", err)
		return nil, ErrOrderUpdateFailed
	}

	items, err := s.itemRepo.ListByOrder(input.OrderID)
	if err == nil {
		result.Order.Items = items
	}
	logger.Infow("order_items_added",
		"order_id", input.OrderID,
		"lines", len(input.Items),
		"added_amount", added.StringFixed(2),
		"earn_points", earn,
	)
	return result, nil
}

// SendStatusMessage 通过邮件与 WhatsApp 通知订单状态；渠道关闭视为跳过
func (s *OrderService) SendStatusMessage(ctx context.Context, orderID uint, status int) error {
	order, err := s.orderRepo.GetByID(orderID)
	if err != nil {
		return err
	}
	if order == nil {
		return ErrOrderNotFound
	}
	if !ValidOrderStatus(status) {
		return ErrOrderStatusInvalid
	}

	var errs error
	if s.email != nil && strings.TrimSpace(order.Email) != "" {
		err := s.email.SendOrderStatusEmail(ctx, order.Email, OrderStatusEmailInput{
			OrderNo: order.OrderNo,
			Status:  status,
			Amount:  order.Total,
		}, order.Locale)
		if err != nil && !isNotificationDisabled(err) {
			errs = multierr.Append(errs, fmt.Errorf("email: %w", err))
		}
	}
	if s.whatsapp != nil {
		to := order.Whatsapp
		if to == "" {
			to = order.Mobile
		}
		if to != "" {
			_, err := s.whatsapp.SendOrderStatus(ctx, to, order.UserName, order.OrderNo, status, order.Locale)
			if err != nil && !isNotificationDisabled(err) {
				errs = multierr.Append(errs, fmt.Errorf("whatsapp: %w", err))
			}
		}
	}
	return errs
}
