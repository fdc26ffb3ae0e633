package service

import (
	"strings"
	"time"

	"github.com/bazaar-next/internal/constants"
	"github.com/bazaar-next/internal/logger"
	"github.com/bazaar-next/internal/models"
	"github.com/bazaar-next/internal/repository"

	"github.com/shopspring/decimal"
)

// OrderListInput 后台订单列表查询
type OrderListInput struct {
	Page          int
	PageSize      int
	SortBy        string
	SortDesc      bool
	Status        *int
	PaymentStatus *int
	Search        string
	StartDate     *time.Time
	EndDate       *time.Time
}

// List 订单列表
func (s *OrderService) List(input OrderListInput) ([]models.GuestOrder, int64, error) {
	if input.Status != nil && !ValidOrderStatus(*input.Status) {
		return nil, 0, ErrOrderStatusInvalid
	}
	orders, total, err := s.orderRepo.List(repository.GuestOrderListFilter{
		Page:          input.Page,
		PageSize:      input.PageSize,
		SortBy:        input.SortBy,
		SortDesc:      input.SortDesc,
		Status:        input.Status,
		PaymentStatus: input.PaymentStatus,
		Search:        strings.TrimSpace(input.Search),
		CreatedFrom:   input.StartDate,
		CreatedTo:     input.EndDate,
	})
	if err != nil {
		logger.Errorw("order_list_failed", "error", err)
		return nil, 0, ErrOrderFetchFailed
	}
	return orders, total, nil
}

// Get 订单详情（含订单项）
func (s *OrderService) Get(id uint) (*models.GuestOrder, error) {
	order, err := s.orderRepo.GetByIDWithItems(id)
	if err != nil {
		return nil, ErrOrderFetchFailed
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}
	return order, nil
}

// ContactLookup 最近一次下单的联系信息，用于自动填充
// 调用方未提供匹配的邮箱时只返回脱敏信息
type ContactLookup struct {
	UserName string `json:"user_name"`
	Email    string `json:"email"`
	Mobile   string `json:"mobile"`
	Whatsapp string `json:"whatsapp"`
	City     string `json:"city"`
	Area     string `json:"area"`
	Address  string `json:"address"`
	Masked   bool   `json:"masked"`
}

// Lookup 按手机号查找最近订单的联系信息，email 与订单邮箱一致时返回完整信息
func (s *OrderService) Lookup(countryCode, mobile, email string) (*ContactLookup, error) {
	normalized := NormalizeMobile(countryCode, mobile, s.defaultCountry)
	if normalized == "" {
		return nil, ErrMobileRequired
	}
	order, err := s.orderRepo.LatestByMobile(normalized)
	if err != nil {
		return nil, ErrOrderFetchFailed
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}
	email = strings.TrimSpace(email)
	if email != "" && order.Email != "" && strings.EqualFold(email, order.Email) {
		return &ContactLookup{
			UserName: order.UserName,
			Email:    order.Email,
			Mobile:   order.Mobile,
			Whatsapp: order.Whatsapp,
			City:     order.City,
			Area:     order.Area,
			Address:  order.Address,
		}, nil
	}
	return &ContactLookup{
		UserName: maskText(order.UserName, 1),
		Email:    maskEmail(order.Email),
		Mobile:   maskText(order.Mobile, 3),
		Whatsapp: maskText(order.Whatsapp, 3),
		City:     order.City,
		Masked:   true,
	}, nil
}

// maskText 保留前 keep 个字符，其余替换为 *
func maskText(value string, keep int) string {
	runes := []rune(strings.TrimSpace(value))
	if len(runes) == 0 {
		return ""
	}
	if keep >= len(runes) {
		keep = len(runes) - 1
	}
	if keep < 0 {
		keep = 0
	}
	return string(runes[:keep]) + strings.Repeat("*", len(runes)-keep)
}

func maskEmail(email string) string {
	at := strings.LastIndex(email, "@")
	if at <= 0 {
		return maskText(email, 1)
	}
	return maskText(email[:at], 1) + email[at:]
}

// ListItems 订单项列表
func (s *OrderService) ListItems(filter repository.OrderItemListFilter) ([]models.OrderItem, int64, error) {
	items, total, err := s.itemRepo.List(filter)
	if err != nil {
		return nil, 0, ErrOrderFetchFailed
	}
	return items, total, nil
}

// GetItem 订单项详情
func (s *OrderService) GetItem(id uint) (*models.OrderItem, error) {
	item, err := s.itemRepo.GetByID(id)
	if err != nil {
		return nil, ErrOrderFetchFailed
	}
	if item == nil {
		return nil, ErrOrderItemNotFound
	}
	return item, nil
}

// OrderItemInput 创建订单项输入
type OrderItemInput struct {
	OrderID   uint            `json:"order_id" binding:"required"`
	ProductID uint            `json:"product_id" binding:"required"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Quantity  int             `json:"quantity" binding:"required,min=1"`
	Weight    float64         `json:"weight"`
}

// CreateItem 直接写入订单项（不重算订单金额，加购请使用 AddItems）
func (s *OrderService) CreateItem(input OrderItemInput) (*models.OrderItem, error) {
	if input.OrderID == 0 || input.ProductID == 0 || input.Quantity <= 0 || input.Price.Sign() < 0 {
		return nil, ErrInvalidOrderItem
	}
	order, err := s.orderRepo.GetByID(input.OrderID)
	if err != nil {
		return nil, ErrOrderFetchFailed
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}
	item := &models.OrderItem{
		OrderID:   input.OrderID,
		ProductID: input.ProductID,
		Name:      strings.TrimSpace(input.Name),
		Price:     models.NewMoneyFromDecimal(input.Price),
		Quantity:  input.Quantity,
		Total:     models.NewMoneyFromDecimal(input.Price.Mul(decimal.NewFromInt(int64(input.Quantity)))),
		Weight:    input.Weight,
	}
	if err := s.itemRepo.Create(item); err != nil {
		logger.Errorw("order_item_create_failed", "order_id", input.OrderID, "error", err)
		return nil, ErrOrderUpdateFailed
	}
	return item, nil
}

// OrderItemUpdateInput 更新订单项输入，nil 字段不修改
type OrderItemUpdateInput struct {
	Quantity        *int    `json:"quantity"`
	TrackingID      *string `json:"tracking_id"`
	ItemStatus      *int    `json:"item_status"`
	IsPaid          *bool   `json:"is_paid"`
	PayVendor       *string `json:"pay_vendor"`
	PayVendorStatus *int    `json:"pay_vendor_status"`
}

// UpdateItem 更新订单项
func (s *OrderService) UpdateItem(id uint, input OrderItemUpdateInput) (*models.OrderItem, error) {
	item, err := s.GetItem(id)
	if err != nil {
		return nil, err
	}
	updates := map[string]interface{}{}
	if input.Quantity != nil {
		if *input.Quantity <= 0 {
			return nil, ErrInvalidOrderItem
		}
		updates["quantity"] = *input.Quantity
		updates["total"] = models.NewMoneyFromDecimal(item.Price.Decimal.Mul(decimal.NewFromInt(int64(*input.Quantity))))
	}
	if input.TrackingID != nil {
		updates["tracking_id"] = strings.TrimSpace(*input.TrackingID)
	}
	if input.ItemStatus != nil {
		if *input.ItemStatus < constants.OrderItemStatusPending || *input.ItemStatus > constants.OrderItemStatusCancelled {
			return nil, ErrOrderStatusInvalid
		}
		updates["item_status"] = *input.ItemStatus
	}
	if input.IsPaid != nil {
		updates["is_paid"] = *input.IsPaid
	}
	if input.PayVendor != nil {
		updates["pay_vendor"] = strings.TrimSpace(*input.PayVendor)
	}
	if input.PayVendorStatus != nil {
		updates["pay_vendor_status"] = *input.PayVendorStatus
	}
	if len(updates) == 0 {
		return item, nil
	}
	if err := s.itemRepo.Update(id, updates); err != nil {
		return nil, ErrOrderUpdateFailed
	}
	return s.GetItem(id)
}

// DeleteItem 删除订单项
func (s *OrderService) DeleteItem(id uint) error {
	if _, err := s.GetItem(id); err != nil {
		return err
	}
	if err := s.itemRepo.Delete(id); err != nil {
		return ErrOrderUpdateFailed
	}
	return nil
}
