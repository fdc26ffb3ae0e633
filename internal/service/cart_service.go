package service

import (
	"context"
	"errors"
	"regexp"
	"strings"

	"github.com/bazaar-next/internal/cache"
	"github.com/bazaar-next/internal/cart"
	"github.com/bazaar-next/internal/logger"
	"github.com/bazaar-next/internal/pricing"
	"github.com/bazaar-next/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var cartSessionIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{8,64}$`)

// CartService 按会话维护购物车 Store，快照持久化在会话存储中
type CartService struct {
	policy      pricing.Policy
	sessions    *cache.SessionStore
	productRepo repository.ProductRepository
	tracker     cart.Tracker
}

// cartRecord 会话中保存的购物车
type cartRecord struct {
	Snapshot          cart.Snapshot `json:"snapshot"`
	GroundFloorPickup bool          `json:"ground_floor_pickup"`
	ModalOpen         bool          `json:"modal_open"`
}

// NewCartService 创建购物车服务；productRepo 为 nil 时信任客户端提交的商品信息
func NewCartService(policy pricing.Policy, sessions *cache.SessionStore, productRepo repository.ProductRepository) *CartService {
	return &CartService{
		policy:      policy,
		sessions:    sessions,
		productRepo: productRepo,
		tracker:     cart.TrackerFunc(logCartEvent),
	}
}

func logCartEvent(_ context.Context, event cart.Event) {
	ids := make([]uint, 0, len(event.Items))
	for _, item := range event.Items {
		ids = append(ids, item.ID)
	}
	logger.Infow("cart_event",
		"event", event.Name,
		"currency", event.Currency,
		"value", event.Value.StringFixed(2),
		"item_ids", ids,
	)
}

// NewCartSessionID 生成购物车会话 ID
func NewCartSessionID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// ValidCartSessionID 校验会话 ID 格式
func ValidCartSessionID(id string) bool {
	return cartSessionIDPattern.MatchString(id)
}

// open 加载会话并构建已水合的 Store
func (s *CartService) open(ctx context.Context, sessionID string) (*cart.Store, error) {
	if !ValidCartSessionID(sessionID) {
		return nil, ErrCartSessionInvalid
	}
	var record cartRecord
	if _, err := s.sessions.Load(ctx, sessionID, &record); err != nil {
		return nil, err
	}
	store := cart.NewStore(s.policy, s.tracker)
	if record.GroundFloorPickup {
		if _, err := store.Dispatch(ctx, cart.Action{Type: cart.ActionSetGroundFloorPickup, Enabled: true}); err != nil {
			return nil, err
		}
	}
	if record.ModalOpen {
		if _, err := store.Dispatch(ctx, cart.Action{Type: cart.ActionToggleModal}); err != nil {
			return nil, err
		}
	}
	if err := store.Hydrate(record.Snapshot); err != nil {
		return nil, err
	}
	return store, nil
}

func (s *CartService) save(ctx context.Context, sessionID string, state cart.State) error {
	record := cartRecord{
		Snapshot: cart.Snapshot{
			Items:        state.Items,
			Discount:     state.Discount,
			RewardPoints: state.RewardPoints,
			RewardValue:  state.RewardValue,
			WeightsKg:    true,
		},
		GroundFloorPickup: state.GroundFloorPickup,
		ModalOpen:         state.ModalOpen,
	}
	return s.sessions.Save(ctx, sessionID, record)
}

// Get 返回会话购物车状态，不存在时为空购物车
func (s *CartService) Get(ctx context.Context, sessionID string) (cart.State, error) {
	store, err := s.open(ctx, sessionID)
	if err != nil {
		return cart.State{}, err
	}
	return store.State(), nil
}

// Dispatch 对会话购物车执行动作并持久化
func (s *CartService) Dispatch(ctx context.Context, sessionID string, action cart.Action) (cart.State, error) {
	store, err := s.open(ctx, sessionID)
	if err != nil {
		return cart.State{}, err
	}
	if action.Type == cart.ActionAddItem && action.Item != nil {
		resolved, err := s.resolveItem(*action.Item)
		if err != nil {
			return store.State(), err
		}
		action.Item = &resolved
	}

	var saveErr error
	store.OnChange(func(cart.Snapshot) {
		saveErr = s.save(ctx, sessionID, store.State())
	})
	state, err := store.Dispatch(ctx, action)
	if err != nil {
		return state, err
	}
	if saveErr != nil {
		return state, saveErr
	}
	return state, nil
}

// Clear 清空会话购物车
func (s *CartService) Clear(ctx context.Context, sessionID string) error {
	_, err := s.Dispatch(ctx, sessionID, cart.Action{Type: cart.ActionClearCart})
	return err
}

// resolveItem 用商品库中的价格、重量与配送限制覆盖客户端数据
func (s *CartService) resolveItem(item cart.Item) (cart.Item, error) {
	if s.productRepo == nil {
		item.Weight = pricing.NormalizeWeight(item.Weight)
		return item, nil
	}
	product, err := s.productRepo.GetByID(item.ID)
	if err != nil {
		return item, err
	}
	if product == nil || !product.IsActive {
		return item, ErrInvalidOrderItem
	}
	resolved := cart.Item{
		ID:              product.ID,
		Name:            product.Name,
		Price:           product.Price.Decimal,
		Quantity:        1,
		Image:           product.Image,
		Weight:          product.WeightKg(),
		ParentProductID: product.ParentProductID,
		Unit:            product.Unit,
	}
	if product.OriginalPrice.Decimal.GreaterThan(product.Price.Decimal) {
		original := product.OriginalPrice.Decimal
		resolved.OriginalPrice = &original
	}
	if product.DubaiOnly {
		resolved.DubaiOnly = 1
	}
	resolved.ParentProductName = item.ParentProductName
	return resolved, nil
}

// QuoteInput 无状态报价输入
type QuoteInput struct {
	Items             []cart.Item     `json:"items"`
	Discount          decimal.Decimal `json:"discount"`
	GroundFloorPickup bool            `json:"ground_floor_pickup"`
	CouponPercent     decimal.Decimal `json:"coupon_percent"`
}

// Quote 报价结果
type Quote struct {
	Totals         pricing.Totals  `json:"totals"`
	CouponDiscount decimal.Decimal `json:"coupon_discount"`
	Payable        decimal.Decimal `json:"payable"`
}

// Quote 不落库地计算商品行的金额
func (s *CartService) Quote(input QuoteInput) (*Quote, error) {
	lines := make([]pricing.Line, 0, len(input.Items))
	for _, item := range input.Items {
		if item.Quantity <= 0 || item.Price.Sign() < 0 {
			return nil, ErrInvalidOrderItem
		}
		lines = append(lines, pricing.Line{Price: item.Price, Quantity: item.Quantity, Weight: pricing.NormalizeWeight(item.Weight)})
	}
	totals := s.policy.Calculate(lines, input.Discount, input.GroundFloorPickup)
	return &Quote{
		Totals:         totals,
		CouponDiscount: s.policy.CouponDiscount(totals.Subtotal, input.CouponPercent),
		Payable:        s.policy.Payable(totals, input.CouponPercent),
	}, nil
}

// IsCartActionError 是否为购物车动作本身的错误
func IsCartActionError(err error) bool {
	return errors.Is(err, cart.ErrUnknownAction) || errors.Is(err, cart.ErrItemRequired)
}
