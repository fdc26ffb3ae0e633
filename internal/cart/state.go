// Package cart 购物车状态：动作驱动的 reducer 与带埋点的 Store
package cart

import (
	"github.com/bazaar-next/internal/pricing"

	"github.com/shopspring/decimal"
)

// Item 购物车商品行
type Item struct {
	ID                uint             `json:"id"`
	Name              string           `json:"name"`
	Price             decimal.Decimal  `json:"price"`
	OriginalPrice     *decimal.Decimal `json:"original_price,omitempty"`
	Quantity          int              `json:"quantity"`
	Image             string           `json:"image,omitempty"`
	Weight            float64          `json:"weight,omitempty"` // 单件重量（kg）
	DubaiOnly         int              `json:"dubai_only"`       // 1 表示仅限限定城市配送
	ParentProductID   *uint            `json:"parent_product_id,omitempty"`
	ParentProductName string           `json:"parent_product_name,omitempty"`
	Unit              string           `json:"unit,omitempty"`
}

// RegionRestricted 是否仅限限定城市配送
func (i Item) RegionRestricted() bool {
	return i.DubaiOnly == 1
}

// State 购物车状态
// 不变式：Total = Subtotal + Shipping + OverWeightFee - Discount，每次动作后从 Items 完整重算
type State struct {
	Items             []Item          `json:"items"`
	Count             int             `json:"count"`
	Subtotal          decimal.Decimal `json:"subtotal"`
	Discount          decimal.Decimal `json:"discount"` // 积分抵扣
	Shipping          decimal.Decimal `json:"shipping"`
	OverWeightFee     decimal.Decimal `json:"over_weight_fee"`
	Total             decimal.Decimal `json:"total"`
	TotalWeight       float64         `json:"total_weight"`
	EarnPoints        int64           `json:"earn_points"`
	EarnValue         decimal.Decimal `json:"earn_value"`
	RewardPoints      int64           `json:"reward_points"` // 本地记录的可用积分
	RewardValue       decimal.Decimal `json:"reward_value"`
	RedeemedPoints    int64           `json:"redeemed_points"`
	ModalOpen         bool            `json:"modal_open"`
	GroundFloorPickup bool            `json:"ground_floor_pickup"`
}

// Empty 返回空购物车
func Empty() State {
	return State{
		Items:         []Item{},
		Subtotal:      decimal.Zero,
		Discount:      decimal.Zero,
		Shipping:      decimal.Zero,
		OverWeightFee: decimal.Zero,
		Total:         decimal.Zero,
		EarnValue:     decimal.Zero,
		RewardValue:   decimal.Zero,
	}
}

// Lines 转换为计价行
func (s State) Lines() []pricing.Line {
	lines := make([]pricing.Line, 0, len(s.Items))
	for _, item := range s.Items {
		lines = append(lines, pricing.Line{Price: item.Price, Quantity: item.Quantity, Weight: item.Weight})
	}
	return lines
}

// HasRegionRestricted 是否包含限定城市商品
func (s State) HasRegionRestricted() bool {
	for _, item := range s.Items {
		if item.RegionRestricted() {
			return true
		}
	}
	return false
}

// Find 按商品 ID 查找
func (s State) Find(id uint) (Item, bool) {
	for _, item := range s.Items {
		if item.ID == id {
			return item, true
		}
	}
	return Item{}, false
}

func (s State) clone() State {
	out := s
	out.Items = make([]Item, len(s.Items))
	copy(out.Items, s.Items)
	return out
}
