package cart

import (
	"errors"
	"fmt"

	"github.com/bazaar-next/internal/pricing"

	"github.com/shopspring/decimal"
)

// ActionType 动作类型
type ActionType string

// 支持的动作
const (
	ActionAddItem              ActionType = "ADD_ITEM"
	ActionRemoveItem           ActionType = "REMOVE_ITEM"
	ActionUpdateQuantity       ActionType = "UPDATE_QUANTITY"
	ActionIncreaseQuantity     ActionType = "INCREASE_QUANTITY"
	ActionDecreaseQuantity     ActionType = "DECREASE_QUANTITY"
	ActionClearCart            ActionType = "CLEAR_CART"
	ActionToggleModal          ActionType = "TOGGLE_MODAL"
	ActionRedeemPoints         ActionType = "REDEEM_POINTS"
	ActionUndoRedeemPoints     ActionType = "UNDO_REDEEM_POINTS"
	ActionSetGroundFloorPickup ActionType = "SET_GROUND_FLOOR_PICKUP"
	ActionSetRewardBalance     ActionType = "SET_REWARD_BALANCE"
)

// 动作错误
var (
	ErrUnknownAction = errors.New("unknown cart action")
	ErrItemRequired  = errors.New("cart action requires an item")
)

// Action 购物车动作
type Action struct {
	Type    ActionType      `json:"type" binding:"required"`
	Item    *Item           `json:"item,omitempty"`
	ID      uint            `json:"id,omitempty"`
	Delta   int             `json:"delta,omitempty"`
	Points  int64           `json:"points,omitempty"`
	Value   decimal.Decimal `json:"value"`
	Enabled bool            `json:"enabled,omitempty"`
}

// Reduce 纯函数：根据动作返回新状态
func Reduce(policy pricing.Policy, state State, action Action) (State, error) {
	next := state.clone()
	switch action.Type {
	case ActionAddItem:
		if action.Item == nil {
			return state, ErrItemRequired
		}
		next.Items = addItem(next.Items, *action.Item)
	case ActionRemoveItem:
		next.Items = removeItem(next.Items, action.ID)
	case ActionUpdateQuantity:
		switch {
		case action.Delta > 0:
			next.Items = changeQuantity(next.Items, action.ID, 1)
		case action.Delta < 0:
			next.Items = changeQuantity(next.Items, action.ID, -1)
		}
	case ActionIncreaseQuantity:
		next.Items = changeQuantity(next.Items, action.ID, 1)
	case ActionDecreaseQuantity:
		next.Items = changeQuantity(next.Items, action.ID, -1)
	case ActionClearCart:
		cleared := Empty()
		cleared.ModalOpen = next.ModalOpen
		cleared.RewardPoints = next.RewardPoints
		cleared.RewardValue = next.RewardValue
		next = cleared
	case ActionToggleModal:
		next.ModalOpen = !next.ModalOpen
	case ActionRedeemPoints:
		next.Discount = next.Discount.Add(action.Value)
		next.RedeemedPoints += action.Points
		next.RewardPoints = 0
		next.RewardValue = decimal.Zero
	case ActionUndoRedeemPoints:
		next.Discount = next.Discount.Sub(action.Value)
		if next.Discount.Sign() < 0 {
			next.Discount = decimal.Zero
		}
		next.RedeemedPoints -= action.Points
		if next.RedeemedPoints < 0 {
			next.RedeemedPoints = 0
		}
		next.RewardPoints = action.Points
		next.RewardValue = action.Value
	case ActionSetGroundFloorPickup:
		next.GroundFloorPickup = action.Enabled
	case ActionSetRewardBalance:
		next.RewardPoints = action.Points
		next.RewardValue = action.Value
	default:
		return state, fmt.Errorf("%w: %s", ErrUnknownAction, action.Type)
	}
	return recompute(policy, next), nil
}

// recompute 从商品行完整重算派生字段
func recompute(policy pricing.Policy, s State) State {
	if len(s.Items) == 0 && s.RedeemedPoints > 0 {
		// 购物车清空时撤销积分抵扣，恢复可用积分
		s.RewardPoints += s.RedeemedPoints
		s.RewardValue = policy.RewardValue(s.RewardPoints)
		s.RedeemedPoints = 0
	}
	if len(s.Items) == 0 {
		s.Discount = decimal.Zero
	}
	totals := policy.Calculate(s.Lines(), s.Discount, s.GroundFloorPickup)
	s.Count = totals.Count
	s.Subtotal = totals.Subtotal
	s.Shipping = totals.Shipping
	s.OverWeightFee = totals.OverWeightFee
	s.Total = totals.Total
	s.TotalWeight = totals.TotalWeight
	s.EarnPoints = totals.RewardPoints
	s.EarnValue = totals.RewardValue
	return s
}

// Totals 返回当前状态对应的计价汇总
func (s State) Totals(policy pricing.Policy) pricing.Totals {
	return policy.Calculate(s.Lines(), s.Discount, s.GroundFloorPickup)
}

func addItem(items []Item, item Item) []Item {
	for i := range items {
		if items[i].ID == item.ID {
			items[i].Quantity++
			return items
		}
	}
	item.Quantity = 1
	return append(items, item)
}

func removeItem(items []Item, id uint) []Item {
	out := items[:0]
	for _, item := range items {
		if item.ID != id {
			out = append(out, item)
		}
	}
	return out
}

// changeQuantity 数量变动，降到 0 及以下时移除该行
func changeQuantity(items []Item, id uint, delta int) []Item {
	for i := range items {
		if items[i].ID != id {
			continue
		}
		items[i].Quantity += delta
		if items[i].Quantity <= 0 {
			return removeItem(items, id)
		}
		return items
	}
	return items
}
