package cart

import (
	"context"

	"github.com/shopspring/decimal"
)

// 埋点事件名称
const (
	EventAddToCart      = "add_to_cart"
	EventRemoveFromCart = "remove_from_cart"
	EventViewCart       = "view_cart"
)

// EventItem 事件中的商品
type EventItem struct {
	ID       uint            `json:"item_id"`
	Name     string          `json:"item_name"`
	Price    decimal.Decimal `json:"price"`
	Quantity int             `json:"quantity"`
}

// Event 电商埋点事件
type Event struct {
	Name     string          `json:"event"`
	Currency string          `json:"currency"`
	Value    decimal.Decimal `json:"value"`
	Items    []EventItem     `json:"items"`
}

// Tracker 埋点上报
type Tracker interface {
	Track(ctx context.Context, event Event)
}

// TrackerFunc 函数适配器
type TrackerFunc func(ctx context.Context, event Event)

// Track 实现 Tracker
func (f TrackerFunc) Track(ctx context.Context, event Event) {
	f(ctx, event)
}

type noopTracker struct{}

func (noopTracker) Track(context.Context, Event) {}

func newEvent(name, currency string, items ...EventItem) Event {
	value := decimal.Zero
	for _, item := range items {
		value = value.Add(item.Price.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	return Event{Name: name, Currency: currency, Value: value.Round(2), Items: items}
}

func eventItem(item Item, quantity int) EventItem {
	return EventItem{ID: item.ID, Name: item.Name, Price: item.Price, Quantity: quantity}
}

// deriveEvents 根据动作前后状态生成事件
func deriveEvents(before, after State, action Action, currency string) []Event {
	switch action.Type {
	case ActionAddItem:
		if action.Item == nil {
			return nil
		}
		return []Event{newEvent(EventAddToCart, currency, eventItem(*action.Item, 1))}
	case ActionRemoveItem:
		if item, ok := before.Find(action.ID); ok {
			return []Event{newEvent(EventRemoveFromCart, currency, eventItem(item, item.Quantity))}
		}
	case ActionIncreaseQuantity, ActionDecreaseQuantity, ActionUpdateQuantity:
		item, ok := before.Find(action.ID)
		if !ok {
			return nil
		}
		afterItem, _ := after.Find(action.ID)
		delta := afterItem.Quantity - item.Quantity
		switch {
		case delta > 0:
			return []Event{newEvent(EventAddToCart, currency, eventItem(item, delta))}
		case delta < 0:
			return []Event{newEvent(EventRemoveFromCart, currency, eventItem(item, -delta))}
		}
	case ActionToggleModal:
		if after.ModalOpen && len(after.Items) > 0 {
			items := make([]EventItem, 0, len(after.Items))
			for _, item := range after.Items {
				items = append(items, eventItem(item, item.Quantity))
			}
			return []Event{newEvent(EventViewCart, currency, items...)}
		}
	}
	return nil
}
