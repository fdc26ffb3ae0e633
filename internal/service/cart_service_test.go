package service

import (
	"context"
	"errors"
	"testing"

	"github.com/bazaar-next/internal/cart"
	"github.com/bazaar-next/internal/pricing"
	"github.com/bazaar-next/internal/repository"

	"github.com/shopspring/decimal"
)

func TestCartServiceDispatchPersistsSnapshot(t *testing.T) {
	db := openServiceTestDB(t)
	saffron := seedProduct(t, db, "saffron", "Saffron", "40", 500, "g", false)
	cumin := seedProduct(t, db, "cumin", "Cumin", "7.5", 1, "kg", true)
	svc := NewCartService(pricing.DefaultPolicy(), newTestSessionStore(t.Name()), repository.NewProductRepository(db))
	ctx := context.Background()
	session := NewCartSessionID()

	// 客户端价格会被商品库覆盖
	if _, err := svc.Dispatch(ctx, session, cart.Action{Type: cart.ActionAddItem, Item: &cart.Item{ID: saffron.ID, Price: decimal.NewFromInt(1)}}); err != nil {
		t.Fatalf("add saffron failed: %v", err)
	}
	if _, err := svc.Dispatch(ctx, session, cart.Action{Type: cart.ActionAddItem, Item: &cart.Item{ID: saffron.ID}}); err != nil {
		t.Fatalf("add saffron again failed: %v", err)
	}
	state, err := svc.Dispatch(ctx, session, cart.Action{Type: cart.ActionAddItem, Item: &cart.Item{ID: cumin.ID}})
	if err != nil {
		t.Fatalf("add cumin failed: %v", err)
	}
	if state.Count != 3 || !state.Subtotal.Equal(decimal.RequireFromString("87.5")) {
		t.Fatalf("unexpected state: count=%d subtotal=%s", state.Count, state.Subtotal)
	}
	if !state.HasRegionRestricted() {
		t.Fatalf("cumin should mark the cart as region restricted")
	}

	reloaded, err := svc.Get(ctx, session)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if reloaded.Count != 3 || !reloaded.Total.Equal(state.Total) {
		t.Fatalf("reloaded state mismatch: %d %s vs %s", reloaded.Count, reloaded.Total, state.Total)
	}
	if item, ok := reloaded.Find(saffron.ID); !ok || item.Weight != 0.5 {
		t.Fatalf("saffron weight should be stored in kg, got %+v", item)
	}
}

func TestCartServiceGroundFloorSurvivesReload(t *testing.T) {
	svc := NewCartService(pricing.DefaultPolicy(), newTestSessionStore(t.Name()), nil)
	ctx := context.Background()
	session := NewCartSessionID()

	if _, err := svc.Dispatch(ctx, session, cart.Action{Type: cart.ActionAddItem, Item: &cart.Item{ID: 1, Name: "Tea", Price: decimal.NewFromInt(20)}}); err != nil {
		t.Fatalf("add failed: %v", err)
	}
	if _, err := svc.Dispatch(ctx, session, cart.Action{Type: cart.ActionSetGroundFloorPickup, Enabled: true}); err != nil {
		t.Fatalf("ground floor failed: %v", err)
	}
	state, err := svc.Get(ctx, session)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if !state.GroundFloorPickup || !state.Shipping.Equal(decimal.NewFromInt(5)) {
		t.Fatalf("expected halved shipping after reload, got %s pickup=%v", state.Shipping, state.GroundFloorPickup)
	}

	if err := svc.Clear(ctx, session); err != nil {
		t.Fatalf("clear failed: %v", err)
	}
	state, _ = svc.Get(ctx, session)
	if state.Count != 0 || !state.Total.IsZero() {
		t.Fatalf("cart should be empty after clear, got %+v", state)
	}
}

func TestCartServiceRejectsInvalidInput(t *testing.T) {
	db := openServiceTestDB(t)
	svc := NewCartService(pricing.DefaultPolicy(), newTestSessionStore(t.Name()), repository.NewProductRepository(db))
	ctx := context.Background()

	if _, err := svc.Get(ctx, "bad id!"); !errors.Is(err, ErrCartSessionInvalid) {
		t.Fatalf("expected ErrCartSessionInvalid, got %v", err)
	}
	session := NewCartSessionID()
	if _, err := svc.Dispatch(ctx, session, cart.Action{Type: cart.ActionAddItem, Item: &cart.Item{ID: 999}}); !errors.Is(err, ErrInvalidOrderItem) {
		t.Fatalf("expected ErrInvalidOrderItem, got %v", err)
	}
	if _, err := svc.Dispatch(ctx, session, cart.Action{Type: "NOPE"}); !IsCartActionError(err) {
		t.Fatalf("expected cart action error, got %v", err)
	}
}

func TestCartServiceQuote(t *testing.T) {
	svc := NewCartService(pricing.DefaultPolicy(), newTestSessionStore(t.Name()), nil)
	quote, err := svc.Quote(QuoteInput{
		Items: []cart.Item{
			{ID: 1, Price: decimal.NewFromInt(50), Quantity: 2, Weight: 6000},
		},
		CouponPercent: decimal.NewFromInt(10),
	})
	if err != nil {
		t.Fatalf("quote failed: %v", err)
	}
	// 小计 100 运费 5，12kg 超重 2
	if !quote.Totals.Total.Equal(decimal.NewFromInt(107)) {
		t.Fatalf("unexpected total: %s", quote.Totals.Total)
	}
	if !quote.CouponDiscount.Equal(decimal.NewFromInt(10)) || !quote.Payable.Equal(decimal.NewFromInt(97)) {
		t.Fatalf("unexpected coupon math: %s %s", quote.CouponDiscount, quote.Payable)
	}
	if _, err := svc.Quote(QuoteInput{Items: []cart.Item{{ID: 1, Quantity: 0}}}); !errors.Is(err, ErrInvalidOrderItem) {
		t.Fatalf("expected ErrInvalidOrderItem, got %v", err)
	}
}

func TestCartServiceHeavyWeightSurvivesReopen(t *testing.T) {
	svc := NewCartService(pricing.DefaultPolicy(), newTestSessionStore(t.Name()), nil)
	ctx := context.Background()
	session := NewCartSessionID()

	sack := &cart.Item{ID: 3, Name: "Rice Sack", Price: decimal.NewFromInt(90), Weight: 30000}
	if _, err := svc.Dispatch(ctx, session, cart.Action{Type: cart.ActionAddItem, Item: sack}); err != nil {
		t.Fatalf("add failed: %v", err)
	}
	for i := 0; i < 3; i++ {
		state, err := svc.Get(ctx, session)
		if err != nil {
			t.Fatalf("get failed: %v", err)
		}
		item, ok := state.Find(3)
		if !ok || item.Weight != 30 {
			t.Fatalf("reopen %d: weight want 30 got %+v", i, item)
		}
		if !state.OverWeightFee.Equal(decimal.NewFromInt(20)) {
			t.Fatalf("reopen %d: overweight fee want 20 got %s", i, state.OverWeightFee)
		}
	}
}
