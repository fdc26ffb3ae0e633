package service

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/bazaar-next/internal/cache"
	"github.com/bazaar-next/internal/cart"
	"github.com/bazaar-next/internal/checkout"
	"github.com/bazaar-next/internal/models"
	"github.com/bazaar-next/internal/pricing"
	"github.com/bazaar-next/internal/repository"

	"github.com/shopspring/decimal"
)

type checkoutFixture struct {
	*submissionFixture
	carts    *CartService
	checkout *CheckoutService
}

func newCheckoutFixture(t *testing.T) *checkoutFixture {
	t.Helper()
	f := newSubmissionFixture(t)
	policy := pricing.DefaultPolicy()
	carts := NewCartService(policy, newTestSessionStore(t.Name()+":cart"), repository.NewProductRepository(f.db))
	// 题目依次为 2+3、6+1、4+4，之后循环
	digits := []int{2, 3, 6, 1, 4, 4}
	next := 0
	machine := checkout.NewMachine(policy, cache.NewCaptchaStore("test:"+t.Name(), time.Minute, 100), checkout.Options{
		Digit: func() int {
			d := digits[next%len(digits)]
			next++
			return d
		},
	})
	svc := NewCheckoutService(
		machine,
		newTestSessionStore(t.Name()+":checkout"),
		carts,
		NewCouponService(repository.NewCouponRepository(f.db)),
		NewPointsService(repository.NewPointsRepository(f.db), policy, "971"),
		repository.NewRawOrderRepository(f.db),
		f.svc,
	)
	return &checkoutFixture{submissionFixture: f, carts: carts, checkout: svc}
}

func deliveryForm() checkout.Form {
	return checkout.Form{
		Name:              "Amina",
		Email:             "amina@example.com",
		MobileCountryCode: "971",
		Mobile:            "0501234567",
		City:              "Dubai",
		Area:              "Jumeirah",
		Address:           "Villa 3",
	}
}

func TestCheckoutFullFlow(t *testing.T) {
	f := newCheckoutFixture(t)
	ctx := context.Background()
	saffron := seedProduct(t, f.db, "saffron", "Saffron", "40", 0.5, "kg", true)
	seedCoupon(t, f.db, "SAVE10", "10", 0)
	f.seedPoints(t, "971501234567", 200)

	cartID := NewCartSessionID()
	for i := 0; i < 2; i++ {
		if _, err := f.carts.Dispatch(ctx, cartID, cart.Action{Type: cart.ActionAddItem, Item: &cart.Item{ID: saffron.ID}}); err != nil {
			t.Fatalf("add item failed: %v", err)
		}
	}

	view, err := f.checkout.Start(ctx, cartID, "en")
	if err != nil {
		t.Fatalf("start failed: %v", err)
	}
	id := view.Session.ID

	view, err = f.checkout.SubmitDelivery(ctx, id, deliveryForm())
	if err != nil {
		t.Fatalf("submit delivery failed: %v", err)
	}
	if view.Step != "review" || view.Session.Redemption.Balance != 200 {
		t.Fatalf("unexpected view after delivery: step=%s balance=%d", view.Step, view.Session.Redemption.Balance)
	}
	if n := countRows(t, f.db, &models.RawOrder{}); n != 1 {
		t.Fatalf("delivery submit should write a raw order, got %d", n)
	}

	if view, err = f.checkout.ApplyCoupon(ctx, id, "SAVE10"); err != nil {
		t.Fatalf("apply coupon failed: %v", err)
	}
	if view, err = f.checkout.ToggleRedeem(ctx, id, true); err != nil {
		t.Fatalf("toggle redeem failed: %v", err)
	}
	if view.Cart.Discount.String() != "2" {
		t.Fatalf("cart discount should carry redeemed value, got %s", view.Cart.Discount)
	}
	// 小计 80，运费 5，积分 2，优惠券 8
	if view.Summary.Payable.String() != "75" {
		t.Fatalf("unexpected payable: %s", view.Summary.Payable)
	}

	if view, err = f.checkout.PlaceOrder(ctx, id, "card"); err != nil {
		t.Fatalf("place order failed: %v", err)
	}
	if view.Step != "captcha" || view.Session.Captcha == nil {
		t.Fatalf("expected captcha step, got %s", view.Step)
	}
	first := *view.Session.Captcha
	if first.Num1 != 2 || first.Num2 != 3 {
		t.Fatalf("unexpected first challenge: %+v", first)
	}

	view, err = f.checkout.AnswerCaptcha(ctx, id, "9")
	if err != nil {
		t.Fatalf("wrong answer should not error: %v", err)
	}
	if view.Step != "captcha" || view.Error == "" || view.Order != nil {
		t.Fatalf("wrong answer should stay on captcha: %+v", view)
	}
	regenerated := view.Session.Captcha
	if regenerated == nil || regenerated.ID == first.ID || regenerated.Num1 != 6 || regenerated.Num2 != 1 {
		t.Fatalf("wrong answer should regenerate the challenge, got %+v", regenerated)
	}
	if n := countRows(t, f.db, &models.GuestOrder{}); n != 0 {
		t.Fatalf("no order on wrong answer, got %d", n)
	}
	if n := countRows(t, f.db, &models.OrderSubmission{}); n != 0 {
		t.Fatalf("no submission on wrong answer, got %d", n)
	}
	if n := countRows(t, f.db, &models.OrderItem{}); n != 0 {
		t.Fatalf("no order items on wrong answer, got %d", n)
	}
	// 原题答案对新题无效
	if view, err = f.checkout.AnswerCaptcha(ctx, id, "5"); err != nil || view.Order != nil {
		t.Fatalf("stale answer should be rejected: err=%v", err)
	}
	if n := countRows(t, f.db, &models.GuestOrder{}); n != 0 {
		t.Fatalf("no order on stale answer, got %d", n)
	}

	view, err = f.checkout.AnswerCaptcha(ctx, id, "8")
	if err != nil {
		t.Fatalf("answer captcha failed: %v", err)
	}
	if view.Step != "placed" || view.Order == nil || view.Session.OrderNo == "" {
		t.Fatalf("expected placed order, got %+v", view)
	}
	if view.Order.Total.String() != "75.00" {
		t.Fatalf("order total should match summary, got %s", view.Order.Total)
	}
	if view.Cart.Count != 0 || view.Session.Coupon != nil || view.Session.Redemption.Enabled {
		t.Fatalf("session and cart should reset after placing: %+v", view)
	}
	order, _ := repository.NewGuestOrderRepository(f.db).GetByID(view.Order.OrderID)
	if order.PaymentType != 2 || order.RedeemPoints != 200 {
		t.Fatalf("unexpected order: payment=%d redeem=%d", order.PaymentType, order.RedeemPoints)
	}
}

func TestCheckoutRegionRestriction(t *testing.T) {
	f := newCheckoutFixture(t)
	ctx := context.Background()
	oud := seedProduct(t, f.db, "oud", "Oud", "120", 0.1, "kg", true)
	cartID := NewCartSessionID()
	if _, err := f.carts.Dispatch(ctx, cartID, cart.Action{Type: cart.ActionAddItem, Item: &cart.Item{ID: oud.ID}}); err != nil {
		t.Fatalf("add item failed: %v", err)
	}
	view, _ := f.checkout.Start(ctx, cartID, "en")
	id := view.Session.ID

	form := deliveryForm()
	form.City = "Abu Dhabi"
	view, err := f.checkout.SubmitDelivery(ctx, id, form)
	if !errors.Is(err, checkout.ErrCityRestricted) {
		t.Fatalf("expected ErrCityRestricted, got %v", err)
	}
	if view.Step != "delivery" || !strings.Contains(view.Error, "Dubai") {
		t.Fatalf("expected localized city error, got %+v", view.Error)
	}

	view, err = f.checkout.SelectCity(ctx, id, "Sharjah")
	if !errors.Is(err, checkout.ErrCityRestricted) || view.Session.Form.City != "Abu Dhabi" {
		t.Fatalf("select city should revert, got %v city=%s", err, view.Session.Form.City)
	}
	if n := countRows(t, f.db, &models.RawOrder{}); n != 0 {
		t.Fatalf("invalid delivery should not write raw order, got %d", n)
	}
}

func TestCheckoutSessionErrors(t *testing.T) {
	f := newCheckoutFixture(t)
	ctx := context.Background()
	if _, err := f.checkout.Get(ctx, "missing"); !errors.Is(err, ErrCheckoutSessionNotFound) {
		t.Fatalf("expected ErrCheckoutSessionNotFound, got %v", err)
	}
	view, err := f.checkout.Start(ctx, NewCartSessionID(), "ar")
	if err != nil {
		t.Fatalf("start failed: %v", err)
	}
	if _, err := f.checkout.SubmitDelivery(ctx, view.Session.ID, deliveryForm()); !errors.Is(err, checkout.ErrCartEmpty) {
		t.Fatalf("expected ErrCartEmpty, got %v", err)
	}
	if _, err := f.checkout.ApplyCoupon(ctx, view.Session.ID, "NOPE"); !errors.Is(err, ErrCouponNotFound) {
		t.Fatalf("expected ErrCouponNotFound, got %v", err)
	}
	if _, err := f.checkout.ToggleRedeem(ctx, view.Session.ID, true); !errors.Is(err, checkout.ErrNoPoints) {
		t.Fatalf("expected ErrNoPoints, got %v", err)
	}
}

func TestCheckoutRedemptionFollowsEmptiedCart(t *testing.T) {
	f := newCheckoutFixture(t)
	ctx := context.Background()
	tea := seedProduct(t, f.db, "tea", "Karak Tea", "40", 0.25, "kg", false)
	f.seedPoints(t, "971501234567", 500)

	cartID := NewCartSessionID()
	add := cart.Action{Type: cart.ActionAddItem, Item: &cart.Item{ID: tea.ID}}
	if _, err := f.carts.Dispatch(ctx, cartID, add); err != nil {
		t.Fatalf("add item failed: %v", err)
	}
	view, err := f.checkout.Start(ctx, cartID, "en")
	if err != nil {
		t.Fatalf("start failed: %v", err)
	}
	id := view.Session.ID
	if _, err := f.checkout.SubmitDelivery(ctx, id, deliveryForm()); err != nil {
		t.Fatalf("submit delivery failed: %v", err)
	}
	if view, err = f.checkout.ToggleRedeem(ctx, id, true); err != nil {
		t.Fatalf("toggle redeem failed: %v", err)
	}
	if view.Session.Redemption.Points != 500 || view.Cart.Discount.String() != "5" {
		t.Fatalf("redeem not applied: points=%d discount=%s", view.Session.Redemption.Points, view.Cart.Discount)
	}

	// 购物车清空会撤销抵扣，重新加购后不再带抵扣
	if _, err := f.carts.Dispatch(ctx, cartID, cart.Action{Type: cart.ActionDecreaseQuantity, ID: tea.ID}); err != nil {
		t.Fatalf("decrease failed: %v", err)
	}
	if _, err := f.carts.Dispatch(ctx, cartID, add); err != nil {
		t.Fatalf("re-add failed: %v", err)
	}
	view, err = f.checkout.Get(ctx, id)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if view.Session.Redemption.Enabled || view.Summary.RedeemPoints != 0 || !view.Cart.Discount.IsZero() {
		t.Fatalf("redemption should follow the cart: %+v summary=%+v", view.Session.Redemption, view.Summary)
	}
	shown := view.Summary.Payable

	if view, err = f.checkout.PlaceOrder(ctx, id, "cash"); err != nil {
		t.Fatalf("place order failed: %v", err)
	}
	c := view.Session.Captcha
	view, err = f.checkout.AnswerCaptcha(ctx, id, strconv.Itoa(c.Num1+c.Num2))
	if err != nil || view.Order == nil {
		t.Fatalf("answer captcha failed: %v", err)
	}
	order, _ := repository.NewGuestOrderRepository(f.db).GetByID(view.Order.OrderID)
	if order.RedeemPoints != 0 {
		t.Fatalf("order must not redeem points the customer did not see, got %d", order.RedeemPoints)
	}
	if !order.Total.Decimal.Equal(shown) {
		t.Fatalf("order total %s should equal shown payable %s", order.Total.Decimal, shown)
	}
	balance, err := f.checkout.points.Balance("971", "0501234567")
	if err != nil {
		t.Fatalf("balance failed: %v", err)
	}
	if balance.Points < 500 {
		t.Fatalf("points must not be debited, balance %d", balance.Points)
	}
}

func TestCheckoutSubmitsHeavyItemWeightOnce(t *testing.T) {
	f := newCheckoutFixture(t)
	ctx := context.Background()
	rice := seedProduct(t, f.db, "rice-sack", "Basmati Sack", "90", 30000, "g", false)

	cartID := NewCartSessionID()
	if _, err := f.carts.Dispatch(ctx, cartID, cart.Action{Type: cart.ActionAddItem, Item: &cart.Item{ID: rice.ID}}); err != nil {
		t.Fatalf("add item failed: %v", err)
	}
	view, _ := f.checkout.Start(ctx, cartID, "en")
	id := view.Session.ID
	if _, err := f.checkout.SubmitDelivery(ctx, id, deliveryForm()); err != nil {
		t.Fatalf("submit delivery failed: %v", err)
	}
	view, err := f.checkout.PlaceOrder(ctx, id, "cash")
	if err != nil {
		t.Fatalf("place order failed: %v", err)
	}
	c := view.Session.Captcha
	if view, err = f.checkout.AnswerCaptcha(ctx, id, strconv.Itoa(c.Num1+c.Num2)); err != nil || view.Order == nil {
		t.Fatalf("answer captcha failed: %v", err)
	}
	order, _ := repository.NewGuestOrderRepository(f.db).GetByID(view.Order.OrderID)
	if order.TotalWeight != 30 || !order.DeliveryCharges.Decimal.Equal(decimal.NewFromInt(20)) {
		t.Fatalf("30kg sack should weigh 30 with fee 20, got %v / %s", order.TotalWeight, order.DeliveryCharges.Decimal)
	}
}
