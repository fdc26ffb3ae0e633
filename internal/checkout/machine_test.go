package checkout

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/bazaar-next/internal/cart"
	"github.com/bazaar-next/internal/pricing"

	"github.com/mojocn/base64Captcha"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	machine *Machine
	store   base64Captcha.Store
	now     time.Time
	digits  []int
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		store:  base64Captcha.NewMemoryStore(100, time.Minute),
		now:    time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
		digits: []int{3, 4, 7, 8, 1, 2, 5, 5},
	}
	next := 0
	f.machine = NewMachine(pricing.DefaultPolicy(), f.store, Options{
		RestrictedCity: "Dubai",
		Now:            func() time.Time { return f.now },
		Digit: func() int {
			d := f.digits[next%len(f.digits)]
			next++
			return d
		},
	})
	return f
}

func cartWith(t *testing.T, items ...cart.Item) cart.State {
	t.Helper()
	store := cart.NewStore(pricing.DefaultPolicy(), nil)
	for i := range items {
		_, err := store.Dispatch(context.Background(), cart.Action{Type: cart.ActionAddItem, Item: &items[i]})
		require.NoError(t, err)
	}
	return store.State()
}

func spices(t *testing.T) cart.State {
	return cartWith(t, cart.Item{ID: 1, Name: "Cardamom", Price: decimal.RequireFromString("30")})
}

func validForm() Form {
	return Form{
		Name:    "Aisha",
		Email:   "aisha@example.com",
		Mobile:  "0501234567",
		City:    "Sharjah",
		Address: "Al Majaz 2, Building 4",
	}
}

func TestSubmitDeliveryAdvancesToReview(t *testing.T) {
	f := newFixture(t)
	s := NewSession("s1", "c1", f.now)
	require.NoError(t, f.machine.SubmitDelivery(s, validForm(), spices(t)))
	require.Equal(t, StepReview, s.Step)
	require.Empty(t, s.ErrorKey)
}

func TestSubmitDeliveryRequiresFields(t *testing.T) {
	f := newFixture(t)
	s := NewSession("s1", "c1", f.now)
	form := validForm()
	form.Address = "  "
	err := f.machine.SubmitDelivery(s, form, spices(t))
	require.ErrorIs(t, err, ErrFieldRequired)
	var fe *FieldError
	require.ErrorAs(t, err, &fe)
	require.Equal(t, "address", fe.Field)
	require.Equal(t, StepDelivery, s.Step)
	require.Equal(t, "error.field_required", s.ErrorKey)

	form = validForm()
	form.Email = "not-an-email"
	require.ErrorIs(t, f.machine.SubmitDelivery(s, form, spices(t)), ErrEmailInvalid)
}

func TestSubmitDeliveryRejectsEmptyCart(t *testing.T) {
	f := newFixture(t)
	s := NewSession("s1", "c1", f.now)
	require.ErrorIs(t, f.machine.SubmitDelivery(s, validForm(), cart.Empty()), ErrCartEmpty)
}

func TestRegionRestrictedItems(t *testing.T) {
	f := newFixture(t)
	state := cartWith(t, cart.Item{ID: 9, Name: "Fresh Dates", Price: decimal.RequireFromString("20"), DubaiOnly: 1})
	s := NewSession("s1", "c1", f.now)
	s.Form.City = "Dubai"

	err := f.machine.SelectCity(s, "Abu Dhabi", state)
	require.ErrorIs(t, err, ErrCityRestricted)
	require.Equal(t, "Dubai", s.Form.City, "city selection is reverted")
	require.NotNil(t, s.ErrorUntil)
	require.Equal(t, f.now.Add(5*time.Second), *s.ErrorUntil)

	// 提交时再次校验
	require.ErrorIs(t, f.machine.SubmitDelivery(s, validForm(), state), ErrCityRestricted)

	// 限定城市需要填写区域
	form := validForm()
	form.City = "dubai"
	err = f.machine.SubmitDelivery(s, form, state)
	require.ErrorIs(t, err, ErrFieldRequired)

	form.Area = "Jumeirah"
	require.NoError(t, f.machine.SubmitDelivery(s, form, state))
	require.Equal(t, StepReview, s.Step)
}

func TestSelectCityWithoutRestriction(t *testing.T) {
	f := newFixture(t)
	s := NewSession("s1", "c1", f.now)
	require.NoError(t, f.machine.SelectCity(s, "Ajman", spices(t)))
	require.Equal(t, "Ajman", s.Form.City)
}

func TestPlaceOrderRequiresPaymentMethod(t *testing.T) {
	f := newFixture(t)
	s := NewSession("s1", "c1", f.now)
	require.NoError(t, f.machine.SubmitDelivery(s, validForm(), spices(t)))

	_, err := f.machine.PlaceOrder(s, "")
	require.ErrorIs(t, err, ErrPaymentMethodRequired)
	require.Equal(t, StepReview, s.Step)

	challenge, err := f.machine.PlaceOrder(s, "Cash")
	require.NoError(t, err)
	require.Equal(t, StepCaptcha, s.Step)
	require.Equal(t, 3, challenge.Num1)
	require.Equal(t, 4, challenge.Num2)
	require.Equal(t, "cash", s.Form.PaymentMethod)
}

func TestWrongCaptchaRegeneratesAndStays(t *testing.T) {
	f := newFixture(t)
	s := NewSession("s1", "c1", f.now)
	require.NoError(t, f.machine.SubmitDelivery(s, validForm(), spices(t)))
	first, err := f.machine.PlaceOrder(s, "card")
	require.NoError(t, err)

	ok, err := f.machine.AnswerCaptcha(s, "99")
	require.NoError(t, err)
	require.False(t, ok)
	require.Equal(t, StepCaptcha, s.Step)
	require.Equal(t, "error.captcha_invalid", s.ErrorKey)
	require.NotEqual(t, first.ID, s.Captcha.ID)
	require.Equal(t, 7, s.Captcha.Num1)
	require.Equal(t, 8, s.Captcha.Num2)

	ok, err = f.machine.AnswerCaptcha(s, " "+strconv.Itoa(s.Captcha.Num1+s.Captcha.Num2)+" ")
	require.NoError(t, err)
	require.True(t, ok)
	require.Empty(t, s.ErrorKey)
}

func TestCaptchaAnswerIsSingleUse(t *testing.T) {
	f := newFixture(t)
	s := NewSession("s1", "c1", f.now)
	require.NoError(t, f.machine.SubmitDelivery(s, validForm(), spices(t)))
	challenge, err := f.machine.PlaceOrder(s, "cash")
	require.NoError(t, err)
	require.True(t, f.store.Verify(challenge.ID, "7", true))
	require.False(t, f.store.Verify(challenge.ID, "7", true))
}

func TestBackKeepsForm(t *testing.T) {
	f := newFixture(t)
	s := NewSession("s1", "c1", f.now)
	require.NoError(t, f.machine.SubmitDelivery(s, validForm(), spices(t)))
	_, err := f.machine.PlaceOrder(s, "cash")
	require.NoError(t, err)

	require.NoError(t, f.machine.Back(s))
	require.Equal(t, StepReview, s.Step)
	require.Nil(t, s.Captcha)
	require.NoError(t, f.machine.Back(s))
	require.Equal(t, StepDelivery, s.Step)
	require.Equal(t, "Aisha", s.Form.Name)
	require.Equal(t, "cash", s.Form.PaymentMethod)
}

func TestActionsRejectedOutOfStep(t *testing.T) {
	f := newFixture(t)
	s := NewSession("s1", "c1", f.now)
	_, err := f.machine.PlaceOrder(s, "cash")
	require.ErrorIs(t, err, ErrStepInvalid)
	_, err = f.machine.AnswerCaptcha(s, "1")
	require.ErrorIs(t, err, ErrStepInvalid)

	f.machine.MarkPlaced(s, "BZ1", 1, "BZ-000001")
	require.ErrorIs(t, f.machine.Back(s), ErrStepInvalid)
}

func TestToggleRedeem(t *testing.T) {
	f := newFixture(t)
	state := spices(t)
	s := NewSession("s1", "c1", f.now)

	_, err := f.machine.ToggleRedeem(s, true, state)
	require.ErrorIs(t, err, ErrNoPoints)

	f.machine.SetPointsBalance(s, 5000)
	require.True(t, s.Redemption.BalanceValue.Equal(decimal.RequireFromString("50")))
	action, err := f.machine.ToggleRedeem(s, true, state)
	require.NoError(t, err)
	require.Equal(t, cart.ActionRedeemPoints, action.Type)
	// 小计 30 AED 最多抵扣 3000 积分
	require.Equal(t, int64(3000), action.Points)
	require.True(t, action.Value.Equal(decimal.RequireFromString("30")))

	undo, err := f.machine.ToggleRedeem(s, false, state)
	require.NoError(t, err)
	require.Equal(t, cart.ActionUndoRedeemPoints, undo.Type)
	require.Equal(t, int64(3000), undo.Points)
	require.False(t, s.Redemption.Enabled)
}

func TestSummaryAppliesCouponOnce(t *testing.T) {
	f := newFixture(t)
	state := cartWith(t, cart.Item{ID: 1, Name: "Saffron", Price: decimal.RequireFromString("100")})
	s := NewSession("s1", "c1", f.now)
	require.NoError(t, f.machine.ApplyCoupon(s, AppliedCoupon{CouponID: 3, CouponCode: "EID10", Discount: decimal.NewFromInt(10), Status: 1}))

	sum := f.machine.Summary(s, state)
	require.True(t, sum.CouponDiscount.Equal(decimal.NewFromInt(10)))
	require.True(t, sum.Payable.Equal(decimal.NewFromInt(95)))
	require.Equal(t, int64(300), sum.EarnPoints)

	f.machine.RemoveCoupon(s)
	require.True(t, f.machine.Summary(s, state).Payable.Equal(decimal.NewFromInt(105)))
}

func TestMarkPlacedResetsSubState(t *testing.T) {
	f := newFixture(t)
	s := NewSession("s1", "c1", f.now)
	s.Coupon = &AppliedCoupon{CouponCode: "X"}
	s.Redemption.Enabled = true
	s.Captcha = &Challenge{ID: "c"}
	f.machine.MarkPlaced(s, "BZ123", 42, "BZ-000042")
	require.Equal(t, StepPlaced, s.Step)
	require.Nil(t, s.Coupon)
	require.Nil(t, s.Captcha)
	require.False(t, s.Redemption.Enabled)
	require.Equal(t, uint(42), s.OrderID)
}

func TestSyncRedemptionFollowsCart(t *testing.T) {
	f := newFixture(t)
	store := cart.NewStore(pricing.DefaultPolicy(), nil)
	ctx := context.Background()
	_, err := store.Dispatch(ctx, cart.Action{Type: cart.ActionAddItem, Item: &cart.Item{ID: 1, Name: "Cardamom", Price: decimal.RequireFromString("30")}})
	require.NoError(t, err)

	s := NewSession("s1", "c1", f.now)
	f.machine.SetPointsBalance(s, 500)
	action, err := f.machine.ToggleRedeem(s, true, store.State())
	require.NoError(t, err)
	_, err = store.Dispatch(ctx, *action)
	require.NoError(t, err)
	require.False(t, f.machine.SyncRedemption(s, store.State()))
	require.Equal(t, int64(500), f.machine.Summary(s, store.State()).RedeemPoints)

	// 数量减到 0 时购物车撤销抵扣
	_, err = store.Dispatch(ctx, cart.Action{Type: cart.ActionDecreaseQuantity, ID: 1})
	require.NoError(t, err)
	_, err = store.Dispatch(ctx, cart.Action{Type: cart.ActionAddItem, Item: &cart.Item{ID: 1, Name: "Cardamom", Price: decimal.RequireFromString("30")}})
	require.NoError(t, err)
	state := store.State()
	require.Equal(t, int64(0), state.RedeemedPoints)

	require.True(t, f.machine.SyncRedemption(s, state))
	require.False(t, s.Redemption.Enabled)
	require.Equal(t, int64(0), s.Redemption.Points)
	require.True(t, s.Redemption.Value.IsZero())
	sum := f.machine.Summary(s, state)
	require.Equal(t, int64(0), sum.RedeemPoints)
	require.True(t, sum.Payable.Equal(decimal.NewFromInt(40)))
}

func TestDefaultCaptchaDigitsIncludeZero(t *testing.T) {
	m := NewMachine(pricing.DefaultPolicy(), base64Captcha.NewMemoryStore(2000, time.Minute), Options{})
	seen := map[int]bool{}
	for i := 0; i < 500; i++ {
		c, err := m.newChallenge()
		require.NoError(t, err)
		for _, d := range []int{c.Num1, c.Num2} {
			require.GreaterOrEqual(t, d, 0)
			require.LessOrEqual(t, d, 9)
			seen[d] = true
		}
	}
	require.True(t, seen[0], "0 should be a possible operand")
	require.True(t, seen[9], "9 should be a possible operand")
}
