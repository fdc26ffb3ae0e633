package service

import (
	"context"
	"errors"
	"net/http"
	"net/smtp"
	"sync"
	"testing"
	"time"

	"github.com/bazaar-next/internal/config"
	"github.com/bazaar-next/internal/constants"
	"github.com/bazaar-next/internal/models"
	"github.com/bazaar-next/internal/pricing"
	"github.com/bazaar-next/internal/queue"
	"github.com/bazaar-next/internal/repository"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type submissionFixture struct {
	db       *gorm.DB
	svc      *SubmissionService
	tokens   *OrderTokenService
	mu       sync.Mutex
	mailTo   []string
	mailErr  error
	graphHit int
}

func newSubmissionFixture(t *testing.T) *submissionFixture {
	t.Helper()
	db := openServiceTestDB(t)
	prev := models.DB
	models.DB = db
	t.Cleanup(func() { models.DB = prev })

	f := &submissionFixture{db: db, tokens: NewOrderTokenService("order-secret", 1)}
	email := NewEmailService(&config.EmailConfig{Enabled: true, Host: "smtp.example.com", Port: 25, From: "orders@example.com"}, nil)
	email.deliver = func(addr string, auth smtp.Auth, host, from string, to []string, msg []byte) error {
		f.mu.Lock()
		defer f.mu.Unlock()
		if f.mailErr != nil {
			return f.mailErr
		}
		f.mailTo = append(f.mailTo, to...)
		return nil
	}
	srv := newGraphServer(t, http.StatusOK, `{"messages":[{"id":"wamid.x"}]}`, nil)
	whatsapp := newTestWhatsAppService(srv.URL, "order_confirmation")
	whatsapp.client.Transport = countingTransport{base: http.DefaultTransport, hit: func() {
		f.mu.Lock()
		f.graphHit++
		f.mu.Unlock()
	}}
	queueClient, _ := queue.NewClient(nil)

	f.svc = NewSubmissionService(SubmissionDeps{
		Policy:     pricing.DefaultPolicy(),
		OrderRepo:  repository.NewGuestOrderRepository(db),
		ItemRepo:   repository.NewOrderItemRepository(db),
		RawRepo:    repository.NewRawOrderRepository(db),
		PointsRepo: repository.NewPointsRepository(db),
		CouponRepo: repository.NewCouponRepository(db),
		SubRepo:    repository.NewSubmissionRepository(db),
		Email:      email,
		WhatsApp:   whatsapp,
		Tokens:     f.tokens,
		Queue:      queueClient,
	}, SubmissionOptions{DefaultCountry: "971", MaxAttempts: 3})
	return f
}

type countingTransport struct {
	base http.RoundTripper
	hit  func()
}

func (c countingTransport) RoundTrip(r *http.Request) (*http.Response, error) {
	c.hit()
	return c.base.RoundTrip(r)
}

func (f *submissionFixture) seedPoints(t *testing.T, mobile string, earned int64) {
	t.Helper()
	if err := repository.NewPointsRepository(f.db).Create(&models.PointsLedger{
		Mobile:       mobile,
		RedeemPoints: -earned,
		Status:       constants.PointsStatusEarned,
	}); err != nil {
		t.Fatalf("seed points failed: %v", err)
	}
}

func sampleSubmitInput() SubmitInput {
	return SubmitInput{
		Name:              "Amina",
		Email:             "amina@example.com",
		MobileCountryCode: "971",
		Mobile:            "050 123 4567",
		City:              "Dubai",
		Area:              "Jumeirah",
		Address:           "Villa 3",
		PaymentMethod:     "cash",
		Items: []SubmitItem{
			{ID: 1, Name: "Saffron", Price: decimal.NewFromInt(40), Quantity: 2, Weight: 0.5},
			{ID: 2, Name: "Cumin", Price: decimal.RequireFromString("7.5"), Quantity: 1, Weight: 1000},
		},
	}
}

func countRows(t *testing.T, db *gorm.DB, model interface{}) int64 {
	t.Helper()
	var n int64
	if err := db.Model(model).Count(&n).Error; err != nil {
		t.Fatalf("count failed: %v", err)
	}
	return n
}

func TestSubmitCreatesOrderAndRunsSteps(t *testing.T) {
	f := newSubmissionFixture(t)
	seedCoupon(t, f.db, "SAVE10", "10", 1)
	f.seedPoints(t, "971501234567", 500)

	input := sampleSubmitInput()
	input.CouponCode = "save10"
	input.RedeemPoints = 300
	result, err := f.svc.Submit(context.Background(), input)
	if err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	if result.OrderNo != FormatOrderNo("BZ", result.OrderID) || len(result.Warnings) != 0 {
		t.Fatalf("unexpected result: %+v", result)
	}
	if err := f.tokens.Verify(result.Token, result.OrderID); err != nil {
		t.Fatalf("order token should verify: %v", err)
	}

	order, err := repository.NewGuestOrderRepository(f.db).GetByID(result.OrderID)
	if err != nil || order == nil {
		t.Fatalf("order not stored: %v", err)
	}
	// 小计 87.5，运费 5，积分抵扣 3，优惠券 8.75
	checks := map[string][2]string{
		"amount":     {order.Amount.String(), "87.50"},
		"shipping":   {order.ShippingCharges.String(), "5.00"},
		"overweight": {order.DeliveryCharges.String(), "0.00"},
		"discount":   {order.Discount.String(), "8.75"},
		"redeem":     {order.RedeemAmount.String(), "3.00"},
		"total":      {order.Total.String(), "80.75"},
	}
	for name, pair := range checks {
		if pair[0] != pair[1] {
			t.Fatalf("%s want %s got %s", name, pair[1], pair[0])
		}
	}
	if order.Mobile != "971501234567" || order.CouponCode != "SAVE10" || order.Status != constants.OrderStatusPlaced {
		t.Fatalf("unexpected order fields: %+v", order)
	}

	if n := countRows(t, f.db, &models.OrderItem{}); n != 2 {
		t.Fatalf("expected 2 order items, got %d", n)
	}
	if n := countRows(t, f.db, &models.RawOrder{}); n != 1 {
		t.Fatalf("expected 1 raw order, got %d", n)
	}
	balance, _ := repository.NewPointsRepository(f.db).Balance("971501234567")
	if balance != 500-300+253 {
		t.Fatalf("unexpected points balance: %d", balance)
	}
	coupon, _ := repository.NewCouponRepository(f.db).GetByCode("SAVE10")
	if coupon.NumberOfTimeUsed != 1 {
		t.Fatalf("coupon should be used once, got %d", coupon.NumberOfTimeUsed)
	}
	if len(f.mailTo) != 1 || f.mailTo[0] != "amina@example.com" || f.graphHit != 1 {
		t.Fatalf("notifications not sent: mail=%v graph=%d", f.mailTo, f.graphHit)
	}

	report, err := f.svc.Report(result.OrderID)
	if err != nil {
		t.Fatalf("report failed: %v", err)
	}
	if !report.Complete || len(report.Steps) != len(submissionStepOrder) {
		t.Fatalf("unexpected report: %+v", report)
	}
	if report.Steps[0].Step != constants.SubmissionStepCreateOrder || report.Steps[len(report.Steps)-1].Step != constants.SubmissionStepCouponUse {
		t.Fatalf("steps should keep execution order: %+v", report.Steps)
	}

	replay, err := f.svc.Submit(context.Background(), SubmitInput{ClientRef: result.ClientRef})
	if err != nil || !replay.Replayed || replay.OrderID != result.OrderID {
		t.Fatalf("same client_ref should replay the order: %+v %v", replay, err)
	}
	if n := countRows(t, f.db, &models.GuestOrder{}); n != 1 {
		t.Fatalf("replay must not create another order, got %d", n)
	}
}

func TestSubmitRejectsExhaustedCouponAndMissingPoints(t *testing.T) {
	f := newSubmissionFixture(t)
	coupon := seedCoupon(t, f.db, "ONCE", "5", 1)
	if err := f.db.Model(coupon).Update("number_of_time_used", 1).Error; err != nil {
		t.Fatalf("exhaust coupon failed: %v", err)
	}

	input := sampleSubmitInput()
	input.CouponCode = "ONCE"
	if _, err := f.svc.Submit(context.Background(), input); !errors.Is(err, ErrCouponExhausted) {
		t.Fatalf("expected ErrCouponExhausted, got %v", err)
	}

	input = sampleSubmitInput()
	input.RedeemPoints = 100
	if _, err := f.svc.Submit(context.Background(), input); !errors.Is(err, ErrPointsInsufficient) {
		t.Fatalf("expected ErrPointsInsufficient, got %v", err)
	}
	if n := countRows(t, f.db, &models.GuestOrder{}); n != 0 {
		t.Fatalf("failed submissions must not leave orders, got %d", n)
	}

	if _, err := f.svc.Submit(context.Background(), SubmitInput{Name: "x", Mobile: "0501234567"}); !errors.Is(err, ErrOrderItemsRequired) {
		t.Fatalf("expected ErrOrderItemsRequired, got %v", err)
	}
}

func TestSubmitRecordsFailedStepAndRetries(t *testing.T) {
	f := newSubmissionFixture(t)
	f.mailErr = errors.New("dial tcp: connection refused")

	result, err := f.svc.Submit(context.Background(), sampleSubmitInput())
	if err != nil {
		t.Fatalf("best-effort failure must not fail the order: %v", err)
	}
	if len(result.Warnings) != 1 {
		t.Fatalf("expected one warning, got %v", result.Warnings)
	}
	step, err := repository.NewSubmissionRepository(f.db).GetStep(result.OrderID, constants.SubmissionStepEmail)
	if err != nil || step == nil {
		t.Fatalf("email step missing: %v", err)
	}
	if step.Status != constants.SubmissionStatusFailed || step.Attempts != 1 || step.LastError == "" {
		t.Fatalf("unexpected failed step: %+v", step)
	}
	if n := countRows(t, f.db, &models.OrderItem{}); n != 2 {
		t.Fatalf("later steps should still run, got %d items", n)
	}

	f.mailErr = nil
	f.svc.now = func() time.Time { return time.Now().Add(time.Hour) }
	handled, err := f.svc.Reconcile(context.Background())
	if err != nil || handled != 1 {
		t.Fatalf("expected one reconciled step, got %d %v", handled, err)
	}
	report, _ := f.svc.Report(result.OrderID)
	if !report.Complete {
		t.Fatalf("report should be complete after reconcile: %+v", report.Steps)
	}
	if err := f.svc.RetryStep(context.Background(), result.OrderID, constants.SubmissionStepEmail); err != nil {
		t.Fatalf("retrying a completed step should be a no-op: %v", err)
	}
	if len(f.mailTo) != 1 {
		t.Fatalf("email should be sent exactly once, got %d", len(f.mailTo))
	}
}

func TestSubmitSkipsDisabledChannels(t *testing.T) {
	f := newSubmissionFixture(t)
	f.svc.email = NewEmailService(&config.EmailConfig{Enabled: false}, nil)
	f.svc.whatsapp = NewWhatsAppService(&config.WhatsAppConfig{}, nil)

	result, err := f.svc.Submit(context.Background(), sampleSubmitInput())
	if err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	statuses := map[string]string{}
	for _, step := range result.Steps {
		statuses[step.Step] = step.Status
	}
	if statuses[constants.SubmissionStepEmail] != constants.SubmissionStatusSkipped ||
		statuses[constants.SubmissionStepWhatsApp] != constants.SubmissionStatusSkipped {
		t.Fatalf("disabled channels should be skipped: %+v", statuses)
	}
	if statuses[constants.SubmissionStepPointsSpent] != constants.SubmissionStatusSkipped ||
		statuses[constants.SubmissionStepCouponUse] != constants.SubmissionStatusSkipped {
		t.Fatalf("unused points and coupon should be skipped: %+v", statuses)
	}
	if statuses[constants.SubmissionStepPointsEarned] != constants.SubmissionStatusCompleted {
		t.Fatalf("earned points should be recorded: %+v", statuses)
	}
}

func TestRetryDelayBacksOff(t *testing.T) {
	svc := NewSubmissionService(SubmissionDeps{}, SubmissionOptions{RetryBase: time.Minute})
	if got := svc.retryDelay(1); got != time.Minute {
		t.Fatalf("first retry want 1m got %s", got)
	}
	if got := svc.retryDelay(3); got != 4*time.Minute {
		t.Fatalf("third retry want 4m got %s", got)
	}
	if got := svc.retryDelay(20); got != maxSubmissionRetryDelay {
		t.Fatalf("delay should be capped, got %s", got)
	}
}
