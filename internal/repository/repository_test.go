package repository

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/bazaar-next/internal/constants"
	"github.com/bazaar-next/internal/models"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(
		&models.Product{},
		&models.Coupon{},
		&models.GuestOrder{},
		&models.OrderItem{},
		&models.RawOrder{},
		&models.PointsLedger{},
		&models.OrderSubmission{},
		&models.OrderSubmissionStep{},
	); err != nil {
		t.Fatalf("migrate failed: %v", err)
	}
	return db
}

func money(v string) models.Money {
	return models.NewMoneyFromDecimal(decimal.RequireFromString(v))
}

func createGuestOrder(t *testing.T, db *gorm.DB, ref, mobile string, status int, total string) *models.GuestOrder {
	t.Helper()
	order := &models.GuestOrder{
		ClientRef: ref,
		UserName:  "Sara " + ref,
		Email:     ref + "@example.com",
		Mobile:    mobile,
		City:      "Dubai",
		Address:   "Marina",
		Amount:    money(total),
		Total:     money(total),
		Status:    status,
	}
	if err := NewGuestOrderRepository(db).Create(order); err != nil {
		t.Fatalf("create order failed: %v", err)
	}
	return order
}

func TestGuestOrderRepositoryLookups(t *testing.T) {
	db := openTestDB(t)
	repo := NewGuestOrderRepository(db)
	first := createGuestOrder(t, db, "BZ-A", "971500000001", constants.OrderStatusPlaced, "40")
	second := createGuestOrder(t, db, "BZ-B", "971500000001", constants.OrderStatusPlaced, "60")
	createGuestOrder(t, db, "BZ-C", "971500000002", constants.OrderStatusCancelled, "10")

	if first.OrderID == 0 || second.OrderID <= first.OrderID {
		t.Fatalf("order ids should be assigned incrementally: %d %d", first.OrderID, second.OrderID)
	}
	if err := repo.Create(&models.GuestOrder{ClientRef: "BZ-A", UserName: "dup", Mobile: "1"}); err == nil {
		t.Fatalf("duplicate client ref should be rejected")
	}

	latest, err := repo.LatestByMobile("971500000001")
	if err != nil || latest == nil {
		t.Fatalf("latest by mobile failed: %v", err)
	}
	if latest.OrderID != second.OrderID {
		t.Fatalf("latest order want %d got %d", second.OrderID, latest.OrderID)
	}

	byRef, err := repo.GetByClientRef("BZ-B")
	if err != nil || byRef == nil || byRef.OrderID != second.OrderID {
		t.Fatalf("get by client ref failed: %v %+v", err, byRef)
	}
	missing, err := repo.GetByID(9999)
	if err != nil || missing != nil {
		t.Fatalf("missing order should return nil,nil got %+v %v", missing, err)
	}
}

func TestGuestOrderRepositoryListFilters(t *testing.T) {
	db := openTestDB(t)
	repo := NewGuestOrderRepository(db)
	createGuestOrder(t, db, "BZ-1", "971500000001", constants.OrderStatusPlaced, "40")
	createGuestOrder(t, db, "BZ-2", "971500000002", constants.OrderStatusPlaced, "90")
	createGuestOrder(t, db, "BZ-3", "971500000003", constants.OrderStatusCancelled, "10")

	placed := constants.OrderStatusPlaced
	rows, total, err := repo.List(GuestOrderListFilter{Page: 1, PageSize: 10, Status: &placed, SortBy: "total", SortDesc: true})
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if total != 2 || len(rows) != 2 {
		t.Fatalf("status filter want 2 got total=%d len=%d", total, len(rows))
	}
	if rows[0].ClientRef != "BZ-2" {
		t.Fatalf("sort by total desc expected BZ-2 first, got %s", rows[0].ClientRef)
	}

	rows, total, err = repo.List(GuestOrderListFilter{Page: 1, PageSize: 10, Search: "000003"})
	if err != nil || total != 1 || rows[0].ClientRef != "BZ-3" {
		t.Fatalf("search by mobile failed: total=%d err=%v", total, err)
	}

	rows, _, err = repo.List(GuestOrderListFilter{Page: 2, PageSize: 2, SortBy: "drop table"})
	if err != nil {
		t.Fatalf("list with unknown sort failed: %v", err)
	}
	if len(rows) != 1 || rows[0].ClientRef != "BZ-1" {
		t.Fatalf("fallback sort should be order_id desc, got %+v", rows)
	}
}

func TestOrderItemCreateIgnoreExisting(t *testing.T) {
	db := openTestDB(t)
	order := createGuestOrder(t, db, "BZ-ITEMS", "971500000009", constants.OrderStatusPlaced, "20")
	repo := NewOrderItemRepository(db)

	items := []models.OrderItem{
		{OrderID: order.OrderID, LineNo: 1, ProductID: 7, Name: "Saffron", Price: money("10"), Quantity: 1, Total: money("10")},
		{OrderID: order.OrderID, LineNo: 2, ProductID: 8, Name: "Cumin", Price: money("5"), Quantity: 2, Total: money("10")},
	}
	inserted, err := repo.CreateIgnoreExisting(items)
	if err != nil || inserted != 2 {
		t.Fatalf("first insert want 2 got %d err=%v", inserted, err)
	}
	again := []models.OrderItem{
		{OrderID: order.OrderID, LineNo: 1, ProductID: 7, Name: "Saffron", Price: money("10"), Quantity: 1, Total: money("10")},
		{OrderID: order.OrderID, LineNo: 2, ProductID: 8, Name: "Cumin", Price: money("5"), Quantity: 2, Total: money("10")},
	}
	inserted, err = repo.CreateIgnoreExisting(again)
	if err != nil {
		t.Fatalf("replay insert failed: %v", err)
	}
	if inserted != 0 {
		t.Fatalf("replay should insert nothing, got %d", inserted)
	}

	rows, err := repo.ListByOrder(order.OrderID)
	if err != nil || len(rows) != 2 {
		t.Fatalf("list by order want 2 got %d err=%v", len(rows), err)
	}
	maxLine, err := repo.MaxLineNo(order.OrderID)
	if err != nil || maxLine != 2 {
		t.Fatalf("max line want 2 got %d err=%v", maxLine, err)
	}

	extra := &models.OrderItem{OrderID: order.OrderID, ProductID: 9, Name: "Sumac", Price: money("3"), Quantity: 1, Total: money("3")}
	if err := repo.Create(extra); err != nil {
		t.Fatalf("create item failed: %v", err)
	}
	if extra.LineNo != 3 {
		t.Fatalf("auto line number want 3 got %d", extra.LineNo)
	}
}

func TestPointsBalance(t *testing.T) {
	db := openTestDB(t)
	repo := NewPointsRepository(db)
	orderID := uint(11)
	entries := []models.PointsLedger{
		{Mobile: "971500000001", RedeemPoints: -300, Status: constants.PointsStatusEarned, OrderID: &orderID},
		{Mobile: "971500000001", RedeemPoints: -45, Status: constants.PointsStatusEarned},
		{Mobile: "971500000001", RedeemPoints: 100, Status: constants.PointsStatusSpent},
		{Mobile: "971500000002", RedeemPoints: -999, Status: constants.PointsStatusEarned},
	}
	for i := range entries {
		if err := repo.Create(&entries[i]); err != nil {
			t.Fatalf("create ledger entry failed: %v", err)
		}
	}

	balance, err := repo.Balance("971500000001")
	if err != nil {
		t.Fatalf("balance failed: %v", err)
	}
	if balance != 245 {
		t.Fatalf("balance want 245 got %d", balance)
	}
	empty, err := repo.Balance("000")
	if err != nil || empty != 0 {
		t.Fatalf("unknown mobile balance want 0 got %d err=%v", empty, err)
	}

	exists, err := repo.ExistsForOrder(orderID, constants.PointsStatusEarned)
	if err != nil || !exists {
		t.Fatalf("earned entry for order should exist: %v", err)
	}
	exists, _ = repo.ExistsForOrder(orderID, constants.PointsStatusSpent)
	if exists {
		t.Fatalf("spent entry for order should not exist")
	}

	rows, total, err := repo.List(PointsListFilter{Mobile: "971500000001", Page: 1, PageSize: 2})
	if err != nil || total != 3 || len(rows) != 2 {
		t.Fatalf("history want total=3 len=2 got total=%d len=%d err=%v", total, len(rows), err)
	}
}

func TestCouponReserveUse(t *testing.T) {
	db := openTestDB(t)
	repo := NewCouponRepository(db)
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	past := now.Add(-24 * time.Hour)
	future := now.Add(24 * time.Hour)

	limited := &models.Coupon{CouponCode: "SPICE10", Discount: money("10"), NumberOfTime: 2, ExpireDate: &future, Status: constants.CouponStatusActive}
	expired := &models.Coupon{CouponCode: "OLD", Discount: money("5"), ExpireDate: &past, Status: constants.CouponStatusActive}
	unlimited := &models.Coupon{CouponCode: "FOREVER", Discount: money("5"), Status: constants.CouponStatusActive}
	for _, c := range []*models.Coupon{limited, expired, unlimited} {
		if err := repo.Create(c); err != nil {
			t.Fatalf("create coupon failed: %v", err)
		}
	}
	inactive := &models.Coupon{CouponCode: "OFF", Discount: money("5"), Status: constants.CouponStatusActive}
	if err := repo.Create(inactive); err != nil {
		t.Fatalf("create coupon failed: %v", err)
	}
	if err := db.Model(&models.Coupon{}).Where("coupon_id = ?", inactive.CouponID).Update("status", constants.CouponStatusInactive).Error; err != nil {
		t.Fatalf("deactivate coupon failed: %v", err)
	}

	found, err := repo.GetByCode(" spice10 ")
	if err != nil || found == nil || found.CouponID != limited.CouponID {
		t.Fatalf("case-insensitive lookup failed: %+v %v", found, err)
	}

	for i := 0; i < 2; i++ {
		ok, err := repo.ReserveUse(limited.CouponID, now)
		if err != nil || !ok {
			t.Fatalf("reserve %d should succeed: %v", i, err)
		}
	}
	if ok, _ := repo.ReserveUse(limited.CouponID, now); ok {
		t.Fatalf("third reserve should fail once the limit is reached")
	}
	if ok, _ := repo.ReserveUse(expired.CouponID, now); ok {
		t.Fatalf("expired coupon must not be reserved")
	}
	if ok, _ := repo.ReserveUse(inactive.CouponID, now); ok {
		t.Fatalf("inactive coupon must not be reserved")
	}
	for i := 0; i < 5; i++ {
		if ok, err := repo.ReserveUse(unlimited.CouponID, now); err != nil || !ok {
			t.Fatalf("unlimited coupon reserve failed: %v", err)
		}
	}

	reloaded, _ := repo.GetByID(limited.CouponID)
	if reloaded.NumberOfTimeUsed != 2 || !reloaded.Exhausted() {
		t.Fatalf("coupon should be exhausted with 2 uses, got %d", reloaded.NumberOfTimeUsed)
	}
}

func TestSubmissionRepository(t *testing.T) {
	db := openTestDB(t)
	repo := NewSubmissionRepository(db)
	submission := &models.OrderSubmission{OrderID: 5, ClientRef: "BZ-5", Payload: models.SubmissionPayload{RedeemPoints: 100}}
	steps := []models.OrderSubmissionStep{
		{Step: constants.SubmissionStepEmail, Seq: 4, Status: constants.SubmissionStatusPending},
		{Step: constants.SubmissionStepRawOrder, Seq: 3, Status: constants.SubmissionStatusFailed, Attempts: 1},
		{Step: constants.SubmissionStepCouponUse, Seq: 9, Status: constants.SubmissionStatusSkipped},
		{Step: constants.SubmissionStepOrderItems, Seq: 6, Status: constants.SubmissionStatusFailed, Attempts: 5},
	}
	if err := repo.Create(submission, steps); err != nil {
		t.Fatalf("create submission failed: %v", err)
	}

	loaded, err := repo.GetByOrderID(5)
	if err != nil || loaded == nil {
		t.Fatalf("load submission failed: %v", err)
	}
	if len(loaded.Steps) != 4 || loaded.Steps[0].Step != constants.SubmissionStepRawOrder {
		t.Fatalf("steps should be ordered by seq: %+v", loaded.Steps)
	}
	if loaded.Payload.RedeemPoints != 100 {
		t.Fatalf("payload should round-trip, got %+v", loaded.Payload)
	}

	retryable, err := repo.ListRetryable(time.Now().Add(time.Minute), 5, 10)
	if err != nil {
		t.Fatalf("list retryable failed: %v", err)
	}
	if len(retryable) != 2 {
		t.Fatalf("want pending+failed under budget = 2, got %d", len(retryable))
	}
	none, _ := repo.ListRetryable(time.Now().Add(-time.Hour), 5, 10)
	if len(none) != 0 {
		t.Fatalf("recent steps must wait for the grace period, got %d", len(none))
	}

	step, err := repo.GetStep(5, constants.SubmissionStepEmail)
	if err != nil || step == nil {
		t.Fatalf("get step failed: %v", err)
	}
	if err := repo.UpdateStep(step.ID, map[string]interface{}{"status": constants.SubmissionStatusCompleted, "attempts": 1}); err != nil {
		t.Fatalf("update step failed: %v", err)
	}
	step, _ = repo.GetStep(5, constants.SubmissionStepEmail)
	if step.Status != constants.SubmissionStatusCompleted || step.Attempts != 1 {
		t.Fatalf("step not updated: %+v", step)
	}
}

func TestStatsRepository(t *testing.T) {
	db := openTestDB(t)
	repo := NewStatsRepository(db)
	createGuestOrder(t, db, "S-1", "971500000001", constants.OrderStatusPlaced, "100")
	createGuestOrder(t, db, "S-2", "971500000001", constants.OrderStatusCompleted, "50")
	createGuestOrder(t, db, "S-3", "971500000002", constants.OrderStatusPlaced, "20")
	createGuestOrder(t, db, "S-4", "971500000003", constants.OrderStatusCancelled, "500")

	start := time.Now().Add(-time.Hour)
	end := time.Now().Add(time.Hour)

	overview, err := repo.GetOverview(start, end)
	if err != nil {
		t.Fatalf("overview failed: %v", err)
	}
	if overview.OrdersTotal != 4 || overview.CancelledOrders != 1 {
		t.Fatalf("unexpected counts: %+v", overview)
	}
	if overview.Revenue != 170 {
		t.Fatalf("revenue should exclude cancelled orders, got %v", overview.Revenue)
	}

	breakdown, err := repo.GetStatusBreakdown(start, end)
	if err != nil || len(breakdown) != 3 {
		t.Fatalf("status breakdown want 3 groups got %d err=%v", len(breakdown), err)
	}

	series, err := repo.GetDailySeries(start, end)
	if err != nil || len(series) == 0 {
		t.Fatalf("daily series failed: len=%d err=%v", len(series), err)
	}
	var orders int64
	for _, row := range series {
		orders += row.Orders
	}
	if orders != 4 {
		t.Fatalf("daily series should cover all orders, got %d", orders)
	}

	customers, err := repo.GetTopCustomers(start, end, 5)
	if err != nil || len(customers) != 2 {
		t.Fatalf("top customers want 2 got %d err=%v", len(customers), err)
	}
	if customers[0].Mobile != "971500000001" || customers[0].Orders != 2 {
		t.Fatalf("unexpected top customer: %+v", customers[0])
	}
}

func TestProductTopSellers(t *testing.T) {
	db := openTestDB(t)
	products := NewProductRepository(db)
	saffron := &models.Product{Slug: "saffron", Name: "Saffron", Price: money("25"), IsActive: true}
	cumin := &models.Product{Slug: "cumin", Name: "Cumin", Price: money("8"), IsActive: true}
	for _, p := range []*models.Product{saffron, cumin} {
		if err := products.Create(p); err != nil {
			t.Fatalf("create product failed: %v", err)
		}
	}
	placed := createGuestOrder(t, db, "T-1", "1", constants.OrderStatusPlaced, "10")
	cancelled := createGuestOrder(t, db, "T-2", "2", constants.OrderStatusCancelled, "10")
	items := NewOrderItemRepository(db)
	rows := []models.OrderItem{
		{OrderID: placed.OrderID, LineNo: 1, ProductID: saffron.ID, Quantity: 1},
		{OrderID: placed.OrderID, LineNo: 2, ProductID: cumin.ID, Quantity: 4},
		{OrderID: cancelled.OrderID, LineNo: 1, ProductID: saffron.ID, Quantity: 50},
	}
	if _, err := items.CreateIgnoreExisting(rows); err != nil {
		t.Fatalf("create items failed: %v", err)
	}

	top, err := products.TopSellers(10)
	if err != nil {
		t.Fatalf("top sellers failed: %v", err)
	}
	if len(top) != 2 || top[0].ProductID != cumin.ID || top[0].Quantity != 4 {
		t.Fatalf("cancelled orders must not count: %+v", top)
	}
}
