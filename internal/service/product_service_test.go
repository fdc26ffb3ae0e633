package service

import (
	"context"
	"testing"
	"time"

	"github.com/bazaar-next/internal/broadcast"
	"github.com/bazaar-next/internal/constants"
	"github.com/bazaar-next/internal/models"
	"github.com/bazaar-next/internal/repository"

	"gorm.io/gorm"
)

func seedSale(t *testing.T, db *gorm.DB, ref string, status int, lines map[uint]int) {
	t.Helper()
	order := &models.GuestOrder{ClientRef: ref, UserName: "Amina", Mobile: "971501234567", Status: status}
	if err := db.Create(order).Error; err != nil {
		t.Fatalf("create order failed: %v", err)
	}
	line := 0
	for productID, qty := range lines {
		line++
		if err := db.Create(&models.OrderItem{OrderID: order.OrderID, LineNo: line, ProductID: productID, Quantity: qty}).Error; err != nil {
			t.Fatalf("create item failed: %v", err)
		}
	}
}

func TestProductServiceTopSellers(t *testing.T) {
	db := openServiceTestDB(t)
	svc := NewProductService(repository.NewProductRepository(db), nil, time.Minute)
	saffron := seedProduct(t, db, "saffron", "Saffron", "40", 500, "g", false)
	cumin := seedProduct(t, db, "cumin", "Cumin", "7.5", 1, "kg", false)
	oud := seedProduct(t, db, "oud", "Oud", "120", 0.1, "kg", true)
	if err := db.Model(&models.Product{}).Where("id = ?", cumin.ID).Update("name_ar", "كمون").Error; err != nil {
		t.Fatalf("update name failed: %v", err)
	}

	// 无销售数据时回退到上架商品
	views, err := svc.TopSellers(context.Background(), 2, "en")
	if err != nil {
		t.Fatalf("top sellers failed: %v", err)
	}
	if len(views) != 2 || views[0].SoldQuantity != 0 {
		t.Fatalf("expected fallback to active products, got %+v", views)
	}

	seedSale(t, db, "R1", constants.OrderStatusPlaced, map[uint]int{cumin.ID: 5, saffron.ID: 2})
	seedSale(t, db, "R2", constants.OrderStatusCompleted, map[uint]int{saffron.ID: 1})
	seedSale(t, db, "R3", constants.OrderStatusCancelled, map[uint]int{oud.ID: 50})

	views, err = svc.TopSellers(context.Background(), 10, "ar")
	if err != nil {
		t.Fatalf("top sellers failed: %v", err)
	}
	if len(views) != 2 {
		t.Fatalf("cancelled orders must not count, got %d views", len(views))
	}
	if views[0].ID != cumin.ID || views[0].SoldQuantity != 5 || views[0].Name != "كمون" {
		t.Fatalf("unexpected first seller: %+v", views[0])
	}
	if views[1].ID != saffron.ID || views[1].SoldQuantity != 3 || views[1].Weight != 0.5 {
		t.Fatalf("unexpected second seller: %+v", views[1])
	}
}

func TestProductServiceInvalidateBroadcasts(t *testing.T) {
	db := openServiceTestDB(t)
	hub := broadcast.NewHub(4, nil)
	svc := NewProductService(repository.NewProductRepository(db), hub, 0)
	client := hub.Register()
	defer hub.Unregister(client)

	if n := svc.Invalidate(context.Background(), ProductUpdateInput{Type: constants.ProductEventUpdated, ProductID: 7}); n != 1 {
		t.Fatalf("expected one delivery, got %d", n)
	}
	evt := <-client.Events()
	if evt.Type != constants.ProductEventUpdated || evt.ProductID != 7 || evt.Origin != hub.InstanceID() {
		t.Fatalf("unexpected event: %+v", evt)
	}

	svc.Invalidate(context.Background(), ProductUpdateInput{Type: "bogus"})
	evt = <-client.Events()
	if evt.Type != constants.ProductEventInvalidated {
		t.Fatalf("unknown type should map to invalidation, got %s", evt.Type)
	}
}
