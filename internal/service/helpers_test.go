package service

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/bazaar-next/internal/cache"
	"github.com/bazaar-next/internal/models"
	"github.com/bazaar-next/internal/repository"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

func openServiceTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(
		&models.Admin{},
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

func testMoney(v string) models.Money {
	return models.NewMoneyFromDecimal(decimal.RequireFromString(v))
}

func seedProduct(t *testing.T, db *gorm.DB, slug, name, price string, weight float64, unit string, dubaiOnly bool) *models.Product {
	t.Helper()
	product := &models.Product{
		Slug:       slug,
		Name:       name,
		Price:      testMoney(price),
		Weight:     weight,
		WeightUnit: unit,
		DubaiOnly:  dubaiOnly,
		IsActive:   true,
	}
	if err := db.Create(product).Error; err != nil {
		t.Fatalf("create product failed: %v", err)
	}
	return product
}

func seedCoupon(t *testing.T, db *gorm.DB, code, percent string, limit int) *models.Coupon {
	t.Helper()
	coupon := &models.Coupon{
		CouponCode:   code,
		Discount:     testMoney(percent),
		NumberOfTime: limit,
		Status:       1,
	}
	if err := repository.NewCouponRepository(db).Create(coupon); err != nil {
		t.Fatalf("create coupon failed: %v", err)
	}
	return coupon
}

func newTestSessionStore(name string) *cache.SessionStore {
	return cache.NewSessionStore("test:"+name, time.Hour)
}
