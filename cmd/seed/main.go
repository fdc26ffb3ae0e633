package main

import (
	"errors"
	"os"
	"time"

	"github.com/bazaar-next/internal/authz"
	"github.com/bazaar-next/internal/config"
	"github.com/bazaar-next/internal/logger"
	"github.com/bazaar-next/internal/models"
	"github.com/bazaar-next/internal/repository"
	"github.com/bazaar-next/internal/service"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

func money(v string) models.Money {
	return models.NewMoneyFromDecimal(decimal.RequireFromString(v))
}

func main() {
	// 连接数据库
	cfg := config.Load()
	logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	stdLog := logger.StdLogger()
	if err := models.InitDB(cfg.Database.Driver, cfg.Database.DSN, models.DBPoolConfig{
		MaxOpenConns:           cfg.Database.Pool.MaxOpenConns,
		MaxIdleConns:           cfg.Database.Pool.MaxIdleConns,
		ConnMaxLifetimeSeconds: cfg.Database.Pool.ConnMaxLifetimeSeconds,
		ConnMaxIdleTimeSeconds: cfg.Database.Pool.ConnMaxIdleTimeSeconds,
	}, false); err != nil {
		stdLog.Fatalf("Failed to connect database: %v", err)
	}

	// 自动迁移
	if err := models.AutoMigrate(); err != nil {
		stdLog.Fatalf("Failed to migrate database: %v", err)
	}

	// 商品：重量单位混用 kg 与 g，与线上目录一致
	products := []models.Product{
		{Slug: "saffron-super-negin", Name: "Saffron Super Negin", NameAR: "زعفران سوبر نجين", Price: money("45.00"), OriginalPrice: money("55.00"), Weight: 5, WeightUnit: "g", IsActive: true, SortOrder: 100},
		{Slug: "cardamom-green", Name: "Green Cardamom", NameAR: "هيل أخضر", Price: money("32.50"), OriginalPrice: money("32.50"), Weight: 250, WeightUnit: "g", IsActive: true, SortOrder: 90},
		{Slug: "basmati-rice-5kg", Name: "Basmati Rice 5kg", NameAR: "أرز بسمتي 5 كغ", Price: money("39.00"), OriginalPrice: money("44.00"), Weight: 5, WeightUnit: "kg", IsActive: true, SortOrder: 80},
		{Slug: "medjool-dates", Name: "Medjool Dates", NameAR: "تمر مجدول", Price: money("58.00"), OriginalPrice: money("58.00"), Weight: 1, WeightUnit: "kg", IsActive: true, SortOrder: 70},
		{Slug: "fresh-mint", Name: "Fresh Mint", NameAR: "نعناع طازج", Price: money("4.50"), OriginalPrice: money("4.50"), Weight: 100, WeightUnit: "g", DubaiOnly: true, IsActive: true, SortOrder: 60},
		{Slug: "olive-oil-1l", Name: "Extra Virgin Olive Oil 1L", NameAR: "زيت زيتون بكر ممتاز 1 لتر", Price: money("36.00"), OriginalPrice: money("42.00"), Weight: 1, WeightUnit: "kg", IsActive: true, SortOrder: 50},
	}
	for _, product := range products {
		var existing models.Product
		err := models.DB.Where("slug = ?", product.Slug).First(&existing).Error
		switch {
		case err == nil:
			stdLog.Printf("Product already exists: %s", product.Slug)
		case errors.Is(err, gorm.ErrRecordNotFound):
			if err := models.DB.Create(&product).Error; err != nil {
				stdLog.Printf("Failed to create product %s: %v", product.Slug, err)
				continue
			}
			stdLog.Printf("Created product: %s", product.Slug)
		default:
			stdLog.Printf("Failed to query product %s: %v", product.Slug, err)
		}
	}

	// 规格商品：藏红花 1g 装挂在 5g 装下
	var parent models.Product
	if err := models.DB.Where("slug = ?", "saffron-super-negin").First(&parent).Error; err == nil {
		variant := models.Product{
			Slug: "saffron-super-negin-1g", Name: "Saffron Super Negin", NameAR: "زعفران سوبر نجين",
			Price: money("10.00"), OriginalPrice: money("12.00"), Weight: 1, WeightUnit: "g",
			Unit: "1g", ParentProductID: &parent.ID, IsActive: true, SortOrder: 99,
		}
		if err := models.DB.Where("slug = ?", variant.Slug).FirstOrCreate(&variant).Error; err != nil {
			stdLog.Printf("Failed to create variant %s: %v", variant.Slug, err)
		}
	}

	// 优惠券
	expire := time.Now().AddDate(0, 3, 0)
	coupons := []models.Coupon{
		{CouponCode: "WELCOME10", Discount: money("10"), NumberOfTime: 0, ExpireDate: &expire, Status: 1},
		{CouponCode: "RAMADAN20", Discount: money("20"), NumberOfTime: 100, ExpireDate: &expire, Status: 1},
		{CouponCode: "VIP50", Discount: money("50"), NumberOfTime: 1, Status: 1},
	}
	for _, coupon := range coupons {
		if err := models.DB.Where("coupon_code = ?", coupon.CouponCode).FirstOrCreate(&coupon).Error; err != nil {
			stdLog.Printf("Failed to create coupon %s: %v", coupon.CouponCode, err)
			continue
		}
		stdLog.Printf("Coupon ready: %s", coupon.CouponCode)
	}

	// 后台员工账号，各自绑定预置角色
	authSvc := service.NewAuthService(cfg.AdminJWT, repository.NewAdminRepository(models.DB))
	authzSvc, err := authz.NewService(models.DB)
	if err != nil {
		stdLog.Fatalf("Failed to init authz: %v", err)
	}
	if err := authzSvc.SeedRoles(); err != nil {
		stdLog.Fatalf("Failed to seed roles: %v", err)
	}
	staff := []struct {
		username string
		role     string
	}{
		{username: "ops", role: "operations"},
		{username: "support", role: "support"},
		{username: "finance", role: "finance"},
		{username: "auditor", role: "readonly_auditor"},
	}
	staffPassword := os.Getenv("BAZAAR_SEED_STAFF_PASSWORD")
	if staffPassword == "" {
		staffPassword = "staff123"
	}
	for _, member := range staff {
		admin, created, err := authSvc.EnsureAdmin(member.username, staffPassword, false)
		if err != nil {
			stdLog.Printf("Failed to create staff %s: %v", member.username, err)
			continue
		}
		if err := authzSvc.AssignRoles(admin.ID, member.role); err != nil {
			stdLog.Printf("Failed to assign role %s to %s: %v", member.role, member.username, err)
			continue
		}
		stdLog.Printf("Staff ready: %s (%s, created=%v)", member.username, member.role, created)
	}

	stdLog.Printf("Seed completed")
}
