package repository

import (
	"errors"

	"github.com/bazaar-next/internal/constants"
	"github.com/bazaar-next/internal/models"

	"gorm.io/gorm"
)

// ProductRepository 商品数据访问接口
type ProductRepository interface {
	GetByID(id uint) (*models.Product, error)
	ListByIDs(ids []uint) ([]models.Product, error)
	TopSellers(limit int) ([]TopSellerRow, error)
	ListActive(limit int) ([]models.Product, error)
	Create(product *models.Product) error
}

// TopSellerRow 热销排行原始行
type TopSellerRow struct {
	ProductID uint
	Quantity  int64
}

// GormProductRepository GORM 实现
type GormProductRepository struct {
	db *gorm.DB
}

// NewProductRepository 创建商品仓库
func NewProductRepository(db *gorm.DB) *GormProductRepository {
	return &GormProductRepository{db: db}
}

// GetByID 根据 ID 获取商品
func (r *GormProductRepository) GetByID(id uint) (*models.Product, error) {
	var product models.Product
	if err := r.db.First(&product, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &product, nil
}

// ListByIDs 批量获取商品
func (r *GormProductRepository) ListByIDs(ids []uint) ([]models.Product, error) {
	products := make([]models.Product, 0, len(ids))
	if len(ids) == 0 {
		return products, nil
	}
	if err := r.db.Preload("Parent").Where("id IN ?", ids).Find(&products).Error; err != nil {
		return nil, err
	}
	return products, nil
}

// TopSellers 按已下单数量排序，取消订单不计入
func (r *GormProductRepository) TopSellers(limit int) ([]TopSellerRow, error) {
	if limit <= 0 {
		limit = 10
	}
	rows := make([]TopSellerRow, 0, limit)
	err := r.db.Table("order_items AS oi").
		Select("oi.product_id AS product_id, SUM(oi.quantity) AS quantity").
		Joins("JOIN guest_orders AS o ON o.order_id = oi.order_id").
		Joins("JOIN products AS p ON p.id = oi.product_id AND p.deleted_at IS NULL AND p.is_active = ?", true).
		Where("o.status <> ?", constants.OrderStatusCancelled).
		Group("oi.product_id").
		Order("quantity DESC, oi.product_id ASC").
		Limit(limit).
		Scan(&rows).Error
	return rows, err
}

// ListActive 按排序权重获取上架商品
func (r *GormProductRepository) ListActive(limit int) ([]models.Product, error) {
	products := make([]models.Product, 0)
	query := r.db.Where("is_active = ?", true).Order("sort_order desc, id asc")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&products).Error; err != nil {
		return nil, err
	}
	return products, nil
}

// Create 创建商品
func (r *GormProductRepository) Create(product *models.Product) error {
	return r.db.Create(product).Error
}
