package repository

import (
	"github.com/bazaar-next/internal/models"

	"gorm.io/gorm"
)

// RawOrderRepository 下单审计记录数据访问接口
type RawOrderRepository interface {
	Create(record *models.RawOrder) error
	List(filter RawOrderListFilter) ([]models.RawOrder, int64, error)
	WithTx(tx *gorm.DB) *GormRawOrderRepository
}

// GormRawOrderRepository GORM 实现
type GormRawOrderRepository struct {
	db *gorm.DB
}

// NewRawOrderRepository 创建审计记录仓库
func NewRawOrderRepository(db *gorm.DB) *GormRawOrderRepository {
	return &GormRawOrderRepository{db: db}
}

// WithTx 绑定事务
func (r *GormRawOrderRepository) WithTx(tx *gorm.DB) *GormRawOrderRepository {
	if tx == nil {
		return r
	}
	return &GormRawOrderRepository{db: tx}
}

// Create 写入审计记录
func (r *GormRawOrderRepository) Create(record *models.RawOrder) error {
	return r.db.Create(record).Error
}

// List 审计记录列表
func (r *GormRawOrderRepository) List(filter RawOrderListFilter) ([]models.RawOrder, int64, error) {
	var records []models.RawOrder
	query := r.db.Model(&models.RawOrder{})
	if filter.Mobile != "" {
		query = query.Where("mobile = ?", filter.Mobile)
	}
	if filter.OrderID != 0 {
		query = query.Where("order_id = ?", filter.OrderID)
	}
	if filter.CreatedFrom != nil {
		query = query.Where("created_at >= ?", *filter.CreatedFrom)
	}
	if filter.CreatedTo != nil {
		query = query.Where("created_at <= ?", *filter.CreatedTo)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	query = applyPagination(query, filter.Page, filter.PageSize)
	if err := query.Order("id desc").Find(&records).Error; err != nil {
		return nil, 0, err
	}
	return records, total, nil
}
