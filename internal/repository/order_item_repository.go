package repository

import (
	"errors"

	"github.com/bazaar-next/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// OrderItemRepository 订单项数据访问接口
type OrderItemRepository interface {
	Create(item *models.OrderItem) error
	CreateIgnoreExisting(items []models.OrderItem) (int64, error)
	GetByID(id uint) (*models.OrderItem, error)
	List(filter OrderItemListFilter) ([]models.OrderItem, int64, error)
	ListByOrder(orderID uint) ([]models.OrderItem, error)
	MaxLineNo(orderID uint) (int, error)
	Update(id uint, updates map[string]interface{}) error
	Delete(id uint) error
	DeleteByOrder(orderID uint) error
	WithTx(tx *gorm.DB) *GormOrderItemRepository
}

// GormOrderItemRepository GORM 实现
type GormOrderItemRepository struct {
	db *gorm.DB
}

// NewOrderItemRepository 创建订单项仓库
func NewOrderItemRepository(db *gorm.DB) *GormOrderItemRepository {
	return &GormOrderItemRepository{db: db}
}

// WithTx 绑定事务
func (r *GormOrderItemRepository) WithTx(tx *gorm.DB) *GormOrderItemRepository {
	if tx == nil {
		return r
	}
	return &GormOrderItemRepository{db: tx}
}

// Create 创建订单项，未指定行号时追加到末尾
func (r *GormOrderItemRepository) Create(item *models.OrderItem) error {
	if item.LineNo <= 0 {
		maxLine, err := r.MaxLineNo(item.OrderID)
		if err != nil {
			return err
		}
		item.LineNo = maxLine + 1
	}
	return r.db.Create(item).Error
}

// CreateIgnoreExisting 批量写入，(order_id, line_no) 已存在的行跳过
func (r *GormOrderItemRepository) CreateIgnoreExisting(items []models.OrderItem) (int64, error) {
	if len(items) == 0 {
		return 0, nil
	}
	result := r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "order_id"}, {Name: "line_no"}},
		DoNothing: true,
	}).Create(&items)
	return result.RowsAffected, result.Error
}

// GetByID 根据 ID 获取订单项
func (r *GormOrderItemRepository) GetByID(id uint) (*models.OrderItem, error) {
	var item models.OrderItem
	if err := r.db.First(&item, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &item, nil
}

// List 订单项列表
func (r *GormOrderItemRepository) List(filter OrderItemListFilter) ([]models.OrderItem, int64, error) {
	var items []models.OrderItem
	query := r.db.Model(&models.OrderItem{})
	if filter.OrderID != 0 {
		query = query.Where("order_id = ?", filter.OrderID)
	}
	if filter.ItemStatus != nil {
		query = query.Where("item_status = ?", *filter.ItemStatus)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	query = applyPagination(query, filter.Page, filter.PageSize)
	if err := query.Order("order_id desc, line_no asc").Find(&items).Error; err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

// ListByOrder 获取订单下全部订单项
func (r *GormOrderItemRepository) ListByOrder(orderID uint) ([]models.OrderItem, error) {
	items := make([]models.OrderItem, 0)
	if err := r.db.Where("order_id = ?", orderID).Order("line_no asc").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// MaxLineNo 当前最大行号，无订单项时为 0
func (r *GormOrderItemRepository) MaxLineNo(orderID uint) (int, error) {
	var maxLine int
	err := r.db.Model(&models.OrderItem{}).
		Where("order_id = ?", orderID).
		Select("COALESCE(MAX(line_no), 0)").
		Scan(&maxLine).Error
	return maxLine, err
}

// Update 更新订单项字段
func (r *GormOrderItemRepository) Update(id uint, updates map[string]interface{}) error {
	if len(updates) == 0 {
		return nil
	}
	return r.db.Model(&models.OrderItem{}).Where("id = ?", id).Updates(updates).Error
}

// Delete 删除订单项
func (r *GormOrderItemRepository) Delete(id uint) error {
	return r.db.Delete(&models.OrderItem{}, id).Error
}

// DeleteByOrder 删除订单下全部订单项
func (r *GormOrderItemRepository) DeleteByOrder(orderID uint) error {
	return r.db.Where("order_id = ?", orderID).Delete(&models.OrderItem{}).Error
}
