package repository

import (
	"errors"
	"strings"

	"github.com/bazaar-next/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GuestOrderRepository 订单数据访问接口
type GuestOrderRepository interface {
	Create(order *models.GuestOrder) error
	GetByID(id uint) (*models.GuestOrder, error)
	GetByIDWithItems(id uint) (*models.GuestOrder, error)
	GetByIDForUpdate(id uint) (*models.GuestOrder, error)
	GetByClientRef(clientRef string) (*models.GuestOrder, error)
	LatestByMobile(mobile string) (*models.GuestOrder, error)
	List(filter GuestOrderListFilter) ([]models.GuestOrder, int64, error)
	Update(id uint, updates map[string]interface{}) error
	Delete(id uint) error
	WithTx(tx *gorm.DB) *GormGuestOrderRepository
}

// GormGuestOrderRepository GORM 实现
type GormGuestOrderRepository struct {
	db *gorm.DB
}

// NewGuestOrderRepository 创建订单仓库
func NewGuestOrderRepository(db *gorm.DB) *GormGuestOrderRepository {
	return &GormGuestOrderRepository{db: db}
}

// WithTx 绑定事务
func (r *GormGuestOrderRepository) WithTx(tx *gorm.DB) *GormGuestOrderRepository {
	if tx == nil {
		return r
	}
	return &GormGuestOrderRepository{db: tx}
}

var guestOrderSortColumns = map[string]string{
	"order_id":       "order_id",
	"id":             "order_id",
	"created_at":     "created_at",
	"total":          "total",
	"amount":         "amount",
	"user_name":      "user_name",
	"status":         "status",
	"payment_status": "payment_status",
}

// Create 创建订单
func (r *GormGuestOrderRepository) Create(order *models.GuestOrder) error {
	return r.db.Create(order).Error
}

// GetByID 根据 ID 获取订单
func (r *GormGuestOrderRepository) GetByID(id uint) (*models.GuestOrder, error) {
	return r.first(r.db.Where("order_id = ?", id))
}

// GetByIDWithItems 获取订单及订单项
func (r *GormGuestOrderRepository) GetByIDWithItems(id uint) (*models.GuestOrder, error) {
	query := r.db.Preload("Items", func(db *gorm.DB) *gorm.DB {
		return db.Order("line_no asc")
	}).Where("order_id = ?", id)
	return r.first(query)
}

// GetByIDForUpdate 事务内读取并锁定订单行（sqlite 依赖库级写锁）
func (r *GormGuestOrderRepository) GetByIDForUpdate(id uint) (*models.GuestOrder, error) {
	query := r.db.Where("order_id = ?", id)
	if supportsRowLocking(r.db) {
		query = query.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return r.first(query)
}

// GetByClientRef 根据客户端下单标识获取订单
func (r *GormGuestOrderRepository) GetByClientRef(clientRef string) (*models.GuestOrder, error) {
	clientRef = strings.TrimSpace(clientRef)
	if clientRef == "" {
		return nil, nil
	}
	return r.first(r.db.Where("client_ref = ?", clientRef))
}

// LatestByMobile 获取该手机号最近一笔订单（用于自动填充收货信息）
func (r *GormGuestOrderRepository) LatestByMobile(mobile string) (*models.GuestOrder, error) {
	if strings.TrimSpace(mobile) == "" {
		return nil, nil
	}
	return r.first(r.db.Where("mobile = ?", mobile).Order("order_id desc"))
}

func (r *GormGuestOrderRepository) first(query *gorm.DB) (*models.GuestOrder, error) {
	var order models.GuestOrder
	if err := query.First(&order).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &order, nil
}

// List 订单列表
func (r *GormGuestOrderRepository) List(filter GuestOrderListFilter) ([]models.GuestOrder, int64, error) {
	var orders []models.GuestOrder
	query := r.db.Model(&models.GuestOrder{})

	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.PaymentStatus != nil {
		query = query.Where("payment_status = ?", *filter.PaymentStatus)
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		condition, argCount := buildLikeCondition(dbDialectName(r.db), []string{"user_name", "mobile", "email", "order_no", "client_ref"})
		query = query.Where(condition, repeatLikeArgs("%"+search+"%", argCount)...)
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
	query = applySort(query, guestOrderSortColumns, filter.SortBy, filter.SortDesc, "order_id desc")
	if err := query.Find(&orders).Error; err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

// Update 更新订单字段
func (r *GormGuestOrderRepository) Update(id uint, updates map[string]interface{}) error {
	if len(updates) == 0 {
		return nil
	}
	return r.db.Model(&models.GuestOrder{}).Where("order_id = ?", id).Updates(updates).Error
}

// Delete 删除订单
func (r *GormGuestOrderRepository) Delete(id uint) error {
	return r.db.Where("order_id = ?", id).Delete(&models.GuestOrder{}).Error
}
