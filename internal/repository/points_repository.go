package repository

import (
	"github.com/bazaar-next/internal/constants"
	"github.com/bazaar-next/internal/models"

	"gorm.io/gorm"
)

// PointsRepository 积分流水数据访问接口
type PointsRepository interface {
	Create(entry *models.PointsLedger) error
	Balance(mobile string) (int64, error)
	ExistsForOrder(orderID uint, status int) (bool, error)
	List(filter PointsListFilter) ([]models.PointsLedger, int64, error)
	WithTx(tx *gorm.DB) *GormPointsRepository
}

// GormPointsRepository GORM 实现
type GormPointsRepository struct {
	db *gorm.DB
}

// NewPointsRepository 创建积分仓库
func NewPointsRepository(db *gorm.DB) *GormPointsRepository {
	return &GormPointsRepository{db: db}
}

// WithTx 绑定事务
func (r *GormPointsRepository) WithTx(tx *gorm.DB) *GormPointsRepository {
	if tx == nil {
		return r
	}
	return &GormPointsRepository{db: tx}
}

// Create 追加流水
func (r *GormPointsRepository) Create(entry *models.PointsLedger) error {
	return r.db.Create(entry).Error
}

// Balance 可用积分 = 获得合计 - 消耗合计，每次读取都扫描该手机号的全部流水
func (r *GormPointsRepository) Balance(mobile string) (int64, error) {
	var row struct {
		Earned int64
		Spent  int64
	}
	err := r.db.Model(&models.PointsLedger{}).
		Select(
			"COALESCE(SUM(CASE WHEN status = ? THEN ABS(redeem_points) ELSE 0 END), 0) AS earned, "+
				"COALESCE(SUM(CASE WHEN status = ? THEN ABS(redeem_points) ELSE 0 END), 0) AS spent",
			constants.PointsStatusEarned, constants.PointsStatusSpent,
		).
		Where("mobile = ?", mobile).
		Scan(&row).Error
	if err != nil {
		return 0, err
	}
	return row.Earned - row.Spent, nil
}

// ExistsForOrder 订单是否已有指定类型的流水
func (r *GormPointsRepository) ExistsForOrder(orderID uint, status int) (bool, error) {
	var count int64
	err := r.db.Model(&models.PointsLedger{}).
		Where("order_id = ? AND status = ?", orderID, status).
		Count(&count).Error
	return count > 0, err
}

// List 积分流水列表
func (r *GormPointsRepository) List(filter PointsListFilter) ([]models.PointsLedger, int64, error) {
	var entries []models.PointsLedger
	query := r.db.Model(&models.PointsLedger{}).Where("mobile = ?", filter.Mobile)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	query = applyPagination(query, filter.Page, filter.PageSize)
	if err := query.Order("id desc").Find(&entries).Error; err != nil {
		return nil, 0, err
	}
	return entries, total, nil
}
