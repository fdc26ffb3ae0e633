package repository

import (
	"errors"
	"time"

	"github.com/bazaar-next/internal/constants"
	"github.com/bazaar-next/internal/models"

	"gorm.io/gorm"
)

// SubmissionRepository 下单步骤状态数据访问接口
type SubmissionRepository interface {
	Create(submission *models.OrderSubmission, steps []models.OrderSubmissionStep) error
	GetByOrderID(orderID uint) (*models.OrderSubmission, error)
	GetStep(orderID uint, step string) (*models.OrderSubmissionStep, error)
	UpdateStep(id uint, updates map[string]interface{}) error
	ListRetryable(before time.Time, maxAttempts, limit int) ([]models.OrderSubmissionStep, error)
	DeleteByOrder(orderID uint) error
	WithTx(tx *gorm.DB) *GormSubmissionRepository
}

// GormSubmissionRepository GORM 实现
type GormSubmissionRepository struct {
	db *gorm.DB
}

// NewSubmissionRepository 创建下单步骤仓库
func NewSubmissionRepository(db *gorm.DB) *GormSubmissionRepository {
	return &GormSubmissionRepository{db: db}
}

// WithTx 绑定事务
func (r *GormSubmissionRepository) WithTx(tx *gorm.DB) *GormSubmissionRepository {
	if tx == nil {
		return r
	}
	return &GormSubmissionRepository{db: tx}
}

// Create 写入提交记录与步骤行
func (r *GormSubmissionRepository) Create(submission *models.OrderSubmission, steps []models.OrderSubmissionStep) error {
	if err := r.db.Create(submission).Error; err != nil {
		return err
	}
	if len(steps) == 0 {
		return nil
	}
	for i := range steps {
		steps[i].OrderID = submission.OrderID
	}
	return r.db.Create(&steps).Error
}

// GetByOrderID 获取提交记录（含步骤，按执行顺序）
func (r *GormSubmissionRepository) GetByOrderID(orderID uint) (*models.OrderSubmission, error) {
	var submission models.OrderSubmission
	err := r.db.Preload("Steps", func(db *gorm.DB) *gorm.DB {
		return db.Order("seq asc")
	}).Where("order_id = ?", orderID).First(&submission).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &submission, nil
}

// GetStep 获取单个步骤
func (r *GormSubmissionRepository) GetStep(orderID uint, step string) (*models.OrderSubmissionStep, error) {
	var row models.OrderSubmissionStep
	if err := r.db.Where("order_id = ? AND step = ?", orderID, step).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}

// UpdateStep 更新步骤状态
func (r *GormSubmissionRepository) UpdateStep(id uint, updates map[string]interface{}) error {
	if len(updates) == 0 {
		return nil
	}
	return r.db.Model(&models.OrderSubmissionStep{}).Where("id = ?", id).Updates(updates).Error
}

// ListRetryable 查找需要补偿的步骤：未完成、更新时间早于 before 且仍有重试次数
func (r *GormSubmissionRepository) ListRetryable(before time.Time, maxAttempts, limit int) ([]models.OrderSubmissionStep, error) {
	rows := make([]models.OrderSubmissionStep, 0)
	query := r.db.Where("status IN ?", []string{constants.SubmissionStatusPending, constants.SubmissionStatusFailed}).
		Where("updated_at < ?", before)
	if maxAttempts > 0 {
		query = query.Where("attempts < ?", maxAttempts)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Order("updated_at asc, id asc").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// DeleteByOrder 删除订单的提交记录与步骤
func (r *GormSubmissionRepository) DeleteByOrder(orderID uint) error {
	if err := r.db.Where("order_id = ?", orderID).Delete(&models.OrderSubmissionStep{}).Error; err != nil {
		return err
	}
	return r.db.Where("order_id = ?", orderID).Delete(&models.OrderSubmission{}).Error
}
