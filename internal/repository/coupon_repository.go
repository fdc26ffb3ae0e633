package repository

import (
	"errors"
	"strings"
	"time"

	"github.com/bazaar-next/internal/constants"
	"github.com/bazaar-next/internal/models"

	"gorm.io/gorm"
)

// CouponRepository 优惠券数据访问接口
type CouponRepository interface {
	GetByID(id uint) (*models.Coupon, error)
	GetByCode(code string) (*models.Coupon, error)
	Create(coupon *models.Coupon) error
	Update(coupon *models.Coupon) error
	Delete(id uint) error
	List(filter CouponListFilter) ([]models.Coupon, int64, error)
	ReserveUse(id uint, now time.Time) (bool, error)
	WithTx(tx *gorm.DB) *GormCouponRepository
}

// GormCouponRepository GORM 实现
type GormCouponRepository struct {
	db *gorm.DB
}

// NewCouponRepository 创建优惠券仓库
func NewCouponRepository(db *gorm.DB) *GormCouponRepository {
	return &GormCouponRepository{db: db}
}

// WithTx 绑定事务
func (r *GormCouponRepository) WithTx(tx *gorm.DB) *GormCouponRepository {
	if tx == nil {
		return r
	}
	return &GormCouponRepository{db: tx}
}

// GetByID 根据 ID 获取优惠券
func (r *GormCouponRepository) GetByID(id uint) (*models.Coupon, error) {
	var coupon models.Coupon
	if err := r.db.Where("coupon_id = ?", id).First(&coupon).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &coupon, nil
}

// GetByCode 根据优惠码获取优惠券（不区分大小写）
func (r *GormCouponRepository) GetByCode(code string) (*models.Coupon, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, nil
	}
	var coupon models.Coupon
	if err := r.db.Where("UPPER(coupon_code) = ?", strings.ToUpper(code)).First(&coupon).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &coupon, nil
}

// Create 创建优惠券
func (r *GormCouponRepository) Create(coupon *models.Coupon) error {
	return r.db.Create(coupon).Error
}

// Update 更新优惠券
func (r *GormCouponRepository) Update(coupon *models.Coupon) error {
	return r.db.Save(coupon).Error
}

// Delete 删除优惠券
func (r *GormCouponRepository) Delete(id uint) error {
	return r.db.Where("coupon_id = ?", id).Delete(&models.Coupon{}).Error
}

// List 获取优惠券列表
func (r *GormCouponRepository) List(filter CouponListFilter) ([]models.Coupon, int64, error) {
	var coupons []models.Coupon
	query := r.db.Model(&models.Coupon{})
	if code := strings.TrimSpace(filter.Code); code != "" {
		query = query.Where("UPPER(coupon_code) LIKE ?", "%"+strings.ToUpper(code)+"%")
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	query = applyPagination(query, filter.Page, filter.PageSize)
	if err := query.Order("coupon_id desc").Find(&coupons).Error; err != nil {
		return nil, 0, err
	}
	return coupons, total, nil
}

// ReserveUse 条件自增使用次数：仅当启用、未过期且未用完时成功
func (r *GormCouponRepository) ReserveUse(id uint, now time.Time) (bool, error) {
	result := r.db.Model(&models.Coupon{}).
		Where("coupon_id = ? AND status = ?", id, constants.CouponStatusActive).
		Where("number_of_time = 0 OR number_of_time_used < number_of_time").
		Where("expire_date IS NULL OR expire_date > ?", now).
		UpdateColumn("number_of_time_used", gorm.Expr("number_of_time_used + 1"))
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}
