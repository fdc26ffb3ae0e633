package repository

import (
	"errors"
	"time"

	"github.com/bazaar-next/internal/models"

	"gorm.io/gorm"
)

// AdminRepository 后台账号存取
type AdminRepository interface {
	GetByUsername(username string) (*models.Admin, error)
	GetByID(id uint) (*models.Admin, error)
	Count() (int64, error)
	Create(admin *models.Admin) error
	UpdateLastLogin(id uint, at time.Time) error
}

// GormAdminRepository GORM 实现
type GormAdminRepository struct {
	db *gorm.DB
}

// NewAdminRepository 创建管理员仓库
func NewAdminRepository(db *gorm.DB) *GormAdminRepository {
	return &GormAdminRepository{db: db}
}

// firstAdmin 未找到返回 nil, nil
func (r *GormAdminRepository) firstAdmin(query *gorm.DB) (*models.Admin, error) {
	var admin models.Admin
	err := query.First(&admin).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &admin, nil
}

// GetByUsername 按账号查找
func (r *GormAdminRepository) GetByUsername(username string) (*models.Admin, error) {
	return r.firstAdmin(r.db.Where("username = ?", username))
}

// GetByID 按主键查找
func (r *GormAdminRepository) GetByID(id uint) (*models.Admin, error) {
	return r.firstAdmin(r.db.Where("id = ?", id))
}

// Count 账号总数，用于首次启动判断
func (r *GormAdminRepository) Count() (int64, error) {
	var n int64
	err := r.db.Model(&models.Admin{}).Count(&n).Error
	return n, err
}

// Create 新建账号
func (r *GormAdminRepository) Create(admin *models.Admin) error {
	return r.db.Create(admin).Error
}

// UpdateLastLogin 登录成功后刷新时间
func (r *GormAdminRepository) UpdateLastLogin(id uint, at time.Time) error {
	return r.db.Model(&models.Admin{}).Where("id = ?", id).Update("last_login_at", at).Error
}
