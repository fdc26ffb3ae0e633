package repository

import (
	"fmt"
	"time"

	"github.com/bazaar-next/internal/constants"
	"github.com/bazaar-next/internal/models"

	"gorm.io/gorm"
)

// StatsRepository 订单统计聚合查询接口
// 说明：仅聚合统计数据，不承载业务规则。
type StatsRepository interface {
	GetOverview(startAt, endAt time.Time) (StatsOverviewRow, error)
	GetStatusBreakdown(startAt, endAt time.Time) ([]StatsStatusRow, error)
	GetDailySeries(startAt, endAt time.Time) ([]StatsDailyRow, error)
	GetTopCustomers(startAt, endAt time.Time, limit int) ([]StatsCustomerRow, error)
}

// StatsOverviewRow 总览原始统计
type StatsOverviewRow struct {
	OrdersTotal     int64
	CancelledOrders int64
	Revenue         float64
	PointsRedeemed  int64
}

// StatsStatusRow 状态分布
type StatsStatusRow struct {
	Status int
	Count  int64
}

// StatsDailyRow 按天统计
type StatsDailyRow struct {
	Day     string
	Orders  int64
	Revenue float64
}

// StatsCustomerRow 客户排行
type StatsCustomerRow struct {
	Mobile   string
	UserName string
	Orders   int64
	Spent    float64
}

// GormStatsRepository GORM 统计实现
type GormStatsRepository struct {
	db *gorm.DB
}

// NewStatsRepository 创建统计仓库
func NewStatsRepository(db *gorm.DB) *GormStatsRepository {
	return &GormStatsRepository{db: db}
}

func (r *GormStatsRepository) orderBase(startAt, endAt time.Time) *gorm.DB {
	return r.db.Model(&models.GuestOrder{}).
		Where("created_at >= ? AND created_at < ?", startAt, endAt)
}

// GetOverview 营收与订单数，已取消订单不计营收
func (r *GormStatsRepository) GetOverview(startAt, endAt time.Time) (StatsOverviewRow, error) {
	result := StatsOverviewRow{}
	if err := r.orderBase(startAt, endAt).Count(&result.OrdersTotal).Error; err != nil {
		return result, err
	}
	if err := r.orderBase(startAt, endAt).
		Where("status = ?", constants.OrderStatusCancelled).
		Count(&result.CancelledOrders).Error; err != nil {
		return result, err
	}
	if err := r.orderBase(startAt, endAt).
		Where("status <> ?", constants.OrderStatusCancelled).
		Select("COALESCE(SUM(total), 0)").
		Scan(&result.Revenue).Error; err != nil {
		return result, err
	}
	if err := r.orderBase(startAt, endAt).
		Where("status <> ?", constants.OrderStatusCancelled).
		Select("COALESCE(SUM(redeem_points), 0)").
		Scan(&result.PointsRedeemed).Error; err != nil {
		return result, err
	}
	return result, nil
}

// GetStatusBreakdown 按状态分组计数
func (r *GormStatsRepository) GetStatusBreakdown(startAt, endAt time.Time) ([]StatsStatusRow, error) {
	rows := make([]StatsStatusRow, 0)
	err := r.orderBase(startAt, endAt).
		Select("status, COUNT(*) AS count").
		Group("status").
		Order("status asc").
		Scan(&rows).Error
	return rows, err
}

// GetDailySeries 按天统计订单数与营收
func (r *GormStatsRepository) GetDailySeries(startAt, endAt time.Time) ([]StatsDailyRow, error) {
	rows := make([]StatsDailyRow, 0)
	dayExpr := dayExprByDialect(dbDialectName(r.db), "created_at")
	err := r.orderBase(startAt, endAt).
		Select(fmt.Sprintf(
			"%s AS day, COUNT(*) AS orders, COALESCE(SUM(CASE WHEN status <> %d THEN total ELSE 0 END), 0) AS revenue",
			dayExpr, constants.OrderStatusCancelled,
		)).
		Group(dayExpr).
		Order("day asc").
		Scan(&rows).Error
	return rows, err
}

// GetTopCustomers 按消费金额排序的客户
func (r *GormStatsRepository) GetTopCustomers(startAt, endAt time.Time, limit int) ([]StatsCustomerRow, error) {
	if limit <= 0 {
		limit = 5
	}
	rows := make([]StatsCustomerRow, 0, limit)
	err := r.orderBase(startAt, endAt).
		Select("mobile, MAX(user_name) AS user_name, COUNT(*) AS orders, COALESCE(SUM(total), 0) AS spent").
		Where("status <> ? AND mobile <> ''", constants.OrderStatusCancelled).
		Group("mobile").
		Order("spent DESC, mobile ASC").
		Limit(limit).
		Scan(&rows).Error
	return rows, err
}
