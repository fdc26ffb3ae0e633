package models

import "time"

// Coupon 优惠券表
type Coupon struct {
	CouponID         uint       `gorm:"column:coupon_id;primaryKey" json:"coupon_id"`                          // 主键
	CouponCode       string     `gorm:"type:varchar(64);uniqueIndex;not null" json:"coupon_code"`              // 优惠码
	Discount         Money      `gorm:"type:decimal(5,2);not null;default:0" json:"discount"`                  // 折扣百分比
	NumberOfTime     int        `gorm:"column:number_of_time;not null;default:0" json:"numberoftime"`          // 可用次数（0 表示不限）
	NumberOfTimeUsed int        `gorm:"column:number_of_time_used;not null;default:0" json:"numberoftimeused"` // 已用次数
	ExpireDate       *time.Time `gorm:"index" json:"expire_date"`                                              // 过期时间
	Status           int        `gorm:"not null;default:1;index" json:"status"`                                // 状态（1 启用 0 停用）
	CreatedAt        time.Time  `gorm:"index" json:"created_at"`                                               // 创建时间
	UpdatedAt        time.Time  `json:"updated_at"`                                                            // 更新时间
}

// TableName 指定表名
func (Coupon) TableName() string {
	return "coupons"
}

// Exhausted 是否已用完
func (c *Coupon) Exhausted() bool {
	return c.NumberOfTime > 0 && c.NumberOfTimeUsed >= c.NumberOfTime
}

// Expired 是否已过期
func (c *Coupon) Expired(now time.Time) bool {
	return c.ExpireDate != nil && !c.ExpireDate.After(now)
}
