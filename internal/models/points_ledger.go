package models

import "time"

// PointsLedger 积分流水表
// RedeemPoints 为有符号数：负数表示获得，正数表示消耗
type PointsLedger struct {
	ID           uint      `gorm:"primarykey" json:"id"`                          // 主键
	Mobile       string    `gorm:"type:varchar(32);index;not null" json:"mobile"` // 手机号（归一化）
	OrderID      *uint     `gorm:"index" json:"order_id,omitempty"`               // 关联订单
	RedeemPoints int64     `gorm:"not null" json:"redeem_points"`                 // 积分变动
	Status       int       `gorm:"not null;index" json:"status"`                  // 1 消耗 2 获得
	Note         string    `gorm:"type:varchar(200)" json:"note,omitempty"`       // 备注
	CreatedAt    time.Time `gorm:"index" json:"created_at"`                       // 创建时间
}

// TableName 指定表名
func (PointsLedger) TableName() string {
	return "points_ledgers"
}
