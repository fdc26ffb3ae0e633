package models

import "time"

// OrderItem 订单项表
type OrderItem struct {
	ID              uint      `gorm:"primarykey" json:"id"`                                      // 主键
	OrderID         uint      `gorm:"not null;uniqueIndex:idx_order_items_line" json:"order_id"` // 订单ID
	LineNo          int       `gorm:"not null;uniqueIndex:idx_order_items_line" json:"line_no"`  // 行号（同一订单内唯一）
	ProductID       uint      `gorm:"index" json:"product_id"`                                   // 商品ID
	Name            string    `gorm:"type:varchar(200)" json:"name"`                             // 商品名称快照
	Price           Money     `gorm:"type:decimal(20,2);not null;default:0" json:"price"`        // 单价
	Quantity        int       `gorm:"not null" json:"quantity"`                                  // 数量
	Total           Money     `gorm:"type:decimal(20,2);not null;default:0" json:"total"`        // 小计
	Weight          float64   `gorm:"not null;default:0" json:"weight"`                          // 单件重量（kg）
	TrackingID      string    `gorm:"type:varchar(64)" json:"tracking_id"`                       // 物流单号
	ItemStatus      int       `gorm:"not null;default:0" json:"item_status"`                     // 订单项状态
	IsPaid          bool      `gorm:"not null;default:false" json:"is_paid"`                     // 是否已付款
	PayVendor       string    `gorm:"type:varchar(64)" json:"pay_vendor"`                        // 供应商结算方
	PayVendorStatus int       `gorm:"not null;default:0" json:"pay_vendor_status"`               // 供应商结算状态
	CreatedAt       time.Time `gorm:"index" json:"created_at"`                                   // 创建时间
	UpdatedAt       time.Time `json:"updated_at"`                                                // 更新时间
}

// TableName 指定表名
func (OrderItem) TableName() string {
	return "order_items"
}
