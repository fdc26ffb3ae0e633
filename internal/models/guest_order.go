package models

import "time"

// GuestOrder 游客订单表
type GuestOrder struct {
	OrderID           uint      `gorm:"column:order_id;primaryKey" json:"order_id"`                    // 主键（订单ID）
	OrderNo           string    `gorm:"type:varchar(32);index" json:"order_no"`                        // 展示订单号
	ClientRef         string    `gorm:"type:varchar(64);uniqueIndex;not null" json:"client_ref"`       // 客户端下单标识
	UserName          string    `gorm:"type:varchar(120);not null" json:"user_name"`                   // 收货人
	Email             string    `gorm:"type:varchar(200);index" json:"email"`                          // 邮箱
	Mobile            string    `gorm:"type:varchar(32);index;not null" json:"mobile"`                 // 手机号（纯数字，含国家码）
	Whatsapp          string    `gorm:"type:varchar(32)" json:"whatsapp"`                              // WhatsApp 号码
	City              string    `gorm:"type:varchar(80)" json:"city"`                                  // 城市
	Area              string    `gorm:"type:varchar(120)" json:"area"`                                 // 区域
	Address           string    `gorm:"type:text" json:"address"`                                      // 详细地址
	Amount            Money     `gorm:"type:decimal(20,2);not null;default:0" json:"amount"`           // 商品小计
	DeliveryCharges   Money     `gorm:"type:decimal(20,2);not null;default:0" json:"delivery_charges"` // 超重费
	Discount          Money     `gorm:"type:decimal(20,2);not null;default:0" json:"discount"`         // 优惠券抵扣金额
	ServiceFee        Money     `gorm:"type:decimal(20,2);not null;default:0" json:"service_fee"`      // 服务费
	RedeemAmount      Money     `gorm:"type:decimal(20,2);not null;default:0" json:"redeem_amount"`    // 积分抵扣金额
	RedeemPoints      int64     `gorm:"not null;default:0" json:"redeem_points"`                       // 抵扣积分数
	ShippingCharges   Money     `gorm:"type:decimal(20,2);not null;default:0" json:"shipping_charges"` // 运费
	Total             Money     `gorm:"type:decimal(20,2);not null;default:0" json:"total"`            // 应付总额
	TotalWeight       float64   `gorm:"not null;default:0" json:"total_weight"`                        // 总重量（kg）
	CouponCode        string    `gorm:"type:varchar(64);index" json:"coupon_code,omitempty"`           // 优惠券码
	CouponPercent     Money     `gorm:"type:decimal(5,2);not null;default:0" json:"coupon_percent"`    // 优惠券折扣百分比
	GroundFloorPickup bool      `gorm:"not null;default:false" json:"ground_floor_pickup"`             // 一楼自提
	PaymentType       int       `gorm:"not null;default:1" json:"payment_type"`                        // 支付方式（1 现金 2 刷卡）
	PaymentStatus     int       `gorm:"not null;default:0;index" json:"payment_status"`                // 支付状态
	Status            int       `gorm:"not null;default:0;index" json:"status"`                        // 订单状态
	AwbID             string    `gorm:"column:awb_id;type:varchar(64)" json:"awb_id"`                  // 运单号
	Locale            string    `gorm:"type:varchar(20)" json:"locale,omitempty"`                      // 下单语言
	CreatedAt         time.Time `gorm:"index" json:"created_at"`                                       // 创建时间
	UpdatedAt         time.Time `json:"updated_at"`                                                    // 更新时间

	Items []OrderItem `gorm:"foreignKey:OrderID;references:OrderID" json:"items,omitempty"` // 订单项
}

// TableName 指定表名
func (GuestOrder) TableName() string {
	return "guest_orders"
}
