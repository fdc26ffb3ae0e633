package models

import "time"

// RawOrder 下单意图审计记录
type RawOrder struct {
	ID        uint          `gorm:"primarykey" json:"id"`                                  // 主键
	OrderID   *uint         `gorm:"index" json:"order_id,omitempty"`                       // 关联订单（下单成功后写入）
	ClientRef string        `gorm:"type:varchar(64);index" json:"client_ref,omitempty"`    // 客户端下单标识
	SessionID string        `gorm:"type:varchar(64);index" json:"session_id,omitempty"`    // 结账会话
	UserName  string        `gorm:"type:varchar(120)" json:"user_name"`                    // 收货人
	Email     string        `gorm:"type:varchar(200)" json:"email"`                        // 邮箱
	Mobile    string        `gorm:"type:varchar(32);index" json:"mobile"`                  // 手机号
	Whatsapp  string        `gorm:"type:varchar(32)" json:"whatsapp"`                      // WhatsApp 号码
	City      string        `gorm:"type:varchar(80)" json:"city"`                          // 城市
	Area      string        `gorm:"type:varchar(120)" json:"area"`                         // 区域
	Address   string        `gorm:"type:text" json:"address"`                              // 地址
	Items     LineSnapshots `gorm:"type:text" json:"items"`                                // 商品快照
	Subtotal  Money         `gorm:"type:decimal(20,2);not null;default:0" json:"subtotal"` // 小计
	Total     Money         `gorm:"type:decimal(20,2);not null;default:0" json:"total"`    // 总额
	CreatedAt time.Time     `gorm:"index" json:"created_at"`                               // 创建时间
}

// TableName 指定表名
func (RawOrder) TableName() string {
	return "raw_orders"
}
