package models

import "time"

// OrderSubmission 下单后续步骤的持久化状态
type OrderSubmission struct {
	ID        uint              `gorm:"primarykey" json:"id"`                     // 主键
	OrderID   uint              `gorm:"uniqueIndex;not null" json:"order_id"`     // 订单ID
	ClientRef string            `gorm:"type:varchar(64);index" json:"client_ref"` // 客户端下单标识
	Payload   SubmissionPayload `gorm:"type:text" json:"payload"`                 // 重放数据
	CreatedAt time.Time         `gorm:"index" json:"created_at"`                  // 创建时间
	UpdatedAt time.Time         `json:"updated_at"`                               // 更新时间

	Steps []OrderSubmissionStep `gorm:"foreignKey:OrderID;references:OrderID" json:"steps,omitempty"` // 步骤
}

// TableName 指定表名
func (OrderSubmission) TableName() string {
	return "order_submissions"
}

// OrderSubmissionStep 单个下单步骤的执行状态
type OrderSubmissionStep struct {
	ID          uint       `gorm:"primarykey" json:"id"`                                                  // 主键
	OrderID     uint       `gorm:"not null;uniqueIndex:idx_submission_step" json:"order_id"`              // 订单ID
	Step        string     `gorm:"type:varchar(32);not null;uniqueIndex:idx_submission_step" json:"step"` // 步骤名称
	Seq         int        `gorm:"not null;default:0" json:"seq"`                                         // 执行顺序
	Status      string     `gorm:"type:varchar(16);not null;index" json:"status"`                         // 状态
	Attempts    int        `gorm:"not null;default:0" json:"attempts"`                                    // 已尝试次数
	LastError   string     `gorm:"type:text" json:"last_error,omitempty"`                                 // 最后一次错误
	CompletedAt *time.Time `json:"completed_at,omitempty"`                                                // 完成时间
	CreatedAt   time.Time  `json:"created_at"`                                                            // 创建时间
	UpdatedAt   time.Time  `gorm:"index" json:"updated_at"`                                               // 更新时间
}

// TableName 指定表名
func (OrderSubmissionStep) TableName() string {
	return "order_submission_steps"
}
