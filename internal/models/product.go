package models

import (
	"strings"
	"time"

	"github.com/bazaar-next/internal/constants"

	"gorm.io/gorm"
)

// Product 商品表
type Product struct {
	ID              uint           `gorm:"primarykey" json:"id"`                                        // 主键
	Slug            string         `gorm:"uniqueIndex;not null" json:"slug"`                            // 唯一标识
	Name            string         `gorm:"type:varchar(200);not null" json:"name"`                      // 英文名称
	NameAR          string         `gorm:"column:name_ar;type:varchar(200)" json:"name_ar"`             // 阿拉伯语名称
	Price           Money          `gorm:"type:decimal(20,2);not null;default:0" json:"price"`          // 售价
	OriginalPrice   Money          `gorm:"type:decimal(20,2);not null;default:0" json:"original_price"` // 原价
	Weight          float64        `gorm:"not null;default:0" json:"weight"`                            // 单件重量
	WeightUnit      string         `gorm:"type:varchar(8);not null;default:'kg'" json:"weight_unit"`    // 重量单位（kg/g）
	DubaiOnly       bool           `gorm:"not null;default:false" json:"dubai_only"`                    // 仅限限定城市配送
	ParentProductID *uint          `gorm:"index" json:"parent_product_id,omitempty"`                    // 父商品（规格商品）
	Unit            string         `gorm:"type:varchar(32)" json:"unit,omitempty"`                      // 规格描述
	Image           string         `gorm:"type:varchar(500)" json:"image,omitempty"`                    // 图片
	IsActive        bool           `gorm:"default:true;index" json:"is_active"`                         // 是否上架
	SortOrder       int            `gorm:"default:0;index" json:"sort_order"`                           // 排序权重
	CreatedAt       time.Time      `gorm:"index" json:"created_at"`                                     // 创建时间
	UpdatedAt       time.Time      `json:"updated_at"`                                                  // 更新时间
	DeletedAt       gorm.DeletedAt `gorm:"index" json:"-"`                                              // 软删除时间

	Parent *Product `gorm:"foreignKey:ParentProductID" json:"parent,omitempty"` // 父商品
}

// TableName 指定表名
func (Product) TableName() string {
	return "products"
}

// WeightKg 按存储单位换算为千克
func (p *Product) WeightKg() float64 {
	if strings.EqualFold(strings.TrimSpace(p.WeightUnit), constants.WeightUnitGram) {
		return p.Weight / 1000
	}
	return p.Weight
}

// LocalizedName 按语言返回名称
func (p *Product) LocalizedName(locale string) string {
	if strings.HasPrefix(strings.ToLower(locale), "ar") && strings.TrimSpace(p.NameAR) != "" {
		return p.NameAR
	}
	return p.Name
}
