package repository

import (
	"strings"

	"gorm.io/gorm"
)

// applyPagination 应用分页参数，统一处理非法页码与偏移量。
func applyPagination(query *gorm.DB, page, pageSize int) *gorm.DB {
	if query == nil || pageSize <= 0 {
		return query
	}
	if page < 1 {
		page = 1
	}
	offset := (page - 1) * pageSize
	if offset < 0 {
		offset = 0
	}
	return query.Limit(pageSize).Offset(offset)
}

// applySort 仅允许白名单中的排序列，未命中时使用 fallback。
func applySort(query *gorm.DB, allowed map[string]string, sortBy string, desc bool, fallback string) *gorm.DB {
	column, ok := allowed[strings.ToLower(strings.TrimSpace(sortBy))]
	if !ok {
		return query.Order(fallback)
	}
	if desc {
		return query.Order(column + " DESC")
	}
	return query.Order(column + " ASC")
}
