package shared

import (
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

// NormalizePagination 归一化分页参数。
func NormalizePagination(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	if pageSize > 100 {
		pageSize = 100
	}
	return page, pageSize
}

// ParsePagination 读取 page 与 limit（兼容 page_size）查询参数。
func ParsePagination(c *gin.Context) (int, int) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	sizeRaw := c.Query("limit")
	if sizeRaw == "" {
		sizeRaw = c.Query("page_size")
	}
	pageSize, _ := strconv.Atoi(sizeRaw)
	return NormalizePagination(page, pageSize)
}

// QueryIntPtr 读取可选整数参数，缺省或非法返回 nil。
func QueryIntPtr(c *gin.Context, keys ...string) *int {
	for _, key := range keys {
		raw := strings.TrimSpace(c.Query(key))
		if raw == "" {
			continue
		}
		value, err := strconv.Atoi(raw)
		if err != nil {
			return nil
		}
		return &value
	}
	return nil
}

// QueryDate 解析 YYYY-MM-DD 或 RFC3339 日期；endOfDay 为 true 时取当天结束时间。
func QueryDate(c *gin.Context, key string, endOfDay bool) (*time.Time, bool) {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return nil, true
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return &t, true
	}
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return nil, false
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return &t, true
}
