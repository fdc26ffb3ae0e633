package repository

import "time"

// GuestOrderListFilter 查询订单列表的过滤条件
type GuestOrderListFilter struct {
	Page          int
	PageSize      int
	SortBy        string
	SortDesc      bool
	Status        *int
	PaymentStatus *int
	Search        string
	CreatedFrom   *time.Time
	CreatedTo     *time.Time
}

// OrderItemListFilter 查询订单项列表的过滤条件
type OrderItemListFilter struct {
	Page       int
	PageSize   int
	OrderID    uint
	ItemStatus *int
}

// RawOrderListFilter 查询下单审计记录的过滤条件
type RawOrderListFilter struct {
	Page        int
	PageSize    int
	Mobile      string
	OrderID     uint
	CreatedFrom *time.Time
	CreatedTo   *time.Time
}

// CouponListFilter 查询优惠券列表的过滤条件
type CouponListFilter struct {
	Page     int
	PageSize int
	Code     string
	Status   *int
}

// PointsListFilter 查询积分流水的过滤条件
type PointsListFilter struct {
	Page     int
	PageSize int
	Mobile   string
}
