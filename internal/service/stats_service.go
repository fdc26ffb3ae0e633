package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bazaar-next/internal/cache"
	"github.com/bazaar-next/internal/i18n"
	"github.com/bazaar-next/internal/logger"
	"github.com/bazaar-next/internal/repository"
)

const (
	statsCacheTTL      = 45 * time.Second
	statsCustomMaxDays = 366
	statsTopCustomers  = 5
)

// StatsService 订单统计服务
// 说明：聚合后台首页的营收、订单状态与客户排行。
type StatsService struct {
	repo repository.StatsRepository
	now  func() time.Time
}

// NewStatsService 创建统计服务
func NewStatsService(repo repository.StatsRepository) *StatsService {
	return &StatsService{repo: repo, now: time.Now}
}

// StatsQueryInput 统计查询输入
type StatsQueryInput struct {
	Range        string
	From         *time.Time
	To           *time.Time
	Timezone     string
	Locale       string
	ForceRefresh bool
}

// StatsResponse 统计响应
type StatsResponse struct {
	Range           string          `json:"range"`
	From            string          `json:"from"`
	To              string          `json:"to"`
	Timezone        string          `json:"timezone"`
	Currency        string          `json:"currency"`
	OrdersTotal     int64           `json:"orders_total"`
	CancelledOrders int64           `json:"cancelled_orders"`
	Revenue         string          `json:"revenue"`
	AverageOrder    string          `json:"average_order"`
	PointsRedeemed  int64           `json:"points_redeemed"`
	StatusBreakdown []StatsStatus   `json:"status_breakdown"`
	Daily           []StatsDaily    `json:"daily"`
	TopCustomers    []StatsCustomer `json:"top_customers"`
}

// StatsStatus 状态分布项
type StatsStatus struct {
	Status int    `json:"status"`
	Label  string `json:"label"`
	Count  int64  `json:"count"`
}

// StatsDaily 每日统计
type StatsDaily struct {
	Date    string `json:"date"`
	Orders  int64  `json:"orders"`
	Revenue string `json:"revenue"`
}

// StatsCustomer 客户排行项
type StatsCustomer struct {
	Mobile   string `json:"mobile"`
	UserName string `json:"user_name"`
	Orders   int64  `json:"orders"`
	Spent    string `json:"spent"`
}

type statsWindow struct {
	rangeKey string
	startAt  time.Time
	endAt    time.Time
	timezone string
}

// Get 获取统计数据
func (s *StatsService) Get(ctx context.Context, input StatsQueryInput) (*StatsResponse, error) {
	window, err := resolveStatsWindow(input, s.now())
	if err != nil {
		return nil, err
	}
	locale := i18n.Normalize(input.Locale)

	cacheKey := fmt.Sprintf("stats:orders:%s:%d:%d:%s:%s",
		window.rangeKey,
		window.startAt.Unix(),
		window.endAt.Unix(),
		window.timezone,
		locale,
	)
	if !input.ForceRefresh {
		var cached StatsResponse
		hit, cacheErr := cache.GetJSON(ctx, cacheKey, &cached)
		if cacheErr == nil && hit {
			return &cached, nil
		}
	}

	overview, err := s.repo.GetOverview(window.startAt, window.endAt)
	if err != nil {
		return nil, s.fail("overview", err)
	}
	statuses, err := s.repo.GetStatusBreakdown(window.startAt, window.endAt)
	if err != nil {
		return nil, s.fail("status_breakdown", err)
	}
	daily, err := s.repo.GetDailySeries(window.startAt, window.endAt)
	if err != nil {
		return nil, s.fail("daily_series", err)
	}
	customers, err := s.repo.GetTopCustomers(window.startAt, window.endAt, statsTopCustomers)
	if err != nil {
		return nil, s.fail("top_customers", err)
	}

	average := 0.0
	if paid := overview.OrdersTotal - overview.CancelledOrders; paid > 0 {
		average = overview.Revenue / float64(paid)
	}
	response := &StatsResponse{
		Range:           window.rangeKey,
		From:            window.startAt.Format(time.RFC3339),
		To:              window.endAt.Add(-time.Second).Format(time.RFC3339),
		Timezone:        window.timezone,
		Currency:        "AED",
		OrdersTotal:     overview.OrdersTotal,
		CancelledOrders: overview.CancelledOrders,
		Revenue:         formatMoneyValue(overview.Revenue),
		AverageOrder:    formatMoneyValue(average),
		PointsRedeemed:  overview.PointsRedeemed,
		StatusBreakdown: make([]StatsStatus, 0, len(statuses)),
		Daily:           make([]StatsDaily, 0, len(daily)),
		TopCustomers:    make([]StatsCustomer, 0, len(customers)),
	}
	for _, row := range statuses {
		response.StatusBreakdown = append(response.StatusBreakdown, StatsStatus{
			Status: row.Status,
			Label:  orderStatusLabel(locale, row.Status),
			Count:  row.Count,
		})
	}
	for _, row := range daily {
		response.Daily = append(response.Daily, StatsDaily{
			Date:    row.Day,
			Orders:  row.Orders,
			Revenue: formatMoneyValue(row.Revenue),
		})
	}
	for _, row := range customers {
		response.TopCustomers = append(response.TopCustomers, StatsCustomer{
			Mobile:   row.Mobile,
			UserName: row.UserName,
			Orders:   row.Orders,
			Spent:    formatMoneyValue(row.Spent),
		})
	}

	_ = cache.SetJSON(ctx, cacheKey, response, statsCacheTTL)
	return response, nil
}

func (s *StatsService) fail(query string, err error) error {
	logger.Errorw("stats_query_failed", "query", query, "error", err)
	return fmt.Errorf("%w: %s", ErrStatsFailed, query)
}

func resolveStatsWindow(input StatsQueryInput, now time.Time) (statsWindow, error) {
	rangeKey := strings.ToLower(strings.TrimSpace(input.Range))
	if rangeKey == "" {
		rangeKey = "30d"
	}
	if input.From != nil || input.To != nil {
		rangeKey = "custom"
	}

	timezone := strings.TrimSpace(input.Timezone)
	location := time.Local
	if timezone != "" {
		if parsed, err := time.LoadLocation(timezone); err == nil {
			location = parsed
		} else {
			timezone = ""
		}
	}
	if timezone == "" {
		timezone = location.String()
	}

	localNow := now.In(location)
	todayStart := time.Date(localNow.Year(), localNow.Month(), localNow.Day(), 0, 0, 0, 0, location)
	window := statsWindow{rangeKey: rangeKey, timezone: timezone}

	switch rangeKey {
	case "today":
		window.startAt = todayStart
		window.endAt = todayStart.AddDate(0, 0, 1)
	case "7d":
		window.startAt = todayStart.AddDate(0, 0, -6)
		window.endAt = todayStart.AddDate(0, 0, 1)
	case "30d":
		window.startAt = todayStart.AddDate(0, 0, -29)
		window.endAt = todayStart.AddDate(0, 0, 1)
	case "all":
		window.startAt = time.Unix(0, 0).In(location)
		window.endAt = todayStart.AddDate(0, 0, 1)
	case "custom":
		if input.From == nil || input.To == nil {
			return statsWindow{}, ErrStatsRangeInvalid
		}
		startAt := input.From.In(location)
		endAt := input.To.In(location)
		if endAt.Before(startAt) {
			return statsWindow{}, ErrStatsRangeInvalid
		}
		if endAt.Sub(startAt) > time.Hour*24*statsCustomMaxDays {
			return statsWindow{}, ErrStatsRangeInvalid
		}
		window.startAt = startAt
		window.endAt = endAt.Add(time.Second)
	default:
		return statsWindow{}, ErrStatsRangeInvalid
	}

	if !window.endAt.After(window.startAt) {
		return statsWindow{}, ErrStatsRangeInvalid
	}
	return window, nil
}

func formatMoneyValue(value float64) string {
	return fmt.Sprintf("%.2f", value)
}
