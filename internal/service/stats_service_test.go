package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bazaar-next/internal/repository"
)

type statsRepoStub struct {
	start, end time.Time
	failDaily  bool
}

func (s *statsRepoStub) GetOverview(startAt, endAt time.Time) (repository.StatsOverviewRow, error) {
	s.start, s.end = startAt, endAt
	return repository.StatsOverviewRow{OrdersTotal: 5, CancelledOrders: 1, Revenue: 310, PointsRedeemed: 200}, nil
}

func (s *statsRepoStub) GetStatusBreakdown(time.Time, time.Time) ([]repository.StatsStatusRow, error) {
	return []repository.StatsStatusRow{{Status: 1, Count: 3}, {Status: 5, Count: 1}}, nil
}

func (s *statsRepoStub) GetDailySeries(time.Time, time.Time) ([]repository.StatsDailyRow, error) {
	if s.failDaily {
		return nil, errors.New("boom")
	}
	return []repository.StatsDailyRow{{Day: "2026-10-18", Orders: 2, Revenue: 110.5}}, nil
}

func (s *statsRepoStub) GetTopCustomers(time.Time, time.Time, int) ([]repository.StatsCustomerRow, error) {
	return []repository.StatsCustomerRow{{Mobile: "971501234567", UserName: "Amina", Orders: 2, Spent: 150}}, nil
}

func TestStatsServiceGet(t *testing.T) {
	repo := &statsRepoStub{}
	svc := NewStatsService(repo)
	svc.now = func() time.Time { return time.Date(2026, 10, 19, 15, 0, 0, 0, time.UTC) }

	resp, err := svc.Get(context.Background(), StatsQueryInput{Range: "7d", Timezone: "UTC", Locale: "en"})
	if err != nil {
		t.Fatalf("get stats failed: %v", err)
	}
	if resp.Revenue != "310.00" || resp.AverageOrder != "77.50" || resp.PointsRedeemed != 200 {
		t.Fatalf("unexpected overview: %+v", resp)
	}
	if len(resp.StatusBreakdown) != 2 || resp.StatusBreakdown[1].Label != "Cancelled" {
		t.Fatalf("unexpected breakdown: %+v", resp.StatusBreakdown)
	}
	if resp.Daily[0].Revenue != "110.50" || resp.TopCustomers[0].Spent != "150.00" {
		t.Fatalf("unexpected series: %+v %+v", resp.Daily, resp.TopCustomers)
	}
	if !repo.start.Equal(time.Date(2026, 10, 13, 0, 0, 0, 0, time.UTC)) || !repo.end.Equal(time.Date(2026, 10, 20, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected window: %s - %s", repo.start, repo.end)
	}
}

func TestStatsServiceErrors(t *testing.T) {
	svc := NewStatsService(&statsRepoStub{failDaily: true})
	if _, err := svc.Get(context.Background(), StatsQueryInput{Range: "yearly"}); !errors.Is(err, ErrStatsRangeInvalid) {
		t.Fatalf("expected ErrStatsRangeInvalid, got %v", err)
	}
	from := time.Date(2026, 10, 10, 0, 0, 0, 0, time.UTC)
	to := from.Add(-time.Hour)
	if _, err := svc.Get(context.Background(), StatsQueryInput{From: &from, To: &to}); !errors.Is(err, ErrStatsRangeInvalid) {
		t.Fatalf("expected ErrStatsRangeInvalid for inverted range, got %v", err)
	}
	if _, err := svc.Get(context.Background(), StatsQueryInput{Range: "today", ForceRefresh: true}); !errors.Is(err, ErrStatsFailed) {
		t.Fatalf("expected ErrStatsFailed, got %v", err)
	}
}
