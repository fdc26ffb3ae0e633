package service

import (
	"errors"
	"testing"

	"github.com/bazaar-next/internal/constants"
	"github.com/bazaar-next/internal/pricing"
	"github.com/bazaar-next/internal/repository"
)

func TestPointsServiceAppendAndBalance(t *testing.T) {
	db := openServiceTestDB(t)
	svc := NewPointsService(repository.NewPointsRepository(db), pricing.DefaultPolicy(), "971")

	if _, err := svc.Append(AppendInput{Mobile: "050 123 4567", Points: 500, Status: constants.PointsStatusEarned, Note: "welcome"}); err != nil {
		t.Fatalf("append earned failed: %v", err)
	}
	entry, err := svc.Append(AppendInput{CountryCode: "971", Mobile: "0501234567", Points: -120, Status: constants.PointsStatusSpent})
	if err != nil {
		t.Fatalf("append spent failed: %v", err)
	}
	if entry.RedeemPoints != 120 {
		t.Fatalf("spent entry should be positive, got %d", entry.RedeemPoints)
	}
	if _, err := svc.Append(AppendInput{Mobile: "0501234567", Points: 1000, Status: constants.PointsStatusSpent}); !errors.Is(err, ErrPointsInsufficient) {
		t.Fatalf("expected ErrPointsInsufficient, got %v", err)
	}
	if _, err := svc.Append(AppendInput{Mobile: "0501234567", Points: 0, Status: constants.PointsStatusEarned}); !errors.Is(err, ErrPointsEntryInvalid) {
		t.Fatalf("expected ErrPointsEntryInvalid, got %v", err)
	}
	if _, err := svc.Append(AppendInput{Mobile: "0501234567", Points: 5, Status: 9}); !errors.Is(err, ErrPointsEntryInvalid) {
		t.Fatalf("expected ErrPointsEntryInvalid for unknown status, got %v", err)
	}

	balance, err := svc.Balance("", "+971 50 123 4567")
	if err != nil {
		t.Fatalf("balance failed: %v", err)
	}
	if balance.Points != 380 || balance.Value.StringFixed(2) != "3.80" || balance.Mobile != "971501234567" {
		t.Fatalf("unexpected balance: %+v", balance)
	}
	entries, total, err := svc.History("971", "0501234567", 1, 10)
	if err != nil || total != 2 || len(entries) != 2 {
		t.Fatalf("unexpected history: total=%d err=%v", total, err)
	}
	if _, err := svc.Balance("", ""); !errors.Is(err, ErrMobileRequired) {
		t.Fatalf("expected ErrMobileRequired, got %v", err)
	}
}
