package repository

import (
	"strings"
	"testing"
)

func TestDayExprByDialect(t *testing.T) {
	cases := map[string]string{
		"sqlite":   "CAST(date(created_at) AS TEXT)",
		"postgres": "to_char(created_at, 'YYYY-MM-DD')",
		"mysql":    "DATE_FORMAT(created_at, '%Y-%m-%d')",
	}
	for dialect, want := range cases {
		if got := dayExprByDialect(dialect, "created_at"); got != want {
			t.Fatalf("%s day expr mismatch, want %s got %s", dialect, want, got)
		}
	}
}

func TestBuildLikeCondition(t *testing.T) {
	condition, argCount := buildLikeCondition("sqlite", []string{"user_name", " ", "mobile", "email"})
	if argCount != 3 {
		t.Fatalf("arg count want 3 got %d", argCount)
	}
	if condition != "user_name LIKE ? OR mobile LIKE ? OR email LIKE ?" {
		t.Fatalf("unexpected condition: %s", condition)
	}
	pg, _ := buildLikeCondition("postgres", []string{"user_name"})
	if !strings.Contains(pg, "ILIKE") {
		t.Fatalf("postgres should use ILIKE, got %s", pg)
	}
}

func TestRepeatLikeArgs(t *testing.T) {
	args := repeatLikeArgs("%x%", 3)
	if len(args) != 3 {
		t.Fatalf("args length want 3 got %d", len(args))
	}
	for _, arg := range args {
		if arg != "%x%" {
			t.Fatalf("unexpected arg: %v", arg)
		}
	}
}

func TestSupportsRowLockingDefaultsToSQLite(t *testing.T) {
	if supportsRowLocking(nil) {
		t.Fatalf("nil db should be treated as sqlite")
	}
}
