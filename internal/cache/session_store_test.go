package cache

import (
	"context"
	"testing"
	"time"
)

type sessionPayload struct {
	Step  int    `json:"step"`
	Label string `json:"label"`
}

func TestSessionStoreMemoryFallback(t *testing.T) {
	store := NewSessionStore("checkout:session", time.Minute)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }
	ctx := context.Background()

	if err := store.Save(ctx, "abc", sessionPayload{Step: 2, Label: "captcha"}); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	var got sessionPayload
	hit, err := store.Load(ctx, "abc", &got)
	if err != nil || !hit {
		t.Fatalf("load failed: hit=%v err=%v", hit, err)
	}
	if got.Step != 2 || got.Label != "captcha" {
		t.Fatalf("unexpected payload: %+v", got)
	}

	now = now.Add(2 * time.Minute)
	hit, err = store.Load(ctx, "abc", &got)
	if err != nil || hit {
		t.Fatalf("expired session should miss: hit=%v err=%v", hit, err)
	}
}

func TestSessionStoreDelete(t *testing.T) {
	store := NewSessionStore("cart:session", time.Minute)
	ctx := context.Background()
	if err := store.Save(ctx, "x", sessionPayload{Step: 1}); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if err := store.Delete(ctx, "x"); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	var got sessionPayload
	if hit, _ := store.Load(ctx, "x", &got); hit {
		t.Fatalf("deleted session should miss")
	}
}

func TestCaptchaStoreMemoryFallback(t *testing.T) {
	store := NewCaptchaStore("captcha:answer", time.Minute, 10)
	if err := store.Set("id-1", "12"); err != nil {
		t.Fatalf("set failed: %v", err)
	}
	if store.Verify("id-1", "13", false) {
		t.Fatalf("wrong answer should not verify")
	}
	if !store.Verify("id-1", " 12 ", true) {
		t.Fatalf("correct answer should verify")
	}
	if store.Verify("id-1", "12", true) {
		t.Fatalf("answer must be cleared after verify")
	}
}

func TestBuildKeyPrefix(t *testing.T) {
	if got := Key("products:top_sellers"); got != "bz:products:top_sellers" {
		t.Fatalf("unexpected key: %s", got)
	}
}
