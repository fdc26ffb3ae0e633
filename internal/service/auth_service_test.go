package service

import (
	"errors"
	"testing"
	"time"

	"github.com/bazaar-next/internal/config"
	"github.com/bazaar-next/internal/repository"
)

func newTestAuthService(t *testing.T) *AuthService {
	t.Helper()
	db := openServiceTestDB(t)
	return NewAuthService(config.JWTConfig{SecretKey: "test-admin-secret", ExpireHours: 2}, repository.NewAdminRepository(db))
}

func TestEnsureDefaultAdminOnlyOnEmptyTable(t *testing.T) {
	svc := newTestAuthService(t)
	if err := svc.EnsureDefaultAdmin("", ""); err != nil {
		t.Fatalf("ensure default admin failed: %v", err)
	}
	admin, err := svc.adminRepo.GetByUsername("admin")
	if err != nil || admin == nil {
		t.Fatalf("default admin missing: %v", err)
	}
	if !admin.IsSuper {
		t.Fatalf("default admin should be super")
	}

	if err := svc.EnsureDefaultAdmin("second", "secret"); err != nil {
		t.Fatalf("second ensure failed: %v", err)
	}
	if other, _ := svc.adminRepo.GetByUsername("second"); other != nil {
		t.Fatalf("default admin must not be created when accounts exist")
	}
}

func TestLoginIssuesParsableToken(t *testing.T) {
	svc := newTestAuthService(t)
	// 令牌校验使用真实时钟，签发时间取稍早于当前
	fixed := time.Now().Add(-time.Minute)
	svc.now = func() time.Time { return fixed }
	if _, created, err := svc.EnsureAdmin("ops", "pa55word", false); err != nil || !created {
		t.Fatalf("ensure admin failed: created=%v err=%v", created, err)
	}

	admin, token, expiresAt, err := svc.Login(" ops ", "pa55word")
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if !expiresAt.Equal(fixed.Add(2 * time.Hour)) {
		t.Fatalf("unexpected expiry: %v", expiresAt)
	}
	if admin.LastLoginAt == nil || !admin.LastLoginAt.Equal(fixed) {
		t.Fatalf("last login not recorded: %v", admin.LastLoginAt)
	}

	claims, err := ParseAdminToken("test-admin-secret", token)
	if err != nil {
		t.Fatalf("parse token failed: %v", err)
	}
	if claims.AdminID != admin.ID || claims.Username != "ops" || claims.IsSuper {
		t.Fatalf("unexpected claims: %+v", claims)
	}
	if _, err := ParseAdminToken("other-secret", token); err == nil {
		t.Fatalf("token signed with another secret must fail")
	}
	if _, err := ParseAdminToken("", token); !errors.Is(err, ErrTokenSecretMissing) {
		t.Fatalf("expected ErrTokenSecretMissing, got %v", err)
	}
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	svc := newTestAuthService(t)
	if _, _, err := svc.EnsureAdmin("support", "right", false); err != nil {
		t.Fatalf("ensure admin failed: %v", err)
	}
	if _, _, _, err := svc.Login("support", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for wrong password, got %v", err)
	}
	if _, _, _, err := svc.Login("nobody", "right"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for unknown user, got %v", err)
	}
}

func TestEnsureAdminKeepsExisting(t *testing.T) {
	svc := newTestAuthService(t)
	first, created, err := svc.EnsureAdmin("finance", "one", false)
	if err != nil || !created {
		t.Fatalf("first ensure failed: created=%v err=%v", created, err)
	}
	again, created, err := svc.EnsureAdmin("finance", "two", true)
	if err != nil || created {
		t.Fatalf("second ensure should reuse: created=%v err=%v", created, err)
	}
	if again.ID != first.ID || again.IsSuper {
		t.Fatalf("existing admin must be returned unchanged: %+v", again)
	}
}
