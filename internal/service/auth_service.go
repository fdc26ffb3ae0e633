package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bazaar-next/internal/cache"
	"github.com/bazaar-next/internal/config"
	"github.com/bazaar-next/internal/logger"
	"github.com/bazaar-next/internal/models"
	"github.com/bazaar-next/internal/repository"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

const (
	defaultAdminTokenHours = 24
	// DefaultAdminPassword 未配置密码时的首个管理员初始密码
	DefaultAdminPassword = "admin123"
)

// AdminClaims 管理员令牌声明
type AdminClaims struct {
	AdminID  uint   `json:"admin_id"`
	Username string `json:"username"`
	IsSuper  bool   `json:"is_super"`
	jwt.RegisteredClaims
}

// ParseAdminToken 校验 HS256 管理员令牌
func ParseAdminToken(secret, tokenString string) (*AdminClaims, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, ErrTokenSecretMissing
	}
	claims := &AdminClaims{}
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	token, err := parser.ParseWithClaims(tokenString, claims, func(*jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid || claims.AdminID == 0 {
		return nil, errors.New("admin token invalid")
	}
	return claims, nil
}

// AuthService 管理员登录与账号初始化
type AuthService struct {
	cfg       config.JWTConfig
	adminRepo repository.AdminRepository
	now       func() time.Time
}

// NewAuthService 创建认证服务
func NewAuthService(cfg config.JWTConfig, adminRepo repository.AdminRepository) *AuthService {
	return &AuthService{cfg: cfg, adminRepo: adminRepo, now: time.Now}
}

func (s *AuthService) issueToken(admin *models.Admin) (string, time.Time, error) {
	hours := s.cfg.ExpireHours
	if hours <= 0 {
		hours = defaultAdminTokenHours
	}
	now := s.now()
	expiresAt := now.Add(time.Duration(hours) * time.Hour)
	claims := AdminClaims{
		AdminID:  admin.ID,
		Username: admin.Username,
		IsSuper:  admin.IsSuper,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   fmt.Sprintf("admin:%d", admin.ID),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.cfg.SecretKey))
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

// Login 校验账号密码并签发令牌，同时刷新鉴权快照缓存
func (s *AuthService) Login(username, password string) (*models.Admin, string, time.Time, error) {
	admin, err := s.adminRepo.GetByUsername(strings.TrimSpace(username))
	if err != nil {
		return nil, "", time.Time{}, err
	}
	if admin == nil || bcrypt.CompareHashAndPassword([]byte(admin.PasswordHash), []byte(password)) != nil {
		return nil, "", time.Time{}, ErrInvalidCredentials
	}

	token, expiresAt, err := s.issueToken(admin)
	if err != nil {
		return nil, "", time.Time{}, err
	}

	now := s.now()
	admin.LastLoginAt = &now
	if err := s.adminRepo.UpdateLastLogin(admin.ID, now); err != nil {
		logger.Warnw("admin_update_last_login_failed", "admin_id", admin.ID, "error", err)
	}
	if err := cache.SetAdminAuthState(context.Background(), cache.BuildAdminAuthState(admin)); err != nil {
		logger.Debugw("admin_auth_state_cache_failed", "admin_id", admin.ID, "error", err)
	}
	return admin, token, expiresAt, nil
}

// EnsureAdmin 账号不存在时创建；已存在则原样返回，created 为 false
func (s *AuthService) EnsureAdmin(username, password string, super bool) (admin *models.Admin, created bool, err error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, false, ErrInvalidCredentials
	}
	existing, err := s.adminRepo.GetByUsername(username)
	if err != nil {
		return nil, false, err
	}
	if existing != nil {
		return existing, false, nil
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, false, err
	}
	admin = &models.Admin{Username: username, PasswordHash: string(hash), IsSuper: super}
	if err := s.adminRepo.Create(admin); err != nil {
		return nil, false, err
	}
	return admin, true, nil
}

// EnsureDefaultAdmin 库中没有任何管理员时创建超级管理员
func (s *AuthService) EnsureDefaultAdmin(username, password string) error {
	count, err := s.adminRepo.Count()
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	if strings.TrimSpace(username) == "" {
		username = "admin"
	}
	if password == "" {
		password = DefaultAdminPassword
	}
	admin, _, err := s.EnsureAdmin(username, password, true)
	if err != nil {
		return err
	}
	if password == DefaultAdminPassword {
		logger.Warnw("default_admin_created_with_default_password", "username", admin.Username)
	} else {
		logger.Infow("default_admin_created", "username", admin.Username)
	}
	return nil
}
