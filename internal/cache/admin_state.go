package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/bazaar-next/internal/models"
)

const adminStateCacheTTL = 10 * time.Minute

// AdminAuthState 管理员鉴权快照，避免每个请求查询数据库
type AdminAuthState struct {
	AdminID   uint   `json:"admin_id"`
	Username  string `json:"username"`
	IsSuper   bool   `json:"is_super"`
	UpdatedAt int64  `json:"updated_at"`
}

func adminAuthStateKey(adminID uint) string {
	return fmt.Sprintf("auth:admin:%d", adminID)
}

// BuildAdminAuthState 从管理员模型构建鉴权快照
func BuildAdminAuthState(admin *models.Admin) *AdminAuthState {
	if admin == nil {
		return nil
	}
	return &AdminAuthState{
		AdminID:   admin.ID,
		Username:  admin.Username,
		IsSuper:   admin.IsSuper,
		UpdatedAt: time.Now().Unix(),
	}
}

// GetAdminAuthState 获取管理员鉴权快照
func GetAdminAuthState(ctx context.Context, adminID uint) (*AdminAuthState, bool, error) {
	if adminID == 0 {
		return nil, false, nil
	}
	var state AdminAuthState
	hit, err := GetJSON(ctx, adminAuthStateKey(adminID), &state)
	if err != nil || !hit {
		return nil, hit, err
	}
	return &state, true, nil
}

// SetAdminAuthState 写入管理员鉴权快照
func SetAdminAuthState(ctx context.Context, state *AdminAuthState) error {
	if state == nil || state.AdminID == 0 {
		return nil
	}
	return SetJSON(ctx, adminAuthStateKey(state.AdminID), state, adminStateCacheTTL)
}

// DelAdminAuthState 删除管理员鉴权快照
func DelAdminAuthState(ctx context.Context, adminID uint) error {
	if adminID == 0 {
		return nil
	}
	return Del(ctx, adminAuthStateKey(adminID))
}
