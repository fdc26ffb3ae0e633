package admin

import (
	"errors"
	"time"

	"github.com/bazaar-next/internal/authz"
	"github.com/bazaar-next/internal/http/response"
	"github.com/bazaar-next/internal/models"
	"github.com/bazaar-next/internal/service"

	"github.com/gin-gonic/gin"
)

// LoginRequest 登录请求
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// LoginResponse 登录响应
type LoginResponse struct {
	Token     string                 `json:"token"`
	User      map[string]interface{} `json:"user"`
	ExpiresAt string                 `json:"expires_at"`
}

// AdminLogin 管理员登录
func (h *Handler) AdminLogin(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}

	admin, token, expiresAt, err := h.AuthService.Login(req.Username, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			respondError(c, response.CodeUnauthorized, "error.login_invalid", nil)
			return
		}
		respondError(c, response.CodeInternal, "error.login_failed", err)
		return
	}
	requestLog(c).Infow("admin_login", "admin_id", admin.ID, "username", admin.Username)
	response.Success(c, LoginResponse{
		Token: token,
		User: map[string]interface{}{
			"id":       admin.ID,
			"username": admin.Username,
			"is_super": admin.IsSuper,
		},
		ExpiresAt: expiresAt.Format(time.RFC3339),
	})
}

// AdminProfile 当前管理员及其生效权限
type AdminProfile struct {
	*models.Admin
	Roles       []string       `json:"roles"`
	Permissions []authz.Policy `json:"permissions"`
}

// GetAdminProfile 当前管理员信息
func (h *Handler) GetAdminProfile(c *gin.Context) {
	adminID, ok := getAdminID(c)
	if !ok {
		return
	}
	admin, err := h.AdminRepo.GetByID(adminID)
	if err != nil {
		respondError(c, response.CodeInternal, "error.internal", err)
		return
	}
	if admin == nil {
		respondError(c, response.CodeUnauthorized, "error.unauthorized", nil)
		return
	}
	profile := AdminProfile{Admin: admin, Roles: []string{}, Permissions: []authz.Policy{}}
	if admin.IsSuper {
		response.Success(c, profile)
		return
	}
	roles, err := h.AuthzService.RolesOf(admin.ID)
	if err != nil {
		respondError(c, response.CodeInternal, "error.internal", err)
		return
	}
	perms, err := h.AuthzService.PermissionsOf(admin.ID)
	if err != nil {
		respondError(c, response.CodeInternal, "error.internal", err)
		return
	}
	profile.Roles = roles
	if perms != nil {
		profile.Permissions = perms
	}
	response.Success(c, profile)
}
