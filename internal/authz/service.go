package authz

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/casbin/casbin/v3"
	"github.com/casbin/casbin/v3/model"
	"github.com/casbin/casbin/v3/util"
	gormadapter "github.com/casbin/gorm-adapter/v3"
	"gorm.io/gorm"
)

const (
	apiPrefix    = "/api"
	ruleTable    = "casbin_rule"
	adminSubject = "admin:%d"
	rolePrefix   = "role:"
)

// 请求对象为去掉 /api 前缀的路由模板，动作为 HTTP 方法
const rbacModel = `
[request_definition]
r = sub, obj, act

[policy_definition]
p = sub, obj, act

[role_definition]
g = _, _

[policy_effect]
e = some(where (p.eft == allow))

[matchers]
m = g(r.sub, p.sub) && keyMatch2(r.obj, p.obj) && (r.act == p.act || p.act == "*")
`

var (
	// ErrUnavailable 授权服务未初始化
	ErrUnavailable = errors.New("authz service unavailable")
	// ErrUnknownRole 角色不在预置矩阵中
	ErrUnknownRole = errors.New("authz role unknown")
)

// Policy 权限条目
type Policy struct {
	Role   string `json:"role,omitempty"`
	Object string `json:"object"`
	Action string `json:"action"`
}

// Service 后台接口授权
type Service struct {
	enforcer *casbin.SyncedEnforcer
}

// NewService 基于 gorm 适配器创建 enforcer，策略保存在 casbin_rule 表
func NewService(db *gorm.DB) (*Service, error) {
	if db == nil {
		return nil, fmt.Errorf("authz: nil db")
	}
	adapter, err := gormadapter.NewAdapterByDBUseTableName(db, "", ruleTable)
	if err != nil {
		return nil, fmt.Errorf("authz adapter: %w", err)
	}
	m, err := model.NewModelFromString(rbacModel)
	if err != nil {
		return nil, fmt.Errorf("authz model: %w", err)
	}
	enforcer, err := casbin.NewSyncedEnforcer(m, adapter)
	if err != nil {
		return nil, fmt.Errorf("authz enforcer: %w", err)
	}
	enforcer.AddFunction("keyMatch2", util.KeyMatch2Func)
	enforcer.EnableAutoSave(true)
	if err := enforcer.LoadPolicy(); err != nil {
		return nil, fmt.Errorf("authz load policy: %w", err)
	}
	return &Service{enforcer: enforcer}, nil
}

func (s *Service) ready() error {
	if s == nil || s.enforcer == nil {
		return ErrUnavailable
	}
	return nil
}

// Allow 管理员能否以 action 访问路由 object
func (s *Service) Allow(adminID uint, object, action string) (bool, error) {
	if err := s.ready(); err != nil {
		return false, err
	}
	if adminID == 0 {
		return false, nil
	}
	return s.enforcer.Enforce(subjectFor(adminID), NormalizeObject(object), NormalizeAction(action))
}

// AssignRoles 覆盖管理员的角色，只接受预置角色
func (s *Service) AssignRoles(adminID uint, roles ...string) error {
	if err := s.ready(); err != nil {
		return err
	}
	if adminID == 0 {
		return fmt.Errorf("authz: admin id required")
	}
	known := builtinRoleNames()
	keys := make([]string, 0, len(roles))
	for _, role := range roles {
		name := strings.TrimPrefix(strings.TrimSpace(role), rolePrefix)
		if _, ok := known[name]; !ok {
			return fmt.Errorf("%w: %q", ErrUnknownRole, role)
		}
		keys = append(keys, roleKey(name))
	}

	subject := subjectFor(adminID)
	if _, err := s.enforcer.RemoveFilteredNamedGroupingPolicy("g", 0, subject); err != nil {
		return fmt.Errorf("authz clear roles: %w", err)
	}
	for _, key := range keys {
		if _, err := s.enforcer.AddNamedGroupingPolicy("g", subject, key); err != nil {
			return fmt.Errorf("authz assign role %s: %w", key, err)
		}
	}
	return nil
}

// RolesOf 管理员直接拥有的角色名
func (s *Service) RolesOf(adminID uint) ([]string, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	keys, err := s.enforcer.GetRolesForUser(subjectFor(adminID))
	if err != nil {
		return nil, fmt.Errorf("authz roles: %w", err)
	}
	names := make([]string, 0, len(keys))
	for _, key := range keys {
		if strings.HasPrefix(key, rolePrefix) {
			names = append(names, strings.TrimPrefix(key, rolePrefix))
		}
	}
	sort.Strings(names)
	return names, nil
}

// PermissionsOf 管理员经角色继承后生效的全部权限
func (s *Service) PermissionsOf(adminID uint) ([]Policy, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	queue, err := s.enforcer.GetRolesForUser(subjectFor(adminID))
	if err != nil {
		return nil, fmt.Errorf("authz roles: %w", err)
	}
	visited := make(map[string]bool)
	seen := make(map[string]bool)
	var out []Policy
	for len(queue) > 0 {
		role := queue[0]
		queue = queue[1:]
		if visited[role] {
			continue
		}
		visited[role] = true

		rules, err := s.enforcer.GetFilteredPolicy(0, role)
		if err != nil {
			return nil, fmt.Errorf("authz policies of %s: %w", role, err)
		}
		for _, rule := range rules {
			if len(rule) < 3 {
				continue
			}
			p := Policy{Role: strings.TrimPrefix(rule[0], rolePrefix), Object: rule[1], Action: rule[2]}
			if id := p.Action + " " + p.Object; !seen[id] {
				seen[id] = true
				out = append(out, p)
			}
		}
		parents, err := s.enforcer.GetRolesForUser(role)
		if err != nil {
			return nil, fmt.Errorf("authz parents of %s: %w", role, err)
		}
		queue = append(queue, parents...)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Object != out[j].Object {
			return out[i].Object < out[j].Object
		}
		return out[i].Action < out[j].Action
	})
	return out, nil
}

func subjectFor(adminID uint) string {
	return fmt.Sprintf(adminSubject, adminID)
}

func roleKey(name string) string {
	return rolePrefix + name
}

// NormalizeObject 路由模板统一为不带 /api 前缀的绝对路径
func NormalizeObject(object string) string {
	path := strings.TrimSpace(object)
	if path == "" || path == apiPrefix {
		return "/"
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	if strings.HasPrefix(path, apiPrefix+"/") {
		path = strings.TrimPrefix(path, apiPrefix)
	}
	return path
}

// NormalizeAction 动作统一为大写 HTTP 方法
func NormalizeAction(action string) string {
	return strings.ToUpper(strings.TrimSpace(action))
}
