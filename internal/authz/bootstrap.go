package authz

import "fmt"

// RoleSeed 预置角色
type RoleSeed struct {
	Name     string
	Inherits []string
	Policies []Policy
}

// 超级管理员跳过校验；删除订单与订单项不在任何角色内
var builtinRoles = []RoleSeed{
	{
		Name: "readonly_auditor",
		Policies: []Policy{
			{Object: "/orders/*", Action: "GET"},
			{Object: "/raw-orders", Action: "GET"},
			{Object: "/admin/*", Action: "GET"},
			{Object: "/whatsapp/send", Action: "GET"},
		},
	},
	{
		Name:     "operations",
		Inherits: []string{"readonly_auditor"},
		Policies: []Policy{
			{Object: "/admin/coupons", Action: "*"},
			{Object: "/admin/coupons/:id", Action: "*"},
			{Object: "/coupons/use", Action: "POST"},
			{Object: "/products/updates", Action: "POST"},
			{Object: "/orders/items", Action: "POST"},
			{Object: "/orders/items/:id", Action: "PUT"},
		},
	},
	{
		Name:     "support",
		Inherits: []string{"readonly_auditor"},
		Policies: []Policy{
			{Object: "/orders/:id", Action: "PUT"},
			{Object: "/orders/:id/reconcile", Action: "POST"},
			{Object: "/orders/:id/submission/:step/retry", Action: "POST"},
			{Object: "/orders/items/:id", Action: "PUT"},
			{Object: "/send-order-email", Action: "POST"},
			{Object: "/whatsapp/send", Action: "POST"},
		},
	},
	{
		Name:     "finance",
		Inherits: []string{"readonly_auditor"},
		Policies: []Policy{
			{Object: "/points", Action: "POST"},
			{Object: "/admin/coupons", Action: "GET"},
		},
	},
}

// BuiltinRoles 预置角色矩阵
func BuiltinRoles() []RoleSeed {
	return builtinRoles
}

func builtinRoleNames() map[string]struct{} {
	names := make(map[string]struct{}, len(builtinRoles))
	for _, seed := range builtinRoles {
		names[seed.Name] = struct{}{}
	}
	return names
}

// SeedRoles 写入预置角色的继承关系与策略，已存在的条目跳过
func (s *Service) SeedRoles() error {
	if err := s.ready(); err != nil {
		return err
	}
	for _, seed := range builtinRoles {
		key := roleKey(seed.Name)
		for _, parent := range seed.Inherits {
			if _, err := s.enforcer.AddNamedGroupingPolicy("g", key, roleKey(parent)); err != nil {
				return fmt.Errorf("authz seed %s inherits %s: %w", seed.Name, parent, err)
			}
		}
		for _, p := range seed.Policies {
			action := NormalizeAction(p.Action)
			if action == "" {
				return fmt.Errorf("authz seed %s: empty action for %s", seed.Name, p.Object)
			}
			if _, err := s.enforcer.AddPolicy(key, NormalizeObject(p.Object), action); err != nil {
				return fmt.Errorf("authz seed %s policy %s: %w", seed.Name, p.Object, err)
			}
		}
	}
	return nil
}
