package rbac

import (
	"strings"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
)

type Permission string

const (
	PermIncidentsView   Permission = "incidents.view"
	PermIncidentsManage Permission = "incidents.manage"
	PermIncidentsDelete Permission = "incidents.delete"
	PermHelpersView     Permission = "helpers.view"
	PermHelpersManage   Permission = "helpers.manage"
	PermDispatchSend    Permission = "dispatch.send"
	PermAuditView       Permission = "audit.view"
	PermAnalysisRun     Permission = "analysis.run"
)

const (
	RoleAdmin    = "admin"
	RoleOperator = "operator"
)

// ServiceActor is the elevated identity used for AI analysis write-back.
// It is never attached to an HTTP session.
var ServiceActor = Actor{ID: 0, Email: "service@bastion", Roles: []string{RoleAdmin}}

const rbacModel = `
[request_definition]
r = sub, obj, act

[policy_definition]
p = sub, obj, act

[policy_effect]
e = some(where (p.eft == allow))

[matchers]
m = r.sub == p.sub && r.obj == p.obj && r.act == p.act
`

type Grant struct {
	Role        string
	Permissions []Permission
}

// Policy answers capability questions for a set of roles. The same
// instance is consulted by the api layer and again at the store boundary,
// so a direct call into the data layer cannot bypass the check.
type Policy struct {
	enforcer *casbin.Enforcer
}

func DefaultGrants() []Grant {
	return []Grant{
		{Role: RoleAdmin, Permissions: []Permission{
			PermIncidentsView, PermIncidentsManage, PermIncidentsDelete,
			PermHelpersView, PermHelpersManage,
			PermDispatchSend, PermAuditView, PermAnalysisRun,
		}},
		{Role: RoleOperator, Permissions: []Permission{
			PermIncidentsView, PermAnalysisRun,
		}},
	}
}

func NewPolicy(grants []Grant) *Policy {
	m, err := model.NewModelFromString(rbacModel)
	if err != nil {
		panic("rbac: invalid model: " + err.Error())
	}
	e, err := casbin.NewEnforcer(m)
	if err != nil {
		panic("rbac: enforcer: " + err.Error())
	}
	for _, g := range grants {
		role := strings.ToLower(strings.TrimSpace(g.Role))
		if role == "" {
			continue
		}
		for _, perm := range g.Permissions {
			obj, act := splitPermission(perm)
			_, _ = e.AddPolicy(role, obj, act)
		}
	}
	return &Policy{enforcer: e}
}

func NewDefaultPolicy() *Policy {
	return NewPolicy(DefaultGrants())
}

func (p *Policy) Allowed(roles []string, perm Permission) bool {
	if p == nil || p.enforcer == nil {
		return false
	}
	obj, act := splitPermission(perm)
	for _, role := range roles {
		ok, err := p.enforcer.Enforce(strings.ToLower(strings.TrimSpace(role)), obj, act)
		if err == nil && ok {
			return true
		}
	}
	return false
}

// CanModifyIncident is the ownership-or-admin capability: the reporter and
// anyone holding incidents.manage are two independent grants of the same
// capability.
func (p *Policy) CanModifyIncident(actor Actor, reportedBy int64) bool {
	if actor.ID != 0 && actor.ID == reportedBy {
		return true
	}
	return p.Allowed(actor.Roles, PermIncidentsManage)
}

func splitPermission(perm Permission) (string, string) {
	raw := strings.ToLower(strings.TrimSpace(string(perm)))
	idx := strings.LastIndex(raw, ".")
	if idx <= 0 || idx == len(raw)-1 {
		return raw, "access"
	}
	return raw[:idx], raw[idx+1:]
}
