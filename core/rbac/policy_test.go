package rbac

import "testing"

func TestDefaultPolicyGrants(t *testing.T) {
	p := NewDefaultPolicy()
	if !p.Allowed([]string{RoleAdmin}, PermHelpersView) {
		t.Fatal("admin should view helpers")
	}
	if !p.Allowed([]string{RoleAdmin}, PermIncidentsDelete) {
		t.Fatal("admin should delete incidents")
	}
	if p.Allowed([]string{RoleOperator}, PermHelpersView) {
		t.Fatal("operator must not view helper contact data")
	}
	if p.Allowed([]string{RoleOperator}, PermDispatchSend) {
		t.Fatal("operator must not dispatch")
	}
	if !p.Allowed([]string{RoleOperator}, PermIncidentsView) {
		t.Fatal("operator should view incidents")
	}
	if p.Allowed(nil, PermIncidentsView) {
		t.Fatal("no roles means no access")
	}
	if p.Allowed([]string{"ghost"}, PermIncidentsView) {
		t.Fatal("unknown role means no access")
	}
}

func TestCanModifyIncident(t *testing.T) {
	p := NewDefaultPolicy()
	owner := Actor{ID: 7, Roles: []string{RoleOperator}}
	if !p.CanModifyIncident(owner, 7) {
		t.Fatal("reporter should modify own incident")
	}
	if p.CanModifyIncident(owner, 8) {
		t.Fatal("operator must not modify another reporter's incident")
	}
	admin := Actor{ID: 1, Roles: []string{RoleAdmin}}
	if !p.CanModifyIncident(admin, 8) {
		t.Fatal("admin should modify any incident")
	}
}

func TestServiceActorIsElevated(t *testing.T) {
	p := NewDefaultPolicy()
	if !p.Allowed(ServiceActor.Roles, PermIncidentsManage) {
		t.Fatal("service identity needs manage capability")
	}
}
