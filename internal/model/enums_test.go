package model

import "testing"

func TestValidRole(t *testing.T) {
	for _, r := range []string{RoleAdmin, RoleAdministrativo, RoleCandidato, RoleVotante} {
		if !ValidRole(r) {
			t.Errorf("%s 应为合法角色", r)
		}
	}
	for _, r := range []string{"", "admin", "member"} {
		if ValidRole(r) {
			t.Errorf("%q 不应为合法角色", r)
		}
	}
}

func TestValidScopeAndStatus(t *testing.T) {
	if !ValidScope(ScopeComite) || ValidScope("universidad") {
		t.Error("ValidScope 判断错误")
	}
	if !ValidStatus(StatusProgramada) || ValidStatus("cerrada") {
		t.Error("ValidStatus 判断错误")
	}
	if !ValidGenero(GeneroOtro) || ValidGenero("x") {
		t.Error("ValidGenero 判断错误")
	}
}
