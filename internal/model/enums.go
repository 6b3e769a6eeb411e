package model

// 角色（封闭集合）
const (
	RoleAdmin          = "ADMIN"
	RoleAdministrativo = "ADMINISTRATIVO"
	RoleCandidato      = "CANDIDATO"
	RoleVotante        = "VOTANTE"
)

// 选举代表范围
const (
	ScopeFacultad = "facultad"
	ScopeSemestre = "semestre"
	ScopeComite   = "comite"
)

// 选举状态，由管理员手动设置，不随时间自动变化
const (
	StatusActiva     = "activa"
	StatusFinalizada = "finalizada"
	StatusProgramada = "programada"
)

// 性别
const (
	GeneroMasculino = "masculino"
	GeneroFemenino  = "femenino"
	GeneroOtro      = "otro"
)

// ValidRole 判断角色是否合法
func ValidRole(role string) bool {
	switch role {
	case RoleAdmin, RoleAdministrativo, RoleCandidato, RoleVotante:
		return true
	}
	return false
}

// ValidScope 判断选举范围是否合法
func ValidScope(scope string) bool {
	switch scope {
	case ScopeFacultad, ScopeSemestre, ScopeComite:
		return true
	}
	return false
}

// ValidStatus 判断选举状态是否合法
func ValidStatus(status string) bool {
	switch status {
	case StatusActiva, StatusFinalizada, StatusProgramada:
		return true
	}
	return false
}

// ValidGenero 判断性别取值是否合法
func ValidGenero(genero string) bool {
	switch genero {
	case GeneroMasculino, GeneroFemenino, GeneroOtro:
		return true
	}
	return false
}
