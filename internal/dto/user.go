package dto

// ── 用户模块 DTO ──

// CreateUserRequest 管理员创建用户请求
type CreateUserRequest struct {
	Identificacion string `json:"identificacion" binding:"required,max=30"`
	Username       string `json:"username"       binding:"required,min=3,max=50"`
	Password       string `json:"password"       binding:"required,min=6,max=72"`
	Role           string `json:"role"           binding:"required,oneof=ADMIN ADMINISTRATIVO CANDIDATO VOTANTE"`
}

// UserListRequest 用户列表查询参数
type UserListRequest struct {
	PaginationRequest
	Role    string `form:"role"    binding:"omitempty,oneof=ADMIN ADMINISTRATIVO CANDIDATO VOTANTE"`
	Keyword string `form:"keyword" binding:"omitempty,max=50"`
}

// UpdateUserRequest 更新用户信息请求
type UpdateUserRequest struct {
	Username *string `json:"username" binding:"omitempty,min=3,max=50"`
	Role     *string `json:"role"     binding:"omitempty,oneof=ADMIN ADMINISTRATIVO CANDIDATO VOTANTE"`
}

// AssignRoleRequest 分配角色请求
type AssignRoleRequest struct {
	Role string `json:"role" binding:"required,oneof=ADMIN ADMINISTRATIVO CANDIDATO VOTANTE"`
}

// ImportUserResponse 批量导入投票人响应
type ImportUserResponse struct {
	Total   int               `json:"total"`
	Success int               `json:"success"`
	Failed  int               `json:"failed"`
	Errors  []ImportUserError `json:"errors,omitempty"`
}

// ImportUserError 导入错误详情
type ImportUserError struct {
	Row    int    `json:"row"`
	Reason string `json:"reason"`
}
