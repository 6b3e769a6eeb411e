package dto

// ── 用户资料 DTO ──

// UpsertProfileRequest 创建或更新本人资料
type UpsertProfileRequest struct {
	Nombres   string `json:"nombres"   binding:"required,max=100"`
	Apellidos string `json:"apellidos" binding:"required,max=100"`
	Edad      int    `json:"edad"      binding:"required,min=1,max=120"`
	Genero    string `json:"genero"    binding:"required,oneof=masculino femenino otro"`
}

// ProfileResponse 用户资料响应
type ProfileResponse struct {
	UserID    string `json:"user_id"`
	Username  string `json:"username"`
	Role      string `json:"role"`
	Nombres   string `json:"nombres"`
	Apellidos string `json:"apellidos"`
	Edad      int    `json:"edad"`
	Genero    string `json:"genero"`
	UpdatedAt string `json:"updated_at"`
}
