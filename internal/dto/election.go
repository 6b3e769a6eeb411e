package dto

// ── 选举模块 DTO ──

// CreateElectionRequest 创建选举请求
// 时间使用 RFC3339 格式，如 "2026-03-01T08:00:00-05:00"
type CreateElectionRequest struct {
	Name        string `json:"name"        binding:"required,max=200"`
	Description string `json:"description" binding:"required"`
	Scope       string `json:"scope"       binding:"required,oneof=facultad semestre comite"`
	StartAt     string `json:"start_at"    binding:"required"`
	EndAt       string `json:"end_at"      binding:"required"`
	Status      string `json:"status"      binding:"required,oneof=activa finalizada programada"`
}

// UpdateElectionRequest 更新选举请求（一次写入）
type UpdateElectionRequest struct {
	Name        *string `json:"name"        binding:"omitempty,min=1,max=200"`
	Description *string `json:"description"`
	Scope       *string `json:"scope"       binding:"omitempty,oneof=facultad semestre comite"`
	StartAt     *string `json:"start_at"`
	EndAt       *string `json:"end_at"`
	Status      *string `json:"status"      binding:"omitempty,oneof=activa finalizada programada"`
}

// ElectionListRequest 选举列表过滤条件
type ElectionListRequest struct {
	Status string `form:"status" binding:"omitempty,oneof=activa finalizada programada"`
	Scope  string `form:"scope"  binding:"omitempty,oneof=facultad semestre comite"`
}

// ElectionResponse 选举信息响应
type ElectionResponse struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Scope       string `json:"scope"`
	StartAt     string `json:"start_at"`
	EndAt       string `json:"end_at"`
	Status      string `json:"status"`
	Voted       *bool  `json:"voted,omitempty"` // 仅投票人视图返回
	CreatedAt   string `json:"created_at"`
	UpdatedAt   string `json:"updated_at"`
}

// ── 候选登记 DTO ──

// CreateCandidacyRequest 登记候选请求
type CreateCandidacyRequest struct {
	UserID   string `json:"user_id"  binding:"required,uuid"`
	Proposal string `json:"proposal" binding:"required"`
}

// CandidacyResponse 候选登记响应
type CandidacyResponse struct {
	ID             string `json:"id"`
	ElectionID     string `json:"election_id"`
	UserID         string `json:"user_id"`
	Username       string `json:"username,omitempty"`
	Identificacion string `json:"identificacion,omitempty"`
	Proposal       string `json:"proposal"`
	CreatedAt      string `json:"created_at"`
}
