package dto

// ── 投票模块 DTO ──

// CastVoteRequest 投票请求
type CastVoteRequest struct {
	ElectionID  string `json:"election_id"  binding:"required,uuid"`
	CandidacyID string `json:"candidacy_id" binding:"required,uuid"`
}

// VoteResponse 投票成功响应
type VoteResponse struct {
	ID          string `json:"id"`
	ElectionID  string `json:"election_id"`
	CandidacyID string `json:"candidacy_id"`
	CreatedAt   string `json:"created_at"`
}

// VoteHistoryItem 本人投票记录
type VoteHistoryItem struct {
	VoteID              string `json:"vote_id"`
	ElectionID          string `json:"election_id"`
	ElectionName        string `json:"election_name"`
	ElectionDescription string `json:"election_description"`
	CandidacyID         string `json:"candidacy_id"`
	CandidateUsername   string `json:"candidate_username,omitempty"`
	Proposal            string `json:"proposal"`
	VotedAt             string `json:"voted_at"`
}

// ── 计票结果 DTO ──

// TallyEntry 单个候选的计票结果
// Percentage 在总票数为 0 时为 null
type TallyEntry struct {
	CandidacyID string   `json:"candidacy_id"`
	UserID      string   `json:"user_id"`
	Username    string   `json:"username,omitempty"`
	Proposal    string   `json:"proposal"`
	Votes       int64    `json:"votes"`
	Percentage  *float64 `json:"percentage"`
}

// TallyResponse 选举计票结果
type TallyResponse struct {
	ElectionID string       `json:"election_id"`
	Name       string       `json:"name"`
	Scope      string       `json:"scope"`
	Status     string       `json:"status"`
	TotalVotes int64        `json:"total_votes"`
	Candidates []TallyEntry `json:"candidates"`
	Winner     *TallyEntry  `json:"winner"`
	Tied       bool         `json:"tied"`
	TieBreak   string       `json:"tie_break"`
}
