package model

import "time"

// Vote 选票表，对应 votos
// 创建后不可修改或删除；(user_id, election_id) 由唯一约束保证至多一票
type Vote struct {
	VoteID      string    `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"vote_id"`
	UserID      string    `gorm:"type:uuid;not null"                             json:"user_id"`
	ElectionID  string    `gorm:"type:uuid;not null"                             json:"election_id"`
	CandidacyID string    `gorm:"type:uuid;not null"                             json:"candidacy_id"`
	CreatedAt   time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"             json:"created_at"`

	// 关联
	Election  *Election  `gorm:"foreignKey:ElectionID;references:ElectionID"   json:"election,omitempty"`
	Candidacy *Candidacy `gorm:"foreignKey:CandidacyID;references:CandidacyID" json:"candidacy,omitempty"`
}

// TableName 指定表名
func (Vote) TableName() string { return "votos" }

// CandidacyCount 按候选聚合的票数
type CandidacyCount struct {
	CandidacyID string `gorm:"column:candidacy_id"`
	Votes       int64  `gorm:"column:votes"`
}
