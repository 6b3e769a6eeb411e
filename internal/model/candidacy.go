package model

import "time"

// Candidacy 候选登记表，对应 candidaturas
type Candidacy struct {
	CandidacyID string    `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"candidacy_id"`
	ElectionID  string    `gorm:"type:uuid;not null"                             json:"election_id"`
	UserID      string    `gorm:"type:uuid;not null"                             json:"user_id"`
	Proposal    string    `gorm:"type:text;not null;default:''"                  json:"proposal"`
	CreatedAt   time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"             json:"created_at"`
	CreatedBy   *string   `gorm:"type:uuid"                                      json:"created_by,omitempty"`

	// 关联
	User     *User     `gorm:"foreignKey:UserID;references:UserID"         json:"user,omitempty"`
	Election *Election `gorm:"foreignKey:ElectionID;references:ElectionID" json:"election,omitempty"`
}

// TableName 指定表名
func (Candidacy) TableName() string { return "candidaturas" }
