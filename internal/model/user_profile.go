package model

import "time"

// UserProfile 用户资料表，对应 userprofiles，每个用户至多一份
type UserProfile struct {
	ProfileID string    `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"profile_id"`
	UserID    string    `gorm:"type:uuid;not null;uniqueIndex"                 json:"user_id"`
	Nombres   string    `gorm:"type:varchar(100);not null"                     json:"nombres"`
	Apellidos string    `gorm:"type:varchar(100);not null"                     json:"apellidos"`
	Edad      int       `gorm:"not null"                                       json:"edad"`
	Genero    string    `gorm:"type:varchar(20);not null"                      json:"genero"`
	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"             json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"             json:"updated_at"`
}

// TableName 指定表名
func (UserProfile) TableName() string { return "userprofiles" }
