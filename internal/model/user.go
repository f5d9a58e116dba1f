package model

import "time"

// User 用户表 — 对应 users
type User struct {
	UserID       string `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"user_id"`
	Name         string `gorm:"type:varchar(100);not null"                     json:"name"`
	Email        string `gorm:"type:varchar(255);not null;uniqueIndex"         json:"email"`
	PasswordHash string `gorm:"type:varchar(255);not null"                     json:"-"`
	Role         string `gorm:"type:varchar(20);not null;default:'student'"    json:"role"` // student | admin

	// 配额分组：专业学院 + 年级（可为空，空分组不参与周配额统计）
	School   string `gorm:"type:varchar(100);not null;default:''" json:"school"`
	BaseYear *int   `gorm:"type:smallint"                         json:"base_year,omitempty"`

	BaseModel
}

// TableName 指定表名
func (User) TableName() string { return "users" }

// IsAdmin 是否为管理员
func (u *User) IsAdmin() bool { return u.Role == "admin" }

// HasGroup 是否有配额分组
func (u *User) HasGroup() bool { return u.School != "" && u.BaseYear != nil }

// AllowListEntry 注册白名单表 — 对应 allow_list_entries
// 仅白名单中的邮箱允许注册；录入时可附带分组信息
type AllowListEntry struct {
	EntryID   string    `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"entry_id"`
	Email     string    `gorm:"type:varchar(255);not null;uniqueIndex"         json:"email"`
	Name      string    `gorm:"type:varchar(100);not null;default:''"          json:"name"`
	School    string    `gorm:"type:varchar(100);not null;default:''"          json:"school"`
	BaseYear  *int      `gorm:"type:smallint"                                  json:"base_year,omitempty"`
	CreatedBy *string   `gorm:"type:uuid"                                      json:"created_by,omitempty"`
	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"             json:"created_at"`
}

// TableName 指定表名
func (AllowListEntry) TableName() string { return "allow_list_entries" }
