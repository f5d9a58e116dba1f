package model

import "time"

// Blackout 停用时段表 — 对应 blackouts
// 管理员声明的不可预约窗口（维护、节假日等），核心只读。
type Blackout struct {
	BlackoutID string    `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"blackout_id"`
	StartsAt   time.Time `gorm:"not null" json:"starts_at"` // UTC
	EndsAt     time.Time `gorm:"not null" json:"ends_at"`   // UTC
	Reason     *string   `gorm:"type:varchar(200)" json:"reason,omitempty"`
	CreatedBy  *string   `gorm:"type:uuid"         json:"created_by,omitempty"`
	BaseModel
}

// TableName 指定表名
func (Blackout) TableName() string { return "blackouts" }
