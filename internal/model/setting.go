package model

import (
	"time"

	"gorm.io/datatypes"
)

// Setting 运行时设置表 — 对应 settings（键值覆盖，默认值在代码中）
type Setting struct {
	Key       string         `gorm:"type:varchar(100);primaryKey" json:"key"`
	Value     datatypes.JSON `gorm:"type:jsonb;not null"          json:"value"`
	UpdatedBy *string        `gorm:"type:uuid"                    json:"updated_by,omitempty"`
	UpdatedAt time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName 指定表名
func (Setting) TableName() string { return "settings" }
