package model

import (
	"time"

	"gorm.io/datatypes"
)

// AuditEvent 审计事件表 — 对应 audit_events（只写不改，核心从不回读）
type AuditEvent struct {
	EventID     int64          `gorm:"primaryKey;autoIncrement"           json:"event_id"`
	EventType   string         `gorm:"type:varchar(100);not null;index"   json:"event_type"`
	ActorID     *string        `gorm:"type:uuid"                          json:"actor_id,omitempty"`
	SubjectType *string        `gorm:"type:varchar(50)"                   json:"subject_type,omitempty"`
	SubjectID   *string        `gorm:"type:varchar(100)"                  json:"subject_id,omitempty"`
	Metadata    datatypes.JSON `gorm:"type:jsonb"                         json:"metadata,omitempty"`
	CreatedAt   time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

// TableName 指定表名
func (AuditEvent) TableName() string { return "audit_events" }
