package model

import (
	"time"

	"gorm.io/datatypes"
)

// ── 产物枚举 ──

// ArtifactKind 产物种类
type ArtifactKind string

const (
	ArtifactPDF        ArtifactKind = "pdf"
	ArtifactEmailAdmin ArtifactKind = "email_admin"
	ArtifactEmailUser  ArtifactKind = "email_user"
)

// ArtifactStatus 产物投递状态
type ArtifactStatus string

const (
	ArtifactPending ArtifactStatus = "pending"
	ArtifactSent    ArtifactStatus = "sent"
	ArtifactFailed  ArtifactStatus = "failed"
)

// ReservationArtifact 预约产物表 — 对应 reservation_artifacts
// 每个 (reservation, kind) 至多一行，由唯一约束保证；重复请求幂等复位同一行。
type ReservationArtifact struct {
	ArtifactID    string         `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"artifact_id"`
	ReservationID string         `gorm:"type:uuid;not null;uniqueIndex:uq_reservation_artifacts_kind" json:"reservation_id"`
	Kind          ArtifactKind   `gorm:"type:varchar(20);not null;uniqueIndex:uq_reservation_artifacts_kind" json:"kind"`
	Status        ArtifactStatus `gorm:"type:varchar(20);not null;default:'pending'" json:"status"`
	Attempts      int            `gorm:"not null;default:0" json:"attempts"`
	LastAttemptAt *time.Time     `json:"last_attempt_at,omitempty"`
	LastError     *string        `gorm:"type:text" json:"last_error,omitempty"`
	Payload       datatypes.JSON `gorm:"type:jsonb" json:"payload,omitempty"`
	BaseModel

	// 关联
	Reservation *Reservation `gorm:"foreignKey:ReservationID;references:ReservationID" json:"reservation,omitempty"`
}

// TableName 指定表名
func (ReservationArtifact) TableName() string { return "reservation_artifacts" }

// ArtifactPayload 产物负载快照
// 创建产物时写入，Worker 执行时读取；PDF 成功后回填 Path。
type ArtifactPayload struct {
	Event    string   `json:"event,omitempty"` // approved | rejected | cancelled | expired
	To       []string `json:"to,omitempty"`
	Cc       []string `json:"cc,omitempty"`
	Bcc      []string `json:"bcc,omitempty"`
	Template string   `json:"template,omitempty"`
	Path     string   `json:"path,omitempty"` // 生成文件的存储位置
}
