package model

import (
	"fmt"
	"time"
)

// ── 状态枚举 ──

// ReservationStatus 预约状态
type ReservationStatus string

const (
	StatusPending   ReservationStatus = "pending"
	StatusApproved  ReservationStatus = "approved"
	StatusRejected  ReservationStatus = "rejected"
	StatusCancelled ReservationStatus = "cancelled"
)

// BlockingPolicy 占用策略：哪些状态计入可用性与配额
// 作为运行时设置（blocking_statuses）暴露，而非写死在代码里。
type BlockingPolicy string

const (
	// PolicyPendingApproved 待审批与已批准均占用（保守默认）
	PolicyPendingApproved BlockingPolicy = "pending_approved"
	// PolicyApprovedOnly 仅已批准占用
	PolicyApprovedOnly BlockingPolicy = "approved_only"
)

// Blocks 判断该状态在给定策略下是否占用时段
func (s ReservationStatus) Blocks(policy BlockingPolicy) bool {
	switch s {
	case StatusApproved:
		return true
	case StatusPending:
		return policy == PolicyPendingApproved
	case StatusRejected, StatusCancelled:
		return false
	default:
		return false
	}
}

// BlockingStatuses 给定策略下占用时段的状态集合
func (p BlockingPolicy) BlockingStatuses() []ReservationStatus {
	if p == PolicyApprovedOnly {
		return []ReservationStatus{StatusApproved}
	}
	return []ReservationStatus{StatusPending, StatusApproved}
}

// IsTerminal 是否为终态（终态不可再转换）
func (s ReservationStatus) IsTerminal() bool {
	return s == StatusRejected || s == StatusCancelled
}

// ── 预约模式枚举 ──

// BookingMode 预约时长模式
type BookingMode string

const (
	ModeFixedDuration    BookingMode = "fixed_duration"
	ModeVariableDuration BookingMode = "variable_duration"
	ModePredefinedBlocks BookingMode = "predefined_blocks"
)

// Valid 是否为已知模式
func (m BookingMode) Valid() bool {
	switch m {
	case ModeFixedDuration, ModeVariableDuration, ModePredefinedBlocks:
		return true
	}
	return false
}

// ── 预约模型 ──

// Reservation 预约表 — 对应 reservations
// 仅由生命周期转换修改，从不物理删除。
type Reservation struct {
	ReservationID string            `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"reservation_id"`
	UserID        string            `gorm:"type:uuid;not null"                             json:"user_id"`
	Status        ReservationStatus `gorm:"type:varchar(20);not null;default:'pending'"    json:"status"`
	StartsAt      time.Time         `gorm:"not null"                                       json:"starts_at"` // UTC
	EndsAt        time.Time         `gorm:"not null"                                       json:"ends_at"`   // UTC

	// 配额分组快照（创建时从用户复制，此后不随用户变动）
	School   string `gorm:"type:varchar(100);not null;default:''" json:"school"`
	BaseYear *int   `gorm:"type:smallint"                         json:"base_year,omitempty"`

	// 审批元数据
	DecidedBy      *string    `gorm:"type:uuid" json:"decided_by,omitempty"`
	DecidedAt      *time.Time `json:"decided_at,omitempty"`
	DecisionReason *string    `gorm:"type:text" json:"decision_reason,omitempty"`

	// 取消元数据
	CancelledBy        *string    `gorm:"type:uuid" json:"cancelled_by,omitempty"`
	CancelledAt        *time.Time `json:"cancelled_at,omitempty"`
	CancellationReason *string    `gorm:"type:text" json:"cancellation_reason,omitempty"`

	BaseModel

	// 关联
	User *User `gorm:"foreignKey:UserID;references:UserID" json:"user,omitempty"`
}

// TableName 指定表名
func (Reservation) TableName() string { return "reservations" }

// BaseLabel 年级展示标签，如 B24
func (r *Reservation) BaseLabel() string {
	if r.BaseYear == nil {
		return ""
	}
	return fmt.Sprintf("B%02d", *r.BaseYear%100)
}
