package dto

// ── 预约模块 DTO ──

// CreateReservationRequest 提交预约请求
// 时间为本地时区的 RFC3339 或 "2006-01-02 15:04" 字符串；
// fixed_duration 模式下 ends_at 可省略，由配置的固定时长推算。
type CreateReservationRequest struct {
	StartsAt string  `json:"starts_at" binding:"required"`
	EndsAt   *string `json:"ends_at"`
}

// CancelReservationRequest 取消预约请求
type CancelReservationRequest struct {
	Reason *string `json:"reason" binding:"omitempty,max=500"`
}

// DecideReservationRequest 审批（批准/拒绝）请求
type DecideReservationRequest struct {
	Reason *string `json:"reason" binding:"omitempty,max=500"`
}

// ReservationListRequest 预约列表查询
type ReservationListRequest struct {
	Status   string `form:"status"    binding:"omitempty,oneof=pending approved rejected cancelled"`
	From     string `form:"from"`
	To       string `form:"to"`
	Page     int    `form:"page,default=1"      binding:"omitempty,min=1"`
	PageSize int    `form:"page_size,default=20" binding:"omitempty,min=1,max=100"`
}

// ReservationResponse 预约详情
type ReservationResponse struct {
	ID                 string        `json:"id"`
	Status             string        `json:"status"`
	StartsAt           string        `json:"starts_at"`
	EndsAt             string        `json:"ends_at"`
	School             string        `json:"school,omitempty"`
	BaseLabel          string        `json:"base_label,omitempty"`
	User               *UserResponse `json:"user,omitempty"`
	DecidedBy          *string       `json:"decided_by,omitempty"`
	DecidedAt          *string       `json:"decided_at,omitempty"`
	DecisionReason     *string       `json:"decision_reason,omitempty"`
	CancelledBy        *string       `json:"cancelled_by,omitempty"`
	CancelledAt        *string       `json:"cancelled_at,omitempty"`
	CancellationReason *string       `json:"cancellation_reason,omitempty"`
	CreatedAt          string        `json:"created_at"`
}

// ExpireSweepResponse 过期扫描结果
type ExpireSweepResponse struct {
	Expired int `json:"expired"`
}
