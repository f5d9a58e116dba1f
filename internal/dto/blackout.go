package dto

// ── 停用时段模块 DTO ──

// CreateBlackoutRequest 创建停用时段请求（UTC，RFC3339）
type CreateBlackoutRequest struct {
	StartsAt string  `json:"starts_at" binding:"required"`
	EndsAt   string  `json:"ends_at"   binding:"required"`
	Reason   *string `json:"reason"    binding:"omitempty,max=200"`
}

// BlackoutResponse 停用时段详情
type BlackoutResponse struct {
	ID        string  `json:"id"`
	StartsAt  string  `json:"starts_at"`
	EndsAt    string  `json:"ends_at"`
	Reason    *string `json:"reason,omitempty"`
	CreatedBy *string `json:"created_by,omitempty"`
	CreatedAt string  `json:"created_at"`
}
