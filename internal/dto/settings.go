package dto

// ── 运行时设置模块 DTO ──

// DayHoursDTO 单日开放时间
type DayHoursDTO struct {
	Open  string `json:"open"  binding:"required,datetime=15:04"`
	Close string `json:"close" binding:"required,datetime=15:04"`
}

// OpeningHoursDTO 每周开放时间（固定形状，逐日命名字段）
type OpeningHoursDTO struct {
	Mon DayHoursDTO `json:"mon"`
	Tue DayHoursDTO `json:"tue"`
	Wed DayHoursDTO `json:"wed"`
	Thu DayHoursDTO `json:"thu"`
	Fri DayHoursDTO `json:"fri"`
	Sat DayHoursDTO `json:"sat"`
	Sun DayHoursDTO `json:"sun"`
}

// BlockDTO 预定义时段块
type BlockDTO struct {
	Start string `json:"start" binding:"required,datetime=15:04"`
	End   string `json:"end"   binding:"required,datetime=15:04"`
}

// WeekBlocksDTO 每周预定义块
type WeekBlocksDTO struct {
	Mon []BlockDTO `json:"mon"`
	Tue []BlockDTO `json:"tue"`
	Wed []BlockDTO `json:"wed"`
	Thu []BlockDTO `json:"thu"`
	Fri []BlockDTO `json:"fri"`
	Sat []BlockDTO `json:"sat"`
	Sun []BlockDTO `json:"sun"`
}

// RecipientsDTO 通知收件人
type RecipientsDTO struct {
	To  []string `json:"to"`
	Cc  []string `json:"cc"`
	Bcc []string `json:"bcc"`
}

// SettingsResponse 全量设置响应（默认值与持久化覆盖合并后的结果）
type SettingsResponse struct {
	Timezone                     string          `json:"timezone"`
	OpeningHours                 OpeningHoursDTO `json:"opening_hours"`
	BookingMode                  string          `json:"booking_mode"`
	SlotDurationMinutes          int             `json:"slot_duration_minutes"`
	SlotStepMinutes              int             `json:"slot_step_minutes"`
	MinDurationMinutes           int             `json:"min_duration_minutes"`
	MaxDurationMinutes           int             `json:"max_duration_minutes"`
	LeadTimeMinHours             int             `json:"lead_time_min_hours"`
	LeadTimeMaxDays              int             `json:"lead_time_max_days"`
	MaxActiveReservationsPerUser int             `json:"max_active_reservations_per_user"`
	WeeklyQuotaPerGroup          int             `json:"weekly_quota_per_group"`
	PendingExpirationHours       int             `json:"pending_expiration_hours"`
	CancelCutoffHours            int             `json:"cancel_cutoff_hours"`
	NotifyAdminEmails            RecipientsDTO   `json:"notify_admin_emails"`
	NotifyUserOnDecision         bool            `json:"notify_user_on_decision"`
	PDFTemplate                  string          `json:"pdf_template"`
	PredefinedBlocks             WeekBlocksDTO   `json:"predefined_blocks"`
	BlockingStatuses             string          `json:"blocking_statuses"`
}

// UpdateSettingsRequest 更新设置请求（部分更新，nil 字段不变）
type UpdateSettingsRequest struct {
	Timezone                     *string          `json:"timezone"`
	OpeningHours                 *OpeningHoursDTO `json:"opening_hours"`
	BookingMode                  *string          `json:"booking_mode" binding:"omitempty,oneof=fixed_duration variable_duration predefined_blocks"`
	SlotDurationMinutes          *int             `json:"slot_duration_minutes" binding:"omitempty,min=1,max=1440"`
	SlotStepMinutes              *int             `json:"slot_step_minutes"     binding:"omitempty,min=1,max=1440"`
	MinDurationMinutes           *int             `json:"min_duration_minutes"  binding:"omitempty,min=1,max=1440"`
	MaxDurationMinutes           *int             `json:"max_duration_minutes"  binding:"omitempty,min=1,max=1440"`
	LeadTimeMinHours             *int             `json:"lead_time_min_hours"   binding:"omitempty,min=0,max=720"`
	LeadTimeMaxDays              *int             `json:"lead_time_max_days"    binding:"omitempty,min=1,max=365"`
	MaxActiveReservationsPerUser *int             `json:"max_active_reservations_per_user" binding:"omitempty,min=0"`
	WeeklyQuotaPerGroup          *int             `json:"weekly_quota_per_group"           binding:"omitempty,min=0"`
	PendingExpirationHours       *int             `json:"pending_expiration_hours"         binding:"omitempty,min=1"`
	CancelCutoffHours            *int             `json:"cancel_cutoff_hours"              binding:"omitempty,min=0"`
	NotifyAdminEmails            *RecipientsDTO   `json:"notify_admin_emails"`
	NotifyUserOnDecision         *bool            `json:"notify_user_on_decision"`
	PDFTemplate                  *string          `json:"pdf_template"`
	PredefinedBlocks             *WeekBlocksDTO   `json:"predefined_blocks"`
	BlockingStatuses             *string          `json:"blocking_statuses" binding:"omitempty,oneof=pending_approved approved_only"`
}
