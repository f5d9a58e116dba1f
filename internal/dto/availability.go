package dto

// ── 可用性模块 DTO ──

// AvailabilityRequest 可用性查询（本地日期，含边界）
type AvailabilityRequest struct {
	From string `form:"from" binding:"required,datetime=2006-01-02"`
	To   string `form:"to"   binding:"required,datetime=2006-01-02"`
}

// IntervalDTO 一个占用区间（UTC，RFC3339）
type IntervalDTO struct {
	Start  string  `json:"start"`
	End    string  `json:"end"`
	Reason *string `json:"reason,omitempty"`
}

// SlotOption 固定时长/预定义块模式下的一个候选时段
// status: free | occupied | blocked
type SlotOption struct {
	Start  string `json:"start"`
	End    string `json:"end"`
	Status string `json:"status"`
}

// StartOption 可变时长模式下的一个候选起始时刻
type StartOption struct {
	Start  string `json:"start"`
	Status string `json:"status"`
}

// DayAvailability 单日可用性视图
type DayAvailability struct {
	Date       string        `json:"date"`
	Open       string        `json:"open"`
	Close      string        `json:"close"`
	Busy       []IntervalDTO `json:"busy"`
	Blackouts  []IntervalDTO `json:"blackouts"`
	Slots      []SlotOption  `json:"slots,omitempty"`       // fixed_duration
	Blocks     []SlotOption  `json:"blocks,omitempty"`      // predefined_blocks
	StartTimes []StartOption `json:"start_times,omitempty"` // variable_duration
}

// AvailabilityResponse 时段可用性响应
type AvailabilityResponse struct {
	Timezone            string            `json:"timezone"`
	BookingMode         string            `json:"booking_mode"`
	SlotDurationMinutes int               `json:"slot_duration_minutes"`
	SlotStepMinutes     int               `json:"slot_step_minutes"`
	MinDurationMinutes  int               `json:"min_duration_minutes"`
	MaxDurationMinutes  int               `json:"max_duration_minutes"`
	Days                []DayAvailability `json:"days"`
}

// CalendarEvent 日历渲染事件
// type: reservation | blackout
type CalendarEvent struct {
	Title   string `json:"title"`
	Start   string `json:"start"`
	End     string `json:"end"`
	Display string `json:"display,omitempty"`
	Type    string `json:"type"`
}
