package errors

import "errors"

// Code 校验失败类别
type Code string

const (
	CodeInvalidInterval          Code = "invalid_interval"
	CodeLeadTimeViolation        Code = "lead_time_violation"
	CodeOutsideOpeningHours      Code = "outside_opening_hours"
	CodeInvalidModeShape         Code = "invalid_mode_shape"
	CodeBlackoutConflict         Code = "blackout_conflict"
	CodeActiveLimitExceeded      Code = "active_limit_exceeded"
	CodeWeeklyQuotaExceeded      Code = "weekly_quota_exceeded"
	CodeSlotConflict             Code = "slot_conflict"
	CodeInvalidStateTransition   Code = "invalid_state_transition"
	CodeNotPermitted             Code = "not_permitted"
	CodeCancellationWindowClosed Code = "cancellation_window_closed"
)

// ValidationError 业务校验错误
// 携带违规字段名与面向用户的提示信息，由 Handler 层映射为 HTTP 响应。
// 校验器在第一条失败的检查处返回，不继续后续检查。
type ValidationError struct {
	Code    Code
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// NewValidation 构造校验错误
func NewValidation(code Code, field, message string) *ValidationError {
	return &ValidationError{Code: code, Field: field, Message: message}
}

// AsValidation 判断 err 是否为校验错误
func AsValidation(err error) (*ValidationError, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}
