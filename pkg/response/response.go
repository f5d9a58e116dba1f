package response

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "github.com/jazz-17/reservation-system/pkg/errors"
)

// Response 统一响应结构（与 API 文档约定一致）
type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Field   string      `json:"field,omitempty"`
	Data    interface{} `json:"data,omitempty"`
	Details string      `json:"details,omitempty"`
}

// Pagination 分页元数据
type Pagination struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
}

// PageData 分页响应数据
type PageData struct {
	List       interface{} `json:"list"`
	Pagination Pagination  `json:"pagination"`
}

// ── 成功响应 ──

// OK 200 成功响应
func OK(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Code:    0,
		Message: "success",
		Data:    data,
	})
}

// Created 201 创建成功
func Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, Response{
		Code:    0,
		Message: "success",
		Data:    data,
	})
}

// OKPage 200 分页成功
func OKPage(c *gin.Context, list interface{}, total int64, page, pageSize int) {
	totalPages := int(total) / pageSize
	if int(total)%pageSize > 0 {
		totalPages++
	}
	c.JSON(http.StatusOK, Response{
		Code:    0,
		Message: "success",
		Data: PageData{
			List: list,
			Pagination: Pagination{
				Page:       page,
				PageSize:   pageSize,
				Total:      total,
				TotalPages: totalPages,
			},
		},
	})
}

// ── 错误响应 ──

// Error 通用错误响应
func Error(c *gin.Context, httpStatus int, code int, message string) {
	c.JSON(httpStatus, Response{
		Code:    code,
		Message: message,
	})
}

// ValidationFailed 422 业务校验失败
// 将校验错误的类别映射为业务错误码区间 20xxx，并附带违规字段名。
func ValidationFailed(c *gin.Context, ve *apperrors.ValidationError) {
	c.JSON(http.StatusUnprocessableEntity, Response{
		Code:    validationCode(ve.Code),
		Message: ve.Message,
		Field:   ve.Field,
	})
}

func validationCode(code apperrors.Code) int {
	switch code {
	case apperrors.CodeInvalidInterval:
		return 20001
	case apperrors.CodeLeadTimeViolation:
		return 20002
	case apperrors.CodeOutsideOpeningHours:
		return 20003
	case apperrors.CodeInvalidModeShape:
		return 20004
	case apperrors.CodeBlackoutConflict:
		return 20005
	case apperrors.CodeActiveLimitExceeded:
		return 20006
	case apperrors.CodeWeeklyQuotaExceeded:
		return 20007
	case apperrors.CodeSlotConflict:
		return 20008
	case apperrors.CodeInvalidStateTransition:
		return 20009
	case apperrors.CodeNotPermitted:
		return 20010
	case apperrors.CodeCancellationWindowClosed:
		return 20011
	default:
		return 20000
	}
}

// ── 常见快捷方式 ──

// BadRequest 400
func BadRequest(c *gin.Context, code int, message string) {
	Error(c, http.StatusBadRequest, code, message)
}

// Unauthorized 401
func Unauthorized(c *gin.Context, code int, message string) {
	Error(c, http.StatusUnauthorized, code, message)
}

// Forbidden 403
func Forbidden(c *gin.Context, code int, message string) {
	Error(c, http.StatusForbidden, code, message)
}

// NotFound 404
func NotFound(c *gin.Context, code int, message string) {
	Error(c, http.StatusNotFound, code, message)
}

// InternalError 500
func InternalError(c *gin.Context) {
	Error(c, http.StatusInternalServerError, 50000, "服务器内部错误")
}
