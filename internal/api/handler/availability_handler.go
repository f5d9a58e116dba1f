package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jazz-17/reservation-system/internal/dto"
	"github.com/jazz-17/reservation-system/internal/service"
	"github.com/jazz-17/reservation-system/pkg/response"
)

// AvailabilityHandler 可用性模块 HTTP 处理器（公开只读）
type AvailabilityHandler struct {
	availabilitySvc service.AvailabilityService
}

// NewAvailabilityHandler 创建 AvailabilityHandler
func NewAvailabilityHandler(availabilitySvc service.AvailabilityService) *AvailabilityHandler {
	return &AvailabilityHandler{availabilitySvc: availabilitySvc}
}

// Get 时段可用性
// GET /api/v1/availability?from=2026-03-01&to=2026-03-07
func (h *AvailabilityHandler) Get(c *gin.Context) {
	var req dto.AvailabilityRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	result, err := h.availabilitySvc.ForRange(c.Request.Context(), &req)
	if err != nil {
		response.BadRequest(c, 13001, err.Error())
		return
	}

	response.OK(c, result)
}

// Events 日历渲染事件
// GET /api/v1/calendar/events?from=...&to=...
func (h *AvailabilityHandler) Events(c *gin.Context) {
	var req dto.AvailabilityRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	events, err := h.availabilitySvc.EventsForRange(c.Request.Context(), req.From, req.To)
	if err != nil {
		response.BadRequest(c, 13001, err.Error())
		return
	}

	response.OK(c, events)
}

// ICS iCalendar 订阅导出
// GET /api/v1/calendar/ics?from=...&to=...
func (h *AvailabilityHandler) ICS(c *gin.Context) {
	var req dto.AvailabilityRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	ics, err := h.availabilitySvc.ICSForRange(c.Request.Context(), req.From, req.To)
	if err != nil {
		response.BadRequest(c, 13001, err.Error())
		return
	}

	c.Header("Content-Disposition", `attachment; filename="reservas.ics"`)
	c.Data(http.StatusOK, "text/calendar; charset=utf-8", []byte(ics))
}
