package handler

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jazz-17/reservation-system/internal/dto"
	"github.com/jazz-17/reservation-system/internal/service"
	"github.com/jazz-17/reservation-system/pkg/response"
)

// AdminReservationHandler 预约审批模块 HTTP 处理器（管理端）
type AdminReservationHandler struct {
	reservationSvc service.ReservationService
}

// NewAdminReservationHandler 创建 AdminReservationHandler
func NewAdminReservationHandler(reservationSvc service.ReservationService) *AdminReservationHandler {
	return &AdminReservationHandler{reservationSvc: reservationSvc}
}

// List 全量预约列表（可按状态/时间窗筛选）
// GET /api/v1/admin/reservations
func (h *AdminReservationHandler) List(c *gin.Context) {
	var req dto.ReservationListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	list, total, err := h.reservationSvc.ListAll(c.Request.Context(), &req)
	if err != nil {
		response.InternalError(c)
		return
	}

	response.OKPage(c, list, total, req.Page, req.PageSize)
}

// Approve 批准预约
// POST /api/v1/admin/reservations/:id/approve
func (h *AdminReservationHandler) Approve(c *gin.Context) {
	adminID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	var req dto.DecideReservationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	result, err := h.reservationSvc.Approve(c.Request.Context(), adminID, c.Param("id"), &req)
	if err != nil {
		handleReservationError(c, err)
		return
	}

	response.OK(c, result)
}

// Reject 拒绝预约
// POST /api/v1/admin/reservations/:id/reject
func (h *AdminReservationHandler) Reject(c *gin.Context) {
	adminID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	var req dto.DecideReservationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	result, err := h.reservationSvc.Reject(c.Request.Context(), adminID, c.Param("id"), &req)
	if err != nil {
		handleReservationError(c, err)
		return
	}

	response.OK(c, result)
}

// Cancel 管理员取消预约（不受取消窗口限制）
// POST /api/v1/admin/reservations/:id/cancel
func (h *AdminReservationHandler) Cancel(c *gin.Context) {
	adminID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	var req dto.CancelReservationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	result, err := h.reservationSvc.Cancel(c.Request.Context(), adminID, c.Param("id"), &req)
	if err != nil {
		handleReservationError(c, err)
		return
	}

	response.OK(c, result)
}

// ExpireSweep 手动触发过期扫描
// POST /api/v1/admin/reservations/expire-sweep
func (h *AdminReservationHandler) ExpireSweep(c *gin.Context) {
	expired, err := h.reservationSvc.ExpirePending(c.Request.Context(), time.Now())
	if err != nil {
		response.InternalError(c)
		return
	}

	response.OK(c, dto.ExpireSweepResponse{Expired: expired})
}
