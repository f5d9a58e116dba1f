package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/jazz-17/reservation-system/internal/dto"
	"github.com/jazz-17/reservation-system/internal/service"
	apperrors "github.com/jazz-17/reservation-system/pkg/errors"
	"github.com/jazz-17/reservation-system/pkg/response"
)

// ReservationHandler 预约模块 HTTP 处理器（学生端）
type ReservationHandler struct {
	reservationSvc service.ReservationService
}

// NewReservationHandler 创建 ReservationHandler
func NewReservationHandler(reservationSvc service.ReservationService) *ReservationHandler {
	return &ReservationHandler{reservationSvc: reservationSvc}
}

// Create 提交预约
// POST /api/v1/reservations
func (h *ReservationHandler) Create(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	var req dto.CreateReservationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	result, err := h.reservationSvc.Create(c.Request.Context(), userID, &req)
	if err != nil {
		handleReservationError(c, err)
		return
	}

	response.Created(c, result)
}

// List 我的预约列表
// GET /api/v1/reservations
func (h *ReservationHandler) List(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	var req dto.ReservationListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	list, total, err := h.reservationSvc.ListMine(c.Request.Context(), userID, &req)
	if err != nil {
		response.InternalError(c)
		return
	}

	response.OKPage(c, list, total, req.Page, req.PageSize)
}

// Get 预约详情
// GET /api/v1/reservations/:id
func (h *ReservationHandler) Get(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	result, err := h.reservationSvc.GetByID(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		handleReservationError(c, err)
		return
	}

	response.OK(c, result)
}

// Cancel 取消预约
// POST /api/v1/reservations/:id/cancel
func (h *ReservationHandler) Cancel(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	var req dto.CancelReservationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	result, err := h.reservationSvc.Cancel(c.Request.Context(), userID, c.Param("id"), &req)
	if err != nil {
		handleReservationError(c, err)
		return
	}

	response.OK(c, result)
}

// handleReservationError 预约模块统一错误映射
func handleReservationError(c *gin.Context, err error) {
	if ve, ok := apperrors.AsValidation(err); ok {
		response.ValidationFailed(c, ve)
		return
	}
	if errors.Is(err, service.ErrReservationNotFound) {
		response.NotFound(c, 12001, "预约不存在")
		return
	}
	response.InternalError(c)
}
