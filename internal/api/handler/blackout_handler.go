package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/jazz-17/reservation-system/internal/dto"
	"github.com/jazz-17/reservation-system/internal/service"
	apperrors "github.com/jazz-17/reservation-system/pkg/errors"
	"github.com/jazz-17/reservation-system/pkg/response"
)

// BlackoutHandler 停用时段模块 HTTP 处理器（管理端）
type BlackoutHandler struct {
	blackoutSvc service.BlackoutService
}

// NewBlackoutHandler 创建 BlackoutHandler
func NewBlackoutHandler(blackoutSvc service.BlackoutService) *BlackoutHandler {
	return &BlackoutHandler{blackoutSvc: blackoutSvc}
}

// Create 创建停用时段
// POST /api/v1/admin/blackouts
func (h *BlackoutHandler) Create(c *gin.Context) {
	adminID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	var req dto.CreateBlackoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	result, err := h.blackoutSvc.Create(c.Request.Context(), adminID, &req)
	if err != nil {
		if ve, ok := apperrors.AsValidation(err); ok {
			response.ValidationFailed(c, ve)
			return
		}
		response.InternalError(c)
		return
	}

	response.Created(c, result)
}

// List 停用时段列表
// GET /api/v1/admin/blackouts
func (h *BlackoutHandler) List(c *gin.Context) {
	list, err := h.blackoutSvc.List(c.Request.Context())
	if err != nil {
		response.InternalError(c)
		return
	}
	response.OK(c, list)
}

// Delete 删除停用时段
// DELETE /api/v1/admin/blackouts/:id
func (h *BlackoutHandler) Delete(c *gin.Context) {
	adminID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	if err := h.blackoutSvc.Delete(c.Request.Context(), adminID, c.Param("id")); err != nil {
		if errors.Is(err, service.ErrBlackoutNotFound) {
			response.NotFound(c, 14001, "停用时段不存在")
			return
		}
		response.InternalError(c)
		return
	}

	response.OK(c, nil)
}
