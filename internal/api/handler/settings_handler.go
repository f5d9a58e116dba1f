package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/jazz-17/reservation-system/internal/dto"
	"github.com/jazz-17/reservation-system/internal/service"
	"github.com/jazz-17/reservation-system/pkg/response"
)

// SettingsHandler 运行时设置模块 HTTP 处理器（管理端）
type SettingsHandler struct {
	settingsSvc service.SettingsService
}

// NewSettingsHandler 创建 SettingsHandler
func NewSettingsHandler(settingsSvc service.SettingsService) *SettingsHandler {
	return &SettingsHandler{settingsSvc: settingsSvc}
}

// Get 全量设置
// GET /api/v1/admin/settings
func (h *SettingsHandler) Get(c *gin.Context) {
	result, err := h.settingsSvc.All(c.Request.Context())
	if err != nil {
		response.InternalError(c)
		return
	}
	response.OK(c, result)
}

// Update 批量更新设置
// PUT /api/v1/admin/settings
func (h *SettingsHandler) Update(c *gin.Context) {
	adminID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	var req dto.UpdateSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	result, err := h.settingsSvc.SetMany(c.Request.Context(), &req, adminID)
	if err != nil {
		if errors.Is(err, service.ErrInvalidSetting) {
			response.BadRequest(c, 15001, err.Error())
			return
		}
		response.InternalError(c)
		return
	}

	response.OK(c, result)
}
