package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jazz-17/reservation-system/internal/dto"
	"github.com/jazz-17/reservation-system/internal/service"
	"github.com/jazz-17/reservation-system/pkg/response"
)

// AllowListHandler 注册白名单模块 HTTP 处理器（管理端）
type AllowListHandler struct {
	allowListSvc service.AllowListService
}

// NewAllowListHandler 创建 AllowListHandler
func NewAllowListHandler(allowListSvc service.AllowListService) *AllowListHandler {
	return &AllowListHandler{allowListSvc: allowListSvc}
}

// Create 录入白名单条目
// POST /api/v1/admin/allow-list
func (h *AllowListHandler) Create(c *gin.Context) {
	adminID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	var req dto.CreateAllowListEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	result, err := h.allowListSvc.Create(c.Request.Context(), adminID, &req)
	if err != nil {
		if errors.Is(err, service.ErrAllowListEntryExists) {
			response.Error(c, http.StatusConflict, 17001, "该邮箱已在白名单中")
			return
		}
		response.InternalError(c)
		return
	}

	response.Created(c, result)
}

// List 白名单列表
// GET /api/v1/admin/allow-list
func (h *AllowListHandler) List(c *gin.Context) {
	list, err := h.allowListSvc.List(c.Request.Context())
	if err != nil {
		response.InternalError(c)
		return
	}
	response.OK(c, list)
}

// Delete 删除白名单条目
// DELETE /api/v1/admin/allow-list/:id
func (h *AllowListHandler) Delete(c *gin.Context) {
	adminID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	if err := h.allowListSvc.Delete(c.Request.Context(), adminID, c.Param("id")); err != nil {
		response.InternalError(c)
		return
	}
	response.OK(c, nil)
}
