package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/jazz-17/reservation-system/internal/dto"
	"github.com/jazz-17/reservation-system/internal/service"
	"github.com/jazz-17/reservation-system/pkg/response"
)

// AuditHandler 审计模块 HTTP 处理器（管理端）
type AuditHandler struct {
	auditSvc service.AuditService
}

// NewAuditHandler 创建 AuditHandler
func NewAuditHandler(auditSvc service.AuditService) *AuditHandler {
	return &AuditHandler{auditSvc: auditSvc}
}

// List 审计事件列表
// GET /api/v1/admin/audit-events?event_type=reservation.approved
func (h *AuditHandler) List(c *gin.Context) {
	var req dto.AuditListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	list, total, err := h.auditSvc.List(c.Request.Context(), &req)
	if err != nil {
		response.InternalError(c)
		return
	}

	response.OKPage(c, list, total, req.Page, req.PageSize)
}
