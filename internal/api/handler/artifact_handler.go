package handler

import (
	"errors"
	"path/filepath"

	"github.com/gin-gonic/gin"

	"github.com/jazz-17/reservation-system/internal/service"
	"github.com/jazz-17/reservation-system/pkg/response"
)

// ArtifactHandler 预约产物模块 HTTP 处理器（管理端）
type ArtifactHandler struct {
	artifactSvc service.ArtifactService
	storageRoot string
}

// NewArtifactHandler 创建 ArtifactHandler
func NewArtifactHandler(artifactSvc service.ArtifactService, storageRoot string) *ArtifactHandler {
	return &ArtifactHandler{artifactSvc: artifactSvc, storageRoot: storageRoot}
}

// ListByReservation 某预约的产物列表
// GET /api/v1/admin/reservations/:id/artifacts
func (h *ArtifactHandler) ListByReservation(c *gin.Context) {
	list, err := h.artifactSvc.ListByReservation(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.InternalError(c)
		return
	}
	response.OK(c, list)
}

// Retry 重试失败产物
// POST /api/v1/admin/artifacts/:id/retry
func (h *ArtifactHandler) Retry(c *gin.Context) {
	result, err := h.artifactSvc.Retry(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, service.ErrArtifactNotFound) {
			response.NotFound(c, 16001, "产物不存在")
			return
		}
		response.InternalError(c)
		return
	}
	response.OK(c, result)
}

// DownloadPDF 下载预约确认单
// GET /api/v1/admin/reservations/:id/pdf
func (h *ArtifactHandler) DownloadPDF(c *gin.Context) {
	relPath, err := h.artifactSvc.PDFPath(c.Request.Context(), c.Param("id"))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrArtifactNotFound):
			response.NotFound(c, 16001, "产物不存在")
		case errors.Is(err, service.ErrArtifactNotReady):
			response.NotFound(c, 16002, "PDF 尚未生成")
		default:
			response.InternalError(c)
		}
		return
	}

	c.FileAttachment(filepath.Join(h.storageRoot, relPath), "constancia_reserva.pdf")
}
