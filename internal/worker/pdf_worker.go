package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	"gorm.io/datatypes"

	"github.com/jazz-17/reservation-system/internal/model"
	"github.com/jazz-17/reservation-system/internal/repository"
	"github.com/jazz-17/reservation-system/internal/service"
	"github.com/jazz-17/reservation-system/pkg/pdf"
)

// 错误信息截断长度，防止超长堆栈撑爆 last_error 列
const maxErrorLen = 2000

// PDFWorker 预约确认单 PDF 生成执行器
type PDFWorker struct {
	repo        *repository.Repository
	renderer    pdf.Renderer
	settings    service.SettingsService
	storageRoot string
	logger      *zap.Logger

	nowFn func() time.Time
}

// NewPDFWorker 创建 PDF 执行器
func NewPDFWorker(repo *repository.Repository, renderer pdf.Renderer, settings service.SettingsService,
	storageRoot string, logger *zap.Logger) *PDFWorker {
	return &PDFWorker{
		repo:        repo,
		renderer:    renderer,
		settings:    settings,
		storageRoot: storageRoot,
		logger:      logger,
		nowFn:       time.Now,
	}
}

// Process 渲染确认单并写入本地存储；成功后把相对路径回填进产物负载
func (w *PDFWorker) Process(ctx context.Context, artifactID string) error {
	artifact, err := w.repo.Artifact.GetByID(ctx, artifactID)
	if err != nil {
		return err
	}
	if artifact == nil {
		return fmt.Errorf("产物 %s 不存在", artifactID)
	}
	if artifact.Kind != model.ArtifactPDF {
		return fmt.Errorf("产物 %s 不是 PDF 种类", artifactID)
	}

	// 先登记本次尝试，渲染失败时尝试次数也要留痕
	now := w.nowFn().UTC()
	artifact.Attempts++
	artifact.LastAttemptAt = &now
	artifact.Status = model.ArtifactPending
	if err := w.repo.Artifact.Update(ctx, artifact); err != nil {
		return err
	}

	path, err := w.render(ctx, artifact)
	if err != nil {
		return w.markFailed(ctx, artifact, err)
	}

	var payload model.ArtifactPayload
	_ = json.Unmarshal(artifact.Payload, &payload)
	payload.Path = path
	raw, _ := json.Marshal(payload)

	artifact.Status = model.ArtifactSent
	artifact.LastError = nil
	artifact.Payload = datatypes.JSON(raw)
	if err := w.repo.Artifact.Update(ctx, artifact); err != nil {
		return err
	}

	w.logger.Info("确认单 PDF 已生成",
		zap.String("reservation_id", artifact.ReservationID),
		zap.String("path", path))
	return nil
}

func (w *PDFWorker) render(ctx context.Context, artifact *model.ReservationArtifact) (string, error) {
	reservation := artifact.Reservation
	if reservation == nil {
		var err error
		reservation, err = w.repo.Reservation.GetByID(ctx, artifact.ReservationID)
		if err != nil {
			return "", err
		}
		if reservation == nil {
			return "", fmt.Errorf("预约 %s 不存在", artifact.ReservationID)
		}
	}

	settings, err := w.settings.Snapshot(ctx)
	if err != nil {
		return "", err
	}
	loc, err := settings.Location()
	if err != nil {
		return "", fmt.Errorf("加载时区失败: %w", err)
	}

	var payload model.ArtifactPayload
	_ = json.Unmarshal(artifact.Payload, &payload)
	template := payload.Template
	if template == "" {
		template = settings.PDFTemplate
	}

	data := &pdf.ConfirmationData{
		ReservationID: reservation.ReservationID,
		School:        reservation.School,
		BaseLabel:     reservation.BaseLabel(),
		StartsAt:      reservation.StartsAt.In(loc),
		EndsAt:        reservation.EndsAt.In(loc),
		Template:      template,
	}
	if reservation.User != nil {
		data.UserName = reservation.User.Name
		data.UserEmail = reservation.User.Email
	}
	if reservation.DecidedAt != nil {
		decidedAt := reservation.DecidedAt.In(loc)
		data.DecidedAt = &decidedAt
	}

	content, err := w.renderer.Render(data)
	if err != nil {
		return "", fmt.Errorf("渲染确认单失败: %w", err)
	}

	relPath := filepath.Join("reservations", reservation.ReservationID, "reservation.pdf")
	absPath := filepath.Join(w.storageRoot, relPath)
	if err := os.MkdirAll(filepath.Dir(absPath), 0o755); err != nil {
		return "", fmt.Errorf("创建存储目录失败: %w", err)
	}
	if err := os.WriteFile(absPath, content, 0o644); err != nil {
		return "", fmt.Errorf("写入确认单失败: %w", err)
	}

	return relPath, nil
}

func (w *PDFWorker) markFailed(ctx context.Context, artifact *model.ReservationArtifact, cause error) error {
	message := truncateError(cause)
	artifact.Status = model.ArtifactFailed
	artifact.LastError = &message
	if err := w.repo.Artifact.Update(ctx, artifact); err != nil {
		w.logger.Error("标记产物失败状态出错",
			zap.String("artifact_id", artifact.ArtifactID), zap.Error(err))
	}
	return cause
}

// truncateError 截断超长错误信息，按字符边界切割避免产生半个多字节字符
func truncateError(err error) string {
	message := err.Error()
	if len(message) <= maxErrorLen {
		return message
	}
	cut := 0
	for i := range message {
		if i > maxErrorLen {
			break
		}
		cut = i
	}
	return message[:cut]
}
