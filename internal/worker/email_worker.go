package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/jazz-17/reservation-system/internal/model"
	"github.com/jazz-17/reservation-system/internal/repository"
	"github.com/jazz-17/reservation-system/internal/service"
	"github.com/jazz-17/reservation-system/pkg/mailer"
)

// EmailWorker 预约通知邮件执行器
type EmailWorker struct {
	repo        *repository.Repository
	mail        mailer.Mailer
	settings    service.SettingsService
	storageRoot string
	logger      *zap.Logger

	nowFn func() time.Time
}

// NewEmailWorker 创建邮件执行器
func NewEmailWorker(repo *repository.Repository, mail mailer.Mailer, settings service.SettingsService,
	storageRoot string, logger *zap.Logger) *EmailWorker {
	return &EmailWorker{
		repo:        repo,
		mail:        mail,
		settings:    settings,
		storageRoot: storageRoot,
		logger:      logger,
		nowFn:       time.Now,
	}
}

// Process 组装并发送通知邮件；批准通知在确认单已生成时附带 PDF
func (w *EmailWorker) Process(ctx context.Context, artifactID string) error {
	artifact, err := w.repo.Artifact.GetByID(ctx, artifactID)
	if err != nil {
		return err
	}
	if artifact == nil {
		return fmt.Errorf("产物 %s 不存在", artifactID)
	}
	if artifact.Kind != model.ArtifactEmailAdmin && artifact.Kind != model.ArtifactEmailUser {
		return fmt.Errorf("产物 %s 不是邮件种类", artifactID)
	}

	now := w.nowFn().UTC()
	artifact.Attempts++
	artifact.LastAttemptAt = &now
	artifact.Status = model.ArtifactPending
	if err := w.repo.Artifact.Update(ctx, artifact); err != nil {
		return err
	}

	if err := w.send(ctx, artifact); err != nil {
		return w.markFailed(ctx, artifact, err)
	}

	artifact.Status = model.ArtifactSent
	artifact.LastError = nil
	if err := w.repo.Artifact.Update(ctx, artifact); err != nil {
		return err
	}

	w.logger.Info("通知邮件已发送",
		zap.String("reservation_id", artifact.ReservationID),
		zap.String("kind", string(artifact.Kind)))
	return nil
}

func (w *EmailWorker) send(ctx context.Context, artifact *model.ReservationArtifact) error {
	var payload model.ArtifactPayload
	if err := json.Unmarshal(artifact.Payload, &payload); err != nil {
		return fmt.Errorf("解析产物负载失败: %w", err)
	}
	if len(payload.To) == 0 {
		return fmt.Errorf("产物负载缺少收件人")
	}

	reservation := artifact.Reservation
	if reservation == nil {
		var err error
		reservation, err = w.repo.Reservation.GetByID(ctx, artifact.ReservationID)
		if err != nil {
			return err
		}
		if reservation == nil {
			return fmt.Errorf("预约 %s 不存在", artifact.ReservationID)
		}
	}

	settings, err := w.settings.Snapshot(ctx)
	if err != nil {
		return err
	}
	loc, err := settings.Location()
	if err != nil {
		return fmt.Errorf("加载时区失败: %w", err)
	}

	subject, body := composeEmail(payload.Event, reservation, loc)

	msg := &mailer.Message{
		To:      payload.To,
		Cc:      payload.Cc,
		Bcc:     payload.Bcc,
		Subject: subject,
		Body:    body,
	}

	// 批准通知附带确认单（若 PDF 产物已生成且文件还在）
	if payload.Event == "approved" {
		if path := w.confirmationPath(ctx, artifact.ReservationID); path != "" {
			msg.AttachmentPath = path
		}
	}

	return w.mail.Send(msg)
}

// confirmationPath 同预约下已生成 PDF 的绝对路径；未生成或文件缺失返回空串
func (w *EmailWorker) confirmationPath(ctx context.Context, reservationID string) string {
	pdfArtifact, err := w.repo.Artifact.GetByReservationAndKind(ctx, reservationID, model.ArtifactPDF)
	if err != nil || pdfArtifact == nil || pdfArtifact.Status != model.ArtifactSent {
		return ""
	}
	var payload model.ArtifactPayload
	if err := json.Unmarshal(pdfArtifact.Payload, &payload); err != nil || payload.Path == "" {
		return ""
	}
	absPath := filepath.Join(w.storageRoot, payload.Path)
	if _, err := os.Stat(absPath); err != nil {
		return ""
	}
	return absPath
}

func composeEmail(event string, reservation *model.Reservation, loc *time.Location) (string, string) {
	const layout = "02/01/2006 15:04"
	window := fmt.Sprintf("%s - %s",
		reservation.StartsAt.In(loc).Format(layout),
		reservation.EndsAt.In(loc).Format(layout))

	group := reservation.School
	if label := reservation.BaseLabel(); label != "" {
		group = fmt.Sprintf("%s %s", reservation.School, label)
	}

	switch event {
	case "approved":
		return "Reserva aprobada",
			fmt.Sprintf("Su reserva de cancha ha sido aprobada.\n\nHorario: %s\nGrupo: %s\n\nAdjuntamos la constancia de reserva.", window, group)
	case "rejected":
		reason := ""
		if reservation.DecisionReason != nil {
			reason = fmt.Sprintf("\nMotivo: %s", *reservation.DecisionReason)
		}
		return "Reserva rechazada",
			fmt.Sprintf("Su reserva de cancha ha sido rechazada.\n\nHorario: %s%s", window, reason)
	case "cancelled":
		return "Reserva cancelada",
			fmt.Sprintf("La reserva aprobada para el horario %s (%s) ha sido cancelada y el horario queda libre.", window, group)
	case "expired":
		return "Reserva vencida",
			fmt.Sprintf("Su solicitud de reserva para el horario %s no fue atendida a tiempo y ha sido anulada.", window)
	default:
		return "Notificación de reserva",
			fmt.Sprintf("Actualización de su reserva.\n\nHorario: %s", window)
	}
}

func (w *EmailWorker) markFailed(ctx context.Context, artifact *model.ReservationArtifact, cause error) error {
	message := truncateError(cause)
	artifact.Status = model.ArtifactFailed
	artifact.LastError = &message
	if err := w.repo.Artifact.Update(ctx, artifact); err != nil {
		w.logger.Error("标记产物失败状态出错",
			zap.String("artifact_id", artifact.ArtifactID), zap.Error(err))
	}
	return cause
}
