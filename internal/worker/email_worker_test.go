package worker

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/jazz-17/reservation-system/internal/model"
	"github.com/jazz-17/reservation-system/internal/service"
)

func newTestEmailWorker(t *testing.T, mail *fakeMailer) (*EmailWorker, *memReservationRepo, *memArtifactRepo, string) {
	t.Helper()
	repo, reservationRepo, artifactRepo := newMemRepository()
	logger := zap.NewNop()
	storageRoot := t.TempDir()
	w := NewEmailWorker(repo, mail, service.NewSettingsService(repo, logger), storageRoot, logger)
	w.nowFn = func() time.Time { return workerNow }
	return w, reservationRepo, artifactRepo, storageRoot
}

func TestEmailWorker_Process_SendsAndMarksSent(t *testing.T) {
	mail := &fakeMailer{}
	w, reservationRepo, artifactRepo, _ := newTestEmailWorker(t, mail)
	ctx := context.Background()

	seedApprovedReservation(reservationRepo)
	artifact, _ := artifactRepo.Upsert(ctx, "resv-1", model.ArtifactEmailUser,
		mustPayload(t, model.ArtifactPayload{Event: "approved", To: []string{"maria@example.edu.pe"}}))

	if err := w.Process(ctx, artifact.ArtifactID); err != nil {
		t.Fatalf("处理邮件产物失败: %v", err)
	}

	if len(mail.sent) != 1 {
		t.Fatalf("期望发出 1 封邮件，实际=%d", len(mail.sent))
	}
	msg := mail.sent[0]
	if len(msg.To) != 1 || msg.To[0] != "maria@example.edu.pe" {
		t.Errorf("收件人不符: %v", msg.To)
	}
	if msg.Subject != "Reserva aprobada" {
		t.Errorf("期望主题 Reserva aprobada，实际=%s", msg.Subject)
	}
	// 利马时区（UTC-5）：19:00 UTC = 14:00 本地
	if !strings.Contains(msg.Body, "03/03/2026 14:00") {
		t.Errorf("正文应包含本地化的开始时间，实际=%q", msg.Body)
	}
	if !strings.Contains(msg.Body, "Ingeniería de Sistemas B24") {
		t.Errorf("正文应包含分组信息，实际=%q", msg.Body)
	}

	updated, _ := artifactRepo.GetByID(ctx, artifact.ArtifactID)
	if updated.Status != model.ArtifactSent || updated.Attempts != 1 {
		t.Errorf("期望 sent/1 次尝试，实际=%s/%d", updated.Status, updated.Attempts)
	}
}

func TestEmailWorker_Process_ApprovedAttachesConfirmation(t *testing.T) {
	mail := &fakeMailer{}
	w, reservationRepo, artifactRepo, storageRoot := newTestEmailWorker(t, mail)
	ctx := context.Background()

	seedApprovedReservation(reservationRepo)

	// 已生成的 PDF 产物与磁盘文件
	relPath := filepath.Join("reservations", "resv-1", "reservation.pdf")
	absPath := filepath.Join(storageRoot, relPath)
	if err := os.MkdirAll(filepath.Dir(absPath), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(absPath, []byte("%PDF"), 0o644); err != nil {
		t.Fatal(err)
	}
	pdfArtifact, _ := artifactRepo.Upsert(ctx, "resv-1", model.ArtifactPDF,
		mustPayload(t, model.ArtifactPayload{Event: "approved", Path: relPath}))
	pdfArtifact.Status = model.ArtifactSent
	_ = artifactRepo.Update(ctx, pdfArtifact)

	emailArtifact, _ := artifactRepo.Upsert(ctx, "resv-1", model.ArtifactEmailUser,
		mustPayload(t, model.ArtifactPayload{Event: "approved", To: []string{"maria@example.edu.pe"}}))

	if err := w.Process(ctx, emailArtifact.ArtifactID); err != nil {
		t.Fatalf("处理邮件产物失败: %v", err)
	}
	if len(mail.sent) != 1 || mail.sent[0].AttachmentPath != absPath {
		t.Errorf("批准通知应附带确认单 %s，实际=%v", absPath, mail.sent)
	}
}

func TestEmailWorker_Process_MissingConfirmationSkipsAttachment(t *testing.T) {
	mail := &fakeMailer{}
	w, reservationRepo, artifactRepo, _ := newTestEmailWorker(t, mail)
	ctx := context.Background()

	seedApprovedReservation(reservationRepo)
	// PDF 产物标记 sent 但磁盘文件缺失
	relPath := filepath.Join("reservations", "resv-1", "reservation.pdf")
	pdfArtifact, _ := artifactRepo.Upsert(ctx, "resv-1", model.ArtifactPDF,
		mustPayload(t, model.ArtifactPayload{Event: "approved", Path: relPath}))
	pdfArtifact.Status = model.ArtifactSent
	_ = artifactRepo.Update(ctx, pdfArtifact)

	emailArtifact, _ := artifactRepo.Upsert(ctx, "resv-1", model.ArtifactEmailUser,
		mustPayload(t, model.ArtifactPayload{Event: "approved", To: []string{"maria@example.edu.pe"}}))

	if err := w.Process(ctx, emailArtifact.ArtifactID); err != nil {
		t.Fatalf("附件缺失不应阻断发送: %v", err)
	}
	if len(mail.sent) != 1 || mail.sent[0].AttachmentPath != "" {
		t.Errorf("附件缺失时应发送无附件邮件，实际=%v", mail.sent)
	}
}

func TestEmailWorker_Process_NoRecipientsFails(t *testing.T) {
	mail := &fakeMailer{}
	w, reservationRepo, artifactRepo, _ := newTestEmailWorker(t, mail)
	ctx := context.Background()

	seedApprovedReservation(reservationRepo)
	artifact, _ := artifactRepo.Upsert(ctx, "resv-1", model.ArtifactEmailAdmin,
		mustPayload(t, model.ArtifactPayload{Event: "cancelled"}))

	if err := w.Process(ctx, artifact.ArtifactID); err == nil {
		t.Fatal("缺少收件人应报错")
	}
	updated, _ := artifactRepo.GetByID(ctx, artifact.ArtifactID)
	if updated.Status != model.ArtifactFailed {
		t.Errorf("期望状态 failed，实际=%s", updated.Status)
	}
	if len(mail.sent) != 0 {
		t.Error("缺少收件人不应发出邮件")
	}
}

func TestEmailWorker_Process_SendFailureMarksFailed(t *testing.T) {
	mail := &fakeMailer{err: fmt.Errorf("smtp: connection refused")}
	w, reservationRepo, artifactRepo, _ := newTestEmailWorker(t, mail)
	ctx := context.Background()

	seedApprovedReservation(reservationRepo)
	artifact, _ := artifactRepo.Upsert(ctx, "resv-1", model.ArtifactEmailUser,
		mustPayload(t, model.ArtifactPayload{Event: "rejected", To: []string{"maria@example.edu.pe"}}))

	if err := w.Process(ctx, artifact.ArtifactID); err == nil {
		t.Fatal("发送失败应向上返回错误")
	}
	updated, _ := artifactRepo.GetByID(ctx, artifact.ArtifactID)
	if updated.Status != model.ArtifactFailed || updated.LastError == nil {
		t.Errorf("期望 failed 且带错误信息，实际=%s/%v", updated.Status, updated.LastError)
	}
}

func TestComposeEmail_Events(t *testing.T) {
	loc, _ := time.LoadLocation("America/Lima")
	reason := "Documentación incompleta"
	reservation := &model.Reservation{
		StartsAt:       time.Date(2026, 3, 3, 19, 0, 0, 0, time.UTC),
		EndsAt:         time.Date(2026, 3, 3, 20, 0, 0, 0, time.UTC),
		School:         "Ingeniería de Sistemas",
		DecisionReason: &reason,
	}

	subject, body := composeEmail("rejected", reservation, loc)
	if subject != "Reserva rechazada" {
		t.Errorf("期望主题 Reserva rechazada，实际=%s", subject)
	}
	if !strings.Contains(body, "Motivo: Documentación incompleta") {
		t.Errorf("拒绝正文应包含理由，实际=%q", body)
	}

	subject, _ = composeEmail("cancelled", reservation, loc)
	if subject != "Reserva cancelada" {
		t.Errorf("期望主题 Reserva cancelada，实际=%s", subject)
	}
	subject, _ = composeEmail("expired", reservation, loc)
	if subject != "Reserva vencida" {
		t.Errorf("期望主题 Reserva vencida，实际=%s", subject)
	}
	subject, _ = composeEmail("otro", reservation, loc)
	if subject != "Notificación de reserva" {
		t.Errorf("未知事件应使用通用主题，实际=%s", subject)
	}
}
