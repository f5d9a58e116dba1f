package service

import (
	"context"
	"testing"

	"go.uber.org/zap"

	"github.com/jazz-17/reservation-system/internal/dto"
	apperrors "github.com/jazz-17/reservation-system/pkg/errors"
)

func setupBlackoutService() (BlackoutService, *mockAuditRepo) {
	repo, _, _ := newMockRepository()
	return NewBlackoutService(repo, zap.NewNop()), repo.Audit.(*mockAuditRepo)
}

func TestBlackout_CreateAndList(t *testing.T) {
	svc, auditRepo := setupBlackoutService()
	ctx := context.Background()

	reason := "Mantenimiento de la cancha"
	resp, err := svc.Create(ctx, "admin-1", &dto.CreateBlackoutRequest{
		StartsAt: "2026-03-10T13:00:00Z",
		EndsAt:   "2026-03-10T18:00:00Z",
		Reason:   &reason,
	})
	if err != nil {
		t.Fatalf("创建停用时段失败: %v", err)
	}
	if resp.Reason == nil || *resp.Reason != reason {
		t.Errorf("期望保留停用原因，实际=%v", resp.Reason)
	}
	if resp.CreatedBy == nil || *resp.CreatedBy != "admin-1" {
		t.Errorf("期望记录创建人，实际=%v", resp.CreatedBy)
	}

	list, err := svc.List(ctx)
	if err != nil {
		t.Fatalf("查询停用时段失败: %v", err)
	}
	if len(list) != 1 || list[0].ID != resp.ID {
		t.Errorf("期望 1 条停用时段，实际=%v", list)
	}

	if len(auditRepo.events) != 1 || auditRepo.events[0].EventType != "blackout.created" {
		t.Errorf("期望记录 blackout.created 审计事件，实际=%v", auditRepo.events)
	}
}

func TestBlackout_Create_InvalidInterval(t *testing.T) {
	svc, _ := setupBlackoutService()
	ctx := context.Background()

	_, err := svc.Create(ctx, "admin-1", &dto.CreateBlackoutRequest{
		StartsAt: "2026-03-10T18:00:00Z",
		EndsAt:   "2026-03-10T13:00:00Z",
	})
	assertCode(t, err, apperrors.CodeInvalidInterval)

	_, err = svc.Create(ctx, "admin-1", &dto.CreateBlackoutRequest{
		StartsAt: "10/03/2026 13:00",
		EndsAt:   "2026-03-10T18:00:00Z",
	})
	assertCode(t, err, apperrors.CodeInvalidInterval)
}

func TestBlackout_Delete(t *testing.T) {
	svc, auditRepo := setupBlackoutService()
	ctx := context.Background()

	resp, err := svc.Create(ctx, "admin-1", &dto.CreateBlackoutRequest{
		StartsAt: "2026-03-10T13:00:00Z",
		EndsAt:   "2026-03-10T18:00:00Z",
	})
	if err != nil {
		t.Fatalf("创建停用时段失败: %v", err)
	}

	if err := svc.Delete(ctx, "admin-1", resp.ID); err != nil {
		t.Fatalf("删除停用时段失败: %v", err)
	}
	list, _ := svc.List(ctx)
	if len(list) != 0 {
		t.Errorf("删除后列表应为空，实际=%d", len(list))
	}
	if err := svc.Delete(ctx, "admin-1", resp.ID); err != ErrBlackoutNotFound {
		t.Errorf("期望 ErrBlackoutNotFound，实际=%v", err)
	}

	var deleted bool
	for _, e := range auditRepo.events {
		if e.EventType == "blackout.deleted" {
			deleted = true
		}
	}
	if !deleted {
		t.Error("期望记录 blackout.deleted 审计事件")
	}
}
