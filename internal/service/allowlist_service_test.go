package service

import (
	"context"
	"testing"

	"go.uber.org/zap"

	"github.com/jazz-17/reservation-system/internal/dto"
)

func setupAllowListService() (AllowListService, *mockAuditRepo) {
	repo, _, _ := newMockRepository()
	return NewAllowListService(repo, zap.NewNop()), repo.Audit.(*mockAuditRepo)
}

func TestAllowList_Create_NormalizesEmail(t *testing.T) {
	svc, auditRepo := setupAllowListService()
	ctx := context.Background()

	base := 2024
	resp, err := svc.Create(ctx, "admin-1", &dto.CreateAllowListEntryRequest{
		Email:    "  Maria@Example.edu.pe ",
		Name:     "María Quispe",
		School:   "Ingeniería de Sistemas",
		BaseYear: &base,
	})
	if err != nil {
		t.Fatalf("录入白名单失败: %v", err)
	}
	if resp.Email != "maria@example.edu.pe" {
		t.Errorf("邮箱应归一化为小写，实际=%s", resp.Email)
	}

	if len(auditRepo.events) != 1 || auditRepo.events[0].EventType != "allowlist.created" {
		t.Errorf("期望记录 allowlist.created 审计事件，实际=%v", auditRepo.events)
	}
}

func TestAllowList_Create_Duplicate(t *testing.T) {
	svc, _ := setupAllowListService()
	ctx := context.Background()

	req := &dto.CreateAllowListEntryRequest{Email: "maria@example.edu.pe"}
	if _, err := svc.Create(ctx, "admin-1", req); err != nil {
		t.Fatalf("首次录入失败: %v", err)
	}
	// 大小写不同视为同一邮箱
	if _, err := svc.Create(ctx, "admin-1", &dto.CreateAllowListEntryRequest{
		Email: "MARIA@example.edu.pe",
	}); err != ErrAllowListEntryExists {
		t.Errorf("期望 ErrAllowListEntryExists，实际=%v", err)
	}
}

func TestAllowList_ListAndDelete(t *testing.T) {
	svc, _ := setupAllowListService()
	ctx := context.Background()

	resp, err := svc.Create(ctx, "admin-1", &dto.CreateAllowListEntryRequest{
		Email: "maria@example.edu.pe",
	})
	if err != nil {
		t.Fatalf("录入白名单失败: %v", err)
	}

	list, err := svc.List(ctx)
	if err != nil || len(list) != 1 {
		t.Fatalf("期望 1 条白名单条目，实际=%v err=%v", list, err)
	}

	if err := svc.Delete(ctx, "admin-1", resp.ID); err != nil {
		t.Fatalf("删除白名单条目失败: %v", err)
	}
	list, _ = svc.List(ctx)
	if len(list) != 0 {
		t.Errorf("删除后列表应为空，实际=%d", len(list))
	}
}
