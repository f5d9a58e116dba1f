package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"
	"gorm.io/datatypes"

	"github.com/jazz-17/reservation-system/internal/dto"
	"github.com/jazz-17/reservation-system/internal/model"
)

type availabilityFixture struct {
	svc             *availabilityService
	reservationRepo *mockReservationRepo
	blackoutRepo    *mockBlackoutRepo
	settingRepo     *mockSettingRepo
}

func setupAvailabilityService() *availabilityFixture {
	repo, reservationRepo, _ := newMockRepository()
	logger := zap.NewNop()
	svc := NewAvailabilityService(repo, NewSettingsService(repo, logger), logger).(*availabilityService)
	svc.nowFn = func() time.Time { return testNow }
	return &availabilityFixture{
		svc:             svc,
		reservationRepo: reservationRepo,
		blackoutRepo:    repo.Blackout.(*mockBlackoutRepo),
		settingRepo:     repo.Setting.(*mockSettingRepo),
	}
}

func findSlot(t *testing.T, slots []dto.SlotOption, start time.Time) dto.SlotOption {
	t.Helper()
	want := start.UTC().Format(time.RFC3339)
	for _, slot := range slots {
		if slot.Start == want {
			return slot
		}
	}
	t.Fatalf("时段网格中找不到起点 %s", want)
	return dto.SlotOption{}
}

func TestAvailability_FixedModeGrid(t *testing.T) {
	f := setupAvailabilityService()
	ctx := context.Background()

	// 14:00-15:00 已批准占用；16:00-17:00 停用
	_ = f.reservationRepo.Create(ctx, &model.Reservation{
		UserID:   "u1",
		Status:   model.StatusApproved,
		StartsAt: limaTime(2026, 3, 3, 14, 0),
		EndsAt:   limaTime(2026, 3, 3, 15, 0),
	})
	_ = f.blackoutRepo.Create(ctx, &model.Blackout{
		StartsAt: limaTime(2026, 3, 3, 16, 0),
		EndsAt:   limaTime(2026, 3, 3, 17, 0),
	})

	resp, err := f.svc.ForRange(ctx, &dto.AvailabilityRequest{From: "2026-03-03", To: "2026-03-03"})
	if err != nil {
		t.Fatalf("查询可用性失败: %v", err)
	}
	if len(resp.Days) != 1 {
		t.Fatalf("期望 1 天视图，实际=%d", len(resp.Days))
	}
	day := resp.Days[0]
	if day.Date != "2026-03-03" || day.Open != "08:00" || day.Close != "22:00" {
		t.Errorf("日视图头部不符: %+v", day)
	}

	// 08:00-22:00，步长 30 分钟、时长 60 分钟 → 27 个候选时段
	if len(day.Slots) != 27 {
		t.Errorf("期望 27 个候选时段，实际=%d", len(day.Slots))
	}

	if slot := findSlot(t, day.Slots, limaTime(2026, 3, 3, 10, 0)); slot.Status != slotFree {
		t.Errorf("10:00 时段应为 free，实际=%s", slot.Status)
	}
	if slot := findSlot(t, day.Slots, limaTime(2026, 3, 3, 14, 0)); slot.Status != slotOccupied {
		t.Errorf("14:00 时段应为 occupied，实际=%s", slot.Status)
	}
	// 13:30-14:30 与占用部分相交
	if slot := findSlot(t, day.Slots, limaTime(2026, 3, 3, 13, 30)); slot.Status != slotOccupied {
		t.Errorf("13:30 时段应为 occupied，实际=%s", slot.Status)
	}
	if slot := findSlot(t, day.Slots, limaTime(2026, 3, 3, 16, 30)); slot.Status != slotBlocked {
		t.Errorf("16:30 时段应为 blocked，实际=%s", slot.Status)
	}
	// 13:00-14:00 与 14:00 开始的占用首尾相接，不算冲突
	if slot := findSlot(t, day.Slots, limaTime(2026, 3, 3, 13, 0)); slot.Status != slotFree {
		t.Errorf("13:00 时段应为 free，实际=%s", slot.Status)
	}

	if len(day.Busy) != 1 || len(day.Blackouts) != 1 {
		t.Errorf("期望 1 条占用与 1 条停用区间，实际 busy=%d blackouts=%d",
			len(day.Busy), len(day.Blackouts))
	}
}

func TestAvailability_PendingBlocksByDefault(t *testing.T) {
	f := setupAvailabilityService()
	ctx := context.Background()

	_ = f.reservationRepo.Create(ctx, &model.Reservation{
		UserID:   "u1",
		Status:   model.StatusPending,
		StartsAt: limaTime(2026, 3, 3, 14, 0),
		EndsAt:   limaTime(2026, 3, 3, 15, 0),
	})

	resp, err := f.svc.ForRange(ctx, &dto.AvailabilityRequest{From: "2026-03-03", To: "2026-03-03"})
	if err != nil {
		t.Fatalf("查询可用性失败: %v", err)
	}
	if slot := findSlot(t, resp.Days[0].Slots, limaTime(2026, 3, 3, 14, 0)); slot.Status != slotOccupied {
		t.Errorf("默认策略下 pending 应占用时段，实际=%s", slot.Status)
	}

	// approved_only 策略下同一 pending 不占用
	_ = f.settingRepo.Upsert(ctx, SettingBlockingStatuses, datatypes.JSON(`"approved_only"`), "admin-1")
	resp, err = f.svc.ForRange(ctx, &dto.AvailabilityRequest{From: "2026-03-03", To: "2026-03-03"})
	if err != nil {
		t.Fatalf("查询可用性失败: %v", err)
	}
	if slot := findSlot(t, resp.Days[0].Slots, limaTime(2026, 3, 3, 14, 0)); slot.Status != slotFree {
		t.Errorf("approved_only 策略下 pending 不应占用时段，实际=%s", slot.Status)
	}
}

func TestAvailability_VariableModeStartTimes(t *testing.T) {
	f := setupAvailabilityService()
	ctx := context.Background()
	_ = f.settingRepo.Upsert(ctx, SettingBookingMode, datatypes.JSON(`"variable_duration"`), "admin-1")

	resp, err := f.svc.ForRange(ctx, &dto.AvailabilityRequest{From: "2026-03-03", To: "2026-03-03"})
	if err != nil {
		t.Fatalf("查询可用性失败: %v", err)
	}
	day := resp.Days[0]
	if len(day.Slots) != 0 {
		t.Errorf("可变时长模式不应返回固定网格，实际=%d", len(day.Slots))
	}
	// 最短 60 分钟，最晚起点 21:00 → 27 个候选起点
	if len(day.StartTimes) != 27 {
		t.Errorf("期望 27 个候选起点，实际=%d", len(day.StartTimes))
	}
	last := day.StartTimes[len(day.StartTimes)-1]
	if last.Start != limaTime(2026, 3, 3, 21, 0).Format(time.RFC3339) {
		t.Errorf("最后一个候选起点应为 21:00，实际=%s", last.Start)
	}
}

func TestAvailability_PredefinedBlocks(t *testing.T) {
	f := setupAvailabilityService()
	ctx := context.Background()
	_ = f.settingRepo.Upsert(ctx, SettingBookingMode, datatypes.JSON(`"predefined_blocks"`), "admin-1")
	_ = f.settingRepo.Upsert(ctx, SettingPredefinedBlocks,
		datatypes.JSON(`{"tue":[{"start":"14:00","end":"16:00"},{"start":"18:00","end":"20:00"}]}`), "admin-1")

	_ = f.reservationRepo.Create(ctx, &model.Reservation{
		UserID:   "u1",
		Status:   model.StatusApproved,
		StartsAt: limaTime(2026, 3, 3, 14, 0),
		EndsAt:   limaTime(2026, 3, 3, 16, 0),
	})

	resp, err := f.svc.ForRange(ctx, &dto.AvailabilityRequest{From: "2026-03-03", To: "2026-03-03"})
	if err != nil {
		t.Fatalf("查询可用性失败: %v", err)
	}
	blocks := resp.Days[0].Blocks
	if len(blocks) != 2 {
		t.Fatalf("期望 2 个预定义时段块，实际=%d", len(blocks))
	}
	if blocks[0].Status != slotOccupied {
		t.Errorf("14:00-16:00 块应为 occupied，实际=%s", blocks[0].Status)
	}
	if blocks[1].Status != slotFree {
		t.Errorf("18:00-20:00 块应为 free，实际=%s", blocks[1].Status)
	}
}

func TestAvailability_RangeValidation(t *testing.T) {
	f := setupAvailabilityService()
	ctx := context.Background()

	if _, err := f.svc.ForRange(ctx, &dto.AvailabilityRequest{From: "2026-03-10", To: "2026-03-03"}); err == nil {
		t.Error("结束早于开始的范围应报错")
	}
	if _, err := f.svc.ForRange(ctx, &dto.AvailabilityRequest{From: "2026-03-01", To: "2026-04-15"}); err == nil {
		t.Error("超过最大跨度的范围应报错")
	}
	if _, err := f.svc.ForRange(ctx, &dto.AvailabilityRequest{From: "03/01/2026", To: "2026-03-02"}); err == nil {
		t.Error("非 YYYY-MM-DD 日期应报错")
	}
}

func TestAvailability_EventsForRange(t *testing.T) {
	f := setupAvailabilityService()
	ctx := context.Background()

	_ = f.reservationRepo.Create(ctx, &model.Reservation{
		UserID:   "u1",
		Status:   model.StatusApproved,
		StartsAt: limaTime(2026, 3, 3, 14, 0),
		EndsAt:   limaTime(2026, 3, 3, 15, 0),
	})
	_ = f.reservationRepo.Create(ctx, &model.Reservation{
		UserID:   "u2",
		Status:   model.StatusPending,
		StartsAt: limaTime(2026, 3, 3, 10, 0),
		EndsAt:   limaTime(2026, 3, 3, 11, 0),
	})
	reason := "Mantenimiento de la cancha"
	_ = f.blackoutRepo.Create(ctx, &model.Blackout{
		StartsAt: limaTime(2026, 3, 3, 8, 0),
		EndsAt:   limaTime(2026, 3, 3, 9, 0),
		Reason:   &reason,
	})

	events, err := f.svc.EventsForRange(ctx, "2026-03-03", "2026-03-03")
	if err != nil {
		t.Fatalf("查询日历事件失败: %v", err)
	}
	if len(events) != 3 {
		t.Fatalf("期望 3 个事件，实际=%d", len(events))
	}
	// 按开始时间升序
	if events[0].Type != "blackout" || events[0].Title != reason || events[0].Display != "background" {
		t.Errorf("第一个事件应为带原因的停用期，实际=%+v", events[0])
	}
	if events[1].Title != "Pendiente" {
		t.Errorf("期望待审批预约标题 Pendiente，实际=%s", events[1].Title)
	}
	if events[2].Title != "Reservado" {
		t.Errorf("期望已批准预约标题 Reservado，实际=%s", events[2].Title)
	}
}

func TestAvailability_ICSForRange(t *testing.T) {
	f := setupAvailabilityService()
	ctx := context.Background()

	base := 2024
	_ = f.reservationRepo.Create(ctx, &model.Reservation{
		UserID:   "u1",
		Status:   model.StatusApproved,
		StartsAt: limaTime(2026, 3, 3, 14, 0),
		EndsAt:   limaTime(2026, 3, 3, 15, 0),
		School:   "Ingeniería de Sistemas",
		BaseYear: &base,
	})
	// pending 不进订阅日历
	_ = f.reservationRepo.Create(ctx, &model.Reservation{
		UserID:   "u2",
		Status:   model.StatusPending,
		StartsAt: limaTime(2026, 3, 3, 10, 0),
		EndsAt:   limaTime(2026, 3, 3, 11, 0),
	})
	reason := "Mantenimiento"
	_ = f.blackoutRepo.Create(ctx, &model.Blackout{
		StartsAt: limaTime(2026, 3, 3, 8, 0),
		EndsAt:   limaTime(2026, 3, 3, 9, 0),
		Reason:   &reason,
	})

	serialized, err := f.svc.ICSForRange(ctx, "2026-03-03", "2026-03-03")
	if err != nil {
		t.Fatalf("导出 ICS 失败: %v", err)
	}
	if !strings.Contains(serialized, "BEGIN:VCALENDAR") {
		t.Error("输出应为 iCalendar 格式")
	}
	if !strings.Contains(serialized, "Cancha reservada") {
		t.Error("已批准预约应出现在日历中")
	}
	if !strings.Contains(serialized, "Cancha no disponible: Mantenimiento") {
		t.Error("停用期应带原因出现在日历中")
	}
	if got := strings.Count(serialized, "BEGIN:VEVENT"); got != 2 {
		t.Errorf("期望 2 个 VEVENT（pending 不导出），实际=%d", got)
	}
}
