package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	ics "github.com/arran4/golang-ical"
	"go.uber.org/zap"

	"github.com/jazz-17/reservation-system/internal/dto"
	"github.com/jazz-17/reservation-system/internal/model"
	"github.com/jazz-17/reservation-system/internal/repository"
)

// 可用性查询的最大跨度，防止全表扫描式的请求
const maxAvailabilityDays = 31

// 时段状态
const (
	slotFree     = "free"
	slotOccupied = "occupied"
	slotBlocked  = "blocked"
)

// AvailabilityService 时段可用性投影
// 输入为配置时区下的本地日期，输出统一带 UTC RFC3339 时间戳。
type AvailabilityService interface {
	// ForRange 按当前预约模式生成逐日可用性视图
	ForRange(ctx context.Context, req *dto.AvailabilityRequest) (*dto.AvailabilityResponse, error)
	// EventsForRange 日历渲染事件（占用中的预约 + 停用期），按开始时间升序
	EventsForRange(ctx context.Context, from, to string) ([]dto.CalendarEvent, error)
	// ICSForRange 已批准预约与停用期的 iCalendar 导出
	ICSForRange(ctx context.Context, from, to string) (string, error)
}

type availabilityService struct {
	repo     *repository.Repository
	settings SettingsService
	logger   *zap.Logger

	nowFn func() time.Time
}

// NewAvailabilityService 创建 AvailabilityService 实例
func NewAvailabilityService(repo *repository.Repository, settings SettingsService, logger *zap.Logger) AvailabilityService {
	return &availabilityService{repo: repo, settings: settings, logger: logger, nowFn: time.Now}
}

// ────────────────────── ForRange ──────────────────────

func (s *availabilityService) ForRange(ctx context.Context, req *dto.AvailabilityRequest) (*dto.AvailabilityResponse, error) {
	settings, err := s.settings.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	loc, err := settings.Location()
	if err != nil {
		return nil, fmt.Errorf("加载时区失败: %w", err)
	}

	fromDay, toDay, err := parseDateRange(req.From, req.To, loc)
	if err != nil {
		return nil, err
	}

	// 整个范围只查两次库，逐日在内存里切分
	rangeStart := fromDay.UTC()
	rangeEnd := toDay.AddDate(0, 0, 1).UTC()
	statuses := settings.BlockingStatuses.BlockingStatuses()

	reservations, err := s.repo.Reservation.ListOverlapping(ctx, rangeStart, rangeEnd, statuses)
	if err != nil {
		s.logger.Error("查询占用预约失败", zap.Error(err))
		return nil, err
	}
	blackouts, err := s.repo.Blackout.ListOverlapping(ctx, rangeStart, rangeEnd)
	if err != nil {
		s.logger.Error("查询停用期失败", zap.Error(err))
		return nil, err
	}

	resp := &dto.AvailabilityResponse{
		Timezone:            settings.Timezone,
		BookingMode:         string(settings.BookingMode),
		SlotDurationMinutes: settings.SlotDurationMinutes,
		SlotStepMinutes:     settings.SlotStepMinutes,
		MinDurationMinutes:  settings.MinDurationMinutes,
		MaxDurationMinutes:  settings.MaxDurationMinutes,
	}

	for day := fromDay; day.Before(toDay.AddDate(0, 0, 1)); day = day.AddDate(0, 0, 1) {
		dayView, err := s.buildDay(day, settings, loc, reservations, blackouts)
		if err != nil {
			return nil, err
		}
		resp.Days = append(resp.Days, *dayView)
	}

	return resp, nil
}

// buildDay 生成单个本地日的可用性视图
func (s *availabilityService) buildDay(day time.Time, settings *BookingSettings, loc *time.Location,
	reservations []model.Reservation, blackouts []model.Blackout) (*dto.DayAvailability, error) {

	hours := settings.OpeningHours.For(day.Weekday())
	openMin, err1 := minutesOfDay(hours.Open)
	closeMin, err2 := minutesOfDay(hours.Close)
	if err1 != nil || err2 != nil {
		return nil, fmt.Errorf("开放时间配置无效: %q-%q", hours.Open, hours.Close)
	}

	dayOpen := day.Add(time.Duration(openMin) * time.Minute)
	dayClose := day.Add(time.Duration(closeMin) * time.Minute)

	view := &dto.DayAvailability{
		Date:      day.Format("2006-01-02"),
		Open:      hours.Open,
		Close:     hours.Close,
		Busy:      []dto.IntervalDTO{},
		Blackouts: []dto.IntervalDTO{},
	}

	// 占用区间与停用期均裁剪到开放窗口内
	var busy, blocked []interval
	for i := range reservations {
		if iv, ok := clip(reservations[i].StartsAt, reservations[i].EndsAt, dayOpen, dayClose); ok {
			busy = append(busy, iv)
			view.Busy = append(view.Busy, dto.IntervalDTO{
				Start: iv.start.UTC().Format(time.RFC3339),
				End:   iv.end.UTC().Format(time.RFC3339),
			})
		}
	}
	for i := range blackouts {
		if iv, ok := clip(blackouts[i].StartsAt, blackouts[i].EndsAt, dayOpen, dayClose); ok {
			blocked = append(blocked, iv)
			view.Blackouts = append(view.Blackouts, dto.IntervalDTO{
				Start:  iv.start.UTC().Format(time.RFC3339),
				End:    iv.end.UTC().Format(time.RFC3339),
				Reason: blackouts[i].Reason,
			})
		}
	}

	switch settings.BookingMode {
	case model.ModeFixedDuration:
		view.Slots = gridOptions(dayOpen, dayClose,
			settings.SlotDurationMinutes, settings.SlotStepMinutes, busy, blocked)

	case model.ModePredefinedBlocks:
		for _, block := range settings.PredefinedBlocks.For(day.Weekday()) {
			startMin, err1 := minutesOfDay(block.Start)
			endMin, err2 := minutesOfDay(block.End)
			if err1 != nil || err2 != nil {
				continue
			}
			blockStart := day.Add(time.Duration(startMin) * time.Minute)
			blockEnd := day.Add(time.Duration(endMin) * time.Minute)
			view.Blocks = append(view.Blocks, dto.SlotOption{
				Start:  blockStart.UTC().Format(time.RFC3339),
				End:    blockEnd.UTC().Format(time.RFC3339),
				Status: intervalStatus(blockStart, blockEnd, busy, blocked),
			})
		}

	case model.ModeVariableDuration:
		// 候选起始时刻：从该点起至少能容纳最短时长
		minDur := time.Duration(settings.MinDurationMinutes) * time.Minute
		step := time.Duration(settings.SlotStepMinutes) * time.Minute
		if step <= 0 {
			step = minDur
		}
		for start := dayOpen; !start.Add(minDur).After(dayClose); start = start.Add(step) {
			view.StartTimes = append(view.StartTimes, dto.StartOption{
				Start:  start.UTC().Format(time.RFC3339),
				Status: intervalStatus(start, start.Add(minDur), busy, blocked),
			})
		}
	}

	return view, nil
}

// ────────────────────── EventsForRange ──────────────────────

func (s *availabilityService) EventsForRange(ctx context.Context, from, to string) ([]dto.CalendarEvent, error) {
	settings, err := s.settings.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	loc, err := settings.Location()
	if err != nil {
		return nil, fmt.Errorf("加载时区失败: %w", err)
	}
	fromDay, toDay, err := parseDateRange(from, to, loc)
	if err != nil {
		return nil, err
	}

	rangeStart := fromDay.UTC()
	rangeEnd := toDay.AddDate(0, 0, 1).UTC()

	reservations, err := s.repo.Reservation.ListOverlapping(ctx, rangeStart, rangeEnd,
		settings.BlockingStatuses.BlockingStatuses())
	if err != nil {
		s.logger.Error("查询占用预约失败", zap.Error(err))
		return nil, err
	}
	blackouts, err := s.repo.Blackout.ListOverlapping(ctx, rangeStart, rangeEnd)
	if err != nil {
		s.logger.Error("查询停用期失败", zap.Error(err))
		return nil, err
	}

	events := make([]dto.CalendarEvent, 0, len(reservations)+len(blackouts))
	for i := range reservations {
		title := "Reservado"
		if reservations[i].Status == model.StatusPending {
			title = "Pendiente"
		}
		events = append(events, dto.CalendarEvent{
			Title: title,
			Start: reservations[i].StartsAt.UTC().Format(time.RFC3339),
			End:   reservations[i].EndsAt.UTC().Format(time.RFC3339),
			Type:  "reservation",
		})
	}
	for i := range blackouts {
		title := "No disponible"
		if blackouts[i].Reason != nil && *blackouts[i].Reason != "" {
			title = *blackouts[i].Reason
		}
		events = append(events, dto.CalendarEvent{
			Title:   title,
			Start:   blackouts[i].StartsAt.UTC().Format(time.RFC3339),
			End:     blackouts[i].EndsAt.UTC().Format(time.RFC3339),
			Display: "background",
			Type:    "blackout",
		})
	}

	sort.Slice(events, func(i, j int) bool {
		if events[i].Start != events[j].Start {
			return events[i].Start < events[j].Start
		}
		return events[i].End < events[j].End
	})

	return events, nil
}

// ────────────────────── ICSForRange ──────────────────────

func (s *availabilityService) ICSForRange(ctx context.Context, from, to string) (string, error) {
	settings, err := s.settings.Snapshot(ctx)
	if err != nil {
		return "", err
	}
	loc, err := settings.Location()
	if err != nil {
		return "", fmt.Errorf("加载时区失败: %w", err)
	}
	fromDay, toDay, err := parseDateRange(from, to, loc)
	if err != nil {
		return "", err
	}

	rangeStart := fromDay.UTC()
	rangeEnd := toDay.AddDate(0, 0, 1).UTC()

	// 订阅日历只含已确定占用：已批准的预约与停用期
	reservations, err := s.repo.Reservation.ListOverlapping(ctx, rangeStart, rangeEnd,
		[]model.ReservationStatus{model.StatusApproved})
	if err != nil {
		s.logger.Error("查询已批准预约失败", zap.Error(err))
		return "", err
	}
	blackouts, err := s.repo.Blackout.ListOverlapping(ctx, rangeStart, rangeEnd)
	if err != nil {
		s.logger.Error("查询停用期失败", zap.Error(err))
		return "", err
	}

	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId("-//reserva-canchas//calendario//ES")

	now := s.nowFn().UTC()
	for i := range reservations {
		event := cal.AddEvent(fmt.Sprintf("reservation-%s@reserva-canchas", reservations[i].ReservationID))
		event.SetDtStampTime(now)
		event.SetStartAt(reservations[i].StartsAt.UTC())
		event.SetEndAt(reservations[i].EndsAt.UTC())
		summary := "Cancha reservada"
		if label := reservations[i].BaseLabel(); label != "" {
			summary = fmt.Sprintf("Cancha reservada — %s %s", reservations[i].School, label)
		}
		event.SetSummary(summary)
	}
	for i := range blackouts {
		event := cal.AddEvent(fmt.Sprintf("blackout-%s@reserva-canchas", blackouts[i].BlackoutID))
		event.SetDtStampTime(now)
		event.SetStartAt(blackouts[i].StartsAt.UTC())
		event.SetEndAt(blackouts[i].EndsAt.UTC())
		summary := "Cancha no disponible"
		if blackouts[i].Reason != nil && *blackouts[i].Reason != "" {
			summary = fmt.Sprintf("Cancha no disponible: %s", *blackouts[i].Reason)
		}
		event.SetSummary(summary)
	}

	return cal.Serialize(), nil
}

// ── 内部辅助方法 ──

type interval struct {
	start, end time.Time
}

func overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && aEnd.After(bStart)
}

// clip 把区间裁剪到窗口内，不相交时返回 false
func clip(start, end, windowStart, windowEnd time.Time) (interval, bool) {
	if !overlaps(start, end, windowStart, windowEnd) {
		return interval{}, false
	}
	if start.Before(windowStart) {
		start = windowStart
	}
	if end.After(windowEnd) {
		end = windowEnd
	}
	return interval{start: start, end: end}, true
}

// intervalStatus 候选时段的占用状态；停用期优先于普通占用
func intervalStatus(start, end time.Time, busy, blocked []interval) string {
	for _, iv := range blocked {
		if overlaps(start, end, iv.start, iv.end) {
			return slotBlocked
		}
	}
	for _, iv := range busy {
		if overlaps(start, end, iv.start, iv.end) {
			return slotOccupied
		}
	}
	return slotFree
}

// gridOptions 沿步长网格生成固定时长候选时段
func gridOptions(dayOpen, dayClose time.Time, durationMinutes, stepMinutes int, busy, blocked []interval) []dto.SlotOption {
	duration := time.Duration(durationMinutes) * time.Minute
	step := time.Duration(stepMinutes) * time.Minute
	if step <= 0 {
		step = duration
	}

	var slots []dto.SlotOption
	for start := dayOpen; !start.Add(duration).After(dayClose); start = start.Add(step) {
		end := start.Add(duration)
		slots = append(slots, dto.SlotOption{
			Start:  start.UTC().Format(time.RFC3339),
			End:    end.UTC().Format(time.RFC3339),
			Status: intervalStatus(start, end, busy, blocked),
		})
	}
	return slots
}

// parseDateRange 解析并校验本地日期范围
func parseDateRange(from, to string, loc *time.Location) (time.Time, time.Time, error) {
	fromDay, err := time.ParseInLocation("2006-01-02", from, loc)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("日期格式应为 YYYY-MM-DD: %w", err)
	}
	toDay, err := time.ParseInLocation("2006-01-02", to, loc)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("日期格式应为 YYYY-MM-DD: %w", err)
	}
	if toDay.Before(fromDay) {
		return time.Time{}, time.Time{}, fmt.Errorf("结束日期不能早于开始日期")
	}
	if toDay.Sub(fromDay) > maxAvailabilityDays*24*time.Hour {
		return time.Time{}, time.Time{}, fmt.Errorf("查询范围最多 %d 天", maxAvailabilityDays)
	}
	return fromDay, toDay, nil
}
