package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/jazz-17/reservation-system/internal/model"
	"github.com/jazz-17/reservation-system/internal/repository"
	apperrors "github.com/jazz-17/reservation-system/pkg/errors"
)

// RulesService 预约冲突与业务规则校验
// 所有校验按固定顺序执行，返回第一条违规；时间参数一律为 UTC。
type RulesService interface {
	// ValidateForCreation 创建前的全量校验
	ValidateForCreation(ctx context.Context, user *model.User, startsAt, endsAt time.Time, settings *BookingSettings) error
	// ValidateForApproval 审批时按当前配置重新检查停用期、开放时间与时段占用（窗口期间可能已有变化）
	ValidateForApproval(ctx context.Context, reservation *model.Reservation, settings *BookingSettings) error
	// ValidateCancellation 取消前校验：所有权、状态与取消窗口
	ValidateCancellation(actor *model.User, reservation *model.Reservation, settings *BookingSettings) error
}

type rulesService struct {
	repo   *repository.Repository
	logger *zap.Logger

	// nowFn 便于测试注入固定时刻
	nowFn func() time.Time
}

// NewRulesService 创建 RulesService 实例
func NewRulesService(repo *repository.Repository, logger *zap.Logger) RulesService {
	return &rulesService{repo: repo, logger: logger, nowFn: time.Now}
}

// ────────────────────── 创建校验 ──────────────────────

func (s *rulesService) ValidateForCreation(ctx context.Context, user *model.User, startsAt, endsAt time.Time, settings *BookingSettings) error {
	now := s.nowFn().UTC()
	startsAt = startsAt.UTC()
	endsAt = endsAt.UTC()

	// 1. 区间本身必须有效
	if !endsAt.After(startsAt) {
		return apperrors.NewValidation(apperrors.CodeInvalidInterval, "ends_at",
			"结束时间必须晚于开始时间")
	}

	// 2. 提前量窗口
	if err := s.checkLeadTime(now, startsAt, settings); err != nil {
		return err
	}

	// 3. 开放时间（按配置时区的本地时刻判断）
	if err := s.checkOpeningHours(startsAt, endsAt, settings); err != nil {
		return err
	}

	// 4. 时长模式形状
	if err := s.checkModeShape(startsAt, endsAt, settings); err != nil {
		return err
	}

	// 5. 停用期
	blocked, err := s.repo.Blackout.ExistsOverlapping(ctx, startsAt, endsAt)
	if err != nil {
		s.logger.Error("查询停用期失败", zap.Error(err))
		return err
	}
	if blocked {
		return apperrors.NewValidation(apperrors.CodeBlackoutConflict, "starts_at",
			"所选时段处于场地停用期内")
	}

	// 6. 用户同时持有的活跃预约上限（0 表示不限）
	statuses := settings.BlockingStatuses.BlockingStatuses()
	if settings.MaxActiveReservationsPerUser > 0 {
		active, err := s.repo.Reservation.CountBlocking(ctx, user.UserID, statuses)
		if err != nil {
			s.logger.Error("统计活跃预约失败", zap.Error(err))
			return err
		}
		if active >= int64(settings.MaxActiveReservationsPerUser) {
			return apperrors.NewValidation(apperrors.CodeActiveLimitExceeded, "",
				fmt.Sprintf("同时最多持有 %d 个活跃预约", settings.MaxActiveReservationsPerUser))
		}
	}

	// 7. 分组周配额（按预约开始时间所在的本地自然周计，0 表示不限）
	if user.HasGroup() && settings.WeeklyQuotaPerGroup > 0 {
		weekStart, weekEnd, err := localWeekWindow(startsAt, settings)
		if err != nil {
			return err
		}
		used, err := s.repo.Reservation.CountGroupInWindow(ctx, user.School, *user.BaseYear, weekStart, weekEnd, statuses)
		if err != nil {
			s.logger.Error("统计分组周配额失败", zap.Error(err))
			return err
		}
		if used >= int64(settings.WeeklyQuotaPerGroup) {
			return apperrors.NewValidation(apperrors.CodeWeeklyQuotaExceeded, "",
				fmt.Sprintf("%s %s 本周配额（%d 次）已用完",
					user.School, formatBaseLabel(*user.BaseYear), settings.WeeklyQuotaPerGroup))
		}
	}

	// 8. 时段占用（放在最后，保证报错优先级稳定）
	taken, err := s.repo.Reservation.ExistsOverlapping(ctx, startsAt, endsAt, statuses, "")
	if err != nil {
		s.logger.Error("查询时段占用失败", zap.Error(err))
		return err
	}
	if taken {
		return apperrors.NewValidation(apperrors.CodeSlotConflict, "starts_at",
			"所选时段已被占用")
	}

	return nil
}

// ────────────────────── 审批复核 ──────────────────────

func (s *rulesService) ValidateForApproval(ctx context.Context, reservation *model.Reservation, settings *BookingSettings) error {
	blocked, err := s.repo.Blackout.ExistsOverlapping(ctx, reservation.StartsAt, reservation.EndsAt)
	if err != nil {
		s.logger.Error("查询停用期失败", zap.Error(err))
		return err
	}
	if blocked {
		return apperrors.NewValidation(apperrors.CodeBlackoutConflict, "starts_at",
			"该时段已被设为停用期，无法批准")
	}

	// 提交后开放时间可能已收窄，审批前按当前配置重新复核
	if err := s.checkOpeningHours(reservation.StartsAt, reservation.EndsAt, settings); err != nil {
		return err
	}

	// 审批只需让路给其他已批准的预约；自身以任何策略都要排除
	taken, err := s.repo.Reservation.ExistsOverlapping(ctx, reservation.StartsAt, reservation.EndsAt,
		[]model.ReservationStatus{model.StatusApproved}, reservation.ReservationID)
	if err != nil {
		s.logger.Error("查询时段占用失败", zap.Error(err))
		return err
	}
	if taken {
		return apperrors.NewValidation(apperrors.CodeSlotConflict, "starts_at",
			"该时段已有其他已批准的预约")
	}

	return nil
}

// ────────────────────── 取消校验 ──────────────────────

func (s *rulesService) ValidateCancellation(actor *model.User, reservation *model.Reservation, settings *BookingSettings) error {
	if reservation.Status.IsTerminal() {
		return apperrors.NewValidation(apperrors.CodeInvalidStateTransition, "status",
			fmt.Sprintf("状态为 %s 的预约不可取消", reservation.Status))
	}

	if !actor.IsAdmin() && actor.UserID != reservation.UserID {
		return apperrors.NewValidation(apperrors.CodeNotPermitted, "",
			"只能取消自己的预约")
	}

	// 取消窗口对所有人生效，恰好在截止时刻仍可取消
	cutoff := reservation.StartsAt.Add(-time.Duration(settings.CancelCutoffHours) * time.Hour)
	if s.nowFn().UTC().After(cutoff) {
		return apperrors.NewValidation(apperrors.CodeCancellationWindowClosed, "",
			fmt.Sprintf("开始前 %d 小时内不可取消", settings.CancelCutoffHours))
	}

	return nil
}

// ────────────────────── 内部检查 ──────────────────────

func (s *rulesService) checkLeadTime(now, startsAt time.Time, settings *BookingSettings) error {
	minStart := now.Add(time.Duration(settings.LeadTimeMinHours) * time.Hour)
	if startsAt.Before(minStart) {
		return apperrors.NewValidation(apperrors.CodeLeadTimeViolation, "starts_at",
			fmt.Sprintf("预约需至少提前 %d 小时提交", settings.LeadTimeMinHours))
	}

	maxStart := now.AddDate(0, 0, settings.LeadTimeMaxDays)
	if startsAt.After(maxStart) {
		return apperrors.NewValidation(apperrors.CodeLeadTimeViolation, "starts_at",
			fmt.Sprintf("最多只能预约未来 %d 天内的时段", settings.LeadTimeMaxDays))
	}

	return nil
}

func (s *rulesService) checkOpeningHours(startsAt, endsAt time.Time, settings *BookingSettings) error {
	loc, err := settings.Location()
	if err != nil {
		return fmt.Errorf("加载时区失败: %w", err)
	}

	localStart := startsAt.In(loc)
	localEnd := endsAt.In(loc)

	// 跨天预约不在开放时间模型之内
	if localStart.Year() != localEnd.Year() || localStart.YearDay() != localEnd.YearDay() {
		// 恰好在当天 24:00 结束视作同一天
		midnight := time.Date(localStart.Year(), localStart.Month(), localStart.Day(), 0, 0, 0, 0, loc).AddDate(0, 0, 1)
		if !localEnd.Equal(midnight) {
			return apperrors.NewValidation(apperrors.CodeOutsideOpeningHours, "ends_at",
				"预约不能跨天")
		}
	}

	hours := settings.OpeningHours.For(localStart.Weekday())
	open, err1 := minutesOfDay(hours.Open)
	closeAt, err2 := minutesOfDay(hours.Close)
	if err1 != nil || err2 != nil {
		return fmt.Errorf("开放时间配置无效: %q-%q", hours.Open, hours.Close)
	}

	startMin := localStart.Hour()*60 + localStart.Minute()
	endMin := localEnd.Hour()*60 + localEnd.Minute()
	if endMin == 0 && !localEnd.Equal(localStart) {
		endMin = 24 * 60
	}

	if startMin < open || endMin > closeAt {
		return apperrors.NewValidation(apperrors.CodeOutsideOpeningHours, "starts_at",
			fmt.Sprintf("开放时间为 %s-%s", hours.Open, hours.Close))
	}

	return nil
}

func (s *rulesService) checkModeShape(startsAt, endsAt time.Time, settings *BookingSettings) error {
	loc, err := settings.Location()
	if err != nil {
		return fmt.Errorf("加载时区失败: %w", err)
	}
	// 秒级偏移会让时长与网格计算静默截断，直接拒绝
	if startsAt.Second() != 0 || startsAt.Nanosecond() != 0 ||
		endsAt.Second() != 0 || endsAt.Nanosecond() != 0 {
		return apperrors.NewValidation(apperrors.CodeInvalidModeShape, "starts_at",
			"预约时间须精确到分钟")
	}

	localStart := startsAt.In(loc)
	duration := int(endsAt.Sub(startsAt).Minutes())

	switch settings.BookingMode {
	case model.ModeFixedDuration:
		if duration != settings.SlotDurationMinutes {
			return apperrors.NewValidation(apperrors.CodeInvalidModeShape, "ends_at",
				fmt.Sprintf("当前模式下预约时长固定为 %d 分钟", settings.SlotDurationMinutes))
		}
		if err := s.checkStepAlignment(localStart, settings); err != nil {
			return err
		}

	case model.ModeVariableDuration:
		if duration < settings.MinDurationMinutes || duration > settings.MaxDurationMinutes {
			return apperrors.NewValidation(apperrors.CodeInvalidModeShape, "ends_at",
				fmt.Sprintf("预约时长须在 %d 到 %d 分钟之间",
					settings.MinDurationMinutes, settings.MaxDurationMinutes))
		}
		if settings.SlotStepMinutes > 0 && duration%settings.SlotStepMinutes != 0 {
			return apperrors.NewValidation(apperrors.CodeInvalidModeShape, "ends_at",
				fmt.Sprintf("预约时长须为 %d 分钟的整数倍", settings.SlotStepMinutes))
		}
		if err := s.checkStepAlignment(localStart, settings); err != nil {
			return err
		}

	case model.ModePredefinedBlocks:
		blocks := settings.PredefinedBlocks.For(localStart.Weekday())
		localEnd := endsAt.In(loc)
		startStr := localStart.Format("15:04")
		endStr := localEnd.Format("15:04")
		for _, block := range blocks {
			if block.Start == startStr && block.End == endStr {
				return nil
			}
		}
		return apperrors.NewValidation(apperrors.CodeInvalidModeShape, "starts_at",
			"所选时段不是当日的预定义时段块")

	default:
		return fmt.Errorf("未知的预约模式 %q", settings.BookingMode)
	}

	return nil
}

// checkStepAlignment 开始时刻须落在以当日开馆时间为锚的步长网格上
func (s *rulesService) checkStepAlignment(localStart time.Time, settings *BookingSettings) error {
	if settings.SlotStepMinutes <= 0 {
		return nil
	}
	hours := settings.OpeningHours.For(localStart.Weekday())
	open, err := minutesOfDay(hours.Open)
	if err != nil {
		return fmt.Errorf("开放时间配置无效: %q", hours.Open)
	}
	startMin := localStart.Hour()*60 + localStart.Minute()
	if (startMin-open)%settings.SlotStepMinutes != 0 {
		return apperrors.NewValidation(apperrors.CodeInvalidModeShape, "starts_at",
			fmt.Sprintf("开始时间须与 %d 分钟网格对齐", settings.SlotStepMinutes))
	}
	return nil
}

// ── 内部辅助方法 ──

// minutesOfDay 把 "15:04" 解析为当日分钟数
func minutesOfDay(hhmm string) (int, error) {
	t, err := time.Parse("15:04", hhmm)
	if err != nil {
		return 0, err
	}
	return t.Hour()*60 + t.Minute(), nil
}

// localWeekWindow 计算某 UTC 时刻在配置时区下所在自然周（周一起）的 UTC 窗口
func localWeekWindow(at time.Time, settings *BookingSettings) (time.Time, time.Time, error) {
	loc, err := settings.Location()
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("加载时区失败: %w", err)
	}
	local := at.In(loc)
	offset := (int(local.Weekday()) + 6) % 7 // 周一=0
	weekStart := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc).AddDate(0, 0, -offset)
	weekEnd := weekStart.AddDate(0, 0, 7)
	return weekStart.UTC(), weekEnd.UTC(), nil
}

func formatBaseLabel(baseYear int) string {
	return fmt.Sprintf("B%02d", baseYear%100)
}
