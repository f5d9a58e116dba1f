package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/datatypes"

	"github.com/jazz-17/reservation-system/internal/dto"
	"github.com/jazz-17/reservation-system/internal/model"
	"github.com/jazz-17/reservation-system/internal/repository"
)

// ── 设置键 ──

const (
	SettingTimezone             = "timezone"
	SettingOpeningHours         = "opening_hours"
	SettingBookingMode          = "booking_mode"
	SettingSlotDurationMinutes  = "slot_duration_minutes"
	SettingSlotStepMinutes      = "slot_step_minutes"
	SettingMinDurationMinutes   = "min_duration_minutes"
	SettingMaxDurationMinutes   = "max_duration_minutes"
	SettingLeadTimeMinHours     = "lead_time_min_hours"
	SettingLeadTimeMaxDays      = "lead_time_max_days"
	SettingMaxActivePerUser     = "max_active_reservations_per_user"
	SettingWeeklyQuotaPerGroup  = "weekly_quota_per_group"
	SettingPendingExpiration    = "pending_expiration_hours"
	SettingCancelCutoffHours    = "cancel_cutoff_hours"
	SettingNotifyAdminEmails    = "notify_admin_emails"
	SettingNotifyUserOnDecision = "notify_user_on_decision"
	SettingPDFTemplate          = "pdf_template"
	SettingPredefinedBlocks     = "predefined_blocks"
	SettingBlockingStatuses     = "blocking_statuses"
)

// ── 强类型设置结构 ──

// DayHours 单日开放时间（"15:04" 格式的本地时刻）
type DayHours struct {
	Open  string `json:"open"`
	Close string `json:"close"`
}

// OpeningHours 每周开放时间，逐日命名字段
type OpeningHours struct {
	Mon DayHours `json:"mon"`
	Tue DayHours `json:"tue"`
	Wed DayHours `json:"wed"`
	Thu DayHours `json:"thu"`
	Fri DayHours `json:"fri"`
	Sat DayHours `json:"sat"`
	Sun DayHours `json:"sun"`
}

// For 返回指定星期的开放时间
func (o OpeningHours) For(weekday time.Weekday) DayHours {
	switch weekday {
	case time.Monday:
		return o.Mon
	case time.Tuesday:
		return o.Tue
	case time.Wednesday:
		return o.Wed
	case time.Thursday:
		return o.Thu
	case time.Friday:
		return o.Fri
	case time.Saturday:
		return o.Sat
	default:
		return o.Sun
	}
}

// Block 预定义时段块
type Block struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// WeekBlocks 每周预定义块
type WeekBlocks struct {
	Mon []Block `json:"mon"`
	Tue []Block `json:"tue"`
	Wed []Block `json:"wed"`
	Thu []Block `json:"thu"`
	Fri []Block `json:"fri"`
	Sat []Block `json:"sat"`
	Sun []Block `json:"sun"`
}

// For 返回指定星期的块列表
func (w WeekBlocks) For(weekday time.Weekday) []Block {
	switch weekday {
	case time.Monday:
		return w.Mon
	case time.Tuesday:
		return w.Tue
	case time.Wednesday:
		return w.Wed
	case time.Thursday:
		return w.Thu
	case time.Friday:
		return w.Fri
	case time.Saturday:
		return w.Sat
	default:
		return w.Sun
	}
}

// Recipients 通知收件人列表
type Recipients struct {
	To  []string `json:"to"`
	Cc  []string `json:"cc"`
	Bcc []string `json:"bcc"`
}

// BookingSettings 预约设置合并视图（默认值 + 持久化覆盖）
type BookingSettings struct {
	Timezone                     string
	OpeningHours                 OpeningHours
	BookingMode                  model.BookingMode
	SlotDurationMinutes          int
	SlotStepMinutes              int
	MinDurationMinutes           int
	MaxDurationMinutes           int
	LeadTimeMinHours             int
	LeadTimeMaxDays              int
	MaxActiveReservationsPerUser int
	WeeklyQuotaPerGroup          int
	PendingExpirationHours       int
	CancelCutoffHours            int
	NotifyAdminEmails            Recipients
	NotifyUserOnDecision         bool
	PDFTemplate                  string
	PredefinedBlocks             WeekBlocks
	BlockingStatuses             model.BlockingPolicy
}

// Location 解析配置的时区
func (s *BookingSettings) Location() (*time.Location, error) {
	return time.LoadLocation(s.Timezone)
}

// defaultSettings 进程内默认值；持久化覆盖按键合并其上
func defaultSettings() *BookingSettings {
	allDay := DayHours{Open: "08:00", Close: "22:00"}
	return &BookingSettings{
		Timezone: "America/Lima",
		OpeningHours: OpeningHours{
			Mon: allDay, Tue: allDay, Wed: allDay, Thu: allDay,
			Fri: allDay, Sat: allDay, Sun: allDay,
		},
		BookingMode:                  model.ModeFixedDuration,
		SlotDurationMinutes:          60,
		SlotStepMinutes:              30,
		MinDurationMinutes:           60,
		MaxDurationMinutes:           120,
		LeadTimeMinHours:             2,
		LeadTimeMaxDays:              30,
		MaxActiveReservationsPerUser: 1,
		WeeklyQuotaPerGroup:          2,
		PendingExpirationHours:       24,
		CancelCutoffHours:            2,
		NotifyAdminEmails:            Recipients{To: []string{}, Cc: []string{}, Bcc: []string{}},
		NotifyUserOnDecision:         true,
		PDFTemplate:                  "default",
		PredefinedBlocks:             WeekBlocks{},
		BlockingStatuses:             model.PolicyPendingApproved,
	}
}

// ── 设置模块业务错误 ──

var ErrInvalidSetting = errors.New("设置值无效")

// SettingsService 运行时设置业务接口
// 核心组件只读（Snapshot / 类型化读取）；写入仅来自管理端 SetMany。
type SettingsService interface {
	// Snapshot 返回合并后的强类型设置视图
	Snapshot(ctx context.Context) (*BookingSettings, error)
	// GetString / GetInt / GetBool 按键读取单个设置（含默认值回退）
	GetString(ctx context.Context, key string) (string, error)
	GetInt(ctx context.Context, key string) (int, error)
	GetBool(ctx context.Context, key string) (bool, error)
	// All 全量设置响应
	All(ctx context.Context) (*dto.SettingsResponse, error)
	// SetMany 批量更新设置并记录变更审计
	SetMany(ctx context.Context, req *dto.UpdateSettingsRequest, actorID string) (*dto.SettingsResponse, error)
}

type settingsService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewSettingsService 创建 SettingsService 实例
func NewSettingsService(repo *repository.Repository, logger *zap.Logger) SettingsService {
	return &settingsService{repo: repo, logger: logger}
}

// ────────────────────── Snapshot ──────────────────────

func (s *settingsService) Snapshot(ctx context.Context) (*BookingSettings, error) {
	merged := defaultSettings()

	rows, err := s.repo.Setting.GetAll(ctx)
	if err != nil {
		s.logger.Error("读取设置失败", zap.Error(err))
		return nil, err
	}

	for i := range rows {
		if err := applyOverride(merged, rows[i].Key, rows[i].Value); err != nil {
			// 个别损坏的覆盖值不应放大为整体失败，回退默认值
			s.logger.Warn("设置覆盖值无法解析，使用默认值",
				zap.String("key", rows[i].Key), zap.Error(err))
		}
	}

	return merged, nil
}

// applyOverride 将一条持久化覆盖值合并进设置视图
func applyOverride(settings *BookingSettings, key string, raw []byte) error {
	switch key {
	case SettingTimezone:
		return json.Unmarshal(raw, &settings.Timezone)
	case SettingOpeningHours:
		return json.Unmarshal(raw, &settings.OpeningHours)
	case SettingBookingMode:
		var mode model.BookingMode
		if err := json.Unmarshal(raw, &mode); err != nil {
			return err
		}
		if !mode.Valid() {
			return fmt.Errorf("未知的预约模式 %q", mode)
		}
		settings.BookingMode = mode
		return nil
	case SettingSlotDurationMinutes:
		return json.Unmarshal(raw, &settings.SlotDurationMinutes)
	case SettingSlotStepMinutes:
		return json.Unmarshal(raw, &settings.SlotStepMinutes)
	case SettingMinDurationMinutes:
		return json.Unmarshal(raw, &settings.MinDurationMinutes)
	case SettingMaxDurationMinutes:
		return json.Unmarshal(raw, &settings.MaxDurationMinutes)
	case SettingLeadTimeMinHours:
		return json.Unmarshal(raw, &settings.LeadTimeMinHours)
	case SettingLeadTimeMaxDays:
		return json.Unmarshal(raw, &settings.LeadTimeMaxDays)
	case SettingMaxActivePerUser:
		return json.Unmarshal(raw, &settings.MaxActiveReservationsPerUser)
	case SettingWeeklyQuotaPerGroup:
		return json.Unmarshal(raw, &settings.WeeklyQuotaPerGroup)
	case SettingPendingExpiration:
		return json.Unmarshal(raw, &settings.PendingExpirationHours)
	case SettingCancelCutoffHours:
		return json.Unmarshal(raw, &settings.CancelCutoffHours)
	case SettingNotifyAdminEmails:
		return json.Unmarshal(raw, &settings.NotifyAdminEmails)
	case SettingNotifyUserOnDecision:
		return json.Unmarshal(raw, &settings.NotifyUserOnDecision)
	case SettingPDFTemplate:
		return json.Unmarshal(raw, &settings.PDFTemplate)
	case SettingPredefinedBlocks:
		return json.Unmarshal(raw, &settings.PredefinedBlocks)
	case SettingBlockingStatuses:
		var policy model.BlockingPolicy
		if err := json.Unmarshal(raw, &policy); err != nil {
			return err
		}
		if policy != model.PolicyPendingApproved && policy != model.PolicyApprovedOnly {
			return fmt.Errorf("未知的占用策略 %q", policy)
		}
		settings.BlockingStatuses = policy
		return nil
	default:
		return fmt.Errorf("未知的设置键 %q", key)
	}
}

// ────────────────────── 类型化读取 ──────────────────────

func (s *settingsService) getRaw(ctx context.Context, key string) (interface{}, error) {
	settings, err := s.Snapshot(ctx)
	if err != nil {
		return nil, err
	}

	switch key {
	case SettingTimezone:
		return settings.Timezone, nil
	case SettingBookingMode:
		return string(settings.BookingMode), nil
	case SettingPDFTemplate:
		return settings.PDFTemplate, nil
	case SettingBlockingStatuses:
		return string(settings.BlockingStatuses), nil
	case SettingSlotDurationMinutes:
		return settings.SlotDurationMinutes, nil
	case SettingSlotStepMinutes:
		return settings.SlotStepMinutes, nil
	case SettingMinDurationMinutes:
		return settings.MinDurationMinutes, nil
	case SettingMaxDurationMinutes:
		return settings.MaxDurationMinutes, nil
	case SettingLeadTimeMinHours:
		return settings.LeadTimeMinHours, nil
	case SettingLeadTimeMaxDays:
		return settings.LeadTimeMaxDays, nil
	case SettingMaxActivePerUser:
		return settings.MaxActiveReservationsPerUser, nil
	case SettingWeeklyQuotaPerGroup:
		return settings.WeeklyQuotaPerGroup, nil
	case SettingPendingExpiration:
		return settings.PendingExpirationHours, nil
	case SettingCancelCutoffHours:
		return settings.CancelCutoffHours, nil
	case SettingNotifyUserOnDecision:
		return settings.NotifyUserOnDecision, nil
	default:
		return nil, fmt.Errorf("%w: 未知的设置键 %q", ErrInvalidSetting, key)
	}
}

func (s *settingsService) GetString(ctx context.Context, key string) (string, error) {
	v, err := s.getRaw(ctx, key)
	if err != nil {
		return "", err
	}
	str, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("%w: %q 不是字符串", ErrInvalidSetting, key)
	}
	return str, nil
}

func (s *settingsService) GetInt(ctx context.Context, key string) (int, error) {
	v, err := s.getRaw(ctx, key)
	if err != nil {
		return 0, err
	}
	n, ok := v.(int)
	if !ok {
		return 0, fmt.Errorf("%w: %q 不是整数", ErrInvalidSetting, key)
	}
	return n, nil
}

func (s *settingsService) GetBool(ctx context.Context, key string) (bool, error) {
	v, err := s.getRaw(ctx, key)
	if err != nil {
		return false, err
	}
	b, ok := v.(bool)
	if !ok {
		return false, fmt.Errorf("%w: %q 不是布尔值", ErrInvalidSetting, key)
	}
	return b, nil
}

// ────────────────────── All ──────────────────────

func (s *settingsService) All(ctx context.Context) (*dto.SettingsResponse, error) {
	settings, err := s.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return toSettingsResponse(settings), nil
}

// ────────────────────── SetMany ──────────────────────

func (s *settingsService) SetMany(ctx context.Context, req *dto.UpdateSettingsRequest, actorID string) (*dto.SettingsResponse, error) {
	current, err := s.Snapshot(ctx)
	if err != nil {
		return nil, err
	}

	updates, err := collectUpdates(req)
	if err != nil {
		return nil, err
	}

	var changedKeys []string
	for key, value := range updates {
		raw, err := json.Marshal(value)
		if err != nil {
			return nil, fmt.Errorf("序列化设置 %q 失败: %w", key, err)
		}

		// 与当前合并视图比较，仅记录真正变化的键
		trial := *current
		if err := applyOverride(&trial, key, raw); err != nil {
			return nil, fmt.Errorf("%w: %s", ErrInvalidSetting, err)
		}
		prevRaw, _ := marshalCurrent(current, key)
		if string(prevRaw) != string(raw) {
			changedKeys = append(changedKeys, key)
		}

		if err := s.repo.Setting.Upsert(ctx, key, datatypes.JSON(raw), actorID); err != nil {
			s.logger.Error("写入设置失败", zap.String("key", key), zap.Error(err))
			return nil, err
		}
		*current = trial
	}

	if len(changedKeys) > 0 {
		recordAudit(ctx, s.repo, s.logger, "settings.updated", &actorID, nil, nil, map[string]interface{}{
			"changed_keys": changedKeys,
		})
	}

	return toSettingsResponse(current), nil
}

// collectUpdates 将部分更新请求展开为键值对并做边界校验
func collectUpdates(req *dto.UpdateSettingsRequest) (map[string]interface{}, error) {
	updates := make(map[string]interface{})

	if req.Timezone != nil {
		if _, err := time.LoadLocation(*req.Timezone); err != nil {
			return nil, fmt.Errorf("%w: 无法识别的时区 %q", ErrInvalidSetting, *req.Timezone)
		}
		updates[SettingTimezone] = *req.Timezone
	}
	if req.OpeningHours != nil {
		if err := validateOpeningHours(req.OpeningHours); err != nil {
			return nil, err
		}
		updates[SettingOpeningHours] = *req.OpeningHours
	}
	if req.BookingMode != nil {
		updates[SettingBookingMode] = *req.BookingMode
	}
	if req.SlotDurationMinutes != nil {
		updates[SettingSlotDurationMinutes] = *req.SlotDurationMinutes
	}
	if req.SlotStepMinutes != nil {
		updates[SettingSlotStepMinutes] = *req.SlotStepMinutes
	}
	if req.MinDurationMinutes != nil {
		updates[SettingMinDurationMinutes] = *req.MinDurationMinutes
	}
	if req.MaxDurationMinutes != nil {
		updates[SettingMaxDurationMinutes] = *req.MaxDurationMinutes
	}
	if req.MinDurationMinutes != nil && req.MaxDurationMinutes != nil &&
		*req.MinDurationMinutes > *req.MaxDurationMinutes {
		return nil, fmt.Errorf("%w: min_duration_minutes 不能大于 max_duration_minutes", ErrInvalidSetting)
	}
	if req.LeadTimeMinHours != nil {
		updates[SettingLeadTimeMinHours] = *req.LeadTimeMinHours
	}
	if req.LeadTimeMaxDays != nil {
		updates[SettingLeadTimeMaxDays] = *req.LeadTimeMaxDays
	}
	if req.MaxActiveReservationsPerUser != nil {
		updates[SettingMaxActivePerUser] = *req.MaxActiveReservationsPerUser
	}
	if req.WeeklyQuotaPerGroup != nil {
		updates[SettingWeeklyQuotaPerGroup] = *req.WeeklyQuotaPerGroup
	}
	if req.PendingExpirationHours != nil {
		updates[SettingPendingExpiration] = *req.PendingExpirationHours
	}
	if req.CancelCutoffHours != nil {
		updates[SettingCancelCutoffHours] = *req.CancelCutoffHours
	}
	if req.NotifyAdminEmails != nil {
		updates[SettingNotifyAdminEmails] = normalizeRecipients(req.NotifyAdminEmails)
	}
	if req.NotifyUserOnDecision != nil {
		updates[SettingNotifyUserOnDecision] = *req.NotifyUserOnDecision
	}
	if req.PDFTemplate != nil {
		updates[SettingPDFTemplate] = *req.PDFTemplate
	}
	if req.PredefinedBlocks != nil {
		updates[SettingPredefinedBlocks] = *req.PredefinedBlocks
	}
	if req.BlockingStatuses != nil {
		updates[SettingBlockingStatuses] = *req.BlockingStatuses
	}

	return updates, nil
}

func validateOpeningHours(hours *dto.OpeningHoursDTO) error {
	days := []dto.DayHoursDTO{hours.Mon, hours.Tue, hours.Wed, hours.Thu, hours.Fri, hours.Sat, hours.Sun}
	for _, day := range days {
		open, err1 := time.Parse("15:04", day.Open)
		closeAt, err2 := time.Parse("15:04", day.Close)
		if err1 != nil || err2 != nil {
			return fmt.Errorf("%w: 开放时间格式应为 HH:MM", ErrInvalidSetting)
		}
		if !closeAt.After(open) {
			return fmt.Errorf("%w: 闭馆时间必须晚于开馆时间", ErrInvalidSetting)
		}
	}
	return nil
}

// normalizeRecipients 去除空串并保证三个列表非 nil
func normalizeRecipients(r *dto.RecipientsDTO) Recipients {
	clean := func(in []string) []string {
		out := make([]string, 0, len(in))
		for _, addr := range in {
			if addr != "" {
				out = append(out, addr)
			}
		}
		return out
	}
	return Recipients{To: clean(r.To), Cc: clean(r.Cc), Bcc: clean(r.Bcc)}
}

// marshalCurrent 取当前合并视图中某键的 JSON 表示，用于变更检测
func marshalCurrent(settings *BookingSettings, key string) ([]byte, error) {
	switch key {
	case SettingTimezone:
		return json.Marshal(settings.Timezone)
	case SettingOpeningHours:
		return json.Marshal(settings.OpeningHours)
	case SettingBookingMode:
		return json.Marshal(settings.BookingMode)
	case SettingSlotDurationMinutes:
		return json.Marshal(settings.SlotDurationMinutes)
	case SettingSlotStepMinutes:
		return json.Marshal(settings.SlotStepMinutes)
	case SettingMinDurationMinutes:
		return json.Marshal(settings.MinDurationMinutes)
	case SettingMaxDurationMinutes:
		return json.Marshal(settings.MaxDurationMinutes)
	case SettingLeadTimeMinHours:
		return json.Marshal(settings.LeadTimeMinHours)
	case SettingLeadTimeMaxDays:
		return json.Marshal(settings.LeadTimeMaxDays)
	case SettingMaxActivePerUser:
		return json.Marshal(settings.MaxActiveReservationsPerUser)
	case SettingWeeklyQuotaPerGroup:
		return json.Marshal(settings.WeeklyQuotaPerGroup)
	case SettingPendingExpiration:
		return json.Marshal(settings.PendingExpirationHours)
	case SettingCancelCutoffHours:
		return json.Marshal(settings.CancelCutoffHours)
	case SettingNotifyAdminEmails:
		return json.Marshal(settings.NotifyAdminEmails)
	case SettingNotifyUserOnDecision:
		return json.Marshal(settings.NotifyUserOnDecision)
	case SettingPDFTemplate:
		return json.Marshal(settings.PDFTemplate)
	case SettingPredefinedBlocks:
		return json.Marshal(settings.PredefinedBlocks)
	case SettingBlockingStatuses:
		return json.Marshal(settings.BlockingStatuses)
	default:
		return nil, fmt.Errorf("未知的设置键 %q", key)
	}
}

// ── 内部辅助方法 ──

func toSettingsResponse(settings *BookingSettings) *dto.SettingsResponse {
	toDayDTO := func(d DayHours) dto.DayHoursDTO {
		return dto.DayHoursDTO{Open: d.Open, Close: d.Close}
	}
	toBlocksDTO := func(blocks []Block) []dto.BlockDTO {
		out := make([]dto.BlockDTO, 0, len(blocks))
		for _, b := range blocks {
			out = append(out, dto.BlockDTO{Start: b.Start, End: b.End})
		}
		return out
	}

	return &dto.SettingsResponse{
		Timezone: settings.Timezone,
		OpeningHours: dto.OpeningHoursDTO{
			Mon: toDayDTO(settings.OpeningHours.Mon),
			Tue: toDayDTO(settings.OpeningHours.Tue),
			Wed: toDayDTO(settings.OpeningHours.Wed),
			Thu: toDayDTO(settings.OpeningHours.Thu),
			Fri: toDayDTO(settings.OpeningHours.Fri),
			Sat: toDayDTO(settings.OpeningHours.Sat),
			Sun: toDayDTO(settings.OpeningHours.Sun),
		},
		BookingMode:                  string(settings.BookingMode),
		SlotDurationMinutes:          settings.SlotDurationMinutes,
		SlotStepMinutes:              settings.SlotStepMinutes,
		MinDurationMinutes:           settings.MinDurationMinutes,
		MaxDurationMinutes:           settings.MaxDurationMinutes,
		LeadTimeMinHours:             settings.LeadTimeMinHours,
		LeadTimeMaxDays:              settings.LeadTimeMaxDays,
		MaxActiveReservationsPerUser: settings.MaxActiveReservationsPerUser,
		WeeklyQuotaPerGroup:          settings.WeeklyQuotaPerGroup,
		PendingExpirationHours:       settings.PendingExpirationHours,
		CancelCutoffHours:            settings.CancelCutoffHours,
		NotifyAdminEmails: dto.RecipientsDTO{
			To:  settings.NotifyAdminEmails.To,
			Cc:  settings.NotifyAdminEmails.Cc,
			Bcc: settings.NotifyAdminEmails.Bcc,
		},
		NotifyUserOnDecision: settings.NotifyUserOnDecision,
		PDFTemplate:          settings.PDFTemplate,
		PredefinedBlocks: dto.WeekBlocksDTO{
			Mon: toBlocksDTO(settings.PredefinedBlocks.Mon),
			Tue: toBlocksDTO(settings.PredefinedBlocks.Tue),
			Wed: toBlocksDTO(settings.PredefinedBlocks.Wed),
			Thu: toBlocksDTO(settings.PredefinedBlocks.Thu),
			Fri: toBlocksDTO(settings.PredefinedBlocks.Fri),
			Sat: toBlocksDTO(settings.PredefinedBlocks.Sat),
			Sun: toBlocksDTO(settings.PredefinedBlocks.Sun),
		},
		BlockingStatuses: string(settings.BlockingStatuses),
	}
}
