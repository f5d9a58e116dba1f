package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"github.com/jazz-17/reservation-system/internal/dto"
	"github.com/jazz-17/reservation-system/internal/model"
	"github.com/jazz-17/reservation-system/internal/repository"
	apperrors "github.com/jazz-17/reservation-system/pkg/errors"
)

// ErrReservationNotFound 预约不存在
var ErrReservationNotFound = errors.New("预约不存在")

// 过期预约的系统拒绝理由
const expiredReason = "待审批超时，系统自动作废"

// ArtifactDispatcher 产物执行器入口
// 由 worker 包实现；服务层只在事务提交后投递产物 ID。
type ArtifactDispatcher interface {
	EnqueuePDF(artifactID string)
	EnqueueEmail(artifactID string)
}

// ReservationService 预约生命周期业务接口
type ReservationService interface {
	// Create 学生提交预约（落库即 pending）
	Create(ctx context.Context, userID string, req *dto.CreateReservationRequest) (*dto.ReservationResponse, error)
	// GetByID 查询预约详情；学生只能查看自己的预约
	GetByID(ctx context.Context, actorID string, reservationID string) (*dto.ReservationResponse, error)
	// ListMine 当前用户的预约列表
	ListMine(ctx context.Context, userID string, req *dto.ReservationListRequest) ([]dto.ReservationResponse, int64, error)
	// ListAll 管理端预约列表（可按状态/时间窗筛选）
	ListAll(ctx context.Context, req *dto.ReservationListRequest) ([]dto.ReservationResponse, int64, error)
	// Approve 批准待审批预约，并登记确认产物
	Approve(ctx context.Context, adminID string, reservationID string, req *dto.DecideReservationRequest) (*dto.ReservationResponse, error)
	// Reject 拒绝待审批预约
	Reject(ctx context.Context, adminID string, reservationID string, req *dto.DecideReservationRequest) (*dto.ReservationResponse, error)
	// Cancel 取消预约（本人在取消窗口内，管理员随时）
	Cancel(ctx context.Context, actorID string, reservationID string, req *dto.CancelReservationRequest) (*dto.ReservationResponse, error)
	// ExpirePending 作废超过待审批时限的预约，返回作废数量
	ExpirePending(ctx context.Context, now time.Time) (int, error)
}

type reservationService struct {
	repo       *repository.Repository
	rules      RulesService
	settings   SettingsService
	dispatcher ArtifactDispatcher
	logger     *zap.Logger

	nowFn func() time.Time
}

// NewReservationService 创建 ReservationService 实例
func NewReservationService(repo *repository.Repository, rules RulesService, settings SettingsService,
	dispatcher ArtifactDispatcher, logger *zap.Logger) ReservationService {
	return &reservationService{
		repo:       repo,
		rules:      rules,
		settings:   settings,
		dispatcher: dispatcher,
		logger:     logger,
		nowFn:      time.Now,
	}
}

// ────────────────────── Create ──────────────────────

func (s *reservationService) Create(ctx context.Context, userID string, req *dto.CreateReservationRequest) (*dto.ReservationResponse, error) {
	user, err := s.repo.User.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, fmt.Errorf("用户不存在")
	}

	settings, err := s.settings.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	loc, err := settings.Location()
	if err != nil {
		return nil, fmt.Errorf("加载时区失败: %w", err)
	}

	startsAt, err := parseLocalTime(req.StartsAt, loc)
	if err != nil {
		return nil, apperrors.NewValidation(apperrors.CodeInvalidInterval, "starts_at",
			"开始时间格式无效")
	}

	var endsAt time.Time
	switch {
	case req.EndsAt != nil:
		endsAt, err = parseLocalTime(*req.EndsAt, loc)
		if err != nil {
			return nil, apperrors.NewValidation(apperrors.CodeInvalidInterval, "ends_at",
				"结束时间格式无效")
		}
	case settings.BookingMode == model.ModeFixedDuration:
		// 固定时长模式允许省略结束时间
		endsAt = startsAt.Add(time.Duration(settings.SlotDurationMinutes) * time.Minute)
	default:
		return nil, apperrors.NewValidation(apperrors.CodeInvalidInterval, "ends_at",
			"当前模式下必须提供结束时间")
	}

	if err := s.rules.ValidateForCreation(ctx, user, startsAt, endsAt, settings); err != nil {
		return nil, err
	}

	reservation := &model.Reservation{
		UserID:   user.UserID,
		Status:   model.StatusPending,
		StartsAt: startsAt.UTC(),
		EndsAt:   endsAt.UTC(),
		School:   user.School,
		BaseYear: user.BaseYear,
	}

	err = s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		if err := tx.Reservation.Create(ctx, reservation); err != nil {
			return err
		}
		recordAudit(ctx, tx, s.logger, "reservation.created", &user.UserID,
			strPtr("reservation"), &reservation.ReservationID, map[string]interface{}{
				"starts_at": reservation.StartsAt.Format(time.RFC3339),
				"ends_at":   reservation.EndsAt.Format(time.RFC3339),
			})
		return nil
	})
	if err != nil {
		// 排它约束兜底：并发写穿过应用层检查时由数据库挡住
		if isConflictError(err) {
			return nil, apperrors.NewValidation(apperrors.CodeSlotConflict, "starts_at",
				"所选时段已被占用")
		}
		s.logger.Error("创建预约失败", zap.Error(err))
		return nil, err
	}

	reservation.User = user
	resp := toReservationResponse(reservation)
	return &resp, nil
}

// ────────────────────── 查询 ──────────────────────

func (s *reservationService) GetByID(ctx context.Context, actorID string, reservationID string) (*dto.ReservationResponse, error) {
	reservation, err := s.repo.Reservation.GetByID(ctx, reservationID)
	if err != nil {
		return nil, err
	}
	if reservation == nil {
		return nil, ErrReservationNotFound
	}

	actor, err := s.repo.User.GetByID(ctx, actorID)
	if err != nil {
		return nil, err
	}
	if actor == nil || (!actor.IsAdmin() && reservation.UserID != actorID) {
		return nil, apperrors.NewValidation(apperrors.CodeNotPermitted, "", "无权查看该预约")
	}

	resp := toReservationResponse(reservation)
	return &resp, nil
}

func (s *reservationService) ListMine(ctx context.Context, userID string, req *dto.ReservationListRequest) ([]dto.ReservationResponse, int64, error) {
	filter, err := buildFilter(req)
	if err != nil {
		return nil, 0, err
	}
	filter.UserID = userID
	return s.list(ctx, filter)
}

func (s *reservationService) ListAll(ctx context.Context, req *dto.ReservationListRequest) ([]dto.ReservationResponse, int64, error) {
	filter, err := buildFilter(req)
	if err != nil {
		return nil, 0, err
	}
	return s.list(ctx, filter)
}

func (s *reservationService) list(ctx context.Context, filter repository.ReservationFilter) ([]dto.ReservationResponse, int64, error) {
	reservations, total, err := s.repo.Reservation.List(ctx, filter)
	if err != nil {
		s.logger.Error("查询预约列表失败", zap.Error(err))
		return nil, 0, err
	}
	out := make([]dto.ReservationResponse, 0, len(reservations))
	for i := range reservations {
		out = append(out, toReservationResponse(&reservations[i]))
	}
	return out, total, nil
}

// ────────────────────── Approve / Reject ──────────────────────

func (s *reservationService) Approve(ctx context.Context, adminID string, reservationID string, req *dto.DecideReservationRequest) (*dto.ReservationResponse, error) {
	settings, err := s.settings.Snapshot(ctx)
	if err != nil {
		return nil, err
	}

	var (
		updated     *model.Reservation
		pdfID       string
		emailIDs    []string
		decidedAt   = s.nowFn().UTC()
		decisionRsn = reasonOrNil(req)
	)

	err = s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		reservation, err := tx.Reservation.GetByID(ctx, reservationID)
		if err != nil {
			return err
		}
		if reservation == nil {
			return ErrReservationNotFound
		}
		if reservation.Status != model.StatusPending {
			return apperrors.NewValidation(apperrors.CodeInvalidStateTransition, "status",
				fmt.Sprintf("状态为 %s 的预约不可批准", reservation.Status))
		}

		// 窗口期间可能出现新的已批准预约或停用期，审批前重查
		if err := s.rules.ValidateForApproval(ctx, reservation, settings); err != nil {
			return err
		}

		reservation.Status = model.StatusApproved
		reservation.DecidedBy = &adminID
		reservation.DecidedAt = &decidedAt
		reservation.DecisionReason = decisionRsn
		if err := tx.Reservation.Update(ctx, reservation); err != nil {
			return err
		}

		// 确认产物：PDF + 管理员通知 +（可选）用户通知
		pdf, err := tx.Artifact.Upsert(ctx, reservation.ReservationID, model.ArtifactPDF,
			mustPayload(model.ArtifactPayload{Event: "approved", Template: settings.PDFTemplate}))
		if err != nil {
			return err
		}
		pdfID = pdf.ArtifactID

		if len(settings.NotifyAdminEmails.To) > 0 {
			adminMail, err := tx.Artifact.Upsert(ctx, reservation.ReservationID, model.ArtifactEmailAdmin,
				mustPayload(model.ArtifactPayload{
					Event: "approved",
					To:    settings.NotifyAdminEmails.To,
					Cc:    settings.NotifyAdminEmails.Cc,
					Bcc:   settings.NotifyAdminEmails.Bcc,
				}))
			if err != nil {
				return err
			}
			emailIDs = append(emailIDs, adminMail.ArtifactID)
		}
		if settings.NotifyUserOnDecision && reservation.User != nil {
			userMail, err := tx.Artifact.Upsert(ctx, reservation.ReservationID, model.ArtifactEmailUser,
				mustPayload(model.ArtifactPayload{Event: "approved", To: []string{reservation.User.Email}}))
			if err != nil {
				return err
			}
			emailIDs = append(emailIDs, userMail.ArtifactID)
		}

		recordAudit(ctx, tx, s.logger, "reservation.approved", &adminID,
			strPtr("reservation"), &reservation.ReservationID, auditDecisionMeta(decisionRsn))

		updated = reservation
		return nil
	})
	if err != nil {
		if isConflictError(err) {
			return nil, apperrors.NewValidation(apperrors.CodeSlotConflict, "starts_at",
				"该时段已有其他已批准的预约")
		}
		return nil, err
	}

	// 产物执行必须在事务提交之后投递，Worker 才能读到已落库的行
	s.dispatcher.EnqueuePDF(pdfID)
	for _, id := range emailIDs {
		s.dispatcher.EnqueueEmail(id)
	}

	resp := toReservationResponse(updated)
	return &resp, nil
}

func (s *reservationService) Reject(ctx context.Context, adminID string, reservationID string, req *dto.DecideReservationRequest) (*dto.ReservationResponse, error) {
	settings, err := s.settings.Snapshot(ctx)
	if err != nil {
		return nil, err
	}

	var (
		updated     *model.Reservation
		emailIDs    []string
		decidedAt   = s.nowFn().UTC()
		decisionRsn = reasonOrNil(req)
	)

	err = s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		reservation, err := tx.Reservation.GetByID(ctx, reservationID)
		if err != nil {
			return err
		}
		if reservation == nil {
			return ErrReservationNotFound
		}
		if reservation.Status != model.StatusPending {
			return apperrors.NewValidation(apperrors.CodeInvalidStateTransition, "status",
				fmt.Sprintf("状态为 %s 的预约不可拒绝", reservation.Status))
		}

		reservation.Status = model.StatusRejected
		reservation.DecidedBy = &adminID
		reservation.DecidedAt = &decidedAt
		reservation.DecisionReason = decisionRsn
		if err := tx.Reservation.Update(ctx, reservation); err != nil {
			return err
		}

		if len(settings.NotifyAdminEmails.To) > 0 {
			adminMail, err := tx.Artifact.Upsert(ctx, reservation.ReservationID, model.ArtifactEmailAdmin,
				mustPayload(model.ArtifactPayload{
					Event: "rejected",
					To:    settings.NotifyAdminEmails.To,
					Cc:    settings.NotifyAdminEmails.Cc,
					Bcc:   settings.NotifyAdminEmails.Bcc,
				}))
			if err != nil {
				return err
			}
			emailIDs = append(emailIDs, adminMail.ArtifactID)
		}
		if settings.NotifyUserOnDecision && reservation.User != nil {
			userMail, err := tx.Artifact.Upsert(ctx, reservation.ReservationID, model.ArtifactEmailUser,
				mustPayload(model.ArtifactPayload{Event: "rejected", To: []string{reservation.User.Email}}))
			if err != nil {
				return err
			}
			emailIDs = append(emailIDs, userMail.ArtifactID)
		}

		recordAudit(ctx, tx, s.logger, "reservation.rejected", &adminID,
			strPtr("reservation"), &reservation.ReservationID, auditDecisionMeta(decisionRsn))

		updated = reservation
		return nil
	})
	if err != nil {
		return nil, err
	}

	for _, id := range emailIDs {
		s.dispatcher.EnqueueEmail(id)
	}

	resp := toReservationResponse(updated)
	return &resp, nil
}

// ────────────────────── Cancel ──────────────────────

func (s *reservationService) Cancel(ctx context.Context, actorID string, reservationID string, req *dto.CancelReservationRequest) (*dto.ReservationResponse, error) {
	actor, err := s.repo.User.GetByID(ctx, actorID)
	if err != nil {
		return nil, err
	}
	if actor == nil {
		return nil, fmt.Errorf("用户不存在")
	}

	settings, err := s.settings.Snapshot(ctx)
	if err != nil {
		return nil, err
	}

	var (
		updated     *model.Reservation
		emailIDs    []string
		cancelledAt = s.nowFn().UTC()
	)

	err = s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		reservation, err := tx.Reservation.GetByID(ctx, reservationID)
		if err != nil {
			return err
		}
		if reservation == nil {
			return ErrReservationNotFound
		}

		if err := s.rules.ValidateCancellation(actor, reservation, settings); err != nil {
			return err
		}

		reservation.Status = model.StatusCancelled
		reservation.CancelledBy = &actorID
		reservation.CancelledAt = &cancelledAt
		if req != nil {
			reservation.CancellationReason = req.Reason
		}
		if err := tx.Reservation.Update(ctx, reservation); err != nil {
			return err
		}

		if len(settings.NotifyAdminEmails.To) > 0 {
			adminMail, err := tx.Artifact.Upsert(ctx, reservation.ReservationID, model.ArtifactEmailAdmin,
				mustPayload(model.ArtifactPayload{
					Event: "cancelled",
					To:    settings.NotifyAdminEmails.To,
					Cc:    settings.NotifyAdminEmails.Cc,
					Bcc:   settings.NotifyAdminEmails.Bcc,
				}))
			if err != nil {
				return err
			}
			emailIDs = append(emailIDs, adminMail.ArtifactID)
		}
		if settings.NotifyUserOnDecision && reservation.User != nil {
			userMail, err := tx.Artifact.Upsert(ctx, reservation.ReservationID, model.ArtifactEmailUser,
				mustPayload(model.ArtifactPayload{Event: "cancelled", To: []string{reservation.User.Email}}))
			if err != nil {
				return err
			}
			emailIDs = append(emailIDs, userMail.ArtifactID)
		}

		recordAudit(ctx, tx, s.logger, "reservation.cancelled", &actorID,
			strPtr("reservation"), &reservation.ReservationID, nil)

		updated = reservation
		return nil
	})
	if err != nil {
		return nil, err
	}

	for _, id := range emailIDs {
		s.dispatcher.EnqueueEmail(id)
	}

	resp := toReservationResponse(updated)
	return &resp, nil
}

// ────────────────────── ExpirePending ──────────────────────

func (s *reservationService) ExpirePending(ctx context.Context, now time.Time) (int, error) {
	settings, err := s.settings.Snapshot(ctx)
	if err != nil {
		return 0, err
	}

	cutoff := now.UTC().Add(-time.Duration(settings.PendingExpirationHours) * time.Hour)
	stale, err := s.repo.Reservation.ListPendingCreatedBefore(ctx, cutoff)
	if err != nil {
		s.logger.Error("查询过期待审批预约失败", zap.Error(err))
		return 0, err
	}

	expired := 0
	var emailIDs []string
	for i := range stale {
		reservation := &stale[i]
		err := s.repo.Transaction(ctx, func(tx *repository.Repository) error {
			current, err := tx.Reservation.GetByID(ctx, reservation.ReservationID)
			if err != nil {
				return err
			}
			// 扫描与人工审批可能并发，状态已变则跳过
			if current == nil || current.Status != model.StatusPending {
				return nil
			}

			decidedAt := now.UTC()
			reason := expiredReason
			current.Status = model.StatusRejected
			current.DecidedAt = &decidedAt
			current.DecisionReason = &reason
			if err := tx.Reservation.Update(ctx, current); err != nil {
				return err
			}

			if len(settings.NotifyAdminEmails.To) > 0 {
				adminMail, err := tx.Artifact.Upsert(ctx, current.ReservationID, model.ArtifactEmailAdmin,
					mustPayload(model.ArtifactPayload{
						Event: "expired",
						To:    settings.NotifyAdminEmails.To,
						Cc:    settings.NotifyAdminEmails.Cc,
						Bcc:   settings.NotifyAdminEmails.Bcc,
					}))
				if err != nil {
					return err
				}
				emailIDs = append(emailIDs, adminMail.ArtifactID)
			}
			if settings.NotifyUserOnDecision && current.User != nil {
				userMail, err := tx.Artifact.Upsert(ctx, current.ReservationID, model.ArtifactEmailUser,
					mustPayload(model.ArtifactPayload{Event: "expired", To: []string{current.User.Email}}))
				if err != nil {
					return err
				}
				emailIDs = append(emailIDs, userMail.ArtifactID)
			}

			recordAudit(ctx, tx, s.logger, "reservation.expired", nil,
				strPtr("reservation"), &current.ReservationID, nil)

			expired++
			return nil
		})
		if err != nil {
			// 单条失败不应阻断整轮扫描
			s.logger.Error("作废过期预约失败",
				zap.String("reservation_id", reservation.ReservationID), zap.Error(err))
		}
	}

	for _, id := range emailIDs {
		s.dispatcher.EnqueueEmail(id)
	}

	if expired > 0 {
		s.logger.Info("过期扫描完成", zap.Int("expired", expired))
	}
	return expired, nil
}

// ── 内部辅助方法 ──

// isConflictError 识别数据库层的排它/唯一约束冲突
func isConflictError(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23P01" || pgErr.Code == "23505"
	}
	return false
}

func mustPayload(payload model.ArtifactPayload) datatypes.JSON {
	raw, _ := json.Marshal(payload)
	return datatypes.JSON(raw)
}

func strPtr(s string) *string { return &s }

func reasonOrNil(req *dto.DecideReservationRequest) *string {
	if req == nil || req.Reason == nil || *req.Reason == "" {
		return nil
	}
	return req.Reason
}

func auditDecisionMeta(reason *string) map[string]interface{} {
	if reason == nil {
		return nil
	}
	return map[string]interface{}{"reason": *reason}
}

// parseLocalTime 解析请求中的时间：带时区的 RFC3339 原样采用，
// 否则按配置时区解释 "2006-01-02 15:04" / "2006-01-02T15:04"。
func parseLocalTime(value string, loc *time.Location) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}
	for _, layout := range []string{"2006-01-02 15:04", "2006-01-02T15:04"} {
		if t, err := time.ParseInLocation(layout, value, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("无法解析时间 %q", value)
}

func buildFilter(req *dto.ReservationListRequest) (repository.ReservationFilter, error) {
	filter := repository.ReservationFilter{
		Page:     req.Page,
		PageSize: req.PageSize,
	}
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize < 1 || filter.PageSize > 100 {
		filter.PageSize = 20
	}
	if req.Status != "" {
		filter.Status = model.ReservationStatus(req.Status)
	}
	if req.From != "" {
		from, err := time.Parse("2006-01-02", req.From)
		if err != nil {
			return filter, fmt.Errorf("日期格式应为 YYYY-MM-DD: %w", err)
		}
		filter.From = &from
	}
	if req.To != "" {
		to, err := time.Parse("2006-01-02", req.To)
		if err != nil {
			return filter, fmt.Errorf("日期格式应为 YYYY-MM-DD: %w", err)
		}
		end := to.AddDate(0, 0, 1)
		filter.To = &end
	}
	return filter, nil
}

func toReservationResponse(reservation *model.Reservation) dto.ReservationResponse {
	resp := dto.ReservationResponse{
		ID:                 reservation.ReservationID,
		Status:             string(reservation.Status),
		StartsAt:           reservation.StartsAt.UTC().Format(time.RFC3339),
		EndsAt:             reservation.EndsAt.UTC().Format(time.RFC3339),
		School:             reservation.School,
		BaseLabel:          reservation.BaseLabel(),
		DecidedBy:          reservation.DecidedBy,
		DecisionReason:     reservation.DecisionReason,
		CancelledBy:        reservation.CancelledBy,
		CancellationReason: reservation.CancellationReason,
		CreatedAt:          reservation.CreatedAt.UTC().Format(time.RFC3339),
	}
	if reservation.DecidedAt != nil {
		decidedAt := reservation.DecidedAt.UTC().Format(time.RFC3339)
		resp.DecidedAt = &decidedAt
	}
	if reservation.CancelledAt != nil {
		cancelledAt := reservation.CancelledAt.UTC().Format(time.RFC3339)
		resp.CancelledAt = &cancelledAt
	}
	if reservation.User != nil {
		resp.User = &dto.UserResponse{
			ID:       reservation.User.UserID,
			Name:     reservation.User.Name,
			Email:    reservation.User.Email,
			Role:     reservation.User.Role,
			School:   reservation.User.School,
			BaseYear: reservation.User.BaseYear,
		}
	}
	return resp
}
