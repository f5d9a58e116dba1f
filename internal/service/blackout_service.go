package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/jazz-17/reservation-system/internal/dto"
	"github.com/jazz-17/reservation-system/internal/model"
	"github.com/jazz-17/reservation-system/internal/repository"
	apperrors "github.com/jazz-17/reservation-system/pkg/errors"
)

// ErrBlackoutNotFound 停用时段不存在
var ErrBlackoutNotFound = errors.New("停用时段不存在")

// BlackoutService 停用时段管理接口（管理端）
type BlackoutService interface {
	Create(ctx context.Context, adminID string, req *dto.CreateBlackoutRequest) (*dto.BlackoutResponse, error)
	List(ctx context.Context) ([]dto.BlackoutResponse, error)
	Delete(ctx context.Context, adminID string, blackoutID string) error
}

type blackoutService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewBlackoutService 创建 BlackoutService 实例
func NewBlackoutService(repo *repository.Repository, logger *zap.Logger) BlackoutService {
	return &blackoutService{repo: repo, logger: logger}
}

func (s *blackoutService) Create(ctx context.Context, adminID string, req *dto.CreateBlackoutRequest) (*dto.BlackoutResponse, error) {
	startsAt, err := time.Parse(time.RFC3339, req.StartsAt)
	if err != nil {
		return nil, apperrors.NewValidation(apperrors.CodeInvalidInterval, "starts_at",
			"开始时间格式应为 RFC3339")
	}
	endsAt, err := time.Parse(time.RFC3339, req.EndsAt)
	if err != nil {
		return nil, apperrors.NewValidation(apperrors.CodeInvalidInterval, "ends_at",
			"结束时间格式应为 RFC3339")
	}
	if !endsAt.After(startsAt) {
		return nil, apperrors.NewValidation(apperrors.CodeInvalidInterval, "ends_at",
			"结束时间必须晚于开始时间")
	}

	blackout := &model.Blackout{
		StartsAt:  startsAt.UTC(),
		EndsAt:    endsAt.UTC(),
		Reason:    req.Reason,
		CreatedBy: &adminID,
	}
	if err := s.repo.Blackout.Create(ctx, blackout); err != nil {
		s.logger.Error("创建停用时段失败", zap.Error(err))
		return nil, err
	}

	recordAudit(ctx, s.repo, s.logger, "blackout.created", &adminID,
		strPtr("blackout"), &blackout.BlackoutID, map[string]interface{}{
			"starts_at": blackout.StartsAt.Format(time.RFC3339),
			"ends_at":   blackout.EndsAt.Format(time.RFC3339),
		})

	resp := toBlackoutResponse(blackout)
	return &resp, nil
}

func (s *blackoutService) List(ctx context.Context) ([]dto.BlackoutResponse, error) {
	blackouts, err := s.repo.Blackout.List(ctx)
	if err != nil {
		s.logger.Error("查询停用时段失败", zap.Error(err))
		return nil, err
	}
	out := make([]dto.BlackoutResponse, 0, len(blackouts))
	for i := range blackouts {
		out = append(out, toBlackoutResponse(&blackouts[i]))
	}
	return out, nil
}

func (s *blackoutService) Delete(ctx context.Context, adminID string, blackoutID string) error {
	blackout, err := s.repo.Blackout.GetByID(ctx, blackoutID)
	if err != nil {
		return err
	}
	if blackout == nil {
		return ErrBlackoutNotFound
	}

	if err := s.repo.Blackout.Delete(ctx, blackoutID); err != nil {
		s.logger.Error("删除停用时段失败", zap.Error(err))
		return err
	}

	recordAudit(ctx, s.repo, s.logger, "blackout.deleted", &adminID,
		strPtr("blackout"), &blackoutID, nil)
	return nil
}

func toBlackoutResponse(blackout *model.Blackout) dto.BlackoutResponse {
	return dto.BlackoutResponse{
		ID:        blackout.BlackoutID,
		StartsAt:  blackout.StartsAt.UTC().Format(time.RFC3339),
		EndsAt:    blackout.EndsAt.UTC().Format(time.RFC3339),
		Reason:    blackout.Reason,
		CreatedBy: blackout.CreatedBy,
		CreatedAt: blackout.CreatedAt.UTC().Format(time.RFC3339),
	}
}
