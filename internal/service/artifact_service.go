package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/jazz-17/reservation-system/internal/dto"
	"github.com/jazz-17/reservation-system/internal/model"
	"github.com/jazz-17/reservation-system/internal/repository"
)

var (
	// ErrArtifactNotFound 产物不存在
	ErrArtifactNotFound = errors.New("产物不存在")
	// ErrArtifactNotReady PDF 尚未生成成功
	ErrArtifactNotReady = errors.New("PDF 尚未生成")
)

// ArtifactService 预约产物管理接口（管理端）
type ArtifactService interface {
	// ListByReservation 某预约的全部产物
	ListByReservation(ctx context.Context, reservationID string) ([]dto.ArtifactResponse, error)
	// Retry 重置失败产物并重新投递执行
	Retry(ctx context.Context, artifactID string) (*dto.ArtifactResponse, error)
	// PDFPath 已生成 PDF 的存储相对路径（供下载）
	PDFPath(ctx context.Context, reservationID string) (string, error)
}

type artifactService struct {
	repo       *repository.Repository
	dispatcher ArtifactDispatcher
	logger     *zap.Logger
}

// NewArtifactService 创建 ArtifactService 实例
func NewArtifactService(repo *repository.Repository, dispatcher ArtifactDispatcher, logger *zap.Logger) ArtifactService {
	return &artifactService{repo: repo, dispatcher: dispatcher, logger: logger}
}

func (s *artifactService) ListByReservation(ctx context.Context, reservationID string) ([]dto.ArtifactResponse, error) {
	artifacts, err := s.repo.Artifact.ListByReservation(ctx, reservationID)
	if err != nil {
		s.logger.Error("查询产物失败", zap.Error(err))
		return nil, err
	}
	out := make([]dto.ArtifactResponse, 0, len(artifacts))
	for i := range artifacts {
		out = append(out, toArtifactResponse(&artifacts[i]))
	}
	return out, nil
}

func (s *artifactService) Retry(ctx context.Context, artifactID string) (*dto.ArtifactResponse, error) {
	artifact, err := s.repo.Artifact.GetByID(ctx, artifactID)
	if err != nil {
		return nil, err
	}
	if artifact == nil {
		return nil, ErrArtifactNotFound
	}

	// 重试即重置：状态回 pending，清除上次错误
	artifact.Status = model.ArtifactPending
	artifact.LastError = nil
	if err := s.repo.Artifact.Update(ctx, artifact); err != nil {
		s.logger.Error("重置产物失败", zap.String("artifact_id", artifactID), zap.Error(err))
		return nil, err
	}

	switch artifact.Kind {
	case model.ArtifactPDF:
		s.dispatcher.EnqueuePDF(artifact.ArtifactID)
	case model.ArtifactEmailAdmin, model.ArtifactEmailUser:
		s.dispatcher.EnqueueEmail(artifact.ArtifactID)
	default:
		return nil, fmt.Errorf("未知的产物种类 %q", artifact.Kind)
	}

	resp := toArtifactResponse(artifact)
	return &resp, nil
}

func (s *artifactService) PDFPath(ctx context.Context, reservationID string) (string, error) {
	artifact, err := s.repo.Artifact.GetByReservationAndKind(ctx, reservationID, model.ArtifactPDF)
	if err != nil {
		return "", err
	}
	if artifact == nil {
		return "", ErrArtifactNotFound
	}
	if artifact.Status != model.ArtifactSent {
		return "", ErrArtifactNotReady
	}

	var payload model.ArtifactPayload
	if err := json.Unmarshal(artifact.Payload, &payload); err != nil || payload.Path == "" {
		return "", ErrArtifactNotReady
	}
	return payload.Path, nil
}

func toArtifactResponse(artifact *model.ReservationArtifact) dto.ArtifactResponse {
	resp := dto.ArtifactResponse{
		ID:            artifact.ArtifactID,
		ReservationID: artifact.ReservationID,
		Kind:          string(artifact.Kind),
		Status:        string(artifact.Status),
		Attempts:      artifact.Attempts,
		LastError:     artifact.LastError,
		UpdatedAt:     artifact.UpdatedAt.UTC().Format(time.RFC3339),
	}
	if artifact.LastAttemptAt != nil {
		at := artifact.LastAttemptAt.UTC().Format(time.RFC3339)
		resp.LastAttemptAt = &at
	}
	var payload model.ArtifactPayload
	if len(artifact.Payload) > 0 && json.Unmarshal(artifact.Payload, &payload) == nil {
		resp.Path = payload.Path
		resp.Event = payload.Event
	}
	return resp
}
