package service

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"
	"gorm.io/datatypes"

	"github.com/jazz-17/reservation-system/internal/dto"
	"github.com/jazz-17/reservation-system/internal/model"
	"github.com/jazz-17/reservation-system/internal/repository"
)

// recordAudit 写入一条审计事件。
// 审计失败只记录日志，绝不影响主业务流程。
func recordAudit(ctx context.Context, repo *repository.Repository, logger *zap.Logger,
	eventType string, actorID *string, subjectType *string, subjectID *string,
	metadata map[string]interface{}) {

	var payload datatypes.JSON
	if metadata != nil {
		raw, err := json.Marshal(metadata)
		if err != nil {
			logger.Warn("审计元数据序列化失败", zap.String("event_type", eventType), zap.Error(err))
		} else {
			payload = datatypes.JSON(raw)
		}
	}

	event := &model.AuditEvent{
		EventType:   eventType,
		ActorID:     actorID,
		SubjectType: subjectType,
		SubjectID:   subjectID,
		Metadata:    payload,
		CreatedAt:   time.Now().UTC(),
	}
	if err := repo.Audit.Create(ctx, event); err != nil {
		logger.Warn("写入审计事件失败", zap.String("event_type", eventType), zap.Error(err))
	}
}

// AuditService 审计事件查询接口
type AuditService interface {
	// List 按事件类型筛选并分页列出审计事件
	List(ctx context.Context, req *dto.AuditListRequest) ([]dto.AuditEventResponse, int64, error)
}

type auditService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewAuditService 创建 AuditService 实例
func NewAuditService(repo *repository.Repository, logger *zap.Logger) AuditService {
	return &auditService{repo: repo, logger: logger}
}

func (s *auditService) List(ctx context.Context, req *dto.AuditListRequest) ([]dto.AuditEventResponse, int64, error) {
	if req.Page < 1 {
		req.Page = 1
	}
	if req.PageSize < 1 || req.PageSize > 200 {
		req.PageSize = 50
	}

	events, total, err := s.repo.Audit.List(ctx, req.EventType, req.Page, req.PageSize)
	if err != nil {
		s.logger.Error("查询审计事件失败", zap.Error(err))
		return nil, 0, err
	}

	out := make([]dto.AuditEventResponse, 0, len(events))
	for i := range events {
		out = append(out, toAuditEventResponse(&events[i]))
	}

	return out, total, nil
}

func toAuditEventResponse(event *model.AuditEvent) dto.AuditEventResponse {
	var metadata map[string]interface{}
	if len(event.Metadata) > 0 {
		_ = json.Unmarshal(event.Metadata, &metadata)
	}
	return dto.AuditEventResponse{
		ID:          event.EventID,
		EventType:   event.EventType,
		ActorID:     event.ActorID,
		SubjectType: event.SubjectType,
		SubjectID:   event.SubjectID,
		Metadata:    metadata,
		CreatedAt:   event.CreatedAt.UTC().Format(time.RFC3339),
	}
}
