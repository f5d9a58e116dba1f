package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/jazz-17/reservation-system/internal/model"
)

// AuditRepository 审计事件数据访问接口
type AuditRepository interface {
	Create(ctx context.Context, event *model.AuditEvent) error
	List(ctx context.Context, eventType string, page, pageSize int) ([]model.AuditEvent, int64, error)
}

type auditRepo struct {
	db *gorm.DB
}

// NewAuditRepo 创建 AuditRepository 实例
func NewAuditRepo(db *gorm.DB) AuditRepository {
	return &auditRepo{db: db}
}

func (r *auditRepo) Create(ctx context.Context, event *model.AuditEvent) error {
	return r.db.WithContext(ctx).Create(event).Error
}

func (r *auditRepo) List(ctx context.Context, eventType string, page, pageSize int) ([]model.AuditEvent, int64, error) {
	db := r.db.WithContext(ctx).Model(&model.AuditEvent{})

	if eventType != "" {
		db = db.Where("event_type = ?", eventType)
	}

	var total int64
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 50
	}

	var events []model.AuditEvent
	err := db.Order("created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&events).Error
	return events, total, err
}
