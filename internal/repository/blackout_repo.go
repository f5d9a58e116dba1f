package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/jazz-17/reservation-system/internal/model"
)

// BlackoutRepository 停用时段数据访问接口
type BlackoutRepository interface {
	Create(ctx context.Context, blackout *model.Blackout) error
	GetByID(ctx context.Context, id string) (*model.Blackout, error)
	Delete(ctx context.Context, id string) error
	List(ctx context.Context) ([]model.Blackout, error)
	// ExistsOverlapping 是否存在与 [start, end) 重叠的停用时段
	ExistsOverlapping(ctx context.Context, start, end time.Time) (bool, error)
	// ListOverlapping 与 [start, end) 重叠的停用时段
	ListOverlapping(ctx context.Context, start, end time.Time) ([]model.Blackout, error)
}

type blackoutRepo struct {
	db *gorm.DB
}

// NewBlackoutRepo 创建 BlackoutRepository 实例
func NewBlackoutRepo(db *gorm.DB) BlackoutRepository {
	return &blackoutRepo{db: db}
}

func (r *blackoutRepo) Create(ctx context.Context, blackout *model.Blackout) error {
	return r.db.WithContext(ctx).Create(blackout).Error
}

func (r *blackoutRepo) GetByID(ctx context.Context, id string) (*model.Blackout, error) {
	var blackout model.Blackout
	err := r.db.WithContext(ctx).
		Where("blackout_id = ?", id).
		First(&blackout).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &blackout, nil
}

func (r *blackoutRepo) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).
		Where("blackout_id = ?", id).
		Delete(&model.Blackout{}).Error
}

func (r *blackoutRepo) List(ctx context.Context) ([]model.Blackout, error) {
	var blackouts []model.Blackout
	err := r.db.WithContext(ctx).
		Order("starts_at ASC").
		Find(&blackouts).Error
	return blackouts, err
}

func (r *blackoutRepo) ExistsOverlapping(ctx context.Context, start, end time.Time) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.Blackout{}).
		Where("starts_at < ? AND ends_at > ?", end, start).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *blackoutRepo) ListOverlapping(ctx context.Context, start, end time.Time) ([]model.Blackout, error) {
	var blackouts []model.Blackout
	err := r.db.WithContext(ctx).
		Where("starts_at < ? AND ends_at > ?", end, start).
		Order("starts_at ASC").
		Find(&blackouts).Error
	return blackouts, err
}
