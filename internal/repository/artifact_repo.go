package repository

import (
	"context"
	"errors"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/jazz-17/reservation-system/internal/model"
)

// ArtifactRepository 预约产物数据访问接口
type ArtifactRepository interface {
	// Upsert 幂等地确保 (reservation, kind) 的产物行存在且处于 pending 状态。
	// 已有行被复位（状态、尝试计数、错误清零并覆盖 payload），不会产生第二行。
	Upsert(ctx context.Context, reservationID string, kind model.ArtifactKind, payload datatypes.JSON) (*model.ReservationArtifact, error)
	GetByID(ctx context.Context, id string) (*model.ReservationArtifact, error)
	GetByReservationAndKind(ctx context.Context, reservationID string, kind model.ArtifactKind) (*model.ReservationArtifact, error)
	Update(ctx context.Context, artifact *model.ReservationArtifact) error
	ListByReservation(ctx context.Context, reservationID string) ([]model.ReservationArtifact, error)
}

type artifactRepo struct {
	db *gorm.DB
}

// NewArtifactRepo 创建 ArtifactRepository 实例
func NewArtifactRepo(db *gorm.DB) ArtifactRepository {
	return &artifactRepo{db: db}
}

func (r *artifactRepo) Upsert(ctx context.Context, reservationID string, kind model.ArtifactKind, payload datatypes.JSON) (*model.ReservationArtifact, error) {
	artifact := model.ReservationArtifact{
		ReservationID: reservationID,
		Kind:          kind,
		Status:        model.ArtifactPending,
		Attempts:      0,
		LastError:     nil,
		Payload:       payload,
	}

	// 依赖 (reservation_id, kind) 唯一约束的原子 upsert，避免读-改-写竞态
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "reservation_id"}, {Name: "kind"}},
			DoUpdates: clause.Assignments(map[string]interface{}{
				"status":     model.ArtifactPending,
				"attempts":   0,
				"last_error": nil,
				"payload":    payload,
				"updated_at": gorm.Expr("NOW()"),
			}),
		}).
		Create(&artifact).Error
	if err != nil {
		return nil, err
	}

	// OnConflict 更新路径不回填主键，重新查询确定行
	return r.GetByReservationAndKind(ctx, reservationID, kind)
}

func (r *artifactRepo) GetByID(ctx context.Context, id string) (*model.ReservationArtifact, error) {
	var artifact model.ReservationArtifact
	err := r.db.WithContext(ctx).
		Preload("Reservation").
		Preload("Reservation.User").
		Where("artifact_id = ?", id).
		First(&artifact).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &artifact, nil
}

func (r *artifactRepo) GetByReservationAndKind(ctx context.Context, reservationID string, kind model.ArtifactKind) (*model.ReservationArtifact, error) {
	var artifact model.ReservationArtifact
	err := r.db.WithContext(ctx).
		Where("reservation_id = ? AND kind = ?", reservationID, kind).
		First(&artifact).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &artifact, nil
}

func (r *artifactRepo) Update(ctx context.Context, artifact *model.ReservationArtifact) error {
	return r.db.WithContext(ctx).Save(artifact).Error
}

func (r *artifactRepo) ListByReservation(ctx context.Context, reservationID string) ([]model.ReservationArtifact, error) {
	var artifacts []model.ReservationArtifact
	err := r.db.WithContext(ctx).
		Where("reservation_id = ?", reservationID).
		Order("kind ASC").
		Find(&artifacts).Error
	return artifacts, err
}
