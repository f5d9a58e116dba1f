package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/jazz-17/reservation-system/internal/model"
)

// ReservationFilter 预约列表过滤条件
type ReservationFilter struct {
	UserID   string
	Status   model.ReservationStatus
	From     *time.Time
	To       *time.Time
	Page     int
	PageSize int
}

// ReservationRepository 预约数据访问接口
// 所有区间比较均为半开区间 [start, end)：starts_at < end AND ends_at > start。
type ReservationRepository interface {
	Create(ctx context.Context, reservation *model.Reservation) error
	GetByID(ctx context.Context, id string) (*model.Reservation, error)
	Update(ctx context.Context, reservation *model.Reservation) error
	List(ctx context.Context, filter ReservationFilter) ([]model.Reservation, int64, error)
	// CountBlocking 用户当前处于占用状态的预约数
	CountBlocking(ctx context.Context, userID string, statuses []model.ReservationStatus) (int64, error)
	// CountGroupInWindow 分组在 [startUtc, endUtc) 窗口内起始的占用预约数
	CountGroupInWindow(ctx context.Context, school string, baseYear int, startUtc, endUtc time.Time, statuses []model.ReservationStatus) (int64, error)
	// ExistsOverlapping 是否存在与 [start, end) 重叠的占用预约
	ExistsOverlapping(ctx context.Context, start, end time.Time, statuses []model.ReservationStatus, excludeID string) (bool, error)
	// ListOverlapping 与 [start, end) 重叠的占用预约
	ListOverlapping(ctx context.Context, start, end time.Time, statuses []model.ReservationStatus) ([]model.Reservation, error)
	// ListPendingCreatedBefore 创建时间不晚于 cutoff 的待审批预约
	ListPendingCreatedBefore(ctx context.Context, cutoff time.Time) ([]model.Reservation, error)
}

type reservationRepo struct {
	db *gorm.DB
}

// NewReservationRepo 创建 ReservationRepository 实例
func NewReservationRepo(db *gorm.DB) ReservationRepository {
	return &reservationRepo{db: db}
}

func (r *reservationRepo) Create(ctx context.Context, reservation *model.Reservation) error {
	return r.db.WithContext(ctx).Create(reservation).Error
}

func (r *reservationRepo) GetByID(ctx context.Context, id string) (*model.Reservation, error) {
	var reservation model.Reservation
	err := r.db.WithContext(ctx).
		Preload("User").
		Where("reservation_id = ?", id).
		First(&reservation).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &reservation, nil
}

func (r *reservationRepo) Update(ctx context.Context, reservation *model.Reservation) error {
	return r.db.WithContext(ctx).Save(reservation).Error
}

func (r *reservationRepo) List(ctx context.Context, filter ReservationFilter) ([]model.Reservation, int64, error) {
	db := r.db.WithContext(ctx).Model(&model.Reservation{})

	if filter.UserID != "" {
		db = db.Where("user_id = ?", filter.UserID)
	}
	if filter.Status != "" {
		db = db.Where("status = ?", filter.Status)
	}
	if filter.From != nil {
		db = db.Where("starts_at >= ?", *filter.From)
	}
	if filter.To != nil {
		db = db.Where("starts_at < ?", *filter.To)
	}

	var total int64
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	page := filter.Page
	if page <= 0 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 {
		pageSize = 20
	}

	var reservations []model.Reservation
	err := db.Preload("User").
		Order("starts_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&reservations).Error
	return reservations, total, err
}

func (r *reservationRepo) CountBlocking(ctx context.Context, userID string, statuses []model.ReservationStatus) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.Reservation{}).
		Where("user_id = ?", userID).
		Where("status IN ?", statuses).
		Count(&count).Error
	return count, err
}

func (r *reservationRepo) CountGroupInWindow(ctx context.Context, school string, baseYear int, startUtc, endUtc time.Time, statuses []model.ReservationStatus) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.Reservation{}).
		Where("school = ? AND base_year = ?", school, baseYear).
		Where("status IN ?", statuses).
		Where("starts_at >= ? AND starts_at < ?", startUtc, endUtc).
		Count(&count).Error
	return count, err
}

func (r *reservationRepo) ExistsOverlapping(ctx context.Context, start, end time.Time, statuses []model.ReservationStatus, excludeID string) (bool, error) {
	db := r.db.WithContext(ctx).
		Model(&model.Reservation{}).
		Where("status IN ?", statuses).
		Where("starts_at < ? AND ends_at > ?", end, start)

	if excludeID != "" {
		db = db.Where("reservation_id <> ?", excludeID)
	}

	var count int64
	if err := db.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *reservationRepo) ListOverlapping(ctx context.Context, start, end time.Time, statuses []model.ReservationStatus) ([]model.Reservation, error) {
	var reservations []model.Reservation
	err := r.db.WithContext(ctx).
		Where("status IN ?", statuses).
		Where("starts_at < ? AND ends_at > ?", end, start).
		Order("starts_at ASC").
		Find(&reservations).Error
	return reservations, err
}

func (r *reservationRepo) ListPendingCreatedBefore(ctx context.Context, cutoff time.Time) ([]model.Reservation, error) {
	var reservations []model.Reservation
	err := r.db.WithContext(ctx).
		Where("status = ?", model.StatusPending).
		Where("created_at <= ?", cutoff).
		Find(&reservations).Error
	return reservations, err
}
