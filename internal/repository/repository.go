package repository

import (
	"context"

	"gorm.io/gorm"
)

// Repository 所有 Repository 的聚合入口
type Repository struct {
	User        UserRepository
	AllowList   AllowListRepository
	Reservation ReservationRepository
	Blackout    BlackoutRepository
	Artifact    ArtifactRepository
	Setting     SettingRepository
	Audit       AuditRepository

	db *gorm.DB
}

// NewRepository 创建 Repository 聚合
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{
		User:        NewUserRepo(db),
		AllowList:   NewAllowListRepo(db),
		Reservation: NewReservationRepo(db),
		Blackout:    NewBlackoutRepo(db),
		Artifact:    NewArtifactRepo(db),
		Setting:     NewSettingRepo(db),
		Audit:       NewAuditRepo(db),

		db: db,
	}
}

// Transaction 在数据库事务中执行 fn，fn 收到绑定事务的聚合。
// fn 返回错误时整体回滚。测试中手工构造的聚合（db 为 nil）直接透传执行。
func (r *Repository) Transaction(ctx context.Context, fn func(txRepo *Repository) error) error {
	if r.db == nil {
		return fn(r)
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewRepository(tx))
	})
}
