package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/jazz-17/reservation-system/internal/model"
)

// UserRepository 用户数据访问接口
type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	GetByID(ctx context.Context, id string) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
}

type userRepo struct {
	db *gorm.DB
}

// NewUserRepo 创建 UserRepository 实例
func NewUserRepo(db *gorm.DB) UserRepository {
	return &userRepo{db: db}
}

func (r *userRepo) Create(ctx context.Context, user *model.User) error {
	return r.db.WithContext(ctx).Create(user).Error
}

func (r *userRepo) GetByID(ctx context.Context, id string) (*model.User, error) {
	var user model.User
	err := r.db.WithContext(ctx).
		Where("user_id = ?", id).
		First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}

func (r *userRepo) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	var user model.User
	err := r.db.WithContext(ctx).
		Where("email = ?", email).
		First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}

// AllowListRepository 注册白名单数据访问接口
type AllowListRepository interface {
	GetByEmail(ctx context.Context, email string) (*model.AllowListEntry, error)
	List(ctx context.Context) ([]model.AllowListEntry, error)
	Create(ctx context.Context, entry *model.AllowListEntry) error
	Delete(ctx context.Context, id string) error
}

type allowListRepo struct {
	db *gorm.DB
}

// NewAllowListRepo 创建 AllowListRepository 实例
func NewAllowListRepo(db *gorm.DB) AllowListRepository {
	return &allowListRepo{db: db}
}

func (r *allowListRepo) GetByEmail(ctx context.Context, email string) (*model.AllowListEntry, error) {
	var entry model.AllowListEntry
	err := r.db.WithContext(ctx).
		Where("email = ?", email).
		First(&entry).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &entry, nil
}

func (r *allowListRepo) List(ctx context.Context) ([]model.AllowListEntry, error) {
	var entries []model.AllowListEntry
	err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Find(&entries).Error
	return entries, err
}

func (r *allowListRepo) Create(ctx context.Context, entry *model.AllowListEntry) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *allowListRepo) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).
		Where("entry_id = ?", id).
		Delete(&model.AllowListEntry{}).Error
}
