package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/jazz-17/reservation-system/internal/dto"
	"github.com/jazz-17/reservation-system/internal/model"
	"github.com/jazz-17/reservation-system/internal/repository"
)

var (
	// ErrAllowListEntryExists 邮箱已在白名单中
	ErrAllowListEntryExists = errors.New("该邮箱已在白名单中")
	// ErrAllowListEntryNotFound 白名单条目不存在
	ErrAllowListEntryNotFound = errors.New("白名单条目不存在")
)

// AllowListService 注册白名单管理接口（管理端）
type AllowListService interface {
	Create(ctx context.Context, adminID string, req *dto.CreateAllowListEntryRequest) (*dto.AllowListEntryResponse, error)
	List(ctx context.Context) ([]dto.AllowListEntryResponse, error)
	Delete(ctx context.Context, adminID string, entryID string) error
}

type allowListService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewAllowListService 创建 AllowListService 实例
func NewAllowListService(repo *repository.Repository, logger *zap.Logger) AllowListService {
	return &allowListService{repo: repo, logger: logger}
}

func (s *allowListService) Create(ctx context.Context, adminID string, req *dto.CreateAllowListEntryRequest) (*dto.AllowListEntryResponse, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))

	existing, err := s.repo.AllowList.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrAllowListEntryExists
	}

	entry := &model.AllowListEntry{
		Email:     email,
		Name:      req.Name,
		School:    req.School,
		BaseYear:  req.BaseYear,
		CreatedBy: &adminID,
	}
	if err := s.repo.AllowList.Create(ctx, entry); err != nil {
		s.logger.Error("录入白名单失败", zap.Error(err))
		return nil, err
	}

	recordAudit(ctx, s.repo, s.logger, "allowlist.created", &adminID,
		strPtr("allow_list_entry"), &entry.EntryID, map[string]interface{}{"email": email})

	resp := toAllowListEntryResponse(entry)
	return &resp, nil
}

func (s *allowListService) List(ctx context.Context) ([]dto.AllowListEntryResponse, error) {
	entries, err := s.repo.AllowList.List(ctx)
	if err != nil {
		s.logger.Error("查询白名单失败", zap.Error(err))
		return nil, err
	}
	out := make([]dto.AllowListEntryResponse, 0, len(entries))
	for i := range entries {
		out = append(out, toAllowListEntryResponse(&entries[i]))
	}
	return out, nil
}

func (s *allowListService) Delete(ctx context.Context, adminID string, entryID string) error {
	if err := s.repo.AllowList.Delete(ctx, entryID); err != nil {
		s.logger.Error("删除白名单条目失败", zap.Error(err))
		return err
	}
	recordAudit(ctx, s.repo, s.logger, "allowlist.deleted", &adminID,
		strPtr("allow_list_entry"), &entryID, nil)
	return nil
}

func toAllowListEntryResponse(entry *model.AllowListEntry) dto.AllowListEntryResponse {
	return dto.AllowListEntryResponse{
		ID:        entry.EntryID,
		Email:     entry.Email,
		Name:      entry.Name,
		School:    entry.School,
		BaseYear:  entry.BaseYear,
		CreatedAt: entry.CreatedAt.UTC().Format(time.RFC3339),
	}
}
