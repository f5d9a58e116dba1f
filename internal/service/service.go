package service

import (
	"go.uber.org/zap"

	"github.com/jazz-17/reservation-system/config"
	"github.com/jazz-17/reservation-system/internal/repository"
	"github.com/jazz-17/reservation-system/pkg/jwt"
	"github.com/jazz-17/reservation-system/pkg/redis"
)

// Service 所有 Service 的聚合入口
type Service struct {
	Auth         AuthService
	Settings     SettingsService
	Rules        RulesService
	Availability AvailabilityService
	Reservation  ReservationService
	Artifact     ArtifactService
	Blackout     BlackoutService
	AllowList    AllowListService
	Audit        AuditService
	Export       ExportService
}

// NewService 创建 Service 聚合。
// settings 由调用方传入，与 Worker 侧共用同一实例。
func NewService(repo *repository.Repository, jwtMgr *jwt.Manager, rdb *redis.Client,
	dispatcher ArtifactDispatcher, settings SettingsService,
	cfg *config.Config, logger *zap.Logger) *Service {

	rules := NewRulesService(repo, logger)

	return &Service{
		Auth:         NewAuthService(repo, jwtMgr, rdb, &cfg.Auth, logger),
		Settings:     settings,
		Rules:        rules,
		Availability: NewAvailabilityService(repo, settings, logger),
		Reservation:  NewReservationService(repo, rules, settings, dispatcher, logger),
		Artifact:     NewArtifactService(repo, dispatcher, logger),
		Blackout:     NewBlackoutService(repo, logger),
		AllowList:    NewAllowListService(repo, logger),
		Audit:        NewAuditService(repo, logger),
		Export:       NewExportService(repo, settings, logger),
	}
}
