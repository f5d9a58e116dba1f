package handler

import "github.com/jazz-17/reservation-system/internal/service"

// Handler 所有 Handler 的聚合入口
type Handler struct {
	Auth             *AuthHandler
	Availability     *AvailabilityHandler
	Reservation      *ReservationHandler
	AdminReservation *AdminReservationHandler
	Blackout         *BlackoutHandler
	Settings         *SettingsHandler
	Artifact         *ArtifactHandler
	AllowList        *AllowListHandler
	Audit            *AuditHandler
	Export           *ExportHandler
}

// NewHandler 创建 Handler 聚合
func NewHandler(svc *service.Service, storageRoot string) *Handler {
	return &Handler{
		Auth:             NewAuthHandler(svc.Auth),
		Availability:     NewAvailabilityHandler(svc.Availability),
		Reservation:      NewReservationHandler(svc.Reservation),
		AdminReservation: NewAdminReservationHandler(svc.Reservation),
		Blackout:         NewBlackoutHandler(svc.Blackout),
		Settings:         NewSettingsHandler(svc.Settings),
		Artifact:         NewArtifactHandler(svc.Artifact, storageRoot),
		AllowList:        NewAllowListHandler(svc.AllowList),
		Audit:            NewAuditHandler(svc.Audit),
		Export:           NewExportHandler(svc.Export),
	}
}
