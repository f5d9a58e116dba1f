package service

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/jazz-17/reservation-system/internal/dto"
	"github.com/jazz-17/reservation-system/internal/repository"
)

// ExportService 预约报表导出接口（管理端）
type ExportService interface {
	// ReservationsXLSX 按筛选条件导出预约为 xlsx，返回文件内容与建议文件名
	ReservationsXLSX(ctx context.Context, req *dto.ReservationListRequest) (*bytes.Buffer, string, error)
}

type exportService struct {
	repo     *repository.Repository
	settings SettingsService
	logger   *zap.Logger

	nowFn func() time.Time
}

// NewExportService 创建 ExportService 实例
func NewExportService(repo *repository.Repository, settings SettingsService, logger *zap.Logger) ExportService {
	return &exportService{repo: repo, settings: settings, logger: logger, nowFn: time.Now}
}

func (s *exportService) ReservationsXLSX(ctx context.Context, req *dto.ReservationListRequest) (*bytes.Buffer, string, error) {
	filter, err := buildFilter(req)
	if err != nil {
		return nil, "", err
	}
	// 导出不分页，一次取全量
	filter.Page = 1
	filter.PageSize = 10000

	reservations, _, err := s.repo.Reservation.List(ctx, filter)
	if err != nil {
		s.logger.Error("查询预约列表失败", zap.Error(err))
		return nil, "", err
	}

	settings, err := s.settings.Snapshot(ctx)
	if err != nil {
		return nil, "", err
	}
	loc, err := settings.Location()
	if err != nil {
		return nil, "", fmt.Errorf("加载时区失败: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Reservas"
	f.SetSheetName("Sheet1", sheet)

	headers := []string{"ID", "Estado", "Inicio", "Fin", "Usuario", "Correo", "Escuela", "Base", "Decidido por", "Motivo", "Creado"}
	for col, header := range headers {
		cell, _ := excelize.CoordinatesToCellName(col+1, 1)
		if err := f.SetCellValue(sheet, cell, header); err != nil {
			return nil, "", err
		}
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	if err == nil {
		endCell, _ := excelize.CoordinatesToCellName(len(headers), 1)
		_ = f.SetCellStyle(sheet, "A1", endCell, headerStyle)
	}

	layout := "2006-01-02 15:04"
	for row, reservation := range reservations {
		userName, userEmail := "", ""
		if reservation.User != nil {
			userName = reservation.User.Name
			userEmail = reservation.User.Email
		}
		decidedBy := ""
		if reservation.DecidedBy != nil {
			decidedBy = *reservation.DecidedBy
		}
		reason := ""
		if reservation.DecisionReason != nil {
			reason = *reservation.DecisionReason
		}

		values := []interface{}{
			reservation.ReservationID,
			string(reservation.Status),
			reservation.StartsAt.In(loc).Format(layout),
			reservation.EndsAt.In(loc).Format(layout),
			userName,
			userEmail,
			reservation.School,
			reservation.BaseLabel(),
			decidedBy,
			reason,
			reservation.CreatedAt.In(loc).Format(layout),
		}
		for col, value := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row+2)
			if err := f.SetCellValue(sheet, cell, value); err != nil {
				return nil, "", err
			}
		}
	}

	_ = f.SetColWidth(sheet, "A", "A", 38)
	_ = f.SetColWidth(sheet, "C", "D", 18)
	_ = f.SetColWidth(sheet, "E", "G", 24)

	buf, err := f.WriteToBuffer()
	if err != nil {
		s.logger.Error("生成导出文件失败", zap.Error(err))
		return nil, "", err
	}

	filename := fmt.Sprintf("reservas_%s.xlsx", s.nowFn().In(loc).Format("20060102_150405"))
	return buf, filename, nil
}
