package pdf

import (
	"bytes"
	"fmt"
	"time"

	"github.com/go-pdf/fpdf"
)

// ConfirmationData 预约确认单渲染数据
type ConfirmationData struct {
	ReservationID string
	UserName      string
	UserEmail     string
	School        string
	BaseLabel     string
	StartsAt      time.Time // 已转换为本地时区
	EndsAt        time.Time
	DecidedAt     *time.Time
	Template      string
}

// Renderer 确认单渲染接口
// Worker 依赖此接口；测试中以内存实现替代 fpdf
type Renderer interface {
	Render(data *ConfirmationData) ([]byte, error)
}

type fpdfRenderer struct{}

// NewRenderer 创建基于 fpdf 的确认单渲染器
func NewRenderer() Renderer {
	return &fpdfRenderer{}
}

const timeLayout = "2006-01-02 15:04"

func (r *fpdfRenderer) Render(data *ConfirmationData) ([]byte, error) {
	doc := fpdf.New("P", "mm", "A4", "")
	doc.AddPage()

	doc.SetFont("Helvetica", "B", 18)
	doc.CellFormat(0, 12, "Confirmacion de Reserva", "", 1, "C", false, 0, "")
	doc.Ln(6)

	doc.SetFont("Helvetica", "", 11)
	rows := [][2]string{
		{"Codigo", data.ReservationID},
		{"Solicitante", data.UserName},
		{"Correo", data.UserEmail},
		{"Escuela", data.School},
		{"Base", data.BaseLabel},
		{"Inicio", data.StartsAt.Format(timeLayout)},
		{"Fin", data.EndsAt.Format(timeLayout)},
	}
	if data.DecidedAt != nil {
		rows = append(rows, [2]string{"Aprobada", data.DecidedAt.Format(timeLayout)})
	}

	for _, row := range rows {
		doc.SetFont("Helvetica", "B", 11)
		doc.CellFormat(40, 8, row[0], "", 0, "L", false, 0, "")
		doc.SetFont("Helvetica", "", 11)
		doc.CellFormat(0, 8, row[1], "", 1, "L", false, 0, "")
	}

	doc.Ln(8)
	doc.SetFont("Helvetica", "I", 9)
	doc.CellFormat(0, 6, fmt.Sprintf("Plantilla: %s", data.Template), "", 1, "L", false, 0, "")

	var buf bytes.Buffer
	if err := doc.Output(&buf); err != nil {
		return nil, fmt.Errorf("渲染确认单失败: %w", err)
	}
	return buf.Bytes(), nil
}
