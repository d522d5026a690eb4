package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"

	"github.com/econfia/api/internal/store"
)

// ExportService produces XLSX workbooks of a consulta's resultados for the
// dashboard's download action.
type ExportService struct {
	repo      *store.ConsultaRepository
	consultas *ConsultaService
}

func NewExportService(repo *store.ConsultaRepository, consultas *ConsultaService) *ExportService {
	return &ExportService{repo: repo, consultas: consultas}
}

// ExportConsultaXLSX returns workbook bytes and a suggested filename.
func (s *ExportService) ExportConsultaXLSX(ctx context.Context, userID, consultaID uuid.UUID) ([]byte, string, error) {
	consulta, err := s.consultas.Get(ctx, userID, consultaID)
	if err != nil {
		return nil, "", err
	}
	resultados, err := s.repo.ListResultados(ctx, consultaID)
	if err != nil {
		return nil, "", fmt.Errorf("query resultados: %w", err)
	}

	f := excelize.NewFile()
	const sheet = "Resultados"
	if index, _ := f.GetSheetIndex(sheet); index == -1 {
		if _, err := f.NewSheet(sheet); err != nil {
			return nil, "", err
		}
	}
	activeIndex, _ := f.GetSheetIndex(sheet)
	f.SetActiveSheet(activeIndex)
	if index, _ := f.GetSheetIndex("Sheet1"); index != -1 {
		_ = f.DeleteSheet("Sheet1")
	}

	headers := []string{
		"Fuente",
		"Categoría",
		"Estado",
		"Puntaje",
		"Detalle",
		"Verificado",
	}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return nil, "", err
		}
	}

	for row, r := range resultados {
		checkedAt := ""
		if r.CheckedAt != nil {
			checkedAt = r.CheckedAt.Format("2006-01-02 15:04")
		}
		values := []interface{}{
			r.Source,
			string(r.SourceType),
			r.Status.Label(),
			r.Score,
			r.Detail,
			checkedAt,
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row+2)
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				return nil, "", err
			}
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, "", fmt.Errorf("write workbook: %w", err)
	}

	filename := fmt.Sprintf("consulta-%s-%s.xlsx", consulta.DocumentID, consulta.CreatedAt.Format("20060102"))
	return buf.Bytes(), filename, nil
}
