// Package export writes the dashboard's current view to a spreadsheet.
package export

import (
	"bytes"
	"fmt"
	"strings"

	"sismanpnr/internal/utils"
	"sismanpnr/pkg/types"

	"github.com/xuri/excelize/v2"
)

const (
	SheetName   = "Solicitações"
	ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	timeLayout  = "02/01/2006 15:04"
)

var Header = []string{
	"Nº",
	"PNR",
	"Endereço",
	"Posto/Graduação",
	"Solicitante",
	"Categoria",
	"Descrição",
	"Urgente",
	"Status",
	"Motivo da Negativa",
	"Arquivada",
	"Imagens",
	"Data da Solicitação",
}

var columnWidths = []float64{12, 10, 36, 16, 24, 14, 60, 10, 12, 36, 10, 60, 18}

// Requests renders requests, in the given order, as an xlsx workbook.
func Requests(requests []*types.MaintenanceRequest) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(SheetName)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, fmt.Errorf("failed to delete default sheet: %w", err)
	}
	f.SetActiveSheet(index)

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{
			Type:    "pattern",
			Color:   []string{"#DDE5D3"},
			Pattern: 1,
		},
		Border: []excelize.Border{
			{Type: "bottom", Color: "000000", Style: 1},
		},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}

	if err := f.SetSheetRow(SheetName, "A1", &Header); err != nil {
		return nil, fmt.Errorf("failed to write header: %w", err)
	}
	last, _ := excelize.CoordinatesToCellName(len(Header), 1)
	if err := f.SetCellStyle(SheetName, "A1", last, headerStyle); err != nil {
		return nil, fmt.Errorf("failed to style header: %w", err)
	}

	for i, w := range columnWidths {
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return nil, fmt.Errorf("failed to convert column number: %w", err)
		}
		if err := f.SetColWidth(SheetName, col, col, w); err != nil {
			return nil, fmt.Errorf("failed to set column width: %w", err)
		}
	}

	for i, r := range requests {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, fmt.Errorf("failed to convert coordinates: %w", err)
		}
		row := toRow(r)
		if err := f.SetSheetRow(SheetName, cell, &row); err != nil {
			return nil, fmt.Errorf("failed to write row %d: %w", i+2, err)
		}
	}

	if err := f.SetPanes(SheetName, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return nil, fmt.Errorf("failed to freeze header: %w", err)
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}

	return buf.Bytes(), nil
}

func toRow(r *types.MaintenanceRequest) []any {
	return []any{
		r.ShortID(),
		r.PNRNumber,
		r.PNRAddress,
		r.RequesterRank,
		r.RequesterName,
		r.Category.Label(),
		r.Description,
		yesNo(r.IsUrgent),
		r.Status.Label(),
		utils.PtrString(r.DenialReason),
		yesNo(r.IsArchived),
		strings.Join(r.Images, "\n"),
		r.CreatedAt.Format(timeLayout),
	}
}

func yesNo(b bool) string {
	if b {
		return "Sim"
	}
	return "Não"
}
