package tabular

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/JonMunkholm/wms/internal/modules"
	"github.com/JonMunkholm/wms/internal/store"
	"github.com/xuri/excelize/v2"
)

const (
	exportSheet = "Export"
	sampleSheet = "Template"
)

// ToXLSX renders records into a single-sheet workbook.
func ToXLSX(columns []modules.FieldSpec, records []store.Record) ([]byte, error) {
	rows := make([][]string, 0, len(records)+1)
	rows = append(rows, headers(columns))
	for _, rec := range records {
		rows = append(rows, cells(columns, rec))
	}
	return writeWorkbook(exportSheet, rows, nil)
}

// GenerateSampleXLSX renders the import template as a workbook. Required
// headers are highlighted.
func GenerateSampleXLSX(columns []modules.FieldSpec) ([]byte, error) {
	required := make([]bool, len(columns))
	for i, c := range columns {
		required[i] = c.Required
	}
	return writeWorkbook(sampleSheet, sampleRows(columns), required)
}

func writeWorkbook(sheet string, rows [][]string, required []bool) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return nil, fmt.Errorf("name sheet: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"4472C4"}, Pattern: 1},
	})
	if err != nil {
		return nil, fmt.Errorf("header style: %w", err)
	}
	requiredStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"C65911"}, Pattern: 1},
	})
	if err != nil {
		return nil, fmt.Errorf("required style: %w", err)
	}

	for r, row := range rows {
		for c, v := range row {
			cell, err := excelize.CoordinatesToCellName(c+1, r+1)
			if err != nil {
				return nil, err
			}
			if err := f.SetCellStr(sheet, cell, v); err != nil {
				return nil, fmt.Errorf("set %s: %w", cell, err)
			}
			if r > 0 {
				continue
			}
			style := headerStyle
			if c < len(required) && required[c] {
				style = requiredStyle
			}
			if err := f.SetCellStyle(sheet, cell, cell, style); err != nil {
				return nil, fmt.Errorf("style %s: %w", cell, err)
			}
		}
	}

	if len(rows) > 0 && len(rows[0]) > 0 {
		last, err := excelize.ColumnNumberToName(len(rows[0]))
		if err != nil {
			return nil, err
		}
		if err := f.SetColWidth(sheet, "A", last, 20); err != nil {
			return nil, fmt.Errorf("column width: %w", err)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

// readXLSX returns the display strings of the first sheet.
func readXLSX(data []byte) ([][]string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, errors.New("workbook has no sheets")
	}
	return f.GetRows(sheets[0])
}
