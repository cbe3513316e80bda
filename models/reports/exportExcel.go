package reports

import (
	"bytes"

	"github.com/xuri/excelize/v2"
)

const excelSheet = "Sheet1"

// ExportExcel writes the table to a single-sheet workbook. Cells hold the
// display strings so the file matches the screen.
func ExportExcel(t Table) ([]byte, error) {
	if t.Empty() {
		return nil, ErrNothingToExport
	}

	f := excelize.NewFile()
	defer f.Close()

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, err
	}

	// Add headers
	for i, h := range t.Headers {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return nil, err
		}
		if err := f.SetCellValue(excelSheet, cell, h); err != nil {
			return nil, err
		}
	}
	if len(t.Headers) > 0 {
		last, _ := excelize.CoordinatesToCellName(len(t.Headers), 1)
		if err := f.SetCellStyle(excelSheet, "A1", last, bold); err != nil {
			return nil, err
		}
	}

	// Add data
	for r, row := range t.Rows {
		for c, value := range row {
			cell, err := excelize.CoordinatesToCellName(c+1, r+2)
			if err != nil {
				return nil, err
			}
			if err := f.SetCellStr(excelSheet, cell, value); err != nil {
				return nil, err
			}
		}
	}

	if err := f.SetPanes(excelSheet, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"}); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
