package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/ShipCreekGroup/email-parser/internal/domain"
)

const sheetName = "Emails"

// WriteXLSX renders the email records as a single-sheet XLSX workbook.
func WriteXLSX(w io.Writer, emails []domain.Email) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	idx, err := f.NewSheet(sheetName)
	if err != nil {
		return fmt.Errorf("creating sheet: %w", err)
	}
	f.SetActiveSheet(idx)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return fmt.Errorf("removing default sheet: %w", err)
	}

	for col, name := range columns {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return fmt.Errorf("header cell name: %w", err)
		}
		if err := f.SetCellValue(sheetName, cell, name); err != nil {
			return fmt.Errorf("writing header: %w", err)
		}
	}

	for rowIdx := range emails {
		row := emailToRow(&emails[rowIdx])
		for col, val := range row {
			cell, err := excelize.CoordinatesToCellName(col+1, rowIdx+2)
			if err != nil {
				return fmt.Errorf("cell name: %w", err)
			}
			if err := f.SetCellValue(sheetName, cell, val); err != nil {
				return fmt.Errorf("writing row %d: %w", rowIdx+1, err)
			}
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("writing workbook: %w", err)
	}
	return nil
}
