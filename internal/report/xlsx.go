// Package report writes an XLSX workbook summarizing a batch run, one row
// per successfully extracted document.
package report

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/hyperjump/toridasu/internal/models"
)

const sheetName = "Extraction Report"

// Row pairs an extraction result with the output file it was written to.
type Row struct {
	Record     *models.DocumentRecord
	OutputPath string
}

// WriteXLSX writes one workbook with a header row followed by one row per
// document, in the order given.
func WriteXLSX(path string, rows []Row) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	headers := []string{
		"File",
		"Pages",
		"Words",
		"Characters",
		"Images",
		"Fonts",
		"Size (MB)",
		"Seconds",
		"Output",
	}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(sheetName, cell, h); err != nil {
			return fmt.Errorf("write header: %w", err)
		}
	}

	for n, row := range rows {
		rec := row.Record
		values := []any{
			rec.FilePath,
			rec.PageCount,
			rec.TotalWords,
			rec.TotalChars,
			rec.ImagesCount,
			len(rec.FontsUsed),
			rec.FileSizeMB,
			rec.ExtractionTime,
			row.OutputPath,
		}
		for i, v := range values {
			cell, _ := excelize.CoordinatesToCellName(i+1, n+2)
			if err := f.SetCellValue(sheetName, cell, v); err != nil {
				return fmt.Errorf("write row %d: %w", n+1, err)
			}
		}
	}

	_ = f.SetColWidth(sheetName, "A", "A", 48)
	_ = f.SetColWidth(sheetName, "I", "I", 60)

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save workbook: %w", err)
	}
	return nil
}
