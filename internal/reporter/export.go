package reporter

import (
	"encoding/csv"
	"fmt"
	"io"

	"po-outstanding-dashboard/internal/dashboard"

	"github.com/xuri/excelize/v2"
)

const utf8BOM = "\uFEFF"

// WriteCSV writes the detail table with a header row. When bom is set the
// output starts with a UTF-8 byte order mark so spreadsheet tools pick the
// right encoding.
func WriteCSV(writer io.Writer, rows []dashboard.DetailRow, delimiter rune, bom bool) error {
	if bom {
		if _, err := io.WriteString(writer, utf8BOM); err != nil {
			return fmt.Errorf("failed to write byte order mark: %w", err)
		}
	}

	csvWriter := csv.NewWriter(writer)
	if delimiter != 0 {
		csvWriter.Comma = delimiter
	}

	if err := csvWriter.Write(dashboard.DetailColumns); err != nil {
		return fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, row := range rows {
		if err := csvWriter.Write(row.Cells()); err != nil {
			return fmt.Errorf("failed to write detail row %d: %w", row.No, err)
		}
	}

	csvWriter.Flush()
	return csvWriter.Error()
}

// WriteXLSX writes the detail table as a workbook with a single sheet
func WriteXLSX(writer io.Writer, rows []dashboard.DetailRow, sheet string) (err error) {
	f := excelize.NewFile()
	defer func() {
		if cerr := f.Close(); err == nil && cerr != nil {
			err = cerr
		}
	}()

	if sheet == "" {
		sheet = "Sheet1"
	}
	if sheet != "Sheet1" {
		if err := f.SetSheetName("Sheet1", sheet); err != nil {
			return fmt.Errorf("failed to name sheet: %w", err)
		}
	}

	header := make([]interface{}, len(dashboard.DetailColumns))
	for i, col := range dashboard.DetailColumns {
		header[i] = col
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return fmt.Errorf("failed to write XLSX headers: %w", err)
	}

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		values := []interface{}{
			row.No,
			row.PONumber,
			row.VendorName,
			row.PostingDate,
			row.Balance,
			row.Division,
		}
		if err := f.SetSheetRow(sheet, cell, &values); err != nil {
			return fmt.Errorf("failed to write detail row %d: %w", row.No, err)
		}
	}

	if err := f.SetColWidth(sheet, "B", "F", 20); err != nil {
		return err
	}

	if err := f.Write(writer); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}
