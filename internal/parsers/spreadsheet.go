package parsers

import (
	"fmt"
	"io"

	"github.com/extrame/xls"
	"github.com/xuri/excelize/v2"

	"po-outstanding-dashboard/pkg/errors"
)

// sliceRowReader serves rows already read from a workbook
type sliceRowReader struct {
	rows [][]string
	next int
}

func (r *sliceRowReader) Read() ([]string, error) {
	if r.next >= len(r.rows) {
		return nil, io.EOF
	}
	row := r.rows[r.next]
	r.next++
	return row, nil
}

func (r *sliceRowReader) Close() error {
	return nil
}

// openXLSX reads every row of the first worksheet
func openXLSX(filePath string) (rowReader, error) {
	file, err := openSourceFile(filePath)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	book, err := excelize.OpenReader(file)
	if err != nil {
		return nil, errors.FileError(errors.CodeFileCorrupted, filePath, err)
	}
	defer book.Close()

	sheetName := book.GetSheetName(0)
	if sheetName == "" {
		return &sliceRowReader{}, nil
	}

	rows, err := book.GetRows(sheetName)
	if err != nil {
		return nil, errors.FileError(errors.CodeFileCorrupted, filePath, err)
	}

	return &sliceRowReader{rows: rows}, nil
}

// openXLS reads every row of the first worksheet of a legacy workbook
func openXLS(filePath string) (reader rowReader, err error) {
	file, err := openSourceFile(filePath)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	// the BIFF decoder panics on some truncated records
	defer func() {
		if r := recover(); r != nil {
			reader = nil
			err = errors.FileError(errors.CodeFileCorrupted, filePath, fmt.Errorf("xls decode: %v", r))
		}
	}()

	book, err := xls.OpenReader(file, "utf-8")
	if err != nil {
		return nil, errors.FileError(errors.CodeFileCorrupted, filePath, err)
	}

	sheet := book.GetSheet(0)
	if sheet == nil {
		return &sliceRowReader{}, nil
	}

	rows := make([][]string, 0, int(sheet.MaxRow)+1)
	for i := 0; i <= int(sheet.MaxRow); i++ {
		row := sheet.Row(i)
		if row == nil {
			rows = append(rows, nil)
			continue
		}

		cells := make([]string, 0, row.LastCol())
		for j := 0; j < row.LastCol(); j++ {
			cells = append(cells, row.Col(j))
		}
		rows = append(rows, cells)
	}

	return &sliceRowReader{rows: rows}, nil
}
