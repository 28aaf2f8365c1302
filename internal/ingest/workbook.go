package ingest

import (
	"bytes"
	"fmt"

	"github.com/xuri/excelize/v2"
)

// openWorkbook opens raw workbook bytes. The caller owns closing the file.
func openWorkbook(data []byte) (*excelize.File, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	return f, nil
}

// sheetGrid reads one worksheet as a raw 2-D grid of cell text. Cell
// values come back formatted the way the sheet displays them, which is
// what the header and cleaning heuristics are written against.
func sheetGrid(f *excelize.File, sheet string) ([][]string, error) {
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
	}
	return rows, nil
}
