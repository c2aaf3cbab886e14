package source

import (
	"context"
	"fmt"

	"github.com/huangsam/footfall/internal/contract"
	"github.com/huangsam/footfall/schema"
	"github.com/xuri/excelize/v2"
)

// XLSXSource reads footfall rows from one sheet of a workbook.
type XLSXSource struct {
	path  string
	sheet string
	cols  contract.ColumnMapping
}

var _ contract.DataSource = &XLSXSource{} // Compile-time check

// NewXLSX returns a source for a workbook. An empty sheet selects the first one.
func NewXLSX(path, sheet string, cols contract.ColumnMapping) *XLSXSource {
	return &XLSXSource{path: path, sheet: sheet, cols: cols}
}

// Load reads the sheet; the first row is the header.
func (s *XLSXSource) Load(_ context.Context) ([]schema.FootfallRecord, error) {
	f, err := excelize.OpenFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer func() { _ = f.Close() }()

	sheet := s.sheet
	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, fmt.Errorf("workbook %s has no sheets", s.path)
		}
		sheet = sheets[0]
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheet, err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return mapRows(rows[0], rows[1:], s.cols)
}

// Describe implements the DataSource interface.
func (s *XLSXSource) Describe() string {
	if s.sheet != "" {
		return fmt.Sprintf("xlsx %s [%s]", s.path, s.sheet)
	}
	return "xlsx " + s.path
}
