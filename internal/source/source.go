// Package source loads raw footfall rows from files and databases.
package source

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/huangsam/footfall/internal/contract"
	"github.com/huangsam/footfall/internal/logging"
	"github.com/huangsam/footfall/schema"
)

// New returns the data source described by the config.
func New(cfg *contract.Config) (contract.DataSource, error) {
	switch cfg.SourceFormat {
	case schema.CSVSource, "":
		return NewCSV(cfg.InputPath, cfg.Columns), nil
	case schema.XLSXSource:
		return NewXLSX(cfg.InputPath, cfg.Sheet, cfg.Columns), nil
	case schema.SQLSource:
		return NewSQL(cfg.SourceBackend, cfg.SourceDBConnect, cfg.SourceTable, cfg.Columns)
	default:
		return nil, fmt.Errorf("unsupported source format: %s", cfg.SourceFormat)
	}
}

// missingValues are the cell values read as a missing count.
var missingValues = map[string]struct{}{
	"": {}, "NA": {}, "NaN": {}, "nan": {}, "<nil>": {}, "NULL": {}, "null": {},
}

// columnIndex locates the mapped columns in a header row.
type columnIndex struct {
	date, slice, key          int
	resident, worker, visitor int
	extra                     map[int]string
}

// indexColumns resolves every mapped column. Date and count columns are required;
// the key column is required only when configured. The time slice column is optional.
func indexColumns(header []string, cols contract.ColumnMapping) (columnIndex, error) {
	pos := make(map[string]int, len(header))
	for i, h := range header {
		h = strings.TrimSpace(h)
		if _, dup := pos[h]; !dup {
			pos[h] = i
		}
	}
	find := func(name string, required bool) (int, error) {
		if name == "" {
			return -1, nil
		}
		if i, ok := pos[name]; ok {
			return i, nil
		}
		if required {
			return -1, fmt.Errorf("missing required column %q", name)
		}
		return -1, nil
	}

	idx := columnIndex{extra: map[int]string{}}
	var err error
	if idx.date, err = find(cols.Date, true); err != nil {
		return idx, err
	}
	if idx.date < 0 {
		return idx, fmt.Errorf("no date column configured")
	}
	if idx.key, err = find(cols.Key, true); err != nil {
		return idx, err
	}
	if idx.slice, err = find(cols.TimeSlice, false); err != nil {
		return idx, err
	}
	if idx.slice < 0 && cols.TimeSlice != "" {
		logging.Debug("time slice column not found", "column", cols.TimeSlice)
	}
	if idx.resident, err = find(cols.Resident, true); err != nil {
		return idx, err
	}
	if idx.worker, err = find(cols.Worker, true); err != nil {
		return idx, err
	}
	if idx.visitor, err = find(cols.Visitor, true); err != nil {
		return idx, err
	}

	mapped := map[int]struct{}{}
	for _, i := range []int{idx.date, idx.slice, idx.key, idx.resident, idx.worker, idx.visitor} {
		if i >= 0 {
			mapped[i] = struct{}{}
		}
	}
	for i, h := range header {
		if _, ok := mapped[i]; !ok {
			idx.extra[i] = strings.TrimSpace(h)
		}
	}
	return idx, nil
}

// mapRows converts a header plus string rows into footfall records.
// Rows may be shorter than the header; absent cells read as empty.
func mapRows(header []string, rows [][]string, cols contract.ColumnMapping) ([]schema.FootfallRecord, error) {
	idx, err := indexColumns(header, cols)
	if err != nil {
		return nil, err
	}

	cell := func(row []string, i int) string {
		if i < 0 || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	records := make([]schema.FootfallRecord, 0, len(rows))
	for n, row := range rows {
		rec := schema.FootfallRecord{
			Key:       cell(row, idx.key),
			CountDate: cell(row, idx.date),
			TimeSlice: cell(row, idx.slice),
		}
		counts := []struct {
			col    string
			i      int
			target *float64
		}{
			{cols.Resident, idx.resident, &rec.Resident},
			{cols.Worker, idx.worker, &rec.Worker},
			{cols.Visitor, idx.visitor, &rec.Visitor},
		}
		for _, c := range counts {
			v, err := parseCount(cell(row, c.i))
			if err != nil {
				return nil, fmt.Errorf("row %d column %q: %w", n+1, c.col, err)
			}
			*c.target = v
		}
		if len(idx.extra) > 0 {
			rec.Extra = make(map[string]string, len(idx.extra))
			for i, name := range idx.extra {
				rec.Extra[name] = cell(row, i)
			}
		}
		records = append(records, rec)
	}
	return records, nil
}

// parseCount reads a count cell. Missing markers yield NaN.
func parseCount(s string) (float64, error) {
	if _, ok := missingValues[s]; ok {
		return math.NaN(), nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid count %q", s)
	}
	return v, nil
}
