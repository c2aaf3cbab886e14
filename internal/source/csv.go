package source

import (
	"context"
	"fmt"
	"os"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"github.com/huangsam/footfall/internal/contract"
	"github.com/huangsam/footfall/schema"
)

// CSVSource reads footfall rows from a delimited text file.
type CSVSource struct {
	path string
	cols contract.ColumnMapping
}

var _ contract.DataSource = &CSVSource{} // Compile-time check

// NewCSV returns a source for the CSV file at path.
func NewCSV(path string, cols contract.ColumnMapping) *CSVSource {
	return &CSVSource{path: path, cols: cols}
}

// Load reads the whole file. Every column is read as text and counts are parsed afterwards,
// so leading zeros in keys and slices such as "06-09" survive.
func (s *CSVSource) Load(_ context.Context) ([]schema.FootfallRecord, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", s.path, err)
	}
	defer func() { _ = f.Close() }()

	df := dataframe.ReadCSV(f,
		dataframe.HasHeader(true),
		dataframe.DetectTypes(false),
		dataframe.DefaultType(series.String),
	)
	if df.Err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", s.path, df.Err)
	}

	all := df.Records()
	if len(all) == 0 {
		return nil, nil
	}
	return mapRows(all[0], all[1:], s.cols)
}

// Describe implements the DataSource interface.
func (s *CSVSource) Describe() string {
	return "csv " + s.path
}
