package iocache

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/huangsam/footfall/internal/contract"
	"github.com/huangsam/footfall/internal/parquet"
)

// ExportRuns writes the run history to <outputBase>.runs.parquet and
// the stored typical rows to <outputBase>.typical.parquet.
func ExportRuns(ctx context.Context, store contract.RunStore, outputBase string, w io.Writer) error {
	if outputBase == "" {
		return errors.New("--output-file is required for export command")
	}
	if store == nil {
		return errors.New("run tracking is disabled. Set --run-backend to export runs")
	}

	status, err := store.GetStatus(ctx)
	if err != nil {
		return fmt.Errorf("failed to get run status: %w", err)
	}
	if status.TotalRuns == 0 {
		return errors.New("no run data found to export")
	}
	_, _ = fmt.Fprintf(w, "Exporting data from %s backend...\n", status.Backend)

	runs, err := store.GetRuns(ctx)
	if err != nil {
		return fmt.Errorf("failed to retrieve runs: %w", err)
	}
	typical, err := store.GetTypicalRows(ctx)
	if err != nil {
		return fmt.Errorf("failed to retrieve typical rows: %w", err)
	}

	runsFile := outputBase + ".runs.parquet"
	if err := parquet.Write(parquet.ConvertRunRecords(runs), runsFile); err != nil {
		return fmt.Errorf("failed to write runs: %w", err)
	}
	_, _ = fmt.Fprintf(w, "Exported %d runs to: %s\n", len(runs), runsFile)

	typicalFile := outputBase + ".typical.parquet"
	if err := parquet.Write(parquet.ConvertStoredTypicalRecords(typical), typicalFile); err != nil {
		return fmt.Errorf("failed to write typical rows: %w", err)
	}
	_, _ = fmt.Fprintf(w, "Exported %d typical rows to: %s\n", len(typical), typicalFile)
	return nil
}
