// Package outwriter has output and writer logic.
package outwriter

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/huangsam/footfall/internal/contract"
	"github.com/huangsam/footfall/schema"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
)

// table is a titled grid of formatted cells.
// display holds the text-mode cells when they differ from rows, such as colored labels.
type table struct {
	name           string
	headers        []string
	rows           [][]string
	displayHeaders []string
	display        [][]string
}

// report bundles every rendition of one command result so a single dispatcher
// can serve all output modes.
type report struct {
	tables  []table                 // text and xlsx; one sheet per table
	flat    table                   // csv
	json    any                     // json
	parquet func(path string) error // parquet
	footer  []string                // text only
}

// writeReport outputs a report, dispatching based on the output format configured.
func writeReport(r report, cfg *contract.Config) error {
	switch cfg.Output {
	case schema.JSONOut:
		if err := writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeJSON(w, r.json)
		}, "Wrote JSON"); err != nil {
			return fmt.Errorf("error writing JSON output: %w", err)
		}
	case schema.CSVOut:
		if err := writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeCSVTable(w, r.flat)
		}, "Wrote CSV"); err != nil {
			return fmt.Errorf("error writing CSV output: %w", err)
		}
	case schema.ParquetOut:
		if r.parquet == nil {
			return fmt.Errorf("parquet output is not supported for this command")
		}
		if cfg.OutputFile == "" {
			return fmt.Errorf("an output file is required for parquet output")
		}
		if err := r.parquet(cfg.OutputFile); err != nil {
			return fmt.Errorf("error writing Parquet output: %w", err)
		}
		fmt.Fprintf(os.Stderr, "💾 Wrote Parquet to %s\n", cfg.OutputFile)
	case schema.XLSXOut:
		if err := writeXLSX(cfg.OutputFile, r.tables); err != nil {
			return fmt.Errorf("error writing XLSX output: %w", err)
		}
		fmt.Fprintf(os.Stderr, "💾 Wrote XLSX to %s\n", cfg.OutputFile)
	default:
		// Default to human-readable table
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeTextReport(w, r)
		}, "Wrote table")
	}
	return nil
}

// writeTextReport renders each table with tablewriter followed by the footer lines.
func writeTextReport(w io.Writer, r report) error {
	for _, t := range r.tables {
		if len(r.tables) > 1 {
			if _, err := fmt.Fprintf(w, "\n%s\n", t.name); err != nil {
				return err
			}
		}
		if err := writeTextTable(w, t); err != nil {
			return err
		}
	}
	for _, line := range r.footer {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

func writeTextTable(w io.Writer, t table) error {
	tbl := tablewriter.NewWriter(w)
	headers := t.displayHeaders
	if headers == nil {
		headers = t.headers
	}
	tbl.Header(headers)
	tbl.Configure(func(cfg *tablewriter.Config) {
		cfg.Row.Alignment.Global = tw.AlignRight
	})
	data := t.display
	if data == nil {
		data = t.rows
	}
	if err := tbl.Bulk(data); err != nil {
		return err
	}
	return tbl.Render()
}

// completionLine is the last footer line shared by every command.
func completionLine(cfg *contract.Config, duration time.Duration) string {
	return fmt.Sprintf("Completed in %v with %d workers. Cache backend: %s", duration, cfg.Pipeline.Workers, cfg.CacheBackend)
}
