package outwriter

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"

	"github.com/huangsam/footfall/internal/contract"
)

// writeWithFile sends the output of write to outputFile, or to stdout when it is empty.
// A note naming the file goes to stderr once the write succeeds.
func writeWithFile(outputFile string, write func(io.Writer) error, successMsg string) error {
	file, err := contract.SelectOutputFile(outputFile)
	if err != nil {
		return err
	}
	toStdout := file == os.Stdout
	if !toStdout {
		defer func() { _ = file.Close() }()
	}

	if err := write(file); err != nil {
		return err
	}
	if !toStdout {
		fmt.Fprintf(os.Stderr, "💾 %s to %s\n", successMsg, outputFile)
	}
	return nil
}

// writeJSON encodes data with two-space indentation.
func writeJSON(w io.Writer, data any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(data); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}
	return nil
}

// writeCSVTable writes the header row of t followed by its plain rows.
func writeCSVTable(w io.Writer, t table) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.headers); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}
	if err := cw.WriteAll(t.rows); err != nil {
		return fmt.Errorf("failed to write CSV rows for %s: %w", t.name, err)
	}
	return nil
}

// floatFormatter renders floats with a fixed number of decimals. NaN renders empty.
func floatFormatter(precision int) func(float64) string {
	return func(v float64) string {
		if math.IsNaN(v) {
			return ""
		}
		return strconv.FormatFloat(v, 'f', precision, 64)
	}
}
