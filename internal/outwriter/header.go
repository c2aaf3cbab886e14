package outwriter

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/huangsam/footfall/internal/contract"
)

// LogRunHeader prints a concise, 2-line header describing the input of a run.
// It goes to stderr so piped csv and json output stays parseable.
func LogRunHeader(cfg *contract.Config, desc string, rows int) {
	fmt.Fprintf(os.Stderr, "🔎 Source: %s (%d rows)\n", desc, rows)

	types := make([]string, len(cfg.Pipeline.FootfallTypes))
	for i, t := range cfg.Pipeline.FootfallTypes {
		types[i] = string(t)
	}
	fmt.Fprintf(os.Stderr, "🧮 Pipeline: %s of %s (std: %.1f, key: %s, daynight: %t)\n",
		cfg.Pipeline.Agg, strings.Join(types, ","), cfg.Pipeline.Std, keyOrNone(cfg.Pipeline.PrimaryKey), cfg.Pipeline.DayNight)

	if !cfg.Start.IsZero() || !cfg.End.IsZero() {
		fmt.Fprintf(os.Stderr, "📅 Range: %s → %s\n", windowBound(cfg.Start), windowBound(cfg.End))
	}
}

func keyOrNone(key string) string {
	if key == "" {
		return "none"
	}
	return key
}

func windowBound(t time.Time) string {
	if t.IsZero() {
		return "open"
	}
	return t.Format(contract.DateFormat)
}
