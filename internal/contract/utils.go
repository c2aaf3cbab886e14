package contract

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/huangsam/footfall/internal/logging"
	"github.com/huangsam/footfall/schema"
)

// Color variables for console output.
var (
	AnomalyColor = color.New(color.FgRed, color.Bold) // AnomalyColor marks corrected outliers.
	NormalColor  = color.New(color.FgCyan)            // NormalColor marks values kept as-is.
	DayColor     = color.New(color.FgYellow)          // DayColor marks the daytime class.
	NightColor   = color.New(color.FgBlue)            // NightColor marks the nighttime class.
)

// GetColorLabel returns a colored anomaly label for console output (table).
func GetColorLabel(isAnomaly bool) string {
	text := schema.AnomalyLabel(isAnomaly)
	if isAnomaly {
		return AnomalyColor.Sprint(text)
	}
	return NormalColor.Sprint(text)
}

// GetColorDaynight returns a colored day/night class for console output.
func GetColorDaynight(class schema.DaynightClass) string {
	switch class {
	case schema.Daytime:
		return DayColor.Sprint(string(class))
	case schema.Nighttime:
		return NightColor.Sprint(string(class))
	default:
		return ""
	}
}

// SelectOutputFile returns the appropriate file handle for output, based on the provided
// file path. An empty path means stdout.
func SelectOutputFile(filePath string) (*os.File, error) {
	if filePath == "" {
		return os.Stdout, nil
	}
	return os.Create(filePath)
}

// ExportFileName returns the default file name for an export with the given base name.
func ExportFileName(name string, mode schema.OutputMode) string {
	ext := string(mode)
	if mode == schema.TextOut {
		ext = "txt"
	}
	return name + "." + ext
}

// LogFatal logs an error and exits the program.
func LogFatal(msg string, err error) {
	logging.Error(msg, "error", err)
	os.Exit(1)
}

// LogWarn logs a warning message.
func LogWarn(msg string, err error) {
	logging.Warn(msg, "error", err)
}

// GetCacheDBFilePath returns the path to the SQLite DB file for cache storage.
func GetCacheDBFilePath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ".footfall_cache.db"
	}
	return filepath.Join(homeDir, ".footfall_cache.db")
}

// GetRunDBFilePath returns the path to the SQLite DB file for run history.
func GetRunDBFilePath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ".footfall_runs.db"
	}
	return filepath.Join(homeDir, ".footfall_runs.db")
}

// TruncateKey truncates a spatial key to a maximum width with ellipsis prefix.
// Requires maxWidth > 3 to leave room for the prefix and at least one character.
func TruncateKey(key string, maxWidth int) string {
	runes := []rune(key)
	if len(runes) > maxWidth && maxWidth > 3 {
		return "..." + string(runes[len(runes)-maxWidth+3:])
	}
	return key
}

// ParseBoolString parses a string value into a boolean.
// Accepts "yes", "no", "true", "false", "1", "0" (case-insensitive).
// Returns an error for invalid values.
func ParseBoolString(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "yes", "true", "1":
		return true, nil
	case "no", "false", "0":
		return false, nil
	default:
		return false, fmt.Errorf("invalid boolean string: %s (expected yes/no/true/false/1/0)", s)
	}
}
