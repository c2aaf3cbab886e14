package contract

import (
	"fmt"
	"strings"
	"time"

	"github.com/huangsam/footfall/schema"
)

// Default values for configuration.
const (
	DefaultPrecision = 1
	MaxPrecision     = 4
)

// ProfileConfig holds profiling settings.
type ProfileConfig struct {
	Enabled bool
	Prefix  string
}

// ColumnMapping names the source columns that feed a FootfallRecord.
type ColumnMapping struct {
	Date      string
	TimeSlice string
	Key       string
	Resident  string
	Worker    string
	Visitor   string
}

// DefaultColumnMapping returns the column names used by footfall exports.
func DefaultColumnMapping() ColumnMapping {
	return ColumnMapping{
		Date:      DefaultDateColumn,
		TimeSlice: DefaultTimeIndicator,
		Resident:  schema.RawColumns[schema.Residents],
		Worker:    schema.RawColumns[schema.Workers],
		Visitor:   schema.RawColumns[schema.Visitors],
	}
}

// Config holds the runtime configuration for a command.
// This struct remains the "final, validated" config.
type Config struct {
	InputPath       string
	SourceFormat    schema.SourceFormat
	Sheet           string
	SourceBackend   schema.DatabaseBackend
	SourceDBConnect string // Please use env var as this is plaintext
	SourceTable     string
	Columns         ColumnMapping

	Pipeline Options
	Start    time.Time
	End      time.Time
	Metric   schema.FootfallType // Footfall type for the anomalies command

	Precision  int
	Output     schema.OutputMode
	OutputFile string
	ExportName string // Base name for exported files
	Width      int    // Terminal width override (0 = auto-detect)
	UseColors  bool   // Enable colored labels in table output

	LogLevel  string
	LogFormat string

	CacheBackend   schema.DatabaseBackend
	CacheDBConnect string // Please use env var as this is plaintext

	RunBackend   schema.DatabaseBackend
	RunDBConnect string // Please use env var as this is plaintext
}

// ConfigRawInput holds the raw inputs from all sources (flags, env, config file).
// Viper unmarshals into this struct with UnmarshalExact, so unknown keys are rejected.
type ConfigRawInput struct {
	// These are set manually from positional args and the command, so no tag
	InputPathStr   string
	SourceDeferred bool // The source path arrives per request, as with the mcp server

	// --- Fields from rootCmd.PersistentFlags() ---
	ConfigFile     string  `mapstructure:"config"`
	Profile        string  `mapstructure:"profile"`
	Format         string  `mapstructure:"format"`
	Sheet          string  `mapstructure:"sheet"`
	SourceBackend  string  `mapstructure:"source-backend"`
	SourceConnect  string  `mapstructure:"source-db-connect"`
	SourceTable    string  `mapstructure:"source-table"`
	DateColumn     string  `mapstructure:"date-column"`
	TimeIndicator  string  `mapstructure:"time-indicator"`
	PrimaryKey     string  `mapstructure:"primary-key"`
	ResidentColumn string  `mapstructure:"resident-column"`
	WorkerColumn   string  `mapstructure:"worker-column"`
	VisitorColumn  string  `mapstructure:"visitor-column"`
	DayNight       bool    `mapstructure:"day-night"`
	Agg            string  `mapstructure:"agg"`
	Std            float64 `mapstructure:"std"`
	FootfallType   string  `mapstructure:"footfall-type"`
	Workers        int     `mapstructure:"workers"`
	Precision      int     `mapstructure:"precision"`
	Output         string  `mapstructure:"output"`
	OutputFile     string  `mapstructure:"output-file"`
	Name           string  `mapstructure:"name"`
	Width          int     `mapstructure:"width"`
	Color          string  `mapstructure:"color"`
	LogLevel       string  `mapstructure:"log-level"`
	LogFormat      string  `mapstructure:"log-format"`
	CacheBackend   string  `mapstructure:"cache-backend"`
	CacheDBConnect string  `mapstructure:"cache-db-connect"`
	RunBackend     string  `mapstructure:"run-backend"`
	RunDBConnect   string  `mapstructure:"run-db-connect"`

	// --- Fields from typicalCmd.Flags() ---
	Start string `mapstructure:"start"`
	End   string `mapstructure:"end"`

	// --- Fields from anomaliesCmd.Flags() ---
	Metric string `mapstructure:"metric"`
}

// Clone returns a deep copy of the Config struct.
func (c *Config) Clone() *Config {
	clone := *c
	clone.Pipeline = c.Pipeline.Clone()
	return &clone
}

// TypicalOptions returns the summary options for the configured pipeline and window.
func (c *Config) TypicalOptions() TypicalOptions {
	return TypicalOptions{Options: c.Pipeline.Clone(), Start: c.Start, End: c.End}
}

// ProcessAndValidate performs all parsing and validation on the raw inputs
// and updates the final Config struct.
func ProcessAndValidate(cfg *Config, input *ConfigRawInput) error {
	if err := validateSimpleInputs(cfg, input); err != nil {
		return err
	}
	if err := processSource(cfg, input); err != nil {
		return err
	}
	if err := processPipeline(cfg, input); err != nil {
		return err
	}
	if err := processTimeRange(cfg, input, time.Now()); err != nil {
		return err
	}
	if err := validateBackendConfigs(cfg, input); err != nil {
		return err
	}
	return nil
}

// ValidateDatabaseConnectionString validates the format of database connection strings
// for MySQL, PostgreSQL and Redis backends.
func ValidateDatabaseConnectionString(backend schema.DatabaseBackend, connStr string) error {
	switch backend {
	case schema.SQLiteBackend, schema.NoneBackend:
		return nil
	case schema.MySQLBackend:
		if connStr == "" {
			return fmt.Errorf("a connection string is required when using %s backend", backend)
		}
		if !strings.Contains(connStr, "@tcp(") {
			return fmt.Errorf("MySQL connection string must contain '@tcp(' for host:port specification")
		}
		if !strings.Contains(connStr, "/") {
			return fmt.Errorf("MySQL connection string must contain '/' followed by database name")
		}
	case schema.PostgreSQLBackend:
		if connStr == "" {
			return fmt.Errorf("a connection string is required when using %s backend", backend)
		}
		if !strings.Contains(connStr, "host=") {
			return fmt.Errorf("PostgreSQL connection string must contain 'host=' parameter")
		}
		if !strings.Contains(connStr, "dbname=") {
			return fmt.Errorf("PostgreSQL connection string must contain 'dbname=' parameter")
		}
	case schema.RedisBackend:
		if connStr == "" {
			return fmt.Errorf("a connection string is required when using %s backend", backend)
		}
	}
	return nil
}

// validateSimpleInputs processes and validates output related fields.
func validateSimpleInputs(cfg *Config, input *ConfigRawInput) error {
	cfg.OutputFile = input.OutputFile
	cfg.Width = input.Width
	cfg.LogLevel = input.LogLevel
	cfg.LogFormat = input.LogFormat

	colors, err := ParseBoolString(input.Color)
	if err != nil {
		return fmt.Errorf("invalid --color value: %w", err)
	}
	cfg.UseColors = colors

	if input.Precision < 0 || input.Precision > MaxPrecision {
		return fmt.Errorf("precision must be between 0 and %d (received %d)", MaxPrecision, input.Precision)
	}
	cfg.Precision = input.Precision

	cfg.Output = schema.OutputMode(strings.ToLower(input.Output))
	if _, ok := schema.ValidOutputModes[cfg.Output]; !ok {
		return fmt.Errorf("invalid output format '%s'. must be text, csv, json, parquet, xlsx", input.Output)
	}

	cfg.ExportName = strings.TrimSpace(input.Name)
	if (cfg.Output == schema.ParquetOut || cfg.Output == schema.XLSXOut) && cfg.OutputFile == "" {
		if cfg.ExportName == "" {
			return fmt.Errorf("--name or --output-file is required for %s output", cfg.Output)
		}
		cfg.OutputFile = ExportFileName(cfg.ExportName, cfg.Output)
	}
	return nil
}

// processSource validates where the raw rows come from and how their columns are named.
func processSource(cfg *Config, input *ConfigRawInput) error {
	cfg.InputPath = strings.TrimSpace(input.InputPathStr)
	cfg.Sheet = input.Sheet

	format := strings.ToLower(input.Format)
	if format == "" {
		format = inferFormat(cfg.InputPath)
	}
	cfg.SourceFormat = schema.SourceFormat(format)
	if _, ok := schema.ValidSourceFormats[cfg.SourceFormat]; !ok {
		return fmt.Errorf("invalid format '%s'. must be csv, xlsx, sql", input.Format)
	}

	switch cfg.SourceFormat {
	case schema.SQLSource:
		cfg.SourceBackend = schema.DatabaseBackend(strings.ToLower(input.SourceBackend))
		if cfg.SourceBackend == "" {
			cfg.SourceBackend = schema.SQLiteBackend
		}
		if _, ok := schema.ValidSQLSourceBackends[cfg.SourceBackend]; !ok {
			return fmt.Errorf("invalid source backend '%s'. must be sqlite, mysql, postgresql", input.SourceBackend)
		}
		cfg.SourceDBConnect = input.SourceConnect
		if cfg.SourceBackend == schema.SQLiteBackend && cfg.SourceDBConnect == "" {
			cfg.SourceDBConnect = cfg.InputPath
		}
		if err := ValidateDatabaseConnectionString(cfg.SourceBackend, cfg.SourceDBConnect); err != nil {
			return err
		}
		if cfg.SourceDBConnect == "" {
			return fmt.Errorf("--source-db-connect is required for sql sources")
		}
		cfg.SourceTable = strings.TrimSpace(input.SourceTable)
		if cfg.SourceTable == "" {
			return fmt.Errorf("--source-table is required for sql sources")
		}
		if err := ValidateTableName(cfg.SourceTable); err != nil {
			return err
		}
	default:
		if cfg.InputPath == "" && !input.SourceDeferred {
			return fmt.Errorf("an input file is required for %s sources", cfg.SourceFormat)
		}
	}

	cfg.Columns = DefaultColumnMapping()
	if input.DateColumn != "" {
		cfg.Columns.Date = input.DateColumn
	}
	if input.TimeIndicator != "" {
		cfg.Columns.TimeSlice = input.TimeIndicator
	}
	cfg.Columns.Key = input.PrimaryKey
	if input.ResidentColumn != "" {
		cfg.Columns.Resident = input.ResidentColumn
	}
	if input.WorkerColumn != "" {
		cfg.Columns.Worker = input.WorkerColumn
	}
	if input.VisitorColumn != "" {
		cfg.Columns.Visitor = input.VisitorColumn
	}
	return nil
}

// processPipeline builds and validates the pipeline options.
func processPipeline(cfg *Config, input *ConfigRawInput) error {
	if input.Workers < 0 {
		return fmt.Errorf("workers must be greater than 0 (received %d)", input.Workers)
	}
	opts := Options{
		PrimaryKey:    strings.TrimSpace(input.PrimaryKey),
		DayNight:      input.DayNight,
		TimeIndicator: cfg.Columns.TimeSlice,
		Agg:           schema.AggOperator(strings.ToLower(input.Agg)),
		Std:           input.Std,
		FootfallTypes: ParseFootfallTypes(input.FootfallType),
		Workers:       input.Workers,
	}.WithDefaults()
	if err := opts.Validate(); err != nil {
		return err
	}
	cfg.Pipeline = opts

	cfg.Metric = schema.FootfallType(strings.ToLower(strings.TrimSpace(input.Metric)))
	if cfg.Metric == "" {
		cfg.Metric = schema.Residents
	}
	if _, ok := schema.ValidFootfallTypes[cfg.Metric]; !ok {
		return fmt.Errorf("%w: [%s]", ErrInvalidFootfallType, input.Metric)
	}
	return nil
}

// processTimeRange parses the optional date window.
func processTimeRange(cfg *Config, input *ConfigRawInput, now time.Time) error {
	start, err := ParseWindowBound(input.Start, now)
	if err != nil {
		return fmt.Errorf("invalid start date: %w", err)
	}
	end, err := ParseWindowBound(input.End, now)
	if err != nil {
		return fmt.Errorf("invalid end date: %w", err)
	}
	if !start.IsZero() && !end.IsZero() && start.After(end) {
		return fmt.Errorf("start date (%s) cannot be after end date (%s)", start.Format(DateFormat), end.Format(DateFormat))
	}
	cfg.Start = start
	cfg.End = end
	return nil
}

// validateBackendConfigs validates cache and run backend configurations.
func validateBackendConfigs(cfg *Config, input *ConfigRawInput) error {
	// --- Cache Backend Validation ---
	cfg.CacheBackend = schema.DatabaseBackend(strings.ToLower(input.CacheBackend))
	if _, ok := schema.ValidCacheBackends[cfg.CacheBackend]; !ok {
		return fmt.Errorf("invalid cache backend '%s'. must be sqlite, mysql, postgresql, redis, none", input.CacheBackend)
	}
	cfg.CacheDBConnect = input.CacheDBConnect
	if err := ValidateDatabaseConnectionString(cfg.CacheBackend, cfg.CacheDBConnect); err != nil {
		return err
	}

	// --- Run Backend Validation ---
	cfg.RunBackend = schema.DatabaseBackend(strings.ToLower(input.RunBackend))
	if cfg.RunBackend == "" {
		cfg.RunBackend = schema.NoneBackend
	}
	if _, ok := schema.ValidRunBackends[cfg.RunBackend]; !ok {
		return fmt.Errorf("invalid run backend '%s'. must be sqlite, mysql, postgresql, none", input.RunBackend)
	}
	cfg.RunDBConnect = input.RunDBConnect
	if err := ValidateDatabaseConnectionString(cfg.RunBackend, cfg.RunDBConnect); err != nil {
		return err
	}

	// Cache and runs must not share a SQLite file, including the default paths
	if cfg.CacheBackend == schema.SQLiteBackend && cfg.RunBackend == schema.SQLiteBackend {
		cachePath := cfg.CacheDBConnect
		if cachePath == "" {
			cachePath = GetCacheDBFilePath()
		}
		runPath := cfg.RunDBConnect
		if runPath == "" {
			runPath = GetRunDBFilePath()
		}
		if cachePath == runPath {
			return fmt.Errorf("cache and run storage must use different SQLite database files. Both resolve to %q", cachePath)
		}
	}
	return nil
}

// ProcessProfilingConfig handles the profiling flag and sets up profiling configuration.
func ProcessProfilingConfig(profile *ProfileConfig, profilePrefix string) error {
	if profilePrefix != "" {
		profile.Enabled = true
		profile.Prefix = profilePrefix
	}
	return nil
}

// inferFormat guesses the source format from a file extension.
func inferFormat(path string) string {
	lower := strings.ToLower(path)
	switch {
	case strings.HasSuffix(lower, ".xlsx"):
		return string(schema.XLSXSource)
	case strings.HasSuffix(lower, ".db"), strings.HasSuffix(lower, ".sqlite"):
		return string(schema.SQLSource)
	default:
		return string(schema.CSVSource)
	}
}

// RevalidateSource points a config at another CSV or XLSX file, inferring its format.
func RevalidateSource(cfg *Config, path string) error {
	cfg.InputPath = strings.TrimSpace(path)
	if cfg.InputPath == "" {
		return fmt.Errorf("a path to a csv or xlsx file is required")
	}
	cfg.SourceFormat = schema.SourceFormat(inferFormat(cfg.InputPath))
	if cfg.SourceFormat == schema.SQLSource {
		return fmt.Errorf("sql sources are not supported for '%s'", path)
	}
	return nil
}
