package contract

import (
	"errors"
	"fmt"
	"runtime"
	"slices"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/huangsam/footfall/internal/logging"
	"github.com/huangsam/footfall/schema"
)

// Default values for pipeline options.
const (
	DefaultStd           = 3.0
	DefaultTimeIndicator = "time_indicator"
	DefaultTypicalKey    = "hex_id"
	DefaultDateColumn    = "count_date"
)

// Sentinel errors for configuration problems. Callers match them with errors.Is.
var (
	ErrInvalidOptions      = errors.New("invalid options")
	ErrInvalidFootfallType = errors.New("invalid footfall type")
)

// DefaultWorkers is the default number of concurrent workers to use.
var DefaultWorkers = runtime.GOMAXPROCS(0)

var validate = validator.New()

// Options holds the per-call configuration of the aggregation pipeline.
type Options struct {
	// PrimaryKey names the spatial key column. Empty disables spatial grouping.
	PrimaryKey string `json:"primary_key,omitempty"`

	// DayNight groups rows by the day/night class of their time slice.
	DayNight bool `json:"day_night"`

	// TimeIndicator names the time slice column.
	TimeIndicator string `json:"time_indicator" validate:"required"`

	Agg           schema.AggOperator    `json:"agg" validate:"oneof=sum mean median min max count"`
	Std           float64               `json:"std" validate:"gt=0"`
	FootfallTypes []schema.FootfallType `json:"footfall_types" validate:"min=1,unique,dive,oneof=residents workers visitors"`
	Workers       int                   `json:"-" validate:"gte=1"`
}

// DefaultOptions returns options with every field at its default.
func DefaultOptions() Options {
	return Options{
		TimeIndicator: DefaultTimeIndicator,
		Agg:           schema.SumAgg,
		Std:           DefaultStd,
		FootfallTypes: slices.Clone(schema.DefaultFootfallTypes),
		Workers:       DefaultWorkers,
	}
}

// WithDefaults fills unset fields with their defaults and logs which ones were filled.
func (o Options) WithDefaults() Options {
	var filled []string
	if o.TimeIndicator == "" {
		o.TimeIndicator = DefaultTimeIndicator
		filled = append(filled, "time_indicator")
	}
	if o.Agg == "" {
		o.Agg = schema.SumAgg
		filled = append(filled, "agg")
	}
	if o.Std == 0 {
		o.Std = DefaultStd
		filled = append(filled, "std")
	}
	if len(o.FootfallTypes) == 0 {
		o.FootfallTypes = slices.Clone(schema.DefaultFootfallTypes)
		filled = append(filled, "footfall_types")
	}
	if o.Workers <= 0 {
		o.Workers = DefaultWorkers
	}
	if len(filled) > 0 {
		logging.Warn("options set to default values", "fields", filled)
	}
	return o
}

// Validate checks the options. An unknown footfall type is reported as ErrInvalidFootfallType,
// every other problem as ErrInvalidOptions.
func (o Options) Validate() error {
	err := validate.Struct(o)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", ErrInvalidOptions, err)
	}
	problems := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		if strings.HasPrefix(fe.StructField(), "FootfallTypes[") && fe.Tag() == "oneof" {
			return fmt.Errorf("%w: [%v]", ErrInvalidFootfallType, fe.Value())
		}
		problems = append(problems, fmt.Sprintf("%s failed '%s'", fe.Field(), fe.Tag()))
	}
	return fmt.Errorf("%w: %s", ErrInvalidOptions, strings.Join(problems, ", "))
}

// Clone returns a deep copy of the options.
func (o Options) Clone() Options {
	o.FootfallTypes = slices.Clone(o.FootfallTypes)
	return o
}

// TypicalOptions configures the typical footfall summary.
// A zero Start or End leaves that side of the window open.
type TypicalOptions struct {
	Options
	Start time.Time
	End   time.Time
}

// WithDefaults fills unset fields. The spatial key defaults to hex_id for summaries.
func (o TypicalOptions) WithDefaults() TypicalOptions {
	if o.PrimaryKey == "" {
		o.PrimaryKey = DefaultTypicalKey
	}
	o.Options = o.Options.WithDefaults()
	return o
}

// Validate checks the options and the date window.
func (o TypicalOptions) Validate() error {
	if err := o.Options.Validate(); err != nil {
		return err
	}
	if !o.Start.IsZero() && !o.End.IsZero() && o.Start.After(o.End) {
		return fmt.Errorf("%w: start (%s) cannot be after end (%s)", ErrInvalidOptions, o.Start.Format(DateFormat), o.End.Format(DateFormat))
	}
	return nil
}

// InWindow reports whether a date falls in the inclusive window, compared at date granularity.
func (o TypicalOptions) InWindow(d time.Time) bool {
	day := TruncateDay(d)
	if !o.Start.IsZero() && day.Before(TruncateDay(o.Start)) {
		return false
	}
	if !o.End.IsZero() && day.After(TruncateDay(o.End)) {
		return false
	}
	return true
}

// ParseFootfallTypes splits a comma-separated list of footfall types.
// Membership is checked later by Options.Validate.
func ParseFootfallTypes(s string) []schema.FootfallType {
	var types []schema.FootfallType
	for part := range strings.SplitSeq(s, ",") {
		if p := strings.ToLower(strings.TrimSpace(part)); p != "" {
			types = append(types, schema.FootfallType(p))
		}
	}
	return types
}
