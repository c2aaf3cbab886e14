package schema

// Custom string types for type safety.
type (
	// FootfallType represents one of the footfall populations being counted.
	FootfallType string

	// AggOperator represents the operator used to aggregate raw counts.
	AggOperator string

	// WeekClass represents the weekday/weekend class of a date.
	WeekClass string

	// DaynightClass represents the day/night class of a time slice.
	DaynightClass string

	// GroupKey represents a grouping dimension for anomaly detection.
	GroupKey string

	// OutputMode represents the format of the output.
	OutputMode string

	// SourceFormat represents the format of the input data.
	SourceFormat string

	// DatabaseBackend represents the database backend for caching and run history.
	DatabaseBackend string
)

// All footfall types supported.
const (
	Residents FootfallType = "residents"
	Workers   FootfallType = "workers"
	Visitors  FootfallType = "visitors"
)

// All aggregation operators supported.
const (
	SumAgg    AggOperator = "sum" // default
	MeanAgg   AggOperator = "mean"
	MedianAgg AggOperator = "median"
	MinAgg    AggOperator = "min"
	MaxAgg    AggOperator = "max"
	CountAgg  AggOperator = "count"
)

// Week classes.
const (
	Weekday WeekClass = "Weekday"
	Weekend WeekClass = "Weekend"
)

// Day/night classes. The values match the bucket labels used by footfall exports.
const (
	Daytime   DaynightClass = "6am-6pm"
	Nighttime DaynightClass = "6pm-6am"
)

// Grouping dimensions for anomaly detection.
const (
	GroupBySpatialKey GroupKey = "key"
	GroupByDaynight   GroupKey = "daynight"
	GroupByYear       GroupKey = "year"
)

// All output modes supported.
const (
	CSVOut     OutputMode = "csv"
	TextOut    OutputMode = "text" // default
	JSONOut    OutputMode = "json"
	ParquetOut OutputMode = "parquet"
	XLSXOut    OutputMode = "xlsx"
)

// All source formats supported.
const (
	CSVSource  SourceFormat = "csv" // default
	XLSXSource SourceFormat = "xlsx"
	SQLSource  SourceFormat = "sql"
)

// All database backends supported.
const (
	SQLiteBackend     DatabaseBackend = "sqlite" // default
	MySQLBackend      DatabaseBackend = "mysql"
	PostgreSQLBackend DatabaseBackend = "postgresql"
	RedisBackend      DatabaseBackend = "redis" // cache only
	NoneBackend       DatabaseBackend = "none"
)

// DefaultFootfallTypes is the ordered list of types processed when none are requested.
var DefaultFootfallTypes = []FootfallType{Residents, Workers, Visitors}

// RawColumns maps each footfall type to its raw count column.
var RawColumns = map[FootfallType]string{
	Residents: "resident",
	Workers:   "worker",
	Visitors:  "visitor",
}

// ValidFootfallTypes lists all valid footfall types.
var ValidFootfallTypes = map[FootfallType]struct{}{
	Residents: {},
	Workers:   {},
	Visitors:  {},
}

// ValidAggOperators lists all valid aggregation operators.
var ValidAggOperators = map[AggOperator]struct{}{
	SumAgg:    {},
	MeanAgg:   {},
	MedianAgg: {},
	MinAgg:    {},
	MaxAgg:    {},
	CountAgg:  {},
}

// ValidGroupKeys lists all valid anomaly grouping dimensions.
var ValidGroupKeys = map[GroupKey]struct{}{
	GroupBySpatialKey: {},
	GroupByDaynight:   {},
	GroupByYear:       {},
}

// ValidOutputModes lists all valid output modes.
var ValidOutputModes = map[OutputMode]struct{}{
	CSVOut:     {},
	TextOut:    {},
	JSONOut:    {},
	ParquetOut: {},
	XLSXOut:    {},
}

// ValidSourceFormats lists all valid source formats.
var ValidSourceFormats = map[SourceFormat]struct{}{
	CSVSource:  {},
	XLSXSource: {},
	SQLSource:  {},
}

// ValidCacheBackends lists all valid cache backends.
var ValidCacheBackends = map[DatabaseBackend]struct{}{
	SQLiteBackend:     {},
	MySQLBackend:      {},
	PostgreSQLBackend: {},
	RedisBackend:      {},
	NoneBackend:       {},
}

// ValidRunBackends lists all valid run history backends.
var ValidRunBackends = map[DatabaseBackend]struct{}{
	SQLiteBackend:     {},
	MySQLBackend:      {},
	PostgreSQLBackend: {},
	NoneBackend:       {},
}

// ValidSQLSourceBackends lists the backends a SQL source can read from.
var ValidSQLSourceBackends = map[DatabaseBackend]struct{}{
	SQLiteBackend:     {},
	MySQLBackend:      {},
	PostgreSQLBackend: {},
}

// GeometryColumns are the mapping-export columns stripped before summarizing.
var GeometryColumns = []string{
	"OID_", "Col_ID", "Row_ID", "Hex_ID",
	"Centroid_X", "Centroid_Y", "area",
	"Shape_Length", "Shape_Area",
}

// TypicalSummaries names the typical tables in TypicalResult.Table order.
var TypicalSummaries = []string{"typical", "weekday", "weekend"}
