package iocache

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/huangsam/footfall/internal/contract"
	"github.com/huangsam/footfall/internal/logging"
	"github.com/huangsam/footfall/schema"
)

// Table names for run storage.
const (
	runsTable    = "footfall_runs"
	typicalTable = "footfall_typical"
)

// RunStoreImpl records pipeline runs and their typical summaries in SQL tables.
type RunStoreImpl struct {
	db      *sql.DB
	backend schema.DatabaseBackend
}

var _ contract.RunStore = &RunStoreImpl{} // Compile-time check

// NewRunStore migrates the run tables to the latest version and opens the store.
// The none backend yields a store whose BeginRun returns ID 0.
func NewRunStore(ctx context.Context, backend schema.DatabaseBackend, connStr string) (contract.RunStore, error) {
	if backend == schema.NoneBackend {
		return &RunStoreImpl{backend: backend}, nil
	}
	if _, ok := schema.ValidRunBackends[backend]; !ok {
		return nil, fmt.Errorf("unsupported run backend: %s", backend)
	}

	msg, err := MigrateRuns(ctx, backend, connStr, -1)
	if err != nil {
		return nil, fmt.Errorf("run store: %w", err)
	}
	logging.Debug("run store migrated", "backend", backend, "result", msg)

	db, err := openDB(ctx, backend, connStr, contract.GetRunDBFilePath())
	if err != nil {
		return nil, fmt.Errorf("run store: %w", err)
	}
	return &RunStoreImpl{db: db, backend: backend}, nil
}

// timeArg converts a timestamp into the column representation of the backend.
// SQLite keeps times as RFC3339 text.
func (rs *RunStoreImpl) timeArg(t time.Time) any {
	t = t.UTC()
	if rs.backend == schema.SQLiteBackend {
		return t.Format(time.RFC3339Nano)
	}
	return t
}

// BeginRun creates a new run and returns its numeric ID and unique key.
func (rs *RunStoreImpl) BeginRun(ctx context.Context, command string, startTime time.Time, configParams map[string]any) (int64, string, error) {
	if rs.db == nil {
		return 0, "", nil
	}

	params, err := json.Marshal(configParams)
	if err != nil {
		return 0, "", fmt.Errorf("failed to encode config params: %w", err)
	}
	runKey := uuid.NewString()

	query := fmt.Sprintf(`INSERT INTO %s (run_key, command, start_time, config_params) VALUES (?, ?, ?, ?)`, runsTable)
	args := []any{runKey, command, rs.timeArg(startTime), string(params)}

	if rs.backend == schema.PostgreSQLBackend {
		var id int64
		if err := rs.db.QueryRowContext(ctx, rebind(query, rs.backend)+" RETURNING run_id", args...).Scan(&id); err != nil {
			return 0, "", fmt.Errorf("failed to insert run: %w", err)
		}
		return id, runKey, nil
	}

	res, err := rs.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, "", fmt.Errorf("failed to insert run: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, "", fmt.Errorf("failed to read run ID: %w", err)
	}
	return id, runKey, nil
}

// EndRun stamps the run with its end time, duration and row counts.
func (rs *RunStoreImpl) EndRun(ctx context.Context, runID int64, endTime time.Time, inputRows, outputRows int) error {
	if rs.db == nil {
		return nil
	}

	var start timeValue
	query := rebind(fmt.Sprintf(`SELECT start_time FROM %s WHERE run_id = ?`, runsTable), rs.backend)
	if err := rs.db.QueryRowContext(ctx, query, runID).Scan(&start); err != nil {
		return fmt.Errorf("failed to find run %d: %w", runID, err)
	}
	duration := endTime.Sub(start.Time).Milliseconds()

	query = rebind(fmt.Sprintf(`UPDATE %s SET end_time = ?, run_duration_ms = ?, input_rows = ?, output_rows = ? WHERE run_id = ?`, runsTable), rs.backend)
	if _, err := rs.db.ExecContext(ctx, query, rs.timeArg(endTime), duration, inputRows, outputRows, runID); err != nil {
		return fmt.Errorf("failed to finalize run %d: %w", runID, err)
	}
	return nil
}

// RecordTypicalRows stores one typical summary of a run in a single transaction.
func (rs *RunStoreImpl) RecordTypicalRows(ctx context.Context, runID int64, summary string, rows []schema.TypicalRow) error {
	if rs.db == nil || len(rows) == 0 {
		return nil
	}

	tx, err := rs.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	query := rebind(fmt.Sprintf(`INSERT INTO %s (run_id, summary, year, week_class, row_key, averages, daytime_mean, nighttime_mean)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`, typicalTable), rs.backend)
	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return fmt.Errorf("failed to prepare typical insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, r := range rows {
		if _, err := stmt.ExecContext(ctx, runID, summary, r.Year, string(r.WeekClass), r.Key,
			nullFloat(r.Average), nullFloat(r.DaytimeMean), nullFloat(r.NighttimeMean)); err != nil {
			return fmt.Errorf("failed to insert typical row: %w", err)
		}
	}
	return tx.Commit()
}

// GetRuns returns every tracked run, oldest first.
func (rs *RunStoreImpl) GetRuns(ctx context.Context) ([]schema.RunRecord, error) {
	if rs.db == nil {
		return nil, nil
	}

	query := fmt.Sprintf(`SELECT run_id, run_key, command, start_time, end_time, run_duration_ms, input_rows, output_rows, config_params
		FROM %s ORDER BY run_id`, runsTable)
	rows, err := rs.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var records []schema.RunRecord
	for rows.Next() {
		var rec schema.RunRecord
		var start, end timeValue
		var duration sql.NullInt64
		var input, output sql.NullInt64
		var params sql.NullString
		if err := rows.Scan(&rec.RunID, &rec.RunKey, &rec.Command, &start, &end, &duration, &input, &output, &params); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		rec.StartTime = start.Time
		if end.Valid {
			t := end.Time
			rec.EndTime = &t
		}
		rec.RunDurationMs = duration.Int64
		rec.InputRows = int(input.Int64)
		rec.OutputRows = int(output.Int64)
		rec.ConfigParams = params.String
		records = append(records, rec)
	}
	return records, rows.Err()
}

// GetTypicalRows returns every stored typical row ordered by run and summary.
func (rs *RunStoreImpl) GetTypicalRows(ctx context.Context) ([]schema.TypicalRecord, error) {
	if rs.db == nil {
		return nil, nil
	}

	query := fmt.Sprintf(`SELECT run_id, summary, year, week_class, row_key, averages, daytime_mean, nighttime_mean
		FROM %s ORDER BY run_id, summary, year, week_class, row_key`, typicalTable)
	rows, err := rs.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query typical rows: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var records []schema.TypicalRecord
	for rows.Next() {
		var rec schema.TypicalRecord
		var avg, day, night sql.NullFloat64
		if err := rows.Scan(&rec.RunID, &rec.Summary, &rec.Year, &rec.WeekClass, &rec.Key, &avg, &day, &night); err != nil {
			return nil, fmt.Errorf("failed to scan typical row: %w", err)
		}
		rec.Average = floatPtr(avg)
		rec.DaytimeMean = floatPtr(day)
		rec.NighttimeMean = floatPtr(night)
		records = append(records, rec)
	}
	return records, rows.Err()
}

// GetStatus returns counts and time bounds of the run tables.
func (rs *RunStoreImpl) GetStatus(ctx context.Context) (schema.RunStatus, error) {
	status := schema.RunStatus{
		Backend:    string(rs.backend),
		Connected:  rs.db != nil,
		TableSizes: make(map[string]int64),
	}
	if rs.db == nil {
		return status, nil
	}

	var lastID sql.NullInt64
	var oldest, newest timeValue
	row := rs.db.QueryRowContext(ctx, fmt.Sprintf(`SELECT COUNT(*), MAX(run_id), MIN(start_time), MAX(start_time) FROM %s`, runsTable))
	if err := row.Scan(&status.TotalRuns, &lastID, &oldest, &newest); err != nil {
		return status, fmt.Errorf("failed to get run counts: %w", err)
	}
	status.LastRunID = lastID.Int64
	status.OldestRunTime = oldest.Time
	status.LastRunTime = newest.Time
	status.TableSizes[runsTable] = int64(status.TotalRuns)

	if err := rs.db.QueryRowContext(ctx, fmt.Sprintf(`SELECT COUNT(*) FROM %s`, typicalTable)).Scan(&status.TotalTypicalRows); err != nil {
		return status, fmt.Errorf("failed to get typical row count: %w", err)
	}
	status.TableSizes[typicalTable] = int64(status.TotalTypicalRows)
	return status, nil
}

// Close closes the underlying DB connection.
func (rs *RunStoreImpl) Close() error {
	if rs.db != nil {
		return rs.db.Close()
	}
	return nil
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

func floatPtr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}

// timeValue scans timestamps stored natively or as text.
type timeValue struct {
	Time  time.Time
	Valid bool
}

var timeLayouts = []string{time.RFC3339Nano, "2006-01-02 15:04:05.999999999", "2006-01-02 15:04:05"}

// Scan implements sql.Scanner.
func (tv *timeValue) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*tv = timeValue{}
		return nil
	case time.Time:
		*tv = timeValue{Time: v.UTC(), Valid: true}
		return nil
	case []byte:
		return tv.parse(string(v))
	case string:
		return tv.parse(v)
	}
	return fmt.Errorf("unsupported time value %T", src)
}

func (tv *timeValue) parse(s string) error {
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			*tv = timeValue{Time: t.UTC(), Valid: true}
			return nil
		}
	}
	return fmt.Errorf("unrecognized time value %q", s)
}
