package source

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/go-sql-driver/mysql" // MySQL driver
	"github.com/huangsam/footfall/internal/contract"
	"github.com/huangsam/footfall/schema"
	_ "github.com/jackc/pgx/v5/stdlib" // PostgreSQL driver
	_ "modernc.org/sqlite"             // SQLite driver
)

// SQLSource reads every row of a single table.
type SQLSource struct {
	backend schema.DatabaseBackend
	driver  string
	connStr string
	table   string
	cols    contract.ColumnMapping
}

var _ contract.DataSource = &SQLSource{} // Compile-time check

// NewSQL returns a source for a table. The table name must be a plain identifier.
func NewSQL(backend schema.DatabaseBackend, connStr, table string, cols contract.ColumnMapping) (*SQLSource, error) {
	if err := contract.ValidateTableName(table); err != nil {
		return nil, err
	}
	driver, err := contract.DriverName(backend)
	if err != nil {
		return nil, err
	}
	return &SQLSource{backend: backend, driver: driver, connStr: connStr, table: table, cols: cols}, nil
}

// Load runs SELECT * over the table and maps the result columns by name.
func (s *SQLSource) Load(ctx context.Context) ([]schema.FootfallRecord, error) {
	db, err := sql.Open(s.driver, s.connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s database: %w", s.backend, err)
	}
	defer func() { _ = db.Close() }()

	query := fmt.Sprintf("SELECT * FROM %s", contract.QuoteTableName(s.table, s.backend))
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query table %s: %w", s.table, err)
	}
	defer func() { _ = rows.Close() }()

	header, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	var table [][]string
	values := make([]sql.NullString, len(header))
	dest := make([]any, len(header))
	for i := range values {
		dest[i] = &values[i]
	}
	for rows.Next() {
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		row := make([]string, len(values))
		for i, v := range values {
			if v.Valid {
				row[i] = v.String
			}
		}
		table = append(table, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return mapRows(header, table, s.cols)
}

// Describe implements the DataSource interface.
func (s *SQLSource) Describe() string {
	return fmt.Sprintf("%s table %s", s.backend, s.table)
}
