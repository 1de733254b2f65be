package snowflake

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// FQN is a fully qualified table name: database.schema.table.
type FQN struct {
	Database string
	Schema   string
	Table    string
}

func (f FQN) String() string {
	return f.Database + "." + f.Schema + "." + f.Table
}

// ParseFQN splits a "database.schema.table" name into its parts. Parts are
// uppercased to match Snowflake's identifier storage. Only unquoted
// identifier characters are accepted.
func ParseFQN(raw string) (FQN, error) {
	parts := strings.Split(raw, ".")
	if len(parts) != 3 {
		return FQN{}, fmt.Errorf("expected fully qualified name {database}.{schema}.{table}, got %q", raw)
	}
	fqn := FQN{
		Database: strings.ToUpper(parts[0]),
		Schema:   strings.ToUpper(parts[1]),
		Table:    strings.ToUpper(parts[2]),
	}
	for _, part := range []string{fqn.Database, fqn.Schema, fqn.Table} {
		if !isIdentifier(part) {
			return FQN{}, fmt.Errorf("invalid identifier %q in table name %q", part, raw)
		}
	}
	return fqn, nil
}

func isIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r >= 'A' && r <= 'Z':
		case r == '_' || r == '$':
		case r >= '0' && r <= '9':
			if i == 0 {
				return false
			}
		default:
			return false
		}
	}
	return true
}

// Column is one column of a base table as read from the warehouse.
type Column struct {
	Name         string
	Type         string
	Comment      string
	SampleValues []string
}

// Repository reads table metadata and sample values from an open warehouse
// session.
type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// ListColumns returns the columns of a table in ordinal position order,
// each carrying up to sampleLimit distinct non-null sample values.
func (r *Repository) ListColumns(ctx context.Context, table FQN, sampleLimit int) ([]Column, error) {
	query := fmt.Sprintf(`
SELECT column_name, data_type, COALESCE(comment, '')
FROM %s.information_schema.columns
WHERE table_schema = ? AND table_name = ?
ORDER BY ordinal_position`, table.Database)

	rows, err := r.db.QueryContext(ctx, query, table.Schema, table.Table)
	if err != nil {
		return nil, fmt.Errorf("list columns for %s: %w", table, err)
	}
	defer func() { _ = rows.Close() }()

	var columns []Column
	for rows.Next() {
		var col Column
		if err := rows.Scan(&col.Name, &col.Type, &col.Comment); err != nil {
			return nil, fmt.Errorf("scan column row for %s: %w", table, err)
		}
		columns = append(columns, col)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate column rows for %s: %w", table, err)
	}
	if len(columns) == 0 {
		return nil, fmt.Errorf("table %s has no columns or does not exist", table)
	}

	if sampleLimit > 0 {
		for i := range columns {
			samples, err := r.sampleValues(ctx, table, columns[i].Name, sampleLimit)
			if err != nil {
				return nil, err
			}
			columns[i].SampleValues = samples
		}
	}
	return columns, nil
}

func (r *Repository) sampleValues(ctx context.Context, table FQN, column string, limit int) ([]string, error) {
	query := fmt.Sprintf(
		`SELECT DISTINCT "%s" FROM %s WHERE "%s" IS NOT NULL LIMIT %d`,
		column, table, column, limit,
	)
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("sample values for %s.%s: %w", table, column, err)
	}
	defer func() { _ = rows.Close() }()

	var values []string
	for rows.Next() {
		var value any
		if err := rows.Scan(&value); err != nil {
			return nil, fmt.Errorf("scan sample value for %s.%s: %w", table, column, err)
		}
		values = append(values, formatValue(value))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sample values for %s.%s: %w", table, column, err)
	}
	return values, nil
}

func formatValue(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case []byte:
		return string(v)
	case string:
		return v
	case time.Time:
		return v.Format(time.RFC3339)
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64)
	case int64:
		return strconv.FormatInt(v, 10)
	case bool:
		return strconv.FormatBool(v)
	default:
		return fmt.Sprint(v)
	}
}
