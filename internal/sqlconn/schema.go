package sqlconn

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownTable is returned when an allow-listed table does not exist.
var ErrUnknownTable = errors.New("sqlconn: table not found")

// Column is one column of a tenant table.
type Column struct {
	Name string
	Type string
}

const (
	mysqlTablesQuery = `SELECT table_name FROM information_schema.tables
WHERE table_schema = DATABASE() ORDER BY table_name`

	postgresTablesQuery = `SELECT table_name FROM information_schema.tables
WHERE table_schema = current_schema() ORDER BY table_name`

	sqliteTablesQuery = `SELECT name FROM sqlite_master
WHERE type = 'table' AND name NOT LIKE 'sqlite_%' ORDER BY name`

	mysqlColumnsQuery = `SELECT table_name, column_name, column_type FROM information_schema.columns
WHERE table_schema = DATABASE() ORDER BY table_name, ordinal_position`

	postgresColumnsQuery = `SELECT table_name, column_name, data_type FROM information_schema.columns
WHERE table_schema = current_schema() ORDER BY table_name, ordinal_position`

	sqliteColumnsQuery = `SELECT m.name, p.name, p.type FROM sqlite_master m
JOIN pragma_table_info(m.name) p
WHERE m.type = 'table' ORDER BY m.name, p.cid`
)

// ListTables returns every base table visible to the connection, sorted by
// name.
func (c *DB) ListTables(ctx context.Context) ([]string, error) {
	query := mysqlTablesQuery
	switch c.dialect {
	case DialectPostgres:
		query = postgresTablesQuery
	case DialectSQLite:
		query = sqliteTablesQuery
	}

	rows, err := c.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("sqlconn: list tables: %w", err)
	}
	defer rows.Close()

	var tables []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("sqlconn: scan table name: %w", err)
		}
		tables = append(tables, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlconn: list tables: %w", err)
	}
	return tables, nil
}

// Columns returns the columns of the given tables keyed by table name.
// Tables outside the requested set are read but discarded, so nothing
// about them leaves this function.
func (c *DB) Columns(ctx context.Context, tables []string) (map[string][]Column, error) {
	wanted := make(map[string]struct{}, len(tables))
	for _, t := range tables {
		wanted[t] = struct{}{}
	}

	query := mysqlColumnsQuery
	switch c.dialect {
	case DialectPostgres:
		query = postgresColumnsQuery
	case DialectSQLite:
		query = sqliteColumnsQuery
	}

	rows, err := c.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("sqlconn: read columns: %w", err)
	}
	defer rows.Close()

	out := make(map[string][]Column, len(tables))
	for rows.Next() {
		var table string
		var col Column
		if err := rows.Scan(&table, &col.Name, &col.Type); err != nil {
			return nil, fmt.Errorf("sqlconn: scan column: %w", err)
		}
		if _, ok := wanted[table]; !ok {
			continue
		}
		out[table] = append(out[table], col)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlconn: read columns: %w", err)
	}

	for _, t := range tables {
		if _, ok := out[t]; !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownTable, t)
		}
	}
	return out, nil
}

// TableSchemas renders CREATE TABLE statements for tables, in the order
// given, separated by blank lines.
func (c *DB) TableSchemas(ctx context.Context, tables []string) (string, error) {
	cols, err := c.Columns(ctx, tables)
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	for i, t := range tables {
		if i > 0 {
			sb.WriteString("\n\n")
		}
		sb.WriteString("CREATE TABLE ")
		sb.WriteString(t)
		sb.WriteString(" (\n")
		for j, col := range cols[t] {
			sb.WriteString("\t")
			sb.WriteString(col.Name)
			sb.WriteString(" ")
			sb.WriteString(strings.ToUpper(col.Type))
			if j < len(cols[t])-1 {
				sb.WriteString(",")
			}
			sb.WriteString("\n")
		}
		sb.WriteString(")")
	}
	return sb.String(), nil
}
