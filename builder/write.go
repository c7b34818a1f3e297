package builder

import (
	"sort"
	"strings"
)

// InsertBuilder builds an INSERT statement.
type InsertBuilder struct {
	table  string
	values map[string]interface{}
}

// Insert starts an INSERT into the given table.
func Insert(table string) *InsertBuilder {
	return &InsertBuilder{table: table, values: map[string]interface{}{}}
}

// Values merges column assignments into the statement.
func (b *InsertBuilder) Values(values map[string]interface{}) *InsertBuilder {
	for column, value := range values {
		b.values[column] = value
	}
	return b
}

// Build renders the statement. Columns are emitted in sorted order so the
// output is deterministic.
func (b *InsertBuilder) Build() (string, []interface{}, error) {
	if b.table == "" {
		return "", nil, ErrMissingTable
	}
	if len(b.values) == 0 {
		return "", nil, ErrEmptyValues
	}

	columns := sortedColumns(b.values)
	args := make([]interface{}, 0, len(columns))
	for _, column := range columns {
		args = append(args, b.values[column])
	}

	var sb strings.Builder
	sb.WriteString("INSERT INTO ")
	sb.WriteString(b.table)
	sb.WriteString(" (")
	sb.WriteString(strings.Join(columns, ", "))
	sb.WriteString(") VALUES (")
	sb.WriteString(placeholders(len(columns)))
	sb.WriteString(")")

	return sb.String(), args, nil
}

// UpdateBuilder builds an UPDATE statement. Building without a WHERE clause
// is refused.
type UpdateBuilder struct {
	table  string
	values map[string]interface{}
	wheres []condition
}

// Update starts an UPDATE of the given table.
func Update(table string) *UpdateBuilder {
	return &UpdateBuilder{table: table, values: map[string]interface{}{}}
}

// Set merges column assignments into the statement.
func (b *UpdateBuilder) Set(values map[string]interface{}) *UpdateBuilder {
	for column, value := range values {
		b.values[column] = value
	}
	return b
}

// Where adds an AND condition.
func (b *UpdateBuilder) Where(expr string, args ...interface{}) *UpdateBuilder {
	b.wheres = append(b.wheres, condition{connector: "AND", expr: expr, args: args})
	return b
}

// Build renders the statement.
func (b *UpdateBuilder) Build() (string, []interface{}, error) {
	if b.table == "" {
		return "", nil, ErrMissingTable
	}
	if len(b.values) == 0 {
		return "", nil, ErrEmptyValues
	}
	if len(b.wheres) == 0 {
		return "", nil, ErrMissingWhereClause
	}

	columns := sortedColumns(b.values)

	var (
		sb   strings.Builder
		args []interface{}
	)
	sb.WriteString("UPDATE ")
	sb.WriteString(b.table)
	sb.WriteString(" SET ")
	for i, column := range columns {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(column)
		sb.WriteString(" = ?")
		args = append(args, b.values[column])
	}
	writeConditions(&sb, &args, b.wheres)

	return sb.String(), args, nil
}

// DeleteBuilder builds a DELETE statement. Building without a WHERE clause is
// refused.
type DeleteBuilder struct {
	table  string
	wheres []condition
}

// Delete starts a DELETE from the given table.
func Delete(table string) *DeleteBuilder {
	return &DeleteBuilder{table: table}
}

// Where adds an AND condition.
func (b *DeleteBuilder) Where(expr string, args ...interface{}) *DeleteBuilder {
	b.wheres = append(b.wheres, condition{connector: "AND", expr: expr, args: args})
	return b
}

// Build renders the statement.
func (b *DeleteBuilder) Build() (string, []interface{}, error) {
	if b.table == "" {
		return "", nil, ErrMissingTable
	}
	if len(b.wheres) == 0 {
		return "", nil, ErrMissingWhereClause
	}

	var (
		sb   strings.Builder
		args []interface{}
	)
	sb.WriteString("DELETE FROM ")
	sb.WriteString(b.table)
	writeConditions(&sb, &args, b.wheres)

	return sb.String(), args, nil
}

func sortedColumns(values map[string]interface{}) []string {
	columns := make([]string, 0, len(values))
	for column := range values {
		columns = append(columns, column)
	}
	sort.Strings(columns)
	return columns
}
