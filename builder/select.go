package builder

import (
	"fmt"
	"strconv"
	"strings"
)

// SelectBuilder builds a SELECT statement.
type SelectBuilder struct {
	columns []string
	table   string
	alias   string
	joins   []string
	wheres  []condition
	groupBy []string
	havings []condition
	orders  []string
	limit   *int
	offset  *int
	err     error
}

// Select starts a SELECT statement. Without columns it selects *.
func Select(columns ...string) *SelectBuilder {
	return &SelectBuilder{columns: columns}
}

// From sets the table.
func (b *SelectBuilder) From(table string) *SelectBuilder {
	b.table = table
	return b
}

// As aliases the table.
func (b *SelectBuilder) As(alias string) *SelectBuilder {
	b.alias = alias
	return b
}

// Join adds a join clause. Kind must be INNER, LEFT or RIGHT.
func (b *SelectBuilder) Join(kind, table, on string) *SelectBuilder {
	kind = strings.ToUpper(strings.TrimSpace(kind))
	switch kind {
	case "INNER", "LEFT", "RIGHT":
		b.joins = append(b.joins, fmt.Sprintf("%s JOIN %s ON %s", kind, table, on))
	default:
		b.fail(fmt.Errorf("%w: %s", ErrUnsupportedJoin, kind))
	}
	return b
}

// Where adds an AND condition.
func (b *SelectBuilder) Where(expr string, args ...interface{}) *SelectBuilder {
	b.wheres = append(b.wheres, condition{connector: "AND", expr: expr, args: args})
	return b
}

// OrWhere adds an OR condition.
func (b *SelectBuilder) OrWhere(expr string, args ...interface{}) *SelectBuilder {
	b.wheres = append(b.wheres, condition{connector: "OR", expr: expr, args: args})
	return b
}

// WhereIn adds an AND condition matching the column against a value set. An
// empty set builds a never-matching condition.
func (b *SelectBuilder) WhereIn(column string, values []interface{}) *SelectBuilder {
	if len(values) == 0 {
		return b.Where("1 = 0")
	}
	return b.Where(fmt.Sprintf("%s IN (%s)", column, placeholders(len(values))), values...)
}

// GroupBy adds grouping columns.
func (b *SelectBuilder) GroupBy(columns ...string) *SelectBuilder {
	b.groupBy = append(b.groupBy, columns...)
	return b
}

// Having adds a HAVING condition.
func (b *SelectBuilder) Having(expr string, args ...interface{}) *SelectBuilder {
	b.havings = append(b.havings, condition{connector: "AND", expr: expr, args: args})
	return b
}

// OrderBy adds an ordering. Direction must be ASC or DESC.
func (b *SelectBuilder) OrderBy(column, direction string) *SelectBuilder {
	direction = strings.ToUpper(strings.TrimSpace(direction))
	if direction != "ASC" && direction != "DESC" {
		b.fail(fmt.Errorf("%w: %s", ErrInvalidDirection, direction))
		return b
	}
	b.orders = append(b.orders, column+" "+direction)
	return b
}

// Limit caps the row count.
func (b *SelectBuilder) Limit(n int) *SelectBuilder {
	b.limit = &n
	return b
}

// Offset skips leading rows.
func (b *SelectBuilder) Offset(n int) *SelectBuilder {
	b.offset = &n
	return b
}

// Count replaces the column list with a COUNT aggregate.
func (b *SelectBuilder) Count() *SelectBuilder {
	b.columns = []string{"COUNT(*)"}
	return b
}

func (b *SelectBuilder) fail(err error) {
	if b.err == nil {
		b.err = err
	}
}

// Build renders the statement and its positional parameters.
func (b *SelectBuilder) Build() (string, []interface{}, error) {
	if b.err != nil {
		return "", nil, b.err
	}
	if b.table == "" {
		return "", nil, ErrMissingTable
	}

	var (
		sb   strings.Builder
		args []interface{}
	)

	columns := b.columns
	if len(columns) == 0 {
		columns = []string{"*"}
	}

	sb.WriteString("SELECT ")
	sb.WriteString(strings.Join(columns, ", "))
	sb.WriteString(" FROM ")
	sb.WriteString(b.table)
	if b.alias != "" {
		sb.WriteString(" AS ")
		sb.WriteString(b.alias)
	}

	for _, join := range b.joins {
		sb.WriteString(" ")
		sb.WriteString(join)
	}

	if len(b.wheres) > 0 {
		writeConditions(&sb, &args, b.wheres)
	}

	if len(b.groupBy) > 0 {
		sb.WriteString(" GROUP BY ")
		sb.WriteString(strings.Join(b.groupBy, ", "))
	}

	if len(b.havings) > 0 {
		sb.WriteString(" HAVING ")
		for i, c := range b.havings {
			if i > 0 {
				sb.WriteString(" AND ")
			}
			sb.WriteString(c.expr)
			args = append(args, c.args...)
		}
	}

	if len(b.orders) > 0 {
		sb.WriteString(" ORDER BY ")
		sb.WriteString(strings.Join(b.orders, ", "))
	}

	if b.limit != nil {
		sb.WriteString(" LIMIT ")
		sb.WriteString(strconv.Itoa(*b.limit))
	}
	if b.offset != nil {
		sb.WriteString(" OFFSET ")
		sb.WriteString(strconv.Itoa(*b.offset))
	}

	return sb.String(), args, nil
}
