// Package builder assembles parameterized SQL statements. Statement shape
// mistakes (UPDATE or DELETE without WHERE, empty INSERT payloads, unknown
// join kinds or order directions) are programmer errors and surface at build
// time, before anything reaches a connection.
package builder

import (
	"errors"
	"strings"
)

var (
	// ErrMissingWhereClause UPDATE and DELETE refuse to build without a WHERE
	ErrMissingWhereClause = errors.New("WHERE conditions required")
	// ErrMissingTable no table name given
	ErrMissingTable = errors.New("table required")
	// ErrEmptyValues INSERT or UPDATE with nothing to write
	ErrEmptyValues = errors.New("empty value list")
	// ErrUnsupportedJoin join kind outside INNER, LEFT, RIGHT
	ErrUnsupportedJoin = errors.New("unsupported join type")
	// ErrInvalidDirection order direction outside ASC, DESC
	ErrInvalidDirection = errors.New("invalid order direction")
)

type condition struct {
	connector string
	expr      string
	args      []interface{}
}

func writeConditions(sb *strings.Builder, args *[]interface{}, conditions []condition) {
	sb.WriteString(" WHERE ")
	for i, c := range conditions {
		if i > 0 {
			sb.WriteString(" ")
			sb.WriteString(c.connector)
			sb.WriteString(" ")
		}
		sb.WriteString(c.expr)
		*args = append(*args, c.args...)
	}
}

func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}
