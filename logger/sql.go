package logger

import (
	"context"
	"database/sql/driver"
	"fmt"
	"strings"
	"time"
	"unicode"
)

const sqlEscaper = "'"

// ParamsFilter decides whether parameter values may appear in SQL traces.
// Loggers configured with ParameterizedQueries return the statement untouched
// with no parameters, so placeholders reach the log instead of values.
type ParamsFilter interface {
	ParamsFilter(ctx context.Context, sql string, params ...interface{}) (string, []interface{})
}

func isPrintable(s []byte) bool {
	for _, r := range s {
		if !unicode.IsPrint(rune(r)) {
			return false
		}
	}
	return true
}

// ExplainSQL replaces positional placeholders with rendered parameter values
// for trace output. The result is for humans, not for execution.
func ExplainSQL(sql string, vars ...interface{}) string {
	for _, v := range vars {
		sql = strings.Replace(sql, "?", explainValue(v), 1)
	}
	return sql
}

func explainValue(v interface{}) string {
	if valuer, ok := v.(driver.Valuer); ok {
		v, _ = valuer.Value()
	}

	switch v := v.(type) {
	case bool:
		return fmt.Sprint(v)
	case time.Time:
		return sqlEscaper + v.Format("2006-01-02 15:04:05") + sqlEscaper
	case *time.Time:
		if v == nil {
			return "NULL"
		}
		return sqlEscaper + v.Format("2006-01-02 15:04:05") + sqlEscaper
	case []byte:
		if isPrintable(v) {
			return sqlEscaper + strings.Replace(string(v), sqlEscaper, "\\"+sqlEscaper, -1) + sqlEscaper
		}
		return sqlEscaper + "<binary>" + sqlEscaper
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return fmt.Sprintf("%d", v)
	case float32, float64:
		return fmt.Sprintf("%.6f", v)
	case string:
		return sqlEscaper + strings.Replace(v, sqlEscaper, "\\"+sqlEscaper, -1) + sqlEscaper
	default:
		if v == nil {
			return "NULL"
		}
		return sqlEscaper + strings.Replace(fmt.Sprint(v), sqlEscaper, "\\"+sqlEscaper, -1) + sqlEscaper
	}
}
