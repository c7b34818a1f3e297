// Package caster converts values between their storage representation and the
// logical type declared on a column. Conversion failures are never fatal:
// unparseable input degrades to nil or the type's zero value so legacy rows
// stay loadable.
package caster

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jinzhu/now"

	"github.com/coralorm/coral/logger"
	"github.com/coralorm/coral/schema"
)

// StorageTimeFormat is the canonical storage rendering of timestamps.
const StorageTimeFormat = "2006-01-02 15:04:05"

// Logger receives warnings for values that could not be cast. Silent by
// default.
var Logger logger.Interface = logger.Discard

// ToLogical casts a storage value to the declared logical type. nil passes
// through, as does any value when the type is empty.
func ToLogical(value interface{}, dataType schema.DataType) interface{} {
	if value == nil || dataType == "" {
		return value
	}

	switch dataType {
	case schema.Int:
		return toInt(value)
	case schema.Float:
		return toFloat(value)
	case schema.String:
		return toString(value)
	case schema.Bool:
		return toBool(value)
	case schema.Time:
		return toTime(value)
	case schema.JSON:
		return toStructured(value)
	default:
		return value
	}
}

// ToStorage renders a logical value into its storage representation:
// timestamps as canonical strings, booleans as 1/0, structured values as
// compact JSON. Everything else passes through unchanged.
func ToStorage(value interface{}) interface{} {
	switch v := value.(type) {
	case nil:
		return nil
	case time.Time:
		return v.Format(StorageTimeFormat)
	case *time.Time:
		if v == nil {
			return nil
		}
		return v.Format(StorageTimeFormat)
	case bool:
		if v {
			return 1
		}
		return 0
	case map[string]interface{}, []interface{}:
		encoded, err := json.Marshal(v)
		if err != nil {
			Logger.Warn(context.Background(), "cannot encode structured value: %v", err)
			return nil
		}
		return string(encoded)
	default:
		return value
	}
}

func toInt(value interface{}) interface{} {
	switch v := value.(type) {
	case int64:
		return v
	case int:
		return int64(v)
	case int32:
		return int64(v)
	case uint:
		return int64(v)
	case uint64:
		return int64(v)
	case float64:
		return int64(v)
	case float32:
		return int64(v)
	case bool:
		if v {
			return int64(1)
		}
		return int64(0)
	case []byte:
		return parseInt(string(v))
	case string:
		return parseInt(v)
	default:
		return parseInt(fmt.Sprint(v))
	}
}

func parseInt(s string) int64 {
	s = strings.TrimSpace(s)
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n
	}
	// "12.7" style input still carries a usable integer part
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return int64(f)
	}
	return 0
}

func toFloat(value interface{}) interface{} {
	switch v := value.(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int64:
		return float64(v)
	case int:
		return float64(v)
	case []byte:
		return parseFloat(string(v))
	case string:
		return parseFloat(v)
	default:
		return parseFloat(fmt.Sprint(v))
	}
}

func parseFloat(s string) float64 {
	if f, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
		return f
	}
	return 0
}

func toString(value interface{}) interface{} {
	switch v := value.(type) {
	case string:
		return v
	case []byte:
		return string(v)
	default:
		return fmt.Sprint(v)
	}
}

// toBool recognizes the usual truthy and falsy literals. Anything else is
// "cannot determine" and becomes nil; empty string is a concrete false.
func toBool(value interface{}) interface{} {
	switch v := value.(type) {
	case bool:
		return v
	case string:
		return parseBool(v)
	case []byte:
		return parseBool(string(v))
	case int, int32, int64, uint, uint64:
		return numericBool(toInt(v).(int64))
	case float64:
		return numericBool(int64(v))
	default:
		return nil
	}
}

func parseBool(s string) interface{} {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "0", "false":
		return false
	case "1", "true":
		return true
	default:
		return nil
	}
}

func numericBool(n int64) interface{} {
	switch n {
	case 0:
		return false
	case 1:
		return true
	default:
		return nil
	}
}

func toTime(value interface{}) interface{} {
	switch v := value.(type) {
	case time.Time:
		return v
	case *time.Time:
		if v == nil {
			return nil
		}
		return *v
	case int:
		return time.Unix(int64(v), 0)
	case int64:
		return time.Unix(v, 0)
	case []byte:
		return parseTime(string(v))
	case string:
		return parseTime(v)
	default:
		Logger.Warn(context.Background(), "cannot cast %T to time", value)
		return nil
	}
}

func parseTime(s string) interface{} {
	if t, err := now.Parse(strings.TrimSpace(s)); err == nil {
		return t
	}
	Logger.Warn(context.Background(), "cannot parse %q as time", s)
	return nil
}

func toStructured(value interface{}) interface{} {
	switch v := value.(type) {
	case map[string]interface{}, []interface{}:
		return v
	case []byte:
		return decodeJSON(v)
	case string:
		return decodeJSON([]byte(v))
	default:
		return value
	}
}

func decodeJSON(data []byte) interface{} {
	var decoded interface{}
	if err := json.Unmarshal(data, &decoded); err != nil {
		Logger.Warn(context.Background(), "cannot decode structured value: %v", err)
		return nil
	}
	return decoded
}
