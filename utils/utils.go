package utils

import (
	"fmt"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
)

var coralSourceDir string

func init() {
	_, file, _, _ := runtime.Caller(0)
	// compatible solution to get coral source directory with various operating systems
	coralSourceDir = sourceDir(file)
}

func sourceDir(file string) string {
	dir := filepath.Dir(file)
	dir = filepath.Dir(dir)

	s := filepath.Dir(dir)
	if filepath.Base(s) != "coralorm" {
		s = dir
	}
	return filepath.ToSlash(s) + "/"
}

// FileWithLineNum return the file name and line number of the current file
func FileWithLineNum() string {
	// the second caller usually from coral internal, so set i start from 2
	for i := 2; i < 15; i++ {
		_, file, line, ok := runtime.Caller(i)
		if ok && (!strings.HasPrefix(file, coralSourceDir) || strings.HasSuffix(file, "_test.go")) {
			return file + ":" + strconv.FormatInt(int64(line), 10)
		}
	}

	return ""
}

// ToStringKey joins values into a single map key, used when grouping rows by
// key value during relation loading.
func ToStringKey(values ...interface{}) string {
	results := make([]string, len(values))

	for idx, value := range values {
		switch v := value.(type) {
		case string:
			results[idx] = v
		case []byte:
			results[idx] = string(v)
		case uint:
			results[idx] = strconv.FormatUint(uint64(v), 10)
		case int:
			results[idx] = strconv.FormatInt(int64(v), 10)
		case int64:
			results[idx] = strconv.FormatInt(v, 10)
		case uint64:
			results[idx] = strconv.FormatUint(v, 10)
		case fmt.Stringer:
			results[idx] = v.String()
		default:
			results[idx] = fmt.Sprint(value)
		}
	}

	return strings.Join(results, "_")
}
