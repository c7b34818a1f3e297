package logger

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestExplainSQL(t *testing.T) {
	when := time.Date(2023, 1, 1, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		sql  string
		vars []interface{}
		want string
	}{
		{
			name: "strings are quoted",
			sql:  "SELECT * FROM users WHERE name = ?",
			vars: []interface{}{"alice"},
			want: "SELECT * FROM users WHERE name = 'alice'",
		},
		{
			name: "numbers are bare",
			sql:  "SELECT * FROM users WHERE id = ? AND score > ?",
			vars: []interface{}{int64(5), 1.5},
			want: "SELECT * FROM users WHERE id = 5 AND score > 1.500000",
		},
		{
			name: "nil becomes NULL",
			sql:  "UPDATE users SET email = ? WHERE id = ?",
			vars: []interface{}{nil, 5},
			want: "UPDATE users SET email = NULL WHERE id = 5",
		},
		{
			name: "bool and time",
			sql:  "UPDATE users SET active = ?, last_seen = ? WHERE id = ?",
			vars: []interface{}{true, when, 1},
			want: "UPDATE users SET active = true, last_seen = '2023-01-01 10:00:00' WHERE id = 1",
		},
		{
			name: "quotes inside strings are escaped",
			sql:  "SELECT * FROM users WHERE name = ?",
			vars: []interface{}{"o'neil"},
			want: `SELECT * FROM users WHERE name = 'o\'neil'`,
		},
		{
			name: "printable bytes render as text",
			sql:  "SELECT * FROM users WHERE token = ?",
			vars: []interface{}{[]byte("abc")},
			want: "SELECT * FROM users WHERE token = 'abc'",
		},
		{
			name: "binary bytes are masked",
			sql:  "SELECT * FROM users WHERE blob = ?",
			vars: []interface{}{[]byte{0x00, 0x01}},
			want: "SELECT * FROM users WHERE blob = '<binary>'",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExplainSQL(tt.sql, tt.vars...))
		})
	}
}

func TestParamsFilter(t *testing.T) {
	ctx := context.Background()

	var buf bufferWriter
	plain := New(&buf, Config{LogLevel: Info}).(ParamsFilter)
	sql, params := plain.ParamsFilter(ctx, "SELECT ?", 1)
	assert.Equal(t, "SELECT ?", sql)
	assert.Equal(t, []interface{}{1}, params)

	parameterized := New(&buf, Config{LogLevel: Info, ParameterizedQueries: true}).(ParamsFilter)
	sql, params = parameterized.ParamsFilter(ctx, "SELECT ?", 1)
	assert.Equal(t, "SELECT ?", sql)
	assert.Nil(t, params)
}
