package builder

import (
	"errors"
	"reflect"
	"testing"
)

func TestSelectBuild(t *testing.T) {
	tests := []struct {
		name    string
		builder *SelectBuilder
		sql     string
		args    []interface{}
	}{
		{
			name:    "bare",
			builder: Select().From("users"),
			sql:     "SELECT * FROM users",
		},
		{
			name:    "columns",
			builder: Select("id", "name").From("users"),
			sql:     "SELECT id, name FROM users",
		},
		{
			name:    "alias",
			builder: Select().From("users").As("u"),
			sql:     "SELECT * FROM users AS u",
		},
		{
			name:    "where and or",
			builder: Select().From("users").Where("age > ?", 18).OrWhere("admin = ?", 1),
			sql:     "SELECT * FROM users WHERE age > ? OR admin = ?",
			args:    []interface{}{18, 1},
		},
		{
			name:    "where in",
			builder: Select().From("users").WhereIn("id", []interface{}{1, 2, 3}),
			sql:     "SELECT * FROM users WHERE id IN (?, ?, ?)",
			args:    []interface{}{1, 2, 3},
		},
		{
			name:    "where in empty never matches",
			builder: Select().From("users").WhereIn("id", nil),
			sql:     "SELECT * FROM users WHERE 1 = 0",
		},
		{
			name: "join",
			builder: Select("u.id", "p.title").From("users").As("u").
				Join("left", "posts p", "p.author_id = u.id").
				Where("u.active = ?", 1),
			sql:  "SELECT u.id, p.title FROM users AS u LEFT JOIN posts p ON p.author_id = u.id WHERE u.active = ?",
			args: []interface{}{1},
		},
		{
			name: "group having order",
			builder: Select("author_id").From("posts").
				GroupBy("author_id").
				Having("COUNT(*) > ?", 5).
				OrderBy("author_id", "desc"),
			sql:  "SELECT author_id FROM posts GROUP BY author_id HAVING COUNT(*) > ? ORDER BY author_id DESC",
			args: []interface{}{5},
		},
		{
			name:    "limit offset",
			builder: Select().From("users").OrderBy("id", "ASC").Limit(10).Offset(20),
			sql:     "SELECT * FROM users ORDER BY id ASC LIMIT 10 OFFSET 20",
		},
		{
			name:    "count",
			builder: Select("id").From("users").Count().Where("active = ?", 1),
			sql:     "SELECT COUNT(*) FROM users WHERE active = ?",
			args:    []interface{}{1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sql, args, err := tt.builder.Build()
			if err != nil {
				t.Fatalf("Build() error: %v", err)
			}
			if sql != tt.sql {
				t.Errorf("SQL: got %q, want %q", sql, tt.sql)
			}
			if len(tt.args) > 0 || len(args) > 0 {
				if !reflect.DeepEqual(args, tt.args) {
					t.Errorf("args: got %v, want %v", args, tt.args)
				}
			}
		})
	}
}

func TestSelectBuildErrors(t *testing.T) {
	tests := []struct {
		name    string
		builder *SelectBuilder
		err     error
	}{
		{"missing table", Select(), ErrMissingTable},
		{"unsupported join", Select().From("users").Join("CROSS", "posts", "1 = 1"), ErrUnsupportedJoin},
		{"invalid direction", Select().From("users").OrderBy("id", "UP"), ErrInvalidDirection},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, _, err := tt.builder.Build(); !errors.Is(err, tt.err) {
				t.Errorf("Build() error: got %v, want %v", err, tt.err)
			}
		})
	}
}

func TestSelectFirstErrorWins(t *testing.T) {
	_, _, err := Select().From("users").Join("CROSS", "posts", "1 = 1").OrderBy("id", "UP").Build()
	if !errors.Is(err, ErrUnsupportedJoin) {
		t.Errorf("Build() error: got %v, want %v", err, ErrUnsupportedJoin)
	}
}

func TestInsertBuild(t *testing.T) {
	sql, args, err := Insert("users").Values(map[string]interface{}{
		"name":  "alice",
		"email": "a@example.com",
	}).Build()
	if err != nil {
		t.Fatalf("Build() error: %v", err)
	}
	// column order is sorted for determinism
	if want := "INSERT INTO users (email, name) VALUES (?, ?)"; sql != want {
		t.Errorf("SQL: got %q, want %q", sql, want)
	}
	if want := []interface{}{"a@example.com", "alice"}; !reflect.DeepEqual(args, want) {
		t.Errorf("args: got %v, want %v", args, want)
	}
}

func TestInsertBuildErrors(t *testing.T) {
	if _, _, err := Insert("").Values(map[string]interface{}{"a": 1}).Build(); !errors.Is(err, ErrMissingTable) {
		t.Errorf("got %v, want %v", err, ErrMissingTable)
	}
	if _, _, err := Insert("users").Build(); !errors.Is(err, ErrEmptyValues) {
		t.Errorf("got %v, want %v", err, ErrEmptyValues)
	}
}

func TestUpdateBuild(t *testing.T) {
	sql, args, err := Update("users").Set(map[string]interface{}{
		"name":  "bob",
		"email": "b@example.com",
	}).Where("id = ?", 5).Build()
	if err != nil {
		t.Fatalf("Build() error: %v", err)
	}
	if want := "UPDATE users SET email = ?, name = ? WHERE id = ?"; sql != want {
		t.Errorf("SQL: got %q, want %q", sql, want)
	}
	if want := []interface{}{"b@example.com", "bob", 5}; !reflect.DeepEqual(args, want) {
		t.Errorf("args: got %v, want %v", args, want)
	}
}

func TestUpdateRefusesMissingWhere(t *testing.T) {
	_, _, err := Update("users").Set(map[string]interface{}{"name": "bob"}).Build()
	if !errors.Is(err, ErrMissingWhereClause) {
		t.Errorf("got %v, want %v", err, ErrMissingWhereClause)
	}
}

func TestDeleteBuild(t *testing.T) {
	sql, args, err := Delete("users").Where("id = ?", 5).Where("active = ?", 0).Build()
	if err != nil {
		t.Fatalf("Build() error: %v", err)
	}
	if want := "DELETE FROM users WHERE id = ? AND active = ?"; sql != want {
		t.Errorf("SQL: got %q, want %q", sql, want)
	}
	if want := []interface{}{5, 0}; !reflect.DeepEqual(args, want) {
		t.Errorf("args: got %v, want %v", args, want)
	}
}

func TestDeleteRefusesMissingWhere(t *testing.T) {
	_, _, err := Delete("users").Build()
	if !errors.Is(err, ErrMissingWhereClause) {
		t.Errorf("got %v, want %v", err, ErrMissingWhereClause)
	}
}
