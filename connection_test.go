package coral

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coralorm/coral/logger"
)

type traceWriter struct {
	bytes.Buffer
}

func (w *traceWriter) Printf(format string, args ...interface{}) {
	fmt.Fprintf(&w.Buffer, format, args...)
}

func mockConnection(t *testing.T) (*Connection, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return NewConnection(db, &Config{Logger: logger.Discard}), mock
}

func TestQueryRows(t *testing.T) {
	conn, mock := mockConnection(t)

	mock.ExpectQuery("SELECT id, name FROM users").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}).
			AddRow(1, "alice").
			AddRow(2, nil))

	rows, err := conn.QueryRows(context.Background(), "SELECT id, name FROM users")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, int64(1), rows[0]["id"])
	assert.Equal(t, "alice", rows[0]["name"])
	assert.Nil(t, rows[1]["name"])

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestQueryRow(t *testing.T) {
	conn, mock := mockConnection(t)

	mock.ExpectQuery("SELECT id FROM users WHERE id = ?").
		WithArgs(5).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(5).AddRow(6))

	row, err := conn.QueryRow(context.Background(), "SELECT id FROM users WHERE id = ?", 5)
	require.NoError(t, err)
	require.NotNil(t, row)
	assert.Equal(t, int64(5), row["id"])

	mock.ExpectQuery("SELECT id FROM users WHERE id = ?").
		WithArgs(99).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	row, err = conn.QueryRow(context.Background(), "SELECT id FROM users WHERE id = ?", 99)
	require.NoError(t, err)
	assert.Nil(t, row)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTraceInterpolatesParameters(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	var buf traceWriter
	conn := NewConnection(db, &Config{Logger: logger.New(&buf, logger.Config{LogLevel: logger.Info})})

	mock.ExpectExec("UPDATE users SET name = ? WHERE id = ?").
		WithArgs("alice", 5).
		WillReturnResult(sqlmock.NewResult(0, 1))

	_, err = conn.Execute(context.Background(), "UPDATE users SET name = ? WHERE id = ?", "alice", 5)
	require.NoError(t, err)

	assert.Contains(t, buf.String(), "UPDATE users SET name = 'alice' WHERE id = 5")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTraceParameterizedQueriesKeepsPlaceholders(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	var buf traceWriter
	conn := NewConnection(db, &Config{Logger: logger.New(&buf, logger.Config{LogLevel: logger.Info, ParameterizedQueries: true})})

	mock.ExpectQuery("SELECT * FROM users WHERE name = ?").
		WithArgs("alice").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}).AddRow(1, "alice"))

	_, err = conn.QueryRows(context.Background(), "SELECT * FROM users WHERE name = ?", "alice")
	require.NoError(t, err)

	assert.Contains(t, buf.String(), "SELECT * FROM users WHERE name = ?")
	assert.NotContains(t, buf.String(), "'alice'")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransactionCommits(t *testing.T) {
	conn, mock := mockConnection(t)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO users (name) VALUES (?)").
		WithArgs("alice").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	err := conn.Transaction(context.Background(), func(tx *Connection) error {
		_, err := tx.Execute(context.Background(), "INSERT INTO users (name) VALUES (?)", "alice")
		return err
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransactionRollsBackOnError(t *testing.T) {
	conn, mock := mockConnection(t)

	mock.ExpectBegin()
	mock.ExpectRollback()

	boom := errors.New("boom")
	err := conn.Transaction(context.Background(), func(tx *Connection) error {
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNestedTransactionReusesOuter(t *testing.T) {
	conn, mock := mockConnection(t)

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM users WHERE id = ?").
		WithArgs(1).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := conn.Transaction(context.Background(), func(tx *Connection) error {
		return tx.Transaction(context.Background(), func(inner *Connection) error {
			_, err := inner.Execute(context.Background(), "DELETE FROM users WHERE id = ?", 1)
			return err
		})
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
