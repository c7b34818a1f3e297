package coral

import (
	"context"
	"database/sql"
	"time"

	"github.com/coralorm/coral/logger"
)

type executor interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
}

// Connection wraps a database handle with SQL tracing. It imposes no pooling
// or locking of its own; a Connection and the Repositories on top of it are
// meant for one caller at a time.
type Connection struct {
	conn   executor
	db     *sql.DB
	logger logger.Interface
}

// Open opens a database/sql handle and wraps it.
func Open(driverName, dsn string, config *Config) (*Connection, error) {
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, err
	}
	return NewConnection(db, config), nil
}

// NewConnection wraps an existing database handle.
func NewConnection(db *sql.DB, config *Config) *Connection {
	return &Connection{conn: db, db: db, logger: config.logger()}
}

// DB returns the underlying handle, nil inside a transaction.
func (c *Connection) DB() *sql.DB { return c.db }

// explain renders the statement for trace output, interpolating parameter
// values unless the logger filters them out.
func (c *Connection) explain(ctx context.Context, query string, args []interface{}) string {
	params := args
	if filter, ok := c.logger.(logger.ParamsFilter); ok {
		query, params = filter.ParamsFilter(ctx, query, args...)
	}
	if len(params) == 0 {
		return query
	}
	return logger.ExplainSQL(query, params...)
}

// Execute runs a statement for effect and returns the driver result.
func (c *Connection) Execute(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	begin := time.Now()
	result, err := c.conn.ExecContext(ctx, query, args...)
	c.logger.Trace(ctx, begin, func() (string, int64) {
		explained := c.explain(ctx, query, args)
		if result == nil {
			return explained, -1
		}
		rows, raErr := result.RowsAffected()
		if raErr != nil {
			return explained, -1
		}
		return explained, rows
	}, err)
	return result, err
}

// QueryRows runs a query and returns every row as a column-keyed map, the raw
// storage representation consumed by entity construction.
func (c *Connection) QueryRows(ctx context.Context, query string, args ...interface{}) ([]map[string]interface{}, error) {
	begin := time.Now()
	rows, err := c.conn.QueryContext(ctx, query, args...)
	if err != nil {
		c.logger.Trace(ctx, begin, func() (string, int64) { return c.explain(ctx, query, args), -1 }, err)
		return nil, err
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	var results []map[string]interface{}
	for rows.Next() {
		values := make([]interface{}, len(columns))
		pointers := make([]interface{}, len(columns))
		for i := range values {
			pointers[i] = &values[i]
		}
		if err := rows.Scan(pointers...); err != nil {
			return nil, err
		}

		row := make(map[string]interface{}, len(columns))
		for i, column := range columns {
			row[column] = values[i]
		}
		results = append(results, row)
	}
	err = rows.Err()
	c.logger.Trace(ctx, begin, func() (string, int64) { return c.explain(ctx, query, args), int64(len(results)) }, err)
	if err != nil {
		return nil, err
	}
	return results, nil
}

// QueryRow runs a query and returns its first row, nil when nothing matches.
func (c *Connection) QueryRow(ctx context.Context, query string, args ...interface{}) (map[string]interface{}, error) {
	rows, err := c.QueryRows(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

// Transaction runs fn inside a transaction, committing on nil and rolling
// back on error or panic.
func (c *Connection) Transaction(ctx context.Context, fn func(tx *Connection) error) error {
	if c.db == nil {
		// already inside a transaction, reuse it
		return fn(c)
	}

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	txConn := &Connection{conn: tx, logger: c.logger}

	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
			panic(r)
		}
	}()

	if err := fn(txConn); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}
