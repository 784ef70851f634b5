package database

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/Joss220r/competencia-Desarrollo/log"
	"github.com/Joss220r/competencia-Desarrollo/metrics"
)

// Gateway invokes stored procedures by name. Each operation takes its own
// connection from the pool and gives it back before returning; nothing is
// retried.
type Gateway struct {
	db      *sql.DB
	dialect Dialect
	timeout time.Duration
}

func NewGateway(db *sql.DB, dialect Dialect, timeout time.Duration) *Gateway {
	return &Gateway{db: db, dialect: dialect, timeout: timeout}
}

func (g *Gateway) Dialect() Dialect {
	return g.dialect
}

// RowFunc receives rows one at a time; returning an error stops the iteration.
type RowFunc func(columns []string, row Row) error

// Query streams the rows of the first result set of proc into fn.
func (g *Gateway) Query(ctx context.Context, proc string, fn RowFunc, params ...Param) (err error) {
	start := time.Now()
	defer func() { g.observe(proc, start, err) }()

	query, args, err := g.dialect.Call(proc, params)
	if err != nil {
		return executionError(proc, err)
	}

	ctx, cancel := g.withTimeout(ctx)
	defer cancel()

	conn, err := g.conn(ctx, proc)
	if err != nil {
		return err
	}
	defer conn.Close()

	log.Debugf("db.call: %s %v", proc, params)
	rows, err := conn.QueryContext(ctx, query, args...)
	if err != nil {
		return g.classify(ctx, proc, err)
	}
	defer func() { _ = rows.Close() }()

	columns, err := rows.Columns()
	if err != nil {
		return executionError(proc, err)
	}

	raw := make([]any, len(columns))
	dest := make([]any, len(columns))
	for i := range raw {
		dest[i] = &raw[i]
	}
	for rows.Next() {
		if err = rows.Scan(dest...); err != nil {
			return executionError(proc, err)
		}
		row := make(Row, len(columns))
		for i, c := range columns {
			row[c] = NewValue(raw[i])
		}
		if err = fn(columns, row); err != nil {
			return err
		}
	}
	if err = rows.Err(); err != nil {
		return g.classify(ctx, proc, err)
	}
	return nil
}

// Call collects every row of proc.
func (g *Gateway) Call(ctx context.Context, proc string, params ...Param) (*ResultSet, error) {
	rs := &ResultSet{}
	err := g.Query(ctx, proc, func(columns []string, row Row) error {
		if rs.Columns == nil {
			rs.Columns = columns
		}
		rs.Rows = append(rs.Rows, row)
		return nil
	}, params...)
	if err != nil {
		return nil, err
	}
	return rs, nil
}

var errStop = errors.New("stop")

// Scalar returns the first column of the first row, or Absent when proc
// yields no rows.
func (g *Gateway) Scalar(ctx context.Context, proc string, params ...Param) (Value, error) {
	v := Absent
	err := g.Query(ctx, proc, func(columns []string, row Row) error {
		if len(columns) > 0 {
			v = row[columns[0]]
		}
		return errStop
	}, params...)
	if err != nil && !errors.Is(err, errStop) {
		return Absent, err
	}
	return v, nil
}

// Tx is the part of a transaction exposed to InTx callbacks.
type Tx interface {
	PrepareContext(ctx context.Context, query string) (*sql.Stmt, error)
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// InTx runs fn inside one transaction on one connection. Any error from fn,
// or a panic, rolls everything back.
func (g *Gateway) InTx(ctx context.Context, name string, fn func(ctx context.Context, tx Tx) error) (err error) {
	start := time.Now()
	defer func() { g.observe(name, start, err) }()

	ctx, cancel := g.withTimeout(ctx)
	defer cancel()

	conn, err := g.conn(ctx, name)
	if err != nil {
		return err
	}
	defer conn.Close()

	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return g.classify(ctx, name, err)
	}
	defer tx.Rollback()

	if err = fn(ctx, tx); err != nil {
		var dae *DataAccessError
		if errors.As(err, &dae) {
			return err
		}
		return g.classify(ctx, name, err)
	}

	if err = tx.Commit(); err != nil {
		return g.classify(ctx, name, err)
	}
	return nil
}

// InsertStatement builds a single-row INSERT for the dialect after checking
// the identifiers, which come from configuration.
func (g *Gateway) InsertStatement(table string, columns []string) (string, error) {
	if err := validIdentifiers(table, columns); err != nil {
		return "", executionError(table, err)
	}
	return g.dialect.Insert(table, columns), nil
}

type ServerInfo struct {
	Time    string
	Version string
}

// Ping checks connectivity and reports the server clock and version.
func (g *Gateway) Ping(ctx context.Context) (info ServerInfo, err error) {
	ctx, cancel := g.withTimeout(ctx)
	defer cancel()

	conn, err := g.conn(ctx, "")
	if err != nil {
		return
	}
	defer conn.Close()

	var t, v sql.NullString
	err = conn.QueryRowContext(ctx, g.dialect.ServerInfo()).Scan(&t, &v)
	if err != nil {
		return info, g.classify(ctx, "", err)
	}
	return ServerInfo{Time: t.String, Version: v.String}, nil
}

func (g *Gateway) conn(ctx context.Context, proc string) (*sql.Conn, error) {
	conn, err := g.db.Conn(ctx)
	if err != nil {
		return nil, connectivityError(proc, err)
	}
	if err = conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, connectivityError(proc, err)
	}
	return conn, nil
}

// classify tells apart a connection lost mid-call (or a call cut by the
// deadline) from a statement the server rejected.
func (g *Gateway) classify(ctx context.Context, proc string, err error) error {
	switch {
	case errors.Is(err, sql.ErrConnDone),
		errors.Is(err, context.DeadlineExceeded),
		errors.Is(ctx.Err(), context.DeadlineExceeded):
		return connectivityError(proc, err)
	}
	return executionError(proc, err)
}

func (g *Gateway) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if g.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, g.timeout)
}

func (g *Gateway) observe(proc string, start time.Time, err error) {
	outcome := "ok"
	var dae *DataAccessError
	switch {
	case err == nil, errors.Is(err, errStop):
	case errors.As(err, &dae):
		outcome = dae.Kind.String()
	default:
		outcome = "aborted"
	}
	metrics.ObserveCall(proc, outcome, time.Since(start))
}
