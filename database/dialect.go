package database

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"regexp"
	"strconv"
	"strings"
)

// Param is a named stored procedure parameter, bound by value.
type Param struct {
	Name  string
	Value any
}

func P(name string, value any) Param {
	return Param{Name: name, Value: value}
}

// Dialect turns a procedure call and a plain insert into driver-specific SQL.
type Dialect interface {
	Name() string
	// Call returns the statement invoking proc with params, and its arguments.
	Call(proc string, params []Param) (query string, args []any, err error)
	// Insert returns an INSERT of one row into table, arguments in column order.
	Insert(table string, columns []string) string
	// ServerInfo returns a query yielding the server time and version.
	ServerInfo() string
}

var ErrUnknownProcedure = errors.New("unknown procedure")

var (
	reProcedure  = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)
	reIdentifier = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
)

func validName(proc string) error {
	if !reProcedure.MatchString(proc) {
		return fmt.Errorf("malformed procedure name %q", proc)
	}
	return nil
}

func validIdentifiers(table string, columns []string) error {
	if !reProcedure.MatchString(table) {
		return fmt.Errorf("malformed table name %q", table)
	}
	for _, c := range columns {
		if !reIdentifier.MatchString(c) {
			return fmt.Errorf("malformed column name %q", c)
		}
	}
	return nil
}

// DialectFor picks the dialect matching a database/sql driver name.
func DialectFor(driver string) (Dialect, error) {
	switch driver {
	case "sqlserver", "mssql":
		return sqlServer{}, nil
	case "postgres", "pgx":
		return postgres{}, nil
	case "sqlite3", "sqlite":
		return newSQLite()
	}
	return nil, fmt.Errorf("no dialect for driver %q", driver)
}

type sqlServer struct{}

func (sqlServer) Name() string { return "sqlserver" }

func (sqlServer) Call(proc string, params []Param) (string, []any, error) {
	if err := validName(proc); err != nil {
		return "", nil, err
	}
	var b strings.Builder
	b.WriteString("EXEC ")
	b.WriteString(proc)
	args := make([]any, 0, len(params))
	for i, p := range params {
		if !reIdentifier.MatchString(p.Name) {
			return "", nil, fmt.Errorf("malformed parameter name %q", p.Name)
		}
		if i > 0 {
			b.WriteString(",")
		}
		fmt.Fprintf(&b, " @%s = @%s", p.Name, p.Name)
		args = append(args, sql.Named(p.Name, p.Value))
	}
	return b.String(), args, nil
}

func (sqlServer) Insert(table string, columns []string) string {
	marks := make([]string, len(columns))
	for i := range columns {
		marks[i] = "@p" + strconv.Itoa(i+1)
	}
	return insertSQL(table, columns, marks)
}

func (sqlServer) ServerInfo() string {
	return "SELECT CONVERT(varchar(33), SYSDATETIMEOFFSET(), 126), @@VERSION"
}

// postgres calls set-returning functions; parameters are positional, in the
// order given.
type postgres struct{}

func (postgres) Name() string { return "postgres" }

func (postgres) Call(proc string, params []Param) (string, []any, error) {
	if err := validName(proc); err != nil {
		return "", nil, err
	}
	marks := make([]string, len(params))
	args := make([]any, len(params))
	for i, p := range params {
		marks[i] = "$" + strconv.Itoa(i+1)
		args[i] = p.Value
	}
	return fmt.Sprintf("SELECT * FROM %s(%s)", proc, strings.Join(marks, ", ")), args, nil
}

func (postgres) Insert(table string, columns []string) string {
	marks := make([]string, len(columns))
	for i := range columns {
		marks[i] = "$" + strconv.Itoa(i+1)
	}
	return insertSQL(table, columns, marks)
}

func (postgres) ServerInfo() string {
	return "SELECT now()::text, version()"
}

//go:embed procedures/sqlite
var sqliteProcedures embed.FS

// sqlite has no stored procedures: named statements shipped with the binary
// stand in for them, one file per procedure, parameters bound as @Name.
type sqlite struct {
	procs map[string]string
}

func newSQLite() (sqlite, error) {
	procs, err := loadProcedures(sqliteProcedures, "procedures/sqlite")
	if err != nil {
		return sqlite{}, err
	}
	return sqlite{procs: procs}, nil
}

func loadProcedures(fsys fs.FS, dir string) (map[string]string, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, err
	}
	procs := make(map[string]string, len(entries))
	for _, e := range entries {
		if e.IsDir() || path.Ext(e.Name()) != ".sql" {
			continue
		}
		body, err := fs.ReadFile(fsys, path.Join(dir, e.Name()))
		if err != nil {
			return nil, err
		}
		procs[strings.ToLower(strings.TrimSuffix(e.Name(), ".sql"))] = string(body)
	}
	return procs, nil
}

func (sqlite) Name() string { return "sqlite" }

func (d sqlite) Call(proc string, params []Param) (string, []any, error) {
	if err := validName(proc); err != nil {
		return "", nil, err
	}
	// procedure names are case-insensitive, as on SQL Server
	body, ok := d.procs[strings.ToLower(proc)]
	if !ok {
		return "", nil, fmt.Errorf("%w %q", ErrUnknownProcedure, proc)
	}
	args := make([]any, len(params))
	for i, p := range params {
		args[i] = sql.Named(p.Name, p.Value)
	}
	return body, args, nil
}

func (sqlite) Insert(table string, columns []string) string {
	marks := make([]string, len(columns))
	for i := range columns {
		marks[i] = "?"
	}
	return insertSQL(table, columns, marks)
}

func (sqlite) ServerInfo() string {
	return "SELECT strftime('%Y-%m-%dT%H:%M:%SZ', 'now'), 'SQLite ' || sqlite_version()"
}

func insertSQL(table string, columns, marks []string) string {
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		table, strings.Join(columns, ", "), strings.Join(marks, ", "))
}
