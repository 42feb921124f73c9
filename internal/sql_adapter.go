package internal

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	mssql "github.com/denisenkom/go-mssqldb"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/xo/dburl"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/mattn/go-sqlite3"
)

const DefaultSqlServer = "DWH-VDI"

// SqlAdapter runs queries and table operations against one relational database.
// Each operation opens its own connection and closes it before returning.
type SqlAdapter struct {
	Database string
	Server   string
	// URL overrides Server and Database with any dburl connection URL.
	URL string
	Log *Logger
}

func NewSqlAdapter(database string, server string, log *Logger) *SqlAdapter {
	if server == "" {
		server = DefaultSqlServer
	}
	return &SqlAdapter{Database: database, Server: server, Log: log}
}

func (a *SqlAdapter) TableName() string {
	return "result"
}

func (a *SqlAdapter) RowName() string {
	return "row"
}

// ConnectionURL is the dburl target; without an explicit URL it uses SQL Server
// with integrated authentication.
func (a *SqlAdapter) ConnectionURL() string {
	if a.URL != "" {
		return a.URL
	}
	q := url.Values{}
	if a.Database != "" {
		q.Set("database", a.Database)
	}
	u := url.URL{Scheme: "sqlserver", Host: a.Server, RawQuery: q.Encode()}
	return u.String()
}

func (a *SqlAdapter) connect(ctx context.Context) (*sqlx.DB, error) {
	u, err := dburl.Parse(a.ConnectionURL())
	if err != nil {
		return nil, err
	}

	db, err := sqlx.ConnectContext(ctx, u.Driver, u.DSN)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)

	return db, nil
}

// exec runs a single statement and commits it.
func (a *SqlAdapter) exec(ctx context.Context, build func(driver string) string) error {
	db, err := a.connect(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, build(db.DriverName())); err != nil {
		return err
	}
	return tx.Commit()
}

// CreateTable creates schema.table unless it already exists.
func (a *SqlAdapter) CreateTable(ctx context.Context, schema string, table string, cols ColumnDefs) error {
	if len(cols) == 0 {
		return fmt.Errorf("create table %s: no columns", table)
	}
	if err := cols.validate(); err != nil {
		return fmt.Errorf("create table %s: %w", table, err)
	}
	t := tableRef{Schema: schema, Name: table}
	return a.exec(ctx, func(driver string) string {
		return createTableQuery(driver, t, cols)
	})
}

func (a *SqlAdapter) DropTable(ctx context.Context, schema string, table string) error {
	t := tableRef{Schema: schema, Name: table}
	return a.exec(ctx, func(driver string) string {
		return dropTableQuery(driver, t)
	})
}

func (a *SqlAdapter) Truncate(ctx context.Context, schema string, table string) error {
	t := tableRef{Schema: schema, Name: table}
	return a.exec(ctx, func(driver string) string {
		return truncateQuery(driver, t)
	})
}

// ReadFile loads a query template, substitutes params with UnsafeTemplate and runs it.
func (a *SqlAdapter) ReadFile(ctx context.Context, path string, params TemplateParams) (*Table, error) {
	return timed(a.Log, path, func() (*Table, error) {
		text, err := readTemplate(ctx, path)
		if err != nil {
			return nil, err
		}

		if unused := unusedParams(text, params); len(unused) > 0 {
			a.Log.Printf("%s: parameters not found: %s", path, strings.Join(unused, ", "))
		}

		a.Log.Printf("%s loading...", path)
		result, err := a.Read(ctx, UnsafeTemplate(text, params))
		if err != nil {
			return nil, err
		}

		if a.Log.Enabled() {
			if err := result.Info(a.Log.Writer()); err != nil {
				return nil, err
			}
		}
		return result, nil
	})
}

func (a *SqlAdapter) Read(ctx context.Context, query string) (*Table, error) {
	if strings.TrimSpace(query) == "" {
		return nil, ErrEmptyQuery
	}

	db, err := a.connect(ctx)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	return queryTable(ctx, db, query)
}

// ReadTable selects every row of a table; the name is used as given.
func (a *SqlAdapter) ReadTable(ctx context.Context, table string) (*Table, error) {
	return a.Read(ctx, "SELECT * FROM "+table)
}

// BulkInsert writes rows positionally: the i-th value of each row goes to the
// i-th column of the target table. All rows are sent in one transaction.
func (a *SqlAdapter) BulkInsert(ctx context.Context, schema string, table string, rows *Table) error {
	if rows.NumCols() == 0 {
		return fmt.Errorf("bulk insert into %s: no columns", table)
	}
	t := tableRef{Schema: schema, Name: table}

	db, err := a.connect(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	query, copyIn, err := bulkInsertQuery(ctx, tx, t, rows.NumCols())
	if err != nil {
		return err
	}

	stmt, err := tx.PreparexContext(ctx, query)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, row := range rows.Rows {
		if _, err := stmt.ExecContext(ctx, row...); err != nil {
			return err
		}
	}

	if copyIn {
		// flush buffered rows
		if _, err := stmt.ExecContext(ctx); err != nil {
			return err
		}
	}

	if err := stmt.Close(); err != nil {
		return err
	}
	return tx.Commit()
}

// bulkInsertQuery uses the driver's bulk copy protocol where one exists and a
// prepared INSERT otherwise.
func bulkInsertQuery(ctx context.Context, tx *sqlx.Tx, t tableRef, columns int) (string, bool, error) {
	if !hasCopyIn(tx.DriverName()) {
		return tx.Rebind(insertQuery(t, columns)), false, nil
	}

	names, err := targetColumns(ctx, tx, t)
	if err != nil {
		return "", false, err
	}
	query, err := copyInQuery(tx.DriverName(), t, names, columns)
	if err != nil {
		return "", false, err
	}
	return query, true, nil
}

func hasCopyIn(driver string) bool {
	return driver == "sqlserver" || driver == "postgres"
}

// copyInQuery builds the bulk copy statement for the table's declared columns.
// Rows are positional, so their width must match the table exactly.
func copyInQuery(driver string, t tableRef, names []string, columns int) (string, error) {
	if len(names) != columns {
		return "", fmt.Errorf("%w: %s has %d columns, rows have %d", ErrRowWidth, t.displayName(), len(names), columns)
	}

	switch driver {
	case "sqlserver":
		return mssql.CopyIn(t.displayName(), mssql.BulkOptions{}, names...), nil
	case "postgres":
		if t.Schema == "" {
			return pq.CopyIn(t.Name, names...), nil
		}
		return pq.CopyInSchema(t.Schema, t.Name, names...), nil
	default:
		return "", fmt.Errorf("driver %s has no bulk copy protocol", driver)
	}
}

// targetColumns lists the table's columns in declaration order.
func targetColumns(ctx context.Context, tx *sqlx.Tx, t tableRef) ([]string, error) {
	rows, err := tx.QueryxContext(ctx, "SELECT * FROM "+qualifiedName(tx.DriverName(), t)+" WHERE 1=0")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return rows.Columns()
}

// GetAgg returns aggFunc(column) over schema.table. aggFunc is inserted into the
// SQL text as is.
func (a *SqlAdapter) GetAgg(ctx context.Context, aggFunc string, schema string, table string, column string) (any, error) {
	db, err := a.connect(ctx)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	result, err := queryTable(ctx, db, aggQuery(db.DriverName(), aggFunc, tableRef{Schema: schema, Name: table}, column))
	if err != nil {
		return nil, err
	}
	if result.NumRows() == 0 || result.NumCols() == 0 {
		return nil, errors.New("aggregate returned no value")
	}
	return result.Rows[0][0], nil
}

func queryTable(ctx context.Context, db *sqlx.DB, query string) (*Table, error) {
	rows, err := db.QueryxContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	result := NewTable(cols)
	for rows.Next() {
		values, err := rows.SliceScan()
		if err != nil {
			return nil, err
		}
		for i, v := range values {
			// text columns arrive as bytes from some drivers
			if b, ok := v.([]byte); ok {
				values[i] = string(b)
			}
		}
		result.Rows = append(result.Rows, values)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}
