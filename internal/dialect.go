package internal

import (
	"errors"
	"fmt"
	"strings"

	"github.com/deckarep/golang-set"
	"github.com/lib/pq"
)

var ErrDuplicateColumn = errors.New("duplicate column")

// ColumnDef is one column of a table definition, with a backend-native type.
type ColumnDef struct {
	Name string
	Type string
}

type ColumnDefs []ColumnDef

// ParseColumnDefs parses NAME=TYPE pairs, keeping their order.
func ParseColumnDefs(pairs []string) (ColumnDefs, error) {
	cols := make(ColumnDefs, 0, len(pairs))
	for _, pair := range pairs {
		name, ty, found := strings.Cut(pair, "=")
		if !found || name == "" || ty == "" {
			return nil, fmt.Errorf("invalid column %q, expected NAME=TYPE", pair)
		}
		cols = append(cols, ColumnDef{Name: name, Type: ty})
	}
	if err := cols.validate(); err != nil {
		return nil, err
	}
	return cols, nil
}

// validate rejects names that differ only in case, which most backends fold together.
func (cols ColumnDefs) validate() error {
	seen := mapset.NewSet()
	for _, col := range cols {
		key := strings.ToLower(col.Name)
		if seen.Contains(key) {
			return fmt.Errorf("%w %q", ErrDuplicateColumn, col.Name)
		}
		seen.Add(key)
	}
	return nil
}

// quoteName quotes an identifier where the driver folds unquoted names.
func quoteName(driver string, name string) string {
	if driver == "postgres" {
		return pq.QuoteIdentifier(name)
	}
	return name
}

// qualifiedName is the table name as written into statements for driver.
func qualifiedName(driver string, t tableRef) string {
	str := quoteName(driver, t.Name)
	if t.Schema != "" {
		str = quoteName(driver, t.Schema) + "." + str
	}
	return str
}

func createTableQuery(driver string, t tableRef, cols ColumnDefs) string {
	defs := make([]string, len(cols))
	for i, col := range cols {
		defs[i] = quoteName(driver, col.Name) + " " + col.Type
	}
	body := fmt.Sprintf("%s (%s)", qualifiedName(driver, t), strings.Join(defs, ","))

	switch driver {
	case "sqlserver":
		return fmt.Sprintf("if not exists (select * from sysobjects where name='%s' and xtype='U') CREATE TABLE %s", t.Name, body)
	default:
		return "CREATE TABLE IF NOT EXISTS " + body
	}
}

func dropTableQuery(driver string, t tableRef) string {
	switch driver {
	case "sqlserver":
		return fmt.Sprintf("IF OBJECT_ID('%s', 'U') IS NOT NULL DROP TABLE %s", t.displayName(), t.displayName())
	default:
		return "DROP TABLE IF EXISTS " + qualifiedName(driver, t)
	}
}

func truncateQuery(driver string, t tableRef) string {
	switch driver {
	case "sqlite3":
		// sqlite has no TRUNCATE
		return "DELETE FROM " + t.displayName()
	default:
		return "TRUNCATE TABLE " + qualifiedName(driver, t)
	}
}

// insertQuery has one ? placeholder per column; callers rebind it for the driver.
func insertQuery(t tableRef, columns int) string {
	return fmt.Sprintf("INSERT INTO %s VALUES (%s)", t.displayName(), strings.TrimSuffix(strings.Repeat("?,", columns), ","))
}

// aggQuery quotes the table but not the column, which may be an expression such as *.
func aggQuery(driver string, aggFunc string, t tableRef, column string) string {
	return fmt.Sprintf("SELECT %s(%s) FROM %s", aggFunc, column, qualifiedName(driver, t))
}
