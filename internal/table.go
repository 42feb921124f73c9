package internal

import (
	"errors"
	"fmt"
	"io"
	"reflect"
	"strconv"
	"text/tabwriter"
	"time"
)

var ErrRowWidth = errors.New("row width does not match column count")

// tableRef names a relational table, optionally schema-qualified.
type tableRef struct {
	Schema string `db:"table_schema"`
	Name   string `db:"table_name"`
}

func (t tableRef) displayName() string {
	str := t.Name
	if t.Schema != "" {
		str = t.Schema + "." + str
	}
	return str
}

// Table is the flat, column-labeled result every query is normalized into.
// Rows are stored row-major; each row holds exactly len(Columns) values.
type Table struct {
	Columns []string
	Rows    [][]any
}

func NewTable(columns []string) *Table {
	if columns == nil {
		columns = []string{}
	}
	return &Table{Columns: columns, Rows: [][]any{}}
}

func (t *Table) NumRows() int { return len(t.Rows) }

func (t *Table) NumCols() int { return len(t.Columns) }

func (t *Table) AppendRow(row []any) error {
	if len(row) != len(t.Columns) {
		return fmt.Errorf("%w: got %d values for %d columns", ErrRowWidth, len(row), len(t.Columns))
	}
	t.Rows = append(t.Rows, row)
	return nil
}

// FillNull replaces every nil value in place and returns the table.
func (t *Table) FillNull(v any) *Table {
	for _, row := range t.Rows {
		for j := range row {
			if row[j] == nil {
				row[j] = v
			}
		}
	}
	return t
}

// Concat joins other to the right of t by row index.
func (t *Table) Concat(other *Table) (*Table, error) {
	if t.NumRows() != other.NumRows() {
		return nil, fmt.Errorf("cannot concat tables with %d and %d rows", t.NumRows(), other.NumRows())
	}

	columns := make([]string, 0, t.NumCols()+other.NumCols())
	columns = append(columns, t.Columns...)
	columns = append(columns, other.Columns...)

	out := NewTable(columns)
	for i := range t.Rows {
		row := make([]any, 0, len(columns))
		row = append(row, t.Rows[i]...)
		row = append(row, other.Rows[i]...)
		out.Rows = append(out.Rows, row)
	}
	return out, nil
}

// MemoryUsage estimates the bytes held by the table's values and labels.
func (t *Table) MemoryUsage() int64 {
	var total int64
	for _, col := range t.Columns {
		total += int64(len(col)) + 16
	}
	for _, row := range t.Rows {
		total += 24
		for _, v := range row {
			total += valueSize(v)
		}
	}
	return total
}

func valueSize(v any) int64 {
	// interface header
	size := int64(16)
	switch x := v.(type) {
	case nil:
	case string:
		size += int64(len(x))
	case []byte:
		size += int64(len(x)) + 24
	case time.Time:
		size += 24
	default:
		size += int64(reflect.TypeOf(v).Size())
	}
	return size
}

// Info writes a summary of the table: column kinds, non-null counts and memory usage.
func (t *Table) Info(w io.Writer) error {
	fmt.Fprintf(w, "%d entries, %d columns\n", t.NumRows(), t.NumCols())

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, " #\tColumn\tNon-Null Count\tKind")
	for j, col := range t.Columns {
		nonNull := 0
		for _, row := range t.Rows {
			if row[j] != nil {
				nonNull++
			}
		}
		fmt.Fprintf(tw, " %d\t%s\t%d non-null\t%s\n", j, col, nonNull, t.columnKind(j))
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	_, err := fmt.Fprintf(w, "memory usage: %s\n", formatBytes(t.MemoryUsage()))
	return err
}

func (t *Table) columnKind(j int) string {
	kind := ""
	for _, row := range t.Rows {
		if row[j] == nil {
			continue
		}
		k := reflect.TypeOf(row[j]).String()
		if kind == "" {
			kind = k
		} else if kind != k {
			return "mixed"
		}
	}
	if kind == "" {
		return "null"
	}
	return kind
}

func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return strconv.FormatInt(n, 10) + " bytes"
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(n)/float64(div), "KMGTPE"[exp])
}
