package internal

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/fatih/color"
)

// Formatter defines the interface used to deliver tables to the end user.
type Formatter interface {
	// AddTable is called for every table a command produces.
	AddTable(t *Table) error

	// Flush is called when the formatter should finish outputing any data it
	// may have buffered.
	Flush() error
}

// FormatterFactory
type FormatterFactory func(io.Writer) Formatter

// Formatters holds available formatters
var Formatters = map[string]FormatterFactory{
	"text": NewTextFormatter,
	"json": NewJSONFormatter,
	"csv":  NewCSVFormatter,
}

// TextFormatter prints tables as aligned, human readable columns.
type TextFormatter struct {
	io.Writer
}

func NewTextFormatter(out io.Writer) Formatter {
	return TextFormatter{
		Writer: out,
	}
}

func (f TextFormatter) AddTable(t *Table) error {
	cells := make([][]string, len(t.Rows))
	widths := make([]int, t.NumCols())
	for j, col := range t.Columns {
		widths[j] = utf8.RuneCountInString(col)
	}
	for i, row := range t.Rows {
		cells[i] = make([]string, len(row))
		for j, v := range row {
			s := FormatValue(v)
			cells[i][j] = s
			if n := utf8.RuneCountInString(s); n > widths[j] {
				widths[j] = n
			}
		}
	}

	yellow := color.New(color.FgYellow).SprintFunc()
	header := make([]string, t.NumCols())
	for j, col := range t.Columns {
		header[j] = yellow(pad(col, widths[j]))
	}
	if _, err := fmt.Fprintln(f.Writer, strings.TrimRight(strings.Join(header, "  "), " ")); err != nil {
		return err
	}

	for _, row := range cells {
		for j := range row {
			row[j] = pad(row[j], widths[j])
		}
		if _, err := fmt.Fprintln(f.Writer, strings.TrimRight(strings.Join(row, "  "), " ")); err != nil {
			return err
		}
	}
	return nil
}

func (f TextFormatter) Flush() error { return nil }

func pad(s string, width int) string {
	return s + strings.Repeat(" ", width-utf8.RuneCountInString(s))
}

// JSONFormatter prints the result as a JSON object.
type JSONFormatter struct {
	entries []jsonTable
	encoder *json.Encoder
}

type jsonTable struct {
	Columns []string `json:"columns"`
	Rows    [][]any  `json:"rows"`
}

func NewJSONFormatter(out io.Writer) Formatter {
	return &JSONFormatter{
		entries: make([]jsonTable, 0),
		encoder: json.NewEncoder(out),
	}
}

func (f *JSONFormatter) AddTable(t *Table) error {
	rows := make([][]any, len(t.Rows))
	for i, row := range t.Rows {
		rows[i] = make([]any, len(row))
		for j, v := range row {
			rows[i][j] = jsonValue(v)
		}
	}
	f.entries = append(f.entries, jsonTable{Columns: t.Columns, Rows: rows})
	return nil
}

// jsonValue maps values encoding/json rejects; NaN and infinities become null.
func jsonValue(v any) any {
	switch x := v.(type) {
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return nil
		}
	case float32:
		if math.IsNaN(float64(x)) || math.IsInf(float64(x), 0) {
			return nil
		}
	}
	return v
}

func (f *JSONFormatter) Flush() error {
	if len(f.entries) == 1 {
		return f.encoder.Encode(&f.entries[0])
	}
	return f.encoder.Encode(&f.entries)
}

// CSVFormatter prints a header line followed by one record per row.
type CSVFormatter struct {
	writer *csv.Writer
}

func NewCSVFormatter(out io.Writer) Formatter {
	return &CSVFormatter{writer: csv.NewWriter(out)}
}

func (f *CSVFormatter) AddTable(t *Table) error {
	if err := f.writer.Write(t.Columns); err != nil {
		return err
	}
	record := make([]string, t.NumCols())
	for _, row := range t.Rows {
		for j, v := range row {
			record[j] = FormatValue(v)
		}
		if err := f.writer.Write(record); err != nil {
			return err
		}
	}
	return nil
}

func (f *CSVFormatter) Flush() error {
	f.writer.Flush()
	return f.writer.Error()
}

// FormatValue renders a cell for text and CSV output.
func FormatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32)
	case time.Time:
		return x.Format(time.RFC3339)
	case []byte:
		return string(x)
	default:
		return fmt.Sprint(x)
	}
}
