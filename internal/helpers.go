package internal

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
)

func pluralize(count int, singular string) string {
	if count != 1 {
		if singular == "index" {
			singular = "indices"
		} else if strings.HasSuffix(singular, "ch") {
			singular = singular + "es"
		} else {
			singular = singular + "s"
		}
	}
	return fmt.Sprintf("%d %s", count, singular)
}

// Summary describes the shape of a table using the adapter's row and table names.
func Summary(adapter DataStoreAdapter, t *Table) string {
	return fmt.Sprintf("Fetched %s with %s from %s", pluralize(t.NumRows(), adapter.RowName()), pluralize(t.NumCols(), "column"), adapter.TableName())
}

// ReadCSV reads a header line and string records. With emptyAsNull, empty
// fields become nil so they are written as NULL; otherwise they stay "".
func ReadCSV(r io.Reader, emptyAsNull bool) (*Table, error) {
	reader := csv.NewReader(r)

	header, err := reader.Read()
	if err == io.EOF {
		return NewTable(nil), nil
	}
	if err != nil {
		return nil, err
	}

	t := NewTable(header)
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}

		row := make([]any, len(record))
		for i, v := range record {
			if v != "" || !emptyAsNull {
				row[i] = v
			}
		}
		if err := t.AppendRow(row); err != nil {
			return nil, err
		}
	}
	return t, nil
}
