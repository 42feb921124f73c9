package internal

import (
	"fmt"
	"strconv"
)

// flattenCellset converts a cellset into a table of its cell values, labelled
// by the first member caption of each column position. Empty cells become 0.
func flattenCellset(cs Cellset, addHierarchy bool) (*Table, error) {
	if cs.AxisCount() < 2 {
		return nil, fmt.Errorf("%w: got %d axes", ErrCellsetAxes, cs.AxisCount())
	}

	colPositions, err := cs.Positions(0)
	if err != nil {
		return nil, err
	}
	rowPositions, err := cs.Positions(1)
	if err != nil {
		return nil, err
	}

	if len(colPositions) == 0 || len(rowPositions) == 0 {
		return NewTable(nil), nil
	}

	columns := make([]string, len(colPositions))
	for j, pos := range colPositions {
		if len(pos.Members) == 0 {
			return nil, fmt.Errorf("%w: column position %d", ErrEmptyPosition, j)
		}
		columns[j] = pos.Members[0].Caption
	}

	values := NewTable(columns)
	for i := range rowPositions {
		row := make([]any, len(colPositions))
		for j := range colPositions {
			v, err := cs.Value(j, i)
			if err != nil {
				return nil, err
			}
			row[j] = v
		}
		values.Rows = append(values.Rows, row)
	}
	values.FillNull(float64(0))

	if !addHierarchy {
		return values, nil
	}

	hierarchy, err := hierarchyTable(rowPositions)
	if err != nil {
		return nil, err
	}
	return hierarchy.Concat(values)
}

// hierarchyTable holds one positional column per level of the row axis.
// Every row position must have the same number of members.
//
// The labels are the level indexes "0", "1", ... and are not made unique
// against the value columns, so a column caption such as "0" appears twice
// in the concatenated table. Address columns by index in that case.
func hierarchyTable(positions []Position) (*Table, error) {
	levels := len(positions[0].Members)

	columns := make([]string, levels)
	for j := range columns {
		columns[j] = strconv.Itoa(j)
	}

	t := NewTable(columns)
	for i, pos := range positions {
		if len(pos.Members) != levels {
			return nil, fmt.Errorf("%w: row position %d has %d members, expected %d",
				ErrRaggedHierarchy, i, len(pos.Members), levels)
		}
		row := make([]any, levels)
		for j, m := range pos.Members {
			row[j] = m.Caption
		}
		t.Rows = append(t.Rows, row)
	}
	return t, nil
}
