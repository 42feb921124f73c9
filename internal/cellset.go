package internal

import (
	"context"
	"errors"
)

var (
	ErrCellsetAxes     = errors.New("cellset needs a column axis and a row axis")
	ErrEmptyPosition   = errors.New("axis position has no members")
	ErrRaggedHierarchy = errors.New("row positions have different hierarchy depths")
)

// Member is one hierarchy-level value at an axis position.
type Member struct {
	Caption string
}

// Position is one coordinate along an axis.
type Position struct {
	Members []Member
}

// Cellset is an axis-addressed multidimensional result. Axis 0 holds the
// columns and axis 1 the rows.
type Cellset interface {
	AxisCount() int
	Positions(axis int) ([]Position, error)
	// Value returns the cell at (column, row), or nil when the cell is empty.
	Value(col int, row int) (any, error)
	Close() error
}

// CubeSession is an open connection to a multidimensional server.
type CubeSession interface {
	Execute(ctx context.Context, query string) (Cellset, error)
	Close() error
}

// CellsetDriver opens sessions from a provider connection string.
type CellsetDriver interface {
	Open(ctx context.Context, connectionString string) (CubeSession, error)
}
