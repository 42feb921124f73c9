package internal

import (
	"context"
	"errors"
)

var ErrEmptyQuery = errors.New("query is empty")

// DataStoreAdapter is implemented by every backend that can answer a query with a table.
type DataStoreAdapter interface {
	TableName() string
	RowName() string
	Read(ctx context.Context, query string) (*Table, error)
}

var (
	_ DataStoreAdapter = (*SqlAdapter)(nil)
	_ DataStoreAdapter = (*CubeAdapter)(nil)
)
