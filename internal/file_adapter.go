package internal

import (
	"context"
	"strings"
)

// FileAdapter fetches the raw bytes of a query template.
type FileAdapter interface {
	ObjectName() string
	Init(url string) error
	FetchFile(ctx context.Context) ([]byte, error)
}

func newFileAdapter(path string) FileAdapter {
	if strings.HasPrefix(path, "s3://") {
		return &S3Adapter{}
	}
	return &LocalFileAdapter{}
}
