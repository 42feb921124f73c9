package internal

import (
	"context"
	"os"
	"strings"
)

type LocalFileAdapter struct {
	path string
}

func (a *LocalFileAdapter) ObjectName() string {
	return "file"
}

func (a *LocalFileAdapter) Init(url string) error {
	a.path = strings.TrimPrefix(url, "file://")
	return nil
}

func (a LocalFileAdapter) FetchFile(ctx context.Context) ([]byte, error) {
	return os.ReadFile(a.path)
}
