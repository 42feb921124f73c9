package internal

import (
	"archive/zip"
	"bytes"
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"unicode/utf8"

	"github.com/h2non/filetype"
)

var ErrBinaryTemplate = errors.New("query template is not a text file")

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// readTemplate loads query text from a local path, file:// URL or s3:// URL.
func readTemplate(ctx context.Context, path string) (string, error) {
	adapter := newFileAdapter(path)
	if err := adapter.Init(path); err != nil {
		return "", err
	}

	data, err := adapter.FetchFile(ctx)
	if err != nil {
		return "", fmt.Errorf("read %s %s: %w", adapter.ObjectName(), path, err)
	}

	return decodeTemplate(data)
}

func decodeTemplate(data []byte) (string, error) {
	if len(data) == 0 {
		return "", nil
	}

	// we only have to pass the file header = first 261 bytes
	head := data
	if len(head) > 261 {
		head = head[:261]
	}
	kind, err := filetype.Match(head)
	if err != nil {
		return "", err
	}

	switch kind.MIME.Value {
	case "":
		// plain text
	case "application/gzip":
		data, err = readGzip(data)
	case "application/zip":
		data, err = readZip(data)
	default:
		return "", fmt.Errorf("%w (%s)", ErrBinaryTemplate, kind.MIME.Value)
	}
	if err != nil {
		return "", err
	}

	data = bytes.TrimPrefix(data, utf8BOM)
	if !utf8.Valid(data) {
		return "", fmt.Errorf("%w (invalid UTF-8)", ErrBinaryTemplate)
	}
	return string(data), nil
}

func readGzip(data []byte) ([]byte, error) {
	gz, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer gz.Close()

	return io.ReadAll(gz)
}

// readZip returns the first regular file in the archive.
func readZip(data []byte) ([]byte, error) {
	reader, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, err
	}

	for _, file := range reader.File {
		if file.FileInfo().IsDir() {
			continue
		}

		f, err := file.Open()
		if err != nil {
			return nil, err
		}
		defer f.Close()

		return io.ReadAll(f)
	}
	return nil, errors.New("zip archive contains no files")
}

// ReadQueryFile loads query text without any substitution.
func ReadQueryFile(ctx context.Context, path string) (string, error) {
	return readTemplate(ctx, path)
}
