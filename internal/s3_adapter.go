package internal

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

type S3Adapter struct {
	bucket string
	key    string
}

func (a *S3Adapter) ObjectName() string {
	return "object"
}

func (a *S3Adapter) Init(urlStr string) error {
	u, err := url.Parse(urlStr)
	if err != nil {
		return err
	}
	a.bucket = u.Host
	a.key = strings.TrimPrefix(u.Path, "/")
	if a.bucket == "" || a.key == "" {
		return fmt.Errorf("invalid S3 location %q, expected s3://bucket/key", urlStr)
	}
	return nil
}

func (a S3Adapter) FetchFile(ctx context.Context) ([]byte, error) {
	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, err
	}

	svc := s3.NewFromConfig(cfg)
	resp, err := svc.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(a.bucket),
		Key:    aws.String(a.key),
	})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	return io.ReadAll(resp.Body)
}
