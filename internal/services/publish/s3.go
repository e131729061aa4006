package publish

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/quimbydigital/client-report-automations/internal/common"
)

// s3Target uploads report files to an S3 bucket fronted by static hosting
// or a CDN. Credentials come from the default AWS credential chain.
type s3Target struct {
	client  *s3.Client
	bucket  string
	prefix  string
	baseURL string
}

func newS3Target(ctx context.Context, config *common.PublishConfig) (*s3Target, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	if config.S3.Region != "" {
		cfg.Region = config.S3.Region
	}

	return &s3Target{
		client:  s3.NewFromConfig(cfg),
		bucket:  config.S3.Bucket,
		prefix:  strings.Trim(config.S3.Prefix, "/"),
		baseURL: strings.TrimRight(config.BaseURL, "/"),
	}, nil
}

func (t *s3Target) Put(ctx context.Context, key string, data []byte, contentType string) error {
	objectKey := key
	if t.prefix != "" {
		objectKey = t.prefix + "/" + key
	}

	_, err := t.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(t.bucket),
		Key:         aws.String(objectKey),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		// Surfaces only after the SDK's own retries.
		return &DeploymentError{Transient: true, Reason: fmt.Sprintf("upload s3://%s/%s", t.bucket, objectKey), Err: err}
	}
	return nil
}

func (t *s3Target) URLFor(key string) string {
	return t.baseURL + "/" + key
}

func (t *s3Target) Name() string {
	return "s3"
}
