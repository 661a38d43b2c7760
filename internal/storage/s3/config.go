package s3

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/sirupsen/logrus"

	"chunkvault/internal/storage"
)

// DefaultConfig provides default configuration values
var DefaultConfig = storage.Config{
	Backend:     "s3",
	BucketName:  "chunkvault-storage",
	Region:      "us-east-1",
	ChunkPrefix: "chunks/",
}

// Option adjusts the store configuration.
type Option func(*storage.Config)

// NewClient creates a new S3 client with the given configuration
func NewClient(ctx context.Context, cfg aws.Config, bucket string, logger *logrus.Logger, opts ...Option) (*Store, error) {
	client := s3.NewFromConfig(cfg)

	// Verify bucket exists and is accessible
	_, err := client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(bucket),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to access bucket %s: %w", bucket, err)
	}

	config := DefaultConfig
	config.BucketName = bucket
	config.Region = cfg.Region
	for _, opt := range opts {
		opt(&config)
	}

	return New(client, config, logger), nil
}

// WithChunkPrefix sets the key prefix chunks are stored under
func WithChunkPrefix(prefix string) Option {
	return func(c *storage.Config) {
		if prefix != "" {
			c.ChunkPrefix = prefix
		}
	}
}
