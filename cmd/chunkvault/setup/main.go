package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/sirupsen/logrus"

	"chunkvault/internal/config"
	badgerstore "chunkvault/internal/storage/badger"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logrus.Fatalf("Failed to load config: %v", err)
	}
	logger := cfg.Logger()
	ctx := context.Background()

	switch cfg.Backend {
	case config.BackendFS:
		err = os.MkdirAll(cfg.StorageRoot, 0700)
	case config.BackendBadger:
		err = setupBadger(cfg.StorageRoot, logger)
	case config.BackendS3:
		err = setupBucket(ctx, cfg.BucketName, logger)
	}
	if err != nil {
		logger.Fatalf("Setup failed: %v", err)
	}

	fmt.Println("\nSetup completed successfully!")
	fmt.Println("\nStorage configuration:")
	fmt.Printf("- Backend: %s\n", cfg.Backend)
	if cfg.Backend == config.BackendS3 {
		fmt.Printf("- Bucket: %s\n", cfg.BucketName)
		fmt.Printf("- Prefix: %s\n", cfg.S3Prefix)
	} else {
		fmt.Printf("- Root: %s\n", cfg.StorageRoot)
	}
	fmt.Printf("- Chunk size: %d bytes\n", cfg.ChunkSize)
}

func setupBadger(path string, logger *logrus.Logger) error {
	store, err := badgerstore.New(badgerstore.StoreConfig{Path: path, Logger: logger})
	if err != nil {
		return err
	}
	return store.Close()
}

func setupBucket(ctx context.Context, bucketName string, logger *logrus.Logger) error {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return fmt.Errorf("unable to load SDK config: %w", err)
	}
	client := s3.NewFromConfig(awsCfg)

	_, err = client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(bucketName)})
	if err == nil {
		logger.WithField("bucket", bucketName).Info("bucket already exists")
		return nil
	}

	logger.WithField("bucket", bucketName).Info("creating bucket")
	input := &s3.CreateBucketInput{Bucket: aws.String(bucketName)}
	// us-east-1 rejects an explicit location constraint
	if awsCfg.Region != "us-east-1" {
		input.CreateBucketConfiguration = &types.CreateBucketConfiguration{
			LocationConstraint: types.BucketLocationConstraint(awsCfg.Region),
		}
	}
	if _, err := client.CreateBucket(ctx, input); err != nil {
		return fmt.Errorf("unable to create bucket: %w", err)
	}
	return nil
}
