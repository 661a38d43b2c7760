package main

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	"github.com/sirupsen/logrus"

	"chunkvault/internal/config"
	"chunkvault/internal/storage"
	badgerstore "chunkvault/internal/storage/badger"
	"chunkvault/internal/storage/fs"
	s3store "chunkvault/internal/storage/s3"
)

// openStore builds the configured backend. The returned func releases it.
func openStore(ctx context.Context, cfg config.Config, logger *logrus.Logger) (storage.Store, func(), error) {
	noop := func() {}

	switch cfg.Backend {
	case config.BackendFS:
		store, err := fs.New(cfg.StorageRoot, logger)
		if err != nil {
			return nil, noop, err
		}
		return store, noop, nil

	case config.BackendBadger:
		store, err := badgerstore.New(badgerstore.StoreConfig{Path: cfg.StorageRoot, Logger: logger})
		if err != nil {
			return nil, noop, err
		}
		return store, func() {
			if err := store.Close(); err != nil {
				logger.WithError(err).Error("failed to close badger store")
			}
		}, nil

	case config.BackendS3:
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
		if err != nil {
			return nil, noop, fmt.Errorf("unable to load SDK config: %w", err)
		}
		logCallerIdentity(ctx, sts.NewFromConfig(awsCfg), logger)

		store, err := s3store.NewClient(ctx, awsCfg, cfg.BucketName, logger, s3store.WithChunkPrefix(cfg.S3Prefix))
		if err != nil {
			return nil, noop, err
		}
		storeCfg := store.GetConfig()
		logger.WithFields(logrus.Fields{
			"bucket": storeCfg.BucketName,
			"region": storeCfg.Region,
			"prefix": storeCfg.ChunkPrefix,
		}).Debug("using S3 chunk store")
		return store, noop, nil

	default:
		return nil, noop, fmt.Errorf("unknown backend %q", cfg.Backend)
	}
}

type identityClient interface {
	GetCallerIdentity(ctx context.Context, params *sts.GetCallerIdentityInput, optFns ...func(*sts.Options)) (*sts.GetCallerIdentityOutput, error)
}

func logCallerIdentity(ctx context.Context, client identityClient, logger *logrus.Logger) {
	identity, err := client.GetCallerIdentity(ctx, &sts.GetCallerIdentityInput{})
	if err != nil {
		logger.WithError(err).Warn("unable to get caller identity")
		return
	}
	logger.WithFields(logrus.Fields{
		"account": aws.ToString(identity.Account),
		"arn":     aws.ToString(identity.Arn),
	}).Info("using AWS identity")
}
