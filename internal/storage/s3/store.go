package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"sort"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/sirupsen/logrus"
	"go.uber.org/multierr"

	"chunkvault/internal/core/domain"
	"chunkvault/internal/storage"
)

// DeleteObjects accepts at most this many keys per request.
const maxDeleteBatch = 1000

// API is the subset of *s3.Client the store uses.
type API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	DeleteObjects(ctx context.Context, params *s3.DeleteObjectsInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectsOutput, error)
	ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

type Store struct {
	client API
	config storage.Config
	log    *logrus.Logger
}

func New(client API, config storage.Config, logger *logrus.Logger) *Store {
	if logger == nil {
		logger = logrus.New()
	}
	return &Store{
		client: client,
		config: config,
		log:    logger,
	}
}

func (s *Store) fileKeyPrefix(fileID string) string {
	return path.Join(s.config.ChunkPrefix, fileID) + "/"
}

func (s *Store) Put(ctx context.Context, fileID string, index int, data []byte) (string, error) {
	fail := func(err error) (string, error) {
		return "", &domain.StoreError{Op: "put", FileID: fileID, Index: index, Err: err}
	}
	if err := storage.ValidateFileID(fileID); err != nil {
		return fail(err)
	}
	if index < 0 {
		return fail(fmt.Errorf("negative chunk index %d", index))
	}

	key := s.fileKeyPrefix(fileID) + storage.ChunkName(index)
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.config.BucketName),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/octet-stream"),
	})
	if err != nil {
		return fail(fmt.Errorf("failed to store chunk: %w", err))
	}

	s.log.WithFields(logrus.Fields{
		"file_id":     fileID,
		"chunk_index": index,
		"bytes":       len(data),
	}).Debug("stored chunk")
	return key, nil
}

func (s *Store) Get(ctx context.Context, location string) ([]byte, error) {
	fail := func(err error) ([]byte, error) {
		return nil, &domain.StoreError{Op: "get", Location: location, Err: err}
	}
	if !s.owns(location) {
		return fail(fmt.Errorf("%w: %q", storage.ErrInvalidLocation, location))
	}

	result, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.config.BucketName),
		Key:    aws.String(location),
	})
	var noKey *types.NoSuchKey
	if errors.As(err, &noKey) {
		return fail(storage.ErrNotFound)
	}
	if err != nil {
		return fail(fmt.Errorf("failed to get chunk: %w", err))
	}
	defer result.Body.Close()

	data, err := io.ReadAll(result.Body)
	if err != nil {
		return fail(fmt.Errorf("failed to read chunk data: %w", err))
	}
	return data, nil
}

func (s *Store) Delete(ctx context.Context, location string) error {
	if !s.owns(location) {
		return &domain.StoreError{Op: "delete", Location: location, Err: fmt.Errorf("%w: %q", storage.ErrInvalidLocation, location)}
	}
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.config.BucketName),
		Key:    aws.String(location),
	})
	if err != nil {
		return &domain.StoreError{Op: "delete", Location: location, Err: fmt.Errorf("failed to delete chunk: %w", err)}
	}
	return nil
}

// DeleteAll lists every chunk under the file's prefix and removes them in
// batches. Keys S3 reports as not deleted are returned in a
// *storage.DeleteError.
func (s *Store) DeleteAll(ctx context.Context, fileID string) error {
	fail := func(err error) error {
		return &domain.StoreError{Op: "delete_all", FileID: fileID, Index: -1, Err: err}
	}
	if err := storage.ValidateFileID(fileID); err != nil {
		return fail(err)
	}

	keys, err := s.Locations(ctx, fileID)
	if err != nil {
		return fail(err)
	}
	if len(keys) == 0 {
		return nil
	}

	var (
		remaining []string
		errs      error
	)
	for start := 0; start < len(keys); start += maxDeleteBatch {
		end := start + maxDeleteBatch
		if end > len(keys) {
			end = len(keys)
		}
		batch := keys[start:end]

		objects := make([]types.ObjectIdentifier, 0, len(batch))
		for _, key := range batch {
			objects = append(objects, types.ObjectIdentifier{Key: aws.String(key)})
		}

		out, err := s.client.DeleteObjects(ctx, &s3.DeleteObjectsInput{
			Bucket: aws.String(s.config.BucketName),
			Delete: &types.Delete{
				Objects: objects,
				Quiet:   aws.Bool(true),
			},
		})
		if err != nil {
			remaining = append(remaining, batch...)
			errs = multierr.Append(errs, fmt.Errorf("failed to delete chunks: %w", err))
			continue
		}
		for _, e := range out.Errors {
			remaining = append(remaining, aws.ToString(e.Key))
			errs = multierr.Append(errs, fmt.Errorf("%s: %s", aws.ToString(e.Code), aws.ToString(e.Message)))
		}
	}

	if len(remaining) > 0 {
		sort.Strings(remaining)
		return fail(&storage.DeleteError{FileID: fileID, Remaining: remaining, Err: errs})
	}

	s.log.WithFields(logrus.Fields{
		"file_id": fileID,
		"chunks":  len(keys),
	}).Info("deleted file chunks")
	return nil
}

// Locations lists the stored chunk keys of fileID in index order.
func (s *Store) Locations(ctx context.Context, fileID string) ([]string, error) {
	var keys []string
	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.config.BucketName),
		Prefix: aws.String(s.fileKeyPrefix(fileID)),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list chunks: %w", err)
		}
		for _, obj := range page.Contents {
			keys = append(keys, aws.ToString(obj.Key))
		}
	}
	sort.Strings(keys)
	return keys, nil
}

// GetConfig returns the store configuration
func (s *Store) GetConfig() storage.Config {
	return s.config
}

func (s *Store) owns(location string) bool {
	prefix := path.Clean(s.config.ChunkPrefix) + "/"
	if s.config.ChunkPrefix == "" {
		prefix = ""
	}
	rest, ok := strings.CutPrefix(location, prefix)
	if !ok {
		return false
	}
	fileID, name, ok := strings.Cut(rest, "/")
	return ok && storage.ValidateFileID(fileID) == nil && strings.HasPrefix(name, "chunk_") && !strings.Contains(name, "/")
}

var _ storage.Store = (*Store)(nil)
