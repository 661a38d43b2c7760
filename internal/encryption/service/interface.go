package service

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"

	"chunkvault/internal/core/domain"
	"chunkvault/internal/core/ports"
	"chunkvault/internal/encryption/chunking"
	"chunkvault/internal/pkg/crypto/kdf"
)

var (
	ErrNoReader    = errors.New("input reader is nil")
	ErrOutOfOrder  = errors.New("chunk references out of order")
	ErrSizeChanged = errors.New("decrypted chunk size does not match recorded size")
	ErrClosed      = errors.New("stream closed")
)

type Service interface {
	Ingest(ctx context.Context, input domain.IngestInput) (*domain.IngestOutput, error)
	Retrieve(ctx context.Context, input domain.RetrieveInput) (*Stream, error)
	Purge(ctx context.Context, fileID string) error
	Upgrade(ctx context.Context, input domain.RetrieveInput) (*domain.UpgradeOutput, error)
}

// Config holds values the engine falls back to when a call leaves them unset.
type Config struct {
	ChunkSize     int
	DefaultSecret []byte
	Logger        *logrus.Logger
}

// EncryptionService is the chunking engine. It keeps no per-file state and is
// safe for concurrent use across file ids.
type EncryptionService struct {
	codec  ports.ChunkCodec
	store  ports.ChunkStore
	config Config
	log    *logrus.Logger
}

func NewService(codec ports.ChunkCodec, store ports.ChunkStore, config Config) *EncryptionService {
	if config.Logger == nil {
		config.Logger = logrus.New()
	}
	if config.ChunkSize == 0 {
		config.ChunkSize = chunking.DefaultChunkSize
	}
	return &EncryptionService{
		codec:  codec,
		store:  store,
		config: config,
		log:    config.Logger,
	}
}

// material derives the key for one operation. An empty secret falls back to
// the configured default.
func (s *EncryptionService) material(secret []byte) (kdf.Material, error) {
	if len(secret) == 0 {
		secret = s.config.DefaultSecret
	}
	return kdf.NewMaterial(secret)
}

var _ Service = (*EncryptionService)(nil)
