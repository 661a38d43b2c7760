package service

import (
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"

	"chunkvault/internal/core/domain"
	"chunkvault/internal/core/ports"
	"chunkvault/internal/encryption/codec"
	"chunkvault/internal/encryption/service/mocks"
)

var testSecret = []byte("correct horse battery staple")

func newTestService(c ports.ChunkCodec, s ports.ChunkStore, chunkSize int) (*EncryptionService, *test.Hook) {
	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	return NewService(c, s, Config{ChunkSize: chunkSize, Logger: logger}), hook
}

func newMockService(chunkSize int) (*EncryptionService, *mocks.MockStore) {
	store := mocks.NewMockStore()
	svc, _ := newTestService(codec.New(), store, chunkSize)
	return svc, store
}

func payload(n int) []byte {
	data := make([]byte, n)
	for i := range data {
		data[i] = byte(i*7 + i/251)
	}
	return data
}

func ingest(t *testing.T, svc *EncryptionService, data []byte) *domain.IngestOutput {
	t.Helper()
	out, err := svc.Ingest(context.Background(), domain.IngestInput{
		Reader: bytes.NewReader(data),
		Secret: testSecret,
	})
	require.NoError(t, err)
	return out
}

func retrieveAll(t *testing.T, svc *EncryptionService, refs []domain.ChunkReference, secret []byte) []byte {
	t.Helper()
	stream, err := svc.Retrieve(context.Background(), domain.RetrieveInput{Refs: refs, Secret: secret})
	require.NoError(t, err)
	defer stream.Close()

	got, err := io.ReadAll(stream)
	require.NoError(t, err)
	return got
}
