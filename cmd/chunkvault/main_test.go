package main

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chunkvault/internal/config"
	"chunkvault/internal/core/domain"
)

func testConfig(t *testing.T, backend string) config.Config {
	return config.Config{
		ChunkSize:   1000,
		StorageRoot: filepath.Join(t.TempDir(), "chunks"),
		Secret:      "cli secret",
		Backend:     backend,
		LogLevel:    "debug",
	}
}

func TestRun_Lifecycle(t *testing.T) {
	for _, backend := range []string{config.BackendFS, config.BackendBadger} {
		t.Run(backend, func(t *testing.T) {
			cfg := testConfig(t, backend)
			logger, _ := test.NewNullLogger()
			ctx := context.Background()
			dir := t.TempDir()

			input := filepath.Join(dir, "clip.png")
			data := make([]byte, 4321)
			for i := range data {
				data[i] = byte(i % 199)
			}
			require.NoError(t, os.WriteFile(input, data, 0644))

			require.NoError(t, run(ctx, cfg, logger, []string{"ingest", input}))
			manifest := input + ".manifest.json"
			record, err := readManifest(manifest)
			require.NoError(t, err)
			assert.Equal(t, "clip.png", record.OriginalName)
			assert.Equal(t, "image/png", record.ContentType)
			assert.Equal(t, int64(4321), record.Size)
			assert.Len(t, record.Chunks, 5)

			output := filepath.Join(dir, "out.png")
			require.NoError(t, run(ctx, cfg, logger, []string{"retrieve", manifest, output}))
			got, err := os.ReadFile(output)
			require.NoError(t, err)
			assert.Equal(t, data, got)

			require.NoError(t, run(ctx, cfg, logger, []string{"upgrade", manifest}))

			require.NoError(t, run(ctx, cfg, logger, []string{"purge", manifest}))
			assert.NoFileExists(t, manifest)
		})
	}
}

func TestRun_InconsistentManifest(t *testing.T) {
	cfg := testConfig(t, config.BackendFS)
	logger, _ := test.NewNullLogger()
	dir := t.TempDir()

	manifest := filepath.Join(dir, "m.json")
	require.NoError(t, writeManifest(manifest, domain.FileRecord{
		ID:   "file-1",
		Size: 10,
		Chunks: []domain.ChunkReference{
			{FileID: "file-1", Index: 1, Location: "file-1/chunk_00000001.enc", Size: 10},
		},
	}))

	output := filepath.Join(dir, "out")
	err := run(context.Background(), cfg, logger, []string{"retrieve", manifest, output})
	assert.Error(t, err)
	assert.NoFileExists(t, output)
}

func TestRun_Usage(t *testing.T) {
	cfg := testConfig(t, config.BackendFS)
	logger, _ := test.NewNullLogger()

	assert.Error(t, run(context.Background(), cfg, logger, nil))
	assert.Error(t, run(context.Background(), cfg, logger, []string{"retrieve", "only-one"}))
	assert.Error(t, run(context.Background(), cfg, logger, []string{"shred", "x"}))
}

type fakeSTS struct {
	out *sts.GetCallerIdentityOutput
	err error
}

func (f fakeSTS) GetCallerIdentity(ctx context.Context, params *sts.GetCallerIdentityInput, optFns ...func(*sts.Options)) (*sts.GetCallerIdentityOutput, error) {
	return f.out, f.err
}

func TestLogCallerIdentity(t *testing.T) {
	logger, hook := test.NewNullLogger()

	logCallerIdentity(context.Background(), fakeSTS{out: &sts.GetCallerIdentityOutput{
		Account: aws.String("123456789012"),
		Arn:     aws.String("arn:aws:iam::123456789012:user/ops"),
	}}, logger)
	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, logrus.InfoLevel, hook.LastEntry().Level)
	assert.Equal(t, "123456789012", hook.LastEntry().Data["account"])

	logCallerIdentity(context.Background(), fakeSTS{err: errors.New("no credentials")}, logger)
	assert.Equal(t, logrus.WarnLevel, hook.LastEntry().Level)
}
