package main

import (
	"context"
	"encoding/json"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"

	"chunkvault/internal/core/domain"
	"chunkvault/internal/encryption/service"
)

type app struct {
	svc       service.Service
	chunkSize int
	log       *logrus.Logger
}

func (a *app) ingest(ctx context.Context, path, manifest string) error {
	input, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open input file: %w", err)
	}
	defer input.Close()

	start := time.Now()
	out, err := a.svc.Ingest(ctx, domain.IngestInput{
		Reader:    input,
		ChunkSize: a.chunkSize,
	})
	if err != nil {
		return err
	}

	record := domain.FileRecord{
		ID:           out.FileID,
		OriginalName: filepath.Base(path),
		ContentType:  mime.TypeByExtension(filepath.Ext(path)),
		Size:         out.Size,
		ChunkSize:    a.chunkSize,
		Chunks:       out.Refs,
		CreatedAt:    time.Now().UTC(),
	}
	if err := writeManifest(manifest, record); err != nil {
		// chunks without a record are unreachable
		if purgeErr := a.svc.Purge(context.WithoutCancel(ctx), out.FileID); purgeErr != nil {
			a.log.WithError(purgeErr).WithField("file_id", out.FileID).Error("failed to remove orphaned chunks")
		}
		return err
	}

	a.log.WithFields(logrus.Fields{
		"file_id":  record.ID,
		"chunks":   len(record.Chunks),
		"bytes":    record.Size,
		"manifest": manifest,
		"elapsed":  time.Since(start).Round(time.Millisecond),
	}).Info("file ingested")
	return nil
}

func (a *app) retrieve(ctx context.Context, manifest, outPath string) error {
	record, err := readManifest(manifest)
	if err != nil {
		return err
	}
	if err := service.VerifyRefs(record.Chunks, record.Size); err != nil {
		return fmt.Errorf("manifest %s is inconsistent: %w", manifest, err)
	}

	stream, err := a.svc.Retrieve(ctx, domain.RetrieveInput{Refs: record.Chunks})
	if err != nil {
		return err
	}
	defer stream.Close()

	output, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}

	n, err := stream.WriteTo(output)
	if closeErr := output.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(outPath)
		return err
	}

	a.log.WithFields(logrus.Fields{
		"file_id": record.ID,
		"bytes":   n,
		"output":  outPath,
	}).Info("file retrieved")
	return nil
}

func (a *app) purge(ctx context.Context, manifest string) error {
	record, err := readManifest(manifest)
	if err != nil {
		return err
	}
	// the manifest stays until every chunk is gone so a retry can find them
	if err := a.svc.Purge(ctx, record.ID); err != nil {
		return err
	}
	if err := os.Remove(manifest); err != nil {
		return fmt.Errorf("failed to remove manifest: %w", err)
	}
	return nil
}

func (a *app) upgrade(ctx context.Context, manifest string) error {
	record, err := readManifest(manifest)
	if err != nil {
		return err
	}

	out, upgradeErr := a.svc.Upgrade(ctx, domain.RetrieveInput{Refs: record.Chunks})
	if out != nil {
		record.Chunks = out.Refs
		if err := writeManifest(manifest, record); err != nil {
			return err
		}
		a.log.WithFields(logrus.Fields{
			"file_id":  record.ID,
			"upgraded": out.Upgraded,
		}).Info("manifest updated")
	}
	return upgradeErr
}

func readManifest(path string) (domain.FileRecord, error) {
	var record domain.FileRecord
	data, err := os.ReadFile(path)
	if err != nil {
		return record, fmt.Errorf("failed to read manifest: %w", err)
	}
	if err := json.Unmarshal(data, &record); err != nil {
		return record, fmt.Errorf("failed to parse manifest %s: %w", path, err)
	}
	return record, nil
}

// writeManifest replaces the manifest at path atomically.
func writeManifest(path string, record domain.FileRecord) error {
	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode manifest: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return fmt.Errorf("failed to write manifest: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to write manifest: %w", err)
	}
	return nil
}
