// Package fs stores chunks as files in a directory per file id:
// <root>/<fileID>/chunk_<index>.enc
package fs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"chunkvault/internal/core/domain"
	"chunkvault/internal/storage"
)

const defaultDeleteWorkers = 8

type Store struct {
	root          string
	log           *logrus.Logger
	deleteWorkers int
}

func New(root string, logger *logrus.Logger) (*Store, error) {
	if root == "" {
		return nil, fmt.Errorf("storage root is empty")
	}
	if logger == nil {
		logger = logrus.New()
	}
	if err := os.MkdirAll(root, 0700); err != nil {
		return nil, fmt.Errorf("failed to create storage root %s: %w", root, err)
	}
	return &Store{
		root:          root,
		log:           logger,
		deleteWorkers: defaultDeleteWorkers,
	}, nil
}

func (s *Store) Root() string {
	return s.root
}

func (s *Store) Put(ctx context.Context, fileID string, index int, data []byte) (string, error) {
	fail := func(err error) (string, error) {
		return "", &domain.StoreError{Op: "put", FileID: fileID, Index: index, Err: err}
	}
	if err := ctx.Err(); err != nil {
		return fail(err)
	}
	if err := storage.ValidateFileID(fileID); err != nil {
		return fail(err)
	}
	if index < 0 {
		return fail(fmt.Errorf("negative chunk index %d", index))
	}

	dir := filepath.Join(s.root, fileID)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fail(fmt.Errorf("failed to create chunk directory: %w", err))
	}

	name := storage.ChunkName(index)
	if err := writeFileAtomic(dir, name, data); err != nil {
		return fail(err)
	}

	location := fileID + "/" + name
	s.log.WithFields(logrus.Fields{
		"file_id":     fileID,
		"chunk_index": index,
		"bytes":       len(data),
	}).Debug("stored chunk")
	return location, nil
}

func writeFileAtomic(dir, name string, data []byte) (err error) {
	tmp, err := os.CreateTemp(dir, name+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		return fmt.Errorf("failed to write chunk: %w", err)
	}
	if err = tmp.Sync(); err != nil {
		return fmt.Errorf("failed to sync chunk: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("failed to close chunk: %w", err)
	}
	if err = os.Rename(tmp.Name(), filepath.Join(dir, name)); err != nil {
		return fmt.Errorf("failed to rename chunk: %w", err)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, location string) ([]byte, error) {
	fail := func(err error) ([]byte, error) {
		return nil, &domain.StoreError{Op: "get", Location: location, Err: err}
	}
	if err := ctx.Err(); err != nil {
		return fail(err)
	}
	path, err := s.resolve(location)
	if err != nil {
		return fail(err)
	}

	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return fail(storage.ErrNotFound)
	}
	if err != nil {
		return fail(err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return fail(fmt.Errorf("failed to read chunk: %w", err))
	}
	return data, nil
}

// Delete removes a single chunk. A missing chunk is not an error.
func (s *Store) Delete(ctx context.Context, location string) error {
	path, err := s.resolve(location)
	if err != nil {
		return &domain.StoreError{Op: "delete", Location: location, Err: err}
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return &domain.StoreError{Op: "delete", Location: location, Err: err}
	}
	return nil
}

// DeleteAll removes every chunk of fileID, then its directory. It removes
// everything it can; chunks that could not be removed are listed in the
// returned *storage.DeleteError. A file with no chunks is not an error.
func (s *Store) DeleteAll(ctx context.Context, fileID string) error {
	if err := storage.ValidateFileID(fileID); err != nil {
		return &domain.StoreError{Op: "delete_all", FileID: fileID, Index: -1, Err: err}
	}

	dir := filepath.Join(s.root, fileID)
	entries, err := os.ReadDir(dir)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return &domain.StoreError{Op: "delete_all", FileID: fileID, Index: -1, Err: err}
	}

	var (
		mu        sync.Mutex
		remaining []string
		errs      error
		g         errgroup.Group
	)
	g.SetLimit(s.deleteWorkers)
	for _, entry := range entries {
		name := entry.Name()
		g.Go(func() error {
			if err := os.Remove(filepath.Join(dir, name)); err != nil && !errors.Is(err, os.ErrNotExist) {
				mu.Lock()
				remaining = append(remaining, fileID+"/"+name)
				errs = multierr.Append(errs, err)
				mu.Unlock()
			}
			return nil
		})
	}
	g.Wait()

	if len(remaining) > 0 {
		sort.Strings(remaining)
		return &domain.StoreError{Op: "delete_all", FileID: fileID, Index: -1, Err: &storage.DeleteError{
			FileID:    fileID,
			Remaining: remaining,
			Err:       errs,
		}}
	}

	if err := os.Remove(dir); err != nil && !errors.Is(err, os.ErrNotExist) {
		return &domain.StoreError{Op: "delete_all", FileID: fileID, Index: -1, Err: err}
	}

	s.log.WithFields(logrus.Fields{
		"file_id": fileID,
		"chunks":  len(entries),
	}).Info("deleted file chunks")
	return nil
}

// Locations lists the stored chunk locations of fileID in index order.
func (s *Store) Locations(ctx context.Context, fileID string) ([]string, error) {
	if err := storage.ValidateFileID(fileID); err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(filepath.Join(s.root, fileID))
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var locations []string
	for _, entry := range entries {
		if isChunkName(entry.Name()) {
			locations = append(locations, fileID+"/"+entry.Name())
		}
	}
	return locations, nil
}

func (s *Store) resolve(location string) (string, error) {
	fileID, name, ok := strings.Cut(location, "/")
	if !ok || storage.ValidateFileID(fileID) != nil || !isChunkName(name) {
		return "", fmt.Errorf("%w: %q", storage.ErrInvalidLocation, location)
	}
	return filepath.Join(s.root, fileID, name), nil
}

func isChunkName(name string) bool {
	return strings.HasPrefix(name, "chunk_") && strings.HasSuffix(name, ".enc") && !strings.ContainsAny(name, `/\`)
}

var _ storage.Store = (*Store)(nil)
