// Package badger keeps chunks in an embedded badger key-value store under
// keys of the form chunk/<fileID>/<index>.
package badger

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dgraph-io/badger/v4"
	"github.com/sirupsen/logrus"

	"chunkvault/internal/core/domain"
	"chunkvault/internal/storage"
)

const keyPrefix = "chunk/"

type StoreConfig struct {
	Path     string // ignored when InMemory is set
	InMemory bool
	Logger   *logrus.Logger
}

type Store struct {
	db  *badger.DB
	log *logrus.Logger
}

func New(config StoreConfig) (*Store, error) {
	if config.Logger == nil {
		config.Logger = logrus.New()
	}
	if config.Path == "" && !config.InMemory {
		return nil, fmt.Errorf("badger path is empty")
	}

	opts := badger.DefaultOptions(config.Path)
	if config.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	}
	opts.Logger = nil
	opts.SyncWrites = true

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger store: %w", err)
	}

	return &Store{
		db:  db,
		log: config.Logger,
	}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func filePrefix(fileID string) []byte {
	return []byte(keyPrefix + fileID + "/")
}

func chunkKey(fileID string, index int) string {
	return fmt.Sprintf("%s%s/%08d", keyPrefix, fileID, index)
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

	key := chunkKey(fileID, index)
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), data)
	})
	if err != nil {
		return fail(err)
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
	if err := ctx.Err(); err != nil {
		return fail(err)
	}
	if !validLocation(location) {
		return fail(fmt.Errorf("%w: %q", storage.ErrInvalidLocation, location))
	}

	var data []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(location))
		if err != nil {
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return fail(storage.ErrNotFound)
	}
	if err != nil {
		return fail(err)
	}
	return data, nil
}

func (s *Store) Delete(ctx context.Context, location string) error {
	if !validLocation(location) {
		return &domain.StoreError{Op: "delete", Location: location, Err: fmt.Errorf("%w: %q", storage.ErrInvalidLocation, location)}
	}
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(location))
	})
	if err != nil {
		return &domain.StoreError{Op: "delete", Location: location, Err: err}
	}
	return nil
}

// DeleteAll removes every chunk of fileID in a single transaction, so either
// all of them go or none do.
func (s *Store) DeleteAll(ctx context.Context, fileID string) error {
	if err := storage.ValidateFileID(fileID); err != nil {
		return &domain.StoreError{Op: "delete_all", FileID: fileID, Index: -1, Err: err}
	}

	var keys []string
	err := s.db.Update(func(txn *badger.Txn) error {
		var err error
		keys, err = listKeys(txn, fileID)
		if err != nil {
			return err
		}
		for _, key := range keys {
			if err := txn.Delete([]byte(key)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return &domain.StoreError{Op: "delete_all", FileID: fileID, Index: -1, Err: &storage.DeleteError{
			FileID:    fileID,
			Remaining: keys,
			Err:       err,
		}}
	}

	if len(keys) > 0 {
		s.log.WithFields(logrus.Fields{
			"file_id": fileID,
			"chunks":  len(keys),
		}).Info("deleted file chunks")
	}
	return nil
}

// Locations lists the stored chunk locations of fileID in index order.
func (s *Store) Locations(ctx context.Context, fileID string) ([]string, error) {
	var keys []string
	err := s.db.View(func(txn *badger.Txn) error {
		var err error
		keys, err = listKeys(txn, fileID)
		return err
	})
	return keys, err
}

func listKeys(txn *badger.Txn, fileID string) ([]string, error) {
	prefix := filePrefix(fileID)
	opts := badger.DefaultIteratorOptions
	opts.PrefetchValues = false
	opts.Prefix = prefix

	it := txn.NewIterator(opts)
	defer it.Close()

	var keys []string
	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		keys = append(keys, string(it.Item().KeyCopy(nil)))
	}
	return keys, nil
}

func validLocation(location string) bool {
	rest, ok := strings.CutPrefix(location, keyPrefix)
	if !ok {
		return false
	}
	fileID, index, ok := strings.Cut(rest, "/")
	return ok && storage.ValidateFileID(fileID) == nil && index != "" && !strings.Contains(index, "/")
}

var _ storage.Store = (*Store)(nil)
