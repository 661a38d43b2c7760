package mocks

import (
	"context"
	"sort"
	"strings"
	"sync"

	"chunkvault/internal/core/domain"
	"chunkvault/internal/storage"
)

// MockStore is an in-memory chunk store. Each Func field, when set, runs
// before the default behavior; a non-nil error from it is returned instead.
type MockStore struct {
	PutFunc       func(fileID string, index int) error
	GetFunc       func(location string) error
	DeleteFunc    func(location string) error
	DeleteAllFunc func(fileID string) error

	mu      sync.Mutex
	blobs   map[string][]byte
	Puts    []string
	Gets    []string
	Deletes []string
}

func NewMockStore() *MockStore {
	return &MockStore{blobs: map[string][]byte{}}
}

func location(fileID string, index int) string {
	return fileID + "/" + storage.ChunkName(index)
}

func (m *MockStore) Put(ctx context.Context, fileID string, index int, data []byte) (string, error) {
	if m.PutFunc != nil {
		if err := m.PutFunc(fileID, index); err != nil {
			return "", &domain.StoreError{Op: "put", FileID: fileID, Index: index, Err: err}
		}
	}
	if err := ctx.Err(); err != nil {
		return "", &domain.StoreError{Op: "put", FileID: fileID, Index: index, Err: err}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	loc := location(fileID, index)
	m.blobs[loc] = append([]byte(nil), data...)
	m.Puts = append(m.Puts, loc)
	return loc, nil
}

func (m *MockStore) Get(ctx context.Context, loc string) ([]byte, error) {
	if m.GetFunc != nil {
		if err := m.GetFunc(loc); err != nil {
			return nil, &domain.StoreError{Op: "get", Location: loc, Err: err}
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, &domain.StoreError{Op: "get", Location: loc, Err: err}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.Gets = append(m.Gets, loc)
	data, ok := m.blobs[loc]
	if !ok {
		return nil, &domain.StoreError{Op: "get", Location: loc, Err: storage.ErrNotFound}
	}
	return append([]byte(nil), data...), nil
}

func (m *MockStore) Delete(ctx context.Context, loc string) error {
	if m.DeleteFunc != nil {
		if err := m.DeleteFunc(loc); err != nil {
			return &domain.StoreError{Op: "delete", Location: loc, Err: err}
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.Deletes = append(m.Deletes, loc)
	delete(m.blobs, loc)
	return nil
}

func (m *MockStore) DeleteAll(ctx context.Context, fileID string) error {
	if m.DeleteAllFunc != nil {
		if err := m.DeleteAllFunc(fileID); err != nil {
			remaining := m.Locations(fileID)
			return &domain.StoreError{Op: "delete_all", FileID: fileID, Index: -1, Err: &storage.DeleteError{
				FileID:    fileID,
				Remaining: remaining,
				Err:       err,
			}}
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for loc := range m.blobs {
		if strings.HasPrefix(loc, fileID+"/") {
			delete(m.blobs, loc)
		}
	}
	return nil
}

// Set stores raw bytes at the location Put would use, bypassing Put.
func (m *MockStore) Set(fileID string, index int, data []byte) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	loc := location(fileID, index)
	m.blobs[loc] = data
	return loc
}

// Locations lists the stored locations of fileID in index order.
func (m *MockStore) Locations(fileID string) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var locs []string
	for loc := range m.blobs {
		if strings.HasPrefix(loc, fileID+"/") {
			locs = append(locs, loc)
		}
	}
	sort.Strings(locs)
	return locs
}
