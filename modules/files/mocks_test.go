package files_test

import (
	"bytes"
	"context"
	"io"
	"slices"
	"sync"

	"github.com/google/uuid"

	"github.com/dmitrymomot/storekeep/modules/files"
	"github.com/dmitrymomot/storekeep/pkg/objstore"
)

type mockCatalog struct {
	mu         sync.Mutex
	records    map[uuid.UUID]*files.FileRecord
	failCreate error
}

func newMockCatalog() *mockCatalog {
	return &mockCatalog{records: make(map[uuid.UUID]*files.FileRecord)}
}

func (m *mockCatalog) Create(ctx context.Context, record *files.FileRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failCreate != nil {
		return m.failCreate
	}
	r := *record
	r.SharedWith = slices.Clone(record.SharedWith)
	m.records[record.ID] = &r
	return nil
}

func (m *mockCatalog) GetByID(ctx context.Context, id uuid.UUID) (*files.FileRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	record, ok := m.records[id]
	if !ok {
		return nil, files.ErrFileNotFound
	}
	r := *record
	r.SharedWith = slices.Clone(record.SharedWith)
	return &r, nil
}

func (m *mockCatalog) FindByOwner(ctx context.Context, ownerID uuid.UUID, kind files.Kind) ([]files.FileRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []files.FileRecord{}
	for _, record := range m.records {
		if record.OwnerID == ownerID && (kind == "" || record.Kind == kind) {
			out = append(out, *record)
		}
	}
	return out, nil
}

func (m *mockCatalog) FindSharedWith(ctx context.Context, email string, kind files.Kind) ([]files.FileRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []files.FileRecord{}
	for _, record := range m.records {
		if record.SharedWithEmail(email) && (kind == "" || record.Kind == kind) {
			out = append(out, *record)
		}
	}
	return out, nil
}

func (m *mockCatalog) Rename(ctx context.Context, id, ownerID uuid.UUID, newName string) (*files.FileRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	record, ok := m.records[id]
	if !ok || record.OwnerID != ownerID {
		return nil, files.ErrFileNotFound
	}
	record.Name = newName
	r := *record
	return &r, nil
}

func (m *mockCatalog) UpdateShareList(ctx context.Context, id, ownerID uuid.UUID, add, remove []string) (*files.FileRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	record, ok := m.records[id]
	if !ok || record.OwnerID != ownerID {
		return nil, files.ErrFileNotFound
	}
	for _, email := range add {
		if !record.SharedWithEmail(email) {
			record.SharedWith = append(record.SharedWith, email)
		}
	}
	record.SharedWith = slices.DeleteFunc(record.SharedWith, func(e string) bool {
		return slices.Contains(remove, e)
	})
	r := *record
	r.SharedWith = slices.Clone(record.SharedWith)
	return &r, nil
}

func (m *mockCatalog) Delete(ctx context.Context, id, ownerID uuid.UUID) (*files.FileRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	record, ok := m.records[id]
	if !ok || record.OwnerID != ownerID {
		return nil, files.ErrFileNotFound
	}
	delete(m.records, id)
	return record, nil
}

type mockStore struct {
	mu          sync.Mutex
	objects     map[string][]byte
	putCalls    int
	failPut     error
	failDeletes int // fail this many Delete calls before succeeding
}

func newMockStore() *mockStore {
	return &mockStore{objects: make(map[string][]byte)}
}

func (m *mockStore) Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.putCalls++
	if m.failPut != nil {
		return m.failPut
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	m.objects[key] = data
	return nil
}

func (m *mockStore) Get(ctx context.Context, key string) (io.ReadCloser, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.objects[key]
	if !ok {
		return nil, 0, objstore.ErrObjectNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), int64(len(data)), nil
}

func (m *mockStore) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failDeletes > 0 {
		m.failDeletes--
		return objstore.ErrServiceUnavailable
	}
	if _, ok := m.objects[key]; !ok {
		return objstore.ErrObjectNotFound
	}
	delete(m.objects, key)
	return nil
}

func (m *mockStore) Exists(ctx context.Context, key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.objects[key]
	return ok
}

func (m *mockStore) objectCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.objects)
}
