package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// Memory keeps collections in process, preserving insertion order. It backs
// the "memory" driver for local runs and the handler tests.
type Memory struct {
	mu    sync.Mutex
	colls map[string][]Record
}

func NewMemory() *Memory {
	return &Memory{colls: map[string][]Record{}}
}

func (m *Memory) ListAll(_ context.Context, collection string) ([]Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	records := m.colls[collection]
	out := make([]Record, 0, len(records))
	for _, rec := range records {
		out = append(out, Record{ID: rec.ID, Doc: copyDoc(rec.Doc)})
	}
	return out, nil
}

func (m *Memory) Get(_ context.Context, collection, id string) (*Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, rec := range m.colls[collection] {
		if rec.ID == id {
			return &Record{ID: rec.ID, Doc: copyDoc(rec.Doc)}, nil
		}
	}
	return nil, ErrNotFound
}

func (m *Memory) Insert(_ context.Context, collection string, doc Document) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := uuid.NewString()
	m.colls[collection] = append(m.colls[collection], Record{ID: id, Doc: copyDoc(doc)})
	return id, nil
}

func (m *Memory) Update(_ context.Context, collection, id string, partial Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, rec := range m.colls[collection] {
		if rec.ID == id {
			for field, value := range partial {
				m.colls[collection][i].Doc[field] = value
			}
			return nil
		}
	}
	return ErrNotFound
}

func (m *Memory) Delete(_ context.Context, collection, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	records := m.colls[collection]
	for i, rec := range records {
		if rec.ID == id {
			m.colls[collection] = append(records[:i], records[i+1:]...)
			return nil
		}
	}
	return ErrNotFound
}

func (m *Memory) FindOne(_ context.Context, collection, field, value string) (*Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, rec := range m.colls[collection] {
		if fmt.Sprint(rec.Doc[field]) == value {
			return &Record{ID: rec.ID, Doc: copyDoc(rec.Doc)}, nil
		}
	}
	return nil, ErrNotFound
}

func (m *Memory) Ping(context.Context) error { return nil }

func (m *Memory) Close() error { return nil }

func copyDoc(doc Document) Document {
	out := make(Document, len(doc))
	for field, value := range doc {
		out[field] = value
	}
	return out
}
