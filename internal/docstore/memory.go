package docstore

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"
	"sync"

	"github.com/google/uuid"
)

// Memory is an in-process Store used by tests. Documents go through a JSON
// round trip on write so value types match what the Postgres implementation
// hands back (numbers become float64, structs become maps).
type Memory struct {
	mu          sync.RWMutex
	collections map[string][]*memoryDoc
}

type memoryDoc struct {
	id   string
	data map[string]interface{}
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{collections: make(map[string][]*memoryDoc)}
}

// Get fetches one document by ID.
func (m *Memory) Get(ctx context.Context, collection, id string) (Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, d := range m.collections[collection] {
		if d.id == id {
			return Document{ID: id, Data: normalize(d.data)}, nil
		}
	}
	return Document{}, ErrNotFound
}

// Create inserts a new document under a generated ID and returns the ID.
func (m *Memory) Create(ctx context.Context, collection string, data map[string]interface{}) (string, error) {
	id := uuid.NewString()
	if err := m.Set(ctx, collection, id, data); err != nil {
		return "", err
	}
	return id, nil
}

// Set writes a document under an explicit ID, replacing any existing payload.
func (m *Memory) Set(ctx context.Context, collection, id string, data map[string]interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	payload := normalize(data)
	for _, d := range m.collections[collection] {
		if d.id == id {
			d.data = payload
			return nil
		}
	}
	m.collections[collection] = append(m.collections[collection], &memoryDoc{id: id, data: payload})
	return nil
}

// Update merges top-level fields into an existing document.
func (m *Memory) Update(ctx context.Context, collection, id string, fields map[string]interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, d := range m.collections[collection] {
		if d.id == id {
			for k, v := range normalize(fields) {
				d.data[k] = v
			}
			return nil
		}
	}
	return ErrNotFound
}

// Find lists documents matching all equality filters, in insertion order.
func (m *Memory) Find(ctx context.Context, collection string, filters ...Filter) ([]Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var docs []Document
	for _, d := range m.collections[collection] {
		if matches(d.data, filters) {
			docs = append(docs, Document{ID: d.id, Data: normalize(d.data)})
		}
	}
	return docs, nil
}

func matches(data map[string]interface{}, filters []Filter) bool {
	for _, f := range filters {
		got, ok := data[f.Field]
		if !ok || !reflect.DeepEqual(got, normalizeValue(f.Value)) {
			return false
		}
	}
	return true
}

func normalize(data map[string]interface{}) map[string]interface{} {
	b, err := json.Marshal(data)
	if err != nil {
		panic(fmt.Sprintf("docstore: unmarshalable document: %v", err))
	}
	var out map[string]interface{}
	if err := json.Unmarshal(b, &out); err != nil {
		panic(fmt.Sprintf("docstore: %v", err))
	}
	if out == nil {
		out = map[string]interface{}{}
	}
	return out
}

func normalizeValue(v interface{}) interface{} {
	b, err := json.Marshal(v)
	if err != nil {
		return v
	}
	var out interface{}
	if err := json.Unmarshal(b, &out); err != nil {
		return v
	}
	return out
}
