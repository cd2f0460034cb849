// Package docstore is the port onto the authoritative document database.
// The core only needs get-by-id, create, whole-document set, field-level
// merge, and filtered listing by equality predicates; sorting happens
// client-side.
package docstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// Collection names used by the storefront.
const (
	CollectionUsers      = "users"
	CollectionShops      = "shops"
	CollectionCategories = "categories"
	CollectionProducts   = "products"
	CollectionOrders     = "orders"
	CollectionStaff      = "staff"
)

// ErrNotFound is returned when a document does not exist.
var ErrNotFound = errors.New("docstore: document not found")

// Document is one stored record with its collection-scoped ID.
type Document struct {
	ID   string
	Data map[string]interface{}
}

// Filter is an equality predicate on one top-level field.
type Filter struct {
	Field string
	Value interface{}
}

// Eq builds an equality filter.
func Eq(field string, value interface{}) Filter {
	return Filter{Field: field, Value: value}
}

// Store is the document database contract. Implementations must treat Set as
// an upsert and Update as a shallow merge of top-level fields into an
// existing document.
type Store interface {
	Get(ctx context.Context, collection, id string) (Document, error)
	Create(ctx context.Context, collection string, data map[string]interface{}) (string, error)
	Set(ctx context.Context, collection, id string, data map[string]interface{}) error
	Update(ctx context.Context, collection, id string, fields map[string]interface{}) error
	Find(ctx context.Context, collection string, filters ...Filter) ([]Document, error)
}

// Decode unmarshals a document's data into a typed model and fills in the
// document ID when the target has an "id" field.
func Decode(doc Document, v interface{}) error {
	data := doc.Data
	if _, ok := data["id"]; !ok && doc.ID != "" {
		data = make(map[string]interface{}, len(doc.Data)+1)
		for k, val := range doc.Data {
			data[k] = val
		}
		data["id"] = doc.ID
	}
	b, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("encode document %s: %w", doc.ID, err)
	}
	if err := json.Unmarshal(b, v); err != nil {
		return fmt.Errorf("decode document %s: %w", doc.ID, err)
	}
	return nil
}

// Encode converts a typed model into a document payload. The "id" field is
// stripped because the ID lives outside the payload.
func Encode(v interface{}) (map[string]interface{}, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode model: %w", err)
	}
	var data map[string]interface{}
	if err := json.Unmarshal(b, &data); err != nil {
		return nil, fmt.Errorf("encode model: %w", err)
	}
	delete(data, "id")
	return data, nil
}
