package docstore

import (
	"context"
	"errors"
	"testing"
)

func TestMemoryGetAbsent(t *testing.T) {
	s := NewMemory()
	if _, err := s.Get(context.Background(), CollectionShops, "nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestMemorySetIsUpsert(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()

	if err := s.Set(ctx, CollectionShops, "shop1", map[string]interface{}{"name": "Cafe"}); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := s.Set(ctx, CollectionShops, "shop1", map[string]interface{}{"name": "Cafe Two"}); err != nil {
		t.Fatalf("set: %v", err)
	}

	doc, err := s.Get(ctx, CollectionShops, "shop1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if doc.Data["name"] != "Cafe Two" {
		t.Fatalf("expected replacement, got %v", doc.Data)
	}
}

func TestMemoryUpdateMergesTopLevelFields(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()
	s.Set(ctx, CollectionUsers, "1", map[string]interface{}{"first_name": "Ann", "last_shop_id": "shop1"})

	if err := s.Update(ctx, CollectionUsers, "1", map[string]interface{}{"first_name": "Anna"}); err != nil {
		t.Fatalf("update: %v", err)
	}

	doc, _ := s.Get(ctx, CollectionUsers, "1")
	if doc.Data["first_name"] != "Anna" {
		t.Fatalf("merge lost new value: %v", doc.Data)
	}
	if doc.Data["last_shop_id"] != "shop1" {
		t.Fatalf("merge dropped untouched field: %v", doc.Data)
	}

	if err := s.Update(ctx, CollectionUsers, "2", map[string]interface{}{"a": 1}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for absent doc, got %v", err)
	}
}

func TestMemoryFindEqualityFilters(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()
	s.Set(ctx, CollectionProducts, "p1", map[string]interface{}{"shop_id": "shop1", "category": "Drinks", "stock": 3})
	s.Set(ctx, CollectionProducts, "p2", map[string]interface{}{"shop_id": "shop1", "category": "Snacks", "stock": 0})
	s.Set(ctx, CollectionProducts, "p3", map[string]interface{}{"shop_id": "shop2", "category": "Drinks", "stock": 9})

	docs, err := s.Find(ctx, CollectionProducts, Eq("shop_id", "shop1"), Eq("category", "Drinks"))
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if len(docs) != 1 || docs[0].ID != "p1" {
		t.Fatalf("unexpected result %v", docs)
	}

	// Numeric filter values must compare after JSON normalization.
	docs, err = s.Find(ctx, CollectionProducts, Eq("stock", 0))
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if len(docs) != 1 || docs[0].ID != "p2" {
		t.Fatalf("unexpected numeric-filter result %v", docs)
	}
}

func TestMemoryCreateGeneratesDistinctIDs(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()
	a, err := s.Create(ctx, CollectionOrders, map[string]interface{}{"total": 1.5})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	b, err := s.Create(ctx, CollectionOrders, map[string]interface{}{"total": 2.5})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if a == "" || a == b {
		t.Fatalf("expected distinct non-empty IDs, got %q and %q", a, b)
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	type widget struct {
		ID    string  `json:"id"`
		Name  string  `json:"name"`
		Price float64 `json:"price"`
	}

	data, err := Encode(widget{ID: "ignored", Name: "Latte", Price: 4.5})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if _, ok := data["id"]; ok {
		t.Fatal("encode must strip the id field")
	}

	var out widget
	if err := Decode(Document{ID: "w1", Data: data}, &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.ID != "w1" {
		t.Fatalf("decode should fill the document ID, got %q", out.ID)
	}
	if out.Name != "Latte" || out.Price != 4.5 {
		t.Fatalf("round trip lost fields: %+v", out)
	}
}
