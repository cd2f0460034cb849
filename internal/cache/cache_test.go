package cache

import (
	"testing"
)

func TestUpsertUserRefreshesProfileOnly(t *testing.T) {
	c := New()
	c.UpsertUser(1, "ann", "Ann", "Lee")
	c.RecordShopVisit(1, "shop1")

	c.UpsertUser(1, "ann_renamed", "Ann", "Lee")

	u := c.GetUser(1)
	if u == nil {
		t.Fatal("expected cached user")
	}
	if u.Username != "ann_renamed" {
		t.Fatalf("expected refreshed username, got %q", u.Username)
	}
	if u.LastShopID != "shop1" {
		t.Fatalf("upsert must not clear navigation state, got %q", u.LastShopID)
	}
	if _, ok := u.Shops["shop1"]; !ok {
		t.Fatal("upsert must not clear shop visits")
	}
}

func TestGetUserAbsent(t *testing.T) {
	c := New()
	if u := c.GetUser(42); u != nil {
		t.Fatalf("expected nil for unknown user, got %+v", u)
	}
}

func TestRecordShopVisitIdempotent(t *testing.T) {
	c := New()
	c.UpsertUser(1, "ann", "Ann", "")

	c.RecordShopVisit(1, "shop1")
	first := c.GetUser(1)

	c.RecordShopVisit(1, "shop1")
	second := c.GetUser(1)

	if second.LastShopID != first.LastShopID {
		t.Fatalf("last shop changed: %q vs %q", first.LastShopID, second.LastShopID)
	}
	if len(second.Shops) != 1 {
		t.Fatalf("repeated visit grew the shop map: %d entries", len(second.Shops))
	}
	if second.Shops["shop1"].LastInteracted.Before(first.Shops["shop1"].LastInteracted) {
		t.Fatal("timestamp went backwards")
	}
}

func TestSessionScopedByFlowKind(t *testing.T) {
	c := New()
	c.SetSession(1, FlowAddCategory, "cat-draft")
	c.SetSession(1, FlowAddProduct, "prod-draft")

	if got := c.GetSession(1, FlowAddCategory); got != "cat-draft" {
		t.Fatalf("unexpected category session %v", got)
	}
	c.ClearSession(1, FlowAddCategory)
	if got := c.GetSession(1, FlowAddCategory); got != nil {
		t.Fatalf("category session should be cleared, got %v", got)
	}
	if got := c.GetSession(1, FlowAddProduct); got != "prod-draft" {
		t.Fatalf("clearing one flow must not touch the other, got %v", got)
	}
}

func TestClearAllSessions(t *testing.T) {
	c := New()
	c.SetSession(1, FlowAddCategory, "a")
	c.SetSession(1, FlowAddProduct, "b")
	c.ClearAllSessions(1)
	if c.GetSession(1, FlowAddCategory) != nil || c.GetSession(1, FlowAddProduct) != nil {
		t.Fatal("expected all sessions cleared")
	}
}

func TestGetUserReturnsSnapshot(t *testing.T) {
	c := New()
	c.UpsertUser(1, "ann", "Ann", "")
	c.RecordShopVisit(1, "shop1")

	u := c.GetUser(1)
	u.LastShopID = "tampered"
	delete(u.Shops, "shop1")

	fresh := c.GetUser(1)
	if fresh.LastShopID != "shop1" {
		t.Fatalf("snapshot mutation leaked into cache: %q", fresh.LastShopID)
	}
	if _, ok := fresh.Shops["shop1"]; !ok {
		t.Fatal("snapshot map mutation leaked into cache")
	}
}

func TestRestoreNavigationDoesNotOverwrite(t *testing.T) {
	c := New()
	c.UpsertUser(1, "ann", "Ann", "")
	c.RecordShopVisit(1, "shop2")

	c.RestoreNavigation(1, "shop1", nil)

	if got := c.GetUser(1).LastShopID; got != "shop2" {
		t.Fatalf("restore overwrote live state: %q", got)
	}
}
