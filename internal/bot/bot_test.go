package bot

import (
	"context"
	"strings"
	"testing"

	"github.com/shoplinkhq/chatstore/internal/cache"
	"github.com/shoplinkhq/chatstore/internal/catalog"
	"github.com/shoplinkhq/chatstore/internal/chat"
	"github.com/shoplinkhq/chatstore/internal/docstore"
	"github.com/shoplinkhq/chatstore/internal/notify"
	"github.com/shoplinkhq/chatstore/internal/orders"
	"github.com/shoplinkhq/chatstore/internal/ownership"
)

type recordingSender struct {
	replies []chat.Reply
}

func (r *recordingSender) Send(ctx context.Context, reply chat.Reply) error {
	r.replies = append(r.replies, reply)
	return nil
}

func (r *recordingSender) last(t *testing.T) chat.Reply {
	t.Helper()
	if len(r.replies) == 0 {
		t.Fatal("no reply was sent")
	}
	return r.replies[len(r.replies)-1]
}

func (r *recordingSender) reset() {
	r.replies = nil
}

// newTestService wires the full stack over an in-memory store: one active
// shop ("shop1") owned by chat 42 via a staff assignment.
func newTestService(t *testing.T) (*Service, docstore.Store, *cache.UserCache, *recordingSender) {
	t.Helper()
	ctx := context.Background()
	store := docstore.NewMemory()

	if err := store.Set(ctx, docstore.CollectionShops, "shop1", map[string]interface{}{
		"name":      "Corner Cafe",
		"is_active": true,
	}); err != nil {
		t.Fatalf("seed shop: %v", err)
	}
	if _, err := store.Create(ctx, docstore.CollectionStaff, map[string]interface{}{
		"shop_id": "shop1",
		"role":    "owner",
		"chat_id": int64(42),
	}); err != nil {
		t.Fatalf("seed owner: %v", err)
	}

	userCache := cache.New()
	owners := ownership.NewChecker(store)
	if err := owners.Load(ctx); err != nil {
		t.Fatalf("load owners: %v", err)
	}
	sender := &recordingSender{}
	resolver := catalog.NewResolver(store, userCache)
	intake := orders.NewIntake(store, notify.NewChatNotifier(sender), nil)
	service := NewService(userCache, store, resolver, owners, intake, sender)
	return service, store, userCache, sender
}

func update(userID int64, username, firstName string) chat.Update {
	return chat.Update{
		UserID:    userID,
		ChatID:    userID,
		Username:  username,
		FirstName: firstName,
	}
}

func hasButton(reply chat.Reply, data string) bool {
	for _, row := range reply.Keyboard {
		for _, button := range row {
			if button.Data == data {
				return true
			}
		}
	}
	return false
}

func TestStartForNewUserShowsWelcomeAndPersistsProfile(t *testing.T) {
	ctx := context.Background()
	service, store, _, sender := newTestService(t)

	upd := update(7, "ann", "Ann")
	upd.Command = "start"
	service.HandleUpdate(ctx, upd)

	reply := sender.last(t)
	if !strings.Contains(reply.Text, "Welcome Ann") {
		t.Fatalf("expected welcome, got %q", reply.Text)
	}
	if !hasButton(reply, chat.EncodeToken(chat.ActionShop, "shop1")) {
		t.Fatalf("expected shop button, got %+v", reply.Keyboard)
	}

	doc, err := store.Get(ctx, docstore.CollectionUsers, "7")
	if err != nil {
		t.Fatalf("user doc not persisted: %v", err)
	}
	if doc.Data["username"] != "ann" {
		t.Fatalf("unexpected persisted user %v", doc.Data)
	}
}

func TestStartJumpsToLastVisitedShop(t *testing.T) {
	ctx := context.Background()
	service, _, _, sender := newTestService(t)

	upd := update(7, "ann", "Ann")
	upd.Command = "start"
	service.HandleUpdate(ctx, upd)

	visit := update(7, "ann", "Ann")
	visit.Callback = chat.EncodeToken(chat.ActionShop, "shop1")
	service.HandleUpdate(ctx, visit)

	sender.reset()
	service.HandleUpdate(ctx, upd)

	reply := sender.last(t)
	if !strings.Contains(reply.Text, "Corner Cafe") {
		t.Fatalf("expected shop menu for last visited shop, got %q", reply.Text)
	}
}

func TestShopMenuShowsAdminRowsOnlyToOwner(t *testing.T) {
	ctx := context.Background()
	service, _, _, sender := newTestService(t)

	visit := update(42, "boss", "Boss")
	visit.Callback = chat.EncodeToken(chat.ActionShop, "shop1")
	service.HandleUpdate(ctx, visit)

	reply := sender.last(t)
	if !hasButton(reply, chat.EncodeToken(chat.ActionAddCategory, "shop1")) {
		t.Fatal("owner menu missing the add-category button")
	}

	sender.reset()
	visit = update(7, "ann", "Ann")
	visit.Callback = chat.EncodeToken(chat.ActionShop, "shop1")
	service.HandleUpdate(ctx, visit)

	reply = sender.last(t)
	if hasButton(reply, chat.EncodeToken(chat.ActionAddCategory, "shop1")) {
		t.Fatal("visitor menu must not contain admin buttons")
	}
}

func TestCategoryFlowEndToEnd(t *testing.T) {
	ctx := context.Background()
	service, store, _, sender := newTestService(t)
	store.Set(ctx, docstore.CollectionCategories, "c0", map[string]interface{}{
		"shop_id": "shop1", "name": "Existing", "order": 0,
	})

	start := update(42, "boss", "Boss")
	start.Callback = chat.EncodeToken(chat.ActionAddCategory, "shop1")
	service.HandleUpdate(ctx, start)
	if !strings.Contains(sender.last(t).Text, "category name") {
		t.Fatalf("expected name prompt, got %q", sender.last(t).Text)
	}

	for _, text := range []string{"Drinks", "Cold and hot", "🍹"} {
		upd := update(42, "boss", "Boss")
		upd.Text = text
		service.HandleUpdate(ctx, upd)
	}

	reply := sender.last(t)
	if !strings.Contains(reply.Text, "Category Created Successfully") {
		t.Fatalf("expected success, got %q", reply.Text)
	}

	docs, err := store.Find(ctx, docstore.CollectionCategories, docstore.Eq("name", "Drinks"))
	if err != nil || len(docs) != 1 {
		t.Fatalf("category not persisted: err %v docs %d", err, len(docs))
	}
	data := docs[0].Data
	if data["description"] != "Cold and hot" || data["icon"] != "🍹" {
		t.Fatalf("unexpected category fields %v", data)
	}
	if data["order"] != float64(1) {
		t.Fatalf("new category should get the next display order, got %v", data["order"])
	}

	// The flow is done; free text falls through to the default hint.
	sender.reset()
	after := update(42, "boss", "Boss")
	after.Text = "anything"
	service.HandleUpdate(ctx, after)
	if !strings.Contains(sender.last(t).Text, "/start") {
		t.Fatalf("session should be cleared after commit, got %q", sender.last(t).Text)
	}
}

func TestCategoryFlowSkipButtonsUseDefaults(t *testing.T) {
	ctx := context.Background()
	service, store, _, sender := newTestService(t)

	start := update(42, "boss", "Boss")
	start.Callback = chat.EncodeToken(chat.ActionAddCategory, "shop1")
	service.HandleUpdate(ctx, start)

	name := update(42, "boss", "Boss")
	name.Text = "Snacks"
	service.HandleUpdate(ctx, name)

	skipDesc := update(42, "boss", "Boss")
	skipDesc.Callback = chat.EncodeToken(chat.ActionSkipDescription, "shop1", "category")
	service.HandleUpdate(ctx, skipDesc)

	skipIcon := update(42, "boss", "Boss")
	skipIcon.Callback = chat.EncodeToken(chat.ActionSkipIcon, "shop1")
	service.HandleUpdate(ctx, skipIcon)

	if !strings.Contains(sender.last(t).Text, "Category Created Successfully") {
		t.Fatalf("expected success, got %q", sender.last(t).Text)
	}
	docs, _ := store.Find(ctx, docstore.CollectionCategories, docstore.Eq("name", "Snacks"))
	if len(docs) != 1 {
		t.Fatalf("category not persisted, got %d docs", len(docs))
	}
	if docs[0].Data["icon"] != "📦" {
		t.Fatalf("skipped icon should default, got %v", docs[0].Data["icon"])
	}
	if desc, ok := docs[0].Data["description"]; ok && desc != "" {
		t.Fatalf("skipped description should stay empty, got %v", desc)
	}
}

func TestAddCategoryDeniedForNonOwner(t *testing.T) {
	ctx := context.Background()
	service, _, userCache, sender := newTestService(t)

	start := update(7, "ann", "Ann")
	start.Callback = chat.EncodeToken(chat.ActionAddCategory, "shop1")
	service.HandleUpdate(ctx, start)

	if !strings.Contains(sender.last(t).Text, "permission") {
		t.Fatalf("expected permission denial, got %q", sender.last(t).Text)
	}
	if userCache.GetSession(7, cache.FlowAddCategory) != nil {
		t.Fatal("denied request must not open a session")
	}
}

func TestProductFlowEndToEnd(t *testing.T) {
	ctx := context.Background()
	service, store, _, sender := newTestService(t)
	store.Set(ctx, docstore.CollectionCategories, "cat1", map[string]interface{}{
		"shop_id": "shop1", "name": "Drinks", "order": 0,
	})

	start := update(42, "boss", "Boss")
	start.Callback = chat.EncodeToken(chat.ActionAddProductToCategory, "shop1", "cat1")
	service.HandleUpdate(ctx, start)
	if !strings.Contains(sender.last(t).Text, "Add Product to Drinks") {
		t.Fatalf("expected product name prompt, got %q", sender.last(t).Text)
	}

	for _, text := range []string{"Latte", "Hot coffee", "4.50", "20"} {
		upd := update(42, "boss", "Boss")
		upd.Text = text
		service.HandleUpdate(ctx, upd)
	}

	if !strings.Contains(sender.last(t).Text, "Product Created Successfully") {
		t.Fatalf("expected success, got %q", sender.last(t).Text)
	}

	docs, err := store.Find(ctx, docstore.CollectionProducts, docstore.Eq("name", "Latte"))
	if err != nil || len(docs) != 1 {
		t.Fatalf("product not persisted: err %v docs %d", err, len(docs))
	}
	data := docs[0].Data
	if data["category"] != "Drinks" {
		t.Fatalf("product should link to the category by name, got %v", data["category"])
	}
	if data["price"] != 4.5 || data["stock"] != float64(20) {
		t.Fatalf("unexpected price/stock %v", data)
	}
	if data["is_active"] != true {
		t.Fatalf("new product should be active, got %v", data["is_active"])
	}
}

func TestProductFlowInvalidPriceReprompts(t *testing.T) {
	ctx := context.Background()
	service, store, _, sender := newTestService(t)
	store.Set(ctx, docstore.CollectionCategories, "cat1", map[string]interface{}{
		"shop_id": "shop1", "name": "Drinks", "order": 0,
	})

	start := update(42, "boss", "Boss")
	start.Callback = chat.EncodeToken(chat.ActionAddProductToCategory, "shop1", "cat1")
	service.HandleUpdate(ctx, start)

	for _, text := range []string{"Latte", "skip", "not-a-price"} {
		upd := update(42, "boss", "Boss")
		upd.Text = text
		service.HandleUpdate(ctx, upd)
	}
	if !strings.Contains(sender.last(t).Text, "Invalid price") {
		t.Fatalf("expected price re-prompt, got %q", sender.last(t).Text)
	}

	// The draft is still alive at the price step; a valid value proceeds.
	for _, text := range []string{"4.50", "20"} {
		upd := update(42, "boss", "Boss")
		upd.Text = text
		service.HandleUpdate(ctx, upd)
	}
	if !strings.Contains(sender.last(t).Text, "Product Created Successfully") {
		t.Fatalf("flow did not recover from invalid price: %q", sender.last(t).Text)
	}
}

func TestShopMenuNavigationAbandonsFlows(t *testing.T) {
	ctx := context.Background()
	service, _, userCache, sender := newTestService(t)

	start := update(42, "boss", "Boss")
	start.Callback = chat.EncodeToken(chat.ActionAddCategory, "shop1")
	service.HandleUpdate(ctx, start)
	if userCache.GetSession(42, cache.FlowAddCategory) == nil {
		t.Fatal("flow session should exist")
	}

	back := update(42, "boss", "Boss")
	back.Callback = chat.EncodeToken(chat.ActionShop, "shop1")
	service.HandleUpdate(ctx, back)

	if userCache.GetSession(42, cache.FlowAddCategory) != nil {
		t.Fatal("entering the shop menu must abandon in-flight flows")
	}

	sender.reset()
	text := update(42, "boss", "Boss")
	text.Text = "Drinks"
	service.HandleUpdate(ctx, text)
	if !strings.Contains(sender.last(t).Text, "/start") {
		t.Fatalf("text after cancel should hit the default hint, got %q", sender.last(t).Text)
	}
}

func TestOrderCallbackConfirmsAndNotifiesCashier(t *testing.T) {
	ctx := context.Background()
	service, store, _, sender := newTestService(t)
	store.Set(ctx, docstore.CollectionProducts, "p1", map[string]interface{}{
		"shop_id": "shop1", "category": "Drinks", "name": "Latte",
		"price": 4.5, "stock": 3, "is_active": true,
	})
	store.Create(ctx, docstore.CollectionStaff, map[string]interface{}{
		"shop_id": "shop1", "role": "cashier", "chat_id": int64(900),
	})

	upd := update(7, "ann", "Ann")
	upd.Callback = chat.EncodeToken(chat.ActionOrder, "shop1", "p1")
	service.HandleUpdate(ctx, upd)

	var customerReply, cashierReply *chat.Reply
	for i := range sender.replies {
		switch sender.replies[i].ChatID {
		case 7:
			customerReply = &sender.replies[i]
		case 900:
			cashierReply = &sender.replies[i]
		}
	}
	if customerReply == nil || !strings.Contains(customerReply.Text, "Order Request Sent") {
		t.Fatalf("missing customer confirmation in %+v", sender.replies)
	}
	if cashierReply == nil || !strings.Contains(cashierReply.Text, "Latte") {
		t.Fatalf("missing cashier notification in %+v", sender.replies)
	}

	docs, _ := store.Find(ctx, docstore.CollectionOrders, docstore.Eq("shop_id", "shop1"))
	if len(docs) != 1 {
		t.Fatalf("expected one persisted order, got %d", len(docs))
	}
}

func TestOrderCallbackForOutOfStockProduct(t *testing.T) {
	ctx := context.Background()
	service, store, _, sender := newTestService(t)
	store.Set(ctx, docstore.CollectionProducts, "p1", map[string]interface{}{
		"shop_id": "shop1", "category": "Drinks", "name": "Latte",
		"price": 4.5, "stock": 0, "is_active": true,
	})

	upd := update(7, "ann", "Ann")
	upd.Callback = chat.EncodeToken(chat.ActionOrder, "shop1", "p1")
	service.HandleUpdate(ctx, upd)

	if !strings.Contains(sender.last(t).Text, "unavailable") {
		t.Fatalf("expected unavailable message, got %q", sender.last(t).Text)
	}
	docs, _ := store.Find(ctx, docstore.CollectionOrders, docstore.Eq("shop_id", "shop1"))
	if len(docs) != 0 {
		t.Fatalf("no order should be written, got %d", len(docs))
	}
}

func TestUnknownCallbackActionRepliesWithError(t *testing.T) {
	ctx := context.Background()
	service, _, _, sender := newTestService(t)

	upd := update(7, "ann", "Ann")
	upd.Callback = "warp:shop1"
	service.HandleUpdate(ctx, upd)

	if !strings.Contains(sender.last(t).Text, "Error processing request") {
		t.Fatalf("expected generic error, got %q", sender.last(t).Text)
	}
}

func TestShopStatsGatedToOwner(t *testing.T) {
	ctx := context.Background()
	service, store, _, sender := newTestService(t)
	store.Set(ctx, docstore.CollectionCategories, "c1", map[string]interface{}{
		"shop_id": "shop1", "name": "Drinks", "order": 0,
	})
	store.Set(ctx, docstore.CollectionProducts, "p1", map[string]interface{}{
		"shop_id": "shop1", "category": "Drinks", "name": "Latte",
		"price": 4.5, "stock": 3, "is_active": true,
	})

	upd := update(42, "boss", "Boss")
	upd.Callback = chat.EncodeToken(chat.ActionStats, "shop1")
	service.HandleUpdate(ctx, upd)

	reply := sender.last(t)
	if !strings.Contains(reply.Text, "Categories: 1") || !strings.Contains(reply.Text, "Products: 1") {
		t.Fatalf("unexpected stats %q", reply.Text)
	}

	sender.reset()
	upd = update(7, "ann", "Ann")
	upd.Callback = chat.EncodeToken(chat.ActionStats, "shop1")
	service.HandleUpdate(ctx, upd)
	if !strings.Contains(sender.last(t).Text, "permission") {
		t.Fatalf("expected denial for non-owner, got %q", sender.last(t).Text)
	}
}
