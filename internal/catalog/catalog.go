// Package catalog resolves the storefront's navigation views: shops,
// ordered categories, and available products.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/shoplinkhq/chatstore/internal/cache"
	"github.com/shoplinkhq/chatstore/internal/docstore"
	"github.com/shoplinkhq/chatstore/internal/models"
)

// Resolver assembles menu views from the document store and keeps the user
// cache's shop-visit state in sync with it.
type Resolver struct {
	store docstore.Store
	cache *cache.UserCache
}

// NewResolver creates a resolver over the given store and cache.
func NewResolver(store docstore.Store, userCache *cache.UserCache) *Resolver {
	return &Resolver{store: store, cache: userCache}
}

// ListActiveShops lists shops flagged active, in store order.
func (r *Resolver) ListActiveShops(ctx context.Context) ([]models.Shop, error) {
	docs, err := r.store.Find(ctx, docstore.CollectionShops, docstore.Eq("is_active", true))
	if err != nil {
		return nil, fmt.Errorf("failed to list shops: %w", err)
	}
	shops := make([]models.Shop, 0, len(docs))
	for _, doc := range docs {
		var shop models.Shop
		if err := docstore.Decode(doc, &shop); err != nil {
			return nil, err
		}
		shops = append(shops, shop)
	}
	return shops, nil
}

// GetShop fetches one shop. Returns docstore.ErrNotFound when absent.
func (r *Resolver) GetShop(ctx context.Context, shopID string) (models.Shop, error) {
	doc, err := r.store.Get(ctx, docstore.CollectionShops, shopID)
	if err != nil {
		return models.Shop{}, err
	}
	var shop models.Shop
	if err := docstore.Decode(doc, &shop); err != nil {
		return models.Shop{}, err
	}
	return shop, nil
}

// ListCategories lists a shop's categories sorted ascending by display
// order. The sort is stable so order collisions keep the store's stream
// order.
func (r *Resolver) ListCategories(ctx context.Context, shopID string) ([]models.Category, error) {
	docs, err := r.store.Find(ctx, docstore.CollectionCategories, docstore.Eq("shop_id", shopID))
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	categories := make([]models.Category, 0, len(docs))
	for _, doc := range docs {
		var category models.Category
		if err := docstore.Decode(doc, &category); err != nil {
			return nil, err
		}
		categories = append(categories, category)
	}
	sort.SliceStable(categories, func(i, j int) bool {
		return categories[i].Order < categories[j].Order
	})
	return categories, nil
}

// GetCategory fetches one category. Returns docstore.ErrNotFound when absent.
func (r *Resolver) GetCategory(ctx context.Context, categoryID string) (models.Category, error) {
	doc, err := r.store.Get(ctx, docstore.CollectionCategories, categoryID)
	if err != nil {
		return models.Category{}, err
	}
	var category models.Category
	if err := docstore.Decode(doc, &category); err != nil {
		return models.Category{}, err
	}
	return category, nil
}

// ListAvailableProducts lists the in-stock active products of one category.
// Products link to categories by NAME, so a renamed category simply matches
// nothing.
func (r *Resolver) ListAvailableProducts(ctx context.Context, shopID, categoryID string) (models.Category, []models.Product, error) {
	category, err := r.GetCategory(ctx, categoryID)
	if err != nil {
		return models.Category{}, nil, err
	}

	docs, err := r.store.Find(ctx, docstore.CollectionProducts,
		docstore.Eq("shop_id", shopID),
		docstore.Eq("category", category.Name))
	if err != nil {
		return models.Category{}, nil, fmt.Errorf("failed to list products: %w", err)
	}

	products := make([]models.Product, 0, len(docs))
	for _, doc := range docs {
		var product models.Product
		if err := docstore.Decode(doc, &product); err != nil {
			return models.Category{}, nil, err
		}
		if product.Available() {
			products = append(products, product)
		}
	}
	return category, products, nil
}

// GetProduct fetches one product. Returns docstore.ErrNotFound when absent.
func (r *Resolver) GetProduct(ctx context.Context, productID string) (models.Product, error) {
	doc, err := r.store.Get(ctx, docstore.CollectionProducts, productID)
	if err != nil {
		return models.Product{}, err
	}
	var product models.Product
	if err := docstore.Decode(doc, &product); err != nil {
		return models.Product{}, err
	}
	return product, nil
}

// ListShopProducts lists every product of a shop regardless of availability.
func (r *Resolver) ListShopProducts(ctx context.Context, shopID string) ([]models.Product, error) {
	docs, err := r.store.Find(ctx, docstore.CollectionProducts, docstore.Eq("shop_id", shopID))
	if err != nil {
		return nil, fmt.Errorf("failed to list shop products: %w", err)
	}
	products := make([]models.Product, 0, len(docs))
	for _, doc := range docs {
		var product models.Product
		if err := docstore.Decode(doc, &product); err != nil {
			return nil, err
		}
		products = append(products, product)
	}
	return products, nil
}

// CountOrders counts a shop's orders for the stats view.
func (r *Resolver) CountOrders(ctx context.Context, shopID string) (int, error) {
	docs, err := r.store.Find(ctx, docstore.CollectionOrders, docstore.Eq("shop_id", shopID))
	if err != nil {
		return 0, fmt.Errorf("failed to count orders: %w", err)
	}
	return len(docs), nil
}

// VisitShop records a top-level shop selection in the cache and persists the
// user's navigation state. The stored visit history is folded into the cache
// first, so a process that restarted since the user's last /start cannot
// clobber earlier visits: the persisted shops map only ever grows.
// Sub-navigation into categories and products does not call this.
func (r *Resolver) VisitShop(ctx context.Context, chatID int64, shopID string) error {
	r.cache.RecordShopVisit(chatID, shopID)

	user := r.cache.GetUser(chatID)
	if user == nil {
		return nil
	}

	id := strconv.FormatInt(chatID, 10)
	doc, err := r.store.Get(ctx, docstore.CollectionUsers, id)
	switch {
	case errors.Is(err, docstore.ErrNotFound):
		// Nothing stored yet; the cached state is the whole history.
	case err != nil:
		return fmt.Errorf("failed to load user for shop visit: %w", err)
	default:
		var stored models.User
		if err := docstore.Decode(doc, &stored); err != nil {
			return fmt.Errorf("failed to decode user for shop visit: %w", err)
		}
		r.cache.RestoreNavigation(chatID, "", stored.Shops)
		user = r.cache.GetUser(chatID)
	}

	now := time.Now().UTC()
	fields := map[string]interface{}{
		"last_shop_id": shopID,
		"shops":        user.Shops,
		"updated_at":   now,
	}
	if err := r.store.Update(ctx, docstore.CollectionUsers, id, fields); err != nil {
		return fmt.Errorf("failed to persist shop visit: %w", err)
	}
	return nil
}
