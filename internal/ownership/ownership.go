// Package ownership answers "may this user administer this shop". Two
// independent sources are consulted and OR'd: the user's linked identity
// claim against the shop's recorded owner, and a preloaded staff table
// mapping shops to owner chat IDs.
package ownership

import (
	"context"
	"errors"
	"log"
	"strconv"
	"sync"

	"github.com/shoplinkhq/chatstore/internal/docstore"
	"github.com/shoplinkhq/chatstore/internal/models"
)

// Checker performs shop ownership checks.
type Checker struct {
	store docstore.Store

	mu     sync.RWMutex
	owners map[string]int64 // shopID -> owner chat ID
}

// NewChecker creates a checker with an empty owner table; call Load before
// serving traffic.
func NewChecker(store docstore.Store) *Checker {
	return &Checker{store: store, owners: make(map[string]int64)}
}

// Load scans owner-role staff assignments and replaces the owner table
// wholesale. Readers during a refresh observe the previous snapshot.
func (c *Checker) Load(ctx context.Context) error {
	docs, err := c.store.Find(ctx, docstore.CollectionStaff,
		docstore.Eq("role", string(models.StaffRoleOwner)))
	if err != nil {
		return err
	}

	owners := make(map[string]int64, len(docs))
	for _, doc := range docs {
		var assignment models.StaffAssignment
		if err := docstore.Decode(doc, &assignment); err != nil {
			log.Printf("[OWNERSHIP] Skipping malformed staff assignment %s: %v", doc.ID, err)
			continue
		}
		if assignment.ShopID == "" || assignment.ChatID == 0 {
			log.Printf("[OWNERSHIP] Skipping incomplete owner assignment %s", doc.ID)
			continue
		}
		owners[assignment.ShopID] = assignment.ChatID
	}

	c.mu.Lock()
	c.owners = owners
	c.mu.Unlock()

	log.Printf("[OWNERSHIP] Loaded %d shop owners", len(owners))
	return nil
}

// Refresh reloads the owner table on demand.
func (c *Checker) Refresh(ctx context.Context) error {
	return c.Load(ctx)
}

// IsOwner reports whether the user may perform owner-only actions on the
// shop. Store failures during the claim check degrade to false for that leg;
// the table leg still applies.
func (c *Checker) IsOwner(ctx context.Context, chatID int64, shopID string) bool {
	if c.ownsByTable(chatID, shopID) {
		return true
	}
	owns, err := c.ownsByClaim(ctx, chatID, shopID)
	if err != nil {
		log.Printf("[OWNERSHIP] Claim check failed for user %d shop %s: %v", chatID, shopID, err)
		return false
	}
	return owns
}

// ownsByTable checks the preloaded shop -> owner chat ID mapping.
func (c *Checker) ownsByTable(chatID int64, shopID string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.owners[shopID] == chatID
}

// ownsByClaim compares the user's linked identity claim with the shop's
// recorded owner. Absence of either document or claim yields false, not an
// error; only store failures surface.
func (c *Checker) ownsByClaim(ctx context.Context, chatID int64, shopID string) (bool, error) {
	userDoc, err := c.store.Get(ctx, docstore.CollectionUsers, strconv.FormatInt(chatID, 10))
	if errors.Is(err, docstore.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	var user models.User
	if err := docstore.Decode(userDoc, &user); err != nil {
		return false, err
	}
	if user.AuthUID == "" {
		return false, nil
	}

	shopDoc, err := c.store.Get(ctx, docstore.CollectionShops, shopID)
	if errors.Is(err, docstore.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	var shop models.Shop
	if err := docstore.Decode(shopDoc, &shop); err != nil {
		return false, err
	}
	return shop.OwnerID != "" && shop.OwnerID == user.AuthUID, nil
}
