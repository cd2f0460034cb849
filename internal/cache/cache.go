// Package cache holds the process-local view of users and their in-flight
// form sessions. It is deliberately unbounded: one process serves one
// deployment's user base and sessions are short-lived by design.
package cache

import (
	"sync"
	"time"

	"github.com/shoplinkhq/chatstore/internal/models"
)

// FlowKind scopes session values to one multi-step flow.
type FlowKind string

const (
	FlowAddCategory FlowKind = "adding_category"
	FlowAddProduct  FlowKind = "adding_product"
)

// UserCache caches user profiles and flow sessions. Event ordering per user
// is guaranteed by the transport; the mutex only protects the maps against
// concurrent access by different users' events.
type UserCache struct {
	mu       sync.RWMutex
	users    map[int64]*models.User
	sessions map[int64]map[FlowKind]interface{}
	now      func() time.Time
}

// New creates an empty cache.
func New() *UserCache {
	return &UserCache{
		users:    make(map[int64]*models.User),
		sessions: make(map[int64]map[FlowKind]interface{}),
		now:      time.Now,
	}
}

// UpsertUser merges transport-observable profile fields into the cached
// profile, creating it if absent. Navigation state (last shop, visit map) is
// never cleared here.
func (c *UserCache) UpsertUser(chatID int64, username, firstName, lastName string) *models.User {
	c.mu.Lock()
	defer c.mu.Unlock()

	u, ok := c.users[chatID]
	if !ok {
		u = &models.User{
			ChatID:    chatID,
			Shops:     make(map[string]models.ShopVisit),
			CreatedAt: c.now().UTC(),
		}
		c.users[chatID] = u
	}
	u.Username = username
	u.FirstName = firstName
	u.LastName = lastName
	u.UpdatedAt = c.now().UTC()
	return copyUser(u)
}

// GetUser returns a snapshot of the cached profile, or nil when absent.
func (c *UserCache) GetUser(chatID int64) *models.User {
	c.mu.RLock()
	defer c.mu.RUnlock()
	u, ok := c.users[chatID]
	if !ok {
		return nil
	}
	return copyUser(u)
}

// SetAuthUID records the user's linked external-identity claim.
func (c *UserCache) SetAuthUID(chatID int64, authUID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if u, ok := c.users[chatID]; ok {
		u.AuthUID = authUID
	}
}

// RecordShopVisit marks shopID as the user's most recent shop and stamps the
// per-shop interaction time. Idempotent apart from the timestamp.
func (c *UserCache) RecordShopVisit(chatID int64, shopID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	u, ok := c.users[chatID]
	if !ok {
		return
	}
	u.LastShopID = shopID
	if u.Shops == nil {
		u.Shops = make(map[string]models.ShopVisit)
	}
	u.Shops[shopID] = models.ShopVisit{LastInteracted: c.now().UTC()}
}

// RestoreNavigation hydrates navigation state from the stored profile after
// a restart. Cached state wins: nothing is overwritten once present.
func (c *UserCache) RestoreNavigation(chatID int64, lastShopID string, shops map[string]models.ShopVisit) {
	c.mu.Lock()
	defer c.mu.Unlock()
	u, ok := c.users[chatID]
	if !ok {
		return
	}
	if u.LastShopID == "" {
		u.LastShopID = lastShopID
	}
	for id, visit := range shops {
		if _, ok := u.Shops[id]; !ok {
			u.Shops[id] = visit
		}
	}
}

// SetSession stores a flow-scoped session value for the user.
func (c *UserCache) SetSession(chatID int64, kind FlowKind, value interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	m, ok := c.sessions[chatID]
	if !ok {
		m = make(map[FlowKind]interface{})
		c.sessions[chatID] = m
	}
	m[kind] = value
}

// GetSession returns the flow-scoped session value, or nil when absent.
func (c *UserCache) GetSession(chatID int64, kind FlowKind) interface{} {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.sessions[chatID][kind]
}

// ClearSession drops one flow's session for the user.
func (c *UserCache) ClearSession(chatID int64, kind FlowKind) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if m, ok := c.sessions[chatID]; ok {
		delete(m, kind)
	}
}

// ClearAllSessions drops every flow session the user has.
func (c *UserCache) ClearAllSessions(chatID int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.sessions, chatID)
}

func copyUser(u *models.User) *models.User {
	out := *u
	out.Shops = make(map[string]models.ShopVisit, len(u.Shops))
	for k, v := range u.Shops {
		out.Shops[k] = v
	}
	return &out
}
