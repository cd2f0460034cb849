// Package bot dispatches inbound chat updates to the storefront's
// navigation, ordering, and admin-flow logic. Every handler answers the user
// itself; no error propagates past HandleUpdate.
package bot

import (
	"context"
	"errors"
	"log"
	"strconv"
	"time"

	"github.com/shoplinkhq/chatstore/internal/cache"
	"github.com/shoplinkhq/chatstore/internal/catalog"
	"github.com/shoplinkhq/chatstore/internal/chat"
	"github.com/shoplinkhq/chatstore/internal/docstore"
	"github.com/shoplinkhq/chatstore/internal/metrics"
	"github.com/shoplinkhq/chatstore/internal/models"
	"github.com/shoplinkhq/chatstore/internal/orders"
	"github.com/shoplinkhq/chatstore/internal/ownership"
)

// Service wires the storefront components behind the chat transport.
type Service struct {
	cache    *cache.UserCache
	store    docstore.Store
	resolver *catalog.Resolver
	owners   *ownership.Checker
	intake   *orders.Intake
	sender   chat.Sender
}

// NewService creates the dispatcher.
func NewService(
	userCache *cache.UserCache,
	store docstore.Store,
	resolver *catalog.Resolver,
	owners *ownership.Checker,
	intake *orders.Intake,
	sender chat.Sender,
) *Service {
	return &Service{
		cache:    userCache,
		store:    store,
		resolver: resolver,
		owners:   owners,
		intake:   intake,
		sender:   sender,
	}
}

// HandleUpdate processes one inbound update to completion. The transport
// serializes updates per user; different users may run concurrently.
func (s *Service) HandleUpdate(ctx context.Context, upd chat.Update) {
	// Prime the cached profile on every event so navigation state survives
	// users who never re-issue /start after a restart.
	s.cache.UpsertUser(upd.UserID, upd.Username, upd.FirstName, upd.LastName)

	switch {
	case upd.Command != "":
		metrics.UpdatesTotal.WithLabelValues("command").Inc()
		s.handleCommand(ctx, upd)
	case upd.Callback != "":
		metrics.UpdatesTotal.WithLabelValues("callback").Inc()
		s.handleCallback(ctx, upd)
	default:
		metrics.UpdatesTotal.WithLabelValues("text").Inc()
		s.handleText(ctx, upd)
	}
}

func (s *Service) handleCommand(ctx context.Context, upd chat.Update) {
	switch upd.Command {
	case "start":
		s.handleStart(ctx, upd)
	default:
		s.send(ctx, chat.Reply{
			ChatID: upd.ChatID,
			Text:   "👋 Use /start to begin shopping or browse available shops!",
		})
	}
}

func (s *Service) handleCallback(ctx context.Context, upd chat.Update) {
	token, err := chat.DecodeToken(upd.Callback)
	if err != nil {
		log.Printf("Error decoding callback from user %d: %v", upd.UserID, err)
		s.sendGenericError(ctx, upd.ChatID)
		return
	}

	switch token.Action {
	case chat.ActionShops:
		s.sendWelcome(ctx, upd)
	case chat.ActionShop:
		s.sendShopMenu(ctx, upd, token.Arg(0))
	case chat.ActionCategory:
		s.sendCategoryProducts(ctx, upd, token.Arg(0), token.Arg(1))
	case chat.ActionProduct:
		s.sendProductDetails(ctx, upd, token.Arg(0), token.Arg(1))
	case chat.ActionOrder:
		s.handleOrder(ctx, upd, token.Arg(0), token.Arg(1))
	case chat.ActionAddCategory:
		s.startAddCategory(ctx, upd, token.Arg(0))
	case chat.ActionAddProduct:
		s.startAddProduct(ctx, upd, token.Arg(0), "")
	case chat.ActionAddProductToCategory:
		s.startAddProduct(ctx, upd, token.Arg(0), token.Arg(1))
	case chat.ActionSkipDescription, chat.ActionSkipIcon:
		s.handleSkip(ctx, upd, token)
	case chat.ActionStats:
		s.sendShopStats(ctx, upd, token.Arg(0))
	case chat.ActionSettings:
		s.send(ctx, chat.Reply{ChatID: upd.ChatID, Text: "⚙️ Shop settings feature coming soon!"})
	case chat.ActionStaff:
		s.send(ctx, chat.Reply{ChatID: upd.ChatID, Text: "👥 Staff management feature coming soon!"})
	case chat.ActionAnalytics:
		s.send(ctx, chat.Reply{ChatID: upd.ChatID, Text: "📈 Analytics feature coming soon!"})
	case chat.ActionAnnounce:
		s.send(ctx, chat.Reply{ChatID: upd.ChatID, Text: "🔔 Announcement feature coming soon!"})
	case chat.ActionRefreshOwners:
		s.handleRefreshOwners(ctx, upd)
	default:
		log.Printf("Unknown callback action %q from user %d", token.Action, upd.UserID)
		s.sendGenericError(ctx, upd.ChatID)
	}
}

func (s *Service) handleRefreshOwners(ctx context.Context, upd chat.Update) {
	if err := s.owners.Refresh(ctx); err != nil {
		log.Printf("Error refreshing owner table: %v", err)
		s.sendGenericError(ctx, upd.ChatID)
		return
	}
	s.send(ctx, chat.Reply{ChatID: upd.ChatID, Text: "🔄 Shop owner table refreshed."})
}

// handleStart greets the user, persists their profile, and drops them into
// their most recently visited shop when one exists.
func (s *Service) handleStart(ctx context.Context, upd chat.Update) {
	if err := s.saveUser(ctx, upd); err != nil {
		log.Printf("Error saving user %d: %v", upd.UserID, err)
	}

	if user := s.cache.GetUser(upd.UserID); user != nil && user.LastShopID != "" {
		if _, err := s.resolver.GetShop(ctx, user.LastShopID); err == nil {
			s.sendShopMenu(ctx, upd, user.LastShopID)
			return
		}
	}
	s.sendWelcome(ctx, upd)
}

// saveUser upserts the user document: server-observable profile fields are
// always refreshed, navigation state is never touched on update.
func (s *Service) saveUser(ctx context.Context, upd chat.Update) error {
	id := strconv.FormatInt(upd.UserID, 10)
	now := time.Now().UTC()

	doc, err := s.store.Get(ctx, docstore.CollectionUsers, id)
	if errors.Is(err, docstore.ErrNotFound) {
		user := models.User{
			ChatID:    upd.UserID,
			Username:  upd.Username,
			FirstName: upd.FirstName,
			LastName:  upd.LastName,
			Shops:     map[string]models.ShopVisit{},
			CreatedAt: now,
			UpdatedAt: now,
		}
		data, err := docstore.Encode(user)
		if err != nil {
			return err
		}
		return s.store.Set(ctx, docstore.CollectionUsers, id, data)
	}
	if err != nil {
		return err
	}

	// Keep the cached identity claim and navigation state fresh.
	var stored models.User
	if err := docstore.Decode(doc, &stored); err == nil {
		if stored.AuthUID != "" {
			s.cache.SetAuthUID(upd.UserID, stored.AuthUID)
		}
		s.cache.RestoreNavigation(upd.UserID, stored.LastShopID, stored.Shops)
	}

	return s.store.Update(ctx, docstore.CollectionUsers, id, map[string]interface{}{
		"username":   upd.Username,
		"first_name": upd.FirstName,
		"last_name":  upd.LastName,
		"updated_at": now,
	})
}

func (s *Service) send(ctx context.Context, reply chat.Reply) {
	if err := s.sender.Send(ctx, reply); err != nil {
		log.Printf("Error delivering reply to chat %d: %v", reply.ChatID, err)
	}
}

func (s *Service) sendGenericError(ctx context.Context, chatID int64) {
	s.send(ctx, chat.Reply{ChatID: chatID, Text: "❌ Error processing request. Please try again."})
}
