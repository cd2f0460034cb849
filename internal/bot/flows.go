package bot

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/shoplinkhq/chatstore/internal/cache"
	"github.com/shoplinkhq/chatstore/internal/chat"
	"github.com/shoplinkhq/chatstore/internal/docstore"
	"github.com/shoplinkhq/chatstore/internal/metrics"
	"github.com/shoplinkhq/chatstore/internal/models"
	"github.com/shoplinkhq/chatstore/internal/session"
)

// startAddCategory opens the category creation flow after the ownership
// gate. Failing the gate never creates a session.
func (s *Service) startAddCategory(ctx context.Context, upd chat.Update, shopID string) {
	if !s.owners.IsOwner(ctx, upd.UserID, shopID) {
		s.send(ctx, chat.Reply{ChatID: upd.ChatID, Text: "❌ You don't have permission to add categories to this shop."})
		return
	}

	draft := session.NewCategoryDraft(shopID)
	s.cache.SetSession(upd.UserID, cache.FlowAddCategory, draft)

	s.send(ctx, chat.Reply{
		ChatID: upd.ChatID,
		Text:   "➕ Add New Category\n\n📝 Please send the category name:",
		Keyboard: [][]chat.Button{chat.Row(chat.Button{
			Label: "❌ Cancel",
			Data:  chat.EncodeToken(chat.ActionShop, shopID),
		})},
	})
}

// startAddProduct opens the product creation flow. Without a category the
// owner first picks one; a shop with no categories is redirected to create
// one.
func (s *Service) startAddProduct(ctx context.Context, upd chat.Update, shopID, categoryID string) {
	if !s.owners.IsOwner(ctx, upd.UserID, shopID) {
		s.send(ctx, chat.Reply{ChatID: upd.ChatID, Text: "❌ You don't have permission to add products to this shop."})
		return
	}

	categories, err := s.resolver.ListCategories(ctx, shopID)
	if err != nil {
		log.Printf("Error listing categories for shop %s: %v", shopID, err)
		s.send(ctx, chat.Reply{ChatID: upd.ChatID, Text: "❌ Error starting product creation."})
		return
	}

	if len(categories) == 0 {
		s.send(ctx, chat.Reply{
			ChatID: upd.ChatID,
			Text: "❌ No Categories Available\n\n" +
				"You need to create at least one category before adding products.\n\n" +
				"Would you like to create a category first?",
			Keyboard: [][]chat.Button{
				chat.Row(chat.Button{Label: "➕ Create Category", Data: chat.EncodeToken(chat.ActionAddCategory, shopID)}),
				chat.Row(chat.Button{Label: "⬅️ Back", Data: chat.EncodeToken(chat.ActionShop, shopID)}),
			},
		})
		return
	}

	if categoryID == "" {
		var keyboard [][]chat.Button
		for _, category := range categories {
			keyboard = append(keyboard, chat.Row(chat.Button{
				Label: fmt.Sprintf("%s %s", category.Icon, category.Name),
				Data:  chat.EncodeToken(chat.ActionAddProductToCategory, shopID, category.ID),
			}))
		}
		keyboard = append(keyboard, chat.Row(chat.Button{
			Label: "⬅️ Back",
			Data:  chat.EncodeToken(chat.ActionShop, shopID),
		}))
		s.send(ctx, chat.Reply{
			ChatID:   upd.ChatID,
			Text:     "➕ Add New Product\n\n📂 Choose a category for the product:",
			Keyboard: keyboard,
		})
		return
	}

	var target *models.Category
	for i := range categories {
		if categories[i].ID == categoryID {
			target = &categories[i]
			break
		}
	}
	if target == nil {
		s.send(ctx, chat.Reply{ChatID: upd.ChatID, Text: "❌ Category not found."})
		return
	}

	draft := session.NewProductDraft(shopID, target.ID, target.Name)
	s.cache.SetSession(upd.UserID, cache.FlowAddProduct, draft)

	s.send(ctx, chat.Reply{
		ChatID: upd.ChatID,
		Text:   fmt.Sprintf("➕ Add Product to %s\n\n📝 Please send the product name:", target.Name),
		Keyboard: [][]chat.Button{chat.Row(chat.Button{
			Label: "❌ Cancel",
			Data:  chat.EncodeToken(chat.ActionShop, shopID),
		})},
	})
}

// handleText routes free text into the active flow, if any.
func (s *Service) handleText(ctx context.Context, upd chat.Update) {
	if v := s.cache.GetSession(upd.UserID, cache.FlowAddCategory); v != nil {
		draft, ok := v.(*session.CategoryDraft)
		if !ok {
			s.abortFlow(ctx, upd, cache.FlowAddCategory, "❌ Error creating category. Please try again.")
			return
		}
		res, err := draft.Advance(upd.Text)
		s.continueCategoryFlow(ctx, upd, draft, res, err)
		return
	}

	if v := s.cache.GetSession(upd.UserID, cache.FlowAddProduct); v != nil {
		draft, ok := v.(*session.ProductDraft)
		if !ok {
			s.abortFlow(ctx, upd, cache.FlowAddProduct, "❌ Error creating product. Please try again.")
			return
		}
		res, err := draft.Advance(upd.Text)
		s.continueProductFlow(ctx, upd, draft, res, err)
		return
	}

	s.send(ctx, chat.Reply{
		ChatID: upd.ChatID,
		Text:   "👋 Use /start to begin shopping or browse available shops!",
	})
}

// handleSkip applies the skip shortcut button to the active flow; the result
// must match typing the skip keyword.
func (s *Service) handleSkip(ctx context.Context, upd chat.Update, token chat.Token) {
	kind := token.Arg(1)
	if token.Action == chat.ActionSkipIcon {
		kind = "category"
	}

	switch kind {
	case "category":
		v := s.cache.GetSession(upd.UserID, cache.FlowAddCategory)
		draft, ok := v.(*session.CategoryDraft)
		if !ok {
			return
		}
		res, err := draft.Skip()
		s.continueCategoryFlow(ctx, upd, draft, res, err)
	case "product":
		v := s.cache.GetSession(upd.UserID, cache.FlowAddProduct)
		draft, ok := v.(*session.ProductDraft)
		if !ok {
			return
		}
		res, err := draft.Skip()
		s.continueProductFlow(ctx, upd, draft, res, err)
	default:
		log.Printf("Skip callback with unknown flow kind %q from user %d", kind, upd.UserID)
	}
}

func (s *Service) continueCategoryFlow(ctx context.Context, upd chat.Update, draft *session.CategoryDraft, res session.Result, err error) {
	if err != nil {
		log.Printf("Category flow for user %d rejected: %v", upd.UserID, err)
		s.abortFlow(ctx, upd, cache.FlowAddCategory, "❌ Error creating category. Please try again.")
		return
	}
	if res.Invalid {
		s.send(ctx, chat.Reply{ChatID: upd.ChatID, Text: "❌ " + res.Hint})
		return
	}
	if res.Done {
		s.commitCategory(ctx, upd, draft)
		return
	}
	s.cache.SetSession(upd.UserID, cache.FlowAddCategory, draft)
	s.send(ctx, s.categoryPrompt(upd.ChatID, draft))
}

func (s *Service) continueProductFlow(ctx context.Context, upd chat.Update, draft *session.ProductDraft, res session.Result, err error) {
	if err != nil {
		log.Printf("Product flow for user %d rejected: %v", upd.UserID, err)
		s.abortFlow(ctx, upd, cache.FlowAddProduct, "❌ Error creating product. Please try again.")
		return
	}
	if res.Invalid {
		s.send(ctx, chat.Reply{ChatID: upd.ChatID, Text: "❌ " + res.Hint})
		return
	}
	if res.Done {
		s.commitProduct(ctx, upd, draft)
		return
	}
	s.cache.SetSession(upd.UserID, cache.FlowAddProduct, draft)
	s.send(ctx, s.productPrompt(upd.ChatID, draft))
}

// categoryPrompt builds the prompt for the draft's current step.
func (s *Service) categoryPrompt(chatID int64, draft *session.CategoryDraft) chat.Reply {
	switch draft.Step {
	case session.CategoryStepDescription:
		return chat.Reply{
			ChatID: chatID,
			Text: fmt.Sprintf("✅ Category name: %s\n\n📝 Please send a description for this category (or send 'skip' to skip):",
				draft.Name),
			Keyboard: [][]chat.Button{chat.Row(chat.Button{
				Label: "⏭️ Skip Description",
				Data:  chat.EncodeToken(chat.ActionSkipDescription, draft.ShopID, "category"),
			})},
		}
	default: // icon
		var b strings.Builder
		fmt.Fprintf(&b, "✅ Category: %s\n", draft.Name)
		if draft.Description != "" {
			fmt.Fprintf(&b, "📝 Description: %s\n", draft.Description)
		}
		b.WriteString("\n🎨 Please send an emoji icon for this category (or send 'skip' for default 📦):")
		return chat.Reply{
			ChatID: chatID,
			Text:   b.String(),
			Keyboard: [][]chat.Button{chat.Row(chat.Button{
				Label: "📦 Use Default Icon",
				Data:  chat.EncodeToken(chat.ActionSkipIcon, draft.ShopID),
			})},
		}
	}
}

// productPrompt builds the prompt for the draft's current step.
func (s *Service) productPrompt(chatID int64, draft *session.ProductDraft) chat.Reply {
	switch draft.Step {
	case session.ProductStepDescription:
		return chat.Reply{
			ChatID: chatID,
			Text: fmt.Sprintf("✅ Product name: %s\n\n📝 Please send a description for this product (or send 'skip' to skip):",
				draft.Name),
			Keyboard: [][]chat.Button{chat.Row(chat.Button{
				Label: "⏭️ Skip Description",
				Data:  chat.EncodeToken(chat.ActionSkipDescription, draft.ShopID, "product"),
			})},
		}
	case session.ProductStepPrice:
		var b strings.Builder
		fmt.Fprintf(&b, "✅ Product: %s\n", draft.Name)
		if draft.Description != "" {
			fmt.Fprintf(&b, "📝 Description: %s\n", draft.Description)
		}
		b.WriteString("\n💰 Please send the price (numbers only, e.g., 25.99):")
		return chat.Reply{ChatID: chatID, Text: b.String()}
	default: // stock
		return chat.Reply{
			ChatID: chatID,
			Text: fmt.Sprintf("✅ Product: %s\n💰 Price: $%.2f\n\n📦 Please send the stock quantity (whole numbers only, e.g., 50):",
				draft.Name, draft.Price),
		}
	}
}

// commitCategory assigns the display order, persists the category, and
// clears the flow. Any failure clears the flow too; no partial entity is
// ever persisted.
func (s *Service) commitCategory(ctx context.Context, upd chat.Update, draft *session.CategoryDraft) {
	existing, err := s.resolver.ListCategories(ctx, draft.ShopID)
	if err != nil {
		log.Printf("Error counting categories for shop %s: %v", draft.ShopID, err)
		s.abortFlow(ctx, upd, cache.FlowAddCategory, "❌ Error creating category. Please try again.")
		return
	}

	category := draft.Category(len(existing), s.creatorUID(ctx, upd.UserID))
	now := time.Now().UTC()
	category.CreatedAt = now
	category.UpdatedAt = now

	data, err := docstore.Encode(category)
	if err != nil {
		log.Printf("Error encoding category for shop %s: %v", draft.ShopID, err)
		s.abortFlow(ctx, upd, cache.FlowAddCategory, "❌ Error creating category. Please try again.")
		return
	}
	id, err := s.store.Create(ctx, docstore.CollectionCategories, data)
	if err != nil {
		log.Printf("Error creating category for shop %s: %v", draft.ShopID, err)
		s.abortFlow(ctx, upd, cache.FlowAddCategory, "❌ Error creating category. Please try again.")
		return
	}

	s.cache.ClearSession(upd.UserID, cache.FlowAddCategory)
	metrics.FlowsCompleted.WithLabelValues("category").Inc()

	var b strings.Builder
	b.WriteString("✅ Category Created Successfully!\n\n")
	fmt.Fprintf(&b, "📂 Name: %s\n", category.Name)
	fmt.Fprintf(&b, "🎨 Icon: %s\n", category.Icon)
	if category.Description != "" {
		fmt.Fprintf(&b, "📝 Description: %s\n", category.Description)
	}
	b.WriteString("\n🎉 Category is now available in your shop!")

	s.send(ctx, chat.Reply{
		ChatID: upd.ChatID,
		Text:   b.String(),
		Keyboard: [][]chat.Button{
			chat.Row(chat.Button{
				Label: "➕ Add Product to Category",
				Data:  chat.EncodeToken(chat.ActionAddProductToCategory, draft.ShopID, id),
			}),
			chat.Row(chat.Button{
				Label: "🏪 Back to Shop",
				Data:  chat.EncodeToken(chat.ActionShop, draft.ShopID),
			}),
		},
	})
}

// commitProduct persists the product and clears the flow.
func (s *Service) commitProduct(ctx context.Context, upd chat.Update, draft *session.ProductDraft) {
	product := draft.Product()
	now := time.Now().UTC()
	product.CreatedAt = now
	product.UpdatedAt = now

	data, err := docstore.Encode(product)
	if err != nil {
		log.Printf("Error encoding product for shop %s: %v", draft.ShopID, err)
		s.abortFlow(ctx, upd, cache.FlowAddProduct, "❌ Error creating product. Please try again.")
		return
	}
	if _, err := s.store.Create(ctx, docstore.CollectionProducts, data); err != nil {
		log.Printf("Error creating product for shop %s: %v", draft.ShopID, err)
		s.abortFlow(ctx, upd, cache.FlowAddProduct, "❌ Error creating product. Please try again.")
		return
	}

	s.cache.ClearSession(upd.UserID, cache.FlowAddProduct)
	metrics.FlowsCompleted.WithLabelValues("product").Inc()

	var b strings.Builder
	b.WriteString("✅ Product Created Successfully!\n\n")
	fmt.Fprintf(&b, "🛍️ Name: %s\n", product.Name)
	fmt.Fprintf(&b, "📂 Category: %s\n", product.Category)
	fmt.Fprintf(&b, "💰 Price: $%.2f\n", product.Price)
	fmt.Fprintf(&b, "📦 Stock: %d\n", product.Stock)
	if product.Description != "" {
		fmt.Fprintf(&b, "📝 Description: %s\n", product.Description)
	}
	b.WriteString("\n🎉 Product is now available in your shop!")

	s.send(ctx, chat.Reply{
		ChatID: upd.ChatID,
		Text:   b.String(),
		Keyboard: [][]chat.Button{
			chat.Row(chat.Button{
				Label: "➕ Add Another Product",
				Data:  chat.EncodeToken(chat.ActionAddProduct, draft.ShopID),
			}),
			chat.Row(chat.Button{
				Label: "📂 View Category",
				Data:  chat.EncodeToken(chat.ActionCategory, draft.ShopID, draft.CategoryID),
			}),
			chat.Row(chat.Button{
				Label: "🏪 Back to Shop",
				Data:  chat.EncodeToken(chat.ActionShop, draft.ShopID),
			}),
		},
	})
}

// creatorUID resolves the category author: the linked identity claim when
// present, otherwise the raw chat ID.
func (s *Service) creatorUID(ctx context.Context, chatID int64) string {
	id := strconv.FormatInt(chatID, 10)
	doc, err := s.store.Get(ctx, docstore.CollectionUsers, id)
	if err != nil {
		return id
	}
	var user models.User
	if err := docstore.Decode(doc, &user); err != nil || user.AuthUID == "" {
		return id
	}
	return user.AuthUID
}

// abortFlow clears a stuck or failed flow and reports the failure once.
func (s *Service) abortFlow(ctx context.Context, upd chat.Update, kind cache.FlowKind, msg string) {
	s.cache.ClearSession(upd.UserID, kind)
	s.send(ctx, chat.Reply{ChatID: upd.ChatID, Text: msg})
}
