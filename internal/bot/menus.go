package bot

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/shoplinkhq/chatstore/internal/chat"
	"github.com/shoplinkhq/chatstore/internal/docstore"
	"github.com/shoplinkhq/chatstore/internal/orders"
)

// sendWelcome lists the active shops as a choice menu.
func (s *Service) sendWelcome(ctx context.Context, upd chat.Update) {
	shops, err := s.resolver.ListActiveShops(ctx)
	if err != nil {
		log.Printf("Error listing shops for user %d: %v", upd.UserID, err)
		s.send(ctx, chat.Reply{ChatID: upd.ChatID, Text: "❌ Error loading shops. Please try again later."})
		return
	}

	var b strings.Builder
	fmt.Fprintf(&b, "👋 Welcome %s!\n\n", upd.FirstName)
	b.WriteString("🏪 Choose a shop to browse:\n\n")

	var keyboard [][]chat.Button
	for _, shop := range shops {
		keyboard = append(keyboard, chat.Row(chat.Button{
			Label: "🏪 " + shop.Name,
			Data:  chat.EncodeToken(chat.ActionShop, shop.ID),
		}))
	}
	if len(shops) == 0 {
		b.WriteString("❌ No shops available at the moment.")
		keyboard = nil
	} else {
		keyboard = append(keyboard, chat.Row(chat.Button{
			Label: "🔄 Refresh",
			Data:  chat.EncodeToken(chat.ActionShops),
		}))
	}

	s.send(ctx, chat.Reply{ChatID: upd.ChatID, Text: b.String(), Keyboard: keyboard})
}

// sendShopMenu shows one shop's categories plus the admin rows for owners.
// Entering a shop menu is the cancel-equivalent navigation: any in-flight
// creation flow is abandoned here.
func (s *Service) sendShopMenu(ctx context.Context, upd chat.Update, shopID string) {
	s.cache.ClearAllSessions(upd.UserID)

	shop, err := s.resolver.GetShop(ctx, shopID)
	if errors.Is(err, docstore.ErrNotFound) {
		s.send(ctx, chat.Reply{ChatID: upd.ChatID, Text: "❌ Shop not found."})
		return
	}
	if err != nil {
		log.Printf("Error loading shop %s: %v", shopID, err)
		s.send(ctx, chat.Reply{ChatID: upd.ChatID, Text: "❌ Error loading shop menu. Please try again."})
		return
	}

	if err := s.resolver.VisitShop(ctx, upd.UserID, shopID); err != nil {
		log.Printf("Error recording shop visit for user %d: %v", upd.UserID, err)
	}

	categories, err := s.resolver.ListCategories(ctx, shopID)
	if err != nil {
		log.Printf("Error listing categories for shop %s: %v", shopID, err)
		s.send(ctx, chat.Reply{ChatID: upd.ChatID, Text: "❌ Error loading shop menu. Please try again."})
		return
	}

	isOwner := s.owners.IsOwner(ctx, upd.UserID, shopID)

	var b strings.Builder
	fmt.Fprintf(&b, "🏪 %s\n\n", shop.Name)
	if shop.Description != "" {
		b.WriteString(shop.Description + "\n\n")
	}
	if isOwner {
		b.WriteString("👑 Admin Panel\n\n")
	}
	if len(categories) == 0 {
		b.WriteString("📂 No categories available yet.")
		if isOwner {
			b.WriteString("\n\n➕ Use the buttons below to add categories and products.")
		}
	} else {
		b.WriteString("📂 Choose a category:")
	}

	var keyboard [][]chat.Button
	for _, category := range categories {
		keyboard = append(keyboard, chat.Row(chat.Button{
			Label: fmt.Sprintf("%s %s", category.Icon, category.Name),
			Data:  chat.EncodeToken(chat.ActionCategory, shopID, category.ID),
		}))
	}
	if isOwner {
		keyboard = append(keyboard, chat.Row(
			chat.Button{Label: "➕ Add Category", Data: chat.EncodeToken(chat.ActionAddCategory, shopID)},
			chat.Button{Label: "➕ Add Product", Data: chat.EncodeToken(chat.ActionAddProduct, shopID)},
		))
		keyboard = append(keyboard,
			chat.Row(chat.Button{Label: "📊 Shop Stats", Data: chat.EncodeToken(chat.ActionStats, shopID)}),
			chat.Row(chat.Button{Label: "⚙️ Shop Settings", Data: chat.EncodeToken(chat.ActionSettings, shopID)}),
			chat.Row(chat.Button{Label: "👥 Manage Staff", Data: chat.EncodeToken(chat.ActionStaff, shopID)}),
			chat.Row(chat.Button{Label: "📈 View Analytics", Data: chat.EncodeToken(chat.ActionAnalytics, shopID)}),
			chat.Row(chat.Button{Label: "🔔 Send Announcement", Data: chat.EncodeToken(chat.ActionAnnounce, shopID)}),
		)
	}
	keyboard = append(keyboard,
		chat.Row(chat.Button{Label: "🔄 Refresh Menu", Data: chat.EncodeToken(chat.ActionShop, shopID)}),
		chat.Row(chat.Button{Label: "⬅️ Back to Shops", Data: chat.EncodeToken(chat.ActionShops)}),
	)

	s.send(ctx, chat.Reply{ChatID: upd.ChatID, Text: b.String(), Keyboard: keyboard})
}

// sendCategoryProducts lists the available products of one category.
func (s *Service) sendCategoryProducts(ctx context.Context, upd chat.Update, shopID, categoryID string) {
	category, products, err := s.resolver.ListAvailableProducts(ctx, shopID, categoryID)
	if errors.Is(err, docstore.ErrNotFound) {
		s.send(ctx, chat.Reply{ChatID: upd.ChatID, Text: "❌ Category not found."})
		return
	}
	if err != nil {
		log.Printf("Error listing products for category %s: %v", categoryID, err)
		s.send(ctx, chat.Reply{ChatID: upd.ChatID, Text: "❌ Error loading products."})
		return
	}

	var b strings.Builder
	fmt.Fprintf(&b, "📂 %s\n\n", category.Name)
	if category.Description != "" {
		b.WriteString(category.Description + "\n\n")
	}

	var keyboard [][]chat.Button
	for _, product := range products {
		label := fmt.Sprintf("%s - $%.2f", product.Name, product.Price)
		if product.Stock <= 10 {
			label += fmt.Sprintf(" (%d left)", product.Stock)
		}
		keyboard = append(keyboard, chat.Row(chat.Button{
			Label: label,
			Data:  chat.EncodeToken(chat.ActionProduct, shopID, product.ID),
		}))
	}
	if len(products) == 0 {
		b.WriteString("❌ No products available in this category.")
	} else {
		fmt.Fprintf(&b, "🛍️ Choose a product (%d available):", len(products))
	}

	if s.owners.IsOwner(ctx, upd.UserID, shopID) {
		keyboard = append(keyboard, chat.Row(chat.Button{
			Label: "➕ Add Product to Category",
			Data:  chat.EncodeToken(chat.ActionAddProductToCategory, shopID, categoryID),
		}))
	}
	keyboard = append(keyboard, chat.Row(chat.Button{
		Label: "⬅️ Back to Categories",
		Data:  chat.EncodeToken(chat.ActionShop, shopID),
	}))

	s.send(ctx, chat.Reply{ChatID: upd.ChatID, Text: b.String(), Keyboard: keyboard})
}

// sendProductDetails shows one product with an order button when available.
func (s *Service) sendProductDetails(ctx context.Context, upd chat.Update, shopID, productID string) {
	product, err := s.resolver.GetProduct(ctx, productID)
	if errors.Is(err, docstore.ErrNotFound) {
		s.send(ctx, chat.Reply{ChatID: upd.ChatID, Text: "❌ Product not found."})
		return
	}
	if err != nil {
		log.Printf("Error loading product %s: %v", productID, err)
		s.send(ctx, chat.Reply{ChatID: upd.ChatID, Text: "❌ Error loading product details."})
		return
	}

	var b strings.Builder
	fmt.Fprintf(&b, "🛍️ %s\n\n", product.Name)
	if product.Description != "" {
		fmt.Fprintf(&b, "📝 %s\n\n", product.Description)
	}
	fmt.Fprintf(&b, "💰 Price: $%.2f\n", product.Price)
	fmt.Fprintf(&b, "📦 Stock: %d available\n", product.Stock)
	fmt.Fprintf(&b, "🏷️ Category: %s\n", product.Category)
	if product.SKU != "" {
		fmt.Fprintf(&b, "🔖 SKU: %s\n", product.SKU)
	}
	if !product.Available() {
		b.WriteString("\n❌ Currently unavailable")
	}

	var keyboard [][]chat.Button
	if product.Available() {
		keyboard = append(keyboard, chat.Row(chat.Button{
			Label: "🛒 Order This Item",
			Data:  chat.EncodeToken(chat.ActionOrder, shopID, productID),
		}))
	}
	keyboard = append(keyboard, chat.Row(s.backToCategoryButton(ctx, shopID, product.Category)))

	reply := chat.Reply{ChatID: upd.ChatID, Text: b.String(), Keyboard: keyboard}
	if len(product.Images) > 0 {
		reply.ImageURL = product.Images[0]
	}
	s.send(ctx, reply)
}

// backToCategoryButton resolves the product's category by name; a renamed or
// deleted category falls back to the shop menu.
func (s *Service) backToCategoryButton(ctx context.Context, shopID, categoryName string) chat.Button {
	if categoryName != "" {
		categories, err := s.resolver.ListCategories(ctx, shopID)
		if err == nil {
			for _, category := range categories {
				if category.Name == categoryName {
					return chat.Button{
						Label: "⬅️ Back to Products",
						Data:  chat.EncodeToken(chat.ActionCategory, shopID, category.ID),
					}
				}
			}
		}
	}
	return chat.Button{
		Label: "⬅️ Back to Categories",
		Data:  chat.EncodeToken(chat.ActionShop, shopID),
	}
}

// handleOrder runs the intake pipeline and confirms to the customer.
func (s *Service) handleOrder(ctx context.Context, upd chat.Update, shopID, productID string) {
	user := s.cache.GetUser(upd.UserID)
	customer := orders.Customer{
		ChatID:   upd.UserID,
		Username: upd.Username,
		Name:     strings.TrimSpace(upd.FirstName + " " + upd.LastName),
	}
	if user != nil {
		customer.Name = user.DisplayName()
	}

	order, err := s.intake.Place(ctx, customer, shopID, productID)
	switch {
	case errors.Is(err, docstore.ErrNotFound):
		s.send(ctx, chat.Reply{ChatID: upd.ChatID, Text: "❌ Product not found."})
		return
	case errors.Is(err, orders.ErrUnavailable):
		s.send(ctx, chat.Reply{ChatID: upd.ChatID, Text: "❌ This product is currently unavailable."})
		return
	case err != nil:
		log.Printf("Error placing order for user %d: %v", upd.UserID, err)
		s.send(ctx, chat.Reply{ChatID: upd.ChatID, Text: "❌ Error processing order. Please try again."})
		return
	}

	item := order.Items[0]
	var b strings.Builder
	b.WriteString("✅ Order Request Sent!\n\n")
	fmt.Fprintf(&b, "🛍️ Product: %s\n", item.ProductName)
	fmt.Fprintf(&b, "💰 Price: $%.2f\n", item.Price)
	fmt.Fprintf(&b, "📋 Order ID: #%s\n\n", order.ShortID())
	b.WriteString("📞 Next Steps:\n")
	b.WriteString("The shop owner will contact you shortly to confirm your order and arrange payment/pickup.\n\n")
	b.WriteString("Thank you for your order! 🙏")

	s.send(ctx, chat.Reply{
		ChatID: upd.ChatID,
		Text:   b.String(),
		Keyboard: [][]chat.Button{chat.Row(chat.Button{
			Label: "⬅️ Back to Product",
			Data:  chat.EncodeToken(chat.ActionProduct, shopID, productID),
		})},
	})
}

// sendShopStats shows basic counts to the shop owner.
func (s *Service) sendShopStats(ctx context.Context, upd chat.Update, shopID string) {
	if !s.owners.IsOwner(ctx, upd.UserID, shopID) {
		s.send(ctx, chat.Reply{ChatID: upd.ChatID, Text: "❌ You don't have permission to view shop statistics."})
		return
	}

	categories, err := s.resolver.ListCategories(ctx, shopID)
	if err != nil {
		log.Printf("Error loading stats for shop %s: %v", shopID, err)
		s.send(ctx, chat.Reply{ChatID: upd.ChatID, Text: "❌ Error loading shop statistics."})
		return
	}
	products, err := s.resolver.ListShopProducts(ctx, shopID)
	if err != nil {
		log.Printf("Error loading stats for shop %s: %v", shopID, err)
		s.send(ctx, chat.Reply{ChatID: upd.ChatID, Text: "❌ Error loading shop statistics."})
		return
	}
	orderCount, err := s.resolver.CountOrders(ctx, shopID)
	if err != nil {
		log.Printf("Error loading stats for shop %s: %v", shopID, err)
		s.send(ctx, chat.Reply{ChatID: upd.ChatID, Text: "❌ Error loading shop statistics."})
		return
	}

	var b strings.Builder
	b.WriteString("📊 Shop Statistics\n\n")
	fmt.Fprintf(&b, "📂 Categories: %d\n", len(categories))
	fmt.Fprintf(&b, "🛍️ Products: %d\n", len(products))
	fmt.Fprintf(&b, "📦 Total Orders: %d\n", orderCount)
	fmt.Fprintf(&b, "📅 Generated: %s", time.Now().Format("2006-01-02 15:04"))

	s.send(ctx, chat.Reply{
		ChatID: upd.ChatID,
		Text:   b.String(),
		Keyboard: [][]chat.Button{chat.Row(chat.Button{
			Label: "⬅️ Back to Shop",
			Data:  chat.EncodeToken(chat.ActionShop, shopID),
		})},
	})
}
