// Package notify delivers order notifications. Delivery is fire-and-forget:
// a failed notification is logged and never fails the order.
package notify

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shoplinkhq/chatstore/internal/chat"
	"github.com/shoplinkhq/chatstore/internal/models"
)

// OrderNotifier sends a formatted order summary to a resolved destination.
type OrderNotifier interface {
	NotifyOrder(ctx context.Context, destChatID int64, order models.Order) error
}

// ChatNotifier delivers order notifications through the chat transport.
type ChatNotifier struct {
	sender chat.Sender
}

// NewChatNotifier creates a notifier over the given sender.
func NewChatNotifier(sender chat.Sender) *ChatNotifier {
	return &ChatNotifier{sender: sender}
}

// NotifyOrder sends the order summary to the destination chat.
func (n *ChatNotifier) NotifyOrder(ctx context.Context, destChatID int64, order models.Order) error {
	return n.sender.Send(ctx, chat.Reply{
		ChatID: destChatID,
		Text:   FormatOrderMessage(order),
	})
}

// FormatOrderMessage renders the cashier-facing order summary.
func FormatOrderMessage(order models.Order) string {
	var b strings.Builder
	b.WriteString("🛍️ New Order\n\n")
	fmt.Fprintf(&b, "📋 Order ID: #%s\n", order.ShortID())
	fmt.Fprintf(&b, "👤 Customer: %s\n", order.CustomerName)
	if order.ChatUsername != "" {
		fmt.Fprintf(&b, "📱 Handle: @%s\n", order.ChatUsername)
	}
	fmt.Fprintf(&b, "🆔 User ID: %d\n", order.ChatID)
	fmt.Fprintf(&b, "💰 Total: $%.2f\n", order.Total)
	fmt.Fprintf(&b, "🚚 Method: %s\n", title(order.DeliveryMethod))
	fmt.Fprintf(&b, "💳 Payment: %s\n\n", title(order.PaymentPreference))
	b.WriteString("📦 Items:\n")
	for _, item := range order.Items {
		fmt.Fprintf(&b, "• %s × %d = $%.2f\n", item.ProductName, item.Quantity, item.Total)
	}
	fmt.Fprintf(&b, "\n⏰ Ordered: %s\n", order.CreatedAt.Format(time.DateTime))
	b.WriteString("\nPlease approve or reject this order")
	return b.String()
}

func title(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
