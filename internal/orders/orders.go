// Package orders is the intake pipeline: it validates availability, writes
// the immutable order snapshot, and triggers notification side effects.
// Stock is NOT decremented here; inventory adjustment belongs to the
// external fulfillment process.
package orders

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/shoplinkhq/chatstore/internal/docstore"
	"github.com/shoplinkhq/chatstore/internal/metrics"
	"github.com/shoplinkhq/chatstore/internal/models"
	"github.com/shoplinkhq/chatstore/internal/notify"
)

// ErrUnavailable is returned when the product exists but is inactive or out
// of stock. Distinct from docstore.ErrNotFound by design.
var ErrUnavailable = errors.New("orders: product unavailable")

// Customer identifies who is placing the order.
type Customer struct {
	ChatID   int64
	Username string
	Name     string
}

// Intake builds and persists orders.
type Intake struct {
	store    docstore.Store
	notifier notify.OrderNotifier
	events   notify.EventPublisher // optional
}

// NewIntake creates an intake pipeline. events may be nil when no order feed
// is configured.
func NewIntake(store docstore.Store, notifier notify.OrderNotifier, events notify.EventPublisher) *Intake {
	return &Intake{store: store, notifier: notifier, events: events}
}

// Place validates the product and creates a single-item pickup order with
// quantity 1. On success the order is persisted before any side effect
// runs; notification and event-feed failures are logged, never returned.
func (i *Intake) Place(ctx context.Context, customer Customer, shopID, productID string) (models.Order, error) {
	doc, err := i.store.Get(ctx, docstore.CollectionProducts, productID)
	if err != nil {
		return models.Order{}, err
	}
	var product models.Product
	if err := docstore.Decode(doc, &product); err != nil {
		return models.Order{}, err
	}
	if !product.Available() {
		return models.Order{}, ErrUnavailable
	}

	now := time.Now().UTC()
	customerID := customer.Username
	if customerID == "" {
		customerID = fmt.Sprintf("user_%d", customer.ChatID)
	}
	order := models.Order{
		ShopID:       shopID,
		CustomerID:   customerID,
		CustomerName: customer.Name,
		ChatID:       customer.ChatID,
		ChatUsername: customer.Username,
		Items: []models.OrderItem{{
			ProductID:   productID,
			ProductName: product.Name,
			Quantity:    1,
			Price:       product.Price,
			Total:       product.Price,
		}},
		Total:             product.Price,
		DeliveryMethod:    "pickup",
		PaymentPreference: "cash",
		TableNumber:       fmt.Sprintf("TG-%d", customer.ChatID),
		Source:            "chat",
		Status:            models.OrderStatusPending,
		PaymentStatus:     "pending",
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	data, err := docstore.Encode(order)
	if err != nil {
		return models.Order{}, err
	}
	id, err := i.store.Create(ctx, docstore.CollectionOrders, data)
	if err != nil {
		return models.Order{}, fmt.Errorf("failed to persist order: %w", err)
	}
	order.ID = id
	metrics.OrdersPlaced.Inc()
	log.Printf("Order created: %s by user %d for product %s", id, customer.ChatID, productID)

	i.notifyShop(ctx, order)
	i.publishEvent(ctx, order)

	return order, nil
}

// notifyShop resolves the shop's cashier assignment and sends the order
// summary there. A shop without a cashier is logged and skipped.
func (i *Intake) notifyShop(ctx context.Context, order models.Order) {
	docs, err := i.store.Find(ctx, docstore.CollectionStaff,
		docstore.Eq("shop_id", order.ShopID),
		docstore.Eq("role", string(models.StaffRoleCashier)))
	if err != nil {
		log.Printf("Error resolving cashier for shop %s: %v", order.ShopID, err)
		return
	}
	var cashierChatID int64
	for _, doc := range docs {
		var assignment models.StaffAssignment
		if err := docstore.Decode(doc, &assignment); err != nil {
			log.Printf("Skipping malformed staff assignment %s: %v", doc.ID, err)
			continue
		}
		cashierChatID = assignment.ChatID
		break
	}
	if cashierChatID == 0 {
		log.Printf("No cashier assignment found for shop %s, skipping notification", order.ShopID)
		return
	}
	if err := i.notifier.NotifyOrder(ctx, cashierChatID, order); err != nil {
		log.Printf("Error notifying cashier chat %d about order %s: %v", cashierChatID, order.ID, err)
		return
	}
	log.Printf("Order notification sent to cashier chat %d", cashierChatID)
}

func (i *Intake) publishEvent(ctx context.Context, order models.Order) {
	if i.events == nil {
		return
	}
	event := notify.OrderEvent{
		OrderID: order.ID,
		ShopID:  order.ShopID,
		ChatID:  order.ChatID,
		Total:   order.Total,
		TS:      order.CreatedAt.UnixMilli(),
	}
	if err := i.events.PublishOrder(ctx, event); err != nil {
		log.Printf("Error publishing order event for %s: %v", order.ID, err)
	}
}
