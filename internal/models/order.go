package models

import "time"

// OrderStatus represents the status of an order. Only "pending" is written
// here; transitions are owned by the external fulfillment process.
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusConfirmed OrderStatus = "confirmed"
	OrderStatusReady     OrderStatus = "ready"
	OrderStatusCompleted OrderStatus = "completed"
	OrderStatusCancelled OrderStatus = "cancelled"
)

// IsValid checks if the order status is a known value.
func (s OrderStatus) IsValid() bool {
	switch s {
	case OrderStatusPending, OrderStatusConfirmed, OrderStatusReady, OrderStatusCompleted, OrderStatusCancelled:
		return true
	default:
		return false
	}
}

// OrderItem is a snapshot of one ordered product line.
type OrderItem struct {
	ProductID   string  `json:"product_id"`
	ProductName string  `json:"product_name"`
	Quantity    int     `json:"quantity"`
	Price       float64 `json:"price"`
	Total       float64 `json:"total"`
}

// Order is created exactly once per successful intake and is immutable here.
type Order struct {
	ID                string      `json:"id"`
	ShopID            string      `json:"shop_id"`
	CustomerID        string      `json:"customer_id"`
	CustomerName      string      `json:"customer_name"`
	ChatID            int64       `json:"chat_id"`
	ChatUsername      string      `json:"chat_username,omitempty"`
	Items             []OrderItem `json:"items"`
	Total             float64     `json:"total"`
	DeliveryMethod    string      `json:"delivery_method"`
	PaymentPreference string      `json:"payment_preference"`
	TableNumber       string      `json:"table_number,omitempty"`
	Source            string      `json:"source"`
	Status            OrderStatus `json:"status"`
	PaymentStatus     string      `json:"payment_status"`
	CreatedAt         time.Time   `json:"created_at"`
	UpdatedAt         time.Time   `json:"updated_at"`
}

// ShortID returns the human-friendly order reference shown to customers.
func (o *Order) ShortID() string {
	if len(o.ID) <= 6 {
		return o.ID
	}
	return o.ID[len(o.ID)-6:]
}
