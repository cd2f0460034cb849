package models

import "time"

// DefaultCategoryIcon is used when the owner skips the icon step.
const DefaultCategoryIcon = "📦"

// Shop is an external entity; this service only reads it.
type Shop struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	OwnerID     string `json:"owner_id,omitempty"`
	IsActive    bool   `json:"is_active"`
}

// Category belongs to exactly one shop. Order is assigned as the count of
// categories existing at creation time, so values are not unique once
// categories get deleted; sorting must stay stable to keep ties predictable.
type Category struct {
	ID          string    `json:"id"`
	ShopID      string    `json:"shop_id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Icon        string    `json:"icon"`
	Order       int       `json:"order"`
	CreatedBy   string    `json:"created_by,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Product belongs to exactly one shop. Category holds the category NAME, not
// its ID: renaming a category orphans its products. Kept for compatibility
// with data written by earlier versions of the storefront.
type Product struct {
	ID            string    `json:"id"`
	ShopID        string    `json:"shop_id"`
	Name          string    `json:"name"`
	Description   string    `json:"description,omitempty"`
	Price         float64   `json:"price"`
	Stock         int       `json:"stock"`
	Category      string    `json:"category"`
	Subcategory   string    `json:"subcategory,omitempty"`
	Images        []string  `json:"images,omitempty"`
	SKU           string    `json:"sku,omitempty"`
	IsActive      bool      `json:"is_active"`
	LowStockAlert int       `json:"low_stock_alert,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Available reports whether the product can be ordered right now.
func (p *Product) Available() bool {
	return p.IsActive && p.Stock > 0
}
