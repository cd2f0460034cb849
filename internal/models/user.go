package models

import "time"

// ShopVisit records the most recent interaction a user had with one shop.
type ShopVisit struct {
	LastInteracted time.Time `json:"last_interacted"`
}

// User is a storefront customer identified by their chat transport ID.
// AuthUID is the linked external-identity claim used for ownership checks;
// it is empty until the user links an account out of band.
type User struct {
	ChatID     int64                `json:"chat_id"`
	Username   string               `json:"username,omitempty"`
	FirstName  string               `json:"first_name,omitempty"`
	LastName   string               `json:"last_name,omitempty"`
	AuthUID    string               `json:"auth_uid,omitempty"`
	LastShopID string               `json:"last_shop_id,omitempty"`
	Shops      map[string]ShopVisit `json:"shops,omitempty"`
	CreatedAt  time.Time            `json:"created_at"`
	UpdatedAt  time.Time            `json:"updated_at"`
}

// DisplayName joins the user's first and last name for order records.
func (u *User) DisplayName() string {
	if u.LastName == "" {
		return u.FirstName
	}
	return u.FirstName + " " + u.LastName
}
